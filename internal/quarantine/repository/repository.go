// Package repository persists the quarantine roster in PostgreSQL.
package repository

import (
	"context"
	"errors"
	"fmt"

	"tuttscrm_backend/platform/apperr"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const quarantineColumns = `
	id, professional_code, name, phone, phone_normalized, region,
	registered_at, uploaded_by, created_at`

// Repo implements the Repository interface with PostgreSQL.
type Repo struct {
	pool *pgxpool.Pool
}

// New creates a new quarantine repository.
func New(pool *pgxpool.Pool) *Repo {
	return &Repo{pool: pool}
}

// Compile-time check that Repo implements Repository.
var _ Repository = (*Repo)(nil)

// ListAll returns every quarantine entry, newest first.
func (r *Repo) ListAll(ctx context.Context) ([]QuarantineLead, error) {
	query := `
		SELECT ` + quarantineColumns + `
		FROM quarantine_leads
		ORDER BY created_at DESC, id DESC`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list quarantine leads: %w", err)
	}
	defer rows.Close()

	var entries []QuarantineLead
	for rows.Next() {
		var entry QuarantineLead
		if err := rows.Scan(
			&entry.ID, &entry.ProfessionalCode, &entry.Name, &entry.Phone,
			&entry.PhoneNormalized, &entry.Region, &entry.RegisteredAt,
			&entry.UploadedBy, &entry.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan quarantine lead: %w", err)
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

// Upsert inserts an entry keyed by normalized phone. A phone already in
// quarantine is left untouched. Returns whether a row was inserted.
func (r *Repo) Upsert(ctx context.Context, params UpsertParams) (bool, error) {
	query := `
		INSERT INTO quarantine_leads
			(professional_code, name, phone, phone_normalized, region, registered_at, uploaded_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (phone_normalized) DO NOTHING`

	tag, err := r.pool.Exec(ctx, query,
		params.ProfessionalCode, params.Name, params.Phone, params.PhoneNormalized,
		params.Region, params.RegisteredAt, params.UploadedBy)
	if err != nil {
		return false, fmt.Errorf("upsert quarantine lead: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// DeleteByIDs removes the given entries.
func (r *Repo) DeleteByIDs(ctx context.Context, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}

	_, err := r.pool.Exec(ctx, `DELETE FROM quarantine_leads WHERE id = ANY($1)`, ids)
	if err != nil {
		return fmt.Errorf("delete quarantine leads: %w", err)
	}
	return nil
}

// DeleteOne removes a single entry.
func (r *Repo) DeleteOne(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM quarantine_leads WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete quarantine lead: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("quarantine lead not found")
	}
	return nil
}

// DeleteAll clears the quarantine and returns the number of removed entries.
func (r *Repo) DeleteAll(ctx context.Context) (int64, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM quarantine_leads`)
	if err != nil {
		return 0, fmt.Errorf("clear quarantine: %w", err)
	}
	return tag.RowsAffected(), nil
}

// Count returns the number of quarantine entries.
func (r *Repo) Count(ctx context.Context) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM quarantine_leads`).Scan(&count)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, nil
		}
		return 0, fmt.Errorf("count quarantine leads: %w", err)
	}
	return count, nil
}
