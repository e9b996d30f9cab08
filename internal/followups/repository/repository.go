package repository

import (
	"context"
	"errors"
	"fmt"

	"tuttscrm_backend/internal/leads/domain"
	"tuttscrm_backend/platform/apperr"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const followUpNotFoundMessage = "follow-up not found"

const followUpColumns = `
	id, lead_id, scheduled_date, reason, status, type, sequence, notes,
	completed_at, created_at`

// Repo implements the Repository interface with PostgreSQL.
type Repo struct {
	pool *pgxpool.Pool
}

// New creates a new follow-ups repository.
func New(pool *pgxpool.Pool) *Repo {
	return &Repo{pool: pool}
}

// Compile-time check that Repo implements Repository.
var _ Repository = (*Repo)(nil)

// GetByID retrieves a follow-up by ID.
func (r *Repo) GetByID(ctx context.Context, id int64) (FollowUp, error) {
	query := `SELECT ` + followUpColumns + ` FROM followups WHERE id = $1`

	fu, err := scanFollowUp(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return FollowUp{}, apperr.NotFound(followUpNotFoundMessage)
		}
		return FollowUp{}, fmt.Errorf("get follow-up by id: %w", err)
	}
	return fu, nil
}

// ListByLead retrieves all follow-ups for a lead, newest first.
func (r *Repo) ListByLead(ctx context.Context, leadID int64) ([]FollowUp, error) {
	query := `
		SELECT ` + followUpColumns + `
		FROM followups
		WHERE lead_id = $1
		ORDER BY created_at DESC`

	rows, err := r.pool.Query(ctx, query, leadID)
	if err != nil {
		return nil, fmt.Errorf("list follow-ups by lead: %w", err)
	}
	defer rows.Close()

	return scanFollowUps(rows)
}

// List retrieves follow-ups joined with lead fields, optionally filtered by
// status, ordered by scheduled date.
func (r *Repo) List(ctx context.Context, status string) ([]FollowUpWithLead, error) {
	query := `
		SELECT f.id, f.lead_id, f.scheduled_date, f.reason, f.status, f.type,
		       f.sequence, f.notes, f.completed_at, f.created_at,
		       l.phone, l.display_name, l.stage
		FROM followups f
		JOIN leads l ON l.id = f.lead_id
		WHERE ($1 = '' OR f.status = $1)
		  AND l.status <> 'archived'
		ORDER BY f.scheduled_date ASC, f.id ASC`

	rows, err := r.pool.Query(ctx, query, status)
	if err != nil {
		return nil, fmt.Errorf("list follow-ups: %w", err)
	}
	defer rows.Close()

	var result []FollowUpWithLead
	for rows.Next() {
		var item FollowUpWithLead
		var leadStage string
		err := rows.Scan(
			&item.ID, &item.LeadID, &item.ScheduledDate, &item.Reason,
			&item.Status, &item.Type, &item.Sequence, &item.Notes,
			&item.CompletedAt, &item.CreatedAt,
			&item.LeadPhone, &item.LeadDisplayName, &leadStage,
		)
		if err != nil {
			return nil, fmt.Errorf("scan follow-up with lead: %w", err)
		}
		item.LeadStage = domain.NormalizeStage(leadStage)
		result = append(result, item)
	}
	return result, rows.Err()
}

// Create inserts a new follow-up. The partial unique index on pending
// follow-ups backs the one-pending-per-lead invariant; a violation surfaces
// as a conflict.
func (r *Repo) Create(ctx context.Context, params CreateParams) (FollowUp, error) {
	followUpType := params.Type
	if followUpType == "" {
		followUpType = TypeManual
	}
	sequence := params.Sequence
	if sequence < 1 {
		sequence = 1
	}

	query := `
		INSERT INTO followups (lead_id, scheduled_date, reason, type, sequence, notes)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING ` + followUpColumns

	fu, err := scanFollowUp(r.pool.QueryRow(ctx, query,
		params.LeadID, params.ScheduledDate, params.Reason, followUpType,
		sequence, params.Notes,
	))
	if err != nil {
		if isUniqueViolation(err) {
			return FollowUp{}, apperr.Conflict("lead already has a pending follow-up")
		}
		return FollowUp{}, fmt.Errorf("create follow-up: %w", err)
	}
	return fu, nil
}

// Complete marks a pending follow-up as completed.
func (r *Repo) Complete(ctx context.Context, id int64, notes *string) (FollowUp, error) {
	query := `
		UPDATE followups SET
			status = 'completed',
			completed_at = now(),
			notes = COALESCE($2, notes)
		WHERE id = $1 AND status = 'pending'
		RETURNING ` + followUpColumns

	fu, err := scanFollowUp(r.pool.QueryRow(ctx, query, id, notes))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return FollowUp{}, apperr.NotFound("pending follow-up not found")
		}
		return FollowUp{}, fmt.Errorf("complete follow-up: %w", err)
	}
	return fu, nil
}

// Cancel marks a pending follow-up as cancelled.
func (r *Repo) Cancel(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE followups SET status = 'cancelled' WHERE id = $1 AND status = 'pending'`, id)
	if err != nil {
		return fmt.Errorf("cancel follow-up: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("pending follow-up not found")
	}
	return nil
}

// CancelPendingByLead cancels any pending follow-up for the lead, returning
// how many were cancelled.
func (r *Repo) CancelPendingByLead(ctx context.Context, leadID int64) (int, error) {
	tag, err := r.pool.Exec(ctx,
		`UPDATE followups SET status = 'cancelled' WHERE lead_id = $1 AND status = 'pending'`, leadID)
	if err != nil {
		return 0, fmt.Errorf("cancel pending follow-ups: %w", err)
	}
	return int(tag.RowsAffected()), nil
}

// PendingByLead retrieves the lead's pending follow-up, if any.
func (r *Repo) PendingByLead(ctx context.Context, leadID int64) (FollowUp, error) {
	query := `
		SELECT ` + followUpColumns + `
		FROM followups
		WHERE lead_id = $1 AND status = 'pending'
		ORDER BY created_at DESC
		LIMIT 1`

	fu, err := scanFollowUp(r.pool.QueryRow(ctx, query, leadID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return FollowUp{}, apperr.NotFound(followUpNotFoundMessage)
		}
		return FollowUp{}, fmt.Errorf("pending follow-up by lead: %w", err)
	}
	return fu, nil
}

// LastCompletedByLead retrieves the lead's most recently completed follow-up.
func (r *Repo) LastCompletedByLead(ctx context.Context, leadID int64) (FollowUp, error) {
	query := `
		SELECT ` + followUpColumns + `
		FROM followups
		WHERE lead_id = $1 AND status = 'completed'
		ORDER BY completed_at DESC
		LIMIT 1`

	fu, err := scanFollowUp(r.pool.QueryRow(ctx, query, leadID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return FollowUp{}, apperr.NotFound(followUpNotFoundMessage)
		}
		return FollowUp{}, fmt.Errorf("last completed follow-up by lead: %w", err)
	}
	return fu, nil
}

// MaxSequence returns the highest sequence number used for the lead, zero
// when it has no follow-ups yet.
func (r *Repo) MaxSequence(ctx context.Context, leadID int64) (int, error) {
	var max int
	err := r.pool.QueryRow(ctx,
		`SELECT COALESCE(MAX(sequence), 0) FROM followups WHERE lead_id = $1`, leadID).Scan(&max)
	if err != nil {
		return 0, fmt.Errorf("max follow-up sequence: %w", err)
	}
	return max, nil
}

// SelectAutomationCandidates returns active leads in the stages the decay
// engine watches.
func (r *Repo) SelectAutomationCandidates(ctx context.Context) ([]AutomationCandidate, error) {
	query := `
		SELECT id, stage, updated_at
		FROM leads
		WHERE status <> 'archived'
		  AND stage IN ('new', 'qualified', 'in_progress', 'proposal')
		ORDER BY id ASC`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("select automation candidates: %w", err)
	}
	defer rows.Close()

	var candidates []AutomationCandidate
	for rows.Next() {
		var candidate AutomationCandidate
		var stage string
		if err := rows.Scan(&candidate.LeadID, &stage, &candidate.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan automation candidate: %w", err)
		}
		candidate.Stage = domain.NormalizeStage(stage)
		candidates = append(candidates, candidate)
	}
	return candidates, rows.Err()
}

func scanFollowUp(row pgx.Row) (FollowUp, error) {
	var fu FollowUp
	err := row.Scan(
		&fu.ID, &fu.LeadID, &fu.ScheduledDate, &fu.Reason, &fu.Status,
		&fu.Type, &fu.Sequence, &fu.Notes, &fu.CompletedAt, &fu.CreatedAt,
	)
	return fu, err
}

func scanFollowUps(rows pgx.Rows) ([]FollowUp, error) {
	var result []FollowUp
	for rows.Next() {
		fu, err := scanFollowUp(rows)
		if err != nil {
			return nil, fmt.Errorf("scan follow-up: %w", err)
		}
		result = append(result, fu)
	}
	return result, rows.Err()
}

func isUniqueViolation(err error) bool {
	var pgErr interface{ SQLState() string }
	if errors.As(err, &pgErr) {
		return pgErr.SQLState() == "23505"
	}
	return false
}
