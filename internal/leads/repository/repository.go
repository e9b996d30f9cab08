package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"tuttscrm_backend/internal/leads/domain"
	"tuttscrm_backend/platform/apperr"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const leadNotFoundMessage = "lead not found"

const leadColumns = `
	id, uuid, phone, display_name, stage, status, region, professional_code,
	tags, origin, initiated_by, owner_user_id, ai_mode, activated_at,
	last_enriched_at, resurrected_at, resurrection_count, created_at, updated_at`

// Repo implements the Repository interface with PostgreSQL.
type Repo struct {
	pool *pgxpool.Pool
}

// New creates a new leads repository.
func New(pool *pgxpool.Pool) *Repo {
	return &Repo{pool: pool}
}

// Compile-time check that Repo implements Repository.
var _ Repository = (*Repo)(nil)

// GetByID retrieves a lead by its ID.
func (r *Repo) GetByID(ctx context.Context, id int64) (Lead, error) {
	query := `SELECT ` + leadColumns + ` FROM leads WHERE id = $1`

	lead, err := scanLead(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Lead{}, apperr.NotFound(leadNotFoundMessage)
		}
		return Lead{}, fmt.Errorf("get lead by id: %w", err)
	}
	return lead, nil
}

// FindByPhoneVariants retrieves the most recent lead whose phone matches any
// of the given variants. Used for dedup on create and quarantine pruning.
func (r *Repo) FindByPhoneVariants(ctx context.Context, variants []string) (Lead, error) {
	if len(variants) == 0 {
		return Lead{}, apperr.NotFound(leadNotFoundMessage)
	}

	query := `
		SELECT ` + leadColumns + `
		FROM leads
		WHERE phone = ANY($1) AND status <> 'archived'
		ORDER BY created_at DESC
		LIMIT 1`

	lead, err := scanLead(r.pool.QueryRow(ctx, query, variants))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Lead{}, apperr.NotFound(leadNotFoundMessage)
		}
		return Lead{}, fmt.Errorf("find lead by phone variants: %w", err)
	}
	return lead, nil
}

// List retrieves leads with filters and pagination, returning the page and
// the total match count.
func (r *Repo) List(ctx context.Context, params ListParams) ([]Lead, int, error) {
	where := []string{"status <> 'archived'"}
	args := []interface{}{}
	argn := 1

	if params.Stage != nil {
		where = append(where, fmt.Sprintf("stage = $%d", argn))
		args = append(args, string(*params.Stage))
		argn++
	}
	if params.Region != nil {
		where = append(where, fmt.Sprintf("region = $%d", argn))
		args = append(args, *params.Region)
		argn++
	}
	if params.OwnerUserID != nil {
		where = append(where, fmt.Sprintf("owner_user_id = $%d", argn))
		args = append(args, *params.OwnerUserID)
		argn++
	}
	if search := strings.TrimSpace(params.Search); search != "" {
		where = append(where, fmt.Sprintf("(display_name ILIKE $%d OR phone LIKE $%d)", argn, argn+1))
		args = append(args, "%"+search+"%", "%"+onlyDigits(search)+"%")
		argn += 2
	}

	whereClause := strings.Join(where, " AND ")

	var total int
	countQuery := `SELECT COUNT(*) FROM leads WHERE ` + whereClause
	if err := r.pool.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count leads: %w", err)
	}

	limit := params.Limit
	if limit <= 0 || limit > 200 {
		limit = 50
	}

	query := fmt.Sprintf(`
		SELECT %s FROM leads
		WHERE %s
		ORDER BY updated_at DESC
		LIMIT $%d OFFSET $%d`, leadColumns, whereClause, argn, argn+1)
	args = append(args, limit, params.Offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list leads: %w", err)
	}
	defer rows.Close()

	leads, err := scanLeads(rows)
	if err != nil {
		return nil, 0, err
	}
	return leads, total, nil
}

// CountsByStage returns the number of non-archived leads per stage.
func (r *Repo) CountsByStage(ctx context.Context) (map[string]int, error) {
	query := `
		SELECT stage, COUNT(*)
		FROM leads
		WHERE status <> 'archived'
		GROUP BY stage`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("count leads by stage: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var stage string
		var count int
		if err := rows.Scan(&stage, &count); err != nil {
			return nil, fmt.Errorf("scan stage count: %w", err)
		}
		counts[string(domain.NormalizeStage(stage))] += count
	}
	return counts, rows.Err()
}

// ListActivatedBetween returns leads activated inside the window, inclusive.
func (r *Repo) ListActivatedBetween(ctx context.Context, from, to time.Time) ([]Lead, error) {
	query := `
		SELECT ` + leadColumns + `
		FROM leads
		WHERE stage = 'activated'
		  AND activated_at IS NOT NULL
		  AND activated_at >= $1 AND activated_at <= $2
		ORDER BY activated_at DESC`

	rows, err := r.pool.Query(ctx, query, from, to)
	if err != nil {
		return nil, fmt.Errorf("list activated leads: %w", err)
	}
	defer rows.Close()

	return scanLeads(rows)
}

// ListPhoneIndex returns a slim phone projection for every non-archived lead
// with a phone in one of the given stages. Used to match quarantine batches
// against the active funnel without loading full rows.
func (r *Repo) ListPhoneIndex(ctx context.Context, stages []domain.Stage) ([]PhoneIndexEntry, error) {
	stageNames := make([]string, 0, len(stages))
	for _, s := range stages {
		stageNames = append(stageNames, string(s))
	}

	query := `
		SELECT id, phone, stage, display_name, professional_code, region
		FROM leads
		WHERE status <> 'archived' AND phone IS NOT NULL AND stage = ANY($1)`

	rows, err := r.pool.Query(ctx, query, stageNames)
	if err != nil {
		return nil, fmt.Errorf("list lead phone index: %w", err)
	}
	defer rows.Close()

	var entries []PhoneIndexEntry
	for rows.Next() {
		var entry PhoneIndexEntry
		var stage string
		if err := rows.Scan(&entry.ID, &entry.Phone, &stage, &entry.DisplayName, &entry.ProfessionalCode, &entry.Region); err != nil {
			return nil, fmt.Errorf("scan phone index entry: %w", err)
		}
		entry.Stage = domain.NormalizeStage(stage)
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

// Create inserts a new lead.
func (r *Repo) Create(ctx context.Context, params CreateParams) (Lead, error) {
	stage := params.Stage
	if !stage.Valid() {
		stage = domain.StageNew
	}
	tags := params.Tags
	if tags == nil {
		tags = []string{}
	}

	query := `
		INSERT INTO leads (phone, display_name, stage, region, origin, initiated_by, tags)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING ` + leadColumns

	lead, err := scanLead(r.pool.QueryRow(ctx, query,
		params.Phone, params.DisplayName, string(stage), params.Region,
		params.Origin, params.InitiatedBy, tags,
	))
	if err != nil {
		return Lead{}, fmt.Errorf("create lead: %w", err)
	}
	return lead, nil
}

// Update applies optional field updates and returns the updated lead.
func (r *Repo) Update(ctx context.Context, params UpdateParams) (Lead, error) {
	sets := []string{"updated_at = now()"}
	args := []interface{}{params.ID}
	argn := 2

	if params.DisplayName != nil {
		sets = append(sets, fmt.Sprintf("display_name = $%d", argn))
		args = append(args, *params.DisplayName)
		argn++
	}
	if params.Region != nil {
		sets = append(sets, fmt.Sprintf("region = $%d", argn))
		args = append(args, *params.Region)
		argn++
	}
	if params.ProfessionalCode != nil {
		sets = append(sets, fmt.Sprintf("professional_code = $%d", argn))
		args = append(args, *params.ProfessionalCode)
		argn++
	}
	if params.Tags != nil {
		sets = append(sets, fmt.Sprintf("tags = $%d", argn))
		args = append(args, params.Tags)
		argn++
	}
	if params.Origin != nil {
		sets = append(sets, fmt.Sprintf("origin = $%d", argn))
		args = append(args, *params.Origin)
		argn++
	}

	query := fmt.Sprintf(`
		UPDATE leads SET %s
		WHERE id = $1
		RETURNING %s`, strings.Join(sets, ", "), leadColumns)

	lead, err := scanLead(r.pool.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Lead{}, apperr.NotFound(leadNotFoundMessage)
		}
		return Lead{}, fmt.Errorf("update lead: %w", err)
	}
	return lead, nil
}

// SetStage moves the lead to the given stage, stamping activated_at on
// activation when not already set.
func (r *Repo) SetStage(ctx context.Context, id int64, stage domain.Stage) error {
	query := `
		UPDATE leads SET
			stage = $2,
			activated_at = CASE WHEN $2 = 'activated' AND activated_at IS NULL THEN now() ELSE activated_at END,
			updated_at = now()
		WHERE id = $1`

	tag, err := r.pool.Exec(ctx, query, id, string(stage))
	if err != nil {
		return fmt.Errorf("set lead stage: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound(leadNotFoundMessage)
	}
	return nil
}

// Claim assigns the lead to the user with a first-write-wins conditional
// update. A claim also pauses AI assistance on the conversation. Returns
// false when another user already owns the lead.
func (r *Repo) Claim(ctx context.Context, id, userID int64) (bool, error) {
	query := `
		UPDATE leads SET
			owner_user_id = $2,
			ai_mode = 'paused',
			updated_at = now()
		WHERE id = $1 AND (owner_user_id IS NULL OR owner_user_id = $2)`

	tag, err := r.pool.Exec(ctx, query, id, userID)
	if err != nil {
		return false, fmt.Errorf("claim lead: %w", err)
	}
	if tag.RowsAffected() > 0 {
		return true, nil
	}

	// Distinguish "taken" from "missing".
	var exists bool
	if err := r.pool.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM leads WHERE id = $1)`, id).Scan(&exists); err != nil {
		return false, fmt.Errorf("claim lead existence check: %w", err)
	}
	if !exists {
		return false, apperr.NotFound(leadNotFoundMessage)
	}
	return false, nil
}

// SetAIMode updates the AI assistance mode for the lead's conversation.
func (r *Repo) SetAIMode(ctx context.Context, id int64, mode string) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE leads SET ai_mode = $2, updated_at = now() WHERE id = $1`, id, mode)
	if err != nil {
		return fmt.Errorf("set lead ai mode: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound(leadNotFoundMessage)
	}
	return nil
}

// Archive soft-deletes the lead.
func (r *Repo) Archive(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE leads SET status = 'archived', updated_at = now() WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("archive lead: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound(leadNotFoundMessage)
	}
	return nil
}

// UpdateRosterInfo fills registry roster fields onto a lead without touching
// its stage. Only non-nil fields are written.
func (r *Repo) UpdateRosterInfo(ctx context.Context, id int64, info RosterInfo) error {
	query := `
		UPDATE leads SET
			display_name = COALESCE($2, display_name),
			professional_code = COALESCE($3, professional_code),
			region = COALESCE($4, region),
			activated_at = COALESCE($5, activated_at),
			updated_at = now()
		WHERE id = $1`

	tag, err := r.pool.Exec(ctx, query, id,
		info.DisplayName, info.ProfessionalCode, info.Region, info.ActivatedAt)
	if err != nil {
		return fmt.Errorf("update lead roster info: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound(leadNotFoundMessage)
	}
	return nil
}

// SelectNeverEnriched returns leads that have never been through a
// reconciliation pass, oldest first. No stage filter: activated leads still
// deserve the spreadsheet pass, the registry check skips them downstream.
func (r *Repo) SelectNeverEnriched(ctx context.Context, limit int) ([]Lead, error) {
	query := `
		SELECT ` + leadColumns + `
		FROM leads
		WHERE status <> 'archived'
		  AND last_enriched_at IS NULL
		ORDER BY created_at ASC
		LIMIT $1`

	rows, err := r.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("select never enriched leads: %w", err)
	}
	defer rows.Close()

	return scanLeads(rows)
}

// SelectCooldownExpired returns leads whose last pass is older than the
// cutoff, stalest first.
func (r *Repo) SelectCooldownExpired(ctx context.Context, cutoff time.Time, limit int) ([]Lead, error) {
	query := `
		SELECT ` + leadColumns + `
		FROM leads
		WHERE status <> 'archived'
		  AND last_enriched_at IS NOT NULL
		  AND last_enriched_at < $1
		  AND stage IN ('new', 'qualified', 'dead', 'in_progress', 'proposal')
		ORDER BY last_enriched_at ASC
		LIMIT $2`

	rows, err := r.pool.Query(ctx, query, cutoff, limit)
	if err != nil {
		return nil, fmt.Errorf("select cooldown expired leads: %w", err)
	}
	defer rows.Close()

	return scanLeads(rows)
}

// ApplyEnrichment writes the outcome of a reconciliation pass for one lead.
func (r *Repo) ApplyEnrichment(ctx context.Context, update EnrichmentUpdate) error {
	query := `
		UPDATE leads SET
			stage = $2,
			display_name = COALESCE($3, display_name),
			region = COALESCE($4, region),
			professional_code = COALESCE($5, professional_code),
			activated_at = CASE WHEN $2 = 'activated' THEN COALESCE($6, activated_at, now()) ELSE activated_at END,
			resurrected_at = CASE WHEN $7 THEN now() ELSE resurrected_at END,
			resurrection_count = resurrection_count + CASE WHEN $7 THEN 1 ELSE 0 END,
			updated_at = now()
		WHERE id = $1`

	tag, err := r.pool.Exec(ctx, query,
		update.ID, string(update.Stage), update.DisplayName, update.Region,
		update.ProfessionalCode, update.ActivatedAt, update.Resurrected)
	if err != nil {
		return fmt.Errorf("apply enrichment: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound(leadNotFoundMessage)
	}
	return nil
}

// StampEnriched marks all given leads as checked, regardless of outcome.
func (r *Repo) StampEnriched(ctx context.Context, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}

	_, err := r.pool.Exec(ctx,
		`UPDATE leads SET last_enriched_at = now() WHERE id = ANY($1)`, ids)
	if err != nil {
		return fmt.Errorf("stamp enriched leads: %w", err)
	}
	return nil
}

// EnrichmentStatus summarizes freshness against the cooldown cutoff.
func (r *Repo) EnrichmentStatus(ctx context.Context, cutoff time.Time) (EnrichmentStatus, error) {
	query := `
		SELECT
			COUNT(*) FILTER (WHERE last_enriched_at IS NULL),
			COUNT(*) FILTER (WHERE last_enriched_at IS NOT NULL AND last_enriched_at < $1),
			COUNT(*) FILTER (WHERE last_enriched_at IS NOT NULL AND last_enriched_at >= $1)
		FROM leads
		WHERE status <> 'archived'
		  AND stage IN ('new', 'qualified', 'dead', 'in_progress', 'proposal')`

	var status EnrichmentStatus
	err := r.pool.QueryRow(ctx, query, cutoff).Scan(&status.NeverEnriched, &status.Stale, &status.Fresh)
	if err != nil {
		return EnrichmentStatus{}, fmt.Errorf("enrichment status counts: %w", err)
	}
	return status, nil
}

func scanLead(row pgx.Row) (Lead, error) {
	var lead Lead
	var stage string

	err := row.Scan(
		&lead.ID, &lead.UUID, &lead.Phone, &lead.DisplayName, &stage,
		&lead.Status, &lead.Region, &lead.ProfessionalCode, &lead.Tags,
		&lead.Origin, &lead.InitiatedBy, &lead.OwnerUserID, &lead.AIMode,
		&lead.ActivatedAt, &lead.LastEnrichedAt, &lead.ResurrectedAt,
		&lead.ResurrectionCount, &lead.CreatedAt, &lead.UpdatedAt,
	)
	if err != nil {
		return Lead{}, err
	}

	lead.Stage = domain.NormalizeStage(stage)
	return lead, nil
}

func scanLeads(rows pgx.Rows) ([]Lead, error) {
	var leads []Lead
	for rows.Next() {
		lead, err := scanLead(rows)
		if err != nil {
			return nil, fmt.Errorf("scan lead: %w", err)
		}
		leads = append(leads, lead)
	}
	return leads, rows.Err()
}

func onlyDigits(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
