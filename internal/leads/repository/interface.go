package repository

import (
	"context"
	"time"

	"tuttscrm_backend/internal/leads/domain"

	"github.com/google/uuid"
)

// Lead is the persisted funnel record.
type Lead struct {
	ID                 int64        `db:"id"`
	UUID               uuid.UUID    `db:"uuid"`
	Phone              *string      `db:"phone"`
	DisplayName        *string      `db:"display_name"`
	Stage              domain.Stage `db:"stage"`
	Status             string       `db:"status"`
	Region             *string      `db:"region"`
	ProfessionalCode   *string      `db:"professional_code"`
	Tags               []string     `db:"tags"`
	Origin             *string      `db:"origin"`
	InitiatedBy        *string      `db:"initiated_by"`
	OwnerUserID        *int64       `db:"owner_user_id"`
	AIMode             *string      `db:"ai_mode"`
	ActivatedAt        *time.Time   `db:"activated_at"`
	LastEnrichedAt     *time.Time   `db:"last_enriched_at"`
	ResurrectedAt      *time.Time   `db:"resurrected_at"`
	ResurrectionCount  int          `db:"resurrection_count"`
	CreatedAt          time.Time    `db:"created_at"`
	UpdatedAt          time.Time    `db:"updated_at"`
}

// CreateParams contains parameters for creating a lead.
type CreateParams struct {
	Phone       *string
	DisplayName *string
	Stage       domain.Stage
	Region      *string
	Origin      *string
	InitiatedBy *string
	Tags        []string
}

// UpdateParams contains optional field updates for a lead.
type UpdateParams struct {
	ID               int64
	DisplayName      *string
	Region           *string
	ProfessionalCode *string
	Tags             []string
	Origin           *string
}

// ListParams filters and paginates lead listings.
type ListParams struct {
	Stage       *domain.Stage
	Region      *string
	OwnerUserID *int64
	Search      string
	Limit       int
	Offset      int
}

// EnrichmentUpdate carries the per-lead outcome of a reconciliation pass.
type EnrichmentUpdate struct {
	ID               int64
	Stage            domain.Stage
	DisplayName      *string
	Region           *string
	ProfessionalCode *string
	ActivatedAt      *time.Time
	Resurrected      bool
}

// RosterInfo carries registry roster fields matched onto a CRM lead.
type RosterInfo struct {
	DisplayName      *string
	ProfessionalCode *string
	Region           *string
	ActivatedAt      *time.Time
}

// PhoneIndexEntry is a slim lead projection for phone-based matching.
type PhoneIndexEntry struct {
	ID               int64
	Phone            string
	Stage            domain.Stage
	DisplayName      *string
	ProfessionalCode *string
	Region           *string
}

// EnrichmentStatus summarizes lead freshness against the reconciliation cycle.
type EnrichmentStatus struct {
	NeverEnriched int
	Stale         int
	Fresh         int
}

// LeadReader provides read operations on leads.
type LeadReader interface {
	GetByID(ctx context.Context, id int64) (Lead, error)
	FindByPhoneVariants(ctx context.Context, variants []string) (Lead, error)
	List(ctx context.Context, params ListParams) ([]Lead, int, error)
	CountsByStage(ctx context.Context) (map[string]int, error)
	ListActivatedBetween(ctx context.Context, from, to time.Time) ([]Lead, error)
	ListPhoneIndex(ctx context.Context, stages []domain.Stage) ([]PhoneIndexEntry, error)
}

// LeadWriter provides write operations on leads.
type LeadWriter interface {
	Create(ctx context.Context, params CreateParams) (Lead, error)
	Update(ctx context.Context, params UpdateParams) (Lead, error)
	SetStage(ctx context.Context, id int64, stage domain.Stage) error
	Claim(ctx context.Context, id, userID int64) (bool, error)
	SetAIMode(ctx context.Context, id int64, mode string) error
	Archive(ctx context.Context, id int64) error
	UpdateRosterInfo(ctx context.Context, id int64, info RosterInfo) error
}

// LeadEnricher provides the reconciliation engine's persistence operations.
type LeadEnricher interface {
	SelectNeverEnriched(ctx context.Context, limit int) ([]Lead, error)
	SelectCooldownExpired(ctx context.Context, cutoff time.Time, limit int) ([]Lead, error)
	ApplyEnrichment(ctx context.Context, update EnrichmentUpdate) error
	StampEnriched(ctx context.Context, ids []int64) error
	EnrichmentStatus(ctx context.Context, cutoff time.Time) (EnrichmentStatus, error)
}

// Repository combines all lead persistence operations.
type Repository interface {
	LeadReader
	LeadWriter
	LeadEnricher
}
