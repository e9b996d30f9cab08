package repository

import (
	"context"
	"time"

	"tuttscrm_backend/internal/leads/domain"
)

// Follow-up statuses.
const (
	StatusPending   = "pending"
	StatusCompleted = "completed"
	StatusCancelled = "cancelled"
)

// Follow-up types.
const (
	TypeManual    = "manual"
	TypeAutomatic = "automatic"
)

// FollowUp is a persisted follow-up task for a lead.
type FollowUp struct {
	ID            int64      `db:"id"`
	LeadID        int64      `db:"lead_id"`
	ScheduledDate time.Time  `db:"scheduled_date"`
	Reason        string     `db:"reason"`
	Status        string     `db:"status"`
	Type          string     `db:"type"`
	Sequence      int        `db:"sequence"`
	Notes         *string    `db:"notes"`
	CompletedAt   *time.Time `db:"completed_at"`
	CreatedAt     time.Time  `db:"created_at"`
}

// FollowUpWithLead joins the follow-up with lead fields needed by listings.
type FollowUpWithLead struct {
	FollowUp
	LeadPhone       *string      `db:"lead_phone"`
	LeadDisplayName *string      `db:"lead_display_name"`
	LeadStage       domain.Stage `db:"lead_stage"`
}

// CreateParams contains parameters for creating a follow-up.
type CreateParams struct {
	LeadID        int64
	ScheduledDate time.Time
	Reason        string
	Type          string
	Sequence      int
	Notes         *string
}

// AutomationCandidate is a lead the decay engine evaluates.
type AutomationCandidate struct {
	LeadID    int64
	Stage     domain.Stage
	UpdatedAt time.Time
}

// Repository defines follow-up persistence operations.
type Repository interface {
	GetByID(ctx context.Context, id int64) (FollowUp, error)
	ListByLead(ctx context.Context, leadID int64) ([]FollowUp, error)
	List(ctx context.Context, status string) ([]FollowUpWithLead, error)
	Create(ctx context.Context, params CreateParams) (FollowUp, error)
	Complete(ctx context.Context, id int64, notes *string) (FollowUp, error)
	Cancel(ctx context.Context, id int64) error
	CancelPendingByLead(ctx context.Context, leadID int64) (int, error)
	PendingByLead(ctx context.Context, leadID int64) (FollowUp, error)
	LastCompletedByLead(ctx context.Context, leadID int64) (FollowUp, error)
	MaxSequence(ctx context.Context, leadID int64) (int, error)
	SelectAutomationCandidates(ctx context.Context) ([]AutomationCandidate, error)
}
