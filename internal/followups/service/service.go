// Package service implements the manual follow-up operations shared with the
// automation engine's cancel-then-create path.
package service

import (
	"context"
	"strings"
	"time"

	"tuttscrm_backend/internal/events"
	"tuttscrm_backend/internal/followups/repository"
	"tuttscrm_backend/platform/apperr"
	"tuttscrm_backend/platform/logger"
)

// Service implements follow-up use cases.
type Service struct {
	repo repository.Repository
	bus  events.Bus
	log  *logger.Logger
}

// New creates a new follow-ups service.
func New(repo repository.Repository, bus events.Bus, log *logger.Logger) *Service {
	return &Service{repo: repo, bus: bus, log: log}
}

// ScheduleInput carries validated input for scheduling a follow-up.
type ScheduleInput struct {
	LeadID        int64
	ScheduledDate time.Time
	Reason        string
	Notes         string
}

// Schedule creates a manual follow-up for a lead. Any pending follow-up is
// cancelled first so the one-pending-per-lead invariant holds.
func (s *Service) Schedule(ctx context.Context, input ScheduleInput) (repository.FollowUp, error) {
	reason := strings.TrimSpace(input.Reason)
	if reason == "" {
		return repository.FollowUp{}, apperr.Validation("reason is required")
	}
	if input.ScheduledDate.IsZero() {
		return repository.FollowUp{}, apperr.Validation("scheduled date is required")
	}

	if _, err := s.repo.CancelPendingByLead(ctx, input.LeadID); err != nil {
		return repository.FollowUp{}, err
	}

	maxSeq, err := s.repo.MaxSequence(ctx, input.LeadID)
	if err != nil {
		return repository.FollowUp{}, err
	}

	params := repository.CreateParams{
		LeadID:        input.LeadID,
		ScheduledDate: input.ScheduledDate,
		Reason:        reason,
		Type:          repository.TypeManual,
		Sequence:      maxSeq + 1,
	}
	if notes := strings.TrimSpace(input.Notes); notes != "" {
		params.Notes = &notes
	}

	created, err := s.repo.Create(ctx, params)
	if err != nil {
		return repository.FollowUp{}, err
	}

	s.bus.Publish(ctx, events.FollowUpScheduled{
		BaseEvent:  events.NewBaseEvent(),
		FollowUpID: created.ID,
		LeadID:     created.LeadID,
		Reason:     created.Reason,
		Sequence:   created.Sequence,
	})
	return created, nil
}

// Complete marks a pending follow-up as done.
func (s *Service) Complete(ctx context.Context, id int64, notes string) (repository.FollowUp, error) {
	var notesPtr *string
	if trimmed := strings.TrimSpace(notes); trimmed != "" {
		notesPtr = &trimmed
	}
	return s.repo.Complete(ctx, id, notesPtr)
}

// Cancel marks a pending follow-up as cancelled.
func (s *Service) Cancel(ctx context.Context, id int64) error {
	return s.repo.Cancel(ctx, id)
}

// List returns follow-ups joined with lead fields, filtered by status.
func (s *Service) List(ctx context.Context, status string) ([]repository.FollowUpWithLead, error) {
	switch status {
	case "", repository.StatusPending, repository.StatusCompleted, repository.StatusCancelled:
	default:
		return nil, apperr.Validation("invalid status filter")
	}
	return s.repo.List(ctx, status)
}

// ListByLead returns a lead's full follow-up history.
func (s *Service) ListByLead(ctx context.Context, leadID int64) ([]repository.FollowUp, error) {
	return s.repo.ListByLead(ctx, leadID)
}
