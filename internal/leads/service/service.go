// Package service implements the lead lifecycle use cases on top of the
// repository, publishing domain events for cross-module reactions.
package service

import (
	"context"
	"strings"

	"tuttscrm_backend/internal/events"
	"tuttscrm_backend/internal/leads/domain"
	"tuttscrm_backend/internal/leads/repository"
	"tuttscrm_backend/platform/apperr"
	"tuttscrm_backend/platform/logger"
	"tuttscrm_backend/platform/phone"
)

// AI assistance modes on a lead's conversation.
const (
	AIModeActive = "active"
	AIModePaused = "paused"
)

// Service implements lead lifecycle operations.
type Service struct {
	repo repository.Repository
	bus  events.Bus
	log  *logger.Logger
}

// New creates a new leads service.
func New(repo repository.Repository, bus events.Bus, log *logger.Logger) *Service {
	return &Service{repo: repo, bus: bus, log: log}
}

// CreateInput carries validated input for lead creation.
type CreateInput struct {
	Phone       string
	DisplayName string
	Region      string
	Origin      string
	InitiatedBy string
	Tags        []string
}

// Create inserts a new lead after normalizing its phone and checking for an
// existing lead on any known variant of the number. A created lead is queued
// for an immediate registry check via the event bus.
func (s *Service) Create(ctx context.Context, input CreateInput) (repository.Lead, error) {
	normalized := phone.Normalize(input.Phone)
	if normalized == "" {
		return repository.Lead{}, apperr.Validation("phone is required")
	}

	variants := phone.Variants(input.Phone)
	if existing, err := s.repo.FindByPhoneVariants(ctx, variants); err == nil {
		return repository.Lead{}, apperr.Conflict("a lead with this phone already exists").
			WithDetails(map[string]interface{}{"existingLeadId": existing.ID})
	} else if apperr.GetKind(err) != apperr.KindNotFound {
		return repository.Lead{}, err
	}

	region := strings.TrimSpace(input.Region)
	if region == "" {
		region = phone.RegionByAreaCode(normalized)
	}

	params := repository.CreateParams{
		Phone: &normalized,
		Stage: domain.StageNew,
		Tags:  input.Tags,
	}
	if name := strings.TrimSpace(input.DisplayName); name != "" {
		params.DisplayName = &name
	}
	if region != "" {
		params.Region = &region
	}
	if origin := strings.TrimSpace(input.Origin); origin != "" {
		params.Origin = &origin
	}
	if initiatedBy := strings.TrimSpace(input.InitiatedBy); initiatedBy != "" {
		params.InitiatedBy = &initiatedBy
	}

	lead, err := s.repo.Create(ctx, params)
	if err != nil {
		s.log.LeadError("create", 0, err)
		return repository.Lead{}, err
	}

	s.bus.Publish(ctx, events.LeadCreated{
		BaseEvent: events.NewBaseEvent(),
		LeadID:    lead.ID,
		Phone:     normalized,
		Stage:     string(lead.Stage),
		Source:    input.Origin,
	})
	s.bus.Publish(ctx, events.LeadEnrichmentRequested{
		BaseEvent: events.NewBaseEvent(),
		LeadID:    lead.ID,
		Phone:     normalized,
	})

	return lead, nil
}

// Get retrieves a lead by ID.
func (s *Service) Get(ctx context.Context, id int64) (repository.Lead, error) {
	return s.repo.GetByID(ctx, id)
}

// List retrieves leads with filters plus the per-stage counters used by the
// Kanban board header.
func (s *Service) List(ctx context.Context, params repository.ListParams) ([]repository.Lead, int, map[string]int, error) {
	leads, total, err := s.repo.List(ctx, params)
	if err != nil {
		return nil, 0, nil, err
	}

	counts, err := s.repo.CountsByStage(ctx)
	if err != nil {
		return nil, 0, nil, err
	}

	return leads, total, counts, nil
}

// Update applies field updates to a lead.
func (s *Service) Update(ctx context.Context, params repository.UpdateParams) (repository.Lead, error) {
	return s.repo.Update(ctx, params)
}

// SetStage performs a manual stage move (Kanban drag).
func (s *Service) SetStage(ctx context.Context, id int64, stage domain.Stage) error {
	if !stage.Valid() {
		return apperr.Validation("invalid stage")
	}

	current, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if current.Stage == stage {
		return nil
	}

	if err := s.repo.SetStage(ctx, id, stage); err != nil {
		s.log.LeadError("set_stage", id, err)
		return err
	}

	s.bus.Publish(ctx, events.LeadStageChanged{
		BaseEvent:     events.NewBaseEvent(),
		LeadID:        id,
		PreviousStage: string(current.Stage),
		NewStage:      string(stage),
		Trigger:       "manual",
	})
	return nil
}

// Claim assigns the lead to the consultant; first write wins. A lost race
// surfaces as a conflict so the UI can tell the consultant who was late.
func (s *Service) Claim(ctx context.Context, id, userID int64, userName string) (repository.Lead, error) {
	claimed, err := s.repo.Claim(ctx, id, userID)
	if err != nil {
		return repository.Lead{}, err
	}
	if !claimed {
		return repository.Lead{}, apperr.Conflict("lead already claimed by another consultant")
	}

	s.bus.Publish(ctx, events.LeadClaimed{
		BaseEvent:    events.NewBaseEvent(),
		LeadID:       id,
		ConsultantID: userID,
		Consultant:   userName,
	})

	return s.repo.GetByID(ctx, id)
}

// PauseAI suspends AI assistance on the lead's conversation.
func (s *Service) PauseAI(ctx context.Context, id int64) error {
	return s.repo.SetAIMode(ctx, id, AIModePaused)
}

// ResumeAI re-enables AI assistance on the lead's conversation.
func (s *Service) ResumeAI(ctx context.Context, id int64) error {
	return s.repo.SetAIMode(ctx, id, AIModeActive)
}

// Archive soft-deletes a lead.
func (s *Service) Archive(ctx context.Context, id int64) error {
	return s.repo.Archive(ctx, id)
}
