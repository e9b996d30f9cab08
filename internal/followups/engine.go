package followups

import (
	"context"
	"time"

	"tuttscrm_backend/internal/events"
	"tuttscrm_backend/internal/followups/repository"
	"tuttscrm_backend/internal/leads/domain"
	"tuttscrm_backend/platform/apperr"
	"tuttscrm_backend/platform/logger"
)

// Decay thresholds, in days.
const (
	// expireAfterDays kills a lead whose pending follow-up went unanswered.
	expireAfterDays = 2
	// stalledAfterDays schedules a follow-up for a lead with no movement.
	stalledAfterDays = 3
	// postCompletionDays re-engages a lead that didn't convert after a
	// completed follow-up.
	postCompletionDays = 5
)

// Follow-up reasons, as shown to consultants.
const (
	ReasonNew       = "Formalizar cadastro no aplicativo"
	ReasonQualified = "Formalizar ativação"
)

// LeadStageWriter is the slice of the leads store the engine needs.
type LeadStageWriter interface {
	SetStage(ctx context.Context, id int64, stage domain.Stage) error
}

// EngineSummary reports what one automation pass did.
type EngineSummary struct {
	Created int `json:"created"`
	Killed  int `json:"killed"`
	Errors  int `json:"errors"`
}

// Engine runs the follow-up decay rules over the active funnel. One pass:
// expire overdue follow-ups into dead leads, then schedule follow-ups for
// stalled leads and for leads that went quiet after a completed follow-up.
type Engine struct {
	repo  repository.Repository
	leads LeadStageWriter
	bus   events.Bus
	log   *logger.Logger
}

// NewEngine creates the follow-up automation engine.
func NewEngine(repo repository.Repository, leads LeadStageWriter, bus events.Bus, log *logger.Logger) *Engine {
	return &Engine{repo: repo, leads: leads, bus: bus, log: log}
}

// Run executes one automation pass. The reference date is injected so the
// rules are deterministic under test; callers pass time.Now().
func (e *Engine) Run(ctx context.Context, today time.Time) (EngineSummary, error) {
	var summary EngineSummary

	candidates, err := e.repo.SelectAutomationCandidates(ctx)
	if err != nil {
		return summary, err
	}

	for _, candidate := range candidates {
		if ctx.Err() != nil {
			return summary, ctx.Err()
		}
		if err := e.processLead(ctx, candidate, today, &summary); err != nil {
			summary.Errors++
			e.log.Error("follow-up automation failed for lead", "leadId", candidate.LeadID, "error", err)
		}
	}

	e.log.Info("follow-up automation pass complete",
		"created", summary.Created, "killed", summary.Killed, "errors", summary.Errors)
	return summary, nil
}

func (e *Engine) processLead(ctx context.Context, candidate repository.AutomationCandidate, today time.Time, summary *EngineSummary) error {
	pending, err := e.repo.PendingByLead(ctx, candidate.LeadID)
	if err != nil && apperr.GetKind(err) != apperr.KindNotFound {
		return err
	}

	if err == nil {
		// A pending follow-up ignored past the expiry window kills the lead.
		if daysBetween(pending.ScheduledDate, today) >= expireAfterDays {
			return e.killLead(ctx, candidate, pending.ID, summary)
		}
		// Pending and not yet expired: nothing to do.
		return nil
	}

	reason := e.creationReason(ctx, candidate, today)
	if reason == "" {
		return nil
	}

	// Cancel-then-create, same as the manual path: a pending follow-up
	// slipping in between the check above and the insert would otherwise
	// trip the one-pending constraint.
	if _, err := e.repo.CancelPendingByLead(ctx, candidate.LeadID); err != nil {
		return err
	}

	maxSeq, err := e.repo.MaxSequence(ctx, candidate.LeadID)
	if err != nil {
		return err
	}

	created, err := e.repo.Create(ctx, repository.CreateParams{
		LeadID:        candidate.LeadID,
		ScheduledDate: dateOnly(today).AddDate(0, 0, 1),
		Reason:        reason,
		Type:          repository.TypeAutomatic,
		Sequence:      maxSeq + 1,
	})
	if err != nil {
		return err
	}

	summary.Created++
	e.bus.Publish(ctx, events.FollowUpScheduled{
		BaseEvent:  events.NewBaseEvent(),
		FollowUpID: created.ID,
		LeadID:     candidate.LeadID,
		Reason:     reason,
		Sequence:   created.Sequence,
	})
	return nil
}

// creationReason decides whether the lead needs a follow-up and with which
// reason. Empty means no follow-up.
func (e *Engine) creationReason(ctx context.Context, candidate repository.AutomationCandidate, today time.Time) string {
	stalledDays := daysBetween(candidate.UpdatedAt, today)

	if candidate.Stage == domain.StageNew && stalledDays >= stalledAfterDays {
		return ReasonNew
	}
	if candidate.Stage == domain.StageQualified && stalledDays >= stalledAfterDays {
		return ReasonQualified
	}

	lastCompleted, err := e.repo.LastCompletedByLead(ctx, candidate.LeadID)
	if err != nil || lastCompleted.CompletedAt == nil {
		return ""
	}
	if daysBetween(*lastCompleted.CompletedAt, today) >= postCompletionDays {
		if candidate.Stage == domain.StageNew {
			return ReasonNew
		}
		return ReasonQualified
	}
	return ""
}

func (e *Engine) killLead(ctx context.Context, candidate repository.AutomationCandidate, pendingID int64, summary *EngineSummary) error {
	if err := e.leads.SetStage(ctx, candidate.LeadID, domain.StageDead); err != nil {
		return err
	}
	if err := e.repo.Cancel(ctx, pendingID); err != nil {
		return err
	}

	summary.Killed++
	e.bus.Publish(ctx, events.LeadStageChanged{
		BaseEvent:     events.NewBaseEvent(),
		LeadID:        candidate.LeadID,
		PreviousStage: string(candidate.Stage),
		NewStage:      string(domain.StageDead),
		Trigger:       "followup_engine",
	})
	return nil
}

// daysBetween counts whole calendar days from a to b, negative when a is in
// the future.
func daysBetween(a, b time.Time) int {
	return int(dateOnly(b).Sub(dateOnly(a)).Hours() / 24)
}

func dateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
