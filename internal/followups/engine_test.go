package followups

import (
	"context"
	"testing"
	"time"

	"tuttscrm_backend/internal/followups/repository"
	"tuttscrm_backend/internal/leads/domain"
	"tuttscrm_backend/platform/apperr"
	"tuttscrm_backend/platform/events"
	"tuttscrm_backend/platform/logger"
)

type fakeStore struct {
	candidates  []repository.AutomationCandidate
	followups   map[int64][]repository.FollowUp
	nextID      int64
	stages      map[int64]domain.Stage
	hidePending bool
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		followups: make(map[int64][]repository.FollowUp),
		stages:    make(map[int64]domain.Stage),
		nextID:    1,
	}
}

func (f *fakeStore) addLead(id int64, stage domain.Stage, updatedAt time.Time) {
	f.candidates = append(f.candidates, repository.AutomationCandidate{
		LeadID: id, Stage: stage, UpdatedAt: updatedAt,
	})
	f.stages[id] = stage
}

func (f *fakeStore) GetByID(ctx context.Context, id int64) (repository.FollowUp, error) {
	for _, list := range f.followups {
		for _, fu := range list {
			if fu.ID == id {
				return fu, nil
			}
		}
	}
	return repository.FollowUp{}, apperr.NotFound("follow-up not found")
}

func (f *fakeStore) ListByLead(ctx context.Context, leadID int64) ([]repository.FollowUp, error) {
	return f.followups[leadID], nil
}

func (f *fakeStore) List(ctx context.Context, status string) ([]repository.FollowUpWithLead, error) {
	return nil, nil
}

func (f *fakeStore) Create(ctx context.Context, params repository.CreateParams) (repository.FollowUp, error) {
	for _, fu := range f.followups[params.LeadID] {
		if fu.Status == repository.StatusPending {
			return repository.FollowUp{}, apperr.Conflict("lead already has a pending follow-up")
		}
	}
	fu := repository.FollowUp{
		ID:            f.nextID,
		LeadID:        params.LeadID,
		ScheduledDate: params.ScheduledDate,
		Reason:        params.Reason,
		Status:        repository.StatusPending,
		Type:          params.Type,
		Sequence:      params.Sequence,
		CreatedAt:     time.Now(),
	}
	f.nextID++
	f.followups[params.LeadID] = append(f.followups[params.LeadID], fu)
	return fu, nil
}

func (f *fakeStore) Complete(ctx context.Context, id int64, notes *string) (repository.FollowUp, error) {
	now := time.Now()
	for leadID, list := range f.followups {
		for i, fu := range list {
			if fu.ID == id && fu.Status == repository.StatusPending {
				fu.Status = repository.StatusCompleted
				fu.CompletedAt = &now
				f.followups[leadID][i] = fu
				return fu, nil
			}
		}
	}
	return repository.FollowUp{}, apperr.NotFound("pending follow-up not found")
}

func (f *fakeStore) Cancel(ctx context.Context, id int64) error {
	for leadID, list := range f.followups {
		for i, fu := range list {
			if fu.ID == id && fu.Status == repository.StatusPending {
				f.followups[leadID][i].Status = repository.StatusCancelled
				return nil
			}
		}
	}
	return apperr.NotFound("pending follow-up not found")
}

func (f *fakeStore) CancelPendingByLead(ctx context.Context, leadID int64) (int, error) {
	count := 0
	for i, fu := range f.followups[leadID] {
		if fu.Status == repository.StatusPending {
			f.followups[leadID][i].Status = repository.StatusCancelled
			count++
		}
	}
	return count, nil
}

func (f *fakeStore) PendingByLead(ctx context.Context, leadID int64) (repository.FollowUp, error) {
	if f.hidePending {
		return repository.FollowUp{}, apperr.NotFound("follow-up not found")
	}
	for _, fu := range f.followups[leadID] {
		if fu.Status == repository.StatusPending {
			return fu, nil
		}
	}
	return repository.FollowUp{}, apperr.NotFound("follow-up not found")
}

func (f *fakeStore) LastCompletedByLead(ctx context.Context, leadID int64) (repository.FollowUp, error) {
	var best *repository.FollowUp
	for i := range f.followups[leadID] {
		fu := f.followups[leadID][i]
		if fu.Status == repository.StatusCompleted && fu.CompletedAt != nil {
			if best == nil || fu.CompletedAt.After(*best.CompletedAt) {
				best = &fu
			}
		}
	}
	if best == nil {
		return repository.FollowUp{}, apperr.NotFound("follow-up not found")
	}
	return *best, nil
}

func (f *fakeStore) MaxSequence(ctx context.Context, leadID int64) (int, error) {
	max := 0
	for _, fu := range f.followups[leadID] {
		if fu.Sequence > max {
			max = fu.Sequence
		}
	}
	return max, nil
}

func (f *fakeStore) SelectAutomationCandidates(ctx context.Context) ([]repository.AutomationCandidate, error) {
	return f.candidates, nil
}

func (f *fakeStore) SetStage(ctx context.Context, id int64, stage domain.Stage) error {
	f.stages[id] = stage
	return nil
}

var _ repository.Repository = (*fakeStore)(nil)
var _ LeadStageWriter = (*fakeStore)(nil)

func newTestEngine(store *fakeStore) *Engine {
	log := logger.New("development")
	return NewEngine(store, store, events.NewInMemoryBus(log), log)
}

func day(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

func TestEngineCreatesFollowUpForStalledNewLead(t *testing.T) {
	store := newFakeStore()
	store.addLead(1, domain.StageNew, day("2026-08-27")) // 4 days stalled

	today := day("2026-08-31")
	summary, err := newTestEngine(store).Run(context.Background(), today)
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if summary.Created != 1 || summary.Killed != 0 || summary.Errors != 0 {
		t.Fatalf("unexpected summary: %+v", summary)
	}

	created := store.followups[1][0]
	if created.Reason != ReasonNew {
		t.Fatalf("unexpected reason %q", created.Reason)
	}
	if !created.ScheduledDate.Equal(day("2026-09-01")) {
		t.Fatalf("follow-up should be scheduled for tomorrow, got %v", created.ScheduledDate)
	}
	if created.Sequence != 1 {
		t.Fatalf("first follow-up should be sequence 1, got %d", created.Sequence)
	}
	if created.Type != repository.TypeAutomatic {
		t.Fatalf("engine follow-ups must be automatic, got %q", created.Type)
	}
}

func TestEngineUsesQualifiedReason(t *testing.T) {
	store := newFakeStore()
	store.addLead(7, domain.StageQualified, day("2026-08-25"))

	if _, err := newTestEngine(store).Run(context.Background(), day("2026-08-31")); err != nil {
		t.Fatalf("Run returned error: %v", err)
	}

	if got := store.followups[7][0].Reason; got != ReasonQualified {
		t.Fatalf("unexpected reason %q", got)
	}
}

func TestEngineSkipsFreshLead(t *testing.T) {
	store := newFakeStore()
	store.addLead(2, domain.StageNew, day("2026-08-30")) // 1 day stalled

	summary, err := newTestEngine(store).Run(context.Background(), day("2026-08-31"))
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if summary.Created != 0 {
		t.Fatalf("fresh lead must not get a follow-up: %+v", summary)
	}
}

func TestEngineKillsLeadWithExpiredFollowUp(t *testing.T) {
	store := newFakeStore()
	store.addLead(3, domain.StageNew, day("2026-08-20"))
	store.followups[3] = []repository.FollowUp{{
		ID: 10, LeadID: 3, Status: repository.StatusPending,
		ScheduledDate: day("2026-08-28"), Sequence: 1,
	}}

	summary, err := newTestEngine(store).Run(context.Background(), day("2026-08-31"))
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if summary.Killed != 1 || summary.Created != 0 {
		t.Fatalf("unexpected summary: %+v", summary)
	}
	if store.stages[3] != domain.StageDead {
		t.Fatalf("lead should be dead, got %q", store.stages[3])
	}
	if store.followups[3][0].Status != repository.StatusCancelled {
		t.Fatalf("expired follow-up should be cancelled, got %q", store.followups[3][0].Status)
	}
}

func TestEngineLeavesRecentPendingAlone(t *testing.T) {
	store := newFakeStore()
	store.addLead(4, domain.StageNew, day("2026-08-20"))
	store.followups[4] = []repository.FollowUp{{
		ID: 11, LeadID: 4, Status: repository.StatusPending,
		ScheduledDate: day("2026-08-30"), Sequence: 1,
	}}

	summary, err := newTestEngine(store).Run(context.Background(), day("2026-08-31"))
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if summary.Killed != 0 || summary.Created != 0 {
		t.Fatalf("one-day-late pending follow-up must be left alone: %+v", summary)
	}
	if store.stages[4] != domain.StageNew {
		t.Fatalf("lead stage must not change, got %q", store.stages[4])
	}
}

func TestEngineReengagesAfterCompletedFollowUp(t *testing.T) {
	store := newFakeStore()
	// Updated recently, so the stalled rule does not fire; the completed
	// follow-up is old enough for the re-engagement rule.
	store.addLead(5, domain.StageQualified, day("2026-08-30"))
	completedAt := day("2026-08-24")
	store.followups[5] = []repository.FollowUp{{
		ID: 12, LeadID: 5, Status: repository.StatusCompleted,
		ScheduledDate: day("2026-08-23"), CompletedAt: &completedAt, Sequence: 3,
	}}

	summary, err := newTestEngine(store).Run(context.Background(), day("2026-08-31"))
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if summary.Created != 1 {
		t.Fatalf("expected re-engagement follow-up: %+v", summary)
	}

	var created repository.FollowUp
	for _, fu := range store.followups[5] {
		if fu.Status == repository.StatusPending {
			created = fu
		}
	}
	if created.ID == 0 {
		t.Fatalf("no pending follow-up created")
	}
	if created.Sequence != 4 {
		t.Fatalf("sequence should continue from history, got %d", created.Sequence)
	}
	if created.Reason != ReasonQualified {
		t.Fatalf("unexpected reason %q", created.Reason)
	}
}

func TestEngineCancelsStrayPendingBeforeCreating(t *testing.T) {
	// A pending follow-up created between the pending check and the insert
	// must be superseded, not trip the one-pending constraint.
	store := newFakeStore()
	store.addLead(6, domain.StageNew, day("2026-08-25"))
	store.followups[6] = []repository.FollowUp{{
		ID: 13, LeadID: 6, Status: repository.StatusPending,
		ScheduledDate: day("2026-08-31"), Sequence: 1,
	}}
	store.hidePending = true

	summary, err := newTestEngine(store).Run(context.Background(), day("2026-08-31"))
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if summary.Created != 1 || summary.Errors != 0 {
		t.Fatalf("stray pending must be superseded: %+v", summary)
	}

	if store.followups[6][0].Status != repository.StatusCancelled {
		t.Fatalf("stray pending should be cancelled, got %q", store.followups[6][0].Status)
	}
	if created := store.followups[6][1]; created.Status != repository.StatusPending || created.Sequence != 2 {
		t.Fatalf("unexpected replacement follow-up: %+v", created)
	}
}

func TestDaysBetween(t *testing.T) {
	if got := daysBetween(day("2026-08-28"), day("2026-08-31")); got != 3 {
		t.Fatalf("daysBetween = %d, want 3", got)
	}
	if got := daysBetween(day("2026-09-01"), day("2026-08-31")); got != -1 {
		t.Fatalf("daysBetween future = %d, want -1", got)
	}
}
