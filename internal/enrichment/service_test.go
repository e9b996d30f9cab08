package enrichment

import (
	"context"
	"testing"
	"time"

	"tuttscrm_backend/internal/followups"
	"tuttscrm_backend/internal/leads/domain"
	leadsrepo "tuttscrm_backend/internal/leads/repository"
	"tuttscrm_backend/internal/snapshot"
	"tuttscrm_backend/internal/tutts"
	"tuttscrm_backend/platform/apperr"
	"tuttscrm_backend/platform/events"
	"tuttscrm_backend/platform/logger"
)

type fakeLeadStore struct {
	never    []leadsrepo.Lead
	expired  []leadsrepo.Lead
	applied  []leadsrepo.EnrichmentUpdate
	roster   map[int64]leadsrepo.RosterInfo
	tags     map[int64][]string
	stamped  []int64
	status   leadsrepo.EnrichmentStatus
}

func newFakeLeadStore() *fakeLeadStore {
	return &fakeLeadStore{
		roster: make(map[int64]leadsrepo.RosterInfo),
		tags:   make(map[int64][]string),
	}
}

func (f *fakeLeadStore) GetByID(ctx context.Context, id int64) (leadsrepo.Lead, error) {
	for _, lead := range append(append([]leadsrepo.Lead{}, f.never...), f.expired...) {
		if lead.ID == id {
			return lead, nil
		}
	}
	return leadsrepo.Lead{}, apperr.NotFound("lead not found")
}

func (f *fakeLeadStore) SelectNeverEnriched(ctx context.Context, limit int) ([]leadsrepo.Lead, error) {
	if len(f.never) > limit {
		return f.never[:limit], nil
	}
	return f.never, nil
}

func (f *fakeLeadStore) SelectCooldownExpired(ctx context.Context, cutoff time.Time, limit int) ([]leadsrepo.Lead, error) {
	if len(f.expired) > limit {
		return f.expired[:limit], nil
	}
	return f.expired, nil
}

func (f *fakeLeadStore) ApplyEnrichment(ctx context.Context, update leadsrepo.EnrichmentUpdate) error {
	f.applied = append(f.applied, update)
	return nil
}

func (f *fakeLeadStore) StampEnriched(ctx context.Context, ids []int64) error {
	f.stamped = append(f.stamped, ids...)
	return nil
}

func (f *fakeLeadStore) UpdateRosterInfo(ctx context.Context, id int64, info leadsrepo.RosterInfo) error {
	f.roster[id] = info
	return nil
}

func (f *fakeLeadStore) Update(ctx context.Context, params leadsrepo.UpdateParams) (leadsrepo.Lead, error) {
	f.tags[params.ID] = params.Tags
	return leadsrepo.Lead{ID: params.ID, Tags: params.Tags}, nil
}

func (f *fakeLeadStore) EnrichmentStatus(ctx context.Context, cutoff time.Time) (leadsrepo.EnrichmentStatus, error) {
	return f.status, nil
}

type fakeSnapshots struct {
	registry map[string]snapshot.RegistryRow
	tags     map[string]string
}

func (f fakeSnapshots) LoadRegistry(ctx context.Context) map[string]snapshot.RegistryRow {
	if f.registry == nil {
		return map[string]snapshot.RegistryRow{}
	}
	return f.registry
}

func (f fakeSnapshots) LoadTrafficTags(ctx context.Context) map[string]string {
	if f.tags == nil {
		return map[string]string{}
	}
	return f.tags
}

type fakeOracle struct {
	statuses map[string]tutts.Status
	calls    int
}

func (f *fakeOracle) Check(ctx context.Context, rawPhone string) (tutts.Status, error) {
	f.calls++
	return f.statuses[rawPhone], nil
}

type fakeAutomation struct {
	summary followups.EngineSummary
	runs    int
}

func (f *fakeAutomation) Run(ctx context.Context, today time.Time) (followups.EngineSummary, error) {
	f.runs++
	return f.summary, nil
}

type fakeEnrichConfig struct {
	quota    int
	cap      int
	cooldown time.Duration
	delay    time.Duration
}

func (f fakeEnrichConfig) GetEnrichmentQuota() int              { return f.quota }
func (f fakeEnrichConfig) GetOracleCallCap() int                { return f.cap }
func (f fakeEnrichConfig) GetEnrichmentCooldown() time.Duration { return f.cooldown }
func (f fakeEnrichConfig) GetOracleCallDelay() time.Duration    { return f.delay }

func strptr(s string) *string { return &s }

func newTestService(store *fakeLeadStore, snaps fakeSnapshots, oracle *fakeOracle, automation *fakeAutomation, cfg fakeEnrichConfig) *Service {
	log := logger.New("development")
	return New(store, snaps, oracle, automation, events.NewInMemoryBus(log), cfg, log)
}

func defaultConfig() fakeEnrichConfig {
	return fakeEnrichConfig{quota: 50, cap: 50, cooldown: 30 * time.Minute, delay: time.Millisecond}
}

func TestRunPromotesActiveLead(t *testing.T) {
	store := newFakeLeadStore()
	store.never = []leadsrepo.Lead{{ID: 1, Phone: strptr("71989170372"), Stage: domain.StageNew}}
	oracle := &fakeOracle{statuses: map[string]tutts.Status{
		"71989170372": {Found: true, Active: true},
	}}
	automation := &fakeAutomation{}

	summary, err := newTestService(store, fakeSnapshots{}, oracle, automation, defaultConfig()).Run(context.Background())
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}

	if summary.Oracle.Updated != 1 {
		t.Fatalf("expected one stage update, got %+v", summary.Oracle)
	}
	if len(store.applied) != 1 || store.applied[0].Stage != domain.StageActivated {
		t.Fatalf("unexpected applied updates: %+v", store.applied)
	}
	if len(store.stamped) != 1 || store.stamped[0] != 1 {
		t.Fatalf("every selected lead must be stamped: %v", store.stamped)
	}
	if automation.runs != 1 {
		t.Fatalf("batch run must finish with the follow-up pass, got %d runs", automation.runs)
	}
}

func TestRunCountsResurrection(t *testing.T) {
	store := newFakeLeadStore()
	store.never = []leadsrepo.Lead{{ID: 9, Phone: strptr("71989170372"), Stage: domain.StageDead}}
	oracle := &fakeOracle{statuses: map[string]tutts.Status{
		"71989170372": {Found: true, Active: true},
	}}

	summary, err := newTestService(store, fakeSnapshots{}, oracle, &fakeAutomation{}, defaultConfig()).Run(context.Background())
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}

	if summary.Resurrected != 1 {
		t.Fatalf("expected a resurrection, got %+v", summary)
	}
	if len(store.applied) != 1 || !store.applied[0].Resurrected {
		t.Fatalf("resurrection must be recorded on the lead: %+v", store.applied)
	}
}

func TestRunDeadLeadFoundInactiveIsNotResurrection(t *testing.T) {
	store := newFakeLeadStore()
	store.never = []leadsrepo.Lead{{ID: 10, Phone: strptr("71989170372"), Stage: domain.StageDead}}
	oracle := &fakeOracle{statuses: map[string]tutts.Status{
		"71989170372": {Found: true, Active: false},
	}}

	summary, err := newTestService(store, fakeSnapshots{}, oracle, &fakeAutomation{}, defaultConfig()).Run(context.Background())
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}

	if len(store.applied) != 1 || store.applied[0].Stage != domain.StageQualified {
		t.Fatalf("dead lead found inactive must move to qualified: %+v", store.applied)
	}
	if store.applied[0].Resurrected {
		t.Fatalf("only dead -> activated counts as a resurrection: %+v", store.applied[0])
	}
	if summary.Resurrected != 0 {
		t.Fatalf("expected no resurrection in summary, got %+v", summary)
	}
}

func TestRunStampsLeadsWithoutChanges(t *testing.T) {
	store := newFakeLeadStore()
	store.never = []leadsrepo.Lead{{ID: 2, Phone: strptr("71989170372"), Stage: domain.StageNew}}
	oracle := &fakeOracle{} // registry miss for everything

	summary, err := newTestService(store, fakeSnapshots{}, oracle, &fakeAutomation{}, defaultConfig()).Run(context.Background())
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}

	if summary.Oracle.Updated != 0 {
		t.Fatalf("registry miss must not change the stage: %+v", summary.Oracle)
	}
	if len(store.stamped) != 1 {
		t.Fatalf("lead must be stamped even without changes: %v", store.stamped)
	}
}

func TestRunDeduplicatesSelection(t *testing.T) {
	store := newFakeLeadStore()
	lead := leadsrepo.Lead{ID: 3, Phone: strptr("71989170372"), Stage: domain.StageNew}
	store.never = []leadsrepo.Lead{lead}
	store.expired = []leadsrepo.Lead{lead}
	oracle := &fakeOracle{}

	cfg := defaultConfig()
	cfg.quota = 10
	_, err := newTestService(store, fakeSnapshots{}, oracle, &fakeAutomation{}, cfg).Run(context.Background())
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}

	if oracle.calls != 1 {
		t.Fatalf("duplicated lead must be checked once, got %d oracle calls", oracle.calls)
	}
	if len(store.stamped) != 1 {
		t.Fatalf("duplicated lead must be stamped once: %v", store.stamped)
	}
}

func TestRunRespectsOracleCap(t *testing.T) {
	store := newFakeLeadStore()
	for i := int64(1); i <= 5; i++ {
		store.never = append(store.never, leadsrepo.Lead{ID: i, Phone: strptr("71989170372"), Stage: domain.StageNew})
	}
	oracle := &fakeOracle{}

	cfg := defaultConfig()
	cfg.cap = 2
	summary, err := newTestService(store, fakeSnapshots{}, oracle, &fakeAutomation{}, cfg).Run(context.Background())
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}

	if summary.Oracle.Processed != 2 {
		t.Fatalf("oracle cap not respected: %+v", summary.Oracle)
	}
	if len(store.stamped) != 5 {
		t.Fatalf("all selected leads must be stamped regardless of the cap: %v", store.stamped)
	}
}

func TestRunSkipsActivatedLeadsAtOracle(t *testing.T) {
	store := newFakeLeadStore()
	store.never = []leadsrepo.Lead{{ID: 4, Phone: strptr("71989170372"), Stage: domain.StageActivated}}
	oracle := &fakeOracle{}

	summary, err := newTestService(store, fakeSnapshots{}, oracle, &fakeAutomation{}, defaultConfig()).Run(context.Background())
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}

	if summary.Oracle.Processed != 0 {
		t.Fatalf("activated lead must not be re-checked: %+v", summary.Oracle)
	}
}

func TestRunEnrichesActivatedLeadFromSpreadsheet(t *testing.T) {
	// Never-enriched selection is stage-agnostic: an activated lead still
	// picks up roster data and gets stamped, only the registry check skips it.
	store := newFakeLeadStore()
	store.never = []leadsrepo.Lead{{ID: 11, Phone: strptr("71989170372"), Stage: domain.StageActivated}}
	snaps := fakeSnapshots{
		registry: map[string]snapshot.RegistryRow{
			"71989170372": {Code: "456", Name: "João Souza", City: "SALVADOR"},
		},
	}
	oracle := &fakeOracle{}

	summary, err := newTestService(store, snaps, oracle, &fakeAutomation{}, defaultConfig()).Run(context.Background())
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}

	if summary.Spreadsheet.Updated != 1 {
		t.Fatalf("expected spreadsheet update for activated lead: %+v", summary.Spreadsheet)
	}
	if oracle.calls != 0 {
		t.Fatalf("activated lead must not reach the registry check, got %d calls", oracle.calls)
	}
	if len(store.stamped) != 1 || store.stamped[0] != 11 {
		t.Fatalf("activated lead must still be stamped: %v", store.stamped)
	}
}

func TestRunEnrichesFromSpreadsheet(t *testing.T) {
	store := newFakeLeadStore()
	store.never = []leadsrepo.Lead{{ID: 5, Phone: strptr("71989170372"), Stage: domain.StageNew}}

	activated := time.Date(2026, 3, 5, 0, 0, 0, 0, time.UTC)
	snaps := fakeSnapshots{
		registry: map[string]snapshot.RegistryRow{
			// Keyed by the DDI variant to prove variant matching.
			"5571989170372": {Code: "123", Name: "Maria Silva", City: "SALVADOR", ActivatedAt: &activated},
		},
		tags: map[string]string{"71989170372": "TP-03"},
	}

	summary, err := newTestService(store, snaps, &fakeOracle{}, &fakeAutomation{}, defaultConfig()).Run(context.Background())
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}

	if summary.Spreadsheet.Updated != 1 {
		t.Fatalf("expected spreadsheet update: %+v", summary.Spreadsheet)
	}

	info, ok := store.roster[5]
	if !ok {
		t.Fatalf("roster info not written")
	}
	if info.DisplayName == nil || *info.DisplayName != "Maria Silva" {
		t.Fatalf("unexpected roster info: %+v", info)
	}
	if info.Region == nil || *info.Region != "SALVADOR" {
		t.Fatalf("unexpected region: %+v", info)
	}

	if tags := store.tags[5]; len(tags) != 1 || tags[0] != "TP-03" {
		t.Fatalf("traffic tag not appended: %v", tags)
	}
}

func TestRunForLead(t *testing.T) {
	store := newFakeLeadStore()
	store.never = []leadsrepo.Lead{{ID: 6, Phone: strptr("71989170372"), Stage: domain.StageNew}}
	oracle := &fakeOracle{statuses: map[string]tutts.Status{
		"71989170372": {Found: true, Active: false},
	}}
	automation := &fakeAutomation{}

	summary, err := newTestService(store, fakeSnapshots{}, oracle, automation, defaultConfig()).RunForLead(context.Background(), 6)
	if err != nil {
		t.Fatalf("RunForLead returned error: %v", err)
	}

	if summary.Mode != "event" {
		t.Fatalf("unexpected mode %q", summary.Mode)
	}
	if len(store.applied) != 1 || store.applied[0].Stage != domain.StageQualified {
		t.Fatalf("expected qualification: %+v", store.applied)
	}
	if automation.runs != 0 {
		t.Fatalf("event mode must skip the follow-up pass")
	}
}

func TestRunWithNothingToDo(t *testing.T) {
	store := newFakeLeadStore()
	automation := &fakeAutomation{}

	summary, err := newTestService(store, fakeSnapshots{}, &fakeOracle{}, automation, defaultConfig()).Run(context.Background())
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}

	if summary.Spreadsheet.Processed != 0 || summary.Oracle.Processed != 0 {
		t.Fatalf("unexpected work done: %+v", summary)
	}
	if automation.runs != 0 {
		t.Fatalf("empty selection skips the follow-up pass")
	}
}
