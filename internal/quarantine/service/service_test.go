package service

import (
	"context"
	"testing"

	"tuttscrm_backend/internal/leads/domain"
	leadsrepo "tuttscrm_backend/internal/leads/repository"
	"tuttscrm_backend/internal/quarantine/repository"
	"tuttscrm_backend/internal/tutts"
	"tuttscrm_backend/platform/apperr"
	"tuttscrm_backend/platform/logger"
)

type fakeRepo struct {
	entries []repository.QuarantineLead
	nextID  int64
}

func (f *fakeRepo) ListAll(ctx context.Context) ([]repository.QuarantineLead, error) {
	out := make([]repository.QuarantineLead, len(f.entries))
	copy(out, f.entries)
	return out, nil
}

func (f *fakeRepo) Upsert(ctx context.Context, params repository.UpsertParams) (bool, error) {
	for _, entry := range f.entries {
		if entry.PhoneNormalized == params.PhoneNormalized {
			return false, nil
		}
	}
	f.nextID++
	f.entries = append(f.entries, repository.QuarantineLead{
		ID:               f.nextID,
		ProfessionalCode: params.ProfessionalCode,
		Name:             params.Name,
		Phone:            params.Phone,
		PhoneNormalized:  params.PhoneNormalized,
		Region:           params.Region,
		RegisteredAt:     params.RegisteredAt,
		UploadedBy:       params.UploadedBy,
	})
	return true, nil
}

func (f *fakeRepo) DeleteByIDs(ctx context.Context, ids []int64) error {
	drop := make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		drop[id] = struct{}{}
	}
	kept := f.entries[:0]
	for _, entry := range f.entries {
		if _, ok := drop[entry.ID]; !ok {
			kept = append(kept, entry)
		}
	}
	f.entries = kept
	return nil
}

func (f *fakeRepo) DeleteOne(ctx context.Context, id int64) error {
	for i, entry := range f.entries {
		if entry.ID == id {
			f.entries = append(f.entries[:i], f.entries[i+1:]...)
			return nil
		}
	}
	return apperr.NotFound("quarantine lead not found")
}

func (f *fakeRepo) DeleteAll(ctx context.Context) (int64, error) {
	removed := int64(len(f.entries))
	f.entries = nil
	return removed, nil
}

func (f *fakeRepo) Count(ctx context.Context) (int, error) {
	return len(f.entries), nil
}

type fakeLeadIndex struct {
	leads   []leadsrepo.PhoneIndexEntry
	updates map[int64]leadsrepo.RosterInfo
}

func (f *fakeLeadIndex) ListPhoneIndex(ctx context.Context, stages []domain.Stage) ([]leadsrepo.PhoneIndexEntry, error) {
	want := make(map[domain.Stage]struct{}, len(stages))
	for _, stage := range stages {
		want[stage] = struct{}{}
	}
	var out []leadsrepo.PhoneIndexEntry
	for _, lead := range f.leads {
		if _, ok := want[lead.Stage]; ok {
			out = append(out, lead)
		}
	}
	return out, nil
}

func (f *fakeLeadIndex) UpdateRosterInfo(ctx context.Context, id int64, info leadsrepo.RosterInfo) error {
	if f.updates == nil {
		f.updates = make(map[int64]leadsrepo.RosterInfo)
	}
	f.updates[id] = info
	return nil
}

type fakeOracle struct {
	statuses map[string]tutts.Status
	calls    int
}

func (f *fakeOracle) Check(ctx context.Context, rawPhone string) (tutts.Status, error) {
	f.calls++
	return f.statuses[rawPhone], nil
}

func newService(repo *fakeRepo, leads *fakeLeadIndex, oracle *fakeOracle) *Service {
	return New(repo, leads, oracle, logger.New("development"))
}

func TestIngestEnrichesFunnelMatch(t *testing.T) {
	leads := &fakeLeadIndex{leads: []leadsrepo.PhoneIndexEntry{
		{ID: 7, Phone: "71989170372", Stage: domain.StageNew},
	}}
	repo := &fakeRepo{}
	svc := newService(repo, leads, &fakeOracle{})

	// DDI-prefixed upload of a phone the funnel stores bare.
	summary, err := svc.Ingest(context.Background(), []IngestRow{
		{Code: "123", Name: "Maria Silva", Phone: "+55 (71) 98917-0372"},
	}, 42)
	if err != nil {
		t.Fatalf("ingest: %v", err)
	}

	if summary.Enriched != 1 || summary.Inserted != 0 {
		t.Fatalf("unexpected summary: %+v", summary)
	}
	info, ok := leads.updates[7]
	if !ok {
		t.Fatalf("expected roster update on lead 7, got %v", leads.updates)
	}
	if info.DisplayName == nil || *info.DisplayName != "Maria Silva" {
		t.Fatalf("unexpected display name: %v", info.DisplayName)
	}
	if info.ProfessionalCode == nil || *info.ProfessionalCode != "123" {
		t.Fatalf("unexpected code: %v", info.ProfessionalCode)
	}
	if info.Region == nil || *info.Region != "SALVADOR" {
		t.Fatalf("region should derive from area code, got %v", info.Region)
	}
	if len(repo.entries) != 0 {
		t.Fatalf("matched row must not enter quarantine, got %v", repo.entries)
	}
}

func TestIngestDoesNotOverwriteKnownFields(t *testing.T) {
	name := "Já Conhecida"
	leads := &fakeLeadIndex{leads: []leadsrepo.PhoneIndexEntry{
		{ID: 3, Phone: "85985937856", Stage: domain.StageQualified, DisplayName: &name},
	}}
	svc := newService(&fakeRepo{}, leads, &fakeOracle{})

	// Legacy 8-digit dialing of a funnel phone stored with the ninth digit.
	summary, err := svc.Ingest(context.Background(), []IngestRow{
		{Code: "900", Name: "Outro Nome", Phone: "8585937856"},
	}, 42)
	if err != nil {
		t.Fatalf("ingest: %v", err)
	}
	if summary.Enriched != 1 {
		t.Fatalf("unexpected summary: %+v", summary)
	}

	info := leads.updates[3]
	if info.DisplayName != nil {
		t.Fatalf("known display name must not be overwritten, got %v", *info.DisplayName)
	}
	if info.ProfessionalCode == nil || *info.ProfessionalCode != "900" {
		t.Fatalf("missing code should be filled, got %v", info.ProfessionalCode)
	}
}

func TestIngestInsertsAndDeduplicates(t *testing.T) {
	repo := &fakeRepo{}
	svc := newService(repo, &fakeLeadIndex{}, &fakeOracle{})

	summary, err := svc.Ingest(context.Background(), []IngestRow{
		{Name: "Ana", Phone: "(71) 98888-7777"},
		{Name: "Ana de novo", Phone: "5571988887777"},
		{Name: "Sem telefone", Phone: ""},
	}, 42)
	if err != nil {
		t.Fatalf("ingest: %v", err)
	}

	if summary.Inserted != 1 || summary.Duplicates != 1 || summary.Invalid != 1 {
		t.Fatalf("unexpected summary: %+v", summary)
	}
	if len(repo.entries) != 1 {
		t.Fatalf("expected 1 quarantine entry, got %d", len(repo.entries))
	}
	entry := repo.entries[0]
	if entry.PhoneNormalized != "71988887777" {
		t.Fatalf("unexpected normalized phone: %q", entry.PhoneNormalized)
	}
	if entry.Region == nil || *entry.Region != "SALVADOR" {
		t.Fatalf("region should derive from area code, got %v", entry.Region)
	}
	if entry.UploadedBy == nil || *entry.UploadedBy != 42 {
		t.Fatalf("unexpected uploader: %v", entry.UploadedBy)
	}
}

func TestListPrunesFunnelEntrants(t *testing.T) {
	repo := &fakeRepo{entries: []repository.QuarantineLead{
		{ID: 1, PhoneNormalized: "71989170372"},
		{ID: 2, PhoneNormalized: "85985937856"},
	}}
	leads := &fakeLeadIndex{leads: []leadsrepo.PhoneIndexEntry{
		{ID: 9, Phone: "5571989170372", Stage: domain.StageActivated},
	}}
	svc := newService(repo, leads, &fakeOracle{})

	result, err := svc.List(context.Background(), ListOptions{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}

	if result.PrunedFunnel != 1 {
		t.Fatalf("expected 1 funnel prune, got %d", result.PrunedFunnel)
	}
	if len(result.Entries) != 1 || result.Entries[0].ID != 2 {
		t.Fatalf("unexpected surviving entries: %v", result.Entries)
	}
	if len(repo.entries) != 1 {
		t.Fatalf("pruned entry must be deleted from store, got %v", repo.entries)
	}
}

func TestListVerifyPrunesRegistryActive(t *testing.T) {
	repo := &fakeRepo{entries: []repository.QuarantineLead{
		{ID: 1, PhoneNormalized: "71989170372"},
		{ID: 2, PhoneNormalized: "85985937856"},
		{ID: 3, PhoneNormalized: "11999998888"},
	}}
	oracle := &fakeOracle{statuses: map[string]tutts.Status{
		"71989170372": {Found: true, Active: true},
		"85985937856": {Found: true, Active: false},
	}}
	svc := newService(repo, &fakeLeadIndex{}, oracle)

	result, err := svc.List(context.Background(), ListOptions{VerifyOracle: true, VerifyLimit: 2})
	if err != nil {
		t.Fatalf("list: %v", err)
	}

	if oracle.calls != 2 {
		t.Fatalf("verify batch must respect the limit, got %d calls", oracle.calls)
	}
	if result.PrunedActive != 1 {
		t.Fatalf("expected 1 active prune, got %d", result.PrunedActive)
	}
	if len(result.Entries) != 2 {
		t.Fatalf("expected 2 surviving entries, got %v", result.Entries)
	}
	for _, entry := range result.Entries {
		if entry.ID == 1 {
			t.Fatalf("active entry must be pruned, got %v", result.Entries)
		}
	}
}

func TestListSkipsVerifyByDefault(t *testing.T) {
	repo := &fakeRepo{entries: []repository.QuarantineLead{
		{ID: 1, PhoneNormalized: "71989170372"},
	}}
	oracle := &fakeOracle{statuses: map[string]tutts.Status{
		"71989170372": {Found: true, Active: true},
	}}
	svc := newService(repo, &fakeLeadIndex{}, oracle)

	result, err := svc.List(context.Background(), ListOptions{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if oracle.calls != 0 {
		t.Fatalf("oracle must not run without verify, got %d calls", oracle.calls)
	}
	if len(result.Entries) != 1 {
		t.Fatalf("unexpected entries: %v", result.Entries)
	}
}
