// Package service implements the quarantine workflows: roster ingest with
// funnel matching, listing with pruning of entries that meanwhile entered the
// funnel or turned active, and removal.
package service

import (
	"context"
	"time"

	"tuttscrm_backend/internal/leads/domain"
	leadsrepo "tuttscrm_backend/internal/leads/repository"
	"tuttscrm_backend/internal/quarantine/repository"
	"tuttscrm_backend/internal/tutts"
	"tuttscrm_backend/platform/logger"
	"tuttscrm_backend/platform/phone"
)

const defaultVerifyLimit = 10

// LeadIndex exposes the funnel operations the quarantine needs: a phone
// projection over the active stages and roster enrichment of matched leads.
type LeadIndex interface {
	ListPhoneIndex(ctx context.Context, stages []domain.Stage) ([]leadsrepo.PhoneIndexEntry, error)
	UpdateRosterInfo(ctx context.Context, id int64, info leadsrepo.RosterInfo) error
}

// Oracle checks a phone against the professional registry.
type Oracle interface {
	Check(ctx context.Context, rawPhone string) (tutts.Status, error)
}

// Service implements quarantine business logic.
type Service struct {
	repo   repository.Repository
	leads  LeadIndex
	oracle Oracle
	log    *logger.Logger
}

// New creates a new quarantine service.
func New(repo repository.Repository, leads LeadIndex, oracle Oracle, log *logger.Logger) *Service {
	return &Service{repo: repo, leads: leads, oracle: oracle, log: log}
}

// IngestRow is one uploaded roster entry.
type IngestRow struct {
	Code         string
	Name         string
	Phone        string
	Region       string
	RegisteredAt *time.Time
}

// IngestSummary reports how an uploaded batch was absorbed.
type IngestSummary struct {
	Received   int `json:"received"`
	Inserted   int `json:"inserted"`
	Duplicates int `json:"duplicates"`
	Enriched   int `json:"enriched"`
	Invalid    int `json:"invalid"`
}

// ListOptions control pruning behavior on listing.
type ListOptions struct {
	VerifyOracle bool
	VerifyLimit  int
}

// ListResult is the pruned quarantine with pruning counters.
type ListResult struct {
	Entries      []repository.QuarantineLead
	PrunedFunnel int
	PrunedActive int
}

// Ingest absorbs an uploaded roster batch. Rows whose phone matches a lead
// already working the funnel (new or qualified) enrich that lead instead of
// entering quarantine; the rest are inserted keyed by normalized phone.
func (s *Service) Ingest(ctx context.Context, rows []IngestRow, uploadedBy int64) (IngestSummary, error) {
	summary := IngestSummary{Received: len(rows)}

	index, err := s.phoneIndex(ctx, domain.StageNew, domain.StageQualified)
	if err != nil {
		return IngestSummary{}, err
	}

	for _, row := range rows {
		normalized := phone.Normalize(row.Phone)
		if normalized == "" {
			summary.Invalid++
			continue
		}

		if entry, ok := matchIndex(index, normalized); ok {
			if err := s.enrichLead(ctx, entry, row, normalized); err != nil {
				s.log.LeadError("quarantine_enrich", entry.ID, err)
			} else {
				summary.Enriched++
			}
			continue
		}

		inserted, err := s.repo.Upsert(ctx, upsertParams(row, normalized, uploadedBy))
		if err != nil {
			return IngestSummary{}, err
		}
		if inserted {
			summary.Inserted++
		} else {
			summary.Duplicates++
		}
	}

	s.log.Info("quarantine batch ingested",
		"received", summary.Received,
		"inserted", summary.Inserted,
		"duplicates", summary.Duplicates,
		"enriched", summary.Enriched,
		"invalid", summary.Invalid,
	)
	return summary, nil
}

// List returns the quarantine after pruning. Entries whose phone meanwhile
// appeared in the funnel (any live stage) are removed; with VerifyOracle a
// bounded batch is checked against the registry and active entries removed.
func (s *Service) List(ctx context.Context, opts ListOptions) (ListResult, error) {
	entries, err := s.repo.ListAll(ctx)
	if err != nil {
		return ListResult{}, err
	}

	index, err := s.phoneIndex(ctx, domain.StageNew, domain.StageQualified, domain.StageActivated)
	if err != nil {
		return ListResult{}, err
	}

	var result ListResult
	var inFunnel []int64
	kept := entries[:0]
	for _, entry := range entries {
		if _, ok := matchIndex(index, entry.PhoneNormalized); ok {
			inFunnel = append(inFunnel, entry.ID)
			continue
		}
		kept = append(kept, entry)
	}
	if len(inFunnel) > 0 {
		if err := s.repo.DeleteByIDs(ctx, inFunnel); err != nil {
			return ListResult{}, err
		}
		result.PrunedFunnel = len(inFunnel)
	}

	if opts.VerifyOracle {
		kept, result.PrunedActive, err = s.pruneActive(ctx, kept, opts.VerifyLimit)
		if err != nil {
			return ListResult{}, err
		}
	}

	result.Entries = kept
	return result, nil
}

// Delete removes a single quarantine entry.
func (s *Service) Delete(ctx context.Context, id int64) error {
	return s.repo.DeleteOne(ctx, id)
}

// Clear empties the quarantine and returns the number of removed entries.
func (s *Service) Clear(ctx context.Context) (int64, error) {
	return s.repo.DeleteAll(ctx)
}

// pruneActive checks up to limit entries against the registry and removes
// those that turned active. Check failures leave the entry in place.
func (s *Service) pruneActive(ctx context.Context, entries []repository.QuarantineLead, limit int) ([]repository.QuarantineLead, int, error) {
	if limit <= 0 {
		limit = defaultVerifyLimit
	}

	var active []int64
	checked := 0
	for _, entry := range entries {
		if checked >= limit {
			break
		}
		checked++

		status, err := s.oracle.Check(ctx, entry.PhoneNormalized)
		if err != nil {
			return nil, 0, err
		}
		if status.Err != "" {
			s.log.Warn("quarantine registry check failed",
				"quarantineId", entry.ID, "error", status.Err)
			continue
		}
		if status.Found && status.Active {
			active = append(active, entry.ID)
		}
	}

	if len(active) == 0 {
		return entries, 0, nil
	}
	if err := s.repo.DeleteByIDs(ctx, active); err != nil {
		return nil, 0, err
	}

	activeSet := make(map[int64]struct{}, len(active))
	for _, id := range active {
		activeSet[id] = struct{}{}
	}
	kept := entries[:0]
	for _, entry := range entries {
		if _, ok := activeSet[entry.ID]; ok {
			continue
		}
		kept = append(kept, entry)
	}
	return kept, len(active), nil
}

// enrichLead fills roster fields the matched lead is still missing.
func (s *Service) enrichLead(ctx context.Context, entry leadsrepo.PhoneIndexEntry, row IngestRow, normalized string) error {
	var info leadsrepo.RosterInfo
	if entry.DisplayName == nil && row.Name != "" {
		name := row.Name
		info.DisplayName = &name
	}
	if entry.ProfessionalCode == nil && row.Code != "" {
		code := row.Code
		info.ProfessionalCode = &code
	}
	if entry.Region == nil {
		if region := effectiveRegion(row.Region, normalized); region != "" {
			info.Region = &region
		}
	}
	if info.DisplayName == nil && info.ProfessionalCode == nil && info.Region == nil {
		return nil
	}
	return s.leads.UpdateRosterInfo(ctx, entry.ID, info)
}

// phoneIndex loads the funnel phone projection and expands every lead phone
// into its dialing variants.
func (s *Service) phoneIndex(ctx context.Context, stages ...domain.Stage) (map[string]leadsrepo.PhoneIndexEntry, error) {
	leads, err := s.leads.ListPhoneIndex(ctx, stages)
	if err != nil {
		return nil, err
	}

	index := make(map[string]leadsrepo.PhoneIndexEntry, len(leads)*2)
	for _, lead := range leads {
		for _, variant := range phone.Variants(lead.Phone) {
			if _, taken := index[variant]; !taken {
				index[variant] = lead
			}
		}
	}
	return index, nil
}

func matchIndex(index map[string]leadsrepo.PhoneIndexEntry, normalized string) (leadsrepo.PhoneIndexEntry, bool) {
	for _, variant := range phone.Variants(normalized) {
		if entry, ok := index[variant]; ok {
			return entry, true
		}
	}
	return leadsrepo.PhoneIndexEntry{}, false
}

func upsertParams(row IngestRow, normalized string, uploadedBy int64) repository.UpsertParams {
	params := repository.UpsertParams{
		Phone:           row.Phone,
		PhoneNormalized: normalized,
		RegisteredAt:    row.RegisteredAt,
	}
	if row.Code != "" {
		code := row.Code
		params.ProfessionalCode = &code
	}
	if row.Name != "" {
		name := row.Name
		params.Name = &name
	}
	if region := effectiveRegion(row.Region, normalized); region != "" {
		params.Region = &region
	}
	if uploadedBy > 0 {
		params.UploadedBy = &uploadedBy
	}
	return params
}

// effectiveRegion prefers the uploaded region, falling back to the area-code
// table.
func effectiveRegion(uploaded, normalized string) string {
	if uploaded != "" {
		return uploaded
	}
	return phone.RegionByAreaCode(normalized)
}
