package reporting

import (
	"context"
	"strings"
	"time"

	leadsrepo "tuttscrm_backend/internal/leads/repository"
	"tuttscrm_backend/internal/snapshot"
	"tuttscrm_backend/platform/logger"
	"tuttscrm_backend/platform/phone"

	"golang.org/x/sync/errgroup"
)

// LeadSource provides the funnel's activation records.
type LeadSource interface {
	ListActivatedBetween(ctx context.Context, from, to time.Time) ([]leadsrepo.Lead, error)
}

// SnapshotSource provides the roster sheet.
type SnapshotSource interface {
	LoadRegistry(ctx context.Context) map[string]snapshot.RegistryRow
}

// Service assembles activation reports.
type Service struct {
	leads     LeadSource
	snapshots SnapshotSource
	log       *logger.Logger
}

// New creates a new reporting service.
func New(leads LeadSource, snapshots SnapshotSource, log *logger.Logger) *Service {
	return &Service{leads: leads, snapshots: snapshots, log: log}
}

// ReportParams bound the report window. To is inclusive; Region, when set,
// filters both sources (case-insensitive).
type ReportParams struct {
	From   time.Time
	To     time.Time
	Region string
}

// Report is the merged activation report.
type Report struct {
	Entries  []ActivatedEntry `json:"entries"`
	Total    int              `json:"total"`
	BySource map[string]int   `json:"bySource"`
	ByRegion map[string]int   `json:"byRegion"`
}

// ActivatedReport merges both sources over the window and summarizes them.
// The roster sheet degrades to empty on fetch failure, so the report never
// fails outright when only the sheet is down.
func (s *Service) ActivatedReport(ctx context.Context, params ReportParams) (Report, error) {
	var registry map[string]snapshot.RegistryRow
	var crmLeads []leadsrepo.Lead

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		registry = s.snapshots.LoadRegistry(gctx)
		return nil
	})
	g.Go(func() error {
		var err error
		crmLeads, err = s.leads.ListActivatedBetween(gctx, params.From, params.To)
		return err
	})
	if err := g.Wait(); err != nil {
		return Report{}, err
	}

	sheet := sheetEntries(registry, params)
	crm := crmEntries(crmLeads, params)
	merged := MergeActivated(sheet, crm)

	report := Report{
		Entries:  merged,
		Total:    len(merged),
		BySource: make(map[string]int),
		ByRegion: make(map[string]int),
	}
	for _, entry := range merged {
		report.BySource[entry.Source]++
		if entry.Region != "" {
			report.ByRegion[entry.Region]++
		}
	}

	s.log.Info("activation report built",
		"from", params.From.Format("2006-01-02"),
		"to", params.To.Format("2006-01-02"),
		"sheet", len(sheet),
		"crm", len(crm),
		"merged", len(merged),
	)
	return report, nil
}

func sheetEntries(registry map[string]snapshot.RegistryRow, params ReportParams) []ActivatedEntry {
	entries := make([]ActivatedEntry, 0, len(registry))
	for _, row := range registry {
		if row.ActivatedAt == nil {
			continue
		}
		if row.ActivatedAt.Before(params.From) || row.ActivatedAt.After(params.To) {
			continue
		}
		if !regionMatches(params.Region, row.City) {
			continue
		}
		entries = append(entries, ActivatedEntry{
			Code:        row.Code,
			Name:        row.Name,
			Phone:       row.Phone,
			Region:      row.City,
			ActivatedAt: row.ActivatedAt,
		})
	}
	return entries
}

func crmEntries(leads []leadsrepo.Lead, params ReportParams) []ActivatedEntry {
	entries := make([]ActivatedEntry, 0, len(leads))
	for _, lead := range leads {
		entry := ActivatedEntry{ActivatedAt: lead.ActivatedAt}
		if lead.ProfessionalCode != nil {
			entry.Code = *lead.ProfessionalCode
		}
		if lead.DisplayName != nil {
			entry.Name = *lead.DisplayName
		}
		if lead.Phone != nil {
			entry.Phone = *lead.Phone
		}
		if lead.Region != nil {
			entry.Region = *lead.Region
		} else if lead.Phone != nil {
			entry.Region = phone.RegionByAreaCode(*lead.Phone)
		}
		if !regionMatches(params.Region, entry.Region) {
			continue
		}
		entries = append(entries, entry)
	}
	return entries
}

func regionMatches(filter, region string) bool {
	if filter == "" {
		return true
	}
	return strings.EqualFold(strings.TrimSpace(filter), strings.TrimSpace(region))
}
