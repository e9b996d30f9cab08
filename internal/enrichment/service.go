// Package enrichment implements the reconciliation cycle that keeps the CRM
// funnel aligned with the professional registry: spreadsheet enrichment,
// registry status checks and the follow-up decay pass.
package enrichment

import (
	"context"
	"time"

	"tuttscrm_backend/internal/events"
	"tuttscrm_backend/internal/followups"
	"tuttscrm_backend/internal/leads/domain"
	leadsrepo "tuttscrm_backend/internal/leads/repository"
	"tuttscrm_backend/internal/snapshot"
	"tuttscrm_backend/internal/tutts"
	"tuttscrm_backend/platform/config"
	"tuttscrm_backend/platform/logger"
	"tuttscrm_backend/platform/phone"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

// LeadStore is the slice of the leads repository the engine uses.
type LeadStore interface {
	GetByID(ctx context.Context, id int64) (leadsrepo.Lead, error)
	SelectNeverEnriched(ctx context.Context, limit int) ([]leadsrepo.Lead, error)
	SelectCooldownExpired(ctx context.Context, cutoff time.Time, limit int) ([]leadsrepo.Lead, error)
	ApplyEnrichment(ctx context.Context, update leadsrepo.EnrichmentUpdate) error
	StampEnriched(ctx context.Context, ids []int64) error
	UpdateRosterInfo(ctx context.Context, id int64, info leadsrepo.RosterInfo) error
	Update(ctx context.Context, params leadsrepo.UpdateParams) (leadsrepo.Lead, error)
	EnrichmentStatus(ctx context.Context, cutoff time.Time) (leadsrepo.EnrichmentStatus, error)
}

// SnapshotSource loads the spreadsheet mirrors of the registry.
type SnapshotSource interface {
	LoadRegistry(ctx context.Context) map[string]snapshot.RegistryRow
	LoadTrafficTags(ctx context.Context) map[string]string
}

// Oracle checks a phone against the registry's status endpoint.
type Oracle interface {
	Check(ctx context.Context, rawPhone string) (tutts.Status, error)
}

// FollowUpAutomation runs the follow-up decay pass.
type FollowUpAutomation interface {
	Run(ctx context.Context, today time.Time) (followups.EngineSummary, error)
}

// StepSummary counts the outcome of one engine step.
type StepSummary struct {
	Processed int `json:"processed"`
	Updated   int `json:"updated"`
	Errors    int `json:"errors"`
}

// RunSummary is the full outcome of a reconciliation run. It is always
// populated, even when individual steps degrade.
type RunSummary struct {
	Mode        string                  `json:"mode"`
	Spreadsheet StepSummary             `json:"spreadsheet"`
	Oracle      StepSummary             `json:"oracle"`
	Resurrected int                     `json:"resurrected"`
	FollowUps   followups.EngineSummary `json:"followups"`
	DurationMS  int64                   `json:"durationMs"`
}

// Service orchestrates the reconciliation cycle.
type Service struct {
	leads      LeadStore
	snapshots  SnapshotSource
	oracle     Oracle
	automation FollowUpAutomation
	bus        events.Bus
	cfg        config.EnrichmentConfig
	log        *logger.Logger
}

// New creates the reconciliation engine.
func New(leads LeadStore, snapshots SnapshotSource, oracle Oracle, automation FollowUpAutomation, bus events.Bus, cfg config.EnrichmentConfig, log *logger.Logger) *Service {
	return &Service{
		leads:      leads,
		snapshots:  snapshots,
		oracle:     oracle,
		automation: automation,
		bus:        bus,
		cfg:        cfg,
		log:        log,
	}
}

// Run executes one batch reconciliation cycle: select stale leads, enrich
// from the spreadsheets, check the registry with paced calls, stamp every
// selected lead and finish with the follow-up decay pass.
func (s *Service) Run(ctx context.Context) (RunSummary, error) {
	start := time.Now()
	summary := RunSummary{Mode: "cron"}

	leads, err := s.selectLeads(ctx)
	if err != nil {
		return summary, err
	}
	if len(leads) == 0 {
		summary.DurationMS = time.Since(start).Milliseconds()
		s.log.Info("reconciliation run: nothing to do")
		return summary, nil
	}

	s.log.Info("reconciliation run started", "leads", len(leads))

	registry, tags := s.loadSnapshots(ctx)
	s.enrichFromSpreadsheet(ctx, leads, registry, tags, &summary)
	s.checkOracle(ctx, leads, &summary)

	ids := make([]int64, 0, len(leads))
	for _, lead := range leads {
		ids = append(ids, lead.ID)
	}
	if err := s.leads.StampEnriched(ctx, ids); err != nil {
		s.log.Error("failed to stamp enriched leads", "error", err)
	}

	followupSummary, err := s.automation.Run(ctx, time.Now())
	if err != nil {
		s.log.Error("follow-up automation pass failed", "error", err)
		summary.FollowUps.Errors++
	} else {
		summary.FollowUps = followupSummary
	}

	summary.DurationMS = time.Since(start).Milliseconds()
	s.log.Info("reconciliation run complete",
		"spreadsheetUpdated", summary.Spreadsheet.Updated,
		"oracleUpdated", summary.Oracle.Updated,
		"resurrected", summary.Resurrected,
		"followupsCreated", summary.FollowUps.Created,
		"followupsKilled", summary.FollowUps.Killed,
		"durationMs", summary.DurationMS)
	return summary, nil
}

// RunForLead reconciles a single lead right away (event mode). The follow-up
// pass is skipped; it only makes sense over the whole funnel.
func (s *Service) RunForLead(ctx context.Context, leadID int64) (RunSummary, error) {
	start := time.Now()
	summary := RunSummary{Mode: "event"}

	lead, err := s.leads.GetByID(ctx, leadID)
	if err != nil {
		return summary, err
	}

	leads := []leadsrepo.Lead{lead}
	registry, tags := s.loadSnapshots(ctx)
	s.enrichFromSpreadsheet(ctx, leads, registry, tags, &summary)
	s.checkOracle(ctx, leads, &summary)

	if err := s.leads.StampEnriched(ctx, []int64{lead.ID}); err != nil {
		s.log.Error("failed to stamp enriched lead", "leadId", lead.ID, "error", err)
	}

	summary.DurationMS = time.Since(start).Milliseconds()
	return summary, nil
}

// Status reports funnel freshness against the cooldown window.
func (s *Service) Status(ctx context.Context) (leadsrepo.EnrichmentStatus, error) {
	cutoff := time.Now().Add(-s.cfg.GetEnrichmentCooldown())
	return s.leads.EnrichmentStatus(ctx, cutoff)
}

// selectLeads picks the batch: never-enriched first, then cooldown-expired,
// deduplicated by id.
func (s *Service) selectLeads(ctx context.Context) ([]leadsrepo.Lead, error) {
	quota := s.cfg.GetEnrichmentQuota()

	never, err := s.leads.SelectNeverEnriched(ctx, quota)
	if err != nil {
		return nil, err
	}

	selected := never
	if remaining := quota - len(never); remaining > 0 {
		cutoff := time.Now().Add(-s.cfg.GetEnrichmentCooldown())
		expired, err := s.leads.SelectCooldownExpired(ctx, cutoff, remaining)
		if err != nil {
			return nil, err
		}
		selected = append(selected, expired...)
	}

	seen := make(map[int64]struct{}, len(selected))
	deduped := selected[:0]
	for _, lead := range selected {
		if _, dup := seen[lead.ID]; dup {
			continue
		}
		seen[lead.ID] = struct{}{}
		deduped = append(deduped, lead)
	}
	return deduped, nil
}

// loadSnapshots fetches both sheets concurrently. Each is a degraded source
// that yields an empty map on failure, so this never errors.
func (s *Service) loadSnapshots(ctx context.Context) (map[string]snapshot.RegistryRow, map[string]string) {
	var registry map[string]snapshot.RegistryRow
	var tags map[string]string

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		registry = s.snapshots.LoadRegistry(gctx)
		return nil
	})
	g.Go(func() error {
		tags = s.snapshots.LoadTrafficTags(gctx)
		return nil
	})
	_ = g.Wait()

	return registry, tags
}

func (s *Service) enrichFromSpreadsheet(ctx context.Context, leads []leadsrepo.Lead, registry map[string]snapshot.RegistryRow, tags map[string]string, summary *RunSummary) {
	for i := range leads {
		lead := &leads[i]
		if lead.Phone == nil || *lead.Phone == "" {
			continue
		}
		summary.Spreadsheet.Processed++

		variants := phone.Variants(*lead.Phone)

		updated := false
		for _, variant := range variants {
			row, ok := registry[variant]
			if !ok {
				continue
			}

			info := leadsrepo.RosterInfo{}
			if row.Name != "" {
				info.DisplayName = &row.Name
			}
			if row.Code != "" {
				info.ProfessionalCode = &row.Code
			}
			if row.City != "" {
				info.Region = &row.City
			}
			info.ActivatedAt = row.ActivatedAt

			if err := s.leads.UpdateRosterInfo(ctx, lead.ID, info); err != nil {
				summary.Spreadsheet.Errors++
				s.log.LeadError("spreadsheet_enrich", lead.ID, err)
				break
			}
			applyRosterLocally(lead, row)
			updated = true
			break
		}

		for _, variant := range variants {
			tag, ok := tags[variant]
			if !ok {
				continue
			}
			if hasTag(lead.Tags, tag) {
				break
			}

			newTags := append(append([]string{}, lead.Tags...), tag)
			if _, err := s.leads.Update(ctx, leadsrepo.UpdateParams{ID: lead.ID, Tags: newTags}); err != nil {
				summary.Spreadsheet.Errors++
				s.log.LeadError("traffic_tag_enrich", lead.ID, err)
				break
			}
			lead.Tags = newTags
			updated = true
			break
		}

		if updated {
			summary.Spreadsheet.Updated++
		}
	}
}

func (s *Service) checkOracle(ctx context.Context, leads []leadsrepo.Lead, summary *RunSummary) {
	limiter := rate.NewLimiter(rate.Every(s.cfg.GetOracleCallDelay()), 1)
	callCap := s.cfg.GetOracleCallCap()
	checked := 0

	for i := range leads {
		lead := &leads[i]
		if lead.Phone == nil || *lead.Phone == "" || lead.Stage == domain.StageActivated {
			continue
		}
		if checked >= callCap {
			break
		}
		checked++
		summary.Oracle.Processed++

		if err := limiter.Wait(ctx); err != nil {
			return
		}

		status, err := s.oracle.Check(ctx, *lead.Phone)
		if err != nil {
			summary.Oracle.Errors++
			s.log.LeadError("oracle_check", lead.ID, err)
			continue
		}

		next := domain.ResolveStage(lead.Stage, domain.CheckResult{Found: status.Found, Active: status.Active})
		if next == lead.Stage {
			continue
		}

		resurrected := domain.IsResurrection(lead.Stage, next)
		err = s.leads.ApplyEnrichment(ctx, leadsrepo.EnrichmentUpdate{
			ID:          lead.ID,
			Stage:       next,
			Resurrected: resurrected,
		})
		if err != nil {
			summary.Oracle.Errors++
			s.log.LeadError("oracle_apply", lead.ID, err)
			continue
		}

		summary.Oracle.Updated++
		s.bus.Publish(ctx, events.LeadStageChanged{
			BaseEvent:     events.NewBaseEvent(),
			LeadID:        lead.ID,
			PreviousStage: string(lead.Stage),
			NewStage:      string(next),
			Trigger:       "enrichment",
		})
		if resurrected {
			summary.Resurrected++
			phoneValue := ""
			if lead.Phone != nil {
				phoneValue = *lead.Phone
			}
			s.bus.Publish(ctx, events.LeadResurrected{
				BaseEvent: events.NewBaseEvent(),
				LeadID:    lead.ID,
				Phone:     phoneValue,
				NewStage:  string(next),
			})
		}
		lead.Stage = next
	}
}

func applyRosterLocally(lead *leadsrepo.Lead, row snapshot.RegistryRow) {
	if row.Name != "" {
		name := row.Name
		lead.DisplayName = &name
	}
	if row.Code != "" {
		code := row.Code
		lead.ProfessionalCode = &code
	}
	if row.City != "" {
		city := row.City
		lead.Region = &city
	}
	if row.ActivatedAt != nil {
		lead.ActivatedAt = row.ActivatedAt
	}
}

func hasTag(tags []string, tag string) bool {
	for _, t := range tags {
		if t == tag {
			return true
		}
	}
	return false
}
