// Package events provides domain event definitions for decoupled,
// event-driven communication between modules.
// Infrastructure (Bus, Handler) is in platform/events.
package events

import (
	"tuttscrm_backend/platform/events"
)

// Re-export platform types for convenience
type (
	Event       = events.Event
	Bus         = events.Bus
	Handler     = events.Handler
	HandlerFunc = events.HandlerFunc
	BaseEvent   = events.BaseEvent
)

// Re-export platform functions
var (
	NewBaseEvent   = events.NewBaseEvent
	NewInMemoryBus = events.NewInMemoryBus
)

// =============================================================================
// Leads Domain Events
// =============================================================================

// LeadCreated is published when a new lead enters the funnel.
type LeadCreated struct {
	BaseEvent
	LeadID int64  `json:"leadId"`
	Phone  string `json:"phone"`
	Stage  string `json:"stage"`
	Source string `json:"source,omitempty"`
}

func (e LeadCreated) EventName() string { return "leads.created" }

// LeadStageChanged is published whenever a lead transitions between funnel
// stages, including automated transitions performed by reconciliation.
type LeadStageChanged struct {
	BaseEvent
	LeadID        int64  `json:"leadId"`
	PreviousStage string `json:"previousStage"`
	NewStage      string `json:"newStage"`
	Trigger       string `json:"trigger"` // "manual", "enrichment", "followup_engine"
}

func (e LeadStageChanged) EventName() string { return "leads.stage.changed" }

// LeadClaimed is published when a consultant takes ownership of a lead.
type LeadClaimed struct {
	BaseEvent
	LeadID       int64  `json:"leadId"`
	ConsultantID int64  `json:"consultantId"`
	Consultant   string `json:"consultant"`
}

func (e LeadClaimed) EventName() string { return "leads.claimed" }

// LeadResurrected is published when enrichment finds registry activity on a
// lead that was previously marked dead.
type LeadResurrected struct {
	BaseEvent
	LeadID   int64  `json:"leadId"`
	Phone    string `json:"phone"`
	NewStage string `json:"newStage"`
}

func (e LeadResurrected) EventName() string { return "leads.resurrected" }

// LeadEnrichmentRequested is published when a single lead should be checked
// against the registry outside the batch cycle (e.g., right after creation).
type LeadEnrichmentRequested struct {
	BaseEvent
	LeadID int64  `json:"leadId"`
	Phone  string `json:"phone"`
}

func (e LeadEnrichmentRequested) EventName() string { return "leads.enrichment.requested" }

// =============================================================================
// Follow-up Domain Events
// =============================================================================

// FollowUpScheduled is published when the engine or an operator schedules a
// new follow-up for a lead.
type FollowUpScheduled struct {
	BaseEvent
	FollowUpID int64  `json:"followUpId"`
	LeadID     int64  `json:"leadId"`
	Reason     string `json:"reason"`
	Sequence   int    `json:"sequence"`
}

func (e FollowUpScheduled) EventName() string { return "followups.scheduled" }
