// Package transport defines the HTTP request/response shapes for the
// follow-ups module.
package transport

import (
	"time"

	"tuttscrm_backend/internal/followups/repository"
)

// Situation buckets for pending follow-ups relative to today.
const (
	SituationOverdue = "overdue"
	SituationToday   = "today"
	SituationFuture  = "future"
)

// ScheduleRequest creates a manual follow-up.
type ScheduleRequest struct {
	LeadID        int64  `json:"leadId" validate:"required,gt=0"`
	ScheduledDate string `json:"scheduledDate" validate:"required,datetime=2006-01-02"`
	Reason        string `json:"reason" validate:"required,max=200"`
	Notes         string `json:"notes" validate:"omitempty,max=2000"`
}

// CompleteRequest closes a pending follow-up.
type CompleteRequest struct {
	Notes string `json:"notes" validate:"omitempty,max=2000"`
}

// FollowUpResponse is the wire representation of a follow-up.
type FollowUpResponse struct {
	ID            int64      `json:"id"`
	LeadID        int64      `json:"leadId"`
	ScheduledDate string     `json:"scheduledDate"`
	Reason        string     `json:"reason"`
	Status        string     `json:"status"`
	Type          string     `json:"type"`
	Sequence      int        `json:"sequence"`
	Notes         *string    `json:"notes"`
	Situation     string     `json:"situation,omitempty"`
	CompletedAt   *time.Time `json:"completedAt"`
	CreatedAt     time.Time  `json:"createdAt"`
}

// FollowUpWithLeadResponse adds the lead fields shown on the agenda view.
type FollowUpWithLeadResponse struct {
	FollowUpResponse
	LeadPhone       *string `json:"leadPhone"`
	LeadDisplayName *string `json:"leadDisplayName"`
	LeadStage       string  `json:"leadStage"`
}

// ListResponse is the agenda listing with situation counts.
type ListResponse struct {
	FollowUps []FollowUpWithLeadResponse `json:"followups"`
	Counts    map[string]int             `json:"counts"`
}

// ToFollowUpResponse maps a repository follow-up to its wire shape,
// computing the situation bucket for pending entries.
func ToFollowUpResponse(fu repository.FollowUp, today time.Time) FollowUpResponse {
	resp := FollowUpResponse{
		ID:            fu.ID,
		LeadID:        fu.LeadID,
		ScheduledDate: fu.ScheduledDate.Format("2006-01-02"),
		Reason:        fu.Reason,
		Status:        fu.Status,
		Type:          fu.Type,
		Sequence:      fu.Sequence,
		Notes:         fu.Notes,
		CompletedAt:   fu.CompletedAt,
		CreatedAt:     fu.CreatedAt,
	}
	if fu.Status == repository.StatusPending {
		resp.Situation = Situation(fu.ScheduledDate, today)
	}
	return resp
}

// Situation buckets a scheduled date against today.
func Situation(scheduled, today time.Time) string {
	s := scheduled.Format("2006-01-02")
	t := today.Format("2006-01-02")
	switch {
	case s < t:
		return SituationOverdue
	case s == t:
		return SituationToday
	default:
		return SituationFuture
	}
}
