// Package transport defines the HTTP request/response shapes for the leads
// module.
package transport

import (
	"time"

	"tuttscrm_backend/internal/leads/domain"
	"tuttscrm_backend/internal/leads/repository"
)

// CreateLeadRequest is the payload for creating a lead.
type CreateLeadRequest struct {
	Phone       string   `json:"phone" validate:"required,min=8,max=20"`
	DisplayName string   `json:"displayName" validate:"omitempty,max=200"`
	Region      string   `json:"region" validate:"omitempty,max=100"`
	Origin      string   `json:"origin" validate:"omitempty,max=100"`
	InitiatedBy string   `json:"initiatedBy" validate:"omitempty,oneof=lead us"`
	Tags        []string `json:"tags" validate:"omitempty,dive,max=50"`
}

// UpdateLeadRequest carries optional field updates.
type UpdateLeadRequest struct {
	DisplayName      *string  `json:"displayName" validate:"omitempty,max=200"`
	Region           *string  `json:"region" validate:"omitempty,max=100"`
	ProfessionalCode *string  `json:"professionalCode" validate:"omitempty,max=50"`
	Origin           *string  `json:"origin" validate:"omitempty,max=100"`
	Tags             []string `json:"tags" validate:"omitempty,dive,max=50"`
}

// UpdateStageRequest moves a lead to another funnel stage.
type UpdateStageRequest struct {
	Stage string `json:"stage" validate:"required,oneof=new qualified activated dead"`
}

// LeadResponse is the wire representation of a lead.
type LeadResponse struct {
	ID                int64      `json:"id"`
	UUID              string     `json:"uuid"`
	Phone             *string    `json:"phone"`
	PhoneDisplay      string     `json:"phoneDisplay,omitempty"`
	DisplayName       *string    `json:"displayName"`
	Stage             string     `json:"stage"`
	Status            string     `json:"status"`
	Region            *string    `json:"region"`
	ProfessionalCode  *string    `json:"professionalCode"`
	Tags              []string   `json:"tags"`
	Origin            *string    `json:"origin"`
	InitiatedBy       *string    `json:"initiatedBy"`
	OwnerUserID       *int64     `json:"ownerUserId"`
	AIMode            *string    `json:"aiMode"`
	ActivatedAt       *time.Time `json:"activatedAt"`
	LastEnrichedAt    *time.Time `json:"lastEnrichedAt"`
	ResurrectedAt     *time.Time `json:"resurrectedAt"`
	ResurrectionCount int        `json:"resurrectionCount"`
	CreatedAt         time.Time  `json:"createdAt"`
	UpdatedAt         time.Time  `json:"updatedAt"`
}

// ListLeadsResponse is a paginated lead listing with stage counts.
type ListLeadsResponse struct {
	Leads  []LeadResponse `json:"leads"`
	Total  int            `json:"total"`
	Counts map[string]int `json:"counts,omitempty"`
}

// ToLeadResponse maps a repository lead to its wire shape.
func ToLeadResponse(lead repository.Lead, phoneDisplay string) LeadResponse {
	tags := lead.Tags
	if tags == nil {
		tags = []string{}
	}

	return LeadResponse{
		ID:                lead.ID,
		UUID:              lead.UUID.String(),
		Phone:             lead.Phone,
		PhoneDisplay:      phoneDisplay,
		DisplayName:       lead.DisplayName,
		Stage:             string(lead.Stage),
		Status:            lead.Status,
		Region:            lead.Region,
		ProfessionalCode:  lead.ProfessionalCode,
		Tags:              tags,
		Origin:            lead.Origin,
		InitiatedBy:       lead.InitiatedBy,
		OwnerUserID:       lead.OwnerUserID,
		AIMode:            lead.AIMode,
		ActivatedAt:       lead.ActivatedAt,
		LastEnrichedAt:    lead.LastEnrichedAt,
		ResurrectedAt:     lead.ResurrectedAt,
		ResurrectionCount: lead.ResurrectionCount,
		CreatedAt:         lead.CreatedAt,
		UpdatedAt:         lead.UpdatedAt,
	}
}

// ParseStage validates and converts a wire stage value.
func ParseStage(raw string) (domain.Stage, bool) {
	stage := domain.Stage(raw)
	return stage, stage.Valid()
}
