// Package transport defines quarantine request and response DTOs.
package transport

import (
	"time"

	"tuttscrm_backend/internal/quarantine/repository"
	"tuttscrm_backend/internal/quarantine/service"
	"tuttscrm_backend/internal/snapshot"
	"tuttscrm_backend/platform/phone"
)

const whatsappBaseURL = "https://wa.me/55"

// IngestRequest is the uploaded roster batch.
type IngestRequest struct {
	Leads []IngestLeadRequest `json:"leads" validate:"required,min=1,dive"`
}

// IngestLeadRequest is one uploaded roster row.
type IngestLeadRequest struct {
	Code         string `json:"code"`
	Name         string `json:"name"`
	Phone        string `json:"phone" validate:"required"`
	Region       string `json:"region"`
	RegisteredAt string `json:"registeredAt"`
}

// ToIngestRows converts the request batch to service rows. Dates accept the
// spreadsheet DD/MM/YYYY form or ISO.
func ToIngestRows(req IngestRequest) []service.IngestRow {
	rows := make([]service.IngestRow, 0, len(req.Leads))
	for _, lead := range req.Leads {
		row := service.IngestRow{
			Code:   lead.Code,
			Name:   lead.Name,
			Phone:  lead.Phone,
			Region: lead.Region,
		}
		if lead.RegisteredAt != "" {
			if parsed := snapshot.ParseDateBR(lead.RegisteredAt); parsed != nil {
				row.RegisteredAt = parsed
			} else if parsed, err := time.Parse("2006-01-02", lead.RegisteredAt); err == nil {
				row.RegisteredAt = &parsed
			}
		}
		rows = append(rows, row)
	}
	return rows
}

// QuarantineLeadResponse is the API shape of a quarantine entry.
type QuarantineLeadResponse struct {
	ID               int64     `json:"id"`
	ProfessionalCode *string   `json:"professionalCode,omitempty"`
	Name             *string   `json:"name,omitempty"`
	Phone            string    `json:"phone"`
	Region           string    `json:"region"`
	WhatsAppLink     string    `json:"whatsappLink"`
	RegisteredAt     *string   `json:"registeredAt,omitempty"`
	CreatedAt        time.Time `json:"createdAt"`
}

// ToQuarantineLeadResponse converts an entry, deriving the region from the
// area code when it was never recorded.
func ToQuarantineLeadResponse(entry repository.QuarantineLead) QuarantineLeadResponse {
	resp := QuarantineLeadResponse{
		ID:               entry.ID,
		ProfessionalCode: entry.ProfessionalCode,
		Name:             entry.Name,
		Phone:            phone.FormatDisplay(entry.PhoneNormalized),
		WhatsAppLink:     whatsappBaseURL + entry.PhoneNormalized,
		CreatedAt:        entry.CreatedAt,
	}
	if entry.Region != nil && *entry.Region != "" {
		resp.Region = *entry.Region
	} else {
		resp.Region = phone.RegionByAreaCode(entry.PhoneNormalized)
	}
	if entry.RegisteredAt != nil {
		formatted := entry.RegisteredAt.Format("2006-01-02")
		resp.RegisteredAt = &formatted
	}
	return resp
}
