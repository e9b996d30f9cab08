// Package handler exposes the leads module over HTTP.
package handler

import (
	"net/http"
	"strconv"

	"tuttscrm_backend/internal/leads/domain"
	"tuttscrm_backend/internal/leads/repository"
	"tuttscrm_backend/internal/leads/service"
	"tuttscrm_backend/internal/leads/transport"
	"tuttscrm_backend/platform/httpkit"
	"tuttscrm_backend/platform/phone"
	"tuttscrm_backend/platform/validator"

	"github.com/gin-gonic/gin"
)

// Handler handles lead HTTP requests.
type Handler struct {
	svc *service.Service
	val *validator.Validator
}

// New creates a new leads handler.
func New(svc *service.Service, val *validator.Validator) *Handler {
	return &Handler{svc: svc, val: val}
}

// List handles GET /leads.
func (h *Handler) List(c *gin.Context) {
	params := repository.ListParams{
		Search: c.Query("search"),
		Limit:  intQuery(c, "limit", 50),
		Offset: intQuery(c, "offset", 0),
	}

	if raw := c.Query("stage"); raw != "" {
		stage, ok := transport.ParseStage(raw)
		if !ok {
			httpkit.Error(c, http.StatusBadRequest, "invalid stage filter", nil)
			return
		}
		params.Stage = &stage
	}
	if region := c.Query("region"); region != "" {
		params.Region = &region
	}
	if raw := c.Query("owner"); raw != "" {
		owner, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			httpkit.Error(c, http.StatusBadRequest, "invalid owner filter", nil)
			return
		}
		params.OwnerUserID = &owner
	}

	leads, total, counts, err := h.svc.List(c.Request.Context(), params)
	if httpkit.HandleError(c, err) {
		return
	}

	resp := transport.ListLeadsResponse{
		Leads:  make([]transport.LeadResponse, 0, len(leads)),
		Total:  total,
		Counts: counts,
	}
	for _, lead := range leads {
		resp.Leads = append(resp.Leads, toResponse(lead))
	}
	httpkit.OK(c, resp)
}

// Get handles GET /leads/:id.
func (h *Handler) Get(c *gin.Context) {
	id, ok := leadID(c)
	if !ok {
		return
	}

	lead, err := h.svc.Get(c.Request.Context(), id)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, toResponse(lead))
}

// Create handles POST /leads.
func (h *Handler) Create(c *gin.Context) {
	var req transport.CreateLeadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, "invalid request body", nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, "validation failed", err.Error())
		return
	}

	lead, err := h.svc.Create(c.Request.Context(), service.CreateInput{
		Phone:       req.Phone,
		DisplayName: req.DisplayName,
		Region:      req.Region,
		Origin:      req.Origin,
		InitiatedBy: req.InitiatedBy,
		Tags:        req.Tags,
	})
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.Created(c, toResponse(lead))
}

// Update handles PATCH /leads/:id.
func (h *Handler) Update(c *gin.Context) {
	id, ok := leadID(c)
	if !ok {
		return
	}

	var req transport.UpdateLeadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, "invalid request body", nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, "validation failed", err.Error())
		return
	}

	lead, err := h.svc.Update(c.Request.Context(), repository.UpdateParams{
		ID:               id,
		DisplayName:      req.DisplayName,
		Region:           req.Region,
		ProfessionalCode: req.ProfessionalCode,
		Origin:           req.Origin,
		Tags:             req.Tags,
	})
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, toResponse(lead))
}

// UpdateStage handles PATCH /leads/:id/stage.
func (h *Handler) UpdateStage(c *gin.Context) {
	id, ok := leadID(c)
	if !ok {
		return
	}

	var req transport.UpdateStageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, "invalid request body", nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, "validation failed", err.Error())
		return
	}

	if err := h.svc.SetStage(c.Request.Context(), id, domain.Stage(req.Stage)); httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, gin.H{"id": id, "stage": req.Stage})
}

// Claim handles POST /leads/:id/claim.
func (h *Handler) Claim(c *gin.Context) {
	id, ok := leadID(c)
	if !ok {
		return
	}

	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}

	lead, err := h.svc.Claim(c.Request.Context(), id, identity.UserID(), identity.Name())
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, toResponse(lead))
}

// PauseAI handles POST /leads/:id/ai/pause.
func (h *Handler) PauseAI(c *gin.Context) {
	id, ok := leadID(c)
	if !ok {
		return
	}
	if err := h.svc.PauseAI(c.Request.Context(), id); httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, gin.H{"id": id, "aiMode": service.AIModePaused})
}

// ResumeAI handles POST /leads/:id/ai/resume.
func (h *Handler) ResumeAI(c *gin.Context) {
	id, ok := leadID(c)
	if !ok {
		return
	}
	if err := h.svc.ResumeAI(c.Request.Context(), id); httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, gin.H{"id": id, "aiMode": service.AIModeActive})
}

// Archive handles DELETE /leads/:id.
func (h *Handler) Archive(c *gin.Context) {
	id, ok := leadID(c)
	if !ok {
		return
	}
	if err := h.svc.Archive(c.Request.Context(), id); httpkit.HandleError(c, err) {
		return
	}
	c.Status(http.StatusNoContent)
}

func leadID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		httpkit.Error(c, http.StatusBadRequest, "invalid lead id", nil)
		return 0, false
	}
	return id, true
}

func intQuery(c *gin.Context, key string, fallback int) int {
	raw := c.Query(key)
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil || value < 0 {
		return fallback
	}
	return value
}

func toResponse(lead repository.Lead) transport.LeadResponse {
	display := ""
	if lead.Phone != nil {
		display = phone.FormatDisplay(*lead.Phone)
	}
	return transport.ToLeadResponse(lead, display)
}
