// Package handler exposes the follow-ups module over HTTP.
package handler

import (
	"net/http"
	"strconv"
	"time"

	"tuttscrm_backend/internal/followups/repository"
	"tuttscrm_backend/internal/followups/service"
	"tuttscrm_backend/internal/followups/transport"
	"tuttscrm_backend/platform/httpkit"
	"tuttscrm_backend/platform/validator"

	"github.com/gin-gonic/gin"
)

// Handler handles follow-up HTTP requests.
type Handler struct {
	svc *service.Service
	val *validator.Validator
}

// New creates a new follow-ups handler.
func New(svc *service.Service, val *validator.Validator) *Handler {
	return &Handler{svc: svc, val: val}
}

// List handles GET /followups. Pending entries carry a situation bucket and
// the response includes overdue/today/future counts for the agenda header.
func (h *Handler) List(c *gin.Context) {
	items, err := h.svc.List(c.Request.Context(), c.Query("status"))
	if httpkit.HandleError(c, err) {
		return
	}

	today := time.Now()
	resp := transport.ListResponse{
		FollowUps: make([]transport.FollowUpWithLeadResponse, 0, len(items)),
		Counts: map[string]int{
			transport.SituationOverdue: 0,
			transport.SituationToday:   0,
			transport.SituationFuture:  0,
		},
	}

	for _, item := range items {
		entry := transport.FollowUpWithLeadResponse{
			FollowUpResponse: transport.ToFollowUpResponse(item.FollowUp, today),
			LeadPhone:        item.LeadPhone,
			LeadDisplayName:  item.LeadDisplayName,
			LeadStage:        string(item.LeadStage),
		}
		if entry.Situation != "" {
			resp.Counts[entry.Situation]++
		}
		resp.FollowUps = append(resp.FollowUps, entry)
	}
	httpkit.OK(c, resp)
}

// ListByLead handles GET /leads/:id/followups.
func (h *Handler) ListByLead(c *gin.Context) {
	leadID, ok := pathID(c, "id")
	if !ok {
		return
	}

	items, err := h.svc.ListByLead(c.Request.Context(), leadID)
	if httpkit.HandleError(c, err) {
		return
	}

	today := time.Now()
	resp := make([]transport.FollowUpResponse, 0, len(items))
	for _, item := range items {
		resp = append(resp, transport.ToFollowUpResponse(item, today))
	}
	httpkit.OK(c, gin.H{"followups": resp})
}

// Schedule handles POST /followups.
func (h *Handler) Schedule(c *gin.Context) {
	var req transport.ScheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, "invalid request body", nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, "validation failed", err.Error())
		return
	}

	scheduledDate, err := time.Parse("2006-01-02", req.ScheduledDate)
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, "invalid scheduled date", nil)
		return
	}

	created, err := h.svc.Schedule(c.Request.Context(), service.ScheduleInput{
		LeadID:        req.LeadID,
		ScheduledDate: scheduledDate,
		Reason:        req.Reason,
		Notes:         req.Notes,
	})
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.Created(c, transport.ToFollowUpResponse(created, time.Now()))
}

// Complete handles POST /followups/:id/complete.
func (h *Handler) Complete(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	var req transport.CompleteRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			httpkit.Error(c, http.StatusBadRequest, "invalid request body", nil)
			return
		}
	}

	completed, err := h.svc.Complete(c.Request.Context(), id, req.Notes)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, transport.ToFollowUpResponse(completed, time.Now()))
}

// Cancel handles POST /followups/:id/cancel.
func (h *Handler) Cancel(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := h.svc.Cancel(c.Request.Context(), id); httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, gin.H{"id": id, "status": repository.StatusCancelled})
}

func pathID(c *gin.Context, param string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(param), 10, 64)
	if err != nil || id <= 0 {
		httpkit.Error(c, http.StatusBadRequest, "invalid id", nil)
		return 0, false
	}
	return id, true
}
