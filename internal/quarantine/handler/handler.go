// Package handler exposes the quarantine module over HTTP.
package handler

import (
	"net/http"
	"sort"
	"strconv"

	"tuttscrm_backend/internal/quarantine/service"
	"tuttscrm_backend/internal/quarantine/transport"
	"tuttscrm_backend/platform/httpkit"
	"tuttscrm_backend/platform/validator"

	"github.com/gin-gonic/gin"
)

// Handler handles quarantine HTTP requests.
type Handler struct {
	svc *service.Service
	val *validator.Validator
}

// New creates a new quarantine handler.
func New(svc *service.Service, val *validator.Validator) *Handler {
	return &Handler{svc: svc, val: val}
}

// Ingest handles POST /quarantine: absorbs an uploaded roster batch.
func (h *Handler) Ingest(c *gin.Context) {
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}

	var req transport.IngestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, "invalid request body", nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, "validation failed", err.Error())
		return
	}

	summary, err := h.svc.Ingest(c.Request.Context(), transport.ToIngestRows(req), identity.UserID())
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, summary)
}

// List handles GET /quarantine. Pruning of entries that entered the funnel
// always runs; ?verify=true additionally checks a bounded batch against the
// registry (?limit= overrides the batch size).
func (h *Handler) List(c *gin.Context) {
	opts := service.ListOptions{
		VerifyOracle: c.Query("verify") == "true" || c.Query("verify") == "1",
	}
	if raw := c.Query("limit"); raw != "" {
		if limit, err := strconv.Atoi(raw); err == nil && limit > 0 {
			opts.VerifyLimit = limit
		}
	}

	result, err := h.svc.List(c.Request.Context(), opts)
	if httpkit.HandleError(c, err) {
		return
	}

	items := make([]transport.QuarantineLeadResponse, 0, len(result.Entries))
	byRegion := make(map[string]int)
	for _, entry := range result.Entries {
		item := transport.ToQuarantineLeadResponse(entry)
		if item.Region != "" {
			byRegion[item.Region]++
		}
		items = append(items, item)
	}

	regions := make([]string, 0, len(byRegion))
	for region := range byRegion {
		regions = append(regions, region)
	}
	sort.Strings(regions)

	httpkit.OK(c, gin.H{
		"leads":    items,
		"total":    len(items),
		"byRegion": byRegion,
		"regions":  regions,
		"pruned": gin.H{
			"enteredFunnel":  result.PrunedFunnel,
			"registryActive": result.PrunedActive,
		},
	})
}

// Delete handles DELETE /quarantine: one entry by ?id=, or everything with
// ?clearAll=true.
func (h *Handler) Delete(c *gin.Context) {
	if c.Query("clearAll") == "true" {
		removed, err := h.svc.Clear(c.Request.Context())
		if httpkit.HandleError(c, err) {
			return
		}
		httpkit.OK(c, gin.H{"removed": removed})
		return
	}

	id, err := strconv.ParseInt(c.Query("id"), 10, 64)
	if err != nil || id <= 0 {
		httpkit.Error(c, http.StatusBadRequest, "id or clearAll=true required", nil)
		return
	}

	if err := h.svc.Delete(c.Request.Context(), id); httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, gin.H{"id": id, "deleted": true})
}
