package enrichment

import (
	"net/http"

	"tuttscrm_backend/platform/config"
	"tuttscrm_backend/platform/httpkit"

	"github.com/gin-gonic/gin"
)

// Handler exposes the reconciliation engine over HTTP for scheduled and
// manual triggers.
type Handler struct {
	svc *Service
	cfg config.EnrichmentConfig
}

// NewHandler creates a new enrichment handler.
func NewHandler(svc *Service, cfg config.EnrichmentConfig) *Handler {
	return &Handler{svc: svc, cfg: cfg}
}

type runRequest struct {
	LeadID int64 `json:"leadId"`
}

// Run handles POST /cron/enrichment. Without a body it runs the batch cycle;
// with a leadId it reconciles just that lead (event mode).
func (h *Handler) Run(c *gin.Context) {
	var req runRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			httpkit.Error(c, http.StatusBadRequest, "invalid request body", nil)
			return
		}
	}

	var summary RunSummary
	var err error
	if req.LeadID > 0 {
		summary, err = h.svc.RunForLead(c.Request.Context(), req.LeadID)
	} else {
		summary, err = h.svc.Run(c.Request.Context())
	}
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, summary)
}

// Status handles GET /cron/enrichment: funnel freshness counters plus the
// engine's tuning values.
func (h *Handler) Status(c *gin.Context) {
	status, err := h.svc.Status(c.Request.Context())
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, gin.H{
		"neverEnriched":   status.NeverEnriched,
		"stale":           status.Stale,
		"fresh":           status.Fresh,
		"cooldownMinutes": int(h.cfg.GetEnrichmentCooldown().Minutes()),
		"quotaPerRun":     h.cfg.GetEnrichmentQuota(),
	})
}
