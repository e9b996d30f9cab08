package reporting

import (
	"net/http"
	"strconv"
	"time"

	"tuttscrm_backend/platform/httpkit"

	"github.com/gin-gonic/gin"
)

const defaultWindowDays = 30

// Handler handles reporting HTTP requests.
type Handler struct {
	svc *Service
}

// NewHandler creates a new reporting handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// Activated handles GET /reports/activated. The window defaults to the last
// 30 days; ?dias= sets a relative window and ?dataInicio=/?dataFim=
// (YYYY-MM-DD) override the bounds. ?regiao= filters both sources.
func (h *Handler) Activated(c *gin.Context) {
	now := time.Now().UTC()
	from := startOfDay(now.AddDate(0, 0, -defaultWindowDays))
	to := endOfDay(now)

	if raw := c.Query("dias"); raw != "" {
		days, err := strconv.Atoi(raw)
		if err != nil || days <= 0 {
			httpkit.Error(c, http.StatusBadRequest, "invalid dias", nil)
			return
		}
		from = startOfDay(now.AddDate(0, 0, -days))
	}
	if raw := c.Query("dataInicio"); raw != "" {
		parsed, err := time.Parse("2006-01-02", raw)
		if err != nil {
			httpkit.Error(c, http.StatusBadRequest, "invalid dataInicio", nil)
			return
		}
		from = startOfDay(parsed)
	}
	if raw := c.Query("dataFim"); raw != "" {
		parsed, err := time.Parse("2006-01-02", raw)
		if err != nil {
			httpkit.Error(c, http.StatusBadRequest, "invalid dataFim", nil)
			return
		}
		to = endOfDay(parsed)
	}
	if from.After(to) {
		httpkit.Error(c, http.StatusBadRequest, "dataInicio after dataFim", nil)
		return
	}

	report, err := h.svc.ActivatedReport(c.Request.Context(), ReportParams{
		From:   from,
		To:     to,
		Region: c.Query("regiao"),
	})
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, gin.H{
		"period": gin.H{
			"from": from.Format("2006-01-02"),
			"to":   to.Format("2006-01-02"),
		},
		"report": report,
	})
}

func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func endOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 23, 59, 59, 0, time.UTC)
}
