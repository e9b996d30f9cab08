package enrichment

import (
	"context"

	"tuttscrm_backend/internal/events"
	apphttp "tuttscrm_backend/internal/http"
	"tuttscrm_backend/platform/config"
	"tuttscrm_backend/platform/logger"
)

// Module is the enrichment bounded context module implementing http.Module.
type Module struct {
	service *Service
	handler *Handler
	log     *logger.Logger
}

// NewModule creates the enrichment module around an already-composed engine.
func NewModule(svc *Service, cfg config.EnrichmentConfig, log *logger.Logger) *Module {
	return &Module{
		service: svc,
		handler: NewHandler(svc, cfg),
		log:     log,
	}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "enrichment"
}

// Service returns the reconciliation engine.
func (m *Module) Service() *Service {
	return m.service
}

// RegisterRoutes mounts the cron trigger and status routes. The trigger
// accepts the shared cron secret or a bearer token; status needs a token.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	ctx.V1.POST("/cron/enrichment", ctx.CronMiddleware, m.handler.Run)
	ctx.V1.GET("/cron/enrichment", ctx.AuthMiddleware, m.handler.Status)
}

// RegisterHandlers subscribes the engine to lead events for event-mode runs.
func (m *Module) RegisterHandlers(bus events.Bus) {
	bus.Subscribe(events.LeadEnrichmentRequested{}.EventName(), events.HandlerFunc(m.handleEnrichmentRequested))
}

func (m *Module) handleEnrichmentRequested(ctx context.Context, event events.Event) error {
	requested, ok := event.(events.LeadEnrichmentRequested)
	if !ok {
		return nil
	}
	if _, err := m.service.RunForLead(ctx, requested.LeadID); err != nil {
		m.log.LeadError("event_enrichment", requested.LeadID, err)
		return err
	}
	return nil
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
