// Package followups provides the follow-up bounded context: the consultant
// agenda, manual scheduling and the decay automation that kills or re-engages
// stalled leads.
package followups

import (
	"tuttscrm_backend/internal/events"
	"tuttscrm_backend/internal/followups/handler"
	"tuttscrm_backend/internal/followups/repository"
	"tuttscrm_backend/internal/followups/service"
	apphttp "tuttscrm_backend/internal/http"
	"tuttscrm_backend/platform/logger"
	"tuttscrm_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module is the follow-ups bounded context module implementing http.Module.
type Module struct {
	handler *handler.Handler
	service *service.Service
	engine  *Engine
	repo    repository.Repository
}

// NewModule creates and initializes the follow-ups module. The engine needs
// write access to lead stages, injected by the composition root.
func NewModule(pool *pgxpool.Pool, leads LeadStageWriter, bus events.Bus, val *validator.Validator, log *logger.Logger) *Module {
	repo := repository.New(pool)
	svc := service.New(repo, bus, log)
	h := handler.New(svc, val)
	engine := NewEngine(repo, leads, bus, log)

	return &Module{
		handler: h,
		service: svc,
		engine:  engine,
		repo:    repo,
	}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "followups"
}

// Engine returns the decay automation engine for the enrichment cycle.
func (m *Module) Engine() *Engine {
	return m.engine
}

// Service returns the service layer for external use.
func (m *Module) Service() *service.Service {
	return m.service
}

// RegisterRoutes mounts follow-up routes on the provided router context.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	group := ctx.Protected.Group("/followups")
	group.GET("", m.handler.List)
	group.POST("", m.handler.Schedule)
	group.POST("/:id/complete", m.handler.Complete)
	group.POST("/:id/cancel", m.handler.Cancel)

	ctx.Protected.GET("/leads/:id/followups", m.handler.ListByLead)
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
