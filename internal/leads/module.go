// Package leads provides the lead lifecycle bounded context: funnel stages,
// claiming, AI-assistance toggles and the stage transition rules used by the
// reconciliation engine.
package leads

import (
	"tuttscrm_backend/internal/events"
	apphttp "tuttscrm_backend/internal/http"
	"tuttscrm_backend/internal/leads/handler"
	"tuttscrm_backend/internal/leads/repository"
	"tuttscrm_backend/internal/leads/service"
	"tuttscrm_backend/platform/logger"
	"tuttscrm_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module is the leads bounded context module implementing http.Module.
type Module struct {
	handler *handler.Handler
	service *service.Service
	repo    repository.Repository
}

// NewModule creates and initializes the leads module with all its dependencies.
func NewModule(pool *pgxpool.Pool, bus events.Bus, val *validator.Validator, log *logger.Logger) *Module {
	repo := repository.New(pool)
	svc := service.New(repo, bus, log)
	h := handler.New(svc, val)

	return &Module{
		handler: h,
		service: svc,
		repo:    repo,
	}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "leads"
}

// Service returns the service layer for external use.
func (m *Module) Service() *service.Service {
	return m.service
}

// Repository returns the repository for cross-module wiring (enrichment,
// quarantine, reporting).
func (m *Module) Repository() repository.Repository {
	return m.repo
}

// RegisterRoutes mounts lead routes on the provided router context.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	group := ctx.Protected.Group("/leads")
	group.GET("", m.handler.List)
	group.POST("", m.handler.Create)
	group.GET("/:id", m.handler.Get)
	group.PATCH("/:id", m.handler.Update)
	group.PATCH("/:id/stage", m.handler.UpdateStage)
	group.POST("/:id/claim", m.handler.Claim)
	group.POST("/:id/ai/pause", m.handler.PauseAI)
	group.POST("/:id/ai/resume", m.handler.ResumeAI)
	group.DELETE("/:id", m.handler.Archive)
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
