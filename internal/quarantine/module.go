// Package quarantine provides the not-yet-started roster: uploaded entries
// waiting outside the funnel until their owner starts a conversation or the
// registry reports them active.
package quarantine

import (
	apphttp "tuttscrm_backend/internal/http"
	"tuttscrm_backend/internal/quarantine/handler"
	"tuttscrm_backend/internal/quarantine/repository"
	"tuttscrm_backend/internal/quarantine/service"
	"tuttscrm_backend/platform/logger"
	"tuttscrm_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module is the quarantine bounded context module implementing http.Module.
type Module struct {
	handler *handler.Handler
	service *service.Service
	repo    repository.Repository
}

// NewModule creates and initializes the quarantine module. The funnel index
// and the registry oracle are injected by the composition root.
func NewModule(pool *pgxpool.Pool, leads service.LeadIndex, oracle service.Oracle, val *validator.Validator, log *logger.Logger) *Module {
	repo := repository.New(pool)
	svc := service.New(repo, leads, oracle, log)

	return &Module{
		handler: handler.New(svc, val),
		service: svc,
		repo:    repo,
	}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "quarantine"
}

// RegisterRoutes mounts quarantine routes on the provided router context.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	group := ctx.Protected.Group("/quarantine")
	group.GET("", m.handler.List)
	group.POST("", m.handler.Ingest)
	group.DELETE("", m.handler.Delete)
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
