package reporting

import (
	apphttp "tuttscrm_backend/internal/http"
	"tuttscrm_backend/platform/logger"
)

// Module is the reporting bounded context module implementing http.Module.
type Module struct {
	handler *Handler
	service *Service
}

// NewModule creates and initializes the reporting module.
func NewModule(leads LeadSource, snapshots SnapshotSource, log *logger.Logger) *Module {
	svc := New(leads, snapshots, log)
	return &Module{
		handler: NewHandler(svc),
		service: svc,
	}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "reporting"
}

// RegisterRoutes mounts reporting routes on the provided router context.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	ctx.Protected.GET("/reports/activated", m.handler.Activated)
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
