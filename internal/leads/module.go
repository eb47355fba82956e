// Package leads provides the lead management bounded context module.
package leads

import (
	"nurture_backend/internal/events"
	apphttp "nurture_backend/internal/http"
	"nurture_backend/internal/leads/handler"
	"nurture_backend/internal/leads/repository"
	"nurture_backend/internal/leads/service"
	"nurture_backend/platform/logger"
	"nurture_backend/platform/validator"
)

// Module is the leads bounded context module implementing http.Module.
type Module struct {
	handler *handler.Handler
	service *service.Service
}

// NewModule wires the leads module. The follow-up planner and quota
// enforcer come from the engagement context; the composition root passes
// them in so this module stays free of scheduling internals.
func NewModule(repo *repository.Repository, followUps service.FollowUpPlanner, quotas service.QuotaEnforcer, bus events.Bus, val *validator.Validator, log *logger.Logger) *Module {
	svc := service.New(repo, followUps, quotas, bus, log)
	return &Module{
		handler: handler.New(svc, val),
		service: svc,
	}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "leads"
}

// Service returns the lead management service for external use.
func (m *Module) Service() *service.Service {
	return m.service
}

// RegisterRoutes mounts leads routes on the provided router context.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	leadsGroup := ctx.Protected.Group("/leads")
	m.handler.RegisterRoutes(leadsGroup)
	m.handler.RegisterAdminRoutes(ctx.Admin)
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
