// Package webhook provides the bridge callback bounded context module.
// This file defines the module that encapsulates route registration.
package webhook

import (
	apphttp "nurture_backend/internal/http"
	"nurture_backend/platform/config"
	"nurture_backend/platform/validator"
)

// Module is the webhook bounded context module implementing http.Module.
type Module struct {
	handler *Handler
	cfg     config.WebhookConfig
}

// NewModule creates and initializes the webhook module.
func NewModule(service *Service, cfg config.WebhookConfig, val *validator.Validator) *Module {
	return &Module{
		handler: NewHandler(service, val),
		cfg:     cfg,
	}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "webhook"
}

// RegisterRoutes mounts webhook routes on the provided router context.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	// Bridge callbacks (API key auth, no JWT)
	group := ctx.V1.Group("/webhook")
	group.Use(APIKeyAuthMiddleware(m.cfg))
	group.POST("/calls", m.handler.HandleCallCompleted)
	group.POST("/messages", m.handler.HandleMessageDelivery)
	group.POST("/inbound", m.handler.HandleInboundMessage)
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
