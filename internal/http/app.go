// Package http holds the server wiring contract between the composition
// root and the router: the App dependency bundle and the Module interface
// domain slices register their routes through.
package http

import (
	"context"

	"nurture_backend/internal/events"
	"nurture_backend/platform/config"
	"nurture_backend/platform/logger"
)

// RouterConfig combines the config slices the router needs.
type RouterConfig interface {
	config.HTTPConfig
	config.JWTConfig
}

// HealthChecker is what the readiness endpoint probes.
type HealthChecker interface {
	Ping(ctx context.Context) error
}

// App bundles the fully constructed dependencies main hands to the router.
type App struct {
	Config   RouterConfig
	Logger   *logger.Logger
	Health   HealthChecker
	EventBus events.Bus
	Modules  []Module
}
