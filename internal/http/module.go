package http

import (
	"nurture_backend/platform/config"

	"github.com/gin-gonic/gin"
)

// Module is a domain slice that mounts its own routes, keeping the router
// free of endpoint knowledge.
type Module interface {
	// Name identifies the module in startup logs.
	Name() string
	RegisterRoutes(ctx *RouterContext)
}

// RouterContext is what modules get to register against.
type RouterContext struct {
	// Engine is the root engine, for modules that mount outside /api/v1.
	Engine *gin.Engine
	// V1 is the public /api/v1 group.
	V1 *gin.RouterGroup
	// Protected requires a valid access token.
	Protected *gin.RouterGroup
	// Admin additionally requires the admin role.
	Admin *gin.RouterGroup
	// Config carries the JWT settings for modules that build middleware.
	Config config.JWTConfig
	// AuthMiddleware is the shared token check.
	AuthMiddleware gin.HandlerFunc
}
