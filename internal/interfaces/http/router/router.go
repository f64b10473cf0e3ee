package router

import (
	"github.com/gin-gonic/gin"
)

// DefaultAPIVersion is the path segment of the versioned API group.
const DefaultAPIVersion = "v1"

// RouteRegistrar is implemented by handlers that own a set of API routes.
type RouteRegistrar interface {
	RegisterRoutes(rg *gin.RouterGroup)
}

// API describes the versioned group mounted under /api.
type API struct {
	Version string
	// Middleware runs for API routes only, never for /healthz.
	Middleware []gin.HandlerFunc
	Handlers   []RouteRegistrar
}

// Mount creates /api/<version> on engine and registers every handler on it.
func (a API) Mount(engine *gin.Engine) *gin.RouterGroup {
	version := a.Version
	if version == "" {
		version = DefaultAPIVersion
	}
	group := engine.Group("/api/"+version, a.Middleware...)
	for _, h := range a.Handlers {
		h.RegisterRoutes(group)
	}
	return group
}
