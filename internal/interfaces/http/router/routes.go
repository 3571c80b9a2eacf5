package router

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Handlers groups everything the service exposes over HTTP
type Handlers struct {
	System   RouteRegistrar
	Webhooks RouteRegistrar
	Settings RouteRegistrar

	// SessionAuth guards the settings API
	SessionAuth gin.HandlerFunc

	// Metrics is served at MetricsPath when set
	Metrics     http.Handler
	MetricsPath string
}

// Build registers the pricing sync routes:
//
//	GET  /health, /ready, /system/info
//	POST /webhooks, /webhooks/products/create, /webhooks/products/update
//	GET  /api/v1/pricing-settings, PUT /api/v1/pricing-settings
//	GET  /metrics
func Build(engine *gin.Engine, h Handlers, opts ...RouterOption) *Router {
	r := NewRouter(engine, opts...)

	if h.System != nil {
		r.RegisterRoot(h.System)
	}
	if h.Webhooks != nil {
		r.RegisterRoot(NewDomainGroup("webhooks", "/webhooks").Mount(h.Webhooks))
	}
	if h.Metrics != nil {
		path := h.MetricsPath
		if path == "" {
			path = "/metrics"
		}
		r.RegisterRoot(NewDomainGroup("metrics", "").GET(path, gin.WrapH(h.Metrics)))
	}
	if h.Settings != nil {
		settings := NewDomainGroup("pricing-settings", "/pricing-settings")
		if h.SessionAuth != nil {
			settings.Use(h.SessionAuth)
		}
		r.Register(settings.Mount(h.Settings))
	}

	r.Setup()
	return r
}
