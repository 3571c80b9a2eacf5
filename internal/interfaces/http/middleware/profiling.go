package middleware

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/pricesync/backend/internal/infrastructure/telemetry"
)

// TopicHeader names the topic of an inbound notification
const TopicHeader = "X-Shopify-Topic"

// ProfilingConfig holds configuration for the profiling middleware.
type ProfilingConfig struct {
	// Enabled controls whether profiling labels are added to requests.
	Enabled bool
	// SkipPaths are paths that don't need profiling labels.
	SkipPaths []string
}

// DefaultProfilingConfig returns default profiling middleware configuration.
func DefaultProfilingConfig() ProfilingConfig {
	return ProfilingConfig{
		Enabled:   true,
		SkipPaths: []string{"/health", "/ready", "/metrics"},
	}
}

// ProfilingWithConfig labels CPU and allocation profiles with the route,
// method, shop and notification topic of each request.
func ProfilingWithConfig(cfg ProfilingConfig) gin.HandlerFunc {
	if !cfg.Enabled {
		return func(c *gin.Context) {
			c.Next()
		}
	}

	skip := make(map[string]bool, len(cfg.SkipPaths))
	for _, p := range cfg.SkipPaths {
		skip[p] = true
	}

	return func(c *gin.Context) {
		if skip[c.Request.URL.Path] {
			c.Next()
			return
		}

		telemetry.WithProfilingLabels(c.Request.Context(), profilingLabels(c), func(ctx context.Context) {
			c.Request = c.Request.WithContext(ctx)
			c.Next()
		})
	}
}

func profilingLabels(c *gin.Context) map[string]string {
	labels := map[string]string{
		telemetry.ProfilingLabelMethod: c.Request.Method,
		telemetry.ProfilingLabelRoute:  c.FullPath(),
		telemetry.ProfilingLabelShop:   spanShop(c),
	}
	if topic := c.GetHeader(TopicHeader); topic == "products/create" || topic == "products/update" {
		labels[telemetry.ProfilingLabelTopic] = topic
	}
	return labels
}
