package middleware

import (
	"net/http"
	"regexp"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// ShopDomainHeader names the shop of an inbound notification
const ShopDomainHeader = "X-Shopify-Shop-Domain"

// MaxShopLength bounds shop domains copied into span attributes
const MaxShopLength = 255

// shopDomainRegex accepts hostnames only, so headers cannot inject arbitrary trace data
var shopDomainRegex = regexp.MustCompile(`^[a-z0-9][a-z0-9.-]*[a-z0-9]$`)

// TracingConfig holds configuration for the tracing middleware.
type TracingConfig struct {
	// ServiceName is the name of the service for trace identification.
	ServiceName string
	// Enabled controls whether tracing is active.
	Enabled bool
}

// DefaultTracingConfig returns default tracing configuration.
func DefaultTracingConfig() TracingConfig {
	return TracingConfig{
		ServiceName: "pricesync-backend",
		Enabled:     true,
	}
}

// TracingWithConfig returns the otelgin server span middleware
func TracingWithConfig(cfg TracingConfig) gin.HandlerFunc {
	if !cfg.Enabled {
		return func(c *gin.Context) {
			c.Next()
		}
	}

	return otelgin.Middleware(cfg.ServiceName)
}

// SpanEnricher adds attributes to the server span once the handler chain is done.
// It must run inside TracingWithConfig.
func SpanEnricher() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		span := trace.SpanFromContext(c.Request.Context())
		if !span.IsRecording() {
			return
		}
		if requestID := GetRequestID(c); requestID != "" {
			span.SetAttributes(attribute.String("request_id", requestID))
		}
		if shop := spanShop(c); shop != "" {
			span.SetAttributes(attribute.String("shop", shop))
		}
		if status := c.Writer.Status(); status >= http.StatusInternalServerError {
			span.SetStatus(codes.Error, http.StatusText(status))
		}
	}
}

// spanShop prefers the verified session shop over the notification header
func spanShop(c *gin.Context) string {
	if shop := GetSessionShop(c); shop != "" {
		return shop
	}
	shop := c.GetHeader(ShopDomainHeader)
	if len(shop) > MaxShopLength || !shopDomainRegex.MatchString(shop) {
		return ""
	}
	return shop
}
