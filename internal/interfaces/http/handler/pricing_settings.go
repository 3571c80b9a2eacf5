package handler

import (
	"errors"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/pricesync/backend/internal/domain/pricing"
	"github.com/pricesync/backend/internal/infrastructure/logger"
	"github.com/pricesync/backend/internal/interfaces/http/middleware"
)

// PricingSettingsHandler serves the pricing settings of the session shop
type PricingSettingsHandler struct {
	BaseHandler
	store pricing.ConfigurationStore
}

// NewPricingSettingsHandler creates a new PricingSettingsHandler
func NewPricingSettingsHandler(store pricing.ConfigurationStore) *PricingSettingsHandler {
	return &PricingSettingsHandler{store: store}
}

// RegisterRoutes mounts the settings endpoints on rg
func (h *PricingSettingsHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("", h.Get)
	rg.PUT("", h.Replace)
}

// Get handles GET /api/v1/pricing-settings
func (h *PricingSettingsHandler) Get(c *gin.Context) {
	shop := middleware.GetSessionShop(c)
	if shop == "" {
		h.Unauthorized(c, "Missing session shop")
		return
	}

	cfg, err := h.store.Resolve(c.Request.Context(), shop)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, toPricingSettingsResponse(cfg))
}

// Replace handles PUT /api/v1/pricing-settings.
// Every field is overwritten; a field left out of the body becomes absent.
func (h *PricingSettingsHandler) Replace(c *gin.Context) {
	shop := middleware.GetSessionShop(c)
	if shop == "" {
		h.Unauthorized(c, "Missing session shop")
		return
	}

	var req PricingSettingsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}

	ctx := c.Request.Context()
	cfg, err := h.store.Resolve(ctx, shop)
	switch {
	case errors.Is(err, pricing.ErrConfigurationNotFound):
		cfg, err = pricing.NewTenantConfiguration(shop)
		if err != nil {
			h.HandleError(c, err)
			return
		}
	case err != nil:
		h.HandleError(c, err)
		return
	}

	req.applyTo(cfg)
	if err := cfg.Validate(); err != nil {
		h.HandleError(c, err)
		return
	}
	if err := h.store.Save(ctx, cfg); err != nil {
		h.HandleError(c, err)
		return
	}

	logger.L(ctx).Info("Pricing settings replaced",
		zap.String("shop", shop),
		zap.Int("configured_fields", len(cfg.SeedAttributes())))
	h.Success(c, toPricingSettingsResponse(cfg))
}
