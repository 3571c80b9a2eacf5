package handler

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/pricesync/backend/internal/domain/pricing"
)

// PricingSettingsRequest replaces the pricing settings of the session shop.
// Omitted or null fields are stored as absent.
type PricingSettingsRequest struct {
	DiscountRate     *decimal.Decimal `json:"discount_rate" binding:"omitempty,gte=0,lt=100"`
	ShippingCost     *decimal.Decimal `json:"shipping_cost" binding:"omitempty,gte=0"`
	TaxRate          *decimal.Decimal `json:"tax_rate" binding:"omitempty,gte=0,lte=100"`
	NormalMultiplier *decimal.Decimal `json:"normal_multiplier" binding:"omitempty,gt=0"`
	OOAKMultiplier   *decimal.Decimal `json:"ooak_multiplier" binding:"omitempty,gt=0"`
	MarkupRate       *decimal.Decimal `json:"markup_rate" binding:"omitempty,gte=0"`
	HourlyRate       *decimal.Decimal `json:"hourly_rate" binding:"omitempty,gte=0"`
	DefaultRarity    *string          `json:"default_rarity" binding:"omitempty,rarity"`
}

// applyTo overwrites every field of cfg
func (r PricingSettingsRequest) applyTo(cfg *pricing.TenantConfiguration) {
	cfg.DiscountRate = r.DiscountRate
	cfg.ShippingCost = r.ShippingCost
	cfg.TaxRate = r.TaxRate
	cfg.NormalMultiplier = r.NormalMultiplier
	cfg.OOAKMultiplier = r.OOAKMultiplier
	cfg.MarkupRate = r.MarkupRate
	cfg.HourlyRate = r.HourlyRate
	cfg.DefaultRarity = nil
	if r.DefaultRarity != nil {
		label := pricing.ParseRarity(*r.DefaultRarity).String()
		cfg.DefaultRarity = &label
	}
	cfg.UpdatedAt = time.Now()
}

// PricingSettingsResponse is the stored pricing settings of a shop
type PricingSettingsResponse struct {
	ID               string           `json:"id"`
	Shop             string           `json:"shop"`
	DiscountRate     *decimal.Decimal `json:"discount_rate"`
	ShippingCost     *decimal.Decimal `json:"shipping_cost"`
	TaxRate          *decimal.Decimal `json:"tax_rate"`
	NormalMultiplier *decimal.Decimal `json:"normal_multiplier"`
	OOAKMultiplier   *decimal.Decimal `json:"ooak_multiplier"`
	MarkupRate       *decimal.Decimal `json:"markup_rate"`
	HourlyRate       *decimal.Decimal `json:"hourly_rate"`
	DefaultRarity    *string          `json:"default_rarity"`
	CreatedAt        time.Time        `json:"created_at"`
	UpdatedAt        time.Time        `json:"updated_at"`
}

func toPricingSettingsResponse(cfg *pricing.TenantConfiguration) PricingSettingsResponse {
	return PricingSettingsResponse{
		ID:               cfg.ID.String(),
		Shop:             cfg.Shop,
		DiscountRate:     cfg.DiscountRate,
		ShippingCost:     cfg.ShippingCost,
		TaxRate:          cfg.TaxRate,
		NormalMultiplier: cfg.NormalMultiplier,
		OOAKMultiplier:   cfg.OOAKMultiplier,
		MarkupRate:       cfg.MarkupRate,
		HourlyRate:       cfg.HourlyRate,
		DefaultRarity:    cfg.DefaultRarity,
		CreatedAt:        cfg.CreatedAt,
		UpdatedAt:        cfg.UpdatedAt,
	}
}
