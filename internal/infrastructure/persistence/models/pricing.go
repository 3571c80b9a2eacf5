package models

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/pricesync/backend/internal/domain/integration"
	"github.com/pricesync/backend/internal/domain/pricing"
)

// PricingSettingsModel is the persistence model for a shop's TenantConfiguration.
// Every pricing column is nullable; NULL means "not configured".
type PricingSettingsModel struct {
	BaseModel
	Shop             string              `gorm:"type:varchar(255);not null;uniqueIndex:idx_pricing_settings_shop"`
	DiscountRate     decimal.NullDecimal `gorm:"type:numeric(12,4)"`
	ShippingCost     decimal.NullDecimal `gorm:"type:numeric(12,4)"`
	TaxRate          decimal.NullDecimal `gorm:"type:numeric(12,4)"`
	NormalMultiplier decimal.NullDecimal `gorm:"type:numeric(12,4)"`
	OOAKMultiplier   decimal.NullDecimal `gorm:"column:ooak_multiplier;type:numeric(12,4)"`
	MarkupRate       decimal.NullDecimal `gorm:"type:numeric(12,4)"`
	HourlyRate       decimal.NullDecimal `gorm:"type:numeric(12,4)"`
	DefaultRarity    *string             `gorm:"type:varchar(20)"`
}

// TableName returns the table name for GORM
func (PricingSettingsModel) TableName() string {
	return "pricing_settings"
}

// PricingSettingsColumns lists the columns replaced on save
var PricingSettingsColumns = []string{
	"discount_rate", "shipping_cost", "tax_rate", "normal_multiplier",
	"ooak_multiplier", "markup_rate", "hourly_rate", "default_rarity", "updated_at",
}

// ToDomain converts the persistence model to a domain TenantConfiguration
func (m *PricingSettingsModel) ToDomain() *pricing.TenantConfiguration {
	return &pricing.TenantConfiguration{
		ID:               m.ID,
		Shop:             m.Shop,
		DiscountRate:     fromNull(m.DiscountRate),
		ShippingCost:     fromNull(m.ShippingCost),
		TaxRate:          fromNull(m.TaxRate),
		NormalMultiplier: fromNull(m.NormalMultiplier),
		OOAKMultiplier:   fromNull(m.OOAKMultiplier),
		MarkupRate:       fromNull(m.MarkupRate),
		HourlyRate:       fromNull(m.HourlyRate),
		DefaultRarity:    copyString(m.DefaultRarity),
		CreatedAt:        m.CreatedAt,
		UpdatedAt:        m.UpdatedAt,
	}
}

// PricingSettingsModelFromDomain converts a domain TenantConfiguration to a persistence model
func PricingSettingsModelFromDomain(c *pricing.TenantConfiguration, now time.Time) *PricingSettingsModel {
	m := &PricingSettingsModel{
		BaseModel:        BaseModel{ID: c.ID, CreatedAt: c.CreatedAt},
		Shop:             c.Shop,
		DiscountRate:     toNull(c.DiscountRate),
		ShippingCost:     toNull(c.ShippingCost),
		TaxRate:          toNull(c.TaxRate),
		NormalMultiplier: toNull(c.NormalMultiplier),
		OOAKMultiplier:   toNull(c.OOAKMultiplier),
		MarkupRate:       toNull(c.MarkupRate),
		HourlyRate:       toNull(c.HourlyRate),
		DefaultRarity:    copyString(c.DefaultRarity),
	}
	m.ensureIdentity(now)
	return m
}

// ShopSessionModel is the persistence model for a shop's offline access credential
type ShopSessionModel struct {
	BaseModel
	Shop        string `gorm:"type:varchar(255);not null;uniqueIndex:idx_shop_sessions_shop"`
	AccessToken string `gorm:"type:text;not null"`
	Scope       string `gorm:"type:text"`
}

// TableName returns the table name for GORM
func (ShopSessionModel) TableName() string {
	return "shop_sessions"
}

// ToDomain converts the persistence model to a domain Credential
func (m *ShopSessionModel) ToDomain() *integration.Credential {
	return &integration.Credential{
		ID:          m.ID,
		Shop:        m.Shop,
		AccessToken: m.AccessToken,
		Scope:       m.Scope,
		CreatedAt:   m.CreatedAt,
		UpdatedAt:   m.UpdatedAt,
	}
}

// ShopSessionModelFromDomain converts a domain Credential to a persistence model
func ShopSessionModelFromDomain(c *integration.Credential, now time.Time) *ShopSessionModel {
	m := &ShopSessionModel{
		BaseModel:   BaseModel{ID: c.ID, CreatedAt: c.CreatedAt},
		Shop:        c.Shop,
		AccessToken: c.AccessToken,
		Scope:       c.Scope,
	}
	m.ensureIdentity(now)
	return m
}

func toNull(d *decimal.Decimal) decimal.NullDecimal {
	if d == nil {
		return decimal.NullDecimal{}
	}
	return decimal.NewNullDecimal(*d)
}

func fromNull(n decimal.NullDecimal) *decimal.Decimal {
	if !n.Valid {
		return nil
	}
	d := n.Decimal
	return &d
}

func copyString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}
