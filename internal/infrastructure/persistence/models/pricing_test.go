package models

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pricesync/backend/internal/domain/integration"
	"github.com/pricesync/backend/internal/domain/pricing"
)

func TestPricingSettingsModel_RoundTrip(t *testing.T) {
	tax := decimal.RequireFromString("21.5")
	rarity := "OOAK"
	cfg := &pricing.TenantConfiguration{
		Shop:          "crafts.myshopify.com",
		TaxRate:       &tax,
		DefaultRarity: &rarity,
	}
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	m := PricingSettingsModelFromDomain(cfg, now)

	assert.NotEqual(t, uuid.Nil, m.ID)
	assert.Equal(t, now, m.CreatedAt)
	assert.Equal(t, now, m.UpdatedAt)
	assert.True(t, m.TaxRate.Valid)
	assert.False(t, m.DiscountRate.Valid)

	back := m.ToDomain()
	require.NotNil(t, back.TaxRate)
	assert.True(t, back.TaxRate.Equal(tax))
	assert.Nil(t, back.DiscountRate)
	assert.Nil(t, back.HourlyRate)
	require.NotNil(t, back.DefaultRarity)
	assert.Equal(t, "OOAK", *back.DefaultRarity)

	rarity = "NORMAL"
	assert.Equal(t, "OOAK", *back.DefaultRarity)
}

func TestPricingSettingsModel_KeepsIdentity(t *testing.T) {
	id := uuid.New()
	created := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	now := created.Add(time.Hour)

	m := PricingSettingsModelFromDomain(&pricing.TenantConfiguration{ID: id, Shop: "s", CreatedAt: created}, now)

	assert.Equal(t, id, m.ID)
	assert.Equal(t, created, m.CreatedAt)
	assert.Equal(t, now, m.UpdatedAt)
	assert.Equal(t, "pricing_settings", m.TableName())
}

func TestShopSessionModel_RoundTrip(t *testing.T) {
	m := ShopSessionModelFromDomain(&integration.Credential{
		Shop:        "crafts.myshopify.com",
		AccessToken: "shpat_abc",
		Scope:       "read_products,write_products",
	}, time.Now())

	c := m.ToDomain()
	assert.True(t, c.IsUsable())
	assert.Equal(t, m.ID, c.ID)
	assert.Equal(t, "read_products,write_products", c.Scope)
	assert.Equal(t, "shop_sessions", m.TableName())
}
