package pricing

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var (
	// ErrConfigurationNotFound is returned by a ConfigurationRepository when the shop has no record
	ErrConfigurationNotFound = errors.New("pricing: configuration not found")
	// ErrInvalidConfiguration wraps every validation failure of a TenantConfiguration
	ErrInvalidConfiguration = errors.New("pricing: invalid configuration")
	// ErrInvalidShop is returned when a configuration is not bound to a shop
	ErrInvalidShop = errors.New("pricing: shop is required")
)

// Fallbacks applied when a configuration field is absent
var (
	DefaultNormalMultiplier = decimal.RequireFromString("1.2")
	DefaultOOAKMultiplier   = decimal.RequireFromString("2.0")
)

var hundred = decimal.NewFromInt(100)

// TenantConfiguration holds the pricing parameters of a single shop.
// Every field is optional: nil means "not configured" and is resolved to a
// fallback only at the point of use, never at storage time.
type TenantConfiguration struct {
	ID               uuid.UUID
	Shop             string
	DiscountRate     *decimal.Decimal
	ShippingCost     *decimal.Decimal
	TaxRate          *decimal.Decimal
	NormalMultiplier *decimal.Decimal
	OOAKMultiplier   *decimal.Decimal
	MarkupRate       *decimal.Decimal
	HourlyRate       *decimal.Decimal
	DefaultRarity    *string
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// NewTenantConfiguration creates an empty configuration for a shop
func NewTenantConfiguration(shop string) (*TenantConfiguration, error) {
	shop = strings.TrimSpace(shop)
	if shop == "" {
		return nil, ErrInvalidShop
	}
	now := time.Now()
	return &TenantConfiguration{
		ID:        uuid.New(),
		Shop:      shop,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// ConfigurationRepository resolves the configuration of a shop.
// Resolve returns ErrConfigurationNotFound when no record exists; it never
// synthesizes a fallback record.
type ConfigurationRepository interface {
	Resolve(ctx context.Context, shop string) (*TenantConfiguration, error)
}

// ConfigurationStore extends ConfigurationRepository with persistence used by the settings API
type ConfigurationStore interface {
	ConfigurationRepository
	Save(ctx context.Context, cfg *TenantConfiguration) error
}

// Validate checks field ranges. Absent fields are always valid.
func (c *TenantConfiguration) Validate() error {
	if strings.TrimSpace(c.Shop) == "" {
		return ErrInvalidShop
	}
	if c.DiscountRate != nil && (c.DiscountRate.IsNegative() || c.DiscountRate.GreaterThanOrEqual(hundred)) {
		return fmt.Errorf("%w: discount rate must be in [0, 100)", ErrInvalidConfiguration)
	}
	if c.TaxRate != nil && (c.TaxRate.IsNegative() || c.TaxRate.GreaterThan(hundred)) {
		return fmt.Errorf("%w: tax rate must be in [0, 100]", ErrInvalidConfiguration)
	}
	if c.MarkupRate != nil && c.MarkupRate.IsNegative() {
		return fmt.Errorf("%w: markup rate cannot be negative", ErrInvalidConfiguration)
	}
	if c.ShippingCost != nil && c.ShippingCost.IsNegative() {
		return fmt.Errorf("%w: shipping cost cannot be negative", ErrInvalidConfiguration)
	}
	if c.HourlyRate != nil && c.HourlyRate.IsNegative() {
		return fmt.Errorf("%w: hourly rate cannot be negative", ErrInvalidConfiguration)
	}
	if c.NormalMultiplier != nil && !c.NormalMultiplier.IsPositive() {
		return fmt.Errorf("%w: normal multiplier must be positive", ErrInvalidConfiguration)
	}
	if c.OOAKMultiplier != nil && !c.OOAKMultiplier.IsPositive() {
		return fmt.Errorf("%w: ooak multiplier must be positive", ErrInvalidConfiguration)
	}
	if c.DefaultRarity != nil && !IsKnownRarityLabel(*c.DefaultRarity) {
		return fmt.Errorf("%w: default rarity must be NORMAL or OOAK", ErrInvalidConfiguration)
	}
	return nil
}

// IsEmpty reports whether no field is configured
func (c *TenantConfiguration) IsEmpty() bool {
	return c == nil || len(c.SeedAttributes()) == 0
}

// Rates resolves every field to its effective value.
// A nil configuration resolves to all fallbacks.
func (c *TenantConfiguration) Rates() Rates {
	r := Rates{
		Discount:         decimal.Zero,
		Shipping:         decimal.Zero,
		Tax:              decimal.Zero,
		Markup:           decimal.Zero,
		HourlyRate:       decimal.Zero,
		NormalMultiplier: DefaultNormalMultiplier,
		OOAKMultiplier:   DefaultOOAKMultiplier,
	}
	if c == nil {
		return r
	}
	r.Discount = valueOr(c.DiscountRate, r.Discount)
	r.Shipping = valueOr(c.ShippingCost, r.Shipping)
	r.Tax = valueOr(c.TaxRate, r.Tax)
	r.Markup = valueOr(c.MarkupRate, r.Markup)
	r.HourlyRate = valueOr(c.HourlyRate, r.HourlyRate)
	r.NormalMultiplier = valueOr(c.NormalMultiplier, r.NormalMultiplier)
	r.OOAKMultiplier = valueOr(c.OOAKMultiplier, r.OOAKMultiplier)
	return r
}

// SeedAttributes returns one item attribute per configured field, values verbatim.
// Absent fields produce nothing.
func (c *TenantConfiguration) SeedAttributes() []AttributeValue {
	if c == nil {
		return nil
	}
	attrs := make([]AttributeValue, 0, 8)
	decimals := []struct {
		key   string
		value *decimal.Decimal
	}{
		{KeyDiscountRate, c.DiscountRate},
		{KeyShippingCost, c.ShippingCost},
		{KeyTaxRate, c.TaxRate},
		{KeyNormalMultiplier, c.NormalMultiplier},
		{KeyOOAKMultiplier, c.OOAKMultiplier},
		{KeyMarkupRate, c.MarkupRate},
		{KeyHourlyRate, c.HourlyRate},
	}
	for _, d := range decimals {
		if d.value == nil {
			continue
		}
		attrs = append(attrs, AttributeValue{Key: d.key, Value: d.value.String(), Type: AttributeTypeDecimal})
	}
	if c.DefaultRarity != nil {
		attrs = append(attrs, AttributeValue{Key: KeyRarity, Value: *c.DefaultRarity, Type: AttributeTypeText})
	}
	return attrs
}

// Rates is a fully resolved configuration, ready for computation
type Rates struct {
	Discount         decimal.Decimal
	Shipping         decimal.Decimal
	Tax              decimal.Decimal
	Markup           decimal.Decimal
	HourlyRate       decimal.Decimal
	NormalMultiplier decimal.Decimal
	OOAKMultiplier   decimal.Decimal
}

// Multiplier selects the rarity multiplier
func (r Rates) Multiplier(rarity Rarity) decimal.Decimal {
	if rarity == RarityOOAK {
		return r.OOAKMultiplier
	}
	return r.NormalMultiplier
}

func valueOr(v *decimal.Decimal, fallback decimal.Decimal) decimal.Decimal {
	if v == nil {
		return fallback
	}
	return *v
}
