package pricing

import (
	"errors"

	"github.com/shopspring/decimal"
)

// ErrDiscountOutOfRange is returned when a stored discount rate would make the
// discount division undefined (rate >= 100)
var ErrDiscountOutOfRange = errors.New("pricing: discount rate must be below 100")

// Marketplace fee and reference-price constants
var (
	PlatformFeeRate   = decimal.RequireFromString("0.095")
	PlatformFeeFixed  = decimal.RequireFromString("0.20")
	MarketPriceFactor = decimal.RequireFromString("1.05")
)

// Breakdown keeps every unrounded intermediate of a computation
type Breakdown struct {
	Labor          decimal.Decimal
	TotalCost      decimal.Decimal
	MarkedUp       decimal.Decimal
	Multiplier     decimal.Decimal
	RarityAdjusted decimal.Decimal
	Subtotal       decimal.Decimal
	PriceWithTax   decimal.Decimal
	PlatformFee    decimal.Decimal
	SalePrice      decimal.Decimal
	MarketPrice    decimal.Decimal
}

// DerivedPricing is the result written back to the item.
// Values are unrounded; rounding happens in Attributes.
type DerivedPricing struct {
	TotalCost   decimal.Decimal
	SalePrice   decimal.Decimal
	PlatformFee decimal.Decimal
	MarketPrice decimal.Decimal
	Breakdown   Breakdown
}

// Compute derives pricing from cost inputs and a configuration.
// A nil configuration is treated as all fallbacks. The steps run in a fixed
// order on unrounded values; the reported platform fee is the pre-discount fee.
func Compute(in ItemCostInputs, cfg *TenantConfiguration) (DerivedPricing, error) {
	rates := cfg.Rates()
	if rates.Discount.GreaterThanOrEqual(hundred) {
		return DerivedPricing{}, ErrDiscountOutOfRange
	}

	var b Breakdown
	b.Multiplier = rates.Multiplier(in.Rarity)
	b.Labor = in.HoursWorked.Mul(rates.HourlyRate)
	b.TotalCost = in.MaterialCost.Add(b.Labor)
	b.MarkedUp = b.TotalCost.Mul(percentFactor(rates.Markup))
	b.RarityAdjusted = b.MarkedUp.Mul(b.Multiplier)
	b.Subtotal = b.RarityAdjusted.Add(rates.Shipping)
	b.PriceWithTax = b.Subtotal.Mul(percentFactor(rates.Tax))
	b.PlatformFee = b.PriceWithTax.Mul(PlatformFeeRate).Add(PlatformFeeFixed)
	b.SalePrice = b.PriceWithTax.Add(b.PlatformFee)
	if rates.Discount.IsPositive() {
		b.SalePrice = b.SalePrice.Div(decimal.NewFromInt(1).Sub(rates.Discount.Div(hundred)))
	}
	b.MarketPrice = b.TotalCost.Mul(MarketPriceFactor).Mul(b.Multiplier)

	return DerivedPricing{
		TotalCost:   b.TotalCost,
		SalePrice:   b.SalePrice,
		PlatformFee: b.PlatformFee,
		MarketPrice: b.MarketPrice,
		Breakdown:   b,
	}, nil
}

// Calculate parses raw inputs and computes. It fails on malformed numbers only
// (and on an out-of-range stored discount).
func Calculate(materialCost, hoursWorked, rarity string, cfg *TenantConfiguration) (DerivedPricing, error) {
	in, err := ParseItemCostInputs(map[string]string{
		KeyMaterialCosts: materialCost,
		KeyHoursWorked:   hoursWorked,
		KeyRarity:        rarity,
	})
	if err != nil {
		return DerivedPricing{}, err
	}
	return Compute(in, cfg)
}

// Attributes renders the four derived attributes with two decimal places
func (d DerivedPricing) Attributes() []AttributeValue {
	return []AttributeValue{
		{Key: KeyTotalCost, Value: d.TotalCost.StringFixed(2), Type: AttributeTypeDecimal},
		{Key: KeySalePrice, Value: d.SalePrice.StringFixed(2), Type: AttributeTypeDecimal},
		{Key: KeyPlatformFee, Value: d.PlatformFee.StringFixed(2), Type: AttributeTypeDecimal},
		{Key: KeyMarketPrice, Value: d.MarketPrice.StringFixed(2), Type: AttributeTypeDecimal},
	}
}

// percentFactor returns 1 + rate/100
func percentFactor(rate decimal.Decimal) decimal.Decimal {
	return decimal.NewFromInt(1).Add(rate.Div(hundred))
}
