package pricing

// Namespace is the attribute namespace owned by this application on catalog items
const Namespace = "custom"

// Input attribute keys, set on the item by the merchant
const (
	KeyMaterialCosts = "material_costs"
	KeyHoursWorked   = "hours_worked"
	KeyRarity        = "rarity"
)

// Derived attribute keys, written by the update pipeline
const (
	KeyTotalCost   = "total_cost"
	KeySalePrice   = "etsy_price"
	KeyPlatformFee = "etsy_fees"
	KeyMarketPrice = "market_price"
)

// Seeded attribute keys, written from the shop configuration on item creation
const (
	KeyDiscountRate     = "discount_rate"
	KeyShippingCost     = "shipping_cost"
	KeyTaxRate          = "tax_rate"
	KeyNormalMultiplier = "normal_multiplier"
	KeyOOAKMultiplier   = "ooak_multiplier"
	KeyMarkupRate       = "markup_rate"
	KeyHourlyRate       = "hourly_rate"
)

// AttributeType is the value type of an item attribute as understood by the platform
type AttributeType string

const (
	// AttributeTypeDecimal is a decimal number
	AttributeTypeDecimal AttributeType = "number_decimal"
	// AttributeTypeText is a single line of text
	AttributeTypeText AttributeType = "single_line_text_field"
)

// String returns the string representation of AttributeType
func (t AttributeType) String() string {
	return string(t)
}

// AttributeValue is a single rendered attribute in the Namespace
type AttributeValue struct {
	Key   string
	Value string
	Type  AttributeType
}
