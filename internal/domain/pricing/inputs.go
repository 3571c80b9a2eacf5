package pricing

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

var (
	// ErrRequiredInputAbsent is returned when material cost or hours worked is missing on the item
	ErrRequiredInputAbsent = errors.New("pricing: required input absent")
	// ErrMalformedInput is returned when an input is present but is not a number
	ErrMalformedInput = errors.New("pricing: malformed numeric input")
)

// ItemCostInputs are the per-item values the calculator works from
type ItemCostInputs struct {
	MaterialCost decimal.Decimal
	HoursWorked  decimal.Decimal
	Rarity       Rarity
}

// moneyValue is the JSON shape of a money attribute
type moneyValue struct {
	Amount       json.Number `json:"amount"`
	CurrencyCode string      `json:"currency_code"`
}

// ParseItemCostInputs extracts cost inputs from the item's attributes in Namespace.
// Missing or blank material cost / hours worked yield ErrRequiredInputAbsent.
// A missing rarity defaults to NORMAL.
func ParseItemCostInputs(attrs map[string]string) (ItemCostInputs, error) {
	rawCost := strings.TrimSpace(attrs[KeyMaterialCosts])
	rawHours := strings.TrimSpace(attrs[KeyHoursWorked])

	var missing []string
	if rawCost == "" {
		missing = append(missing, KeyMaterialCosts)
	}
	if rawHours == "" {
		missing = append(missing, KeyHoursWorked)
	}
	if len(missing) > 0 {
		return ItemCostInputs{}, fmt.Errorf("%w: %s", ErrRequiredInputAbsent, strings.Join(missing, ", "))
	}

	cost, err := parseMoney(rawCost)
	if err != nil {
		return ItemCostInputs{}, fmt.Errorf("%w: %s=%q", ErrMalformedInput, KeyMaterialCosts, rawCost)
	}
	hours, err := decimal.NewFromString(rawHours)
	if err != nil {
		return ItemCostInputs{}, fmt.Errorf("%w: %s=%q", ErrMalformedInput, KeyHoursWorked, rawHours)
	}

	return ItemCostInputs{
		MaterialCost: cost,
		HoursWorked:  hours,
		Rarity:       ParseRarity(attrs[KeyRarity]),
	}, nil
}

// parseMoney accepts either a bare decimal or a money JSON object
func parseMoney(raw string) (decimal.Decimal, error) {
	if strings.HasPrefix(raw, "{") {
		var m moneyValue
		if err := json.Unmarshal([]byte(raw), &m); err != nil {
			return decimal.Zero, err
		}
		return decimal.NewFromString(m.Amount.String())
	}
	return decimal.NewFromString(raw)
}
