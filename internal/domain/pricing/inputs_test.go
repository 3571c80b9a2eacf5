package pricing

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseItemCostInputs(t *testing.T) {
	t.Run("plain decimals", func(t *testing.T) {
		in, err := ParseItemCostInputs(map[string]string{
			KeyMaterialCosts: "12.50",
			KeyHoursWorked:   "1.5",
			KeyRarity:        "ooak",
		})
		require.NoError(t, err)
		assert.True(t, in.MaterialCost.Equal(decimal.RequireFromString("12.5")))
		assert.True(t, in.HoursWorked.Equal(decimal.RequireFromString("1.5")))
		assert.Equal(t, RarityOOAK, in.Rarity)
	})

	t.Run("money json material cost", func(t *testing.T) {
		in, err := ParseItemCostInputs(map[string]string{
			KeyMaterialCosts: `{"amount":"7.25","currency_code":"EUR"}`,
			KeyHoursWorked:   "2",
		})
		require.NoError(t, err)
		assert.True(t, in.MaterialCost.Equal(decimal.RequireFromString("7.25")))
	})

	t.Run("missing rarity defaults to normal", func(t *testing.T) {
		in, err := ParseItemCostInputs(map[string]string{
			KeyMaterialCosts: "1",
			KeyHoursWorked:   "1",
		})
		require.NoError(t, err)
		assert.Equal(t, RarityNormal, in.Rarity)
	})

	t.Run("both inputs missing are reported together", func(t *testing.T) {
		_, err := ParseItemCostInputs(map[string]string{KeyRarity: "OOAK"})
		require.ErrorIs(t, err, ErrRequiredInputAbsent)
		assert.Contains(t, err.Error(), KeyMaterialCosts)
		assert.Contains(t, err.Error(), KeyHoursWorked)
	})

	t.Run("nil attributes", func(t *testing.T) {
		_, err := ParseItemCostInputs(nil)
		assert.ErrorIs(t, err, ErrRequiredInputAbsent)
	})

	t.Run("broken money json", func(t *testing.T) {
		_, err := ParseItemCostInputs(map[string]string{
			KeyMaterialCosts: `{"amount":`,
			KeyHoursWorked:   "1",
		})
		assert.ErrorIs(t, err, ErrMalformedInput)
	})

	t.Run("money json without amount", func(t *testing.T) {
		_, err := ParseItemCostInputs(map[string]string{
			KeyMaterialCosts: `{"currency_code":"USD"}`,
			KeyHoursWorked:   "1",
		})
		assert.ErrorIs(t, err, ErrMalformedInput)
	})
}
