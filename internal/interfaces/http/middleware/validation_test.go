package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pricesync/backend/internal/interfaces/http/dto"
)

type settingsInput struct {
	DiscountRate  *decimal.Decimal `json:"discount_rate" binding:"omitempty,gte=0,lt=100"`
	OOAK          *decimal.Decimal `json:"ooak_multiplier" binding:"omitempty,gt=0"`
	DefaultRarity *string          `json:"default_rarity" binding:"omitempty,rarity"`
}

func TestSetupValidator(t *testing.T) {
	require.NoError(t, SetupValidator())
}

func TestRegisterValidations(t *testing.T) {
	v := validator.New()
	v.SetTagName("binding")
	RegisterValidations(v)

	rate := func(s string) *decimal.Decimal {
		d := decimal.RequireFromString(s)
		return &d
	}
	label := func(s string) *string { return &s }

	tests := []struct {
		name  string
		input settingsInput
		field string
	}{
		{"all absent", settingsInput{}, ""},
		{"discount in range", settingsInput{DiscountRate: rate("99.99")}, ""},
		{"discount of 100", settingsInput{DiscountRate: rate("100")}, "discount_rate"},
		{"negative discount", settingsInput{DiscountRate: rate("-1")}, "discount_rate"},
		{"zero multiplier", settingsInput{OOAK: rate("0")}, "ooak_multiplier"},
		{"rarity any case", settingsInput{DefaultRarity: label("ooak")}, ""},
		{"unknown rarity", settingsInput{DefaultRarity: label("RARE")}, "default_rarity"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.Struct(tt.input)
			if tt.field == "" {
				assert.NoError(t, err)
				return
			}
			var verrs validator.ValidationErrors
			require.ErrorAs(t, err, &verrs)
			assert.Equal(t, tt.field, verrs[0].Field())
		})
	}
}

func TestHandleValidationError(t *testing.T) {
	require.NoError(t, SetupValidator())

	router := gin.New()
	router.Use(RequestID())
	router.PUT("/settings", func(c *gin.Context) {
		var req settingsInput
		if err := c.ShouldBindJSON(&req); err != nil {
			HandleValidationError(c, err)
			return
		}
		c.Status(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodPut, "/settings", strings.NewReader(`{"discount_rate":"150","default_rarity":"RARE"}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(RequestIDHeader, "req-v")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusBadRequest, w.Code)

	var resp dto.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.NotNil(t, resp.Error)
	assert.Equal(t, dto.ErrCodeValidation, resp.Error.Code)
	assert.Equal(t, "req-v", resp.Error.RequestID)
	assert.Equal(t, []dto.ValidationDetail{
		{Field: "discount_rate", Message: "Must be less than 100"},
		{Field: "default_rarity", Message: "Must be one of: NORMAL OOAK"},
	}, resp.Error.Details)
}
