package ecommerce

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pricesync/backend/internal/domain/integration"
	"github.com/pricesync/backend/internal/domain/pricing"
)

const testShop = "crafts.myshopify.com"

func testCredential() *integration.Credential {
	return &integration.Credential{Shop: testShop, AccessToken: "shpat_test"}
}

// createMockShopifyServer creates a mock GraphQL endpoint that checks the common request shape
func createMockShopifyServer(t *testing.T, handler func(w http.ResponseWriter, req GraphQLRequest)) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/admin/api/2024-10/graphql.json", r.URL.Path)
		assert.Equal(t, "shpat_test", r.Header.Get("X-Shopify-Access-Token"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		raw, err := io.ReadAll(r.Body)
		assert.NoError(t, err)
		var req GraphQLRequest
		assert.NoError(t, json.Unmarshal(raw, &req))

		w.Header().Set("Content-Type", "application/json")
		handler(w, req)
	}))
}

func createTestAdapter(t *testing.T, baseURL string) *ShopifyAdapter {
	adapter, err := NewShopifyAdapter(&ShopifyConfig{BaseURL: baseURL, Timeout: 2 * time.Second})
	require.NoError(t, err)
	return adapter
}

// ---------------------------------------------------------------------------
// Config Tests
// ---------------------------------------------------------------------------

func TestShopifyConfig_Validate(t *testing.T) {
	t.Run("fills defaults", func(t *testing.T) {
		cfg := &ShopifyConfig{}
		require.NoError(t, cfg.Validate())
		assert.Equal(t, DefaultShopifyAPIVersion, cfg.APIVersion)
		assert.Equal(t, 30*time.Second, cfg.Timeout)
	})

	t.Run("rejects relative base URL", func(t *testing.T) {
		cfg := &ShopifyConfig{BaseURL: "/local"}
		assert.ErrorIs(t, cfg.Validate(), ErrShopifyConfigInvalidBaseURL)
	})
}

func TestShopifyConfig_GraphQLEndpoint(t *testing.T) {
	cfg := NewShopifyConfig()

	endpoint, err := cfg.GraphQLEndpoint(testShop)
	require.NoError(t, err)
	assert.Equal(t, "https://crafts.myshopify.com/admin/api/2024-10/graphql.json", endpoint)

	_, err = cfg.GraphQLEndpoint(" ")
	assert.ErrorIs(t, err, ErrShopifyMissingShop)

	cfg.BaseURL = "http://127.0.0.1:9000"
	endpoint, err = cfg.GraphQLEndpoint(testShop)
	require.NoError(t, err)
	assert.Equal(t, "http://127.0.0.1:9000/admin/api/2024-10/graphql.json", endpoint)
}

// ---------------------------------------------------------------------------
// ReadAttributes Tests
// ---------------------------------------------------------------------------

func TestShopifyAdapter_ReadAttributes(t *testing.T) {
	t.Run("returns metafields by key", func(t *testing.T) {
		server := createMockShopifyServer(t, func(w http.ResponseWriter, req GraphQLRequest) {
			assert.Contains(t, req.Query, "metafields(first: 50, namespace: $namespace)")
			assert.Equal(t, "gid://shopify/Product/632910392", req.Variables["id"])
			assert.Equal(t, "custom", req.Variables["namespace"])

			_, _ = w.Write([]byte(`{"data":{"product":{"id":"gid://shopify/Product/632910392","metafields":{"nodes":[
				{"key":"material_costs","value":"{\"amount\":\"10.00\",\"currency_code\":\"USD\"}","type":"money"},
				{"key":"hours_worked","value":"2","type":"number_decimal"},
				{"key":"rarity","value":"OOAK","type":"single_line_text_field"}
			]}}}}`))
		})
		defer server.Close()

		attrs, err := createTestAdapter(t, server.URL).ReadAttributes(context.Background(), testCredential(), "item/632910392", pricing.Namespace)

		require.NoError(t, err)
		assert.Len(t, attrs, 3)
		assert.Equal(t, "2", attrs["hours_worked"])
		assert.Equal(t, "OOAK", attrs["rarity"])
	})

	t.Run("null product is item not found", func(t *testing.T) {
		server := createMockShopifyServer(t, func(w http.ResponseWriter, _ GraphQLRequest) {
			_, _ = w.Write([]byte(`{"data":{"product":null}}`))
		})
		defer server.Close()

		_, err := createTestAdapter(t, server.URL).ReadAttributes(context.Background(), testCredential(), "item/1", pricing.Namespace)

		assert.ErrorIs(t, err, integration.ErrItemNotFound)
	})

	t.Run("invalid reference is rejected before any call", func(t *testing.T) {
		adapter := createTestAdapter(t, "http://127.0.0.1:1")

		_, err := adapter.ReadAttributes(context.Background(), testCredential(), "gid://shopify/Product/1", pricing.Namespace)

		assert.ErrorIs(t, err, integration.ErrInvalidItemReference)
	})

	t.Run("unusable credential", func(t *testing.T) {
		adapter := createTestAdapter(t, "http://127.0.0.1:1")

		_, err := adapter.ReadAttributes(context.Background(), &integration.Credential{Shop: testShop}, "item/1", pricing.Namespace)

		assert.ErrorIs(t, err, integration.ErrPlatformAuthFailed)
	})
}

func TestShopifyAdapter_ErrorMapping(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantErr error
	}{
		{"unauthorized", http.StatusUnauthorized, `{"errors":"[API] Invalid API key or access token"}`, integration.ErrPlatformAuthFailed},
		{"forbidden", http.StatusForbidden, ``, integration.ErrPlatformAuthFailed},
		{"rate limited", http.StatusTooManyRequests, ``, integration.ErrPlatformRateLimited},
		{"bad request", http.StatusBadRequest, ``, integration.ErrPlatformRequestFailed},
		{"server error", http.StatusBadGateway, ``, integration.ErrPlatformUnavailable},
		{"graphql errors", http.StatusOK, `{"errors":[{"message":"Field 'produc' doesn't exist"}]}`, integration.ErrPlatformRequestFailed},
		{"throttled", http.StatusOK, `{"errors":[{"message":"Throttled","extensions":{"code":"THROTTLED"}}]}`, integration.ErrPlatformRateLimited},
		{"not json", http.StatusOK, `<html>`, integration.ErrPlatformInvalidResponse},
		{"null data", http.StatusOK, `{"data":null}`, integration.ErrPlatformInvalidResponse},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer server.Close()

			_, err := createTestAdapter(t, server.URL).ReadAttributes(context.Background(), testCredential(), "item/1", pricing.Namespace)

			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestShopifyAdapter_NetworkFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	url := server.URL
	server.Close()

	_, err := createTestAdapter(t, url).ReadAttributes(context.Background(), testCredential(), "item/1", pricing.Namespace)

	assert.ErrorIs(t, err, integration.ErrPlatformUnavailable)
}

// ---------------------------------------------------------------------------
// WriteAttributes Tests
// ---------------------------------------------------------------------------

func derivedInputs() []integration.AttributeInput {
	return integration.NewAttributeInputs("item/632910392", pricing.Namespace, []pricing.AttributeValue{
		{Key: pricing.KeyTotalCost, Value: "40.00", Type: pricing.AttributeTypeDecimal},
		{Key: pricing.KeySalePrice, Value: "92.38", Type: pricing.AttributeTypeDecimal},
		{Key: pricing.KeyPlatformFee, Value: "7.40", Type: pricing.AttributeTypeDecimal},
		{Key: pricing.KeyMarketPrice, Value: "50.40", Type: pricing.AttributeTypeDecimal},
	})
}

func TestShopifyAdapter_WriteAttributes(t *testing.T) {
	t.Run("sends one batched mutation", func(t *testing.T) {
		calls := 0
		server := createMockShopifyServer(t, func(w http.ResponseWriter, req GraphQLRequest) {
			calls++
			assert.Contains(t, req.Query, "metafieldsSet")
			metafields, _ := req.Variables["metafields"].([]any)
			if !assert.Len(t, metafields, 4) {
				return
			}
			first, _ := metafields[0].(map[string]any)
			assert.Equal(t, "gid://shopify/Product/632910392", first["ownerId"])
			assert.Equal(t, "custom", first["namespace"])
			assert.Equal(t, "total_cost", first["key"])
			assert.Equal(t, "40.00", first["value"])
			assert.Equal(t, "number_decimal", first["type"])

			_, _ = w.Write([]byte(`{"data":{"metafieldsSet":{"metafields":[
				{"key":"total_cost","namespace":"custom","value":"40.00"},
				{"key":"etsy_price","namespace":"custom","value":"92.38"},
				{"key":"etsy_fees","namespace":"custom","value":"7.40"},
				{"key":"market_price","namespace":"custom","value":"50.40"}
			],"userErrors":[]}}}`))
		})
		defer server.Close()

		result, err := createTestAdapter(t, server.URL).WriteAttributes(context.Background(), testCredential(), derivedInputs())

		require.NoError(t, err)
		assert.Equal(t, 1, calls)
		assert.Equal(t, []string{"total_cost", "etsy_price", "etsy_fees", "market_price"}, result.Written)
		assert.False(t, result.HasRejections())
	})

	t.Run("user errors become field rejections", func(t *testing.T) {
		server := createMockShopifyServer(t, func(w http.ResponseWriter, _ GraphQLRequest) {
			_, _ = w.Write([]byte(`{"data":{"metafieldsSet":{"metafields":[],"userErrors":[
				{"field":["metafields","1","value"],"message":"Value must be a decimal","code":"INVALID_VALUE"},
				{"field":["metafields"],"message":"Owner is locked","code":"LOCKED"}
			]}}}`))
		})
		defer server.Close()

		result, err := createTestAdapter(t, server.URL).WriteAttributes(context.Background(), testCredential(), derivedInputs())

		require.NoError(t, err)
		require.Len(t, result.Rejected, 2)
		assert.Equal(t, "etsy_price", result.Rejected[0].Field)
		assert.Equal(t, "Value must be a decimal", result.Rejected[0].Message)
		assert.Equal(t, "metafields", result.Rejected[1].Field)
	})

	t.Run("empty batch makes no call", func(t *testing.T) {
		adapter := createTestAdapter(t, "http://127.0.0.1:1")

		result, err := adapter.WriteAttributes(context.Background(), testCredential(), nil)

		require.NoError(t, err)
		assert.Empty(t, result.Written)
	})

	t.Run("invalid input is rejected before any call", func(t *testing.T) {
		adapter := createTestAdapter(t, "http://127.0.0.1:1")
		inputs := derivedInputs()
		inputs[0].Type = "json"

		_, err := adapter.WriteAttributes(context.Background(), testCredential(), inputs)

		assert.ErrorIs(t, err, integration.ErrInvalidAttribute)
	})

	t.Run("missing payload", func(t *testing.T) {
		server := createMockShopifyServer(t, func(w http.ResponseWriter, _ GraphQLRequest) {
			_, _ = w.Write([]byte(`{"data":{"metafieldsSet":null}}`))
		})
		defer server.Close()

		_, err := createTestAdapter(t, server.URL).WriteAttributes(context.Background(), testCredential(), derivedInputs())

		assert.ErrorIs(t, err, integration.ErrPlatformInvalidResponse)
	})
}

// ---------------------------------------------------------------------------
// Webhook verification Tests
// ---------------------------------------------------------------------------

func TestHMACVerifier(t *testing.T) {
	_, err := NewHMACVerifier("")
	require.ErrorIs(t, err, ErrShopifyMissingWebhookSecret)

	verifier, err := NewHMACVerifier("hush")
	require.NoError(t, err)
	body := []byte(`{"id":632910392}`)

	assert.NoError(t, verifier.Verify(body, verifier.Sign(body)))
	assert.ErrorIs(t, verifier.Verify([]byte(`{"id":1}`), verifier.Sign(body)), integration.ErrPlatformInvalidSignature)
	assert.ErrorIs(t, verifier.Verify(body, ""), integration.ErrPlatformInvalidSignature)
	assert.ErrorIs(t, verifier.Verify(body, "not base64!"), integration.ErrPlatformInvalidSignature)

	other, err := NewHMACVerifier("other")
	require.NoError(t, err)
	assert.ErrorIs(t, verifier.Verify(body, other.Sign(body)), integration.ErrPlatformInvalidSignature)
}
