package ecommerce

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/pricesync/backend/internal/domain/integration"
)

const (
	// maxShopifyResponseSize limits the response body size to prevent memory exhaustion
	maxShopifyResponseSize = 4 * 1024 * 1024
	// shopifyAccessTokenHeader carries the offline access token
	shopifyAccessTokenHeader = "X-Shopify-Access-Token"
)

// ShopifyAdapter implements integration.CatalogPlatform over the Shopify Admin GraphQL API.
// Item attributes are product metafields.
type ShopifyAdapter struct {
	config     *ShopifyConfig
	httpClient *http.Client
	logger     *zap.Logger
}

// ShopifyAdapterOption is a functional option for the adapter
type ShopifyAdapterOption func(*ShopifyAdapter)

// WithHTTPClient replaces the default HTTP client
func WithHTTPClient(client *http.Client) ShopifyAdapterOption {
	return func(a *ShopifyAdapter) {
		a.httpClient = client
	}
}

// WithAdapterLogger sets the logger for the adapter
func WithAdapterLogger(logger *zap.Logger) ShopifyAdapterOption {
	return func(a *ShopifyAdapter) {
		a.logger = logger
	}
}

// NewShopifyAdapter creates a new Shopify adapter with the given configuration
func NewShopifyAdapter(config *ShopifyConfig, opts ...ShopifyAdapterOption) (*ShopifyAdapter, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	a := &ShopifyAdapter{
		config:     config,
		httpClient: &http.Client{Timeout: config.Timeout},
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a, nil
}

// ReadAttributes returns every metafield of the item in namespace as key to value.
// A product unknown to the shop is reported as integration.ErrItemNotFound.
func (a *ShopifyAdapter) ReadAttributes(ctx context.Context, cred *integration.Credential, itemRef, namespace string) (map[string]string, error) {
	gid, err := productGID(itemRef)
	if err != nil {
		return nil, err
	}

	var data ShopifyProductMetafieldsData
	err = a.execute(ctx, cred, GraphQLRequest{
		Query: readMetafieldsQuery,
		Variables: map[string]any{
			"id":        gid,
			"namespace": namespace,
		},
	}, &data)
	if err != nil {
		return nil, err
	}
	if data.Product == nil {
		return nil, fmt.Errorf("%w: %s", integration.ErrItemNotFound, gid)
	}

	attrs := make(map[string]string, len(data.Product.Metafields.Nodes))
	for _, mf := range data.Product.Metafields.Nodes {
		attrs[mf.Key] = mf.Value
	}
	return attrs, nil
}

// WriteAttributes sets every attribute of the batch in one metafieldsSet mutation.
// User errors are reported per field in the result, never as an error.
func (a *ShopifyAdapter) WriteAttributes(ctx context.Context, cred *integration.Credential, attrs []integration.AttributeInput) (*integration.WriteResult, error) {
	if len(attrs) == 0 {
		return &integration.WriteResult{}, nil
	}

	inputs := make([]ShopifyMetafieldsSetInput, 0, len(attrs))
	for _, attr := range attrs {
		if err := attr.Validate(); err != nil {
			return nil, err
		}
		gid, err := productGID(attr.OwnerID)
		if err != nil {
			return nil, err
		}
		inputs = append(inputs, ShopifyMetafieldsSetInput{
			OwnerID:   gid,
			Namespace: attr.Namespace,
			Key:       attr.Key,
			Value:     attr.Value,
			Type:      attr.Type.String(),
		})
	}

	var data ShopifyMetafieldsSetData
	err := a.execute(ctx, cred, GraphQLRequest{
		Query:     metafieldsSetMutation,
		Variables: map[string]any{"metafields": inputs},
	}, &data)
	if err != nil {
		return nil, err
	}
	if data.MetafieldsSet == nil {
		return nil, fmt.Errorf("%w: metafieldsSet payload missing", integration.ErrPlatformInvalidResponse)
	}

	result := &integration.WriteResult{
		Written:  make([]string, 0, len(data.MetafieldsSet.Metafields)),
		Rejected: make([]integration.FieldRejection, 0, len(data.MetafieldsSet.UserErrors)),
	}
	for _, mf := range data.MetafieldsSet.Metafields {
		result.Written = append(result.Written, mf.Key)
	}
	for _, ue := range data.MetafieldsSet.UserErrors {
		result.Rejected = append(result.Rejected, integration.FieldRejection{
			Field:   rejectedField(ue.Field, inputs),
			Message: ue.Message,
		})
	}
	if result.HasRejections() {
		a.logger.Debug("metafieldsSet returned user errors",
			zap.String("shop", cred.Shop),
			zap.Int("rejected", len(result.Rejected)))
	}
	return result, nil
}

// execute posts req and decodes the data member into out
func (a *ShopifyAdapter) execute(ctx context.Context, cred *integration.Credential, req GraphQLRequest, out any) error {
	if !cred.IsUsable() {
		return fmt.Errorf("%w: missing shop credential", integration.ErrPlatformAuthFailed)
	}
	endpoint, err := a.config.GraphQLEndpoint(cred.Shop)
	if err != nil {
		return err
	}

	bodyBytes, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("shopify: failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(bodyBytes))
	if err != nil {
		return fmt.Errorf("shopify: failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set(shopifyAccessTokenHeader, cred.AccessToken)

	resp, err := a.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("%w: %v", integration.ErrPlatformUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxShopifyResponseSize))
	if err != nil {
		return fmt.Errorf("%w: failed to read response: %v", integration.ErrPlatformUnavailable, err)
	}

	if err := statusError(resp.StatusCode); err != nil {
		a.logger.Warn("shopify request failed",
			zap.String("shop", cred.Shop),
			zap.Int("status", resp.StatusCode))
		return err
	}

	var envelope GraphQLResponse
	if err := json.Unmarshal(body, &envelope); err != nil {
		return fmt.Errorf("%w: %v", integration.ErrPlatformInvalidResponse, err)
	}
	if !envelope.IsSuccess() {
		if isThrottled(envelope.Errors) {
			return fmt.Errorf("%w: %s", integration.ErrPlatformRateLimited, envelope.FirstError())
		}
		return fmt.Errorf("%w: %s", integration.ErrPlatformRequestFailed, envelope.FirstError())
	}
	if len(envelope.Data) == 0 || string(envelope.Data) == "null" {
		return fmt.Errorf("%w: empty data", integration.ErrPlatformInvalidResponse)
	}
	if err := json.Unmarshal(envelope.Data, out); err != nil {
		return fmt.Errorf("%w: %v", integration.ErrPlatformInvalidResponse, err)
	}
	return nil
}

// statusError maps an HTTP status to a platform error
func statusError(status int) error {
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return fmt.Errorf("%w: HTTP %d", integration.ErrPlatformAuthFailed, status)
	case status == http.StatusTooManyRequests:
		return fmt.Errorf("%w: HTTP %d", integration.ErrPlatformRateLimited, status)
	case status >= 500:
		return fmt.Errorf("%w: HTTP %d", integration.ErrPlatformUnavailable, status)
	case status >= 400:
		return fmt.Errorf("%w: HTTP %d", integration.ErrPlatformRequestFailed, status)
	default:
		return nil
	}
}

func isThrottled(errs []GraphQLError) bool {
	for _, e := range errs {
		if code, ok := e.Extensions["code"].(string); ok && code == "THROTTLED" {
			return true
		}
	}
	return false
}

// productGID translates item/<id> to gid://shopify/Product/<id>
func productGID(itemRef string) (string, error) {
	id, err := integration.ParseItemReference(itemRef)
	if err != nil {
		return "", err
	}
	return ProductGIDPrefix + strconv.FormatInt(id, 10), nil
}

// rejectedField resolves a user error path like ["metafields","2","value"] to the key of input 2
func rejectedField(path []string, inputs []ShopifyMetafieldsSetInput) string {
	if len(path) >= 2 && path[0] == "metafields" {
		if i, err := strconv.Atoi(path[1]); err == nil && i >= 0 && i < len(inputs) {
			return inputs[i].Key
		}
	}
	return strings.Join(path, ".")
}

var _ integration.CatalogPlatform = (*ShopifyAdapter)(nil)
