package ecommerce

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"
)

// DefaultShopifyAPIVersion is the Admin API version used when none is configured
const DefaultShopifyAPIVersion = "2024-10"

// ShopifyConfig holds the Admin API settings shared by every shop
type ShopifyConfig struct {
	// APIVersion is the dated Admin API version, e.g. 2024-10
	APIVersion string
	// Timeout bounds every request
	Timeout time.Duration
	// BaseURL replaces https://<shop> when set. Used against mock servers.
	BaseURL string
}

// Errors for Shopify configuration
var (
	ErrShopifyConfigInvalidBaseURL = errors.New("shopify: base URL must be absolute")
	ErrShopifyMissingShop          = errors.New("shopify: shop domain is required")
)

// NewShopifyConfig creates a configuration with defaults
func NewShopifyConfig() *ShopifyConfig {
	return &ShopifyConfig{
		APIVersion: DefaultShopifyAPIVersion,
		Timeout:    30 * time.Second,
	}
}

// Validate fills defaults and checks the base URL override
func (c *ShopifyConfig) Validate() error {
	if c.APIVersion == "" {
		c.APIVersion = DefaultShopifyAPIVersion
	}
	if c.Timeout <= 0 {
		c.Timeout = 30 * time.Second
	}
	if c.BaseURL != "" {
		u, err := url.Parse(c.BaseURL)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return ErrShopifyConfigInvalidBaseURL
		}
		c.BaseURL = strings.TrimRight(c.BaseURL, "/")
	}
	return nil
}

// GraphQLEndpoint returns the Admin GraphQL endpoint of shop
func (c *ShopifyConfig) GraphQLEndpoint(shop string) (string, error) {
	base := c.BaseURL
	if base == "" {
		shop = strings.TrimSpace(shop)
		if shop == "" {
			return "", ErrShopifyMissingShop
		}
		base = "https://" + shop
	}
	return fmt.Sprintf("%s/admin/api/%s/graphql.json", base, c.APIVersion), nil
}
