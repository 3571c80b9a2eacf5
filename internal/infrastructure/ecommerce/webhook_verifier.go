package ecommerce

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"errors"

	"github.com/pricesync/backend/internal/domain/integration"
)

// ErrShopifyMissingWebhookSecret is returned when the verifier has no secret
var ErrShopifyMissingWebhookSecret = errors.New("shopify: webhook secret is required")

// HMACVerifier checks the X-Shopify-Hmac-Sha256 header: base64 of HMAC-SHA256 over the raw body
type HMACVerifier struct {
	secret []byte
}

// NewHMACVerifier creates a verifier for secret
func NewHMACVerifier(secret string) (*HMACVerifier, error) {
	if secret == "" {
		return nil, ErrShopifyMissingWebhookSecret
	}
	return &HMACVerifier{secret: []byte(secret)}, nil
}

// Sign returns the signature the platform sends for body
func (v *HMACVerifier) Sign(body []byte) string {
	mac := hmac.New(sha256.New, v.secret)
	mac.Write(body)
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

// Verify returns integration.ErrPlatformInvalidSignature unless signature matches body
func (v *HMACVerifier) Verify(body []byte, signature string) error {
	got, err := base64.StdEncoding.DecodeString(signature)
	if err != nil || signature == "" {
		return integration.ErrPlatformInvalidSignature
	}
	mac := hmac.New(sha256.New, v.secret)
	mac.Write(body)
	if !hmac.Equal(got, mac.Sum(nil)) {
		return integration.ErrPlatformInvalidSignature
	}
	return nil
}

var _ integration.NotificationVerifier = (*HMACVerifier)(nil)
