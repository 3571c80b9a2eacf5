package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pricesync/backend/internal/infrastructure/config"
)

const testShop = "crafts.myshopify.com"

func newTestSessionTokenService() *SessionTokenService {
	return NewSessionTokenService(config.ShopifyConfig{
		APIKey:    "app-client-id",
		APISecret: "test-secret-key-at-least-32-chars",
	})
}

func TestSessionTokenService_RoundTrip(t *testing.T) {
	svc := newTestSessionTokenService()

	token, err := svc.Generate(GenerateInput{Shop: testShop, UserID: "42", Session: "sid-1"})
	require.NoError(t, err)

	claims, err := svc.Validate(token)
	require.NoError(t, err)
	assert.Equal(t, testShop, claims.Shop())
	assert.Equal(t, "42", claims.Subject)
	assert.Equal(t, "sid-1", claims.SID)
}

func TestSessionTokenService_Expired(t *testing.T) {
	svc := newTestSessionTokenService()
	issued := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return issued }

	token, err := svc.Generate(GenerateInput{Shop: testShop, TTL: time.Minute})
	require.NoError(t, err)

	svc.now = func() time.Time { return issued.Add(time.Minute + 10*time.Second) }
	_, err = svc.Validate(token)
	assert.ErrorIs(t, err, ErrExpiredToken)

	svc.now = func() time.Time { return issued.Add(time.Minute + 2*time.Second) }
	_, err = svc.Validate(token)
	assert.NoError(t, err, "within leeway")
}

func TestSessionTokenService_NotYetValid(t *testing.T) {
	svc := newTestSessionTokenService()
	issued := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return issued }

	token, err := svc.Generate(GenerateInput{Shop: testShop})
	require.NoError(t, err)

	svc.now = func() time.Time { return issued.Add(-time.Minute) }
	_, err = svc.Validate(token)
	assert.ErrorIs(t, err, ErrTokenNotYetValid)
}

func TestSessionTokenService_WrongSecret(t *testing.T) {
	other := NewSessionTokenService(config.ShopifyConfig{APIKey: "app-client-id", APISecret: "another-secret"})
	token, err := other.Generate(GenerateInput{Shop: testShop})
	require.NoError(t, err)

	_, err = newTestSessionTokenService().Validate(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestSessionTokenService_WrongAudience(t *testing.T) {
	other := NewSessionTokenService(config.ShopifyConfig{APIKey: "someone-else", APISecret: "test-secret-key-at-least-32-chars"})
	token, err := other.Generate(GenerateInput{Shop: testShop})
	require.NoError(t, err)

	_, err = newTestSessionTokenService().Validate(token)
	assert.ErrorIs(t, err, ErrInvalidClaims)
}

func TestSessionTokenService_RejectsOtherAlgorithms(t *testing.T) {
	claims := &SessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "https://" + testShop + "/admin",
			Audience:  jwt.ClaimStrings{"app-client-id"},
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Minute)),
		},
		Dest: "https://" + testShop,
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = newTestSessionTokenService().Validate(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestSessionTokenService_ShopClaims(t *testing.T) {
	svc := newTestSessionTokenService()
	sign := func(iss, dest string) string {
		claims := &SessionClaims{
			RegisteredClaims: jwt.RegisteredClaims{
				Issuer:    iss,
				Audience:  jwt.ClaimStrings{"app-client-id"},
				ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Minute)),
			},
			Dest: dest,
		}
		token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(svc.secret)
		require.NoError(t, err)
		return token
	}

	_, err := svc.Validate(sign("https://crafts.myshopify.com/admin", ""))
	assert.ErrorIs(t, err, ErrMissingShop)

	_, err = svc.Validate(sign("https://crafts.myshopify.com/admin", "http://crafts.myshopify.com"))
	assert.ErrorIs(t, err, ErrMissingShop)

	_, err = svc.Validate(sign("https://evil.myshopify.com/admin", "https://crafts.myshopify.com"))
	assert.ErrorIs(t, err, ErrShopMismatch)

	claims, err := svc.Validate(sign("https://Crafts.myshopify.com/admin", "https://Crafts.myshopify.com"))
	require.NoError(t, err)
	assert.Equal(t, testShop, claims.Shop())
}

func TestSessionTokenService_MissingSecret(t *testing.T) {
	svc := NewSessionTokenService(config.ShopifyConfig{})

	_, err := svc.Generate(GenerateInput{Shop: testShop})
	assert.ErrorIs(t, err, ErrMissingSecret)

	_, err = svc.Validate("a.b.c")
	assert.ErrorIs(t, err, ErrMissingSecret)
}
