package auth

import (
	"errors"
	"net/url"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/pricesync/backend/internal/infrastructure/config"
)

// Common errors
var (
	ErrInvalidToken     = errors.New("invalid token")
	ErrExpiredToken     = errors.New("token has expired")
	ErrInvalidClaims    = errors.New("invalid token claims")
	ErrTokenNotYetValid = errors.New("token is not yet valid")
	ErrMissingShop      = errors.New("missing shop in dest claim")
	ErrShopMismatch     = errors.New("issuer does not belong to dest shop")
	ErrMissingSecret    = errors.New("session token secret is not configured")
)

// SessionClaims are the claims of an embedded-app session token
type SessionClaims struct {
	jwt.RegisteredClaims
	Dest string `json:"dest"`
	SID  string `json:"sid,omitempty"`
}

// Shop returns the host of the dest claim
func (c *SessionClaims) Shop() string {
	return hostOf(c.Dest)
}

// SessionTokenService verifies session tokens signed with the app's API secret.
// The shop identified by a verified token is the host of its dest claim.
type SessionTokenService struct {
	secret   []byte
	audience string
	leeway   time.Duration
	now      func() time.Time
}

// NewSessionTokenService creates a verifier from the Shopify app credentials.
// When api_key is set it must appear in the aud claim.
func NewSessionTokenService(cfg config.ShopifyConfig) *SessionTokenService {
	return &SessionTokenService{
		secret:   []byte(cfg.APISecret),
		audience: cfg.APIKey,
		leeway:   5 * time.Second,
		now:      time.Now,
	}
}

// GenerateInput contains input for token generation
type GenerateInput struct {
	Shop    string
	UserID  string
	TTL     time.Duration
	Session string
}

// Generate signs a session token the way the platform does. Used by tests and local tooling.
func (s *SessionTokenService) Generate(input GenerateInput) (string, error) {
	if len(s.secret) == 0 {
		return "", ErrMissingSecret
	}
	ttl := input.TTL
	if ttl <= 0 {
		ttl = time.Minute
	}
	now := s.now()
	claims := &SessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "https://" + input.Shop + "/admin",
			Subject:   input.UserID,
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			NotBefore: jwt.NewNumericDate(now),
			IssuedAt:  jwt.NewNumericDate(now),
		},
		Dest: "https://" + input.Shop,
		SID:  input.Session,
	}
	if s.audience != "" {
		claims.Audience = jwt.ClaimStrings{s.audience}
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
}

// Validate verifies tokenString and returns its claims
func (s *SessionTokenService) Validate(tokenString string) (*SessionClaims, error) {
	if len(s.secret) == 0 {
		return nil, ErrMissingSecret
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithLeeway(s.leeway),
		jwt.WithTimeFunc(s.now),
		jwt.WithExpirationRequired(),
	}
	if s.audience != "" {
		opts = append(opts, jwt.WithAudience(s.audience))
	}

	token, err := jwt.ParseWithClaims(tokenString, &SessionClaims{}, func(*jwt.Token) (interface{}, error) {
		return s.secret, nil
	}, opts...)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		if errors.Is(err, jwt.ErrTokenNotValidYet) {
			return nil, ErrTokenNotYetValid
		}
		if errors.Is(err, jwt.ErrTokenInvalidAudience) {
			return nil, ErrInvalidClaims
		}
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(*SessionClaims)
	if !ok || !token.Valid {
		return nil, ErrInvalidClaims
	}

	shop := claims.Shop()
	if shop == "" {
		return nil, ErrMissingShop
	}
	if hostOf(claims.Issuer) != shop {
		return nil, ErrShopMismatch
	}
	return claims, nil
}

func hostOf(raw string) string {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || u.Scheme != "https" {
		return ""
	}
	return strings.ToLower(u.Hostname())
}
