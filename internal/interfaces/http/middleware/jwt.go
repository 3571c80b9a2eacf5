package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/pricesync/backend/internal/infrastructure/auth"
	"github.com/pricesync/backend/internal/infrastructure/logger"
	"github.com/pricesync/backend/internal/interfaces/http/dto"
)

// Session context keys
const (
	SessionClaimsKey = "session_claims"
	SessionShopKey   = "session_shop"
	AuthHeaderKey    = "Authorization"
	BearerPrefix     = "Bearer "
)

// SessionValidator verifies a session token and returns its claims
type SessionValidator interface {
	Validate(tokenString string) (*auth.SessionClaims, error)
}

// SessionAuthConfig holds configuration for session token middleware
type SessionAuthConfig struct {
	// Validator is required for token validation
	Validator SessionValidator
	// Optional callback if token is invalid (default: return 401)
	OnError func(c *gin.Context, err error)
	// Logger for middleware logging
	Logger *zap.Logger
}

// SessionAuth requires a verified embedded-app session token.
// The shop of the token becomes the tenant of the request.
func SessionAuth(cfg SessionAuthConfig) gin.HandlerFunc {
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}

	return func(c *gin.Context) {
		authHeader := c.GetHeader(AuthHeaderKey)
		if authHeader == "" {
			handleAuthError(c, cfg, auth.ErrInvalidToken, "Missing authorization header")
			return
		}
		if !strings.HasPrefix(authHeader, BearerPrefix) {
			handleAuthError(c, cfg, auth.ErrInvalidToken, "Invalid authorization header format")
			return
		}
		tokenString := strings.TrimSpace(strings.TrimPrefix(authHeader, BearerPrefix))
		if tokenString == "" {
			handleAuthError(c, cfg, auth.ErrInvalidToken, "Missing token")
			return
		}

		claims, err := cfg.Validator.Validate(tokenString)
		if err != nil {
			handleAuthError(c, cfg, err, "Token validation failed")
			return
		}

		shop := claims.Shop()
		c.Set(SessionClaimsKey, claims)
		c.Set(SessionShopKey, shop)
		c.Request = c.Request.WithContext(logger.WithTenant(c.Request.Context(), shop))

		cfg.Logger.Debug("Session authentication successful",
			zap.String("shop", shop),
			zap.String("sub", claims.Subject),
		)
		c.Next()
	}
}

// handleAuthError handles authentication errors
func handleAuthError(c *gin.Context, cfg SessionAuthConfig, err error, message string) {
	if cfg.OnError != nil {
		cfg.OnError(c, err)
		return
	}

	cfg.Logger.Warn("Session authentication failed",
		zap.Error(err),
		zap.String("message", message),
		zap.String("path", c.Request.URL.Path),
	)

	code := dto.ErrCodeUnauthorized
	errorMessage := "Authentication required"
	switch {
	case errors.Is(err, auth.ErrExpiredToken):
		code = dto.ErrCodeTokenExpired
		errorMessage = "Token has expired"
	case errors.Is(err, auth.ErrInvalidToken), errors.Is(err, auth.ErrInvalidClaims):
		code = dto.ErrCodeTokenInvalid
		errorMessage = "Invalid token"
	case errors.Is(err, auth.ErrTokenNotYetValid):
		code = dto.ErrCodeTokenInvalid
		errorMessage = "Token is not yet valid"
	case errors.Is(err, auth.ErrMissingShop), errors.Is(err, auth.ErrShopMismatch):
		code = dto.ErrCodeTokenInvalid
		errorMessage = "Token does not identify a shop"
	}

	c.AbortWithStatusJSON(http.StatusUnauthorized, dto.NewErrorResponseWithRequestID(code, errorMessage, GetRequestID(c)))
}

// GetSessionShop returns the shop of the verified session token
func GetSessionShop(c *gin.Context) string {
	return c.GetString(SessionShopKey)
}

// GetSessionClaims returns the verified session claims, or nil
func GetSessionClaims(c *gin.Context) *auth.SessionClaims {
	if claims, exists := c.Get(SessionClaimsKey); exists {
		if sc, ok := claims.(*auth.SessionClaims); ok {
			return sc
		}
	}
	return nil
}
