// Package middleware contains the echo middleware of the HTTP delivery.
package middleware

import (
	"strings"

	deliverycontext "identity/internal/delivery/context"
	"identity/internal/delivery/http/response"
	"identity/internal/domain/service"
	"identity/internal/usecase"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

const (
	keyClaims    = "claims"
	keyAccountID = "accountID"
)

// AuthMiddleware authenticates Bearer access tokens.
type AuthMiddleware struct {
	credentials usecase.CredentialUsecase
}

// NewAuthMiddleware is the constructor for AuthMiddleware.
func NewAuthMiddleware(credentials usecase.CredentialUsecase) *AuthMiddleware {
	return &AuthMiddleware{credentials: credentials}
}

// Authenticate rejects requests without a valid access token and exposes its claims to handlers.
func (m *AuthMiddleware) Authenticate(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		authHeader := c.Request().Header.Get(echo.HeaderAuthorization)
		if authHeader == "" {
			return response.Unauthorized(c, "UNAUTHORIZED", "Authorization header is missing")
		}

		token, found := strings.CutPrefix(authHeader, "Bearer ")
		if !found || token == "" {
			return response.Unauthorized(c, "UNAUTHORIZED", "Invalid token format, must be Bearer token")
		}

		claims, ok := m.credentials.Authenticate(c.Request().Context(), token)
		if !ok {
			return response.Unauthorized(c, "UNAUTHORIZED", "Invalid or expired token")
		}

		c.Set(keyClaims, claims)
		c.Set(keyAccountID, claims.AccountID)
		c.SetRequest(c.Request().WithContext(deliverycontext.WithAccount(c.Request().Context(), claims.AccountID)))

		return next(c)
	}
}

// GetClaims returns the claims set by Authenticate.
func GetClaims(c echo.Context) (*service.Claims, bool) {
	claims, ok := c.Get(keyClaims).(*service.Claims)

	return claims, ok
}

// GetAccountID returns the authenticated account id.
func GetAccountID(c echo.Context) (uuid.UUID, bool) {
	id, ok := c.Get(keyAccountID).(uuid.UUID)

	return id, ok
}
