package service

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// TokenProfile selects the secret and TTL used to sign or verify a token.
type TokenProfile string

const (
	AccessTokenProfile  TokenProfile = "access"
	RefreshTokenProfile TokenProfile = "refresh"
)

// String returns the string representation of the TokenProfile.
func (p TokenProfile) String() string {
	return string(p)
}

// Claims defines the custom claims for the JWT tokens.
type Claims struct {
	AccountID uuid.UUID `json:"accountId"`
	Email     string    `json:"email"`
	Roles     []string  `json:"roles"`
	Type      string    `json:"type"`
	jwt.RegisteredClaims
}

// NewClaims builds the shared claim set for an account.
func NewClaims(accountID uuid.UUID, email string, roles []string) *Claims {
	return &Claims{
		AccountID: accountID,
		Email:     email,
		Roles:     roles,
	}
}

// ExpiresAtTime returns the expiry time, or the zero time when unset.
func (c *Claims) ExpiresAtTime() time.Time {
	if c.ExpiresAt == nil {
		return time.Time{}
	}

	return c.ExpiresAt.Time
}

// TokenService defines the interface for signing and verifying JWTs.
// Each profile has its own secret, so a token signed for one profile never verifies under the other.
type TokenService interface {
	// Sign returns a token for the claims under the profile. The caller's claims are not modified.
	Sign(claims *Claims, profile TokenProfile) (token string, expiresAt time.Time, err error)

	// Verify parses and validates a token under the profile.
	Verify(token string, profile TokenProfile) (*Claims, error)
}
