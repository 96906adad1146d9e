// Package usecase contains the application-specific business rules.
// It orchestrates the domain layer to perform tasks.
package usecase

import (
	"context"
	"time"

	"identity/internal/domain/entity"
	"identity/internal/domain/service"

	"github.com/google/uuid"
)

// --- Input DTOs ---

// RegisterInput defines the data required to register a new account.
type RegisterInput struct {
	Email     string
	Password  string
	FirstName string
	LastName  string
}

// LoginInput defines the credential pair presented at login.
type LoginInput struct {
	Email    string
	Password string
}

// UpdatePasswordInput defines the data required to change a known password.
type UpdatePasswordInput struct {
	AccountID   uuid.UUID
	OldPassword string
	NewPassword string
}

// UpdateProfileInput carries the profile fields to change. Nil fields are left untouched.
type UpdateProfileInput struct {
	AccountID uuid.UUID
	Email     *string
	FirstName *string
	LastName  *string
	Bio       *string
}

// --- Output DTOs ---

// LoginOutput returns the token pair generated after a successful login.
type LoginOutput struct {
	AccessToken           string
	AccessTokenExpiresAt  time.Time
	RefreshToken          string
	RefreshTokenExpiresAt time.Time
	Account               *entity.Account
}

// RefreshOutput returns a freshly signed access token.
type RefreshOutput struct {
	AccessToken string
	ExpiresAt   time.Time
}

// CredentialUsecase defines password login, token refresh and credential maintenance.
type CredentialUsecase interface {
	Register(ctx context.Context, input *RegisterInput) (*entity.Account, error)
	Login(ctx context.Context, input *LoginInput) (*LoginOutput, error)

	// RefreshAccessToken reports false instead of an error when the refresh token
	// is invalid or its account is gone; callers send the user back to login.
	RefreshAccessToken(ctx context.Context, refreshToken string) (*RefreshOutput, bool)

	// Authenticate verifies an access token and reports false when it is invalid or expired.
	Authenticate(ctx context.Context, accessToken string) (*service.Claims, bool)

	UpdatePassword(ctx context.Context, input *UpdatePasswordInput) error
	Me(ctx context.Context, accountID uuid.UUID) (*entity.Account, error)
	UpdateProfile(ctx context.Context, input *UpdateProfileInput) (*entity.Account, error)
}
