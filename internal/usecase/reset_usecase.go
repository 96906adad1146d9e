package usecase

import "context"

// CompleteResetInput defines the data required to finish a password reset.
type CompleteResetInput struct {
	Code        string
	NewPassword string
}

// ResetUsecase replaces a forgotten password through a mailed single-use code.
type ResetUsecase interface {
	// RequestReset issues a reset code for an existing account and mails it.
	RequestReset(ctx context.Context, email string) error

	// ValidateResetCode reports whether the code is live without consuming it.
	ValidateResetCode(ctx context.Context, code string) error

	// CompleteReset consumes the code and stores the new password for its account.
	CompleteReset(ctx context.Context, input *CompleteResetInput) error
}
