package usecase

import (
	"context"

	"identity/internal/domain/entity"
)

// VerificationUsecase proves ownership of an email address with a single-use code.
type VerificationUsecase interface {
	// RequestVerification issues a code and mails it. A delivery failure leaves the code live.
	RequestVerification(ctx context.Context, email string) error

	// CompleteVerification consumes the code and marks the owning account as validated.
	CompleteVerification(ctx context.Context, code string) (*entity.Account, error)
}
