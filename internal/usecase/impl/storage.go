package impl

import (
	"context"
	"log/slog"
	"time"

	domainerrors "identity/internal/domain/errors"
	"identity/internal/errors"
)

// withTimeout bounds a single storage call. A non-positive timeout leaves ctx unchanged.
func withTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		return ctx, func() {}
	}

	return context.WithTimeout(ctx, timeout)
}

// internalError logs the cause and hides it behind ErrInternalError.
func internalError(ctx context.Context, logger *slog.Logger, err error, operation string) error {
	logger.ErrorContext(ctx, "Storage operation failed", slog.String("operation", operation), slog.Any("error", err))

	return errors.Wrap(domainerrors.ErrInternalError, operation)
}

// hasherError keeps the hasher's domain errors and hides anything else.
func hasherError(ctx context.Context, logger *slog.Logger, err error, operation string) error {
	if errors.IsAny(err, domainerrors.ErrHashingUnavailable, domainerrors.ErrValidationFailed) {
		return errors.Wrap(err, operation)
	}

	logger.ErrorContext(ctx, "Password hashing failed", slog.String("operation", operation), slog.Any("error", err))

	return errors.Wrap(domainerrors.ErrInternalError, operation)
}
