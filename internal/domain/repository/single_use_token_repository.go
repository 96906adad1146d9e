package repository

import (
	"context"
	"errors"
	"time"

	"identity/internal/domain/entity"
)

var (
	// ErrTokenNotFound is returned when no live token carries the code.
	ErrTokenNotFound = errors.New("single-use token not found")

	// ErrTokenThrottled is returned when the live token for the email was issued inside the window.
	ErrTokenThrottled = errors.New("single-use token throttled")

	// ErrCodeCollision is returned when another email of the same kind holds the code.
	ErrCodeCollision = errors.New("single-use token code collision")
)

// SingleUseTokenRepository stores at most one token per (kind, email).
// Implementations must make UpsertIfNotThrottled and DeleteByCode atomic.
type SingleUseTokenRepository interface {
	// UpsertIfNotThrottled stores token unless the existing token for the same
	// kind and email was issued less than window before token.IssuedAt.
	// Returns ErrTokenThrottled together with the existing token in that case.
	UpsertIfNotThrottled(ctx context.Context, token *entity.SingleUseToken, window time.Duration) (*entity.SingleUseToken, error)

	// FindByCode returns the live token without consuming it.
	FindByCode(ctx context.Context, kind entity.TokenKind, code string) (*entity.SingleUseToken, error)

	// DeleteByCode removes the token and returns it. Only one concurrent caller
	// receives the token; the rest get ErrTokenNotFound.
	DeleteByCode(ctx context.Context, kind entity.TokenKind, code string) (*entity.SingleUseToken, error)
}
