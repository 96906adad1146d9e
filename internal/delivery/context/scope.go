// Package context carries request-scoped values from the HTTP delivery down to usecases and notifiers.
package context

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
)

type scopeKey struct{}

// Scope identifies one inbound request and, once authenticated, the account behind it.
type Scope struct {
	RequestID string
	AccountID uuid.UUID

	logger *slog.Logger
}

// WithScope starts the scope of a request. The logger is tagged with the request id.
func WithScope(ctx context.Context, requestID string, logger *slog.Logger) context.Context {
	if logger != nil {
		logger = logger.With(slog.String("request_id", requestID))
	}

	return context.WithValue(ctx, scopeKey{}, Scope{RequestID: requestID, logger: logger})
}

// WithAccount records the authenticated account. It is a no-op outside a request scope.
func WithAccount(ctx context.Context, accountID uuid.UUID) context.Context {
	scope, ok := ScopeFrom(ctx)
	if !ok {
		return ctx
	}

	scope.AccountID = accountID
	if scope.logger != nil {
		scope.logger = scope.logger.With(slog.String("account_id", accountID.String()))
	}

	return context.WithValue(ctx, scopeKey{}, scope)
}

// ScopeFrom returns the request scope stored in ctx.
func ScopeFrom(ctx context.Context) (Scope, bool) {
	scope, ok := ctx.Value(scopeKey{}).(Scope)

	return scope, ok
}

// RequestID returns the request id, or "" outside a request.
func RequestID(ctx context.Context) string {
	scope, _ := ScopeFrom(ctx)

	return scope.RequestID
}

// LoggerOrDefault returns the request's logger, or fallback when ctx carries none.
func LoggerOrDefault(ctx context.Context, fallback *slog.Logger) *slog.Logger {
	if scope, ok := ScopeFrom(ctx); ok && scope.logger != nil {
		return scope.logger
	}

	return fallback
}
