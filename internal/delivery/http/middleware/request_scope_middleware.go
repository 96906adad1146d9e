package middleware

import (
	"log/slog"

	deliverycontext "identity/internal/delivery/context"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
)

// NewRequestScope returns echo's request-id middleware with the id and a tagged logger
// stored in the request context for usecases and notifiers.
func NewRequestScope(logger *slog.Logger) echo.MiddlewareFunc {
	return echomiddleware.RequestIDWithConfig(echomiddleware.RequestIDConfig{
		Generator: func() string {
			return uuid.NewString()
		},
		RequestIDHandler: func(c echo.Context, requestID string) {
			ctx := deliverycontext.WithScope(c.Request().Context(), requestID, logger)
			c.SetRequest(c.Request().WithContext(ctx))
		},
	})
}
