// Package handler contains the HTTP handlers for the application.
package handler

import (
	"net/http"
	"time"

	"identity/internal/delivery/http/response"
	"identity/internal/delivery/http/validator"
	"identity/internal/domain/entity"
	domainerrors "identity/internal/domain/errors"
	"identity/internal/errors"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

// AccountView is the public shape of an account. The password hash is never exposed.
type AccountView struct {
	ID             uuid.UUID `json:"id"`
	Email          string    `json:"email"`
	Roles          []string  `json:"roles"`
	EmailValidated bool      `json:"emailValidated"`
	FirstName      string    `json:"firstName"`
	LastName       string    `json:"lastName"`
	Bio            string    `json:"bio"`
	Avatar         string    `json:"avatar"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

func newAccountView(account *entity.Account) *AccountView {
	return &AccountView{
		ID:             account.ID,
		Email:          account.Email,
		Roles:          account.Roles.ToStrings(),
		EmailValidated: account.EmailValidated,
		FirstName:      account.FirstName,
		LastName:       account.LastName,
		Bio:            account.Bio,
		Avatar:         account.Avatar,
		CreatedAt:      account.CreatedAt,
		UpdatedAt:      account.UpdatedAt,
	}
}

// bind decodes and validates the request body into req.
func bind(c echo.Context, req any) error {
	if err := c.Bind(req); err != nil {
		return errors.Wrap(
			domainerrors.ErrValidationFailed.WithDetails("malformed request body"),
			"failed to bind request",
		)
	}
	if err := c.Validate(req); err != nil {
		return errors.Wrap(
			domainerrors.ErrValidationFailed.WithDetails(validator.Describe(err)),
			"request validation failed",
		)
	}

	return nil
}

// HealthCheck reports that the process is serving.
func HealthCheck(c echo.Context) error {
	return response.Success(c, http.StatusOK, map[string]string{"status": "ok"}, "")
}
