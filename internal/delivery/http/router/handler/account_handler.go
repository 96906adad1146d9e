package handler

import (
	"log/slog"
	"net/http"

	"identity/internal/delivery/http/middleware"
	"identity/internal/delivery/http/response"
	domainerrors "identity/internal/domain/errors"
	"identity/internal/errors"
	"identity/internal/usecase"

	"github.com/labstack/echo/v4"
	"go.uber.org/fx"
)

// AccountHandlerParams holds dependencies for AccountHandler, injected by Fx.
type AccountHandlerParams struct {
	fx.In

	Credentials usecase.CredentialUsecase
	Logger      *slog.Logger
}

// AccountHandler serves the authenticated account endpoints.
type AccountHandler struct {
	credentials usecase.CredentialUsecase
	logger      *slog.Logger
}

// NewAccountHandler is the constructor for AccountHandler.
func NewAccountHandler(params AccountHandlerParams) *AccountHandler {
	return &AccountHandler{
		credentials: params.Credentials,
		logger:      params.Logger,
	}
}

// UpdateProfileRequest changes only the fields present in the body.
type UpdateProfileRequest struct {
	Email     *string `json:"email" validate:"omitempty,email"`
	FirstName *string `json:"firstName" validate:"omitempty,max=100"`
	LastName  *string `json:"lastName" validate:"omitempty,max=100"`
	Bio       *string `json:"bio" validate:"omitempty,max=255"`
}

// UpdatePasswordRequest is the body of PUT /account/password.
type UpdatePasswordRequest struct {
	OldPassword string `json:"oldPassword" validate:"required"`
	NewPassword string `json:"newPassword" validate:"required"`
}

// Me returns the authenticated account.
func (h *AccountHandler) Me(c echo.Context) error {
	accountID, ok := middleware.GetAccountID(c)
	if !ok {
		return errors.Wrap(domainerrors.ErrUnauthorized, "account id missing from context")
	}

	account, err := h.credentials.Me(c.Request().Context(), accountID)
	if err != nil {
		return errors.WithStack(err)
	}

	return response.Success(c, http.StatusOK, newAccountView(account), "")
}

// UpdateProfile changes profile fields of the authenticated account.
func (h *AccountHandler) UpdateProfile(c echo.Context) error {
	accountID, ok := middleware.GetAccountID(c)
	if !ok {
		return errors.Wrap(domainerrors.ErrUnauthorized, "account id missing from context")
	}

	var req UpdateProfileRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	account, err := h.credentials.UpdateProfile(c.Request().Context(), &usecase.UpdateProfileInput{
		AccountID: accountID,
		Email:     req.Email,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Bio:       req.Bio,
	})
	if err != nil {
		return errors.WithStack(err)
	}

	return response.Success(c, http.StatusOK, newAccountView(account), "Profile updated")
}

// UpdatePassword replaces the password of the authenticated account.
func (h *AccountHandler) UpdatePassword(c echo.Context) error {
	accountID, ok := middleware.GetAccountID(c)
	if !ok {
		return errors.Wrap(domainerrors.ErrUnauthorized, "account id missing from context")
	}

	var req UpdatePasswordRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	if err := h.credentials.UpdatePassword(c.Request().Context(), &usecase.UpdatePasswordInput{
		AccountID:   accountID,
		OldPassword: req.OldPassword,
		NewPassword: req.NewPassword,
	}); err != nil {
		return errors.WithStack(err)
	}

	return response.Success(c, http.StatusOK, nil, "Password updated")
}
