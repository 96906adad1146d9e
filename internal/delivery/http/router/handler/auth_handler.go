package handler

import (
	"log/slog"
	"net/http"
	"time"

	deliverycontext "identity/internal/delivery/context"
	"identity/internal/delivery/http/middleware"
	"identity/internal/delivery/http/response"
	domainerrors "identity/internal/domain/errors"
	"identity/internal/errors"
	"identity/internal/usecase"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"go.uber.org/fx"
)

// AuthHandlerParams holds dependencies for AuthHandler, injected by Fx.
type AuthHandlerParams struct {
	fx.In

	Credentials  usecase.CredentialUsecase
	Verification usecase.VerificationUsecase
	Reset        usecase.ResetUsecase
	Logger       *slog.Logger
}

// AuthHandler serves the unauthenticated credential flows.
type AuthHandler struct {
	credentials  usecase.CredentialUsecase
	verification usecase.VerificationUsecase
	reset        usecase.ResetUsecase
	logger       *slog.Logger
}

// NewAuthHandler is the constructor for AuthHandler.
func NewAuthHandler(params AuthHandlerParams) *AuthHandler {
	return &AuthHandler{
		credentials:  params.Credentials,
		verification: params.Verification,
		reset:        params.Reset,
		logger:       params.Logger,
	}
}

// RegisterRequest is the body of POST /auth/register.
type RegisterRequest struct {
	Email     string `json:"email" validate:"required,email"`
	Password  string `json:"password" validate:"required"`
	FirstName string `json:"firstName" validate:"max=100"`
	LastName  string `json:"lastName" validate:"max=100"`
}

// RegisterResponse reports whether the verification mail went out.
type RegisterResponse struct {
	Account          *AccountView `json:"account"`
	VerificationSent bool         `json:"verificationSent"`
}

// LoginRequest is the body of POST /auth/login.
type LoginRequest struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// LoginResponse carries both tokens and the account.
type LoginResponse struct {
	AccessToken           string       `json:"accessToken"`
	AccessTokenExpiresAt  time.Time    `json:"accessTokenExpiresAt"`
	RefreshToken          string       `json:"refreshToken"`
	RefreshTokenExpiresAt time.Time    `json:"refreshTokenExpiresAt"`
	Account               *AccountView `json:"account"`
}

// RefreshRequest is the body of POST /auth/refresh.
type RefreshRequest struct {
	RefreshToken string `json:"refreshToken" validate:"required"`
}

// RefreshResponse carries the new access token.
type RefreshResponse struct {
	AccessToken string    `json:"accessToken"`
	ExpiresAt   time.Time `json:"expiresAt"`
}

// ClaimsResponse is what GET /auth/authenticate returns.
type ClaimsResponse struct {
	AccountID uuid.UUID `json:"accountId"`
	Email     string    `json:"email"`
	Roles     []string  `json:"roles"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// EmailRequest starts a verification or reset flow.
type EmailRequest struct {
	Email string `json:"email" validate:"required"`
}

// CodeRequest completes a verification.
type CodeRequest struct {
	Code string `json:"code" validate:"required,numeric"`
}

// CompleteResetRequest is the body of POST /auth/password-reset/confirm.
type CompleteResetRequest struct {
	Code        string `json:"code" validate:"required,numeric"`
	NewPassword string `json:"newPassword" validate:"required"`
}

// Register creates the account and sends the first verification code.
// A failed send does not undo the registration.
func (h *AuthHandler) Register(c echo.Context) error {
	var req RegisterRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	ctx := c.Request().Context()
	account, err := h.credentials.Register(ctx, &usecase.RegisterInput{
		Email:     req.Email,
		Password:  req.Password,
		FirstName: req.FirstName,
		LastName:  req.LastName,
	})
	if err != nil {
		return errors.WithStack(err)
	}

	sent := true
	if err := h.verification.RequestVerification(ctx, account.Email); err != nil {
		sent = false
		deliverycontext.LoggerOrDefault(ctx, h.logger).Warn("Verification code not sent after registration",
			slog.Any("accountID", account.ID),
			slog.Any("error", err),
		)
	}

	return response.Success(c, http.StatusCreated, &RegisterResponse{
		Account:          newAccountView(account),
		VerificationSent: sent,
	}, "Account registered")
}

// Login exchanges credentials for an access and a refresh token.
func (h *AuthHandler) Login(c echo.Context) error {
	var req LoginRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	output, err := h.credentials.Login(c.Request().Context(), &usecase.LoginInput{Email: req.Email, Password: req.Password})
	if err != nil {
		return errors.WithStack(err)
	}

	return response.Success(c, http.StatusOK, &LoginResponse{
		AccessToken:           output.AccessToken,
		AccessTokenExpiresAt:  output.AccessTokenExpiresAt,
		RefreshToken:          output.RefreshToken,
		RefreshTokenExpiresAt: output.RefreshTokenExpiresAt,
		Account:               newAccountView(output.Account),
	}, "Login successful")
}

// Refresh signs a new access token from a refresh token.
func (h *AuthHandler) Refresh(c echo.Context) error {
	var req RefreshRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	output, ok := h.credentials.RefreshAccessToken(c.Request().Context(), req.RefreshToken)
	if !ok {
		return errors.Wrap(domainerrors.ErrUnauthorized, "refresh token rejected")
	}

	return response.Success(c, http.StatusOK, &RefreshResponse{
		AccessToken: output.AccessToken,
		ExpiresAt:   output.ExpiresAt,
	}, "Token refreshed")
}

// Authenticate echoes the claims of the presented access token.
func (h *AuthHandler) Authenticate(c echo.Context) error {
	claims, ok := middleware.GetClaims(c)
	if !ok {
		return errors.Wrap(domainerrors.ErrUnauthorized, "claims missing from context")
	}

	return response.Success(c, http.StatusOK, &ClaimsResponse{
		AccountID: claims.AccountID,
		Email:     claims.Email,
		Roles:     claims.Roles,
		ExpiresAt: claims.ExpiresAtTime(),
	}, "")
}

// RequestVerification sends a verification code.
func (h *AuthHandler) RequestVerification(c echo.Context) error {
	var req EmailRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	if err := h.verification.RequestVerification(c.Request().Context(), req.Email); err != nil {
		return errors.WithStack(err)
	}

	return response.Success(c, http.StatusAccepted, nil, "Verification code sent")
}

// CompleteVerification consumes a verification code.
func (h *AuthHandler) CompleteVerification(c echo.Context) error {
	var req CodeRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	account, err := h.verification.CompleteVerification(c.Request().Context(), req.Code)
	if err != nil {
		return errors.WithStack(err)
	}

	return response.Success(c, http.StatusOK, newAccountView(account), "Email verified")
}

// RequestReset sends a password reset code.
func (h *AuthHandler) RequestReset(c echo.Context) error {
	var req EmailRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	if err := h.reset.RequestReset(c.Request().Context(), req.Email); err != nil {
		return errors.WithStack(err)
	}

	return response.Success(c, http.StatusAccepted, nil, "Reset code sent")
}

// ValidateResetCode checks a reset code without consuming it.
func (h *AuthHandler) ValidateResetCode(c echo.Context) error {
	if err := h.reset.ValidateResetCode(c.Request().Context(), c.Param("code")); err != nil {
		return errors.WithStack(err)
	}

	return response.Success(c, http.StatusOK, nil, "Reset code is valid")
}

// CompleteReset sets a new password with a reset code.
func (h *AuthHandler) CompleteReset(c echo.Context) error {
	var req CompleteResetRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	if err := h.reset.CompleteReset(c.Request().Context(), &usecase.CompleteResetInput{
		Code:        req.Code,
		NewPassword: req.NewPassword,
	}); err != nil {
		return errors.WithStack(err)
	}

	return response.Success(c, http.StatusOK, nil, "Password reset")
}
