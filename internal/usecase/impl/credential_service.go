// Package impl contains the implementation of the application's business logic.
package impl

import (
	"context"
	"log/slog"
	"time"
	"unicode/utf8"

	"identity/config"
	deliverycontext "identity/internal/delivery/context"
	"identity/internal/domain/entity"
	domainerrors "identity/internal/domain/errors"
	"identity/internal/domain/repository"
	"identity/internal/domain/service"
	"identity/internal/errors"
	"identity/internal/infra/metrics"
	"identity/internal/usecase"

	"github.com/google/uuid"
	"go.uber.org/fx"
)

// credentialService implements the CredentialUsecase interface.
type credentialService struct {
	accountRepo    repository.AccountRepository
	hasher         service.PasswordHasher
	tokenService   service.TokenService
	storageTimeout time.Duration
	now            func() time.Time
	metrics        *metrics.Metrics
	logger         *slog.Logger
}

// CredentialServiceParams holds dependencies for CredentialService, injected by Fx.
type CredentialServiceParams struct {
	fx.In

	AccountRepo  repository.AccountRepository
	Hasher       service.PasswordHasher
	TokenService service.TokenService
	Config       *config.Config
	Metrics      *metrics.Metrics `optional:"true"`
	Logger       *slog.Logger
}

// NewCredentialService is the constructor for credentialService.
func NewCredentialService(params CredentialServiceParams) usecase.CredentialUsecase {
	return &credentialService{
		accountRepo:    params.AccountRepo,
		hasher:         params.Hasher,
		tokenService:   params.TokenService,
		storageTimeout: params.Config.Auth.StorageTimeout,
		now:            time.Now,
		metrics:        params.Metrics,
		logger:         params.Logger,
	}
}

// log returns a request-scoped logger if available, otherwise falls back to the service's logger.
func (srv *credentialService) log(ctx context.Context) *slog.Logger {
	return deliverycontext.LoggerOrDefault(ctx, srv.logger)
}

// Register creates an account with default roles and an unvalidated email.
func (srv *credentialService) Register(ctx context.Context, input *usecase.RegisterInput) (*entity.Account, error) {
	if input.Email == "" || input.Password == "" {
		return nil, errors.Wrap(domainerrors.ErrValidationFailed, "email and password are required")
	}
	if err := validateNames(input.FirstName, input.LastName); err != nil {
		return nil, err
	}

	srv.log(ctx).Info("Starting registration", slog.String("email", input.Email))

	if _, err := srv.findByEmail(ctx, input.Email); err == nil {
		return nil, errors.Wrap(domainerrors.ErrAccountAlreadyExists, "email already registered")
	} else if !errors.Is(err, repository.ErrAccountNotFound) {
		return nil, internalError(ctx, srv.log(ctx), err, "failed to look up account during registration")
	}

	// Hash outside any storage call; bcrypt is CPU-bound.
	digest, err := srv.hasher.Hash(ctx, input.Password)
	if err != nil {
		return nil, hasherError(ctx, srv.log(ctx), err, "failed to hash password during registration")
	}

	account := entity.NewAccount(input.Email, digest, srv.now())
	account.FirstName = input.FirstName
	account.LastName = input.LastName

	storeCtx, cancel := withTimeout(ctx, srv.storageTimeout)
	defer cancel()

	if err := srv.accountRepo.Create(storeCtx, account); err != nil {
		if errors.Is(err, repository.ErrAccountAlreadyExists) {
			return nil, errors.Wrap(domainerrors.ErrAccountAlreadyExists, "email already registered")
		}

		return nil, internalError(ctx, srv.log(ctx), err, "failed to create account")
	}

	srv.log(ctx).Debug("Registration completed", slog.Any("accountID", account.ID))

	return account, nil
}

// Login verifies the credential pair and signs an access and a refresh token.
// Unknown email and wrong password return the same error after the same amount of hashing work.
func (srv *credentialService) Login(ctx context.Context, input *usecase.LoginInput) (*usecase.LoginOutput, error) {
	srv.log(ctx).Debug("Starting login", slog.String("email", input.Email))

	account, err := srv.findByEmail(ctx, input.Email)
	if err != nil && !errors.Is(err, repository.ErrAccountNotFound) {
		srv.metrics.ObserveLogin(metrics.ResultError)

		return nil, internalError(ctx, srv.log(ctx), err, "failed to look up account during login")
	}

	digest := srv.hasher.PlaceholderHash()
	if account != nil {
		digest = account.PasswordHash
	}

	matched, err := srv.hasher.Check(ctx, input.Password, digest)
	if err != nil {
		srv.metrics.ObserveLogin(metrics.ResultError)

		return nil, hasherError(ctx, srv.log(ctx), err, "failed to check password during login")
	}
	if account == nil || !matched {
		srv.metrics.ObserveLogin(metrics.ResultFailure)
		srv.log(ctx).Warn("Login failed", slog.String("email", input.Email))

		return nil, errors.Wrap(domainerrors.ErrInvalidCredentials, "login failed")
	}

	claims := service.NewClaims(account.ID, account.Email, account.Roles.ToStrings())

	accessToken, accessExpiresAt, err := srv.tokenService.Sign(claims, service.AccessTokenProfile)
	if err != nil {
		srv.metrics.ObserveLogin(metrics.ResultError)

		return nil, internalError(ctx, srv.log(ctx), err, "failed to sign access token")
	}

	refreshToken, refreshExpiresAt, err := srv.tokenService.Sign(claims, service.RefreshTokenProfile)
	if err != nil {
		srv.metrics.ObserveLogin(metrics.ResultError)

		return nil, internalError(ctx, srv.log(ctx), err, "failed to sign refresh token")
	}

	srv.metrics.ObserveLogin(metrics.ResultSuccess)
	srv.log(ctx).Debug("Account logged in", slog.Any("accountID", account.ID))

	return &usecase.LoginOutput{
		AccessToken:           accessToken,
		AccessTokenExpiresAt:  accessExpiresAt,
		RefreshToken:          refreshToken,
		RefreshTokenExpiresAt: refreshExpiresAt,
		Account:               account,
	}, nil
}

// RefreshAccessToken re-reads the account so role changes reach the new access token.
// The refresh token itself is neither rotated nor revoked.
func (srv *credentialService) RefreshAccessToken(ctx context.Context, refreshToken string) (*usecase.RefreshOutput, bool) {
	claims, err := srv.tokenService.Verify(refreshToken, service.RefreshTokenProfile)
	if err != nil {
		srv.log(ctx).Debug("Refresh token rejected", slog.Any("error", err))

		return nil, false
	}

	account, err := srv.findByID(ctx, claims.AccountID)
	if err != nil {
		srv.log(ctx).Warn("Refresh token account unavailable", slog.Any("accountID", claims.AccountID), slog.Any("error", err))

		return nil, false
	}

	accessToken, expiresAt, err := srv.tokenService.Sign(
		service.NewClaims(account.ID, account.Email, account.Roles.ToStrings()),
		service.AccessTokenProfile,
	)
	if err != nil {
		srv.log(ctx).Error("Failed to sign refreshed access token", slog.Any("error", err))

		return nil, false
	}

	return &usecase.RefreshOutput{AccessToken: accessToken, ExpiresAt: expiresAt}, true
}

// Authenticate is pure token verification; it does not touch storage.
func (srv *credentialService) Authenticate(ctx context.Context, accessToken string) (*service.Claims, bool) {
	claims, err := srv.tokenService.Verify(accessToken, service.AccessTokenProfile)
	if err != nil {
		srv.log(ctx).Debug("Access token rejected", slog.Any("error", err))

		return nil, false
	}

	return claims, true
}

// UpdatePassword replaces the password after checking the current one.
func (srv *credentialService) UpdatePassword(ctx context.Context, input *usecase.UpdatePasswordInput) error {
	if input.NewPassword == "" {
		return errors.Wrap(domainerrors.ErrValidationFailed, "new password is required")
	}

	account, err := srv.findByID(ctx, input.AccountID)
	if errors.Is(err, repository.ErrAccountNotFound) {
		return errors.Wrap(domainerrors.ErrAccountNotFound, "account not found")
	}
	if err != nil {
		return internalError(ctx, srv.log(ctx), err, "failed to load account for password update")
	}

	matched, err := srv.hasher.Check(ctx, input.OldPassword, account.PasswordHash)
	if err != nil {
		return hasherError(ctx, srv.log(ctx), err, "failed to check current password")
	}
	if !matched {
		srv.log(ctx).Warn("Password update rejected", slog.Any("accountID", account.ID))

		return errors.Wrap(domainerrors.ErrInvalidCredentials, "current password mismatch")
	}

	digest, err := srv.hasher.Hash(ctx, input.NewPassword)
	if err != nil {
		return hasherError(ctx, srv.log(ctx), err, "failed to hash new password")
	}

	if _, err := srv.update(ctx, account.ID, entity.AccountUpdate{PasswordHash: &digest}); err != nil {
		return err
	}

	srv.log(ctx).Info("Password updated", slog.Any("accountID", account.ID))

	return nil
}

// Me returns the account behind an authenticated request.
func (srv *credentialService) Me(ctx context.Context, accountID uuid.UUID) (*entity.Account, error) {
	account, err := srv.findByID(ctx, accountID)
	if errors.Is(err, repository.ErrAccountNotFound) {
		return nil, errors.Wrap(domainerrors.ErrAccountNotFound, "account not found")
	}
	if err != nil {
		return nil, internalError(ctx, srv.log(ctx), err, "failed to load account")
	}

	return account, nil
}

// UpdateProfile changes profile fields. A new email must be verified again.
func (srv *credentialService) UpdateProfile(ctx context.Context, input *usecase.UpdateProfileInput) (*entity.Account, error) {
	if err := validateProfile(input); err != nil {
		return nil, err
	}

	update := entity.AccountUpdate{
		FirstName: input.FirstName,
		LastName:  input.LastName,
		Bio:       input.Bio,
	}

	if input.Email != nil {
		current, err := srv.Me(ctx, input.AccountID)
		if err != nil {
			return nil, err
		}
		if *input.Email != current.Email {
			validated := false
			update.Email = input.Email
			update.EmailValidated = &validated
		}
	}

	return srv.update(ctx, input.AccountID, update)
}

func (srv *credentialService) update(ctx context.Context, id uuid.UUID, update entity.AccountUpdate) (*entity.Account, error) {
	storeCtx, cancel := withTimeout(ctx, srv.storageTimeout)
	defer cancel()

	account, err := srv.accountRepo.Update(storeCtx, id, update)
	switch {
	case err == nil:
		return account, nil
	case errors.Is(err, repository.ErrAccountNotFound):
		return nil, errors.Wrap(domainerrors.ErrAccountNotFound, "account not found")
	case errors.Is(err, repository.ErrAccountAlreadyExists):
		return nil, errors.Wrap(domainerrors.ErrAccountAlreadyExists, "email already registered")
	default:
		return nil, internalError(ctx, srv.log(ctx), err, "failed to update account")
	}
}

func (srv *credentialService) findByEmail(ctx context.Context, email string) (*entity.Account, error) {
	storeCtx, cancel := withTimeout(ctx, srv.storageTimeout)
	defer cancel()

	return srv.accountRepo.FindByEmail(storeCtx, email)
}

func (srv *credentialService) findByID(ctx context.Context, id uuid.UUID) (*entity.Account, error) {
	storeCtx, cancel := withTimeout(ctx, srv.storageTimeout)
	defer cancel()

	return srv.accountRepo.FindByID(storeCtx, id)
}

func validateNames(names ...string) error {
	for _, name := range names {
		if utf8.RuneCountInString(name) > entity.MaxNameLength {
			return errors.Wrap(
				domainerrors.ErrValidationFailed.WithDetails("names must not exceed 100 characters"),
				"name too long",
			)
		}
	}

	return nil
}

func validateProfile(input *usecase.UpdateProfileInput) error {
	for _, name := range []*string{input.FirstName, input.LastName} {
		if name != nil {
			if err := validateNames(*name); err != nil {
				return err
			}
		}
	}
	if input.Bio != nil && utf8.RuneCountInString(*input.Bio) > entity.MaxBioLength {
		return errors.Wrap(
			domainerrors.ErrValidationFailed.WithDetails("bio must not exceed 255 characters"),
			"bio too long",
		)
	}
	if input.Email != nil && *input.Email == "" {
		return errors.Wrap(domainerrors.ErrValidationFailed, "email must not be empty")
	}

	return nil
}
