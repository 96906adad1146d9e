package impl

import (
	"context"
	"log/slog"

	"identity/config"
	deliverycontext "identity/internal/delivery/context"
	"identity/internal/domain/entity"
	domainerrors "identity/internal/domain/errors"
	"identity/internal/domain/repository"
	"identity/internal/domain/service"
	"identity/internal/errors"
	"identity/internal/infra/metrics"
	"identity/internal/usecase"

	"go.uber.org/fx"
)

// resetService implements the ResetUsecase interface.
type resetService struct {
	accountRepo repository.AccountRepository
	hasher      service.PasswordHasher
	tokens      *singleUseTokens
	notifier    service.Notifier
	messages    *messageBuilder
	cfg         *config.AuthConfig
	logger      *slog.Logger
}

// ResetServiceParams holds dependencies for ResetService, injected by Fx.
type ResetServiceParams struct {
	fx.In

	AccountRepo repository.AccountRepository
	TokenRepo   repository.SingleUseTokenRepository
	Hasher      service.PasswordHasher
	Notifier    service.Notifier
	Config      *config.Config
	Metrics     *metrics.Metrics `optional:"true"`
	Logger      *slog.Logger
}

// NewResetService is the constructor for resetService.
func NewResetService(params ResetServiceParams) usecase.ResetUsecase {
	return &resetService{
		accountRepo: params.AccountRepo,
		hasher:      params.Hasher,
		tokens:      newSingleUseTokens(entity.TokenKindReset, params.TokenRepo, params.Config.Auth, params.Metrics, params.Logger),
		notifier:    params.Notifier,
		messages:    newMessageBuilder(params.Config.Mail),
		cfg:         params.Config.Auth,
		logger:      params.Logger,
	}
}

// log returns a request-scoped logger if available, otherwise falls back to the service's logger.
func (srv *resetService) log(ctx context.Context) *slog.Logger {
	return deliverycontext.LoggerOrDefault(ctx, srv.logger)
}

// RequestReset issues a reset code for an existing account and mails it.
func (srv *resetService) RequestReset(ctx context.Context, email string) error {
	if email == "" {
		return errors.Wrap(domainerrors.ErrValidationFailed, "email is required")
	}

	if _, err := srv.findByEmail(ctx, email); err != nil {
		if errors.Is(err, repository.ErrAccountNotFound) {
			return errors.Wrap(domainerrors.ErrAccountNotFound, "no account for reset email")
		}

		return internalError(ctx, srv.log(ctx), err, "failed to look up account for reset")
	}

	token, err := srv.tokens.Issue(ctx, email)
	if err != nil {
		srv.log(ctx).Info("Reset code not issued", slog.String("email", email), slog.Any("error", err))

		return err
	}

	return sendCode(ctx, srv.log(ctx), srv.notifier, srv.messages.Reset, token)
}

// ValidateResetCode checks that the code is live. The code stays usable.
func (srv *resetService) ValidateResetCode(ctx context.Context, code string) error {
	_, err := srv.tokens.Peek(ctx, code)

	return err
}

// CompleteReset hashes the new password before consuming the code, so a
// rejected password or a saturated hasher leaves the code usable.
func (srv *resetService) CompleteReset(ctx context.Context, input *usecase.CompleteResetInput) error {
	if input.NewPassword == "" {
		return errors.Wrap(domainerrors.ErrValidationFailed, "new password is required")
	}

	digest, err := srv.hasher.Hash(ctx, input.NewPassword)
	if err != nil {
		return hasherError(ctx, srv.log(ctx), err, "failed to hash new password")
	}

	token, err := srv.tokens.Consume(ctx, input.Code)
	if err != nil {
		return err
	}

	account, err := srv.findByEmail(ctx, token.Email)
	if errors.Is(err, repository.ErrAccountNotFound) {
		return errors.Wrap(domainerrors.ErrAccountNotFound, "reset email has no account")
	}
	if err != nil {
		return internalError(ctx, srv.log(ctx), err, "failed to load account for reset")
	}

	storeCtx, cancel := withTimeout(ctx, srv.cfg.StorageTimeout)
	defer cancel()

	if _, err := srv.accountRepo.Update(storeCtx, account.ID, entity.AccountUpdate{PasswordHash: &digest}); err != nil {
		if errors.Is(err, repository.ErrAccountNotFound) {
			return errors.Wrap(domainerrors.ErrAccountNotFound, "reset email has no account")
		}

		return internalError(ctx, srv.log(ctx), err, "failed to store reset password")
	}

	srv.log(ctx).Info("Password reset", slog.Any("accountID", account.ID))

	return nil
}

func (srv *resetService) findByEmail(ctx context.Context, email string) (*entity.Account, error) {
	storeCtx, cancel := withTimeout(ctx, srv.cfg.StorageTimeout)
	defer cancel()

	return srv.accountRepo.FindByEmail(storeCtx, email)
}
