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

// verificationService implements the VerificationUsecase interface.
type verificationService struct {
	accountRepo repository.AccountRepository
	tokens      *singleUseTokens
	notifier    service.Notifier
	messages    *messageBuilder
	cfg         *config.AuthConfig
	logger      *slog.Logger
}

// VerificationServiceParams holds dependencies for VerificationService, injected by Fx.
type VerificationServiceParams struct {
	fx.In

	AccountRepo repository.AccountRepository
	TokenRepo   repository.SingleUseTokenRepository
	Notifier    service.Notifier
	Config      *config.Config
	Metrics     *metrics.Metrics `optional:"true"`
	Logger      *slog.Logger
}

// NewVerificationService is the constructor for verificationService.
func NewVerificationService(params VerificationServiceParams) usecase.VerificationUsecase {
	return &verificationService{
		accountRepo: params.AccountRepo,
		tokens:      newSingleUseTokens(entity.TokenKindVerification, params.TokenRepo, params.Config.Auth, params.Metrics, params.Logger),
		notifier:    params.Notifier,
		messages:    newMessageBuilder(params.Config.Mail),
		cfg:         params.Config.Auth,
		logger:      params.Logger,
	}
}

// log returns a request-scoped logger if available, otherwise falls back to the service's logger.
func (srv *verificationService) log(ctx context.Context) *slog.Logger {
	return deliverycontext.LoggerOrDefault(ctx, srv.logger)
}

// RequestVerification issues a verification code for email and mails it.
func (srv *verificationService) RequestVerification(ctx context.Context, email string) error {
	if email == "" {
		return errors.Wrap(domainerrors.ErrValidationFailed, "email is required")
	}

	token, err := srv.tokens.Issue(ctx, email)
	if err != nil {
		srv.log(ctx).Info("Verification code not issued", slog.String("email", email), slog.Any("error", err))

		return err
	}

	return sendCode(ctx, srv.log(ctx), srv.notifier, srv.messages.Verification, token)
}

// CompleteVerification consumes the code and sets emailValidated on its account.
func (srv *verificationService) CompleteVerification(ctx context.Context, code string) (*entity.Account, error) {
	token, err := srv.tokens.Consume(ctx, code)
	if err != nil {
		return nil, err
	}

	storeCtx, cancel := withTimeout(ctx, srv.cfg.StorageTimeout)
	defer cancel()

	account, err := srv.accountRepo.FindByEmail(storeCtx, token.Email)
	if errors.Is(err, repository.ErrAccountNotFound) {
		return nil, errors.Wrap(domainerrors.ErrAccountNotFound, "verified email has no account")
	}
	if err != nil {
		return nil, internalError(ctx, srv.log(ctx), err, "failed to load account for verification")
	}

	validated := true
	account, err = srv.accountRepo.Update(storeCtx, account.ID, entity.AccountUpdate{EmailValidated: &validated})
	if errors.Is(err, repository.ErrAccountNotFound) {
		return nil, errors.Wrap(domainerrors.ErrAccountNotFound, "verified email has no account")
	}
	if err != nil {
		return nil, internalError(ctx, srv.log(ctx), err, "failed to mark email as validated")
	}

	srv.log(ctx).Info("Email verified", slog.Any("accountID", account.ID))

	return account, nil
}

// sendCode renders and delivers a single-use code. The token stays live when delivery fails.
func sendCode(
	ctx context.Context,
	logger *slog.Logger,
	notifier service.Notifier,
	render func(to, code string) (*service.Message, error),
	token *entity.SingleUseToken,
) error {
	msg, err := render(token.Email, token.Code)
	if err != nil {
		return internalError(ctx, logger, err, "failed to render message")
	}

	if err := notifier.Send(ctx, msg); err != nil {
		logger.Warn("Single-use code issued but not delivered",
			slog.String("kind", token.Kind.String()),
			slog.String("email", token.Email),
			slog.Any("error", err),
		)

		return errors.Wrap(domainerrors.ErrDeliveryFailed, "failed to deliver single-use code")
	}

	logger.Debug("Single-use code delivered", slog.String("kind", token.Kind.String()), slog.String("email", token.Email))

	return nil
}
