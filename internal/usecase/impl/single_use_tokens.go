package impl

import (
	"context"
	"log/slog"
	"time"

	"identity/config"
	deliverycontext "identity/internal/delivery/context"
	"identity/internal/domain/entity"
	domainerrors "identity/internal/domain/errors"
	"identity/internal/domain/repository"
	"identity/internal/errors"
	"identity/internal/infra/metrics"
	"identity/internal/util"
)

// maxCodeAttempts bounds how many fresh codes Issue draws when a code is already taken.
const maxCodeAttempts = 5

// singleUseTokens implements throttled issue and single-use consume for one token kind.
// The verification and reset workflows each own one.
type singleUseTokens struct {
	kind     entity.TokenKind
	repo     repository.SingleUseTokenRepository
	window   time.Duration
	digits   int
	timeout  time.Duration
	now      func() time.Time
	generate func(digits int) (string, error)
	metrics  *metrics.Metrics
	logger   *slog.Logger
}

func newSingleUseTokens(
	kind entity.TokenKind,
	repo repository.SingleUseTokenRepository,
	auth *config.AuthConfig,
	m *metrics.Metrics,
	logger *slog.Logger,
) *singleUseTokens {
	return &singleUseTokens{
		kind:     kind,
		repo:     repo,
		window:   auth.ThrottleWindow,
		digits:   auth.CodeDigits,
		timeout:  auth.StorageTimeout,
		now:      time.Now,
		generate: util.RandomDigits,
		metrics:  m,
		logger:   logger,
	}
}

func (t *singleUseTokens) log(ctx context.Context) *slog.Logger {
	return deliverycontext.LoggerOrDefault(ctx, t.logger)
}

// Issue stores a new code for email unless the current one is still inside the throttle window.
func (t *singleUseTokens) Issue(ctx context.Context, email string) (*entity.SingleUseToken, error) {
	for range maxCodeAttempts {
		code, err := t.generate(t.digits)
		if err != nil {
			t.metrics.ObserveTokenIssue(t.kind.String(), metrics.ResultError)

			return nil, internalError(ctx, t.log(ctx), err, "failed to generate single-use code")
		}

		now := t.now()
		stored, err := t.upsert(ctx, &entity.SingleUseToken{Kind: t.kind, Email: email, Code: code, IssuedAt: now})

		switch {
		case err == nil:
			t.metrics.ObserveTokenIssue(t.kind.String(), metrics.ResultSuccess)

			return stored, nil

		case errors.Is(err, repository.ErrCodeCollision):
			t.log(ctx).DebugContext(ctx, "Single-use code collision, drawing a new one", slog.String("kind", t.kind.String()))

			continue

		case errors.Is(err, repository.ErrTokenThrottled):
			t.metrics.ObserveTokenIssue(t.kind.String(), metrics.ResultThrottled)

			retryAfter := t.window
			if stored != nil {
				retryAfter = stored.RetryAfter(now, t.window)
			}

			return nil, errors.Wrap(
				domainerrors.ErrTokenThrottled.WithDetails("try again in "+util.FormatDuration(retryAfter)),
				"single-use token issued too recently",
			)

		default:
			t.metrics.ObserveTokenIssue(t.kind.String(), metrics.ResultError)

			return nil, internalError(ctx, t.log(ctx), err, "failed to store single-use token")
		}
	}

	t.metrics.ObserveTokenIssue(t.kind.String(), metrics.ResultError)

	return nil, internalError(ctx, t.log(ctx), repository.ErrCodeCollision, "failed to draw a free single-use code")
}

func (t *singleUseTokens) upsert(ctx context.Context, token *entity.SingleUseToken) (*entity.SingleUseToken, error) {
	ctx, cancel := withTimeout(ctx, t.timeout)
	defer cancel()

	return t.repo.UpsertIfNotThrottled(ctx, token, t.window)
}

// Consume deletes the token holding code and returns it. Only one caller succeeds per code.
func (t *singleUseTokens) Consume(ctx context.Context, code string) (*entity.SingleUseToken, error) {
	if !util.IsDigits(code, t.digits) {
		t.metrics.ObserveTokenConsume(t.kind.String(), metrics.ResultInvalid)

		return nil, errors.Wrap(domainerrors.ErrTokenInvalid, "malformed single-use code")
	}

	storeCtx, cancel := withTimeout(ctx, t.timeout)
	defer cancel()

	token, err := t.repo.DeleteByCode(storeCtx, t.kind, code)
	if errors.Is(err, repository.ErrTokenNotFound) {
		t.metrics.ObserveTokenConsume(t.kind.String(), metrics.ResultInvalid)

		return nil, errors.Wrap(domainerrors.ErrTokenInvalid, "unknown or consumed single-use code")
	}
	if err != nil {
		t.metrics.ObserveTokenConsume(t.kind.String(), metrics.ResultError)

		return nil, internalError(ctx, t.log(ctx), err, "failed to consume single-use token")
	}

	t.metrics.ObserveTokenConsume(t.kind.String(), metrics.ResultSuccess)

	return token, nil
}

// Peek returns the live token holding code without consuming it.
func (t *singleUseTokens) Peek(ctx context.Context, code string) (*entity.SingleUseToken, error) {
	if !util.IsDigits(code, t.digits) {
		return nil, errors.Wrap(domainerrors.ErrTokenInvalid, "malformed single-use code")
	}

	storeCtx, cancel := withTimeout(ctx, t.timeout)
	defer cancel()

	token, err := t.repo.FindByCode(storeCtx, t.kind, code)
	if errors.Is(err, repository.ErrTokenNotFound) {
		return nil, errors.Wrap(domainerrors.ErrTokenInvalid, "unknown or consumed single-use code")
	}
	if err != nil {
		return nil, internalError(ctx, t.log(ctx), err, "failed to look up single-use token")
	}

	return token, nil
}
