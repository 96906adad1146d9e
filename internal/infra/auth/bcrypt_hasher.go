// Package auth provides concrete implementations for authentication-related domain services.
package auth

import (
	"context"
	"crypto/rand"
	"time"

	"identity/config"
	domainerrors "identity/internal/domain/errors"
	"identity/internal/domain/service"
	"identity/internal/infra/metrics"

	"github.com/pkg/errors"
	"go.uber.org/fx"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/sync/semaphore"
)

const placeholderSecretSize = 32

// bcryptHasher is a concrete implementation of the PasswordHasher interface using bcrypt.
// At most `workers` hash or compare calls run at once; the rest wait up to queueTimeout.
type bcryptHasher struct {
	cost         int
	workers      *semaphore.Weighted
	queueTimeout time.Duration
	placeholder  string
	metrics      *metrics.Metrics
}

// HasherParams holds dependencies for the hasher, injected by Fx.
type HasherParams struct {
	fx.In

	Config  *config.Config
	Metrics *metrics.Metrics `optional:"true"`
}

// NewBcryptHasher is the constructor for bcryptHasher.
// It returns the implementation as a service.PasswordHasher interface.
func NewBcryptHasher(params HasherParams) (service.PasswordHasher, error) {
	auth := params.Config.Auth

	return newBcryptHasher(auth.BcryptCost, auth.HashWorkers, auth.HashQueueTimeout, params.Metrics)
}

func newBcryptHasher(cost, workers int, queueTimeout time.Duration, m *metrics.Metrics) (*bcryptHasher, error) {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		return nil, errors.Errorf("bcrypt cost must be between %d and %d", bcrypt.MinCost, bcrypt.MaxCost)
	}
	if workers <= 0 {
		return nil, errors.New("hash workers must be positive")
	}

	secret := make([]byte, placeholderSecretSize)
	if _, err := rand.Read(secret); err != nil {
		return nil, errors.Wrap(err, "failed to generate placeholder secret")
	}

	placeholder, err := bcrypt.GenerateFromPassword(secret, cost)
	if err != nil {
		return nil, errors.Wrap(err, "failed to generate placeholder hash")
	}

	return &bcryptHasher{
		cost:         cost,
		workers:      semaphore.NewWeighted(int64(workers)),
		queueTimeout: queueTimeout,
		placeholder:  string(placeholder),
		metrics:      m,
	}, nil
}

// Hash generates a salted hash from a plaintext password using bcrypt.
// bcrypt automatically handles salt generation.
func (h *bcryptHasher) Hash(ctx context.Context, password string) (string, error) {
	release, err := h.acquire(ctx)
	if err != nil {
		return "", err
	}
	defer release()

	start := time.Now()
	digest, err := bcrypt.GenerateFromPassword([]byte(password), h.cost)
	h.metrics.ObserveHash("hash", time.Since(start))

	if errors.Is(err, bcrypt.ErrPasswordTooLong) {
		return "", domainerrors.ErrValidationFailed.WithDetails("password must not exceed 72 bytes")
	}
	if err != nil {
		return "", errors.Wrap(err, "failed to hash password")
	}

	return string(digest), nil
}

// Check compares a plaintext password with a bcrypt hash.
// Malformed digests compare as a mismatch.
func (h *bcryptHasher) Check(ctx context.Context, password, hash string) (bool, error) {
	release, err := h.acquire(ctx)
	if err != nil {
		return false, err
	}
	defer release()

	start := time.Now()
	err = bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	h.metrics.ObserveHash("check", time.Since(start))

	return err == nil, nil
}

func (h *bcryptHasher) PlaceholderHash() string {
	return h.placeholder
}

func (h *bcryptHasher) acquire(ctx context.Context) (func(), error) {
	waitCtx := ctx
	if h.queueTimeout > 0 {
		var cancel context.CancelFunc
		waitCtx, cancel = context.WithTimeout(ctx, h.queueTimeout)
		defer cancel()
	}

	if err := h.workers.Acquire(waitCtx, 1); err != nil {
		h.metrics.ObserveHashRejected()

		return nil, errors.Wrap(domainerrors.ErrHashingUnavailable, "password hasher saturated")
	}

	return func() { h.workers.Release(1) }, nil
}
