package impl

import (
	"context"
	"io"
	"log/slog"
	"regexp"
	"sync"
	"testing"
	"time"

	"identity/config"
	"identity/internal/domain/service"
	"identity/internal/infra/auth"
	"identity/internal/infra/persistence/memory"
	"identity/internal/usecase"

	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"golang.org/x/crypto/bcrypt"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func newDiscardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestConfig() *config.Config {
	cfg := &config.Config{
		Auth: &config.AuthConfig{
			BcryptCost:       bcrypt.MinCost,
			HashWorkers:      4,
			HashQueueTimeout: time.Second,
			AccessTokenTTL:   120 * time.Second,
			RefreshTokenTTL:  7 * 24 * time.Hour,
			ThrottleWindow:   15 * time.Minute,
			CodeDigits:       7,
			StorageTimeout:   time.Second,
		},
		Mail: &config.MailConfig{
			VerifyEmailURL:   "https://app.example.com/verify",
			ResetPasswordURL: "https://app.example.com/reset/",
		},
	}
	cfg.SecretKey.Access = "access-secret-for-tests"
	cfg.SecretKey.Refresh = "refresh-secret-for-tests"

	return cfg
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.now = c.now.Add(d)
}

// recordingNotifier keeps every message, including the ones it fails to send.
type recordingNotifier struct {
	mu   sync.Mutex
	err  error
	sent []*service.Message
}

func (n *recordingNotifier) Send(_ context.Context, msg *service.Message) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	n.sent = append(n.sent, msg)

	return n.err
}

func (n *recordingNotifier) fail(err error) {
	n.mu.Lock()
	defer n.mu.Unlock()

	n.err = err
}

var codePattern = regexp.MustCompile(`<strong>(\d+)</strong>`)

func (n *recordingNotifier) lastCode(t *testing.T) string {
	t.Helper()

	n.mu.Lock()
	defer n.mu.Unlock()

	require.NotEmpty(t, n.sent, "no message was sent")
	match := codePattern.FindStringSubmatch(n.sent[len(n.sent)-1].HTMLBody)
	require.Len(t, match, 2, "message carries no code")

	return match[1]
}

func (n *recordingNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()

	return len(n.sent)
}

// identityFixtures wires the workflows to in-memory stores, the real hasher and the real signer.
type identityFixtures struct {
	clock        *fakeClock
	notifier     *recordingNotifier
	credentials  usecase.CredentialUsecase
	verification usecase.VerificationUsecase
	reset        usecase.ResetUsecase
}

func createIdentityFixtures(t *testing.T) identityFixtures {
	t.Helper()

	cfg := newTestConfig()
	logger := newDiscardLogger()
	clock := newFakeClock()
	notifier := &recordingNotifier{}

	hasher, err := auth.NewBcryptHasher(auth.HasherParams{Config: cfg})
	require.NoError(t, err)
	tokenService, err := auth.NewJWTService(cfg)
	require.NoError(t, err)

	accounts := memory.NewAccountRepository()
	tokens := memory.NewSingleUseTokenRepository()

	credentials := NewCredentialService(CredentialServiceParams{
		AccountRepo:  accounts,
		Hasher:       hasher,
		TokenService: tokenService,
		Config:       cfg,
		Logger:       logger,
	})
	credentials.(*credentialService).now = clock.Now

	verification := NewVerificationService(VerificationServiceParams{
		AccountRepo: accounts,
		TokenRepo:   tokens,
		Notifier:    notifier,
		Config:      cfg,
		Logger:      logger,
	})
	verification.(*verificationService).tokens.now = clock.Now

	reset := NewResetService(ResetServiceParams{
		AccountRepo: accounts,
		TokenRepo:   tokens,
		Hasher:      hasher,
		Notifier:    notifier,
		Config:      cfg,
		Logger:      logger,
	})
	reset.(*resetService).tokens.now = clock.Now

	return identityFixtures{
		clock:        clock,
		notifier:     notifier,
		credentials:  credentials,
		verification: verification,
		reset:        reset,
	}
}

func (fx identityFixtures) register(t *testing.T, email, password string) {
	t.Helper()

	_, err := fx.credentials.Register(context.Background(), &usecase.RegisterInput{Email: email, Password: password})
	require.NoError(t, err)
}
