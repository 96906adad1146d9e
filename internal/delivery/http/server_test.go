package http

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"regexp"
	"strings"
	"sync"
	"testing"
	"time"

	"identity/config"
	"identity/internal/delivery/http/middleware"
	"identity/internal/delivery/http/router"
	"identity/internal/delivery/http/router/handler"
	"identity/internal/domain/service"
	"identity/internal/infra/auth"
	"identity/internal/infra/metrics"
	"identity/internal/infra/persistence/memory"
	"identity/internal/usecase/impl"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

type envelope struct {
	Success bool            `json:"success"`
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Code    string `json:"code"`
		Details string `json:"details"`
	} `json:"error"`
}

type mailbox struct {
	mu   sync.Mutex
	sent []*service.Message
}

func (m *mailbox) Send(_ context.Context, msg *service.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.sent = append(m.sent, msg)

	return nil
}

var codePattern = regexp.MustCompile(`<strong>(\d+)</strong>`)

func (m *mailbox) lastCode(t *testing.T) string {
	t.Helper()

	m.mu.Lock()
	defer m.mu.Unlock()

	require.NotEmpty(t, m.sent)
	match := codePattern.FindStringSubmatch(m.sent[len(m.sent)-1].HTMLBody)
	require.Len(t, match, 2)

	return match[1]
}

type serverFixtures struct {
	echo    *echo.Echo
	mailbox *mailbox
}

func createServerFixtures(t *testing.T) serverFixtures {
	t.Helper()

	cfg := &config.Config{
		Auth: &config.AuthConfig{
			BcryptCost:       bcrypt.MinCost,
			HashWorkers:      2,
			HashQueueTimeout: time.Second,
			AccessTokenTTL:   120 * time.Second,
			RefreshTokenTTL:  7 * 24 * time.Hour,
			ThrottleWindow:   15 * time.Minute,
			CodeDigits:       7,
			StorageTimeout:   time.Second,
		},
		Mail: &config.MailConfig{},
	}
	cfg.SecretKey.Access = "access-secret-for-tests"
	cfg.SecretKey.Refresh = "refresh-secret-for-tests"
	cfg.HTTP.MaxRequestBodySize = "100KB"

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	m := metrics.New()
	box := &mailbox{}

	hasher, err := auth.NewBcryptHasher(auth.HasherParams{Config: cfg, Metrics: m})
	require.NoError(t, err)
	tokenService, err := auth.NewJWTService(cfg)
	require.NoError(t, err)

	accounts := memory.NewAccountRepository()
	tokens := memory.NewSingleUseTokenRepository()

	credentials := impl.NewCredentialService(impl.CredentialServiceParams{
		AccountRepo:  accounts,
		Hasher:       hasher,
		TokenService: tokenService,
		Config:       cfg,
		Metrics:      m,
		Logger:       logger,
	})
	verification := impl.NewVerificationService(impl.VerificationServiceParams{
		AccountRepo: accounts,
		TokenRepo:   tokens,
		Notifier:    box,
		Config:      cfg,
		Metrics:     m,
		Logger:      logger,
	})
	reset := impl.NewResetService(impl.ResetServiceParams{
		AccountRepo: accounts,
		TokenRepo:   tokens,
		Hasher:      hasher,
		Notifier:    box,
		Config:      cfg,
		Metrics:     m,
		Logger:      logger,
	})

	e := newEcho(ServerParams{
		Config:          cfg,
		Logger:          logger,
		ErrorMiddleware: middleware.NewErrorMiddleware(logger),
		RouterParams: router.RouterParams{
			AuthHandler: handler.NewAuthHandler(handler.AuthHandlerParams{
				Credentials:  credentials,
				Verification: verification,
				Reset:        reset,
				Logger:       logger,
			}),
			AccountHandler: handler.NewAccountHandler(handler.AccountHandlerParams{
				Credentials: credentials,
				Logger:      logger,
			}),
			AuthMiddleware: middleware.NewAuthMiddleware(credentials),
			Metrics:        m,
		},
	})

	return serverFixtures{echo: e, mailbox: box}
}

func (fx serverFixtures) do(t *testing.T, method, path, body, token string) (*httptest.ResponseRecorder, envelope) {
	t.Helper()

	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	if token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	fx.echo.ServeHTTP(rec, req)

	var env envelope
	if strings.HasPrefix(rec.Header().Get(echo.HeaderContentType), echo.MIMEApplicationJSON) {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	}

	return rec, env
}

func TestServer_Health(t *testing.T) {
	fx := createServerFixtures(t)

	rec, env := fx.do(t, http.MethodGet, "/health", "", "")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, env.Success)
	assert.JSONEq(t, `{"status":"ok"}`, string(env.Data))
	assert.NotEmpty(t, rec.Header().Get(echo.HeaderXRequestID))
}

func TestServer_RequestIDIsEchoed(t *testing.T) {
	fx := createServerFixtures(t)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set(echo.HeaderXRequestID, "req-123")
	rec := httptest.NewRecorder()
	fx.echo.ServeHTTP(rec, req)

	assert.Equal(t, "req-123", rec.Header().Get(echo.HeaderXRequestID))
}

func TestServer_CredentialLifecycle(t *testing.T) {
	fx := createServerFixtures(t)

	rec, env := fx.do(t, http.MethodPost, "/api/v1/auth/register",
		`{"email":"alice@example.com","password":"secret123","firstName":"Alice"}`, "")
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var registered handler.RegisterResponse
	require.NoError(t, json.Unmarshal(env.Data, &registered))
	assert.True(t, registered.VerificationSent)
	assert.False(t, registered.Account.EmailValidated)
	assert.NotContains(t, rec.Body.String(), "$2a$")

	rec, env = fx.do(t, http.MethodPost, "/api/v1/auth/verification/confirm",
		`{"code":"`+fx.mailbox.lastCode(t)+`"}`, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var verified handler.AccountView
	require.NoError(t, json.Unmarshal(env.Data, &verified))
	assert.True(t, verified.EmailValidated)

	rec, env = fx.do(t, http.MethodPost, "/api/v1/auth/login",
		`{"email":"alice@example.com","password":"secret123"}`, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var login handler.LoginResponse
	require.NoError(t, json.Unmarshal(env.Data, &login))
	require.NotEmpty(t, login.AccessToken)
	require.NotEmpty(t, login.RefreshToken)

	rec, env = fx.do(t, http.MethodGet, "/api/v1/account/me", "", login.AccessToken)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var me handler.AccountView
	require.NoError(t, json.Unmarshal(env.Data, &me))
	assert.Equal(t, registered.Account.ID, me.ID)

	rec, env = fx.do(t, http.MethodGet, "/api/v1/auth/authenticate", "", login.AccessToken)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var claims handler.ClaimsResponse
	require.NoError(t, json.Unmarshal(env.Data, &claims))
	assert.Equal(t, []string{"user"}, claims.Roles)

	rec, _ = fx.do(t, http.MethodPost, "/api/v1/auth/refresh", `{"refreshToken":"`+login.RefreshToken+`"}`, "")
	assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec, env = fx.do(t, http.MethodPost, "/api/v1/auth/refresh", `{"refreshToken":"garbage"}`, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	require.NotNil(t, env.Error)
	assert.Equal(t, "UNAUTHORIZED", env.Error.Code)

	rec, _ = fx.do(t, http.MethodPut, "/api/v1/account/password",
		`{"oldPassword":"secret123","newPassword":"newpass456"}`, login.AccessToken)
	assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec, env = fx.do(t, http.MethodPost, "/api/v1/auth/login",
		`{"email":"alice@example.com","password":"secret123"}`, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "INVALID_CREDENTIALS", env.Error.Code)
}

func TestServer_PasswordReset(t *testing.T) {
	fx := createServerFixtures(t)

	rec, _ := fx.do(t, http.MethodPost, "/api/v1/auth/register",
		`{"email":"alice@example.com","password":"secret123"}`, "")
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec, _ = fx.do(t, http.MethodPost, "/api/v1/auth/password-reset", `{"email":"alice@example.com"}`, "")
	require.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())
	code := fx.mailbox.lastCode(t)

	rec, env := fx.do(t, http.MethodPost, "/api/v1/auth/password-reset", `{"email":"alice@example.com"}`, "")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "TOKEN_THROTTLED", env.Error.Code)
	assert.True(t, strings.HasPrefix(env.Error.Details, "try again in "), env.Error.Details)

	rec, _ = fx.do(t, http.MethodGet, "/api/v1/auth/password-reset/"+code, "", "")
	assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec, _ = fx.do(t, http.MethodPost, "/api/v1/auth/password-reset/confirm",
		`{"code":"`+code+`","newPassword":"newpass456"}`, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec, env = fx.do(t, http.MethodGet, "/api/v1/auth/password-reset/"+code, "", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "TOKEN_INVALID", env.Error.Code)

	rec, _ = fx.do(t, http.MethodPost, "/api/v1/auth/login",
		`{"email":"alice@example.com","password":"newpass456"}`, "")
	assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
}

func TestServer_Errors(t *testing.T) {
	fx := createServerFixtures(t)

	tests := []struct {
		name       string
		method     string
		path       string
		body       string
		token      string
		wantStatus int
		wantCode   string
		wantDetail string
	}{
		{
			name:       "invalid email",
			method:     http.MethodPost,
			path:       "/api/v1/auth/register",
			body:       `{"email":"not-an-email","password":"secret123"}`,
			wantStatus: http.StatusBadRequest,
			wantCode:   "VALIDATION_FAILED",
			wantDetail: "email: email",
		},
		{
			name:       "malformed body",
			method:     http.MethodPost,
			path:       "/api/v1/auth/login",
			body:       `{"email":`,
			wantStatus: http.StatusBadRequest,
			wantCode:   "VALIDATION_FAILED",
			wantDetail: "malformed request body",
		},
		{
			name:       "unknown account",
			method:     http.MethodPost,
			path:       "/api/v1/auth/login",
			body:       `{"email":"nobody@example.com","password":"secret123"}`,
			wantStatus: http.StatusUnauthorized,
			wantCode:   "INVALID_CREDENTIALS",
		},
		{
			name:       "missing bearer",
			method:     http.MethodGet,
			path:       "/api/v1/account/me",
			wantStatus: http.StatusUnauthorized,
			wantCode:   "UNAUTHORIZED",
		},
		{
			name:       "bad bearer",
			method:     http.MethodGet,
			path:       "/api/v1/account/me",
			token:      "not-a-jwt",
			wantStatus: http.StatusUnauthorized,
			wantCode:   "UNAUTHORIZED",
		},
		{
			name:       "reset for unknown account",
			method:     http.MethodPost,
			path:       "/api/v1/auth/password-reset",
			body:       `{"email":"nobody@example.com"}`,
			wantStatus: http.StatusNotFound,
			wantCode:   "ACCOUNT_NOT_FOUND",
		},
		{
			name:       "malformed code",
			method:     http.MethodPost,
			path:       "/api/v1/auth/verification/confirm",
			body:       `{"code":"12"}`,
			wantStatus: http.StatusBadRequest,
			wantCode:   "TOKEN_INVALID",
		},
		{
			name:       "unknown route",
			method:     http.MethodGet,
			path:       "/api/v1/nothing",
			wantStatus: http.StatusNotFound,
			wantCode:   "HTTP_ERROR",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, env := fx.do(t, tt.method, tt.path, tt.body, tt.token)

			assert.Equal(t, tt.wantStatus, rec.Code, rec.Body.String())
			assert.False(t, env.Success)
			require.NotNil(t, env.Error)
			assert.Equal(t, tt.wantCode, env.Error.Code)
			assert.Equal(t, tt.wantDetail, env.Error.Details)
		})
	}
}

func TestServer_Metrics(t *testing.T) {
	fx := createServerFixtures(t)

	fx.do(t, http.MethodPost, "/api/v1/auth/login", `{"email":"nobody@example.com","password":"secret123"}`, "")

	rec := httptest.NewRecorder()
	fx.echo.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `identity_logins_total{result="failure"} 1`)
}
