package impl

import (
	"context"
	"strings"
	"testing"
	"time"

	domainerrors "identity/internal/domain/errors"
	"identity/internal/usecase"

	"identity/internal/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScenario_RegisterThenVerifyEmail(t *testing.T) {
	fx := createIdentityFixtures(t)
	ctx := context.Background()

	account, err := fx.credentials.Register(ctx, &usecase.RegisterInput{
		Email:     "alice@example.com",
		Password:  "secret123",
		FirstName: "Alice",
	})
	require.NoError(t, err)
	assert.False(t, account.EmailValidated)
	assert.Equal(t, []string{"user"}, account.Roles.ToStrings())
	assert.NotEqual(t, "secret123", account.PasswordHash)

	require.NoError(t, fx.verification.RequestVerification(ctx, "alice@example.com"))
	code := fx.notifier.lastCode(t)
	assert.Len(t, code, 7)
	assert.Contains(t, fx.notifier.sent[0].HTMLBody, "https://app.example.com/verify/"+code)

	verified, err := fx.verification.CompleteVerification(ctx, code)
	require.NoError(t, err)
	assert.True(t, verified.EmailValidated)

	_, err = fx.verification.CompleteVerification(ctx, code)
	assert.True(t, errors.Is(err, domainerrors.ErrTokenInvalid))

	me, err := fx.credentials.Me(ctx, account.ID)
	require.NoError(t, err)
	assert.True(t, me.EmailValidated)
}

func TestScenario_LoginThenRefresh(t *testing.T) {
	fx := createIdentityFixtures(t)
	ctx := context.Background()
	fx.register(t, "alice@example.com", "secret123")

	before := time.Now()
	output, err := fx.credentials.Login(ctx, &usecase.LoginInput{Email: "alice@example.com", Password: "secret123"})
	require.NoError(t, err)

	assert.WithinDuration(t, before.Add(120*time.Second), output.AccessTokenExpiresAt, 2*time.Second)
	assert.WithinDuration(t, before.Add(7*24*time.Hour), output.RefreshTokenExpiresAt, 2*time.Second)
	assert.NotEqual(t, output.AccessToken, output.RefreshToken)

	claims, ok := fx.credentials.Authenticate(ctx, output.AccessToken)
	require.True(t, ok)
	assert.Equal(t, output.Account.ID, claims.AccountID)
	assert.Equal(t, output.Account.ID.String(), claims.Subject)
	assert.Equal(t, "alice@example.com", claims.Email)

	_, ok = fx.credentials.Authenticate(ctx, output.RefreshToken)
	assert.False(t, ok, "refresh token must not authenticate")

	refreshed, ok := fx.credentials.RefreshAccessToken(ctx, output.RefreshToken)
	require.True(t, ok)
	_, ok = fx.credentials.Authenticate(ctx, refreshed.AccessToken)
	assert.True(t, ok)

	refreshed, ok = fx.credentials.RefreshAccessToken(ctx, "garbage")
	assert.False(t, ok)
	assert.Nil(t, refreshed)

	_, ok = fx.credentials.RefreshAccessToken(ctx, output.AccessToken)
	assert.False(t, ok, "access token must not refresh")
}

func TestScenario_ResetPassword(t *testing.T) {
	fx := createIdentityFixtures(t)
	ctx := context.Background()
	fx.register(t, "alice@example.com", "secret123")

	require.NoError(t, fx.reset.RequestReset(ctx, "alice@example.com"))
	code := fx.notifier.lastCode(t)
	assert.Contains(t, fx.notifier.sent[0].HTMLBody, "https://app.example.com/reset/"+code)

	fx.clock.Advance(10 * time.Minute)
	err := fx.reset.RequestReset(ctx, "alice@example.com")
	require.True(t, errors.Is(err, domainerrors.ErrTokenThrottled))

	var appErr domainerrors.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, "try again in 5m0s", appErr.Details())
	assert.Equal(t, 1, fx.notifier.count())

	require.NoError(t, fx.reset.ValidateResetCode(ctx, code))
	require.NoError(t, fx.reset.CompleteReset(ctx, &usecase.CompleteResetInput{Code: code, NewPassword: "newpass456"}))

	_, err = fx.credentials.Login(ctx, &usecase.LoginInput{Email: "alice@example.com", Password: "secret123"})
	assert.True(t, errors.Is(err, domainerrors.ErrInvalidCredentials))

	_, err = fx.credentials.Login(ctx, &usecase.LoginInput{Email: "alice@example.com", Password: "newpass456"})
	assert.NoError(t, err)

	err = fx.reset.CompleteReset(ctx, &usecase.CompleteResetInput{Code: code, NewPassword: "another789"})
	assert.True(t, errors.Is(err, domainerrors.ErrTokenInvalid))
	assert.True(t, errors.Is(fx.reset.ValidateResetCode(ctx, code), domainerrors.ErrTokenInvalid))
}

func TestScenario_ReissueAfterWindowInvalidatesPreviousCode(t *testing.T) {
	fx := createIdentityFixtures(t)
	ctx := context.Background()
	fx.register(t, "alice@example.com", "secret123")

	require.NoError(t, fx.verification.RequestVerification(ctx, "alice@example.com"))
	first := fx.notifier.lastCode(t)

	err := fx.verification.RequestVerification(ctx, "alice@example.com")
	require.True(t, errors.Is(err, domainerrors.ErrTokenThrottled))

	fx.clock.Advance(15 * time.Minute)
	require.NoError(t, fx.verification.RequestVerification(ctx, "alice@example.com"))
	second := fx.notifier.lastCode(t)

	if first != second {
		_, err = fx.verification.CompleteVerification(ctx, first)
		assert.True(t, errors.Is(err, domainerrors.ErrTokenInvalid))
	}

	_, err = fx.verification.CompleteVerification(ctx, second)
	assert.NoError(t, err)
}

func TestScenario_KindsDoNotShareCodes(t *testing.T) {
	fx := createIdentityFixtures(t)
	ctx := context.Background()
	fx.register(t, "alice@example.com", "secret123")

	require.NoError(t, fx.reset.RequestReset(ctx, "alice@example.com"))
	code := fx.notifier.lastCode(t)

	_, err := fx.verification.CompleteVerification(ctx, code)
	assert.True(t, errors.Is(err, domainerrors.ErrTokenInvalid))

	require.NoError(t, fx.reset.ValidateResetCode(ctx, code))
}

func TestScenario_DeliveryFailureKeepsCodeLive(t *testing.T) {
	fx := createIdentityFixtures(t)
	ctx := context.Background()
	fx.register(t, "alice@example.com", "secret123")

	fx.notifier.fail(errors.New("smtp: 421 service not available"))
	err := fx.verification.RequestVerification(ctx, "alice@example.com")
	require.True(t, errors.Is(err, domainerrors.ErrDeliveryFailed))
	assert.NotContains(t, err.Error(), "421")

	// The issued code was not rolled back.
	code := fx.notifier.lastCode(t)
	account, err := fx.verification.CompleteVerification(ctx, code)
	require.NoError(t, err)
	assert.True(t, account.EmailValidated)
}

func TestScenario_LoginErrorsAreIndistinguishable(t *testing.T) {
	fx := createIdentityFixtures(t)
	ctx := context.Background()
	fx.register(t, "alice@example.com", "secret123")

	_, unknown := fx.credentials.Login(ctx, &usecase.LoginInput{Email: "bob@example.com", Password: "secret123"})
	_, wrong := fx.credentials.Login(ctx, &usecase.LoginInput{Email: "alice@example.com", Password: "secret124"})
	_, caseChanged := fx.credentials.Login(ctx, &usecase.LoginInput{Email: "Alice@example.com", Password: "secret123"})

	for _, err := range []error{unknown, wrong, caseChanged} {
		require.Error(t, err)
		assert.True(t, errors.Is(err, domainerrors.ErrInvalidCredentials))
	}
	assert.Equal(t, unknown.Error(), wrong.Error())
}

func TestScenario_RegisterDuplicateEmail(t *testing.T) {
	fx := createIdentityFixtures(t)
	ctx := context.Background()
	fx.register(t, "alice@example.com", "secret123")

	_, err := fx.credentials.Register(ctx, &usecase.RegisterInput{Email: "alice@example.com", Password: "other"})
	assert.True(t, errors.Is(err, domainerrors.ErrAccountAlreadyExists))

	_, err = fx.credentials.Register(ctx, &usecase.RegisterInput{Email: "carol@example.com", Password: strings.Repeat("x", 73)})
	assert.True(t, errors.Is(err, domainerrors.ErrValidationFailed))
}

func TestScenario_RequestResetUnknownAccount(t *testing.T) {
	fx := createIdentityFixtures(t)

	err := fx.reset.RequestReset(context.Background(), "nobody@example.com")

	assert.True(t, errors.Is(err, domainerrors.ErrAccountNotFound))
	assert.Zero(t, fx.notifier.count())
}

func TestScenario_CompleteResetRejectsBadPasswordWithoutBurningCode(t *testing.T) {
	fx := createIdentityFixtures(t)
	ctx := context.Background()
	fx.register(t, "alice@example.com", "secret123")

	require.NoError(t, fx.reset.RequestReset(ctx, "alice@example.com"))
	code := fx.notifier.lastCode(t)

	err := fx.reset.CompleteReset(ctx, &usecase.CompleteResetInput{Code: code, NewPassword: strings.Repeat("x", 73)})
	require.True(t, errors.Is(err, domainerrors.ErrValidationFailed))

	require.NoError(t, fx.reset.ValidateResetCode(ctx, code))
}

func TestScenario_UpdatePassword(t *testing.T) {
	fx := createIdentityFixtures(t)
	ctx := context.Background()

	account, err := fx.credentials.Register(ctx, &usecase.RegisterInput{Email: "alice@example.com", Password: "secret123"})
	require.NoError(t, err)

	err = fx.credentials.UpdatePassword(ctx, &usecase.UpdatePasswordInput{
		AccountID:   account.ID,
		OldPassword: "wrong",
		NewPassword: "newpass456",
	})
	assert.True(t, errors.Is(err, domainerrors.ErrInvalidCredentials))

	require.NoError(t, fx.credentials.UpdatePassword(ctx, &usecase.UpdatePasswordInput{
		AccountID:   account.ID,
		OldPassword: "secret123",
		NewPassword: "newpass456",
	}))

	_, err = fx.credentials.Login(ctx, &usecase.LoginInput{Email: "alice@example.com", Password: "newpass456"})
	assert.NoError(t, err)
}

func TestScenario_UpdateProfile(t *testing.T) {
	fx := createIdentityFixtures(t)
	ctx := context.Background()
	fx.register(t, "bob@example.com", "secret123")

	account, err := fx.credentials.Register(ctx, &usecase.RegisterInput{Email: "alice@example.com", Password: "secret123"})
	require.NoError(t, err)

	require.NoError(t, fx.verification.RequestVerification(ctx, "alice@example.com"))
	_, err = fx.verification.CompleteVerification(ctx, fx.notifier.lastCode(t))
	require.NoError(t, err)

	bio := "hello"
	updated, err := fx.credentials.UpdateProfile(ctx, &usecase.UpdateProfileInput{AccountID: account.ID, Bio: &bio})
	require.NoError(t, err)
	assert.Equal(t, "hello", updated.Bio)
	assert.True(t, updated.EmailValidated)

	taken := "bob@example.com"
	_, err = fx.credentials.UpdateProfile(ctx, &usecase.UpdateProfileInput{AccountID: account.ID, Email: &taken})
	assert.True(t, errors.Is(err, domainerrors.ErrAccountAlreadyExists))

	fresh := "alice@example.org"
	updated, err = fx.credentials.UpdateProfile(ctx, &usecase.UpdateProfileInput{AccountID: account.ID, Email: &fresh})
	require.NoError(t, err)
	assert.Equal(t, fresh, updated.Email)
	assert.False(t, updated.EmailValidated)

	longBio := strings.Repeat("b", 256)
	_, err = fx.credentials.UpdateProfile(ctx, &usecase.UpdateProfileInput{AccountID: account.ID, Bio: &longBio})
	assert.True(t, errors.Is(err, domainerrors.ErrValidationFailed))
}
