package impl

import (
	"context"
	"strings"
	"testing"

	domainerrors "identity/internal/domain/errors"
	"identity/internal/domain/service"
	"identity/internal/errors"
	"identity/internal/infra/persistence/memory"
	mockRepo "identity/internal/mocks/repository"
	mockSvc "identity/internal/mocks/service"
	"identity/internal/usecase"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

type verificationFixtures struct {
	notifier *mockSvc.MockNotifier
	service  usecase.VerificationUsecase
}

func createVerificationFixtures(t *testing.T) verificationFixtures {
	t.Helper()

	notifier := mockSvc.NewMockNotifier(t)

	return verificationFixtures{
		notifier: notifier,
		service: NewVerificationService(VerificationServiceParams{
			AccountRepo: mockRepo.NewMockAccountRepository(t),
			TokenRepo:   memory.NewSingleUseTokenRepository(),
			Notifier:    notifier,
			Config:      newTestConfig(),
			Logger:      newDiscardLogger(),
		}),
	}
}

func TestVerificationService_RequestSendsCodeAndLink(t *testing.T) {
	fx := createVerificationFixtures(t)

	fx.notifier.EXPECT().Send(mock.Anything, mock.MatchedBy(func(msg *service.Message) bool {
		match := codePattern.FindStringSubmatch(msg.HTMLBody)

		return msg.To == "alice@example.com" &&
			len(match) == 2 &&
			strings.Contains(msg.HTMLBody, "https://app.example.com/verify/"+match[1])
	})).Return(nil).Once()

	err := fx.service.RequestVerification(context.Background(), "alice@example.com")

	assert.NoError(t, err)
}

func TestVerificationService_RequestDeliveryFailure(t *testing.T) {
	fx := createVerificationFixtures(t)

	fx.notifier.EXPECT().Send(mock.Anything, mock.Anything).Return(errors.New("421 relay busy")).Once()

	err := fx.service.RequestVerification(context.Background(), "alice@example.com")
	assert.True(t, errors.Is(err, domainerrors.ErrDeliveryFailed))

	// The undelivered code still holds the throttle, so no second send happens.
	err = fx.service.RequestVerification(context.Background(), "alice@example.com")
	assert.True(t, errors.Is(err, domainerrors.ErrTokenThrottled))
}

func TestVerificationService_RequestWithoutEmail(t *testing.T) {
	fx := createVerificationFixtures(t)

	err := fx.service.RequestVerification(context.Background(), "")

	assert.True(t, errors.Is(err, domainerrors.ErrValidationFailed))
	fx.notifier.AssertNotCalled(t, "Send", mock.Anything, mock.Anything)
}
