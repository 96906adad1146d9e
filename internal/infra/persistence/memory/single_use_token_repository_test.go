package memory

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"identity/internal/domain/entity"
	"identity/internal/domain/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const window = 15 * time.Minute

func newToken(kind entity.TokenKind, email, code string, issuedAt time.Time) *entity.SingleUseToken {
	return &entity.SingleUseToken{Kind: kind, Email: email, Code: code, IssuedAt: issuedAt}
}

func TestSingleUseTokenRepository_Throttle(t *testing.T) {
	ctx := context.Background()
	repo := NewSingleUseTokenRepository()
	issued := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

	_, err := repo.UpsertIfNotThrottled(ctx, newToken(entity.TokenKindReset, "a@example.com", "1111111", issued), window)
	require.NoError(t, err)

	existing, err := repo.UpsertIfNotThrottled(ctx, newToken(entity.TokenKindReset, "a@example.com", "2222222", issued.Add(time.Minute)), window)
	assert.ErrorIs(t, err, repository.ErrTokenThrottled)
	require.NotNil(t, existing)
	assert.Equal(t, "1111111", existing.Code)

	// Other kinds are independent.
	_, err = repo.UpsertIfNotThrottled(ctx, newToken(entity.TokenKindVerification, "a@example.com", "2222222", issued.Add(time.Minute)), window)
	require.NoError(t, err)

	replaced, err := repo.UpsertIfNotThrottled(ctx, newToken(entity.TokenKindReset, "a@example.com", "3333333", issued.Add(window)), window)
	require.NoError(t, err)
	assert.Equal(t, "3333333", replaced.Code)

	_, err = repo.FindByCode(ctx, entity.TokenKindReset, "1111111")
	assert.ErrorIs(t, err, repository.ErrTokenNotFound)

	found, err := repo.FindByCode(ctx, entity.TokenKindReset, "3333333")
	require.NoError(t, err)
	assert.Equal(t, "a@example.com", found.Email)
}

func TestSingleUseTokenRepository_CodeCollision(t *testing.T) {
	ctx := context.Background()
	repo := NewSingleUseTokenRepository()
	now := time.Now()

	_, err := repo.UpsertIfNotThrottled(ctx, newToken(entity.TokenKindVerification, "a@example.com", "1234567", now), window)
	require.NoError(t, err)

	_, err = repo.UpsertIfNotThrottled(ctx, newToken(entity.TokenKindVerification, "b@example.com", "1234567", now), window)
	assert.ErrorIs(t, err, repository.ErrCodeCollision)

	_, err = repo.UpsertIfNotThrottled(ctx, newToken(entity.TokenKindReset, "b@example.com", "1234567", now), window)
	assert.NoError(t, err)
}

func TestSingleUseTokenRepository_DeleteByCodeOnce(t *testing.T) {
	ctx := context.Background()
	repo := NewSingleUseTokenRepository()

	_, err := repo.UpsertIfNotThrottled(ctx, newToken(entity.TokenKindReset, "a@example.com", "7654321", time.Now()), window)
	require.NoError(t, err)

	var (
		wg       sync.WaitGroup
		consumed atomic.Int32
	)
	for range 16 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := repo.DeleteByCode(ctx, entity.TokenKindReset, "7654321"); err == nil {
				consumed.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), consumed.Load())

	_, err = repo.DeleteByCode(ctx, entity.TokenKindReset, "7654321")
	assert.ErrorIs(t, err, repository.ErrTokenNotFound)

	// Consumed emails can be re-issued immediately.
	_, err = repo.UpsertIfNotThrottled(ctx, newToken(entity.TokenKindReset, "a@example.com", "1111111", time.Now()), window)
	assert.NoError(t, err)
}
