package memory

import (
	"context"
	"sync"
	"time"

	"identity/internal/domain/entity"
	"identity/internal/domain/repository"
)

type tokenKey struct {
	kind  entity.TokenKind
	value string
}

// singleUseTokenRepository indexes tokens by email and by code under one lock,
// which makes upsert and consume atomic.
type singleUseTokenRepository struct {
	mu      sync.Mutex
	byEmail map[tokenKey]*entity.SingleUseToken
	byCode  map[tokenKey]string
}

// NewSingleUseTokenRepository creates an empty in-memory token store.
func NewSingleUseTokenRepository() repository.SingleUseTokenRepository {
	return &singleUseTokenRepository{
		byEmail: make(map[tokenKey]*entity.SingleUseToken),
		byCode:  make(map[tokenKey]string),
	}
}

func (repo *singleUseTokenRepository) UpsertIfNotThrottled(
	_ context.Context,
	token *entity.SingleUseToken,
	window time.Duration,
) (*entity.SingleUseToken, error) {
	repo.mu.Lock()
	defer repo.mu.Unlock()

	emailKey := tokenKey{kind: token.Kind, value: token.Email}
	codeKey := tokenKey{kind: token.Kind, value: token.Code}

	existing, ok := repo.byEmail[emailKey]
	if ok && existing.ThrottledAt(token.IssuedAt, window) {
		cloned := *existing

		return &cloned, repository.ErrTokenThrottled
	}
	if owner, taken := repo.byCode[codeKey]; taken && owner != token.Email {
		return nil, repository.ErrCodeCollision
	}

	if ok {
		delete(repo.byCode, tokenKey{kind: token.Kind, value: existing.Code})
	}

	stored := *token
	repo.byEmail[emailKey] = &stored
	repo.byCode[codeKey] = token.Email

	cloned := stored

	return &cloned, nil
}

func (repo *singleUseTokenRepository) FindByCode(_ context.Context, kind entity.TokenKind, code string) (*entity.SingleUseToken, error) {
	repo.mu.Lock()
	defer repo.mu.Unlock()

	email, ok := repo.byCode[tokenKey{kind: kind, value: code}]
	if !ok {
		return nil, repository.ErrTokenNotFound
	}

	cloned := *repo.byEmail[tokenKey{kind: kind, value: email}]

	return &cloned, nil
}

func (repo *singleUseTokenRepository) DeleteByCode(_ context.Context, kind entity.TokenKind, code string) (*entity.SingleUseToken, error) {
	repo.mu.Lock()
	defer repo.mu.Unlock()

	codeKey := tokenKey{kind: kind, value: code}
	email, ok := repo.byCode[codeKey]
	if !ok {
		return nil, repository.ErrTokenNotFound
	}

	emailKey := tokenKey{kind: kind, value: email}
	token := repo.byEmail[emailKey]
	delete(repo.byCode, codeKey)
	delete(repo.byEmail, emailKey)

	return token, nil
}
