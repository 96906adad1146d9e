// Package memory keeps accounts and single-use tokens in process memory.
// It backs tests and single-instance development setups.
package memory

import (
	"context"
	"sync"
	"time"

	"identity/internal/domain/entity"
	"identity/internal/domain/repository"

	"github.com/google/uuid"
)

type accountRepository struct {
	mu      sync.RWMutex
	byID    map[uuid.UUID]*entity.Account
	byEmail map[string]uuid.UUID
	now     func() time.Time
}

// NewAccountRepository creates an empty in-memory account directory.
func NewAccountRepository() repository.AccountRepository {
	return &accountRepository{
		byID:    make(map[uuid.UUID]*entity.Account),
		byEmail: make(map[string]uuid.UUID),
		now:     time.Now,
	}
}

func (repo *accountRepository) FindByID(_ context.Context, id uuid.UUID) (*entity.Account, error) {
	repo.mu.RLock()
	defer repo.mu.RUnlock()

	account, ok := repo.byID[id]
	if !ok {
		return nil, repository.ErrAccountNotFound
	}

	return cloneAccount(account), nil
}

func (repo *accountRepository) FindByEmail(_ context.Context, email string) (*entity.Account, error) {
	repo.mu.RLock()
	defer repo.mu.RUnlock()

	id, ok := repo.byEmail[email]
	if !ok {
		return nil, repository.ErrAccountNotFound
	}

	return cloneAccount(repo.byID[id]), nil
}

func (repo *accountRepository) Create(_ context.Context, account *entity.Account) error {
	repo.mu.Lock()
	defer repo.mu.Unlock()

	if _, taken := repo.byEmail[account.Email]; taken {
		return repository.ErrAccountAlreadyExists
	}
	if _, taken := repo.byID[account.ID]; taken {
		return repository.ErrAccountAlreadyExists
	}

	repo.byID[account.ID] = cloneAccount(account)
	repo.byEmail[account.Email] = account.ID

	return nil
}

func (repo *accountRepository) Update(_ context.Context, id uuid.UUID, update entity.AccountUpdate) (*entity.Account, error) {
	repo.mu.Lock()
	defer repo.mu.Unlock()

	current, ok := repo.byID[id]
	if !ok {
		return nil, repository.ErrAccountNotFound
	}
	if update.IsEmpty() {
		return cloneAccount(current), nil
	}

	if update.Email != nil && *update.Email != current.Email {
		if _, taken := repo.byEmail[*update.Email]; taken {
			return nil, repository.ErrAccountAlreadyExists
		}
		delete(repo.byEmail, current.Email)
		repo.byEmail[*update.Email] = id
	}

	updated := cloneAccount(current)
	update.Apply(updated, repo.now())
	repo.byID[id] = updated

	return cloneAccount(updated), nil
}

func cloneAccount(account *entity.Account) *entity.Account {
	cloned := *account
	cloned.Roles = append(entity.Roles(nil), account.Roles...)

	return &cloned
}
