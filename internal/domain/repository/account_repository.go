// Package repository defines the interfaces for the persistence layer.
// These interfaces act as a contract between the domain/application layers and the infrastructure layer.
package repository

import (
	"context"
	"errors"

	"identity/internal/domain/entity"

	"github.com/google/uuid"
)

var (
	// ErrAccountNotFound is returned when no account matches the lookup.
	ErrAccountNotFound = errors.New("account not found")

	// ErrAccountAlreadyExists is returned when the email is already taken.
	ErrAccountAlreadyExists = errors.New("account already exists")
)

// AccountRepository is the account directory consumed by the credential workflows.
type AccountRepository interface {
	// FindByID retrieves a single account by its unique ID.
	FindByID(ctx context.Context, id uuid.UUID) (*entity.Account, error)

	// FindByEmail retrieves a single account by its email, compared exactly.
	FindByEmail(ctx context.Context, email string) (*entity.Account, error)

	// Create persists a new account. Returns ErrAccountAlreadyExists on a duplicate email.
	Create(ctx context.Context, account *entity.Account) error

	// Update applies the non-nil fields and returns the stored account.
	Update(ctx context.Context, id uuid.UUID, update entity.AccountUpdate) (*entity.Account, error)
}
