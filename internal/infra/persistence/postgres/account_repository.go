// Package postgres contains the concrete implementation of the persistence layer using GORM and PostgreSQL.
package postgres

import (
	"context"
	"time"

	"identity/internal/domain/entity"
	domainerrors "identity/internal/domain/errors"
	"identity/internal/domain/repository"
	"identity/internal/errors"
	"identity/internal/infra/persistence/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// accountRepository implements repository.AccountRepository using GORM.
type accountRepository struct {
	db  *gorm.DB
	now func() time.Time
}

// NewAccountRepository is the constructor for accountRepository.
func NewAccountRepository(db *gorm.DB) repository.AccountRepository {
	return &accountRepository{db: db, now: time.Now}
}

// FindByID retrieves a single account by its unique ID.
func (repo *accountRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.Account, error) {
	var accountM model.AccountModel
	if err := repo.db.WithContext(ctx).Where("id = ?", id).First(&accountM).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, repository.ErrAccountNotFound
		}

		return nil, domainerrors.NewDatabaseExecuteError(err, "find account by id")
	}

	return toAccountDomain(&accountM), nil
}

// FindByEmail retrieves a single account by its exact email.
func (repo *accountRepository) FindByEmail(ctx context.Context, email string) (*entity.Account, error) {
	var accountM model.AccountModel
	if err := repo.db.WithContext(ctx).Where("email = ?", email).First(&accountM).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, repository.ErrAccountNotFound
		}

		return nil, domainerrors.NewDatabaseExecuteError(err, "find account by email")
	}

	return toAccountDomain(&accountM), nil
}

// Create persists a new account.
func (repo *accountRepository) Create(ctx context.Context, account *entity.Account) error {
	accountM := fromAccountDomain(account)

	if err := repo.db.WithContext(ctx).Create(accountM).Error; err != nil {
		if isUniqueConstraintViolation(err) {
			return repository.ErrAccountAlreadyExists
		}
		if isNotNullConstraintViolation(err) || isCheckConstraintViolation(err) {
			return domainerrors.NewDatabaseExecuteError(err, "create account with invalid fields")
		}

		return domainerrors.NewDatabaseExecuteError(err, "create account")
	}

	account.CreatedAt = accountM.CreatedAt
	account.UpdatedAt = accountM.UpdatedAt

	return nil
}

// Update applies the non-nil fields in a single UPDATE ... RETURNING statement.
func (repo *accountRepository) Update(ctx context.Context, id uuid.UUID, update entity.AccountUpdate) (*entity.Account, error) {
	if update.IsEmpty() {
		return repo.FindByID(ctx, id)
	}

	var accountM model.AccountModel
	result := repo.db.WithContext(ctx).
		Model(&accountM).
		Clauses(clause.Returning{}).
		Where("id = ?", id).
		Updates(toAccountColumns(update, repo.now()))

	if result.Error != nil {
		if isConstraintViolationOn(result.Error, accountEmailIndex) || isUniqueConstraintViolation(result.Error) {
			return nil, repository.ErrAccountAlreadyExists
		}

		return nil, domainerrors.NewDatabaseExecuteError(result.Error, "update account")
	}
	if result.RowsAffected == 0 {
		return nil, repository.ErrAccountNotFound
	}

	return toAccountDomain(&accountM), nil
}

func toAccountColumns(update entity.AccountUpdate, now time.Time) map[string]any {
	columns := map[string]any{"updated_at": now}

	if update.Email != nil {
		columns["email"] = *update.Email
	}
	if update.PasswordHash != nil {
		columns["password_hash"] = *update.PasswordHash
	}
	if update.EmailValidated != nil {
		columns["email_validated"] = *update.EmailValidated
	}
	if update.FirstName != nil {
		columns["first_name"] = *update.FirstName
	}
	if update.LastName != nil {
		columns["last_name"] = *update.LastName
	}
	if update.Bio != nil {
		columns["bio"] = *update.Bio
	}
	if update.Avatar != nil {
		columns["avatar"] = *update.Avatar
	}

	return columns
}

// --- Mapper Functions ---

func toAccountDomain(data *model.AccountModel) *entity.Account {
	if data == nil {
		return nil
	}

	return &entity.Account{
		ID:             data.ID,
		Email:          data.Email,
		PasswordHash:   data.PasswordHash,
		Roles:          entity.RolesFromStrings(data.Roles),
		EmailValidated: data.EmailValidated,
		FirstName:      data.FirstName,
		LastName:       data.LastName,
		Bio:            data.Bio,
		Avatar:         data.Avatar,
		CreatedAt:      data.CreatedAt,
		UpdatedAt:      data.UpdatedAt,
	}
}

func fromAccountDomain(data *entity.Account) *model.AccountModel {
	if data == nil {
		return nil
	}

	return &model.AccountModel{
		ID:             data.ID,
		Email:          data.Email,
		PasswordHash:   data.PasswordHash,
		Roles:          data.Roles.ToStrings(),
		EmailValidated: data.EmailValidated,
		FirstName:      data.FirstName,
		LastName:       data.LastName,
		Bio:            data.Bio,
		Avatar:         data.Avatar,
		CreatedAt:      data.CreatedAt,
		UpdatedAt:      data.UpdatedAt,
	}
}
