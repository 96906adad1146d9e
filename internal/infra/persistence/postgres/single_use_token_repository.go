package postgres

import (
	"context"
	"time"

	"identity/internal/domain/entity"
	domainerrors "identity/internal/domain/errors"
	"identity/internal/domain/repository"
	"identity/internal/errors"
	"identity/internal/infra/persistence/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// singleUseTokenRepository keeps one row per (kind, email) in single_use_tokens.
type singleUseTokenRepository struct {
	db *gorm.DB
}

// NewSingleUseTokenRepository is the constructor for singleUseTokenRepository.
func NewSingleUseTokenRepository(db *gorm.DB) repository.SingleUseTokenRepository {
	return &singleUseTokenRepository{db: db}
}

// UpsertIfNotThrottled runs INSERT ... ON CONFLICT (kind, email) DO UPDATE ... WHERE issued_at <= cutoff.
// Zero affected rows means the existing row is still inside the window.
func (repo *singleUseTokenRepository) UpsertIfNotThrottled(
	ctx context.Context,
	token *entity.SingleUseToken,
	window time.Duration,
) (*entity.SingleUseToken, error) {
	tokenM := fromTokenDomain(token)
	cutoff := tokenM.IssuedAt.Add(-window)

	result := repo.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "kind"}, {Name: "email"}},
		DoUpdates: clause.AssignmentColumns([]string{"code", "issued_at"}),
		Where: clause.Where{Exprs: []clause.Expression{
			clause.Expr{SQL: "single_use_tokens.issued_at <= ?", Vars: []any{cutoff}},
		}},
	}).Create(tokenM)

	if result.Error != nil {
		if isConstraintViolationOn(result.Error, singleUseTokenCodeIndex) {
			return nil, repository.ErrCodeCollision
		}

		return nil, domainerrors.NewDatabaseExecuteError(result.Error, "upsert single-use token")
	}

	if result.RowsAffected == 0 {
		return repo.findLive(ctx, token.Kind, token.Email), repository.ErrTokenThrottled
	}

	return toTokenDomain(tokenM), nil
}

// findLive is best effort; it only feeds the retry-after hint.
func (repo *singleUseTokenRepository) findLive(ctx context.Context, kind entity.TokenKind, email string) *entity.SingleUseToken {
	var tokenM model.SingleUseTokenModel
	if err := repo.db.WithContext(ctx).Where("kind = ? AND email = ?", kind.String(), email).First(&tokenM).Error; err != nil {
		return nil
	}

	return toTokenDomain(&tokenM)
}

// FindByCode returns the live token without consuming it.
func (repo *singleUseTokenRepository) FindByCode(ctx context.Context, kind entity.TokenKind, code string) (*entity.SingleUseToken, error) {
	var tokenM model.SingleUseTokenModel
	if err := repo.db.WithContext(ctx).Where("kind = ? AND code = ?", kind.String(), code).First(&tokenM).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, repository.ErrTokenNotFound
		}

		return nil, domainerrors.NewDatabaseExecuteError(err, "find single-use token by code")
	}

	return toTokenDomain(&tokenM), nil
}

// DeleteByCode runs DELETE ... RETURNING so only one caller observes the row.
func (repo *singleUseTokenRepository) DeleteByCode(ctx context.Context, kind entity.TokenKind, code string) (*entity.SingleUseToken, error) {
	var deleted []model.SingleUseTokenModel
	result := repo.db.WithContext(ctx).
		Clauses(clause.Returning{}).
		Where("kind = ? AND code = ?", kind.String(), code).
		Delete(&deleted)

	if result.Error != nil {
		return nil, domainerrors.NewDatabaseExecuteError(result.Error, "delete single-use token by code")
	}
	if result.RowsAffected == 0 || len(deleted) == 0 {
		return nil, repository.ErrTokenNotFound
	}

	return toTokenDomain(&deleted[0]), nil
}

func toTokenDomain(data *model.SingleUseTokenModel) *entity.SingleUseToken {
	return &entity.SingleUseToken{
		Kind:     entity.TokenKind(data.Kind),
		Email:    data.Email,
		Code:     data.Code,
		IssuedAt: data.IssuedAt,
	}
}

func fromTokenDomain(data *entity.SingleUseToken) *model.SingleUseTokenModel {
	return &model.SingleUseTokenModel{
		Kind:     data.Kind.String(),
		Email:    data.Email,
		Code:     data.Code,
		IssuedAt: data.IssuedAt.UTC(),
	}
}
