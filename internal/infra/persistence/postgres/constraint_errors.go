package postgres

import (
	"identity/internal/errors"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

const (
	accountEmailIndex       = "idx_accounts_email"
	singleUseTokenCodeIndex = "idx_single_use_tokens_kind_code"
)

func asPgError(err error) (*pgconn.PgError, bool) {
	return errors.AsType[*pgconn.PgError](err)
}

func isUniqueConstraintViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}

	pgErr, ok := asPgError(err)

	return ok && pgErr.Code == pgerrcode.UniqueViolation
}

// isConstraintViolationOn reports a unique violation on the named constraint or index.
func isConstraintViolationOn(err error, constraint string) bool {
	pgErr, ok := asPgError(err)
	if !ok {
		return false
	}

	return pgErr.Code == pgerrcode.UniqueViolation && pgErr.ConstraintName == constraint
}

func isNotNullConstraintViolation(err error) bool {
	pgErr, ok := asPgError(err)

	return ok && pgErr.Code == pgerrcode.NotNullViolation
}

func isCheckConstraintViolation(err error) bool {
	if errors.Is(err, gorm.ErrCheckConstraintViolated) {
		return true
	}

	pgErr, ok := asPgError(err)

	return ok && pgErr.Code == pgerrcode.CheckViolation
}
