package postgres

import (
	"testing"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"
)

func TestConstraintErrorClassification(t *testing.T) {
	uniqueEmail := errors.Wrap(&pgconn.PgError{Code: pgerrcode.UniqueViolation, ConstraintName: accountEmailIndex}, "insert")
	uniqueCode := &pgconn.PgError{Code: pgerrcode.UniqueViolation, ConstraintName: singleUseTokenCodeIndex}
	notNull := &pgconn.PgError{Code: pgerrcode.NotNullViolation}
	check := &pgconn.PgError{Code: pgerrcode.CheckViolation}
	plain := errors.New("connection reset by peer")

	tests := []struct {
		name       string
		err        error
		unique     bool
		onEmail    bool
		onCode     bool
		notNull    bool
		checkFails bool
	}{
		{name: "unique on email", err: uniqueEmail, unique: true, onEmail: true},
		{name: "unique on code", err: uniqueCode, unique: true, onCode: true},
		{name: "gorm duplicated key", err: gorm.ErrDuplicatedKey, unique: true},
		{name: "not null", err: notNull, notNull: true},
		{name: "check", err: check, checkFails: true},
		{name: "gorm check", err: gorm.ErrCheckConstraintViolated, checkFails: true},
		{name: "plain", err: plain},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.unique, isUniqueConstraintViolation(tt.err))
			assert.Equal(t, tt.onEmail, isConstraintViolationOn(tt.err, accountEmailIndex))
			assert.Equal(t, tt.onCode, isConstraintViolationOn(tt.err, singleUseTokenCodeIndex))
			assert.Equal(t, tt.notNull, isNotNullConstraintViolation(tt.err))
			assert.Equal(t, tt.checkFails, isCheckConstraintViolation(tt.err))
		})
	}
}
