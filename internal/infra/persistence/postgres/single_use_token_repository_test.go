package postgres

import (
	"context"
	"testing"
	"time"

	"identity/internal/domain/entity"
	"identity/internal/domain/repository"
	"identity/internal/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	gormpostgres "gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type capturedStatement struct {
	sql  string
	vars []any
}

// newDryRunDB builds statements against the postgres dialect without connecting.
func newDryRunDB(t *testing.T) (*gorm.DB, *[]capturedStatement) {
	t.Helper()

	db, err := gorm.Open(gormpostgres.New(gormpostgres.Config{
		DSN: "host=127.0.0.1 port=1 user=identity dbname=identity sslmode=disable",
	}), &gorm.Config{
		DryRun:               true,
		DisableAutomaticPing: true,
		Logger:               logger.Discard,
	})
	require.NoError(t, err)

	var captured []capturedStatement
	capture := func(tx *gorm.DB) {
		captured = append(captured, capturedStatement{sql: tx.Statement.SQL.String(), vars: tx.Statement.Vars})
	}
	require.NoError(t, db.Callback().Create().After("gorm:create").Register("test:capture_create", capture))
	require.NoError(t, db.Callback().Delete().After("gorm:delete").Register("test:capture_delete", capture))

	return db, &captured
}

func TestSingleUseTokenRepository_UpsertIsConditional(t *testing.T) {
	db, captured := newDryRunDB(t)
	repo := NewSingleUseTokenRepository(db)
	issuedAt := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	_, err := repo.UpsertIfNotThrottled(context.Background(), &entity.SingleUseToken{
		Kind:     entity.TokenKindReset,
		Email:    "alice@example.com",
		Code:     "1234567",
		IssuedAt: issuedAt,
	}, 15*time.Minute)

	// Nothing executes, so no row is reported as written.
	assert.True(t, errors.Is(err, repository.ErrTokenThrottled))

	require.Len(t, *captured, 1)
	stmt := (*captured)[0]
	assert.Contains(t, stmt.sql, `INSERT INTO "single_use_tokens"`)
	assert.Contains(t, stmt.sql, `ON CONFLICT ("kind","email") DO UPDATE SET`)
	assert.Contains(t, stmt.sql, `"code"="excluded"."code"`)
	assert.Contains(t, stmt.sql, `"issued_at"="excluded"."issued_at"`)
	assert.Contains(t, stmt.sql, `WHERE single_use_tokens.issued_at <= $5`)
	require.Len(t, stmt.vars, 5)
	assert.Equal(t, issuedAt.Add(-15*time.Minute), stmt.vars[4])
}

func TestSingleUseTokenRepository_DeleteReturnsRow(t *testing.T) {
	db, captured := newDryRunDB(t)
	repo := NewSingleUseTokenRepository(db)

	token, err := repo.DeleteByCode(context.Background(), entity.TokenKindVerification, "7654321")

	assert.Nil(t, token)
	assert.True(t, errors.Is(err, repository.ErrTokenNotFound))

	require.Len(t, *captured, 1)
	stmt := (*captured)[0]
	assert.Contains(t, stmt.sql, `DELETE FROM "single_use_tokens"`)
	assert.Contains(t, stmt.sql, "kind = $1 AND code = $2")
	assert.Contains(t, stmt.sql, "RETURNING *")
	assert.Equal(t, []any{"verification", "7654321"}, stmt.vars)
}
