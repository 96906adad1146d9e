package postgres

import (
	"context"
	"log/slog"

	"identity/config"
	"identity/internal/domain/lifecycle"
	"identity/internal/errors"
	"identity/internal/infra/metrics"
	"identity/internal/infra/persistence/model"

	pgLib "github.com/slighter12/go-lib/database/postgres"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

// Params defines the required parameters
type Params struct {
	fx.In
	fx.Lifecycle

	Config  *config.Config
	Logger  *slog.Logger
	Metrics *metrics.Metrics `optional:"true"`
}

type migration struct {
	table string
	model any
}

// credentialSchema lists the tables in creation order.
//
//nolint:gochecknoglobals
var credentialSchema = []migration{
	{table: model.AccountModel{}.TableName(), model: &model.AccountModel{}},
	{table: model.SingleUseTokenModel{}.TableName(), model: &model.SingleUseTokenModel{}},
}

// New opens the credential database. The schema is migrated when the
// application starts, and pool statistics are exported through metrics.
func New(params Params) (*gorm.DB, error) {
	db, err := pgLib.New(params.Config.Postgres)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open credential database")
	}
	db = db.Session(&gorm.Session{
		SkipDefaultTransaction: true,
		Logger:                 newGormSlogLogger(params.Logger, params.Config),
	})

	sqlDB, err := db.DB()
	if err != nil {
		return nil, errors.Wrap(err, "failed to get credential database pool")
	}
	if err := params.Metrics.RegisterDBStats(sqlDB); err != nil {
		return nil, errors.Wrap(err, "failed to export credential database pool stats")
	}

	params.Append(fx.Hook{
		OnStart: func(startCtx context.Context) error {
			ctx, cancel := context.WithTimeout(startCtx, lifecycle.DefaultTimeout)
			defer cancel()

			if err := sqlDB.PingContext(ctx); err != nil {
				return errors.Wrap(err, "credential database unreachable")
			}

			return Migrate(ctx, db, params.Logger)
		},
		OnStop: func(_ context.Context) error {
			return sqlDB.Close()
		},
	})

	return db, nil
}

// Migrate brings the credential tables up to date in one transaction.
func Migrate(ctx context.Context, db *gorm.DB, logger *slog.Logger) error {
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, m := range credentialSchema {
			if err := tx.AutoMigrate(m.model); err != nil {
				return errors.Wrapf(err, "failed to migrate %s", m.table)
			}
			logger.DebugContext(ctx, "Credential table migrated", slog.String("table", m.table))
		}

		return nil
	})
}
