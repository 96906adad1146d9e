// Package persistence selects the account and token stores configured for this process.
package persistence

import (
	"log/slog"

	"identity/config"
	"identity/internal/domain/repository"
	"identity/internal/errors"
	"identity/internal/infra/metrics"
	"identity/internal/infra/persistence/memory"
	"identity/internal/infra/persistence/postgres"
	"identity/internal/infra/persistence/redis"

	"go.uber.org/fx"
	"gorm.io/gorm"
)

// RepositoryParams holds dependencies for the repositories, injected by Fx
type RepositoryParams struct {
	fx.In

	Lc      fx.Lifecycle
	Config  *config.Config
	Logger  *slog.Logger
	Metrics *metrics.Metrics `optional:"true"`
}

// Repositories exposes the selected stores to the container.
type Repositories struct {
	fx.Out

	Accounts repository.AccountRepository
	Tokens   repository.SingleUseTokenRepository
}

// NewRepositories builds the stores named by accountStore.backend and tokenStore.backend.
// Connections are only opened for backends that are in use.
func NewRepositories(params RepositoryParams) (Repositories, error) {
	cfg := params.Config
	logger := params.Logger

	var db *gorm.DB
	openPostgres := func() (*gorm.DB, error) {
		if db != nil {
			return db, nil
		}

		var err error
		db, err = postgres.New(postgres.Params{Lifecycle: params.Lc, Config: cfg, Logger: logger, Metrics: params.Metrics})

		return db, err
	}

	var out Repositories

	switch cfg.AccountStore.Backend {
	case config.BackendPostgres:
		conn, err := openPostgres()
		if err != nil {
			return Repositories{}, err
		}
		out.Accounts = postgres.NewAccountRepository(conn)
	case config.BackendMemory:
		out.Accounts = memory.NewAccountRepository()
	default:
		return Repositories{}, errors.Errorf("unknown account store backend: %s", cfg.AccountStore.Backend)
	}

	switch cfg.TokenStore.Backend {
	case config.BackendPostgres:
		conn, err := openPostgres()
		if err != nil {
			return Repositories{}, err
		}
		out.Tokens = postgres.NewSingleUseTokenRepository(conn)
	case config.BackendRedis:
		client, err := redis.New(redis.Params{Lifecycle: params.Lc, Config: cfg, Logger: logger})
		if err != nil {
			return Repositories{}, err
		}
		out.Tokens = redis.NewSingleUseTokenRepository(client, cfg.TokenStore.KeyPrefix)
	case config.BackendMemory:
		out.Tokens = memory.NewSingleUseTokenRepository()
	default:
		return Repositories{}, errors.Errorf("unknown token store backend: %s", cfg.TokenStore.Backend)
	}

	logger.Info("Persistence configured",
		slog.String("account_store", cfg.AccountStore.Backend),
		slog.String("token_store", cfg.TokenStore.Backend),
	)

	return out, nil
}

// Module provides the persistence FX module
//
//nolint:gochecknoglobals
var Module = fx.Options(
	fx.Provide(NewRepositories),
)
