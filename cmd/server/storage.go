package main

import (
	"context"
	"fmt"

	"github.com/rcarvalho-pb/storefront_payments-go/internal/config"
	"github.com/rcarvalho-pb/storefront_payments-go/internal/domain/intent"
	"github.com/rcarvalho-pb/storefront_payments-go/internal/infrastructure/outbox"
	"github.com/rcarvalho-pb/storefront_payments-go/internal/infrastructure/persistence/inmemory"
	"github.com/rcarvalho-pb/storefront_payments-go/internal/infrastructure/persistence/postgres"
	"github.com/rcarvalho-pb/storefront_payments-go/internal/infrastructure/persistence/sqlite"
)

type storage struct {
	Intents intent.Repository
	Outbox  outbox.Repository
	Close   func()
}

// openStorage connects the configured driver and applies its migrations.
func openStorage(ctx context.Context, cfg config.StorageConfig) (*storage, error) {
	switch cfg.Driver {
	case "sqlite":
		db, err := sqlite.Open(cfg.DSN.Reveal())
		if err != nil {
			return nil, err
		}
		if err := sqlite.RunMigrations(db); err != nil {
			db.Close()
			return nil, fmt.Errorf("sqlite migrations: %w", err)
		}
		return &storage{
			Intents: sqlite.NewIntentRepository(db),
			Outbox:  outbox.NewSQLiteRepository(db),
			Close:   func() { db.Close() },
		}, nil

	case "postgres":
		pool, err := postgres.Open(ctx, cfg.DSN.Reveal())
		if err != nil {
			return nil, err
		}
		if err := postgres.RunMigrations(ctx, pool); err != nil {
			pool.Close()
			return nil, fmt.Errorf("postgres migrations: %w", err)
		}
		return &storage{
			Intents: postgres.NewIntentRepository(pool),
			Outbox:  outbox.NewPostgresRepository(pool),
			Close:   pool.Close,
		}, nil

	case "memory":
		return &storage{
			Intents: inmemory.NewIntentRepository(),
			Outbox:  outbox.NewMemoryRepository(),
			Close:   func() {},
		}, nil
	}
	return nil, fmt.Errorf("unknown storage driver %q", cfg.Driver)
}
