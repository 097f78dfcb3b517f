package main

import (
	"context"
	"fmt"
	"log/slog"

	"carrental/internal/app/middleware"
	"carrental/internal/app/uow"
	"carrental/internal/infra/config"
	mongostore "carrental/internal/infra/db/mongo"
	"carrental/internal/infra/db/postgres"
	"carrental/internal/infra/inbox"
	infraoutbox "carrental/internal/infra/outbox"
	"carrental/internal/infra/storage/memory"
)

// backend bundles the ports one store driver provides.
type backend struct {
	factory     uow.UoWFactory
	relay       infraoutbox.Store
	idempotency middleware.IdempotencyStore
	inbox       func(ctx context.Context, consumer string) (inbox.Inbox, error)
	ready       func(ctx context.Context) error
	close       func(ctx context.Context) error
}

func openStore(ctx context.Context, cfg config.Config, logger *slog.Logger) (*backend, error) {
	switch cfg.StoreDriver {
	case config.DriverMongo:
		return openMongo(ctx, cfg, logger)
	case config.DriverPostgres:
		return openPostgres(ctx, cfg, logger)
	case config.DriverMemory, "":
		return openMemory(cfg, logger)
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.StoreDriver)
	}
}

func openMemory(cfg config.Config, logger *slog.Logger) (*backend, error) {
	store := memory.NewStore()
	fixtures, err := memory.LoadFixtures(cfg.CarsFixtures)
	if err != nil {
		return nil, err
	}
	if err := store.Seed(fixtures, cfg.Pricing.Currency); err != nil {
		return nil, err
	}
	logger.Info("memory store ready", "cars", len(fixtures.Cars), "users", len(fixtures.Users))
	return &backend{
		factory:     memory.Factory{Store: store},
		relay:       store,
		idempotency: memory.IdempotencyStore{Store: store},
		inbox: func(_ context.Context, consumer string) (inbox.Inbox, error) {
			return memory.Inbox{Store: store, Consumer: consumer}, nil
		},
		ready: func(context.Context) error { return nil },
		close: func(context.Context) error { return nil },
	}, nil
}

func openMongo(ctx context.Context, cfg config.Config, logger *slog.Logger) (*backend, error) {
	client, err := mongostore.New(ctx, cfg.MongoURI, cfg.MongoDB, cfg.StoreTimeout)
	if err != nil {
		return nil, fmt.Errorf("mongo connect: %w", err)
	}
	if err := client.EnsureIndexes(ctx); err != nil {
		_ = client.Close(ctx)
		return nil, fmt.Errorf("mongo indexes: %w", err)
	}
	logger.Info("mongo store ready", "database", cfg.MongoDB)
	return &backend{
		factory:     mongostore.Factory{DB: client.DB},
		relay:       mongostore.NewOutboxStore(client.DB),
		idempotency: mongostore.NewIdempotencyStore(client.DB),
		inbox: func(ctx context.Context, consumer string) (inbox.Inbox, error) {
			return inbox.NewStore(ctx, client.DB, consumer)
		},
		ready: client.Ping,
		close: client.Close,
	}, nil
}

func openPostgres(ctx context.Context, cfg config.Config, logger *slog.Logger) (*backend, error) {
	pool, err := postgres.NewPool(ctx, cfg.PostgresDSN, cfg.StoreTimeout)
	if err != nil {
		return nil, fmt.Errorf("postgres connect: %w", err)
	}
	if err := postgres.Migrate(ctx, pool); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres migrate: %w", err)
	}
	logger.Info("postgres store ready")
	return &backend{
		factory:     postgres.Factory{Pool: pool},
		relay:       &postgres.OutboxStore{Pool: pool},
		idempotency: &postgres.IdempotencyStore{Pool: pool},
		inbox: func(_ context.Context, consumer string) (inbox.Inbox, error) {
			return &postgres.Inbox{Pool: pool, Consumer: consumer}, nil
		},
		ready: pool.Ping,
		close: func(context.Context) error {
			pool.Close()
			return nil
		},
	}, nil
}
