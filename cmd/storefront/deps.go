package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"github.com/fjod/go_storefront/internal/cache"
	"github.com/fjod/go_storefront/internal/config"
	"github.com/fjod/go_storefront/internal/events"
	"github.com/fjod/go_storefront/internal/pkg/circuitbreaker"
	"github.com/fjod/go_storefront/internal/store"
	"github.com/fjod/go_storefront/internal/store/memstore"
	"github.com/fjod/go_storefront/internal/store/mongostore"
	"github.com/fjod/go_storefront/internal/store/pgstore"
)

func pgCredentials(c config.PostgresConfig) *pgstore.Credentials {
	return &pgstore.Credentials{
		Host:              c.Host,
		Port:              c.Port,
		User:              c.User,
		Password:          c.Password,
		DBName:            c.DBName,
		MigrationsDirPath: c.Migrations,
	}
}

// openStore connects the configured document store.
func openStore(ctx context.Context, cfg *config.Config) (store.Store, error) {
	switch cfg.Store.Driver {
	case config.DriverMongo:
		s, err := mongostore.ConnectMongoDB(ctx, cfg.Mongo.URI, cfg.Mongo.Database)
		if err != nil {
			return nil, err
		}
		if err := s.CreateIndexes(ctx); err != nil {
			s.Close(ctx)
			return nil, fmt.Errorf("create indexes: %w", err)
		}
		slog.Info("connected to MongoDB", "database", cfg.Mongo.Database)
		return s, nil
	case config.DriverPostgres:
		cred := pgCredentials(cfg.Postgres)
		s, err := pgstore.NewStore(ctx, cred)
		if err != nil {
			return nil, err
		}
		if err := s.RunMigrations(cred); err != nil {
			s.Close(ctx)
			return nil, err
		}
		slog.Info("connected to PostgreSQL", "database", cfg.Postgres.DBName)
		return s, nil
	default:
		slog.Warn("using in-memory store, data is lost on restart")
		return memstore.New(), nil
	}
}

// openCartCache returns the synced cart store, or the disabled store when
// Redis is not configured.
func openCartCache(ctx context.Context, cfg *config.Config) (cache.CartStore, func()) {
	if !cfg.Redis.Enabled() {
		slog.Warn("redis not configured, cart sync disabled")
		return cache.DisabledCartStore{}, func() {}
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		// keep running; the breaker reports the cache as unavailable until it recovers
		slog.Error("redis ping failed", "addr", cfg.Redis.Addr, "error", err)
	}
	breaker := circuitbreaker.New(circuitbreaker.Settings{
		Name:        "redis-cart",
		MaxFailures: cfg.Breaker.MaxFailures,
		OpenTimeout: cfg.Breaker.OpenTimeout,
		Ignore:      cache.IsExpected,
	})
	return cache.NewRedisCartStore(client, cfg.Cart.TTL, breaker), func() { client.Close() }
}

func newPublisher(cfg *config.Config) events.Publisher {
	if len(cfg.Kafka.Brokers) == 0 {
		return events.NopPublisher{}
	}
	return events.NewKafkaPublisher(cfg.Kafka.Topic, cfg.Kafka.Brokers...)
}
