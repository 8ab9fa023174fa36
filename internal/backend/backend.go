// Package backend builds the remote row source selected by configuration:
// the datasets-server client or the Postgres store, optionally behind a
// cache.
package backend

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/MikeSquared-Agency/chatlens/internal/cache"
	"github.com/MikeSquared-Agency/chatlens/internal/config"
	"github.com/MikeSquared-Agency/chatlens/internal/hub"
	"github.com/MikeSquared-Agency/chatlens/internal/provider"
	"github.com/MikeSquared-Agency/chatlens/internal/store"
)

type Settings struct {
	Kind        string
	HubURL      string
	HubTimeout  time.Duration
	DatabaseURL string
	RedisURL    string
	CacheTTL    time.Duration
}

func FromConfig(cfg config.Config) Settings {
	return Settings{
		Kind:        cfg.RowBackend,
		HubURL:      cfg.HubURL,
		HubTimeout:  cfg.HubTimeout,
		DatabaseURL: cfg.DatabaseURL,
		RedisURL:    cfg.RedisURL,
		CacheTTL:    cfg.CacheTTL,
	}
}

// Open returns the row source and a function releasing its connections.
// With a Redis URL the rows are cached in Redis; otherwise a positive TTL
// selects the in-memory cache.
func Open(ctx context.Context, s Settings, logger *slog.Logger) (provider.RowSource, func(), error) {
	var (
		rows    provider.RowSource
		closers []func()
	)
	closeAll := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	switch s.Kind {
	case config.BackendHub, "":
		rows = hub.NewClient(s.HubURL, s.HubTimeout)
		logger.Info("row backend ready", "backend", config.BackendHub, "url", s.HubURL)
	case config.BackendPostgres:
		if s.DatabaseURL == "" {
			return nil, nil, fmt.Errorf("DATABASE_URL is required for the %s backend", config.BackendPostgres)
		}
		db, err := store.New(ctx, s.DatabaseURL)
		if err != nil {
			return nil, nil, err
		}
		if err := db.Migrate(ctx); err != nil {
			db.Close()
			return nil, nil, err
		}
		closers = append(closers, db.Close)
		rows = db
		logger.Info("row backend ready", "backend", config.BackendPostgres)
	default:
		return nil, nil, fmt.Errorf("unknown row backend %q", s.Kind)
	}

	switch {
	case s.RedisURL != "":
		rdb, err := cache.NewRedis(ctx, s.RedisURL)
		if err != nil {
			closeAll()
			return nil, nil, err
		}
		closers = append(closers, func() { rdb.Close() })
		rows = cache.New(rows, rdb, s.CacheTTL, logger)
		logger.Info("row cache ready", "cache", "redis", "ttl", s.CacheTTL)
	case s.CacheTTL > 0:
		rows = cache.New(rows, cache.NewMemory(), s.CacheTTL, logger)
		logger.Info("row cache ready", "cache", "memory", "ttl", s.CacheTTL)
	}

	return rows, closeAll, nil
}
