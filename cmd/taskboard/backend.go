package main

import (
	"fmt"
	"io"
	"log/slog"

	"taskboard/internal/auth"
	"taskboard/internal/cache"
	"taskboard/internal/config"
	"taskboard/internal/service"
	"taskboard/internal/storage"
	"taskboard/internal/storage/postgrest"
	"taskboard/internal/storage/sqlite"
	"taskboard/internal/supabase"
)

// backend bundles what both commands need. close releases everything it opened.
type backend struct {
	board  *service.Board
	tokens *auth.Tokens
	close  func()
}

func openStore(cfg config.Config, tokens *auth.Tokens, logger *slog.Logger) (storage.Store, error) {
	switch cfg.Storage.Driver {
	case config.DriverSupabase:
		client := supabase.NewClient(supabase.Config{
			URL:        cfg.Supabase.URL,
			AnonKey:    cfg.Supabase.AnonKey,
			ServiceKey: cfg.Supabase.ServiceKey,
			Timeout:    cfg.Supabase.Timeout.Std(),
		}, logger)
		return postgrest.New(client, logger), nil
	case config.DriverSQLite:
		return sqlite.Open(cfg.Storage.SQLitePath, tokens, logger)
	default:
		return nil, fmt.Errorf("unknown driver %q", cfg.Storage.Driver)
	}
}

func openBackend(cfg config.Config, logger *slog.Logger) (*backend, error) {
	tokens := auth.NewTokens(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL.Std(), cfg.Auth.RefreshTTL.Std())

	store, err := openStore(cfg, tokens, logger)
	if err != nil {
		return nil, fmt.Errorf("unable to open store: %w", err)
	}
	closers := []io.Closer{}
	if c, ok := store.(io.Closer); ok {
		closers = append(closers, c)
	}

	opts := service.Options{Logger: logger}
	if cfg.Redis.URL != "" {
		lookup, err := cache.NewRedisLookup(cfg.Redis.URL, cfg.Redis.TTL.Std())
		if err != nil {
			// The board works without the cache, only slower.
			logger.Warn("lookup cache disabled", slog.String("error", err.Error()))
		} else {
			opts.Lookup = lookup
			closers = append(closers, lookup)
		}
	}

	logger.Info("storage ready", slog.String("driver", cfg.Storage.Driver), slog.Bool("lookup_cache", opts.Lookup != nil))

	return &backend{
		board:  service.New(store, opts),
		tokens: tokens,
		close: func() {
			for i := len(closers) - 1; i >= 0; i-- {
				if err := closers[i].Close(); err != nil {
					logger.Warn("close failed", slog.String("error", err.Error()))
				}
			}
		},
	}, nil
}
