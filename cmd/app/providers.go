package main

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/valkey-io/valkey-go"

	"github.com/yanqian/power-predictor/internal/domain/prediction"
	"github.com/yanqian/power-predictor/internal/infra/archive"
	"github.com/yanqian/power-predictor/internal/infra/config"
	"github.com/yanqian/power-predictor/internal/infra/historyrepo"
	"github.com/yanqian/power-predictor/internal/infra/predictor"
	"github.com/yanqian/power-predictor/internal/infra/sessionstore"
)

func providePredictionConfig(cfg *config.Config) prediction.Config {
	return prediction.Config{
		Messages: prediction.Messages{
			Validation: cfg.Predictor.Messages.Validation,
			API:        cfg.Predictor.Messages.API,
			Network:    cfg.Predictor.Messages.Network,
		},
		SessionTTL:   cfg.Session.TTL,
		StaleAfter:   cfg.Session.StaleAfter,
		HistoryLimit: cfg.History.DefaultLimit,
	}
}

func providePredictorClient(cfg *config.Config) *predictor.Client {
	return predictor.NewClient(cfg.Predictor.BaseURL, cfg.Predictor.Timeout)
}

func provideSessionStore(cfg *config.Config, logger *slog.Logger) (prediction.SessionStore, func()) {
	noop := func() {}
	if !cfg.Session.Valkey.Enabled {
		return sessionstore.NewMemoryStore(), noop
	}
	opt, err := buildValkeyOptions(cfg.Session.Valkey.Addr)
	if err != nil {
		logger.Error("invalid valkey configuration, falling back to memory store", "error", err)
		return sessionstore.NewMemoryStore(), noop
	}
	client, err := valkey.NewClient(opt)
	if err != nil {
		logger.Error("failed to create valkey client, falling back to memory store", "error", err)
		return sessionstore.NewMemoryStore(), noop
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Do(ctx, client.B().Ping().Build()).Error(); err != nil {
		logger.Error("valkey ping failed, falling back to memory store", "error", err)
		client.Close()
		return sessionstore.NewMemoryStore(), noop
	}
	logger.Info("valkey session store enabled", "addr", cfg.Session.Valkey.Addr)
	return sessionstore.NewValkeyStore(client, cfg.Session.Valkey.Prefix), client.Close
}

func buildValkeyOptions(addr string) (valkey.ClientOption, error) {
	if strings.Contains(addr, "://") {
		return valkey.ParseURL(addr)
	}
	return valkey.ClientOption{InitAddress: []string{addr}}, nil
}

func provideHistoryRepository(cfg *config.Config, logger *slog.Logger) (prediction.HistoryRepository, func()) {
	noop := func() {}
	fallback := historyrepo.NewMemoryRepository(cfg.History.MemoryCapacity)
	dsn := strings.TrimSpace(cfg.History.Postgres.DSN)
	if dsn == "" {
		logger.Info("history postgres dsn not set, using memory repository")
		return fallback, noop
	}
	poolConfig, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		logger.Error("invalid postgres dsn, using memory repository", "error", err)
		return fallback, noop
	}
	if cfg.History.Postgres.MaxConns > 0 {
		poolConfig.MaxConns = cfg.History.Postgres.MaxConns
	}
	if cfg.History.Postgres.MinConns > 0 {
		poolConfig.MinConns = cfg.History.Postgres.MinConns
	}
	pool, err := pgxpool.NewWithConfig(context.Background(), poolConfig)
	if err != nil {
		logger.Error("failed to initialize postgres pool, using memory repository", "error", err)
		return fallback, noop
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := pool.Ping(ctx); err != nil {
		logger.Error("postgres ping failed, using memory repository", "error", err)
		pool.Close()
		return fallback, noop
	}
	logger.Info("history postgres repository enabled")
	return historyrepo.NewPostgresRepository(pool), pool.Close
}

func provideArchive(cfg *config.Config, logger *slog.Logger) (prediction.Archive, func()) {
	noop := func() {}
	ac := cfg.History.Archive
	if !ac.Enabled {
		return archive.Noop{}, noop
	}
	r2, err := archive.NewR2Archive(ac.Endpoint, ac.AccessKey, ac.SecretKey, ac.Bucket, ac.Region, ac.Prefix, logger)
	if err != nil {
		logger.Error("failed to initialize archive, records will not be archived", "error", err)
		return archive.Noop{}, noop
	}
	logger.Info("prediction archive enabled", "bucket", ac.Bucket)
	async := archive.NewAsync(r2, ac.QueueSize, logger)
	return async, async.Close
}
