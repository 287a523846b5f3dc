// Package app wires the cache and its collaborators from a Config.
package app

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"TaiexCache/internal/cache"
	"TaiexCache/internal/collector"
	"TaiexCache/internal/config"
	"TaiexCache/internal/freshness"
	"TaiexCache/internal/logger"
	"TaiexCache/internal/metrics"
	"TaiexCache/internal/notifier"
	"TaiexCache/internal/recorder"
	"TaiexCache/internal/store"
)

const redisPrefix = "taiexcache"

// App holds the long-lived components shared by the binaries.
type App struct {
	Config   *config.Config
	Location *time.Location
	Cache    *cache.TimeSeriesCache
	Store    store.Store
	Recorder recorder.Recorder
	Metrics  *metrics.Metrics
	Notifier notifier.Notifier // nil unless Telegram is configured

	closers []func() error
}

// New builds every component. Close releases them.
func New(cfg *config.Config) (*App, error) {
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}
	historyStart, err := cfg.HistoryStart()
	if err != nil {
		return nil, err
	}

	a := &App{Config: cfg, Location: loc, Metrics: metrics.New()}

	st, err := a.newStore()
	if err != nil {
		return nil, err
	}
	a.Store = st
	logger.Info("cache store selected", logger.String("store", st.Name()))

	history, snapshots, err := a.newFetchers()
	if err != nil {
		a.Close()
		return nil, err
	}
	logger.Info("data source selected",
		logger.String("history", history.Name()),
		logger.String("snapshots", snapshots.Name()))

	a.Recorder = a.newRecorder()

	if cfg.Telegram.BotToken != "" && cfg.Telegram.ChatID != "" {
		a.Notifier = notifier.NewTelegramNotifier(cfg.Telegram.BotToken, cfg.Telegram.ChatID, cfg.Proxy)
	}

	policy, err := freshness.NewPolicy(cfg.Cache.HistoricalInterval, cfg.Cache.RealtimeInterval,
		cfg.Cache.TradingStart, cfg.Cache.TradingEnd, loc)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("freshness policy: %w", err)
	}

	c, err := cache.New(cache.Options{
		History:      history,
		Snapshots:    snapshots,
		Store:        st,
		Policy:       policy,
		Recorder:     a.Recorder,
		Observer:     a.Metrics,
		HistoryStart: historyStart,
		FetchTimeout: cfg.Cache.FetchTimeout,
	})
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("init cache: %w", err)
	}
	a.Cache = c
	return a, nil
}

func (a *App) newStore() (store.Store, error) {
	switch a.Config.Cache.Backend {
	case "parquet":
		return store.NewParquetStore(a.Config.Cache.Dir, a.Location), nil
	case "redis":
		rs, err := store.NewRedisStore(store.RedisConfig{
			Addr:     a.Config.Redis.Addr,
			Password: a.Config.Redis.Password,
			DB:       a.Config.Redis.DB,
			Prefix:   redisPrefix,
		}, a.Location)
		if err != nil {
			return nil, fmt.Errorf("init redis store: %w", err)
		}
		a.closers = append(a.closers, rs.Close)
		return rs, nil
	case "none":
		return store.NoopStore{}, nil
	default:
		return nil, fmt.Errorf("unknown cache backend %q", a.Config.Cache.Backend)
	}
}

func (a *App) newFetchers() (collector.HistoryFetcher, collector.SnapshotFetcher, error) {
	ds := a.Config.DataSource
	switch ds.Provider {
	case "broker":
		bc := collector.NewBrokerClient(ds.BaseURL, ds.APIKey, a.Config.Proxy, a.Location)
		return bc, bc, nil
	case "yahoo":
		yf := collector.NewYahooFetcher(a.Config.Proxy, a.Location)
		return yf, yf, nil
	case "mock":
		mf := &collector.MockFetcher{Price: 17000, Location: a.Location}
		return mf, mf, nil
	default:
		return nil, nil, fmt.Errorf("unknown data provider %q", ds.Provider)
	}
}

// newRecorder falls back to a no-op recorder when SQLite cannot be opened.
func (a *App) newRecorder() recorder.Recorder {
	path := a.Config.Database.SQLitePath
	if path == "" {
		return recorder.NewNoopRecorder()
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			logger.Warn("create sqlite directory failed, using noop recorder", logger.ErrorField(err))
			return recorder.NewNoopRecorder()
		}
	}
	sr, err := recorder.NewSQLiteRecorder(path)
	if err != nil {
		logger.Warn("init sqlite recorder failed, using noop", logger.ErrorField(err))
		return recorder.NewNoopRecorder()
	}
	a.closers = append(a.closers, sr.Close)
	return sr
}

// HealthChecks returns the dependency checks served by /healthz.
func (a *App) HealthChecks() map[string]func(ctx context.Context) error {
	checks := map[string]func(ctx context.Context) error{}
	if p, ok := a.Store.(store.Pinger); ok {
		checks[a.Store.Name()] = p.Ping
	}
	return checks
}

// Close releases the recorder and store connections.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			logger.Warn("close component", logger.ErrorField(err))
		}
	}
	a.closers = nil
}
