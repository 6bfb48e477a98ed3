package commands

// Shared wiring: config, logging, stores, upstream clients and the pipeline

import (
	"context"
	"fmt"

	"smartmoney-bot/internal/clients_api/covalent"
	"smartmoney-bot/internal/clients_api/dexscreener"
	"smartmoney-bot/internal/features/signals"
	"smartmoney-bot/internal/features/watchlist"
	"smartmoney-bot/internal/infra/config"
	"smartmoney-bot/internal/infra/fs"
	logging "smartmoney-bot/internal/infra/log"
	"smartmoney-bot/internal/infra/retry"
	"smartmoney-bot/internal/observability"
	"smartmoney-bot/internal/storage"
	"smartmoney-bot/internal/storage/clickhouse"
	"smartmoney-bot/internal/storage/memory"
	"smartmoney-bot/internal/storage/postgres"
	"smartmoney-bot/internal/storage/redis"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

type app struct {
	cfg     *config.Config
	metrics *observability.Metrics

	watchlist storage.WatchlistStore
	ledger    storage.DedupLedger
	archive   storage.SignalArchive // nil without clickhouse_dsn
	refresher *watchlist.Refresher

	closers []func()
}

// setup loads and validates the config, starts logging and opens the stores.
func setup(ctx context.Context, cmd *cobra.Command, req config.Requirements) (*app, error) {
	cfg, err := config.Load(configFile, cmd.Flags())
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.Validate(req); err != nil {
		return nil, err
	}
	if err := logging.Init(logging.Options{Dir: cfg.App.LogDir, Level: cfg.App.LogLevel, Console: true}); err != nil {
		return nil, fmt.Errorf("failed to init logging: %w", err)
	}
	logging.LogInfo("Configuration loaded", cfg.LogFields()...)

	a := &app{cfg: cfg, metrics: observability.NewMetrics()}
	if err := a.openStores(ctx); err != nil {
		a.Close()
		return nil, err
	}
	a.refresher, err = a.newRefresher()
	if err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}

func (a *app) openStores(ctx context.Context) error {
	st := a.cfg.Store
	switch st.Driver {
	case "redis":
		c, err := redis.NewClient(ctx, st.RedisURL, st.KeyPrefix)
		if err != nil {
			return fmt.Errorf("failed to connect to redis: %w", err)
		}
		a.closers = append(a.closers, func() { _ = c.Close() })
		a.watchlist = redis.NewWatchlistStore(c)
		a.ledger = redis.NewDedupLedger(c, nil)
	case "postgres":
		pool, err := postgres.NewPool(ctx, st.PostgresDSN)
		if err != nil {
			return fmt.Errorf("failed to connect to postgres: %w", err)
		}
		a.closers = append(a.closers, pool.Close)
		if err := pool.Migrate(ctx); err != nil {
			return fmt.Errorf("failed to migrate postgres: %w", err)
		}
		a.watchlist = postgres.NewWatchlistStore(pool)
		a.ledger = postgres.NewDedupLedger(pool, nil)
	case "memory":
		logging.LogWarn("Using in-memory store, dedup state is lost on restart")
		a.watchlist = memory.NewWatchlistStore()
		a.ledger = memory.NewDedupLedger(nil)
	default:
		return fmt.Errorf("unknown store driver %q", st.Driver)
	}

	if st.ClickhouseDSN != "" {
		conn, err := clickhouse.NewConn(ctx, st.ClickhouseDSN)
		if err != nil {
			return fmt.Errorf("failed to connect to clickhouse: %w", err)
		}
		a.closers = append(a.closers, func() { _ = conn.Close() })
		if err := conn.Migrate(ctx); err != nil {
			return fmt.Errorf("failed to migrate clickhouse: %w", err)
		}
		a.archive = clickhouse.NewSignalArchive(conn)
	}

	logging.LogSuccess("Store ready", zap.String("driver", st.Driver), zap.Bool("archive", a.archive != nil))
	return nil
}

func (a *app) newRefresher() (*watchlist.Refresher, error) {
	var sources []watchlist.RankingSource
	if a.cfg.Monitor.SeedFile != "" {
		sources = append(sources, watchlist.NewFileSource(a.cfg.Monitor.SeedFile))
	}
	if len(a.cfg.Monitor.SeedWallets) > 0 {
		static, err := watchlist.NewStaticSourceFromSeeds(a.cfg.Monitor.SeedWallets)
		if err != nil {
			return nil, fmt.Errorf("invalid SEED_WALLETS: %w", err)
		}
		sources = append(sources, static)
	}
	return watchlist.NewRefresher(a.watchlist, a.cfg.Monitor.TopWalletsCount, a.metrics, sources...), nil
}

func (a *app) retryOptions() retry.Options {
	opts := retry.DefaultOptions
	opts.MaxRetries = a.cfg.Sources.MaxRetries
	return opts
}

func (a *app) newPipeline(notifier signals.Notifier) (*signals.Pipeline, error) {
	src := a.cfg.Sources
	activity := covalent.NewClient(covalent.Config{
		APIKey:          src.CovalentKey,
		BaseURL:         src.CovalentBaseURL,
		Timeout:         src.Timeout(),
		RatePerSecond:   src.RatePerSecond,
		MaxResponseSize: src.MaxResponseSize,
		Retry:           a.retryOptions(),
	}, a.metrics)
	market := dexscreener.NewClient(dexscreener.Config{
		BaseURL:         src.DexscreenerBaseURL,
		Timeout:         src.Timeout(),
		RatePerSecond:   src.RatePerSecond,
		MaxResponseSize: src.MaxResponseSize,
		Retry:           a.retryOptions(),
	}, a.metrics)

	m := a.cfg.Monitor
	return signals.NewPipeline(signals.Config{
		MinTradeUSD:       m.MinTradeUSD,
		MinLiquidityUSD:   m.MinLiquidityUSD,
		MinStars:          m.MinStars,
		PageSize:          m.ActivityPageSize,
		Lookback:          m.ActivityLookback,
		WhaleWindow:       m.WhaleWindow(),
		Concurrency:       m.Concurrency,
		MemoizeMarketData: m.MemoizeMarketData,
	}, signals.Deps{
		Watchlist: a.watchlist,
		Ledger:    a.ledger,
		Archive:   a.archive,
		Activity:  activity,
		Market:    market,
		Notifier:  notifier,
		Refresher: a.refresher,
		Blacklist: a.blacklist(),
		Metrics:   a.metrics,
	})
}

func (a *app) blacklist() func() ([]string, error) {
	path := a.cfg.Monitor.BlacklistFile
	if path == "" {
		return nil
	}
	return func() ([]string, error) { return fs.LoadBlacklistedTokens(path) }
}

// Close releases the stores and flushes the logs.
func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
	logging.Sync()
}
