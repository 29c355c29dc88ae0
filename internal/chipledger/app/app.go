package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"gorm.io/gorm"

	"github.com/park285/llm-kakao-bots/chip-ledger-go/internal/chipledger/assets"
	"github.com/park285/llm-kakao-bots/chip-ledger-go/internal/chipledger/config"
	"github.com/park285/llm-kakao-bots/chip-ledger-go/internal/chipledger/httpapi"
	"github.com/park285/llm-kakao-bots/chip-ledger-go/internal/chipledger/ledger"
	"github.com/park285/llm-kakao-bots/chip-ledger-go/internal/chipledger/metrics"
	"github.com/park285/llm-kakao-bots/chip-ledger-go/internal/chipledger/ranking"
	"github.com/park285/llm-kakao-bots/chip-ledger-go/internal/chipledger/readcache"
	"github.com/park285/llm-kakao-bots/chip-ledger-go/internal/common/bootstrap"
	"github.com/park285/llm-kakao-bots/chip-ledger-go/internal/common/dbutil"
	"github.com/park285/llm-kakao-bots/chip-ledger-go/internal/common/di"
	"github.com/park285/llm-kakao-bots/chip-ledger-go/internal/common/docstore"
	"github.com/park285/llm-kakao-bots/chip-ledger-go/internal/common/health"
	"github.com/park285/llm-kakao-bots/chip-ledger-go/internal/common/httpserver"
	"github.com/park285/llm-kakao-bots/chip-ledger-go/internal/common/messageprovider"
	"github.com/park285/llm-kakao-bots/chip-ledger-go/internal/common/telemetry"
	"github.com/park285/llm-kakao-bots/chip-ledger-go/internal/common/valkeyx"
)

func newTelemetry(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*telemetry.Provider, func(), error) {
	provider, err := telemetry.NewProvider(ctx, cfg.Telemetry)
	if err != nil {
		return nil, nil, fmt.Errorf("init telemetry failed: %w", err)
	}
	cleanup := func() {
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), config.ShutdownTimeout)
		defer cancel()
		if err := provider.Shutdown(shutdownCtx); err != nil {
			logger.Warn("telemetry_shutdown_failed", "err", err)
		}
	}
	if provider.IsEnabled() {
		logger.Info("telemetry_enabled", "endpoint", cfg.Telemetry.OTLPEndpoint, "sample_rate", cfg.Telemetry.SampleRate)
	}
	return provider, cleanup, nil
}

func newDB(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*gorm.DB, func(), error) {
	retry := dbutil.DefaultRetryConfig()
	if cfg.Database.ConnectAttempts > 0 {
		retry.MaxAttempts = cfg.Database.ConnectAttempts
	}
	db, sqlDB, err := dbutil.OpenWithRetry(ctx, func(ctx context.Context) (*gorm.DB, *sql.DB, error) {
		return dbutil.Open(ctx, cfg.Database)
	}, retry, logger)
	if err != nil {
		return nil, nil, fmt.Errorf("open document store backend failed: %w", err)
	}
	closeFn := func() {
		if closeErr := sqlDB.Close(); closeErr != nil {
			logger.Warn("db_close_failed", "err", closeErr)
		}
	}
	logger.Info("db_connected", "driver", cfg.Database.Driver)
	return db, closeFn, nil
}

// newCacheValkey: CACHE_PERSISTENT_DISABLED 이면 빈 클라이언트를 돌려준다.
func newCacheValkey(ctx context.Context, cfg *config.Config, logger *slog.Logger) (di.CacheValkeyClient, func(), error) {
	if cfg.Cache.Disabled {
		logger.Info("query_cache_disabled")
		return di.CacheValkeyClient{}, func() {}, nil
	}
	client, closeFn, err := bootstrap.NewAndPingCacheValkeyClient(ctx, cfg.Redis, config.ServiceName, logger)
	if err != nil {
		return di.CacheValkeyClient{}, nil, fmt.Errorf("init valkey failed: %w", err)
	}
	return client, closeFn, nil
}

func newQueryCache(ctx context.Context, cfg *config.Config, client di.CacheValkeyClient, logger *slog.Logger) *docstore.QueryCache {
	if client.Client == nil {
		return nil
	}
	qc := docstore.NewQueryCache(client.Client, cfg.Cache.KeyPrefix, cfg.Cache.PersistentTTL, logger)
	qc.Preload(ctx)
	return qc
}

func newDocumentStore(ctx context.Context, db *gorm.DB, qc *docstore.QueryCache, logger *slog.Logger) (*docstore.Store, error) {
	opts := []docstore.Option{docstore.WithLogger(logger)}
	if qc != nil {
		opts = append(opts, docstore.WithQueryCache(qc))
	}
	store := docstore.New(db, opts...)
	if err := store.AutoMigrate(ctx); err != nil {
		return nil, fmt.Errorf("auto migrate failed: %w", err)
	}
	return store, nil
}

func newMetrics() *metrics.Metrics {
	return metrics.New(true)
}

func newMessageProvider() (*messageprovider.Provider, error) {
	provider, err := messageprovider.NewFromYAMLAtPath(assets.NoticeMessagesYAML, assets.NoticeRootKey)
	if err != nil {
		return nil, fmt.Errorf("load messages failed: %w", err)
	}
	return provider, nil
}

func newReadCache(cfg *config.Config, store *docstore.Store, m *metrics.Metrics, logger *slog.Logger) *readcache.Cache {
	return readcache.New(store, cfg.Cache.Expiry,
		readcache.WithLogger(logger),
		readcache.WithMaxEntries(cfg.Cache.MemoryMaxEntries),
		readcache.WithObserver(m.ObserveCacheRead),
	)
}

// newUserLister: 랭킹 집계용 조회 전용 원장. 재계산 트리거를 걸지 않아 큐와의 순환을 끊는다.
func newUserLister(cfg *config.Config, store *docstore.Store, cache *readcache.Cache, logger *slog.Logger) ranking.UserLister {
	return ledger.NewService(store, cache,
		ledger.WithLocation(cfg.Ledger.Location),
		ledger.WithLogger(logger),
	)
}

func newRankingService(cfg *config.Config, users ranking.UserLister, store *docstore.Store, m *metrics.Metrics, logger *slog.Logger) *ranking.Service {
	return ranking.NewService(
		ranking.NewAggregator(users, nil),
		ranking.NewSnapshotStore(store),
		ranking.WithServiceLocation(cfg.Ledger.Location),
		ranking.WithServiceLogger(logger),
		ranking.WithStoreLimit(cfg.Ranking.StoreLimit),
		ranking.WithRecalcObserver(m.ObserveRecalc),
	)
}

func newRecalcQueue(cfg *config.Config, svc *ranking.Service, m *metrics.Metrics, logger *slog.Logger) (*ranking.RecalcQueue, func()) {
	queue := ranking.NewRecalcQueue(svc, ranking.QueueConfig{
		Workers:       cfg.Ranking.RecalcWorkers,
		Size:          cfg.Ranking.RecalcQueueSize,
		DropWhenFull:  cfg.Ranking.RecalcDropWhenFull,
		RatePerSecond: cfg.Ranking.RecalcRatePerSecond,
		JobTimeout:    cfg.Ranking.RecalcJobTimeout,
	}, logger, m.SetQueueDepth)
	return queue, queue.Shutdown
}

func newLedgerService(
	cfg *config.Config,
	store *docstore.Store,
	cache *readcache.Cache,
	queue *ranking.RecalcQueue,
	m *metrics.Metrics,
	logger *slog.Logger,
) *ledger.Service {
	return ledger.NewService(store, cache,
		ledger.WithLocation(cfg.Ledger.Location),
		ledger.WithLogger(logger),
		ledger.WithRankingTrigger(queue),
		ledger.WithDeltaObserver(m.ObserveDelta),
	)
}

func newPolicy(
	cfg *config.Config,
	store *docstore.Store,
	svc *ranking.Service,
	msgs *messageprovider.Provider,
	logger *slog.Logger,
) *ranking.Policy {
	return ranking.NewPolicy(ranking.NewSnapshotStore(store), svc, msgs,
		ranking.WithPolicyLocation(cfg.Ledger.Location),
		ranking.WithPolicyLogger(logger),
	)
}

// newWarmer: WarmInterval 이 0 이면 nil.
func newWarmer(cfg *config.Config, policy *ranking.Policy, svc *ranking.Service, logger *slog.Logger) *ranking.Warmer {
	if cfg.Ranking.WarmInterval <= 0 {
		return nil
	}
	return ranking.NewWarmer(policy, svc.CurrentPeriod, cfg.Ranking.WarmInterval, cfg.Ranking.DashboardStaleAfter, nil, logger)
}

func newHealthChecks(db *gorm.DB, client di.CacheValkeyClient) []health.Check {
	checks := []health.Check{{
		Name: "database",
		Probe: func(ctx context.Context) error {
			sqlDB, err := db.DB()
			if err != nil {
				return err
			}
			return sqlDB.PingContext(ctx)
		},
	}}
	if client.Client != nil {
		checks = append(checks, health.Check{
			Name: "valkey",
			Probe: func(ctx context.Context) error {
				return valkeyx.Ping(ctx, client.Client)
			},
		})
	}
	return checks
}

func newHTTPMux(
	cfg *config.Config,
	ledgerSvc *ledger.Service,
	rankingSvc *ranking.Service,
	policy *ranking.Policy,
	cache *readcache.Cache,
	msgs *messageprovider.Provider,
	m *metrics.Metrics,
	checks []health.Check,
	logger *slog.Logger,
) *http.ServeMux {
	mux := http.NewServeMux()
	httpapi.Register(mux, httpapi.Deps{
		Ledger:   ledgerSvc,
		Ranking:  rankingSvc,
		Policy:   policy,
		Cache:    cache,
		Messages: msgs,
		Metrics:  m.Handler(),
		Health:   checks,
		Config:   cfg.Ranking,
		APIKey:   cfg.Admin.APIKey,
		Logger:   logger,
	})
	return mux
}

func newHTTPServer(cfg *config.Config, mux *http.ServeMux, tp *telemetry.Provider) *http.Server {
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	opts := httpserver.ServerOptions{
		UseH2C:            true,
		ReadHeaderTimeout: cfg.ServerTuning.ReadHeaderTimeout,
		IdleTimeout:       cfg.ServerTuning.IdleTimeout,
		MaxHeaderBytes:    cfg.ServerTuning.MaxHeaderBytes,
	}
	if tp.IsEnabled() {
		opts.TraceOperation = config.ServiceName
		opts.UntracedPaths = []string{"/health", "/metrics"}
	}
	return httpserver.NewServer(addr, mux, opts)
}

func newServerApp(logger *slog.Logger, server *http.Server, warmer *ranking.Warmer) *bootstrap.ServerApp {
	var tasks []bootstrap.BackgroundTask
	if warmer != nil {
		tasks = append(tasks, bootstrap.BackgroundTask{Name: "ranking_warmer", Run: warmer.Run})
	}
	return bootstrap.NewServerApp(config.ServiceName, logger, server, config.ShutdownTimeout, tasks...)
}

// OpenLedger: HTTP 서버 없이 원장만 연다. 일회성 작업용.
func OpenLedger(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*ledger.Service, func(), error) {
	if cfg == nil {
		return nil, nil, errors.New("config is nil")
	}
	db, cleanupDB, err := newDB(ctx, cfg, logger)
	if err != nil {
		return nil, nil, err
	}
	client, cleanupValkey, err := newCacheValkey(ctx, cfg, logger)
	if err != nil {
		cleanupDB()
		return nil, nil, err
	}
	store, err := newDocumentStore(ctx, db, newQueryCache(ctx, cfg, client, logger), logger)
	if err != nil {
		cleanupValkey()
		cleanupDB()
		return nil, nil, err
	}
	svc := ledger.NewService(store, nil,
		ledger.WithLocation(cfg.Ledger.Location),
		ledger.WithLogger(logger),
	)
	return svc, func() {
		cleanupValkey()
		cleanupDB()
	}, nil
}
