// Package app 은 chipledger 서비스의 의존성 그래프를 조립한다.
package app

import (
	"context"
	"log/slog"

	"github.com/park285/llm-kakao-bots/chip-ledger-go/internal/chipledger/config"
	"github.com/park285/llm-kakao-bots/chip-ledger-go/internal/common/bootstrap"
)

// Initialize 는 chipledger 애플리케이션 의존성을 초기화하고 ServerApp을 반환한다.
func Initialize(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*bootstrap.ServerApp, func(), error) {
	tp, cleanupTelemetry, err := newTelemetry(ctx, cfg, logger)
	if err != nil {
		return nil, nil, err
	}

	msgProvider, err := newMessageProvider()
	if err != nil {
		cleanupTelemetry()
		return nil, nil, err
	}

	db, cleanupDB, err := newDB(ctx, cfg, logger)
	if err != nil {
		cleanupTelemetry()
		return nil, nil, err
	}

	cacheValkeyClient, cleanupValkey, err := newCacheValkey(ctx, cfg, logger)
	if err != nil {
		cleanupDB()
		cleanupTelemetry()
		return nil, nil, err
	}

	queryCache := newQueryCache(ctx, cfg, cacheValkeyClient, logger)
	store, err := newDocumentStore(ctx, db, queryCache, logger)
	if err != nil {
		cleanupValkey()
		cleanupDB()
		cleanupTelemetry()
		return nil, nil, err
	}

	m := newMetrics()
	readCache := newReadCache(cfg, store, m, logger)
	users := newUserLister(cfg, store, readCache, logger)
	rankingService := newRankingService(cfg, users, store, m, logger)
	recalcQueue, cleanupQueue := newRecalcQueue(cfg, rankingService, m, logger)
	ledgerService := newLedgerService(cfg, store, readCache, recalcQueue, m, logger)
	policy := newPolicy(cfg, store, rankingService, msgProvider, logger)
	warmer := newWarmer(cfg, policy, rankingService, logger)
	checks := newHealthChecks(db, cacheValkeyClient)

	httpMux := newHTTPMux(cfg, ledgerService, rankingService, policy, readCache, msgProvider, m, checks, logger)
	httpServer := newHTTPServer(cfg, httpMux, tp)
	serverApp := newServerApp(logger, httpServer, warmer)

	cleanup := func() {
		cleanupQueue()
		cleanupValkey()
		cleanupDB()
		cleanupTelemetry()
	}

	return serverApp, cleanup, nil
}
