//go:build wireinject

package app

import "github.com/google/wire"

var chipLedgerProviderSet = wire.NewSet(
	newTelemetry,
	newMessageProvider,
	newDB,
	newCacheValkey,
	newQueryCache,
	newDocumentStore,
	newMetrics,
	newReadCache,
	newUserLister,
	newRankingService,
	newRecalcQueue,
	newLedgerService,
	newPolicy,
	newWarmer,
	newHealthChecks,
	newHTTPMux,
	newHTTPServer,
	newServerApp,
)
