package config

import "time"

// ServiceName: 로그/추적/Valkey 클라이언트 이름에 쓰이는 서비스 식별자.
const ServiceName = "chipledger"

// DefaultServerPort 는 HTTP 기본 포트다.
const DefaultServerPort = 40300

// 캐시 기본값.
const (
	DefaultCacheExpirySeconds           = 8 * 60 * 60
	DefaultCacheMemoryMaxEntries        = 512
	DefaultCachePersistentTTLSeconds    = 24 * 60 * 60
	DefaultCacheKeyPrefix               = "chipledger:docstore"
	DefaultLedgerTimezone               = "Asia/Tokyo"
	DefaultRankingViewStaleSeconds      = 12 * 60 * 60
	DefaultRankingDashboardStaleSeconds = 60 * 60
)

// 랭킹 기본값.
const (
	DefaultRankingLimit            = 20
	DefaultRankingStoreLimit       = 50
	DefaultRecalcWorkers           = 2
	DefaultRecalcQueueSize         = 32
	DefaultRecalcRatePerSecond     = 5.0
	DefaultRecalcJobTimeoutSecs    = 60
	DefaultRankingWarmIntervalSecs = 30 * 60
)

// ShutdownTimeout: HTTP 서버 graceful shutdown 대기 시간.
const ShutdownTimeout = 10 * time.Second
