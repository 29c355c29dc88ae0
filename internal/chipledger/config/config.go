// Package config 는 chipledger 서비스 설정을 환경 변수에서 읽는다.
package config

import (
	"fmt"
	"strings"
	"time"

	commonconfig "github.com/park285/llm-kakao-bots/chip-ledger-go/internal/common/config"
)

// ServerConfig: HTTP 서버 설정 alias
type ServerConfig = commonconfig.ServerConfig

// ServerTuningConfig: 서버 튜닝 설정 alias
type ServerTuningConfig = commonconfig.ServerTuningConfig

// RedisConfig: 쿼리 캐시 계층 Valkey 연결 설정 alias
type RedisConfig = commonconfig.RedisConfig

// DatabaseConfig: 문서 저장소 백엔드 설정 alias
type DatabaseConfig = commonconfig.DatabaseConfig

// LogConfig: 로깅 설정 alias
type LogConfig = commonconfig.LogConfig

// CacheConfig: 계층형 읽기 캐시 설정
type CacheConfig struct {
	Expiry           time.Duration // 메모리/최근 조회 신선도 창
	MemoryMaxEntries int
	PersistentTTL    time.Duration // Valkey 에 보관하는 쿼리 결과 TTL
	KeyPrefix        string
	Disabled         bool // true 면 Valkey 계층 없이 동작
}

// RankingConfig: 랭킹 스냅샷/재계산 설정
type RankingConfig struct {
	ViewStaleAfter      time.Duration
	DashboardStaleAfter time.Duration
	DefaultLimit        int
	StoreLimit          int

	RecalcWorkers       int
	RecalcQueueSize     int
	RecalcDropWhenFull  bool
	RecalcRatePerSecond float64
	RecalcJobTimeout    time.Duration

	WarmInterval time.Duration // 0 이면 백그라운드 갱신 없음
}

// LedgerConfig: 원장 설정
type LedgerConfig struct {
	Location *time.Location // 기간 키와 일자 계산 기준 시간대
}

// AdminConfig: 변경 API 보호 설정
type AdminConfig struct {
	APIKey string
}

// Config: 전체 애플리케이션 설정 구조체
type Config struct {
	Server       ServerConfig
	ServerTuning ServerTuningConfig
	Redis        RedisConfig
	Database     DatabaseConfig
	Cache        CacheConfig
	Ranking      RankingConfig
	Ledger       LedgerConfig
	Admin        AdminConfig
	Log          LogConfig
	Telemetry    commonconfig.TelemetryConfig
}

// LoadFromEnv: 환경 변수로부터 전체 애플리케이션 설정을 로드합니다.
func LoadFromEnv() (*Config, error) {
	server, err := commonconfig.ReadServerConfigFromEnv(DefaultServerPort)
	if err != nil {
		return nil, fmt.Errorf("read server config failed: %w", err)
	}
	serverTuning, err := commonconfig.ReadServerTuningConfigFromEnv()
	if err != nil {
		return nil, fmt.Errorf("read server tuning config failed: %w", err)
	}
	redisCfg, err := readRedisConfig()
	if err != nil {
		return nil, err
	}
	database, err := commonconfig.ReadDatabaseConfigFromEnv(ServiceName)
	if err != nil {
		return nil, fmt.Errorf("read database config failed: %w", err)
	}
	cache, err := readCacheConfig()
	if err != nil {
		return nil, err
	}
	ranking, err := readRankingConfig()
	if err != nil {
		return nil, err
	}
	ledger, err := readLedgerConfig()
	if err != nil {
		return nil, err
	}
	log, err := commonconfig.ReadLogConfigFromEnv()
	if err != nil {
		return nil, fmt.Errorf("read log config failed: %w", err)
	}
	telemetry, err := commonconfig.ReadTelemetryConfigFromEnv(ServiceName)
	if err != nil {
		return nil, fmt.Errorf("read telemetry config: %w", err)
	}

	return &Config{
		Server:       server,
		ServerTuning: serverTuning,
		Redis:        redisCfg,
		Database:     database,
		Cache:        cache,
		Ranking:      ranking,
		Ledger:       ledger,
		Admin:        AdminConfig{APIKey: commonconfig.StringFromEnv("ADMIN_API_KEY", "")},
		Log:          log,
		Telemetry:    telemetry,
	}, nil
}

func readRedisConfig() (RedisConfig, error) {
	return commonconfig.ReadRedisConfigFromEnv(commonconfig.RedisEnvKeys{
		Host:       []string{"CACHE_HOST", "VALKEY_HOST", "REDIS_HOST"},
		Port:       []string{"CACHE_PORT", "VALKEY_PORT", "REDIS_PORT"},
		Password:   []string{"CACHE_PASSWORD", "VALKEY_PASSWORD", "REDIS_PASSWORD"},
		SocketPath: []string{"CACHE_SOCKET_PATH", "VALKEY_SOCKET_PATH", "REDIS_SOCKET_PATH"},
	}, "localhost", 6379)
}

func readCacheConfig() (CacheConfig, error) {
	expiry, err := commonconfig.DurationSecondsFromEnv("CACHE_EXPIRY_SECONDS", DefaultCacheExpirySeconds)
	if err != nil {
		return CacheConfig{}, fmt.Errorf("read CACHE_EXPIRY_SECONDS failed: %w", err)
	}
	if expiry <= 0 {
		return CacheConfig{}, fmt.Errorf("invalid CACHE_EXPIRY_SECONDS: %s", expiry)
	}
	maxEntries, err := commonconfig.IntFromEnv("CACHE_MEMORY_MAX_ENTRIES", DefaultCacheMemoryMaxEntries)
	if err != nil {
		return CacheConfig{}, fmt.Errorf("read CACHE_MEMORY_MAX_ENTRIES failed: %w", err)
	}
	persistentTTL, err := commonconfig.DurationSecondsFromEnv("CACHE_PERSISTENT_TTL_SECONDS", DefaultCachePersistentTTLSeconds)
	if err != nil {
		return CacheConfig{}, fmt.Errorf("read CACHE_PERSISTENT_TTL_SECONDS failed: %w", err)
	}
	disabled, err := commonconfig.BoolFromEnv("CACHE_PERSISTENT_DISABLED", false)
	if err != nil {
		return CacheConfig{}, fmt.Errorf("read CACHE_PERSISTENT_DISABLED failed: %w", err)
	}

	return CacheConfig{
		Expiry:           expiry,
		MemoryMaxEntries: maxEntries,
		PersistentTTL:    persistentTTL,
		KeyPrefix:        commonconfig.StringFromEnv("CACHE_KEY_PREFIX", DefaultCacheKeyPrefix),
		Disabled:         disabled,
	}, nil
}

func readRankingConfig() (RankingConfig, error) {
	viewStale, err := commonconfig.DurationSecondsFromEnv("RANKING_VIEW_STALE_SECONDS", DefaultRankingViewStaleSeconds)
	if err != nil {
		return RankingConfig{}, fmt.Errorf("read RANKING_VIEW_STALE_SECONDS failed: %w", err)
	}
	dashboardStale, err := commonconfig.DurationSecondsFromEnv("RANKING_DASHBOARD_STALE_SECONDS", DefaultRankingDashboardStaleSeconds)
	if err != nil {
		return RankingConfig{}, fmt.Errorf("read RANKING_DASHBOARD_STALE_SECONDS failed: %w", err)
	}
	defaultLimit, err := commonconfig.IntFromEnv("RANKING_DEFAULT_LIMIT", DefaultRankingLimit)
	if err != nil {
		return RankingConfig{}, fmt.Errorf("read RANKING_DEFAULT_LIMIT failed: %w", err)
	}
	storeLimit, err := commonconfig.IntFromEnv("RANKING_STORE_LIMIT", DefaultRankingStoreLimit)
	if err != nil {
		return RankingConfig{}, fmt.Errorf("read RANKING_STORE_LIMIT failed: %w", err)
	}
	if defaultLimit <= 0 || storeLimit <= 0 {
		return RankingConfig{}, fmt.Errorf("invalid ranking limits: default=%d store=%d", defaultLimit, storeLimit)
	}
	workers, err := commonconfig.IntFromEnv("RANKING_RECALC_WORKERS", DefaultRecalcWorkers)
	if err != nil {
		return RankingConfig{}, fmt.Errorf("read RANKING_RECALC_WORKERS failed: %w", err)
	}
	queueSize, err := commonconfig.IntFromEnv("RANKING_RECALC_QUEUE_SIZE", DefaultRecalcQueueSize)
	if err != nil {
		return RankingConfig{}, fmt.Errorf("read RANKING_RECALC_QUEUE_SIZE failed: %w", err)
	}
	dropWhenFull, err := commonconfig.BoolFromEnv("RANKING_RECALC_DROP_WHEN_FULL", false)
	if err != nil {
		return RankingConfig{}, fmt.Errorf("read RANKING_RECALC_DROP_WHEN_FULL failed: %w", err)
	}
	rate, err := commonconfig.Float64FromEnv("RANKING_RECALC_RATE_PER_SECOND", DefaultRecalcRatePerSecond)
	if err != nil {
		return RankingConfig{}, fmt.Errorf("read RANKING_RECALC_RATE_PER_SECOND failed: %w", err)
	}
	jobTimeout, err := commonconfig.DurationSecondsFromEnv("RANKING_RECALC_JOB_TIMEOUT_SECONDS", DefaultRecalcJobTimeoutSecs)
	if err != nil {
		return RankingConfig{}, fmt.Errorf("read RANKING_RECALC_JOB_TIMEOUT_SECONDS failed: %w", err)
	}

	warmInterval, err := commonconfig.DurationSecondsFromEnv("RANKING_WARM_INTERVAL_SECONDS", DefaultRankingWarmIntervalSecs)
	if err != nil {
		return RankingConfig{}, fmt.Errorf("read RANKING_WARM_INTERVAL_SECONDS failed: %w", err)
	}

	return RankingConfig{
		ViewStaleAfter:      viewStale,
		DashboardStaleAfter: dashboardStale,
		DefaultLimit:        defaultLimit,
		StoreLimit:          storeLimit,
		RecalcWorkers:       workers,
		RecalcQueueSize:     queueSize,
		RecalcDropWhenFull:  dropWhenFull,
		RecalcRatePerSecond: rate,
		RecalcJobTimeout:    jobTimeout,
		WarmInterval:        warmInterval,
	}, nil
}

func readLedgerConfig() (LedgerConfig, error) {
	loc, err := commonconfig.LocationFromEnv("LEDGER_TIMEZONE", DefaultLedgerTimezone)
	if err != nil {
		return LedgerConfig{}, fmt.Errorf("read LEDGER_TIMEZONE failed: %w", err)
	}
	return LedgerConfig{Location: loc}, nil
}

// ListenAddr: SERVER_HOST:SERVER_PORT
func (c *Config) ListenAddr() string {
	host := strings.TrimSpace(c.Server.Host)
	return fmt.Sprintf("%s:%d", host, c.Server.Port)
}
