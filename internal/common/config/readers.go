package config

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// envReader: 여러 키를 연달아 읽고 에러를 모아 한 번에 돌려준다.
type envReader struct {
	errs []error
}

func (r *envReader) int(key string, def int) int {
	v, err := IntFromEnv(key, def)
	r.add(err)
	return v
}

func (r *envReader) positiveInt(key string, def int) int {
	v := r.int(key, def)
	if v <= 0 {
		r.add(fmt.Errorf("%s must be positive, got %d", key, v))
	}
	return v
}

func (r *envReader) seconds(key string, def int64) time.Duration {
	v, err := DurationSecondsFromEnv(key, def)
	r.add(err)
	return v
}

func (r *envReader) bool(key string, def bool) bool {
	v, err := BoolFromEnv(key, def)
	r.add(err)
	return v
}

func (r *envReader) float(key string, def float64) float64 {
	v, err := Float64FromEnv(key, def)
	r.add(err)
	return v
}

func (r *envReader) add(err error) {
	if err != nil {
		r.errs = append(r.errs, err)
	}
}

func (r *envReader) err(section string) error {
	if len(r.errs) == 0 {
		return nil
	}
	return fmt.Errorf("read %s config failed: %w", section, errors.Join(r.errs...))
}

// ReadServerConfigFromEnv: SERVER_HOST (기본 0.0.0.0), SERVER_PORT.
func ReadServerConfigFromEnv(defaultPort int) (ServerConfig, error) {
	var r envReader
	cfg := ServerConfig{
		Host: StringFromEnv("SERVER_HOST", "0.0.0.0"),
		Port: r.int("SERVER_PORT", defaultPort),
	}
	return cfg, r.err("server")
}

// ReadServerTuningConfigFromEnv: 헤더 읽기/유휴 타임아웃과 헤더 크기 한도. 유휴 타임아웃 0 은 무제한.
func ReadServerTuningConfigFromEnv() (ServerTuningConfig, error) {
	var r envReader
	cfg := ServerTuningConfig{
		ReadHeaderTimeout: r.seconds("SERVER_READ_HEADER_TIMEOUT_SECONDS", 5),
		IdleTimeout:       r.seconds("SERVER_IDLE_TIMEOUT_SECONDS", 90),
		MaxHeaderBytes:    r.int("SERVER_MAX_HEADER_BYTES", 1<<20),
	}
	if cfg.MaxHeaderBytes < 0 {
		r.add(fmt.Errorf("SERVER_MAX_HEADER_BYTES must not be negative, got %d", cfg.MaxHeaderBytes))
	}
	return cfg, r.err("server tuning")
}

// RedisEnvKeys: Valkey 설정을 찾을 환경 변수 후보들. 앞의 키가 우선한다.
type RedisEnvKeys struct {
	Host       []string
	Port       []string
	Password   []string
	SocketPath []string
}

// ReadRedisConfigFromEnv: keys 후보에서 접속 정보를 읽고, 타임아웃과 풀 크기는 기본값을 쓴다.
func ReadRedisConfigFromEnv(keys RedisEnvKeys, defaultHost string, defaultPort int) (RedisConfig, error) {
	port, err := IntFromEnvFirstNonEmpty(keys.Port, defaultPort)
	if err != nil {
		return RedisConfig{}, fmt.Errorf("read redis config failed: %w", err)
	}
	return RedisConfig{
		Host:         StringFromEnvFirstNonEmpty(keys.Host, defaultHost),
		Port:         port,
		Password:     StringFromEnvFirstNonEmpty(keys.Password, ""),
		SocketPath:   StringFromEnvFirstNonEmpty(keys.SocketPath, ""),
		DialTimeout:  DefaultValkeyDialTimeout,
		WriteTimeout: DefaultValkeyIOTimeout,
		PoolSize:     DefaultValkeyPoolSize,
	}, nil
}

// ReadDatabaseConfigFromEnv: DB_DRIVER (postgres|sqlite). sqlite 면 SQLITE_PATH 만 의미가 있다.
func ReadDatabaseConfigFromEnv(defaultName string) (DatabaseConfig, error) {
	var r envReader
	driver := DatabaseDriver(strings.ToLower(StringFromEnv("DB_DRIVER", string(DatabaseDriverPostgres))))
	if driver != DatabaseDriverPostgres && driver != DatabaseDriverSQLite {
		r.add(fmt.Errorf("unsupported DB_DRIVER %q", driver))
	}
	cfg := DatabaseConfig{
		Driver:          driver,
		Host:            StringFromEnv("DB_HOST", "localhost"),
		Port:            r.int("DB_PORT", 5432),
		SocketPath:      StringFromEnv("DB_SOCKET_PATH", ""),
		Name:            StringFromEnv("DB_NAME", defaultName),
		User:            StringFromEnv("DB_USER", defaultName+"_app"),
		Password:        StringFromEnv("DB_PASSWORD", ""),
		SSLMode:         StringFromEnv("DB_SSLMODE", "disable"),
		SQLitePath:      StringFromEnv("SQLITE_PATH", defaultName+".db"),
		ConnectAttempts: r.positiveInt("DB_CONNECT_ATTEMPTS", DefaultDBConnectAttempts),
	}
	return cfg, r.err("database")
}

// ReadLogConfigFromEnv: LOG_LEVEL (기본 info). LOG_DIR 가 비어 있으면 파일 로그를 쓰지 않는다.
func ReadLogConfigFromEnv() (LogConfig, error) {
	level := strings.ToLower(StringFromEnv("LOG_LEVEL", "info"))
	switch level {
	case "debug", "info", "warn", "error":
	default:
		return LogConfig{}, fmt.Errorf("read log config failed: unsupported LOG_LEVEL %q", level)
	}
	dir := StringFromEnv("LOG_DIR", "")
	if dir == "" {
		return LogConfig{Level: level}, nil
	}
	var r envReader
	cfg := LogConfig{
		Level:      level,
		Dir:        dir,
		MaxSizeMB:  r.positiveInt("LOG_FILE_MAX_SIZE_MB", 1),
		MaxBackups: r.positiveInt("LOG_FILE_MAX_BACKUPS", 30),
		MaxAgeDays: r.positiveInt("LOG_FILE_MAX_AGE_DAYS", 7),
		Compress:   r.bool("LOG_FILE_COMPRESS", true),
	}
	return cfg, r.err("log")
}

// ReadTelemetryConfigFromEnv: OTEL_* 변수. 기본은 비활성.
func ReadTelemetryConfigFromEnv(defaultServiceName string) (TelemetryConfig, error) {
	var r envReader
	cfg := TelemetryConfig{
		Enabled:        r.bool("OTEL_ENABLED", false),
		ServiceName:    StringFromEnv("OTEL_SERVICE_NAME", defaultServiceName),
		ServiceVersion: StringFromEnv("OTEL_SERVICE_VERSION", "dev"),
		Environment:    StringFromEnv("OTEL_ENVIRONMENT", "production"),
		OTLPEndpoint:   StringFromEnv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
		OTLPInsecure:   r.bool("OTEL_EXPORTER_OTLP_INSECURE", true),
		SampleRate:     r.float("OTEL_SAMPLE_RATE", 1.0),
	}
	if cfg.SampleRate < 0 || cfg.SampleRate > 1 {
		r.add(fmt.Errorf("OTEL_SAMPLE_RATE must be within [0, 1], got %v", cfg.SampleRate))
	}
	return cfg, r.err("telemetry")
}
