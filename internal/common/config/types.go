package config

import "time"

// ServerConfig: 바인딩 주소.
type ServerConfig struct {
	Host string
	Port int
}

// ServerTuningConfig: http.Server 타임아웃과 헤더 한도.
type ServerTuningConfig struct {
	ReadHeaderTimeout time.Duration
	IdleTimeout       time.Duration
	MaxHeaderBytes    int
}

// RedisConfig: 쿼리 캐시 Valkey 접속 정보. SocketPath 가 있으면 Host/Port 대신 쓴다.
type RedisConfig struct {
	Host       string
	Port       int
	Password   string
	DB         int
	SocketPath string

	DialTimeout  time.Duration
	WriteTimeout time.Duration
	PoolSize     int
}

// DatabaseDriver: 문서 저장소 백엔드 종류입니다.
type DatabaseDriver string

// 지원하는 백엔드 목록.
const (
	DatabaseDriverPostgres DatabaseDriver = "postgres"
	DatabaseDriverSQLite   DatabaseDriver = "sqlite"
)

// DatabaseConfig: 원격 문서 저장소(PostgreSQL 또는 SQLite) 연결 설정입니다.
type DatabaseConfig struct {
	Driver DatabaseDriver

	Host       string
	Port       int
	SocketPath string // UDS 경로 (비어있으면 TCP 사용)
	Name       string
	User       string
	Password   string
	SSLMode    string

	SQLitePath string // Driver=sqlite 일 때 파일 경로 (":memory:" 허용)

	ConnectAttempts int // 시작 시 연결 재시도 횟수
}

// LogConfig: 로그 레벨과 파일 로테이션. Dir 가 비면 stdout 만 쓴다.
type LogConfig struct {
	Level string // debug|info|warn|error
	Dir   string

	MaxSizeMB  int  // 단일 파일 최대 크기 (MB)
	MaxBackups int  // 보관할 백업 파일 수
	MaxAgeDays int  // 백업 파일 보관 일수
	Compress   bool // 백업 파일 압축 여부
}

// TelemetryConfig: OpenTelemetry 분산 추적 설정입니다.
type TelemetryConfig struct {
	Enabled        bool
	ServiceName    string
	ServiceVersion string
	Environment    string
	OTLPEndpoint   string
	OTLPInsecure   bool
	SampleRate     float64
}
