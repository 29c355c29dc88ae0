package config

import "time"

// Valkey 접속 기본값.
const (
	DefaultValkeyPoolSize    = 64
	DefaultValkeyDialTimeout = 10 * time.Second
	DefaultValkeyIOTimeout   = 3 * time.Second
)

// DefaultDBConnectAttempts: 시작 시 DB 연결 최대 시도 횟수.
const DefaultDBConnectAttempts = 5
