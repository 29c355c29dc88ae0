package dbutil

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	commonconfig "github.com/park285/llm-kakao-bots/chip-ledger-go/internal/common/config"
)

// Dialector: 설정에 맞는 gorm Dialector 를 만든다.
func Dialector(cfg commonconfig.DatabaseConfig) (gorm.Dialector, error) {
	switch cfg.Driver {
	case commonconfig.DatabaseDriverSQLite:
		path := strings.TrimSpace(cfg.SQLitePath)
		if path == "" {
			return nil, fmt.Errorf("sqlite path is empty")
		}
		return sqlite.Open(path), nil
	case commonconfig.DatabaseDriverPostgres, "":
		return postgres.Open(PostgresDSN(cfg)), nil
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", cfg.Driver)
	}
}

// PostgresDSN: PostgreSQL 접속 문자열. SocketPath 가 있으면 UDS 로 접속한다.
func PostgresDSN(cfg commonconfig.DatabaseConfig) string {
	host := cfg.Host
	if socket := strings.TrimSpace(cfg.SocketPath); socket != "" {
		host = socket
	}
	sslMode := cfg.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(cfg.User, cfg.Password),
		Host:   fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Path:   "/" + cfg.Name,
	}
	q := u.Query()
	q.Set("sslmode", sslMode)
	q.Set("TimeZone", "UTC")
	if host != cfg.Host {
		u.Host = ""
		q.Set("host", host)
	}
	u.RawQuery = q.Encode()
	return u.String()
}

// Open: 한 번 연결을 시도하고 Ping 으로 확인한다.
func Open(ctx context.Context, cfg commonconfig.DatabaseConfig) (*gorm.DB, *sql.DB, error) {
	dialector, err := Dialector(cfg)
	if err != nil {
		return nil, nil, err
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, nil, fmt.Errorf("open %s failed: %w", cfg.Driver, err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, nil, fmt.Errorf("get sql.DB failed: %w", err)
	}

	if cfg.Driver == commonconfig.DatabaseDriverSQLite {
		// SQLite 는 단일 작성자
		sqlDB.SetMaxOpenConns(1)
	} else {
		sqlDB.SetMaxOpenConns(20)
		sqlDB.SetMaxIdleConns(5)
		sqlDB.SetConnMaxLifetime(30 * time.Minute)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := sqlDB.PingContext(pingCtx); err != nil {
		_ = sqlDB.Close()
		return nil, nil, fmt.Errorf("ping %s failed: %w", cfg.Driver, err)
	}
	return db, sqlDB, nil
}
