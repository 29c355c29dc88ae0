package bootstrap

import (
	"context"
	"log/slog"
	"net/http"
	"time"
)

// ServerApp: HTTP 서버 하나와 그 수명에 묶인 백그라운드 작업들.
type ServerApp struct {
	Service         string
	Logger          *slog.Logger
	Server          *http.Server
	ShutdownTimeout time.Duration
	Tasks           []BackgroundTask
}

// NewServerApp: Run 이 nil 인 작업은 버린다.
func NewServerApp(service string, logger *slog.Logger, server *http.Server, shutdownTimeout time.Duration, tasks ...BackgroundTask) *ServerApp {
	kept := make([]BackgroundTask, 0, len(tasks))
	for _, t := range tasks {
		if t.Run != nil {
			kept = append(kept, t)
		}
	}
	return &ServerApp{
		Service:         service,
		Logger:          logger,
		Server:          server,
		ShutdownTimeout: shutdownTimeout,
		Tasks:           kept,
	}
}

// Run: SIGINT/SIGTERM 또는 ctx 종료까지 블록한다.
func (a *ServerApp) Run(ctx context.Context) error {
	if a == nil || a.Server == nil {
		return nil
	}
	return RunHTTPServer(ctx, a.Logger, a.Service, a.Server, a.ShutdownTimeout, a.Tasks...)
}
