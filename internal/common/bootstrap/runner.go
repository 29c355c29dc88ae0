package bootstrap

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/park285/llm-kakao-bots/chip-ledger-go/internal/common/httpserver"
)

// BackgroundTask: 서버와 함께 시작하고 함께 멈추는 작업.
// Run 은 ctx 가 끝나면 nil 로 돌아와야 한다. 에러로 끝나면 서버도 내려간다.
type BackgroundTask struct {
	Name string
	Run  func(ctx context.Context) error
}

// RunHTTPServer: 서버와 작업을 errgroup 으로 묶어 실행한다.
func RunHTTPServer(
	ctx context.Context,
	logger *slog.Logger,
	service string,
	server *http.Server,
	shutdownTimeout time.Duration,
	tasks ...BackgroundTask,
) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	for _, task := range tasks {
		if task.Run == nil {
			continue
		}
		g.Go(func() error {
			logger.Info("background_task_started", "task", task.Name)
			if err := task.Run(gctx); err != nil {
				logger.Error("background_task_failed", "task", task.Name, "err", err)
				return fmt.Errorf("task %s: %w", task.Name, err)
			}
			logger.Info("background_task_stopped", "task", task.Name)
			return nil
		})
	}

	g.Go(func() error {
		logger.Info("server_start", "service", service, "addr", server.Addr)
		if err := httpserver.Serve(gctx, server, shutdownTimeout); err != nil {
			return fmt.Errorf("serve %s: %w", service, err)
		}
		logger.Info("server_stopped", "service", service)
		return nil
	})

	if err := g.Wait(); err != nil {
		return fmt.Errorf("run http server failed: %w", err)
	}
	return nil
}
