package httpserver

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"
)

// Serve: server.Addr 에서 수신을 시작하고 ctx 가 끝나면 shutdownTimeout 안에 정리한다.
// 정상 종료면 nil.
func Serve(ctx context.Context, server *http.Server, shutdownTimeout time.Duration) error {
	ln, err := net.Listen("tcp", server.Addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", server.Addr, err)
	}
	return ServeListener(ctx, server, ln, shutdownTimeout)
}

// ServeListener: 이미 열린 ln 으로 Serve 와 같은 수명 관리를 한다. ln 은 server 가 닫는다.
func ServeListener(ctx context.Context, server *http.Server, ln net.Listener, shutdownTimeout time.Duration) error {
	served := make(chan error, 1)
	go func() { served <- server.Serve(ln) }()

	select {
	case err := <-served:
		return serveResult(err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http server shutdown failed: %w", err)
	}
	return serveResult(<-served)
}

func serveResult(err error) error {
	if err == nil || errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return fmt.Errorf("http server stopped: %w", err)
}
