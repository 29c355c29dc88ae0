// Package httpserver 는 http.Server 생성과 graceful shutdown 을 담당한다.
package httpserver

import (
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const defaultReadHeaderTimeout = 5 * time.Second

// ServerOptions: 0 값 필드는 net/http 기본값을 쓴다 (ReadHeaderTimeout 은 5초).
type ServerOptions struct {
	UseH2C            bool
	ReadHeaderTimeout time.Duration
	IdleTimeout       time.Duration
	MaxHeaderBytes    int

	// TraceOperation: 비어 있지 않으면 otelhttp span 을 만든다. UntracedPaths 는 제외.
	TraceOperation string
	UntracedPaths  []string
}

// NewServer: handler 를 otelhttp, h2c 순서로 감싼 서버를 만든다.
func NewServer(addr string, handler http.Handler, opts ServerOptions) *http.Server {
	if handler == nil {
		handler = http.NewServeMux()
	}
	if op := strings.TrimSpace(opts.TraceOperation); op != "" {
		handler = traced(handler, op, opts.UntracedPaths)
	}
	if opts.UseH2C {
		handler = WrapH2C(handler)
	}

	server := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: opts.ReadHeaderTimeout,
		IdleTimeout:       opts.IdleTimeout,
		MaxHeaderBytes:    opts.MaxHeaderBytes,
	}
	if server.ReadHeaderTimeout <= 0 {
		server.ReadHeaderTimeout = defaultReadHeaderTimeout
	}
	return server
}

func traced(handler http.Handler, operation string, skip []string) http.Handler {
	skipped := make(map[string]struct{}, len(skip))
	for _, p := range skip {
		skipped[p] = struct{}{}
	}
	return otelhttp.NewHandler(handler, operation,
		otelhttp.WithFilter(func(r *http.Request) bool {
			_, ok := skipped[r.URL.Path]
			return !ok
		}),
		otelhttp.WithSpanNameFormatter(func(_ string, r *http.Request) string {
			if r.Pattern != "" {
				return r.Pattern
			}
			return r.Method + " " + r.URL.Path
		}),
	)
}
