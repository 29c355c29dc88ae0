package httpserver

import (
	"net/http"
	"time"

	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"
)

// WrapH2C: 평문 HTTP/2 업그레이드를 받는다. TLS 는 앞단 프록시가 끝낸다.
func WrapH2C(handler http.Handler) http.Handler {
	return h2c.NewHandler(handler, &http2.Server{IdleTimeout: 2 * time.Minute})
}
