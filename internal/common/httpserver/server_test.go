package httpserver

import (
	"context"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestNewServer_Defaults(t *testing.T) {
	server := NewServer(":0", nil, ServerOptions{})
	if server.ReadHeaderTimeout != 5*time.Second {
		t.Fatalf("expected default read header timeout, got %s", server.ReadHeaderTimeout)
	}
	if server.Handler == nil {
		t.Fatal("expected fallback handler")
	}
}

func TestNewServer_TracedHandlerStillServes(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /ping", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	server := NewServer(":0", mux, ServerOptions{
		TraceOperation: "chipledger",
		UntracedPaths:  []string{"/health"},
		UseH2C:         true,
	})

	rr := httptest.NewRecorder()
	server.Handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/ping", nil))
	if rr.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rr.Code)
	}
}

func TestServe_ShutsDownOnCancel(t *testing.T) {
	server := NewServer("127.0.0.1:0", http.NewServeMux(), ServerOptions{})
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- Serve(ctx, server, time.Second) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("unexpected serve error: %v", err)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("serve did not return after cancel")
	}
}

func TestServeListener_ServesUntilCancel(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, "ok")
	})
	server := NewServer(ln.Addr().String(), mux, ServerOptions{})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- ServeListener(ctx, server, ln, time.Second) }()

	resp, err := http.Get("http://" + ln.Addr().String() + "/health")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	if string(body) != "ok" {
		t.Fatalf("unexpected body %q", body)
	}

	cancel()
	if err := <-done; err != nil {
		t.Fatalf("unexpected serve error: %v", err)
	}
}

func TestServe_ListenErrorIsReturned(t *testing.T) {
	server := NewServer("256.0.0.1:bad", nil, ServerOptions{})
	if err := Serve(context.Background(), server, time.Second); err == nil {
		t.Fatal("expected listen error")
	}
}
