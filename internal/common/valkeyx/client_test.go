package valkeyx

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/valkey-io/valkey-go"
)

func TestConfig_ClientOption(t *testing.T) {
	if _, err := (Config{Addr: "  "}).clientOption(); err == nil {
		t.Fatal("expected empty addr error")
	}

	opt, err := Config{Addr: "cache:6380", UseTLS: true, DialTimeout: time.Second}.clientOption()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if opt.TLSConfig == nil || opt.TLSConfig.ServerName != "cache" {
		t.Fatalf("unexpected tls config: %+v", opt.TLSConfig)
	}
	if opt.Dialer.Timeout != time.Second || opt.DialFn != nil {
		t.Fatalf("unexpected dialer settings: %+v", opt.Dialer)
	}

	opt, err = Config{Addr: "/run/valkey.sock"}.clientOption()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if opt.DialFn == nil {
		t.Fatal("expected unix socket dialer")
	}
}

func TestNewClient_PingAndNil(t *testing.T) {
	mr := miniredis.RunT(t)
	client, err := NewClient(Config{Addr: mr.Addr(), DisableCache: true, ForceSingleClient: true})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	defer client.Close()

	ctx := context.Background()
	if err := Ping(ctx, client); err != nil {
		t.Fatalf("ping: %v", err)
	}

	err = client.Do(ctx, client.B().Get().Key("missing").Build()).Error()
	if !IsNil(fmt.Errorf("lookup: %w", err)) {
		t.Fatalf("expected wrapped nil to be detected, got %v", err)
	}
	if IsNil(fmt.Errorf("other")) {
		t.Fatal("plain error is not nil reply")
	}
	if BuildKey("chipledger:docstore", " gen ", "users") != "chipledger:docstore:gen:users" {
		t.Fatal("unexpected key")
	}
}

func TestPing_NilClient(t *testing.T) {
	var client valkey.Client
	if err := Ping(context.Background(), client); err == nil {
		t.Fatal("expected error")
	}
}
