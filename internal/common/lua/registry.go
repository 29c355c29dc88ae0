// Package lua 는 Valkey 에서 실행하는 Lua 스크립트를 이름으로 묶어 관리한다.
package lua

import (
	"context"
	"errors"
	"fmt"

	"github.com/valkey-io/valkey-go"
	"golang.org/x/sync/errgroup"
)

// Script: 등록할 스크립트. ReadOnly 면 EVAL_RO/EVALSHA_RO 로 실행되어 레플리카로 보낼 수 있다.
type Script struct {
	Name     string
	Source   string
	ReadOnly bool
}

// Registry: 이름 → 컴파일된 스크립트.
type Registry struct {
	byName  map[string]*valkey.Lua
	sources map[string]string
}

// NewRegistry: 스크립트 목록으로 Registry 를 만든다. 이름이 겹치면 뒤의 것이 이긴다.
func NewRegistry(scripts []Script) *Registry {
	r := &Registry{
		byName:  make(map[string]*valkey.Lua, len(scripts)),
		sources: make(map[string]string, len(scripts)),
	}
	for _, s := range scripts {
		if s.ReadOnly {
			r.byName[s.Name] = valkey.NewLuaScriptReadOnly(s.Source)
		} else {
			r.byName[s.Name] = valkey.NewLuaScript(s.Source)
		}
		r.sources[s.Name] = s.Source
	}
	return r
}

// Exec: name 스크립트를 실행한다. 반환 error 는 등록/클라이언트 문제만 뜻하고,
// 서버 쪽 실패는 ValkeyResult.Error() 로 확인한다.
func (r *Registry) Exec(ctx context.Context, client valkey.Client, name string, keys, args []string) (valkey.ValkeyResult, error) {
	if r == nil || client == nil {
		return valkey.ValkeyResult{}, errors.New("lua exec: registry or client is nil")
	}
	s, ok := r.byName[name]
	if !ok {
		return valkey.ValkeyResult{}, fmt.Errorf("lua exec: unknown script %q", name)
	}
	return s.Exec(ctx, client, keys, args), nil
}

// Preload: 모든 노드에 SCRIPT LOAD 를 보낸다. 단일 노드 클라이언트면 자기 자신에게만 보낸다.
func (r *Registry) Preload(ctx context.Context, client valkey.Client) error {
	if r == nil || client == nil {
		return errors.New("lua preload: registry or client is nil")
	}
	nodes := client.Nodes()
	if len(nodes) == 0 {
		nodes = map[string]valkey.Client{"": client}
	}

	g, gctx := errgroup.WithContext(ctx)
	for name, src := range r.sources {
		for addr, node := range nodes {
			g.Go(func() error {
				if err := node.Do(gctx, node.B().ScriptLoad().Script(src).Build()).Error(); err != nil {
					return fmt.Errorf("script %s on %q: %w", name, addr, err)
				}
				return nil
			})
		}
	}
	if err := g.Wait(); err != nil {
		return fmt.Errorf("lua preload: %w", err)
	}
	return nil
}

