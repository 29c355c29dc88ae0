// Package health: 서비스 상태 정보
package health

import (
	"context"
	"runtime"
	"sort"
	"sync"
	"time"
)

var (
	startTime time.Time
	version   = "dev"
	initOnce  sync.Once
)

// Init: 서비스 시작 시 호출 (버전 정보 설정)
func Init(v string) {
	initOnce.Do(func() {
		startTime = time.Now()
		if v != "" {
			version = v
		}
	})
}

// Check: 의존 구성요소 하나의 상태 점검. nil 에러면 정상.
type Check struct {
	Name  string
	Probe func(ctx context.Context) error
}

// Response: /health 엔드포인트 표준 응답
type Response struct {
	Status     string            `json:"status"`
	Version    string            `json:"version"`
	Uptime     string            `json:"uptime"`
	Goroutines int               `json:"goroutines"`
	Components map[string]string `json:"components,omitempty"`
}

// Get: 현재 상태 반환. 점검이 하나라도 실패하면 status 는 degraded.
func Get(ctx context.Context, checks ...Check) Response {
	resp := Response{
		Status:     "ok",
		Version:    version,
		Uptime:     formatDuration(time.Since(startTime)),
		Goroutines: runtime.NumGoroutine(),
	}
	if len(checks) == 0 {
		return resp
	}

	sorted := append([]Check(nil), checks...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Name < sorted[j].Name })

	resp.Components = make(map[string]string, len(sorted))
	for _, c := range sorted {
		if c.Probe == nil {
			continue
		}
		if err := c.Probe(ctx); err != nil {
			resp.Components[c.Name] = err.Error()
			resp.Status = "degraded"
			continue
		}
		resp.Components[c.Name] = "ok"
	}
	return resp
}

// formatDuration: Duration을 사람이 읽기 쉬운 형식으로 변환
func formatDuration(d time.Duration) string {
	return d.Round(time.Second).String()
}
