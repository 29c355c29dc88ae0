// Package docstore 는 컬렉션/문서 단위의 스키마 없는 원격 저장소 어댑터다.
// 문서는 gorm 이 관리하는 단일 테이블에 JSON 으로 저장되며,
// 쿼리 결과는 선택적으로 Valkey 에 세대(generation) 단위로 캐시된다.
//
// 저장소가 돌려주는 값은 타입이 보장되지 않는다. 숫자는 float64, 타임스탬프는
// RFC3339 문자열로 돌아오므로 호출자는 경계에서 정규화해야 한다.
package docstore

import (
	"errors"
	"strings"
	"time"
)

var (
	// ErrNotFound: 문서가 존재하지 않음
	ErrNotFound = errors.New("document not found")
	// ErrCacheMiss: 캐시 전용 조회에서 캐시가 비어 있음
	ErrCacheMiss = errors.New("query cache miss")
	// ErrConflict: 낙관적 잠금 재시도 한도 초과
	ErrConflict = errors.New("document version conflict")
)

// Document: 저장소에서 읽어온 문서 하나.
type Document struct {
	ID         string         `json:"id"`
	Data       map[string]any `json:"data"`
	CreateTime time.Time      `json:"createTime"`
	UpdateTime time.Time      `json:"updateTime"`
}

// Field: 점(.)으로 구분된 경로의 값을 찾는다.
func (d Document) Field(path string) (any, bool) {
	return lookupPath(d.Data, path)
}

type sentinelKind int

const (
	sentinelIncrement sentinelKind = iota + 1
	sentinelServerTimestamp
	sentinelDelete
)

// Sentinel: 쓰기 시점에 저장소에서 해석되는 특수 값.
type Sentinel struct {
	kind  sentinelKind
	delta float64
}

// Increment: 기존 숫자 값에 n 을 원자적으로 더한다. 값이 없으면 n 으로 설정된다.
func Increment[N int | int32 | int64 | float64](n N) Sentinel {
	return Sentinel{kind: sentinelIncrement, delta: float64(n)}
}

// ServerTimestamp: 커밋 시각으로 치환된다.
func ServerTimestamp() Sentinel {
	return Sentinel{kind: sentinelServerTimestamp}
}

// DeleteField: 필드를 제거한다.
func DeleteField() Sentinel {
	return Sentinel{kind: sentinelDelete}
}

// TimestampLayout: 고정 폭 UTC 형식이라 문자열 비교가 시각 순서와 같다.
const TimestampLayout = "2006-01-02T15:04:05.000000000Z"

// FormatTimestamp: 저장소가 타임스탬프를 기록하는 문자열 형식.
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(TimestampLayout)
}

func splitPath(path string) []string {
	parts := strings.Split(path, ".")
	out := parts[:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func lookupPath(data map[string]any, path string) (any, bool) {
	parts := splitPath(path)
	if len(parts) == 0 {
		return nil, false
	}
	var cur any = data
	for _, part := range parts {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil, false
		}
		cur, ok = m[part]
		if !ok {
			return nil, false
		}
	}
	return cur, true
}

// applyPath: 점 경로에 값을 적용한다. 중간 맵이 없거나 맵이 아니면 새로 만든다.
func applyPath(data map[string]any, path string, value any, now time.Time) {
	parts := splitPath(path)
	if len(parts) == 0 {
		return
	}
	cur := data
	for _, part := range parts[:len(parts)-1] {
		next, ok := cur[part].(map[string]any)
		if !ok {
			next = make(map[string]any)
			cur[part] = next
		}
		cur = next
	}
	last := parts[len(parts)-1]
	resolveInto(cur, last, value, now)
}

func resolveInto(target map[string]any, field string, value any, now time.Time) {
	switch v := value.(type) {
	case Sentinel:
		switch v.kind {
		case sentinelIncrement:
			base, _ := toFloat(target[field])
			target[field] = base + v.delta
		case sentinelServerTimestamp:
			target[field] = FormatTimestamp(now)
		case sentinelDelete:
			delete(target, field)
		}
	case map[string]any:
		target[field] = resolveMap(v, now)
	default:
		target[field] = v
	}
}

// resolveMap: 중첩 맵 안의 Sentinel 을 해석한 복사본을 만든다.
func resolveMap(in map[string]any, now time.Time) map[string]any {
	out := make(map[string]any, len(in))
	for k, v := range in {
		resolveInto(out, k, v, now)
	}
	return out
}

// mergeInto: src 를 dst 에 깊게 병합한다. 양쪽이 모두 맵인 필드만 재귀한다.
func mergeInto(dst, src map[string]any, now time.Time) {
	for k, v := range src {
		srcMap, srcIsMap := v.(map[string]any)
		dstMap, dstIsMap := dst[k].(map[string]any)
		if srcIsMap && dstIsMap {
			mergeInto(dstMap, srcMap, now)
			continue
		}
		resolveInto(dst, k, v, now)
	}
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case interface{ Float64() (float64, error) }:
		f, err := n.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}
