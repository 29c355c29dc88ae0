// Package timeutil 는 저장소 문서에 섞여 들어오는 타임스탬프 표현을 time.Time 하나로 정규화한다.
package timeutil

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

var (
	// ErrAbsent: 값이 없거나(nil, 빈 문자열) 0 포인터인 경우
	ErrAbsent = errors.New("timestamp absent")
	// ErrUnrecognized: 타임스탬프로 해석할 수 없는 형태인 경우
	ErrUnrecognized = errors.New("timestamp unrecognized")
)

// numberLike: encoding/json.Number, goccy/go-json.Number 공통 메서드 집합
type numberLike interface {
	Int64() (int64, error)
	Float64() (float64, error)
}

// asTimer: protobuf Timestamp 등 AsTime() 을 제공하는 저장소 고유 타입
type asTimer interface {
	AsTime() time.Time
}

var stringLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05.000Z07:00",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// Coerce: 다음 표현을 모두 time.Time 으로 변환한다.
//   - time.Time, *time.Time, AsTime() 을 제공하는 타입
//   - epoch 밀리초 (정수, 실수, json.Number, 숫자 문자열)
//   - ISO-8601/RFC3339 문자열
//   - {seconds, nanoseconds} / {_seconds, _nanoseconds} 형태의 맵
//
// 값이 없으면 ErrAbsent, 해석 불가하면 ErrUnrecognized 를 감싼 에러를 반환한다.
func Coerce(v any) (time.Time, error) {
	switch typed := v.(type) {
	case nil:
		return time.Time{}, ErrAbsent
	case time.Time:
		return typed, nil
	case *time.Time:
		if typed == nil {
			return time.Time{}, ErrAbsent
		}
		return *typed, nil
	case asTimer:
		return typed.AsTime(), nil
	case string:
		return coerceString(typed)
	case int:
		return time.UnixMilli(int64(typed)), nil
	case int32:
		return time.UnixMilli(int64(typed)), nil
	case int64:
		return time.UnixMilli(typed), nil
	case uint32:
		return time.UnixMilli(int64(typed)), nil
	case uint64:
		if typed > math.MaxInt64 {
			return time.Time{}, fmt.Errorf("%w: epoch millis overflow %d", ErrUnrecognized, typed)
		}
		return time.UnixMilli(int64(typed)), nil
	case float32:
		return fromFloatMillis(float64(typed))
	case float64:
		return fromFloatMillis(typed)
	case numberLike:
		if n, err := typed.Int64(); err == nil {
			return time.UnixMilli(n), nil
		}
		f, err := typed.Float64()
		if err != nil {
			return time.Time{}, fmt.Errorf("%w: %v", ErrUnrecognized, v)
		}
		return fromFloatMillis(f)
	case map[string]any:
		return coerceSecondsMap(typed)
	default:
		return time.Time{}, fmt.Errorf("%w: unsupported type %T", ErrUnrecognized, v)
	}
}

// CoerceOr: Coerce 와 같지만 값이 없을 때만 fallback 을 반환한다.
// 해석 불가한 값은 여전히 에러다.
func CoerceOr(v any, fallback time.Time) (time.Time, error) {
	t, err := Coerce(v)
	if errors.Is(err, ErrAbsent) {
		return fallback, nil
	}
	return t, err
}

func coerceString(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, ErrAbsent
	}

	if isDigits(raw) {
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return time.Time{}, fmt.Errorf("%w: %q", ErrUnrecognized, raw)
		}
		return time.UnixMilli(n), nil
	}

	for _, layout := range stringLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: %q", ErrUnrecognized, raw)
}

func coerceSecondsMap(m map[string]any) (time.Time, error) {
	secondsRaw, ok := firstPresent(m, "seconds", "_seconds")
	if !ok {
		return time.Time{}, fmt.Errorf("%w: map without seconds", ErrUnrecognized)
	}
	seconds, err := toInt64(secondsRaw)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: seconds: %v", ErrUnrecognized, err)
	}

	var nanos int64
	if nanosRaw, ok := firstPresent(m, "nanoseconds", "_nanoseconds", "nanos"); ok {
		nanos, err = toInt64(nanosRaw)
		if err != nil {
			return time.Time{}, fmt.Errorf("%w: nanoseconds: %v", ErrUnrecognized, err)
		}
	}
	return time.Unix(seconds, nanos), nil
}

func firstPresent(m map[string]any, keys ...string) (any, bool) {
	for _, key := range keys {
		if v, ok := m[key]; ok && v != nil {
			return v, true
		}
	}
	return nil, false
}

func toInt64(v any) (int64, error) {
	switch typed := v.(type) {
	case int:
		return int64(typed), nil
	case int32:
		return int64(typed), nil
	case int64:
		return typed, nil
	case float64:
		if typed != math.Trunc(typed) {
			return 0, fmt.Errorf("non-integer %v", typed)
		}
		return int64(typed), nil
	case numberLike:
		return typed.Int64()
	case string:
		return strconv.ParseInt(strings.TrimSpace(typed), 10, 64)
	default:
		return 0, fmt.Errorf("unsupported type %T", v)
	}
}

func fromFloatMillis(f float64) (time.Time, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return time.Time{}, fmt.Errorf("%w: %v", ErrUnrecognized, f)
	}
	whole, frac := math.Modf(f)
	return time.UnixMilli(int64(whole)).Add(time.Duration(frac * float64(time.Millisecond))), nil
}

func isDigits(s string) bool {
	start := 0
	if strings.HasPrefix(s, "-") {
		start = 1
	}
	if start == len(s) {
		return false
	}
	for _, r := range s[start:] {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
