package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata" // zoneinfo 없는 컨테이너 이미지
)

// lookupFirst: keys 중 공백이 아닌 값을 가진 첫 키.
func lookupFirst(keys ...string) (key, value string, ok bool) {
	for _, k := range keys {
		if v, found := os.LookupEnv(k); found {
			if v = strings.TrimSpace(v); v != "" {
				return k, v, true
			}
		}
	}
	return "", "", false
}

// fromEnv: 값이 없으면 def, 있으면 parse 결과. 파싱 실패는 키 이름과 원문을 담은 에러.
func fromEnv[T any](keys []string, def T, kind string, parse func(string) (T, error)) (T, error) {
	key, raw, ok := lookupFirst(keys...)
	if !ok {
		return def, nil
	}
	v, err := parse(raw)
	if err != nil {
		var zero T
		return zero, fmt.Errorf("invalid %s env %s=%q: %w", kind, key, raw, err)
	}
	return v, nil
}

func parseBool(raw string) (bool, error) {
	switch strings.ToLower(raw) {
	case "true", "1", "yes", "y", "on":
		return true, nil
	case "false", "0", "no", "n", "off":
		return false, nil
	}
	return false, fmt.Errorf("not a boolean")
}

func parseInt64(raw string) (int64, error) { return strconv.ParseInt(raw, 10, 64) }

func parseFloat64(raw string) (float64, error) { return strconv.ParseFloat(raw, 64) }

// IntFromEnv: 정수.
func IntFromEnv(key string, def int) (int, error) {
	return fromEnv([]string{key}, def, "int", strconv.Atoi)
}

// IntFromEnvFirstNonEmpty: keys 순서로 처음 값이 있는 정수.
func IntFromEnvFirstNonEmpty(keys []string, def int) (int, error) {
	return fromEnv(keys, def, "int", strconv.Atoi)
}

// Int64FromEnv: 64비트 정수.
func Int64FromEnv(key string, def int64) (int64, error) {
	return fromEnv([]string{key}, def, "int64", parseInt64)
}

// Float64FromEnv: 실수.
func Float64FromEnv(key string, def float64) (float64, error) {
	return fromEnv([]string{key}, def, "float64", parseFloat64)
}

// BoolFromEnv: true/1/yes/y/on, false/0/no/n/off (대소문자 무시).
func BoolFromEnv(key string, def bool) (bool, error) {
	return fromEnv([]string{key}, def, "bool", parseBool)
}

// DurationSecondsFromEnv: 정수 초를 Duration 으로 읽는다. 음수는 에러, 0 은 허용.
func DurationSecondsFromEnv(key string, defSeconds int64) (time.Duration, error) {
	return fromEnv([]string{key}, time.Duration(defSeconds)*time.Second, "duration seconds", func(raw string) (time.Duration, error) {
		n, err := parseInt64(raw)
		if err != nil {
			return 0, err
		}
		if n < 0 {
			return 0, fmt.Errorf("negative")
		}
		return time.Duration(n) * time.Second, nil
	})
}

// StringFromEnv: 공백을 제거한 문자열. 비어 있으면 def.
func StringFromEnv(key, def string) string {
	return StringFromEnvFirstNonEmpty([]string{key}, def)
}

// StringFromEnvFirstNonEmpty: keys 순서로 처음 비어 있지 않은 값.
func StringFromEnvFirstNonEmpty(keys []string, def string) string {
	if _, v, ok := lookupFirst(keys...); ok {
		return v
	}
	return def
}

// LocationFromEnv: IANA 시간대 이름 (예: Asia/Tokyo).
func LocationFromEnv(key, defName string) (*time.Location, error) {
	name := StringFromEnv(key, defName)
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("invalid location env %s=%q: %w", key, name, err)
	}
	return loc, nil
}
