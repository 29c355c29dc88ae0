package httputil

import (
	"crypto/subtle"
	"net/http"
	"strconv"
	"strings"
)

// QueryInt: 쿼리 파라미터를 정수로 읽는다. 없거나 잘못된 값이면 def, 범위를 벗어나면 잘라낸다.
func QueryInt(r *http.Request, key string, def, minValue, maxValue int) int {
	raw := strings.TrimSpace(r.URL.Query().Get(key))
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	if n < minValue {
		return minValue
	}
	if maxValue > 0 && n > maxValue {
		return maxValue
	}
	return n
}

// APIKeyMatches: X-API-Key 헤더가 expected 와 같은지 상수 시간으로 비교한다.
// expected 가 비어 있으면 인증을 요구하지 않는다.
func APIKeyMatches(r *http.Request, expected string) bool {
	expected = strings.TrimSpace(expected)
	if expected == "" {
		return true
	}
	got := strings.TrimSpace(r.Header.Get(HeaderAPIKey))
	return subtle.ConstantTimeCompare([]byte(got), []byte(expected)) == 1
}
