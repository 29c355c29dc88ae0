// Package httputil 는 JSON 요청/응답과 쿼리 파라미터 처리를 위한 작은 HTTP 헬퍼를 모아 둔다.
package httputil

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	json "github.com/goccy/go-json"
)

// 헤더 이름과 값.
const (
	ContentTypeJSON   = "application/json"
	HeaderAPIKey      = "X-API-Key"
	HeaderContentType = "Content-Type"
)

// 요청 바디 오류.
var (
	ErrEmptyBody    = errors.New("empty request body")
	ErrBodyTooLarge = errors.New("request body too large")
)

// ReadJSON: 바디를 최대 maxBytes 까지 읽어 out 으로 디코딩한다.
// 바디가 비어 있으면 ErrEmptyBody, 한도를 넘으면 ErrBodyTooLarge, 값 뒤에 다른 내용이 있으면 오류.
func ReadJSON(r *http.Request, out any, maxBytes int64) error {
	if r.Body == nil || r.Body == http.NoBody {
		return ErrEmptyBody
	}
	raw, err := io.ReadAll(io.LimitReader(r.Body, maxBytes+1))
	if err != nil {
		return fmt.Errorf("read body failed: %w", err)
	}
	if int64(len(raw)) > maxBytes {
		return ErrBodyTooLarge
	}
	if len(bytes.TrimSpace(raw)) == 0 {
		return ErrEmptyBody
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	if err := dec.Decode(out); err != nil {
		return fmt.Errorf("decode json failed: %w", err)
	}
	if dec.More() {
		return errors.New("decode json failed: trailing data after value")
	}
	return nil
}

// WriteJSON: v 를 JSON 으로 쓴다. HTML 이스케이프는 하지 않는다 (안내 문구의 → 기호 등 보존).
func WriteJSON(w http.ResponseWriter, status int, v any) error {
	w.Header().Set(HeaderContentType, ContentTypeJSON)
	w.WriteHeader(status)

	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encode json failed: %w", err)
	}
	return nil
}

// ErrorResponse: 오류 응답 바디. Error 는 기계용 코드, Message 는 사람용 설명.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// WriteErrorJSON: ErrorResponse 를 쓴다.
func WriteErrorJSON(w http.ResponseWriter, status int, code, message string) error {
	return WriteJSON(w, status, ErrorResponse{
		Error:   strings.TrimSpace(code),
		Message: strings.TrimSpace(message),
	})
}
