// Package httpapi 는 원장/랭킹 서비스를 HTTP 로 노출한다.
package httpapi

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/park285/llm-kakao-bots/chip-ledger-go/internal/chipledger/config"
	"github.com/park285/llm-kakao-bots/chip-ledger-go/internal/chipledger/ledger"
	"github.com/park285/llm-kakao-bots/chip-ledger-go/internal/chipledger/ranking"
	"github.com/park285/llm-kakao-bots/chip-ledger-go/internal/chipledger/readcache"
	cerrors "github.com/park285/llm-kakao-bots/chip-ledger-go/internal/common/errors"
	"github.com/park285/llm-kakao-bots/chip-ledger-go/internal/common/health"
	"github.com/park285/llm-kakao-bots/chip-ledger-go/internal/common/httputil"
	"github.com/park285/llm-kakao-bots/chip-ledger-go/internal/common/messageprovider"
)

const (
	headerStaffEmail = "X-Staff-Email"
	maxBodyBytes     = 1 << 20
)

// API 에러 코드
const (
	errorInvalidRequest = "INVALID_REQUEST"
	errorUnauthorized   = "UNAUTHORIZED"
	errorNotFound       = "NOT_FOUND"
	errorConflict       = "CONFLICT"
	errorDeltaRejected  = "DELTA_REJECTED"
	errorNoSnapshot     = "RANKING_UNAVAILABLE"
	errorInternal       = "INTERNAL_ERROR"
)

// Deps: 핸들러 의존성
type Deps struct {
	Ledger   *ledger.Service
	Ranking  *ranking.Service
	Policy   *ranking.Policy
	Cache    *readcache.Cache
	Messages *messageprovider.Provider
	Metrics  http.Handler
	Health   []health.Check
	Config   config.RankingConfig
	APIKey   string
	Logger   *slog.Logger
}

// Register: HTTP API 라우트 등록.
func Register(mux *http.ServeMux, deps Deps) {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}

	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		resp := health.Get(r.Context(), deps.Health...)
		status := http.StatusOK
		if resp.Status != "ok" {
			status = http.StatusServiceUnavailable
		}
		respond(w, status, resp)
	})
	if deps.Metrics != nil {
		mux.Handle("GET /metrics", deps.Metrics)
	}

	// 사용자
	mux.HandleFunc("GET /api/users", func(w http.ResponseWriter, r *http.Request) {
		handleListUsers(w, r, deps)
	})
	mux.HandleFunc("GET /api/users/search", func(w http.ResponseWriter, r *http.Request) {
		handleSearchUser(w, r, deps)
	})
	mux.HandleFunc("GET /api/users/{id}", func(w http.ResponseWriter, r *http.Request) {
		handleGetUser(w, r, deps)
	})
	mux.HandleFunc("GET /api/users/{id}/history", func(w http.ResponseWriter, r *http.Request) {
		handleUserHistory(w, r, deps)
	})
	mux.HandleFunc("GET /api/users/{id}/daily", func(w http.ResponseWriter, r *http.Request) {
		handleUserDaily(w, r, deps)
	})
	mux.HandleFunc("POST /api/users", requireAPIKey(deps, func(w http.ResponseWriter, r *http.Request) {
		handleCreateUser(w, r, deps)
	}))
	mux.HandleFunc("PATCH /api/users/{id}", requireAPIKey(deps, func(w http.ResponseWriter, r *http.Request) {
		handleUpdateProfile(w, r, deps)
	}))
	mux.HandleFunc("POST /api/users/{id}/chips", requireAPIKey(deps, func(w http.ResponseWriter, r *http.Request) {
		handleApplyDelta(w, r, deps)
	}))

	// 랭킹
	mux.HandleFunc("GET /api/rankings", func(w http.ResponseWriter, r *http.Request) {
		handleRankingView(w, r, deps)
	})
	mux.HandleFunc("GET /api/rankings/computed", func(w http.ResponseWriter, r *http.Request) {
		handleRankingComputed(w, r, deps)
	})
	mux.HandleFunc("GET /api/rankings/{id}", func(w http.ResponseWriter, r *http.Request) {
		handleRankingStored(w, r, deps)
	})
	mux.HandleFunc("POST /api/rankings/recalculate", requireAPIKey(deps, func(w http.ResponseWriter, r *http.Request) {
		handleRankingRecalc(w, r, deps)
	}))

	// 캐시
	mux.HandleFunc("GET /api/cache/status", func(w http.ResponseWriter, r *http.Request) {
		respond(w, http.StatusOK, map[string]any{"entries": deps.Cache.Status()})
	})
	mux.HandleFunc("DELETE /api/cache", requireAPIKey(deps, func(w http.ResponseWriter, r *http.Request) {
		handleCacheClear(w, r, deps)
	}))

	deps.Logger.Info("chipledger_http_api_registered")
}

// requireAPIKey: ADMIN_API_KEY 가 설정되어 있으면 X-API-Key 를 검사한다.
func requireAPIKey(deps Deps, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !httputil.APIKeyMatches(r, deps.APIKey) {
			deps.Logger.Warn("api_key_rejected", "path", r.URL.Path)
			respondError(w, http.StatusUnauthorized, errorUnauthorized, "invalid api key")
			return
		}
		next(w, r)
	}
}

// resolveActor: 요청한 스태프. 헤더가 없으면 system.
func resolveActor(r *http.Request) string {
	if actor := strings.TrimSpace(r.Header.Get(headerStaffEmail)); actor != "" {
		return actor
	}
	return ledger.ActorSystem
}

func queryBool(r *http.Request, key string) bool {
	switch strings.ToLower(strings.TrimSpace(r.URL.Query().Get(key))) {
	case "1", "true", "yes":
		return true
	default:
		return false
	}
}

// writeServiceError: 서비스 에러를 상태 코드로 옮긴다. 호출자 실수가 아닌 에러만 Error 로 기록한다.
func writeServiceError(w http.ResponseWriter, r *http.Request, deps Deps, op string, err error) {
	switch {
	case cerrors.IsValidation(err):
		respondError(w, http.StatusBadRequest, errorInvalidRequest, err.Error())
	case cerrors.IsNotFound(err):
		respondError(w, http.StatusNotFound, errorNotFound, err.Error())
	case cerrors.IsConflict(err):
		respondError(w, http.StatusConflict, errorConflict, err.Error())
	case errors.Is(err, ranking.ErrNoSnapshot):
		respondError(w, http.StatusServiceUnavailable, errorNoSnapshot, err.Error())
	case errors.Is(err, context.Canceled):
		respondError(w, http.StatusServiceUnavailable, errorInternal, "request canceled")
	default:
		deps.Logger.Error("http_request_failed", "op", op, "path", r.URL.Path, "err", err)
		respondError(w, http.StatusInternalServerError, errorInternal, "internal error")
		return
	}
	deps.Logger.Debug("http_request_rejected", "op", op, "path", r.URL.Path, "err", err)
}

func respond(w http.ResponseWriter, status int, v any) {
	_ = httputil.WriteJSON(w, status, v)
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	_ = httputil.WriteErrorJSON(w, status, code, message)
}
