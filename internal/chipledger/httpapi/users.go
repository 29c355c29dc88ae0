package httpapi

import (
	"errors"
	"net/http"
	"strings"

	"github.com/park285/llm-kakao-bots/chip-ledger-go/internal/chipledger/ledger"
	"github.com/park285/llm-kakao-bots/chip-ledger-go/internal/chipledger/messages"
	"github.com/park285/llm-kakao-bots/chip-ledger-go/internal/chipledger/model"
	"github.com/park285/llm-kakao-bots/chip-ledger-go/internal/chipledger/readcache"
	"github.com/park285/llm-kakao-bots/chip-ledger-go/internal/common/httputil"
	"github.com/park285/llm-kakao-bots/chip-ledger-go/internal/common/messageprovider"
)

type (
	// UserListResponse: 사용자 목록 응답 DTO
	UserListResponse struct {
		Users  []model.User     `json:"users"`
		Source readcache.Source `json:"source"`
	}

	// UserResponse: 사용자 생성/변경 응답 DTO
	UserResponse struct {
		User    model.User `json:"user"`
		Message string     `json:"message,omitempty"`
	}

	// DeltaRequest: 칩 변경 요청 DTO. 사용자는 경로, 요청자는 헤더로 받는다.
	DeltaRequest struct {
		Amount    int64           `json:"amount"`
		Direction model.Direction `json:"type"`
		Reason    string          `json:"reason"`
	}

	// DeltaResponse: 칩 변경 결과 응답 DTO
	DeltaResponse struct {
		Applied bool        `json:"applied"`
		Error   string      `json:"error,omitempty"`
		User    *model.User `json:"user,omitempty"`
		Message string      `json:"message"`
	}
)

func handleListUsers(w http.ResponseWriter, r *http.Request, deps Deps) {
	users, source, err := deps.Ledger.GetAllUsers(r.Context(), queryBool(r, "refresh"))
	if err != nil {
		writeServiceError(w, r, deps, "list_users", err)
		return
	}
	respond(w, http.StatusOK, UserListResponse{Users: users, Source: source})
}

func handleSearchUser(w http.ResponseWriter, r *http.Request, deps Deps) {
	username := strings.TrimSpace(r.URL.Query().Get("username"))
	if username == "" {
		respondError(w, http.StatusBadRequest, errorInvalidRequest, "username is required")
		return
	}
	user, err := deps.Ledger.SearchUserByUsername(r.Context(), username, queryBool(r, "refresh"))
	if err != nil {
		writeServiceError(w, r, deps, "search_user", err)
		return
	}
	if user == nil {
		respondError(w, http.StatusNotFound, errorNotFound, "user not found")
		return
	}
	respond(w, http.StatusOK, user)
}

func handleGetUser(w http.ResponseWriter, r *http.Request, deps Deps) {
	user, err := deps.Ledger.GetUser(r.Context(), r.PathValue("id"))
	if err != nil {
		writeServiceError(w, r, deps, "get_user", err)
		return
	}
	if user == nil {
		respondError(w, http.StatusNotFound, errorNotFound, "user not found")
		return
	}
	respond(w, http.StatusOK, user)
}

func handleUserHistory(w http.ResponseWriter, r *http.Request, deps Deps) {
	limit := httputil.QueryInt(r, "limit", ledger.DefaultHistoryLimit, 1, ledger.MaxHistoryLimit)
	history, err := deps.Ledger.GetUserChipHistory(r.Context(), r.PathValue("id"), limit)
	if err != nil {
		writeServiceError(w, r, deps, "user_history", err)
		return
	}
	respond(w, http.StatusOK, map[string]any{"history": history})
}

func handleUserDaily(w http.ResponseWriter, r *http.Request, deps Deps) {
	days := httputil.QueryInt(r, "days", ledger.DefaultSummaryDays, 1, ledger.MaxSummaryDays)
	summaries, err := deps.Ledger.GetUserDailySummary(r.Context(), r.PathValue("id"), days)
	if err != nil {
		writeServiceError(w, r, deps, "user_daily", err)
		return
	}
	respond(w, http.StatusOK, map[string]any{"summaries": summaries})
}

func handleCreateUser(w http.ResponseWriter, r *http.Request, deps Deps) {
	var req ledger.NewUser
	if err := httputil.ReadJSON(r, &req, maxBodyBytes); err != nil {
		respondError(w, http.StatusBadRequest, errorInvalidRequest, "invalid request body")
		return
	}
	user, err := deps.Ledger.CreateUser(r.Context(), req)
	if err != nil {
		writeServiceError(w, r, deps, "create_user", err)
		return
	}
	deps.Logger.Info("user_created_via_api", "user_id", user.ID, "actor", resolveActor(r))
	respond(w, http.StatusCreated, UserResponse{
		User: user,
		Message: deps.Messages.Get(messages.LedgerUserCreated,
			messageprovider.P("username", user.Label()),
			messageprovider.P("chips", user.Chips),
		),
	})
}

func handleUpdateProfile(w http.ResponseWriter, r *http.Request, deps Deps) {
	var patch ledger.ProfilePatch
	if err := httputil.ReadJSON(r, &patch, maxBodyBytes); err != nil {
		respondError(w, http.StatusBadRequest, errorInvalidRequest, "invalid request body")
		return
	}
	id := r.PathValue("id")
	found, err := deps.Ledger.UpdateProfile(r.Context(), id, patch)
	if err != nil {
		writeServiceError(w, r, deps, "update_profile", err)
		return
	}
	if !found {
		respondError(w, http.StatusNotFound, errorNotFound, "user not found")
		return
	}
	user, err := deps.Ledger.GetUser(r.Context(), id)
	if err != nil || user == nil {
		writeServiceError(w, r, deps, "update_profile", errors.Join(errors.New("reload user after update"), err))
		return
	}
	respond(w, http.StatusOK, UserResponse{User: *user})
}

// handleApplyDelta: 잘못된 요청과 없는 사용자는 같은 거절 응답이 된다.
func handleApplyDelta(w http.ResponseWriter, r *http.Request, deps Deps) {
	var req DeltaRequest
	if err := httputil.ReadJSON(r, &req, maxBodyBytes); err != nil {
		respondError(w, http.StatusBadRequest, errorInvalidRequest, "invalid request body")
		return
	}
	id := r.PathValue("id")

	before, err := deps.Ledger.GetUser(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, deps, "apply_delta", err)
		return
	}

	applied, err := deps.Ledger.ApplyDelta(r.Context(), ledger.Delta{
		UserID:    id,
		Amount:    req.Amount,
		Direction: req.Direction,
		Reason:    req.Reason,
		Actor:     resolveActor(r),
	})
	if err != nil {
		writeServiceError(w, r, deps, "apply_delta", err)
		return
	}
	if !applied || before == nil {
		respond(w, http.StatusUnprocessableEntity, DeltaResponse{
			Error:   errorDeltaRejected,
			Message: deps.Messages.Get(messages.LedgerDeltaRejected),
		})
		return
	}

	after, err := deps.Ledger.GetUser(r.Context(), id)
	if err != nil || after == nil {
		// 변경은 이미 반영됨
		deps.Logger.Warn("delta_reload_failed", "user_id", id, "err", err)
		respond(w, http.StatusOK, DeltaResponse{Applied: true})
		return
	}
	respond(w, http.StatusOK, DeltaResponse{
		Applied: true,
		User:    after,
		Message: deps.Messages.Get(messages.LedgerDeltaApplied,
			messageprovider.P("username", after.Label()),
			messageprovider.P("previous", before.Chips),
			messageprovider.P("new", after.Chips),
		),
	})
}

func handleCacheClear(w http.ResponseWriter, r *http.Request, deps Deps) {
	key := strings.TrimSpace(r.URL.Query().Get("key"))
	if key == "" {
		deps.Cache.ClearAll()
	} else {
		deps.Cache.Clear(key)
	}
	deps.Logger.Info("cache_cleared_via_api", "key", key, "actor", resolveActor(r))
	respond(w, http.StatusOK, map[string]any{"cleared": true, "key": key})
}
