package httpapi

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/park285/llm-kakao-bots/chip-ledger-go/internal/chipledger/messages"
	"github.com/park285/llm-kakao-bots/chip-ledger-go/internal/chipledger/model"
	"github.com/park285/llm-kakao-bots/chip-ledger-go/internal/chipledger/ranking"
	cerrors "github.com/park285/llm-kakao-bots/chip-ledger-go/internal/common/errors"
	"github.com/park285/llm-kakao-bots/chip-ledger-go/internal/common/httputil"
	"github.com/park285/llm-kakao-bots/chip-ledger-go/internal/common/messageprovider"
)

const viewDashboard = "dashboard"

type (
	// RecalcRequest: 랭킹 재계산 요청 DTO. type 이 비어 있으면 현재 기간의 월간/연간을 모두 계산한다.
	RecalcRequest struct {
		Type  model.RankingType `json:"type"`
		Year  int               `json:"year"`
		Month int               `json:"month"`
	}

	// RecalcResponse: 재계산 결과 응답 DTO
	RecalcResponse struct {
		ID      string                 `json:"id,omitempty"`
		Stored  bool                   `json:"stored"`
		Outcome *ranking.PeriodOutcome `json:"outcome,omitempty"`
		Message string                 `json:"message,omitempty"`
	}
)

// keyFromQuery: type/year/month 쿼리를 키로 바꾼다. 비어 있는 값은 현재 기간으로 채운다.
func keyFromQuery(r *http.Request, deps Deps) (ranking.SnapshotKey, error) {
	q := r.URL.Query()
	year, month := deps.Ranking.CurrentPeriod()

	if raw := strings.TrimSpace(q.Get("year")); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			return ranking.SnapshotKey{}, cerrors.ValidationError{Field: "year", Message: "must be a number"}
		}
		year = n
	}
	if raw := strings.TrimSpace(q.Get("month")); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			return ranking.SnapshotKey{}, cerrors.ValidationError{Field: "month", Message: "must be a number"}
		}
		month = n
	}

	var key ranking.SnapshotKey
	switch model.RankingType(strings.ToLower(strings.TrimSpace(q.Get("type")))) {
	case "", model.RankingMonthly:
		key = ranking.MonthlyKey(year, month)
	case model.RankingYearly:
		key = ranking.YearlyKey(year)
	default:
		return ranking.SnapshotKey{}, cerrors.ValidationError{Field: "type", Message: "must be monthly or yearly"}
	}
	return key, key.Validate()
}

func handleRankingView(w http.ResponseWriter, r *http.Request, deps Deps) {
	key, err := keyFromQuery(r, deps)
	if err != nil {
		writeServiceError(w, r, deps, "ranking_view", err)
		return
	}
	threshold := deps.Config.ViewStaleAfter
	if r.URL.Query().Get("view") == viewDashboard {
		threshold = deps.Config.DashboardStaleAfter
	}

	view, err := deps.Policy.Read(r.Context(), key, threshold, resolveActor(r))
	if err != nil {
		writeServiceError(w, r, deps, "ranking_view", err)
		return
	}
	limit := httputil.QueryInt(r, "limit", deps.Config.DefaultLimit, 1, deps.Config.StoreLimit)
	if len(view.Entries) > limit {
		view.Entries = view.Entries[:limit]
	}
	respond(w, http.StatusOK, view)
}

func handleRankingStored(w http.ResponseWriter, r *http.Request, deps Deps) {
	key, err := ranking.ParseSnapshotKey(r.PathValue("id"))
	if err != nil {
		writeServiceError(w, r, deps, "ranking_stored", err)
		return
	}
	snap, err := deps.Ranking.GetStored(r.Context(), key)
	if err != nil {
		writeServiceError(w, r, deps, "ranking_stored", err)
		return
	}
	if snap == nil {
		respondError(w, http.StatusNotFound, errorNotFound, "ranking snapshot not found")
		return
	}
	respond(w, http.StatusOK, snap)
}

func handleRankingComputed(w http.ResponseWriter, r *http.Request, deps Deps) {
	key, err := keyFromQuery(r, deps)
	if err != nil {
		writeServiceError(w, r, deps, "ranking_computed", err)
		return
	}
	limit := httputil.QueryInt(r, "limit", deps.Config.DefaultLimit, 1, deps.Config.StoreLimit)
	res, err := deps.Ranking.GetComputed(r.Context(), key, limit, queryBool(r, "refresh"))
	if err != nil {
		writeServiceError(w, r, deps, "ranking_computed", err)
		return
	}
	respond(w, http.StatusOK, res)
}

func handleRankingRecalc(w http.ResponseWriter, r *http.Request, deps Deps) {
	var req RecalcRequest
	if r.ContentLength != 0 {
		if err := httputil.ReadJSON(r, &req, maxBodyBytes); err != nil && !errors.Is(err, httputil.ErrEmptyBody) {
			respondError(w, http.StatusBadRequest, errorInvalidRequest, "invalid request body")
			return
		}
	}
	actor := resolveActor(r)

	if req.Type == "" {
		out, err := deps.Ranking.RecalcCurrent(r.Context(), actor)
		if err != nil {
			writeServiceError(w, r, deps, "ranking_recalc", err)
			return
		}
		respond(w, http.StatusOK, RecalcResponse{Stored: out.Monthly || out.Yearly, Outcome: &out})
		return
	}

	key := ranking.SnapshotKey{Type: req.Type, Year: req.Year, Month: req.Month}
	stored, err := deps.Ranking.Recalc(r.Context(), key, actor)
	if err != nil {
		writeServiceError(w, r, deps, "ranking_recalc", err)
		return
	}
	resp := RecalcResponse{ID: key.String(), Stored: stored}
	if stored {
		resp.Message = deps.Messages.Get(messages.RankingRecalcDone, messageprovider.P("label", deps.Policy.Label(key)))
	}
	respond(w, http.StatusOK, resp)
}
