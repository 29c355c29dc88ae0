// Package messages 는 안내 문구 키를 정의한다.
package messages

// 랭킹 안내 문구 키
const (
	RankingLabelMonthly    = "ranking.label_monthly"
	RankingLabelYearly     = "ranking.label_yearly"
	RankingRecalculated    = "ranking.recalculated"
	RankingRecalculatedNew = "ranking.recalculated_first"
	RankingStaleFallback   = "ranking.stale_fallback"
	RankingEmpty           = "ranking.empty"
	RankingRecalcDone      = "ranking.recalc_done"
)

// 원장 안내 문구 키
const (
	LedgerDeltaApplied  = "ledger.delta_applied"
	LedgerDeltaRejected = "ledger.delta_rejected"
	LedgerUserCreated   = "ledger.user_created"
)

// All: YAML 검증용 전체 키 목록.
var All = []string{
	RankingLabelMonthly,
	RankingLabelYearly,
	RankingRecalculated,
	RankingRecalculatedNew,
	RankingStaleFallback,
	RankingEmpty,
	RankingRecalcDone,
	LedgerDeltaApplied,
	LedgerDeltaRejected,
	LedgerUserCreated,
}
