package model

import (
	"fmt"
	"time"

	"github.com/park285/llm-kakao-bots/chip-ledger-go/internal/common/docstore"
)

// Direction: 칩 변동 방향.
type Direction string

// 변동 방향 값.
const (
	DirectionAdd      Direction = "add"
	DirectionSubtract Direction = "subtract"
)

// Valid: add 또는 subtract 인지.
func (d Direction) Valid() bool {
	return d == DirectionAdd || d == DirectionSubtract
}

// Signed: 방향에 따라 부호를 붙인다.
func (d Direction) Signed(amount int64) int64 {
	if d == DirectionSubtract {
		return -amount
	}
	return amount
}

// ChipHistory: 칩 변동 1건의 불변 기록.
// ChangeAmount 는 요청 금액(부호 포함), AppliedAmount 는 잔액이 실제로 움직인 양이다.
type ChipHistory struct {
	ID             string    `json:"id"`
	UserID         string    `json:"userId" validate:"required"`
	Username       string    `json:"username"`
	PreviousAmount int64     `json:"previousAmount" validate:"gte=0"`
	NewAmount      int64     `json:"newAmount" validate:"gte=0"`
	ChangeAmount   int64     `json:"changeAmount"`
	AppliedAmount  int64     `json:"appliedAmount"`
	Type           Direction `json:"type" validate:"oneof=add subtract"`
	Reason         string    `json:"reason"`
	StaffEmail     string    `json:"staffEmail"`
	Timestamp      time.Time `json:"timestamp"`
	Date           string    `json:"date"`
}

// ChipHistoryFromDocument: chipHistory 문서를 정규화한다.
// 부호 없이 저장된 changeAmount 와 appliedAmount 가 없는 기록도 받아들인다.
func ChipHistoryFromDocument(doc docstore.Document) (ChipHistory, error) {
	var h ChipHistory
	if err := decodeDocument(doc.Data, &h); err != nil {
		return ChipHistory{}, fmt.Errorf("normalize chip history %s: %w", doc.ID, err)
	}
	h.ID = doc.ID
	if h.Timestamp.IsZero() {
		h.Timestamp = doc.CreateTime
	}
	if h.ChangeAmount < 0 {
		h.ChangeAmount = -h.ChangeAmount
	}
	h.ChangeAmount = h.Type.Signed(h.ChangeAmount)
	if _, ok := doc.Data["appliedAmount"]; !ok {
		h.AppliedAmount = h.NewAmount - h.PreviousAmount
	}
	if err := Validate(h); err != nil {
		return ChipHistory{}, fmt.Errorf("normalize chip history %s: %w", doc.ID, err)
	}
	return h, nil
}

// DailySummary: 사용자별 하루 요약.
type DailySummary struct {
	ID           string    `json:"id"`
	UserID       string    `json:"userId" validate:"required"`
	Username     string    `json:"username"`
	Date         string    `json:"date" validate:"required"`
	StartChips   int64     `json:"startChips"`
	EndChips     int64     `json:"endChips"`
	NetChange    int64     `json:"netChange"`
	Transactions int64     `json:"transactions" validate:"gte=0"`
	CreatedAt    time.Time `json:"createdAt"`
	LastUpdated  time.Time `json:"lastUpdated"`
}

// DailySummaryID: (사용자, 일자) 당 하나인 요약 문서 id.
func DailySummaryID(userID, date string) string {
	return userID + "_" + date
}

// DailySummaryFromDocument: dailySummary 문서를 정규화한다.
func DailySummaryFromDocument(doc docstore.Document) (DailySummary, error) {
	var s DailySummary
	if err := decodeDocument(doc.Data, &s); err != nil {
		return DailySummary{}, fmt.Errorf("normalize daily summary %s: %w", doc.ID, err)
	}
	s.ID = doc.ID
	if s.CreatedAt.IsZero() {
		s.CreatedAt = doc.CreateTime
	}
	if s.LastUpdated.IsZero() {
		s.LastUpdated = doc.UpdateTime
	}
	if err := Validate(s); err != nil {
		return DailySummary{}, fmt.Errorf("normalize daily summary %s: %w", doc.ID, err)
	}
	return s, nil
}
