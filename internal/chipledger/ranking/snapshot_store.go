package ranking

import (
	"context"
	"errors"
	"fmt"

	"github.com/park285/llm-kakao-bots/chip-ledger-go/internal/chipledger/model"
	"github.com/park285/llm-kakao-bots/chip-ledger-go/internal/common/docstore"
)

// SnapshotBackend: 스냅샷 저장에 필요한 저장소 연산.
type SnapshotBackend interface {
	Get(ctx context.Context, collection, id string) (docstore.Document, error)
	Set(ctx context.Context, collection, id string, data map[string]any, merge bool) error
}

// SnapshotStore: rankings 컬렉션의 스냅샷을 읽고 쓴다.
type SnapshotStore struct {
	backend SnapshotBackend
}

// NewSnapshotStore: 스냅샷 저장소를 생성한다.
func NewSnapshotStore(backend SnapshotBackend) *SnapshotStore {
	return &SnapshotStore{backend: backend}
}

// Save: 스냅샷 전체를 덮어쓴다. updatedAt 은 저장 시각으로 기록된다.
func (s *SnapshotStore) Save(ctx context.Context, key SnapshotKey, entries []model.RankingEntry, updatedBy string) error {
	if err := key.Validate(); err != nil {
		return err
	}
	docs := make([]any, 0, len(entries))
	for _, e := range entries {
		docs = append(docs, e.EntryDocument())
	}
	data := map[string]any{
		"type":      string(key.Type),
		"year":      key.Year,
		"entries":   docs,
		"updatedAt": docstore.ServerTimestamp(),
		"updatedBy": updatedBy,
	}
	if key.Type == model.RankingMonthly {
		data["month"] = key.Month
	}
	if err := s.backend.Set(ctx, model.CollectionRankings, key.String(), data, false); err != nil {
		return fmt.Errorf("save ranking snapshot %s: %w", key, err)
	}
	return nil
}

// Get: 스냅샷을 읽는다. 없으면 (nil, nil).
func (s *SnapshotStore) Get(ctx context.Context, key SnapshotKey) (*model.RankingSnapshot, error) {
	doc, err := s.backend.Get(ctx, model.CollectionRankings, key.String())
	if errors.Is(err, docstore.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get ranking snapshot %s: %w", key, err)
	}
	snap, err := model.RankingSnapshotFromDocument(doc)
	if err != nil {
		return nil, err
	}
	return &snap, nil
}
