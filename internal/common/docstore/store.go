package docstore

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/cenkalti/backoff/v4"
	json "github.com/goccy/go-json"
	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	cerrors "github.com/park285/llm-kakao-bots/chip-ledger-go/internal/common/errors"
)

const defaultMaxConflictRetries = 5

// documentRow: documents 테이블 매핑.
type documentRow struct {
	Collection string         `gorm:"primaryKey;size:128"`
	ID         string         `gorm:"primaryKey;size:255"`
	Data       datatypes.JSON `gorm:"not null"`
	Version    int64          `gorm:"not null;default:1"`
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

func (documentRow) TableName() string { return "documents" }

// Store: gorm 기반 문서 저장소.
type Store struct {
	db         *gorm.DB
	cache      *QueryCache
	clock      clock.Clock
	logger     *slog.Logger
	maxRetries uint64
}

// Option: Store 생성 옵션.
type Option func(*Store)

// WithQueryCache: 쿼리 결과 캐시 계층을 연결한다.
func WithQueryCache(cache *QueryCache) Option {
	return func(s *Store) { s.cache = cache }
}

// WithClock: 서버 타임스탬프 해석에 사용할 시계를 지정한다.
func WithClock(c clock.Clock) Option {
	return func(s *Store) { s.clock = c }
}

// WithLogger: 로거 지정.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) { s.logger = logger }
}

// WithMaxConflictRetries: 버전 충돌 시 재시도 횟수.
func WithMaxConflictRetries(n uint64) Option {
	return func(s *Store) { s.maxRetries = n }
}

// New: 문서 저장소를 생성한다.
func New(db *gorm.DB, opts ...Option) *Store {
	s := &Store{
		db:         db,
		clock:      clock.New(),
		logger:     slog.Default(),
		maxRetries: defaultMaxConflictRetries,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// AutoMigrate: documents 테이블을 생성/갱신한다.
func (s *Store) AutoMigrate(ctx context.Context) error {
	if err := s.db.WithContext(ctx).AutoMigrate(&documentRow{}); err != nil {
		return cerrors.DatabaseError{Operation: "docstore_migrate", Err: err}
	}
	return nil
}

// Get: 단일 문서를 읽는다. 없으면 ErrNotFound.
func (s *Store) Get(ctx context.Context, collection, id string) (Document, error) {
	var row documentRow
	err := s.db.WithContext(ctx).
		Where("collection = ? AND id = ?", collection, id).
		Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return Document{}, fmt.Errorf("%w: %s/%s", ErrNotFound, collection, id)
	}
	if err != nil {
		return Document{}, storeErr("get", collection, id, err)
	}
	return row.toDocument()
}

// Set: 문서를 기록한다. merge 가 false 면 전체 덮어쓰기, true 면 기존 필드와 깊게 병합한다.
func (s *Store) Set(ctx context.Context, collection, id string, data map[string]any, merge bool) error {
	err := s.mutate(ctx, "set", collection, id, true, func(current map[string]any, now time.Time) map[string]any {
		if !merge || current == nil {
			return resolveMap(data, now)
		}
		mergeInto(current, data, now)
		return current
	})
	if err != nil {
		return err
	}
	s.invalidate(ctx, collection)
	return nil
}

// Update: 점 경로 단위로 필드를 갱신한다. 문서가 없으면 ErrNotFound.
// Increment 와 ServerTimestamp 는 같은 트랜잭션 안에서 해석된다.
func (s *Store) Update(ctx context.Context, collection, id string, updates map[string]any) error {
	err := s.mutate(ctx, "update", collection, id, false, func(current map[string]any, now time.Time) map[string]any {
		for path, value := range updates {
			applyPath(current, path, value, now)
		}
		return current
	})
	if err != nil {
		return err
	}
	s.invalidate(ctx, collection)
	return nil
}

// Upsert: 문서가 없으면 onCreate 로 생성하고, 있으면 onUpdate 의 점 경로 갱신을 적용한다.
// 두 경우 모두 한 번의 버전 조건부 쓰기 안에서 결정된다.
func (s *Store) Upsert(ctx context.Context, collection, id string, onCreate, onUpdate map[string]any) error {
	err := s.mutate(ctx, "upsert", collection, id, true, func(current map[string]any, now time.Time) map[string]any {
		if current == nil {
			return resolveMap(onCreate, now)
		}
		for path, value := range onUpdate {
			applyPath(current, path, value, now)
		}
		return current
	})
	if err != nil {
		return err
	}
	s.invalidate(ctx, collection)
	return nil
}

// Add: 새 id 로 문서를 추가하고 id 를 반환한다.
func (s *Store) Add(ctx context.Context, collection string, data map[string]any) (string, error) {
	id := uuid.NewString()
	if err := s.Set(ctx, collection, id, data, false); err != nil {
		return "", err
	}
	return id, nil
}

// Delete: 문서를 삭제한다. 없는 문서 삭제는 성공으로 취급한다.
func (s *Store) Delete(ctx context.Context, collection, id string) error {
	err := s.db.WithContext(ctx).
		Where("collection = ? AND id = ?", collection, id).
		Delete(&documentRow{}).Error
	if err != nil {
		return storeErr("delete", collection, id, err)
	}
	s.invalidate(ctx, collection)
	return nil
}

// QueryFromServer: 데이터베이스에서 직접 조회하고 결과를 캐시 계층에 기록한다.
func (s *Store) QueryFromServer(ctx context.Context, q Query) ([]Document, error) {
	gen := ""
	if s.cache != nil {
		var err error
		gen, err = s.cache.Generation(ctx, q.Collection)
		if err != nil {
			s.logger.Warn("query_cache_generation_failed", "collection", q.Collection, "err", err)
		}
	}
	return s.queryServer(ctx, q, gen)
}

// QueryFromCache: 캐시 계층에서만 조회한다. 없으면 ErrCacheMiss.
func (s *Store) QueryFromCache(ctx context.Context, q Query) ([]Document, error) {
	if s.cache == nil {
		return nil, ErrCacheMiss
	}
	docs, _, err := s.cache.Read(ctx, q)
	return docs, err
}

// Query: 캐시 계층을 먼저 보고 없으면 데이터베이스를 조회한다.
func (s *Store) Query(ctx context.Context, q Query) ([]Document, error) {
	if s.cache == nil {
		return s.queryServer(ctx, q, "")
	}
	docs, gen, err := s.cache.Read(ctx, q)
	if err == nil {
		return docs, nil
	}
	if !errors.Is(err, ErrCacheMiss) {
		s.logger.Warn("query_cache_read_failed", "collection", q.Collection, "err", err)
	}
	return s.queryServer(ctx, q, gen)
}

func (s *Store) queryServer(ctx context.Context, q Query, gen string) ([]Document, error) {
	var rows []documentRow
	if err := s.db.WithContext(ctx).Where("collection = ?", q.Collection).Find(&rows).Error; err != nil {
		return nil, storeErr("query", q.Collection, "", err)
	}

	docs := make([]Document, 0, len(rows))
	for _, row := range rows {
		doc, err := row.toDocument()
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	docs = q.apply(docs)

	if s.cache != nil && gen != "" {
		if err := s.cache.Write(ctx, q, gen, docs); err != nil {
			s.logger.Warn("query_cache_write_failed", "collection", q.Collection, "err", err)
		}
	}
	return docs, nil
}

// mutate: 읽기-수정-쓰기를 버전 조건부 UPDATE 로 수행하고 충돌 시 재시도한다.
func (s *Store) mutate(
	ctx context.Context,
	op, collection, id string,
	createIfMissing bool,
	fn func(current map[string]any, now time.Time) map[string]any,
) error {
	attempt := func() error {
		err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			return s.mutateOnce(tx, collection, id, createIfMissing, fn)
		})
		if err == nil || errors.Is(err, errVersionConflict) {
			return err
		}
		return backoff.Permanent(err)
	}

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = 5 * time.Millisecond
	policy.MaxInterval = 100 * time.Millisecond
	err := backoff.Retry(attempt, backoff.WithContext(backoff.WithMaxRetries(policy, s.maxRetries), ctx))
	switch {
	case err == nil:
		return nil
	case errors.Is(err, errVersionConflict):
		return storeErr(op, collection, id, ErrConflict)
	case errors.Is(err, ErrNotFound):
		return err
	default:
		return storeErr(op, collection, id, err)
	}
}

var errVersionConflict = errors.New("version conflict")

func (s *Store) mutateOnce(
	tx *gorm.DB,
	collection, id string,
	createIfMissing bool,
	fn func(current map[string]any, now time.Time) map[string]any,
) error {
	now := s.clock.Now()

	var row documentRow
	err := tx.Where("collection = ? AND id = ?", collection, id).Take(&row).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		if !createIfMissing {
			return fmt.Errorf("%w: %s/%s", ErrNotFound, collection, id)
		}
		payload, err := json.Marshal(fn(nil, now))
		if err != nil {
			return fmt.Errorf("encode document failed: %w", err)
		}
		created := documentRow{
			Collection: collection,
			ID:         id,
			Data:       datatypes.JSON(payload),
			Version:    1,
			CreatedAt:  now,
			UpdatedAt:  now,
		}
		res := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&created)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			// 동시에 다른 쓰기가 먼저 생성함
			return errVersionConflict
		}
		return nil
	case err != nil:
		return err
	}

	current, err := decodeData(row.Data)
	if err != nil {
		return err
	}
	payload, err := json.Marshal(fn(current, now))
	if err != nil {
		return fmt.Errorf("encode document failed: %w", err)
	}

	res := tx.Model(&documentRow{}).
		Where("collection = ? AND id = ? AND version = ?", collection, id, row.Version).
		Updates(map[string]any{
			"data":       datatypes.JSON(payload),
			"version":    row.Version + 1,
			"updated_at": now,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return errVersionConflict
	}
	return nil
}

func (s *Store) invalidate(ctx context.Context, collection string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx, collection); err != nil {
		s.logger.Warn("query_cache_invalidate_failed", "collection", collection, "err", err)
	}
}

func (r documentRow) toDocument() (Document, error) {
	data, err := decodeData(r.Data)
	if err != nil {
		return Document{}, storeErr("decode", r.Collection, r.ID, err)
	}
	return Document{
		ID:         r.ID,
		Data:       data,
		CreateTime: r.CreatedAt,
		UpdateTime: r.UpdatedAt,
	}, nil
}

func decodeData(raw datatypes.JSON) (map[string]any, error) {
	data := make(map[string]any)
	if len(raw) == 0 {
		return data, nil
	}
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, fmt.Errorf("decode document failed: %w", err)
	}
	if data == nil {
		data = make(map[string]any)
	}
	return data, nil
}

func storeErr(op, collection, id string, err error) error {
	target := collection
	if id != "" {
		target += "/" + id
	}
	return cerrors.StoreError{Operation: op, Target: target, Err: err}
}

// Increment: 단일 숫자 필드에 delta 를 더한다. field 는 점 경로를 허용한다.
func (s *Store) Increment(ctx context.Context, collection, id, field string, delta float64) error {
	return s.Update(ctx, collection, id, map[string]any{field: Increment(delta)})
}
