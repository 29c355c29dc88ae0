package docstore

import (
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"
	"time"

	json "github.com/goccy/go-json"

	"github.com/park285/llm-kakao-bots/chip-ledger-go/internal/common/timeutil"
)

// Op: 필터 비교 연산자.
type Op string

// 지원하는 비교 연산자.
const (
	OpEqual        Op = "=="
	OpNotEqual     Op = "!="
	OpLess         Op = "<"
	OpLessEqual    Op = "<="
	OpGreater      Op = ">"
	OpGreaterEqual Op = ">="
)

// Direction: 정렬 방향.
type Direction int

// 정렬 방향 상수.
const (
	Asc Direction = iota
	Desc
)

// Filter: 필드 비교 조건.
type Filter struct {
	Field string `json:"field"`
	Op    Op     `json:"op"`
	Value any    `json:"value"`
}

// Order: 정렬 조건. 정렬 필드가 없는 문서는 결과에서 제외된다.
type Order struct {
	Field     string    `json:"field"`
	Direction Direction `json:"direction"`
}

// Query: 컬렉션 쿼리 기술자. 값 타입이므로 빌더 메서드는 복사본을 반환한다.
type Query struct {
	Collection string   `json:"collection"`
	Filters    []Filter `json:"filters,omitempty"`
	Orders     []Order  `json:"orders,omitempty"`
	Max        int      `json:"limit,omitempty"`
}

// Collection: 컬렉션 전체를 조회하는 쿼리를 만든다.
func Collection(name string) Query {
	return Query{Collection: name}
}

// Where: 필터를 추가한다.
func (q Query) Where(field string, op Op, value any) Query {
	q.Filters = append(append([]Filter(nil), q.Filters...), Filter{Field: field, Op: op, Value: value})
	return q
}

// OrderBy: 정렬 조건을 추가한다.
func (q Query) OrderBy(field string, dir Direction) Query {
	q.Orders = append(append([]Order(nil), q.Orders...), Order{Field: field, Direction: dir})
	return q
}

// Limit: 최대 결과 수를 지정한다. 0 이하면 제한 없음.
func (q Query) Limit(n int) Query {
	q.Max = n
	return q
}

// Fingerprint: 쿼리를 식별하는 안정적인 해시. 캐시 키로 사용된다.
func (q Query) Fingerprint() string {
	raw, err := json.Marshal(q)
	if err != nil {
		raw = []byte(fmt.Sprintf("%#v", q))
	}
	sum := sha1.Sum(raw)
	return hex.EncodeToString(sum[:])
}

// apply: 메모리에서 필터, 정렬, 제한을 적용한다.
func (q Query) apply(docs []Document) []Document {
	out := make([]Document, 0, len(docs))
	for _, doc := range docs {
		if q.matches(doc) {
			out = append(out, doc)
		}
	}

	if len(q.Orders) > 0 {
		sort.SliceStable(out, func(i, j int) bool {
			for _, order := range q.Orders {
				a, _ := out[i].Field(order.Field)
				b, _ := out[j].Field(order.Field)
				c, ok := compareValues(a, b)
				if !ok || c == 0 {
					continue
				}
				if order.Direction == Desc {
					return c > 0
				}
				return c < 0
			}
			return false
		})
	}

	if q.Max > 0 && len(out) > q.Max {
		out = out[:q.Max]
	}
	return out
}

func (q Query) matches(doc Document) bool {
	for _, order := range q.Orders {
		if _, ok := doc.Field(order.Field); !ok {
			return false
		}
	}
	for _, f := range q.Filters {
		actual, ok := doc.Field(f.Field)
		if !ok {
			return false
		}
		c, comparable := compareValues(actual, f.Value)
		if !comparable {
			if f.Op == OpNotEqual {
				continue
			}
			return false
		}
		if !f.Op.holds(c) {
			return false
		}
	}
	return true
}

func (op Op) holds(c int) bool {
	switch op {
	case OpEqual:
		return c == 0
	case OpNotEqual:
		return c != 0
	case OpLess:
		return c < 0
	case OpLessEqual:
		return c <= 0
	case OpGreater:
		return c > 0
	case OpGreaterEqual:
		return c >= 0
	default:
		return false
	}
}

// compareValues: 숫자, 시각, 문자열, 불리언을 비교한다.
// 타입이 맞지 않으면 ok=false.
func compareValues(a, b any) (int, bool) {
	if af, ok := toFloat(a); ok {
		bf, ok := toFloat(b)
		if !ok {
			return 0, false
		}
		return cmpOrdered(af, bf), true
	}

	if at, ok := a.(time.Time); ok {
		bt, err := timeutil.Coerce(b)
		if err != nil {
			return 0, false
		}
		return at.Compare(bt), true
	}
	if bt, ok := b.(time.Time); ok {
		at, err := timeutil.Coerce(a)
		if err != nil {
			return 0, false
		}
		return at.Compare(bt), true
	}

	switch av := a.(type) {
	case string:
		bv, ok := b.(string)
		if !ok {
			return 0, false
		}
		return strings.Compare(av, bv), true
	case bool:
		bv, ok := b.(bool)
		if !ok {
			return 0, false
		}
		switch {
		case av == bv:
			return 0, true
		case !av:
			return -1, true
		default:
			return 1, true
		}
	default:
		return 0, false
	}
}

func cmpOrdered(a, b float64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}
