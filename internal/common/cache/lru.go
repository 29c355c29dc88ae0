// Package cache 는 프로세스 내 메모리 캐시 자료구조를 제공한다.
package cache

import (
	"container/list"
	"sync"
	"time"
)

// Entry: 캐시에 저장된 값과 저장 시각.
type Entry[V any] struct {
	Value    V
	StoredAt time.Time
}

// LRU: 저장 시각을 함께 보관하는 크기 제한 LRU 캐시다.
// 만료 판단은 호출자가 StoredAt 으로 직접 한다.
type LRU[V any] struct {
	mu         sync.Mutex
	maxEntries int
	items      map[string]*list.Element
	order      *list.List
	onEvict    func(key string)
}

type lruNode[V any] struct {
	key   string
	entry Entry[V]
}

// NewLRU: maxEntries 가 0 이하이면 크기 제한 없이 동작한다.
func NewLRU[V any](maxEntries int) *LRU[V] {
	return &LRU[V]{
		maxEntries: maxEntries,
		items:      make(map[string]*list.Element),
		order:      list.New(),
	}
}

// OnEvict: 용량 초과로 항목이 밀려날 때 호출할 콜백을 지정한다.
func (c *LRU[V]) OnEvict(fn func(key string)) {
	c.mu.Lock()
	c.onEvict = fn
	c.mu.Unlock()
}

// Get: 키의 항목을 반환하고 최근 사용으로 표시한다.
func (c *LRU[V]) Get(key string) (Entry[V], bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	elem, ok := c.items[key]
	if !ok {
		var zero Entry[V]
		return zero, false
	}
	c.order.MoveToFront(elem)
	return elem.Value.(*lruNode[V]).entry, true
}

// Set: 항목을 저장한다. 기존 항목은 덮어쓴다.
func (c *LRU[V]) Set(key string, value V, storedAt time.Time) {
	var evicted []string

	c.mu.Lock()
	if elem, ok := c.items[key]; ok {
		elem.Value.(*lruNode[V]).entry = Entry[V]{Value: value, StoredAt: storedAt}
		c.order.MoveToFront(elem)
		c.mu.Unlock()
		return
	}

	c.items[key] = c.order.PushFront(&lruNode[V]{
		key:   key,
		entry: Entry[V]{Value: value, StoredAt: storedAt},
	})
	for c.maxEntries > 0 && c.order.Len() > c.maxEntries {
		oldest := c.order.Back()
		if oldest == nil {
			break
		}
		node := oldest.Value.(*lruNode[V])
		c.order.Remove(oldest)
		delete(c.items, node.key)
		evicted = append(evicted, node.key)
	}
	onEvict := c.onEvict
	c.mu.Unlock()

	if onEvict != nil {
		for _, k := range evicted {
			onEvict(k)
		}
	}
}

// Update: 존재하는 항목의 값을 fn 으로 교체한다. 저장 시각은 유지한다.
// 항목이 없으면 false 를 반환한다.
func (c *LRU[V]) Update(key string, fn func(V) V) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	elem, ok := c.items[key]
	if !ok {
		return false
	}
	node := elem.Value.(*lruNode[V])
	node.entry.Value = fn(node.entry.Value)
	return true
}

// Delete: 키를 제거한다.
func (c *LRU[V]) Delete(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	elem, ok := c.items[key]
	if !ok {
		return false
	}
	c.order.Remove(elem)
	delete(c.items, key)
	return true
}

// Purge: 전체 항목을 비운다.
func (c *LRU[V]) Purge() {
	c.mu.Lock()
	c.items = make(map[string]*list.Element)
	c.order.Init()
	c.mu.Unlock()
}

// Keys: 최근 사용 순서(최신 먼저)로 키 목록을 반환한다.
func (c *LRU[V]) Keys() []string {
	c.mu.Lock()
	defer c.mu.Unlock()

	keys := make([]string, 0, c.order.Len())
	for elem := c.order.Front(); elem != nil; elem = elem.Next() {
		keys = append(keys, elem.Value.(*lruNode[V]).key)
	}
	return keys
}

// Len: 현재 항목 수.
func (c *LRU[V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}
