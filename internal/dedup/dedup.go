// Package dedup answers "has this event_id been accepted already".
//
// Every Guard records and checks in one atomic step: two concurrent calls
// with the same id never both report a first sighting.
package dedup

import (
	"context"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// Guard is the idempotency check used by the ingestion pipeline.
type Guard interface {
	// CheckAndRecord returns true when eventID was seen before. Otherwise it
	// records eventID and returns false.
	CheckAndRecord(ctx context.Context, eventID string) (bool, error)
}

// Memory is an unbounded set of ids kept for the life of the process.
//
// It never forgets an id, so memory grows with traffic and a restart loses
// every record. Prefer LRU unless the id space is known to be small.
type Memory struct {
	mu   sync.Mutex
	seen map[string]struct{}
}

func NewMemory() *Memory {
	return &Memory{seen: make(map[string]struct{})}
}

func (m *Memory) CheckAndRecord(_ context.Context, eventID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.seen[eventID]; ok {
		return true, nil
	}
	m.seen[eventID] = struct{}{}
	return false, nil
}

// Len returns the number of recorded ids.
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.seen)
}

// LRU remembers at most capacity ids for at most ttl each.
// When full, the least recently recorded id is evicted first.
type LRU struct {
	mu    sync.Mutex
	cache *expirable.LRU[string, struct{}]
}

// NewLRU builds a bounded guard. A ttl of zero keeps ids until evicted by size.
func NewLRU(capacity int, ttl time.Duration) *LRU {
	return &LRU{cache: expirable.NewLRU[string, struct{}](capacity, nil, ttl)}
}

func (l *LRU) CheckAndRecord(_ context.Context, eventID string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	// Peek, not Get: a resubmission must not extend the id's lifetime.
	if _, ok := l.cache.Peek(eventID); ok {
		return true, nil
	}
	l.cache.Add(eventID, struct{}{})
	return false, nil
}

// Len returns the number of ids currently remembered.
func (l *LRU) Len() int {
	return l.cache.Len()
}
