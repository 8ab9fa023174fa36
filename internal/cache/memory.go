package cache

import (
	"container/list"
	"context"
	"sync"
	"time"
)

const (
	// DefaultMaxEntries bounds a Memory backend built without WithMaxEntries.
	DefaultMaxEntries = 10000
	// sweepInterval is the minimum time between full scans for expired entries.
	sweepInterval = time.Minute
)

type entry struct {
	key     string
	val     []byte
	expires time.Time
}

func (e *entry) expired(now time.Time) bool {
	return !e.expires.IsZero() && !now.Before(e.expires)
}

type MemoryOption func(*Memory)

// WithMaxEntries caps the number of entries; n <= 0 keeps the default.
func WithMaxEntries(n int) MemoryOption {
	return func(m *Memory) {
		if n > 0 {
			m.max = n
		}
	}
}

// Memory is an in-process Backend holding at most a fixed number of entries.
// The least recently used entry is evicted first, and expired entries are
// swept out on writes.
type Memory struct {
	mu        sync.Mutex
	max       int
	order     *list.List // front is most recently used
	entries   map[string]*list.Element
	lastSweep time.Time
	now       func() time.Time
}

func NewMemory(opts ...MemoryOption) *Memory {
	m := &Memory{
		max:     DefaultMaxEntries,
		order:   list.New(),
		entries: make(map[string]*list.Element),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *Memory) Get(ctx context.Context, key string) ([]byte, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	el, ok := m.entries[key]
	if !ok {
		return nil, false, nil
	}
	e := el.Value.(*entry)
	if e.expired(m.now()) {
		m.remove(el)
		return nil, false, nil
	}
	m.order.MoveToFront(el)
	return e.val, true, nil
}

// Set stores val; a ttl of zero or less keeps it until it is evicted.
func (m *Memory) Set(ctx context.Context, key string, val []byte, ttl time.Duration) error {
	now := m.now()
	e := &entry{key: key, val: append([]byte(nil), val...)}
	if ttl > 0 {
		e.expires = now.Add(ttl)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if el, ok := m.entries[key]; ok {
		el.Value = e
		m.order.MoveToFront(el)
	} else {
		m.entries[key] = m.order.PushFront(e)
	}

	if now.Sub(m.lastSweep) >= sweepInterval {
		m.sweep(now)
	}
	for m.order.Len() > m.max {
		m.remove(m.order.Back())
	}
	return nil
}

func (m *Memory) sweep(now time.Time) {
	m.lastSweep = now
	for el := m.order.Back(); el != nil; {
		prev := el.Prev()
		if el.Value.(*entry).expired(now) {
			m.remove(el)
		}
		el = prev
	}
}

func (m *Memory) remove(el *list.Element) {
	m.order.Remove(el)
	delete(m.entries, el.Value.(*entry).key)
}

func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.order.Len()
}
