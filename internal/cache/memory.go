package cache

import (
	"sync"
	"time"
)

type memEntry struct {
	value   []byte
	freshAt time.Time
	staleAt time.Time
}

// MemoryBackend keeps entries in a mutex-guarded map. Entries vanish with
// the process; it doubles as the degraded-mode substitute when the sqlite
// backend cannot be opened.
type MemoryBackend struct {
	mu sync.Mutex
	m  map[string]memEntry

	now func() time.Time
}

func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{
		m:   make(map[string]memEntry),
		now: time.Now,
	}
}

func (b *MemoryBackend) Get(key string) ([]byte, bool, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	e, ok := b.m[key]
	if !ok {
		return nil, false, false
	}
	now := b.now()
	if !now.Before(e.staleAt) {
		delete(b.m, key)
		return nil, false, false
	}
	return e.value, now.Before(e.freshAt), true
}

func (b *MemoryBackend) Set(key string, value []byte, freshFor, staleExtra time.Duration) {
	freshAt := b.now().Add(freshFor)

	b.mu.Lock()
	b.m[key] = memEntry{
		value:   value,
		freshAt: freshAt,
		staleAt: freshAt.Add(staleExtra),
	}
	b.mu.Unlock()
}

// Len is used by tests and the status endpoint.
func (b *MemoryBackend) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.m)
}
