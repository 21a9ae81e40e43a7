// Package cache stores extraction results keyed by video and options.
package cache

import (
	"context"
	"sync"
	"time"
)

// Backend is a byte-oriented key/value store with per-entry expiry.
// A miss is reported as (nil, false, nil).
type Backend interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Invalidate(ctx context.Context, key string) error
	Name() string
}

type entry struct {
	data      []byte
	expiresAt time.Time
}

// MemoryBackend is an in-process Backend. Expired entries are treated as
// absent at read time and removed by the optional eviction loop.
type MemoryBackend struct {
	mu         sync.Mutex
	entries    map[string]entry
	maxEntries int
	now        func() time.Time
}

// NewMemoryBackend creates a MemoryBackend holding at most maxEntries
// entries. Zero means unbounded.
func NewMemoryBackend(maxEntries int) *MemoryBackend {
	return &MemoryBackend{
		entries:    make(map[string]entry),
		maxEntries: maxEntries,
		now:        time.Now,
	}
}

func (m *MemoryBackend) Name() string { return "memory" }

func (m *MemoryBackend) Get(_ context.Context, key string) ([]byte, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.entries[key]
	if !ok {
		return nil, false, nil
	}
	if !m.now().Before(e.expiresAt) {
		delete(m.entries, key)
		return nil, false, nil
	}
	return e.data, true, nil
}

func (m *MemoryBackend) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.entries[key]; !exists {
		m.evictLocked()
	}
	m.entries[key] = entry{
		data:      append([]byte(nil), value...),
		expiresAt: m.now().Add(ttl),
	}
	return nil
}

func (m *MemoryBackend) Invalidate(_ context.Context, key string) error {
	m.mu.Lock()
	delete(m.entries, key)
	m.mu.Unlock()
	return nil
}

// Len returns the number of entries, expired ones included until swept.
func (m *MemoryBackend) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

// SizeBytes returns the total size of stored values.
func (m *MemoryBackend) SizeBytes() int64 {
	m.mu.Lock()
	defer m.mu.Unlock()

	var total int64
	for k, e := range m.entries {
		total += int64(len(k) + len(e.data))
	}
	return total
}

// Sweep removes every expired entry and returns how many were removed.
func (m *MemoryBackend) Sweep() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sweepLocked()
}

// StartEviction sweeps expired entries every interval until ctx is done.
func (m *MemoryBackend) StartEviction(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				m.Sweep()
			}
		}
	}()
}

func (m *MemoryBackend) sweepLocked() int {
	now := m.now()
	removed := 0
	for k, e := range m.entries {
		if !now.Before(e.expiresAt) {
			delete(m.entries, k)
			removed++
		}
	}
	return removed
}

// evictLocked makes room for one more entry: expired entries go first, then
// the entries closest to expiry.
func (m *MemoryBackend) evictLocked() {
	if m.maxEntries <= 0 || len(m.entries) < m.maxEntries {
		return
	}
	m.sweepLocked()
	for len(m.entries) >= m.maxEntries {
		var oldestKey string
		var oldestAt time.Time
		first := true
		for k, e := range m.entries {
			if first || e.expiresAt.Before(oldestAt) {
				oldestKey, oldestAt, first = k, e.expiresAt, false
			}
		}
		delete(m.entries, oldestKey)
	}
}
