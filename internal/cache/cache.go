package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/storyboard-lab/video-extraction-go/internal/models"
	"github.com/storyboard-lab/video-extraction-go/pkg/logger"
)

// KeyPrefix namespaces every extraction result key.
const KeyPrefix = "video_metadata:"

// FetchFunc produces a fresh result on a cache miss.
type FetchFunc func(ctx context.Context) (*models.ExtractionResult, error)

// Stats is a snapshot of cache counters.
//
//nolint:govet // fieldalignment: Accept minor memory overhead for better readability
type Stats struct {
	Enabled       bool    `json:"enabled"`
	Backend       string  `json:"backend"`
	Hits          int64   `json:"hits"`
	Misses        int64   `json:"misses"`
	HitRate       float64 `json:"hit_rate"`
	Entries       int     `json:"total_entries"`
	MemoryUsageMB float64 `json:"memory_usage_mb"`
}

// Cache maps (video, options) to extraction results.
type Cache struct {
	backend    Backend
	enabled    bool
	defaultTTL time.Duration

	hits   atomic.Int64
	misses atomic.Int64
	locks  keyedMutex
}

// New creates a Cache on top of backend. When enabled is false every lookup
// misses and every write is dropped.
func New(backend Backend, enabled bool, defaultTTL time.Duration) *Cache {
	if defaultTTL <= 0 {
		defaultTTL = time.Hour
	}
	return &Cache{
		backend:    backend,
		enabled:    enabled && backend != nil,
		defaultTTL: defaultTTL,
		locks:      keyedMutex{locks: make(map[string]*keyLock)},
	}
}

// Enabled reports whether the cache is active.
func (c *Cache) Enabled() bool { return c.enabled }

// Backend returns the underlying store.
func (c *Cache) Backend() Backend { return c.backend }

// Key derives the deterministic storage key for ref and opts. The TTL only
// applies at write time and is not part of the key.
func Key(ref models.VideoReference, opts models.ExtractionOptions) string {
	parts := []string{
		string(ref.Platform),
		ref.CanonicalID,
		"thumbnail_analysis=" + strconv.FormatBool(opts.IncludeThumbnailAnalysis),
		"transcript=" + strconv.FormatBool(opts.IncludeTranscript),
	}
	sum := sha256.Sum256([]byte(strings.Join(parts, "|")))
	return KeyPrefix + hex.EncodeToString(sum[:])
}

// TTL returns the effective expiry for opts.
func (c *Cache) TTL(opts models.ExtractionOptions) time.Duration {
	if opts.CacheTTL > 0 {
		return opts.CacheTTL
	}
	return c.defaultTTL
}

// Get returns a cached result marked as a cache hit. Backend failures and
// undecodable entries count as misses.
func (c *Cache) Get(ctx context.Context, ref models.VideoReference, opts models.ExtractionOptions) (*models.ExtractionResult, bool) {
	if !c.enabled {
		return nil, false
	}
	key := Key(ref, opts)

	data, ok, err := c.backend.Get(ctx, key)
	if err != nil {
		logger.Log.Warn("Cache get failed", zap.String("key", key), zap.Error(err))
		c.misses.Add(1)
		return nil, false
	}
	if !ok {
		c.misses.Add(1)
		return nil, false
	}

	var result models.ExtractionResult
	if err := json.Unmarshal(data, &result); err != nil {
		logger.Log.Warn("Discarding undecodable cache entry", zap.String("key", key), zap.Error(err))
		_ = c.backend.Invalidate(ctx, key)
		c.misses.Add(1)
		return nil, false
	}

	c.hits.Add(1)
	result.CacheHit = true
	return &result, true
}

// Set stores result for the effective TTL of opts.
func (c *Cache) Set(ctx context.Context, ref models.VideoReference, opts models.ExtractionOptions, result *models.ExtractionResult) {
	if !c.enabled || result == nil {
		return
	}
	key := Key(ref, opts)

	stored := result.Clone()
	stored.CacheHit = false
	data, err := json.Marshal(stored)
	if err != nil {
		logger.Log.Error("Failed to encode cache entry", zap.String("key", key), zap.Error(err))
		return
	}

	if err := c.backend.Set(ctx, key, data, c.TTL(opts)); err != nil {
		logger.Log.Warn("Cache set failed", zap.String("key", key), zap.Error(err))
	}
}

// Invalidate removes the entry for ref and opts.
func (c *Cache) Invalidate(ctx context.Context, ref models.VideoReference, opts models.ExtractionOptions) error {
	if !c.enabled {
		return nil
	}
	return c.backend.Invalidate(ctx, Key(ref, opts))
}

// InvalidateAll removes the entries of every enrichment combination for ref.
func (c *Cache) InvalidateAll(ctx context.Context, ref models.VideoReference) (int, error) {
	if !c.enabled {
		return 0, nil
	}
	removed := 0
	for _, thumb := range []bool{false, true} {
		for _, transcript := range []bool{false, true} {
			opts := models.ExtractionOptions{IncludeThumbnailAnalysis: thumb, IncludeTranscript: transcript}
			if err := c.Invalidate(ctx, ref, opts); err != nil {
				return removed, err
			}
			removed++
		}
	}
	return removed, nil
}

// GetOrFetch returns the cached result or calls fetch and stores its result,
// diagnostics included.
// Concurrent calls for the same key are serialized so only one fetch runs and
// the others observe its cached result.
func (c *Cache) GetOrFetch(ctx context.Context, ref models.VideoReference, opts models.ExtractionOptions, fetch FetchFunc) (*models.ExtractionResult, error) {
	if !c.enabled {
		return fetch(ctx)
	}

	if result, ok := c.Get(ctx, ref, opts); ok {
		return result, nil
	}

	unlock, err := c.locks.lock(ctx, Key(ref, opts))
	if err != nil {
		return nil, err
	}
	defer unlock()

	if result, ok := c.peek(ctx, ref, opts); ok {
		return result, nil
	}

	result, err := fetch(ctx)
	if err != nil {
		return nil, err
	}
	c.Set(ctx, ref, opts, result)
	return result, nil
}

// peek re-reads after acquiring the key lock. A miss here has already been
// counted by the first lookup.
func (c *Cache) peek(ctx context.Context, ref models.VideoReference, opts models.ExtractionOptions) (*models.ExtractionResult, bool) {
	data, ok, err := c.backend.Get(ctx, Key(ref, opts))
	if err != nil || !ok {
		return nil, false
	}
	var result models.ExtractionResult
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, false
	}
	c.misses.Add(-1)
	c.hits.Add(1)
	result.CacheHit = true
	return &result, true
}

// Stats returns current counters.
func (c *Cache) Stats() Stats {
	hits, misses := c.hits.Load(), c.misses.Load()
	s := Stats{
		Enabled: c.enabled,
		Hits:    hits,
		Misses:  misses,
	}
	if c.backend != nil {
		s.Backend = c.backend.Name()
	}
	if total := hits + misses; total > 0 {
		s.HitRate = float64(hits) / float64(total)
	}

	mem := localBackend(c.backend)
	if mem != nil {
		s.Entries = mem.Len()
		s.MemoryUsageMB = float64(mem.SizeBytes()) / (1024 * 1024)
	}
	return s
}

func localBackend(b Backend) *MemoryBackend {
	switch v := b.(type) {
	case *MemoryBackend:
		return v
	case *FallbackBackend:
		return localBackend(v.Local())
	}
	return nil
}

type keyLock struct {
	ch   chan struct{}
	refs int
}

// keyedMutex hands out one lock per key and forgets keys nobody holds.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*keyLock
}

func (k *keyedMutex) lock(ctx context.Context, key string) (func(), error) {
	k.mu.Lock()
	l, ok := k.locks[key]
	if !ok {
		l = &keyLock{ch: make(chan struct{}, 1)}
		k.locks[key] = l
	}
	l.refs++
	k.mu.Unlock()

	select {
	case l.ch <- struct{}{}:
	case <-ctx.Done():
		k.release(key, l)
		return nil, ctx.Err()
	}

	return func() {
		<-l.ch
		k.release(key, l)
	}, nil
}

func (k *keyedMutex) release(key string, l *keyLock) {
	k.mu.Lock()
	l.refs--
	if l.refs == 0 {
		delete(k.locks, key)
	}
	k.mu.Unlock()
}
