package cache

import (
	"container/list"
	"context"
	"sync"
	"time"

	"github.com/ZaguanLabs/transflow"
)

// MemoryConfig configures the in-memory store.
type MemoryConfig struct {
	MaxEntries int           // Size bound; 0 means unbounded
	TTL        time.Duration // Default TTL for writes; 0 means no expiry
}

// Memory is a thread-safe in-memory LRU store. When an insertion would
// exceed MaxEntries, the least-recently-accessed entry is evicted first,
// ties broken by earliest creation time. Expired entries are removed lazily
// on Get and actively by EvictExpired.
type Memory struct {
	mu         sync.Mutex
	entries    map[transflow.Key]*list.Element
	lru        *list.List // front = most recently accessed
	maxEntries int
	ttl        time.Duration
	counters
}

// NewMemory creates an in-memory store.
func NewMemory(cfg MemoryConfig) *Memory {
	return &Memory{
		entries:    make(map[transflow.Key]*list.Element),
		lru:        list.New(),
		maxEntries: cfg.MaxEntries,
		ttl:        cfg.TTL,
	}
}

// Get retrieves a live entry and marks it most recently used.
func (m *Memory) Get(_ context.Context, key transflow.Key) (*transflow.CacheEntry, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	el, ok := m.entries[key]
	if !ok {
		m.miss()
		return nil, false, nil
	}

	ent := el.Value.(*transflow.CacheEntry)
	if ent.Expired(time.Now()) {
		m.removeLocked(el)
		m.miss()
		return nil, false, nil
	}

	ent.LastAccessedAt = time.Now()
	m.lru.MoveToFront(el)
	m.hit()

	cp := *ent
	return &cp, true, nil
}

// Set stores an entry, evicting LRU entries if the bound would be exceeded.
func (m *Memory) Set(_ context.Context, key transflow.Key, entry transflow.CacheEntry, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = m.ttl
	}

	now := time.Now()
	entry.Key = key
	entry.CreatedAt = now
	entry.LastAccessedAt = now
	entry.SizeBytes = int64(len(entry.Value))
	if ttl > 0 {
		entry.ExpiresAt = now.Add(ttl)
	} else {
		entry.ExpiresAt = time.Time{}
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if el, ok := m.entries[key]; ok {
		m.removeLocked(el)
	}

	for m.maxEntries > 0 && m.lru.Len() >= m.maxEntries {
		m.removeLocked(m.evictionCandidateLocked())
	}

	m.entries[key] = m.lru.PushFront(&entry)
	return nil
}

// evictionCandidateLocked picks the least-recently-accessed element,
// breaking access-time ties by earliest creation.
func (m *Memory) evictionCandidateLocked() *list.Element {
	candidate := m.lru.Back()
	ce := candidate.Value.(*transflow.CacheEntry)
	for el := candidate.Prev(); el != nil; el = el.Prev() {
		ent := el.Value.(*transflow.CacheEntry)
		if ent.LastAccessedAt.Equal(ce.LastAccessedAt) && ent.CreatedAt.Before(ce.CreatedAt) {
			candidate, ce = el, ent
			continue
		}
		if ent.LastAccessedAt.After(ce.LastAccessedAt) {
			break
		}
	}
	return candidate
}

// EvictExpired sweeps out expired entries.
func (m *Memory) EvictExpired(_ context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now()
	removed := 0
	var next *list.Element
	for el := m.lru.Front(); el != nil; el = next {
		next = el.Next()
		if el.Value.(*transflow.CacheEntry).Expired(now) {
			m.removeLocked(el)
			removed++
		}
	}
	return removed, nil
}

// Clear removes entries matching the pattern, everything when nil.
func (m *Memory) Clear(_ context.Context, p *Pattern) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	removed := 0
	var next *list.Element
	for el := m.lru.Front(); el != nil; el = next {
		next = el.Next()
		ent := el.Value.(*transflow.CacheEntry)
		if p.Match(ent.SourceLang, ent.TargetLang) {
			m.removeLocked(el)
			removed++
		}
	}
	return removed, nil
}

// Stats returns a snapshot of the store's counters.
func (m *Memory) Stats(_ context.Context) (Stats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var size int64
	for el := m.lru.Front(); el != nil; el = el.Next() {
		size += el.Value.(*transflow.CacheEntry).SizeBytes
	}

	hits, misses, rate := m.counters.snapshot()
	return Stats{
		Entries:   m.lru.Len(),
		Hits:      hits,
		Misses:    misses,
		HitRate:   rate,
		SizeBytes: size,
	}, nil
}

// Entries returns copies of all live entries, used by the exporter.
func (m *Memory) Entries(_ context.Context) ([]transflow.CacheEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now()
	out := make([]transflow.CacheEntry, 0, m.lru.Len())
	for el := m.lru.Front(); el != nil; el = el.Next() {
		ent := el.Value.(*transflow.CacheEntry)
		if ent.Expired(now) {
			continue
		}
		out = append(out, *ent)
	}
	return out, nil
}

// Close implements Store; the memory backend holds no resources.
func (m *Memory) Close() error {
	return nil
}

func (m *Memory) removeLocked(el *list.Element) {
	delete(m.entries, el.Value.(*transflow.CacheEntry).Key)
	m.lru.Remove(el)
}

var _ Store = (*Memory)(nil)
