// Package cache provides the translation cache backends: an in-memory LRU
// store, a file-per-entry store, an embedded SQLite store and a Redis
// store. All backends implement the same Store contract and are safe for
// concurrent use; writes are write-through.
package cache

import (
	"context"
	"sync/atomic"

	"github.com/ZaguanLabs/transflow"
)

// Pattern filters entries by language pair. An empty field matches any
// value; a nil *Pattern matches everything.
type Pattern struct {
	SourceLang string
	TargetLang string
}

// Match reports whether an entry with the given languages is selected.
func (p *Pattern) Match(sourceLang, targetLang string) bool {
	if p == nil {
		return true
	}
	if p.SourceLang != "" && transflow.NormalizeLang(p.SourceLang) != sourceLang {
		return false
	}
	if p.TargetLang != "" && transflow.NormalizeLang(p.TargetLang) != targetLang {
		return false
	}
	return true
}

// Stats is a snapshot of a store's counters.
type Stats struct {
	Entries   int     // Live entries currently stored
	Hits      uint64  // Get calls that returned a live entry
	Misses    uint64  // Get calls that found nothing (or an expired entry)
	HitRate   float64 // Hits / (Hits + Misses)
	SizeBytes int64   // Total size of stored values
}

// Store is the full cache backend contract. It extends the read/write
// surface the Translator uses with eviction, clearing and stats.
type Store interface {
	transflow.Cache

	// EvictExpired removes entries whose expiry has passed and returns the
	// number removed. Backends with native expiry may return 0.
	EvictExpired(ctx context.Context) (int, error)

	// Clear removes entries matching the pattern (all entries when nil)
	// and returns the number removed.
	Clear(ctx context.Context, p *Pattern) (int, error)

	// Stats returns a snapshot of the store's counters.
	Stats(ctx context.Context) (Stats, error)

	// Close releases backend resources.
	Close() error
}

// counters tracks hits and misses without holding a store's lock.
type counters struct {
	hits   atomic.Uint64
	misses atomic.Uint64
}

func (c *counters) hit()  { c.hits.Add(1) }
func (c *counters) miss() { c.misses.Add(1) }

func (c *counters) snapshot() (hits, misses uint64, rate float64) {
	hits = c.hits.Load()
	misses = c.misses.Load()
	if total := hits + misses; total > 0 {
		rate = float64(hits) / float64(total)
	}
	return hits, misses, rate
}
