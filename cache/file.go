package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/ZaguanLabs/transflow"
)

const fileIndexName = "index.json"

// FileConfig configures the file-per-entry store.
type FileConfig struct {
	Dir        string        // Cache directory, created if missing
	MaxEntries int           // Size bound; 0 means unbounded
	TTL        time.Duration // Default TTL for writes; 0 means no expiry
}

// fileMeta is the per-entry metadata kept in the index.
type fileMeta struct {
	SourceLang     string    `json:"source_lang"`
	TargetLang     string    `json:"target_lang"`
	CreatedAt      time.Time `json:"created_at"`
	ExpiresAt      time.Time `json:"expires_at,omitzero"`
	LastAccessedAt time.Time `json:"last_accessed_at"`
	Size           int64     `json:"size"`
}

// fileEntry is the on-disk representation of one cached translation, one
// file per entry named by the hex-encoded key.
type fileEntry struct {
	Value      string    `json:"value"`
	SourceLang string    `json:"source_lang"`
	TargetLang string    `json:"target_lang"`
	CreatedAt  time.Time `json:"created_at"`
	ExpiresAt  time.Time `json:"expires_at,omitzero"`
}

// File is a durable file-per-entry store. Entry files are named by the
// hex-encoded cache key, so keys never produce path-unsafe characters. An
// in-memory index, persisted to index.json, tracks metadata for eviction
// and pattern clearing; it is rebuilt from the sidecar on open and expired
// entries are swept at that point.
type File struct {
	mu         sync.Mutex
	dir        string
	index      map[string]*fileMeta
	maxEntries int
	ttl        time.Duration
	counters
}

// NewFile opens (or creates) a file store in cfg.Dir.
func NewFile(cfg FileConfig) (*File, error) {
	if cfg.Dir == "" {
		return nil, fmt.Errorf("file cache: directory required")
	}
	if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
		return nil, &transflow.CacheError{Backend: "file", Op: "open", Cause: err}
	}

	f := &File{
		dir:        cfg.Dir,
		index:      make(map[string]*fileMeta),
		maxEntries: cfg.MaxEntries,
		ttl:        cfg.TTL,
	}
	if err := f.loadIndex(); err != nil {
		return nil, err
	}
	f.sweepLocked(time.Now())
	return f, nil
}

// Get reads a live entry from disk.
func (f *File) Get(_ context.Context, key transflow.Key) (*transflow.CacheEntry, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	hexKey := key.String()
	meta, ok := f.index[hexKey]
	if !ok {
		f.miss()
		return nil, false, nil
	}

	now := time.Now()
	if !meta.ExpiresAt.IsZero() && now.After(meta.ExpiresAt) {
		f.removeLocked(hexKey)
		f.saveIndexLocked()
		f.miss()
		return nil, false, nil
	}

	data, err := os.ReadFile(f.entryPath(hexKey))
	if os.IsNotExist(err) {
		// Index drifted from disk; heal and report a miss.
		delete(f.index, hexKey)
		f.saveIndexLocked()
		f.miss()
		return nil, false, nil
	}
	if err != nil {
		return nil, false, &transflow.CacheError{Backend: "file", Op: "get", Cause: err}
	}

	var ent fileEntry
	if err := json.Unmarshal(data, &ent); err != nil {
		f.removeLocked(hexKey)
		f.saveIndexLocked()
		return nil, false, &transflow.CacheError{Backend: "file", Op: "get", Cause: err}
	}

	// Access time is tracked in memory and persisted with the next write,
	// keeping reads to a single file open.
	meta.LastAccessedAt = now
	f.hit()

	return &transflow.CacheEntry{
		Key:            key,
		Value:          ent.Value,
		SourceLang:     ent.SourceLang,
		TargetLang:     ent.TargetLang,
		CreatedAt:      ent.CreatedAt,
		ExpiresAt:      ent.ExpiresAt,
		LastAccessedAt: now,
		SizeBytes:      meta.Size,
	}, true, nil
}

// Set writes the entry file and updates the index before returning.
func (f *File) Set(_ context.Context, key transflow.Key, entry transflow.CacheEntry, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = f.ttl
	}

	now := time.Now()
	ent := fileEntry{
		Value:      entry.Value,
		SourceLang: entry.SourceLang,
		TargetLang: entry.TargetLang,
		CreatedAt:  now,
	}
	if ttl > 0 {
		ent.ExpiresAt = now.Add(ttl)
	}

	data, err := json.Marshal(ent)
	if err != nil {
		return &transflow.CacheError{Backend: "file", Op: "set", Cause: err}
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	hexKey := key.String()
	if _, exists := f.index[hexKey]; !exists {
		for f.maxEntries > 0 && len(f.index) >= f.maxEntries {
			f.removeLocked(f.evictionCandidateLocked())
		}
	}

	if err := os.WriteFile(f.entryPath(hexKey), data, 0o644); err != nil {
		return &transflow.CacheError{Backend: "file", Op: "set", Cause: err}
	}

	f.index[hexKey] = &fileMeta{
		SourceLang:     ent.SourceLang,
		TargetLang:     ent.TargetLang,
		CreatedAt:      now,
		ExpiresAt:      ent.ExpiresAt,
		LastAccessedAt: now,
		Size:           int64(len(ent.Value)),
	}
	f.saveIndexLocked()
	return nil
}

// EvictExpired sweeps expired entries off disk.
func (f *File) EvictExpired(_ context.Context) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	removed := f.sweepLocked(time.Now())
	return removed, nil
}

// Clear removes entries matching the pattern, everything when nil.
func (f *File) Clear(_ context.Context, p *Pattern) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	removed := 0
	for hexKey, meta := range f.index {
		if p.Match(meta.SourceLang, meta.TargetLang) {
			f.removeLocked(hexKey)
			removed++
		}
	}
	if removed > 0 {
		f.saveIndexLocked()
	}
	return removed, nil
}

// Stats returns a snapshot of the store's counters.
func (f *File) Stats(_ context.Context) (Stats, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var size int64
	for _, meta := range f.index {
		size += meta.Size
	}

	hits, misses, rate := f.counters.snapshot()
	return Stats{
		Entries:   len(f.index),
		Hits:      hits,
		Misses:    misses,
		HitRate:   rate,
		SizeBytes: size,
	}, nil
}

// Close flushes the index.
func (f *File) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.saveIndexLocked()
}

func (f *File) entryPath(hexKey string) string {
	return filepath.Join(f.dir, hexKey+".json")
}

func (f *File) loadIndex() error {
	data, err := os.ReadFile(filepath.Join(f.dir, fileIndexName))
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return &transflow.CacheError{Backend: "file", Op: "open", Cause: err}
	}
	if err := json.Unmarshal(data, &f.index); err != nil {
		// Corrupt index: start empty rather than failing open; entry files
		// without index records are orphaned until the directory is cleared.
		f.index = make(map[string]*fileMeta)
	}
	return nil
}

func (f *File) saveIndexLocked() error {
	data, err := json.Marshal(f.index)
	if err != nil {
		return &transflow.CacheError{Backend: "file", Op: "index", Cause: err}
	}
	if err := os.WriteFile(filepath.Join(f.dir, fileIndexName), data, 0o644); err != nil {
		return &transflow.CacheError{Backend: "file", Op: "index", Cause: err}
	}
	return nil
}

// sweepLocked removes expired entries and persists the index when anything
// was removed.
func (f *File) sweepLocked(now time.Time) int {
	removed := 0
	for hexKey, meta := range f.index {
		if !meta.ExpiresAt.IsZero() && now.After(meta.ExpiresAt) {
			f.removeLocked(hexKey)
			removed++
		}
	}
	if removed > 0 {
		f.saveIndexLocked()
	}
	return removed
}

// evictionCandidateLocked returns the least-recently-accessed key, ties
// broken by earliest creation.
func (f *File) evictionCandidateLocked() string {
	var oldest string
	var oldestMeta *fileMeta
	for hexKey, meta := range f.index {
		if oldestMeta == nil ||
			meta.LastAccessedAt.Before(oldestMeta.LastAccessedAt) ||
			(meta.LastAccessedAt.Equal(oldestMeta.LastAccessedAt) && meta.CreatedAt.Before(oldestMeta.CreatedAt)) {
			oldest, oldestMeta = hexKey, meta
		}
	}
	return oldest
}

func (f *File) removeLocked(hexKey string) {
	os.Remove(f.entryPath(hexKey))
	delete(f.index, hexKey)
}

var _ Store = (*File)(nil)
