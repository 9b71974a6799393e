package cache

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/ZaguanLabs/transflow"
)

// SQLiteConfig configures the embedded SQLite store.
type SQLiteConfig struct {
	Path       string        // Database file path, parent created if missing
	MaxEntries int           // Size bound; 0 means unbounded
	TTL        time.Duration // Default TTL for writes; 0 means no expiry
}

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS translations (
	key              TEXT PRIMARY KEY,
	value            TEXT NOT NULL,
	source_lang      TEXT NOT NULL,
	target_lang      TEXT NOT NULL,
	created_at       INTEGER NOT NULL,
	expires_at       INTEGER NOT NULL,
	last_accessed_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_lang_pair ON translations(source_lang, target_lang);
CREATE INDEX IF NOT EXISTS idx_expires ON translations(expires_at);
`

// SQLite is a durable embedded store. The language-pair index supports
// pattern-based clearing without scanning every row. Timestamps are stored
// as Unix nanoseconds; expires_at = 0 means no expiry.
type SQLite struct {
	db         *sql.DB
	maxEntries int
	ttl        time.Duration
	counters
}

// NewSQLite opens (or creates) the database at cfg.Path.
func NewSQLite(cfg SQLiteConfig) (*SQLite, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("sqlite cache: path required")
	}
	if dir := filepath.Dir(cfg.Path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, &transflow.CacheError{Backend: "sqlite", Op: "open", Cause: err}
		}
	}

	db, err := sql.Open("sqlite3", cfg.Path)
	if err != nil {
		return nil, &transflow.CacheError{Backend: "sqlite", Op: "open", Cause: err}
	}
	// SQLite serializes writers; a single connection avoids SQLITE_BUSY
	// under concurrent write-through sets.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, &transflow.CacheError{Backend: "sqlite", Op: "open", Cause: err}
	}

	s := &SQLite{db: db, maxEntries: cfg.MaxEntries, ttl: cfg.TTL}
	if _, err := s.EvictExpired(context.Background()); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Get retrieves a live entry and bumps its access time.
func (s *SQLite) Get(ctx context.Context, key transflow.Key) (*transflow.CacheEntry, bool, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT value, source_lang, target_lang, created_at, expires_at, last_accessed_at
		 FROM translations WHERE key = ?`, key.String())

	var value, sourceLang, targetLang string
	var createdAt, expiresAt, lastAccessedAt int64
	err := row.Scan(&value, &sourceLang, &targetLang, &createdAt, &expiresAt, &lastAccessedAt)
	if err == sql.ErrNoRows {
		s.miss()
		return nil, false, nil
	}
	if err != nil {
		return nil, false, &transflow.CacheError{Backend: "sqlite", Op: "get", Cause: err}
	}

	now := time.Now()
	if expiresAt > 0 && now.UnixNano() > expiresAt {
		if _, err := s.db.ExecContext(ctx, `DELETE FROM translations WHERE key = ?`, key.String()); err != nil {
			return nil, false, &transflow.CacheError{Backend: "sqlite", Op: "get", Cause: err}
		}
		s.miss()
		return nil, false, nil
	}

	if _, err := s.db.ExecContext(ctx,
		`UPDATE translations SET last_accessed_at = ? WHERE key = ?`,
		now.UnixNano(), key.String()); err != nil {
		return nil, false, &transflow.CacheError{Backend: "sqlite", Op: "get", Cause: err}
	}
	s.hit()

	ent := &transflow.CacheEntry{
		Key:            key,
		Value:          value,
		SourceLang:     sourceLang,
		TargetLang:     targetLang,
		CreatedAt:      time.Unix(0, createdAt),
		LastAccessedAt: now,
		SizeBytes:      int64(len(value)),
	}
	if expiresAt > 0 {
		ent.ExpiresAt = time.Unix(0, expiresAt)
	}
	return ent, true, nil
}

// Set upserts an entry and enforces the size bound.
func (s *SQLite) Set(ctx context.Context, key transflow.Key, entry transflow.CacheEntry, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = s.ttl
	}

	now := time.Now()
	var expiresAt int64
	if ttl > 0 {
		expiresAt = now.Add(ttl).UnixNano()
	}

	if s.maxEntries > 0 {
		if err := s.evictOverflow(ctx, key); err != nil {
			return err
		}
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO translations
		 (key, value, source_lang, target_lang, created_at, expires_at, last_accessed_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		key.String(), entry.Value, entry.SourceLang, entry.TargetLang,
		now.UnixNano(), expiresAt, now.UnixNano())
	if err != nil {
		return &transflow.CacheError{Backend: "sqlite", Op: "set", Cause: err}
	}
	return nil
}

// evictOverflow removes least-recently-accessed rows until a new key fits.
func (s *SQLite) evictOverflow(ctx context.Context, key transflow.Key) error {
	var exists int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM translations WHERE key = ?`, key.String()).Scan(&exists)
	if err != nil {
		return &transflow.CacheError{Backend: "sqlite", Op: "set", Cause: err}
	}
	if exists > 0 {
		return nil
	}

	var count int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM translations`).Scan(&count); err != nil {
		return &transflow.CacheError{Backend: "sqlite", Op: "set", Cause: err}
	}
	if count < s.maxEntries {
		return nil
	}

	_, err = s.db.ExecContext(ctx,
		`DELETE FROM translations WHERE key IN (
			SELECT key FROM translations
			ORDER BY last_accessed_at ASC, created_at ASC
			LIMIT ?
		)`, count-s.maxEntries+1)
	if err != nil {
		return &transflow.CacheError{Backend: "sqlite", Op: "set", Cause: err}
	}
	return nil
}

// EvictExpired deletes rows whose expiry has passed.
func (s *SQLite) EvictExpired(ctx context.Context) (int, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM translations WHERE expires_at > 0 AND expires_at < ?`,
		time.Now().UnixNano())
	if err != nil {
		return 0, &transflow.CacheError{Backend: "sqlite", Op: "evict", Cause: err}
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}

// Clear removes entries matching the pattern via the language-pair index,
// everything when nil.
func (s *SQLite) Clear(ctx context.Context, p *Pattern) (int, error) {
	query := `DELETE FROM translations`
	var args []any
	var conds []string

	if p != nil {
		if p.SourceLang != "" {
			conds = append(conds, "source_lang = ?")
			args = append(args, transflow.NormalizeLang(p.SourceLang))
		}
		if p.TargetLang != "" {
			conds = append(conds, "target_lang = ?")
			args = append(args, transflow.NormalizeLang(p.TargetLang))
		}
	}
	for i, c := range conds {
		if i == 0 {
			query += " WHERE " + c
		} else {
			query += " AND " + c
		}
	}

	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, &transflow.CacheError{Backend: "sqlite", Op: "clear", Cause: err}
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}

// Stats returns a snapshot of the store's counters.
func (s *SQLite) Stats(ctx context.Context) (Stats, error) {
	var entries int
	var size sql.NullInt64
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*), SUM(LENGTH(value)) FROM translations`).Scan(&entries, &size)
	if err != nil {
		return Stats{}, &transflow.CacheError{Backend: "sqlite", Op: "stats", Cause: err}
	}

	hits, misses, rate := s.counters.snapshot()
	return Stats{
		Entries:   entries,
		Hits:      hits,
		Misses:    misses,
		HitRate:   rate,
		SizeBytes: size.Int64,
	}, nil
}

// Close closes the database.
func (s *SQLite) Close() error {
	return s.db.Close()
}

var _ Store = (*SQLite)(nil)
