package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/ZaguanLabs/transflow"
)

// ExportFormat is the JSON structure for cache export/import.
type ExportFormat struct {
	Version    string            `json:"version"`
	ExportedAt string            `json:"exported_at"`
	Entries    []ExportEntry     `json:"entries"`
	Metadata   map[string]string `json:"metadata,omitempty"`
}

// ExportEntry is a single exported cache entry.
type ExportEntry struct {
	Key        string    `json:"key"`
	Value      string    `json:"value"`
	SourceLang string    `json:"source_lang"`
	TargetLang string    `json:"target_lang"`
	ExpiresAt  time.Time `json:"expires_at,omitzero"`
}

// Enumerator is the optional interface stores implement to support export.
type Enumerator interface {
	Entries(ctx context.Context) ([]transflow.CacheEntry, error)
}

// Exporter writes a store's contents to JSON, e.g. to seed a warm cache in
// another environment.
type Exporter struct {
	store Store
}

// NewExporter creates a cache exporter.
func NewExporter(store Store) *Exporter {
	return &Exporter{store: store}
}

// Export writes the cache contents to w.
func (e *Exporter) Export(ctx context.Context, w io.Writer, metadata map[string]string) error {
	enum, ok := e.store.(Enumerator)
	if !ok {
		return fmt.Errorf("cache type %T does not support export", e.store)
	}

	entries, err := enum.Entries(ctx)
	if err != nil {
		return fmt.Errorf("enumerating cache entries: %w", err)
	}

	export := ExportFormat{
		Version:    "1.0",
		ExportedAt: time.Now().UTC().Format(time.RFC3339),
		Entries:    make([]ExportEntry, 0, len(entries)),
		Metadata:   metadata,
	}
	for _, ent := range entries {
		export.Entries = append(export.Entries, ExportEntry{
			Key:        ent.Key.String(),
			Value:      ent.Value,
			SourceLang: ent.SourceLang,
			TargetLang: ent.TargetLang,
			ExpiresAt:  ent.ExpiresAt,
		})
	}

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(export); err != nil {
		return fmt.Errorf("encoding JSON: %w", err)
	}
	return nil
}

// ExportToFile exports the cache to a file.
// The path is provided by the caller and is intentionally user-controlled.
func (e *Exporter) ExportToFile(ctx context.Context, path string, metadata map[string]string) error {
	f, err := os.Create(path) // #nosec G304 - path is intentionally user-provided
	if err != nil {
		return fmt.Errorf("creating file: %w", err)
	}
	defer f.Close()

	return e.Export(ctx, f, metadata)
}

// Import loads previously exported entries into a store. Entries whose
// expiry has already passed are skipped; live entries keep their remaining
// TTL. Returns the number imported.
func Import(ctx context.Context, store Store, r io.Reader) (int, error) {
	var export ExportFormat
	if err := json.NewDecoder(r).Decode(&export); err != nil {
		return 0, fmt.Errorf("decoding JSON: %w", err)
	}

	now := time.Now()
	imported := 0
	for _, ee := range export.Entries {
		key, err := transflow.ParseKey(ee.Key)
		if err != nil {
			return imported, fmt.Errorf("entry %d: %w", imported, err)
		}

		var ttl time.Duration
		if !ee.ExpiresAt.IsZero() {
			ttl = ee.ExpiresAt.Sub(now)
			if ttl <= 0 {
				continue
			}
		}

		ent := transflow.CacheEntry{
			Key:        key,
			Value:      ee.Value,
			SourceLang: ee.SourceLang,
			TargetLang: ee.TargetLang,
		}
		if err := store.Set(ctx, key, ent, ttl); err != nil {
			return imported, err
		}
		imported++
	}
	return imported, nil
}
