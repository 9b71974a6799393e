package cache

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
)

func TestExporter_ExportImport(t *testing.T) {
	ctx := context.Background()
	src := NewMemory(MemoryConfig{})

	setPair(t, src, "hello", "en", "es")
	setPair(t, src, "world", "en", "fr")

	var buf bytes.Buffer
	exporter := NewExporter(src)
	if err := exporter.Export(ctx, &buf, map[string]string{"origin": "test"}); err != nil {
		t.Fatalf("Export failed: %v", err)
	}

	var export ExportFormat
	if err := json.Unmarshal(buf.Bytes(), &export); err != nil {
		t.Fatalf("Export produced invalid JSON: %v", err)
	}
	if export.Version != "1.0" {
		t.Errorf("Expected version 1.0, got %q", export.Version)
	}
	if len(export.Entries) != 2 {
		t.Fatalf("Expected 2 entries, got %d", len(export.Entries))
	}
	if export.Metadata["origin"] != "test" {
		t.Errorf("Expected metadata to round-trip, got %v", export.Metadata)
	}

	dst := NewMemory(MemoryConfig{})
	imported, err := Import(ctx, dst, &buf)
	if err != nil {
		t.Fatalf("Import failed: %v", err)
	}
	if imported != 2 {
		t.Errorf("Expected 2 imported, got %d", imported)
	}

	key := testKey(t, "hello")
	ent, ok, _ := dst.Get(ctx, key)
	if !ok {
		t.Fatal("Expected imported entry")
	}
	if ent.Value != "hello" {
		t.Errorf("Expected value to round-trip, got %q", ent.Value)
	}
}

func TestImport_SkipsExpiredEntries(t *testing.T) {
	export := ExportFormat{
		Version: "1.0",
		Entries: []ExportEntry{
			{
				Key:        testKeyStr(t, "dead"),
				Value:      "x",
				SourceLang: "en",
				TargetLang: "es",
				ExpiresAt:  time.Now().Add(-time.Hour),
			},
			{
				Key:        testKeyStr(t, "live"),
				Value:      "y",
				SourceLang: "en",
				TargetLang: "es",
				ExpiresAt:  time.Now().Add(time.Hour),
			},
		},
	}
	data, _ := json.Marshal(export)

	dst := NewMemory(MemoryConfig{})
	imported, err := Import(context.Background(), dst, bytes.NewReader(data))
	if err != nil {
		t.Fatalf("Import failed: %v", err)
	}
	if imported != 1 {
		t.Errorf("Expected 1 imported, got %d", imported)
	}

	stats, _ := dst.Stats(context.Background())
	if stats.Entries != 1 {
		t.Errorf("Expected 1 live entry, got %d", stats.Entries)
	}
}

func TestImport_InvalidKey(t *testing.T) {
	data := `{"version":"1.0","entries":[{"key":"nothex","value":"x"}]}`

	dst := NewMemory(MemoryConfig{})
	if _, err := Import(context.Background(), dst, strings.NewReader(data)); err == nil {
		t.Error("Expected error for invalid key")
	}
}

func TestImport_InvalidJSON(t *testing.T) {
	dst := NewMemory(MemoryConfig{})
	if _, err := Import(context.Background(), dst, strings.NewReader("{")); err == nil {
		t.Error("Expected error for invalid JSON")
	}
}

func TestExporter_UnsupportedStore(t *testing.T) {
	db, _ := redismock.NewClientMock()
	defer db.Close()
	exporter := NewExporter(NewRedisFromClient(db, 0, ""))

	var buf bytes.Buffer
	if err := exporter.Export(context.Background(), &buf, nil); err == nil {
		t.Error("Expected error for a store without enumeration support")
	}
}

func testKeyStr(t *testing.T, text string) string {
	return testKey(t, text).String()
}
