package cache

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/ZaguanLabs/transflow"
)

func testKey(t *testing.T, text string) transflow.Key {
	t.Helper()
	k, err := transflow.DeriveKey(transflow.Request{
		Text: text, SourceLang: "en", TargetLang: "es",
	})
	if err != nil {
		t.Fatalf("deriving key: %v", err)
	}
	return k
}

func testEntry(text, value string) transflow.CacheEntry {
	return transflow.CacheEntry{
		Value:      value,
		SourceLang: "en",
		TargetLang: "es",
	}
}

func TestMemory_SetGet(t *testing.T) {
	m := NewMemory(MemoryConfig{})
	ctx := context.Background()
	key := testKey(t, "hello")

	if err := m.Set(ctx, key, testEntry("hello", "hola"), 0); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	ent, ok, err := m.Get(ctx, key)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if !ok {
		t.Fatal("Expected a hit")
	}
	if ent.Value != "hola" {
		t.Errorf("Expected 'hola', got %q", ent.Value)
	}
	if ent.SourceLang != "en" || ent.TargetLang != "es" {
		t.Errorf("Expected language pair preserved, got %s->%s", ent.SourceLang, ent.TargetLang)
	}
	if ent.CreatedAt.IsZero() || ent.LastAccessedAt.IsZero() {
		t.Error("Expected backend-stamped timestamps")
	}
	if ent.SizeBytes != int64(len("hola")) {
		t.Errorf("Expected size %d, got %d", len("hola"), ent.SizeBytes)
	}
}

func TestMemory_Miss(t *testing.T) {
	m := NewMemory(MemoryConfig{})

	_, ok, err := m.Get(context.Background(), testKey(t, "nothing"))
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if ok {
		t.Error("Expected a miss")
	}
}

func TestMemory_TTLExpiry(t *testing.T) {
	m := NewMemory(MemoryConfig{})
	ctx := context.Background()
	key := testKey(t, "fleeting")

	if err := m.Set(ctx, key, testEntry("fleeting", "efimero"), 30*time.Millisecond); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	if _, ok, _ := m.Get(ctx, key); !ok {
		t.Fatal("Expected a hit before expiry")
	}

	time.Sleep(50 * time.Millisecond)

	if _, ok, _ := m.Get(ctx, key); ok {
		t.Error("Expected a miss after expiry")
	}

	// The expired entry was removed, not just hidden.
	stats, _ := m.Stats(ctx)
	if stats.Entries != 0 {
		t.Errorf("Expected 0 live entries, got %d", stats.Entries)
	}
}

func TestMemory_LRUEviction(t *testing.T) {
	m := NewMemory(MemoryConfig{MaxEntries: 2})
	ctx := context.Background()

	k1 := testKey(t, "one")
	k2 := testKey(t, "two")
	k3 := testKey(t, "three")

	m.Set(ctx, k1, testEntry("one", "uno"), 0)
	m.Set(ctx, k2, testEntry("two", "dos"), 0)

	// Touch k1 so k2 becomes least recently used.
	if _, ok, _ := m.Get(ctx, k1); !ok {
		t.Fatal("Expected k1 hit")
	}

	m.Set(ctx, k3, testEntry("three", "tres"), 0)

	if _, ok, _ := m.Get(ctx, k1); !ok {
		t.Error("Expected k1 to survive eviction")
	}
	if _, ok, _ := m.Get(ctx, k2); ok {
		t.Error("Expected k2 to be evicted")
	}
	if _, ok, _ := m.Get(ctx, k3); !ok {
		t.Error("Expected k3 to be present")
	}
}

func TestMemory_OverwriteDoesNotEvict(t *testing.T) {
	m := NewMemory(MemoryConfig{MaxEntries: 2})
	ctx := context.Background()

	k1 := testKey(t, "one")
	k2 := testKey(t, "two")

	m.Set(ctx, k1, testEntry("one", "uno"), 0)
	m.Set(ctx, k2, testEntry("two", "dos"), 0)
	m.Set(ctx, k1, testEntry("one", "UNO"), 0) // overwrite, not insert

	ent, ok, _ := m.Get(ctx, k1)
	if !ok || ent.Value != "UNO" {
		t.Errorf("Expected overwritten value, got %+v ok=%v", ent, ok)
	}
	if _, ok, _ := m.Get(ctx, k2); !ok {
		t.Error("Expected k2 to survive an overwrite of k1")
	}
}

func TestMemory_EvictExpired(t *testing.T) {
	m := NewMemory(MemoryConfig{})
	ctx := context.Background()

	m.Set(ctx, testKey(t, "short"), testEntry("short", "x"), 20*time.Millisecond)
	m.Set(ctx, testKey(t, "long"), testEntry("long", "y"), time.Hour)

	time.Sleep(40 * time.Millisecond)

	removed, err := m.EvictExpired(ctx)
	if err != nil {
		t.Fatalf("EvictExpired failed: %v", err)
	}
	if removed != 1 {
		t.Errorf("Expected 1 removed, got %d", removed)
	}

	stats, _ := m.Stats(ctx)
	if stats.Entries != 1 {
		t.Errorf("Expected 1 remaining entry, got %d", stats.Entries)
	}
}

func TestMemory_ClearPattern(t *testing.T) {
	m := NewMemory(MemoryConfig{})
	ctx := context.Background()

	set := func(text, src, tgt string) {
		k, _ := transflow.DeriveKey(transflow.Request{Text: text, SourceLang: src, TargetLang: tgt})
		m.Set(ctx, k, transflow.CacheEntry{Value: text, SourceLang: src, TargetLang: tgt}, 0)
	}
	set("a", "en", "es")
	set("b", "en", "es")
	set("c", "en", "fr")
	set("d", "de", "fr")

	removed, err := m.Clear(ctx, &Pattern{SourceLang: "en", TargetLang: "es"})
	if err != nil {
		t.Fatalf("Clear failed: %v", err)
	}
	if removed != 2 {
		t.Errorf("Expected 2 removed, got %d", removed)
	}

	// Partial pattern: everything targeting French.
	removed, _ = m.Clear(ctx, &Pattern{TargetLang: "fr"})
	if removed != 2 {
		t.Errorf("Expected 2 removed for target pattern, got %d", removed)
	}

	stats, _ := m.Stats(ctx)
	if stats.Entries != 0 {
		t.Errorf("Expected empty store, got %d entries", stats.Entries)
	}
}

func TestMemory_ClearAll(t *testing.T) {
	m := NewMemory(MemoryConfig{})
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		m.Set(ctx, testKey(t, fmt.Sprintf("text %d", i)), testEntry("", "v"), 0)
	}

	removed, err := m.Clear(ctx, nil)
	if err != nil {
		t.Fatalf("Clear failed: %v", err)
	}
	if removed != 5 {
		t.Errorf("Expected 5 removed, got %d", removed)
	}
}

func TestMemory_Stats(t *testing.T) {
	m := NewMemory(MemoryConfig{})
	ctx := context.Background()
	key := testKey(t, "hello")

	m.Get(ctx, key) // miss
	m.Set(ctx, key, testEntry("hello", "hola"), 0)
	m.Get(ctx, key)                 // hit
	m.Get(ctx, testKey(t, "other")) // miss

	stats, err := m.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats failed: %v", err)
	}
	if stats.Hits != 1 || stats.Misses != 2 {
		t.Errorf("Expected 1 hit / 2 misses, got %d / %d", stats.Hits, stats.Misses)
	}
	if stats.HitRate < 0.3 || stats.HitRate > 0.34 {
		t.Errorf("Expected hit rate about 1/3, got %f", stats.HitRate)
	}
	if stats.SizeBytes != int64(len("hola")) {
		t.Errorf("Expected size %d, got %d", len("hola"), stats.SizeBytes)
	}
}

func TestMemory_Entries(t *testing.T) {
	m := NewMemory(MemoryConfig{})
	ctx := context.Background()

	m.Set(ctx, testKey(t, "live"), testEntry("live", "vivo"), time.Hour)
	m.Set(ctx, testKey(t, "dead"), testEntry("dead", "muerto"), 10*time.Millisecond)
	time.Sleep(30 * time.Millisecond)

	entries, err := m.Entries(ctx)
	if err != nil {
		t.Fatalf("Entries failed: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("Expected 1 live entry, got %d", len(entries))
	}
	if entries[0].Value != "vivo" {
		t.Errorf("Expected live entry, got %q", entries[0].Value)
	}
}
