package cache

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestFile_SetGet(t *testing.T) {
	f, err := NewFile(FileConfig{Dir: t.TempDir()})
	if err != nil {
		t.Fatalf("NewFile failed: %v", err)
	}
	defer f.Close()

	ctx := context.Background()
	key := testKey(t, "hello")

	if err := f.Set(ctx, key, testEntry("hello", "hola"), 0); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	ent, ok, err := f.Get(ctx, key)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if !ok {
		t.Fatal("Expected a hit")
	}
	if ent.Value != "hola" {
		t.Errorf("Expected 'hola', got %q", ent.Value)
	}
}

func TestFile_EntryFileNamedByHexKey(t *testing.T) {
	dir := t.TempDir()
	f, err := NewFile(FileConfig{Dir: dir})
	if err != nil {
		t.Fatalf("NewFile failed: %v", err)
	}
	defer f.Close()

	key := testKey(t, "hello")
	if err := f.Set(context.Background(), key, testEntry("hello", "hola"), 0); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	if _, err := os.Stat(filepath.Join(dir, key.String()+".json")); err != nil {
		t.Errorf("Expected entry file named by hex key: %v", err)
	}
}

func TestFile_PersistsAcrossReopen(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()
	key := testKey(t, "durable")

	f1, err := NewFile(FileConfig{Dir: dir})
	if err != nil {
		t.Fatalf("NewFile failed: %v", err)
	}
	if err := f1.Set(ctx, key, testEntry("durable", "duradero"), time.Hour); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if err := f1.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	f2, err := NewFile(FileConfig{Dir: dir})
	if err != nil {
		t.Fatalf("Reopen failed: %v", err)
	}
	defer f2.Close()

	ent, ok, err := f2.Get(ctx, key)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if !ok {
		t.Fatal("Expected entry to survive reopen")
	}
	if ent.Value != "duradero" {
		t.Errorf("Expected 'duradero', got %q", ent.Value)
	}
}

func TestFile_ExpiredSweptOnOpen(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()
	key := testKey(t, "fleeting")

	f1, _ := NewFile(FileConfig{Dir: dir})
	f1.Set(ctx, key, testEntry("fleeting", "x"), 20*time.Millisecond)
	f1.Close()

	time.Sleep(40 * time.Millisecond)

	f2, err := NewFile(FileConfig{Dir: dir})
	if err != nil {
		t.Fatalf("Reopen failed: %v", err)
	}
	defer f2.Close()

	if _, ok, _ := f2.Get(ctx, key); ok {
		t.Error("Expected expired entry to be swept on open")
	}
	if _, err := os.Stat(filepath.Join(dir, key.String()+".json")); !os.IsNotExist(err) {
		t.Error("Expected expired entry file to be removed")
	}
}

func TestFile_Eviction(t *testing.T) {
	f, err := NewFile(FileConfig{Dir: t.TempDir(), MaxEntries: 2})
	if err != nil {
		t.Fatalf("NewFile failed: %v", err)
	}
	defer f.Close()

	ctx := context.Background()
	k1 := testKey(t, "one")
	k2 := testKey(t, "two")
	k3 := testKey(t, "three")

	f.Set(ctx, k1, testEntry("one", "uno"), 0)
	time.Sleep(2 * time.Millisecond) // keep access times distinct
	f.Set(ctx, k2, testEntry("two", "dos"), 0)
	time.Sleep(2 * time.Millisecond)

	// Touch k1 so k2 is least recently accessed.
	if _, ok, _ := f.Get(ctx, k1); !ok {
		t.Fatal("Expected k1 hit")
	}
	time.Sleep(2 * time.Millisecond)

	f.Set(ctx, k3, testEntry("three", "tres"), 0)

	if _, ok, _ := f.Get(ctx, k1); !ok {
		t.Error("Expected k1 to survive eviction")
	}
	if _, ok, _ := f.Get(ctx, k2); ok {
		t.Error("Expected k2 to be evicted")
	}
}

func TestFile_IndexDriftHeals(t *testing.T) {
	dir := t.TempDir()
	f, err := NewFile(FileConfig{Dir: dir})
	if err != nil {
		t.Fatalf("NewFile failed: %v", err)
	}
	defer f.Close()

	ctx := context.Background()
	key := testKey(t, "vanishing")
	f.Set(ctx, key, testEntry("vanishing", "x"), 0)

	// Entry file disappears behind the store's back.
	if err := os.Remove(filepath.Join(dir, key.String()+".json")); err != nil {
		t.Fatalf("Remove failed: %v", err)
	}

	if _, ok, err := f.Get(ctx, key); err != nil || ok {
		t.Errorf("Expected a clean miss for drifted index, got ok=%v err=%v", ok, err)
	}

	stats, _ := f.Stats(ctx)
	if stats.Entries != 0 {
		t.Errorf("Expected healed index, got %d entries", stats.Entries)
	}
}

func TestFile_ClearPattern(t *testing.T) {
	f, err := NewFile(FileConfig{Dir: t.TempDir()})
	if err != nil {
		t.Fatalf("NewFile failed: %v", err)
	}
	defer f.Close()

	ctx := context.Background()
	setPair(t, f, "a", "en", "es")
	setPair(t, f, "b", "en", "fr")
	setPair(t, f, "c", "de", "fr")

	removed, err := f.Clear(ctx, &Pattern{TargetLang: "fr"})
	if err != nil {
		t.Fatalf("Clear failed: %v", err)
	}
	if removed != 2 {
		t.Errorf("Expected 2 removed, got %d", removed)
	}

	stats, _ := f.Stats(ctx)
	if stats.Entries != 1 {
		t.Errorf("Expected 1 remaining, got %d", stats.Entries)
	}
}

func TestFile_RequiresDir(t *testing.T) {
	if _, err := NewFile(FileConfig{}); err == nil {
		t.Error("Expected error for missing directory")
	}
}
