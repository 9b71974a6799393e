package cache

import (
	"context"
	"testing"

	"github.com/ZaguanLabs/transflow"
)

// setPair writes one entry for the given language pair.
func setPair(t *testing.T, s Store, text, src, tgt string) {
	t.Helper()
	k, err := transflow.DeriveKey(transflow.Request{Text: text, SourceLang: src, TargetLang: tgt})
	if err != nil {
		t.Fatalf("deriving key: %v", err)
	}
	if err := s.Set(context.Background(), k, transflow.CacheEntry{
		Value: text, SourceLang: src, TargetLang: tgt,
	}, 0); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
}

func TestPattern_Match(t *testing.T) {
	tests := []struct {
		name     string
		pattern  *Pattern
		src, tgt string
		expected bool
	}{
		{"nil matches everything", nil, "en", "es", true},
		{"empty matches everything", &Pattern{}, "en", "es", true},
		{"full pair match", &Pattern{SourceLang: "en", TargetLang: "es"}, "en", "es", true},
		{"full pair mismatch", &Pattern{SourceLang: "en", TargetLang: "es"}, "en", "fr", false},
		{"source only", &Pattern{SourceLang: "en"}, "en", "fr", true},
		{"target only", &Pattern{TargetLang: "fr"}, "de", "fr", true},
		{"normalized codes", &Pattern{SourceLang: "en_US", TargetLang: "zh-CN"}, "en", "zh", true},
		{"source mismatch", &Pattern{SourceLang: "de"}, "en", "es", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.pattern.Match(tt.src, tt.tgt); got != tt.expected {
				t.Errorf("Match(%q, %q) = %v, want %v", tt.src, tt.tgt, got, tt.expected)
			}
		})
	}
}

func TestCounters_HitRate(t *testing.T) {
	var c counters
	c.hit()
	c.hit()
	c.hit()
	c.miss()

	hits, misses, rate := c.snapshot()
	if hits != 3 || misses != 1 {
		t.Errorf("Expected 3/1, got %d/%d", hits, misses)
	}
	if rate != 0.75 {
		t.Errorf("Expected 0.75 hit rate, got %f", rate)
	}

	// No traffic yet means no rate.
	var empty counters
	if _, _, rate := empty.snapshot(); rate != 0 {
		t.Errorf("Expected 0 rate for empty counters, got %f", rate)
	}
}
