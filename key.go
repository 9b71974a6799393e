package transflow

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// Key is the fixed-size fingerprint of a translation request. Two requests
// with identical normalized text, language pair and options always map to
// the same key.
type Key [sha256.Size]byte

// String returns the hex encoding of the key, also used as the file name by
// the file cache backend.
func (k Key) String() string {
	return hex.EncodeToString(k[:])
}

// ParseKey decodes a hex-encoded key.
func ParseKey(s string) (Key, error) {
	var k Key
	b, err := hex.DecodeString(s)
	if err != nil {
		return k, fmt.Errorf("parsing key: %w", err)
	}
	if len(b) != len(k) {
		return k, fmt.Errorf("parsing key: want %d bytes, got %d", len(k), len(b))
	}
	copy(k[:], b)
	return k, nil
}

// NormalizeText collapses consecutive whitespace to a single space, trims,
// and applies canonical Unicode normalization (NFC).
func NormalizeText(text string) string {
	text = norm.NFC.String(text)

	var b strings.Builder
	b.Grow(len(text))
	space := false
	for _, r := range text {
		if unicode.IsSpace(r) {
			space = true
			continue
		}
		if space && b.Len() > 0 {
			b.WriteByte(' ')
		}
		space = false
		b.WriteRune(r)
	}
	return b.String()
}

// DeriveKey computes the cache key for a request. The derivation is pure:
// it normalizes the text, canonicalizes both language codes (the requested
// source language is used as-is, including AutoDetect, so repeated
// auto-detect requests for the same text hit cache), serializes options as
// sorted name/value pairs, and hashes the length-prefixed fields so no two
// distinct inputs can collide by field shifting.
//
// Invalid option values are rejected with an OptionError.
func DeriveKey(req Request) (Key, error) {
	opts, err := encodeOptions(req.Options)
	if err != nil {
		return Key{}, err
	}

	fields := []string{
		NormalizeText(req.Text),
		NormalizeLang(req.SourceLang),
		NormalizeLang(req.TargetLang),
		opts,
	}

	h := sha256.New()
	for _, f := range fields {
		// Length prefix keeps ("ab","c") and ("a","bc") distinct.
		fmt.Fprintf(h, "%d:", len(f))
		io.WriteString(h, f)
	}

	var k Key
	h.Sum(k[:0])
	return k, nil
}

// encodeOptions serializes options as sorted name=value pairs. Field order
// is fixed alphabetically: domain, formality, preserve_formatting. Unset
// options are omitted so a zero Options adds nothing to the key.
func encodeOptions(o Options) (string, error) {
	switch o.Formality {
	case FormalityDefault, FormalityMore, FormalityLess:
	default:
		return "", &OptionError{Name: "formality", Value: string(o.Formality)}
	}
	if strings.ContainsAny(o.Domain, "=;") {
		return "", &OptionError{Name: "domain", Value: o.Domain}
	}

	var pairs []string
	if o.Domain != "" {
		pairs = append(pairs, "domain="+strings.ToLower(o.Domain))
	}
	if o.Formality != FormalityDefault {
		pairs = append(pairs, "formality="+string(o.Formality))
	}
	if o.PreserveFormatting {
		pairs = append(pairs, "preserve_formatting=true")
	}
	return strings.Join(pairs, ";"), nil
}
