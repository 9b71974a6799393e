package transflow

import (
	"context"
	"fmt"
)

// TextNode represents one translatable unit extracted from a document.
type TextNode struct {
	ID       string            // Unique identifier within the document
	Text     string            // Original text content (trimmed)
	Metadata map[string]string // Additional info (parent tag, attribute, ...)
}

// ContentProcessor extracts translatable text from structured content and
// applies translations back. Implementations live in the processor
// package.
type ContentProcessor interface {
	// Extract parses content and returns an opaque parsed form plus the
	// translatable nodes found in it.
	Extract(content string) (parsed any, nodes []TextNode, err error)

	// Apply writes translations back into the parsed form and renders it.
	// The map is keyed by NormalizeText of each node's text; nodes without
	// an entry keep their original text.
	Apply(parsed any, nodes []TextNode, translations map[string]string) (string, error)

	// ContentType names the format this processor handles, e.g. "html".
	ContentType() string
}

// DocumentResult is the outcome of translating a whole document.
type DocumentResult struct {
	Content         string // Rendered document with translations applied
	TotalNodes      int    // Translatable nodes found
	TranslatedCount int    // Nodes freshly translated
	CachedCount     int    // Nodes served from cache
	FailedCount     int    // Nodes whose translation failed (kept original text)
}

// DocumentTranslator translates structured documents by extracting their
// text nodes, running them through the batch scheduler, and reassembling
// the document. Failed nodes keep their original text instead of failing
// the document.
type DocumentTranslator struct {
	scheduler  *BatchScheduler
	processors map[string]ContentProcessor
}

// NewDocumentTranslator creates a document translator over a scheduler.
func NewDocumentTranslator(scheduler *BatchScheduler, processors ...ContentProcessor) *DocumentTranslator {
	d := &DocumentTranslator{
		scheduler:  scheduler,
		processors: make(map[string]ContentProcessor),
	}
	for _, p := range processors {
		d.processors[p.ContentType()] = p
	}
	return d
}

// Translate translates a document of the given content type.
func (d *DocumentTranslator) Translate(ctx context.Context, content, contentType, sourceLang, targetLang string, opts BatchOptions) (*DocumentResult, error) {
	proc, ok := d.processors[contentType]
	if !ok {
		return nil, fmt.Errorf("no processor registered for content type %q", contentType)
	}

	parsed, nodes, err := proc.Extract(content)
	if err != nil {
		return nil, err
	}
	if len(nodes) == 0 {
		return &DocumentResult{Content: content}, nil
	}

	// Deduplicate identical texts so the batch carries each once.
	seen := make(map[string]bool)
	var reqs []Request
	for _, node := range nodes {
		key := NormalizeText(node.Text)
		if key == "" || seen[key] {
			continue
		}
		seen[key] = true
		reqs = append(reqs, Request{
			Text:       node.Text,
			SourceLang: sourceLang,
			TargetLang: targetLang,
		})
	}

	results := d.scheduler.TranslateBatch(ctx, reqs, opts)

	out := &DocumentResult{TotalNodes: len(nodes)}
	translations := make(map[string]string, len(results))
	for i, res := range results {
		if res.Err != nil {
			out.FailedCount++
			continue
		}
		translations[NormalizeText(reqs[i].Text)] = res.Text
		if res.Cached {
			out.CachedCount++
		} else {
			out.TranslatedCount++
		}
	}

	rendered, err := proc.Apply(parsed, nodes, translations)
	if err != nil {
		return nil, err
	}
	out.Content = rendered
	return out, nil
}
