package transflow

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// BatchOptions configures one TranslateBatch call.
type BatchOptions struct {
	UseCache            bool // Consult and fill the cache store
	MaxChunkSize        int  // Upper bound on items per dispatched chunk
	MaxConcurrentChunks int  // Worker pool size; chunks in flight at once
}

// DefaultBatchOptions returns the defaults used by the CLI.
func DefaultBatchOptions() BatchOptions {
	return BatchOptions{
		UseCache:            true,
		MaxChunkSize:        100,
		MaxConcurrentChunks: 5,
	}
}

func (o BatchOptions) sanitized() BatchOptions {
	if o.MaxChunkSize <= 0 {
		o.MaxChunkSize = 100
	}
	if o.MaxConcurrentChunks <= 0 {
		o.MaxConcurrentChunks = 5
	}
	return o
}

// BatchScheduler fans a request list out over a bounded worker pool while
// preserving input order: result index i always corresponds to request
// index i, no matter which items hit cache, how misses were chunked, or
// which items failed.
//
// It drives the same Translator used for single-item calls, so batch items
// share the cache store and in-flight coalescer with everything else in the
// process.
type BatchScheduler struct {
	translator *Translator
	logger     Logger
}

// NewBatchScheduler creates a scheduler on top of a Translator.
func NewBatchScheduler(t *Translator) *BatchScheduler {
	return &BatchScheduler{translator: t, logger: t.logger}
}

// TranslateBatch translates requests and returns one result per input
// index. Individual failures land in their own slot's Err field and never
// abort sibling items or the call; the returned slice is always complete.
// When ctx expires mid-batch, still-pending slots are marked with the
// context error while already-resolved slots keep their results.
func (b *BatchScheduler) TranslateBatch(ctx context.Context, reqs []Request, opts BatchOptions) []Result {
	if len(reqs) == 0 {
		return nil
	}
	opts = opts.sanitized()

	results := make([]Result, len(reqs))
	missed := b.partition(ctx, reqs, results, opts.UseCache)

	chunks := chunkIndices(missed, opts.MaxChunkSize)
	if len(chunks) == 0 {
		return results
	}

	var g errgroup.Group
	g.SetLimit(opts.MaxConcurrentChunks)

	for _, chunk := range chunks {
		g.Go(func() error {
			b.processChunk(ctx, reqs, results, chunk, opts.UseCache)
			return nil
		})
	}

	// Workers never return errors; failures live in their result slots.
	_ = g.Wait()
	return results
}

// partition records cache hits at their original index and returns the
// ordered list of miss indices. With UseCache off, every translatable index
// is a miss.
func (b *BatchScheduler) partition(ctx context.Context, reqs []Request, results []Result, useCache bool) []int {
	t := b.translator
	var missed []int

	for i, req := range reqs {
		if NormalizeText(req.Text) == "" {
			results[i] = Result{
				SourceLang: NormalizeLang(req.SourceLang),
				TargetLang: NormalizeLang(req.TargetLang),
				Provider:   t.providers[0].Name(),
			}
			continue
		}

		if !useCache || t.cache == nil {
			missed = append(missed, i)
			continue
		}

		key, err := DeriveKey(req)
		if err != nil {
			results[i] = Result{
				SourceLang: NormalizeLang(req.SourceLang),
				TargetLang: NormalizeLang(req.TargetLang),
				Err:        err,
			}
			continue
		}

		ent, ok, err := t.cache.Get(ctx, key)
		if err != nil {
			b.logger.Warn("batch cache lookup failed", Fields{
				"index": i,
				"error": err.Error(),
			})
			missed = append(missed, i)
			continue
		}
		if ok {
			results[i] = Result{
				Text:       ent.Value,
				SourceLang: ent.SourceLang,
				TargetLang: ent.TargetLang,
				Cached:     true,
				Provider:   t.providers[0].Name(),
			}
			continue
		}
		missed = append(missed, i)
	}

	return missed
}

// processChunk translates one chunk's items sequentially, writing each
// outcome back at its original index.
func (b *BatchScheduler) processChunk(ctx context.Context, reqs []Request, results []Result, chunk []int, useCache bool) {
	for _, idx := range chunk {
		req := reqs[idx]
		if err := ctx.Err(); err != nil {
			results[idx] = b.failedResult(req, &ProviderError{
				Kind:    KindTransient,
				Message: "batch deadline exceeded",
				Cause:   err,
			})
			continue
		}

		var res Result
		var err error
		if useCache {
			res, err = b.translator.Translate(ctx, req)
		} else {
			res, err = b.translator.TranslateUncached(ctx, req)
		}
		if err != nil {
			results[idx] = b.failedResult(req, err)
			continue
		}
		results[idx] = res
	}
}

func (b *BatchScheduler) failedResult(req Request, err error) Result {
	return Result{
		SourceLang: NormalizeLang(req.SourceLang),
		TargetLang: NormalizeLang(req.TargetLang),
		Err:        err,
	}
}

// chunkIndices splits the miss list into contiguous chunks of at most size.
func chunkIndices(indices []int, size int) [][]int {
	if len(indices) == 0 {
		return nil
	}
	chunks := make([][]int, 0, (len(indices)+size-1)/size)
	for start := 0; start < len(indices); start += size {
		end := min(start+size, len(indices))
		chunks = append(chunks, indices[start:end])
	}
	return chunks
}
