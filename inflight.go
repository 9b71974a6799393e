package transflow

import (
	"context"

	"golang.org/x/sync/singleflight"
)

// Coalescer deduplicates concurrent cache misses for the same key. The
// first caller for a key becomes the owner and runs the fetch; concurrent
// callers for the same key attach as observers and receive the owner's
// outcome without issuing their own provider call. The in-flight entry is
// removed when the fetch completes, success or failure, so a later miss
// triggers a fresh fetch.
//
// A Coalescer is shared by a Translator and every BatchScheduler built on
// it, so batch items and concurrent single-item requests for the same text
// coalesce too.
type Coalescer struct {
	group singleflight.Group
}

// NewCoalescer creates an empty coalescer.
func NewCoalescer() *Coalescer {
	return &Coalescer{}
}

// Do runs fetch for key, coalescing concurrent calls. It returns the shared
// result, whether the result was shared with other callers, and the fetch
// error. An observer whose context expires stops waiting and returns the
// context error; the owner's fetch keeps running for the remaining
// observers.
func (c *Coalescer) Do(ctx context.Context, key Key, fetch func() (Result, error)) (Result, bool, error) {
	ch := c.group.DoChan(key.String(), func() (any, error) {
		return fetch()
	})

	select {
	case r := <-ch:
		if r.Err != nil {
			return Result{}, r.Shared, r.Err
		}
		return r.Val.(Result), r.Shared, nil
	case <-ctx.Done():
		return Result{}, false, ctx.Err()
	}
}
