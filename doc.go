// Package transflow is a cache-and-batch orchestration engine for text
// translation.
//
// Transflow sits between callers and external translation providers
// (OpenAI, DeepL, Google-style endpoints). It decides per request whether a
// previously computed translation can be reused, coalesces duplicate
// in-flight fetches for the same content, retries transient provider
// failures with backoff, falls back across an ordered provider list, and
// fans batches out over a bounded worker pool while preserving input order.
//
// Basic usage:
//
//	import (
//	    "context"
//	    "github.com/ZaguanLabs/transflow"
//	    "github.com/ZaguanLabs/transflow/cache"
//	    "github.com/ZaguanLabs/transflow/provider"
//	)
//
//	func main() {
//	    p := provider.NewOpenAIProvider(provider.OpenAIConfig{
//	        APIKey: os.Getenv("OPENAI_API_KEY"),
//	    })
//
//	    store := cache.NewMemory(cache.MemoryConfig{MaxEntries: 10000, TTL: time.Hour})
//	    t := transflow.NewTranslator(p, transflow.WithCache(store))
//
//	    result, err := t.Translate(context.Background(), transflow.Request{
//	        Text:       "Hello World",
//	        SourceLang: "en",
//	        TargetLang: "es",
//	    })
//	    if err != nil {
//	        log.Fatal(err)
//	    }
//	    fmt.Println(result.Text, result.Cached, result.Provider)
//	}
//
// Batches go through a BatchScheduler built on the same Translator, so a
// batch and a concurrent single-item request for the same text share one
// provider call:
//
//	s := transflow.NewBatchScheduler(t)
//	results := s.TranslateBatch(ctx, reqs, transflow.DefaultBatchOptions())
package transflow
