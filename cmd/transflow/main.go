// Command transflow translates text and HTML files with cached,
// fallback-capable providers.
package main

import (
	"bufio"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"

	"github.com/ZaguanLabs/transflow"
	"github.com/ZaguanLabs/transflow/cache"
	"github.com/ZaguanLabs/transflow/processor"
	"github.com/ZaguanLabs/transflow/provider"
)

// Build-time variables (can be overridden with ldflags)
var (
	version   = transflow.Version
	commit    = transflow.GitCommit
	buildDate = transflow.BuildDate
)

// envConfig holds settings read from the environment.
type envConfig struct {
	OpenAIKey string `env:"OPENAI_API_KEY"`
	DeepLKey  string `env:"DEEPL_API_KEY"`
	GoogleKey string `env:"GOOGLE_API_KEY"`
	RedisURL  string `env:"REDIS_URL" envDefault:"redis://localhost:6379"`
	CacheDir  string `env:"TRANSFLOW_CACHE_DIR"`
}

func main() {
	if err := run(os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("transflow", flag.ContinueOnError)
	fs.SetOutput(stderr)

	// Flags
	targetLang := fs.String("to", "", "Target language code (e.g., es, ja)")
	sourceLang := fs.String("from", "auto", "Source language code (auto to detect)")
	providerName := fs.String("provider", "openai", "Primary provider: openai, deepl, google")
	fallbacks := fs.String("fallback", "", "Comma-separated fallback providers")
	model := fs.String("model", "", "Model to use (openai provider only)")
	output := fs.String("output", "", "Output file (default: stdout)")
	outputShort := fs.String("o", "", "Output file (short for --output)")
	cacheBackend := fs.String("cache", "memory", "Cache backend: memory, file, sqlite, redis, none")
	cacheTTL := fs.Duration("cache-ttl", time.Hour, "Cache TTL (0 for no expiry)")
	cacheMax := fs.Int("cache-max", 10000, "Maximum cache entries (0 for unbounded)")
	batchMode := fs.Bool("batch", false, "Treat each input line as a separate text")
	workers := fs.Int("workers", 5, "Concurrent chunks in batch mode")
	chunkSize := fs.Int("chunk-size", 100, "Texts per chunk in batch mode")
	htmlMode := fs.Bool("html", false, "Translate input as an HTML document")
	jsonOutput := fs.Bool("json", false, "Output result as JSON")
	showStats := fs.Bool("stats", false, "Show cache statistics and exit")
	clearCache := fs.Bool("clear", false, "Clear the cache and exit")
	exportPath := fs.String("export", "", "Export cache entries to a JSON file and exit")
	importPath := fs.String("import", "", "Import cache entries from a JSON file and exit")
	showVersion := fs.Bool("version", false, "Show version")
	quiet := fs.Bool("quiet", false, "Suppress progress output")

	if err := fs.Parse(args); err != nil {
		return err
	}

	if *showVersion {
		fmt.Fprintf(stdout, "%s %s\n", transflow.Name, version)
		if commit != "unknown" && commit != "" {
			fmt.Fprintf(stdout, "  commit:  %s\n", commit)
		}
		if buildDate != "unknown" && buildDate != "" {
			fmt.Fprintf(stdout, "  built:   %s\n", buildDate)
		}
		return nil
	}

	var cfg envConfig
	if err := env.Parse(&cfg); err != nil {
		return fmt.Errorf("reading environment: %w", err)
	}

	// Handle -o alias for --output
	if *outputShort != "" && *output == "" {
		*output = *outputShort
	}

	ctx := context.Background()

	// Cache-only operations run without a provider.
	store, err := openStore(*cacheBackend, cfg, *cacheTTL, *cacheMax)
	if err != nil {
		return err
	}
	if store != nil {
		defer store.Close()
	}

	switch {
	case *showStats:
		return printStats(ctx, store, stdout, *jsonOutput)
	case *clearCache:
		return doClear(ctx, store, stdout, *quiet)
	case *exportPath != "":
		return doExport(ctx, store, *exportPath, stdout, *quiet)
	case *importPath != "":
		return doImport(ctx, store, *importPath, stdout, *quiet)
	}

	if *targetLang == "" {
		fs.Usage()
		return fmt.Errorf("--to is required")
	}

	// Get input
	var input string
	var inputName string

	if fs.NArg() == 0 {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return fmt.Errorf("reading stdin: %w", err)
		}
		input = string(data)
		inputName = "stdin"
	} else if fs.NArg() == 1 && fileExists(fs.Arg(0)) {
		inputPath := fs.Arg(0)
		data, err := os.ReadFile(inputPath) // #nosec G304 - CLI tool reads user-specified files
		if err != nil {
			return fmt.Errorf("reading file: %w", err)
		}
		input = string(data)
		inputName = filepath.Base(inputPath)
	} else {
		input = strings.Join(fs.Args(), " ")
		inputName = "argument"
	}

	// Build the provider chain.
	primary, err := buildProvider(*providerName, *model, cfg)
	if err != nil {
		return err
	}

	opts := []transflow.TranslatorOption{
		transflow.WithCacheTTL(*cacheTTL),
	}
	if store != nil {
		opts = append(opts, transflow.WithCache(store))
	}
	if *fallbacks != "" {
		var chain []transflow.Provider
		for _, name := range strings.Split(*fallbacks, ",") {
			p, err := buildProvider(strings.TrimSpace(name), *model, cfg)
			if err != nil {
				return err
			}
			chain = append(chain, p)
		}
		opts = append(opts, transflow.WithFallbacks(chain...))
	}

	translator := transflow.NewTranslator(primary, opts...)

	if !*quiet {
		fmt.Fprintf(stderr, "Translating %s to %s...\n", inputName, *targetLang)
	}
	start := time.Now()

	batchOpts := transflow.BatchOptions{
		UseCache:            store != nil,
		MaxChunkSize:        *chunkSize,
		MaxConcurrentChunks: *workers,
	}

	switch {
	case *htmlMode:
		return runHTML(ctx, translator, input, *sourceLang, *targetLang, batchOpts,
			*output, *jsonOutput, *quiet, start, stdout, stderr)
	case *batchMode:
		return runBatch(ctx, translator, input, *sourceLang, *targetLang, batchOpts,
			*output, *jsonOutput, *quiet, start, stdout, stderr)
	default:
		return runSingle(ctx, translator, input, *sourceLang, *targetLang,
			*output, *jsonOutput, *quiet, start, stdout, stderr)
	}
}

// buildProvider constructs a named provider from environment configuration.
func buildProvider(name, model string, cfg envConfig) (transflow.Provider, error) {
	switch name {
	case "openai":
		if cfg.OpenAIKey == "" {
			return nil, fmt.Errorf("openai provider requires OPENAI_API_KEY")
		}
		return provider.NewOpenAIProvider(provider.OpenAIConfig{
			APIKey: cfg.OpenAIKey,
			Model:  model,
		}), nil
	case "deepl":
		if cfg.DeepLKey == "" {
			return nil, fmt.Errorf("deepl provider requires DEEPL_API_KEY")
		}
		return provider.NewDeepLProvider(provider.DeepLConfig{
			APIKey: cfg.DeepLKey,
		}), nil
	case "google":
		if cfg.GoogleKey == "" {
			return nil, fmt.Errorf("google provider requires GOOGLE_API_KEY")
		}
		return provider.NewGoogleProvider(provider.GoogleConfig{
			APIKey: cfg.GoogleKey,
		}), nil
	}
	return nil, fmt.Errorf("unknown provider %q (want openai, deepl or google)", name)
}

// openStore constructs the selected cache backend. Returns nil for "none".
func openStore(backend string, cfg envConfig, ttl time.Duration, maxEntries int) (cache.Store, error) {
	switch backend {
	case "none":
		return nil, nil
	case "memory":
		return cache.NewMemory(cache.MemoryConfig{MaxEntries: maxEntries, TTL: ttl}), nil
	case "file":
		dir := cfg.CacheDir
		if dir == "" {
			home, err := os.UserCacheDir()
			if err != nil {
				return nil, fmt.Errorf("resolving cache dir: %w", err)
			}
			dir = filepath.Join(home, "transflow")
		}
		return cache.NewFile(cache.FileConfig{Dir: dir, MaxEntries: maxEntries, TTL: ttl})
	case "sqlite":
		dir := cfg.CacheDir
		if dir == "" {
			home, err := os.UserCacheDir()
			if err != nil {
				return nil, fmt.Errorf("resolving cache dir: %w", err)
			}
			dir = filepath.Join(home, "transflow")
		}
		return cache.NewSQLite(cache.SQLiteConfig{
			Path:       filepath.Join(dir, "translations.db"),
			MaxEntries: maxEntries,
			TTL:        ttl,
		})
	case "redis":
		return cache.NewRedis(cache.RedisConfig{URL: cfg.RedisURL, TTL: ttl})
	}
	return nil, fmt.Errorf("unknown cache backend %q (want memory, file, sqlite, redis or none)", backend)
}

func runSingle(ctx context.Context, translator *transflow.Translator, input, sourceLang, targetLang,
	output string, jsonOut, quiet bool, start time.Time, stdout, stderr io.Writer) error {
	res, err := translator.Translate(ctx, transflow.Request{
		Text:       strings.TrimRight(input, "\n"),
		SourceLang: sourceLang,
		TargetLang: targetLang,
	})
	if err != nil {
		return fmt.Errorf("translation failed: %w", err)
	}

	out, closeOut, err := openOutput(output, stdout)
	if err != nil {
		return err
	}
	defer closeOut()

	if jsonOut {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(struct {
			Text       string `json:"text"`
			SourceLang string `json:"source_lang"`
			TargetLang string `json:"target_lang"`
			Provider   string `json:"provider"`
			Cached     bool   `json:"cached"`
			ElapsedMs  int64  `json:"elapsed_ms"`
		}{res.Text, res.SourceLang, res.TargetLang, res.Provider, res.Cached,
			time.Since(start).Milliseconds()})
	}

	fmt.Fprintln(out, res.Text)
	if !quiet {
		fmt.Fprintf(stderr, "\nDone in %v (provider: %s, cached: %v)\n",
			time.Since(start).Round(time.Millisecond), res.Provider, res.Cached)
	}
	return nil
}

func runBatch(ctx context.Context, translator *transflow.Translator, input, sourceLang, targetLang string,
	opts transflow.BatchOptions, output string, jsonOut, quiet bool, start time.Time, stdout, stderr io.Writer) error {
	var reqs []transflow.Request
	sc := bufio.NewScanner(strings.NewReader(input))
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		reqs = append(reqs, transflow.Request{
			Text:       sc.Text(),
			SourceLang: sourceLang,
			TargetLang: targetLang,
		})
	}
	if err := sc.Err(); err != nil {
		return fmt.Errorf("reading input: %w", err)
	}

	scheduler := transflow.NewBatchScheduler(translator)
	results := scheduler.TranslateBatch(ctx, reqs, opts)

	out, closeOut, err := openOutput(output, stdout)
	if err != nil {
		return err
	}
	defer closeOut()

	var cached, failed int
	if jsonOut {
		type lineResult struct {
			Text   string `json:"text"`
			Cached bool   `json:"cached"`
			Error  string `json:"error,omitempty"`
		}
		lines := make([]lineResult, len(results))
		for i, r := range results {
			lines[i] = lineResult{Text: r.Text, Cached: r.Cached}
			if r.Err != nil {
				lines[i].Error = r.Err.Error()
				failed++
			}
			if r.Cached {
				cached++
			}
		}
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		if err := enc.Encode(lines); err != nil {
			return err
		}
	} else {
		for _, r := range results {
			if r.Err != nil {
				failed++
				fmt.Fprintln(out)
				continue
			}
			if r.Cached {
				cached++
			}
			fmt.Fprintln(out, r.Text)
		}
	}

	if !quiet {
		fmt.Fprintf(stderr, "\nDone in %v\n", time.Since(start).Round(time.Millisecond))
		fmt.Fprintf(stderr, "  Lines:      %d\n", len(results))
		fmt.Fprintf(stderr, "  From cache: %d\n", cached)
		fmt.Fprintf(stderr, "  Failed:     %d\n", failed)
	}
	return nil
}

func runHTML(ctx context.Context, translator *transflow.Translator, input, sourceLang, targetLang string,
	opts transflow.BatchOptions, output string, jsonOut, quiet bool, start time.Time, stdout, stderr io.Writer) error {
	scheduler := transflow.NewBatchScheduler(translator)
	docs := transflow.NewDocumentTranslator(scheduler, processor.NewHTMLProcessor())

	result, err := docs.Translate(ctx, input, "html", sourceLang, targetLang, opts)
	if err != nil {
		return fmt.Errorf("translation failed: %w", err)
	}

	out, closeOut, err := openOutput(output, stdout)
	if err != nil {
		return err
	}
	defer closeOut()

	if jsonOut {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(struct {
			Content         string `json:"content"`
			TotalNodes      int    `json:"total_nodes"`
			TranslatedCount int    `json:"translated_count"`
			CachedCount     int    `json:"cached_count"`
			FailedCount     int    `json:"failed_count"`
			ElapsedMs       int64  `json:"elapsed_ms"`
		}{result.Content, result.TotalNodes, result.TranslatedCount,
			result.CachedCount, result.FailedCount, time.Since(start).Milliseconds()})
	}

	fmt.Fprint(out, result.Content)

	if !quiet {
		fmt.Fprintf(stderr, "\nDone in %v\n", time.Since(start).Round(time.Millisecond))
		fmt.Fprintf(stderr, "  Nodes found:  %d\n", result.TotalNodes)
		fmt.Fprintf(stderr, "  Translated:   %d\n", result.TranslatedCount)
		fmt.Fprintf(stderr, "  From cache:   %d\n", result.CachedCount)
		if result.FailedCount > 0 {
			fmt.Fprintf(stderr, "  Failed:       %d\n", result.FailedCount)
		}
	}
	return nil
}

func printStats(ctx context.Context, store cache.Store, stdout io.Writer, jsonOut bool) error {
	if store == nil {
		return fmt.Errorf("--stats requires a cache backend")
	}
	stats, err := store.Stats(ctx)
	if err != nil {
		return fmt.Errorf("reading stats: %w", err)
	}

	if jsonOut {
		enc := json.NewEncoder(stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(struct {
			Entries   int     `json:"entries"`
			Hits      uint64  `json:"hits"`
			Misses    uint64  `json:"misses"`
			HitRate   float64 `json:"hit_rate"`
			SizeBytes int64   `json:"size_bytes"`
		}{stats.Entries, stats.Hits, stats.Misses, stats.HitRate, stats.SizeBytes})
	}

	fmt.Fprintf(stdout, "Cache statistics:\n")
	fmt.Fprintf(stdout, "  Entries:  %d\n", stats.Entries)
	fmt.Fprintf(stdout, "  Hits:     %d\n", stats.Hits)
	fmt.Fprintf(stdout, "  Misses:   %d\n", stats.Misses)
	fmt.Fprintf(stdout, "  Hit rate: %.1f%%\n", stats.HitRate*100)
	fmt.Fprintf(stdout, "  Size:     %d bytes\n", stats.SizeBytes)
	return nil
}

func doClear(ctx context.Context, store cache.Store, stdout io.Writer, quiet bool) error {
	if store == nil {
		return fmt.Errorf("--clear requires a cache backend")
	}
	n, err := store.Clear(ctx, nil)
	if err != nil {
		return fmt.Errorf("clearing cache: %w", err)
	}
	if !quiet {
		fmt.Fprintf(stdout, "Removed %d entries\n", n)
	}
	return nil
}

func doExport(ctx context.Context, store cache.Store, path string, stdout io.Writer, quiet bool) error {
	if store == nil {
		return fmt.Errorf("--export requires a cache backend")
	}
	exporter := cache.NewExporter(store)
	if err := exporter.ExportToFile(ctx, path, map[string]string{"tool": transflow.UserAgent()}); err != nil {
		return fmt.Errorf("exporting cache: %w", err)
	}
	if !quiet {
		fmt.Fprintf(stdout, "Exported cache to %s\n", path)
	}
	return nil
}

func doImport(ctx context.Context, store cache.Store, path string, stdout io.Writer, quiet bool) error {
	if store == nil {
		return fmt.Errorf("--import requires a cache backend")
	}
	f, err := os.Open(path) // #nosec G304 - CLI tool reads user-specified files
	if err != nil {
		return fmt.Errorf("opening import file: %w", err)
	}
	defer f.Close()

	n, err := cache.Import(ctx, store, f)
	if err != nil {
		return fmt.Errorf("importing cache: %w", err)
	}
	if !quiet {
		fmt.Fprintf(stdout, "Imported %d entries from %s\n", n, path)
	}
	return nil
}

// openOutput returns the destination writer and a close function.
func openOutput(path string, stdout io.Writer) (io.Writer, func(), error) {
	if path == "" {
		return stdout, func() {}, nil
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, nil, fmt.Errorf("creating output file: %w", err)
	}
	return f, func() { f.Close() }, nil
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
