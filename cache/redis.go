package cache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ZaguanLabs/transflow"
)

// RedisConfig holds configuration for the Redis store.
type RedisConfig struct {
	URL       string        // Redis connection URL (e.g., "redis://localhost:6379")
	TTL       time.Duration // Default TTL for writes; 0 means no expiration
	KeyPrefix string        // Prefix for all keys (default: "transflow:")
}

// redisEnvelope is the JSON value stored under each key. Expiry is enforced
// by Redis itself via per-key TTLs; the timestamps ride along so Get can
// reconstruct a full entry.
type redisEnvelope struct {
	Value      string    `json:"value"`
	SourceLang string    `json:"source_lang"`
	TargetLang string    `json:"target_lang"`
	CreatedAt  time.Time `json:"created_at"`
	ExpiresAt  time.Time `json:"expires_at,omitzero"`
}

// Redis is a Redis-backed store shared across processes. Alongside each
// entry it maintains a master key set and one index set per language pair
// so Clear can work without a full keyspace scan. Size bounding is left to
// Redis' own maxmemory policy.
type Redis struct {
	client    *redis.Client
	ttl       time.Duration
	keyPrefix string
	counters
}

// NewRedis creates a Redis store and verifies the connection.
func NewRedis(cfg RedisConfig) (*Redis, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, &transflow.CacheError{Backend: "redis", Op: "open", Cause: err}
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, &transflow.CacheError{Backend: "redis", Op: "open", Cause: err}
	}

	return NewRedisFromClient(client, cfg.TTL, cfg.KeyPrefix), nil
}

// NewRedisFromClient creates a Redis store from an existing client.
func NewRedisFromClient(client *redis.Client, ttl time.Duration, keyPrefix string) *Redis {
	if keyPrefix == "" {
		keyPrefix = "transflow:"
	}
	if ttl < 0 {
		ttl = 0
	}
	return &Redis{
		client:    client,
		ttl:       ttl,
		keyPrefix: keyPrefix,
	}
}

// Get retrieves an entry. Expired keys are already gone server-side.
func (r *Redis) Get(ctx context.Context, key transflow.Key) (*transflow.CacheEntry, bool, error) {
	val, err := r.client.Get(ctx, r.entryKey(key.String())).Result()
	if err == redis.Nil {
		r.miss()
		return nil, false, nil
	}
	if err != nil {
		return nil, false, &transflow.CacheError{Backend: "redis", Op: "get", Cause: err}
	}

	var env redisEnvelope
	if err := json.Unmarshal([]byte(val), &env); err != nil {
		return nil, false, &transflow.CacheError{Backend: "redis", Op: "get", Cause: err}
	}
	r.hit()

	return &transflow.CacheEntry{
		Key:            key,
		Value:          env.Value,
		SourceLang:     env.SourceLang,
		TargetLang:     env.TargetLang,
		CreatedAt:      env.CreatedAt,
		ExpiresAt:      env.ExpiresAt,
		LastAccessedAt: time.Now(),
		SizeBytes:      int64(len(env.Value)),
	}, true, nil
}

// Set stores the entry and registers it in the key and language-pair sets.
func (r *Redis) Set(ctx context.Context, key transflow.Key, entry transflow.CacheEntry, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = r.ttl
	}

	now := time.Now()
	env := redisEnvelope{
		Value:      entry.Value,
		SourceLang: entry.SourceLang,
		TargetLang: entry.TargetLang,
		CreatedAt:  now,
	}
	if ttl > 0 {
		env.ExpiresAt = now.Add(ttl)
	}

	data, err := json.Marshal(env)
	if err != nil {
		return &transflow.CacheError{Backend: "redis", Op: "set", Cause: err}
	}

	hexKey := key.String()
	pipe := r.client.TxPipeline()
	pipe.Set(ctx, r.entryKey(hexKey), data, ttl)
	pipe.SAdd(ctx, r.keysKey(), hexKey)
	pipe.SAdd(ctx, r.pairKey(env.SourceLang, env.TargetLang), hexKey)
	if _, err := pipe.Exec(ctx); err != nil {
		return &transflow.CacheError{Backend: "redis", Op: "set", Cause: err}
	}
	return nil
}

// EvictExpired is a no-op: Redis expires keys natively. Index sets may
// carry stale members until the next Clear; Get never returns them.
func (r *Redis) EvictExpired(_ context.Context) (int, error) {
	return 0, nil
}

// Clear removes entries matching the pattern, everything when nil. Members
// whose entry key already expired count as removed only if the entry still
// existed.
func (r *Redis) Clear(ctx context.Context, p *Pattern) (int, error) {
	members, indexKeys, err := r.selectMembers(ctx, p)
	if err != nil {
		return 0, err
	}
	if len(members) == 0 {
		return 0, nil
	}

	entryKeys := make([]string, len(members))
	for i, m := range members {
		entryKeys[i] = r.entryKey(m)
	}

	removed, err := r.client.Del(ctx, entryKeys...).Result()
	if err != nil {
		return 0, &transflow.CacheError{Backend: "redis", Op: "clear", Cause: err}
	}

	pipe := r.client.TxPipeline()
	args := make([]any, len(members))
	for i, m := range members {
		args[i] = m
	}
	pipe.SRem(ctx, r.keysKey(), args...)
	for _, ik := range indexKeys {
		pipe.SRem(ctx, ik, args...)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return int(removed), &transflow.CacheError{Backend: "redis", Op: "clear", Cause: err}
	}
	return int(removed), nil
}

// Stats reports the tracked key count; per-value sizes are not aggregated
// for the remote backend.
func (r *Redis) Stats(ctx context.Context) (Stats, error) {
	entries, err := r.client.SCard(ctx, r.keysKey()).Result()
	if err != nil {
		return Stats{}, &transflow.CacheError{Backend: "redis", Op: "stats", Cause: err}
	}

	hits, misses, rate := r.counters.snapshot()
	return Stats{
		Entries: int(entries),
		Hits:    hits,
		Misses:  misses,
		HitRate: rate,
	}, nil
}

// Close closes the client connection.
func (r *Redis) Close() error {
	return r.client.Close()
}

// Ping tests the connection.
func (r *Redis) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

// selectMembers resolves which hex keys a pattern covers and which index
// sets they came from.
func (r *Redis) selectMembers(ctx context.Context, p *Pattern) ([]string, []string, error) {
	if p != nil && p.SourceLang != "" && p.TargetLang != "" {
		ik := r.pairKey(transflow.NormalizeLang(p.SourceLang), transflow.NormalizeLang(p.TargetLang))
		members, err := r.client.SMembers(ctx, ik).Result()
		if err != nil {
			return nil, nil, &transflow.CacheError{Backend: "redis", Op: "clear", Cause: err}
		}
		return members, []string{ik}, nil
	}

	// Partial or nil pattern: walk the master set and filter per entry.
	members, err := r.client.SMembers(ctx, r.keysKey()).Result()
	if err != nil {
		return nil, nil, &transflow.CacheError{Backend: "redis", Op: "clear", Cause: err}
	}
	if p == nil || (p.SourceLang == "" && p.TargetLang == "") {
		return members, nil, nil
	}

	var selected []string
	indexKeys := make(map[string]bool)
	for _, m := range members {
		val, err := r.client.Get(ctx, r.entryKey(m)).Result()
		if err == redis.Nil {
			continue
		}
		if err != nil {
			return nil, nil, &transflow.CacheError{Backend: "redis", Op: "clear", Cause: err}
		}
		var env redisEnvelope
		if err := json.Unmarshal([]byte(val), &env); err != nil {
			continue
		}
		if p.Match(env.SourceLang, env.TargetLang) {
			selected = append(selected, m)
			indexKeys[r.pairKey(env.SourceLang, env.TargetLang)] = true
		}
	}

	iks := make([]string, 0, len(indexKeys))
	for ik := range indexKeys {
		iks = append(iks, ik)
	}
	return selected, iks, nil
}

func (r *Redis) entryKey(hexKey string) string {
	return r.keyPrefix + hexKey
}

func (r *Redis) keysKey() string {
	return r.keyPrefix + "keys"
}

func (r *Redis) pairKey(sourceLang, targetLang string) string {
	return r.keyPrefix + "pair:" + sourceLang + ":" + targetLang
}

var _ Store = (*Redis)(nil)
