package agent

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/DavinciDreams/agents-of-empires-sub001/engine/core"
	"github.com/DavinciDreams/agents-of-empires-sub001/pkg/logger"
	lru "github.com/hashicorp/golang-lru/v2"
	"go.opentelemetry.io/otel/metric"
	"golang.org/x/sync/singleflight"
)

const (
	DefaultCacheMaxSize    = 10
	DefaultCacheExpiration = 1 * time.Hour
)

type cacheEntry struct {
	instance   Instance
	createdAt  time.Time
	lastUsed   time.Time
	usageCount int64
}

// CacheEntryStats describes one cached instance.
type CacheEntryStats struct {
	AgentID    string        `json:"agent_id"`
	UsageCount int64         `json:"usage_count"`
	Age        time.Duration `json:"age"`
	CreatedAt  time.Time     `json:"created_at"`
	LastUsed   time.Time     `json:"last_used"`
}

type CacheStats struct {
	Size       int               `json:"size"`
	MaxSize    int               `json:"max_size"`
	Expiration time.Duration     `json:"expiration"`
	Entries    []CacheEntryStats `json:"entries"`
}

// CacheConfig adjusts cache bounds at runtime; nil fields are unchanged.
type CacheConfig struct {
	MaxSize    *int           `json:"max_size,omitempty"`
	Expiration *time.Duration `json:"expiration,omitempty"`
}

type RegistryOption func(*Registry)

func WithCacheMaxSize(n int) RegistryOption {
	return func(r *Registry) {
		if n > 0 {
			r.maxSize = n
		}
	}
}

func WithCacheExpiration(d time.Duration) RegistryOption {
	return func(r *Registry) {
		if d > 0 {
			r.expiration = d
		}
	}
}

func WithRegistryClock(now func() time.Time) RegistryOption {
	return func(r *Registry) {
		if now != nil {
			r.now = now
		}
	}
}

func WithRegistryMeter(meter metric.Meter) RegistryOption {
	return func(r *Registry) {
		r.meter = meter
	}
}

// Registry owns agent configs and a bounded cache of built instances.
// Recency is tracked by the LRU list; expiration is checked separately on
// every read against the entry's creation time.
type Registry struct {
	mu         sync.Mutex
	configs    map[string]*Config
	cache      *lru.Cache[string, *cacheEntry]
	builder    Builder
	builds     singleflight.Group
	maxSize    int
	expiration time.Duration
	now        func() time.Time
	meter      metric.Meter
	metrics    *registryMetrics
}

func NewRegistry(builder Builder, opts ...RegistryOption) (*Registry, error) {
	if builder == nil {
		return nil, fmt.Errorf("agent builder is required")
	}
	r := &Registry{
		configs:    make(map[string]*Config),
		builder:    builder,
		maxSize:    DefaultCacheMaxSize,
		expiration: DefaultCacheExpiration,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	cache, err := lru.New[string, *cacheEntry](r.maxSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create agent cache: %w", err)
	}
	r.cache = cache
	r.metrics = newRegistryMetrics(r.meter)
	return r, nil
}

// Register validates cfg and stores a copy. Re-registering an id replaces
// its config and drops any instance built from the old one.
func (r *Registry) Register(ctx context.Context, cfg *Config) error {
	if cfg == nil {
		return core.NewError(nil, core.ErrCodeAgentInvalidConfig, nil)
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	stored := cfg.Clone()
	r.mu.Lock()
	_, replaced := r.configs[stored.ID]
	r.configs[stored.ID] = stored
	r.cache.Remove(stored.ID)
	r.mu.Unlock()
	r.builds.Forget(stored.ID)
	logger.FromContext(ctx).Debug("Agent registered",
		"agent_id", stored.ID, "provider", stored.Model.Provider, "model", stored.Model.Model, "replaced", replaced)
	return nil
}

// Unregister removes the config and evicts any cached instance. It reports
// whether the id was registered.
func (r *Registry) Unregister(ctx context.Context, id string) bool {
	r.mu.Lock()
	_, ok := r.configs[id]
	delete(r.configs, id)
	r.cache.Remove(id)
	r.mu.Unlock()
	r.builds.Forget(id)
	if ok {
		logger.FromContext(ctx).Debug("Agent unregistered", "agent_id", id)
	}
	return ok
}

// Config returns a copy of the registered config.
func (r *Registry) Config(id string) (*Config, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cfg, ok := r.configs[id]
	if !ok {
		return nil, false
	}
	return cfg.Clone(), true
}

// Configs returns copies of every registered config ordered by id.
func (r *Registry) Configs() []*Config {
	r.mu.Lock()
	out := make([]*Config, 0, len(r.configs))
	for _, cfg := range r.configs {
		out = append(out, cfg.Clone())
	}
	r.mu.Unlock()
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Get returns a ready instance for id, building it on a miss. Concurrent
// misses for the same id share a single build. Build errors are returned
// as produced by the Builder.
func (r *Registry) Get(ctx context.Context, id string) (Instance, error) {
	if inst, ok := r.lookup(ctx, id); ok {
		r.metrics.hit(ctx, id)
		return inst, nil
	}
	r.mu.Lock()
	cfg, ok := r.configs[id]
	r.mu.Unlock()
	if !ok {
		return nil, core.NewError(
			fmt.Errorf("agent %q is not registered", id),
			core.ErrCodeAgentNotFound,
			map[string]any{"agent_id": id},
		)
	}
	r.metrics.miss(ctx, id)
	v, err, _ := r.builds.Do(id, func() (any, error) {
		if inst, ok := r.lookup(ctx, id); ok {
			return inst, nil
		}
		return r.build(ctx, cfg)
	})
	if err != nil {
		return nil, err
	}
	return v.(Instance), nil
}

func (r *Registry) lookup(ctx context.Context, id string) (Instance, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	entry, ok := r.cache.Get(id)
	if !ok {
		return nil, false
	}
	now := r.now()
	if now.Sub(entry.createdAt) > r.expiration {
		r.cache.Remove(id)
		logger.FromContext(ctx).Debug("Agent cache entry expired", "agent_id", id, "age", now.Sub(entry.createdAt))
		return nil, false
	}
	entry.lastUsed = now
	entry.usageCount++
	return entry.instance, true
}

func (r *Registry) build(ctx context.Context, cfg *Config) (Instance, error) {
	log := logger.FromContext(ctx)
	started := r.now()
	inst, err := r.builder.Build(ctx, cfg.Clone())
	if err != nil {
		log.Warn("Failed to build agent", "agent_id", cfg.ID, "error", core.RedactError(err))
		return nil, err
	}
	now := r.now()
	r.mu.Lock()
	defer r.mu.Unlock()
	// The config may have been replaced or removed while building; the
	// caller still gets its instance but it is not cached.
	if current, ok := r.configs[cfg.ID]; !ok || current != cfg {
		return inst, nil
	}
	if r.cache.Len() >= r.maxSize {
		if oldest, _, ok := r.cache.RemoveOldest(); ok {
			r.metrics.evicted(ctx, 1)
			log.Debug("Evicted least recently used agent", "agent_id", oldest)
		}
	}
	r.cache.Add(cfg.ID, &cacheEntry{instance: inst, createdAt: now, lastUsed: now, usageCount: 1})
	log.Debug("Agent built", "agent_id", cfg.ID, "duration", now.Sub(started))
	return inst, nil
}

func (r *Registry) CacheStats() CacheStats {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := r.now()
	stats := CacheStats{
		Size:       r.cache.Len(),
		MaxSize:    r.maxSize,
		Expiration: r.expiration,
		Entries:    make([]CacheEntryStats, 0, r.cache.Len()),
	}
	// Keys are ordered oldest to newest.
	for _, id := range r.cache.Keys() {
		entry, ok := r.cache.Peek(id)
		if !ok {
			continue
		}
		stats.Entries = append(stats.Entries, CacheEntryStats{
			AgentID:    id,
			UsageCount: entry.usageCount,
			Age:        now.Sub(entry.createdAt),
			CreatedAt:  entry.createdAt,
			LastUsed:   entry.lastUsed,
		})
	}
	return stats
}

// SetCacheConfig changes the cache bounds. Shrinking evicts least recently
// used entries until the new size is respected.
func (r *Registry) SetCacheConfig(ctx context.Context, cfg CacheConfig) error {
	if cfg.MaxSize != nil && *cfg.MaxSize <= 0 {
		return core.NewError(
			fmt.Errorf("cache max size must be positive, got %d", *cfg.MaxSize),
			core.ErrCodeAgentInvalidConfig,
			nil,
		)
	}
	if cfg.Expiration != nil && *cfg.Expiration <= 0 {
		return core.NewError(
			fmt.Errorf("cache expiration must be positive, got %s", *cfg.Expiration),
			core.ErrCodeAgentInvalidConfig,
			nil,
		)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if cfg.MaxSize != nil {
		r.maxSize = *cfg.MaxSize
		if evicted := r.cache.Resize(r.maxSize); evicted > 0 {
			r.metrics.evicted(ctx, int64(evicted))
		}
	}
	if cfg.Expiration != nil {
		r.expiration = *cfg.Expiration
	}
	logger.FromContext(ctx).Info("Agent cache reconfigured", "max_size", r.maxSize, "expiration", r.expiration)
	return nil
}

// ClearCache drops every cached instance. Configs are kept.
func (r *Registry) ClearCache(ctx context.Context) int {
	r.mu.Lock()
	n := r.cache.Len()
	r.cache.Purge()
	r.mu.Unlock()
	logger.FromContext(ctx).Info("Agent cache cleared", "removed", n)
	return n
}
