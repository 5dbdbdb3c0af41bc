package agent

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/DavinciDreams/agents-of-empires-sub001/engine/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubInstance struct {
	agentID string
	build   int64
}

func (s *stubInstance) Invoke(_ context.Context, _ *Input) (*Output, error) {
	return &Output{Content: s.agentID}, nil
}

func (s *stubInstance) Stream(ctx context.Context, input *Input, fn StreamFunc) (*Output, error) {
	if err := fn(ctx, []byte(s.agentID)); err != nil {
		return nil, err
	}
	return s.Invoke(ctx, input)
}

type countingBuilder struct {
	builds atomic.Int64
	delay  time.Duration
	err    error
}

func (b *countingBuilder) Build(_ context.Context, cfg *Config) (Instance, error) {
	n := b.builds.Add(1)
	if b.delay > 0 {
		time.Sleep(b.delay)
	}
	if b.err != nil {
		return nil, b.err
	}
	return &stubInstance{agentID: cfg.ID, build: n}, nil
}

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func testConfig(id string) *Config {
	return &Config{
		ID:           id,
		Name:         "Agent " + id,
		Model:        core.ProviderConfig{Provider: core.ProviderMock, Model: "echo"},
		SystemPrompt: "You are a helpful unit.",
	}
}

func newTestRegistry(t *testing.T, builder Builder, opts ...RegistryOption) (*Registry, *testClock) {
	t.Helper()
	clock := &testClock{now: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	r, err := NewRegistry(builder, append([]RegistryOption{WithRegistryClock(clock.Now)}, opts...)...)
	require.NoError(t, err)
	return r, clock
}

func registerAll(t *testing.T, r *Registry, ids ...string) {
	t.Helper()
	for _, id := range ids {
		require.NoError(t, r.Register(t.Context(), testConfig(id)))
	}
}

func cachedIDs(r *Registry) []string {
	stats := r.CacheStats()
	ids := make([]string, 0, len(stats.Entries))
	for _, e := range stats.Entries {
		ids = append(ids, e.AgentID)
	}
	return ids
}

func TestRegistry_Get(t *testing.T) {
	t.Run("Should build once and reuse the cached instance", func(t *testing.T) {
		builder := &countingBuilder{}
		r, clock := newTestRegistry(t, builder)
		registerAll(t, r, "scout")

		first, err := r.Get(t.Context(), "scout")
		require.NoError(t, err)
		clock.Advance(time.Minute)
		second, err := r.Get(t.Context(), "scout")
		require.NoError(t, err)

		assert.Same(t, first, second)
		assert.Equal(t, int64(1), builder.builds.Load())
		stats := r.CacheStats()
		require.Len(t, stats.Entries, 1)
		assert.Equal(t, int64(2), stats.Entries[0].UsageCount)
		assert.Equal(t, clock.Now(), stats.Entries[0].LastUsed)
		assert.Equal(t, time.Minute, stats.Entries[0].Age)
	})

	t.Run("Should fail with not found without building anything", func(t *testing.T) {
		builder := &countingBuilder{}
		r, _ := newTestRegistry(t, builder)

		_, err := r.Get(t.Context(), "ghost")

		require.Error(t, err)
		assert.True(t, core.HasCode(err, core.ErrCodeAgentNotFound))
		assert.Equal(t, int64(0), builder.builds.Load())
	})

	t.Run("Should propagate build errors unchanged and not cache them", func(t *testing.T) {
		buildErr := core.NewError(errors.New("OPENAI_API_KEY is not set"), core.ErrCodeMissingCredentials, nil)
		builder := &countingBuilder{err: buildErr}
		r, _ := newTestRegistry(t, builder)
		registerAll(t, r, "scout")

		_, err := r.Get(t.Context(), "scout")
		assert.Same(t, buildErr, err)
		_, err = r.Get(t.Context(), "scout")
		assert.Same(t, buildErr, err)
		assert.Equal(t, int64(2), builder.builds.Load())
		assert.Equal(t, 0, r.CacheStats().Size)
	})

	t.Run("Should rebuild an expired entry even when it was just used", func(t *testing.T) {
		builder := &countingBuilder{}
		r, clock := newTestRegistry(t, builder, WithCacheExpiration(time.Hour))
		registerAll(t, r, "scout")

		stale, err := r.Get(t.Context(), "scout")
		require.NoError(t, err)
		clock.Advance(59 * time.Minute)
		_, err = r.Get(t.Context(), "scout")
		require.NoError(t, err)
		clock.Advance(2 * time.Minute)

		fresh, err := r.Get(t.Context(), "scout")
		require.NoError(t, err)

		assert.NotSame(t, stale, fresh)
		assert.Equal(t, int64(2), builder.builds.Load())
		stats := r.CacheStats()
		require.Len(t, stats.Entries, 1)
		assert.Equal(t, time.Duration(0), stats.Entries[0].Age)
	})

	t.Run("Should share one build between concurrent misses", func(t *testing.T) {
		builder := &countingBuilder{delay: 50 * time.Millisecond}
		r, _ := newTestRegistry(t, builder)
		registerAll(t, r, "scout")

		const callers = 16
		instances := make([]Instance, callers)
		var wg sync.WaitGroup
		for i := range callers {
			wg.Add(1)
			go func() {
				defer wg.Done()
				inst, err := r.Get(context.Background(), "scout")
				assert.NoError(t, err)
				instances[i] = inst
			}()
		}
		wg.Wait()

		assert.Equal(t, int64(1), builder.builds.Load())
		for _, inst := range instances {
			assert.Same(t, instances[0], inst)
		}
	})
}

func TestRegistry_Eviction(t *testing.T) {
	t.Run("Should evict the least recently used entry, not the oldest", func(t *testing.T) {
		builder := &countingBuilder{}
		r, clock := newTestRegistry(t, builder, WithCacheMaxSize(2))
		registerAll(t, r, "a", "b", "c")

		_, err := r.Get(t.Context(), "a")
		require.NoError(t, err)
		clock.Advance(time.Second)
		_, err = r.Get(t.Context(), "b")
		require.NoError(t, err)
		clock.Advance(time.Second)
		_, err = r.Get(t.Context(), "a")
		require.NoError(t, err)
		clock.Advance(time.Second)
		_, err = r.Get(t.Context(), "c")
		require.NoError(t, err)

		assert.ElementsMatch(t, []string{"a", "c"}, cachedIDs(r))
		assert.Equal(t, 2, r.CacheStats().Size)
	})

	t.Run("Should shrink to the new bound in LRU order", func(t *testing.T) {
		builder := &countingBuilder{}
		r, _ := newTestRegistry(t, builder, WithCacheMaxSize(4))
		registerAll(t, r, "a", "b", "c", "d")
		for _, id := range []string{"a", "b", "c", "d", "a"} {
			_, err := r.Get(t.Context(), id)
			require.NoError(t, err)
		}

		size := 2
		require.NoError(t, r.SetCacheConfig(t.Context(), CacheConfig{MaxSize: &size}))

		assert.Equal(t, []string{"d", "a"}, cachedIDs(r))
		assert.Equal(t, 2, r.CacheStats().MaxSize)
	})

	t.Run("Should reject non-positive bounds", func(t *testing.T) {
		r, _ := newTestRegistry(t, &countingBuilder{})
		zero := 0
		err := r.SetCacheConfig(t.Context(), CacheConfig{MaxSize: &zero})
		assert.True(t, core.HasCode(err, core.ErrCodeAgentInvalidConfig))
		neg := -time.Second
		err = r.SetCacheConfig(t.Context(), CacheConfig{Expiration: &neg})
		assert.True(t, core.HasCode(err, core.ErrCodeAgentInvalidConfig))
	})

	t.Run("Should apply a shorter expiration to existing entries", func(t *testing.T) {
		builder := &countingBuilder{}
		r, clock := newTestRegistry(t, builder)
		registerAll(t, r, "a")
		_, err := r.Get(t.Context(), "a")
		require.NoError(t, err)

		exp := time.Minute
		require.NoError(t, r.SetCacheConfig(t.Context(), CacheConfig{Expiration: &exp}))
		clock.Advance(2 * time.Minute)
		_, err = r.Get(t.Context(), "a")
		require.NoError(t, err)

		assert.Equal(t, int64(2), builder.builds.Load())
	})
}

func TestRegistry_Registration(t *testing.T) {
	t.Run("Should evict the cached instance on unregister", func(t *testing.T) {
		r, _ := newTestRegistry(t, &countingBuilder{})
		registerAll(t, r, "scout")
		_, err := r.Get(t.Context(), "scout")
		require.NoError(t, err)

		assert.True(t, r.Unregister(t.Context(), "scout"))
		assert.False(t, r.Unregister(t.Context(), "scout"))
		assert.Equal(t, 0, r.CacheStats().Size)
		_, err = r.Get(t.Context(), "scout")
		assert.True(t, core.HasCode(err, core.ErrCodeAgentNotFound))
	})

	t.Run("Should rebuild after the config is replaced", func(t *testing.T) {
		builder := &countingBuilder{}
		r, _ := newTestRegistry(t, builder)
		registerAll(t, r, "scout")
		before, err := r.Get(t.Context(), "scout")
		require.NoError(t, err)

		cfg := testConfig("scout")
		cfg.SystemPrompt = "You scout ahead."
		require.NoError(t, r.Register(t.Context(), cfg))
		after, err := r.Get(t.Context(), "scout")
		require.NoError(t, err)

		assert.NotSame(t, before, after)
		stored, ok := r.Config("scout")
		require.True(t, ok)
		assert.Equal(t, "You scout ahead.", stored.SystemPrompt)
	})

	t.Run("Should keep its own copy of the config", func(t *testing.T) {
		r, _ := newTestRegistry(t, &countingBuilder{})
		cfg := testConfig("scout")
		cfg.Skills = []string{"mapping"}
		require.NoError(t, r.Register(t.Context(), cfg))
		cfg.Skills[0] = "mutated"

		stored, ok := r.Config("scout")
		require.True(t, ok)
		assert.Equal(t, []string{"mapping"}, stored.Skills)
	})

	t.Run("Should reject invalid configs", func(t *testing.T) {
		r, _ := newTestRegistry(t, &countingBuilder{})
		cfg := testConfig("scout")
		cfg.Model.Provider = "carrier-pigeon"
		err := r.Register(t.Context(), cfg)
		assert.True(t, core.HasCode(err, core.ErrCodeAgentInvalidConfig))
		assert.Empty(t, r.Configs())
	})

	t.Run("Should clear cached instances but keep configs", func(t *testing.T) {
		r, _ := newTestRegistry(t, &countingBuilder{})
		registerAll(t, r, "a", "b")
		_, _ = r.Get(t.Context(), "a")
		_, _ = r.Get(t.Context(), "b")

		assert.Equal(t, 2, r.ClearCache(t.Context()))
		assert.Equal(t, 0, r.CacheStats().Size)
		assert.Len(t, r.Configs(), 2)
	})
}
