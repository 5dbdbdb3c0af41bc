package checkpoint

import (
	"testing"
	"time"

	"github.com/DavinciDreams/agents-of-empires-sub001/engine/agent"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRedisStore(t *testing.T, ttl time.Duration) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()
	srv := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: srv.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisStore(client, "test:cp:", ttl), srv
}

func sampleCheckpoint() *Checkpoint {
	return &Checkpoint{
		AgentID:  "scout",
		ThreadID: "thread-1",
		Messages: []agent.Message{
			{Role: agent.RoleUser, Content: "scout north"},
			{Role: agent.RoleAssistant, Content: "found gold"},
		},
	}
}

func TestStores(t *testing.T) {
	stores := map[string]func(t *testing.T) Store{
		"redis":  func(t *testing.T) Store { s, _ := newRedisStore(t, 0); return s },
		"memory": func(*testing.T) Store { return NewMemoryStore() },
	}
	for name, newStore := range stores {
		t.Run(name, func(t *testing.T) {
			t.Run("Should assign an id and load what was saved", func(t *testing.T) {
				store := newStore(t)
				cp := sampleCheckpoint()
				require.NoError(t, store.Save(t.Context(), cp))
				require.NotEmpty(t, cp.ID)
				require.False(t, cp.CreatedAt.IsZero())

				got, err := store.Load(t.Context(), cp.ID)
				require.NoError(t, err)
				assert.Equal(t, cp.AgentID, got.AgentID)
				assert.Equal(t, cp.Messages, got.Messages)
				assert.True(t, cp.CreatedAt.Equal(got.CreatedAt))
			})

			t.Run("Should return the latest checkpoint of a thread", func(t *testing.T) {
				store := newStore(t)
				first := sampleCheckpoint()
				require.NoError(t, store.Save(t.Context(), first))
				second := sampleCheckpoint()
				second.Messages = append(second.Messages, agent.Message{Role: agent.RoleUser, Content: "again"})
				require.NoError(t, store.Save(t.Context(), second))

				got, err := store.Latest(t.Context(), "thread-1")
				require.NoError(t, err)
				assert.Equal(t, second.ID, got.ID)
				assert.Len(t, got.Messages, 3)
			})

			t.Run("Should report missing checkpoints", func(t *testing.T) {
				store := newStore(t)
				_, err := store.Load(t.Context(), "missing")
				assert.ErrorIs(t, err, ErrCheckpointNotFound)
				_, err = store.Latest(t.Context(), "no-thread")
				assert.ErrorIs(t, err, ErrCheckpointNotFound)
			})

			t.Run("Should delete checkpoints", func(t *testing.T) {
				store := newStore(t)
				cp := sampleCheckpoint()
				require.NoError(t, store.Save(t.Context(), cp))
				require.NoError(t, store.Delete(t.Context(), cp.ID))
				_, err := store.Load(t.Context(), cp.ID)
				assert.ErrorIs(t, err, ErrCheckpointNotFound)
				assert.NoError(t, store.Delete(t.Context(), cp.ID))
			})
		})
	}
}

func TestRedisStore(t *testing.T) {
	t.Run("Should store JSON under the prefixed key with a TTL", func(t *testing.T) {
		store, srv := newRedisStore(t, time.Hour)
		cp := sampleCheckpoint()
		require.NoError(t, store.Save(t.Context(), cp))

		assert.True(t, srv.Exists("test:cp:"+cp.ID))
		assert.Equal(t, time.Hour, srv.TTL("test:cp:"+cp.ID))
		id, err := srv.Get("test:cp:thread:thread-1")
		require.NoError(t, err)
		assert.Equal(t, cp.ID, id)
	})

	t.Run("Should expire checkpoints after the TTL", func(t *testing.T) {
		store, srv := newRedisStore(t, time.Minute)
		cp := sampleCheckpoint()
		require.NoError(t, store.Save(t.Context(), cp))
		srv.FastForward(2 * time.Minute)
		_, err := store.Load(t.Context(), cp.ID)
		assert.ErrorIs(t, err, ErrCheckpointNotFound)
	})

	t.Run("Should surface decode failures", func(t *testing.T) {
		store, srv := newRedisStore(t, 0)
		require.NoError(t, srv.Set("test:cp:broken", "{not json"))
		_, err := store.Load(t.Context(), "broken")
		assert.ErrorContains(t, err, "decode checkpoint broken")
	})
}
