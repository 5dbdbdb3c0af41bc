package checkpoint

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const DefaultKeyPrefix = "aoe:checkpoint:"

// RedisStore keeps each checkpoint as a JSON string under <prefix><id>, and
// the latest checkpoint id of each thread under <prefix>thread:<thread_id>.
type RedisStore struct {
	client redis.Cmdable
	prefix string
	ttl    time.Duration
	now    func() time.Time
}

// NewRedisStore creates a store; ttl <= 0 keeps checkpoints forever.
func NewRedisStore(client redis.Cmdable, prefix string, ttl time.Duration) *RedisStore {
	if prefix == "" {
		prefix = DefaultKeyPrefix
	}
	if ttl < 0 {
		ttl = 0
	}
	return &RedisStore{client: client, prefix: prefix, ttl: ttl, now: time.Now}
}

func (s *RedisStore) key(id string) string {
	return s.prefix + id
}

func (s *RedisStore) threadKey(threadID string) string {
	return s.prefix + "thread:" + threadID
}

func (s *RedisStore) Save(ctx context.Context, cp *Checkpoint) error {
	if err := prepare(cp, s.now()); err != nil {
		return err
	}
	payload, err := json.Marshal(cp)
	if err != nil {
		return fmt.Errorf("marshal checkpoint %s: %w", cp.ID, err)
	}
	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, s.key(cp.ID), payload, s.ttl)
		if cp.ThreadID != "" {
			pipe.Set(ctx, s.threadKey(cp.ThreadID), cp.ID, s.ttl)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("save checkpoint %s: %w", cp.ID, err)
	}
	return nil
}

func (s *RedisStore) Load(ctx context.Context, id string) (*Checkpoint, error) {
	payload, err := s.client.Get(ctx, s.key(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("%w: %s", ErrCheckpointNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("load checkpoint %s: %w", id, err)
	}
	var cp Checkpoint
	if err := json.Unmarshal(payload, &cp); err != nil {
		return nil, fmt.Errorf("decode checkpoint %s: %w", id, err)
	}
	return &cp, nil
}

func (s *RedisStore) Latest(ctx context.Context, threadID string) (*Checkpoint, error) {
	id, err := s.client.Get(ctx, s.threadKey(threadID)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("%w: no checkpoint for thread %s", ErrCheckpointNotFound, threadID)
	}
	if err != nil {
		return nil, fmt.Errorf("load thread %s checkpoint: %w", threadID, err)
	}
	return s.Load(ctx, id)
}

func (s *RedisStore) Delete(ctx context.Context, id string) error {
	if err := s.client.Del(ctx, s.key(id)).Err(); err != nil {
		return fmt.Errorf("delete checkpoint %s: %w", id, err)
	}
	return nil
}
