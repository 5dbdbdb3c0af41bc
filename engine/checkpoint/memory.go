package checkpoint

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"
)

// MemoryStore is a process-local Store.
type MemoryStore struct {
	mu       sync.RWMutex
	items    map[string]*Checkpoint
	byThread map[string]string
	now      func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		items:    make(map[string]*Checkpoint),
		byThread: make(map[string]string),
		now:      time.Now,
	}
}

func (s *MemoryStore) Save(_ context.Context, cp *Checkpoint) error {
	if err := prepare(cp, s.now()); err != nil {
		return err
	}
	stored := *cp
	stored.Messages = slices.Clone(cp.Messages)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[cp.ID] = &stored
	if cp.ThreadID != "" {
		s.byThread[cp.ThreadID] = cp.ID
	}
	return nil
}

func (s *MemoryStore) Load(_ context.Context, id string) (*Checkpoint, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loadLocked(id)
}

func (s *MemoryStore) loadLocked(id string) (*Checkpoint, error) {
	cp, ok := s.items[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrCheckpointNotFound, id)
	}
	out := *cp
	out.Messages = slices.Clone(cp.Messages)
	return &out, nil
}

func (s *MemoryStore) Latest(_ context.Context, threadID string) (*Checkpoint, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.byThread[threadID]
	if !ok {
		return nil, fmt.Errorf("%w: no checkpoint for thread %s", ErrCheckpointNotFound, threadID)
	}
	return s.loadLocked(id)
}

func (s *MemoryStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.items, id)
	return nil
}
