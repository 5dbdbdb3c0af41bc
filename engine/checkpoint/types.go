// Package checkpoint persists conversation snapshots so a thread can be
// resumed by a later execution.
package checkpoint

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/DavinciDreams/agents-of-empires-sub001/engine/agent"
	"github.com/google/uuid"
)

var ErrCheckpointNotFound = errors.New("checkpoint not found")

// Checkpoint is the saved conversation of one thread after an execution.
type Checkpoint struct {
	ID        string          `json:"id"`
	AgentID   string          `json:"agent_id"`
	ThreadID  string          `json:"thread_id"`
	Messages  []agent.Message `json:"messages"`
	CreatedAt time.Time       `json:"created_at"`
}

// Store saves and loads checkpoints by id. Save assigns an id and creation
// time when they are empty.
type Store interface {
	Save(ctx context.Context, cp *Checkpoint) error
	Load(ctx context.Context, id string) (*Checkpoint, error)
	// Latest returns the most recent checkpoint saved for threadID.
	Latest(ctx context.Context, threadID string) (*Checkpoint, error)
	Delete(ctx context.Context, id string) error
}

func prepare(cp *Checkpoint, now time.Time) error {
	if cp == nil {
		return fmt.Errorf("checkpoint is required")
	}
	if cp.ID == "" {
		id, err := uuid.NewV7()
		if err != nil {
			return fmt.Errorf("generate checkpoint id: %w", err)
		}
		cp.ID = id.String()
	}
	if cp.CreatedAt.IsZero() {
		cp.CreatedAt = now.UTC()
	}
	return nil
}
