package execrouter

import (
	"time"

	"github.com/DavinciDreams/agents-of-empires-sub001/engine/execution"
)

// ExecutionDTO is the transport view of an execution record.
type ExecutionDTO struct {
	ExecID       string              `json:"exec_id"`
	AgentID      string              `json:"agent_id"`
	ThreadID     string              `json:"thread_id"`
	CheckpointID string              `json:"checkpoint_id,omitempty"`
	Status       execution.Status    `json:"status"`
	StartedAt    time.Time           `json:"started_at"`
	CompletedAt  *time.Time          `json:"completed_at,omitempty"`
	DurationMS   int64               `json:"duration_ms"`
	Error        string              `json:"error,omitempty"`
	Progress     *execution.Progress `json:"progress,omitempty"`
}

func NewExecutionDTO(rec *execution.Record, now time.Time) ExecutionDTO {
	return ExecutionDTO{
		ExecID:       rec.ID.String(),
		AgentID:      rec.AgentID,
		ThreadID:     rec.ThreadID,
		CheckpointID: rec.CheckpointID,
		Status:       rec.Status,
		StartedAt:    rec.StartedAt,
		CompletedAt:  rec.CompletedAt,
		DurationMS:   rec.Duration(now).Milliseconds(),
		Error:        rec.Error,
		Progress:     rec.Progress,
	}
}

func NewExecutionDTOs(recs []execution.Record, now time.Time) []ExecutionDTO {
	out := make([]ExecutionDTO, 0, len(recs))
	for i := range recs {
		out = append(out, NewExecutionDTO(&recs[i], now))
	}
	return out
}
