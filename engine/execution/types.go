package execution

import (
	"context"
	"errors"
	"time"

	"github.com/DavinciDreams/agents-of-empires-sub001/engine/core"
)

// Status is the lifecycle state of an execution. Running is the only
// initial state and every other status is terminal.
type Status string

const (
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
	StatusCancelled Status = "cancelled"
	StatusTimedOut  Status = "timed_out"
)

func (s Status) String() string {
	return string(s)
}

func (s Status) IsTerminal() bool {
	switch s {
	case StatusCompleted, StatusFailed, StatusCancelled, StatusTimedOut:
		return true
	default:
		return false
	}
}

var (
	// ErrCancelled is the cancellation cause recorded when Cancel is called.
	ErrCancelled = errors.New("execution cancelled")
	// ErrFinished is the cause used to release the handle after any other
	// terminal transition.
	ErrFinished = errors.New("execution finished")
)

type Progress struct {
	CurrentStep    string `json:"current_step,omitempty"`
	StepsCompleted int    `json:"steps_completed"`
	TotalSteps     int    `json:"total_steps,omitempty"`
}

// ProgressUpdate carries the fields to merge into Progress; nil fields are
// left untouched.
type ProgressUpdate struct {
	CurrentStep    *string `json:"current_step,omitempty"`
	StepsCompleted *int    `json:"steps_completed,omitempty"`
	TotalSteps     *int    `json:"total_steps,omitempty"`
}

// Record is a snapshot of one agent invocation. Values returned by the
// Tracker are copies; mutate state only through Tracker methods.
type Record struct {
	ID           core.ID    `json:"id"`
	AgentID      string     `json:"agent_id"`
	ThreadID     string     `json:"thread_id"`
	CheckpointID string     `json:"checkpoint_id,omitempty"`
	Status       Status     `json:"status"`
	StartedAt    time.Time  `json:"started_at"`
	CompletedAt  *time.Time `json:"completed_at,omitempty"`
	Error        string     `json:"error,omitempty"`
	Progress     *Progress  `json:"progress,omitempty"`
	Request      any        `json:"request,omitempty"`

	ctx    context.Context
	cancel context.CancelCauseFunc
}

// Context is the cancellation handle owned by the record. Long-running work
// for this execution should observe it at every suspension point.
func (r Record) Context() context.Context {
	if r.ctx == nil {
		return context.Background()
	}
	return r.ctx
}

func (r Record) IsRunning() bool {
	return r.Status == StatusRunning
}

// Duration is the elapsed time between start and completion, or until now
// for running records.
func (r Record) Duration(now time.Time) time.Duration {
	if r.CompletedAt != nil {
		return r.CompletedAt.Sub(r.StartedAt)
	}
	return now.Sub(r.StartedAt)
}

func (r *Record) snapshot() Record {
	out := *r
	if r.CompletedAt != nil {
		completed := *r.CompletedAt
		out.CompletedAt = &completed
	}
	if r.Progress != nil {
		progress := *r.Progress
		out.Progress = &progress
	}
	return out
}

// Stats counts tracked records per status.
type Stats struct {
	Total     int `json:"total"`
	Running   int `json:"running"`
	Completed int `json:"completed"`
	Failed    int `json:"failed"`
	Cancelled int `json:"cancelled"`
	TimedOut  int `json:"timed_out"`
}

// Done is closed when the execution is cancelled or reaches any terminal
// status.
func (r Record) Done() <-chan struct{} {
	return r.Context().Done()
}
