// Package runner drives a single agent invocation end to end: it resolves
// the agent instance, opens an execution record, resumes the thread from a
// checkpoint, runs the agent under the record's cancellation handle and a
// timeout, and reports the outcome back to the tracker.
package runner

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/DavinciDreams/agents-of-empires-sub001/engine/agent"
	"github.com/DavinciDreams/agents-of-empires-sub001/engine/checkpoint"
	"github.com/DavinciDreams/agents-of-empires-sub001/engine/core"
	"github.com/DavinciDreams/agents-of-empires-sub001/engine/execution"
	"github.com/DavinciDreams/agents-of-empires-sub001/pkg/logger"
	"github.com/google/uuid"
)

const DefaultTimeout = 5 * time.Minute

var (
	errTimeout      = errors.New("execution timeout")
	errStreamClosed = errors.New("stream closed")
)

// Agents is the subset of the agent registry the runner needs.
type Agents interface {
	Get(ctx context.Context, id string) (agent.Instance, error)
	Config(id string) (*agent.Config, bool)
}

type Request struct {
	AgentID      string          `json:"agent_id"`
	Messages     []agent.Message `json:"messages"`
	ThreadID     string          `json:"thread_id,omitempty"`
	CheckpointID string          `json:"checkpoint_id,omitempty"`
	// OnStart is called with the new record before the agent runs.
	OnStart func(rec execution.Record) `json:"-"`
}

type Result struct {
	ExecutionID  core.ID          `json:"exec_id"`
	AgentID      string           `json:"agent_id"`
	ThreadID     string           `json:"thread_id"`
	CheckpointID string           `json:"checkpoint_id,omitempty"`
	Status       execution.Status `json:"status"`
	Output       *agent.Output    `json:"output,omitempty"`
}

type Option func(*Runner)

func WithTimeout(d time.Duration) Option {
	return func(r *Runner) {
		if d > 0 {
			r.timeout = d
		}
	}
}

// WithCheckpointStore enables resuming and saving threads for agents that
// have checkpointing turned on.
func WithCheckpointStore(store checkpoint.Store) Option {
	return func(r *Runner) {
		r.checkpoints = store
	}
}

type Runner struct {
	agents      Agents
	tracker     *execution.Tracker
	checkpoints checkpoint.Store
	timeout     time.Duration
}

func NewRunner(agents Agents, tracker *execution.Tracker, opts ...Option) *Runner {
	r := &Runner{
		agents:  agents,
		tracker: tracker,
		timeout: DefaultTimeout,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Runner) Timeout() time.Duration {
	return r.timeout
}

// Execute runs the agent synchronously and returns its output.
func (r *Runner) Execute(ctx context.Context, req *Request) (*Result, error) {
	return r.run(ctx, req, func(ctx context.Context, inst agent.Instance, input *agent.Input, _ *runState) (*agent.Output, error) {
		return inst.Invoke(ctx, input)
	})
}

// Stream runs the agent and forwards every chunk to fn. Each chunk also
// advances the execution's progress. fn is never called after Stream
// returns.
func (r *Runner) Stream(ctx context.Context, req *Request, fn agent.StreamFunc) (*Result, error) {
	return r.run(ctx, req, func(ctx context.Context, inst agent.Instance, input *agent.Input, state *runState) (*agent.Output, error) {
		chunks := 0
		step := "streaming"
		return inst.Stream(ctx, input, func(ctx context.Context, chunk []byte) error {
			state.mu.Lock()
			defer state.mu.Unlock()
			if state.closed {
				return errStreamClosed
			}
			chunks++
			r.tracker.UpdateProgress(ctx, state.execID, execution.ProgressUpdate{
				CurrentStep:    &step,
				StepsCompleted: &chunks,
			})
			return fn(ctx, chunk)
		})
	})
}

// Cancel cancels a running execution.
func (r *Runner) Cancel(ctx context.Context, id core.ID) error {
	if r.tracker.Cancel(ctx, id) {
		return nil
	}
	rec, ok := r.tracker.Get(id)
	if !ok {
		return core.NewError(
			fmt.Errorf("execution %s not found", id),
			core.ErrCodeExecutionNotFound,
			map[string]any{"exec_id": id.String()},
		)
	}
	return core.NewError(
		fmt.Errorf("execution %s is not running", id),
		core.ErrCodeExecutionInvalidState,
		map[string]any{"exec_id": id.String(), "status": rec.Status.String()},
	)
}

type invokeFunc func(ctx context.Context, inst agent.Instance, input *agent.Input, state *runState) (*agent.Output, error)

// runState fences stream callbacks off once run has returned.
type runState struct {
	mu     sync.Mutex
	closed bool
	execID core.ID
}

func (s *runState) close() {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
}

type invokeResult struct {
	out *agent.Output
	err error
}

func (r *Runner) run(ctx context.Context, req *Request, invoke invokeFunc) (*Result, error) {
	if req == nil {
		return nil, fmt.Errorf("request is required")
	}
	inst, err := r.agents.Get(ctx, req.AgentID)
	if err != nil {
		return nil, err
	}
	cfg, ok := r.agents.Config(req.AgentID)
	if !ok {
		return nil, core.NewError(
			fmt.Errorf("agent %q not found", req.AgentID),
			core.ErrCodeAgentNotFound,
			map[string]any{"agent_id": req.AgentID},
		)
	}
	history, err := r.resume(ctx, cfg, req)
	if err != nil {
		return nil, err
	}
	threadID := req.ThreadID
	if threadID == "" && history != nil {
		threadID = history.ThreadID
	}
	if threadID == "" {
		threadID = uuid.NewString()
	}
	resumedFrom := ""
	var messages []agent.Message
	if history != nil {
		resumedFrom = history.ID
		messages = append(messages, history.Messages...)
	}
	messages = append(messages, req.Messages...)

	rec := r.tracker.Start(ctx, cfg.ID, threadID, req, resumedFrom)
	if req.OnStart != nil {
		req.OnStart(rec)
	}
	log := logger.FromContext(ctx).With("exec_id", rec.ID, "agent_id", cfg.ID, "thread_id", threadID)
	result := &Result{
		ExecutionID:  rec.ID,
		AgentID:      cfg.ID,
		ThreadID:     threadID,
		CheckpointID: resumedFrom,
	}

	runCtx, cancel := context.WithTimeoutCause(rec.Context(), r.timeout, errTimeout)
	defer cancel()
	stopOnCallerDone := context.AfterFunc(ctx, func() {
		r.tracker.Cancel(context.WithoutCancel(ctx), rec.ID)
	})
	defer stopOnCallerDone()

	state := &runState{execID: rec.ID}
	done := make(chan invokeResult, 1)
	go func() {
		out, err := invoke(runCtx, inst, &agent.Input{Messages: messages, ThreadID: threadID}, state)
		done <- invokeResult{out: out, err: err}
	}()

	var res invokeResult
	select {
	case res = <-done:
	case <-runCtx.Done():
		res = invokeResult{err: context.Cause(runCtx)}
	}
	state.close()

	switch {
	case errors.Is(context.Cause(rec.Context()), execution.ErrCancelled):
		log.Info("Discarding result of cancelled execution")
		return nil, r.cancelledError(rec.ID)
	case res.err != nil && errors.Is(context.Cause(runCtx), errTimeout):
		r.tracker.TimeOut(ctx, rec.ID, r.timeout)
		return nil, core.NewError(
			fmt.Errorf("execution exceeded timeout of %s", r.timeout),
			core.ErrCodeExecutionTimeout,
			map[string]any{"exec_id": rec.ID.String(), "timeout": r.timeout.String()},
		)
	case res.err != nil:
		r.tracker.Fail(ctx, rec.ID, res.err.Error())
		return nil, res.err
	}

	result.Output = res.out
	if saved := r.save(ctx, cfg, threadID, messages, res.out); saved != "" {
		result.CheckpointID = saved
	}
	r.tracker.Complete(ctx, rec.ID, result.CheckpointID)
	final, ok := r.tracker.Get(rec.ID)
	if ok && final.Status == execution.StatusCancelled {
		return nil, r.cancelledError(rec.ID)
	}
	result.Status = execution.StatusCompleted
	log.Debug("Execution finished", "checkpoint_id", result.CheckpointID)
	return result, nil
}

// resume loads the conversation to continue. An explicit checkpoint id must
// exist; otherwise checkpointing agents pick up the thread's latest one.
func (r *Runner) resume(ctx context.Context, cfg *agent.Config, req *Request) (*checkpoint.Checkpoint, error) {
	if r.checkpoints == nil {
		return nil, nil
	}
	if req.CheckpointID != "" {
		cp, err := r.checkpoints.Load(ctx, req.CheckpointID)
		if errors.Is(err, checkpoint.ErrCheckpointNotFound) {
			return nil, core.NewError(err, core.ErrCodeCheckpointNotFound, map[string]any{
				"checkpoint_id": req.CheckpointID,
			})
		}
		if err != nil {
			return nil, fmt.Errorf("failed to load checkpoint %s: %w", req.CheckpointID, err)
		}
		return cp, nil
	}
	if !cfg.Checkpoint || req.ThreadID == "" {
		return nil, nil
	}
	cp, err := r.checkpoints.Latest(ctx, req.ThreadID)
	if errors.Is(err, checkpoint.ErrCheckpointNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load latest checkpoint for thread %s: %w", req.ThreadID, err)
	}
	return cp, nil
}

// save persists the conversation after a successful run. Failures are
// logged and the execution still completes.
func (r *Runner) save(
	ctx context.Context,
	cfg *agent.Config,
	threadID string,
	input []agent.Message,
	out *agent.Output,
) string {
	if r.checkpoints == nil || !cfg.Checkpoint || out == nil {
		return ""
	}
	messages := out.Messages
	if len(messages) == 0 {
		messages = append(append([]agent.Message{}, input...), agent.Message{
			Role:    agent.RoleAssistant,
			Content: out.Content,
		})
	}
	cp := &checkpoint.Checkpoint{AgentID: cfg.ID, ThreadID: threadID, Messages: messages}
	if err := r.checkpoints.Save(ctx, cp); err != nil {
		logger.FromContext(ctx).Warn("Failed to save checkpoint", "agent_id", cfg.ID, "thread_id", threadID, "error", err)
		return ""
	}
	return cp.ID
}

func (r *Runner) cancelledError(id core.ID) error {
	return core.NewError(
		fmt.Errorf("execution %s was cancelled", id),
		core.ErrCodeExecutionCancelled,
		map[string]any{"exec_id": id.String()},
	)
}
