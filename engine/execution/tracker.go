// Package execution tracks running and finished agent invocations in memory
// so they can be looked up by execution, thread or checkpoint id and
// cancelled while they run.
package execution

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/DavinciDreams/agents-of-empires-sub001/engine/core"
	"github.com/DavinciDreams/agents-of-empires-sub001/pkg/logger"
	"go.opentelemetry.io/otel/metric"
)

const (
	DefaultRetention       = 1 * time.Hour
	DefaultCleanupInterval = 5 * time.Minute
	defaultAuditTimeout    = 5 * time.Second
)

type Option func(*Tracker)

func WithAuditSink(sink AuditSink) Option {
	return func(t *Tracker) {
		if sink != nil {
			t.sink = sink
		}
	}
}

// WithClock overrides time.Now, mainly for tests.
func WithClock(now func() time.Time) Option {
	return func(t *Tracker) {
		if now != nil {
			t.now = now
		}
	}
}

func WithRetention(d time.Duration) Option {
	return func(t *Tracker) {
		if d > 0 {
			t.retention = d
		}
	}
}

func WithCleanupInterval(d time.Duration) Option {
	return func(t *Tracker) {
		if d > 0 {
			t.cleanupInterval = d
		}
	}
}

func WithMeter(meter metric.Meter) Option {
	return func(t *Tracker) {
		t.meter = meter
	}
}

// Tracker is the single source of truth for whether an invocation is still
// running. All maps are guarded by mu and only touched by Tracker methods.
type Tracker struct {
	mu           sync.RWMutex
	executions   map[core.ID]*Record
	byThread     map[string]core.ID
	byCheckpoint map[string]core.ID

	sink            AuditSink
	now             func() time.Time
	retention       time.Duration
	cleanupInterval time.Duration
	meter           metric.Meter
	metrics         *trackerMetrics

	auditMu   sync.Mutex
	auditIdle *sync.Cond
	inflight  int
}

func NewTracker(opts ...Option) *Tracker {
	t := &Tracker{
		executions:      make(map[core.ID]*Record),
		byThread:        make(map[string]core.ID),
		byCheckpoint:    make(map[string]core.ID),
		sink:            NopSink(),
		now:             time.Now,
		retention:       DefaultRetention,
		cleanupInterval: DefaultCleanupInterval,
	}
	for _, opt := range opts {
		opt(t)
	}
	t.metrics = newTrackerMetrics(t.meter)
	t.auditIdle = sync.NewCond(&t.auditMu)
	return t
}

// Start registers a new running execution and returns its snapshot. The
// returned record's Context is cancelled by Cancel or by any terminal
// transition.
func (t *Tracker) Start(ctx context.Context, agentID, threadID string, request any, checkpointID string) Record {
	execCtx, cancel := context.WithCancelCause(context.WithoutCancel(ctx))
	rec := &Record{
		ID:           core.MustNewID(),
		AgentID:      agentID,
		ThreadID:     threadID,
		CheckpointID: checkpointID,
		Status:       StatusRunning,
		StartedAt:    t.now(),
		Request:      request,
		ctx:          execCtx,
		cancel:       cancel,
	}
	t.mu.Lock()
	t.executions[rec.ID] = rec
	if threadID != "" {
		t.byThread[threadID] = rec.ID
	}
	if checkpointID != "" {
		t.byCheckpoint[checkpointID] = rec.ID
	}
	snap := rec.snapshot()
	t.mu.Unlock()

	t.metrics.started(ctx, agentID)
	logger.FromContext(ctx).Debug("Execution started",
		"exec_id", rec.ID, "agent_id", agentID, "thread_id", threadID, "checkpoint_id", checkpointID)
	t.audit(ctx, &snap, LogLevelInfo, "Execution started", map[string]any{
		"thread_id":     threadID,
		"checkpoint_id": checkpointID,
	})
	return snap
}

// UpdateProgress merges the non-nil fields of update into the record's
// progress. Unknown ids are ignored.
func (t *Tracker) UpdateProgress(ctx context.Context, id core.ID, update ProgressUpdate) {
	t.mu.Lock()
	rec, ok := t.executions[id]
	if !ok {
		t.mu.Unlock()
		return
	}
	if rec.Progress == nil {
		rec.Progress = &Progress{}
	}
	if update.CurrentStep != nil {
		rec.Progress.CurrentStep = *update.CurrentStep
	}
	if update.StepsCompleted != nil {
		rec.Progress.StepsCompleted = *update.StepsCompleted
	}
	if update.TotalSteps != nil {
		rec.Progress.TotalSteps = *update.TotalSteps
	}
	snap := rec.snapshot()
	t.mu.Unlock()

	t.audit(ctx, &snap, LogLevelDebug, "Progress updated", map[string]any{
		"current_step":    snap.Progress.CurrentStep,
		"steps_completed": snap.Progress.StepsCompleted,
		"total_steps":     snap.Progress.TotalSteps,
	})
}

// Complete marks a running execution as completed. A checkpoint id that
// only became known at the end is attached and indexed here.
func (t *Tracker) Complete(ctx context.Context, id core.ID, checkpointID string) {
	snap, ok := t.finish(id, StatusCompleted, "", func(rec *Record) {
		if checkpointID == "" || checkpointID == rec.CheckpointID {
			return
		}
		previous := rec.CheckpointID
		rec.CheckpointID = checkpointID
		t.byCheckpoint[checkpointID] = rec.ID
		if previous != "" && t.byCheckpoint[previous] == rec.ID {
			t.reindexCheckpointLocked(previous)
		}
	})
	if !ok {
		return
	}
	logger.FromContext(ctx).Debug("Execution completed",
		"exec_id", id, "agent_id", snap.AgentID, "checkpoint_id", snap.CheckpointID)
	t.metrics.finished(ctx, &snap)
	t.audit(ctx, &snap, LogLevelInfo, "Execution completed", map[string]any{
		"checkpoint_id": snap.CheckpointID,
		"duration_ms":   snap.Duration(t.now()).Milliseconds(),
	})
}

// Fail marks a running execution as failed with message.
func (t *Tracker) Fail(ctx context.Context, id core.ID, message string) {
	snap, ok := t.finish(id, StatusFailed, message, nil)
	if !ok {
		return
	}
	logger.FromContext(ctx).Warn("Execution failed", "exec_id", id, "agent_id", snap.AgentID, "error", message)
	t.metrics.finished(ctx, &snap)
	t.audit(ctx, &snap, LogLevelError, "Execution failed", map[string]any{"error": message})
}

// TimeOut marks a running execution as timed out after budget elapsed.
func (t *Tracker) TimeOut(ctx context.Context, id core.ID, budget time.Duration) {
	message := fmt.Sprintf("execution exceeded timeout of %s", budget)
	snap, ok := t.finish(id, StatusTimedOut, message, nil)
	if !ok {
		return
	}
	logger.FromContext(ctx).Warn("Execution timed out", "exec_id", id, "agent_id", snap.AgentID, "timeout", budget)
	t.metrics.finished(ctx, &snap)
	t.audit(ctx, &snap, LogLevelError, "Execution timed out", map[string]any{"timeout_ms": budget.Milliseconds()})
}

// Cancel signals the execution's handle and marks it cancelled. It returns
// false when the id is unknown or the execution is no longer running. The
// status change does not wait for the cancelled work to unwind.
func (t *Tracker) Cancel(ctx context.Context, id core.ID) bool {
	t.mu.Lock()
	rec, ok := t.executions[id]
	if !ok || rec.Status != StatusRunning {
		t.mu.Unlock()
		return false
	}
	rec.cancel(ErrCancelled)
	now := t.now()
	rec.Status = StatusCancelled
	rec.CompletedAt = &now
	snap := rec.snapshot()
	t.mu.Unlock()

	logger.FromContext(ctx).Info("Execution cancelled", "exec_id", id, "agent_id", snap.AgentID)
	t.metrics.finished(ctx, &snap)
	t.audit(ctx, &snap, LogLevelWarn, "Execution cancelled", nil)
	return true
}

// finish applies a terminal transition. Only running records transition;
// the first terminal status wins.
func (t *Tracker) finish(id core.ID, status Status, message string, mutate func(*Record)) (Record, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	rec, ok := t.executions[id]
	if !ok || rec.Status != StatusRunning {
		return Record{}, false
	}
	if mutate != nil {
		mutate(rec)
	}
	now := t.now()
	rec.Status = status
	rec.CompletedAt = &now
	rec.Error = message
	rec.cancel(ErrFinished)
	return rec.snapshot(), true
}

func (t *Tracker) Get(id core.ID) (Record, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	rec, ok := t.executions[id]
	if !ok {
		return Record{}, false
	}
	return rec.snapshot(), true
}

// GetByThread returns the most recently started execution on threadID.
func (t *Tracker) GetByThread(threadID string) (Record, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.lookupLocked(t.byThread, threadID)
}

func (t *Tracker) GetByCheckpoint(checkpointID string) (Record, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.lookupLocked(t.byCheckpoint, checkpointID)
}

func (t *Tracker) lookupLocked(index map[string]core.ID, key string) (Record, bool) {
	id, ok := index[key]
	if !ok {
		return Record{}, false
	}
	rec, ok := t.executions[id]
	if !ok {
		return Record{}, false
	}
	return rec.snapshot(), true
}

// List returns the executions of agentID, newest first. An empty agentID
// lists every execution.
func (t *Tracker) List(agentID string) []Record {
	t.mu.RLock()
	out := make([]Record, 0, len(t.executions))
	for _, rec := range t.executions {
		if agentID != "" && rec.AgentID != agentID {
			continue
		}
		out = append(out, rec.snapshot())
	}
	t.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool {
		if out[i].StartedAt.Equal(out[j].StartedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].StartedAt.After(out[j].StartedAt)
	})
	return out
}

func (t *Tracker) Stats() Stats {
	t.mu.RLock()
	defer t.mu.RUnlock()
	stats := Stats{Total: len(t.executions)}
	for _, rec := range t.executions {
		switch rec.Status {
		case StatusRunning:
			stats.Running++
		case StatusCompleted:
			stats.Completed++
		case StatusFailed:
			stats.Failed++
		case StatusCancelled:
			stats.Cancelled++
		case StatusTimedOut:
			stats.TimedOut++
		}
	}
	return stats
}

// Sweep removes terminal records whose completion is older than the
// retention window. Running records are never removed.
func (t *Tracker) Sweep(now time.Time) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	removed := 0
	for id, rec := range t.executions {
		if !rec.Status.IsTerminal() || rec.CompletedAt == nil {
			continue
		}
		if now.Sub(*rec.CompletedAt) <= t.retention {
			continue
		}
		delete(t.executions, id)
		if rec.ThreadID != "" && t.byThread[rec.ThreadID] == id {
			delete(t.byThread, rec.ThreadID)
		}
		if rec.CheckpointID != "" && t.byCheckpoint[rec.CheckpointID] == id {
			t.reindexCheckpointLocked(rec.CheckpointID)
		}
		removed++
	}
	return removed
}

// reindexCheckpointLocked points checkpointID at the newest tracked record
// that still carries it, or drops the key when none does. A resumed run
// takes over the key of the checkpoint it started from, so the producing
// execution has to get it back once the run moves on.
func (t *Tracker) reindexCheckpointLocked(checkpointID string) {
	var newest *Record
	for _, rec := range t.executions {
		if rec.CheckpointID != checkpointID {
			continue
		}
		if newest == nil || rec.StartedAt.After(newest.StartedAt) ||
			(rec.StartedAt.Equal(newest.StartedAt) && rec.ID > newest.ID) {
			newest = rec
		}
	}
	if newest == nil {
		delete(t.byCheckpoint, checkpointID)
		return
	}
	t.byCheckpoint[checkpointID] = newest.ID
}

// Run sweeps on the cleanup interval until ctx is done.
func (t *Tracker) Run(ctx context.Context) {
	log := logger.FromContext(ctx).With("component", "execution_tracker")
	ticker := time.NewTicker(t.cleanupInterval)
	defer ticker.Stop()
	log.Debug("Execution cleanup started", "interval", t.cleanupInterval, "retention", t.retention)
	for {
		select {
		case <-ctx.Done():
			log.Debug("Execution cleanup stopped")
			return
		case <-ticker.C:
			if n := t.Sweep(t.now()); n > 0 {
				log.Info("Swept finished executions", "removed", n, "remaining", t.Stats().Total)
			}
		}
	}
}

// Wait blocks until no audit write is in flight. It may be called while
// executions are still being tracked; writes started during the wait
// extend it.
func (t *Tracker) Wait() {
	t.auditMu.Lock()
	for t.inflight > 0 {
		t.auditIdle.Wait()
	}
	t.auditMu.Unlock()
}

func (t *Tracker) auditDone() {
	t.auditMu.Lock()
	t.inflight--
	if t.inflight == 0 {
		t.auditIdle.Broadcast()
	}
	t.auditMu.Unlock()
}

func (t *Tracker) audit(ctx context.Context, rec *Record, level LogLevel, message string, metadata map[string]any) {
	entry := &LogEntry{
		AgentID:     rec.AgentID,
		ExecutionID: rec.ID.String(),
		Level:       level,
		Message:     message,
		Source:      logSource,
		Metadata:    metadata,
		CreatedAt:   t.now(),
	}
	sink := t.sink
	auditCtx := context.WithoutCancel(ctx)
	t.auditMu.Lock()
	t.inflight++
	t.auditMu.Unlock()
	go func() {
		defer t.auditDone()
		defer func() {
			if r := recover(); r != nil {
				logger.FromContext(auditCtx).Warn("Audit sink panicked", "exec_id", entry.ExecutionID, "panic", r)
			}
		}()
		writeCtx, cancel := context.WithTimeout(auditCtx, defaultAuditTimeout)
		defer cancel()
		if err := sink.AppendLog(writeCtx, entry); err != nil {
			logger.FromContext(auditCtx).Debug("Failed to write audit log",
				"exec_id", entry.ExecutionID, "error", core.RedactError(err))
		}
	}()
}
