package execution

import (
	"context"
	"time"
)

type LogLevel string

const (
	LogLevelDebug LogLevel = "debug"
	LogLevelInfo  LogLevel = "info"
	LogLevelWarn  LogLevel = "warn"
	LogLevelError LogLevel = "error"
)

const logSource = "execution-tracker"

// LogEntry is one audit line attached to an execution.
type LogEntry struct {
	AgentID     string         `json:"agent_id"`
	ExecutionID string         `json:"execution_id"`
	Level       LogLevel       `json:"level"`
	Message     string         `json:"message"`
	Source      string         `json:"source"`
	Metadata    map[string]any `json:"metadata,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
}

// AuditSink persists audit entries. Writes are best effort: the tracker
// never lets a sink failure affect the operation that produced the entry.
type AuditSink interface {
	AppendLog(ctx context.Context, entry *LogEntry) error
}

type nopSink struct{}

func (nopSink) AppendLog(context.Context, *LogEntry) error { return nil }

// NopSink discards every entry.
func NopSink() AuditSink { return nopSink{} }
