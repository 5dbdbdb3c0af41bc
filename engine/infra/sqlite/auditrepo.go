package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/DavinciDreams/agents-of-empires-sub001/engine/execution"
)

const defaultLogLimit = 100

// AuditRepo stores execution audit entries. It implements
// execution.AuditSink.
type AuditRepo struct{ db *sql.DB }

var _ execution.AuditSink = (*AuditRepo)(nil)

func NewAuditRepo(db *sql.DB) *AuditRepo { return &AuditRepo{db: db} }

func (r *AuditRepo) AppendLog(ctx context.Context, entry *execution.LogEntry) error {
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now()
	}
	metadata, err := ToJSONText(entry.Metadata)
	if err != nil {
		return err
	}
	const q = `INSERT INTO execution_logs (execution_id, agent_id, level, message, source, metadata, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`
	if _, err := r.db.ExecContext(
		ctx, q,
		entry.ExecutionID, entry.AgentID, string(entry.Level), entry.Message, entry.Source,
		metadata, entry.CreatedAt.UTC(),
	); err != nil {
		return fmt.Errorf("sqlite: append execution log: %w", err)
	}
	return nil
}

// ListLogs returns the oldest limit entries of an execution in write order.
func (r *AuditRepo) ListLogs(ctx context.Context, executionID string, limit int) ([]execution.LogEntry, error) {
	const q = `SELECT execution_id, agent_id, level, message, source, metadata, created_at
		FROM execution_logs WHERE execution_id = ? ORDER BY created_at ASC, id ASC LIMIT ?`
	return r.query(ctx, "list execution logs", q, executionID, normalizeLimit(limit))
}

// ListAgentLogs returns the newest limit entries written for an agent.
func (r *AuditRepo) ListAgentLogs(ctx context.Context, agentID string, limit int) ([]execution.LogEntry, error) {
	const q = `SELECT execution_id, agent_id, level, message, source, metadata, created_at
		FROM execution_logs WHERE agent_id = ? ORDER BY created_at DESC, id DESC LIMIT ?`
	return r.query(ctx, "list agent logs", q, agentID, normalizeLimit(limit))
}

// Prune deletes entries written before cutoff.
func (r *AuditRepo) Prune(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM execution_logs WHERE created_at < ?`, cutoff.UTC())
	if err != nil {
		return 0, fmt.Errorf("sqlite: prune execution logs: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("sqlite: prune execution logs: %w", err)
	}
	return n, nil
}

func (r *AuditRepo) query(ctx context.Context, op, q string, args ...any) ([]execution.LogEntry, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("sqlite: %s: %w", op, err)
	}
	defer rows.Close()
	out := make([]execution.LogEntry, 0)
	for rows.Next() {
		var (
			e        execution.LogEntry
			level    string
			metadata sql.NullString
		)
		if err := rows.Scan(&e.ExecutionID, &e.AgentID, &level, &e.Message, &e.Source, &metadata, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("sqlite: scan execution log: %w", err)
		}
		e.Level = execution.LogLevel(level)
		if err := FromJSONText(metadata, &e.Metadata); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iter execution logs: %w", err)
	}
	return out, nil
}

func normalizeLimit(limit int) int {
	if limit <= 0 {
		return defaultLogLimit
	}
	return limit
}
