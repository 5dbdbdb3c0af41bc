package sqlite

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/DavinciDreams/agents-of-empires-sub001/engine/execution"
	"github.com/pressly/goose/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	ctx := t.Context()
	s, err := NewStore(ctx, &Config{Path: ":memory:"})
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close(context.Background()) })
	return s
}

func TestBuildDSN(t *testing.T) {
	t.Run("Should build DSN for file path with pragmas", func(t *testing.T) {
		d := buildDSN(&Config{Path: "/tmp/test.db"})
		assert.Contains(t, d, "file:/tmp/test.db?")
		assert.Contains(t, d, "journal_mode%28WAL%29")
		assert.Contains(t, d, "foreign_keys%28ON%29")
		assert.Contains(t, d, "busy_timeout%285000%29")
	})
	t.Run("Should build DSN for in-memory databases", func(t *testing.T) {
		d := buildDSN(&Config{Path: ":memory:"})
		assert.Contains(t, d, "file::memory:?")
		assert.NotContains(t, d, "journal_mode")
	})
}

func TestMigrations(t *testing.T) {
	t.Run("Should create the execution log table and indexes", func(t *testing.T) {
		ctx := t.Context()
		dbPath := filepath.Join(t.TempDir(), "audit.db")
		require.NoError(t, ApplyMigrations(ctx, dbPath))

		db, err := sql.Open("sqlite", buildDSN(&Config{Path: dbPath}))
		require.NoError(t, err)
		defer db.Close()
		names := make(map[string]bool)
		rows, err := db.QueryContext(ctx, "SELECT name FROM sqlite_master WHERE type IN ('table', 'index')")
		require.NoError(t, err)
		defer rows.Close()
		for rows.Next() {
			var name string
			require.NoError(t, rows.Scan(&name))
			names[name] = true
		}
		require.NoError(t, rows.Err())
		for _, want := range []string{"execution_logs", "idx_execution_logs_execution", "idx_execution_logs_agent"} {
			assert.Truef(t, names[want], "expected %s to exist", want)
		}
	})

	t.Run("Should be idempotent when the store reopens the file", func(t *testing.T) {
		ctx := t.Context()
		dbPath := filepath.Join(t.TempDir(), "reopen.db")
		require.NoError(t, ApplyMigrations(ctx, dbPath))
		s, err := NewStore(ctx, &Config{Path: dbPath})
		require.NoError(t, err)
		require.NoError(t, s.HealthCheck(ctx))
		require.NoError(t, s.Close(ctx))
	})

	t.Run("Should roll back cleanly", func(t *testing.T) {
		s := newTestStore(t)
		gooseInitMu.Lock()
		defer gooseInitMu.Unlock()
		goose.SetBaseFS(migrationsFS)
		defer goose.SetBaseFS(nil)
		require.NoError(t, goose.SetDialect("sqlite3"))
		require.NoError(t, goose.DownToContext(t.Context(), s.DB(), "migrations", 0))
		var count int
		err := s.DB().QueryRowContext(t.Context(),
			"SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = 'execution_logs'").Scan(&count)
		require.NoError(t, err)
		assert.Equal(t, 0, count)
	})
}

func TestAuditRepo(t *testing.T) {
	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	entry := func(execID, agentID, msg string, offset time.Duration) *execution.LogEntry {
		return &execution.LogEntry{
			AgentID:     agentID,
			ExecutionID: execID,
			Level:       execution.LogLevelInfo,
			Message:     msg,
			Source:      "execution-tracker",
			Metadata:    map[string]any{"thread_id": "t-1", "steps": float64(2)},
			CreatedAt:   base.Add(offset),
		}
	}

	t.Run("Should append and list entries of an execution in order", func(t *testing.T) {
		repo := NewAuditRepo(newTestStore(t).DB())
		ctx := t.Context()
		require.NoError(t, repo.AppendLog(ctx, entry("e1", "scout", "Execution started", 0)))
		require.NoError(t, repo.AppendLog(ctx, entry("e1", "scout", "Execution completed", time.Second)))
		require.NoError(t, repo.AppendLog(ctx, entry("e2", "scout", "Execution started", 2*time.Second)))

		logs, err := repo.ListLogs(ctx, "e1", 0)
		require.NoError(t, err)
		require.Len(t, logs, 2)
		assert.Equal(t, "Execution started", logs[0].Message)
		assert.Equal(t, "Execution completed", logs[1].Message)
		assert.Equal(t, execution.LogLevelInfo, logs[0].Level)
		assert.Equal(t, map[string]any{"thread_id": "t-1", "steps": float64(2)}, logs[0].Metadata)
		assert.True(t, base.Equal(logs[0].CreatedAt))
	})

	t.Run("Should list an agent's newest entries first with a limit", func(t *testing.T) {
		repo := NewAuditRepo(newTestStore(t).DB())
		ctx := t.Context()
		for i, msg := range []string{"a", "b", "c"} {
			require.NoError(t, repo.AppendLog(ctx, entry("e1", "scout", msg, time.Duration(i)*time.Second)))
		}
		logs, err := repo.ListAgentLogs(ctx, "scout", 2)
		require.NoError(t, err)
		require.Len(t, logs, 2)
		assert.Equal(t, "c", logs[0].Message)
		assert.Equal(t, "b", logs[1].Message)
	})

	t.Run("Should reject unknown levels", func(t *testing.T) {
		repo := NewAuditRepo(newTestStore(t).DB())
		e := entry("e1", "scout", "x", 0)
		e.Level = "fatal"
		assert.Error(t, repo.AppendLog(t.Context(), e))
	})

	t.Run("Should store entries without metadata", func(t *testing.T) {
		repo := NewAuditRepo(newTestStore(t).DB())
		e := entry("e1", "scout", "x", 0)
		e.Metadata = nil
		require.NoError(t, repo.AppendLog(t.Context(), e))
		logs, err := repo.ListLogs(t.Context(), "e1", 10)
		require.NoError(t, err)
		require.Len(t, logs, 1)
		assert.Nil(t, logs[0].Metadata)
	})

	t.Run("Should prune entries older than the cutoff", func(t *testing.T) {
		repo := NewAuditRepo(newTestStore(t).DB())
		ctx := t.Context()
		require.NoError(t, repo.AppendLog(ctx, entry("e1", "scout", "old", 0)))
		require.NoError(t, repo.AppendLog(ctx, entry("e1", "scout", "new", time.Hour)))
		n, err := repo.Prune(ctx, base.Add(30*time.Minute))
		require.NoError(t, err)
		assert.Equal(t, int64(1), n)
		logs, err := repo.ListLogs(ctx, "e1", 10)
		require.NoError(t, err)
		require.Len(t, logs, 1)
		assert.Equal(t, "new", logs[0].Message)
	})

	t.Run("Should receive tracker audit entries", func(t *testing.T) {
		repo := NewAuditRepo(newTestStore(t).DB())
		tracker := execution.NewTracker(execution.WithAuditSink(repo))
		rec := tracker.Start(t.Context(), "scout", "thread-1", nil, "")
		tracker.Fail(t.Context(), rec.ID, "boom")
		tracker.Wait()

		logs, err := repo.ListLogs(t.Context(), rec.ID.String(), 10)
		require.NoError(t, err)
		require.Len(t, logs, 2)
		assert.Equal(t, execution.LogLevelError, logs[1].Level)
		assert.Equal(t, "boom", logs[1].Metadata["error"])
	})
}
