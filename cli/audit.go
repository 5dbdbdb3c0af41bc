package cli

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/DavinciDreams/agents-of-empires-sub001/engine/execution"
	"github.com/DavinciDreams/agents-of-empires-sub001/engine/infra/sqlite"
	"github.com/DavinciDreams/agents-of-empires-sub001/pkg/config"
	"github.com/DavinciDreams/agents-of-empires-sub001/pkg/logger"
	"github.com/spf13/cobra"
)

const defaultAuditLimit = 100

func AuditCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "audit",
		Short: "Maintain the execution audit log",
	}
	cmd.AddCommand(auditMigrateCmd(), auditLogsCmd(), auditPruneCmd())
	return cmd
}

func auditPath(cmd *cobra.Command) (string, error) {
	path := config.FromContext(cmd.Context()).Audit.Path
	if path == "" || path == ":memory:" {
		return "", fmt.Errorf("audit.path must point to a database file")
	}
	return path, nil
}

func openAudit(cmd *cobra.Command) (*sqlite.Store, error) {
	path, err := auditPath(cmd)
	if err != nil {
		return nil, err
	}
	return sqlite.NewStore(cmd.Context(), &sqlite.Config{Path: path})
}

func auditMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending audit log migrations",
		RunE: func(cmd *cobra.Command, _ []string) error {
			path, err := auditPath(cmd)
			if err != nil {
				return err
			}
			if err := sqlite.ApplyMigrations(cmd.Context(), path); err != nil {
				return err
			}
			logger.FromContext(cmd.Context()).Info("Audit log migrated", "path", path)
			return nil
		},
	}
}

func auditLogsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Print audit entries of an execution or an agent as JSON",
		RunE: func(cmd *cobra.Command, _ []string) error {
			execID, _ := cmd.Flags().GetString("exec")
			agentID, _ := cmd.Flags().GetString("agent")
			limit, _ := cmd.Flags().GetInt("limit")
			if (execID == "") == (agentID == "") {
				return fmt.Errorf("exactly one of --exec or --agent is required")
			}
			store, err := openAudit(cmd)
			if err != nil {
				return err
			}
			defer store.Close(cmd.Context())
			repo := sqlite.NewAuditRepo(store.DB())
			var logs []execution.LogEntry
			if execID != "" {
				logs, err = repo.ListLogs(cmd.Context(), execID, limit)
			} else {
				logs, err = repo.ListAgentLogs(cmd.Context(), agentID, limit)
			}
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(logs)
		},
	}
	cmd.Flags().String("exec", "", "Execution ID")
	cmd.Flags().String("agent", "", "Agent ID")
	cmd.Flags().Int("limit", defaultAuditLimit, "Maximum entries")
	return cmd
}

func auditPruneCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "prune",
		Short: "Delete audit entries older than a duration",
		RunE: func(cmd *cobra.Command, _ []string) error {
			olderThan, _ := cmd.Flags().GetDuration("older-than")
			if olderThan <= 0 {
				return fmt.Errorf("--older-than must be positive")
			}
			store, err := openAudit(cmd)
			if err != nil {
				return err
			}
			defer store.Close(cmd.Context())
			removed, err := sqlite.NewAuditRepo(store.DB()).Prune(cmd.Context(), time.Now().Add(-olderThan))
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d entries removed\n", removed)
			return nil
		},
	}
	cmd.Flags().Duration("older-than", 30*24*time.Hour, "Age of the oldest entry to keep")
	return cmd
}
