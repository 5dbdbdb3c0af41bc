// Package cli implements the aoe command line: the HTTP service and the
// offline tools for agent definitions and the audit log.
package cli

import (
	"context"
	"fmt"

	"github.com/DavinciDreams/agents-of-empires-sub001/pkg/config"
	"github.com/DavinciDreams/agents-of-empires-sub001/pkg/logger"
	"github.com/DavinciDreams/agents-of-empires-sub001/pkg/version"
	"github.com/spf13/cobra"
)

const (
	flagConfig   = "config"
	flagEnvFile  = "env-file"
	flagLogLevel = "log-level"
	flagLogJSON  = "log-json"
	flagHost     = "host"
	flagPort     = "port"
	flagAgents   = "agents"
)

func RootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "aoe",
		Short:         "Agents of Empires agent runtime",
		Long:          "Serve, run and inspect LLM agents over an HTTP API.",
		Version:       version.Get().Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return SetupGlobalConfig(cmd)
		},
	}
	root.PersistentFlags().String(flagConfig, "aoe.yaml", "Path to the config file")
	root.PersistentFlags().String(flagEnvFile, ".env", "Path to the environment variables file")
	root.PersistentFlags().String(flagLogLevel, "", "Log level (debug, info, warn, error, disabled)")
	root.PersistentFlags().Bool(flagLogJSON, false, "Emit logs as JSON")

	root.AddCommand(
		ServeCmd(),
		AgentsCmd(),
		AuditCmd(),
		ConfigCmd(),
		VersionCmd(),
	)
	return root
}

// SetupGlobalConfig loads the env file and configuration, builds the logger
// and attaches both to the command context.
func SetupGlobalConfig(cmd *cobra.Command) error {
	if _, err := loadEnvFile(cmd); err != nil {
		return err
	}
	configFile, err := stringFlag(cmd, flagConfig)
	if err != nil {
		return fmt.Errorf("failed to get config flag: %w", err)
	}
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	cfg, err := config.Load(ctx, config.NewYAMLSource(configFile), config.NewFlagSource(extractCLIFlags(cmd)))
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	log := logger.Init(&logger.Config{
		Level:      logger.ParseLevel(cfg.Runtime.LogLevel),
		Output:     cmd.ErrOrStderr(),
		JSON:       cfg.Runtime.LogJSON,
		TimeFormat: "15:04:05",
	})
	ctx = logger.ContextWithLogger(ctx, log)
	ctx = config.ContextWithConfig(ctx, cfg)
	cmd.SetContext(ctx)
	return nil
}

func Execute() error {
	return RootCmd().Execute()
}
