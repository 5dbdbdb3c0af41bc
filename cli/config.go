package cli

import (
	"fmt"
	"sort"

	"github.com/DavinciDreams/agents-of-empires-sub001/pkg/config"
	"github.com/DavinciDreams/agents-of-empires-sub001/pkg/version"
	"github.com/spf13/cobra"
)

func ConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect the effective configuration",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "show",
			Short: "Print the resolved configuration with secrets redacted",
			RunE: func(cmd *cobra.Command, _ []string) error {
				fmt.Fprintln(cmd.OutOrStdout(), config.FromContext(cmd.Context()).String())
				return nil
			},
		},
		&cobra.Command{
			Use:   "env",
			Short: "List the environment variables that configure the service",
			RunE: func(cmd *cobra.Command, _ []string) error {
				mappings := config.GenerateEnvToConfigMap()
				names := make([]string, 0, len(mappings))
				for name := range mappings {
					names = append(names, name)
				}
				sort.Strings(names)
				for _, name := range names {
					path := mappings[name]
					suffix := ""
					if config.IsSensitiveConfigPath(path) {
						suffix = " (sensitive)"
					}
					fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s%s\n", name, path, suffix)
				}
				return nil
			},
		},
	)
	return cmd
}

func VersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print build information",
		Run: func(cmd *cobra.Command, _ []string) {
			info := version.Get()
			fmt.Fprintf(cmd.OutOrStdout(), "aoe %s (commit %s, built %s)\n", info.Version, info.CommitHash, info.BuildDate)
		},
	}
}
