package cli

import (
	"context"
	"fmt"

	"github.com/DavinciDreams/agents-of-empires-sub001/engine/agent"
	"github.com/DavinciDreams/agents-of-empires-sub001/engine/checkpoint"
	"github.com/DavinciDreams/agents-of-empires-sub001/engine/execution"
	"github.com/DavinciDreams/agents-of-empires-sub001/engine/llm"
	"github.com/DavinciDreams/agents-of-empires-sub001/engine/runner"
	"github.com/DavinciDreams/agents-of-empires-sub001/pkg/config"
	"github.com/spf13/cobra"
)

func AgentsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "agents",
		Short: "Inspect and run agent definitions",
	}
	cmd.AddCommand(agentsValidateCmd(), agentsRunCmd())
	return cmd
}

func agentsValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate <file>",
		Short: "Validate an agent definitions file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			configs, err := agent.LoadDefinitions(args[0])
			if err != nil {
				return err
			}
			for _, cfg := range configs {
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s/%s\n", cfg.ID, cfg.Model.Provider, cfg.Model.Model)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d agent(s) valid\n", len(configs))
			return nil
		},
	}
}

func agentsRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run <agent_id>",
		Short: "Run one agent locally without starting the server",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			file, _ := cmd.Flags().GetString("file")
			prompt, _ := cmd.Flags().GetString("prompt")
			stream, _ := cmd.Flags().GetBool("stream")
			if prompt == "" {
				return fmt.Errorf("--prompt is required")
			}
			return runAgentLocally(cmd, file, args[0], prompt, stream)
		},
	}
	cmd.Flags().StringP("file", "f", "agents.yaml", "Agent definitions file")
	cmd.Flags().StringP("prompt", "p", "", "User prompt")
	cmd.Flags().Bool("stream", false, "Print chunks as they arrive")
	return cmd
}

func runAgentLocally(cmd *cobra.Command, file, agentID, prompt string, stream bool) error {
	ctx := cmd.Context()
	cfg := config.FromContext(ctx)
	registry, err := agent.NewRegistry(llm.NewFactory(
		llm.WithProviderDefaults(providerDefaults(cfg)),
		llm.WithRetryPolicy(retryPolicy(cfg)),
	))
	if err != nil {
		return err
	}
	if err := registerDefinitions(ctx, registry, file); err != nil {
		return err
	}
	run := runner.NewRunner(registry, execution.NewTracker(),
		runner.WithTimeout(cfg.Executions.Timeout),
		runner.WithCheckpointStore(checkpoint.NewMemoryStore()),
	)
	req := &runner.Request{
		AgentID:  agentID,
		Messages: []agent.Message{{Role: agent.RoleUser, Content: prompt}},
	}
	out := cmd.OutOrStdout()
	if !stream {
		res, err := run.Execute(ctx, req)
		if err != nil {
			return err
		}
		fmt.Fprintln(out, res.Output.Content)
		return nil
	}
	_, err = run.Stream(ctx, req, func(_ context.Context, chunk []byte) error {
		_, werr := out.Write(chunk)
		return werr
	})
	if err != nil {
		return err
	}
	fmt.Fprintln(out)
	return nil
}
