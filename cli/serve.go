package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/DavinciDreams/agents-of-empires-sub001/engine/agent"
	"github.com/DavinciDreams/agents-of-empires-sub001/engine/checkpoint"
	"github.com/DavinciDreams/agents-of-empires-sub001/engine/core"
	"github.com/DavinciDreams/agents-of-empires-sub001/engine/execution"
	"github.com/DavinciDreams/agents-of-empires-sub001/engine/infra/cache"
	"github.com/DavinciDreams/agents-of-empires-sub001/engine/infra/monitoring"
	"github.com/DavinciDreams/agents-of-empires-sub001/engine/infra/server"
	"github.com/DavinciDreams/agents-of-empires-sub001/engine/infra/server/appstate"
	"github.com/DavinciDreams/agents-of-empires-sub001/engine/infra/sqlite"
	"github.com/DavinciDreams/agents-of-empires-sub001/engine/llm"
	"github.com/DavinciDreams/agents-of-empires-sub001/engine/retry"
	"github.com/DavinciDreams/agents-of-empires-sub001/engine/runner"
	"github.com/DavinciDreams/agents-of-empires-sub001/pkg/config"
	"github.com/DavinciDreams/agents-of-empires-sub001/pkg/logger"
	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
)

const cleanupTimeout = 5 * time.Second

func ServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "serve",
		Aliases: []string{"start"},
		Short:   "Start the agent HTTP server",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runServe(ctx)
		},
	}
	cmd.Flags().String(flagHost, "", "Host interface to bind")
	cmd.Flags().Int(flagPort, 0, "Port to listen on")
	cmd.Flags().String(flagAgents, "", "YAML file with agent definitions to register at startup")
	return cmd
}

// closers releases the long-lived components of a running server in
// reverse order of creation.
type closers struct {
	cleanups []func(context.Context)
}

func (r *closers) onClose(fn func(context.Context)) {
	r.cleanups = append(r.cleanups, fn)
}

func (r *closers) close(ctx context.Context) {
	for i := len(r.cleanups) - 1; i >= 0; i-- {
		r.cleanups[i](ctx)
	}
}

func runServe(ctx context.Context) error {
	cfg := config.FromContext(ctx)
	log := logger.FromContext(ctx)
	gin.SetMode(gin.ReleaseMode)
	rt := &closers{}
	defer func() {
		cleanupCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cleanupTimeout)
		defer cancel()
		rt.close(cleanupCtx)
	}()

	mon := monitoring.NewMonitoringServiceWithFallback(ctx, monitoring.FromConfig(&cfg.Monitoring))
	rt.onClose(func(ctx context.Context) {
		if err := mon.Shutdown(ctx); err != nil {
			log.Warn("Failed to shut down monitoring", "error", err)
		}
	})

	rds, err := cache.NewRedis(ctx, &cache.Config{URL: cfg.Checkpoint.RedisURL.Value()})
	if err != nil {
		return fmt.Errorf("failed to connect to redis: %w", err)
	}
	rt.onClose(func(context.Context) {
		if err := rds.Close(); err != nil {
			log.Warn("Failed to close redis", "error", err)
		}
	})
	checkpoints := checkpoint.NewRedisStore(rds.Client(), cfg.Checkpoint.Prefix, cfg.Checkpoint.TTL)

	sink := execution.NopSink()
	var audit *sqlite.AuditRepo
	var store *sqlite.Store
	if cfg.Audit.Enabled {
		store, err = sqlite.NewStore(ctx, &sqlite.Config{Path: cfg.Audit.Path})
		if err != nil {
			return fmt.Errorf("failed to open audit log: %w", err)
		}
		rt.onClose(func(ctx context.Context) {
			if err := store.Close(ctx); err != nil {
				log.Warn("Failed to close audit log", "error", err)
			}
		})
		audit = sqlite.NewAuditRepo(store.DB())
		sink = audit
	}

	meter := mon.Meter()
	factory := llm.NewFactory(
		llm.WithProviderDefaults(providerDefaults(cfg)),
		llm.WithRetryPolicy(retryPolicy(cfg)),
		llm.WithMeter(meter),
	)
	registry, err := agent.NewRegistry(factory,
		agent.WithCacheMaxSize(cfg.Agents.CacheMaxSize),
		agent.WithCacheExpiration(cfg.Agents.CacheExpiration),
		agent.WithRegistryMeter(meter),
	)
	if err != nil {
		return err
	}
	tracker := execution.NewTracker(
		execution.WithRetention(cfg.Executions.Retention),
		execution.WithCleanupInterval(cfg.Executions.CleanupInterval),
		execution.WithMeter(meter),
		execution.WithAuditSink(sink),
	)
	run := runner.NewRunner(registry, tracker,
		runner.WithTimeout(cfg.Executions.Timeout),
		runner.WithCheckpointStore(checkpoints),
	)
	if err := registerDefinitions(ctx, registry, cfg.Agents.DefinitionsFile); err != nil {
		return err
	}

	state, err := appstate.NewState(registry, tracker, run, checkpoints)
	if err != nil {
		return err
	}
	state.Checks["redis"] = rds
	if audit != nil {
		state.Logs = audit
		state.Checks["sqlite"] = store
	}
	srv, err := server.NewServer(ctx, cfg, server.Dependencies{
		State:      state,
		Monitoring: mon,
		Redis:      rds.Client(),
	})
	if err != nil {
		return err
	}

	sweepCtx, stopSweep := context.WithCancel(ctx)
	sweepDone := make(chan struct{})
	go func() {
		defer close(sweepDone)
		tracker.Run(sweepCtx)
	}()
	rt.onClose(func(context.Context) {
		stopSweep()
		<-sweepDone
		tracker.Wait()
	})

	log.Info("Starting agent server",
		"host", cfg.Server.Host,
		"port", cfg.Server.Port,
		"agents", len(registry.Configs()),
		"embedded_redis", rds.Embedded(),
		"audit", cfg.Audit.Enabled)
	if err := srv.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

func registerDefinitions(ctx context.Context, registry *agent.Registry, path string) error {
	if path == "" {
		return nil
	}
	configs, err := agent.LoadDefinitions(path)
	if err != nil {
		return err
	}
	for _, cfg := range configs {
		if err := registry.Register(ctx, cfg); err != nil {
			return err
		}
	}
	logger.FromContext(ctx).Info("Agent definitions loaded", "file", path, "count", len(configs))
	return nil
}

// providerDefaults turns configured credentials into per-provider
// fallbacks for agent definitions.
func providerDefaults(cfg *config.Config) map[core.ProviderName]core.ProviderConfig {
	creds := map[core.ProviderName]config.ProviderCredentials{
		core.ProviderOpenAI:    cfg.Providers.OpenAI,
		core.ProviderAnthropic: cfg.Providers.Anthropic,
		core.ProviderGroq:      cfg.Providers.Groq,
		core.ProviderGoogle:    cfg.Providers.Google,
		core.ProviderDeepSeek:  cfg.Providers.DeepSeek,
		core.ProviderXAI:       cfg.Providers.XAI,
		core.ProviderOllama:    cfg.Providers.Ollama,
	}
	out := make(map[core.ProviderName]core.ProviderConfig, len(creds))
	for name, c := range creds {
		if c.APIKey.Value() == "" && c.BaseURL == "" {
			continue
		}
		out[name] = core.ProviderConfig{APIKey: c.APIKey.Value(), APIURL: c.BaseURL}
	}
	return out
}

func retryPolicy(cfg *config.Config) retry.Policy {
	policy := retry.DefaultPolicy()
	policy.MaxRetries = cfg.Retry.MaxRetries
	policy.BaseDelay = cfg.Retry.BaseDelay
	policy.MaxDelay = cfg.Retry.MaxDelay
	return policy
}
