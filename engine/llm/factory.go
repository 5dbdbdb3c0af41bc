// Package llm builds agent instances backed by langchaingo chat models.
package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/DavinciDreams/agents-of-empires-sub001/engine/agent"
	"github.com/DavinciDreams/agents-of-empires-sub001/engine/core"
	"github.com/DavinciDreams/agents-of-empires-sub001/engine/retry"
	"github.com/DavinciDreams/agents-of-empires-sub001/pkg/logger"
	"github.com/tmc/langchaingo/llms"
	"go.opentelemetry.io/otel/metric"
)

type Option func(*Factory)

// WithProviderDefaults sets credentials and endpoints used when an agent's
// model config leaves them empty.
func WithProviderDefaults(defaults map[core.ProviderName]core.ProviderConfig) Option {
	return func(f *Factory) {
		for name, cfg := range defaults {
			f.defaults[name] = cfg
		}
	}
}

func WithRetryPolicy(policy retry.Policy) Option {
	return func(f *Factory) {
		f.policy = policy
	}
}

// WithModelConstructor replaces CreateModel, mainly for tests.
func WithModelConstructor(fn ModelConstructor) Option {
	return func(f *Factory) {
		if fn != nil {
			f.newModel = fn
		}
	}
}

func WithMeter(meter metric.Meter) Option {
	return func(f *Factory) {
		f.meter = meter
	}
}

// Factory implements agent.Builder.
type Factory struct {
	defaults map[core.ProviderName]core.ProviderConfig
	policy   retry.Policy
	newModel ModelConstructor
	meter    metric.Meter
	metrics  *llmMetrics
}

var _ agent.Builder = (*Factory)(nil)

func NewFactory(opts ...Option) *Factory {
	f := &Factory{
		defaults: make(map[core.ProviderName]core.ProviderConfig),
		policy:   retry.DefaultPolicy(),
		newModel: CreateModel,
	}
	for _, opt := range opts {
		opt(f)
	}
	f.metrics = newLLMMetrics(f.meter)
	return f
}

// Build resolves the provider config, instantiates the model and prepares
// the prompt and tool definitions of cfg.
func (f *Factory) Build(ctx context.Context, cfg *agent.Config) (agent.Instance, error) {
	provider, err := f.resolveProvider(cfg)
	if err != nil {
		return nil, err
	}
	model, err := f.newModel(ctx, &provider)
	if err != nil {
		if core.ErrorCode(err) != "" {
			return nil, err
		}
		return nil, core.NewError(
			fmt.Errorf("failed to create %s model for agent %q: %w", provider.Provider, cfg.ID, err),
			core.ErrCodeAgentBuild,
			map[string]any{"agent_id": cfg.ID, "provider": string(provider.Provider)},
		)
	}
	systemPrompt, err := RenderSystemPrompt(cfg)
	if err != nil {
		return nil, core.NewError(err, core.ErrCodeAgentBuild, map[string]any{"agent_id": cfg.ID})
	}
	a := &Agent{
		id:           cfg.ID,
		provider:     provider.Provider,
		model:        model,
		systemPrompt: systemPrompt,
		callOptions:  callOptions(&provider, convertTools(cfg)),
		policy:       f.policy,
		metrics:      f.metrics,
	}
	logger.FromContext(ctx).Debug("LLM agent built",
		"agent_id", cfg.ID, "provider", provider.Provider, "model", provider.Model, "tools", len(a.toolNames()))
	return a, nil
}

func (f *Factory) resolveProvider(cfg *agent.Config) (core.ProviderConfig, error) {
	provider := cfg.Model
	if defaults, ok := f.defaults[provider.Provider]; ok {
		merged, err := provider.WithDefaults(defaults)
		if err != nil {
			return provider, core.NewError(err, core.ErrCodeAgentBuild, map[string]any{"agent_id": cfg.ID})
		}
		provider = merged
	}
	if provider.Provider.RequiresAPIKey() && strings.TrimSpace(provider.APIKey) == "" {
		return provider, core.NewError(
			fmt.Errorf("no API key configured for provider %q", provider.Provider),
			core.ErrCodeMissingCredentials,
			map[string]any{"agent_id": cfg.ID, "provider": string(provider.Provider)},
		)
	}
	return provider, nil
}

func callOptions(p *core.ProviderConfig, tools []llms.Tool) []llms.CallOption {
	var opts []llms.CallOption
	if p.Temperature != nil {
		opts = append(opts, llms.WithTemperature(*p.Temperature))
	}
	if p.MaxTokens > 0 {
		opts = append(opts, llms.WithMaxTokens(p.MaxTokens))
	}
	if len(tools) > 0 {
		opts = append(opts, llms.WithTools(tools))
	}
	return opts
}
