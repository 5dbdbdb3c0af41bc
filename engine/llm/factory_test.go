package llm

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/DavinciDreams/agents-of-empires-sub001/engine/agent"
	"github.com/DavinciDreams/agents-of-empires-sub001/engine/core"
	"github.com/DavinciDreams/agents-of-empires-sub001/engine/retry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tmc/langchaingo/llms"
)

// scriptedModel returns the queued errors in order, then succeeds.
type scriptedModel struct {
	mu       sync.Mutex
	errs     []error
	calls    int
	chunks   []string
	lastMsgs []llms.MessageContent
	lastOpts llms.CallOptions
}

func (m *scriptedModel) GenerateContent(
	ctx context.Context,
	messages []llms.MessageContent,
	options ...llms.CallOption,
) (*llms.ContentResponse, error) {
	m.mu.Lock()
	m.calls++
	m.lastMsgs = messages
	opts := llms.CallOptions{}
	for _, opt := range options {
		opt(&opts)
	}
	m.lastOpts = opts
	var err error
	if len(m.errs) > 0 {
		err = m.errs[0]
		m.errs = m.errs[1:]
	}
	chunks := m.chunks
	m.mu.Unlock()
	if opts.StreamingFunc != nil {
		for _, c := range chunks {
			if sErr := opts.StreamingFunc(ctx, []byte(c)); sErr != nil {
				return nil, sErr
			}
		}
	}
	if err != nil {
		return nil, err
	}
	return &llms.ContentResponse{Choices: []*llms.ContentChoice{{
		Content: strings.Join(chunks, ""),
		ToolCalls: []llms.ToolCall{{
			ID:           "call_1",
			Type:         "function",
			FunctionCall: &llms.FunctionCall{Name: "call_agent_builder", Arguments: `{"task":"build"}`},
		}},
	}}}, nil
}

func (m *scriptedModel) Call(ctx context.Context, prompt string, options ...llms.CallOption) (string, error) {
	return llms.GenerateFromSinglePrompt(ctx, m, prompt, options...)
}

func (m *scriptedModel) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

func fastPolicy() retry.Policy {
	return retry.Policy{MaxRetries: 3, BaseDelay: time.Millisecond, MaxDelay: 2 * time.Millisecond}
}

func ptr[T any](v T) *T { return &v }

func scoutConfig(provider core.ProviderName) *agent.Config {
	return &agent.Config{
		ID:           "scout",
		Name:         "Scout",
		Description:  "Explores the map",
		Model:        core.ProviderConfig{Provider: provider, Model: "test-model", Temperature: ptr(0.2), MaxTokens: 256},
		SystemPrompt: "Report what you find.",
		Tools: []agent.ToolConfig{{
			Name:        "reveal_tile",
			Description: "Reveal a tile",
			Parameters:  map[string]any{"type": "object"},
		}},
		Subagents: []string{"builder"},
		Skills:    []string{"cartography"},
	}
}

func buildWith(t *testing.T, model llms.Model, cfg *agent.Config, opts ...Option) *Agent {
	t.Helper()
	var captured *core.ProviderConfig
	factory := NewFactory(append([]Option{
		WithRetryPolicy(fastPolicy()),
		WithModelConstructor(func(_ context.Context, p *core.ProviderConfig) (llms.Model, error) {
			captured = p
			return model, nil
		}),
	}, opts...)...)
	inst, err := factory.Build(t.Context(), cfg)
	require.NoError(t, err)
	require.NotNil(t, captured)
	return inst.(*Agent)
}

func TestFactory_Build(t *testing.T) {
	t.Run("Should fail with missing credentials when no key is available", func(t *testing.T) {
		factory := NewFactory()
		_, err := factory.Build(t.Context(), scoutConfig(core.ProviderOpenAI))
		require.Error(t, err)
		assert.True(t, core.HasCode(err, core.ErrCodeMissingCredentials))
	})

	t.Run("Should fill credentials from provider defaults", func(t *testing.T) {
		var resolved core.ProviderConfig
		factory := NewFactory(
			WithProviderDefaults(map[core.ProviderName]core.ProviderConfig{
				core.ProviderAnthropic: {APIKey: "sk-test", APIURL: "https://proxy.local"},
			}),
			WithModelConstructor(func(_ context.Context, p *core.ProviderConfig) (llms.Model, error) {
				resolved = *p
				return &scriptedModel{}, nil
			}),
		)
		_, err := factory.Build(t.Context(), scoutConfig(core.ProviderAnthropic))
		require.NoError(t, err)
		assert.Equal(t, "sk-test", resolved.APIKey)
		assert.Equal(t, "https://proxy.local", resolved.APIURL)
		assert.Equal(t, "test-model", resolved.Model)
	})

	t.Run("Should not require keys for local providers", func(t *testing.T) {
		for _, provider := range []core.ProviderName{core.ProviderOllama, core.ProviderMock} {
			buildWith(t, &scriptedModel{}, scoutConfig(provider))
		}
	})

	t.Run("Should reject unknown providers", func(t *testing.T) {
		_, err := CreateModel(t.Context(), &core.ProviderConfig{Provider: "carrier-pigeon", Model: "x"})
		assert.True(t, core.HasCode(err, core.ErrCodeUnsupportedProvider))
	})

	t.Run("Should tag model construction failures", func(t *testing.T) {
		factory := NewFactory(WithModelConstructor(func(context.Context, *core.ProviderConfig) (llms.Model, error) {
			return nil, errors.New("bad endpoint")
		}))
		_, err := factory.Build(t.Context(), scoutConfig(core.ProviderMock))
		assert.True(t, core.HasCode(err, core.ErrCodeAgentBuild))
	})

	t.Run("Should expose tools and subagents as functions", func(t *testing.T) {
		model := &scriptedModel{}
		a := buildWith(t, model, scoutConfig(core.ProviderMock))
		assert.Equal(t, []string{"reveal_tile", "call_agent_builder"}, a.toolNames())
		assert.Contains(t, a.SystemPrompt(), "Report what you find.")
		assert.Contains(t, a.SystemPrompt(), "- cartography")
		assert.Contains(t, a.SystemPrompt(), "builder (tool: call_agent_builder)")
	})
}

func TestCallOptions(t *testing.T) {
	apply := func(opts []llms.CallOption) llms.CallOptions {
		out := llms.CallOptions{Temperature: 0.7}
		for _, opt := range opts {
			opt(&out)
		}
		return out
	}

	t.Run("Should send an explicit zero temperature", func(t *testing.T) {
		got := apply(callOptions(&core.ProviderConfig{Temperature: ptr(0.0)}, nil))
		assert.Zero(t, got.Temperature)
	})

	t.Run("Should leave the temperature alone when unset", func(t *testing.T) {
		opts := callOptions(&core.ProviderConfig{}, nil)
		assert.Empty(t, opts)
		assert.InDelta(t, 0.7, apply(opts).Temperature, 0.0001)
	})
}

func TestAgent_Invoke(t *testing.T) {
	input := &agent.Input{Messages: []agent.Message{{Role: agent.RoleUser, Content: "scout north"}}}

	t.Run("Should send the system prompt and call options", func(t *testing.T) {
		model := &scriptedModel{chunks: []string{"found ", "gold"}}
		a := buildWith(t, model, scoutConfig(core.ProviderMock))

		out, err := a.Invoke(t.Context(), input)
		require.NoError(t, err)

		assert.Equal(t, "found gold", out.Content)
		require.Len(t, out.ToolCalls, 1)
		assert.Equal(t, "call_agent_builder", out.ToolCalls[0].Name)
		require.Len(t, out.Messages, 2)
		assert.Equal(t, agent.RoleAssistant, out.Messages[1].Role)
		require.Len(t, model.lastMsgs, 2)
		assert.Equal(t, llms.ChatMessageTypeSystem, model.lastMsgs[0].Role)
		assert.InDelta(t, 0.2, model.lastOpts.Temperature, 0.0001)
		assert.Equal(t, 256, model.lastOpts.MaxTokens)
	})

	t.Run("Should retry transient failures and succeed", func(t *testing.T) {
		model := &scriptedModel{errs: []error{
			errors.New("503 service unavailable"),
			errors.New("rate limit exceeded"),
		}}
		a := buildWith(t, model, scoutConfig(core.ProviderMock))

		_, err := a.Invoke(t.Context(), input)
		require.NoError(t, err)
		assert.Equal(t, 3, model.callCount())
	})

	t.Run("Should not retry permanent failures", func(t *testing.T) {
		model := &scriptedModel{errs: []error{errors.New("401 unauthorized: api_key=sk-secret")}}
		a := buildWith(t, model, scoutConfig(core.ProviderMock))

		_, err := a.Invoke(t.Context(), input)
		require.Error(t, err)
		assert.True(t, core.HasCode(err, core.ErrCodeLLMGeneration))
		assert.NotContains(t, err.Error(), "sk-secret")
		assert.Equal(t, 1, model.callCount())
	})

	t.Run("Should return context errors unwrapped", func(t *testing.T) {
		ctx, cancel := context.WithCancel(t.Context())
		cancel()
		model := &scriptedModel{errs: []error{context.Canceled}}
		a := buildWith(t, model, scoutConfig(core.ProviderMock))

		_, err := a.Invoke(ctx, input)
		assert.ErrorIs(t, err, context.Canceled)
		assert.Empty(t, core.ErrorCode(err))
	})
}

func TestAgent_Stream(t *testing.T) {
	input := &agent.Input{Messages: []agent.Message{{Role: agent.RoleUser, Content: "scout north"}}}

	t.Run("Should forward every chunk", func(t *testing.T) {
		model := &scriptedModel{chunks: []string{"a", "b", "c"}}
		a := buildWith(t, model, scoutConfig(core.ProviderMock))
		var got []string
		out, err := a.Stream(t.Context(), input, func(_ context.Context, chunk []byte) error {
			got = append(got, string(chunk))
			return nil
		})
		require.NoError(t, err)
		assert.Equal(t, []string{"a", "b", "c"}, got)
		assert.Equal(t, "abc", out.Content)
	})

	t.Run("Should not retry once a chunk was delivered", func(t *testing.T) {
		model := &scriptedModel{chunks: []string{"partial"}, errs: []error{errors.New("connection reset by peer")}}
		a := buildWith(t, model, scoutConfig(core.ProviderMock))
		_, err := a.Stream(t.Context(), input, func(context.Context, []byte) error { return nil })
		require.Error(t, err)
		assert.Equal(t, 1, model.callCount())
	})

	t.Run("Should retry failures that happen before the first chunk", func(t *testing.T) {
		model := &scriptedModel{errs: []error{errors.New("connection refused")}}
		a := buildWith(t, model, scoutConfig(core.ProviderMock))
		_, err := a.Stream(t.Context(), input, nil)
		require.NoError(t, err)
		assert.Equal(t, 2, model.callCount())
	})
}

func TestMockLLM(t *testing.T) {
	t.Run("Should echo the last user message", func(t *testing.T) {
		m := NewMockLLM("echo")
		resp, err := m.GenerateContent(t.Context(), []llms.MessageContent{
			llms.TextParts(llms.ChatMessageTypeSystem, "be brief"),
			llms.TextParts(llms.ChatMessageTypeHuman, "hello"),
		})
		require.NoError(t, err)
		assert.Equal(t, "Mock response for: hello", resp.Choices[0].Content)
	})

	t.Run("Should stop slow prompts on cancellation", func(t *testing.T) {
		m := NewMockLLM("echo")
		ctx, cancel := context.WithTimeout(t.Context(), 10*time.Millisecond)
		defer cancel()
		_, err := m.GenerateContent(ctx, []llms.MessageContent{
			llms.TextParts(llms.ChatMessageTypeHuman, "a slow task"),
		})
		assert.ErrorIs(t, err, context.DeadlineExceeded)
	})
}
