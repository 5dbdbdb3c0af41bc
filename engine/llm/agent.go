package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/DavinciDreams/agents-of-empires-sub001/engine/agent"
	"github.com/DavinciDreams/agents-of-empires-sub001/engine/core"
	"github.com/DavinciDreams/agents-of-empires-sub001/engine/retry"
	"github.com/DavinciDreams/agents-of-empires-sub001/pkg/logger"
	"github.com/tmc/langchaingo/llms"
)

// Agent is an agent.Instance that sends the conversation to one chat model.
// It holds no per-call state and is safe for concurrent use.
type Agent struct {
	id           string
	provider     core.ProviderName
	model        llms.Model
	systemPrompt string
	callOptions  []llms.CallOption
	policy       retry.Policy
	metrics      *llmMetrics
}

var _ agent.Instance = (*Agent)(nil)

func (a *Agent) ID() string { return a.id }

func (a *Agent) SystemPrompt() string { return a.systemPrompt }

// Invoke generates one reply. Transient provider failures are retried with
// the factory's policy.
func (a *Agent) Invoke(ctx context.Context, input *agent.Input) (*agent.Output, error) {
	messages := a.convertMessages(input)
	resp, err := retry.Execute(ctx, a.retryPolicy(ctx, nil), func(ctx context.Context) (*llms.ContentResponse, error) {
		return a.model.GenerateContent(ctx, messages, a.callOptions...)
	})
	if err != nil {
		a.metrics.request(ctx, a.provider, "error")
		return nil, a.wrapError(err)
	}
	a.metrics.request(ctx, a.provider, "success")
	return a.convertResponse(input, resp, "")
}

// Stream forwards chunks to fn as the model produces them. Once a chunk has
// been delivered the call is no longer retried.
func (a *Agent) Stream(ctx context.Context, input *agent.Input, fn agent.StreamFunc) (*agent.Output, error) {
	messages := a.convertMessages(input)
	var (
		delivered atomic.Bool
		buf       strings.Builder
	)
	streamFn := func(ctx context.Context, chunk []byte) error {
		delivered.Store(true)
		buf.Write(chunk)
		if fn == nil {
			return nil
		}
		return fn(ctx, chunk)
	}
	opts := append(append([]llms.CallOption{}, a.callOptions...), llms.WithStreamingFunc(streamFn))
	policy := a.retryPolicy(ctx, func() bool { return !delivered.Load() })
	resp, err := retry.Execute(ctx, policy, func(ctx context.Context) (*llms.ContentResponse, error) {
		return a.model.GenerateContent(ctx, messages, opts...)
	})
	if err != nil {
		a.metrics.request(ctx, a.provider, "error")
		return nil, a.wrapError(err)
	}
	a.metrics.request(ctx, a.provider, "success")
	return a.convertResponse(input, resp, buf.String())
}

func (a *Agent) retryPolicy(ctx context.Context, allowed func() bool) retry.Policy {
	policy := a.policy
	base := policy.IsRetryable
	if base == nil {
		base = retry.IsTransient
	}
	policy.IsRetryable = func(err error) bool {
		if allowed != nil && !allowed() {
			return false
		}
		return base(err)
	}
	log := logger.FromContext(ctx)
	observer := policy.OnRetry
	policy.OnRetry = func(attempt int, err error, delay time.Duration) {
		log.Warn("Retrying LLM call",
			"agent_id", a.id, "provider", a.provider, "attempt", attempt+1,
			"delay", delay, "error", core.RedactError(err))
		a.metrics.retried(ctx, a.provider)
		if observer != nil {
			observer(attempt, err, delay)
		}
	}
	return policy
}

// wrapError keeps context errors recognizable and tags provider failures.
func (a *Agent) wrapError(err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	wrapped := core.NewError(
		fmt.Errorf("%s generation failed: %w", a.provider, err),
		core.ErrCodeLLMGeneration,
		map[string]any{"agent_id": a.id, "provider": string(a.provider)},
	)
	wrapped.Message = core.RedactString(wrapped.Message)
	return wrapped
}

func (a *Agent) convertMessages(input *agent.Input) []llms.MessageContent {
	var msgs []agent.Message
	if input != nil {
		msgs = input.Messages
	}
	out := make([]llms.MessageContent, 0, len(msgs)+1)
	if a.systemPrompt != "" {
		out = append(out, llms.TextParts(llms.ChatMessageTypeSystem, a.systemPrompt))
	}
	for _, msg := range msgs {
		out = append(out, llms.TextParts(mapRole(msg.Role), msg.Content))
	}
	return out
}

func mapRole(role agent.Role) llms.ChatMessageType {
	switch role {
	case agent.RoleSystem:
		return llms.ChatMessageTypeSystem
	case agent.RoleAssistant:
		return llms.ChatMessageTypeAI
	case agent.RoleTool:
		return llms.ChatMessageTypeTool
	default:
		return llms.ChatMessageTypeHuman
	}
}

func (a *Agent) convertResponse(input *agent.Input, resp *llms.ContentResponse, streamed string) (*agent.Output, error) {
	if resp == nil || len(resp.Choices) == 0 {
		if streamed == "" {
			return nil, core.NewError(
				fmt.Errorf("empty response from %s", a.provider),
				core.ErrCodeLLMGeneration,
				map[string]any{"agent_id": a.id},
			)
		}
		resp = &llms.ContentResponse{Choices: []*llms.ContentChoice{{Content: streamed}}}
	}
	choice := resp.Choices[0]
	content := choice.Content
	if content == "" {
		content = streamed
	}
	out := &agent.Output{
		Content:   content,
		ToolCalls: convertToolCalls(choice.ToolCalls),
	}
	if input != nil {
		out.Messages = append(out.Messages, input.Messages...)
	}
	out.Messages = append(out.Messages, agent.Message{Role: agent.RoleAssistant, Content: content})
	return out, nil
}

func (a *Agent) toolNames() []string {
	opts := llms.CallOptions{}
	for _, opt := range a.callOptions {
		opt(&opts)
	}
	names := make([]string, 0, len(opts.Tools))
	for _, t := range opts.Tools {
		if t.Function != nil {
			names = append(names, t.Function.Name)
		}
	}
	return names
}
