package llm

import (
	"context"
	"strings"
	"time"

	"github.com/tmc/langchaingo/llms"
)

// MockLLM is a deterministic in-process model. It answers with the last
// user message and, when streaming, emits the answer word by word.
//
// Prompts containing "slow" take long enough for cancellation and timeout
// paths to be exercised.
type MockLLM struct {
	model string
	delay time.Duration
}

func NewMockLLM(model string) *MockLLM {
	return &MockLLM{model: model, delay: 200 * time.Millisecond}
}

func (m *MockLLM) GenerateContent(
	ctx context.Context,
	messages []llms.MessageContent,
	options ...llms.CallOption,
) (*llms.ContentResponse, error) {
	opts := llms.CallOptions{}
	for _, opt := range options {
		opt(&opts)
	}
	prompt := lastHumanText(messages)
	if strings.Contains(prompt, "slow") {
		select {
		case <-time.After(m.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	reply := "Mock agent response: task completed successfully"
	if prompt != "" {
		reply = "Mock response for: " + prompt
	}
	if opts.StreamingFunc != nil {
		words := strings.SplitAfter(reply, " ")
		for _, w := range words {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			if err := opts.StreamingFunc(ctx, []byte(w)); err != nil {
				return nil, err
			}
		}
	}
	return &llms.ContentResponse{
		Choices: []*llms.ContentChoice{{Content: reply, StopReason: "stop"}},
	}, nil
}

func (m *MockLLM) Call(ctx context.Context, prompt string, options ...llms.CallOption) (string, error) {
	return llms.GenerateFromSinglePrompt(ctx, m, prompt, options...)
}

func lastHumanText(messages []llms.MessageContent) string {
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role != llms.ChatMessageTypeHuman {
			continue
		}
		var b strings.Builder
		for _, part := range messages[i].Parts {
			if text, ok := part.(llms.TextContent); ok {
				b.WriteString(text.Text)
			}
		}
		return strings.TrimSpace(b.String())
	}
	return ""
}
