package agent

import "context"

type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

type Message struct {
	Role    Role   `json:"role"    yaml:"role"    validate:"required,oneof=system user assistant tool"`
	Content string `json:"content" yaml:"content"`
}

// ToolCall is a function call requested by the model.
type ToolCall struct {
	ID        string `json:"id,omitempty"`
	Name      string `json:"name"`
	Arguments string `json:"arguments,omitempty"`
}

type Input struct {
	Messages []Message `json:"messages"`
	ThreadID string    `json:"thread_id,omitempty"`
}

type Output struct {
	Content   string     `json:"content"`
	ToolCalls []ToolCall `json:"tool_calls,omitempty"`
	// Messages is the full conversation including the reply, suitable for
	// checkpointing.
	Messages []Message `json:"messages,omitempty"`
}

// StreamFunc receives each chunk as it arrives. Returning an error stops
// the stream.
type StreamFunc func(ctx context.Context, chunk []byte) error

// Instance is a constructed agent ready to run. Instances are shared by
// concurrent callers and must be safe for concurrent use.
type Instance interface {
	Invoke(ctx context.Context, input *Input) (*Output, error)
	Stream(ctx context.Context, input *Input, fn StreamFunc) (*Output, error)
}

// Builder turns a validated config into an Instance. Construction may be
// expensive; the Registry amortizes it.
type Builder interface {
	Build(ctx context.Context, cfg *Config) (Instance, error)
}

// BuilderFunc adapts a function to the Builder interface.
type BuilderFunc func(ctx context.Context, cfg *Config) (Instance, error)

func (f BuilderFunc) Build(ctx context.Context, cfg *Config) (Instance, error) {
	return f(ctx, cfg)
}
