package agentrouter

import (
	"fmt"
	"time"

	"github.com/DavinciDreams/agents-of-empires-sub001/engine/agent"
)

// AgentDTO is the transport view of a registered agent. Credentials are
// never included.
type AgentDTO struct {
	*agent.Config
	Cached bool `json:"cached"`
}

// ExecRequest is the body of POST /agents/:agent_id/executions. Either
// prompt or messages is required; a prompt is appended as a user message.
type ExecRequest struct {
	Prompt       string          `json:"prompt,omitempty"`
	Messages     []agent.Message `json:"messages,omitempty"`
	ThreadID     string          `json:"thread_id,omitempty"`
	CheckpointID string          `json:"checkpoint_id,omitempty"`
}

func (r *ExecRequest) messages() ([]agent.Message, error) {
	messages := append([]agent.Message{}, r.Messages...)
	if r.Prompt != "" {
		messages = append(messages, agent.Message{Role: agent.RoleUser, Content: r.Prompt})
	}
	if len(messages) == 0 {
		return nil, fmt.Errorf("either prompt or messages is required")
	}
	for i := range messages {
		switch messages[i].Role {
		case agent.RoleSystem, agent.RoleUser, agent.RoleAssistant, agent.RoleTool:
		default:
			return nil, fmt.Errorf("messages[%d]: unknown role %q", i, messages[i].Role)
		}
	}
	return messages, nil
}

// CacheConfigRequest is the body of PUT /cache/config. Durations use Go
// syntax, e.g. "30m".
type CacheConfigRequest struct {
	MaxSize    *int    `json:"max_size,omitempty"`
	Expiration *string `json:"expiration,omitempty"`
}

func (r *CacheConfigRequest) toConfig() (agent.CacheConfig, error) {
	cfg := agent.CacheConfig{MaxSize: r.MaxSize}
	if r.Expiration != nil {
		d, err := time.ParseDuration(*r.Expiration)
		if err != nil {
			return cfg, fmt.Errorf("invalid expiration: %w", err)
		}
		cfg.Expiration = &d
	}
	return cfg, nil
}
