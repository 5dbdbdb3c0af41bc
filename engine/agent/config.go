package agent

import (
	"fmt"
	"maps"
	"slices"

	"github.com/DavinciDreams/agents-of-empires-sub001/engine/core"
)

// ToolConfig describes a function the model may call. Parameters is a JSON
// schema object.
type ToolConfig struct {
	Name        string         `json:"name"                  yaml:"name"                  validate:"required"`
	Description string         `json:"description,omitempty" yaml:"description,omitempty"`
	Parameters  map[string]any `json:"parameters,omitempty"  yaml:"parameters,omitempty"`
}

// Config is the registered definition of an agent. The registry stores a
// private copy, so changing a Config after Register has no effect.
type Config struct {
	ID           string              `json:"id"                      yaml:"id"                      validate:"required"`
	Name         string              `json:"name,omitempty"          yaml:"name,omitempty"`
	Description  string              `json:"description,omitempty"   yaml:"description,omitempty"`
	Model        core.ProviderConfig `json:"model"                   yaml:"model"                   validate:"required"`
	SystemPrompt string              `json:"system_prompt,omitempty" yaml:"system_prompt,omitempty"`
	Tools        []ToolConfig        `json:"tools,omitempty"         yaml:"tools,omitempty"         validate:"dive"`
	Subagents    []string            `json:"subagents,omitempty"     yaml:"subagents,omitempty"     validate:"dive,required"`
	Skills       []string            `json:"skills,omitempty"        yaml:"skills,omitempty"`
	Checkpoint   bool                `json:"checkpoint,omitempty"    yaml:"checkpoint,omitempty"`
}

func (c *Config) Validate() error {
	v := NewCompositeValidator(
		NewStructValidator(c),
		NewToolsValidator(c.Tools),
		NewSubagentsValidator(c.ID, c.Subagents),
	)
	if err := v.Validate(); err != nil {
		return core.NewError(
			fmt.Errorf("invalid agent config %q: %w", c.ID, err),
			core.ErrCodeAgentInvalidConfig,
			map[string]any{"agent_id": c.ID},
		)
	}
	return nil
}

// Clone returns a deep copy of the config.
func (c *Config) Clone() *Config {
	if c == nil {
		return nil
	}
	out := *c
	out.Subagents = slices.Clone(c.Subagents)
	out.Skills = slices.Clone(c.Skills)
	if c.Tools != nil {
		out.Tools = make([]ToolConfig, len(c.Tools))
		for i := range c.Tools {
			out.Tools[i] = c.Tools[i]
			out.Tools[i].Parameters = maps.Clone(c.Tools[i].Parameters)
		}
	}
	return &out
}

// DisplayName falls back to the id when no name is configured.
func (c *Config) DisplayName() string {
	if c.Name != "" {
		return c.Name
	}
	return c.ID
}
