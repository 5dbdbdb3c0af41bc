package agent

import (
	"fmt"

	"github.com/go-playground/validator/v10"
)

var structValidate = validator.New()

type Validator interface {
	Validate() error
}

// -----------------------------------------------------------------------------
// CompositeValidator
// -----------------------------------------------------------------------------

type CompositeValidator struct {
	validators []Validator
}

func NewCompositeValidator(validators ...Validator) *CompositeValidator {
	return &CompositeValidator{validators: validators}
}

func (v *CompositeValidator) Validate() error {
	for _, validator := range v.validators {
		if err := validator.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// -----------------------------------------------------------------------------
// StructValidator
// -----------------------------------------------------------------------------

type StructValidator struct {
	value any
}

func NewStructValidator(value any) *StructValidator {
	return &StructValidator{value: value}
}

func (v *StructValidator) Validate() error {
	return structValidate.Struct(v.value)
}

// -----------------------------------------------------------------------------
// ToolsValidator
// -----------------------------------------------------------------------------

type ToolsValidator struct {
	tools []ToolConfig
}

func NewToolsValidator(tools []ToolConfig) *ToolsValidator {
	return &ToolsValidator{tools: tools}
}

func (v *ToolsValidator) Validate() error {
	seen := make(map[string]struct{}, len(v.tools))
	for i := range v.tools {
		name := v.tools[i].Name
		if _, ok := seen[name]; ok {
			return fmt.Errorf("duplicate tool name %q", name)
		}
		seen[name] = struct{}{}
	}
	return nil
}

// -----------------------------------------------------------------------------
// SubagentsValidator
// -----------------------------------------------------------------------------

type SubagentsValidator struct {
	agentID   string
	subagents []string
}

func NewSubagentsValidator(agentID string, subagents []string) *SubagentsValidator {
	return &SubagentsValidator{agentID: agentID, subagents: subagents}
}

func (v *SubagentsValidator) Validate() error {
	for _, id := range v.subagents {
		if id == v.agentID {
			return fmt.Errorf("agent %q cannot list itself as a subagent", id)
		}
	}
	return nil
}
