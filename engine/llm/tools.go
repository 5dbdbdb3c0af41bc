package llm

import (
	"github.com/DavinciDreams/agents-of-empires-sub001/engine/agent"
	"github.com/tmc/langchaingo/llms"
)

const subagentToolPrefix = "call_agent_"

// SubagentToolName is the function name the model calls to delegate to id.
func SubagentToolName(id string) string {
	return subagentToolPrefix + id
}

func convertTools(cfg *agent.Config) []llms.Tool {
	tools := make([]llms.Tool, 0, len(cfg.Tools)+len(cfg.Subagents))
	for i := range cfg.Tools {
		t := &cfg.Tools[i]
		params := t.Parameters
		if params == nil {
			params = map[string]any{"type": "object", "properties": map[string]any{}}
		}
		tools = append(tools, llms.Tool{
			Type: "function",
			Function: &llms.FunctionDefinition{
				Name:        t.Name,
				Description: t.Description,
				Parameters:  params,
			},
		})
	}
	for _, id := range cfg.Subagents {
		tools = append(tools, llms.Tool{
			Type: "function",
			Function: &llms.FunctionDefinition{
				Name:        SubagentToolName(id),
				Description: "Delegate a task to the " + id + " agent and return its answer.",
				Parameters: map[string]any{
					"type": "object",
					"properties": map[string]any{
						"task": map[string]any{
							"type":        "string",
							"description": "What the agent should do",
						},
					},
					"required": []string{"task"},
				},
			},
		})
	}
	return tools
}

func convertToolCalls(calls []llms.ToolCall) []agent.ToolCall {
	if len(calls) == 0 {
		return nil
	}
	out := make([]agent.ToolCall, 0, len(calls))
	for _, tc := range calls {
		if tc.FunctionCall == nil {
			continue
		}
		out = append(out, agent.ToolCall{
			ID:        tc.ID,
			Name:      tc.FunctionCall.Name,
			Arguments: tc.FunctionCall.Arguments,
		})
	}
	return out
}
