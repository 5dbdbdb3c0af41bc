package llm

import (
	"bytes"
	"embed"
	"fmt"
	"strings"
	"text/template"

	"github.com/DavinciDreams/agents-of-empires-sub001/engine/agent"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

var systemPromptTemplate = template.Must(
	template.New("system_prompt").ParseFS(templateFS, "templates/system_prompt.tmpl"),
).Lookup("system_prompt.tmpl")

type subagentRef struct {
	Agent string
	Tool  string
}

type systemPromptData struct {
	Name         string
	Description  string
	Instructions string
	Skills       []string
	Subagents    []subagentRef
}

// RenderSystemPrompt combines the configured prompt with the agent's skills
// and the delegation tools of its subagents.
func RenderSystemPrompt(cfg *agent.Config) (string, error) {
	data := systemPromptData{
		Name:         cfg.DisplayName(),
		Description:  strings.TrimSpace(cfg.Description),
		Instructions: strings.TrimSpace(cfg.SystemPrompt),
		Skills:       cfg.Skills,
	}
	for _, id := range cfg.Subagents {
		data.Subagents = append(data.Subagents, subagentRef{Agent: id, Tool: SubagentToolName(id)})
	}
	var buf bytes.Buffer
	if err := systemPromptTemplate.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("render system prompt: %w", err)
	}
	return strings.TrimSpace(buf.String()), nil
}
