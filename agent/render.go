package agent

import (
	"strings"

	"github.com/gliderlab/planact/pkg/llm"
)

// RenderContext turns a History into the plain-text narrative used by both
// stage prompts. Thoughts and empty tool outputs are left out.
func RenderContext(history []Message) string {
	var sb strings.Builder
	for _, m := range history {
		switch m.Role {
		case llm.RoleUser:
			sb.WriteString("User: ")
			sb.WriteString(m.Content)
			sb.WriteString("\n")
		case llm.RoleAssistant:
			switch m.Kind {
			case KindAnswer:
				sb.WriteString("AI Agent: ")
				sb.WriteString(m.Content)
				sb.WriteString("\n")
			case KindToolRequest:
				for _, tc := range m.ToolCalls {
					sb.WriteString("Tool: ")
					sb.WriteString(tc.Name)
					sb.WriteString(" input: ")
					sb.WriteString(tc.Arguments)
					sb.WriteString("\n")
				}
			}
		case llm.RoleTool:
			if m.Content != "" {
				sb.WriteString("Tool: ")
				sb.WriteString(m.Name)
				sb.WriteString(" output: ")
				sb.WriteString(m.Content)
				sb.WriteString("\n")
			}
		}
	}
	return sb.String()
}
