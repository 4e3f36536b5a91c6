package agent

import (
	"strings"
	"sync"

	"github.com/gliderlab/planact/pkg/llm"
)

// ReasoningMarker starts every Thought stored in History
const ReasoningMarker = "Thought:"

// Kind tags assistant messages
type Kind int

const (
	KindNone Kind = iota
	KindThought
	KindAnswer
	KindToolRequest
)

func (k Kind) String() string {
	switch k {
	case KindThought:
		return "thought"
	case KindAnswer:
		return "answer"
	case KindToolRequest:
		return "tool_request"
	default:
		return "none"
	}
}

// ToolCallRecord is a fully assembled tool call
type ToolCallRecord = llm.ToolCall

// Message is one entry of a conversation History
type Message struct {
	Role       string           `json:"role"`
	Kind       Kind             `json:"kind,omitempty"`
	Content    string           `json:"content,omitempty"`
	Name       string           `json:"name,omitempty"`
	ToolCalls  []ToolCallRecord `json:"tool_calls,omitempty"`
	ToolCallID string           `json:"tool_call_id,omitempty"`
}

// NewUserMessage creates a user turn
func NewUserMessage(content string) Message {
	return Message{Role: llm.RoleUser, Content: content}
}

// NewThought creates the reasoning note of one step
func NewThought(text string) Message {
	if !strings.HasPrefix(strings.TrimSpace(text), ReasoningMarker) {
		text = ReasoningMarker + " " + text
	}
	return Message{Role: llm.RoleAssistant, Kind: KindThought, Content: text}
}

// NewAnswer creates a user-visible assistant reply
func NewAnswer(text string) Message {
	return Message{Role: llm.RoleAssistant, Kind: KindAnswer, Content: text}
}

// NewToolRequest creates the assistant turn that asks for tool execution
func NewToolRequest(records []ToolCallRecord) Message {
	calls := make([]ToolCallRecord, len(records))
	copy(calls, records)
	return Message{Role: llm.RoleAssistant, Kind: KindToolRequest, ToolCalls: calls}
}

// NewToolMessage creates the result of one tool call
func NewToolMessage(rec ToolCallRecord, content string) Message {
	return Message{Role: llm.RoleTool, Name: rec.Name, ToolCallID: rec.ID, Content: content}
}

// History is the ordered, append-only record of a conversation
type History struct {
	mu       sync.RWMutex
	messages []Message
}

// NewHistory creates an empty history
func NewHistory() *History {
	return &History{}
}

// Append adds messages at the end
func (h *History) Append(msgs ...Message) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.messages = append(h.messages, msgs...)
}

// Len returns the number of messages
func (h *History) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.messages)
}

// Messages returns a copy of all messages
func (h *History) Messages() []Message {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]Message, len(h.messages))
	copy(out, h.messages)
	return out
}

// Last returns the newest message
func (h *History) Last() (Message, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if len(h.messages) == 0 {
		return Message{}, false
	}
	return h.messages[len(h.messages)-1], true
}

// LastUserQuery returns the content of the newest user message
func (h *History) LastUserQuery() string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for i := len(h.messages) - 1; i >= 0; i-- {
		if h.messages[i].Role == llm.RoleUser {
			return h.messages[i].Content
		}
	}
	return ""
}

// Attachment is a file reference sent along with a user message
type Attachment struct {
	Path string `json:"path"`
	MIME string `json:"mime"`
}

// withAttachments appends the attached-files block to a user query
func withAttachments(query string, attachments []Attachment) string {
	if len(attachments) == 0 {
		return query
	}
	var sb strings.Builder
	sb.WriteString(query)
	sb.WriteString("\n--- Attached files ---\n")
	for _, a := range attachments {
		sb.WriteString("- ")
		sb.WriteString(a.Path)
		sb.WriteString(" (")
		sb.WriteString(a.MIME)
		sb.WriteString(")\n")
	}
	return sb.String()
}
