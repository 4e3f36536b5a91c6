// Package llm provides the streaming chat-completion abstraction layer
package llm

import (
	"context"
	"fmt"
)

// ProviderType represents the type of LLM provider
type ProviderType string

const (
	ProviderOpenAI ProviderType = "openai"
	ProviderGoogle ProviderType = "google"
)

// ParseProviderType maps a config string to a provider type
func ParseProviderType(s string) (ProviderType, error) {
	switch ProviderType(s) {
	case "", ProviderOpenAI:
		return ProviderOpenAI, nil
	case ProviderGoogle:
		return ProviderGoogle, nil
	default:
		return "", fmt.Errorf("unknown provider %q", s)
	}
}

// Chat roles
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleTool      = "tool"
)

// Message represents a chat message sent to the provider
type Message struct {
	Role       string     `json:"role"`
	Content    string     `json:"content"`
	Name       string     `json:"name,omitempty"`
	ToolCalls  []ToolCall `json:"tool_calls,omitempty"`
	ToolCallID string     `json:"tool_call_id,omitempty"`
}

// ToolCall is a fully assembled function call
type ToolCall struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

// ToolDefinition describes a callable function to the model
type ToolDefinition struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters"`
}

// Settings holds per-call generation parameters. Zero values mean
// "provider default".
type Settings struct {
	Model       string  `json:"model" yaml:"model"`
	Temperature float32 `json:"temperature,omitempty" yaml:"temperature"`
	TopP        float32 `json:"top_p,omitempty" yaml:"top_p"`
	MaxTokens   int     `json:"max_tokens,omitempty" yaml:"max_tokens"`
}

// Request represents one streaming chat completion request
type Request struct {
	Messages []Message
	Tools    []ToolDefinition
	Settings Settings
}

// Provider defines the interface for streaming LLM backends
type Provider interface {
	Name() string
	Type() ProviderType
	// Stream issues one streaming request. A non-nil error means the stream
	// could not be created.
	Stream(ctx context.Context, req *Request) (*Stream, error)
}

// Config holds provider configuration
type Config struct {
	Type    ProviderType `json:"type"`
	APIKey  string       `json:"apiKey,omitempty"`
	BaseURL string       `json:"baseUrl,omitempty"`
	Model   string       `json:"model,omitempty"`
	Timeout int          `json:"timeout,omitempty"` // seconds
}
