// Package openai provides the OpenAI-compatible streaming provider
package openai

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	goopenai "github.com/sashabaranov/go-openai"

	"github.com/gliderlab/planact/pkg/llm"
)

// Provider implements llm.Provider on top of go-openai
type Provider struct {
	config llm.Config
	client *goopenai.Client
}

// New creates a new OpenAI provider
func New(cfg llm.Config) *Provider {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 60
	}
	cfg.Type = llm.ProviderOpenAI

	oc := goopenai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		oc.BaseURL = strings.TrimSuffix(cfg.BaseURL, "/")
	}
	// The whole-request http.Client.Timeout would cut long streams short,
	// so timeouts apply to connect and response headers only.
	oc.HTTPClient = &http.Client{
		Transport: &http.Transport{
			Proxy:                 http.ProxyFromEnvironment,
			DialContext:           (&net.Dialer{Timeout: 10 * time.Second}).DialContext,
			TLSHandshakeTimeout:   10 * time.Second,
			ResponseHeaderTimeout: time.Duration(timeout) * time.Second,
		},
	}

	return &Provider{
		config: cfg,
		client: goopenai.NewClientWithConfig(oc),
	}
}

// Name returns the provider name
func (p *Provider) Name() string { return "openai" }

// Type returns the provider type
func (p *Provider) Type() llm.ProviderType { return llm.ProviderOpenAI }

// GetConfig returns the provider config
func (p *Provider) GetConfig() llm.Config { return p.config }

// Stream implements llm.Provider.Stream
func (p *Provider) Stream(ctx context.Context, req *llm.Request) (*llm.Stream, error) {
	model := req.Settings.Model
	if model == "" {
		model = p.config.Model
	}

	creq := goopenai.ChatCompletionRequest{
		Model:       model,
		Messages:    toOpenAIMessages(req.Messages),
		Temperature: req.Settings.Temperature,
		TopP:        req.Settings.TopP,
		MaxTokens:   req.Settings.MaxTokens,
		Stream:      true,
	}
	if len(req.Tools) > 0 {
		creq.Tools = toOpenAITools(req.Tools)
	}

	stream, err := p.client.CreateChatCompletionStream(ctx, creq)
	if err != nil {
		return nil, err
	}

	// A server that ignores stream=true answers with a plain completion body.
	if ct := stream.Header().Get("Content-Type"); strings.HasPrefix(ct, "application/json") {
		stream.Close()
		return nil, fmt.Errorf("expected event stream but got %s", ct)
	}

	return llm.NewStream(p.Name(), &chunkReader{stream: stream}), nil
}

type chunkReader struct {
	stream *goopenai.ChatCompletionStream
}

func (r *chunkReader) Recv() (llm.Delta, error) {
	resp, err := r.stream.Recv()
	if err != nil {
		return llm.Delta{}, err
	}
	if len(resp.Choices) == 0 {
		return llm.Delta{}, nil
	}

	delta := resp.Choices[0].Delta
	out := llm.Delta{Content: delta.Content}
	for i, tc := range delta.ToolCalls {
		index := i
		if tc.Index != nil {
			index = *tc.Index
		}
		out.ToolCalls = append(out.ToolCalls, llm.ToolCallFragment{
			Index:          index,
			ID:             tc.ID,
			Name:           tc.Function.Name,
			ArgumentsDelta: tc.Function.Arguments,
		})
	}
	return out, nil
}

func (r *chunkReader) Close() error {
	return r.stream.Close()
}

func toOpenAIMessages(msgs []llm.Message) []goopenai.ChatCompletionMessage {
	out := make([]goopenai.ChatCompletionMessage, 0, len(msgs))
	for _, m := range msgs {
		om := goopenai.ChatCompletionMessage{
			Role:       m.Role,
			Content:    m.Content,
			Name:       m.Name,
			ToolCallID: m.ToolCallID,
		}
		for _, tc := range m.ToolCalls {
			om.ToolCalls = append(om.ToolCalls, goopenai.ToolCall{
				ID:   tc.ID,
				Type: goopenai.ToolTypeFunction,
				Function: goopenai.FunctionCall{
					Name:      tc.Name,
					Arguments: tc.Arguments,
				},
			})
		}
		out = append(out, om)
	}
	return out
}

func toOpenAITools(defs []llm.ToolDefinition) []goopenai.Tool {
	out := make([]goopenai.Tool, 0, len(defs))
	for _, d := range defs {
		out = append(out, goopenai.Tool{
			Type: goopenai.ToolTypeFunction,
			Function: &goopenai.FunctionDefinition{
				Name:        d.Name,
				Description: d.Description,
				Parameters:  d.Parameters,
			},
		})
	}
	return out
}

// Ensure Provider implements llm.Provider
var _ llm.Provider = (*Provider)(nil)
