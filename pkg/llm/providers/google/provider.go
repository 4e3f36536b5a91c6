// Package google provides Google Gemini provider implementation
package google

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"iter"
	"log"
	"net/http"
	"time"

	"github.com/google/uuid"
	"google.golang.org/genai"

	"github.com/gliderlab/planact/pkg/llm"
)

// Provider implements llm.Provider for Google Gemini
type Provider struct {
	config llm.Config
}

// New creates a new Google provider
func New(cfg llm.Config) *Provider {
	if cfg.Timeout == 0 {
		cfg.Timeout = 60
	}
	cfg.Type = llm.ProviderGoogle
	return &Provider{config: cfg}
}

// Name returns the provider name
func (p *Provider) Name() string { return "google" }

// Type returns the provider type
func (p *Provider) Type() llm.ProviderType { return llm.ProviderGoogle }

// GetConfig returns the provider config
func (p *Provider) GetConfig() llm.Config { return p.config }

func (p *Provider) newClient(ctx context.Context) (*genai.Client, error) {
	cc := &genai.ClientConfig{
		APIKey:  p.config.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if p.config.BaseURL != "" {
		cc.HTTPOptions = genai.HTTPOptions{BaseURL: p.config.BaseURL}
	}
	// Same policy as the OpenAI provider: no whole-request deadline on streams.
	cc.HTTPClient = &http.Client{
		Transport: &http.Transport{
			Proxy:                 http.ProxyFromEnvironment,
			TLSHandshakeTimeout:   10 * time.Second,
			ResponseHeaderTimeout: time.Duration(p.config.Timeout) * time.Second,
		},
	}
	return genai.NewClient(ctx, cc)
}

// Stream implements llm.Provider.Stream
func (p *Provider) Stream(ctx context.Context, req *llm.Request) (*llm.Stream, error) {
	client, err := p.newClient(ctx)
	if err != nil {
		return nil, err
	}

	model := req.Settings.Model
	if model == "" {
		model = p.config.Model
	}

	system, contents := toContents(req.Messages)
	cfg := &genai.GenerateContentConfig{}
	if system != "" {
		cfg.SystemInstruction = genai.NewContentFromText(system, genai.RoleUser)
	}
	if req.Settings.Temperature > 0 {
		cfg.Temperature = genai.Ptr(req.Settings.Temperature)
	}
	if req.Settings.TopP > 0 {
		cfg.TopP = genai.Ptr(req.Settings.TopP)
	}
	if req.Settings.MaxTokens > 0 {
		cfg.MaxOutputTokens = int32(req.Settings.MaxTokens)
	}
	if len(req.Tools) > 0 {
		cfg.Tools = toTools(req.Tools)
	}

	next, stop := iter.Pull2(client.Models.GenerateContentStream(ctx, model, contents, cfg))
	r := &chunkReader{next: next, stop: stop}

	// Pull the first response now so connection and auth failures surface
	// as setup errors rather than mid-stream ones.
	first, err, ok := next()
	if !ok {
		stop()
		return nil, errors.New("empty response stream")
	}
	if err != nil {
		stop()
		return nil, err
	}
	r.pending = first
	return llm.NewStream(p.Name(), r), nil
}

type chunkReader struct {
	next    func() (*genai.GenerateContentResponse, error, bool)
	stop    func()
	pending *genai.GenerateContentResponse
	index   int
}

func (r *chunkReader) Recv() (llm.Delta, error) {
	resp := r.pending
	r.pending = nil
	if resp == nil {
		var err error
		var ok bool
		resp, err, ok = r.next()
		if !ok {
			return llm.Delta{}, io.EOF
		}
		if err != nil {
			return llm.Delta{}, err
		}
	}
	return r.convert(resp), nil
}

func (r *chunkReader) convert(resp *genai.GenerateContentResponse) llm.Delta {
	var out llm.Delta
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return out
	}
	for _, part := range resp.Candidates[0].Content.Parts {
		if part == nil || part.Thought {
			continue
		}
		if part.Text != "" {
			out.Content += part.Text
		}
		if fc := part.FunctionCall; fc != nil {
			args, err := json.Marshal(fc.Args)
			if err != nil || fc.Args == nil {
				args = []byte("{}")
			}
			id := fc.ID
			if id == "" {
				id = "call_" + uuid.NewString()
			}
			out.ToolCalls = append(out.ToolCalls, llm.ToolCallFragment{
				Index:          r.index,
				ID:             id,
				Name:           fc.Name,
				ArgumentsDelta: string(args),
			})
			r.index++
		}
	}
	return out
}

func (r *chunkReader) Close() error {
	r.stop()
	return nil
}

// toContents splits system text from the conversation. A request carrying
// only a system message is sent as a single user turn.
func toContents(msgs []llm.Message) (string, []*genai.Content) {
	var system string
	contents := make([]*genai.Content, 0, len(msgs))
	for _, m := range msgs {
		switch m.Role {
		case llm.RoleSystem:
			if system != "" {
				system += "\n"
			}
			system += m.Content
		case llm.RoleAssistant:
			parts := make([]*genai.Part, 0, 1+len(m.ToolCalls))
			if m.Content != "" {
				parts = append(parts, genai.NewPartFromText(m.Content))
			}
			for _, tc := range m.ToolCalls {
				var args map[string]any
				if tc.Arguments != "" {
					_ = json.Unmarshal([]byte(tc.Arguments), &args)
				}
				part := genai.NewPartFromFunctionCall(tc.Name, args)
				part.FunctionCall.ID = tc.ID
				parts = append(parts, part)
			}
			if len(parts) > 0 {
				contents = append(contents, genai.NewContentFromParts(parts, genai.RoleModel))
			}
		case llm.RoleTool:
			part := &genai.Part{FunctionResponse: &genai.FunctionResponse{
				ID:       m.ToolCallID,
				Name:     m.Name,
				Response: map[string]any{"output": m.Content},
			}}
			contents = append(contents, genai.NewContentFromParts([]*genai.Part{part}, genai.RoleUser))
		default:
			if m.Content != "" {
				contents = append(contents, genai.NewContentFromText(m.Content, genai.RoleUser))
			}
		}
	}
	if len(contents) == 0 && system != "" {
		return "", []*genai.Content{genai.NewContentFromText(system, genai.RoleUser)}
	}
	return system, contents
}

func toTools(defs []llm.ToolDefinition) []*genai.Tool {
	decls := make([]*genai.FunctionDeclaration, 0, len(defs))
	for _, d := range defs {
		decls = append(decls, &genai.FunctionDeclaration{
			Name:                 d.Name,
			Description:          d.Description,
			ParametersJsonSchema: d.Parameters,
		})
	}
	log.Printf("[LLM] google: declaring %d functions", len(decls))
	return []*genai.Tool{{FunctionDeclarations: decls}}
}

// Ensure Provider implements llm.Provider
var _ llm.Provider = (*Provider)(nil)
