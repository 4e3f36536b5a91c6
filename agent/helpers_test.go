package agent

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/gliderlab/planact/pkg/llm"
	"github.com/gliderlab/planact/tools"
)

// turn is one scripted provider response
type turn struct {
	deltas    []llm.Delta
	setupErr  error
	streamErr error
}

type sliceReader struct {
	deltas []llm.Delta
	err    error
	idx    int
}

func (r *sliceReader) Recv() (llm.Delta, error) {
	if r.idx < len(r.deltas) {
		d := r.deltas[r.idx]
		r.idx++
		return d, nil
	}
	if r.err != nil {
		return llm.Delta{}, r.err
	}
	return llm.Delta{}, io.EOF
}

func (r *sliceReader) Close() error { return nil }

// scriptedProvider replays turns in order and repeats the last one
type scriptedProvider struct {
	mu       sync.Mutex
	turns    []turn
	calls    int
	requests []*llm.Request
	onStream func(req *llm.Request)
}

func (p *scriptedProvider) Name() string           { return "scripted" }
func (p *scriptedProvider) Type() llm.ProviderType { return "scripted" }

func (p *scriptedProvider) Stream(_ context.Context, req *llm.Request) (*llm.Stream, error) {
	p.mu.Lock()
	idx := p.calls
	if idx >= len(p.turns) {
		idx = len(p.turns) - 1
	}
	t := p.turns[idx]
	p.calls++
	p.requests = append(p.requests, req)
	hook := p.onStream
	p.mu.Unlock()

	if hook != nil {
		hook(req)
	}
	if t.setupErr != nil {
		return nil, t.setupErr
	}
	return llm.NewStream(p.Name(), &sliceReader{deltas: t.deltas, err: t.streamErr}), nil
}

func text(parts ...string) turn {
	t := turn{}
	for _, p := range parts {
		t.deltas = append(t.deltas, llm.Delta{Content: p})
	}
	return t
}

func toolCall(id, name, args string) turn {
	return turn{deltas: []llm.Delta{{ToolCalls: []llm.ToolCallFragment{{Index: 0, ID: id, Name: name, ArgumentsDelta: args}}}}}
}

// recordingChannel captures every channel event as a short string
type recordingChannel struct {
	mu       sync.Mutex
	events   []string
	thoughts strings.Builder
	tokens   strings.Builder
}

func (c *recordingChannel) add(e string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, e)
}

func (c *recordingChannel) ThoughtToken(t string) {
	c.mu.Lock()
	c.thoughts.WriteString(t)
	c.mu.Unlock()
}
func (c *recordingChannel) StartMessage() { c.add("start") }
func (c *recordingChannel) Token(t string) {
	c.mu.Lock()
	c.tokens.WriteString(t)
	c.mu.Unlock()
}
func (c *recordingChannel) EndMessage(text string)     { c.add("end:" + text) }
func (c *recordingChannel) ToolStart(r ToolCallRecord) { c.add("tool_start:" + r.Name) }
func (c *recordingChannel) ToolEnd(r ToolCallRecord, out string, err error) {
	if err != nil {
		c.add("tool_error:" + r.Name)
		return
	}
	c.add("tool_end:" + r.Name + ":" + out)
}
func (c *recordingChannel) Notice(text string) { c.add("notice:" + text) }

func (c *recordingChannel) Events() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, len(c.events))
	copy(out, c.events)
	return out
}

// echoTool returns its text argument
type echoTool struct {
	mu   sync.Mutex
	seen []map[string]any
}

func (e *echoTool) Name() string        { return "echo" }
func (e *echoTool) Description() string { return "Echo the text back." }
func (e *echoTool) Parameters() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"text": map[string]any{"type": "string"},
		},
		"required": []string{"text"},
	}
}
func (e *echoTool) Execute(_ context.Context, args map[string]any) (string, error) {
	e.mu.Lock()
	e.seen = append(e.seen, args)
	e.mu.Unlock()
	return tools.RequireString(args, "text")
}

type failingTool struct{ panics bool }

func (f failingTool) Name() string {
	if f.panics {
		return "panicky"
	}
	return "broken"
}
func (f failingTool) Description() string        { return "always fails" }
func (f failingTool) Parameters() map[string]any { return map[string]any{"type": "object"} }
func (f failingTool) Execute(context.Context, map[string]any) (string, error) {
	if f.panics {
		panic("tool blew up")
	}
	return "", errors.New("backend down")
}

type staticMemory string

func (m staticMemory) Load() (string, error) { return string(m), nil }

func newTestAgent(t *testing.T, p llm.Provider, mutate func(*Config), ts ...tools.Tool) *Agent {
	t.Helper()
	if len(ts) == 0 {
		ts = []tools.Tool{&echoTool{}}
	}
	reg, err := tools.NewRegistry(ts...)
	require.NoError(t, err)
	cfg := Config{Provider: p, Registry: reg, Memory: staticMemory("")}
	if mutate != nil {
		mutate(&cfg)
	}
	a, err := New(cfg)
	require.NoError(t, err)
	return a
}
