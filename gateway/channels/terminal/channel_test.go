package terminal

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"

	"github.com/charmbracelet/lipgloss"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gliderlab/planact/agent"
	"github.com/gliderlab/planact/pkg/llm"
	"github.com/gliderlab/planact/tools"
)

type sliceReader struct {
	deltas []llm.Delta
	idx    int
}

func (r *sliceReader) Recv() (llm.Delta, error) {
	if r.idx >= len(r.deltas) {
		return llm.Delta{}, io.EOF
	}
	d := r.deltas[r.idx]
	r.idx++
	return d, nil
}

func (r *sliceReader) Close() error { return nil }

// answerProvider answers every stage with its text and records prompts
type answerProvider struct {
	mu      sync.Mutex
	text    string
	prompts []string
}

func (p *answerProvider) Name() string           { return "answer" }
func (p *answerProvider) Type() llm.ProviderType { return "answer" }

func (p *answerProvider) Stream(_ context.Context, req *llm.Request) (*llm.Stream, error) {
	p.mu.Lock()
	p.prompts = append(p.prompts, req.Messages[0].Content)
	p.mu.Unlock()
	return llm.NewStream(p.Name(), &sliceReader{deltas: []llm.Delta{{Content: p.text}}}), nil
}

// plainStyles renders without escape codes
func plainStyles() Styles {
	s := lipgloss.NewStyle()
	return Styles{Prompt: s, Thought: s, Answer: s, Tool: s, Notice: s, Error: s}
}

func newREPL(t *testing.T, p llm.Provider, input string) (*REPL, *bytes.Buffer) {
	t.Helper()
	reg, err := tools.NewRegistry()
	require.NoError(t, err)
	a, err := agent.New(agent.Config{Provider: p, Registry: reg, Thinking: agent.ThinkingModeQuiet})
	require.NoError(t, err)
	var out bytes.Buffer
	return NewREPL(a, strings.NewReader(input), &out, plainStyles()), &out
}

func TestREPLConversation(t *testing.T) {
	p := &answerProvider{text: "Hello there"}
	r, out := newREPL(t, p, "hi\n/exit\nnever read\n")

	require.NoError(t, r.Run(context.Background()))

	s := out.String()
	assert.True(t, strings.HasPrefix(s, "I'm an AI agent!\n** Available tools **\n"))
	assert.Contains(t, s, "AI Agent: Hello there\n")
	assert.Equal(t, 3, r.Session().History.Len(), "user, thought, answer")

	p.mu.Lock()
	defer p.mu.Unlock()
	assert.Len(t, p.prompts, 2)
}

func TestREPLEmptyLineShowsNotice(t *testing.T) {
	p := &answerProvider{text: "x"}
	r, out := newREPL(t, p, "   \n")

	require.NoError(t, r.Run(context.Background()))
	assert.Contains(t, out.String(), agent.EmptyQueryNotice)
	assert.Zero(t, r.Session().History.Len())
}

func TestREPLAttach(t *testing.T) {
	p := &answerProvider{text: "seen"}
	r, out := newREPL(t, p, "/attach \"my photo.png\"\n/attach notes.bin text/plain\ndescribe\n")

	require.NoError(t, r.Run(context.Background()))
	assert.Contains(t, out.String(), "Attached my photo.png (image/png)")

	msgs := r.Session().History.Messages()
	require.NotEmpty(t, msgs)
	assert.Equal(t, "describe\n--- Attached files ---\n- my photo.png (image/png)\n- notes.bin (text/plain)\n", msgs[0].Content)
	assert.Empty(t, r.pending)
}

func TestREPLAttachUsage(t *testing.T) {
	r, out := newREPL(t, &answerProvider{text: "x"}, "/attach\n/attach \"unterminated\n")

	require.NoError(t, r.Run(context.Background()))
	assert.Equal(t, 2, strings.Count(out.String(), "Usage: /attach"))
}

func TestREPLClear(t *testing.T) {
	r, _ := newREPL(t, &answerProvider{text: "x"}, "one\n/clear\n")
	first := r.Session()

	require.NoError(t, r.Run(context.Background()))
	assert.NotSame(t, first, r.Session())
	assert.Equal(t, 3, first.History.Len())
	assert.Zero(t, r.Session().History.Len())
}

func TestREPLStopsOnCancelledContext(t *testing.T) {
	r, _ := newREPL(t, &answerProvider{text: "x"}, "hi\n")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := r.Run(ctx)
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestChannelRendering(t *testing.T) {
	var out bytes.Buffer
	ch := NewChannel(&out, plainStyles())

	ch.ThoughtToken("Thought: look it up")
	ch.ToolStart(agent.ToolCallRecord{ID: "1", Name: "googlesearch", Arguments: `{"query":"go"}`})
	ch.ToolEnd(agent.ToolCallRecord{Name: "googlesearch"}, "results", nil)
	ch.ToolEnd(agent.ToolCallRecord{Name: "googlesearch"}, "", errors.New("down"))
	ch.StartMessage()
	ch.Token("done")
	ch.EndMessage("done")

	assert.Equal(t, "Thought: look it up\n"+
		"Tool: googlesearch input: {\"query\":\"go\"}\n"+
		"Tool: googlesearch output: results\n"+
		"Tool: googlesearch failed: down\n"+
		"AI Agent: done\n", out.String())
}

func TestDetectMIME(t *testing.T) {
	assert.Equal(t, "image/png", DetectMIME("a.PNG"))
	assert.Equal(t, "application/octet-stream", DetectMIME("noext"))
}
