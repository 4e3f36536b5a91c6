package agent

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/google/uuid"

	"github.com/gliderlab/planact/pkg/llm"
	"github.com/gliderlab/planact/pkg/prompts"
)

// promptData assembles the template slots shared by both stages
func (a *Agent) promptData(sess *Session, stage string) prompts.Data {
	var memory string
	if a.cfg.Memory != nil {
		m, err := a.cfg.Memory.Load()
		if err != nil {
			log.Printf("[WARN] session=%s stage=%s memory load failed: %v", sess.ID, stage, err)
		}
		memory = m
	}
	return prompts.Data{
		AvailableTools: a.cfg.Registry.Describe(),
		Memory:         memory,
		Context:        RenderContext(sess.History.Messages()),
		Query:          sess.History.LastUserQuery(),
	}
}

func (a *Agent) open(ctx context.Context, sess *Session, stage, prompt string, defs []llm.ToolDefinition) llm.Result {
	if a.cfg.ContextTokens > 0 {
		if n := EstimateTokens(prompt); n > a.cfg.ContextTokens {
			log.Printf("[WARN] session=%s stage=%s prompt is %d tokens (limit %d)", sess.ID, stage, n, a.cfg.ContextTokens)
		}
	}
	res := llm.Open(ctx, a.cfg.Provider, &llm.Request{
		Messages: []llm.Message{{Role: llm.RoleSystem, Content: prompt}},
		Tools:    defs,
		Settings: a.cfg.Settings,
	})
	if !res.OK() {
		log.Printf("[ERROR] session=%s stage=%s: %v", sess.ID, stage, res.Err)
	}
	return res
}

// reason runs the planning stage. The thought is streamed to the channel
// and appended to History; a setup failure appends nothing.
func (a *Agent) reason(ctx context.Context, sess *Session) (string, error) {
	prompt, err := a.cfg.Prompts.Reasoning(a.promptData(sess, "reason"))
	if err != nil {
		return "", err
	}

	res := a.open(ctx, sess, "reason", prompt, nil)
	if !res.OK() {
		return "", nil
	}
	sink := newThoughtSink(a.cfg.Thinking, sess.Channel)
	for d, err := range res.Deltas() {
		if err != nil {
			return "", fmt.Errorf("reason stage: %w", err)
		}
		if len(d.ToolCalls) > 0 {
			log.Printf("[WARN] session=%s stage=reason ignoring %d tool call fragment(s)", sess.ID, len(d.ToolCalls))
		}
		if d.Content != "" {
			sink.Append(d.Content)
		}
	}
	if err := ctx.Err(); err != nil {
		return "", fmt.Errorf("reason stage: %w", err)
	}

	text := sink.End()
	if strings.TrimSpace(text) == "" {
		return "", nil
	}
	thought := NewThought(text)
	log.Printf("[Agent] session=%s reasoning output: %q", sess.ID, thought.Content)
	sess.History.Append(thought)
	return thought.Content, nil
}

// response is what one answering stage produced
type response struct {
	Text    string
	Records []ToolCallRecord
	// Opened is set once StartMessage was sent for this stage
	Opened bool
}

// respond runs the answering stage with tools enabled. Visible text goes
// to the channel as it streams and tool-call fragments are merged into
// records. A visible message followed by tool calls is closed here.
// Nothing is appended to History. A stream that could not be started is
// returned as its *llm.SetupError.
func (a *Agent) respond(ctx context.Context, sess *Session, thought string) (response, error) {
	data := a.promptData(sess, "respond")
	data.Thought = thought
	prompt, err := a.cfg.Prompts.Response(data)
	if err != nil {
		return response{}, err
	}

	res := a.open(ctx, sess, "respond", prompt, a.cfg.Registry.Definitions())
	if !res.OK() {
		return response{}, res.Err
	}

	var (
		out  response
		text strings.Builder
		acc  ToolCallAccumulator
	)
	for d, err := range res.Deltas() {
		if err != nil {
			return response{}, fmt.Errorf("respond stage: %w", err)
		}
		if d.Content != "" {
			if !out.Opened {
				sess.Channel.StartMessage()
				out.Opened = true
			}
			sess.Channel.Token(d.Content)
			text.WriteString(d.Content)
		}
		if len(d.ToolCalls) > 0 {
			acc.Add(d.ToolCalls...)
		}
	}
	if err := ctx.Err(); err != nil {
		return response{}, fmt.Errorf("respond stage: %w", err)
	}

	out.Text = StripThinkingTags(text.String())
	out.Records = acc.Records()
	for i := range out.Records {
		if out.Records[i].ID == "" {
			out.Records[i].ID = "call_" + uuid.NewString()
		}
	}
	if out.Opened && len(out.Records) > 0 {
		sess.Channel.EndMessage(out.Text)
	}
	return out, nil
}
