// Package agent runs the reason, respond and tool-execution loop for one
// conversation at a time.
package agent

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/gliderlab/planact/pkg/llm"
	"github.com/gliderlab/planact/pkg/prompts"
	"github.com/gliderlab/planact/tools"
)

// Default limits
const (
	DefaultMaxSteps      = 10
	DefaultSameCallLimit = 3
)

// User-visible notices
const (
	EmptyQueryNotice   = "Please enter a message."
	UnreachableNotice  = "Sorry, I could not reach the language model. Please try again."
	MaxStepsNotice     = "max steps reached"
	ToolFailureContent = "Failed to execute the tool."
)

// ErrEmptyQuery is returned by Submit for blank input
var ErrEmptyQuery = errors.New("empty query")

// State is a step of the agent loop
type State int

const (
	StateReason State = iota
	StateRespond
	StateExecuteTools
	StateDone
	StateMaxSteps
	StateLoopDetected
)

func (s State) String() string {
	switch s {
	case StateReason:
		return "reason"
	case StateRespond:
		return "respond"
	case StateExecuteTools:
		return "execute_tools"
	case StateDone:
		return "done"
	case StateMaxSteps:
		return "max_steps"
	case StateLoopDetected:
		return "loop_detected"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Terminal reports whether the loop stops in this state
func (s State) Terminal() bool {
	return s == StateDone || s == StateMaxSteps || s == StateLoopDetected
}

// Outcome summarizes one run of the loop
type Outcome struct {
	State State
	// Steps counts reasoning stages entered
	Steps int
	// Text is the final answer when State is StateDone
	Text string
	// Failed is set when the answering stream could not be started and
	// nothing was appended for the response
	Failed bool
}

// MemoryLoader supplies the experience text placed in prompts
type MemoryLoader interface {
	Load() (string, error)
}

// Config groups agent settings and dependencies
type Config struct {
	Provider llm.Provider
	Registry *tools.Registry
	Memory   MemoryLoader
	Prompts  *prompts.Set

	Settings      llm.Settings
	MaxSteps      int
	SameCallLimit int // negative disables loop detection
	ContextTokens int // prompt size that triggers a warning; 0 disables
	Thinking      ThinkingMode
	Truncation    ToolResultTruncationConfig
}

// Agent is the process-wide, read-only part of the loop. Sessions carry
// the per-conversation state.
type Agent struct {
	cfg Config
}

// New creates a new Agent with the given configuration
func New(cfg Config) (*Agent, error) {
	if cfg.Provider == nil {
		return nil, errors.New("agent: provider is required")
	}
	if cfg.Registry == nil {
		reg, err := tools.NewRegistry()
		if err != nil {
			return nil, err
		}
		cfg.Registry = reg
	}
	if cfg.Prompts == nil {
		cfg.Prompts = prompts.Default("")
	}
	if cfg.MaxSteps <= 0 {
		cfg.MaxSteps = DefaultMaxSteps
	}
	if cfg.SameCallLimit == 0 {
		cfg.SameCallLimit = DefaultSameCallLimit
	}
	if cfg.Thinking == "" {
		cfg.Thinking = ThinkingModeStream
	}
	if cfg.Truncation.MaxBytes == 0 {
		cfg.Truncation = DefaultToolResultTruncationConfig
	}
	return &Agent{cfg: cfg}, nil
}

// Registry returns the tools offered to the model
func (a *Agent) Registry() *tools.Registry { return a.cfg.Registry }

// Greeting is the first message shown to a new conversation
func (a *Agent) Greeting() string {
	return "I'm an AI agent!\n** Available tools **\n" + a.cfg.Registry.Describe()
}

// Submit handles one user turn: it validates the query, appends it to the
// session History and runs the loop until a terminal state.
func (a *Agent) Submit(ctx context.Context, sess *Session, query string, attachments []Attachment) (Outcome, error) {
	sess.mu.Lock()
	defer sess.mu.Unlock()

	if strings.TrimSpace(query) == "" {
		sess.Channel.Notice(EmptyQueryNotice)
		return Outcome{}, ErrEmptyQuery
	}

	content := withAttachments(query, attachments)
	log.Printf("[Agent] session=%s user input: %q", sess.ID, content)
	sess.History.Append(NewUserMessage(content))
	return a.run(ctx, sess)
}

// Run drives the loop over the current History. Callers normally use
// Submit, which also serializes turns.
func (a *Agent) Run(ctx context.Context, sess *Session) (Outcome, error) {
	sess.mu.Lock()
	defer sess.mu.Unlock()
	return a.run(ctx, sess)
}

func (a *Agent) run(ctx context.Context, sess *Session) (Outcome, error) {
	detector := NewToolLoopDetector(ToolLoopDetectionConfig{SameCallLimit: a.cfg.SameCallLimit})

	var (
		state   = StateReason
		out     Outcome
		thought string
		pending []ToolCallRecord
	)

	for !state.Terminal() {
		switch state {
		case StateReason:
			if out.Steps >= a.cfg.MaxSteps {
				log.Printf("[Agent] session=%s max steps (%d) reached", sess.ID, a.cfg.MaxSteps)
				sess.Channel.Notice(MaxStepsNotice)
				state = StateMaxSteps
				continue
			}
			out.Steps++
			var err error
			thought, err = a.reason(ctx, sess)
			if err != nil {
				return out, err
			}
			state = StateRespond

		case StateRespond:
			resp, err := a.respond(ctx, sess, thought)
			var setupErr *llm.SetupError
			if errors.As(err, &setupErr) {
				sess.Channel.Notice(UnreachableNotice)
				out.Failed = true
				state = StateDone
				continue
			}
			if err != nil {
				return out, err
			}
			if len(resp.Records) > 0 {
				log.Printf("[Agent] session=%s tool calling: %d call(s)", sess.ID, len(resp.Records))
				sess.History.Append(NewToolRequest(resp.Records))
				pending = resp.Records
				state = StateExecuteTools
				continue
			}
			state = StateDone
			if strings.TrimSpace(resp.Text) == "" {
				log.Printf("[Agent] session=%s empty response, nothing appended", sess.ID)
				if resp.Opened {
					sess.Channel.EndMessage("")
				}
				continue
			}
			log.Printf("[Agent] session=%s response: %d bytes", sess.ID, len(resp.Text))
			sess.History.Append(NewAnswer(resp.Text))
			sess.Channel.EndMessage(resp.Text)
			out.Text = resp.Text

		case StateExecuteTools:
			for _, rec := range pending {
				sess.History.Append(a.ExecuteToolCall(ctx, sess, rec))
				detector.RecordCall(rec.Name, rec.Arguments)
			}
			pending = nil
			if looped, reason := detector.CheckLoop(); looped {
				log.Printf("[Agent] session=%s tool loop detected: %s\n%s", sess.ID, reason, detector.GetStats())
				sess.Channel.Notice("Tool loop detected: " + reason)
				state = StateLoopDetected
				continue
			}
			state = StateReason
		}
	}

	out.State = state
	return out, nil
}
