// Package terminal is an interactive console front end for the agent
package terminal

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"mime"
	"path/filepath"
	"strings"
	"sync"

	"github.com/charmbracelet/lipgloss"
	"github.com/google/shlex"

	"github.com/gliderlab/planact/agent"
)

// Commands understood by the REPL
const (
	CmdExit   = "/exit"
	CmdAttach = "/attach"
	CmdClear  = "/clear"
)

// Styles used for each kind of output
type Styles struct {
	Prompt  lipgloss.Style
	Thought lipgloss.Style
	Answer  lipgloss.Style
	Tool    lipgloss.Style
	Notice  lipgloss.Style
	Error   lipgloss.Style
}

// DefaultStyles returns the console palette
func DefaultStyles() Styles {
	return Styles{
		Prompt:  lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39")),
		Thought: lipgloss.NewStyle().Italic(true).Foreground(lipgloss.Color("245")),
		Answer:  lipgloss.NewStyle(),
		Tool:    lipgloss.NewStyle().Foreground(lipgloss.Color("178")),
		Notice:  lipgloss.NewStyle().Foreground(lipgloss.Color("205")),
		Error:   lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("196")),
	}
}

// Channel prints agent events to a writer
type Channel struct {
	out    io.Writer
	styles Styles

	mu       sync.Mutex
	thinking bool
}

// NewChannel creates a channel writing to out
func NewChannel(out io.Writer, styles Styles) *Channel {
	return &Channel{out: out, styles: styles}
}

func (c *Channel) printf(format string, args ...any) {
	if _, err := fmt.Fprintf(c.out, format, args...); err != nil {
		log.Printf("[Terminal] write error: %v", err)
	}
}

// endThought closes an open thought line. Callers hold mu.
func (c *Channel) endThought() {
	if c.thinking {
		c.printf("\n")
		c.thinking = false
	}
}

func (c *Channel) ThoughtToken(token string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.thinking = true
	c.printf("%s", c.styles.Thought.Render(token))
}

func (c *Channel) StartMessage() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.endThought()
	c.printf("%s ", c.styles.Prompt.Render("AI Agent:"))
}

func (c *Channel) Token(token string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.printf("%s", c.styles.Answer.Render(token))
}

func (c *Channel) EndMessage(string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.printf("\n")
}

func (c *Channel) ToolStart(rec agent.ToolCallRecord) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.endThought()
	c.printf("%s\n", c.styles.Tool.Render(fmt.Sprintf("Tool: %s input: %s", rec.Name, rec.Arguments)))
}

func (c *Channel) ToolEnd(rec agent.ToolCallRecord, output string, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err != nil {
		c.printf("%s\n", c.styles.Error.Render(fmt.Sprintf("Tool: %s failed: %v", rec.Name, err)))
		return
	}
	c.printf("%s\n", c.styles.Tool.Render(fmt.Sprintf("Tool: %s output: %s", rec.Name, output)))
}

func (c *Channel) Notice(text string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.endThought()
	c.printf("%s\n", c.styles.Notice.Render(text))
}

var _ agent.Channel = (*Channel)(nil)

// REPL reads user turns line by line and runs them on one session
type REPL struct {
	agent   *agent.Agent
	in      io.Reader
	channel *Channel
	session *agent.Session

	pending []agent.Attachment
}

// NewREPL creates a REPL over in and out
func NewREPL(a *agent.Agent, in io.Reader, out io.Writer, styles Styles) *REPL {
	ch := NewChannel(out, styles)
	return &REPL{
		agent:   a,
		in:      in,
		channel: ch,
		session: agent.NewSession(ch),
	}
}

// Session returns the conversation the REPL drives
func (r *REPL) Session() *agent.Session { return r.session }

// Run prints the greeting and processes lines until /exit, EOF or ctx ends
func (r *REPL) Run(ctx context.Context) error {
	r.channel.printf("%s\n", r.agent.Greeting())

	scanner := bufio.NewScanner(r.in)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for {
		r.channel.printf("%s ", r.channel.styles.Prompt.Render("User:"))
		if !scanner.Scan() {
			if err := scanner.Err(); err != nil {
				return err
			}
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		line := strings.TrimSpace(scanner.Text())
		switch {
		case line == CmdExit:
			return nil
		case line == CmdClear:
			r.session = agent.NewSession(r.channel)
			r.pending = nil
			r.channel.Notice("Started a new conversation.")
			continue
		case strings.HasPrefix(line, CmdAttach):
			r.attach(line)
			continue
		}

		attachments := r.pending
		r.pending = nil
		if _, err := r.agent.Submit(ctx, r.session, line, attachments); err != nil {
			if errors.Is(err, agent.ErrEmptyQuery) {
				continue
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
			r.channel.printf("%s\n", r.channel.styles.Error.Render("Error: "+err.Error()))
		}
	}
}

// attach queues files for the next message: /attach <path> [mime]
func (r *REPL) attach(line string) {
	args, err := shlex.Split(line)
	if err != nil || len(args) < 2 || len(args) > 3 {
		r.channel.Notice("Usage: /attach <path> [mime-type]")
		return
	}
	a := agent.Attachment{Path: args[1]}
	if len(args) == 3 {
		a.MIME = args[2]
	} else {
		a.MIME = DetectMIME(a.Path)
	}
	r.pending = append(r.pending, a)
	r.channel.Notice(fmt.Sprintf("Attached %s (%s)", a.Path, a.MIME))
}

// DetectMIME guesses a MIME type from the file extension
func DetectMIME(path string) string {
	if t := mime.TypeByExtension(strings.ToLower(filepath.Ext(path))); t != "" {
		mediaType, _, err := mime.ParseMediaType(t)
		if err == nil {
			return mediaType
		}
		return t
	}
	return "application/octet-stream"
}
