package agent

import (
	"strings"
)

// ThinkingMode controls how reasoning output reaches the channel
type ThinkingMode string

const (
	ThinkingModeQuiet  ThinkingMode = "quiet"  // never shown
	ThinkingModeOn     ThinkingMode = "on"     // shown once the stage ends
	ThinkingModeStream ThinkingMode = "stream" // streamed token by token
)

// ParseThinkingMode Parse thinking mode
func ParseThinkingMode(s string) ThinkingMode {
	s = strings.ToLower(strings.TrimSpace(s))
	switch s {
	case "quiet", "off":
		return ThinkingModeQuiet
	case "on":
		return ThinkingModeOn
	default:
		return ThinkingModeStream
	}
}

// thoughtSink forwards reasoning tokens to a channel according to the mode
type thoughtSink struct {
	mode ThinkingMode
	ch   Channel
	buf  strings.Builder
}

func newThoughtSink(mode ThinkingMode, ch Channel) *thoughtSink {
	return &thoughtSink{mode: mode, ch: ch}
}

// Append records a token and streams it when the mode asks for it
func (s *thoughtSink) Append(token string) {
	s.buf.WriteString(token)
	if s.mode == ThinkingModeStream {
		s.ch.ThoughtToken(token)
	}
}

// End flushes buffered output and returns the whole thought
func (s *thoughtSink) End() string {
	text := s.buf.String()
	if s.mode == ThinkingModeOn && text != "" {
		s.ch.ThoughtToken(text)
	}
	return text
}

// StripThinkingTags removes inline <think> blocks some reasoning models emit
// inside regular content, keeping only the text around them.
func StripThinkingTags(content string) string {
	remainder := content
	for {
		start := strings.Index(remainder, "<think>")
		if start == -1 {
			break
		}
		contentStart := start + len("<think>")
		end := strings.Index(remainder[contentStart:], "</think>")
		if end == -1 {
			// No end tag, rest is thinking
			remainder = remainder[:start]
			break
		}
		remainder = remainder[:start] + remainder[contentStart+end+len("</think>"):]
	}
	return strings.TrimSpace(remainder)
}
