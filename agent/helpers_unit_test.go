package agent

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
)

func TestToolLoopDetector(t *testing.T) {
	d := NewToolLoopDetector(ToolLoopDetectionConfig{SameCallLimit: 3})
	d.RecordCall("googlesearch", `{"query":"a"}`)
	d.RecordCall("googlesearch", `{"query":"b"}`)
	d.RecordCall("googlesearch", ` {"query":"a"} `)

	looped, _ := d.CheckLoop()
	assert.False(t, looped)

	d.RecordCall("googlesearch", `{"query":"a"}`)
	looped, reason := d.CheckLoop()
	assert.True(t, looped)
	assert.Contains(t, reason, "googlesearch")
	assert.Contains(t, d.GetStats(), "Total calls: 4")
}

func TestToolLoopDetectorDisabled(t *testing.T) {
	d := NewToolLoopDetector(ToolLoopDetectionConfig{SameCallLimit: -1})
	for i := 0; i < 10; i++ {
		d.RecordCall("x", "{}")
	}
	looped, _ := d.CheckLoop()
	assert.False(t, looped)

	assert.Equal(t, DefaultToolLoopDetectionConfig, NewToolLoopDetector(ToolLoopDetectionConfig{}).config)
}

func TestTruncateToolOutput(t *testing.T) {
	short := "small"
	assert.Equal(t, short, TruncateToolOutput(short, DefaultToolResultTruncationConfig))

	long := strings.Repeat("x", 100) + strings.Repeat("y", 100)
	out := TruncateToolOutput(long, ToolResultTruncationConfig{MaxBytes: 50})
	assert.True(t, strings.HasPrefix(out, strings.Repeat("x", 25)))
	assert.True(t, strings.HasSuffix(out, strings.Repeat("y", 25)))
	assert.Contains(t, out, "150 bytes truncated")

	lines := strings.Repeat("line\n", 20)
	out = TruncateToolOutput(lines, ToolResultTruncationConfig{MaxBytes: 1000, MaxLines: 4})
	assert.Contains(t, out, "lines truncated")
	assert.Less(t, len(out), len(lines))
}

func TestTruncateKeepsValidUTF8(t *testing.T) {
	jp := strings.Repeat("日本語", 20)
	out := TruncateToolOutput(jp, ToolResultTruncationConfig{MaxBytes: 10, TruncateBefore: true})
	assert.True(t, utf8.ValidString(out))
}

func TestParseThinkingMode(t *testing.T) {
	assert.Equal(t, ThinkingModeStream, ParseThinkingMode(""))
	assert.Equal(t, ThinkingModeStream, ParseThinkingMode("STREAM"))
	assert.Equal(t, ThinkingModeQuiet, ParseThinkingMode("quiet"))
	assert.Equal(t, ThinkingModeQuiet, ParseThinkingMode("off"))
	assert.Equal(t, ThinkingModeOn, ParseThinkingMode(" on "))
}

func TestStripThinkingTags(t *testing.T) {
	assert.Equal(t, "answer", StripThinkingTags("<think>hmm</think>answer"))
	assert.Equal(t, "a b", StripThinkingTags("a <think>x</think>b"))
	assert.Equal(t, "before", StripThinkingTags("before<think>never closed"))
	assert.Equal(t, "plain", StripThinkingTags("plain"))
}

func TestParseArgs(t *testing.T) {
	args, err := parseArgs("")
	assert.NoError(t, err)
	assert.Empty(t, args)

	_, err = parseArgs("null")
	assert.Error(t, err)

	_, err = parseArgs("[1]")
	assert.Error(t, err)
}

func TestStateStrings(t *testing.T) {
	assert.Equal(t, "loop_detected", StateLoopDetected.String())
	assert.True(t, StateMaxSteps.Terminal())
	assert.False(t, StateExecuteTools.Terminal())
	assert.Equal(t, "tool_request", KindToolRequest.String())
}
