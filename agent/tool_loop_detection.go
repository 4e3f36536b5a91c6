package agent

import (
	"fmt"
	"strings"
)

// ToolLoopDetectionConfig Tool loop detection config
type ToolLoopDetectionConfig struct {
	SameCallLimit int // identical (tool, arguments) calls allowed in one run
}

// DefaultToolLoopDetectionConfig default config
var DefaultToolLoopDetectionConfig = ToolLoopDetectionConfig{
	SameCallLimit: 3,
}

// ToolLoopDetector Tool loop detector
type ToolLoopDetector struct {
	config   ToolLoopDetectionConfig
	counts   map[string]int
	total    int
	lastTool string
	worst    string
}

// NewToolLoopDetector Create new loop detector
func NewToolLoopDetector(cfg ToolLoopDetectionConfig) *ToolLoopDetector {
	if cfg.SameCallLimit == 0 {
		cfg = DefaultToolLoopDetectionConfig
	}
	return &ToolLoopDetector{
		config: cfg,
		counts: make(map[string]int),
	}
}

func callKey(toolName, args string) string {
	return toolName + "\x00" + strings.TrimSpace(args)
}

// RecordCall Record tool call
func (d *ToolLoopDetector) RecordCall(toolName string, args string) {
	key := callKey(toolName, args)
	d.counts[key]++
	d.total++
	d.lastTool = toolName
	if d.worst == "" || d.counts[key] > d.counts[d.worst] {
		d.worst = key
	}
}

// CheckLoop reports whether one identical call has reached the limit.
// A negative limit disables detection.
func (d *ToolLoopDetector) CheckLoop() (bool, string) {
	if d.config.SameCallLimit < 0 || d.worst == "" {
		return false, ""
	}
	if n := d.counts[d.worst]; n >= d.config.SameCallLimit {
		name, _, _ := strings.Cut(d.worst, "\x00")
		return true, fmt.Sprintf("Tool '%s' called %d times with the same arguments (limit %d)",
			name, n, d.config.SameCallLimit)
	}
	return false, ""
}

// GetStats Get stats
func (d *ToolLoopDetector) GetStats() string {
	var sb strings.Builder
	sb.WriteString("Tool call stats:\n")
	fmt.Fprintf(&sb, "  Total calls: %d\n", d.total)
	fmt.Fprintf(&sb, "  Distinct calls: %d\n", len(d.counts))
	fmt.Fprintf(&sb, "  Last tool: %s\n", d.lastTool)
	return sb.String()
}
