package agent

import (
	"fmt"
	"strings"
)

// ToolResultTruncationConfig Configure tool result truncation
type ToolResultTruncationConfig struct {
	MaxBytes       int  // Maximum bytes
	MaxLines       int  // Maximum lines
	TruncateBefore bool // true=keep front only, false=keep front and back
}

// DefaultToolResultTruncationConfig default config
var DefaultToolResultTruncationConfig = ToolResultTruncationConfig{
	MaxBytes:       15000, // 15KB
	MaxLines:       500,
	TruncateBefore: false,
}

// TruncateToolOutput shortens oversized tool output before it enters History
func TruncateToolOutput(content string, cfg ToolResultTruncationConfig) string {
	if cfg.MaxBytes == 0 {
		cfg = DefaultToolResultTruncationConfig
	}

	lines := strings.Count(content, "\n") + 1
	if len(content) <= cfg.MaxBytes && (cfg.MaxLines <= 0 || lines <= cfg.MaxLines) {
		return content
	}

	var truncated string
	if cfg.TruncateBefore {
		// Keep front portion
		truncated = content
		if len(truncated) > cfg.MaxBytes {
			truncated = truncated[:cfg.MaxBytes]
		}
		if cfg.MaxLines > 0 {
			if parts := strings.Split(truncated, "\n"); len(parts) > cfg.MaxLines {
				truncated = strings.Join(parts[:cfg.MaxLines], "\n")
			}
		}
		truncated += "\n[...truncated]"
	} else {
		// Keep front and back, truncate middle
		truncated = content
		if len(truncated) > cfg.MaxBytes {
			half := cfg.MaxBytes / 2
			truncated = content[:half] + "\n[... " +
				fmt.Sprintf("%d", len(content)-cfg.MaxBytes) + " bytes truncated ...]\n" + content[len(content)-half:]
		} else if cfg.MaxLines > 0 {
			parts := strings.Split(content, "\n")
			half := cfg.MaxLines / 2
			truncated = strings.Join(parts[:half], "\n") +
				fmt.Sprintf("\n[... %d lines truncated ...]\n", len(parts)-2*half) +
				strings.Join(parts[len(parts)-half:], "\n")
		}
	}

	// Byte cuts may split a multi-byte rune.
	return strings.ToValidUTF8(truncated, "")
}
