package agent

import (
	"fmt"
	"strings"
)

// TruncationMode selects which part of over-long output survives.
type TruncationMode string

const (
	TruncateHeadTail TruncationMode = "head_tail"
	TruncateTail     TruncationMode = "tail"
)

// Default character limits applied to tool output before it enters the
// transcript. Tools not listed here use the fallback limit.
var defaultToolCharLimits = map[string]int{
	"run_command": 30000,
	"grep_search": 20000,
	"fetch_url":   20000,
	"file_tree":   20000,
	"list_dir":    10000,
}

const fallbackCharLimit = 30000

var defaultTruncationModes = map[string]TruncationMode{
	"run_command": TruncateHeadTail,
	"fetch_url":   TruncateHeadTail,
	"grep_search": TruncateTail,
	"file_tree":   TruncateTail,
	"list_dir":    TruncateTail,
}

// Line limits applied after character truncation.
var defaultToolLineLimits = map[string]int{
	"run_command": 256,
	"grep_search": 200,
}

// TruncateOutput applies character-based truncation.
func TruncateOutput(output string, maxChars int, mode TruncationMode) string {
	if len(output) <= maxChars {
		return output
	}
	removed := len(output) - maxChars

	switch mode {
	case TruncateTail:
		return fmt.Sprintf("[Output truncated: first %d characters removed.]\n\n", removed) +
			output[len(output)-maxChars:]
	default: // head_tail
		half := maxChars / 2
		return output[:half] +
			fmt.Sprintf("\n\n[Output truncated: %d characters removed from the middle. "+
				"Re-run the tool with narrower parameters to see specific parts.]\n\n", removed) +
			output[len(output)-half:]
	}
}

// TruncateLines applies line-based truncation with a head/tail split.
func TruncateLines(output string, maxLines int) string {
	lines := strings.Split(output, "\n")
	if len(lines) <= maxLines {
		return output
	}
	head := maxLines / 2
	tail := maxLines - head
	omitted := len(lines) - head - tail
	return strings.Join(lines[:head], "\n") +
		fmt.Sprintf("\n[... %d lines omitted ...]\n", omitted) +
		strings.Join(lines[len(lines)-tail:], "\n")
}

// TruncateToolOutput applies the per-tool truncation pipeline: characters
// first (bounds pathological cases), then lines (readability).
func TruncateToolOutput(output, toolName string) string {
	maxChars, ok := defaultToolCharLimits[toolName]
	if !ok {
		maxChars = fallbackCharLimit
	}
	mode, ok := defaultTruncationModes[toolName]
	if !ok {
		mode = TruncateHeadTail
	}
	out := TruncateOutput(output, maxChars, mode)

	if maxLines, ok := defaultToolLineLimits[toolName]; ok {
		out = TruncateLines(out, maxLines)
	}
	return out
}
