package agent

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTruncateOutputUnderLimit(t *testing.T) {
	assert.Equal(t, "short", TruncateOutput("short", 100, TruncateHeadTail))
}

func TestTruncateOutputHeadTail(t *testing.T) {
	input := strings.Repeat("a", 500) + strings.Repeat("z", 500)
	out := TruncateOutput(input, 100, TruncateHeadTail)

	assert.Less(t, len(out), len(input))
	assert.True(t, strings.HasPrefix(out, "aaaa"))
	assert.True(t, strings.HasSuffix(out, "zzzz"))
	assert.Contains(t, out, "Output truncated")
}

func TestTruncateOutputTail(t *testing.T) {
	input := strings.Repeat("a", 500) + strings.Repeat("z", 100)
	out := TruncateOutput(input, 100, TruncateTail)

	assert.True(t, strings.HasSuffix(out, "zzzz"))
	assert.NotContains(t, out, "aaaa")
	assert.Contains(t, out, "first 500 characters removed")
}

func TestTruncateLines(t *testing.T) {
	input := strings.TrimSuffix(strings.Repeat("line\n", 100), "\n")
	out := TruncateLines(input, 10)

	assert.Contains(t, out, "90 lines omitted")
	assert.LessOrEqual(t, len(strings.Split(out, "\n")), 12)
}

func TestTruncateLinesUnderLimit(t *testing.T) {
	input := "one\ntwo\nthree"
	assert.Equal(t, input, TruncateLines(input, 10))
}

func TestTruncateToolOutputUsesPerToolLimits(t *testing.T) {
	big := strings.Repeat("x", 50000)

	assert.Less(t, len(TruncateToolOutput(big, "list_dir")), len(TruncateToolOutput(big, "run_command")))
	assert.Equal(t, "small", TruncateToolOutput("small", "unknown_tool"))
}
