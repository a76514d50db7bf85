package agent

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPromptBuilderIncludesEnvironment(t *testing.T) {
	root := t.TempDir()
	b := NewPromptBuilder(NewLocalWorkspace(root))

	prompt := b.Build()
	assert.Contains(t, prompt, "done tool")
	assert.Contains(t, prompt, "Working directory: "+root)
	assert.Contains(t, prompt, "Platform: ")
}

func TestPromptBuilderEmbedsProjectDoc(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "AGENTS.md"), []byte("Always run make lint."), 0o644))

	prompt := NewPromptBuilder(NewLocalWorkspace(root)).Build()
	assert.Contains(t, prompt, "# Project documentation")
	assert.Contains(t, prompt, "Always run make lint.")
}

func TestPromptBuilderCapsProjectDoc(t *testing.T) {
	root := t.TempDir()
	huge := strings.Repeat("x", maxProjectDocBytes+1000)
	require.NoError(t, os.WriteFile(filepath.Join(root, "AGENTS.md"), []byte(huge), 0o644))

	prompt := NewPromptBuilder(NewLocalWorkspace(root)).Build()
	assert.Less(t, len(prompt), maxProjectDocBytes+2000)
}

func TestPromptBuilderNilWorkspace(t *testing.T) {
	prompt := NewPromptBuilder(nil).Build()
	assert.Contains(t, prompt, "# Environment")
}
