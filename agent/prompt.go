package agent

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"
)

const basePrompt = `You are a coding assistant working inside the user's editor. You help with
reading, writing, and modifying code in the user's workspace.

Rules:
- Use the provided tools to inspect and modify files. Never invent file contents.
- Make the smallest change that satisfies the request.
- When you create a file that already exists, switch to update_file instead.
- When the task is complete, call the done tool with a one-sentence summary.
- If a tool fails, read the error and adjust; do not repeat the identical call.`

// maxProjectDocBytes caps how much of a discovered project doc is embedded
// in the system prompt.
const maxProjectDocBytes = 32 * 1024

// projectDocNames are checked in order; the first one found wins.
var projectDocNames = []string{"AGENTS.md", "CLAUDE.md", "CONTRIBUTING.md"}

// PromptBuilder assembles the system prompt from the base instructions, the
// workspace environment, and any discovered project documentation.
type PromptBuilder struct {
	workspace Workspace
}

// NewPromptBuilder creates a PromptBuilder over the given workspace.
func NewPromptBuilder(ws Workspace) *PromptBuilder {
	return &PromptBuilder{workspace: ws}
}

// Build returns the complete system prompt.
func (b *PromptBuilder) Build() string {
	var sb strings.Builder
	sb.WriteString(basePrompt)
	sb.WriteString("\n\n")
	sb.WriteString(b.environmentBlock())

	if doc := b.projectDoc(); doc != "" {
		sb.WriteString("\n\n# Project documentation\n\n")
		sb.WriteString(doc)
	}
	return sb.String()
}

func (b *PromptBuilder) environmentBlock() string {
	root := ""
	platform := runtime.GOOS
	if b.workspace != nil {
		root = b.workspace.Root()
		platform = b.workspace.Platform()
	}
	return fmt.Sprintf(
		"# Environment\n\nWorking directory: %s\nPlatform: %s\nDate: %s",
		root, platform, time.Now().Format("2006-01-02"))
}

// projectDoc reads the first project doc found at the workspace root,
// truncated to maxProjectDocBytes.
func (b *PromptBuilder) projectDoc() string {
	if b.workspace == nil {
		return ""
	}
	for _, name := range projectDocNames {
		path := filepath.Join(b.workspace.Root(), name)
		data, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		if len(data) > maxProjectDocBytes {
			data = data[:maxProjectDocBytes]
		}
		return string(data)
	}
	return ""
}
