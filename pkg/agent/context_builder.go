// Package agent implements the iterative model↔tool controller: system
// prompt assembly, the skills summary, and the agent loop that drives a
// model through repeated completion/tool-execution rounds.
package agent

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// bootstrapFiles are read, in order, from the workspace root; each one
// present becomes its own system-prompt section after the identity
// header. A missing file is skipped.
var bootstrapFiles = []string{"AGENTS.md", "SOUL.md", "USER.md", "TOOLS.md", "IDENTITY.md"}

// ContextBuilder assembles the system prompt handed to the model as the
// completion preamble.
type ContextBuilder struct {
	now func() time.Time
}

func NewContextBuilder() *ContextBuilder {
	return &ContextBuilder{now: time.Now}
}

// BuildSystemPrompt composes the identity header, bootstrap files, long
// term memory, and a skills summary, each section joined by a blank-line
// delimited separator.
func (b *ContextBuilder) BuildSystemPrompt(agentName, workspace, memoryPath string, skillsSummary string) string {
	sections := []string{b.identityHeader(agentName, workspace)}

	for _, name := range bootstrapFiles {
		if content, ok := readIfExists(filepath.Join(workspace, name)); ok {
			sections = append(sections, strings.TrimSpace(content))
		}
	}

	if memory, ok := readIfExists(memoryPath); ok {
		sections = append(sections, "# Long-term memory\n\n"+strings.TrimSpace(memory))
	}

	if skillsSummary != "" {
		sections = append(sections, skillsSummary)
	}

	return strings.Join(sections, "\n\n---\n\n")
}

func (b *ContextBuilder) identityHeader(agentName, workspace string) string {
	return fmt.Sprintf("# Identity\n\nYou are %s.\nCurrent time: %s\nWorkspace: %s",
		agentName, b.now().UTC().Format(time.RFC3339), workspace)
}

func readIfExists(path string) (string, bool) {
	if path == "" {
		return "", false
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", false
	}
	return string(data), true
}
