package tools

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// RememberTool appends content to an agent's long-term memory file
// (MEMORY.md) or today's daily memory file (memory/YYYY-MM-DD.md).
type RememberTool struct {
	defaultAgentID string
	memoryRoot     string // parent directory holding <agent_id>/ memory trees
	now            func() time.Time
}

func NewRememberTool(defaultAgentID, memoryRoot string) *RememberTool {
	return &RememberTool{defaultAgentID: defaultAgentID, memoryRoot: memoryRoot, now: time.Now}
}

func (t *RememberTool) Name() string        { return "remember" }
func (t *RememberTool) Description() string { return "Save a note to long-term or daily memory" }
func (t *RememberTool) ParametersSchema() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"content": map[string]interface{}{"type": "string", "description": "Text to remember"},
			"daily":   map[string]interface{}{"type": "boolean", "description": "Save to today's daily log instead of long-term memory"},
		},
		"required": []string{"content"},
	}
}

func (t *RememberTool) Call(ctx context.Context, args map[string]interface{}) (string, error) {
	content, err := stringArg(args, "content")
	if err != nil {
		return "", err
	}
	daily := optionalBoolArg(args, "daily")

	agentDir := t.agentMemoryDir(ctx)
	if err := os.MkdirAll(agentDir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create memory directory: %w", err)
	}

	var target string
	if daily {
		dailyDir := filepath.Join(agentDir, "memory")
		if err := os.MkdirAll(dailyDir, 0o755); err != nil {
			return "", fmt.Errorf("failed to create daily memory directory: %w", err)
		}
		target = filepath.Join(dailyDir, t.now().Format("2006-01-02")+".md")
	} else {
		target = filepath.Join(agentDir, "MEMORY.md")
	}

	if err := appendWithBlankLineSeparator(target, content); err != nil {
		return "", err
	}
	return fmt.Sprintf("saved to %s", target), nil
}

func (t *RememberTool) agentMemoryDir(ctx context.Context) string {
	if ac, ok := AgentContextFrom(ctx); ok && ac.MemoryDir != "" {
		return ac.MemoryDir
	}
	agentID := t.defaultAgentID
	if ac, ok := AgentContextFrom(ctx); ok && ac.AgentID != "" {
		agentID = ac.AgentID
	}
	return filepath.Join(t.memoryRoot, agentID)
}

// appendWithBlankLineSeparator appends content to path, preceded by a
// blank line if the file already has content.
func appendWithBlankLineSeparator(path, content string) error {
	existing, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	if len(existing) > 0 {
		sep := "\n\n"
		if strings.HasSuffix(string(existing), "\n") {
			sep = "\n"
		}
		if _, err := f.WriteString(sep); err != nil {
			return err
		}
	}
	if _, err := f.WriteString(content + "\n"); err != nil {
		return err
	}
	return nil
}

// ListMemoryTool enumerates the calling agent's own memory files. It never
// lists another agent's memory, regardless of arguments passed to it.
type ListMemoryTool struct {
	defaultAgentID string
	memoryRoot     string
}

func NewListMemoryTool(defaultAgentID, memoryRoot string) *ListMemoryTool {
	return &ListMemoryTool{defaultAgentID: defaultAgentID, memoryRoot: memoryRoot}
}

func (t *ListMemoryTool) Name() string        { return "list_memory" }
func (t *ListMemoryTool) Description() string { return "List this agent's saved memory files" }
func (t *ListMemoryTool) ParametersSchema() map[string]interface{} {
	return map[string]interface{}{"type": "object", "properties": map[string]interface{}{}}
}

func (t *ListMemoryTool) Call(ctx context.Context, args map[string]interface{}) (string, error) {
	agentDir := t.defaultAgentID
	root := t.memoryRoot
	dir := filepath.Join(root, agentDir)
	if ac, ok := AgentContextFrom(ctx); ok && ac.MemoryDir != "" {
		dir = ac.MemoryDir
	}

	var files []string
	if info, err := os.Stat(filepath.Join(dir, "MEMORY.md")); err == nil && !info.IsDir() {
		files = append(files, "MEMORY.md")
	}
	dailyDir := filepath.Join(dir, "memory")
	entries, err := os.ReadDir(dailyDir)
	if err == nil {
		for _, e := range entries {
			if !e.IsDir() {
				files = append(files, filepath.Join("memory", e.Name()))
			}
		}
	}
	sort.Strings(files)
	if len(files) == 0 {
		return "(no memory files yet)", nil
	}
	return strings.Join(files, "\n"), nil
}
