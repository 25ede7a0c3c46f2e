package tools

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ReadFileTool reads file contents from disk.
type ReadFileTool struct {
	workspace string
	restrict  bool
}

func NewReadFileTool(workspace string, restrict bool) *ReadFileTool {
	return &ReadFileTool{workspace: workspace, restrict: restrict}
}

func (t *ReadFileTool) Name() string        { return "read_file" }
func (t *ReadFileTool) Description() string { return "Read the contents of a file" }
func (t *ReadFileTool) ParametersSchema() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"path": map[string]interface{}{
				"type":        "string",
				"description": "Path to the file to read",
			},
		},
		"required": []string{"path"},
	}
}

func (t *ReadFileTool) Call(ctx context.Context, args map[string]interface{}) (string, error) {
	path, err := stringArg(args, "path")
	if err != nil {
		return "", err
	}
	resolved, err := t.resolve(ctx, path)
	if err != nil {
		return "", err
	}
	data, err := os.ReadFile(resolved)
	if err != nil {
		return "", fmt.Errorf("failed to read file: %w", err)
	}
	return string(data), nil
}

func (t *ReadFileTool) resolve(ctx context.Context, path string) (string, error) {
	return resolvePathForTool(ctx, path, t.workspace, t.restrict)
}

// WriteFileTool creates or overwrites a file, creating parent directories
// as needed.
type WriteFileTool struct {
	workspace string
	restrict  bool
}

func NewWriteFileTool(workspace string, restrict bool) *WriteFileTool {
	return &WriteFileTool{workspace: workspace, restrict: restrict}
}

func (t *WriteFileTool) Name() string        { return "write_file" }
func (t *WriteFileTool) Description() string { return "Write content to a file, overwriting it if it exists" }
func (t *WriteFileTool) ParametersSchema() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"path":    map[string]interface{}{"type": "string", "description": "Path to the file to write"},
			"content": map[string]interface{}{"type": "string", "description": "Content to write"},
		},
		"required": []string{"path", "content"},
	}
}

func (t *WriteFileTool) Call(ctx context.Context, args map[string]interface{}) (string, error) {
	path, err := stringArg(args, "path")
	if err != nil {
		return "", err
	}
	content, err := stringArg(args, "content")
	if err != nil {
		return "", err
	}
	resolved, err := resolvePathForTool(ctx, path, t.workspace, t.restrict)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(resolved), 0o755); err != nil {
		return "", fmt.Errorf("failed to create parent directories: %w", err)
	}
	if err := os.WriteFile(resolved, []byte(content), 0o644); err != nil {
		return "", fmt.Errorf("failed to write file: %w", err)
	}
	return fmt.Sprintf("wrote %d bytes to %s", len(content), path), nil
}

// EditFileTool replaces the first occurrence of old_text with new_text in
// an existing file. old_text must appear at least once.
type EditFileTool struct {
	workspace string
	restrict  bool
}

func NewEditFileTool(workspace string, restrict bool) *EditFileTool {
	return &EditFileTool{workspace: workspace, restrict: restrict}
}

func (t *EditFileTool) Name() string        { return "edit_file" }
func (t *EditFileTool) Description() string { return "Replace the first occurrence of old_text with new_text in a file" }
func (t *EditFileTool) ParametersSchema() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"path":     map[string]interface{}{"type": "string", "description": "Path to the file to edit"},
			"old_text": map[string]interface{}{"type": "string", "description": "Text to find; must occur at least once"},
			"new_text": map[string]interface{}{"type": "string", "description": "Replacement text"},
		},
		"required": []string{"path", "old_text", "new_text"},
	}
}

func (t *EditFileTool) Call(ctx context.Context, args map[string]interface{}) (string, error) {
	path, err := stringArg(args, "path")
	if err != nil {
		return "", err
	}
	oldText, err := stringArg(args, "old_text")
	if err != nil {
		return "", err
	}
	newText := optionalStringArg(args, "new_text")

	resolved, err := resolvePathForTool(ctx, path, t.workspace, t.restrict)
	if err != nil {
		return "", err
	}
	data, err := os.ReadFile(resolved)
	if err != nil {
		return "", fmt.Errorf("failed to read file: %w", err)
	}
	original := string(data)
	if !strings.Contains(original, oldText) {
		return "", fmt.Errorf("old_text not found in %s", path)
	}
	updated := strings.Replace(original, oldText, newText, 1)
	if err := os.WriteFile(resolved, []byte(updated), 0o644); err != nil {
		return "", fmt.Errorf("failed to write file: %w", err)
	}
	return fmt.Sprintf("edited %s", path), nil
}

// ListDirTool lists the entries of a directory.
type ListDirTool struct {
	workspace string
	restrict  bool
}

func NewListDirTool(workspace string, restrict bool) *ListDirTool {
	return &ListDirTool{workspace: workspace, restrict: restrict}
}

func (t *ListDirTool) Name() string        { return "list_dir" }
func (t *ListDirTool) Description() string { return "List the entries of a directory" }
func (t *ListDirTool) ParametersSchema() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"path": map[string]interface{}{"type": "string", "description": "Directory to list; defaults to the workspace root"},
		},
	}
}

func (t *ListDirTool) Call(ctx context.Context, args map[string]interface{}) (string, error) {
	path := optionalStringArg(args, "path")
	if path == "" {
		path = "."
	}
	resolved, err := resolvePathForTool(ctx, path, t.workspace, t.restrict)
	if err != nil {
		return "", err
	}
	entries, err := os.ReadDir(resolved)
	if err != nil {
		return "", fmt.Errorf("failed to list directory: %w", err)
	}
	var b strings.Builder
	for _, e := range entries {
		if e.IsDir() {
			b.WriteString(e.Name())
			b.WriteString("/\n")
		} else {
			b.WriteString(e.Name())
			b.WriteString("\n")
		}
	}
	return b.String(), nil
}

// resolvePathForTool canonicalizes path against the task-local AgentContext
// when one is present (restricting to workspace ∪ memory_dir), falling back
// to the static workspace/restrict pair the tool was constructed with.
func resolvePathForTool(ctx context.Context, path, fallbackWorkspace string, fallbackRestrict bool) (string, error) {
	if ac, ok := AgentContextFrom(ctx); ok {
		roots := []string{ac.Workspace}
		if ac.MemoryDir != "" {
			roots = append(roots, ac.MemoryDir)
		}
		return resolveWithinRoots(path, ac.Workspace, roots)
	}
	if !fallbackRestrict {
		return cleanJoin(path, fallbackWorkspace), nil
	}
	return resolveWithinRoots(path, fallbackWorkspace, []string{fallbackWorkspace})
}

func cleanJoin(path, base string) string {
	if filepath.IsAbs(path) {
		return filepath.Clean(path)
	}
	return filepath.Clean(filepath.Join(base, path))
}

// resolveWithinRoots resolves path relative to base and rejects it unless
// its canonical form falls within one of roots. Symlinks are resolved so a
// link inside an allowed root cannot be used to escape it.
func resolveWithinRoots(path, base string, roots []string) (string, error) {
	candidate := cleanJoin(path, base)

	absCandidate, err := filepath.Abs(candidate)
	if err != nil {
		return "", fmt.Errorf("access denied: cannot resolve path")
	}

	real, err := filepath.EvalSymlinks(absCandidate)
	if err != nil {
		// Path (or a component of it) may not exist yet, e.g. for write_file;
		// resolve the deepest existing ancestor instead.
		ancestor, rest := absCandidate, ""
		for real == "" {
			parent := filepath.Dir(ancestor)
			if parent == ancestor {
				return "", fmt.Errorf("access denied: cannot resolve path")
			}
			rest = filepath.Join(filepath.Base(ancestor), rest)
			ancestor = parent
			if resolved, err := filepath.EvalSymlinks(ancestor); err == nil {
				real = filepath.Join(resolved, rest)
			}
		}
	}

	for _, root := range roots {
		if root == "" {
			continue
		}
		absRoot, err := filepath.Abs(root)
		if err != nil {
			continue
		}
		rootReal, err := filepath.EvalSymlinks(absRoot)
		if err != nil {
			rootReal = absRoot
		}
		if isPathInside(real, rootReal) {
			return real, nil
		}
	}
	return "", fmt.Errorf("access denied: path %q outside allowed roots", path)
}

func isPathInside(child, parent string) bool {
	if child == parent {
		return true
	}
	return strings.HasPrefix(child, parent+string(filepath.Separator))
}
