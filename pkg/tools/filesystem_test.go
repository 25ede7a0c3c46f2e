package tools

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func TestWriteThenReadFile(t *testing.T) {
	dir := t.TempDir()
	write := NewWriteFileTool(dir, true)
	read := NewReadFileTool(dir, true)
	ctx := context.Background()

	if _, err := write.Call(ctx, map[string]interface{}{"path": "notes.txt", "content": "hello"}); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	out, err := read.Call(ctx, map[string]interface{}{"path": "notes.txt"})
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}
	if out != "hello" {
		t.Fatalf("expected hello, got %q", out)
	}
}

func TestWriteFile_CreatesParentDirs(t *testing.T) {
	dir := t.TempDir()
	write := NewWriteFileTool(dir, true)
	ctx := context.Background()

	if _, err := write.Call(ctx, map[string]interface{}{"path": "a/b/c.txt", "content": "x"}); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "a", "b", "c.txt")); err != nil {
		t.Fatalf("expected file to exist: %v", err)
	}
}

func TestReadFile_RejectsEscape(t *testing.T) {
	dir := t.TempDir()
	read := NewReadFileTool(dir, true)
	ctx := context.Background()

	if _, err := read.Call(ctx, map[string]interface{}{"path": "../../../etc/passwd"}); err == nil {
		t.Fatal("expected path escape to be rejected")
	}
}

func TestEditFile_ReplacesFirstOccurrenceOnly(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "f.txt")
	if err := os.WriteFile(path, []byte("foo foo foo"), 0o644); err != nil {
		t.Fatal(err)
	}
	edit := NewEditFileTool(dir, true)
	ctx := context.Background()

	if _, err := edit.Call(ctx, map[string]interface{}{"path": "f.txt", "old_text": "foo", "new_text": "bar"}); err != nil {
		t.Fatalf("edit failed: %v", err)
	}
	data, _ := os.ReadFile(path)
	if string(data) != "bar foo foo" {
		t.Fatalf("expected only first occurrence replaced, got %q", data)
	}
}

func TestEditFile_MissingOldTextFails(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "f.txt")
	_ = os.WriteFile(path, []byte("content"), 0o644)
	edit := NewEditFileTool(dir, true)
	ctx := context.Background()

	if _, err := edit.Call(ctx, map[string]interface{}{"path": "f.txt", "old_text": "missing", "new_text": "x"}); err == nil {
		t.Fatal("expected error when old_text is absent")
	}
}

func TestListDir_ListsEntries(t *testing.T) {
	dir := t.TempDir()
	_ = os.WriteFile(filepath.Join(dir, "a.txt"), []byte("x"), 0o644)
	_ = os.Mkdir(filepath.Join(dir, "sub"), 0o755)

	list := NewListDirTool(dir, true)
	out, err := list.Call(context.Background(), map[string]interface{}{})
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if !contains(out, "a.txt") || !contains(out, "sub/") {
		t.Fatalf("expected both entries, got %q", out)
	}
}

func TestAgentContext_RestrictsToWorkspaceAndMemoryDir(t *testing.T) {
	workspace := t.TempDir()
	memoryDir := t.TempDir()
	read := NewReadFileTool("/unused", false)

	ctx := Scope(context.Background(), AgentContext{AgentID: "a", Workspace: workspace, MemoryDir: memoryDir})

	memFile := filepath.Join(memoryDir, "MEMORY.md")
	_ = os.WriteFile(memFile, []byte("remembered"), 0o644)

	out, err := read.Call(ctx, map[string]interface{}{"path": memFile})
	if err != nil {
		t.Fatalf("expected memory dir to be readable, got error: %v", err)
	}
	if out != "remembered" {
		t.Fatalf("unexpected content: %q", out)
	}

	if _, err := read.Call(ctx, map[string]interface{}{"path": "/etc/hostname"}); err == nil {
		t.Fatal("expected path outside workspace/memory to be rejected")
	}
}

func contains(haystack, needle string) bool {
	return len(haystack) >= len(needle) && indexOf(haystack, needle) >= 0
}

func indexOf(s, sub string) int {
	for i := 0; i+len(sub) <= len(s); i++ {
		if s[i:i+len(sub)] == sub {
			return i
		}
	}
	return -1
}
