package shell

import (
	"context"
	"strings"
	"testing"

	"github.com/synvek/relaymind/pkg/approval"
	"github.com/synvek/relaymind/pkg/permission"
)

func TestRun_Echo(t *testing.T) {
	tool := NewTool(".", 5, false)
	result, err := tool.Run(context.Background(), "echo hello", "", RoutingContext{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(result.Stdout, "hello") {
		t.Fatalf("expected stdout to contain hello, got %q", result.Stdout)
	}
	if result.ExitCode != 0 {
		t.Fatalf("expected exit code 0, got %d", result.ExitCode)
	}
}

func TestRun_DeniedByBasePolicy(t *testing.T) {
	tool := NewTool(".", 5, false)
	_, err := tool.Run(context.Background(), "sudo rm -rf /", "", RoutingContext{})
	if err == nil {
		t.Fatal("expected command to be denied")
	}
}

func TestRun_NonZeroExit(t *testing.T) {
	tool := NewTool(".", 5, false)
	result, err := tool.Run(context.Background(), "exit 3", "", RoutingContext{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.ExitCode != 3 {
		t.Fatalf("expected exit code 3, got %d", result.ExitCode)
	}
}

func TestRun_Timeout(t *testing.T) {
	tool := NewTool(".", 1, false)
	_, err := tool.Run(context.Background(), "sleep 5", "", RoutingContext{})
	if err == nil || !strings.Contains(err.Error(), "timed out") {
		t.Fatalf("expected timeout error, got %v", err)
	}
}

func TestRun_PlumbsApprovalMessageIntoRequest(t *testing.T) {
	tool := NewTool(".", 5, false)
	tool.PermissionPolicy = permission.New([]permission.Rule{
		{Pattern: "echo *", Level: permission.LevelRequireApproval},
	}, permission.LevelAllow)
	manager := approval.NewManager(nil)
	tool.ApprovalManager = manager
	tool.ApprovalTimeoutSecs = 1

	// No response is ever submitted, so Run blocks until ApprovalTimeoutSecs
	// elapses; by the time it returns, the request has already been pushed
	// to history.
	_, _ = tool.Run(context.Background(), "echo hi", "", RoutingContext{
		SessionID:       "s1",
		Channel:         "telegram",
		ChatID:          "c1",
		ApprovalMessage: "about to say hi",
	})

	hist := manager.History()
	if len(hist) != 1 {
		t.Fatalf("expected 1 history entry, got %d", len(hist))
	}
	if hist[0].Request.DisplayMessage != "about to say hi" {
		t.Fatalf("expected approval_message to reach the request's display message, got %q", hist[0].Request.DisplayMessage)
	}
}

func TestNormalizeCommand_StripsEscapedQuotes(t *testing.T) {
	got := normalizeCommand(`echo \"hello\"`)
	if got != `echo "hello"` {
		t.Fatalf("expected unescaped quotes, got %q", got)
	}
}

func TestResolveWorkingDir_RejectsEscape(t *testing.T) {
	tool := NewTool("/tmp/workspace-root", 5, true)
	if _, err := tool.resolveWorkingDir("/etc"); err == nil {
		t.Fatal("expected working directory outside workspace to be rejected")
	}
}
