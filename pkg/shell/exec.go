// Package shell implements the exec tool: command normalization, the
// base deny/allow policy gate, the optional permission-policy and
// approval gates, working-directory resolution, execution under a hard
// timeout, output decoding, and head-tail truncation before the result
// is handed back to the model.
package shell

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/synvek/relaymind/pkg/approval"
	"github.com/synvek/relaymind/pkg/permission"
	"github.com/synvek/relaymind/pkg/tracing"
)

const maxCombinedOutputBytes = 10 * 1024

// defaultDenyPatterns mirrors the always-on deny list every exec call is
// screened against before any configurable policy is consulted.
var defaultDenyPatterns = []*regexp.Regexp{
	regexp.MustCompile(`\brm\s+-[rf]{1,2}\b`),
	regexp.MustCompile(`\bdd\s+if=`),
	regexp.MustCompile(`\b(shutdown|reboot|poweroff)\b`),
	regexp.MustCompile(`:\(\)\s*\{.*\};\s*:`),
	regexp.MustCompile(`\bcurl\b.*\|\s*(ba)?sh\b`),
	regexp.MustCompile(`\bwget\b.*-O\s*-\s*\|\s*(ba)?sh\b`),
	regexp.MustCompile(`\b(nc|ncat|netcat)\b.*-[el]\b`),
	regexp.MustCompile(`\bsudo\b`),
	regexp.MustCompile(`/var/run/docker\.sock|docker\.(sock|socket)`),
	regexp.MustCompile(`\bmkfs\b|\bdiskpart\b`),
}

// CommandPolicy is the always-applied base gate: any deny match fails the
// command outright; if allow is non-empty, at least one allow pattern
// must also match.
type CommandPolicy struct {
	Deny  []*regexp.Regexp
	Allow []*regexp.Regexp
}

// DefaultCommandPolicy returns the built-in deny list with no allow list.
func DefaultCommandPolicy() CommandPolicy {
	return CommandPolicy{Deny: defaultDenyPatterns}
}

func (p CommandPolicy) check(command string) error {
	for _, pat := range p.Deny {
		if pat.MatchString(command) {
			return fmt.Errorf("command denied by safety policy: matches %s", pat.String())
		}
	}
	if len(p.Allow) > 0 {
		for _, pat := range p.Allow {
			if pat.MatchString(command) {
				return nil
			}
		}
		return fmt.Errorf("command not present on allow list")
	}
	return nil
}

// RoutingContext identifies the caller for approval requests.
type RoutingContext struct {
	SessionID string
	Channel   string
	ChatID    string

	// ApprovalMessage, if set, is shown to the human approving this
	// command in place of the bare command line.
	ApprovalMessage string
}

// Result is the structured outcome of a single exec call.
type Result struct {
	ExitCode     int
	Stdout       string
	Stderr       string
	DurationMs   int64
	WorkingDir   string
	Truncated    bool
	OriginalSize int
}

// Display renders Result the way the model sees it: a short header
// followed by the (already truncated) combined output.
func (r Result) Display() string {
	var b strings.Builder
	fmt.Fprintf(&b, "exit_code=%d duration_ms=%d working_dir=%s\n", r.ExitCode, r.DurationMs, r.WorkingDir)
	if r.Stdout != "" {
		b.WriteString(r.Stdout)
	}
	if r.Stderr != "" {
		if r.Stdout != "" {
			b.WriteString("\n")
		}
		b.WriteString("STDERR:\n")
		b.WriteString(r.Stderr)
	}
	return b.String()
}

// Tool is the exec tool's configuration and dependencies.
type Tool struct {
	Workspace            string
	TimeoutSecs          int
	ApprovalTimeoutSecs  int
	RestrictToWorkspace  bool
	BasePolicy           CommandPolicy
	PermissionPolicy     *permission.Policy // nil = skip the permission gate
	ApprovalManager      *approval.Manager  // nil = RequireApproval always fails
}

// NewTool builds an exec tool with the default base policy.
func NewTool(workspace string, timeoutSecs int, restrict bool) *Tool {
	return &Tool{
		Workspace:           workspace,
		TimeoutSecs:         timeoutSecs,
		ApprovalTimeoutSecs: 120,
		RestrictToWorkspace: restrict,
		BasePolicy:          DefaultCommandPolicy(),
	}
}

// Run executes command under workingDir (or the tool's workspace if
// empty), applying the full gate pipeline before running anything.
func (t *Tool) Run(ctx context.Context, command, workingDir string, routing RoutingContext) (Result, error) {
	command = normalizeCommand(command)

	if err := t.BasePolicy.check(command); err != nil {
		return Result{}, err
	}

	if t.PermissionPolicy != nil {
		switch t.PermissionPolicy.CheckPermission(command) {
		case permission.LevelDeny:
			return Result{}, fmt.Errorf("denied by policy")
		case permission.LevelRequireApproval:
			if t.ApprovalManager == nil || routing.SessionID == "" {
				return Result{}, fmt.Errorf("approval system not configured")
			}
			outcome, err := t.ApprovalManager.RequestApproval(
				ctx, routing.SessionID, routing.Channel, routing.ChatID,
				command, workingDir, fmt.Sprintf("session=%s channel=%s", routing.SessionID, routing.Channel),
				routing.ApprovalMessage, t.ApprovalTimeoutSecs,
			)
			if err != nil {
				return Result{}, fmt.Errorf("approval system error: %w", err)
			}
			if outcome != approval.Approved {
				return Result{}, fmt.Errorf("command %q was not approved by the user", command)
			}
		}
	}

	resolvedDir, err := t.resolveWorkingDir(workingDir)
	if err != nil {
		return Result{}, err
	}

	return t.execute(ctx, command, resolvedDir)
}

// normalizeCommand repeatedly strips backslashes immediately preceding a
// double-quote, undoing redundant JSON-style escaping tool-call arguments
// sometimes carry.
func normalizeCommand(command string) string {
	for strings.Contains(command, `\"`) {
		command = strings.ReplaceAll(command, `\"`, `"`)
	}
	return command
}

func (t *Tool) resolveWorkingDir(workingDir string) (string, error) {
	dir := workingDir
	if dir == "" {
		dir = t.Workspace
	}
	if !t.RestrictToWorkspace {
		return dir, nil
	}
	absWorkspace, err := filepath.Abs(t.Workspace)
	if err != nil {
		return "", fmt.Errorf("cannot resolve workspace: %w", err)
	}
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("cannot resolve working directory: %w", err)
	}
	if absDir != absWorkspace && !strings.HasPrefix(absDir, absWorkspace+string(filepath.Separator)) {
		return "", fmt.Errorf("working directory %q is outside the workspace", workingDir)
	}
	return absDir, nil
}

func (t *Tool) execute(ctx context.Context, command, workingDir string) (Result, error) {
	ctx, span := tracing.StartShellExec(ctx, command)
	defer span.End()

	timeout := time.Duration(t.TimeoutSecs) * time.Second
	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(runCtx, "sh", "-c", command)
	cmd.Dir = workingDir

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	runErr := cmd.Run()
	duration := time.Since(start)

	if runCtx.Err() == context.DeadlineExceeded {
		err := fmt.Errorf("timed out after %ds", t.TimeoutSecs)
		span.RecordError(err)
		return Result{}, err
	}

	exitCode := 0
	if runErr != nil {
		if exitErr, ok := runErr.(*exec.ExitError); ok {
			exitCode = exitErr.ExitCode()
		} else {
			span.RecordError(runErr)
			return Result{}, fmt.Errorf("exec failed: %w", runErr)
		}
	}

	outStr := decodeOutput(stdout.Bytes())
	errStr := decodeOutput(stderr.Bytes())

	truncOut, truncErr, truncated := TruncateCombined(outStr, errStr, maxCombinedOutputBytes)

	if exitCode != 0 {
		logLevel := slog.LevelWarn
		if isBenignNoMatch(command, exitCode) {
			logLevel = slog.LevelDebug
		}
		slog.Log(context.Background(), logLevel, "exec: non-zero exit", "exit_code", exitCode, "command", truncateForLog(command), "stderr", MaskSensitive(truncErr))
	}

	return Result{
		ExitCode:     exitCode,
		Stdout:       truncOut,
		Stderr:       truncErr,
		DurationMs:   duration.Milliseconds(),
		WorkingDir:   workingDir,
		Truncated:    truncated,
		OriginalSize: len(outStr) + len(errStr),
	}, nil
}

// decodeOutput tries UTF-8 first; invalid sequences fall back to a lossy
// UTF-8 conversion rather than failing the whole call. (An OEM code-page
// fallback only matters on Windows, which this module does not target.)
func decodeOutput(b []byte) string {
	return string(bytes.ToValidUTF8(b, "�"))
}

// isBenignNoMatch recognizes the one expected non-zero exit: a directory
// listing command reporting "no match" via exit code 1.
func isBenignNoMatch(command string, exitCode int) bool {
	if exitCode != 1 {
		return false
	}
	trimmed := strings.TrimSpace(command)
	return strings.HasPrefix(trimmed, "ls ") || trimmed == "ls"
}

func truncateForLog(s string) string {
	const max = 200
	if len(s) <= max {
		return s
	}
	return s[:max] + "…"
}
