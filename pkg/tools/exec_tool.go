package tools

import (
	"context"

	"github.com/synvek/relaymind/pkg/shell"
)

// ExecTool adapts shell.Tool to the Tool interface, the single most
// complex tool in the registry: base policy, permission policy, and
// approval gates all run before anything executes.
type ExecTool struct {
	shell     *shell.Tool
	sessionID string
	channel   string
	chatID    string
}

func NewExecTool(shellTool *shell.Tool, sessionID, channel, chatID string) *ExecTool {
	return &ExecTool{shell: shellTool, sessionID: sessionID, channel: channel, chatID: chatID}
}

func (t *ExecTool) Name() string        { return "exec" }
func (t *ExecTool) Description() string { return "Execute a shell command and return its output" }
func (t *ExecTool) ParametersSchema() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"command":          map[string]interface{}{"type": "string", "description": "The shell command to execute"},
			"working_dir":      map[string]interface{}{"type": "string", "description": "Optional working directory"},
			"approval_message": map[string]interface{}{"type": "string", "description": "Optional message shown to the human approving this command"},
		},
		"required": []string{"command"},
	}
}

func (t *ExecTool) Call(ctx context.Context, args map[string]interface{}) (string, error) {
	command, err := stringArg(args, "command")
	if err != nil {
		return "", err
	}
	workingDir := optionalStringArg(args, "working_dir")
	approvalMessage := optionalStringArg(args, "approval_message")

	sessionID, channel, chatID := t.sessionID, t.channel, t.chatID
	if ac, ok := AgentContextFrom(ctx); ok {
		if ac.Workspace != "" && workingDir == "" {
			workingDir = ac.Workspace
		}
	}

	result, err := t.shell.Run(ctx, command, workingDir, shell.RoutingContext{
		SessionID:       sessionID,
		Channel:         channel,
		ChatID:          chatID,
		ApprovalMessage: approvalMessage,
	})
	if err != nil {
		return "", err
	}
	return result.Display(), nil
}
