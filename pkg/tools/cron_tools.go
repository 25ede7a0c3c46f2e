package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/synvek/relaymind/pkg/cron"
)

// CronStore is the subset of cron.Store the heartbeat/cron tools need.
type CronStore interface {
	AddJob(job cron.Job) (cron.Job, error)
	RemoveJob(id string) (bool, error)
	ListJobs() []cron.Job
}

// AddCronTool adds a new scheduled job. Whoever constructs the tool
// injects channel, chat_id, and user_id; channel and chat_id become the
// job's payload target, so a job can only ever notify that chat. user_id
// is kept on the tool but not written into the job.
type AddCronTool struct {
	store   CronStore
	channel string
	chatID  string
	userID  string
}

func NewAddCronTool(store CronStore, channel, chatID, userID string) *AddCronTool {
	return &AddCronTool{store: store, channel: channel, chatID: chatID, userID: userID}
}

func (t *AddCronTool) Name() string        { return "cron_add" }
func (t *AddCronTool) Description() string { return "Schedule a recurring or one-shot task" }
func (t *AddCronTool) ParametersSchema() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"name":    map[string]interface{}{"type": "string", "description": "Human-readable job name"},
			"expr":    map[string]interface{}{"type": "string", "description": "5- or 6-field cron expression"},
			"message": map[string]interface{}{"type": "string", "description": "Message to deliver when the job fires"},
		},
		"required": []string{"name", "expr", "message"},
	}
}

func (t *AddCronTool) Call(ctx context.Context, args map[string]interface{}) (string, error) {
	name, err := stringArg(args, "name")
	if err != nil {
		return "", err
	}
	expr, err := stringArg(args, "expr")
	if err != nil {
		return "", err
	}
	message, err := stringArg(args, "message")
	if err != nil {
		return "", err
	}

	job, err := t.store.AddJob(cron.Job{
		Name:    name,
		Enabled: true,
		Schedule: cron.Schedule{
			Kind: cron.ScheduleCron,
			Expr: expr,
		},
		Payload: cron.Payload{
			Message: message,
			Channel: t.channel,
			To:      t.chatID,
		},
	})
	if err != nil {
		return "", fmt.Errorf("failed to schedule job: %w", err)
	}
	return fmt.Sprintf("scheduled job %q (id=%s)", job.Name, job.ID), nil
}

// ListCronTool lists every scheduled job.
type ListCronTool struct {
	store CronStore
}

func NewListCronTool(store CronStore) *ListCronTool { return &ListCronTool{store: store} }

func (t *ListCronTool) Name() string        { return "cron_list" }
func (t *ListCronTool) Description() string { return "List scheduled tasks" }
func (t *ListCronTool) ParametersSchema() map[string]interface{} {
	return map[string]interface{}{"type": "object", "properties": map[string]interface{}{}}
}

func (t *ListCronTool) Call(ctx context.Context, args map[string]interface{}) (string, error) {
	jobs := t.store.ListJobs()
	if len(jobs) == 0 {
		return "(no scheduled jobs)", nil
	}
	var b strings.Builder
	for _, j := range jobs {
		status := "enabled"
		if !j.Enabled {
			status = "disabled"
		}
		fmt.Fprintf(&b, "%s  %s  (%s)\n", j.ID, j.Name, status)
	}
	return b.String(), nil
}

// DeleteCronTool removes a scheduled job by id.
type DeleteCronTool struct {
	store CronStore
}

func NewDeleteCronTool(store CronStore) *DeleteCronTool { return &DeleteCronTool{store: store} }

func (t *DeleteCronTool) Name() string        { return "cron_delete" }
func (t *DeleteCronTool) Description() string { return "Delete a scheduled task by id" }
func (t *DeleteCronTool) ParametersSchema() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"id": map[string]interface{}{"type": "string", "description": "Job id, as returned by cron_add or cron_list"},
		},
		"required": []string{"id"},
	}
}

func (t *DeleteCronTool) Call(ctx context.Context, args map[string]interface{}) (string, error) {
	id, err := stringArg(args, "id")
	if err != nil {
		return "", err
	}
	removed, err := t.store.RemoveJob(id)
	if err != nil {
		return "", fmt.Errorf("failed to delete job: %w", err)
	}
	if !removed {
		return "", fmt.Errorf("unknown cron job %q", id)
	}
	return fmt.Sprintf("deleted job %s", id), nil
}
