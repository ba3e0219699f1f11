package trackerclient

import (
	"context"
	"net/url"

	"github.com/starford/treesync/internal/models"
)

// CreateDomainRequest is the body of POST /domains.
type CreateDomainRequest struct {
	Name       string   `json:"name"`
	TaskPrefix string   `json:"taskPrefix"`
	Keywords   []string `json:"keywords"`
	Color      string   `json:"color"`
}

// CreateTaskRequest is the body of POST /tasks. ParentTaskID is nil for
// roots; for children it is always sent, even when empty.
type CreateTaskRequest struct {
	Title        string          `json:"title"`
	Description  string          `json:"description"`
	Type         models.TaskType `json:"type"`
	Domain       string          `json:"domain"`
	Priority     models.Priority `json:"priority,omitempty"`
	Owner        string          `json:"owner,omitempty"`
	ParentTaskID *string         `json:"parent_task_id,omitempty"`
}

// ProgressRequest is the body of POST /tasks/{taskId}/progress.
type ProgressRequest struct {
	Progress int    `json:"progress"`
	Summary  string `json:"summary,omitempty"`
}

// StatusRequest is the status part of PATCH /tasks/{taskId}.
type StatusRequest struct {
	Status  models.Status `json:"status"`
	Blocker string        `json:"blocker,omitempty"`
}

// ListDomains fetches every domain.
func (c *Client) ListDomains(ctx context.Context) (*Result, error) {
	return c.Get(ctx, "/domains")
}

// CreateDomain creates one domain.
func (c *Client) CreateDomain(ctx context.Context, req CreateDomainRequest) (*Result, error) {
	return c.Post(ctx, "/domains", req)
}

// CreateTask creates one node.
func (c *Client) CreateTask(ctx context.Context, req CreateTaskRequest) (*Result, error) {
	return c.Post(ctx, "/tasks", req)
}

// UpdateProgress records progress for taskID.
func (c *Client) UpdateProgress(ctx context.Context, taskID string, req ProgressRequest) (*Result, error) {
	return c.Post(ctx, TaskPath(taskID)+"/progress", req)
}

// UpdateStatus changes the status (and blocker) of taskID.
func (c *Client) UpdateStatus(ctx context.Context, taskID string, req StatusRequest) (*Result, error) {
	return c.Patch(ctx, TaskPath(taskID), req)
}

// FetchTree fetches the nested task forest, optionally for one domain.
func (c *Client) FetchTree(ctx context.Context, domain string) (*Result, error) {
	path := "/tasks/tree"
	if domain != "" {
		path += "?" + url.Values{"domain": {domain}}.Encode()
	}
	return c.Get(ctx, path)
}

// TaskPath returns /tasks/{taskId} with the id path-escaped.
func TaskPath(taskID string) string {
	return "/tasks/" + url.PathEscape(taskID)
}
