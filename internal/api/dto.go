package api

import (
	"github.com/starford/treesync/internal/models"
	"github.com/starford/treesync/internal/trackerservice"
)

// CreateDomainRequest is the request body for creating a domain. The prefix
// is accepted as taskPrefix or task_prefix.
type CreateDomainRequest struct {
	Name            string   `json:"name" example:"用户系统" validate:"required"`
	TaskPrefix      string   `json:"taskPrefix" example:"U"`
	TaskPrefixSnake string   `json:"task_prefix"`
	Keywords        []string `json:"keywords" example:"user,auth"`
	Color           string   `json:"color" example:"#6366f1"`
}

func (r CreateDomainRequest) input() trackerservice.CreateDomainInput {
	prefix := r.TaskPrefix
	if prefix == "" {
		prefix = r.TaskPrefixSnake
	}
	return trackerservice.CreateDomainInput{
		Name:       r.Name,
		TaskPrefix: prefix,
		Keywords:   r.Keywords,
		Color:      r.Color,
	}
}

// CreateTaskRequest is the request body for creating a task. A present
// parent_task_id, even empty, must name an existing task.
type CreateTaskRequest struct {
	Title        string          `json:"title" example:"用户注册流程优化" validate:"required"`
	Description  string          `json:"description"`
	Type         models.TaskType `json:"type" example:"story"`
	Domain       string          `json:"domain" example:"用户系统"`
	Priority     models.Priority `json:"priority" example:"P1"`
	Owner        string          `json:"owner" example:"agent-01"`
	ParentTaskID *string         `json:"parent_task_id" example:"U-001"`
}

func (r CreateTaskRequest) input() trackerservice.CreateTaskInput {
	return trackerservice.CreateTaskInput{
		Title:        r.Title,
		Description:  r.Description,
		Type:         r.Type,
		Domain:       r.Domain,
		Priority:     r.Priority,
		Owner:        r.Owner,
		ParentTaskID: r.ParentTaskID,
	}
}

// UpdateTaskRequest is the request body for a partial task update.
type UpdateTaskRequest struct {
	Title       *string          `json:"title"`
	Description *string          `json:"description"`
	Status      *models.Status   `json:"status" example:"blocked"`
	Priority    *models.Priority `json:"priority"`
	Owner       *string          `json:"owner"`
	Blocker     *string          `json:"blocker" example:"依赖后端 OAuth 回调接口尚未完成"`
}

func (r UpdateTaskRequest) input() trackerservice.UpdateTaskInput {
	return trackerservice.UpdateTaskInput(r)
}

// ProgressRequest is the request body of a progress report.
type ProgressRequest struct {
	Progress *int   `json:"progress" example:"55" validate:"required"`
	Summary  string `json:"summary" example:"注册流程已完成，OAuth 进行中"`
}

// TaskNode is a node of the task tree response.
type TaskNode = models.TaskNode
