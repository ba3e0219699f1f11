// Package trackerservice implements the rules of the stub tracker on top of
// the store: input validation, the epic/story/task/subtask hierarchy, tree
// assembly and change notifications.
package trackerservice

import (
	"context"
	"fmt"
	"regexp"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/treesync/internal/apperr"
	"github.com/starford/treesync/internal/models"
	"github.com/starford/treesync/internal/store"
)

// Change event kinds.
const (
	EventDomainCreated = "domain.created"
	EventTaskCreated   = "task.created"
	EventTaskUpdated   = "task.updated"
)

// DefaultColor is assigned to domains created without a color.
const DefaultColor = "#6366f1"

var (
	prefixRe = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9]{0,7}$`)
	colorRe  = regexp.MustCompile(`^#[0-9a-fA-F]{6}$`)
)

// Publisher receives change notifications.
type Publisher interface {
	PublishChange(kind string, data any)
}

// CreateDomainInput is the payload of a domain creation.
type CreateDomainInput struct {
	Name       string
	TaskPrefix string
	Keywords   []string
	Color      string
}

// Validate validates the domain payload.
func (in CreateDomainInput) Validate() error {
	return validation.ValidateStruct(&in,
		validation.Field(&in.Name, validation.Required, validation.RuneLength(1, 64)),
		validation.Field(&in.TaskPrefix, validation.Required, validation.Match(prefixRe)),
		validation.Field(&in.Color, validation.Match(colorRe)),
	)
}

// CreateTaskInput is the payload of a task creation. A nil ParentTaskID
// creates a root; a non-nil one must name an existing task one level up.
type CreateTaskInput struct {
	Title        string
	Description  string
	Type         models.TaskType
	Domain       string
	Priority     models.Priority
	Owner        string
	ParentTaskID *string
}

// Validate validates the task payload.
func (in CreateTaskInput) Validate() error {
	return validation.ValidateStruct(&in,
		validation.Field(&in.Title, validation.Required),
		validation.Field(&in.Type, validation.In(levels()...)),
		validation.Field(&in.Priority, validation.In(models.P0, models.P1, models.P2, models.P3)),
	)
}

// UpdateTaskInput carries a partial update. Nil fields are left unchanged.
type UpdateTaskInput struct {
	Title       *string
	Description *string
	Status      *models.Status
	Priority    *models.Priority
	Owner       *string
	Blocker     *string
}

// Validate validates the update payload.
func (in UpdateTaskInput) Validate() error {
	return validation.ValidateStruct(&in,
		validation.Field(&in.Title, validation.When(in.Title != nil, validation.Required)),
		validation.Field(&in.Status, validation.In(statuses()...)),
		validation.Field(&in.Priority, validation.In(models.P0, models.P1, models.P2, models.P3)),
	)
}

// ProgressInput is a progress report.
type ProgressInput struct {
	Progress *int
	Summary  string
}

// Validate validates the progress report.
func (in ProgressInput) Validate() error {
	return validation.ValidateStruct(&in,
		validation.Field(&in.Progress, validation.NotNil, validation.Min(0), validation.Max(100)),
	)
}

// Service coordinates store operations and notifications.
type Service struct {
	db  store.TaskStore
	pub Publisher
}

// NewService creates a new tracker service. pub may be nil.
func NewService(db store.TaskStore, pub Publisher) *Service {
	return &Service{db: db, pub: pub}
}

// ListDomains returns every domain.
func (s *Service) ListDomains(_ context.Context) ([]models.Domain, error) {
	return s.db.ListDomains()
}

// CreateDomain validates and stores a domain.
func (s *Service) CreateDomain(_ context.Context, in CreateDomainInput) (*models.Domain, error) {
	if err := in.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", apperr.ErrInvalid, err)
	}
	if in.Color == "" {
		in.Color = DefaultColor
	}
	d, err := s.db.CreateDomain(models.Domain{
		Name:       in.Name,
		TaskPrefix: in.TaskPrefix,
		Keywords:   in.Keywords,
		Color:      in.Color,
	})
	if err != nil {
		return nil, err
	}
	s.publish(EventDomainCreated, map[string]string{"name": d.Name, "taskPrefix": d.TaskPrefix})
	return d, nil
}

// CreateTask validates in against the hierarchy and stores the task. The
// type defaults to task and the priority to P2; a child without a domain
// inherits its parent's.
func (s *Service) CreateTask(_ context.Context, in CreateTaskInput) (*models.Task, error) {
	if in.Type == "" {
		in.Type = models.TypeTask
	}
	if in.Priority == "" {
		in.Priority = models.P2
	}
	if err := in.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", apperr.ErrInvalid, err)
	}

	t := models.Task{
		Title:       in.Title,
		Description: in.Description,
		Type:        in.Type,
		Domain:      in.Domain,
		Priority:    in.Priority,
		Owner:       in.Owner,
	}

	if in.ParentTaskID != nil {
		parent, err := s.db.GetTask(*in.ParentTaskID)
		if err != nil {
			return nil, fmt.Errorf("parent: %w", err)
		}
		if want := models.Level(parent.Type) + 1; models.Level(in.Type) != want {
			return nil, fmt.Errorf("%w: a %s cannot be a child of a %s", apperr.ErrInvalid, in.Type, parent.Type)
		}
		if t.Domain == "" {
			t.Domain = parent.Domain
		}
		t.ParentTaskID = parent.TaskID
	}

	created, err := s.db.CreateTask(t)
	if err != nil {
		return nil, err
	}
	s.publish(EventTaskCreated, taskEvent(created))
	return created, nil
}

// GetTask returns one task.
func (s *Service) GetTask(_ context.Context, taskID string) (*models.Task, error) {
	return s.db.GetTask(taskID)
}

// UpdateTask applies a partial update.
func (s *Service) UpdateTask(_ context.Context, taskID string, in UpdateTaskInput) (*models.Task, error) {
	if err := in.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", apperr.ErrInvalid, err)
	}
	t, err := s.db.UpdateTask(taskID, store.TaskUpdate{
		Title:       in.Title,
		Description: in.Description,
		Status:      in.Status,
		Priority:    in.Priority,
		Owner:       in.Owner,
		Blocker:     in.Blocker,
	})
	if err != nil {
		return nil, err
	}
	s.publish(EventTaskUpdated, taskEvent(t))
	return t, nil
}

// UpdateProgress records a progress report.
func (s *Service) UpdateProgress(_ context.Context, taskID string, in ProgressInput) (*models.Task, error) {
	if err := in.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", apperr.ErrInvalid, err)
	}
	t, err := s.db.SetProgress(taskID, *in.Progress, in.Summary)
	if err != nil {
		return nil, err
	}
	s.publish(EventTaskUpdated, taskEvent(t))
	return t, nil
}

// History returns the progress reports of a task.
func (s *Service) History(_ context.Context, taskID string) ([]models.ProgressEntry, error) {
	return s.db.History(taskID)
}

// Tree returns the forest of root tasks with their descendants nested in
// creation order. A non-empty domain keeps only the roots of that domain.
func (s *Service) Tree(_ context.Context, domain string) ([]models.TaskNode, error) {
	tasks, err := s.db.ListTasks()
	if err != nil {
		return nil, err
	}

	children := make(map[string][]models.Task)
	var roots []models.Task
	for _, t := range tasks {
		if t.ParentTaskID == "" {
			if domain == "" || t.Domain == domain {
				roots = append(roots, t)
			}
			continue
		}
		children[t.ParentTaskID] = append(children[t.ParentTaskID], t)
	}

	var build func(t models.Task) models.TaskNode
	build = func(t models.Task) models.TaskNode {
		n := models.TaskNode{
			TaskID:   t.TaskID,
			Title:    t.Title,
			Type:     t.Type,
			Progress: t.Progress,
			Status:   t.Status,
			Domain:   t.Domain,
			Priority: t.Priority,
			Owner:    t.Owner,
			Blocker:  t.Blocker,
			Children: []models.TaskNode{},
		}
		for _, c := range children[t.TaskID] {
			n.Children = append(n.Children, build(c))
		}
		return n
	}

	out := make([]models.TaskNode, 0, len(roots))
	for _, r := range roots {
		out = append(out, build(r))
	}
	return out, nil
}

func (s *Service) publish(kind string, data any) {
	if s.pub != nil {
		s.pub.PublishChange(kind, data)
	}
}

func taskEvent(t *models.Task) map[string]any {
	return map[string]any{
		"taskId":   t.TaskID,
		"type":     t.Type,
		"status":   t.Status,
		"progress": t.Progress,
	}
}

func levels() []any {
	out := make([]any, len(models.Levels))
	for i, l := range models.Levels {
		out[i] = l
	}
	return out
}

func statuses() []any {
	out := make([]any, len(models.Statuses))
	for i, s := range models.Statuses {
		out[i] = s
	}
	return out
}
