// Package models defines the domain types shared by the seeder, the
// reporter and the stub tracker.
package models

import "time"

// TaskType is the hierarchy level name of a task node.
type TaskType string

const (
	TypeEpic    TaskType = "epic"
	TypeStory   TaskType = "story"
	TypeTask    TaskType = "task"
	TypeSubtask TaskType = "subtask"
)

// Levels lists the hierarchy from the root down. Index equals depth.
var Levels = []TaskType{TypeEpic, TypeStory, TypeTask, TypeSubtask}

// MaxDepth is the number of hierarchy levels.
const MaxDepth = 4

// Level returns the depth of t (0 for epic) or -1 for an unknown type.
func Level(t TaskType) int {
	for i, l := range Levels {
		if l == t {
			return i
		}
	}
	return -1
}

// TypeAtDepth returns the level name for depth d, or "" when d is out of range.
func TypeAtDepth(d int) TaskType {
	if d < 0 || d >= len(Levels) {
		return ""
	}
	return Levels[d]
}

// Status is a task lifecycle state. The empty value means planned.
type Status string

const (
	StatusPlanned Status = "planned"
	StatusActive  Status = "active"
	StatusDone    Status = "done"
	StatusBlocked Status = "blocked"
)

// Statuses lists every valid status.
var Statuses = []Status{StatusPlanned, StatusActive, StatusDone, StatusBlocked}

// Priority is an ordinal urgency tag; P0 is the highest.
type Priority string

const (
	P0 Priority = "P0"
	P1 Priority = "P1"
	P2 Priority = "P2"
	P3 Priority = "P3"
)

// Domain is a named classification bucket for tasks.
type Domain struct {
	ID         int64     `json:"id,omitempty"`
	Name       string    `json:"name"`
	TaskPrefix string    `json:"taskPrefix"`
	Keywords   []string  `json:"keywords"`
	Color      string    `json:"color"`
	CreatedAt  time.Time `json:"createdAt,omitzero"`
}

// Task is the server-side record of a single node, as returned by create
// and mutation calls.
type Task struct {
	TaskID       string    `json:"taskId"`
	Title        string    `json:"title"`
	Description  string    `json:"description,omitempty"`
	Type         TaskType  `json:"type"`
	Domain       string    `json:"domain,omitempty"`
	Priority     Priority  `json:"priority,omitempty"`
	Owner        string    `json:"owner,omitempty"`
	Status       Status    `json:"status"`
	Progress     int       `json:"progress"`
	Blocker      string    `json:"blocker,omitempty"`
	ParentTaskID string    `json:"parentTaskId,omitempty"`
	CreatedAt    time.Time `json:"createdAt,omitzero"`
	UpdatedAt    time.Time `json:"updatedAt,omitzero"`
}

// TaskNode is the snapshot (read) representation of a task with its
// nested children.
type TaskNode struct {
	TaskID   string     `json:"taskId"`
	Title    string     `json:"title"`
	Type     TaskType   `json:"type,omitempty"`
	Progress int        `json:"progress"`
	Status   Status     `json:"status,omitempty"`
	Domain   string     `json:"domain,omitempty"`
	Priority Priority   `json:"priority,omitempty"`
	Owner    string     `json:"owner,omitempty"`
	Blocker  string     `json:"blocker,omitempty"`
	Children []TaskNode `json:"children"`
}

// ProgressEntry is one recorded progress report of a task.
type ProgressEntry struct {
	Progress   int       `json:"progress"`
	Summary    string    `json:"summary,omitempty"`
	RecordedAt time.Time `json:"recordedAt"`
}
