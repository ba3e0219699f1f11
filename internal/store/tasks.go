package store

import (
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/starford/treesync/internal/apperr"
	"github.com/starford/treesync/internal/models"
)

// DefaultPrefix is used for tasks that belong to no domain.
const DefaultPrefix = "T"

const taskColumns = `
	t.task_id, t.title, t.description, t.type, COALESCE(d.name, ''), t.priority,
	t.owner, t.status, t.progress, t.blocker, COALESCE(p.task_id, ''),
	t.created_at, t.updated_at
	FROM tasks t
	LEFT JOIN domains d ON d.id = t.domain_id
	LEFT JOIN tasks p ON p.id = t.parent_id`

// TaskUpdate carries the fields of a partial update. Nil fields are left
// unchanged.
type TaskUpdate struct {
	Title       *string
	Description *string
	Status      *models.Status
	Priority    *models.Priority
	Owner       *string
	Blocker     *string
}

type scanner interface {
	Scan(dest ...any) error
}

func scanTask(s scanner) (*models.Task, error) {
	var t models.Task
	err := s.Scan(&t.TaskID, &t.Title, &t.Description, &t.Type, &t.Domain, &t.Priority,
		&t.Owner, &t.Status, &t.Progress, &t.Blocker, &t.ParentTaskID,
		&t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// CreateTask inserts t and returns the stored record. The task id is minted
// as <prefix>-NNN from the highest existing id with the same prefix, using
// the prefix of t.Domain or DefaultPrefix. t.Domain and t.ParentTaskID, when
// set, must name existing records.
func (db *DB) CreateTask(t models.Task) (*models.Task, error) {
	tx, err := db.conn.Begin()
	if err != nil {
		return nil, fmt.Errorf("store: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // best-effort on failure path

	prefix := DefaultPrefix
	var domainID sql.NullInt64
	if t.Domain != "" {
		if err := tx.QueryRow(`SELECT id, task_prefix FROM domains WHERE name = ?`, t.Domain).Scan(&domainID, &prefix); err != nil {
			return nil, notFound(err, "domain "+strconv.Quote(t.Domain))
		}
	}

	var parentID sql.NullInt64
	if t.ParentTaskID != "" {
		if err := tx.QueryRow(`SELECT id FROM tasks WHERE task_id = ?`, t.ParentTaskID).Scan(&parentID); err != nil {
			return nil, notFound(err, "parent task "+strconv.Quote(t.ParentTaskID))
		}
	}

	taskID, err := nextTaskID(tx, prefix)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	_, err = tx.Exec(`
		INSERT INTO tasks (task_id, title, description, domain_id, parent_id, type, status, progress, priority, owner, blocker, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, 0, ?, ?, '', ?, ?)
	`, taskID, t.Title, t.Description, domainID, parentID, t.Type, models.StatusPlanned, t.Priority, t.Owner, now, now)
	if err != nil {
		if isUnique(err) {
			return nil, fmt.Errorf("task %s: %w", taskID, apperr.ErrAlreadyExists)
		}
		return nil, fmt.Errorf("store: insert task: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("store: commit: %w", err)
	}
	return db.GetTask(taskID)
}

func nextTaskID(tx *sql.Tx, prefix string) (string, error) {
	var last string
	err := tx.QueryRow(`SELECT task_id FROM tasks WHERE task_id GLOB ? ORDER BY id DESC LIMIT 1`, prefix+"-*").Scan(&last)
	next := 1
	switch {
	case errors.Is(err, sql.ErrNoRows):
	case err != nil:
		return "", fmt.Errorf("store: last task id: %w", err)
	default:
		n, _ := strconv.Atoi(last[strings.LastIndex(last, "-")+1:])
		next = n + 1
	}
	return fmt.Sprintf("%s-%03d", prefix, next), nil
}

// GetTask returns the task with the given id or apperr.ErrNotFound.
func (db *DB) GetTask(taskID string) (*models.Task, error) {
	t, err := scanTask(db.conn.QueryRow(`SELECT `+taskColumns+` WHERE t.task_id = ?`, taskID))
	if err != nil {
		return nil, notFound(err, "task "+strconv.Quote(taskID))
	}
	return t, nil
}

// ListTasks returns every task in creation order.
func (db *DB) ListTasks() ([]models.Task, error) {
	rows, err := db.conn.Query(`SELECT ` + taskColumns + ` ORDER BY t.id`)
	if err != nil {
		return nil, fmt.Errorf("store: list tasks: %w", err)
	}
	defer rows.Close()

	out := []models.Task{}
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *t)
	}
	return out, rows.Err()
}

// UpdateTask applies the non-nil fields of u to the task.
func (db *DB) UpdateTask(taskID string, u TaskUpdate) (*models.Task, error) {
	sets := []string{"updated_at = ?"}
	args := []any{time.Now().UTC()}
	add := func(col string, v any) {
		sets = append(sets, col+" = ?")
		args = append(args, v)
	}
	if u.Title != nil {
		add("title", *u.Title)
	}
	if u.Description != nil {
		add("description", *u.Description)
	}
	if u.Status != nil {
		add("status", *u.Status)
	}
	if u.Priority != nil {
		add("priority", *u.Priority)
	}
	if u.Owner != nil {
		add("owner", *u.Owner)
	}
	if u.Blocker != nil {
		add("blocker", *u.Blocker)
	}
	args = append(args, taskID)

	res, err := db.conn.Exec(`UPDATE tasks SET `+strings.Join(sets, ", ")+` WHERE task_id = ?`, args...)
	if err != nil {
		return nil, fmt.Errorf("store: update task: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, fmt.Errorf("task %q: %w", taskID, apperr.ErrNotFound)
	}
	return db.GetTask(taskID)
}

// SetProgress records a progress report. Reaching 100 marks the task done
// and a planned task becomes active. An increase clears the blocker.
func (db *DB) SetProgress(taskID string, progress int, summary string) (*models.Task, error) {
	tx, err := db.conn.Begin()
	if err != nil {
		return nil, fmt.Errorf("store: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // best-effort on failure path

	var id int64
	var status models.Status
	var old int
	var blocker string
	err = tx.QueryRow(`SELECT id, status, progress, blocker FROM tasks WHERE task_id = ?`, taskID).
		Scan(&id, &status, &old, &blocker)
	if err != nil {
		return nil, notFound(err, "task "+strconv.Quote(taskID))
	}

	switch {
	case progress >= 100:
		status = models.StatusDone
	case status == models.StatusPlanned:
		status = models.StatusActive
	}
	if progress > old {
		blocker = ""
	}

	now := time.Now().UTC()
	if _, err := tx.Exec(`UPDATE tasks SET progress = ?, status = ?, blocker = ?, updated_at = ? WHERE id = ?`,
		progress, status, blocker, now, id); err != nil {
		return nil, fmt.Errorf("store: update progress: %w", err)
	}
	if _, err := tx.Exec(`INSERT INTO progress_history (task_id, progress, summary, recorded_at) VALUES (?, ?, ?, ?)`,
		id, progress, summary, now); err != nil {
		return nil, fmt.Errorf("store: insert history: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("store: commit: %w", err)
	}
	return db.GetTask(taskID)
}

// History returns the progress reports of a task, oldest first.
func (db *DB) History(taskID string) ([]models.ProgressEntry, error) {
	if _, err := db.GetTask(taskID); err != nil {
		return nil, err
	}
	rows, err := db.conn.Query(`
		SELECT h.progress, h.summary, h.recorded_at
		FROM progress_history h JOIN tasks t ON t.id = h.task_id
		WHERE t.task_id = ?
		ORDER BY h.id`, taskID)
	if err != nil {
		return nil, fmt.Errorf("store: history: %w", err)
	}
	defer rows.Close()

	out := []models.ProgressEntry{}
	for rows.Next() {
		var e models.ProgressEntry
		if err := rows.Scan(&e.Progress, &e.Summary, &e.RecordedAt); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
