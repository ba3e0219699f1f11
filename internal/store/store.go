package store

import "github.com/starford/treesync/internal/models"

// TaskStore defines the persistence operations of the stub tracker.
// Consumers should depend on this interface rather than the concrete *DB type
// to facilitate testing with mocks.
type TaskStore interface {
	ListDomains() ([]models.Domain, error)
	CreateDomain(d models.Domain) (*models.Domain, error)
	DomainByName(name string) (*models.Domain, error)
	CreateTask(t models.Task) (*models.Task, error)
	GetTask(taskID string) (*models.Task, error)
	ListTasks() ([]models.Task, error)
	UpdateTask(taskID string, u TaskUpdate) (*models.Task, error)
	SetProgress(taskID string, progress int, summary string) (*models.Task, error)
	History(taskID string) ([]models.ProgressEntry, error)
	Close() error
}

// Verify *DB satisfies TaskStore at compile time.
var _ TaskStore = (*DB)(nil)
