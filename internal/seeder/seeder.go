// Package seeder populates a task tracker with a domain-tagged
// epic/story/task/subtask hierarchy, creating every node strictly after
// its parent so each child can carry the parent's server-assigned id.
package seeder

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/starford/treesync/internal/models"
	"github.com/starford/treesync/internal/trackerclient"
)

// ErrRootFailed is returned when an epic cannot be created. Nothing below
// it has a parent to attach to, so the run stops.
var ErrRootFailed = errors.New("root creation failed")

// Tracker is the subset of the tracker client the seeder needs.
type Tracker interface {
	Get(ctx context.Context, path string) (*trackerclient.Result, error)
	Post(ctx context.Context, path string, body any) (*trackerclient.Result, error)
	Patch(ctx context.Context, path string, body any) (*trackerclient.Result, error)
}

// Verify *trackerclient.Client satisfies Tracker at compile time.
var _ Tracker = (*trackerclient.Client)(nil)

// NodeOutcome records the result of one creation call.
type NodeOutcome struct {
	Path       string
	Type       models.TaskType
	Title      string
	TaskID     string
	StatusCode int
}

// Summary describes what a run did.
type Summary struct {
	DomainsCreated   []string
	Created          []NodeOutcome
	Failed           []NodeOutcome
	MutationFailures int
}

// Seeder issues the ordered creation calls.
type Seeder struct {
	tracker     Tracker
	logger      *slog.Logger
	concurrency int

	mu      sync.Mutex
	summary *Summary
}

// Option configures a Seeder.
type Option func(*Seeder)

// WithLogger sets the progress logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Seeder) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithConcurrency bounds how many story subtrees of one epic are seeded at
// once. Values below 2 keep every call sequential.
func WithConcurrency(n int) Option {
	return func(s *Seeder) {
		s.concurrency = n
	}
}

// New creates a Seeder.
func New(t Tracker, opts ...Option) *Seeder {
	s := &Seeder{tracker: t, logger: slog.Default(), concurrency: 1}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// EnsureDomains creates every domain in specs whose name is not already
// listed by the tracker and returns the names it created.
//
// The list-then-create sequence is not atomic: two seeders running at the
// same time can both see a domain as missing and both try to create it.
func (s *Seeder) EnsureDomains(ctx context.Context, specs []DomainSpec) ([]string, error) {
	res, err := s.tracker.Get(ctx, "/domains")
	if err != nil {
		return nil, fmt.Errorf("list domains: %w", err)
	}

	existing := make(map[string]struct{})
	if items, ok := res.Items(); ok {
		for _, it := range items {
			if m, ok := it.(map[string]any); ok {
				if name, ok := m["name"].(string); ok {
					existing[name] = struct{}{}
				}
			}
		}
	}

	var created []string
	for _, d := range specs {
		if _, ok := existing[d.Name]; ok {
			s.logger.Debug("domain exists", slog.String("domain", d.Name))
			continue
		}
		r, err := s.tracker.Post(ctx, "/domains", trackerclient.CreateDomainRequest{
			Name:       d.Name,
			TaskPrefix: d.TaskPrefix,
			Keywords:   nonNil(d.Keywords),
			Color:      d.Color,
		})
		if err != nil {
			return created, fmt.Errorf("create domain %q: %w", d.Name, err)
		}
		if !r.OK() {
			s.logger.Warn("domain not created", slog.String("domain", d.Name), slog.Int("status", r.StatusCode))
			continue
		}
		existing[d.Name] = struct{}{}
		created = append(created, d.Name)
	}
	return created, nil
}

// Seed validates plan, ensures its domains and creates its hierarchy.
//
// A failed epic aborts the run with ErrRootFailed before any further call.
// Failures below the root are logged and the run continues; the failed
// node's children and mutations are still attempted with the empty id and
// fail at the tracker in turn. Transport and decode errors abort the run.
func (s *Seeder) Seed(ctx context.Context, plan *Plan) (*Summary, error) {
	if err := plan.Validate(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.summary = &Summary{}
	sum := s.summary
	s.mu.Unlock()

	s.logger.Info("ensuring domains", slog.Int("count", len(plan.Domains)))
	created, err := s.EnsureDomains(ctx, plan.Domains)
	sum.DomainsCreated = created
	if err != nil {
		return sum, err
	}

	for i, epic := range plan.Epics {
		path := outline("", i)
		s.logger.Info("creating epic", slog.String("path", path), slog.String("title", epic.Title))

		id, err := s.createNode(ctx, path, 0, epic, epic.Domain, nil)
		if err != nil {
			return sum, err
		}
		if err := s.seedChildren(ctx, path, 0, epic, epic.Domain, id); err != nil {
			return sum, err
		}
	}

	s.logger.Info("seed complete",
		slog.Int("domains_created", len(sum.DomainsCreated)),
		slog.Int("created", len(sum.Created)),
		slog.Int("failed", len(sum.Failed)),
		slog.Int("mutation_failures", sum.MutationFailures))
	return sum, nil
}

// seedChildren creates the children of a node whose id is parentID. Story
// subtrees fan out when concurrency allows; deeper levels stay sequential.
func (s *Seeder) seedChildren(ctx context.Context, path string, depth int, n NodeSpec, domain, parentID string) error {
	if depth == 0 && s.concurrency > 1 && len(n.Children) > 1 {
		g, gCtx := errgroup.WithContext(ctx)
		g.SetLimit(s.concurrency)
		for i, child := range n.Children {
			g.Go(func() error {
				return s.seedSubtree(gCtx, outline(path, i), depth+1, child, domain, parentID)
			})
		}
		return g.Wait()
	}

	for i, child := range n.Children {
		if err := s.seedSubtree(ctx, outline(path, i), depth+1, child, domain, parentID); err != nil {
			return err
		}
	}
	return nil
}

func (s *Seeder) seedSubtree(ctx context.Context, path string, depth int, n NodeSpec, inherited, parentID string) error {
	domain := n.domain(inherited)
	if depth == 1 {
		s.logger.Info("creating story", slog.String("path", path), slog.String("title", n.Title))
	}
	parent := parentID
	id, err := s.createNode(ctx, path, depth, n, domain, &parent)
	if err != nil {
		return err
	}
	return s.seedChildren(ctx, path, depth, n, domain, id)
}

// createNode creates one node, applies its mutations and returns its id.
// parentID is nil for roots.
func (s *Seeder) createNode(ctx context.Context, path string, depth int, n NodeSpec, domain string, parentID *string) (string, error) {
	typ := n.Type
	if typ == "" {
		typ = models.TypeAtDepth(depth)
	}

	res, err := s.tracker.Post(ctx, "/tasks", trackerclient.CreateTaskRequest{
		Title:        n.Title,
		Description:  n.Description,
		Type:         typ,
		Domain:       domain,
		Priority:     n.Priority,
		Owner:        n.Owner,
		ParentTaskID: parentID,
	})
	if err != nil {
		return "", fmt.Errorf("create %s %s: %w", typ, path, err)
	}

	outcome := NodeOutcome{Path: path, Type: typ, Title: n.Title, TaskID: res.ID(), StatusCode: res.StatusCode}
	if !res.OK() || outcome.TaskID == "" {
		s.record(outcome, false)
		if parentID == nil {
			s.logger.Error("root creation failed, aborting",
				slog.String("path", path),
				slog.String("title", n.Title),
				slog.Int("status", res.StatusCode))
			if !res.OK() {
				return "", fmt.Errorf("%w: %s %q: %w", ErrRootFailed, path, n.Title, res.Err())
			}
			return "", fmt.Errorf("%w: %s %q: response carries no taskId", ErrRootFailed, path, n.Title)
		}
		s.logger.Warn("node creation failed, continuing",
			slog.String("path", path),
			slog.String("type", string(typ)),
			slog.String("title", n.Title),
			slog.Int("status", res.StatusCode))
	} else {
		s.record(outcome, true)
	}

	if err := s.mutate(ctx, outcome.TaskID, n); err != nil {
		return outcome.TaskID, err
	}
	return outcome.TaskID, nil
}

// mutate applies the progress and status updates of n to taskID.
func (s *Seeder) mutate(ctx context.Context, taskID string, n NodeSpec) error {
	steps := []func() (*trackerclient.Result, error){}

	progress := func() (*trackerclient.Result, error) {
		return s.tracker.Post(ctx, trackerclient.TaskPath(taskID)+"/progress", trackerclient.ProgressRequest{
			Progress: *n.Progress,
			Summary:  n.Summary,
		})
	}
	status := func() (*trackerclient.Result, error) {
		return s.tracker.Patch(ctx, trackerclient.TaskPath(taskID), trackerclient.StatusRequest{
			Status:  n.Status,
			Blocker: n.Blocker,
		})
	}

	if n.StatusFirst && n.Status != "" {
		steps = append(steps, status)
	}
	if n.Progress != nil {
		steps = append(steps, progress)
	}
	if !n.StatusFirst && n.Status != "" {
		steps = append(steps, status)
	}

	for _, step := range steps {
		res, err := step()
		if err != nil {
			return fmt.Errorf("update %s: %w", taskID, err)
		}
		if !res.OK() {
			s.mu.Lock()
			s.summary.MutationFailures++
			s.mu.Unlock()
		}
	}
	return nil
}

func (s *Seeder) record(o NodeOutcome, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if ok {
		s.summary.Created = append(s.summary.Created, o)
	} else {
		s.summary.Failed = append(s.summary.Failed, o)
	}
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
