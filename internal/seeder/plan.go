package seeder

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"strconv"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"gopkg.in/yaml.v3"

	"github.com/starford/treesync/internal/models"
)

// ErrInvalidPlan is returned when a plan fails validation.
var ErrInvalidPlan = errors.New("invalid plan")

//go:embed sample_plan.yaml
var samplePlan []byte

// Plan describes the domains to ensure and the hierarchy to create.
type Plan struct {
	Domains []DomainSpec `yaml:"domains"`
	Epics   []NodeSpec   `yaml:"epics"`
}

// DomainSpec is a domain the plan requires.
type DomainSpec struct {
	Name       string   `yaml:"name"`
	TaskPrefix string   `yaml:"task_prefix"`
	Keywords   []string `yaml:"keywords"`
	Color      string   `yaml:"color"`
}

// Validate validates the domain definition.
func (d DomainSpec) Validate() error {
	return validation.ValidateStruct(&d,
		validation.Field(&d.Name, validation.Required),
		validation.Field(&d.TaskPrefix, validation.Required, validation.Length(1, 8)),
	)
}

// NodeSpec is one node to create plus the mutations applied after it.
// Type and Domain may be left empty: the type is inferred from depth and
// the domain is inherited from the parent.
type NodeSpec struct {
	Title       string          `yaml:"title"`
	Description string          `yaml:"description"`
	Type        models.TaskType `yaml:"type"`
	Domain      string          `yaml:"domain"`
	Priority    models.Priority `yaml:"priority"`
	Owner       string          `yaml:"owner"`
	Progress    *int            `yaml:"progress"`
	Summary     string          `yaml:"summary"`
	Status      models.Status   `yaml:"status"`
	Blocker     string          `yaml:"blocker"`
	// StatusFirst applies the status update before the progress update.
	StatusFirst bool       `yaml:"status_first"`
	Children    []NodeSpec `yaml:"children"`
}

// DefaultPlan returns the built-in sample hierarchy.
func DefaultPlan() (*Plan, error) {
	return ParsePlan(samplePlan)
}

// LoadPlan reads a YAML plan from path.
func LoadPlan(path string) (*Plan, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read plan %s: %w", path, err)
	}
	return ParsePlan(data)
}

// ParsePlan decodes and validates a YAML plan.
func ParsePlan(data []byte) (*Plan, error) {
	var p Plan
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("%w: parse: %w", ErrInvalidPlan, err)
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return &p, nil
}

// Validate checks the whole plan before any request is issued.
func (p *Plan) Validate() error {
	if err := validation.ValidateStruct(p,
		validation.Field(&p.Domains, validation.Required),
		validation.Field(&p.Epics, validation.Required),
	); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidPlan, err)
	}

	names := make(map[string]bool, len(p.Domains))
	for _, d := range p.Domains {
		if names[d.Name] {
			return fmt.Errorf("%w: duplicate domain %q", ErrInvalidPlan, d.Name)
		}
		names[d.Name] = true
	}

	for i := range p.Epics {
		if err := p.Epics[i].check(outline("", i), 0, names, ""); err != nil {
			return err
		}
	}
	return nil
}

// Count returns the number of nodes in the plan.
func (p *Plan) Count() int {
	var walk func([]NodeSpec) int
	walk = func(nodes []NodeSpec) int {
		n := len(nodes)
		for _, c := range nodes {
			n += walk(c.Children)
		}
		return n
	}
	return walk(p.Epics)
}

func (n NodeSpec) check(path string, depth int, domains map[string]bool, inherited string) error {
	if depth >= models.MaxDepth {
		return fmt.Errorf("%w: node %s: nesting deeper than %s", ErrInvalidPlan, path, models.TypeSubtask)
	}

	statuses := make([]any, len(models.Statuses))
	for i, s := range models.Statuses {
		statuses[i] = s
	}
	err := validation.ValidateStruct(&n,
		validation.Field(&n.Title, validation.Required),
		validation.Field(&n.Type, validation.In(models.TypeAtDepth(depth)).Error("must be "+string(models.TypeAtDepth(depth))+" at this depth")),
		validation.Field(&n.Priority, validation.In(models.P0, models.P1, models.P2, models.P3)),
		validation.Field(&n.Progress, validation.Min(0), validation.Max(100)),
		validation.Field(&n.Status, validation.In(statuses...)),
		validation.Field(&n.Blocker, validation.When(n.Status != models.StatusBlocked, validation.Empty.Error("only allowed with status blocked"))),
	)
	if err != nil {
		return fmt.Errorf("%w: node %s (%q): %w", ErrInvalidPlan, path, n.Title, err)
	}

	domain := n.domain(inherited)
	if !domains[domain] {
		return fmt.Errorf("%w: node %s (%q): domain %q is not declared", ErrInvalidPlan, path, n.Title, domain)
	}

	for i := range n.Children {
		if err := n.Children[i].check(outline(path, i), depth+1, domains, domain); err != nil {
			return err
		}
	}
	return nil
}

func (n NodeSpec) domain(inherited string) string {
	if n.Domain != "" {
		return n.Domain
	}
	return inherited
}

// outline numbers nodes 1, 1.2, 1.2.3 in definition order.
func outline(parent string, i int) string {
	if parent == "" {
		return strconv.Itoa(i + 1)
	}
	return parent + "." + strconv.Itoa(i+1)
}
