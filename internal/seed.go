package internal

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/starford/treesync/internal/seeder"
	"github.com/starford/treesync/internal/trackerclient"
)

// Seed creates the configured plan on the tracker. Progress lines go to
// stdout unless WithLogOutput says otherwise. The returned error wraps
// seeder.ErrRootFailed when an epic could not be created.
func Seed(ctx context.Context, opts ...Option) (*seeder.Summary, error) {
	app, err := newApplication(opts)
	if err != nil {
		return nil, err
	}
	cfg := app.config
	logger := newLogger(app.logOutput(os.Stdout), cfg.App)

	plan := app.plan
	if plan == nil {
		if plan, err = loadPlan(cfg.Seed.Plan); err != nil {
			return nil, err
		}
	}

	client := newClient(cfg, logger)
	logger.Info("seeding tracker",
		slog.String("base_url", client.BaseURL()),
		slog.Int("nodes", plan.Count()),
		slog.Int("concurrency", cfg.Seed.Concurrency))

	s := seeder.New(client,
		seeder.WithLogger(logger),
		seeder.WithConcurrency(cfg.Seed.Concurrency))
	return s.Seed(ctx, plan)
}

func loadPlan(path string) (*seeder.Plan, error) {
	if path == "" {
		return seeder.DefaultPlan()
	}
	p, err := seeder.LoadPlan(path)
	if err != nil {
		return nil, fmt.Errorf("load plan: %w", err)
	}
	return p, nil
}

func newClient(cfg *Config, logger *slog.Logger) *trackerclient.Client {
	return trackerclient.New(cfg.Tracker.BaseURL, cfg.Tracker.Token,
		trackerclient.WithLogger(logger),
		trackerclient.WithTimeout(cfg.Tracker.Timeout))
}
