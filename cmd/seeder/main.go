package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	_ "github.com/joho/godotenv/autoload"
	"github.com/urfave/cli/v3"

	"github.com/starford/treesync/internal"
)

func run(ctx context.Context, cmd *cli.Command) error {
	cfg, err := internal.LoadConfig(cmd.String("config"))
	if err != nil {
		return fmt.Errorf("failed to parse config: %w", err)
	}
	if cmd.IsSet("base-url") {
		cfg.Tracker.BaseURL = cmd.String("base-url")
	}
	if cmd.IsSet("token") {
		cfg.Tracker.Token = cmd.String("token")
	}
	if cmd.IsSet("plan") {
		cfg.Seed.Plan = cmd.String("plan")
	}
	if cmd.IsSet("concurrency") {
		cfg.Seed.Concurrency = int(cmd.Int("concurrency"))
	}

	if _, err := internal.Seed(ctx, internal.WithConfig(cfg)); err != nil {
		return fmt.Errorf("seed: %w", err)
	}
	return nil
}

func main() {
	cmd := &cli.Command{
		Name:   "treesync-seeder",
		Usage:  "Create the domain-tagged epic/story/task/subtask sample hierarchy on the task tracker",
		Action: run,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "config",
				Aliases:     []string{"c"},
				Usage:       "Path to config file (optional)",
				DefaultText: "config/config.yaml",
				Value:       "config/config.yaml",
				Sources:     cli.EnvVars("TREESYNC_CONFIG"),
			},
			&cli.StringFlag{
				Name:    "base-url",
				Usage:   "Tracker API base URL",
				Sources: cli.EnvVars("TREESYNC_BASE_URL"),
			},
			&cli.StringFlag{
				Name:    "token",
				Usage:   "Bearer token",
				Sources: cli.EnvVars("TREESYNC_TOKEN"),
			},
			&cli.StringFlag{
				Name:  "plan",
				Usage: "YAML plan file (defaults to the built-in sample)",
			},
			&cli.IntFlag{
				Name:  "concurrency",
				Usage: "Story subtrees seeded in parallel per epic",
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		slog.Error("seeder error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
