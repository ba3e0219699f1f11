package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	_ "github.com/joho/godotenv/autoload"
	"github.com/urfave/cli/v3"

	"github.com/starford/treesync/internal"
)

func loadConfig(cmd *cli.Command) (*internal.Config, error) {
	cfg, err := internal.LoadConfig(cmd.String("config"))
	if err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if cmd.IsSet("snapshot") {
		cfg.Report.Snapshot = cmd.String("snapshot")
	}
	if cmd.IsSet("domain") {
		cfg.Report.Domain = cmd.String("domain")
	}
	if cmd.IsSet("base-url") {
		cfg.Tracker.BaseURL = cmd.String("base-url")
	}
	if cmd.IsSet("token") {
		cfg.Tracker.Token = cmd.String("token")
	}
	return cfg, nil
}

func run(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	return internal.Report(ctx,
		internal.WithConfig(cfg),
		internal.WithFetch(cmd.Bool("fetch")),
		internal.WithWatch(cmd.Bool("watch")))
}

func serveMCP(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	return internal.ServeMCP(ctx, internal.WithConfig(cfg))
}

func main() {
	cmd := &cli.Command{
		Name:   "treesync-reporter",
		Usage:  "Render the task tree snapshot as an indented, depth-bounded summary",
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
				Name:    "snapshot",
				Usage:   "Snapshot file",
				Sources: cli.EnvVars("TREESYNC_SNAPSHOT"),
			},
			&cli.StringFlag{
				Name:  "domain",
				Usage: "Keep only the roots of this domain when fetching",
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
			&cli.BoolFlag{
				Name:  "fetch",
				Usage: "Fetch the live tree and save it as the snapshot first",
			},
			&cli.BoolFlag{
				Name:  "watch",
				Usage: "Re-render whenever the snapshot changes",
			},
		},
		Commands: []*cli.Command{
			{
				Name:   "mcp",
				Usage:  "Serve the reporter tools over MCP stdio",
				Action: serveMCP,
			},
		},
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := cmd.Run(ctx, os.Args); err != nil {
		slog.Error("reporter error", slog.String("error", err.Error()))
		stop()
		os.Exit(1)
	}
}
