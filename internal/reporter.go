package internal

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/starford/treesync/internal/mcpserver"
	"github.com/starford/treesync/internal/models"
	"github.com/starford/treesync/internal/report"
	"github.com/starford/treesync/internal/snapshot"
)

// Report renders the configured snapshot to the output writer (stdout by
// default). Logs go to stderr so the output carries only the tree. With
// WithFetch the live tree is pulled and saved first; with WithWatch Report
// keeps re-rendering on snapshot changes until ctx is cancelled.
func Report(ctx context.Context, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	cfg := app.config
	logger := newLogger(app.logOutput(os.Stderr), cfg.App)
	out := app.output()
	path := cfg.Report.Snapshot

	if app.fetch {
		data, err := snapshot.Fetch(ctx, newClient(cfg, logger), cfg.Report.Domain)
		if err != nil {
			return err
		}
		if err := snapshot.Save(path, data); err != nil {
			return err
		}
		logger.Info("snapshot saved", slog.String("path", path), slog.Int("bytes", len(data)))
	}

	roots, err := snapshot.Load(path)
	if err != nil {
		return err
	}
	if err := renderTree(out, roots, logger); err != nil {
		return err
	}

	if !app.watch {
		return nil
	}
	return snapshot.Watch(ctx, path, logger, func(data []byte) {
		roots, err := snapshot.Decode(bytes.NewReader(data))
		if err != nil {
			logger.Warn("snapshot unreadable, keeping last render", slog.String("error", err.Error()))
			return
		}
		if err := renderTree(out, roots, logger); err != nil {
			logger.Error("render failed", slog.String("error", err.Error()))
		}
	})
}

// ServeMCP serves the reporter tools over MCP stdio. Logs go to stderr
// because stdout carries the protocol.
func ServeMCP(_ context.Context, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	cfg := app.config
	logger := newLogger(app.logOutput(os.Stderr), cfg.App)
	slog.SetDefault(logger)

	srv := mcpserver.New(newClient(cfg, logger), cfg.Report.Snapshot)
	logger.Info("MCP server starting", slog.String("snapshot", cfg.Report.Snapshot))
	return srv.ServeStdio()
}

func renderTree(w io.Writer, roots []models.TaskNode, logger *slog.Logger) error {
	n, err := report.Render(w, roots)
	if err != nil {
		return fmt.Errorf("render: %w", err)
	}
	logger.Info("tree rendered", slog.Int("roots", len(roots)), slog.Int("lines", n))
	return nil
}
