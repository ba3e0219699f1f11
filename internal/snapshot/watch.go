package snapshot

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// settle is how long the watcher waits for a burst of events to end before
// reading the file.
const settle = 100 * time.Millisecond

// Callback receives the new snapshot content.
type Callback func(data []byte)

// Watch observes the snapshot at path until ctx is cancelled and calls cb
// whenever the file's content checksum changes. Events that leave the
// content unchanged (touches, identical rewrites) are ignored.
//
// The parent directory is watched rather than the file, so atomic
// replacement by rename keeps being observed.
func Watch(ctx context.Context, path string, logger *slog.Logger, cb Callback) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	if err := w.Add(filepath.Dir(abs)); err != nil {
		return err
	}

	last := ""
	if data, err := os.ReadFile(abs); err == nil {
		last = Checksum(data)
	}

	logger.Info("watcher: started", slog.String("path", abs))

	var timer *time.Timer
	var timerCh <-chan time.Time
	schedule := func() {
		if timer == nil {
			timer = time.NewTimer(settle)
			timerCh = timer.C
		} else {
			timer.Reset(settle)
		}
	}

	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			logger.Info("watcher: stopped")
			return nil

		case <-timerCh:
			data, err := os.ReadFile(abs)
			if err != nil {
				if !errors.Is(err, fs.ErrNotExist) {
					logger.Warn("watcher: read failed", slog.String("path", abs), slog.String("error", err.Error()))
				}
				continue
			}
			sum := Checksum(data)
			if sum == last {
				logger.Debug("watcher: content unchanged", slog.String("path", abs))
				continue
			}
			last = sum
			logger.Debug("watcher: snapshot changed", slog.String("path", abs), slog.String("checksum", sum))
			cb(data)

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if ev.Name != abs {
				continue
			}
			if ev.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename) != 0 {
				schedule()
			}

		case watchErr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Error("watcher: error", slog.String("error", watchErr.Error()))
		}
	}
}
