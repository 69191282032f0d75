package taxonomy

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultSettleDelay is how long the seed file must stay quiet before it is reloaded.
const DefaultSettleDelay = 500 * time.Millisecond

// SeedWatcher re-applies a seed file whenever it changes on disk.
type SeedWatcher struct {
	path   string
	writer TermWriter
	logger *slog.Logger
	settle time.Duration

	// applied is called after every reload attempt; tests hook it.
	applied func(SeedStats, error)
}

// NewSeedWatcher creates a watcher for path. Nothing is watched until Run.
func NewSeedWatcher(path string, w TermWriter, logger *slog.Logger) *SeedWatcher {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &SeedWatcher{
		path:   filepath.Clean(path),
		writer: w,
		logger: logger,
		settle: DefaultSettleDelay,
	}
}

// Run watches until ctx is cancelled. Editors usually replace files with a
// rename, so the parent directory is watched rather than the file itself.
func (w *SeedWatcher) Run(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(filepath.Dir(w.path)); err != nil {
		return fmt.Errorf("failed to watch seed directory: %w", err)
	}
	w.logger.Info("watching taxonomy seed", "path", w.path)

	timer := time.NewTimer(w.settle)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != w.path {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) != 0 {
				timer.Reset(w.settle)
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("seed watcher error", "error", err)
		case <-timer.C:
			w.reload(ctx)
		}
	}
}

func (w *SeedWatcher) reload(ctx context.Context) {
	seed, err := LoadSeedFile(w.path)
	var stats SeedStats
	if err == nil {
		stats, err = Apply(ctx, w.writer, seed)
	}

	if err != nil {
		w.logger.Error("failed to reload taxonomy seed", "path", w.path, "error", err)
	} else {
		w.logger.Info("taxonomy seed reloaded", "path", w.path, "created", stats.Created, "existing", stats.Existing)
	}
	if w.applied != nil {
		w.applied(stats, err)
	}
}
