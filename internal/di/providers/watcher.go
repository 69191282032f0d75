package providers

import (
	"context"

	"github.com/samber/do/v2"

	"github.com/shelfwise/shelfwise-server/internal/config"
	"github.com/shelfwise/shelfwise-server/internal/logger"
	"github.com/shelfwise/shelfwise-server/internal/taxonomy"
)

// SeedWatcherHandle wraps the taxonomy seed watcher with shutdown capability.
// Watcher is nil when watching is disabled.
type SeedWatcherHandle struct {
	Watcher *taxonomy.SeedWatcher
	cancel  context.CancelFunc
	done    chan struct{}
}

// Shutdown implements do.Shutdownable.
func (h *SeedWatcherHandle) Shutdown() error {
	if h.Watcher == nil {
		return nil
	}
	h.cancel()
	<-h.done
	return nil
}

// ProvideSeedWatcher re-imports the seed file whenever it changes.
func ProvideSeedWatcher(i do.Injector) (*SeedWatcherHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)
	storeHandle := do.MustInvoke[*StoreHandle](i)
	_ = do.MustInvoke[*TaxonomySeed](i)

	if !cfg.Taxonomy.WatchSeed || cfg.Taxonomy.SeedFile == "" {
		return &SeedWatcherHandle{}, nil
	}

	w := taxonomy.NewSeedWatcher(cfg.Taxonomy.SeedFile, storeHandle.Store, log.WithComponent("taxonomy").Logger)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	go func() {
		defer close(done)
		if err := w.Run(ctx); err != nil {
			log.Error("Taxonomy seed watcher stopped", "error", err)
		}
	}()

	return &SeedWatcherHandle{Watcher: w, cancel: cancel, done: done}, nil
}
