package providers

import (
	"path/filepath"
	"time"

	"github.com/shelfwise/shelfwise-server/internal/config"
)

// shutdownTimeout bounds how long the HTTP server waits for in-flight batch
// submissions when the container shuts down.
const shutdownTimeout = 30 * time.Second

// Everything Shelfwise persists lives under the configured data directory.
const (
	catalogueFile = "shelfwise.db" // sqlite catalogue
	reportsDir    = "reports"      // badger batch report archive
	mediaDir      = "media"        // stored book images
)

func dataPath(cfg *config.Config, name string) string {
	return filepath.Join(cfg.Metadata.BasePath, name)
}
