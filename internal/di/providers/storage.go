package providers

import (
	"fmt"

	"github.com/samber/do/v2"

	"github.com/shelfwise/shelfwise-server/internal/config"
	"github.com/shelfwise/shelfwise-server/internal/logger"
	"github.com/shelfwise/shelfwise-server/internal/media/covers"
	"github.com/shelfwise/shelfwise-server/internal/media/images"
)

// ProvideImageStorage provides the object store for bound book images.
func ProvideImageStorage(i do.Injector) (*images.Storage, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	path := dataPath(cfg, mediaDir)
	storage, err := images.NewStorage(path, cfg.Server.PublicURL)
	if err != nil {
		return nil, fmt.Errorf("image storage: %w", err)
	}

	log.Info("Image storage initialized", "path", path, "public_url", cfg.Server.PublicURL)

	return storage, nil
}

// DownloaderHandle wraps the remote image downloader with shutdown capability.
type DownloaderHandle struct {
	*covers.Downloader
}

// Shutdown implements do.Shutdownable.
func (h *DownloaderHandle) Shutdown() error {
	h.Close()
	return nil
}

// ProvideDownloader provides the fetcher for remote image references.
func ProvideDownloader(i do.Injector) (*DownloaderHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	d := covers.NewDownloader(covers.Config{
		MaxBytes:   cfg.Images.MaxBytes,
		Timeout:    cfg.Images.DownloadTimeout,
		RPSPerHost: cfg.Images.DownloadRPS,
	}, log.WithComponent("covers").Logger)

	return &DownloaderHandle{Downloader: d}, nil
}
