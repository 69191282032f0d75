package providers

import (
	"github.com/samber/do/v2"

	"github.com/shelfwise/shelfwise-server/internal/config"
	"github.com/shelfwise/shelfwise-server/internal/ingest"
	"github.com/shelfwise/shelfwise-server/internal/logger"
	"github.com/shelfwise/shelfwise-server/internal/media/images"
	"github.com/shelfwise/shelfwise-server/internal/ownership"
	"github.com/shelfwise/shelfwise-server/internal/taxonomy"
)

// ProvideResolver provides the taxonomy resolver. The seed is applied first
// so the resolver never sees an empty term table.
func ProvideResolver(i do.Injector) (*taxonomy.Resolver, error) {
	storeHandle := do.MustInvoke[*StoreHandle](i)
	log := do.MustInvoke[*logger.Logger](i)
	_ = do.MustInvoke[*TaxonomySeed](i)

	return taxonomy.NewResolver(storeHandle.Store, log.WithComponent("taxonomy").Logger), nil
}

// ProvideOwnershipGuard provides the publisher/author contract check.
func ProvideOwnershipGuard(i do.Injector) (*ownership.Guard, error) {
	storeHandle := do.MustInvoke[*StoreHandle](i)
	log := do.MustInvoke[*logger.Logger](i)

	return ownership.NewGuard(storeHandle.Store, log.WithComponent("ownership").Logger), nil
}

// ProvideImageBinder provides the image slot binder.
func ProvideImageBinder(i do.Injector) (*images.Binder, error) {
	cfg := do.MustInvoke[*config.Config](i)
	storeHandle := do.MustInvoke[*StoreHandle](i)
	storage := do.MustInvoke[*images.Storage](i)
	downloader := do.MustInvoke[*DownloaderHandle](i)
	log := do.MustInvoke[*logger.Logger](i)

	return images.NewBinder(storage, storeHandle.Store, downloader, images.BinderConfig{
		Concurrency: cfg.Ingest.ImageConcurrency,
		MaxBytes:    cfg.Images.MaxBytes,
	}, log.WithComponent("images").Logger), nil
}

// ProvideMaterializer provides the per-record materializer.
func ProvideMaterializer(i do.Injector) (*ingest.Materializer, error) {
	cfg := do.MustInvoke[*config.Config](i)
	storeHandle := do.MustInvoke[*StoreHandle](i)
	indexHandle := do.MustInvoke[*SearchIndexHandle](i)
	log := do.MustInvoke[*logger.Logger](i)

	return ingest.NewMaterializer(
		storeHandle.Store,
		do.MustInvoke[*ownership.Guard](i),
		do.MustInvoke[*taxonomy.Resolver](i),
		do.MustInvoke[*images.Binder](i),
		indexHandle.SearchIndex,
		ingest.MaterializerConfig{AllowPartialImages: cfg.Ingest.AllowPartialImages},
		log.WithComponent("materializer").Logger,
	), nil
}

// ProvideEngine provides the batch execution engine.
func ProvideEngine(i do.Injector) (*ingest.Engine, error) {
	cfg := do.MustInvoke[*config.Config](i)
	reports := do.MustInvoke[*ReportStoreHandle](i)
	log := do.MustInvoke[*logger.Logger](i)

	engine := ingest.NewEngine(do.MustInvoke[*ingest.Materializer](i), reports.ReportStore, ingest.EngineConfig{
		Workers:      cfg.Ingest.Workers,
		MaxBatchSize: cfg.Ingest.MaxBatchSize,
		DefaultMode:  taxonomy.ModeFor(cfg.Ingest.RestrictedTaxonomy),
	}, log)

	log.Info("Ingest engine ready",
		"workers", cfg.Ingest.Workers,
		"max_batch_size", cfg.Ingest.MaxBatchSize,
		"restricted_taxonomy", cfg.Ingest.RestrictedTaxonomy,
		"allow_partial_images", cfg.Ingest.AllowPartialImages,
	)

	return engine, nil
}
