// Package di provides dependency injection configuration for the Shelfwise server.
package di

import (
	"github.com/samber/do/v2"

	"github.com/shelfwise/shelfwise-server/internal/auth"
	"github.com/shelfwise/shelfwise-server/internal/config"
	"github.com/shelfwise/shelfwise-server/internal/di/providers"
	"github.com/shelfwise/shelfwise-server/internal/ingest"
	"github.com/shelfwise/shelfwise-server/internal/logger"
	"github.com/shelfwise/shelfwise-server/internal/media/images"
	"github.com/shelfwise/shelfwise-server/internal/ownership"
	"github.com/shelfwise/shelfwise-server/internal/taxonomy"
)

// NewContainer creates and configures the DI container with all providers.
// args are the command-line flags handed to config.Load.
func NewContainer(args []string) *do.RootScope {
	injector := do.New()

	// Core infrastructure
	do.Provide(injector, providers.ConfigProvider(args))
	do.Provide(injector, providers.ProvideLogger)
	do.Provide(injector, providers.ProvideAuthKey)

	// Storage layer
	do.Provide(injector, providers.ProvideStore)
	do.Provide(injector, providers.ProvideReportStore)
	do.Provide(injector, providers.ProvideTaxonomySeed)
	do.Provide(injector, providers.ProvideImageStorage)
	do.Provide(injector, providers.ProvideDownloader)

	// Search layer
	do.Provide(injector, providers.ProvideSearchIndex)

	// Auth layer
	do.Provide(injector, providers.ProvideTokenService)

	// Ingestion
	do.Provide(injector, providers.ProvideResolver)
	do.Provide(injector, providers.ProvideOwnershipGuard)
	do.Provide(injector, providers.ProvideImageBinder)
	do.Provide(injector, providers.ProvideMaterializer)
	do.Provide(injector, providers.ProvideEngine)

	// Workers
	do.Provide(injector, providers.ProvideSeedWatcher)

	// Server
	do.Provide(injector, providers.ProvideHTTPServer)

	return injector
}

// Bootstrap initializes all services and returns handles for lifecycle management.
// This triggers lazy initialization of all core services.
func Bootstrap(injector *do.RootScope) error {
	// Invoke core services to trigger initialization
	if _, err := do.Invoke[*config.Config](injector); err != nil {
		return err
	}
	_ = do.MustInvoke[*logger.Logger](injector)
	_ = do.MustInvoke[providers.AuthKey](injector)
	_ = do.MustInvoke[*providers.StoreHandle](injector)
	_ = do.MustInvoke[*providers.ReportStoreHandle](injector)
	_ = do.MustInvoke[*providers.TaxonomySeed](injector)
	_ = do.MustInvoke[*images.Storage](injector)
	_ = do.MustInvoke[*providers.DownloaderHandle](injector)
	_ = do.MustInvoke[*providers.SearchIndexHandle](injector)
	_ = do.MustInvoke[*auth.TokenService](injector)

	// Ingestion
	_ = do.MustInvoke[*taxonomy.Resolver](injector)
	_ = do.MustInvoke[*ownership.Guard](injector)
	_ = do.MustInvoke[*images.Binder](injector)
	_ = do.MustInvoke[*ingest.Materializer](injector)
	_ = do.MustInvoke[*ingest.Engine](injector)

	// Workers
	_ = do.MustInvoke[*providers.SeedWatcherHandle](injector)

	// Server
	_ = do.MustInvoke[*providers.HTTPServerHandle](injector)

	// Trigger search reindex if needed
	providers.TriggerSearchReindexIfNeeded(injector)

	return nil
}
