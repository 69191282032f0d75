package providers

import (
	"context"
	"time"

	"github.com/samber/do/v2"

	"github.com/shelfwise/shelfwise-server/internal/config"
	"github.com/shelfwise/shelfwise-server/internal/logger"
	"github.com/shelfwise/shelfwise-server/internal/store"
	"github.com/shelfwise/shelfwise-server/internal/store/sqlite"
	"github.com/shelfwise/shelfwise-server/internal/taxonomy"
)

// reportRetention is how long batch reports stay in the archive.
const reportRetention = 90 * 24 * time.Hour

// StoreHandle wraps the catalogue store with shutdown capability.
type StoreHandle struct {
	*sqlite.Store
}

// Shutdown implements do.Shutdownable.
func (h *StoreHandle) Shutdown() error {
	return h.Close()
}

// ProvideStore provides the catalogue database.
func ProvideStore(i do.Injector) (*StoreHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	dbPath := dataPath(cfg, catalogueFile)
	db, err := sqlite.Open(dbPath, log.Logger)
	if err != nil {
		return nil, err
	}

	log.Info("Database initialized", "path", dbPath)

	return &StoreHandle{Store: db}, nil
}

// ReportStoreHandle wraps the batch report archive with shutdown capability.
type ReportStoreHandle struct {
	*store.ReportStore
}

// Shutdown implements do.Shutdownable.
func (h *ReportStoreHandle) Shutdown() error {
	return h.Close()
}

// ProvideReportStore provides the badger-backed batch report archive.
func ProvideReportStore(i do.Injector) (*ReportStoreHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	path := dataPath(cfg, reportsDir)
	reports, err := store.OpenReportStore(path, log.Logger, reportRetention)
	if err != nil {
		return nil, err
	}

	log.Info("Report archive initialized", "path", path, "retention", reportRetention)

	return &ReportStoreHandle{ReportStore: reports}, nil
}

// TaxonomySeed records what the startup seed did.
type TaxonomySeed struct {
	Source string
	Stats  taxonomy.SeedStats
}

// ProvideTaxonomySeed applies the canonical taxonomy so the resolver has
// terms to match before the first batch arrives.
func ProvideTaxonomySeed(i do.Injector) (*TaxonomySeed, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)
	storeHandle := do.MustInvoke[*StoreHandle](i)

	seed := taxonomy.DefaultSeed()
	source := "built-in"
	if cfg.Taxonomy.SeedFile != "" {
		loaded, err := taxonomy.LoadSeedFile(cfg.Taxonomy.SeedFile)
		if err != nil {
			return nil, err
		}
		seed = loaded
		source = cfg.Taxonomy.SeedFile
	}

	stats, err := taxonomy.Apply(context.Background(), storeHandle.Store, seed)
	if err != nil {
		return nil, err
	}

	log.Info("Taxonomy seeded",
		"source", source,
		"terms", seed.Len(),
		"created", stats.Created,
		"existing", stats.Existing,
	)

	return &TaxonomySeed{Source: source, Stats: stats}, nil
}
