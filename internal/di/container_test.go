package di

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/samber/do/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shelfwise/shelfwise-server/internal/domain"
	"github.com/shelfwise/shelfwise-server/internal/di/providers"
	"github.com/shelfwise/shelfwise-server/internal/ingest"
)

func TestBootstrap_WiresIngestion(t *testing.T) {
	dir := t.TempDir()
	injector := NewContainer([]string{
		"--env-file", filepath.Join(dir, "missing.env"),
		"--data-path", dir,
		"--port", "0",
		"--log-level", "error",
	})
	require.NoError(t, Bootstrap(injector))
	t.Cleanup(func() { _ = injector.Shutdown() })

	storeHandle := do.MustInvoke[*providers.StoreHandle](injector)
	seed := do.MustInvoke[*providers.TaxonomySeed](injector)
	assert.Equal(t, "built-in", seed.Source)
	assert.Positive(t, seed.Stats.Created)

	ctx := t.Context()
	pub, err := storeHandle.CreatePublisher(ctx, "Lantern House")
	require.NoError(t, err)
	author, err := storeHandle.CreateAuthor(ctx, "Ada Okafor")
	require.NoError(t, err)
	require.NoError(t, storeHandle.StartContract(ctx, pub.ID, author.ID, time.Now().Add(-time.Hour)))

	engine := do.MustInvoke[*ingest.Engine](injector)
	result, err := engine.Run(ctx, pub.ID, &ingest.Batch{Records: []domain.BookRecord{{
		Title:    "The Long Night",
		AuthorID: author.ID,
		Formats:  []string{"paperback"},
		Genres:   []string{"Fantasy"},
	}}})
	require.NoError(t, err)
	assert.Equal(t, 1, result.SuccessCount)

	reports := do.MustInvoke[*providers.ReportStoreHandle](injector)
	saved, err := reports.Get(ctx, result.BatchID)
	require.NoError(t, err)
	assert.Equal(t, result.BatchID, saved.BatchID)

	index := do.MustInvoke[*providers.SearchIndexHandle](injector)
	count, err := index.DocumentCount()
	require.NoError(t, err)
	assert.EqualValues(t, 1, count)
}

func TestBootstrap_BadConfig(t *testing.T) {
	dir := t.TempDir()
	injector := NewContainer([]string{
		"--env-file", filepath.Join(dir, "missing.env"),
		"--data-path", dir,
		"--env", "qa",
	})
	assert.Error(t, Bootstrap(injector))
}
