package providers

import (
	"context"

	"github.com/samber/do/v2"

	"github.com/shelfwise/shelfwise-server/internal/config"
	"github.com/shelfwise/shelfwise-server/internal/logger"
	"github.com/shelfwise/shelfwise-server/internal/search"
	"github.com/shelfwise/shelfwise-server/internal/store/sqlite"
)

// reindexPageSize is how many books are read per page while rebuilding the index.
const reindexPageSize = 500

// SearchIndexHandle wraps the search index with shutdown capability.
type SearchIndexHandle struct {
	*search.SearchIndex
}

// Shutdown implements do.Shutdownable.
func (h *SearchIndexHandle) Shutdown() error {
	return h.Close()
}

// ProvideSearchIndex provides the Bleve search index.
func ProvideSearchIndex(i do.Injector) (*SearchIndexHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	index, err := search.NewSearchIndex(search.Options{
		DataPath: cfg.Metadata.BasePath,
		Logger:   log.Logger,
	})
	if err != nil {
		return nil, err
	}

	docCount, _ := index.DocumentCount()
	log.Info("Search index initialized", "documents", docCount)

	return &SearchIndexHandle{SearchIndex: index}, nil
}

// TriggerSearchReindexIfNeeded rebuilds an empty index from the catalogue.
// Should be called after all services are wired.
func TriggerSearchReindexIfNeeded(i do.Injector) {
	indexHandle := do.MustInvoke[*SearchIndexHandle](i)
	storeHandle := do.MustInvoke[*StoreHandle](i)
	log := do.MustInvoke[*logger.Logger](i)

	docCount, _ := indexHandle.DocumentCount()
	if docCount > 0 {
		return
	}

	ctx := context.Background()
	bookCount, err := storeHandle.CountBooks(ctx)
	if err != nil || bookCount == 0 {
		return
	}

	log.Info("Search index is empty but books exist, triggering initial reindex",
		"book_count", bookCount,
	)

	go func() {
		if err := reindexCatalogue(ctx, storeHandle.Store, indexHandle.SearchIndex); err != nil {
			log.Error("Initial search reindex failed", "error", err)
			return
		}
		count, _ := indexHandle.DocumentCount()
		log.Info("Initial search reindex completed", "documents", count)
	}()
}

// reindexCatalogue replaces the index contents with documents built from every stored book.
func reindexCatalogue(ctx context.Context, db *sqlite.Store, index *search.SearchIndex) error {
	authors := make(map[int64]string)
	var docs []*search.BookDocument

	var afterID int64
	for {
		books, err := db.ListBooks(ctx, afterID, reindexPageSize)
		if err != nil {
			return err
		}
		if len(books) == 0 {
			break
		}
		for _, book := range books {
			name, ok := authors[book.AuthorID]
			if !ok {
				if author, err := db.GetAuthor(ctx, book.AuthorID); err == nil {
					name = author.Name
				}
				authors[book.AuthorID] = name
			}
			selections, err := db.ListBookTaxonomy(ctx, book.ID)
			if err != nil {
				return err
			}
			docs = append(docs, search.BookToDocument(book, name, selections))
			afterID = book.ID
		}
	}

	return index.Reindex(docs)
}
