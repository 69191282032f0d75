package ingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/shelfwise/shelfwise-server/internal/domain"
	"github.com/shelfwise/shelfwise-server/internal/media/images"
	"github.com/shelfwise/shelfwise-server/internal/normalize"
	"github.com/shelfwise/shelfwise-server/internal/search"
	"github.com/shelfwise/shelfwise-server/internal/store"
	"github.com/shelfwise/shelfwise-server/internal/taxonomy"
	"github.com/shelfwise/shelfwise-server/internal/validation"
)

// BookStore is the relational storage the Materializer writes through.
type BookStore interface {
	CreateBook(ctx context.Context, b *domain.Book) error
	DeleteBook(ctx context.Context, id int64) error
	ReplaceBookTaxonomy(ctx context.Context, bookID int64, selections []domain.TaxonomySelection) error
	GetAuthor(ctx context.Context, id int64) (*domain.Author, error)
}

// OwnershipGuard decides whether a publisher may publish an author.
type OwnershipGuard interface {
	Verify(ctx context.Context, publisherID, authorID int64) bool
}

// TaxonomyResolver maps raw labels to ranked selections.
type TaxonomyResolver interface {
	Resolve(ctx context.Context, labels domain.TaxonomyLabels, mode taxonomy.Mode) (*taxonomy.Resolution, error)
}

// ImageBinder stores a book's images in their slots.
type ImageBinder interface {
	Bind(ctx context.Context, bookID int64, blobs map[domain.ImageRole]domain.Blob) (*images.BindResult, error)
	Discard(ctx context.Context, assets []*domain.ImageAsset)
}

// BookIndexer adds created books to the search index.
type BookIndexer interface {
	IndexBook(doc *search.BookDocument) error
}

// MaterializerConfig holds record-level policy.
type MaterializerConfig struct {
	// AllowPartialImages keeps a book whose image uploads partly failed and
	// reports ImageStorageFailed warnings instead of failing the record.
	AllowPartialImages bool
}

// Materializer turns one BookRecord into a persisted book.
//
// Phase 1 (validate, authorize, insert the book row) is all-or-nothing and
// writes nothing on failure. Phase 2 (taxonomy links, images) enriches the
// committed book. Taxonomy problems, including lookup and link failures, and
// missing roles are warnings that keep the book. An image storage failure is
// fatal unless partial images are allowed, and then the book is deleted again
// so no half-created book is left.
type Materializer struct {
	books     BookStore
	guard     OwnershipGuard
	resolver  TaxonomyResolver
	binder    ImageBinder
	indexer   BookIndexer
	validator *validation.Validator
	cfg       MaterializerConfig
	logger    *slog.Logger
}

// NewMaterializer creates a Materializer. indexer may be nil.
func NewMaterializer(
	books BookStore,
	guard OwnershipGuard,
	resolver TaxonomyResolver,
	binder ImageBinder,
	indexer BookIndexer,
	cfg MaterializerConfig,
	logger *slog.Logger,
) *Materializer {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Materializer{
		books:     books,
		guard:     guard,
		resolver:  resolver,
		binder:    binder,
		indexer:   indexer,
		validator: validation.New(),
		cfg:       cfg,
		logger:    logger,
	}
}

// Materialize creates the book for record index. publisherID comes from the
// authenticated caller, never from the record. Fatal outcomes are returned as
// *RecordFailure.
func (m *Materializer) Materialize(
	ctx context.Context,
	index int,
	record *domain.BookRecord,
	blobs map[domain.ImageRole]domain.Blob,
	publisherID int64,
	mode taxonomy.Mode,
) (*domain.CreatedBook, error) {
	rec := normalizeRecord(record)

	// Phase 1: nothing below writes until CreateBook, and CreateBook is one transaction.
	if err := m.validator.Validate(rec); err != nil {
		return nil, failure(domain.ErrorKindValidation, err, "%s", validationMessage(err))
	}

	if !m.guard.Verify(ctx, publisherID, rec.AuthorID) {
		return nil, failure(domain.ErrorKindAuthorization, nil,
			"publisher %d has no active contract for author %d", publisherID, rec.AuthorID)
	}

	book := buildBook(rec, publisherID)
	if err := m.books.CreateBook(ctx, book); err != nil {
		if errors.Is(err, store.ErrDuplicateIdentifier) {
			return nil, failure(domain.ErrorKindDuplicate, err, "%s", duplicateMessage(rec))
		}
		return nil, Classify(err)
	}

	// Phase 2: enrichment of the committed book.
	created := &domain.CreatedBook{Index: index, BookID: book.ID, Title: book.Title}
	selections, warnings := m.linkTaxonomy(ctx, book.ID, rec.Labels(), mode)
	created.Warnings = append(created.Warnings, warnings...)

	bound, err := m.binder.Bind(ctx, book.ID, blobs)
	if err != nil {
		m.compensate(ctx, book.ID, nil)
		return nil, failure(domain.ErrorKindInternal, err, "failed to bind images")
	}
	for _, role := range bound.MissingRoles {
		created.Warnings = append(created.Warnings, domain.Warning{Kind: domain.WarningImageRoleMissing, Subject: string(role)})
	}
	if len(bound.RoleErrors) > 0 {
		if !m.cfg.AllowPartialImages {
			m.compensate(ctx, book.ID, bound.Assets)
			return nil, imageFailure(bound)
		}
		for _, re := range bound.RoleErrors {
			created.Warnings = append(created.Warnings, domain.Warning{
				Kind:    domain.WarningImageStorageFailed,
				Subject: string(re.Role),
				Detail:  re.Err.Error(),
			})
		}
	}

	m.index(ctx, book, selections)
	return created, nil
}

// linkTaxonomy resolves labels and links the selections to bookID. Failures
// here never fail the record: they become TaxonomyLinkFailed warnings and the
// book is kept without links.
func (m *Materializer) linkTaxonomy(
	ctx context.Context,
	bookID int64,
	labels domain.TaxonomyLabels,
	mode taxonomy.Mode,
) ([]domain.TaxonomySelection, []domain.Warning) {
	resolution, err := m.resolver.Resolve(ctx, labels, mode)
	if err != nil {
		m.logger.Warn("taxonomy lookup failed", "book_id", bookID, "error", err)
		return nil, []domain.Warning{{Kind: domain.WarningTaxonomyLinkFailed, Subject: "lookup", Detail: err.Error()}}
	}

	warnings := resolution.Warnings()
	if len(resolution.Selections) == 0 {
		return nil, warnings
	}
	if err := m.books.ReplaceBookTaxonomy(ctx, bookID, resolution.Selections); err != nil {
		m.logger.Warn("failed to link taxonomy", "book_id", bookID, "error", err)
		return nil, append(warnings, domain.Warning{
			Kind:    domain.WarningTaxonomyLinkFailed,
			Subject: fmt.Sprintf("%d selections", len(resolution.Selections)),
			Detail:  err.Error(),
		})
	}
	return resolution.Selections, warnings
}

// compensate removes a book created in phase 1 after a fatal phase 2 failure.
// Links and asset rows cascade with the book; uploaded objects are removed
// explicitly. It runs detached from cancellation so cleanup always completes.
func (m *Materializer) compensate(ctx context.Context, bookID int64, assets []*domain.ImageAsset) {
	ctx = context.WithoutCancel(ctx)
	if len(assets) > 0 {
		m.binder.Discard(ctx, assets)
	}
	if err := m.books.DeleteBook(ctx, bookID); err != nil {
		m.logger.Error("failed to roll back book", "book_id", bookID, "error", err)
		return
	}
	m.logger.Info("rolled back book after enrichment failure", "book_id", bookID)
}

func (m *Materializer) index(ctx context.Context, book *domain.Book, selections []domain.TaxonomySelection) {
	if m.indexer == nil {
		return
	}
	var authorName string
	if author, err := m.books.GetAuthor(ctx, book.AuthorID); err == nil {
		authorName = author.Name
	}
	if err := m.indexer.IndexBook(search.BookToDocument(book, authorName, selections)); err != nil {
		// The catalogue row is the source of truth; a reindex repairs the index.
		m.logger.Warn("failed to index book", "book_id", book.ID, "error", err)
	}
}

// imageFailure classifies role errors: an undecodable or oversized payload is
// the submitter's fault, anything else is a storage failure.
func imageFailure(bound *images.BindResult) *RecordFailure {
	kind := domain.ErrorKindValidation
	msgs := make([]string, len(bound.RoleErrors))
	for i, re := range bound.RoleErrors {
		msgs[i] = re.Error()
		if !errors.Is(re, images.ErrInvalidImage) {
			kind = domain.ErrorKindStorage
		}
	}
	return failure(kind, bound.Err(), "%s", strings.Join(msgs, "; "))
}

func duplicateMessage(rec *domain.BookRecord) string {
	switch {
	case rec.ISBN != "" && rec.ASIN != "":
		return fmt.Sprintf("a book with isbn %s or asin %s already exists", rec.ISBN, rec.ASIN)
	case rec.ISBN != "":
		return fmt.Sprintf("a book with isbn %s already exists", rec.ISBN)
	default:
		return fmt.Sprintf("a book with asin %s already exists", rec.ASIN)
	}
}

func validationMessage(err error) string {
	msg := err.Error()
	return strings.TrimPrefix(msg, "validation failed: ")
}

// normalizeRecord returns a cleaned copy of the record. Identifiers lose
// hyphens and spaces, descriptions are converted from HTML, and the language
// becomes an ISO 639-1 code when it can be recognised.
func normalizeRecord(r *domain.BookRecord) *domain.BookRecord {
	rec := *r
	rec.Title = normalize.Title(r.Title)
	rec.Description = normalize.Description(r.Description)
	rec.ISBN = normalize.Identifier(r.ISBN)
	rec.ASIN = normalize.Identifier(r.ASIN)
	rec.PublishedDate = strings.TrimSpace(r.PublishedDate)

	rec.Formats = make([]string, 0, len(r.Formats))
	seen := make(map[string]bool, len(r.Formats))
	for _, f := range r.Formats {
		f = strings.ToLower(strings.TrimSpace(f))
		if f == "" || seen[f] {
			continue
		}
		seen[f] = true
		rec.Formats = append(rec.Formats, f)
	}

	if lang := strings.TrimSpace(r.Language); lang != "" {
		if code := normalize.LanguageCode(lang); code != "" {
			rec.Language = code
		} else {
			rec.Language = lang
		}
	}
	return &rec
}

func buildBook(rec *domain.BookRecord, publisherID int64) *domain.Book {
	b := &domain.Book{
		PublisherID:   publisherID,
		AuthorID:      rec.AuthorID,
		Title:         rec.Title,
		Description:   rec.Description,
		PageCount:     rec.PageCount,
		Formats:       rec.Formats,
		PublishedDate: rec.PublishedDate,
		ISBN:          rec.ISBN,
		ASIN:          rec.ASIN,
		Language:      rec.Language,
	}
	b.InitTimestamps()
	return b
}
