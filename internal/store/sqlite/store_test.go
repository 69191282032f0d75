package sqlite

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/shelfwise/shelfwise-server/internal/domain"
	"github.com/shelfwise/shelfwise-server/internal/store"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "test.db")
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
	s, err := Open(dbPath, logger)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// seedContract creates a publisher and author joined by an open contract.
func seedContract(t *testing.T, s *Store) (publisherID, authorID int64) {
	t.Helper()
	ctx := context.Background()

	p, err := s.CreatePublisher(ctx, "Lantern House")
	if err != nil {
		t.Fatalf("create publisher: %v", err)
	}
	a, err := s.CreateAuthor(ctx, "M. Okafor")
	if err != nil {
		t.Fatalf("create author: %v", err)
	}
	if err := s.StartContract(ctx, p.ID, a.ID, time.Now().Add(-24*time.Hour)); err != nil {
		t.Fatalf("start contract: %v", err)
	}
	return p.ID, a.ID
}

func makeBook(publisherID, authorID int64, title, isbn string) *domain.Book {
	b := &domain.Book{
		PublisherID: publisherID,
		AuthorID:    authorID,
		Title:       title,
		Formats:     []string{"paperback"},
		ISBN:        isbn,
	}
	b.InitTimestamps()
	return b
}

func TestOpen(t *testing.T) {
	s := newTestStore(t)

	var journalMode string
	if err := s.db.QueryRow("PRAGMA journal_mode").Scan(&journalMode); err != nil {
		t.Fatalf("query journal_mode: %v", err)
	}
	if journalMode != "wal" {
		t.Errorf("expected wal, got %s", journalMode)
	}

	var fk int
	if err := s.db.QueryRow("PRAGMA foreign_keys").Scan(&fk); err != nil {
		t.Fatalf("query foreign_keys: %v", err)
	}
	if fk != 1 {
		t.Errorf("expected foreign_keys=1, got %d", fk)
	}

	tables := []string{
		"publishers", "authors", "ownership_edges", "books",
		"taxonomy_terms", "book_taxonomy", "book_images",
	}
	for _, table := range tables {
		var name string
		err := s.db.QueryRow("SELECT name FROM sqlite_master WHERE type='table' AND name=?", table).Scan(&name)
		if err != nil {
			t.Errorf("table %s not found: %v", table, err)
		}
	}
}

func TestOpenClose(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "test.db")

	s, err := Open(dbPath, nil)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("close store: %v", err)
	}

	// Re-open should work (schema is idempotent).
	s2, err := Open(dbPath, nil)
	if err != nil {
		t.Fatalf("re-open store: %v", err)
	}
	s2.Close()
}

func TestCreateBook_RoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	pubID, authorID := seedContract(t, s)

	b := makeBook(pubID, authorID, "Salt Roads", "9780306406157")
	b.Formats = []string{"hardcover", "ebook"}
	b.Language = "en"
	if err := s.CreateBook(ctx, b); err != nil {
		t.Fatalf("create book: %v", err)
	}
	if b.ID == 0 {
		t.Fatal("expected assigned book ID")
	}

	got, err := s.GetBook(ctx, b.ID)
	if err != nil {
		t.Fatalf("get book: %v", err)
	}
	if got.Title != "Salt Roads" || got.ISBN != "9780306406157" || got.Language != "en" {
		t.Errorf("unexpected book: %+v", got)
	}
	if len(got.Formats) != 2 || got.Formats[1] != "ebook" {
		t.Errorf("formats = %v", got.Formats)
	}
	if got.ASIN != "" {
		t.Errorf("expected empty ASIN, got %q", got.ASIN)
	}
}

func TestCreateBook_DuplicateIdentifier(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	pubID, authorID := seedContract(t, s)

	if err := s.CreateBook(ctx, makeBook(pubID, authorID, "First", "9780306406157")); err != nil {
		t.Fatalf("create first: %v", err)
	}

	err := s.CreateBook(ctx, makeBook(pubID, authorID, "Second", "9780306406157"))
	if !errors.Is(err, store.ErrDuplicateIdentifier) {
		t.Fatalf("expected ErrDuplicateIdentifier, got %v", err)
	}

	// Books without identifiers never collide.
	for _, title := range []string{"No ISBN A", "No ISBN B"} {
		if err := s.CreateBook(ctx, makeBook(pubID, authorID, title, "")); err != nil {
			t.Fatalf("create %s: %v", title, err)
		}
	}

	n, err := s.CountBooks(ctx)
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != 3 {
		t.Errorf("expected 3 books, got %d", n)
	}
}

func TestCreateBook_UnknownAuthor(t *testing.T) {
	s := newTestStore(t)
	pubID, _ := seedContract(t, s)

	err := s.CreateBook(context.Background(), makeBook(pubID, 9999, "Ghost", ""))
	if !errors.Is(err, store.ErrInvalidReference) {
		t.Fatalf("expected ErrInvalidReference, got %v", err)
	}
}

func TestDeleteBook_Cascades(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	pubID, authorID := seedContract(t, s)

	b := makeBook(pubID, authorID, "Ephemeral", "")
	if err := s.CreateBook(ctx, b); err != nil {
		t.Fatalf("create book: %v", err)
	}
	term, _, err := s.UpsertTerm(ctx, domain.CategoryGenre, "Fantasy", "fantasy", "fantasy")
	if err != nil {
		t.Fatalf("upsert term: %v", err)
	}
	if err := s.ReplaceBookTaxonomy(ctx, b.ID, []domain.TaxonomySelection{
		{TaxonomyID: term.ID, Category: domain.CategoryGenre, Rank: 1},
	}); err != nil {
		t.Fatalf("link taxonomy: %v", err)
	}
	if err := s.SaveImageAsset(ctx, &domain.ImageAsset{
		BookID: b.ID, Role: domain.ImageRoleHero, URL: "/images/x.png", ObjectKey: "x.png", CreatedAt: time.Now(),
	}); err != nil {
		t.Fatalf("save asset: %v", err)
	}

	if err := s.DeleteBook(ctx, b.ID); err != nil {
		t.Fatalf("delete book: %v", err)
	}

	sels, err := s.ListBookTaxonomy(ctx, b.ID)
	if err != nil || len(sels) != 0 {
		t.Errorf("expected no taxonomy links, got %v (err %v)", sels, err)
	}
	assets, err := s.ListBookImages(ctx, b.ID)
	if err != nil || len(assets) != 0 {
		t.Errorf("expected no image assets, got %v (err %v)", assets, err)
	}

	if err := s.DeleteBook(ctx, b.ID); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("second delete: expected ErrNotFound, got %v", err)
	}
}

func TestOwnershipEdges(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	pubID, authorID := seedContract(t, s)

	edge, err := s.ActiveOwnershipEdge(ctx, pubID, authorID)
	if err != nil {
		t.Fatalf("active edge: %v", err)
	}
	if !edge.IsActive() {
		t.Error("open contract should be active")
	}

	if err := s.StartContract(ctx, pubID, authorID, time.Now()); !errors.Is(err, store.ErrAlreadyExists) {
		t.Errorf("second open contract: expected ErrAlreadyExists, got %v", err)
	}

	if err := s.EndContract(ctx, pubID, authorID, time.Now().Add(-time.Hour)); err != nil {
		t.Fatalf("end contract: %v", err)
	}
	if _, err := s.ActiveOwnershipEdge(ctx, pubID, authorID); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("ended contract: expected ErrNotFound, got %v", err)
	}

	edges, err := s.ListOwnershipEdges(ctx, pubID)
	if err != nil {
		t.Fatalf("list edges: %v", err)
	}
	if len(edges) != 1 || edges[0].ContractEnd == nil {
		t.Errorf("expected one closed edge, got %+v", edges)
	}

	// A new contract can be opened after the old one ended.
	if err := s.StartContract(ctx, pubID, authorID, time.Now()); err != nil {
		t.Errorf("reopen contract: %v", err)
	}

	author, err := s.GetAuthor(ctx, authorID)
	if err != nil {
		t.Fatalf("get author: %v", err)
	}
	if author.ID != authorID || author.Name == "" {
		t.Errorf("unexpected author: %+v", author)
	}
	if _, err := s.GetAuthor(ctx, 9999); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("missing author: expected ErrNotFound, got %v", err)
	}
}

func TestTaxonomyTerms(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	term, created, err := s.UpsertTerm(ctx, domain.CategoryTheme, "Found Family", "found family", "found-family")
	if err != nil || !created {
		t.Fatalf("upsert: created=%v err=%v", created, err)
	}
	again, created, err := s.UpsertTerm(ctx, domain.CategoryTheme, "FOUND FAMILY", "found family", "found-family")
	if err != nil || created || again.ID != term.ID {
		t.Fatalf("second upsert: id=%d created=%v err=%v", again.ID, created, err)
	}
	if again.Name != "Found Family" {
		t.Errorf("existing name should be kept, got %q", again.Name)
	}

	// Same name in a different category is a different term.
	if _, created, err := s.UpsertTerm(ctx, domain.CategoryTrope, "Found Family", "found family", "found-family"); err != nil || !created {
		t.Fatalf("trope upsert: created=%v err=%v", created, err)
	}

	found, err := s.LookupTerms(ctx, domain.CategoryTheme, []string{"found family", "revenge"})
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if len(found) != 1 || found["found family"].ID != term.ID {
		t.Errorf("unexpected lookup result: %+v", found)
	}

	all, err := s.ListTerms(ctx, "")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(all) != 2 || all[0].Category != domain.CategoryTheme {
		t.Errorf("unexpected listing: %+v", all)
	}
}

func TestReplaceBookTaxonomy(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	pubID, authorID := seedContract(t, s)

	b := makeBook(pubID, authorID, "Tidewater", "")
	if err := s.CreateBook(ctx, b); err != nil {
		t.Fatalf("create book: %v", err)
	}
	g, _, _ := s.UpsertTerm(ctx, domain.CategoryGenre, "Mystery", "mystery", "mystery")
	th, _, _ := s.UpsertTerm(ctx, domain.CategoryTheme, "Grief", "grief", "grief")

	if err := s.ReplaceBookTaxonomy(ctx, b.ID, []domain.TaxonomySelection{
		{TaxonomyID: g.ID, Category: domain.CategoryGenre, Rank: 1},
		{TaxonomyID: th.ID, Category: domain.CategoryTheme, Rank: 2},
	}); err != nil {
		t.Fatalf("replace: %v", err)
	}

	// Reorder replaces the whole list.
	if err := s.ReplaceBookTaxonomy(ctx, b.ID, []domain.TaxonomySelection{
		{TaxonomyID: th.ID, Category: domain.CategoryTheme, Rank: 1},
		{TaxonomyID: g.ID, Category: domain.CategoryGenre, Rank: 2},
	}); err != nil {
		t.Fatalf("reorder: %v", err)
	}

	sels, err := s.ListBookTaxonomy(ctx, b.ID)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(sels) != 2 || sels[0].TaxonomyID != th.ID || sels[0].Name != "Grief" || sels[1].Rank != 2 {
		t.Errorf("unexpected selections: %+v", sels)
	}

	// Duplicate ranks are rejected and leave the previous links intact.
	err = s.ReplaceBookTaxonomy(ctx, b.ID, []domain.TaxonomySelection{
		{TaxonomyID: g.ID, Rank: 1},
		{TaxonomyID: th.ID, Rank: 1},
	})
	if err == nil {
		t.Fatal("expected error for duplicate rank")
	}
	sels, _ = s.ListBookTaxonomy(ctx, b.ID)
	if len(sels) != 2 || sels[0].TaxonomyID != th.ID {
		t.Errorf("failed replace must roll back, got %+v", sels)
	}

	if err := s.ReplaceBookTaxonomy(ctx, 4242, nil); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("missing book: expected ErrNotFound, got %v", err)
	}
}

func TestImageAssets(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	pubID, authorID := seedContract(t, s)

	b := makeBook(pubID, authorID, "Lumen", "")
	if err := s.CreateBook(ctx, b); err != nil {
		t.Fatalf("create book: %v", err)
	}

	for _, role := range []domain.ImageRole{domain.ImageRoleMini, domain.ImageRoleBookDetail} {
		if err := s.SaveImageAsset(ctx, &domain.ImageAsset{
			BookID: b.ID, Role: role, URL: "/images/" + string(role), ObjectKey: string(role),
			Width: 10, Height: 20, SizeKB: 3, CreatedAt: time.Now(),
		}); err != nil {
			t.Fatalf("save %s: %v", role, err)
		}
	}

	// Same slot again replaces the asset rather than adding one.
	if err := s.SaveImageAsset(ctx, &domain.ImageAsset{
		BookID: b.ID, Role: domain.ImageRoleMini, URL: "/images/mini-2", ObjectKey: "mini-2", CreatedAt: time.Now(),
	}); err != nil {
		t.Fatalf("replace mini: %v", err)
	}

	assets, err := s.ListBookImages(ctx, b.ID)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(assets) != 2 {
		t.Fatalf("expected 2 assets, got %d", len(assets))
	}
	if assets[0].Role != domain.ImageRoleBookDetail || assets[1].ObjectKey != "mini-2" {
		t.Errorf("unexpected assets: %+v %+v", assets[0], assets[1])
	}

	err = s.SaveImageAsset(ctx, &domain.ImageAsset{BookID: 777, Role: domain.ImageRoleHero, CreatedAt: time.Now()})
	if !errors.Is(err, store.ErrInvalidReference) {
		t.Errorf("missing book: expected ErrInvalidReference, got %v", err)
	}
}
