package ingest

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"io/fs"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/shelfwise/shelfwise-server/internal/domain"
	"github.com/shelfwise/shelfwise-server/internal/media/images"
	"github.com/shelfwise/shelfwise-server/internal/ownership"
	"github.com/shelfwise/shelfwise-server/internal/search"
	"github.com/shelfwise/shelfwise-server/internal/store/sqlite"
	"github.com/shelfwise/shelfwise-server/internal/taxonomy"
)

const (
	isbnA = "9780306406157"
	isbnB = "9780000000019"
	isbnC = "9780000000026"
)

type harness struct {
	store    *sqlite.Store
	objects  *images.Storage
	dir      string
	pub      int64
	author   int64 // under contract with pub
	stranger int64 // no contract with pub
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	ctx := context.Background()
	dir := t.TempDir()

	s, err := sqlite.Open(filepath.Join(dir, "shelfwise.db"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	_, err = taxonomy.Apply(ctx, s, taxonomy.DefaultSeed())
	require.NoError(t, err)

	objects, err := images.NewStorage(filepath.Join(dir, "media"), "http://localhost:8080")
	require.NoError(t, err)

	pub, err := s.CreatePublisher(ctx, "Lantern House")
	require.NoError(t, err)
	author, err := s.CreateAuthor(ctx, "Ada Okafor")
	require.NoError(t, err)
	stranger, err := s.CreateAuthor(ctx, "Someone Else")
	require.NoError(t, err)
	require.NoError(t, s.StartContract(ctx, pub.ID, author.ID, time.Now().Add(-time.Hour)))

	return &harness{store: s, objects: objects, dir: dir, pub: pub.ID, author: author.ID, stranger: stranger.ID}
}

// materializer wires real components. objects overrides the image store when non-nil.
func (h *harness) materializer(objects images.ObjectStore, indexer BookIndexer, cfg MaterializerConfig) *Materializer {
	if objects == nil {
		objects = h.objects
	}
	binder := images.NewBinder(objects, h.store, nil, images.BinderConfig{Concurrency: 3, MaxBytes: 1 << 20}, nil)
	return NewMaterializer(
		h.store,
		ownership.NewGuard(h.store, nil),
		taxonomy.NewResolver(h.store, nil),
		binder,
		indexer,
		cfg,
		nil,
	)
}

func (h *harness) countBooks(t *testing.T) int {
	t.Helper()
	n, err := h.store.CountBooks(context.Background())
	require.NoError(t, err)
	return n
}

func (h *harness) countObjects(t *testing.T) int {
	t.Helper()
	root := filepath.Join(h.dir, "media")
	n := 0
	err := filepath.WalkDir(root, func(_ string, d fs.DirEntry, err error) error {
		if err == nil && !d.IsDir() {
			n++
		}
		return err
	})
	require.NoError(t, err)
	return n
}

func (h *harness) record(title, isbn string) domain.BookRecord {
	return domain.BookRecord{
		Title:    title,
		AuthorID: h.author,
		Formats:  []string{"paperback"},
		ISBN:     isbn,
	}
}

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := range h {
		for x := range w {
			img.Set(x, y, color.RGBA{R: uint8(x * 20), G: uint8(y * 30), B: 90, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

// failingObjects rejects uploads for one role.
type failingObjects struct {
	*images.Storage
	role domain.ImageRole
}

func (f failingObjects) Put(ctx context.Context, key string, data []byte) error {
	if strings.Contains(key, "/"+string(f.role)+"-") {
		return errors.New("disk full")
	}
	return f.Storage.Put(ctx, key, data)
}

// failingLinks fails taxonomy link writes and otherwise delegates.
type failingLinks struct {
	*sqlite.Store
}

func (failingLinks) ReplaceBookTaxonomy(context.Context, int64, []domain.TaxonomySelection) error {
	return errors.New("database is locked")
}

type failingResolver struct{}

func (failingResolver) Resolve(context.Context, domain.TaxonomyLabels, taxonomy.Mode) (*taxonomy.Resolution, error) {
	return nil, errors.New("connection reset")
}

type recordingIndexer struct {
	mu   sync.Mutex
	docs []*search.BookDocument
}

func (r *recordingIndexer) IndexBook(doc *search.BookDocument) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.docs = append(r.docs, doc)
	return nil
}

// funcProcessor adapts a function to RecordProcessor.
type funcProcessor func(ctx context.Context, index int, rec *domain.BookRecord, blobs map[domain.ImageRole]domain.Blob) (*domain.CreatedBook, error)

func (f funcProcessor) Materialize(ctx context.Context, index int, rec *domain.BookRecord, blobs map[domain.ImageRole]domain.Blob, _ int64, _ taxonomy.Mode) (*domain.CreatedBook, error) {
	return f(ctx, index, rec, blobs)
}

type memReports struct {
	mu    sync.Mutex
	saved []*domain.BatchResult
}

func (m *memReports) Save(_ context.Context, r *domain.BatchResult) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saved = append(m.saved, r)
	return nil
}
