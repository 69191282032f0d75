package api

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"log/slog"
	"net/http"
	"path/filepath"
	"testing"
	"time"

	"github.com/danielgtaylor/huma/v2/humatest"
	"github.com/stretchr/testify/require"

	"github.com/shelfwise/shelfwise-server/internal/auth"
	"github.com/shelfwise/shelfwise-server/internal/ingest"
	"github.com/shelfwise/shelfwise-server/internal/logger"
	"github.com/shelfwise/shelfwise-server/internal/media/images"
	"github.com/shelfwise/shelfwise-server/internal/ownership"
	"github.com/shelfwise/shelfwise-server/internal/search"
	"github.com/shelfwise/shelfwise-server/internal/store"
	"github.com/shelfwise/shelfwise-server/internal/store/sqlite"
	"github.com/shelfwise/shelfwise-server/internal/taxonomy"
)

// testEnvelope mirrors Envelope with a typed payload.
type testEnvelope[T any] struct {
	V       int    `json:"v"`
	Success bool   `json:"success"`
	Data    T      `json:"data"`
	Error   string `json:"error"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

type testServer struct {
	*Server
	api    humatest.TestAPI
	store  *sqlite.Store
	tokens *auth.TokenService

	publisher int64 // holds a contract for author
	rival     int64 // no contracts
	author    int64
}

// setupTestServer wires the real stack into temp directories.
func setupTestServer(t *testing.T, opts Options) *testServer {
	t.Helper()
	ctx := context.Background()
	dir := t.TempDir()
	log := slog.New(slog.DiscardHandler)

	st, err := sqlite.Open(filepath.Join(dir, "shelfwise.db"), log)
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	_, err = taxonomy.Apply(ctx, st, taxonomy.DefaultSeed())
	require.NoError(t, err)

	reports, err := store.OpenReportStore(filepath.Join(dir, "reports"), log, 0)
	require.NoError(t, err)
	t.Cleanup(func() { _ = reports.Close() })

	index, err := search.NewSearchIndex(search.Options{DataPath: dir, Logger: log})
	require.NoError(t, err)
	t.Cleanup(func() { _ = index.Close() })

	media, err := images.NewStorage(filepath.Join(dir, "media"), "http://localhost:8080")
	require.NoError(t, err)

	key, err := auth.LoadOrGenerateKey(dir)
	require.NoError(t, err)
	tokens, err := auth.NewTokenService(key, time.Hour)
	require.NoError(t, err)

	materializer := ingest.NewMaterializer(
		st,
		ownership.NewGuard(st, log),
		taxonomy.NewResolver(st, log),
		images.NewBinder(media, st, nil, images.BinderConfig{Concurrency: 2, MaxBytes: 1 << 20}, log),
		index,
		ingest.MaterializerConfig{},
		log,
	)
	engine := ingest.NewEngine(materializer, reports, ingest.EngineConfig{Workers: 2, MaxBatchSize: 5}, logger.Discard())

	services := &Services{
		Engine:  engine,
		Reports: reports,
		Tokens:  tokens,
		Media:   media,
		Search:  index,
	}
	srv := NewServer(st, services, opts, log)
	t.Cleanup(srv.Close)

	pub, err := st.CreatePublisher(ctx, "Lantern House")
	require.NoError(t, err)
	rival, err := st.CreatePublisher(ctx, "Rival Press")
	require.NoError(t, err)
	author, err := st.CreateAuthor(ctx, "Ada Okafor")
	require.NoError(t, err)
	require.NoError(t, st.StartContract(ctx, pub.ID, author.ID, time.Now().Add(-time.Hour)))

	return &testServer{
		Server:    srv,
		api:       humatest.Wrap(t, srv.API()),
		store:     st,
		tokens:    tokens,
		publisher: pub.ID,
		rival:     rival.ID,
		author:    author.ID,
	}
}

func (ts *testServer) publisherAuth(t *testing.T, publisherID int64) string {
	t.Helper()
	token, err := ts.tokens.IssuePublisherToken(publisherID)
	require.NoError(t, err)
	return "Authorization: Bearer " + token
}

func (ts *testServer) adminAuth(t *testing.T) string {
	t.Helper()
	token, err := ts.tokens.IssueAdminToken("ops@shelfwise.test")
	require.NoError(t, err)
	return "Authorization: Bearer " + token
}

func decodeEnvelope[T any](t *testing.T, body []byte) testEnvelope[T] {
	t.Helper()
	var env testEnvelope[T]
	require.NoError(t, json.Unmarshal(body, &env), string(body))
	return env
}

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := range h {
		for x := range w {
			img.Set(x, y, color.RGBA{R: uint8(x * 10), G: uint8(y * 10), B: 200, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func requireStatus(t *testing.T, want int, resp interface {
	Result() *http.Response
}, body string) {
	t.Helper()
	require.Equal(t, want, resp.Result().StatusCode, body)
}
