package images

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"io/fs"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shelfwise/shelfwise-server/internal/domain"
)

type memAssets struct {
	mu     sync.Mutex
	saved  map[domain.ImageRole]*domain.ImageAsset
	failOn domain.ImageRole
}

func newMemAssets() *memAssets {
	return &memAssets{saved: make(map[domain.ImageRole]*domain.ImageAsset)}
}

func (m *memAssets) SaveImageAsset(_ context.Context, a *domain.ImageAsset) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if a.Role == m.failOn {
		return errors.New("constraint failed")
	}
	m.saved[a.Role] = a
	return nil
}

type fakeFetcher struct {
	data     []byte
	err      error
	delay    time.Duration
	inFlight atomic.Int32
	peak     atomic.Int32
}

func (f *fakeFetcher) Fetch(context.Context, string) ([]byte, error) {
	n := f.inFlight.Add(1)
	defer f.inFlight.Add(-1)
	for {
		p := f.peak.Load()
		if n <= p || f.peak.CompareAndSwap(p, n) {
			break
		}
	}
	time.Sleep(f.delay)
	return f.data, f.err
}

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := range h {
		for x := range w {
			img.Set(x, y, color.RGBA{R: uint8(x * 20), G: uint8(y * 30), B: 120, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func countObjects(t *testing.T, s *Storage) int {
	t.Helper()
	n := 0
	err := filepath.WalkDir(s.basePath, func(_ string, d fs.DirEntry, err error) error {
		if err == nil && !d.IsDir() {
			n++
		}
		return err
	})
	require.NoError(t, err)
	return n
}

func newTestBinder(t *testing.T, fetcher Fetcher) (*Binder, *Storage, *memAssets) {
	t.Helper()
	storage := setupTestStorage(t)
	assets := newMemAssets()
	return NewBinder(storage, assets, fetcher, BinderConfig{Concurrency: 3, MaxBytes: 1 << 20}, nil), storage, assets
}

func TestProbe(t *testing.T) {
	info, err := Probe(pngBytes(t, 12, 8))
	require.NoError(t, err)
	assert.Equal(t, 12, info.Width)
	assert.Equal(t, 8, info.Height)
	assert.Equal(t, "png", info.Format)
	assert.Equal(t, "image/png", info.ContentType)
	assert.Equal(t, ".png", info.Extension)

	_, err = Probe([]byte("definitely not an image"))
	assert.ErrorIs(t, err, ErrInvalidImage)
}

func TestSizeKB(t *testing.T) {
	assert.Equal(t, 0, SizeKB(0))
	assert.Equal(t, 1, SizeKB(1))
	assert.Equal(t, 1, SizeKB(1024))
	assert.Equal(t, 2, SizeKB(1025))
}

func TestComputeBlurHash(t *testing.T) {
	hash, err := ComputeBlurHash(pngBytes(t, 200, 300))
	require.NoError(t, err)
	assert.NotEmpty(t, hash)

	_, err = ComputeBlurHash([]byte("nope"))
	assert.Error(t, err)
}

func TestBind_FourOfSixRoles(t *testing.T) {
	binder, storage, assets := newTestBinder(t, nil)
	data := pngBytes(t, 10, 10)

	res, err := binder.Bind(context.Background(), 42, map[domain.ImageRole]domain.Blob{
		domain.ImageRoleBookDetail: {Data: data},
		domain.ImageRoleHero:       {Data: data},
		domain.ImageRoleBookCard:   {Data: data},
		domain.ImageRoleGridItem:   {Data: data},
	})
	require.NoError(t, err)

	require.Len(t, res.Assets, 4)
	assert.Equal(t, []domain.ImageRole{domain.ImageRoleBackground, domain.ImageRoleMini}, res.MissingRoles)
	assert.Empty(t, res.RoleErrors)
	assert.NoError(t, res.Err())

	wantOrder := []domain.ImageRole{
		domain.ImageRoleBookDetail, domain.ImageRoleHero, domain.ImageRoleBookCard, domain.ImageRoleGridItem,
	}
	for i, a := range res.Assets {
		assert.Equal(t, wantOrder[i], a.Role)
		assert.Equal(t, int64(42), a.BookID)
		assert.Equal(t, 10, a.Width)
		assert.Equal(t, 10, a.Height)
		assert.Equal(t, 1, a.SizeKB)
		assert.NotEmpty(t, a.BlurHash)
		assert.Equal(t, "/media/"+a.ObjectKey, a.URL)
		assert.True(t, storage.Exists(a.ObjectKey))
	}
	assert.Len(t, assets.saved, 4)
}

func TestBind_RoleFailuresAreIsolated(t *testing.T) {
	binder, storage, assets := newTestBinder(t, nil)
	assets.failOn = domain.ImageRoleMini
	good := pngBytes(t, 4, 4)

	res, err := binder.Bind(context.Background(), 1, map[domain.ImageRole]domain.Blob{
		domain.ImageRoleHero:       {Data: good},
		domain.ImageRoleBackground: {Data: []byte("garbage")},
		domain.ImageRoleMini:       {Data: good},
	})
	require.NoError(t, err)

	require.Len(t, res.Assets, 1)
	assert.Equal(t, domain.ImageRoleHero, res.Assets[0].Role)

	require.Len(t, res.RoleErrors, 2)
	assert.Equal(t, domain.ImageRoleBackground, res.RoleErrors[0].Role)
	assert.ErrorIs(t, res.RoleErrors[0], ErrInvalidImage)
	assert.Equal(t, domain.ImageRoleMini, res.RoleErrors[1].Role)
	assert.ErrorContains(t, res.RoleErrors[1], "record asset")
	assert.Error(t, res.Err())

	// The object uploaded for the failed metadata write is removed again.
	assert.Equal(t, 1, countObjects(t, storage))
}

func TestBind_Remote(t *testing.T) {
	fetcher := &fakeFetcher{data: pngBytes(t, 6, 9)}
	binder, _, _ := newTestBinder(t, fetcher)

	res, err := binder.Bind(context.Background(), 3, map[domain.ImageRole]domain.Blob{
		domain.ImageRoleHero: {URL: "https://cdn.example.com/hero.png"},
	})
	require.NoError(t, err)
	require.Len(t, res.Assets, 1)
	assert.Equal(t, 9, res.Assets[0].Height)

	t.Run("fetch failure", func(t *testing.T) {
		binder, _, _ := newTestBinder(t, &fakeFetcher{err: errors.New("status 404")})
		res, err := binder.Bind(context.Background(), 3, map[domain.ImageRole]domain.Blob{
			domain.ImageRoleHero: {URL: "https://cdn.example.com/missing.png"},
		})
		require.NoError(t, err)
		require.Len(t, res.RoleErrors, 1)
		assert.ErrorContains(t, res.RoleErrors[0], "status 404")
	})

	t.Run("no fetcher configured", func(t *testing.T) {
		binder, _, _ := newTestBinder(t, nil)
		res, err := binder.Bind(context.Background(), 3, map[domain.ImageRole]domain.Blob{
			domain.ImageRoleHero: {URL: "https://cdn.example.com/hero.png"},
		})
		require.NoError(t, err)
		require.Len(t, res.RoleErrors, 1)
	})
}

func TestBind_MaxBytes(t *testing.T) {
	storage := setupTestStorage(t)
	binder := NewBinder(storage, newMemAssets(), nil, BinderConfig{Concurrency: 1, MaxBytes: 16}, nil)

	res, err := binder.Bind(context.Background(), 1, map[domain.ImageRole]domain.Blob{
		domain.ImageRoleHero: {Data: pngBytes(t, 4, 4)},
	})
	require.NoError(t, err)
	require.Len(t, res.RoleErrors, 1)
	assert.ErrorIs(t, res.RoleErrors[0], ErrInvalidImage)
	assert.Zero(t, countObjects(t, storage))
}

func TestBind_ConcurrencyBound(t *testing.T) {
	fetcher := &fakeFetcher{data: pngBytes(t, 2, 2), delay: 30 * time.Millisecond}
	binder := NewBinder(setupTestStorage(t), newMemAssets(), fetcher, BinderConfig{Concurrency: 2}, nil)

	blobs := make(map[domain.ImageRole]domain.Blob)
	for _, role := range domain.ImageRoles {
		blobs[role] = domain.Blob{URL: "https://cdn.example.com/" + string(role) + ".png"}
	}

	res, err := binder.Bind(context.Background(), 5, blobs)
	require.NoError(t, err)
	assert.Len(t, res.Assets, 6)
	assert.Empty(t, res.MissingRoles)
	assert.LessOrEqual(t, fetcher.peak.Load(), int32(2))
}

func TestBind_InvalidInput(t *testing.T) {
	binder, _, _ := newTestBinder(t, nil)

	_, err := binder.Bind(context.Background(), 0, nil)
	assert.Error(t, err)

	_, err = binder.Bind(context.Background(), 1, map[domain.ImageRole]domain.Blob{"cover": {Data: []byte("x")}})
	assert.Error(t, err)
}

func TestBinder_Discard(t *testing.T) {
	binder, storage, _ := newTestBinder(t, nil)
	data := pngBytes(t, 3, 3)

	res, err := binder.Bind(context.Background(), 9, map[domain.ImageRole]domain.Blob{
		domain.ImageRoleHero: {Data: data},
		domain.ImageRoleMini: {Data: data},
	})
	require.NoError(t, err)
	require.Equal(t, 2, countObjects(t, storage))

	binder.Discard(context.Background(), res.Assets)
	assert.Zero(t, countObjects(t, storage))
}
