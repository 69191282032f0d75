package covers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newServer(t *testing.T, handler http.HandlerFunc) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return srv
}

func newTestDownloader(t *testing.T, cfg Config) *Downloader {
	t.Helper()
	d := NewDownloader(cfg, nil)
	t.Cleanup(d.Close)
	return d
}

func TestFetch_Success(t *testing.T) {
	srv := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "image/*", r.Header.Get("Accept"))
		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write([]byte("fake png"))
	})

	data, err := newTestDownloader(t, Config{}).Fetch(context.Background(), srv.URL+"/hero.png")
	require.NoError(t, err)
	assert.Equal(t, []byte("fake png"), data)
}

func TestFetch_Status(t *testing.T) {
	srv := newServer(t, func(w http.ResponseWriter, _ *http.Request) {
		http.NotFound(w, nil)
	})

	_, err := newTestDownloader(t, Config{}).Fetch(context.Background(), srv.URL)
	assert.ErrorContains(t, err, "status 404")
}

func TestFetch_TooLarge(t *testing.T) {
	body := strings.Repeat("x", 64)

	t.Run("declared length", func(t *testing.T) {
		srv := newServer(t, func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(body))
		})
		_, err := newTestDownloader(t, Config{MaxBytes: 32}).Fetch(context.Background(), srv.URL)
		assert.ErrorIs(t, err, ErrTooLarge)
	})

	t.Run("streamed body", func(t *testing.T) {
		srv := newServer(t, func(w http.ResponseWriter, _ *http.Request) {
			w.(http.Flusher).Flush()
			_, _ = w.Write([]byte(body))
		})
		_, err := newTestDownloader(t, Config{MaxBytes: 32}).Fetch(context.Background(), srv.URL)
		assert.ErrorIs(t, err, ErrTooLarge)
	})

	t.Run("exactly at limit", func(t *testing.T) {
		srv := newServer(t, func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(body))
		})
		data, err := newTestDownloader(t, Config{MaxBytes: 64}).Fetch(context.Background(), srv.URL)
		require.NoError(t, err)
		assert.Len(t, data, 64)
	})
}

func TestFetch_Timeout(t *testing.T) {
	srv := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	})

	_, err := newTestDownloader(t, Config{Timeout: 50 * time.Millisecond}).Fetch(context.Background(), srv.URL)
	assert.Error(t, err)
}

func TestFetch_InvalidURL(t *testing.T) {
	d := newTestDownloader(t, Config{})
	for _, raw := range []string{"", "ftp://example.com/a.png", "https://", "::nope"} {
		_, err := d.Fetch(context.Background(), raw)
		assert.Error(t, err, raw)
	}
}

func TestFetch_RateLimitHonoursContext(t *testing.T) {
	srv := newServer(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("ok"))
	})
	d := newTestDownloader(t, Config{RPSPerHost: 0.01})

	_, err := d.Fetch(context.Background(), srv.URL)
	require.NoError(t, err, "first request uses the burst token")

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err = d.Fetch(ctx, srv.URL)
	assert.ErrorContains(t, err, "rate limit")
}
