// Package covers fetches remote image references named in batch submissions.
package covers

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/shelfwise/shelfwise-server/internal/ratelimit"
)

const (
	// DefaultMaxSize limits download size to prevent memory exhaustion.
	DefaultMaxSize = 10 * 1024 * 1024 // 10MB

	// DefaultTimeout is the maximum time for one download.
	DefaultTimeout = 30 * time.Second
)

// ErrTooLarge is returned when a remote image exceeds the size limit.
var ErrTooLarge = errors.New("remote image exceeds size limit")

// Config bounds a Downloader.
type Config struct {
	MaxBytes   int64
	Timeout    time.Duration
	RPSPerHost float64 // zero disables throttling
}

// Downloader fetches remote images with a size limit, a timeout and a
// per-host rate limit.
type Downloader struct {
	httpClient *http.Client
	limiter    *ratelimit.KeyedRateLimiter
	maxBytes   int64
	timeout    time.Duration
	logger     *slog.Logger
}

// NewDownloader creates a new downloader.
func NewDownloader(cfg Config, logger *slog.Logger) *Downloader {
	if cfg.MaxBytes <= 0 {
		cfg.MaxBytes = DefaultMaxSize
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Downloader{
		httpClient: &http.Client{Timeout: cfg.Timeout},
		limiter:    ratelimit.New(cfg.RPSPerHost, 1),
		maxBytes:   cfg.MaxBytes,
		timeout:    cfg.Timeout,
		logger:     logger,
	}
}

// Close releases the limiter's background cleanup.
func (d *Downloader) Close() {
	d.limiter.Stop()
}

// Fetch downloads rawURL and returns its body.
func (d *Downloader) Fetch(ctx context.Context, rawURL string) ([]byte, error) {
	u, err := url.Parse(rawURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("invalid image URL %q", rawURL)
	}

	if err := d.limiter.Wait(ctx, u.Host); err != nil {
		return nil, fmt.Errorf("rate limit: %w", err)
	}

	downloadCtx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(downloadCtx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "image/*")

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("download: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("download failed: status %d", resp.StatusCode)
	}
	if resp.ContentLength > d.maxBytes {
		return nil, fmt.Errorf("%w: %d bytes", ErrTooLarge, resp.ContentLength)
	}

	// Read one byte past the limit to tell "exactly at limit" from "truncated".
	data, err := io.ReadAll(io.LimitReader(resp.Body, d.maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read data: %w", err)
	}
	if int64(len(data)) > d.maxBytes {
		return nil, ErrTooLarge
	}

	d.logger.Debug("downloaded remote image",
		"host", u.Host,
		"size", len(data),
		"content_type", resp.Header.Get("Content-Type"),
	)
	return data, nil
}
