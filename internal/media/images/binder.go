package images

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/shelfwise/shelfwise-server/internal/domain"
)

// Fetcher downloads remote image references.
type Fetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

// AssetStore persists the metadata row for a bound image.
type AssetStore interface {
	SaveImageAsset(ctx context.Context, a *domain.ImageAsset) error
}

// RoleError is a failure confined to one image slot.
type RoleError struct {
	Role domain.ImageRole
	Err  error
}

func (e *RoleError) Error() string {
	return fmt.Sprintf("image %s: %v", e.Role, e.Err)
}

func (e *RoleError) Unwrap() error {
	return e.Err
}

// BindResult reports what happened to each of the six slots.
// Assets, MissingRoles and RoleErrors are each in canonical role order.
type BindResult struct {
	Assets       []*domain.ImageAsset
	MissingRoles []domain.ImageRole
	RoleErrors   []*RoleError
}

// Err joins every role failure, or returns nil.
func (r *BindResult) Err() error {
	errs := make([]error, len(r.RoleErrors))
	for i, e := range r.RoleErrors {
		errs[i] = e
	}
	return errors.Join(errs...)
}

// BinderConfig bounds a Binder.
type BinderConfig struct {
	Concurrency int   // parallel role uploads per Bind call
	MaxBytes    int64 // per image
}

// Binder uploads a book's images and records one asset per role.
type Binder struct {
	objects ObjectStore
	assets  AssetStore
	fetcher Fetcher
	cfg     BinderConfig
	logger  *slog.Logger
}

// NewBinder creates a Binder. fetcher may be nil, in which case remote
// references fail their slot.
func NewBinder(objects ObjectStore, assets AssetStore, fetcher Fetcher, cfg BinderConfig, logger *slog.Logger) *Binder {
	if cfg.Concurrency < 1 {
		cfg.Concurrency = 1
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Binder{objects: objects, assets: assets, fetcher: fetcher, cfg: cfg, logger: logger}
}

type slotOutcome struct {
	asset *domain.ImageAsset
	err   error
}

// Bind stores each supplied blob and records its asset. Roles without a blob
// are reported missing. Uploads for different roles run concurrently, and a
// failing role never stops the others. The returned error is reserved for
// invalid input; per-role failures are in the result.
func (b *Binder) Bind(ctx context.Context, bookID int64, blobs map[domain.ImageRole]domain.Blob) (*BindResult, error) {
	if bookID <= 0 {
		return nil, fmt.Errorf("bind images: invalid book id %d", bookID)
	}
	for role := range blobs {
		if _, err := domain.ParseImageRole(string(role)); err != nil {
			return nil, fmt.Errorf("bind images: %w", err)
		}
	}

	outcomes := make([]slotOutcome, len(domain.ImageRoles))
	sem := make(chan struct{}, b.cfg.Concurrency)
	var wg sync.WaitGroup

	result := &BindResult{}
	for i, role := range domain.ImageRoles {
		blob, ok := blobs[role]
		if !ok || blob.IsEmpty() {
			result.MissingRoles = append(result.MissingRoles, role)
			continue
		}

		wg.Go(func() {
			select {
			case sem <- struct{}{}:
				defer func() { <-sem }()
			case <-ctx.Done():
				outcomes[i] = slotOutcome{err: ctx.Err()}
				return
			}
			asset, err := b.bindOne(ctx, bookID, role, blob)
			outcomes[i] = slotOutcome{asset: asset, err: err}
		})
	}
	wg.Wait()

	for i, role := range domain.ImageRoles {
		switch o := outcomes[i]; {
		case o.err != nil:
			result.RoleErrors = append(result.RoleErrors, &RoleError{Role: role, Err: o.err})
		case o.asset != nil:
			result.Assets = append(result.Assets, o.asset)
		}
	}
	return result, nil
}

// bindOne uploads a single role and then writes its metadata row. The row is
// only written after the upload has succeeded.
func (b *Binder) bindOne(ctx context.Context, bookID int64, role domain.ImageRole, blob domain.Blob) (*domain.ImageAsset, error) {
	data := blob.Data
	if len(data) == 0 {
		if !blob.IsRemote() {
			return nil, fmt.Errorf("%w: unsupported reference %q", ErrInvalidImage, blob.URL)
		}
		if b.fetcher == nil {
			return nil, fmt.Errorf("remote images are disabled")
		}
		fetched, err := b.fetcher.Fetch(ctx, blob.URL)
		if err != nil {
			return nil, fmt.Errorf("fetch: %w", err)
		}
		data = fetched
	}

	if b.cfg.MaxBytes > 0 && int64(len(data)) > b.cfg.MaxBytes {
		return nil, fmt.Errorf("%w: %d bytes exceeds limit of %d", ErrInvalidImage, len(data), b.cfg.MaxBytes)
	}

	info, err := Probe(data)
	if err != nil {
		return nil, err
	}

	hash, err := ComputeBlurHash(data)
	if err != nil {
		// The placeholder is cosmetic; keep the image without it.
		b.logger.Warn("failed to compute blurhash", "book_id", bookID, "role", string(role), "error", err)
	}

	key := fmt.Sprintf("books/%d/%s-%s%s", bookID, role, uuid.NewString(), info.Extension)
	if err := b.objects.Put(ctx, key, data); err != nil {
		return nil, fmt.Errorf("upload: %w", err)
	}

	asset := &domain.ImageAsset{
		BookID:    bookID,
		Role:      role,
		URL:       b.objects.URL(key),
		ObjectKey: key,
		Width:     info.Width,
		Height:    info.Height,
		SizeKB:    SizeKB(len(data)),
		BlurHash:  hash,
		CreatedAt: time.Now().UTC(),
	}
	if err := b.assets.SaveImageAsset(ctx, asset); err != nil {
		if delErr := b.objects.Delete(context.WithoutCancel(ctx), key); delErr != nil {
			b.logger.Warn("failed to remove orphaned image", "key", key, "error", delErr)
		}
		return nil, fmt.Errorf("record asset: %w", err)
	}

	b.logger.Debug("bound image",
		"book_id", bookID,
		"role", string(role),
		"width", info.Width,
		"height", info.Height,
		"size_kb", asset.SizeKB,
	)
	return asset, nil
}

// Discard removes the stored objects of assets. Used when a book is rolled
// back after its images were uploaded. Errors are logged and skipped so that
// every object gets a delete attempt.
func (b *Binder) Discard(ctx context.Context, assets []*domain.ImageAsset) {
	for _, a := range assets {
		if err := b.objects.Delete(ctx, a.ObjectKey); err != nil {
			b.logger.Warn("failed to discard image", "key", a.ObjectKey, "error", err)
		}
	}
}
