package artifact

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/roach88/integrator/internal/imaging"
	"github.com/roach88/integrator/internal/key"
	"github.com/roach88/integrator/internal/model"
)

// ImageBackend persists cached images.
type ImageBackend interface {
	GetImage(ctx context.Context, k key.IntKey) (CachedImage, error)
	PutImage(ctx context.Context, img CachedImage) error
}

func (i CachedImage) clone() CachedImage {
	i.Image = bytes.Clone(i.Image)
	return i
}

// Images caches normalized photographs.
type Images struct {
	backend ImageBackend
	memo    *memo[key.IntKey, CachedImage]
	audit   auditing
	now     func() time.Time
	opts    imaging.Options
}

// NewImages creates the image service.
func NewImages(backend ImageBackend, opts Options) *Images {
	opts = opts.withDefaults()
	return &Images{
		backend: backend,
		memo:    newMemo[key.IntKey, CachedImage](opts),
		audit:   auditing{auditor: opts.Auditor, source: opts.Source},
		now:     opts.Now,
		opts:    opts.Image,
	}
}

// Get returns the normalized image cached for k.
func (s *Images) Get(ctx context.Context, k key.IntKey) (CachedImage, error) {
	if err := k.Valid(); err != nil {
		return CachedImage{}, err
	}
	img, err := s.memo.read(ctx, k, s.backend.GetImage)
	if err != nil {
		return CachedImage{}, err
	}
	s.audit.read(ctx, KindImage, k)
	return img, nil
}

// Put normalizes raw and stores the result under k, stamping UpdatedAt.
// Undecodable input is an error and nothing is stored.
func (s *Images) Put(ctx context.Context, k key.IntKey, raw []byte) (CachedImage, error) {
	if err := k.Valid(); err != nil {
		return CachedImage{}, err
	}
	normalized, err := imaging.Normalize(raw, s.opts)
	if err != nil {
		return CachedImage{}, fmt.Errorf("put image %s: %w", k, err)
	}
	img := CachedImage{Key: k, Image: normalized, UpdatedAt: s.now().UTC()}
	if err := img.Validate(); err != nil {
		return CachedImage{}, err
	}
	if err := s.memo.write(ctx, k, img.clone(), s.backend.PutImage); err != nil {
		return CachedImage{}, fmt.Errorf("put image %s: %w", k, err)
	}
	if err := s.audit.write(ctx, KindImage, k); err != nil {
		return img, err
	}
	return img, nil
}

// IsStale reports whether the image for k is missing or older than maxAge.
func (s *Images) IsStale(ctx context.Context, k key.IntKey, maxAge time.Duration) (bool, error) {
	if err := k.Valid(); err != nil {
		return false, err
	}
	img, err := s.memo.read(ctx, k, s.backend.GetImage)
	if model.IsNotFound(err) {
		return true, nil
	}
	if err != nil {
		return false, err
	}
	return s.now().Sub(img.UpdatedAt) > maxAge, nil
}
