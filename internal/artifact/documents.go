package artifact

import (
	"bytes"
	"context"
	"fmt"

	"github.com/roach88/integrator/internal/key"
)

// DocumentBackend persists cached documents.
// GetDocument returns a model.NotFoundError for unknown keys; PutDocument
// replaces any existing row for the key.
type DocumentBackend interface {
	GetDocument(ctx context.Context, k key.IntKey) (CachedDocument, error)
	PutDocument(ctx context.Context, d CachedDocument) error
}

func (d CachedDocument) clone() CachedDocument {
	d.Contents = bytes.Clone(d.Contents)
	return d
}

// Documents caches remote document contents.
type Documents struct {
	backend DocumentBackend
	memo    *memo[key.IntKey, CachedDocument]
	audit   auditing
}

// NewDocuments creates the document service.
func NewDocuments(backend DocumentBackend, opts Options) *Documents {
	opts = opts.withDefaults()
	return &Documents{
		backend: backend,
		memo:    newMemo[key.IntKey, CachedDocument](opts),
		audit:   auditing{auditor: opts.Auditor, source: opts.Source},
	}
}

// Get returns the cached document for k.
func (s *Documents) Get(ctx context.Context, k key.IntKey) (CachedDocument, error) {
	if err := k.Valid(); err != nil {
		return CachedDocument{}, err
	}
	d, err := s.memo.read(ctx, k, s.backend.GetDocument)
	if err != nil {
		return CachedDocument{}, err
	}
	s.audit.read(ctx, KindDocument, k)
	return d, nil
}

// Put stores d, replacing whatever was cached under its key.
func (s *Documents) Put(ctx context.Context, d CachedDocument) error {
	if err := d.Validate(); err != nil {
		return err
	}
	if err := s.memo.write(ctx, d.Key, d.clone(), s.backend.PutDocument); err != nil {
		return fmt.Errorf("put document %s: %w", d.Key, err)
	}
	return s.audit.write(ctx, KindDocument, d.Key)
}
