package artifact

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/jellydator/ttlcache/v3"

	"github.com/roach88/integrator/internal/audit"
	"github.com/roach88/integrator/internal/imaging"
)

// Auditor records user-facing and mutating actions.
// *audit.Log satisfies it.
type Auditor interface {
	Record(ctx context.Context, source, action, parameters string) error
}

// Options configure the artifact services.
type Options struct {
	// TTL of the in-memory read-through layer. Zero disables it.
	TTL time.Duration
	// Capacity bounds the in-memory layer per service. Zero is unbounded.
	Capacity uint64
	// Auditor receives DATA.READ/WRITE/SEARCH_RESULT events. Optional.
	Auditor Auditor
	// Source is recorded on every audit entry.
	Source string
	// Now stamps CachedImage.UpdatedAt.
	Now func() time.Time
	// Image bounds normalization of cached photographs.
	Image imaging.Options
}

// DefaultOptions returns options with a five minute memo and default image bounds.
func DefaultOptions() Options {
	return Options{
		TTL:   5 * time.Minute,
		Now:   time.Now,
		Image: imaging.DefaultOptions(),
	}
}

func (o Options) withDefaults() Options {
	if o.Now == nil {
		o.Now = time.Now
	}
	if o.Image == (imaging.Options{}) {
		o.Image = imaging.DefaultOptions()
	}
	return o
}

type cloner[V any] interface {
	clone() V
}

// memo is the read-through layer in front of a backend. Reads hold the
// read lock across load-and-fill and writes hold the write lock across
// store-and-fill, so the memo never resurrects a value older than the
// backend's last write. A nil cache disables it.
type memo[K comparable, V cloner[V]] struct {
	mu    sync.RWMutex
	cache *ttlcache.Cache[K, V]
}

func newMemo[K comparable, V cloner[V]](opts Options) *memo[K, V] {
	m := &memo[K, V]{}
	if opts.TTL <= 0 {
		return m
	}
	cacheOpts := []ttlcache.Option[K, V]{
		ttlcache.WithTTL[K, V](opts.TTL),
		ttlcache.WithDisableTouchOnHit[K, V](),
	}
	if opts.Capacity > 0 {
		cacheOpts = append(cacheOpts, ttlcache.WithCapacity[K, V](opts.Capacity))
	}
	m.cache = ttlcache.New[K, V](cacheOpts...)
	return m
}

// read returns a cached value or loads it. Load errors are not cached.
func (m *memo[K, V]) read(ctx context.Context, k K, load func(context.Context, K) (V, error)) (V, error) {
	if m.cache == nil {
		return load(ctx, k)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if item := m.cache.Get(k); item != nil {
		return item.Value().clone(), nil
	}
	v, err := load(ctx, k)
	if err != nil {
		return v, err
	}
	m.cache.Set(k, v.clone(), ttlcache.DefaultTTL)
	return v, nil
}

// write stores v through the backend and refreshes the cached copy.
func (m *memo[K, V]) write(ctx context.Context, k K, v V, store func(context.Context, V) error) error {
	if m.cache == nil {
		return store(ctx, v)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := store(ctx, v); err != nil {
		m.cache.Delete(k)
		return err
	}
	m.cache.Set(k, v.clone(), ttlcache.DefaultTTL)
	return nil
}

func (m *memo[K, V]) len() int {
	if m.cache == nil {
		return 0
	}
	return m.cache.Len()
}

type auditing struct {
	auditor Auditor
	source  string
}

// read records a DATA.READ. Failures are logged only: an audit outage
// must not block access to cached data.
func (a auditing) read(ctx context.Context, kind string, k fmt.Stringer) {
	if a.auditor == nil {
		return
	}
	params := fmt.Sprintf("kind=%s key=%s", kind, k)
	if err := a.auditor.Record(ctx, a.source, audit.DataRead, params); err != nil {
		slog.Error("audit read failed", "kind", kind, "key", k.String(), "error", err)
	}
}

func (a auditing) write(ctx context.Context, kind string, k fmt.Stringer) error {
	if a.auditor == nil {
		return nil
	}
	params := fmt.Sprintf("kind=%s key=%s", kind, k)
	if err := a.auditor.Record(ctx, a.source, audit.DataWrite, params); err != nil {
		return fmt.Errorf("audit write: %w", err)
	}
	return nil
}

func (a auditing) search(ctx context.Context, kind, params string) {
	if a.auditor == nil {
		return
	}
	if err := a.auditor.Record(ctx, a.source, audit.DataSearchResult, "kind="+kind+" "+params); err != nil {
		slog.Error("audit search failed", "kind", kind, "error", err)
	}
}
