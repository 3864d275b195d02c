// Package cache keeps persisted cache entries in step with their source files.
package cache

import (
	"context"
	"path/filepath"
	"runtime"
	"slices"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.trai.ch/trove/internal/core/cacheable"
	"go.trai.ch/trove/internal/core/domain"
	"go.trai.ch/trove/internal/core/ports"
	"go.trai.ch/zerr"
	"golang.org/x/sync/errgroup"
)

// TracerName is the instrumentation name used when no tracer is configured.
const TracerName = "go.trai.ch/trove/cache"

// Cache drives the entry state machine: absent, fresh, stale and orphaned.
type Cache struct {
	files    ports.FileSystem
	loader   ports.ContextLoader
	store    ports.Store
	registry *cacheable.Registry

	tracer  trace.Tracer
	workers int
	now     func() time.Time
	locks   *keyedMutex
}

// Option configures a Cache.
type Option func(*Cache)

// WithTracer sets the tracer spans are recorded with.
func WithTracer(tracer trace.Tracer) Option {
	return func(c *Cache) {
		c.tracer = tracer
	}
}

// WithWorkers bounds the SyncAll pool. Values below one are ignored.
func WithWorkers(n int) Option {
	return func(c *Cache) {
		if n > 0 {
			c.workers = n
		}
	}
}

// WithClock replaces the clock that stamps CachedAt.
func WithClock(now func() time.Time) Option {
	return func(c *Cache) {
		c.now = now
	}
}

// New creates a Cache.
func New(
	files ports.FileSystem,
	loader ports.ContextLoader,
	store ports.Store,
	registry *cacheable.Registry,
	opts ...Option,
) *Cache {
	c := &Cache{
		files:    files,
		loader:   loader,
		store:    store,
		registry: registry,
		tracer:   otel.Tracer(TracerName),
		workers:  runtime.NumCPU(),
		now:      time.Now,
		locks:    newKeyedMutex(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Missing reports whether the source file at path no longer exists.
func (c *Cache) Missing(path string) (bool, error) {
	ok, err := c.files.Exists(path)
	if err != nil {
		return false, zerr.With(domain.WrapKind(domain.ErrIOFailure, err), "path", path)
	}
	return !ok, nil
}

// Updated reports whether the source of entry is newer than the entry.
func (c *Cache) Updated(entry *domain.CacheEntry) (bool, error) {
	mtime, err := c.modTime(entry.Path)
	if err != nil {
		return false, err
	}
	return entry.Updated(mtime), nil
}

// Entry returns the stored entry for path, or nil when there is none.
func (c *Cache) Entry(ctx context.Context, path string) (*domain.CacheEntry, error) {
	var entry *domain.CacheEntry
	err := c.store.View(ctx, func(tx ports.Tx) error {
		var err error
		entry, err = tx.Entry(path)
		return err
	})
	return entry, err
}

// Entries returns every stored entry ordered by path.
func (c *Cache) Entries(ctx context.Context) ([]domain.CacheEntry, error) {
	var entries []domain.CacheEntry
	err := c.store.View(ctx, func(tx ports.Tx) error {
		var err error
		entries, err = tx.Entries()
		return err
	})
	return entries, err
}

// Sync brings the entry for path in line with the file.
// A failure while recaching destroys the entry and is returned alongside Changed.
func (c *Cache) Sync(ctx context.Context, path string) (result domain.SyncResult, err error) {
	path = filepath.Clean(path)

	ctx, span := c.tracer.Start(ctx, "trove.sync", trace.WithAttributes(attribute.String("path", path)))
	defer func() {
		span.SetAttributes(attribute.String("result", result.String()))
		if err != nil {
			span.SetAttributes(attribute.String("kind", domain.KindOf(err)))
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	if err := ctx.Err(); err != nil {
		return domain.Unchanged, err
	}

	unlock := c.locks.Lock(path)
	defer unlock()

	return c.sync(ctx, path)
}

func (c *Cache) sync(ctx context.Context, path string) (domain.SyncResult, error) {
	entry, err := c.Entry(ctx, path)
	if err != nil {
		return domain.Unchanged, err
	}

	missing, err := c.Missing(path)
	if err != nil {
		return domain.Unchanged, err
	}

	if entry == nil {
		if missing {
			return domain.Unchanged, nil
		}
		created, err := c.cache(ctx, path)
		if err != nil || created == nil {
			return domain.Unchanged, err
		}
		return domain.Changed, nil
	}

	if missing {
		if _, err := c.destroy(ctx, path); err != nil {
			return domain.Unchanged, err
		}
		return domain.Changed, nil
	}

	stale, err := c.Updated(entry)
	if err != nil {
		return domain.Unchanged, err
	}
	if !stale {
		return domain.Unchanged, nil
	}

	created, cacheErr := c.cache(ctx, path)
	if cacheErr == nil && created != nil {
		return domain.Changed, nil
	}
	if _, err := c.destroy(ctx, path); err != nil {
		return domain.Unchanged, err
	}
	return domain.Changed, cacheErr
}

// Cache evaluates path and persists the entry with its object.
// It returns nil, nil when the file defines no recognized block.
// On failure the returned entry carries the diagnostic and nothing is persisted.
func (c *Cache) Cache(ctx context.Context, path string) (*domain.CacheEntry, error) {
	path = filepath.Clean(path)

	unlock := c.locks.Lock(path)
	defer unlock()

	entry, err := c.cache(ctx, path)
	if err != nil {
		return &domain.CacheEntry{Path: path, Diagnostic: domain.NewDiagnostic(path, err)}, err
	}
	return entry, nil
}

// cache does the work of Cache. The caller holds the path lock.
func (c *Cache) cache(ctx context.Context, path string) (*domain.CacheEntry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	mtime, err := c.modTime(path)
	if err != nil {
		return nil, err
	}

	blocks, err := c.loader.Load(ctx, path)
	if err != nil {
		return nil, err
	}

	block, ok := c.registry.First(blocks)
	if !ok {
		return nil, nil
	}

	obj, err := cacheable.Load(ctx, c.registry, block)
	if err != nil {
		return nil, err
	}

	digest, err := c.files.Digest(path)
	if err != nil {
		return nil, zerr.With(domain.WrapKind(domain.ErrIOFailure, err), "path", path)
	}

	meta := cacheable.MetaOf(obj)
	entry := &domain.CacheEntry{
		Path:      path,
		Timestamp: mtime,
		TypeName:  block.Tag,
		ObjectID:  meta.ID,
		Digest:    digest,
		CachedAt:  c.now().UTC(),
	}
	meta.Bind(entry, c.loader)

	record, err := cacheable.Record(obj)
	if err != nil {
		return nil, err
	}

	err = c.store.Update(ctx, func(tx ports.Tx) error {
		if err := tx.DeleteEntry(path); err != nil {
			return err
		}
		if err := tx.PutEntry(*entry); err != nil {
			return err
		}
		return tx.PutObject(record)
	})
	if err != nil {
		return nil, err
	}
	return entry, nil
}

// Destroy removes the entry for path and its object.
// It reports whether an entry existed.
func (c *Cache) Destroy(ctx context.Context, path string) (bool, error) {
	path = filepath.Clean(path)

	unlock := c.locks.Lock(path)
	defer unlock()

	return c.destroy(ctx, path)
}

func (c *Cache) destroy(ctx context.Context, path string) (bool, error) {
	var existed bool
	err := c.store.Update(ctx, func(tx ports.Tx) error {
		entry, err := tx.Entry(path)
		if err != nil || entry == nil {
			return err
		}
		existed = true
		return tx.DeleteEntry(path)
	})
	return existed, err
}

// Purge destroys every entry whose path lies under root and returns how many were removed.
func (c *Cache) Purge(ctx context.Context, root string) (int, error) {
	entries, err := c.Entries(ctx)
	if err != nil {
		return 0, err
	}

	removed := 0
	for _, entry := range entries {
		if !within(root, entry.Path) {
			continue
		}
		if err := ctx.Err(); err != nil {
			return removed, err
		}
		ok, err := c.Destroy(ctx, entry.Path)
		if err != nil {
			return removed, err
		}
		if ok {
			removed++
		}
	}
	return removed, nil
}

// SyncAll syncs paths on a bounded pool and reports the outcome per path, sorted.
// Per-path failures land on their report item. Only cancellation stops the pool.
func (c *Cache) SyncAll(ctx context.Context, paths []string) (*domain.SyncReport, error) {
	return c.SyncAllN(ctx, paths, 0)
}

// SyncAllN is SyncAll with its own pool bound. Values below one use the configured bound.
func (c *Cache) SyncAllN(ctx context.Context, paths []string, workers int) (*domain.SyncReport, error) {
	if workers < 1 {
		workers = c.workers
	}

	unique := make([]string, 0, len(paths))
	for _, p := range paths {
		unique = append(unique, filepath.Clean(p))
	}
	slices.Sort(unique)
	unique = slices.Compact(unique)

	ctx, span := c.tracer.Start(ctx, "trove.sync_all", trace.WithAttributes(attribute.Int("paths", len(unique))))
	defer span.End()

	report := &domain.SyncReport{Items: make([]domain.SyncItem, len(unique))}

	pool := func(ctx context.Context) error {
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(workers)

		for i, path := range unique {
			g.Go(func() error {
				if err := gctx.Err(); err != nil {
					return err
				}

				result, err := c.Sync(gctx, path)
				item := domain.SyncItem{Path: path, Result: result}
				if err != nil {
					item.Diagnostic = domain.NewDiagnostic(path, err)
				}
				report.Items[i] = item
				return nil
			})
		}
		return g.Wait()
	}

	var err error
	if batcher, ok := c.store.(ports.Batcher); ok {
		err = batcher.Batch(ctx, pool)
	} else {
		err = pool(ctx)
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return report, err
	}

	changed, unchanged, failed := report.Counts()
	span.SetAttributes(
		attribute.Int("changed", changed),
		attribute.Int("unchanged", unchanged),
		attribute.Int("failed", failed),
	)
	return report, nil
}

// Discover returns the scripts under roots matching patterns together with every
// stored entry path, sorted and without duplicates. Stored paths are included so
// that orphaned entries get synced away.
func (c *Cache) Discover(ctx context.Context, roots, patterns []string) ([]string, error) {
	var paths []string
	for _, root := range roots {
		for _, pattern := range patterns {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			matches, err := c.files.Glob(root, pattern)
			if err != nil {
				return nil, err
			}
			paths = append(paths, matches...)
		}
	}

	entries, err := c.Entries(ctx)
	if err != nil {
		return nil, err
	}
	for _, entry := range entries {
		paths = append(paths, entry.Path)
	}

	slices.Sort(paths)
	return slices.Compact(paths), nil
}

func (c *Cache) modTime(path string) (time.Time, error) {
	mtime, err := c.files.ModTime(path)
	if err != nil {
		return time.Time{}, zerr.With(domain.WrapKind(domain.ErrIOFailure, err), "path", path)
	}
	return mtime, nil
}

// within reports whether path is root or lies below it.
func within(root, path string) bool {
	root = filepath.Clean(root)
	if path == root {
		return true
	}
	return strings.HasPrefix(path, root+string(filepath.Separator))
}
