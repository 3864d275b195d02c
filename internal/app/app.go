// Package app implements the application layer for trove.
package app

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/zclconf/go-cty/cty"
	"go.trai.ch/trove/internal/adapters/watcher"
	"go.trai.ch/trove/internal/core/cacheable"
	"go.trai.ch/trove/internal/core/domain"
	"go.trai.ch/trove/internal/core/ports"
	"go.trai.ch/trove/internal/engine/cache"
	"go.trai.ch/trove/internal/engine/plugin"
	"go.trai.ch/zerr"
)

// App represents the main application logic.
type App struct {
	config     *domain.Config
	logger     ports.Logger
	registry   ports.BundleRegistry
	cache      *cache.Cache
	graph      *plugin.Graph
	repository *cacheable.Repository
	watcher    ports.Watcher
	store      ports.Store

	debounce time.Duration
	maxWait  time.Duration
}

// New creates a new App instance.
func New(
	cfg *domain.Config,
	log ports.Logger,
	registry ports.BundleRegistry,
	c *cache.Cache,
	graph *plugin.Graph,
	repository *cacheable.Repository,
	w ports.Watcher,
	store ports.Store,
) *App {
	return &App{
		config:     cfg,
		logger:     log,
		registry:   registry,
		cache:      c,
		graph:      graph,
		repository: repository,
		watcher:    w,
		store:      store,
		debounce:   watcher.DefaultDebounceWindow,
		maxWait:    watcher.DefaultMaxWait,
	}
}

// WithDebounce sets the quiet window and the upper bound used by Watch.
func (a *App) WithDebounce(window, maxWait time.Duration) *App {
	a.debounce = window
	a.maxWait = maxWait
	return a
}

// SetJSONLogs switches the logger to JSON output when it supports it.
func (a *App) SetJSONLogs(enabled bool) {
	if l, ok := a.logger.(interface{ SetJSON(bool) }); ok {
		l.SetJSON(enabled)
	}
}

// Close releases the watcher and the store.
func (a *App) Close() error {
	var errs []error
	if a.watcher != nil {
		errs = append(errs, a.watcher.Stop())
	}
	if a.store != nil {
		errs = append(errs, a.store.Close())
	}
	return errors.Join(errs...)
}

// SyncOptions configuration for the Sync method.
type SyncOptions struct {
	// Paths limits the sync to these files. Empty means every discovered script.
	Paths []string
	// Workers bounds the pool for this pass. Zero keeps the configured bound.
	Workers int
}

// Sync brings the cache in line with the scripts on disk.
// Per-entry failures are on the report; the error is reserved for cancellation
// and infrastructure failures.
func (a *App) Sync(ctx context.Context, opts SyncOptions) (*domain.SyncReport, error) {
	paths := make([]string, 0, len(opts.Paths))
	for _, p := range opts.Paths {
		paths = append(paths, a.absolute(p))
	}

	if len(paths) == 0 {
		discovered, err := a.cache.Discover(ctx, a.roots(), a.config.Scripts)
		if err != nil {
			return nil, err
		}
		paths = discovered
	}

	return a.cache.SyncAllN(ctx, paths, opts.Workers)
}

// AddOverlay registers the directory at path under name.
func (a *App) AddOverlay(_ context.Context, name, path, uri string) (domain.Overlay, error) {
	overlay := domain.Overlay{
		Name:      name,
		Path:      a.absolute(path),
		URI:       uri,
		Installed: true,
	}
	if err := a.registry.Add(overlay); err != nil {
		return domain.Overlay{}, err
	}
	a.graph.Reset()

	added, _ := a.registry.Overlay(name)
	a.logger.Info(fmt.Sprintf("added overlay %s at %s", added.Name, added.Path))
	return added, nil
}

// RemoveOverlay unregisters the named overlay and purges the entries under its root.
// It returns the number of purged entries.
func (a *App) RemoveOverlay(ctx context.Context, name string) (int, error) {
	removed, err := a.registry.Remove(name)
	if err != nil {
		return 0, err
	}
	a.graph.Reset()

	purged, err := a.cache.Purge(ctx, removed.Path)
	if err != nil {
		return purged, zerr.With(err, "overlay", name)
	}
	a.logger.Info(fmt.Sprintf("removed overlay %s, purged %d entries", name, purged))
	return purged, nil
}

// UpdateOverlay stamps the named overlay, optionally replacing its URI, and
// resyncs the scripts under its root.
func (a *App) UpdateOverlay(ctx context.Context, name, uri string) (*domain.SyncReport, error) {
	overlay, ok := a.registry.Overlay(name)
	if !ok {
		return nil, zerr.With(domain.WrapKind(domain.ErrOverlayNotFound, nil), "name", name)
	}
	if uri != "" {
		overlay.URI = uri
	}
	overlay.Installed = true
	if err := a.registry.Update(overlay); err != nil {
		return nil, err
	}
	a.graph.Reset()

	paths, err := a.cache.Discover(ctx, []string{overlay.Path}, a.config.Scripts)
	if err != nil {
		return nil, err
	}
	paths = slices.DeleteFunc(paths, func(p string) bool {
		return !strings.HasPrefix(p, overlay.Path+string(filepath.Separator))
	})
	return a.cache.SyncAll(ctx, paths)
}

// Overlays returns the registered overlays in registration order.
func (a *App) Overlays() []domain.Overlay {
	return a.registry.Overlays()
}

// BundleInfo names a bundle and the overlays contributing it.
type BundleInfo struct {
	Name     string   `json:"name"`
	Overlays []string `json:"overlays"`
}

// Bundles lists every bundle with its contributing overlays.
func (a *App) Bundles(_ context.Context) ([]BundleInfo, error) {
	names, err := a.registry.BundleNames()
	if err != nil {
		return nil, err
	}

	bundles := make([]BundleInfo, 0, len(names))
	for _, name := range names {
		contributions, err := a.registry.Contributions(name)
		if err != nil {
			return nil, err
		}
		info := BundleInfo{Name: name}
		for _, c := range contributions {
			info.Overlays = append(info.Overlays, c.Overlay.Name)
		}
		bundles = append(bundles, info)
	}
	return bundles, nil
}

// DefaultMethod is the capability Run invokes when none is given.
const DefaultMethod = "main"

// RunOptions configuration for the Run method.
type RunOptions struct {
	Method string
	Once   bool
	Args   []string
}

// Run dispatches a capability across the named bundle and its dependencies.
// Every argument is passed as a string.
func (a *App) Run(ctx context.Context, bundle string, opts RunOptions) ([]cty.Value, error) {
	method := opts.Method
	if method == "" {
		method = DefaultMethod
	}

	node, err := a.graph.Node(ctx, bundle)
	if err != nil {
		return nil, err
	}

	args := stringValues(opts.Args)
	if opts.Once {
		result, err := node.DistributeOnce(ctx, method, args...)
		if err != nil {
			return nil, err
		}
		return []cty.Value{result}, nil
	}
	return node.DistributeCall(ctx, method, args...)
}

// ObjectInfo describes a cached object.
type ObjectInfo struct {
	ID   string `json:"id"`
	Type string `json:"type"`
	Name string `json:"name"`
	Path string `json:"path"`
}

// ListObjects lists cached objects, optionally restricted to one type.
func (a *App) ListObjects(ctx context.Context, typeName string) ([]ObjectInfo, error) {
	objects, err := a.repository.All(ctx, typeName)
	if err != nil {
		return nil, err
	}

	infos := make([]ObjectInfo, 0, len(objects))
	for _, obj := range objects {
		m := cacheable.MetaOf(obj)
		info := ObjectInfo{ID: m.ID, Type: m.Type, Name: m.Name}
		if m.Entry != nil {
			info.Path = m.Entry.Path
		}
		infos = append(infos, info)
	}
	return infos, nil
}

// Call invokes a capability of a cached object, materializing it when needed.
func (a *App) Call(ctx context.Context, id, capability string, args []string) (cty.Value, error) {
	obj, err := a.repository.Find(ctx, id)
	if err != nil {
		return cty.NilVal, err
	}
	return cacheable.MetaOf(obj).Call(ctx, capability, stringValues(args)...)
}

// Watch syncs changed scripts under every overlay root until ctx is done.
// onReport receives each batch's report.
func (a *App) Watch(ctx context.Context, onReport func(*domain.SyncReport)) error {
	roots := a.roots()
	if len(roots) == 0 {
		a.logger.Warn("no overlays registered, nothing to watch")
		return nil
	}

	debouncer := watcher.NewDebouncerWithMaxWait(a.debounce, a.maxWait, func(paths []string) {
		report, err := a.cache.SyncAll(ctx, paths)
		if err != nil {
			if ctx.Err() == nil {
				a.logger.Error(err)
			}
			return
		}
		if onReport != nil {
			onReport(report)
		}
	})

	if err := a.watcher.Start(ctx, roots); err != nil {
		return err
	}
	a.logger.Info(fmt.Sprintf("watching %d overlays", len(roots)))

	go func() {
		<-ctx.Done()
		_ = a.watcher.Stop()
	}()

	for event := range a.watcher.Events() {
		if filepath.Ext(event.Path) != domain.SourceExt {
			continue
		}
		debouncer.Add(event.Path)
	}
	debouncer.Flush()
	return nil
}

func (a *App) roots() []string {
	overlays := a.registry.Overlays()
	roots := make([]string, 0, len(overlays))
	for _, o := range overlays {
		roots = append(roots, o.Path)
	}
	return roots
}

func (a *App) absolute(path string) string {
	if filepath.IsAbs(path) {
		return filepath.Clean(path)
	}
	return filepath.Join(a.config.Root, path)
}

func stringValues(args []string) []cty.Value {
	values := make([]cty.Value, 0, len(args))
	for _, arg := range args {
		values = append(values, cty.StringVal(arg))
	}
	return values
}
