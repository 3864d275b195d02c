// Package overlays implements the bundle registry over registered overlay directories.
package overlays

import (
	"errors"
	iofs "io/fs"
	"path/filepath"
	"slices"
	"sync"
	"time"

	"github.com/spf13/afero"
	"go.trai.ch/trove/internal/core/domain"
	"go.trai.ch/trove/internal/core/ports"
	"go.trai.ch/zerr"
	"gopkg.in/yaml.v3"
)

var _ ports.BundleRegistry = (*Registry)(nil)

const fileVersion = "1"

var errNotDirectory = zerr.New("not a directory")

// file is the on-disk layout of overlays.yaml.
type file struct {
	Version  string           `yaml:"version"`
	Overlays []domain.Overlay `yaml:"overlays"`
}

// Registry implements ports.BundleRegistry. Overlays keep registration order.
// A Registry without a path is never persisted.
type Registry struct {
	mu         sync.RWMutex
	files      ports.FileSystem
	fs         afero.Fs
	path       string
	bundlesDir string
	overlays   []domain.Overlay
	now        func() time.Time
}

// NewRegistry creates an in-memory registry discovering bundles through files.
func NewRegistry(files ports.FileSystem, bundlesDir string) *Registry {
	if bundlesDir == "" {
		bundlesDir = domain.DefaultBundlesDir
	}
	return &Registry{
		files:      files,
		bundlesDir: bundlesDir,
		now:        time.Now,
	}
}

// Open loads the registry persisted at path on fsys. A missing file is an empty registry.
func Open(fsys afero.Fs, files ports.FileSystem, path, bundlesDir string) (*Registry, error) {
	r := NewRegistry(files, bundlesDir)
	r.fs = fsys
	r.path = filepath.Clean(path)

	data, err := afero.ReadFile(fsys, r.path)
	if err != nil {
		if errors.Is(err, iofs.ErrNotExist) {
			return r, nil
		}
		return nil, zerr.With(zerr.Wrap(err, domain.ErrRegistryReadFailed.Error()), "path", r.path)
	}

	var f file
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, zerr.With(zerr.Wrap(err, domain.ErrRegistryReadFailed.Error()), "path", r.path)
	}
	r.overlays = f.Overlays
	return r, nil
}

// Overlays returns the registered overlays in registration order.
func (r *Registry) Overlays() []domain.Overlay {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Clone(r.overlays)
}

// Overlay returns the overlay registered under name.
func (r *Registry) Overlay(name string) (domain.Overlay, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	i := r.index(name)
	if i < 0 {
		return domain.Overlay{}, false
	}
	return r.overlays[i], true
}

// BundleNames returns the sorted union of bundle names across overlays.
func (r *Registry) BundleNames() ([]string, error) {
	overlays := r.Overlays()

	seen := make(map[string]struct{})
	for _, overlay := range overlays {
		dir := r.bundlesRoot(overlay)
		infos, err := r.files.ReadDir(dir)
		if err != nil {
			if errors.Is(err, iofs.ErrNotExist) {
				continue
			}
			return nil, zerr.With(zerr.Wrap(err, domain.ErrDiscoveryFailed.Error()), "path", dir)
		}
		for _, info := range infos {
			if !info.IsDir() {
				continue
			}
			ok, err := r.files.Exists(domain.BundleEntryPath(filepath.Join(dir, info.Name()), info.Name()))
			if err != nil {
				return nil, err
			}
			if ok {
				seen[info.Name()] = struct{}{}
			}
		}
	}

	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	slices.Sort(names)
	return names, nil
}

// Contributions returns every contribution of the named bundle in overlay registration order.
func (r *Registry) Contributions(name string) ([]domain.Contribution, error) {
	if name == "" || name != filepath.Base(name) {
		return []domain.Contribution{}, nil
	}

	contributions := []domain.Contribution{}
	for _, overlay := range r.Overlays() {
		root := filepath.Join(r.bundlesRoot(overlay), name)
		ok, err := r.files.Exists(domain.BundleEntryPath(root, name))
		if err != nil {
			return nil, err
		}
		if ok {
			contributions = append(contributions, domain.Contribution{
				Overlay: overlay,
				Bundle:  name,
				Root:    root,
			})
		}
	}
	return contributions, nil
}

// HasBundle reports whether any overlay contributes the named bundle.
func (r *Registry) HasBundle(name string) (bool, error) {
	contributions, err := r.Contributions(name)
	if err != nil {
		return false, err
	}
	return len(contributions) > 0, nil
}

// Add registers overlay after the existing ones and persists the registry.
func (r *Registry) Add(overlay domain.Overlay) error {
	if overlay.Name == "" {
		return domain.WrapKind(domain.ErrInvalidOverlay, nil)
	}
	overlay.Path = filepath.Clean(overlay.Path)
	info, err := r.files.Stat(overlay.Path)
	if err != nil {
		return zerr.With(domain.WrapKind(domain.ErrInvalidOverlay, err), "path", overlay.Path)
	}
	if !info.IsDir() {
		return zerr.With(domain.WrapKind(domain.ErrInvalidOverlay, errNotDirectory), "path", overlay.Path)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.overlays {
		if existing.Name == overlay.Name {
			return zerr.With(domain.WrapKind(domain.ErrDuplicateOverlay, nil), "name", overlay.Name)
		}
		if existing.Path == overlay.Path {
			return zerr.With(zerr.With(domain.WrapKind(domain.ErrDuplicateOverlay, nil),
				"path", overlay.Path), "registered_as", existing.Name)
		}
	}

	if overlay.AddedAt.IsZero() {
		overlay.AddedAt = r.now().UTC()
	}
	previous := r.overlays
	r.overlays = append(slices.Clone(r.overlays), overlay)
	if err := r.save(); err != nil {
		r.overlays = previous
		return err
	}
	return nil
}

// Update replaces the URI and install state of a registered overlay and stamps it.
// The name and root path cannot change.
func (r *Registry) Update(overlay domain.Overlay) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	i := r.index(overlay.Name)
	if i < 0 {
		return zerr.With(domain.WrapKind(domain.ErrOverlayNotFound, nil), "name", overlay.Name)
	}

	previous := r.overlays
	r.overlays = slices.Clone(r.overlays)
	current := &r.overlays[i]
	current.URI = overlay.URI
	current.Installed = overlay.Installed
	current.UpdatedAt = r.now().UTC()
	if err := r.save(); err != nil {
		r.overlays = previous
		return err
	}
	return nil
}

// Remove unregisters the named overlay and returns it.
func (r *Registry) Remove(name string) (domain.Overlay, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	i := r.index(name)
	if i < 0 {
		return domain.Overlay{}, zerr.With(domain.WrapKind(domain.ErrOverlayNotFound, nil), "name", name)
	}

	removed := r.overlays[i]
	previous := r.overlays
	r.overlays = slices.Delete(slices.Clone(r.overlays), i, i+1)
	if err := r.save(); err != nil {
		r.overlays = previous
		return domain.Overlay{}, err
	}
	return removed, nil
}

func (r *Registry) index(name string) int {
	return slices.IndexFunc(r.overlays, func(o domain.Overlay) bool { return o.Name == name })
}

func (r *Registry) bundlesRoot(overlay domain.Overlay) string {
	return filepath.Join(overlay.Path, r.bundlesDir)
}

// save writes the registry. The caller holds mu.
func (r *Registry) save() error {
	if r.path == "" {
		return nil
	}

	data, err := yaml.Marshal(file{Version: fileVersion, Overlays: r.overlays})
	if err != nil {
		return zerr.Wrap(err, domain.ErrRegistryWriteFailed.Error())
	}
	if err := r.fs.MkdirAll(filepath.Dir(r.path), domain.DirPerm); err != nil {
		return zerr.With(zerr.Wrap(err, domain.ErrRegistryWriteFailed.Error()), "path", r.path)
	}

	tmp := r.path + ".tmp"
	if err := afero.WriteFile(r.fs, tmp, data, domain.FilePerm); err != nil {
		return zerr.With(zerr.Wrap(err, domain.ErrRegistryWriteFailed.Error()), "path", tmp)
	}
	if err := r.fs.Rename(tmp, r.path); err != nil {
		return zerr.With(zerr.Wrap(err, domain.ErrRegistryWriteFailed.Error()), "path", r.path)
	}
	return nil
}
