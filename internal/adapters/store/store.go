// Package store implements the persisted cache store as a JSON snapshot file.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"io/fs"
	"maps"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"github.com/spf13/afero"
	"go.trai.ch/trove/internal/core/domain"
	"go.trai.ch/trove/internal/core/ports"
	"go.trai.ch/zerr"
)

var (
	_ ports.Store   = (*Store)(nil)
	_ ports.Batcher = (*Store)(nil)
)

// snapshotVersion is bumped when the file layout changes incompatibly.
const snapshotVersion = 1

type snapshot struct {
	Version int                            `json:"version"`
	Entries map[string]domain.CacheEntry   `json:"entries"`
	Objects map[string]domain.ObjectRecord `json:"objects"`
}

func newSnapshot() *snapshot {
	return &snapshot{
		Version: snapshotVersion,
		Entries: make(map[string]domain.CacheEntry),
		Objects: make(map[string]domain.ObjectRecord),
	}
}

// Store implements ports.Store. The whole cache lives in memory and a
// committed write transaction replaces the file on disk, unless it runs inside
// a batch, in which case the file is written once when the batch ends.
type Store struct {
	fs   afero.Fs
	path string
	mu   sync.RWMutex
	data *snapshot

	batches int
	pending bool
}

// NewStore opens the store at path on the operating system filesystem.
// A missing file is an empty store.
func NewStore(path string) (*Store, error) {
	return NewStoreWithFs(afero.NewOsFs(), path)
}

// NewStoreWithFs opens the store at path on fsys.
func NewStoreWithFs(fsys afero.Fs, path string) (*Store, error) {
	s := &Store{
		fs:   fsys,
		path: filepath.Clean(path),
		data: newSnapshot(),
	}
	if err := s.load(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Store) load() error {
	data, err := afero.ReadFile(s.fs, s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return zerr.With(zerr.Wrap(err, domain.ErrStoreReadFailed.Error()), "path", s.path)
	}

	if len(data) == 0 {
		return nil
	}

	snap := newSnapshot()
	if err := json.Unmarshal(data, snap); err != nil {
		return zerr.With(zerr.Wrap(err, domain.ErrStoreUnmarshalFailed.Error()), "path", s.path)
	}
	if snap.Entries == nil {
		snap.Entries = make(map[string]domain.CacheEntry)
	}
	if snap.Objects == nil {
		snap.Objects = make(map[string]domain.ObjectRecord)
	}
	s.data = snap
	return nil
}

func (s *Store) save(snap *snapshot) error {
	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return zerr.Wrap(err, domain.ErrStoreMarshalFailed.Error())
	}

	if err := s.fs.MkdirAll(filepath.Dir(s.path), domain.DirPerm); err != nil {
		return zerr.With(zerr.Wrap(err, domain.ErrStoreCreateFailed.Error()), "path", s.path)
	}

	tmp := s.path + ".tmp"
	if err := afero.WriteFile(s.fs, tmp, data, domain.FilePerm); err != nil {
		return zerr.With(zerr.Wrap(err, domain.ErrStoreWriteFailed.Error()), "path", tmp)
	}
	if err := s.fs.Rename(tmp, s.path); err != nil {
		return zerr.With(zerr.Wrap(err, domain.ErrStoreWriteFailed.Error()), "path", s.path)
	}
	return nil
}

// Update runs fn against the store. Changes are journaled and undone when fn
// fails or the snapshot cannot be written.
func (s *Store) Update(ctx context.Context, fn func(tx ports.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	t := &tx{data: s.data, writable: true}
	if err := fn(t); err != nil {
		t.rollback()
		return err
	}
	if len(t.undo) == 0 {
		return nil
	}

	if s.batches > 0 {
		s.pending = true
		return nil
	}
	if err := s.save(s.data); err != nil {
		t.rollback()
		return err
	}
	return nil
}

// Batch runs fn with persistence deferred: transactions committed inside fn
// update the in-memory store, and the snapshot is written once when the
// outermost batch ends. A failed final write keeps the changes pending for
// the next commit.
func (s *Store) Batch(ctx context.Context, fn func(ctx context.Context) error) error {
	s.mu.Lock()
	s.batches++
	s.mu.Unlock()

	err := fn(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()

	s.batches--
	if s.batches > 0 || !s.pending {
		return err
	}
	if saveErr := s.save(s.data); saveErr != nil {
		return errors.Join(err, saveErr)
	}
	s.pending = false
	return err
}

// View runs fn against the current store. Writes fail with domain.ErrReadOnlyTransaction.
func (s *Store) View(ctx context.Context, fn func(tx ports.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	return fn(&tx{data: s.data})
}

// Close writes changes still pending from an interrupted batch.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.pending {
		return nil
	}
	if err := s.save(s.data); err != nil {
		return err
	}
	s.pending = false
	return nil
}

type tx struct {
	data     *snapshot
	writable bool
	undo     []func()
}

func (t *tx) write() error {
	if !t.writable {
		return domain.ErrReadOnlyTransaction
	}
	return nil
}

// rollback undoes every change in reverse order.
func (t *tx) rollback() {
	for i := len(t.undo) - 1; i >= 0; i-- {
		t.undo[i]()
	}
	t.undo = nil
}

func (t *tx) setEntry(path string, entry domain.CacheEntry, keep bool) {
	prev, had := t.data.Entries[path]
	t.undo = append(t.undo, func() {
		if had {
			t.data.Entries[path] = prev
		} else {
			delete(t.data.Entries, path)
		}
	})
	if keep {
		t.data.Entries[path] = entry
	} else {
		delete(t.data.Entries, path)
	}
}

func (t *tx) setObject(id string, object domain.ObjectRecord, keep bool) {
	prev, had := t.data.Objects[id]
	t.undo = append(t.undo, func() {
		if had {
			t.data.Objects[id] = prev
		} else {
			delete(t.data.Objects, id)
		}
	})
	if keep {
		t.data.Objects[id] = object
	} else {
		delete(t.data.Objects, id)
	}
}

func (t *tx) Entry(path string) (*domain.CacheEntry, error) {
	entry, ok := t.data.Entries[path]
	if !ok {
		return nil, nil
	}
	return &entry, nil
}

func (t *tx) Entries() ([]domain.CacheEntry, error) {
	entries := slices.Collect(maps.Values(t.data.Entries))
	slices.SortFunc(entries, func(a, b domain.CacheEntry) int {
		return strings.Compare(a.Path, b.Path)
	})
	return entries, nil
}

func (t *tx) PutEntry(entry domain.CacheEntry) error {
	if err := t.write(); err != nil {
		return err
	}
	entry.Diagnostic = nil
	t.setEntry(entry.Path, entry, true)
	return nil
}

func (t *tx) DeleteEntry(path string) error {
	entry, ok := t.data.Entries[path]
	if !ok {
		return nil
	}
	if err := t.write(); err != nil {
		return err
	}

	t.setEntry(path, domain.CacheEntry{}, false)
	owned := []string{entry.ObjectID}
	for id, object := range t.data.Objects {
		if object.EntryPath == path {
			owned = append(owned, id)
		}
	}
	for _, id := range owned {
		if _, ok := t.data.Objects[id]; ok {
			t.setObject(id, domain.ObjectRecord{}, false)
		}
	}
	return nil
}

func (t *tx) Object(id string) (*domain.ObjectRecord, error) {
	object, ok := t.data.Objects[id]
	if !ok {
		return nil, nil
	}
	return &object, nil
}

func (t *tx) Objects(typeName string) ([]domain.ObjectRecord, error) {
	objects := make([]domain.ObjectRecord, 0, len(t.data.Objects))
	for _, object := range t.data.Objects {
		if typeName == "" || object.TypeName == typeName {
			objects = append(objects, object)
		}
	}
	slices.SortFunc(objects, func(a, b domain.ObjectRecord) int {
		return strings.Compare(a.ID, b.ID)
	})
	return objects, nil
}

func (t *tx) PutObject(object domain.ObjectRecord) error {
	if err := t.write(); err != nil {
		return err
	}
	t.setObject(object.ID, object, true)
	return nil
}

func (t *tx) DeleteObject(id string) error {
	if _, ok := t.data.Objects[id]; !ok {
		return nil
	}
	if err := t.write(); err != nil {
		return err
	}
	t.setObject(id, domain.ObjectRecord{}, false)
	return nil
}
