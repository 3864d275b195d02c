package ports

import (
	"context"

	"go.trai.ch/trove/internal/core/domain"
)

// Store persists cache entries and the objects they own.
//
//go:generate mockgen -source=store.go -destination=mocks/mock_store.go -package=mocks
type Store interface {
	// Update runs fn in a read-write transaction. Changes are committed only if fn returns nil.
	Update(ctx context.Context, fn func(tx Tx) error) error

	// View runs fn in a read-only transaction.
	View(ctx context.Context, fn func(tx Tx) error) error

	// Close releases the resources held by the store.
	Close() error
}

// Tx is a store transaction.
type Tx interface {
	// Entry returns the entry for path, or nil, nil if there is none.
	Entry(path string) (*domain.CacheEntry, error)

	// Entries returns every entry ordered by path.
	Entries() ([]domain.CacheEntry, error)

	// PutEntry inserts or replaces the entry keyed by its path.
	PutEntry(entry domain.CacheEntry) error

	// DeleteEntry removes the entry for path and the object it owns.
	// Deleting an absent entry is not an error.
	DeleteEntry(path string) error

	// Object returns the object with the given id, or nil, nil if there is none.
	Object(id string) (*domain.ObjectRecord, error)

	// Objects returns the objects of a type ordered by id. An empty typeName returns all objects.
	Objects(typeName string) ([]domain.ObjectRecord, error)

	// PutObject inserts or replaces the object keyed by its id.
	PutObject(object domain.ObjectRecord) error

	// DeleteObject removes the object with the given id.
	DeleteObject(id string) error
}

// Batcher is implemented by stores that can defer persistence across many
// write transactions. Commits inside fn are visible immediately and reach
// durable storage when the outermost batch ends.
type Batcher interface {
	Batch(ctx context.Context, fn func(ctx context.Context) error) error
}
