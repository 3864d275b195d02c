package cacheable

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/cespare/xxhash/v2"
	"go.trai.ch/trove/internal/core/domain"
	"go.trai.ch/trove/internal/core/ports"
	"go.trai.ch/zerr"
)

// ObjectID derives the stable id of the object a block defines.
func ObjectID(path, tag, name string) string {
	d := xxhash.New()
	_, _ = d.WriteString(path)
	_, _ = d.WriteString("\x00")
	_, _ = d.WriteString(tag)
	_, _ = d.WriteString("\x00")
	_, _ = d.WriteString(name)
	return fmt.Sprintf("%016x", d.Sum64())
}

// Record encodes obj into its persisted form.
func Record(obj Object) (domain.ObjectRecord, error) {
	m := obj.meta()
	attrs, err := json.Marshal(obj)
	if err != nil {
		return domain.ObjectRecord{}, zerr.With(zerr.Wrap(err, domain.ErrStoreMarshalFailed.Error()), "type", m.Type)
	}

	record := domain.ObjectRecord{
		ID:         m.ID,
		TypeName:   m.Type,
		Name:       m.Name,
		Attributes: attrs,
	}
	if m.Entry != nil {
		record.EntryPath = m.Entry.Path
	}
	return record, nil
}

// Repository rehydrates persisted objects as skeletons.
// Every query returns new instances.
type Repository struct {
	registry *Registry
	store    ports.Store
	loader   ports.ContextLoader
}

// NewRepository creates a Repository.
func NewRepository(registry *Registry, store ports.Store, loader ports.ContextLoader) *Repository {
	return &Repository{registry: registry, store: store, loader: loader}
}

// Find returns the object with the given id. It fails with domain.ErrObjectNotFound when absent.
func (r *Repository) Find(ctx context.Context, id string) (Object, error) {
	var obj Object
	err := r.store.View(ctx, func(tx ports.Tx) error {
		record, err := tx.Object(id)
		if err != nil {
			return err
		}
		if record == nil {
			return zerr.With(zerr.Wrap(domain.ErrObjectNotFound, ""), "id", id)
		}

		entry, err := tx.Entry(record.EntryPath)
		if err != nil {
			return err
		}

		obj, err = r.Skeleton(*record, entry)
		return err
	})
	if err != nil {
		return nil, err
	}
	return obj, nil
}

// All returns every object of typeName ordered by id, or every object when typeName is empty.
func (r *Repository) All(ctx context.Context, typeName string) ([]Object, error) {
	var objs []Object
	err := r.store.View(ctx, func(tx ports.Tx) error {
		records, err := tx.Objects(typeName)
		if err != nil {
			return err
		}

		objs = make([]Object, 0, len(records))
		for _, record := range records {
			entry, err := tx.Entry(record.EntryPath)
			if err != nil {
				return err
			}
			obj, err := r.Skeleton(record, entry)
			if err != nil {
				return err
			}
			objs = append(objs, obj)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return objs, nil
}

// Skeleton instantiates record's type and restores its persisted attributes.
// The result is not materialized.
func (r *Repository) Skeleton(record domain.ObjectRecord, entry *domain.CacheEntry) (Object, error) {
	obj, err := r.registry.New(record.TypeName)
	if err != nil {
		return nil, zerr.With(err, "id", record.ID)
	}

	if len(record.Attributes) > 0 {
		if err := json.Unmarshal(record.Attributes, obj); err != nil {
			err = zerr.Wrap(err, domain.ErrStoreUnmarshalFailed.Error())
			return nil, zerr.With(err, "id", record.ID)
		}
	}

	m := obj.meta()
	m.ID = record.ID
	m.Name = record.Name
	m.Bind(entry, r.loader)
	return obj, nil
}
