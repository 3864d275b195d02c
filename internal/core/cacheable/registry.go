package cacheable

import (
	"fmt"
	"sync"

	"go.trai.ch/trove/internal/core/domain"
	"go.trai.ch/zerr"
)

// Factory returns a fresh, zero-valued object.
type Factory func() Object

// Registry maps block tags to cacheable types, in registration order.
type Registry struct {
	mu        sync.RWMutex
	tags      []string
	factories map[string]Factory
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]Factory)}
}

// Register adds a type under tag. Registering the same tag twice panics.
func (r *Registry) Register(tag string, factory Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.factories[tag]; ok {
		panic(fmt.Sprintf("cacheable: type %q registered twice", tag))
	}
	r.tags = append(r.tags, tag)
	r.factories[tag] = factory
}

// New instantiates the type registered under tag.
func (r *Registry) New(tag string) (Object, error) {
	r.mu.RLock()
	factory, ok := r.factories[tag]
	r.mu.RUnlock()

	if !ok {
		return nil, zerr.With(domain.WrapKind(domain.ErrValidationFailure, domain.ErrUnknownType), "type", tag)
	}

	obj := factory()
	obj.meta().Type = tag
	return obj, nil
}

// Recognizes reports whether tag is a registered type.
func (r *Registry) Recognizes(tag string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.factories[tag]
	return ok
}

// Tags returns the registered tags in registration order.
func (r *Registry) Tags() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]string(nil), r.tags...)
}

// First returns the first block whose tag is registered, in block order.
func (r *Registry) First(blocks []domain.ContextBlock) (domain.ContextBlock, bool) {
	for _, block := range blocks {
		if r.Recognizes(block.Tag) {
			return block, true
		}
	}
	return domain.ContextBlock{}, false
}
