// Package cacheable defines the objects produced by materializing context blocks.
//
// An object exists in one of two states. A skeleton carries only the attributes
// that were persisted; a materialized object has also evaluated its block's
// function definitions into a capability table. Skeletons materialize lazily
// the first time a capability lookup misses.
package cacheable

import (
	"context"
	"slices"
	"sync"

	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/function"
	"go.trai.ch/trove/internal/core/domain"
	"go.trai.ch/trove/internal/core/ports"
	"go.trai.ch/zerr"
)

// Object is a cacheable value. Types satisfy it by embedding Meta.
type Object interface {
	meta() *Meta
}

// Validator is implemented by objects that check their own attributes
// before they are persisted.
type Validator interface {
	Validate() error
}

// Meta carries the identity and lifecycle state shared by every cacheable type.
type Meta struct {
	ID    string             `json:"-"`
	Name  string             `json:"-"`
	Type  string             `json:"-"`
	Entry *domain.CacheEntry `json:"-"`

	mu           sync.Mutex
	materialized bool
	capabilities map[string]function.Function
	loader       ports.ContextLoader
}

func (m *Meta) meta() *Meta {
	return m
}

// MetaOf returns the Meta embedded in obj.
func MetaOf(obj Object) *Meta {
	return obj.meta()
}

// Bind sets the owning cache entry and the loader used to materialize the object later.
func (m *Meta) Bind(entry *domain.CacheEntry, loader ports.ContextLoader) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Entry = entry
	m.loader = loader
}

// Materialized reports whether the object's block has been evaluated.
func (m *Meta) Materialized() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.materialized
}

// HasCapability reports whether the capability table has name. It never materializes.
func (m *Meta) HasCapability(name string) bool {
	_, ok := m.lookup(name)
	return ok
}

// Capabilities returns the sorted names in the capability table.
func (m *Meta) Capabilities() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	names := make([]string, 0, len(m.capabilities))
	for name := range m.capabilities {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Materialize evaluates the object's block into it, once.
// It returns false when the object was already materialized.
// Persisted attributes are kept; only the capability table is rebuilt.
func (m *Meta) Materialize(ctx context.Context) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.materialized {
		return false, nil
	}

	if m.Entry != nil && m.loader != nil {
		blocks, err := m.loader.Load(ctx, m.Entry.Path)
		if err != nil {
			return false, err
		}

		block, ok := m.find(blocks)
		if !ok {
			err := domain.WrapKind(domain.ErrEvaluationException, domain.ErrDefinitionMissing)
			return false, m.annotate(zerr.With(err, "path", m.Entry.Path))
		}

		caps, _, diags := DecodeCapabilities(block)
		if diags.HasErrors() {
			return false, m.annotate(domain.WrapKind(domain.ErrEvaluationException, diags))
		}
		m.capabilities = caps
	}

	m.materialized = true
	return true, nil
}

// Capability returns the named capability, materializing the object if the
// first lookup misses.
func (m *Meta) Capability(ctx context.Context, name string) (function.Function, error) {
	if fn, ok := m.lookup(name); ok {
		return fn, nil
	}

	if _, err := m.Materialize(ctx); err != nil {
		return function.Function{}, err
	}

	if fn, ok := m.lookup(name); ok {
		return fn, nil
	}

	err := zerr.With(domain.WrapKind(domain.ErrCapabilityNotFound, nil), "capability", name)
	return function.Function{}, m.annotate(err)
}

// Call invokes the named capability with args.
func (m *Meta) Call(ctx context.Context, name string, args ...cty.Value) (cty.Value, error) {
	fn, err := m.Capability(ctx, name)
	if err != nil {
		return cty.NilVal, err
	}

	val, err := fn.Call(args)
	if err != nil {
		err = zerr.With(domain.WrapKind(domain.ErrEvaluationException, err), "capability", name)
		return cty.NilVal, m.annotate(err)
	}
	return val, nil
}

func (m *Meta) lookup(name string) (function.Function, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	fn, ok := m.capabilities[name]
	return fn, ok
}

// find returns the block of this object's exact type and, when set, name.
func (m *Meta) find(blocks []domain.ContextBlock) (domain.ContextBlock, bool) {
	for _, block := range blocks {
		if block.Tag != m.Type {
			continue
		}
		if m.Name != "" && block.Name() != m.Name {
			continue
		}
		return block, true
	}
	return domain.ContextBlock{}, false
}

func (m *Meta) annotate(err error) error {
	err = zerr.With(err, "type", m.Type)
	if m.Name != "" {
		err = zerr.With(err, "name", m.Name)
	}
	return err
}
