// Package plugin resolves bundles into a dependency graph and dispatches capabilities across it.
package plugin

import (
	"context"
	"slices"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"go.trai.ch/trove/internal/core/domain"
	"go.trai.ch/trove/internal/core/ports"
	"go.trai.ch/zerr"
)

// TracerName is the instrumentation name used when no tracer is configured.
const TracerName = "go.trai.ch/trove/plugin"

// Graph is an arena of bundle nodes keyed by name. Nodes are registered before
// they are built, so cyclic dependencies resolve to the shared node.
type Graph struct {
	registry ports.BundleRegistry
	loader   ports.ContextLoader
	tracer   trace.Tracer

	mu    sync.Mutex
	nodes map[string]*Node
}

// Option configures a Graph.
type Option func(*Graph)

// WithTracer sets the tracer dispatch spans are recorded with.
func WithTracer(tracer trace.Tracer) Option {
	return func(g *Graph) {
		g.tracer = tracer
	}
}

// NewGraph creates an empty Graph.
func NewGraph(registry ports.BundleRegistry, loader ports.ContextLoader, opts ...Option) *Graph {
	g := &Graph{
		registry: registry,
		loader:   loader,
		tracer:   otel.Tracer(TracerName),
		nodes:    make(map[string]*Node),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// build tracks the nodes registered during one root call.
type build struct {
	added []string
}

// Node returns the node for name, building it and its dependencies on first use.
// When building fails, every node registered during the call is dropped.
func (g *Graph) Node(ctx context.Context, name string) (*Node, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	b := &build{}
	n, err := g.resolve(ctx, name, b)
	if err != nil {
		g.rollback(b)
		return nil, err
	}
	return n, nil
}

// Loaded returns the names of the built nodes, sorted.
func (g *Graph) Loaded() []string {
	g.mu.Lock()
	defer g.mu.Unlock()

	names := make([]string, 0, len(g.nodes))
	for name := range g.nodes {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Reset drops every node, so the next lookup sees the current overlays.
func (g *Graph) Reset() {
	g.mu.Lock()
	defer g.mu.Unlock()
	clear(g.nodes)
}

// resolve returns the arena node for name or builds it. The caller holds mu.
func (g *Graph) resolve(ctx context.Context, name string, b *build) (*Node, error) {
	if n, ok := g.nodes[name]; ok {
		return n, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	contributions, err := g.registry.Contributions(name)
	if err != nil {
		return nil, err
	}
	if len(contributions) == 0 {
		return nil, zerr.With(domain.WrapKind(domain.ErrDependencyNotFound, nil), "bundle", name)
	}

	n := &Node{
		Name:  name,
		graph: g,
		deps:  make(map[string]*Node),
	}
	g.nodes[name] = n
	b.added = append(b.added, name)

	for _, contribution := range contributions {
		c, err := loadContext(ctx, g.loader, contribution)
		if err != nil {
			return nil, err
		}
		n.contexts = append(n.contexts, c)
	}

	for _, dep := range n.declared() {
		if _, err := n.depend(ctx, dep, b); err != nil {
			return nil, zerr.With(err, "required_by", name)
		}
	}
	return n, nil
}

func (g *Graph) rollback(b *build) {
	for _, name := range b.added {
		delete(g.nodes, name)
	}
}
