package plugin

import (
	"context"

	"github.com/zclconf/go-cty/cty"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.trai.ch/trove/internal/core/domain"
	"go.trai.ch/zerr"
)

// Node is a bundle: one context per contributing overlay and its resolved dependencies.
type Node struct {
	Name string

	graph    *Graph
	contexts []*Context
	deps     map[string]*Node
	order    []string
}

// Contexts returns the node's contexts in overlay registration order.
func (n *Node) Contexts() []*Context {
	return append([]*Context(nil), n.contexts...)
}

// Dependencies returns the resolved dependencies in declaration order.
func (n *Node) Dependencies() []*Node {
	n.graph.mu.Lock()
	defer n.graph.mu.Unlock()

	deps := make([]*Node, 0, len(n.order))
	for _, name := range n.order {
		deps = append(deps, n.deps[name])
	}
	return deps
}

// Depend returns the node for name, resolving and memoizing it on first use.
// A node depends on itself by its own name.
func (n *Node) Depend(ctx context.Context, name string) (*Node, error) {
	n.graph.mu.Lock()
	defer n.graph.mu.Unlock()

	b := &build{}
	dep, err := n.depend(ctx, name, b)
	if err != nil {
		n.graph.rollback(b)
		return nil, err
	}
	return dep, nil
}

// depend does the work of Depend. The caller holds the graph lock.
func (n *Node) depend(ctx context.Context, name string, b *build) (*Node, error) {
	if name == n.Name {
		return n, nil
	}
	if dep, ok := n.deps[name]; ok {
		return dep, nil
	}

	dep, err := n.graph.resolve(ctx, name, b)
	if err != nil {
		return nil, err
	}
	n.deps[name] = dep
	n.order = append(n.order, name)
	return dep, nil
}

// declared returns the union of depends_on across contexts, first declaration first.
func (n *Node) declared() []string {
	seen := make(map[string]bool)
	var names []string
	for _, c := range n.contexts {
		for _, name := range c.DependsOn {
			if !seen[name] {
				seen[name] = true
				names = append(names, name)
			}
		}
	}
	return names
}

// DistributeCall invokes method on every context that defines it: this node's
// contexts first, then each dependency depth-first in declaration order.
func (n *Node) DistributeCall(ctx context.Context, method string, args ...cty.Value) (results []cty.Value, err error) {
	ctx, span := n.graph.tracer.Start(ctx, "trove.distribute", trace.WithAttributes(
		attribute.String("bundle", n.Name),
		attribute.String("method", method),
	))
	defer func() { endSpan(span, err) }()

	targets, err := n.targets(method)
	if err != nil {
		return nil, err
	}

	results = make([]cty.Value, 0, len(targets))
	for _, c := range targets {
		result, err := c.Call(ctx, method, args...)
		if err != nil {
			return nil, err
		}
		results = append(results, result)
	}
	return results, nil
}

// DistributeOnce invokes method on the first context DistributeCall would reach.
func (n *Node) DistributeOnce(ctx context.Context, method string, args ...cty.Value) (result cty.Value, err error) {
	ctx, span := n.graph.tracer.Start(ctx, "trove.distribute_once", trace.WithAttributes(
		attribute.String("bundle", n.Name),
		attribute.String("method", method),
	))
	defer func() { endSpan(span, err) }()

	targets, err := n.targets(method)
	if err != nil {
		return cty.NilVal, err
	}
	return targets[0].Call(ctx, method, args...)
}

// targets returns the contexts defining method in traversal order.
func (n *Node) targets(method string) ([]*Context, error) {
	n.graph.mu.Lock()
	var targets []*Context
	for _, c := range n.traverse() {
		if c.HasCapability(method) {
			targets = append(targets, c)
		}
	}
	n.graph.mu.Unlock()

	if len(targets) == 0 {
		err := zerr.With(domain.WrapKind(domain.ErrCapabilityNotFound, nil), "bundle", n.Name)
		return nil, zerr.With(err, "method", method)
	}
	return targets, nil
}

// traverse visits each node once. The caller holds the graph lock.
func (n *Node) traverse() []*Context {
	visited := make(map[*Node]bool)
	var contexts []*Context

	var visit func(*Node)
	visit = func(node *Node) {
		if visited[node] {
			return
		}
		visited[node] = true
		contexts = append(contexts, node.contexts...)
		for _, name := range node.order {
			visit(node.deps[name])
		}
	}
	visit(n)
	return contexts
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.SetAttributes(attribute.String("kind", domain.KindOf(err)))
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
