package plugin

import (
	"context"
	"slices"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/function"
	"go.trai.ch/trove/internal/core/cacheable"
	"go.trai.ch/trove/internal/core/domain"
	"go.trai.ch/trove/internal/core/ports"
	"go.trai.ch/zerr"
)

// Context is one overlay's contribution to a bundle, evaluated from its entry file.
type Context struct {
	Bundle      string
	Overlay     domain.Overlay
	Path        string
	Description string
	DependsOn   []string

	capabilities map[string]function.Function
}

type bundleBody struct {
	Description string   `hcl:"description,optional"`
	DependsOn   []string `hcl:"depends_on,optional"`
	Remain      hcl.Body `hcl:",remain"`
}

// loadContext loads the entry file of contribution and decodes its first bundle block.
func loadContext(ctx context.Context, loader ports.ContextLoader, contribution domain.Contribution) (*Context, error) {
	path := contribution.Entry()
	blocks, err := loader.Load(ctx, path)
	if err != nil {
		return nil, zerr.With(err, "bundle", contribution.Bundle)
	}

	i := slices.IndexFunc(blocks, func(b domain.ContextBlock) bool { return b.Tag == domain.BundleBlockType })
	if i < 0 {
		err := domain.WrapKind(domain.ErrEvaluationException, domain.ErrBundleBlockMissing)
		return nil, zerr.With(zerr.With(err, "path", path), "bundle", contribution.Bundle)
	}
	block := blocks[i]

	caps, remain, diags := cacheable.DecodeCapabilities(block)
	if !diags.HasErrors() {
		var body bundleBody
		diags = gohcl.DecodeBody(remain, block.Scope, &body)
		if !diags.HasErrors() {
			return &Context{
				Bundle:       contribution.Bundle,
				Overlay:      contribution.Overlay,
				Path:         path,
				Description:  body.Description,
				DependsOn:    body.DependsOn,
				capabilities: caps,
			}, nil
		}
	}

	err = domain.WrapKind(domain.ErrEvaluationException, diags)
	return nil, zerr.With(zerr.With(err, "path", path), "bundle", contribution.Bundle)
}

// HasCapability reports whether the context defines method.
func (c *Context) HasCapability(method string) bool {
	_, ok := c.capabilities[method]
	return ok
}

// Capabilities returns the sorted capability names.
func (c *Context) Capabilities() []string {
	names := make([]string, 0, len(c.capabilities))
	for name := range c.capabilities {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Call invokes method. A missing or raising capability is an evaluation exception.
func (c *Context) Call(ctx context.Context, method string, args ...cty.Value) (cty.Value, error) {
	if err := ctx.Err(); err != nil {
		return cty.NilVal, err
	}

	fn, ok := c.capabilities[method]
	if !ok {
		return cty.NilVal, c.annotate(domain.WrapKind(domain.ErrCapabilityNotFound, nil), method)
	}

	result, err := fn.Call(args)
	if err != nil {
		return cty.NilVal, c.annotate(domain.WrapKind(domain.ErrEvaluationException, err), method)
	}
	return result, nil
}

func (c *Context) annotate(err error, method string) error {
	err = zerr.With(err, "bundle", c.Bundle)
	err = zerr.With(err, "overlay", c.Overlay.Name)
	return zerr.With(err, "method", method)
}
