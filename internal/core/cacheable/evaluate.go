package cacheable

import (
	"context"
	"maps"
	"slices"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/ext/userfunc"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/zclconf/go-cty/cty/function"
	"go.trai.ch/trove/internal/core/domain"
	"go.trai.ch/zerr"
)

// CapabilityBlockType is the block type that defines a capability inside a context block.
const CapabilityBlockType = "function"

// Load creates a fresh object of block's type and evaluates block into it.
// The result is materialized. Its attributes are decoded from the block body,
// its capabilities from the function blocks, and Validate runs last.
func Load(ctx context.Context, registry *Registry, block domain.ContextBlock) (Object, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	obj, err := registry.New(block.Tag)
	if err != nil {
		return nil, zerr.With(err, "path", block.Path)
	}

	m := obj.meta()
	m.ID = ObjectID(block.Path, block.Tag, block.Name())
	m.Name = block.Name()

	caps, remain, diags := DecodeCapabilities(block)
	if diags.HasErrors() {
		return nil, blockError(block, domain.WrapKind(domain.ErrEvaluationException, diags))
	}

	if err := decodeAttributes(remain, block.Scope, obj); err != nil {
		return nil, blockError(block, err)
	}

	m.capabilities = caps
	m.materialized = true

	if v, ok := obj.(Validator); ok {
		if err := v.Validate(); err != nil {
			return nil, blockError(block, domain.WrapKind(domain.ErrValidationFailure, err))
		}
	}

	return obj, nil
}

// DecodeCapabilities decodes the function blocks of block into a capability table
// and returns the rest of the body.
// Capabilities see the block's scope and each other.
func DecodeCapabilities(block domain.ContextBlock) (map[string]function.Function, hcl.Body, hcl.Diagnostics) {
	var scope *hcl.EvalContext
	caps, remain, diags := userfunc.DecodeUserFunctions(block.Body, CapabilityBlockType, func() *hcl.EvalContext {
		return scope
	})
	scope = block.Scope.NewChild()
	scope.Functions = caps
	return caps, remain, diags
}

// decodeAttributes decodes body into obj. Every attribute expression is
// evaluated first, so anything raised there is an evaluation exception and
// what remains for the decoder is schema and type mismatches.
func decodeAttributes(body hcl.Body, scope *hcl.EvalContext, obj Object) error {
	schema, partial := gohcl.ImpliedBodySchema(obj)

	var (
		content *hcl.BodyContent
		diags   hcl.Diagnostics
	)
	if partial {
		content, _, diags = body.PartialContent(schema)
	} else {
		content, diags = body.Content(schema)
	}
	if diags.HasErrors() {
		return domain.WrapKind(domain.ErrValidationFailure, diags)
	}

	for _, name := range slices.Sorted(maps.Keys(content.Attributes)) {
		if _, valueDiags := content.Attributes[name].Expr.Value(scope); valueDiags.HasErrors() {
			diags = append(diags, valueDiags...)
		}
	}
	if diags.HasErrors() {
		return domain.WrapKind(domain.ErrEvaluationException, diags)
	}

	if diags = gohcl.DecodeBody(body, scope, obj); diags.HasErrors() {
		return domain.WrapKind(domain.ErrValidationFailure, diags)
	}
	return nil
}

func blockError(block domain.ContextBlock, err error) error {
	err = zerr.With(err, "path", block.Path)
	err = zerr.With(err, "type", block.Tag)
	if name := block.Name(); name != "" {
		err = zerr.With(err, "name", name)
	}
	return err
}
