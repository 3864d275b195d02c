// Package loader implements the context loader over HCL native syntax.
//
// A source file's top level is evaluated once in a fresh scope:
// include blocks load other files, top-level attributes become variables,
// and every other block is registered as a deferred context block whose
// body is left untouched until something materializes it.
package loader

import (
	"context"
	"path/filepath"
	"sort"

	"github.com/hashicorp/golang-lru/v2"
	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/hashicorp/hcl/v2/hclsyntax"
	"github.com/zclconf/go-cty/cty"
	"go.trai.ch/trove/internal/core/domain"
	"go.trai.ch/trove/internal/core/ports"
	"go.trai.ch/zerr"
)

var _ ports.ContextLoader = (*Loader)(nil)

const (
	// IncludeBlockType is the reserved block type that loads another file.
	IncludeBlockType = "include"

	// IncludeVariable is the variable through which included values are visible.
	IncludeVariable = "include"

	// DefaultASTCacheSize is the number of parsed files kept in memory.
	DefaultASTCacheSize = 256
)

// astKey identifies a parsed file revision.
type astKey struct {
	path  string
	mtime int64
	size  int64
}

// Loader implements ports.ContextLoader.
type Loader struct {
	fs   ports.FileSystem
	asts *lru.Cache[astKey, *hcl.File]
}

// New creates a Loader reading through fsys.
func New(fsys ports.FileSystem) (*Loader, error) {
	asts, err := lru.New[astKey, *hcl.File](DefaultASTCacheSize)
	if err != nil {
		return nil, zerr.Wrap(err, "failed to create AST cache")
	}
	return &Loader{fs: fsys, asts: asts}, nil
}

// Load evaluates the top level of the file at path and returns the blocks it registers.
func (l *Loader) Load(ctx context.Context, path string) ([]domain.ContextBlock, error) {
	s := &session{loader: l}
	fr, err := s.load(ctx, filepath.Clean(path))
	if err != nil {
		return nil, err
	}
	return fr.blocks, nil
}

// frame accumulates what one file registers.
type frame struct {
	path   string
	blocks []domain.ContextBlock
	vars   map[string]cty.Value
}

// session is the per-call accumulator stack.
type session struct {
	loader *Loader
	stack  []*frame
}

func (s *session) push(path string) *frame {
	fr := &frame{path: path, vars: make(map[string]cty.Value)}
	s.stack = append(s.stack, fr)
	return fr
}

func (s *session) pop() {
	s.stack = s.stack[:len(s.stack)-1]
}

func (s *session) onStack(path string) bool {
	for _, fr := range s.stack {
		if fr.path == path {
			return true
		}
	}
	return false
}

func (s *session) load(ctx context.Context, path string) (*frame, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if s.onStack(path) {
		err := domain.WrapKind(domain.ErrParseFailure, domain.ErrIncludeCycle)
		return nil, zerr.With(err, "path", path)
	}

	file, err := s.loader.parse(path)
	if err != nil {
		return nil, err
	}

	fr := s.push(path)
	defer s.pop()

	if err := s.evaluate(ctx, fr, file); err != nil {
		return nil, err
	}
	return fr, nil
}

func (s *session) evaluate(ctx context.Context, fr *frame, file *hcl.File) error {
	body, ok := file.Body.(*hclsyntax.Body)
	if !ok {
		return zerr.With(domain.WrapKind(domain.ErrParseFailure, nil), "path", fr.path)
	}

	scope := &hcl.EvalContext{
		Variables: make(map[string]cty.Value),
		Functions: Functions(),
	}

	if err := s.evaluateIncludes(ctx, fr, body, scope); err != nil {
		return err
	}

	for _, attr := range sortedAttributes(body) {
		val, diags := attr.Expr.Value(scope)
		if diags.HasErrors() {
			return zerr.With(domain.WrapKind(domain.ErrParseFailure, diags), "path", fr.path)
		}
		scope.Variables[attr.Name] = val
		fr.vars[attr.Name] = val
	}

	for _, block := range body.Blocks {
		if block.Type == IncludeBlockType {
			continue
		}
		fr.blocks = append(fr.blocks, domain.ContextBlock{
			Tag:    block.Type,
			Labels: block.Labels,
			Body:   block.Body,
			Path:   fr.path,
			Range:  block.Range(),
			Scope:  scope,
		})
	}

	return nil
}

var includeSchema = &hcl.BodySchema{
	Attributes: []hcl.AttributeSchema{{Name: "path", Required: true}},
}

func (s *session) evaluateIncludes(ctx context.Context, fr *frame, body *hclsyntax.Body, scope *hcl.EvalContext) error {
	included := make(map[string]cty.Value)

	for _, block := range body.Blocks {
		if block.Type != IncludeBlockType {
			continue
		}

		if len(block.Labels) != 1 {
			diags := hcl.Diagnostics{{
				Severity: hcl.DiagError,
				Summary:  "Invalid include block",
				Detail:   "An include block needs exactly one label naming it.",
				Subject:  block.DefRange().Ptr(),
			}}
			return zerr.With(domain.WrapKind(domain.ErrParseFailure, diags), "path", fr.path)
		}
		name := block.Labels[0]

		content, diags := block.Body.Content(includeSchema)
		if diags.HasErrors() {
			return zerr.With(domain.WrapKind(domain.ErrParseFailure, diags), "path", fr.path)
		}

		val, diags := content.Attributes["path"].Expr.Value(nil)
		if diags.HasErrors() {
			return zerr.With(domain.WrapKind(domain.ErrParseFailure, diags), "path", fr.path)
		}
		if val.IsNull() || !val.IsKnown() || val.Type() != cty.String {
			err := zerr.With(domain.WrapKind(domain.ErrParseFailure, nil), "path", fr.path)
			return zerr.With(err, "include", name)
		}

		target := val.AsString()
		if !filepath.IsAbs(target) {
			target = filepath.Join(filepath.Dir(fr.path), target)
		}

		child, err := s.load(ctx, filepath.Clean(target))
		if err != nil {
			return zerr.With(err, "included_from", fr.path)
		}
		included[name] = objectOf(child.vars)
	}

	if len(included) > 0 {
		scope.Variables[IncludeVariable] = cty.ObjectVal(included)
	}
	return nil
}

func (l *Loader) parse(path string) (*hcl.File, error) {
	info, err := l.fs.Stat(path)
	if err != nil {
		return nil, zerr.With(domain.WrapKind(domain.ErrIOFailure, err), "path", path)
	}
	if info.IsDir() {
		return nil, zerr.With(domain.WrapKind(domain.ErrIOFailure, nil), "path", path)
	}

	key := astKey{path: path, mtime: info.ModTime().UnixNano(), size: info.Size()}
	if file, ok := l.asts.Get(key); ok {
		return file, nil
	}

	src, err := l.fs.ReadFile(path)
	if err != nil {
		return nil, zerr.With(domain.WrapKind(domain.ErrIOFailure, err), "path", path)
	}

	parser := hclparse.NewParser()
	file, diags := parser.ParseHCL(src, path)
	if diags.HasErrors() {
		return nil, zerr.With(domain.WrapKind(domain.ErrParseFailure, diags), "path", path)
	}

	l.asts.Add(key, file)
	return file, nil
}

// sortedAttributes returns the body's attributes in source order.
func sortedAttributes(body *hclsyntax.Body) []*hclsyntax.Attribute {
	attrs := make([]*hclsyntax.Attribute, 0, len(body.Attributes))
	for _, attr := range body.Attributes {
		attrs = append(attrs, attr)
	}
	sort.Slice(attrs, func(i, j int) bool {
		return attrs[i].SrcRange.Start.Byte < attrs[j].SrcRange.Start.Byte
	})
	return attrs
}

func objectOf(vars map[string]cty.Value) cty.Value {
	if len(vars) == 0 {
		return cty.EmptyObjectVal
	}
	return cty.ObjectVal(vars)
}
