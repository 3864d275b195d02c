package domain

import "github.com/hashicorp/hcl/v2"

// ContextBlock is a deferred definition extracted from a source file.
// Body is not evaluated until the block is materialized; Scope is the
// evaluation context built from the file's top level.
type ContextBlock struct {
	Tag    string
	Labels []string
	Body   hcl.Body
	Path   string
	Range  hcl.Range
	Scope  *hcl.EvalContext
}

// Name returns the first label of the block, or the empty string.
func (b ContextBlock) Name() string {
	if len(b.Labels) == 0 {
		return ""
	}
	return b.Labels[0]
}
