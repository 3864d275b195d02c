// Package kinds provides the built-in cacheable types.
package kinds

import (
	"slices"

	"go.trai.ch/trove/internal/core/cacheable"
	"go.trai.ch/trove/internal/core/domain"
	"go.trai.ch/zerr"
)

const (
	// ExploitTag is the block type of an exploit script.
	ExploitTag = "exploit"
	// PayloadTag is the block type of a payload script.
	PayloadTag = "payload"
	// AuxiliaryTag is the block type of an auxiliary script.
	AuxiliaryTag = "auxiliary"
)

// Ranks are the accepted exploit ranks, lowest first.
var Ranks = []string{"manual", "low", "average", "normal", "good", "great", "excellent"}

// Exploit is a script that targets a known weakness.
type Exploit struct {
	cacheable.Meta

	Description string   `hcl:"description" json:"description"`
	Rank        string   `hcl:"rank,optional" json:"rank,omitempty"`
	Authors     []string `hcl:"authors,optional" json:"authors,omitempty"`
	Targets     []string `hcl:"targets,optional" json:"targets,omitempty"`
	References  []string `hcl:"references,optional" json:"references,omitempty"`
}

// Validate checks the rank when one is set.
func (e *Exploit) Validate() error {
	if e.Rank != "" && !slices.Contains(Ranks, e.Rank) {
		return invalid("rank", e.Rank)
	}
	return nil
}

// Payload is code delivered by an exploit.
type Payload struct {
	cacheable.Meta

	Description string `hcl:"description" json:"description"`
	Platform    string `hcl:"platform" json:"platform"`
	Arch        string `hcl:"arch,optional" json:"arch,omitempty"`
	Size        int    `hcl:"size,optional" json:"size,omitempty"`
}

// Validate checks the platform and size.
func (p *Payload) Validate() error {
	if p.Platform == "" {
		return invalid("platform", p.Platform)
	}
	if p.Size < 0 {
		return invalid("size", p.Size)
	}
	return nil
}

// Auxiliary is a script that performs an action without delivering a payload.
type Auxiliary struct {
	cacheable.Meta

	Description string   `hcl:"description" json:"description"`
	Actions     []string `hcl:"actions,optional" json:"actions,omitempty"`
}

// Validate checks that every action is named once.
func (a *Auxiliary) Validate() error {
	seen := make(map[string]bool, len(a.Actions))
	for _, action := range a.Actions {
		if action == "" || seen[action] {
			return invalid("actions", action)
		}
		seen[action] = true
	}
	return nil
}

func invalid(attribute string, value any) error {
	err := zerr.Wrap(domain.ErrInvalidAttribute, attribute)
	return zerr.With(zerr.With(err, "attribute", attribute), "value", value)
}

// Register adds the built-in types to registry.
func Register(registry *cacheable.Registry) {
	registry.Register(ExploitTag, func() cacheable.Object { return &Exploit{} })
	registry.Register(PayloadTag, func() cacheable.Object { return &Payload{} })
	registry.Register(AuxiliaryTag, func() cacheable.Object { return &Auxiliary{} })
}

// NewRegistry returns a registry holding the built-in types.
func NewRegistry() *cacheable.Registry {
	registry := cacheable.NewRegistry()
	Register(registry)
	return registry
}
