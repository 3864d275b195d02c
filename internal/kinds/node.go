package kinds

import (
	"context"

	"github.com/grindlemire/graft"
	"go.trai.ch/trove/internal/core/cacheable"
)

// NodeID is the unique identifier for the cacheable type registry Graft node.
const NodeID graft.ID = "kinds.registry"

func init() {
	graft.Register(graft.Node[*cacheable.Registry]{
		ID:        NodeID,
		Cacheable: true,
		Run: func(_ context.Context) (*cacheable.Registry, error) {
			return NewRegistry(), nil
		},
	})
}
