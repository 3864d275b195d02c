package plugin

import (
	"context"

	"github.com/grindlemire/graft"
	"go.trai.ch/trove/internal/adapters/loader"   //nolint:depguard // Wired in engine wiring
	"go.trai.ch/trove/internal/adapters/overlays" //nolint:depguard // Wired in engine wiring
	"go.trai.ch/trove/internal/core/ports"
)

// NodeID is the unique identifier for the plugin graph Graft node.
const NodeID graft.ID = "engine.plugin"

func init() {
	graft.Register(graft.Node[*Graph]{
		ID:        NodeID,
		Cacheable: true,
		DependsOn: []graft.ID{overlays.NodeID, loader.NodeID},
		Run: func(ctx context.Context) (*Graph, error) {
			registry, err := graft.Dep[ports.BundleRegistry](ctx)
			if err != nil {
				return nil, err
			}
			contextLoader, err := graft.Dep[ports.ContextLoader](ctx)
			if err != nil {
				return nil, err
			}
			return NewGraph(registry, contextLoader), nil
		},
	})
}
