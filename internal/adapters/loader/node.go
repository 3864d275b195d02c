package loader

import (
	"context"

	"github.com/grindlemire/graft"
	"go.trai.ch/trove/internal/adapters/fs"
	"go.trai.ch/trove/internal/core/ports"
)

// NodeID is the unique identifier for the context loader Graft node.
const NodeID graft.ID = "adapter.loader"

func init() {
	graft.Register(graft.Node[ports.ContextLoader]{
		ID:        NodeID,
		Cacheable: true,
		DependsOn: []graft.ID{fs.NodeID},
		Run: func(ctx context.Context) (ports.ContextLoader, error) {
			fsys, err := graft.Dep[ports.FileSystem](ctx)
			if err != nil {
				return nil, err
			}
			return New(fsys)
		},
	})
}
