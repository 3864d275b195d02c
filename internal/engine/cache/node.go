package cache

import (
	"context"

	"github.com/grindlemire/graft"
	"go.trai.ch/trove/internal/adapters/config" //nolint:depguard // Wired in engine wiring
	"go.trai.ch/trove/internal/adapters/fs"     //nolint:depguard // Wired in engine wiring
	"go.trai.ch/trove/internal/adapters/loader" //nolint:depguard // Wired in engine wiring
	"go.trai.ch/trove/internal/adapters/store"  //nolint:depguard // Wired in engine wiring
	"go.trai.ch/trove/internal/core/cacheable"
	"go.trai.ch/trove/internal/core/domain"
	"go.trai.ch/trove/internal/core/ports"
	"go.trai.ch/trove/internal/kinds"
)

// NodeID is the unique identifier for the cache engine Graft node.
const NodeID graft.ID = "engine.cache"

func init() {
	graft.Register(graft.Node[*Cache]{
		ID:        NodeID,
		Cacheable: true,
		DependsOn: []graft.ID{
			fs.NodeID,
			loader.NodeID,
			store.NodeID,
			kinds.NodeID,
			config.ResolvedNodeID,
		},
		Run: func(ctx context.Context) (*Cache, error) {
			files, err := graft.Dep[ports.FileSystem](ctx)
			if err != nil {
				return nil, err
			}

			contextLoader, err := graft.Dep[ports.ContextLoader](ctx)
			if err != nil {
				return nil, err
			}

			st, err := graft.Dep[ports.Store](ctx)
			if err != nil {
				return nil, err
			}

			registry, err := graft.Dep[*cacheable.Registry](ctx)
			if err != nil {
				return nil, err
			}

			cfg, err := graft.Dep[*domain.Config](ctx)
			if err != nil {
				return nil, err
			}

			return New(files, contextLoader, st, registry, WithWorkers(cfg.Workers)), nil
		},
	})
}
