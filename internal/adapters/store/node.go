package store

import (
	"context"

	"github.com/grindlemire/graft"
	"go.trai.ch/trove/internal/adapters/config"
	"go.trai.ch/trove/internal/adapters/pgstore"
	"go.trai.ch/trove/internal/core/domain"
	"go.trai.ch/trove/internal/core/ports"
)

// NodeID is the unique identifier for the cache store Graft node.
const NodeID graft.ID = "adapter.store"

func init() {
	graft.Register(graft.Node[ports.Store]{
		ID:        NodeID,
		Cacheable: true,
		DependsOn: []graft.ID{config.ResolvedNodeID},
		Run: func(ctx context.Context) (ports.Store, error) {
			cfg, err := graft.Dep[*domain.Config](ctx)
			if err != nil {
				return nil, err
			}
			if cfg.StoreDriver == domain.StoreDriverPostgres {
				return pgstore.Open(ctx, cfg.DatabaseURL)
			}
			return NewStore(cfg.StorePath)
		},
	})
}
