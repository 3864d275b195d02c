package app

import (
	"context"

	"github.com/grindlemire/graft"
	"go.trai.ch/trove/internal/adapters/config"   //nolint:depguard // Wired in app layer
	"go.trai.ch/trove/internal/adapters/loader"   //nolint:depguard // Wired in app layer
	"go.trai.ch/trove/internal/adapters/logger"   //nolint:depguard // Wired in app layer
	"go.trai.ch/trove/internal/adapters/overlays" //nolint:depguard // Wired in app layer
	"go.trai.ch/trove/internal/adapters/store"    //nolint:depguard // Wired in app layer
	"go.trai.ch/trove/internal/adapters/watcher"  //nolint:depguard // Wired in app layer
	"go.trai.ch/trove/internal/core/cacheable"
	"go.trai.ch/trove/internal/core/domain"
	"go.trai.ch/trove/internal/core/ports"
	"go.trai.ch/trove/internal/engine/cache"
	"go.trai.ch/trove/internal/engine/plugin"
	"go.trai.ch/trove/internal/kinds"
)

const (
	// AppNodeID is the unique identifier for the main App Graft node.
	AppNodeID graft.ID = "app.main"
	// ComponentsNodeID is the unique identifier for the App components Graft node.
	ComponentsNodeID graft.ID = "app.components"
	// RepositoryNodeID is the unique identifier for the cached object repository Graft node.
	RepositoryNodeID graft.ID = "app.repository"
)

func init() {
	graft.Register(graft.Node[*cacheable.Repository]{
		ID:        RepositoryNodeID,
		Cacheable: true,
		DependsOn: []graft.ID{kinds.NodeID, store.NodeID, loader.NodeID},
		Run: func(ctx context.Context) (*cacheable.Repository, error) {
			registry, err := graft.Dep[*cacheable.Registry](ctx)
			if err != nil {
				return nil, err
			}
			st, err := graft.Dep[ports.Store](ctx)
			if err != nil {
				return nil, err
			}
			contextLoader, err := graft.Dep[ports.ContextLoader](ctx)
			if err != nil {
				return nil, err
			}
			return cacheable.NewRepository(registry, st, contextLoader), nil
		},
	})

	graft.Register(graft.Node[*App]{
		ID:        AppNodeID,
		Cacheable: true,
		DependsOn: []graft.ID{
			config.ResolvedNodeID,
			logger.NodeID,
			overlays.NodeID,
			cache.NodeID,
			plugin.NodeID,
			RepositoryNodeID,
			watcher.NodeID,
			store.NodeID,
		},
		Run: runAppNode,
	})

	graft.Register(graft.Node[*Components]{
		ID:        ComponentsNodeID,
		Cacheable: true,
		DependsOn: []graft.ID{
			AppNodeID,
			logger.NodeID,
		},
		Run: func(ctx context.Context) (*Components, error) {
			a, err := graft.Dep[*App](ctx)
			if err != nil {
				return nil, err
			}

			log, err := graft.Dep[ports.Logger](ctx)
			if err != nil {
				return nil, err
			}

			return &Components{App: a, Logger: log}, nil
		},
	})
}

func runAppNode(ctx context.Context) (*App, error) {
	cfg, err := graft.Dep[*domain.Config](ctx)
	if err != nil {
		return nil, err
	}

	log, err := graft.Dep[ports.Logger](ctx)
	if err != nil {
		return nil, err
	}

	registry, err := graft.Dep[ports.BundleRegistry](ctx)
	if err != nil {
		return nil, err
	}

	c, err := graft.Dep[*cache.Cache](ctx)
	if err != nil {
		return nil, err
	}

	graph, err := graft.Dep[*plugin.Graph](ctx)
	if err != nil {
		return nil, err
	}

	repository, err := graft.Dep[*cacheable.Repository](ctx)
	if err != nil {
		return nil, err
	}

	w, err := graft.Dep[ports.Watcher](ctx)
	if err != nil {
		return nil, err
	}

	st, err := graft.Dep[ports.Store](ctx)
	if err != nil {
		return nil, err
	}

	return New(cfg, log, registry, c, graph, repository, w, st), nil
}
