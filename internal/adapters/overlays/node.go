package overlays

import (
	"context"

	"github.com/grindlemire/graft"
	"github.com/spf13/afero"
	"go.trai.ch/trove/internal/adapters/config"
	"go.trai.ch/trove/internal/adapters/fs"
	"go.trai.ch/trove/internal/core/domain"
	"go.trai.ch/trove/internal/core/ports"
)

// NodeID is the unique identifier for the bundle registry Graft node.
const NodeID graft.ID = "adapter.overlays"

func init() {
	graft.Register(graft.Node[ports.BundleRegistry]{
		ID:        NodeID,
		Cacheable: true,
		DependsOn: []graft.ID{config.ResolvedNodeID, fs.NodeID},
		Run: func(ctx context.Context) (ports.BundleRegistry, error) {
			cfg, err := graft.Dep[*domain.Config](ctx)
			if err != nil {
				return nil, err
			}
			files, err := graft.Dep[ports.FileSystem](ctx)
			if err != nil {
				return nil, err
			}
			return Open(afero.NewOsFs(), files, cfg.OverlaysPath(), cfg.BundlesDir)
		},
	})
}
