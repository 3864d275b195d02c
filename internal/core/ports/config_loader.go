package ports

import "go.trai.ch/trove/internal/core/domain"

// ConfigLoader defines the interface for loading the runtime configuration.
//
//go:generate mockgen -source=config_loader.go -destination=mocks/mock_config_loader.go -package=mocks
type ConfigLoader interface {
	// Load discovers the workspace from cwd and returns the resolved configuration.
	Load(cwd string) (*domain.Config, error)
}
