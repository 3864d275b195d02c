package ports

import "go.trai.ch/trove/internal/core/domain"

// BundleRegistry indexes overlays and the bundles they contribute.
//
//go:generate mockgen -source=registry.go -destination=mocks/mock_registry.go -package=mocks
type BundleRegistry interface {
	// Overlays returns the registered overlays in registration order.
	Overlays() []domain.Overlay

	// Overlay returns the overlay registered under name.
	Overlay(name string) (domain.Overlay, bool)

	// BundleNames returns the sorted union of bundle names across overlays.
	BundleNames() ([]string, error)

	// Contributions returns every contribution of the named bundle in overlay registration order.
	// It returns an empty slice for an unknown name.
	Contributions(name string) ([]domain.Contribution, error)

	// HasBundle reports whether any overlay contributes the named bundle.
	HasBundle(name string) (bool, error)

	// Add registers an overlay. It fails with domain.ErrDuplicateOverlay when the
	// name or root path is already registered.
	Add(overlay domain.Overlay) error

	// Update replaces the metadata of a registered overlay.
	Update(overlay domain.Overlay) error

	// Remove unregisters the named overlay. It fails with domain.ErrOverlayNotFound when absent.
	Remove(name string) (domain.Overlay, error)
}
