package domain

import "time"

// Overlay is a registered repository of bundles and cacheable scripts.
type Overlay struct {
	Name      string    `yaml:"name" json:"name"`
	Path      string    `yaml:"path" json:"path"`
	URI       string    `yaml:"uri,omitempty" json:"uri,omitempty"`
	Installed bool      `yaml:"installed" json:"installed"`
	AddedAt   time.Time `yaml:"added_at,omitempty" json:"added_at"`
	UpdatedAt time.Time `yaml:"updated_at,omitempty" json:"updated_at"`
}

// Contribution associates an overlay with one bundle it provides.
type Contribution struct {
	Overlay Overlay
	// Bundle is the contributed bundle name.
	Bundle string
	// Root is the bundle directory inside the overlay.
	Root string
}

// Entry returns the bundle's entry file.
func (c Contribution) Entry() string {
	return BundleEntryPath(c.Root, c.Bundle)
}
