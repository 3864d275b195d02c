// Package build holds build-time information.
package build

// These are overwritten by linker flags; the defaults mark a local build.
var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)
