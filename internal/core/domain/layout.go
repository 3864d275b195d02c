package domain

import "path/filepath"

const (
	// TroveDirName is the name of the trove home directory inside a workspace.
	TroveDirName = ".trove"

	// WorkspaceFileName is the name of the workspace configuration file.
	WorkspaceFileName = "trove.yaml"

	// EnvFileName is the name of the optional dotenv file next to the workspace file.
	EnvFileName = ".env"

	// OverlaysFileName is the name of the persisted overlay registry.
	OverlaysFileName = "overlays.yaml"

	// StoreFileName is the name of the JSON cache store.
	StoreFileName = "cache.json"

	// SourceExt is the extension of loadable source files.
	SourceExt = ".hcl"

	// DefaultBundlesDir is the directory inside an overlay that holds bundles.
	DefaultBundlesDir = "bundles"

	// DefaultScriptsPattern is the doublestar pattern matching cacheable scripts inside an overlay.
	DefaultScriptsPattern = "scripts/**/*.hcl"

	// BundleBlockType is the block type a bundle entry file defines its context with.
	BundleBlockType = "bundle"

	// DirPerm is the default permission for directories (rwxr-x---).
	DirPerm = 0o750

	// FilePerm is the default permission for files (rw-r--r--).
	FilePerm = 0o644
)

// DefaultStorePath returns the JSON store path inside the given trove home.
func DefaultStorePath(home string) string {
	return filepath.Join(home, StoreFileName)
}

// DefaultOverlaysPath returns the overlay registry path inside the given trove home.
func DefaultOverlaysPath(home string) string {
	return filepath.Join(home, OverlaysFileName)
}

// BundleEntryPath returns the entry file of the bundle rooted at root.
func BundleEntryPath(root, bundle string) string {
	return filepath.Join(root, bundle+SourceExt)
}
