package domain

// StoreDriver selects the persisted store implementation.
type StoreDriver string

const (
	// StoreDriverFile persists the cache as a JSON snapshot.
	StoreDriverFile StoreDriver = "file"
	// StoreDriverPostgres persists the cache in PostgreSQL.
	StoreDriverPostgres StoreDriver = "postgres"
)

// Config is the resolved runtime configuration.
type Config struct {
	// Root is the workspace root, or the working directory when no workspace file exists.
	Root string
	// Home is the directory holding the overlay registry and the file store.
	Home string
	// Workers bounds the batch sync pool.
	Workers int
	// BundlesDir is the directory inside each overlay that holds bundles.
	BundlesDir string
	// Scripts are doublestar patterns, relative to each overlay root, matching cacheable scripts.
	Scripts []string
	// StoreDriver selects the store implementation.
	StoreDriver StoreDriver
	// StorePath is the JSON store file for StoreDriverFile.
	StorePath string
	// DatabaseURL is the connection string for StoreDriverPostgres.
	DatabaseURL string
}

// OverlaysPath returns the overlay registry file for this configuration.
func (c *Config) OverlaysPath() string {
	return DefaultOverlaysPath(c.Home)
}
