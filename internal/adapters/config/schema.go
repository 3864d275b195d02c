package config

// Workspace represents the structure of the trove.yaml configuration file.
type Workspace struct {
	Version string   `yaml:"version"`
	Home    string   `yaml:"home"`
	Workers int      `yaml:"workers"`
	Bundles string   `yaml:"bundles"`
	Scripts []string `yaml:"scripts"`
	Store   StoreDTO `yaml:"store"`
}

// StoreDTO represents the store section of the configuration.
type StoreDTO struct {
	Driver string `yaml:"driver"`
	Path   string `yaml:"path"`
	DSN    string `yaml:"dsn"`
}
