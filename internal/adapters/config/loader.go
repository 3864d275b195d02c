// Package config provides the configuration loader for trove.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"strconv"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/joho/godotenv"
	"github.com/mitchellh/go-homedir"
	"go.trai.ch/trove/internal/core/domain"
	"go.trai.ch/trove/internal/core/ports"
	"go.trai.ch/zerr"
	"gopkg.in/yaml.v3"
)

var _ ports.ConfigLoader = (*Loader)(nil)

const (
	// EnvHome overrides the trove home directory.
	EnvHome = "TROVE_HOME"
	// EnvWorkers overrides the batch sync worker count.
	EnvWorkers = "TROVE_WORKERS"
	// EnvDatabaseURL selects the PostgreSQL store and its connection string.
	EnvDatabaseURL = "TROVE_DATABASE_URL"

	supportedVersion = "1"
)

// Loader implements ports.ConfigLoader using a YAML file.
type Loader struct {
	Logger ports.Logger
}

// NewLoader creates a new Loader with the given logger.
func NewLoader(logger ports.Logger) *Loader {
	return &Loader{Logger: logger}
}

// Load discovers trove.yaml from cwd upwards and resolves the configuration.
// Without a workspace file, cwd is the root and every setting takes its default.
func (l *Loader) Load(cwd string) (*domain.Config, error) {
	var ws Workspace
	root := filepath.Clean(cwd)

	configPath, found := findWorkspace(cwd)
	if found {
		if err := readAndUnmarshalYAML(configPath, &ws); err != nil {
			return nil, zerr.With(err, "path", configPath)
		}
		if ws.Version != "" && ws.Version != supportedVersion {
			l.Logger.Warn(fmt.Sprintf("unsupported %s version %q, assuming %q", domain.WorkspaceFileName, ws.Version, supportedVersion))
		}
		root = filepath.Dir(configPath)
	}

	env, err := readEnv(filepath.Join(root, domain.EnvFileName))
	if err != nil {
		return nil, err
	}

	cfg := &domain.Config{Root: root}

	if cfg.Home, err = resolveHome(root, ws.Home, env, found); err != nil {
		return nil, err
	}
	if cfg.Workers, err = resolveWorkers(ws.Workers, env); err != nil {
		return nil, err
	}

	cfg.BundlesDir = ws.Bundles
	if cfg.BundlesDir == "" {
		cfg.BundlesDir = domain.DefaultBundlesDir
	}

	cfg.Scripts = ws.Scripts
	if len(cfg.Scripts) == 0 {
		cfg.Scripts = []string{domain.DefaultScriptsPattern}
	}
	for _, pattern := range cfg.Scripts {
		if !doublestar.ValidatePattern(pattern) {
			return nil, zerr.With(zerr.Wrap(domain.ErrInvalidConfig, "invalid scripts pattern"), "pattern", pattern)
		}
	}

	if err := resolveStore(cfg, ws.Store, env); err != nil {
		return nil, err
	}

	return cfg, nil
}

func findWorkspace(cwd string) (string, bool) {
	currentDir := filepath.Clean(cwd)
	for {
		candidate := filepath.Join(currentDir, domain.WorkspaceFileName)
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			return candidate, true
		}

		parentDir := filepath.Dir(currentDir)
		if parentDir == currentDir {
			return "", false
		}
		currentDir = parentDir
	}
}

// environment resolves a variable from the process first, then from the dotenv file.
type environment map[string]string

func (e environment) lookup(key string) (string, bool) {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v, true
	}
	v, ok := e[key]
	return v, ok && v != ""
}

func readEnv(path string) (environment, error) {
	values, err := godotenv.Read(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return environment{}, nil
		}
		return nil, zerr.With(zerr.Wrap(err, domain.ErrConfigReadFailed.Error()), "path", path)
	}
	return values, nil
}

func resolveHome(root, configured string, env environment, workspace bool) (string, error) {
	if v, ok := env.lookup(EnvHome); ok {
		configured = v
	}

	if configured == "" {
		if workspace {
			return filepath.Join(root, domain.TroveDirName), nil
		}
		dir, err := homedir.Dir()
		if err != nil {
			return "", zerr.Wrap(err, domain.ErrConfigReadFailed.Error())
		}
		return filepath.Join(dir, domain.TroveDirName), nil
	}

	expanded, err := homedir.Expand(configured)
	if err != nil {
		return "", zerr.With(zerr.Wrap(err, domain.ErrInvalidConfig.Error()), "home", configured)
	}
	return resolvePath(root, expanded), nil
}

func resolveWorkers(configured int, env environment) (int, error) {
	if v, ok := env.lookup(EnvWorkers); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return 0, zerr.With(zerr.Wrap(err, domain.ErrInvalidConfig.Error()), EnvWorkers, v)
		}
		configured = n
	}

	switch {
	case configured == 0:
		return runtime.NumCPU(), nil
	case configured < 0:
		return 0, zerr.With(zerr.Wrap(domain.ErrInvalidConfig, "workers must be positive"), "workers", configured)
	default:
		return configured, nil
	}
}

func resolveStore(cfg *domain.Config, dto StoreDTO, env environment) error {
	cfg.DatabaseURL = dto.DSN
	if v, ok := env.lookup(EnvDatabaseURL); ok {
		cfg.DatabaseURL = v
	}

	switch domain.StoreDriver(dto.Driver) {
	case "":
		cfg.StoreDriver = domain.StoreDriverFile
		if cfg.DatabaseURL != "" {
			cfg.StoreDriver = domain.StoreDriverPostgres
		}
	case domain.StoreDriverFile, domain.StoreDriverPostgres:
		cfg.StoreDriver = domain.StoreDriver(dto.Driver)
	default:
		return zerr.With(zerr.Wrap(domain.ErrInvalidConfig, "unknown store driver"), "driver", dto.Driver)
	}

	if cfg.StoreDriver == domain.StoreDriverPostgres && cfg.DatabaseURL == "" {
		return zerr.Wrap(domain.ErrInvalidConfig, "postgres store needs a dsn")
	}

	cfg.StorePath = domain.DefaultStorePath(cfg.Home)
	if dto.Path != "" {
		cfg.StorePath = resolvePath(cfg.Root, dto.Path)
	}
	return nil
}

func resolvePath(root, path string) string {
	if filepath.IsAbs(path) {
		return filepath.Clean(path)
	}
	return filepath.Clean(filepath.Join(root, path))
}

// readAndUnmarshalYAML reads a YAML file and unmarshals it into the target struct.
func readAndUnmarshalYAML[T any](configPath string, target *T) error {
	// #nosec G304 -- configPath is discovered by findWorkspace
	configFile, err := os.ReadFile(configPath)
	if err != nil {
		return zerr.Wrap(err, domain.ErrConfigReadFailed.Error())
	}

	if parseErr := yaml.Unmarshal(configFile, target); parseErr != nil {
		return zerr.Wrap(parseErr, domain.ErrConfigParseFailed.Error())
	}

	return nil
}
