package config_test

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/mitchellh/go-homedir"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/trove/internal/adapters/config"
	"go.trai.ch/trove/internal/core/domain"
	"go.trai.ch/trove/internal/core/ports/mocks"
	"go.uber.org/mock/gomock"
)

func createFile(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(dir, domain.DirPerm))
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), domain.FilePerm))
}

func clearEnv(t *testing.T) {
	t.Helper()
	t.Setenv(config.EnvHome, "")
	t.Setenv(config.EnvWorkers, "")
	t.Setenv(config.EnvDatabaseURL, "")
}

func newLoader(t *testing.T) *config.Loader {
	t.Helper()
	ctrl := gomock.NewController(t)
	mockLogger := mocks.NewMockLogger(ctrl)
	mockLogger.EXPECT().Warn(gomock.Any()).AnyTimes()
	return config.NewLoader(mockLogger)
}

func TestLoader_Load_Workspace(t *testing.T) {
	clearEnv(t)
	root := t.TempDir()
	createFile(t, root, domain.WorkspaceFileName, `
version: "1"
home: state
workers: 3
bundles: plugins
scripts:
  - "modules/**/*.hcl"
store:
  path: db/cache.json
`)
	nested := filepath.Join(root, "a", "b")
	require.NoError(t, os.MkdirAll(nested, domain.DirPerm))

	cfg, err := newLoader(t).Load(nested)
	require.NoError(t, err)

	assert.Equal(t, root, cfg.Root)
	assert.Equal(t, filepath.Join(root, "state"), cfg.Home)
	assert.Equal(t, 3, cfg.Workers)
	assert.Equal(t, "plugins", cfg.BundlesDir)
	assert.Equal(t, []string{"modules/**/*.hcl"}, cfg.Scripts)
	assert.Equal(t, domain.StoreDriverFile, cfg.StoreDriver)
	assert.Equal(t, filepath.Join(root, "db", "cache.json"), cfg.StorePath)
	assert.Equal(t, filepath.Join(root, "state", domain.OverlaysFileName), cfg.OverlaysPath())
}

func TestLoader_Load_Defaults(t *testing.T) {
	clearEnv(t)
	fakeHome := t.TempDir()
	t.Setenv("HOME", fakeHome)
	homedir.DisableCache = true
	t.Cleanup(func() { homedir.DisableCache = false })

	cwd := t.TempDir()
	cfg, err := newLoader(t).Load(cwd)
	require.NoError(t, err)

	assert.Equal(t, cwd, cfg.Root)
	assert.Equal(t, filepath.Join(fakeHome, domain.TroveDirName), cfg.Home)
	assert.Equal(t, runtime.NumCPU(), cfg.Workers)
	assert.Equal(t, domain.DefaultBundlesDir, cfg.BundlesDir)
	assert.Equal(t, []string{domain.DefaultScriptsPattern}, cfg.Scripts)
	assert.Equal(t, domain.DefaultStorePath(cfg.Home), cfg.StorePath)
}

func TestLoader_Load_WorkspaceDefaultHome(t *testing.T) {
	clearEnv(t)
	root := t.TempDir()
	createFile(t, root, domain.WorkspaceFileName, "version: \"1\"\n")

	cfg, err := newLoader(t).Load(root)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, domain.TroveDirName), cfg.Home)
}

func TestLoader_Load_EnvOverrides(t *testing.T) {
	clearEnv(t)
	root := t.TempDir()
	createFile(t, root, domain.WorkspaceFileName, "workers: 2\n")
	createFile(t, root, domain.EnvFileName, "TROVE_WORKERS=5\nTROVE_DATABASE_URL=postgres://dotenv/trove\n")

	t.Setenv(config.EnvHome, filepath.Join(root, "from-env"))

	cfg, err := newLoader(t).Load(root)
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(root, "from-env"), cfg.Home)
	assert.Equal(t, 5, cfg.Workers)
	assert.Equal(t, domain.StoreDriverPostgres, cfg.StoreDriver)
	assert.Equal(t, "postgres://dotenv/trove", cfg.DatabaseURL)
}

func TestLoader_Load_ProcessEnvWinsOverDotenv(t *testing.T) {
	clearEnv(t)
	root := t.TempDir()
	createFile(t, root, domain.WorkspaceFileName, "version: \"1\"\n")
	createFile(t, root, domain.EnvFileName, "TROVE_WORKERS=5\n")
	t.Setenv(config.EnvWorkers, "7")

	cfg, err := newLoader(t).Load(root)
	require.NoError(t, err)
	assert.Equal(t, 7, cfg.Workers)
}

func TestLoader_Load_Invalid(t *testing.T) {
	tests := []struct {
		name        string
		content     string
		env         map[string]string
		errContains string
	}{
		{
			name:        "malformed yaml",
			content:     "workers: [",
			errContains: domain.ErrConfigParseFailed.Error(),
		},
		{
			name:        "negative workers",
			content:     "workers: -1",
			errContains: "workers must be positive",
		},
		{
			name:        "non-numeric workers env",
			content:     "version: \"1\"",
			env:         map[string]string{config.EnvWorkers: "many"},
			errContains: domain.ErrInvalidConfig.Error(),
		},
		{
			name:        "unknown driver",
			content:     "store:\n  driver: sqlite",
			errContains: "unknown store driver",
		},
		{
			name:        "postgres without dsn",
			content:     "store:\n  driver: postgres",
			errContains: "postgres store needs a dsn",
		},
		{
			name:        "bad scripts pattern",
			content:     "scripts:\n  - \"scripts/[\"",
			errContains: "invalid scripts pattern",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			root := t.TempDir()
			createFile(t, root, domain.WorkspaceFileName, tt.content)

			_, err := newLoader(t).Load(root)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errContains)
		})
	}
}

func TestLoader_Load_WarnsOnUnknownVersion(t *testing.T) {
	clearEnv(t)
	root := t.TempDir()
	createFile(t, root, domain.WorkspaceFileName, "version: \"9\"\n")

	ctrl := gomock.NewController(t)
	mockLogger := mocks.NewMockLogger(ctrl)
	mockLogger.EXPECT().Warn(gomock.Any()).Times(1)

	_, err := config.NewLoader(mockLogger).Load(root)
	require.NoError(t, err)
}
