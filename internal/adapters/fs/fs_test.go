package fs_test

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/trove/internal/adapters/fs"
)

func writeFile(t *testing.T, mem afero.Fs, path, content string) {
	t.Helper()
	require.NoError(t, mem.MkdirAll(filepath.Dir(path), 0o750))
	require.NoError(t, afero.WriteFile(mem, path, []byte(content), 0o644))
}

func TestFileSystem_ExistsAndModTime(t *testing.T) {
	t.Parallel()

	mem := afero.NewMemMapFs()
	writeFile(t, mem, "/overlay/scripts/a.hcl", "x = 1")
	mtime := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, mem.Chtimes("/overlay/scripts/a.hcl", mtime, mtime))

	fsys := fs.NewWithFs(mem)

	ok, err := fsys.Exists("/overlay/scripts/a.hcl")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = fsys.Exists("/overlay/scripts/missing.hcl")
	require.NoError(t, err)
	assert.False(t, ok)

	got, err := fsys.ModTime("/overlay/scripts/a.hcl")
	require.NoError(t, err)
	assert.True(t, mtime.Equal(got))

	_, err = fsys.ModTime("/overlay/scripts/missing.hcl")
	require.Error(t, err)
}

func TestFileSystem_Glob(t *testing.T) {
	t.Parallel()

	mem := afero.NewMemMapFs()
	writeFile(t, mem, "/overlay/scripts/b.hcl", "")
	writeFile(t, mem, "/overlay/scripts/nested/a.hcl", "")
	writeFile(t, mem, "/overlay/scripts/readme.md", "")
	writeFile(t, mem, "/overlay/bundles/widgets/widgets.hcl", "")

	fsys := fs.NewWithFs(mem)

	tests := []struct {
		name    string
		root    string
		pattern string
		want    []string
	}{
		{
			name:    "recursive pattern",
			root:    "/overlay",
			pattern: "scripts/**/*.hcl",
			want: []string{
				filepath.Join("/overlay", "scripts", "b.hcl"),
				filepath.Join("/overlay", "scripts", "nested", "a.hcl"),
			},
		},
		{
			name:    "flat pattern",
			root:    "/overlay",
			pattern: "scripts/*.hcl",
			want:    []string{filepath.Join("/overlay", "scripts", "b.hcl")},
		},
		{
			name:    "missing root",
			root:    "/nowhere",
			pattern: "scripts/**/*.hcl",
			want:    []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := fsys.Glob(tt.root, tt.pattern)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFileSystem_GlobBadPattern(t *testing.T) {
	t.Parallel()

	fsys := fs.NewWithFs(afero.NewMemMapFs())
	_, err := fsys.Glob("/overlay", "scripts/[")
	require.Error(t, err)
}

func TestFileSystem_ReadDirSorted(t *testing.T) {
	t.Parallel()

	mem := afero.NewMemMapFs()
	writeFile(t, mem, "/overlay/bundles/zeta/zeta.hcl", "")
	writeFile(t, mem, "/overlay/bundles/alpha/alpha.hcl", "")

	infos, err := fs.NewWithFs(mem).ReadDir("/overlay/bundles")
	require.NoError(t, err)
	require.Len(t, infos, 2)
	assert.Equal(t, "alpha", infos[0].Name())
	assert.Equal(t, "zeta", infos[1].Name())
}

func TestFileSystem_Digest(t *testing.T) {
	t.Parallel()

	mem := afero.NewMemMapFs()
	writeFile(t, mem, "/a.hcl", "value = 1")
	writeFile(t, mem, "/b.hcl", "value = 1")
	writeFile(t, mem, "/c.hcl", "value = 2")

	fsys := fs.NewWithFs(mem)

	a, err := fsys.Digest("/a.hcl")
	require.NoError(t, err)
	b, err := fsys.Digest("/b.hcl")
	require.NoError(t, err)
	c, err := fsys.Digest("/c.hcl")
	require.NoError(t, err)

	assert.Len(t, a, 16)
	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)

	_, err = fsys.Digest("/missing.hcl")
	require.Error(t, err)
}
