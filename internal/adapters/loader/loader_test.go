package loader_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zclconf/go-cty/cty"
	"go.trai.ch/trove/internal/adapters/fs"
	"go.trai.ch/trove/internal/adapters/loader"
	"go.trai.ch/trove/internal/core/domain"
	"go.trai.ch/zerr"
)

func newLoader(t *testing.T, files map[string]string) (*loader.Loader, afero.Fs) {
	t.Helper()
	mem := afero.NewMemMapFs()
	for path, content := range files {
		require.NoError(t, mem.MkdirAll(filepath.Dir(path), 0o750))
		require.NoError(t, afero.WriteFile(mem, path, []byte(content), 0o644))
	}
	l, err := loader.New(fs.NewWithFs(mem))
	require.NoError(t, err)
	return l, mem
}

func metadata(t *testing.T, err error) map[string]any {
	t.Helper()
	var zErr *zerr.Error
	require.True(t, errors.As(err, &zErr), "expected a zerr.Error, got %T", err)
	return zErr.Metadata()
}

func TestLoader_Load_DefersBlocks(t *testing.T) {
	t.Parallel()

	l, _ := newLoader(t, map[string]string{
		"/o/scripts/exploit.hcl": `
greeting = "hello"
shout    = upper(greeting)

my_exploit "overflow" {
  description = undefined_variable
}

payload "shell" {}

my_exploit "second" {}
`,
	})

	blocks, err := l.Load(context.Background(), "/o/scripts/exploit.hcl")
	require.NoError(t, err)
	require.Len(t, blocks, 3)

	assert.Equal(t, "my_exploit", blocks[0].Tag)
	assert.Equal(t, "overflow", blocks[0].Name())
	assert.Equal(t, "payload", blocks[1].Tag)
	assert.Equal(t, "my_exploit", blocks[2].Tag)
	assert.Equal(t, "second", blocks[2].Name())

	for _, b := range blocks {
		assert.Equal(t, "/o/scripts/exploit.hcl", b.Path)
		require.NotNil(t, b.Scope)
	}

	assert.Equal(t, "HELLO", blocks[0].Scope.Variables["shout"].AsString())
}

func TestLoader_Load_Include(t *testing.T) {
	t.Parallel()

	l, _ := newLoader(t, map[string]string{
		"/o/scripts/main.hcl": `
include "common" {
  path = "lib/common.hcl"
}

banner = "${include.common.prefix}-main"

my_exploit "main" {}
`,
		"/o/scripts/lib/common.hcl": `
prefix = "trove"

my_exploit "from_library" {}
`,
	})

	blocks, err := l.Load(context.Background(), "/o/scripts/main.hcl")
	require.NoError(t, err)
	require.Len(t, blocks, 1, "blocks of an included file stay in its own accumulator")
	assert.Equal(t, "main", blocks[0].Name())
	assert.Equal(t, "trove-main", blocks[0].Scope.Variables["banner"].AsString())

	lib, err := l.Load(context.Background(), "/o/scripts/lib/common.hcl")
	require.NoError(t, err)
	require.Len(t, lib, 1)
	assert.Equal(t, "from_library", lib[0].Name())
}

func TestLoader_Load_IncludeCycle(t *testing.T) {
	t.Parallel()

	l, _ := newLoader(t, map[string]string{
		"/o/a.hcl": `include "b" { path = "b.hcl" }`,
		"/o/b.hcl": `include "a" { path = "a.hcl" }`,
	})

	_, err := l.Load(context.Background(), "/o/a.hcl")
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrParseFailure)
	assert.ErrorIs(t, err, domain.ErrIncludeCycle)
	assert.Equal(t, "/o/a.hcl", metadata(t, err)["path"])
}

func TestLoader_Load_Failures(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		files    map[string]string
		path     string
		wantKind error
	}{
		{
			name:     "unparsable source",
			files:    map[string]string{"/o/bad.hcl": "my_exploit \"x\" {\n  description = \n"},
			path:     "/o/bad.hcl",
			wantKind: domain.ErrParseFailure,
		},
		{
			name:     "top level evaluation error",
			files:    map[string]string{"/o/eval.hcl": "value = nope + 1\n"},
			path:     "/o/eval.hcl",
			wantKind: domain.ErrParseFailure,
		},
		{
			name:     "include without label",
			files:    map[string]string{"/o/inc.hcl": "include { path = \"x.hcl\" }\n"},
			path:     "/o/inc.hcl",
			wantKind: domain.ErrParseFailure,
		},
		{
			name:     "missing file",
			files:    map[string]string{},
			path:     "/o/missing.hcl",
			wantKind: domain.ErrIOFailure,
		},
		{
			name:     "directory",
			files:    map[string]string{"/o/dir/x.hcl": ""},
			path:     "/o/dir",
			wantKind: domain.ErrIOFailure,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			l, _ := newLoader(t, tt.files)

			blocks, err := l.Load(context.Background(), tt.path)
			require.Error(t, err)
			assert.Nil(t, blocks)
			assert.ErrorIs(t, err, tt.wantKind)
			assert.Equal(t, tt.path, metadata(t, err)["path"])
		})
	}
}

func TestLoader_Load_MissingInclude(t *testing.T) {
	t.Parallel()

	l, _ := newLoader(t, map[string]string{
		"/o/main.hcl": `include "gone" { path = "gone.hcl" }`,
	})

	_, err := l.Load(context.Background(), "/o/main.hcl")
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrIOFailure)
	meta := metadata(t, err)
	assert.Equal(t, "/o/gone.hcl", meta["path"])
	assert.Equal(t, "/o/main.hcl", meta["included_from"])
}

func TestLoader_Load_SeesRewrittenFile(t *testing.T) {
	t.Parallel()

	l, mem := newLoader(t, map[string]string{
		"/o/a.hcl": `first "a" {}`,
	})

	blocks, err := l.Load(context.Background(), "/o/a.hcl")
	require.NoError(t, err)
	require.Len(t, blocks, 1)
	assert.Equal(t, "first", blocks[0].Tag)

	require.NoError(t, afero.WriteFile(mem, "/o/a.hcl", []byte(`second "b" {}`+"\n"), 0o644))
	later := time.Now().Add(time.Minute)
	require.NoError(t, mem.Chtimes("/o/a.hcl", later, later))

	blocks, err = l.Load(context.Background(), "/o/a.hcl")
	require.NoError(t, err)
	require.Len(t, blocks, 1)
	assert.Equal(t, "second", blocks[0].Tag)
}

func TestLoader_Load_FreshScopePerCall(t *testing.T) {
	t.Parallel()

	l, _ := newLoader(t, map[string]string{
		"/o/a.hcl": "counter = 1\nthing \"a\" {}\n",
	})

	first, err := l.Load(context.Background(), "/o/a.hcl")
	require.NoError(t, err)
	second, err := l.Load(context.Background(), "/o/a.hcl")
	require.NoError(t, err)

	first[0].Scope.Variables["counter"] = cty.NumberIntVal(2)
	assert.True(t, second[0].Scope.Variables["counter"].Equals(cty.NumberIntVal(1)).True())
}

func TestLoader_Load_Canceled(t *testing.T) {
	t.Parallel()

	l, _ := newLoader(t, map[string]string{"/o/a.hcl": ""})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := l.Load(ctx, "/o/a.hcl")
	require.ErrorIs(t, err, context.Canceled)
}
