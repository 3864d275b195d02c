package kinds_test

import (
	"context"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/trove/internal/adapters/fs"
	"go.trai.ch/trove/internal/adapters/loader"
	"go.trai.ch/trove/internal/core/cacheable"
	"go.trai.ch/trove/internal/core/domain"
	"go.trai.ch/trove/internal/kinds"
)

func load(t *testing.T, source string) (cacheable.Object, error) {
	t.Helper()
	memFs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(memFs, "/s.hcl", []byte(source), domain.FilePerm))

	l, err := loader.New(fs.NewWithFs(memFs))
	require.NoError(t, err)

	blocks, err := l.Load(context.Background(), "/s.hcl")
	require.NoError(t, err)
	require.Len(t, blocks, 1)

	return cacheable.Load(context.Background(), kinds.NewRegistry(), blocks[0])
}

func TestRegistry_Tags(t *testing.T) {
	assert.Equal(t, []string{kinds.ExploitTag, kinds.PayloadTag, kinds.AuxiliaryTag}, kinds.NewRegistry().Tags())
}

func TestExploit(t *testing.T) {
	obj, err := load(t, `
exploit "ms17_010" {
  description = "SMB remote code execution"
  rank        = "great"
  targets     = ["windows-7", "windows-2008"]

  function "check" {
    params = [host]
    result = "probing ${host}"
  }
}
`)
	require.NoError(t, err)

	e, ok := obj.(*kinds.Exploit)
	require.True(t, ok)
	assert.Equal(t, "great", e.Rank)
	assert.Equal(t, []string{"windows-7", "windows-2008"}, e.Targets)
	assert.True(t, e.HasCapability("check"))
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		source  string
		wantErr bool
	}{
		{
			name:   "exploit without rank",
			source: `exploit "a" { description = "x" }`,
		},
		{
			name:    "exploit with unknown rank",
			source:  "exploit \"a\" {\n  description = \"x\"\n  rank = \"legendary\"\n}",
			wantErr: true,
		},
		{
			name:   "payload",
			source: "payload \"a\" {\n  description = \"x\"\n  platform = \"linux\"\n  size = 64\n}",
		},
		{
			name:    "payload with empty platform",
			source:  "payload \"a\" {\n  description = \"x\"\n  platform = \"\"\n}",
			wantErr: true,
		},
		{
			name:    "payload with negative size",
			source:  "payload \"a\" {\n  description = \"x\"\n  platform = \"linux\"\n  size = -4\n}",
			wantErr: true,
		},
		{
			name:   "auxiliary",
			source: "auxiliary \"a\" {\n  description = \"x\"\n  actions = [\"scan\", \"dump\"]\n}",
		},
		{
			name:    "auxiliary with repeated action",
			source:  "auxiliary \"a\" {\n  description = \"x\"\n  actions = [\"scan\", \"scan\"]\n}",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := load(t, tt.source)
			if !tt.wantErr {
				require.NoError(t, err)
				return
			}
			require.ErrorIs(t, err, domain.ErrValidationFailure)
			assert.ErrorIs(t, err, domain.ErrInvalidAttribute)
		})
	}
}
