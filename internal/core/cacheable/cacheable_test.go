package cacheable_test

import (
	"context"
	"errors"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zclconf/go-cty/cty"
	"go.trai.ch/trove/internal/adapters/fs"
	"go.trai.ch/trove/internal/adapters/loader"
	"go.trai.ch/trove/internal/core/cacheable"
	"go.trai.ch/trove/internal/core/domain"
	"go.trai.ch/trove/internal/core/ports"
	"go.trai.ch/zerr"
)

type probe struct {
	cacheable.Meta

	Description string `hcl:"description" json:"description"`
	Port        int    `hcl:"port,optional" json:"port,omitempty"`
}

func (p *probe) Validate() error {
	if p.Port < 0 {
		return errors.New("port must not be negative")
	}
	return nil
}

type note struct {
	cacheable.Meta

	Text string `hcl:"text" json:"text"`
}

const probeSource = `
greeting = "hello"

probe "scan" {
  description = upper(greeting)
  port        = 8080

  function "banner" {
    params = [who]
    result = "${greeting} ${who}"
  }

  function "shout" {
    params = [who]
    result = upper(banner(who))
  }
}
`

// countingLoader counts how often a file is loaded.
type countingLoader struct {
	ports.ContextLoader
	calls int
}

func (c *countingLoader) Load(ctx context.Context, path string) ([]domain.ContextBlock, error) {
	c.calls++
	return c.ContextLoader.Load(ctx, path)
}

func newRegistry() *cacheable.Registry {
	registry := cacheable.NewRegistry()
	registry.Register("probe", func() cacheable.Object { return &probe{} })
	registry.Register("note", func() cacheable.Object { return &note{} })
	return registry
}

func newLoader(t *testing.T, files map[string]string) (*countingLoader, afero.Fs) {
	t.Helper()
	memFs := afero.NewMemMapFs()
	for path, content := range files {
		require.NoError(t, afero.WriteFile(memFs, path, []byte(content), domain.FilePerm))
	}
	l, err := loader.New(fs.NewWithFs(memFs))
	require.NoError(t, err)
	return &countingLoader{ContextLoader: l}, memFs
}

func loadBlock(t *testing.T, l ports.ContextLoader, path string) domain.ContextBlock {
	t.Helper()
	blocks, err := l.Load(context.Background(), path)
	require.NoError(t, err)
	require.NotEmpty(t, blocks)
	return blocks[0]
}

func metadata(t *testing.T, err error) map[string]any {
	t.Helper()
	var zErr *zerr.Error
	require.ErrorAs(t, err, &zErr)
	return zErr.Metadata()
}

func TestLoad(t *testing.T) {
	l, _ := newLoader(t, map[string]string{"/scripts/scan.hcl": probeSource})
	block := loadBlock(t, l, "/scripts/scan.hcl")

	obj, err := cacheable.Load(context.Background(), newRegistry(), block)
	require.NoError(t, err)

	p, ok := obj.(*probe)
	require.True(t, ok)
	assert.Equal(t, "HELLO", p.Description)
	assert.Equal(t, 8080, p.Port)
	assert.Equal(t, "scan", p.Name)
	assert.Equal(t, "probe", p.Type)
	assert.Equal(t, cacheable.ObjectID("/scripts/scan.hcl", "probe", "scan"), p.ID)
	assert.True(t, p.Materialized())
	assert.Equal(t, []string{"banner", "shout"}, p.Capabilities())

	val, err := p.Call(context.Background(), "shout", cty.StringVal("world"))
	require.NoError(t, err)
	assert.Equal(t, "HELLO WORLD", val.AsString())
}

func TestLoad_Failures(t *testing.T) {
	tests := []struct {
		name    string
		source  string
		wantErr error
	}{
		{
			name:    "unknown attribute",
			source:  "probe \"a\" {\n  description = \"x\"\n  color = \"red\"\n}",
			wantErr: domain.ErrValidationFailure,
		},
		{
			name:    "missing required attribute",
			source:  `probe "a" { port = 1 }`,
			wantErr: domain.ErrValidationFailure,
		},
		{
			name:    "unsuitable type",
			source:  "probe \"a\" {\n  description = \"x\"\n  port = \"high\"\n}",
			wantErr: domain.ErrValidationFailure,
		},
		{
			name:    "rejected by Validate",
			source:  "probe \"a\" {\n  description = \"x\"\n  port = -1\n}",
			wantErr: domain.ErrValidationFailure,
		},
		{
			name:    "unknown variable",
			source:  `probe "a" { description = missing }`,
			wantErr: domain.ErrEvaluationException,
		},
		{
			name:    "raising function call",
			source:  `probe "a" { description = jsondecode("{") }`,
			wantErr: domain.ErrEvaluationException,
		},
		{
			name: "malformed capability",
			source: `probe "a" {
  description = "x"
  function "f" {
    params = [x]
  }
}`,
			wantErr: domain.ErrEvaluationException,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l, _ := newLoader(t, map[string]string{"/a.hcl": tt.source})
			block := loadBlock(t, l, "/a.hcl")

			obj, err := cacheable.Load(context.Background(), newRegistry(), block)
			require.Error(t, err)
			assert.Nil(t, obj)
			require.ErrorIs(t, err, tt.wantErr)

			meta := metadata(t, err)
			assert.Equal(t, "/a.hcl", meta["path"])
			assert.Equal(t, "probe", meta["type"])
		})
	}
}

func TestLoad_UnknownType(t *testing.T) {
	block := domain.ContextBlock{Tag: "mystery", Path: "/a.hcl"}

	_, err := cacheable.Load(context.Background(), newRegistry(), block)
	require.ErrorIs(t, err, domain.ErrUnknownType)
	require.ErrorIs(t, err, domain.ErrValidationFailure)
}

func TestRegistry(t *testing.T) {
	registry := newRegistry()

	assert.Equal(t, []string{"probe", "note"}, registry.Tags())
	assert.True(t, registry.Recognizes("note"))
	assert.False(t, registry.Recognizes("function"))

	assert.Panics(t, func() {
		registry.Register("probe", func() cacheable.Object { return &probe{} })
	})

	first, ok := registry.First([]domain.ContextBlock{
		{Tag: "settings"},
		{Tag: "note", Labels: []string{"b"}},
		{Tag: "probe", Labels: []string{"c"}},
	})
	require.True(t, ok)
	assert.Equal(t, "note", first.Tag)

	_, ok = registry.First([]domain.ContextBlock{{Tag: "settings"}})
	assert.False(t, ok)
}

func skeleton(t *testing.T, l ports.ContextLoader, path string) *probe {
	t.Helper()

	obj, err := cacheable.Load(context.Background(), newRegistry(), loadBlock(t, l, path))
	require.NoError(t, err)
	obj.(*probe).Port = 9000 // persisted value differs from the source

	record, err := cacheable.Record(obj)
	require.NoError(t, err)

	entry := &domain.CacheEntry{Path: path, TypeName: "probe", ObjectID: record.ID}
	repo := cacheable.NewRepository(newRegistry(), nil, l)
	restored, err := repo.Skeleton(record, entry)
	require.NoError(t, err)
	return restored.(*probe)
}

func TestSkeleton_MaterializesOnMiss(t *testing.T) {
	l, _ := newLoader(t, map[string]string{"/scripts/scan.hcl": probeSource})
	p := skeleton(t, l, "/scripts/scan.hcl")
	l.calls = 0

	assert.False(t, p.Materialized())
	assert.Equal(t, "HELLO", p.Description)
	assert.Equal(t, 9000, p.Port)
	assert.False(t, p.HasCapability("banner"))
	assert.Equal(t, 0, l.calls)

	val, err := p.Call(context.Background(), "banner", cty.StringVal("trove"))
	require.NoError(t, err)
	assert.Equal(t, "hello trove", val.AsString())
	assert.Equal(t, 1, l.calls)
	assert.True(t, p.Materialized())
	assert.Equal(t, 9000, p.Port, "persisted attributes survive materialization")

	_, err = p.Call(context.Background(), "banner", cty.StringVal("again"))
	require.NoError(t, err)
	assert.Equal(t, 1, l.calls)
}

func TestMaterialize_Idempotent(t *testing.T) {
	l, _ := newLoader(t, map[string]string{"/scripts/scan.hcl": probeSource})
	p := skeleton(t, l, "/scripts/scan.hcl")
	l.calls = 0

	ran, err := p.Materialize(context.Background())
	require.NoError(t, err)
	assert.True(t, ran)

	ran, err = p.Materialize(context.Background())
	require.NoError(t, err)
	assert.False(t, ran)
	assert.Equal(t, 1, l.calls)
}

func TestCapability_NotDefined(t *testing.T) {
	l, _ := newLoader(t, map[string]string{"/scripts/scan.hcl": probeSource})
	p := skeleton(t, l, "/scripts/scan.hcl")
	l.calls = 0

	_, err := p.Capability(context.Background(), "exploit")
	require.ErrorIs(t, err, domain.ErrCapabilityNotFound)
	assert.Equal(t, "exploit", metadata(t, err)["capability"])
	assert.Equal(t, 1, l.calls)

	_, err = p.Capability(context.Background(), "exploit")
	require.ErrorIs(t, err, domain.ErrCapabilityNotFound)
	assert.Equal(t, 1, l.calls, "a second miss does not reload")
}

func TestMaterialize_DefinitionRemoved(t *testing.T) {
	l, memFs := newLoader(t, map[string]string{"/scripts/scan.hcl": probeSource})
	p := skeleton(t, l, "/scripts/scan.hcl")

	require.NoError(t, afero.WriteFile(memFs, "/scripts/scan.hcl", []byte(`note "n" { text = "x" }`), domain.FilePerm))

	_, err := p.Materialize(context.Background())
	require.ErrorIs(t, err, domain.ErrEvaluationException)
	require.ErrorIs(t, err, domain.ErrDefinitionMissing)
	assert.False(t, p.Materialized())
}

func TestCall_Raises(t *testing.T) {
	source := `probe "a" {
  description = "x"
  function "parse" {
    params = [s]
    result = jsondecode(s)
  }
}`
	l, _ := newLoader(t, map[string]string{"/a.hcl": source})
	obj, err := cacheable.Load(context.Background(), newRegistry(), loadBlock(t, l, "/a.hcl"))
	require.NoError(t, err)

	_, err = cacheable.MetaOf(obj).Call(context.Background(), "parse", cty.StringVal("{"))
	require.ErrorIs(t, err, domain.ErrEvaluationException)
	assert.Equal(t, "parse", metadata(t, err)["capability"])
}

func TestRecord(t *testing.T) {
	l, _ := newLoader(t, map[string]string{"/scripts/scan.hcl": probeSource})
	obj, err := cacheable.Load(context.Background(), newRegistry(), loadBlock(t, l, "/scripts/scan.hcl"))
	require.NoError(t, err)
	cacheable.MetaOf(obj).Bind(&domain.CacheEntry{Path: "/scripts/scan.hcl"}, nil)

	record, err := cacheable.Record(obj)
	require.NoError(t, err)
	assert.Equal(t, "probe", record.TypeName)
	assert.Equal(t, "scan", record.Name)
	assert.Equal(t, "/scripts/scan.hcl", record.EntryPath)
	assert.JSONEq(t, `{"description":"HELLO","port":8080}`, string(record.Attributes))
}

func TestObjectID(t *testing.T) {
	a := cacheable.ObjectID("/a.hcl", "probe", "x")
	assert.Len(t, a, 16)
	assert.Equal(t, a, cacheable.ObjectID("/a.hcl", "probe", "x"))
	assert.NotEqual(t, a, cacheable.ObjectID("/a.hcl", "probe", "y"))
	assert.NotEqual(t, a, cacheable.ObjectID("/a.hcl", "note", "x"))
}
