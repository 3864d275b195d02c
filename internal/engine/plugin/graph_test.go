package plugin_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zclconf/go-cty/cty"
	"go.trai.ch/trove/internal/adapters/fs"
	"go.trai.ch/trove/internal/adapters/loader"
	"go.trai.ch/trove/internal/adapters/overlays"
	"go.trai.ch/trove/internal/core/domain"
	"go.trai.ch/trove/internal/core/ports/mocks"
	"go.trai.ch/trove/internal/engine/plugin"
	"go.trai.ch/zerr"
	"go.uber.org/mock/gomock"
)

type world struct {
	mem      afero.Fs
	registry *overlays.Registry
	graph    *plugin.Graph
}

func newWorld(t *testing.T, overlayNames ...string) *world {
	t.Helper()

	mem := afero.NewMemMapFs()
	files := fs.NewWithFs(mem)
	registry := overlays.NewRegistry(files, "")
	for _, name := range overlayNames {
		root := "/" + name
		require.NoError(t, mem.MkdirAll(root, 0o750))
		require.NoError(t, registry.Add(domain.Overlay{Name: name, Path: root}))
	}

	contextLoader, err := loader.New(files)
	require.NoError(t, err)

	return &world{mem: mem, registry: registry, graph: plugin.NewGraph(registry, contextLoader)}
}

func (w *world) bundle(t *testing.T, overlay, name, body string) {
	t.Helper()
	path := filepath.Join("/"+overlay, domain.DefaultBundlesDir, name, name+domain.SourceExt)
	require.NoError(t, afero.WriteFile(w.mem, path, []byte(body), 0o644))
}

func ints(values ...cty.Value) []int64 {
	out := make([]int64, 0, len(values))
	for _, v := range values {
		i, _ := v.AsBigFloat().Int64()
		out = append(out, i)
	}
	return out
}

func strs(values ...cty.Value) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		out = append(out, v.AsString())
	}
	return out
}

func TestGraph_DistributeCallAcrossOverlays(t *testing.T) {
	w := newWorld(t, "alpha", "beta")
	w.bundle(t, "alpha", "widgets", "bundle \"widgets\" {\n  function \"value\" {\n    params = []\n    result = 1\n  }\n}\n")
	w.bundle(t, "beta", "widgets", "bundle \"widgets\" {\n  function \"value\" {\n    params = []\n    result = 2\n  }\n}\n")
	ctx := context.Background()

	node, err := w.graph.Node(ctx, "widgets")
	require.NoError(t, err)
	require.Len(t, node.Contexts(), 2)
	assert.Equal(t, "alpha", node.Contexts()[0].Overlay.Name)

	results, err := node.DistributeCall(ctx, "value")
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 2}, ints(results...))

	first, err := node.DistributeOnce(ctx, "value")
	require.NoError(t, err)
	assert.Equal(t, []int64{1}, ints(first))
}

func TestGraph_DependencyTraversal(t *testing.T) {
	w := newWorld(t, "core")
	w.bundle(t, "core", "app", `bundle "app" {
  description = "application"
  depends_on  = ["net", "log"]

  function "greet" {
    params = [who]
    result = "app:${who}"
  }
}
`)
	w.bundle(t, "core", "net", `bundle "net" {
  depends_on = ["log"]

  function "greet" {
    params = [who]
    result = "net:${who}"
  }
}
`)
	w.bundle(t, "core", "log", `bundle "log" {
  function "greet" {
    params = [who]
    result = "log:${who}"
  }
}
`)
	ctx := context.Background()

	node, err := w.graph.Node(ctx, "app")
	require.NoError(t, err)
	assert.Equal(t, "application", node.Contexts()[0].Description)
	assert.Equal(t, []string{"app", "log", "net"}, w.graph.Loaded())

	results, err := node.DistributeCall(ctx, "greet", cty.StringVal("x"))
	require.NoError(t, err)
	assert.Equal(t, []string{"app:x", "net:x", "log:x"}, strs(results...))
}

func TestGraph_DependIdentity(t *testing.T) {
	w := newWorld(t, "core")
	w.bundle(t, "core", "a", "bundle \"a\" {\n  depends_on = [\"b\"]\n}\n")
	w.bundle(t, "core", "b", "bundle \"b\" {\n  depends_on = [\"a\"]\n\n  function \"ping\" {\n    params = []\n    result = \"pong\"\n  }\n}\n")
	ctx := context.Background()

	a, err := w.graph.Node(ctx, "a")
	require.NoError(t, err)

	b1, err := a.Depend(ctx, "b")
	require.NoError(t, err)
	b2, err := a.Depend(ctx, "b")
	require.NoError(t, err)
	assert.Same(t, b1, b2)

	self, err := a.Depend(ctx, "a")
	require.NoError(t, err)
	assert.Same(t, a, self)

	back, err := b1.Depend(ctx, "a")
	require.NoError(t, err)
	assert.Same(t, a, back)

	again, err := w.graph.Node(ctx, "a")
	require.NoError(t, err)
	assert.Same(t, a, again)

	// the cycle terminates and each node is visited once
	results, err := a.DistributeCall(ctx, "ping")
	require.NoError(t, err)
	assert.Equal(t, []string{"pong"}, strs(results...))
}

func TestGraph_FailuresRollBack(t *testing.T) {
	w := newWorld(t, "core")
	w.bundle(t, "core", "top", "bundle \"top\" {\n  depends_on = [\"mid\"]\n}\n")
	w.bundle(t, "core", "mid", "bundle \"mid\" {\n  depends_on = [\"absent\"]\n}\n")
	ctx := context.Background()

	_, err := w.graph.Node(ctx, "top")
	require.ErrorIs(t, err, domain.ErrDependencyNotFound)
	assert.Equal(t, "DependencyNotFound", domain.KindOf(err))
	assert.Empty(t, w.graph.Loaded())

	w.bundle(t, "core", "absent", "bundle \"absent\" {}\n")
	node, err := w.graph.Node(ctx, "top")
	require.NoError(t, err)
	assert.Len(t, node.Dependencies(), 1)
	assert.Equal(t, []string{"absent", "mid", "top"}, w.graph.Loaded())
}

func TestGraph_Errors(t *testing.T) {
	w := newWorld(t, "core")
	w.bundle(t, "core", "svc", `bundle "svc" {
  function "fail" {
    params = []
    result = jsondecode("{")
  }
}
`)
	w.bundle(t, "core", "empty", "other \"x\" {}\n")
	ctx := context.Background()

	_, err := w.graph.Node(ctx, "missing")
	require.ErrorIs(t, err, domain.ErrDependencyNotFound)

	_, err = w.graph.Node(ctx, "empty")
	require.ErrorIs(t, err, domain.ErrBundleBlockMissing)
	require.ErrorIs(t, err, domain.ErrEvaluationException)

	node, err := w.graph.Node(ctx, "svc")
	require.NoError(t, err)

	_, err = node.DistributeCall(ctx, "nothing")
	require.ErrorIs(t, err, domain.ErrCapabilityNotFound)

	_, err = node.DistributeOnce(ctx, "fail")
	require.ErrorIs(t, err, domain.ErrEvaluationException)
	var zErr *zerr.Error
	require.True(t, errors.As(err, &zErr))
	meta := zErr.Metadata()
	assert.Equal(t, "svc", meta["bundle"])
	assert.Equal(t, "core", meta["overlay"])
	assert.Equal(t, "fail", meta["method"])
}

func TestGraph_RegistryError(t *testing.T) {
	ctrl := gomock.NewController(t)
	registry := mocks.NewMockBundleRegistry(ctrl)
	contextLoader := mocks.NewMockContextLoader(ctrl)
	boom := errors.New("boom")

	registry.EXPECT().Contributions("widgets").Return(nil, boom)

	g := plugin.NewGraph(registry, contextLoader)
	_, err := g.Node(context.Background(), "widgets")
	require.ErrorIs(t, err, boom)
}

func TestGraph_Reset(t *testing.T) {
	w := newWorld(t, "core")
	w.bundle(t, "core", "a", "bundle \"a\" {}\n")
	ctx := context.Background()

	first, err := w.graph.Node(ctx, "a")
	require.NoError(t, err)
	w.graph.Reset()
	assert.Empty(t, w.graph.Loaded())

	second, err := w.graph.Node(ctx, "a")
	require.NoError(t, err)
	assert.NotSame(t, first, second)
}
