package watcher

import (
	"context"
	"os"
	"path/filepath"
	"slices"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/trove/internal/core/ports"
	"go.trai.ch/trove/internal/core/ports/mocks"
	"go.uber.org/mock/gomock"
)

func TestConvertEvent(t *testing.T) {
	tests := []struct {
		name   string
		op     fsnotify.Op
		want   ports.WatchOp
		wantOK bool
	}{
		{name: "write", op: fsnotify.Write, want: ports.OpWrite, wantOK: true},
		{name: "create", op: fsnotify.Create, want: ports.OpCreate, wantOK: true},
		{name: "remove", op: fsnotify.Remove, want: ports.OpRemove, wantOK: true},
		{name: "rename", op: fsnotify.Rename, want: ports.OpRename, wantOK: true},
		{name: "chmod", op: fsnotify.Chmod, wantOK: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := convertEvent(fsnotify.Event{Name: "/x.hcl", Op: tt.op})
			assert.Equal(t, tt.wantOK, ok)
			if ok {
				assert.Equal(t, ports.WatchEvent{Path: "/x.hcl", Operation: tt.want}, got)
			}
		})
	}
}

func TestDirectories_SkipsVCS(t *testing.T) {
	root := t.TempDir()
	for _, dir := range []string{"scripts/net", ".git/objects", "bundles/core"} {
		require.NoError(t, os.MkdirAll(filepath.Join(root, dir), 0o750))
	}

	w := &Watcher{}
	got := slices.Collect(w.directories(root))

	assert.ElementsMatch(t, []string{
		root,
		filepath.Join(root, "bundles"),
		filepath.Join(root, "bundles", "core"),
		filepath.Join(root, "scripts"),
		filepath.Join(root, "scripts", "net"),
	}, got)
}

func TestWatcher_ReportsWrites(t *testing.T) {
	ctrl := gomock.NewController(t)
	logger := mocks.NewMockLogger(ctrl)
	logger.EXPECT().Error(gomock.Any()).AnyTimes()

	first, second := t.TempDir(), t.TempDir()
	w, err := NewWatcher(logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = w.Stop() })

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	require.NoError(t, w.Start(ctx, []string{first, second}))

	target := filepath.Join(second, "a.hcl")
	require.NoError(t, os.WriteFile(target, []byte("x = 1\n"), 0o600))

	seen := make(chan string, 1)
	go func() {
		for event := range w.Events() {
			if event.Path == target {
				seen <- event.Path
				return
			}
		}
	}()

	select {
	case got := <-seen:
		assert.Equal(t, target, got)
	case <-time.After(5 * time.Second):
		t.Fatal("no event for written file")
	}
}
