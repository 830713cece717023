package fakeengine

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/bhandras/replbox/internal/engine"
	"github.com/bhandras/replbox/pkg/types"
	"github.com/stretchr/testify/require"
)

func files() []types.VirtualFile {
	return []types.VirtualFile{
		{Name: "index.js", Content: "console.log(1)", IsEntry: true},
		{Name: "other.js", Content: "export {}"},
	}
}

func TestBundleEmitsOneArtifactPerEntry(t *testing.T) {
	t.Parallel()

	e := New()
	arts, err := e.Bundle(context.Background(), files(), types.DefaultBuildOptions())
	require.NoError(t, err)
	require.Len(t, arts, 1)
	require.Equal(t, "index.js", arts[0].Name)
	require.Contains(t, arts[0].Content, "console.log(1)")
	require.Equal(t, 1, e.Calls())

	snap, err := e.Snapshot(context.Background())
	require.NoError(t, err)
	require.Equal(t, "export {}", snap[engine.SourceRoot+"other.js"])
	require.Equal(t, arts[0].Content, snap[engine.OutputRoot+"index.js"])
}

func TestBundleWithoutEntriesFails(t *testing.T) {
	t.Parallel()

	e := New()
	in := files()
	in[0].IsEntry = false
	_, err := e.Bundle(context.Background(), in, types.DefaultBuildOptions())
	require.ErrorIs(t, err, engine.ErrNoEntryPoints)

	_, err = e.Snapshot(context.Background())
	require.Error(t, err)
}

func TestDelayedReady(t *testing.T) {
	t.Parallel()

	e := New(WithDelayedReady())
	select {
	case <-e.Ready():
		t.Fatal("ready before MarkReady")
	default:
	}
	e.MarkReady()
	e.MarkReady()
	select {
	case <-e.Ready():
	case <-time.After(time.Second):
		t.Fatal("not ready after MarkReady")
	}
}

func TestGateBlocksUntilReleased(t *testing.T) {
	t.Parallel()

	gate := make(chan struct{})
	e := New(WithGate(gate))

	done := make(chan error, 1)
	go func() {
		_, err := e.Bundle(context.Background(), files(), types.DefaultBuildOptions())
		done <- err
	}()

	<-e.Started()
	select {
	case <-done:
		t.Fatal("bundle finished before gate opened")
	case <-time.After(20 * time.Millisecond):
	}

	close(gate)
	require.NoError(t, <-done)
}

func TestGateHonorsContext(t *testing.T) {
	t.Parallel()

	e := New(WithGate(make(chan struct{})))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := e.Bundle(ctx, files(), types.DefaultBuildOptions())
	require.ErrorIs(t, err, context.Canceled)
}

func TestBundleFuncAndSnapshotFailure(t *testing.T) {
	t.Parallel()

	boom := errors.New("boom")
	e := New(WithBundleFunc(func(context.Context, []types.VirtualFile, types.BuildOptions) ([]types.Artifact, error) {
		return nil, boom
	}))
	_, err := e.Bundle(context.Background(), files(), types.DefaultBuildOptions())
	require.ErrorIs(t, err, boom)

	e = New()
	_, err = e.Bundle(context.Background(), files(), types.DefaultBuildOptions())
	require.NoError(t, err)
	e.FailSnapshot(boom)
	_, err = e.Snapshot(context.Background())
	require.ErrorIs(t, err, boom)
}
