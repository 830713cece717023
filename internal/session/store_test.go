package session

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/bhandras/replbox/internal/actor"
	"github.com/bhandras/replbox/internal/actor/actortest"
	"github.com/bhandras/replbox/internal/engine"
	"github.com/bhandras/replbox/internal/engine/fakeengine"
	"github.com/bhandras/replbox/internal/fragment"
	"github.com/bhandras/replbox/internal/install"
	"github.com/bhandras/replbox/internal/offline"
	"github.com/bhandras/replbox/internal/preset"
	"github.com/bhandras/replbox/internal/vfs"
	"github.com/bhandras/replbox/pkg/types"
	"github.com/stretchr/testify/require"
)

const waitFor = 2 * time.Second

type storeFixture struct {
	store    *Store
	engine   *fakeengine.Engine
	location *fragment.MemoryLocation
	worker   *offline.Worker
}

func hiSession() types.Session {
	return types.Session{
		CurrentPreset: preset.DefaultName,
		Files:         []types.VirtualFile{{Name: "index.js", Content: "console.log('hi')", IsEntry: true}},
		Options:       types.DefaultBuildOptions(),
	}
}

func newFixture(t *testing.T, eng *fakeengine.Engine, mutate func(*StoreConfig)) *storeFixture {
	t.Helper()

	catalog, err := preset.NewCatalog(preset.Builtin()...)
	require.NoError(t, err)

	worker := offline.NewWorker(nil)
	worker.Start()
	t.Cleanup(worker.Stop)

	loc := fragment.NewMemoryLocation("")
	cfg := StoreConfig{
		ID:       "test-session",
		Initial:  hiSession(),
		Catalog:  catalog,
		Engine:   eng,
		Location: loc,
		Offline:  worker,
		Clock:    actortest.NewFakeClock(time.Unix(1700000000, 0)),
	}
	if mutate != nil {
		mutate(&cfg)
	}
	store, err := NewStore(cfg)
	require.NoError(t, err)
	t.Cleanup(store.Close)

	return &storeFixture{store: store, engine: eng, location: loc, worker: worker}
}

func ctxT(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), waitFor)
	t.Cleanup(cancel)
	return ctx
}

func TestStore_EndToEndBuild(t *testing.T) {
	t.Parallel()

	want := []types.Artifact{{Name: "dist/index.js", Content: `console.log("hi")`}}
	eng := fakeengine.New(fakeengine.WithBundleFunc(func(context.Context, []types.VirtualFile, types.BuildOptions) ([]types.Artifact, error) {
		return want, nil
	}))
	fx := newFixture(t, eng, nil)
	ctx := ctxT(t)

	state, err := fx.store.Build(ctx)
	require.NoError(t, err)
	require.Equal(t, want, state.Output)
	require.False(t, state.Bundling)
	require.Nil(t, state.BuildError)

	raw, err := fx.location.Fragment(ctx)
	require.NoError(t, err)
	decoded := fragment.Decode(raw)
	require.NotNil(t, decoded)
	require.True(t, hiSession().Equal(*decoded))
	require.Equal(t, 1, fx.location.Writes(), "only the initial sync writes; builds do not")
}

func TestStore_SingleFlight(t *testing.T) {
	t.Parallel()

	gate := make(chan struct{})
	eng := fakeengine.New(fakeengine.WithGate(gate))
	fx := newFixture(t, eng, nil)
	ctx := ctxT(t)

	require.NoError(t, fx.store.RunBuild(ctx))
	<-eng.Started()
	during := fx.store.Snapshot()
	require.True(t, during.Bundling)

	require.ErrorIs(t, fx.store.RunBuild(ctx), ErrBuildInProgress)
	require.ErrorIs(t, fx.store.RunBuild(ctx), ErrBuildInProgress)
	after := fx.store.Snapshot()
	require.Equal(t, during.BuildGen, after.BuildGen)

	close(gate)
	state, err := fx.store.AwaitIdle(ctx)
	require.NoError(t, err)
	require.NotNil(t, state.Output)
	require.Equal(t, 1, eng.Calls(), "dropped requests never reach the engine")
}

func TestStore_BuildFailureIsStoredVerbatim(t *testing.T) {
	t.Parallel()

	fx := newFixture(t, fakeengine.New(), nil)
	ctx := ctxT(t)

	require.NoError(t, fx.store.SetEntry(ctx, "index.js", false))
	state, err := fx.store.Build(ctx)
	require.NoError(t, err)
	require.Nil(t, state.Output)
	require.ErrorIs(t, state.BuildError, engine.ErrNoEntryPoints)

	require.NoError(t, fx.store.SetEntry(ctx, "index.js", true))
	state, err = fx.store.Build(ctx)
	require.NoError(t, err)
	require.NotNil(t, state.Output)
	require.Nil(t, state.BuildError)
}

func TestStore_BuildTimeout(t *testing.T) {
	t.Parallel()

	eng := fakeengine.New(fakeengine.WithGate(make(chan struct{})))
	fx := newFixture(t, eng, func(cfg *StoreConfig) { cfg.BuildTimeout = 30 * time.Millisecond })

	state, err := fx.store.Build(ctxT(t))
	require.NoError(t, err)
	var timeout *BuildTimedOutError
	require.True(t, errors.As(state.BuildError, &timeout), "err=%v", state.BuildError)
	require.Equal(t, 30*time.Millisecond, timeout.After)
	require.Nil(t, state.Output)
}

func TestStore_HandoffReachesOfflineWorker(t *testing.T) {
	t.Parallel()

	fx := newFixture(t, fakeengine.New(), nil)
	_, err := fx.store.Build(ctxT(t))
	require.NoError(t, err)

	actortest.Eventually(t, waitFor, func() bool {
		src, ok := fx.worker.File("test-session", engine.SourceRoot+"index.js")
		if !ok || src != "console.log('hi')" {
			return false
		}
		_, ok = fx.worker.File("test-session", engine.OutputRoot+"index.js")
		return ok
	})
}

func TestStore_HandoffFailureKeepsResult(t *testing.T) {
	t.Parallel()

	eng := fakeengine.New()
	eng.FailSnapshot(errors.New("snapshot unavailable"))
	fx := newFixture(t, eng, nil)

	state, err := fx.store.Build(ctxT(t))
	require.NoError(t, err)
	require.NotNil(t, state.Output)
	require.Nil(t, state.BuildError)

	time.Sleep(20 * time.Millisecond)
	require.Empty(t, fx.worker.Paths("test-session"))
	require.NotNil(t, fx.store.Snapshot().Output)
}

func TestStore_WorkerReadyFollowsEngine(t *testing.T) {
	t.Parallel()

	eng := fakeengine.New(fakeengine.WithDelayedReady())
	fx := newFixture(t, eng, nil)
	require.False(t, fx.store.Snapshot().WorkerReady)

	eng.MarkReady()
	actortest.Eventually(t, waitFor, func() bool { return fx.store.Snapshot().WorkerReady })
}

func TestStore_FileOperationsPersist(t *testing.T) {
	t.Parallel()

	fx := newFixture(t, fakeengine.New(), nil)
	ctx := ctxT(t)

	name, err := fx.store.AddFile(ctx)
	require.NoError(t, err)
	require.Equal(t, "new.js", name)

	outcome, err := fx.store.RenameFile(ctx, "new.js", "index.js")
	require.NoError(t, err)
	require.Equal(t, vfs.RenameRejected, outcome)

	outcome, err = fx.store.RenameFile(ctx, "new.js", "util.js")
	require.NoError(t, err)
	require.Equal(t, vfs.RenameApplied, outcome)

	require.NoError(t, fx.store.EditFile(ctx, "util.js", "export const y = 2"))
	require.ErrorIs(t, fx.store.RemoveFile(ctx, "ghost.js"), ErrFileNotFound)

	opts := types.DefaultBuildOptions()
	opts.Global = "Lib"
	require.NoError(t, fx.store.SetOptions(ctx, opts))

	state := fx.store.Snapshot()
	require.Equal(t, []types.VirtualFile{
		{Name: "index.js", Content: "console.log('hi')", IsEntry: true},
		{Name: "util.js", Content: "export const y = 2"},
	}, state.Session.Files)

	// Persistence runs after the state is published.
	var raw string
	actortest.Eventually(t, waitFor, func() bool {
		raw, err = fx.location.Fragment(ctx)
		return err == nil && raw == state.Fragment
	})
	decoded := fragment.Decode(raw)
	require.NotNil(t, decoded)
	require.True(t, state.Session.Equal(*decoded))

	require.NoError(t, fx.store.RemoveFile(ctx, "util.js"))
	require.ErrorIs(t, fx.store.RemoveFile(ctx, "index.js"), ErrLastFile)
}

func TestStore_SelectPreset(t *testing.T) {
	t.Parallel()

	fx := newFixture(t, fakeengine.New(), nil)
	ctx := ctxT(t)

	_, err := fx.store.Build(ctx)
	require.NoError(t, err)
	require.NotNil(t, fx.store.Snapshot().Output)

	require.ErrorIs(t, fx.store.SelectPreset(ctx, "Cobol"), ErrUnknownPreset)
	require.NoError(t, fx.store.SelectPreset(ctx, "Browserslist"))

	state := fx.store.Snapshot()
	require.Equal(t, "Browserslist", state.Session.CurrentPreset)
	require.Nil(t, state.Output)
	require.False(t, state.BrowserslistEnabled())
}

func TestStore_InstallPromptFlow(t *testing.T) {
	t.Parallel()

	fx := newFixture(t, fakeengine.New(), nil)
	ctx := ctxT(t)

	require.ErrorIs(t, fx.store.ShowInstallPrompt(ctx), ErrNoInstallPrompt)

	offer := install.NewOffer("offer")
	require.NoError(t, fx.store.OfferInstall(ctx, offer))
	require.NotNil(t, fx.store.Snapshot().InstallPrompt)

	require.NoError(t, fx.store.ShowInstallPrompt(ctx))
	select {
	case <-offer.Prompted():
	case <-time.After(waitFor):
		t.Fatal("prompt was not shown")
	}
	require.NotNil(t, fx.store.Snapshot().InstallPrompt, "cleared only after the user answers")

	require.True(t, offer.Choose(install.OutcomeAccepted))
	actortest.Eventually(t, waitFor, func() bool { return fx.store.Snapshot().InstallPrompt == nil })
	require.ErrorIs(t, fx.store.ShowInstallPrompt(ctx), ErrNoInstallPrompt)
}

func TestStore_SubscribeSeesWholeStates(t *testing.T) {
	t.Parallel()

	fx := newFixture(t, fakeengine.New(), nil)
	updates, cancel := fx.store.Subscribe()
	defer cancel()

	ctx := ctxT(t)
	require.NoError(t, fx.store.EditFile(ctx, "index.js", "console.log(2)"))

	timeout := time.After(waitFor)
	for seen := false; !seen; {
		select {
		case st := <-updates:
			if st.Session.Files[0].Content != "console.log(2)" {
				continue
			}
			decoded := fragment.Decode(st.Fragment)
			require.NotNil(t, decoded)
			require.True(t, st.Session.Equal(*decoded))
			seen = true
		case <-timeout:
			t.Fatal("no update")
		}
	}

	cancel()
	for range updates {
	}
}

func TestStore_ClosedStoreRejectsCommands(t *testing.T) {
	t.Parallel()

	fx := newFixture(t, fakeengine.New(), nil)
	fx.store.Close()
	require.Error(t, fx.store.EditFile(context.Background(), "index.js", "x"))
}

func TestNewStore_RejectsInvalidInitial(t *testing.T) {
	t.Parallel()

	_, err := NewStore(StoreConfig{ID: "x", Initial: types.Session{}})
	require.Error(t, err)
}

// stallingLocation blocks the first SetFragment after stallNext until
// release is closed.
type stallingLocation struct {
	*fragment.MemoryLocation

	armed   atomic.Bool
	entered chan struct{}
	release chan struct{}
}

func newStallingLocation() *stallingLocation {
	return &stallingLocation{
		MemoryLocation: fragment.NewMemoryLocation(""),
		entered:        make(chan struct{}, 1),
		release:        make(chan struct{}),
	}
}

func (l *stallingLocation) stallNext() { l.armed.Store(true) }

func (l *stallingLocation) SetFragment(ctx context.Context, value string) error {
	if l.armed.CompareAndSwap(true, false) {
		l.entered <- struct{}{}
		<-l.release
	}
	return l.MemoryLocation.SetFragment(ctx, value)
}

func TestStore_BuildCompletionSurvivesFullMailbox(t *testing.T) {
	t.Parallel()

	gate := make(chan struct{})
	eng := fakeengine.New(fakeengine.WithGate(gate))
	loc := newStallingLocation()
	fx := newFixture(t, eng, func(cfg *StoreConfig) { cfg.Location = loc })
	ctx := ctxT(t)

	require.NoError(t, fx.store.RunBuild(ctx))
	<-eng.Started()

	// A slow fragment write holds the loop while callers fill the mailbox.
	loc.stallNext()
	require.NoError(t, fx.store.EditFile(ctx, "index.js", "console.log(0)"))
	<-loc.entered

	queued := 0
	for i := 1; ; i++ {
		content := fmt.Sprintf("console.log(%d)", i)
		err := fx.store.actor.Enqueue(UpdateFile("index.js", FileUpdate{Content: &content}, nil))
		if err != nil {
			require.ErrorIs(t, err, actor.ErrMailboxFull)
			break
		}
		queued++
	}
	require.Positive(t, queued)

	close(gate)
	time.Sleep(20 * time.Millisecond)
	close(loc.release)

	state, err := fx.store.AwaitIdle(ctx)
	require.NoError(t, err)
	require.False(t, state.Bundling)
	require.NotNil(t, state.Output)

	require.NoError(t, fx.store.RunBuild(ctx))
	state, err = fx.store.AwaitIdle(ctx)
	require.NoError(t, err)
	require.Equal(t, fmt.Sprintf("console.log(%d)", queued), state.Session.Files[0].Content)
}
