package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/bhandras/replbox/internal/actor"
	"github.com/bhandras/replbox/internal/engine"
	"github.com/bhandras/replbox/internal/fragment"
	"github.com/bhandras/replbox/internal/install"
	"github.com/bhandras/replbox/internal/metrics"
	"github.com/bhandras/replbox/internal/offline"
	"github.com/bhandras/replbox/internal/preset"
	"github.com/bhandras/replbox/internal/vfs"
	"github.com/bhandras/replbox/pkg/logger"
	"github.com/bhandras/replbox/pkg/types"
)

// StoreConfig configures a Store.
type StoreConfig struct {
	// ID names the session in logs, handoff messages and storage.
	ID string
	// Initial is the starting session. It must pass fragment.Validate.
	Initial types.Session
	// Catalog resolves preset names for SelectPreset.
	Catalog *preset.Catalog
	// Engine bundles the files.
	Engine engine.Engine
	// Location receives the encoded fragment at start and after every
	// persisted change.
	Location fragment.Location
	// Offline receives the engine snapshot after successful builds. Optional.
	Offline offline.Target
	// BuildTimeout bounds each engine call. Zero means no timeout.
	BuildTimeout time.Duration
	// Clock stamps builds and handoffs. Defaults to the wall clock.
	Clock actor.Clock
}

// Store is the single source of truth for one session. All mutations go
// through the actor loop; readers get whole, cloned snapshots.
type Store struct {
	id      string
	catalog *preset.Catalog
	actor   *actor.Actor[State]
	runtime *Runtime

	mu      sync.Mutex
	subs    map[int]chan State
	nextSub int
}

// NewStore validates the initial session and starts the store loop.
func NewStore(cfg StoreConfig) (*Store, error) {
	if err := fragment.Validate(cfg.Initial); err != nil {
		return nil, fmt.Errorf("initial session: %w", err)
	}
	encoded, err := fragment.Encode(cfg.Initial)
	if err != nil {
		return nil, err
	}

	initial := State{
		Session:  cfg.Initial.Clone(),
		Fragment: encoded,
	}

	s := &Store{
		id:      cfg.ID,
		catalog: cfg.Catalog,
		subs:    make(map[int]chan State),
	}
	s.runtime = NewRuntime(cfg.ID, cfg.Engine, cfg.Location, cfg.Offline, cfg.BuildTimeout, cfg.Clock)
	s.actor = actor.New(initial, Reduce, s.runtime,
		actor.WithCloner(State.Clone),
		actor.WithHooks(actor.Hooks[State]{
			OnTransition: func(_ State, next State, _ actor.Input) {
				s.publish(next)
			},
			OnPanic: func(recovered any) {
				logger.Errorf("[session] %s loop panic: %v", cfg.ID, recovered)
			},
		}),
	)
	s.runtime.syncLocation(s.actor.Context(), encoded)
	s.actor.Start()
	s.runtime.WatchReady(s.actor.Context(), func(in actor.Input) { _ = s.actor.Emit(in) })
	return s, nil
}

// ID returns the session id.
func (s *Store) ID() string { return s.id }

// Snapshot returns the current state.
func (s *Store) Snapshot() State {
	return s.actor.Snapshot()
}

// Done is closed once the store loop has exited.
func (s *Store) Done() <-chan struct{} {
	return s.actor.Done()
}

// Close stops the store, cancels outstanding builds and waits for background
// work to return.
func (s *Store) Close() {
	s.actor.Stop()
	<-s.actor.Done()
	s.runtime.Wait()

	s.mu.Lock()
	for id, ch := range s.subs {
		close(ch)
		delete(s.subs, id)
	}
	s.mu.Unlock()
}

// Subscribe returns a channel that receives the latest state after every
// transition. Slow readers only see the most recent state. The channel is
// closed when the store closes or cancel is called.
func (s *Store) Subscribe() (<-chan State, func()) {
	ch := make(chan State, 1)

	s.mu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = ch
	s.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			if _, ok := s.subs[id]; ok {
				close(ch)
				delete(s.subs, id)
			}
		})
	}
	return ch, cancel
}

func (s *Store) publish(next State) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.subs) == 0 {
		return
	}
	next = next.Clone()
	for _, ch := range s.subs {
		select {
		case ch <- next:
			continue
		default:
		}
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- next:
		default:
		}
	}
}

func await[T any](ctx context.Context, s *Store, in actor.Input, reply chan T) (T, error) {
	var zero T
	if err := s.actor.Enqueue(in); err != nil {
		return zero, err
	}
	select {
	case v := <-reply:
		return v, nil
	case <-ctx.Done():
		return zero, ctx.Err()
	case <-s.actor.Done():
		return zero, actor.ErrStopped
	}
}

func (s *Store) do(ctx context.Context, build func(chan error) actor.Input) error {
	reply := make(chan error, 1)
	err, waitErr := await(ctx, s, build(reply), reply)
	if waitErr != nil {
		return waitErr
	}
	return err
}

// AddFile appends an empty file named new.js, new-1.js, ... and returns the
// chosen name.
func (s *Store) AddFile(ctx context.Context) (string, error) {
	reply := make(chan addFileResult, 1)
	res, err := await(ctx, s, AddFile(reply), reply)
	if err != nil {
		return "", err
	}
	return res.Name, res.Err
}

// RenameFile renames a file. A name held by another file yields
// vfs.RenameRejected and leaves the files unchanged.
func (s *Store) RenameFile(ctx context.Context, oldName, newName string) (vfs.RenameOutcome, error) {
	return s.UpdateFile(ctx, oldName, FileUpdate{NewName: &newName})
}

// EditFile replaces the content of a file.
func (s *Store) EditFile(ctx context.Context, name, content string) error {
	_, err := s.UpdateFile(ctx, name, FileUpdate{Content: &content})
	return err
}

// SetEntry marks or unmarks a file as an entry point.
func (s *Store) SetEntry(ctx context.Context, name string, isEntry bool) error {
	_, err := s.UpdateFile(ctx, name, FileUpdate{IsEntry: &isEntry})
	return err
}

// UpdateFile renames, edits and re-flags one file in a single transition.
// A rejected rename leaves the files unchanged and applies none of the other
// fields.
func (s *Store) UpdateFile(ctx context.Context, name string, update FileUpdate) (vfs.RenameOutcome, error) {
	reply := make(chan renameResult, 1)
	res, err := await(ctx, s, UpdateFile(name, update, reply), reply)
	if err != nil {
		return vfs.RenameRejected, err
	}
	return res.Outcome, res.Err
}

// RemoveFile deletes a file. The last remaining file cannot be removed.
func (s *Store) RemoveFile(ctx context.Context, name string) error {
	return s.do(ctx, func(reply chan error) actor.Input { return RemoveFile(name, reply) })
}

// SelectPreset loads a preset's files and clears the last build result.
func (s *Store) SelectPreset(ctx context.Context, name string) error {
	if s.catalog == nil {
		return ErrUnknownPreset
	}
	p, ok := s.catalog.Get(name)
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownPreset, name)
	}
	return s.do(ctx, func(reply chan error) actor.Input { return SelectPreset(p.Name, p.Files(), reply) })
}

// SetOptions replaces the build options.
func (s *Store) SetOptions(ctx context.Context, opts types.BuildOptions) error {
	return s.PatchOptions(ctx, func(types.BuildOptions) types.BuildOptions { return opts })
}

// PatchOptions applies patch to the options current when the command is
// reduced.
func (s *Store) PatchOptions(ctx context.Context, patch OptionsPatch) error {
	return s.do(ctx, func(reply chan error) actor.Input { return PatchOptions(patch, reply) })
}

// RunBuild starts a build of the current files and options. It returns once
// the build has started; ErrBuildInProgress means the request was dropped.
func (s *Store) RunBuild(ctx context.Context) error {
	err := s.do(ctx, RunBuild)
	if errors.Is(err, ErrBuildInProgress) {
		metrics.RecordBuildRejected()
	}
	return err
}

// AwaitIdle waits until no build is outstanding and returns that state.
func (s *Store) AwaitIdle(ctx context.Context) (State, error) {
	updates, cancel := s.Subscribe()
	defer cancel()

	if st := s.Snapshot(); !st.Bundling {
		return st, nil
	}
	for {
		select {
		case st, ok := <-updates:
			if !ok {
				return State{}, actor.ErrStopped
			}
			if !st.Bundling {
				return st, nil
			}
		case <-ctx.Done():
			return State{}, ctx.Err()
		}
	}
}

// Build runs a build and waits for it to resolve.
func (s *Store) Build(ctx context.Context) (State, error) {
	if err := s.RunBuild(ctx); err != nil {
		return State{}, err
	}
	return s.AwaitIdle(ctx)
}

// OfferInstall records a pending install offer, replacing any earlier one.
func (s *Store) OfferInstall(ctx context.Context, h install.Handle) error {
	return s.do(ctx, func(reply chan error) actor.Input { return OfferInstall(h, reply) })
}

// ShowInstallPrompt shows the pending install dialog. The offer is cleared
// once the user answers.
func (s *Store) ShowInstallPrompt(ctx context.Context) error {
	return s.do(ctx, ShowInstallPrompt)
}
