// Package actor provides the event loop that owns a session's state.
//
// A single goroutine applies inputs to a pure reducer, swaps in the returned
// state as a whole value, and hands the reducer's effects to a Runtime. The
// runtime performs I/O and reports back by emitting new inputs. Readers only
// ever see complete states through Snapshot.
package actor

import (
	"context"
	"errors"
	"sync"
)

var (
	// ErrStopped is returned when an input is offered to a stopped actor.
	ErrStopped = errors.New("actor stopped")
	// ErrMailboxFull is returned when the mailbox cannot accept more inputs.
	ErrMailboxFull = errors.New("actor mailbox full")
)

// Input is an item delivered to an actor mailbox: either a command from a
// caller or an event emitted by the runtime.
type Input interface {
	isActorInput()
}

// Effect is a declarative side-effect produced by a reducer. Effects are data;
// the Runtime executes them.
type Effect interface {
	isActorEffect()
}

// ReducerFunc is a pure state transition function.
//
// Reducers must not perform I/O, spawn goroutines, or read clocks. They must
// return a new state value instead of mutating slices or maps reachable from
// the previous one. They run while the state lock is held and must not call
// Snapshot.
type ReducerFunc[S any] func(state S, input Input) (next S, effects []Effect)

// Runtime interprets effects and emits follow-up inputs back to the actor.
type Runtime interface {
	// HandleEffects executes effects. It must return quickly; blocking work
	// runs in its own goroutine and reports completion through emit. emit
	// waits for mailbox space, so it must only be called from those
	// goroutines, never from HandleEffects itself.
	HandleEffects(ctx context.Context, effects []Effect, emit func(Input))

	// Stop releases runtime resources. It may be called multiple times.
	Stop()
}

// Hooks provide optional observability into an actor's execution.
type Hooks[S any] struct {
	// OnInput is called after an input is dequeued, before reducing.
	OnInput func(input Input)
	// OnTransition is called after the next state has been published.
	OnTransition func(prev S, next S, input Input)
	// OnEffects is called before effects are handed to the Runtime.
	OnEffects func(effects []Effect)
	// OnPanic is called when the loop panics. If nil, panics propagate.
	OnPanic func(recovered any)
}

// Actor runs a single-threaded event loop that owns state of type S.
type Actor[S any] struct {
	reduce  ReducerFunc[S]
	runtime Runtime
	hooks   Hooks[S]
	clone   func(S) S

	mu    sync.RWMutex
	state S

	inbox  chan Input
	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
	start  sync.Once
	stop   sync.Once
}

// Option configures an Actor.
type Option[S any] func(*Actor[S])

// WithHooks attaches hooks for observability.
func WithHooks[S any](hooks Hooks[S]) Option[S] {
	return func(a *Actor[S]) { a.hooks = hooks }
}

// WithMailboxSize sets the mailbox buffer size.
func WithMailboxSize[S any](n int) Option[S] {
	return func(a *Actor[S]) {
		if n > 0 {
			a.inbox = make(chan Input, n)
		}
	}
}

// WithCloner makes Snapshot return clone(state) so callers cannot alias
// loop-owned slices.
func WithCloner[S any](clone func(S) S) Option[S] {
	return func(a *Actor[S]) { a.clone = clone }
}

// New creates an actor with an initial state, a reducer, and a runtime. The
// actor does not process inputs until Start is called.
func New[S any](initial S, reducer ReducerFunc[S], runtime Runtime, opts ...Option[S]) *Actor[S] {
	ctx, cancel := context.WithCancel(context.Background())
	a := &Actor[S]{
		reduce:  reducer,
		runtime: runtime,
		state:   initial,
		inbox:   make(chan Input, 256),
		ctx:     ctx,
		cancel:  cancel,
		done:    make(chan struct{}),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Start launches the loop goroutine. It is idempotent.
func (a *Actor[S]) Start() {
	a.start.Do(func() { go a.loop() })
}

// Stop cancels the actor context and stops the runtime. It is safe to call
// multiple times.
func (a *Actor[S]) Stop() {
	a.stop.Do(func() {
		a.cancel()
		if a.runtime != nil {
			a.runtime.Stop()
		}
	})
}

// Context is canceled when the actor stops. Runtimes derive the contexts of
// their background work from it.
func (a *Actor[S]) Context() context.Context { return a.ctx }

// Done returns a channel that closes when the loop exits.
func (a *Actor[S]) Done() <-chan struct{} { return a.done }

// Enqueue delivers an input without blocking.
func (a *Actor[S]) Enqueue(input Input) error {
	if input == nil {
		return nil
	}
	select {
	case <-a.ctx.Done():
		return ErrStopped
	default:
	}
	select {
	case a.inbox <- input:
		return nil
	default:
		return ErrMailboxFull
	}
}

// Emit delivers an input, waiting for mailbox space. It returns ErrStopped if
// the actor stops first. Emit must not be called from the loop goroutine.
func (a *Actor[S]) Emit(input Input) error {
	if input == nil {
		return nil
	}
	select {
	case <-a.ctx.Done():
		return ErrStopped
	default:
	}
	select {
	case a.inbox <- input:
		return nil
	case <-a.ctx.Done():
		return ErrStopped
	}
}

// Snapshot returns the most recently published state.
func (a *Actor[S]) Snapshot() S {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.clone != nil {
		return a.clone(a.state)
	}
	return a.state
}

func (a *Actor[S]) loop() {
	defer close(a.done)
	defer func() {
		if r := recover(); r != nil {
			if a.hooks.OnPanic != nil {
				a.hooks.OnPanic(r)
				return
			}
			panic(r)
		}
	}()

	emit := func(in Input) {
		_ = a.Emit(in)
	}

	for {
		select {
		case <-a.ctx.Done():
			return
		case in := <-a.inbox:
			if in == nil {
				continue
			}
			a.step(in, emit)
		}
	}
}

func (a *Actor[S]) step(in Input, emit func(Input)) {
	if a.hooks.OnInput != nil {
		a.hooks.OnInput(in)
	}

	// Reducers run under the state lock so a reply sent from a reducer is
	// never observed before the state it describes.
	a.mu.Lock()
	prev := a.state
	next, effects := a.reduce(prev, in)
	a.state = next
	a.mu.Unlock()

	if a.hooks.OnTransition != nil {
		a.hooks.OnTransition(prev, next, in)
	}
	if len(effects) == 0 {
		return
	}
	if a.hooks.OnEffects != nil {
		a.hooks.OnEffects(effects)
	}
	if a.runtime != nil {
		a.runtime.HandleEffects(a.ctx, effects, emit)
	}
}
