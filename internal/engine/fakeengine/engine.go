// Package fakeengine provides a deterministic in-memory engine.Engine.
//
// It concatenates entry points instead of bundling, which is enough for tests
// and for running the server without a real bundler.
package fakeengine

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/bhandras/replbox/internal/engine"
	"github.com/bhandras/replbox/pkg/types"
)

// BundleFunc overrides the default bundling behavior.
type BundleFunc func(ctx context.Context, files []types.VirtualFile, opts types.BuildOptions) ([]types.Artifact, error)

// Engine implements engine.Engine.
type Engine struct {
	mu sync.Mutex

	ready     chan struct{}
	readyOnce sync.Once

	bundleFn    BundleFunc
	gate        <-chan struct{}
	started     chan struct{}
	calls       int
	snapshot    map[string]string
	snapshotErr error
}

var _ engine.Engine = (*Engine)(nil)

// Option configures an Engine.
type Option func(*Engine)

// WithDelayedReady keeps Ready open until MarkReady is called.
func WithDelayedReady() Option {
	return func(e *Engine) { e.ready = make(chan struct{}) }
}

// WithBundleFunc replaces the default bundling behavior.
func WithBundleFunc(fn BundleFunc) Option {
	return func(e *Engine) { e.bundleFn = fn }
}

// WithGate makes every Bundle call block until gate is closed or the call's
// context ends.
func WithGate(gate <-chan struct{}) Option {
	return func(e *Engine) { e.gate = gate }
}

// New returns a fake engine that is ready immediately unless configured
// otherwise.
func New(opts ...Option) *Engine {
	e := &Engine{started: make(chan struct{}, 64)}
	for _, opt := range opts {
		opt(e)
	}
	if e.ready == nil {
		e.ready = make(chan struct{})
		e.MarkReady()
	}
	return e
}

// Ready implements engine.Engine.
func (e *Engine) Ready() <-chan struct{} {
	return e.ready
}

// MarkReady closes the Ready channel. Extra calls are no-ops.
func (e *Engine) MarkReady() {
	e.readyOnce.Do(func() { close(e.ready) })
}

// Started receives one value per Bundle call, before the gate is awaited.
func (e *Engine) Started() <-chan struct{} {
	return e.started
}

// Calls returns the number of Bundle invocations so far.
func (e *Engine) Calls() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.calls
}

// FailSnapshot makes subsequent Snapshot calls return err.
func (e *Engine) FailSnapshot(err error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.snapshotErr = err
}

// Bundle implements engine.Engine.
func (e *Engine) Bundle(ctx context.Context, files []types.VirtualFile, opts types.BuildOptions) ([]types.Artifact, error) {
	e.mu.Lock()
	e.calls++
	gate := e.gate
	fn := e.bundleFn
	e.mu.Unlock()

	select {
	case e.started <- struct{}{}:
	default:
	}

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	files = types.CloneFiles(files)
	if fn == nil {
		fn = concat
	}
	artifacts, err := fn(ctx, files, opts)
	if err != nil {
		return nil, err
	}

	e.mu.Lock()
	e.snapshot = engine.SnapshotOf(files, artifacts)
	e.mu.Unlock()
	return artifacts, nil
}

// Snapshot implements engine.Engine.
func (e *Engine) Snapshot(ctx context.Context) (map[string]string, error) {
	_ = ctx
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.snapshotErr != nil {
		return nil, e.snapshotErr
	}
	if e.snapshot == nil {
		return nil, fmt.Errorf("no build yet")
	}
	out := make(map[string]string, len(e.snapshot))
	for k, v := range e.snapshot {
		out[k] = v
	}
	return out, nil
}

// concat emits one artifact per entry point holding the entry's content,
// prefixed with a header describing the options.
func concat(ctx context.Context, files []types.VirtualFile, opts types.BuildOptions) ([]types.Artifact, error) {
	_ = ctx
	var artifacts []types.Artifact
	for _, f := range files {
		if !f.IsEntry {
			continue
		}
		content := f.Content
		if opts.Minify {
			content = strings.Join(strings.Fields(content), " ")
		}
		header := fmt.Sprintf("// fake build platform=%s", opts.Platform)
		if opts.Global != "" {
			header += " global=" + opts.Global
		}
		artifacts = append(artifacts, types.Artifact{
			Name:    f.Name,
			Content: header + "\n" + content,
		})
	}
	if len(artifacts) == 0 {
		return nil, engine.ErrNoEntryPoints
	}
	return artifacts, nil
}
