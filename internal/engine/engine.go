// Package engine defines the boundary to the bundling engine that turns a
// session's virtual files into build artifacts.
package engine

import (
	"context"
	"fmt"
	"strings"

	"github.com/bhandras/replbox/pkg/types"
)

// Kind identifies which engine implementation should be started.
type Kind string

const (
	// KindEsbuild selects the in-process esbuild engine.
	KindEsbuild Kind = "esbuild"
	// KindFake selects the deterministic in-memory engine.
	KindFake Kind = "fake"
)

// Valid reports whether k names a known engine.
func (k Kind) Valid() bool {
	return k == KindEsbuild || k == KindFake
}

const (
	// SourceRoot is the snapshot directory holding the input files.
	SourceRoot = "/src/"
	// OutputRoot is the snapshot directory holding the build artifacts.
	OutputRoot = "/dist/"
)

// Engine bundles virtual files.
//
// Bundle may be called before Ready closes; implementations then wait for
// readiness themselves or fail. Snapshot returns the engine's full virtual
// filesystem after the most recent build, keyed by absolute path.
type Engine interface {
	Ready() <-chan struct{}
	Bundle(ctx context.Context, files []types.VirtualFile, opts types.BuildOptions) ([]types.Artifact, error)
	Snapshot(ctx context.Context) (map[string]string, error)
}

// BuildError is a build failure reported by an engine. Messages are kept
// verbatim for display.
type BuildError struct {
	Messages []string
}

// Error implements error.
func (e *BuildError) Error() string {
	if e == nil || len(e.Messages) == 0 {
		return "build failed"
	}
	return strings.Join(e.Messages, "\n")
}

// Errorf returns a BuildError with a single formatted message.
func Errorf(format string, args ...any) *BuildError {
	return &BuildError{Messages: []string{fmt.Sprintf(format, args...)}}
}

// ErrNoEntryPoints is reported when a build is requested with no file marked
// as an entry point.
var ErrNoEntryPoints = Errorf("no entry points")

// SnapshotOf lays out inputs and outputs the way engines expose their
// virtual filesystem.
func SnapshotOf(files []types.VirtualFile, artifacts []types.Artifact) map[string]string {
	out := make(map[string]string, len(files)+len(artifacts))
	for _, f := range files {
		out[SourceRoot+strings.TrimPrefix(f.Name, "/")] = f.Content
	}
	for _, a := range artifacts {
		out[OutputRoot+strings.TrimPrefix(a.Name, "/")] = a.Content
	}
	return out
}
