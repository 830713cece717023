package session

import (
	"github.com/bhandras/replbox/internal/actor"
	"github.com/bhandras/replbox/internal/install"
	"github.com/bhandras/replbox/internal/vfs"
	"github.com/bhandras/replbox/pkg/types"
)

// State is the loop-owned state of one sandbox session.
type State struct {
	// Session is the persisted slice: preset name, files and options.
	Session types.Session

	// Fragment is the encoded form of Session. It is recomputed whenever
	// Session changes by value.
	Fragment string

	// Output holds the artifacts of the most recent successful build. It is
	// never set together with BuildError.
	Output []types.Artifact
	// BuildError is the engine's error from the most recent failed build,
	// kept verbatim.
	BuildError error
	// Bundling is true while a build is outstanding.
	Bundling bool
	// BuildGen increments each time a build starts. Completions carry the
	// generation so stale results can be ignored.
	BuildGen int64

	// WorkerReady flips to true once, when the engine reports it has loaded.
	WorkerReady bool

	// InstallPrompt is the pending install offer, if the platform made one.
	InstallPrompt install.Handle
	// InstallGen identifies the current offer.
	InstallGen int64
	// Prompting is true while the install dialog awaits the user's choice.
	Prompting bool
}

// Clone returns a copy of s that shares no slices with it.
func (s State) Clone() State {
	s.Session = s.Session.Clone()
	s.Output = types.CloneArtifacts(s.Output)
	return s
}

// BrowserslistEnabled reports whether the browserslist option applies, which
// is the case unless a file declares its own configuration.
func (s State) BrowserslistEnabled() bool {
	return !vfs.HasBrowserslist(s.Session.Files)
}

// FileUpdate is a combined change to one file. Nil fields are left alone. The
// rename is applied first; Content and IsEntry then address the new name.
type FileUpdate struct {
	NewName *string
	Content *string
	IsEntry *bool
}

// OptionsPatch derives new build options from the current ones.
type OptionsPatch func(types.BuildOptions) types.BuildOptions

// Inputs

type addFileResult struct {
	Name string
	Err  error
}

type renameResult struct {
	Outcome vfs.RenameOutcome
	Err     error
}

type (
	cmdAddFile struct {
		actor.InputBase
		Reply chan addFileResult
	}
	cmdUpdateFile struct {
		actor.InputBase
		Name   string
		Update FileUpdate
		Reply  chan renameResult
	}
	cmdRemoveFile struct {
		actor.InputBase
		Name  string
		Reply chan error
	}
	cmdSelectPreset struct {
		actor.InputBase
		Name  string
		Files []types.VirtualFile
		Reply chan error
	}
	cmdPatchOptions struct {
		actor.InputBase
		Patch OptionsPatch
		Reply chan error
	}
	cmdRunBuild struct {
		actor.InputBase
		Reply chan error
	}
	cmdOfferInstall struct {
		actor.InputBase
		Handle install.Handle
		Reply  chan error
	}
	cmdShowInstallPrompt struct {
		actor.InputBase
		Reply chan error
	}

	evEngineReady struct {
		actor.InputBase
	}
	evBuildFinished struct {
		actor.InputBase
		Gen       int64
		Artifacts []types.Artifact
		Err       error
	}
	evInstallResolved struct {
		actor.InputBase
		Gen     int64
		Outcome install.Outcome
		Err     error
	}
)

// Effects

type (
	effPersist struct {
		actor.EffectBase
		Fragment string
	}
	effBundle struct {
		actor.EffectBase
		Gen     int64
		Files   []types.VirtualFile
		Options types.BuildOptions
	}
	effHandoff struct {
		actor.EffectBase
		Gen int64
	}
	effShowPrompt struct {
		actor.EffectBase
		Gen    int64
		Handle install.Handle
	}
)
