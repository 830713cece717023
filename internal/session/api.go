package session

import (
	"github.com/bhandras/replbox/internal/actor"
	"github.com/bhandras/replbox/internal/install"
	"github.com/bhandras/replbox/pkg/types"
)

// AddFile returns a command input that appends a new empty file. The reply
// carries the generated name.
func AddFile(reply chan addFileResult) actor.Input {
	return cmdAddFile{Reply: reply}
}

// UpdateFile returns a command input that applies a rename, a content change
// and an entry change to one file as a single transition. Nothing is applied
// unless every part succeeds. Rename conflicts are reported through the
// outcome, not as an error.
func UpdateFile(name string, update FileUpdate, reply chan renameResult) actor.Input {
	return cmdUpdateFile{Name: name, Update: update, Reply: reply}
}

// RemoveFile returns a command input that deletes a file.
func RemoveFile(name string, reply chan error) actor.Input {
	return cmdRemoveFile{Name: name, Reply: reply}
}

// SelectPreset returns a command input that replaces the file set with a
// preset's files and clears the last build result.
func SelectPreset(name string, files []types.VirtualFile, reply chan error) actor.Input {
	return cmdSelectPreset{Name: name, Files: types.CloneFiles(files), Reply: reply}
}

// PatchOptions returns a command input that derives the build options from
// the ones the store holds when the command is applied.
func PatchOptions(patch OptionsPatch, reply chan error) actor.Input {
	return cmdPatchOptions{Patch: patch, Reply: reply}
}

// RunBuild returns a command input that starts a build unless one is
// outstanding.
func RunBuild(reply chan error) actor.Input {
	return cmdRunBuild{Reply: reply}
}

// OfferInstall returns a command input that records a platform install offer.
func OfferInstall(h install.Handle, reply chan error) actor.Input {
	return cmdOfferInstall{Handle: h, Reply: reply}
}

// ShowInstallPrompt returns a command input that shows the pending install
// dialog.
func ShowInstallPrompt(reply chan error) actor.Input {
	return cmdShowInstallPrompt{Reply: reply}
}

// EngineReady returns an event input that records engine readiness.
func EngineReady() actor.Input {
	return evEngineReady{}
}

// BuildFinished returns an event input that resolves build gen.
func BuildFinished(gen int64, artifacts []types.Artifact, err error) actor.Input {
	return evBuildFinished{Gen: gen, Artifacts: artifacts, Err: err}
}

// InstallResolved returns an event input that resolves install offer gen.
func InstallResolved(gen int64, outcome install.Outcome, err error) actor.Input {
	return evInstallResolved{Gen: gen, Outcome: outcome, Err: err}
}
