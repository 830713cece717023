package session

import (
	"strings"

	"github.com/bhandras/replbox/internal/actor"
	"github.com/bhandras/replbox/internal/fragment"
	"github.com/bhandras/replbox/internal/vfs"
	"github.com/bhandras/replbox/pkg/types"
)

// Reduce is the session reducer.
func Reduce(state State, input actor.Input) (State, []actor.Effect) {
	switch in := input.(type) {
	case cmdAddFile:
		return reduceAddFile(state, in)
	case cmdUpdateFile:
		return reduceUpdateFile(state, in)
	case cmdRemoveFile:
		return reduceRemoveFile(state, in)
	case cmdSelectPreset:
		return reduceSelectPreset(state, in)
	case cmdPatchOptions:
		return reducePatchOptions(state, in)
	case cmdRunBuild:
		return reduceRunBuild(state, in)
	case cmdOfferInstall:
		return reduceOfferInstall(state, in)
	case cmdShowInstallPrompt:
		return reduceShowInstallPrompt(state, in)

	case evEngineReady:
		state.WorkerReady = true
		return state, nil
	case evBuildFinished:
		return reduceBuildFinished(state, in)
	case evInstallResolved:
		return reduceInstallResolved(state, in)
	default:
		return state, nil
	}
}

func reply[T any](ch chan T, v T) {
	if ch == nil {
		return
	}
	select {
	case ch <- v:
	default:
	}
}

// withSession installs next as the persisted slice. A persist effect is only
// produced when the slice changed by value.
func withSession(state State, next types.Session) (State, []actor.Effect) {
	if state.Session.Equal(next) {
		return state, nil
	}
	state.Session = next
	encoded, err := fragment.Encode(next)
	if err != nil {
		// Unencodable sessions are kept in memory but never persisted.
		return state, nil
	}
	state.Fragment = encoded
	return state, []actor.Effect{effPersist{Fragment: encoded}}
}

func withFiles(state State, files []types.VirtualFile) (State, []actor.Effect) {
	next := state.Session
	next.Files = files
	return withSession(state, next)
}

func reduceAddFile(state State, cmd cmdAddFile) (State, []actor.Effect) {
	files, name := vfs.Add(state.Session.Files)
	reply(cmd.Reply, addFileResult{Name: name})
	return withFiles(state, files)
}

func reduceUpdateFile(state State, cmd cmdUpdateFile) (State, []actor.Effect) {
	files, name := state.Session.Files, cmd.Name
	if vfs.Index(files, name) < 0 {
		reply(cmd.Reply, renameResult{Outcome: vfs.RenameNotFound, Err: ErrFileNotFound})
		return state, nil
	}

	if u := cmd.Update; u.NewName != nil {
		if strings.TrimSpace(*u.NewName) == "" {
			reply(cmd.Reply, renameResult{Outcome: vfs.RenameRejected, Err: ErrInvalidFileName})
			return state, nil
		}
		var outcome vfs.RenameOutcome
		files, outcome = vfs.Rename(files, name, *u.NewName)
		if outcome != vfs.RenameApplied {
			reply(cmd.Reply, renameResult{Outcome: outcome})
			return state, nil
		}
		name = *u.NewName
	}

	var ok bool
	if cmd.Update.Content != nil {
		if files, ok = vfs.Edit(files, name, *cmd.Update.Content); !ok {
			reply(cmd.Reply, renameResult{Outcome: vfs.RenameNotFound, Err: ErrFileNotFound})
			return state, nil
		}
	}
	if cmd.Update.IsEntry != nil {
		if files, ok = vfs.SetEntry(files, name, *cmd.Update.IsEntry); !ok {
			reply(cmd.Reply, renameResult{Outcome: vfs.RenameNotFound, Err: ErrFileNotFound})
			return state, nil
		}
	}
	reply(cmd.Reply, renameResult{Outcome: vfs.RenameApplied})
	return withFiles(state, files)
}

func reduceRemoveFile(state State, cmd cmdRemoveFile) (State, []actor.Effect) {
	if vfs.Index(state.Session.Files, cmd.Name) < 0 {
		reply(cmd.Reply, ErrFileNotFound)
		return state, nil
	}
	if len(state.Session.Files) == 1 {
		reply(cmd.Reply, ErrLastFile)
		return state, nil
	}
	files, _ := vfs.Remove(state.Session.Files, cmd.Name)
	reply(cmd.Reply, nil)
	return withFiles(state, files)
}

func reduceSelectPreset(state State, cmd cmdSelectPreset) (State, []actor.Effect) {
	if err := vfs.Validate(cmd.Files); err != nil {
		reply(cmd.Reply, ErrUnknownPreset)
		return state, nil
	}
	state.Output = nil
	state.BuildError = nil

	next := state.Session
	next.CurrentPreset = cmd.Name
	next.Files = types.CloneFiles(cmd.Files)
	reply(cmd.Reply, nil)
	return withSession(state, next)
}

func reducePatchOptions(state State, cmd cmdPatchOptions) (State, []actor.Effect) {
	if cmd.Patch == nil {
		reply(cmd.Reply, nil)
		return state, nil
	}
	opts := cmd.Patch(state.Session.Options)
	if !opts.Platform.Valid() {
		reply(cmd.Reply, ErrInvalidOptions)
		return state, nil
	}
	next := state.Session
	next.Options = opts
	reply(cmd.Reply, nil)
	return withSession(state, next)
}

func reduceRunBuild(state State, cmd cmdRunBuild) (State, []actor.Effect) {
	if state.Bundling {
		reply(cmd.Reply, ErrBuildInProgress)
		return state, nil
	}
	state.Bundling = true
	state.Output = nil
	state.BuildError = nil
	state.BuildGen++
	reply(cmd.Reply, nil)
	return state, []actor.Effect{effBundle{
		Gen:     state.BuildGen,
		Files:   types.CloneFiles(state.Session.Files),
		Options: state.Session.Options,
	}}
}

func reduceBuildFinished(state State, ev evBuildFinished) (State, []actor.Effect) {
	if !state.Bundling || ev.Gen != state.BuildGen {
		return state, nil
	}
	state.Bundling = false
	if ev.Err != nil {
		state.Output = nil
		state.BuildError = ev.Err
		return state, nil
	}
	state.BuildError = nil
	state.Output = types.CloneArtifacts(ev.Artifacts)
	if state.Output == nil {
		state.Output = []types.Artifact{}
	}
	return state, []actor.Effect{effHandoff{Gen: ev.Gen}}
}

func reduceOfferInstall(state State, cmd cmdOfferInstall) (State, []actor.Effect) {
	if cmd.Handle == nil {
		reply(cmd.Reply, ErrNoInstallPrompt)
		return state, nil
	}
	state.InstallPrompt = cmd.Handle
	state.InstallGen++
	state.Prompting = false
	reply(cmd.Reply, nil)
	return state, nil
}

func reduceShowInstallPrompt(state State, cmd cmdShowInstallPrompt) (State, []actor.Effect) {
	if state.InstallPrompt == nil {
		reply(cmd.Reply, ErrNoInstallPrompt)
		return state, nil
	}
	if state.Prompting {
		reply(cmd.Reply, ErrPromptInProgress)
		return state, nil
	}
	state.Prompting = true
	reply(cmd.Reply, nil)
	return state, []actor.Effect{effShowPrompt{Gen: state.InstallGen, Handle: state.InstallPrompt}}
}

func reduceInstallResolved(state State, ev evInstallResolved) (State, []actor.Effect) {
	if ev.Gen != state.InstallGen || state.InstallPrompt == nil {
		return state, nil
	}
	state.InstallPrompt = nil
	state.Prompting = false
	return state, nil
}
