// Package view renders session state for API clients.
package view

import (
	"errors"

	"github.com/bhandras/replbox/internal/session"
	"github.com/bhandras/replbox/pkg/types"
	"github.com/dustin/go-humanize"
)

// Build error kinds.
const (
	ErrorKindBuild   = "build"
	ErrorKindTimeout = "timeout"
)

// Artifact is a build output with its size.
type Artifact struct {
	Name    string `json:"name"`
	Content string `json:"content"`
	Bytes   int    `json:"bytes"`
	// Size is the human-readable size, e.g. "1.2 kB".
	Size string `json:"size"`
}

// BuildError is the last build failure.
type BuildError struct {
	Message string `json:"message"`
	Kind    string `json:"kind"`
}

// Session is the JSON view of one session.
type Session struct {
	ID            string              `json:"id"`
	CurrentPreset string              `json:"currentPreset"`
	Files         []types.VirtualFile `json:"files"`
	Options       types.BuildOptions  `json:"options"`
	Fragment      string              `json:"fragment"`
	ShareURL      string              `json:"shareUrl"`

	Output     []Artifact  `json:"output"`
	BuildError *BuildError `json:"buildError"`
	Bundling   bool        `json:"bundling"`

	WorkerReady         bool `json:"workerReady"`
	BrowserslistEnabled bool `json:"browserslistEnabled"`

	// InstallAvailable is true when an install offer can be shown.
	InstallAvailable bool `json:"installAvailable"`
	Prompting        bool `json:"prompting"`
}

// ShareURL returns the link that restores fragment, given the public base URL.
func ShareURL(baseURL, fragment string) string {
	if fragment == "" {
		return baseURL + "/"
	}
	return baseURL + "/#" + fragment
}

// New renders st.
func New(id, baseURL string, st session.State) Session {
	v := Session{
		ID:                  id,
		CurrentPreset:       st.Session.CurrentPreset,
		Files:               types.CloneFiles(st.Session.Files),
		Options:             st.Session.Options,
		Fragment:            st.Fragment,
		ShareURL:            ShareURL(baseURL, st.Fragment),
		Bundling:            st.Bundling,
		WorkerReady:         st.WorkerReady,
		BrowserslistEnabled: st.BrowserslistEnabled(),
		InstallAvailable:    st.InstallPrompt != nil && !st.Prompting,
		Prompting:           st.Prompting,
	}
	if v.Files == nil {
		v.Files = []types.VirtualFile{}
	}
	if st.Output != nil {
		v.Output = make([]Artifact, 0, len(st.Output))
		for _, a := range st.Output {
			v.Output = append(v.Output, Artifact{
				Name:    a.Name,
				Content: a.Content,
				Bytes:   len(a.Content),
				Size:    humanize.Bytes(uint64(len(a.Content))),
			})
		}
	}
	if st.BuildError != nil {
		v.BuildError = &BuildError{Message: st.BuildError.Error(), Kind: ErrorKindBuild}
		var timeout *session.BuildTimedOutError
		if errors.As(st.BuildError, &timeout) {
			v.BuildError.Kind = ErrorKindTimeout
		}
	}
	return v
}
