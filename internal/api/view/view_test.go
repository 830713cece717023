package view

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/bhandras/replbox/internal/session"
	"github.com/bhandras/replbox/pkg/types"
	"github.com/stretchr/testify/require"
)

func state() session.State {
	return session.State{
		Session: types.Session{
			CurrentPreset: "Javascript",
			Files:         []types.VirtualFile{{Name: "index.js", Content: "x", IsEntry: true}},
			Options:       types.DefaultBuildOptions(),
		},
		Fragment: "abc",
	}
}

func TestNewRendersOutputSizes(t *testing.T) {
	t.Parallel()

	st := state()
	st.Output = []types.Artifact{{Name: "index.js", Content: strings.Repeat("a", 1500)}}

	v := New("sid", "https://repl.example", st)
	require.Equal(t, "sid", v.ID)
	require.Equal(t, "https://repl.example/#abc", v.ShareURL)
	require.True(t, v.BrowserslistEnabled)
	require.Nil(t, v.BuildError)
	require.Len(t, v.Output, 1)
	require.Equal(t, 1500, v.Output[0].Bytes)
	require.Equal(t, "1.5 kB", v.Output[0].Size)
}

func TestNewRendersErrorKinds(t *testing.T) {
	t.Parallel()

	st := state()
	st.BuildError = fmt.Errorf("Could not resolve \"./missing.js\"")
	v := New("sid", "", st)
	require.Nil(t, v.Output)
	require.Equal(t, ErrorKindBuild, v.BuildError.Kind)
	require.Contains(t, v.BuildError.Message, "missing.js")

	st.BuildError = &session.BuildTimedOutError{After: time.Second}
	v = New("sid", "", st)
	require.Equal(t, ErrorKindTimeout, v.BuildError.Kind)
}

func TestBrowserslistDisabledByPackageJSON(t *testing.T) {
	t.Parallel()

	st := state()
	st.Session.Files = append(st.Session.Files, types.VirtualFile{
		Name:    "package.json",
		Content: `{"browserslist": ["defaults"]}`,
	})
	require.False(t, New("sid", "", st).BrowserslistEnabled)
}
