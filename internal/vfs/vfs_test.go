package vfs

import (
	"math/rand"
	"testing"

	"github.com/bhandras/replbox/pkg/types"
	"github.com/stretchr/testify/require"
)

func files(names ...string) []types.VirtualFile {
	out := make([]types.VirtualFile, 0, len(names))
	for _, n := range names {
		out = append(out, types.VirtualFile{Name: n})
	}
	return out
}

func names(fs []types.VirtualFile) []string {
	out := make([]string, 0, len(fs))
	for _, f := range fs {
		out = append(out, f.Name)
	}
	return out
}

func TestAddGeneratesLowestUnusedName(t *testing.T) {
	t.Parallel()

	next, name := Add(files("new.js", "new-1.js"))
	require.Equal(t, "new-2.js", name)
	require.Equal(t, []string{"new.js", "new-1.js", "new-2.js"}, names(next))
	require.Equal(t, types.VirtualFile{Name: "new-2.js"}, next[2])

	_, name = Add(files("index.js"))
	require.Equal(t, "new.js", name)

	_, name = Add(files("new.js", "new-2.js"))
	require.Equal(t, "new-1.js", name)
}

func TestAddDoesNotAliasInput(t *testing.T) {
	t.Parallel()

	in := make([]types.VirtualFile, 1, 4)
	in[0] = types.VirtualFile{Name: "index.js"}
	out, _ := Add(in)
	out[0].Content = "changed"
	require.Empty(t, in[0].Content)
}

func TestRenameConflictIsRejected(t *testing.T) {
	t.Parallel()

	in := files("a.js", "b.js")
	out, outcome := Rename(in, "a.js", "b.js")
	require.Equal(t, RenameRejected, outcome)
	require.Equal(t, []string{"a.js", "b.js"}, names(out))
}

func TestRenameApplied(t *testing.T) {
	t.Parallel()

	in := files("a.js", "b.js", "c.js")
	out, outcome := Rename(in, "b.js", "z.js")
	require.Equal(t, RenameApplied, outcome)
	require.Equal(t, []string{"a.js", "z.js", "c.js"}, names(out))
	require.Equal(t, []string{"a.js", "b.js", "c.js"}, names(in))

	same, outcome := Rename(in, "a.js", "a.js")
	require.Equal(t, RenameApplied, outcome)
	require.Equal(t, names(in), names(same))

	_, outcome = Rename(in, "missing.js", "x.js")
	require.Equal(t, RenameNotFound, outcome)
}

func TestUniquenessUnderRandomAddRename(t *testing.T) {
	t.Parallel()

	rng := rand.New(rand.NewSource(1))
	pool := []string{"a.js", "b.js", "new.js", "new-1.js", "new-3.js", "index.js"}
	set := files("index.js")

	for i := 0; i < 500; i++ {
		if rng.Intn(2) == 0 {
			set, _ = Add(set)
		} else {
			old := set[rng.Intn(len(set))].Name
			set, _ = Rename(set, old, pool[rng.Intn(len(pool))])
		}
		require.NoError(t, Validate(set))
	}
}

func TestEditSetEntryRemove(t *testing.T) {
	t.Parallel()

	in := files("a.js", "b.js", "c.js")

	edited, ok := Edit(in, "b.js", "let x = 1")
	require.True(t, ok)
	require.Equal(t, "let x = 1", edited[1].Content)
	require.Empty(t, in[1].Content)

	_, ok = Edit(in, "nope.js", "")
	require.False(t, ok)

	entry, ok := SetEntry(in, "c.js", true)
	require.True(t, ok)
	require.Equal(t, []string{"c.js"}, Entries(entry))
	require.Empty(t, Entries(in))

	removed, ok := Remove(in, "b.js")
	require.True(t, ok)
	require.Equal(t, []string{"a.js", "c.js"}, names(removed))
	require.Len(t, in, 3)

	_, ok = Remove(in, "nope.js")
	require.False(t, ok)
}

func TestValidate(t *testing.T) {
	t.Parallel()

	require.Error(t, Validate(nil))
	require.Error(t, Validate(files("a.js", "a.js")))
	require.Error(t, Validate(files("a.js", " ")))
	require.NoError(t, Validate(files("a.js", "b.js")))
}

func TestHasBrowserslist(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name  string
		files []types.VirtualFile
		want  bool
	}{
		{"none", files("index.js"), false},
		{"rc file", files("index.js", ".browserslistrc"), true},
		{"nested rc file", files("src/.browserslistrc"), true},
		{
			"package.json key",
			[]types.VirtualFile{{Name: "package.json", Content: `{"browserslist": ["> 1%"]}`}},
			true,
		},
		{
			"package.json string key",
			[]types.VirtualFile{{Name: "package.json", Content: `{"browserslist": "last 2 versions"}`}},
			true,
		},
		{
			"package.json empty key",
			[]types.VirtualFile{{Name: "package.json", Content: `{"browserslist": ""}`}},
			false,
		},
		{
			"package.json without key",
			[]types.VirtualFile{{Name: "package.json", Content: `{"name": "x"}`}},
			false,
		},
		{
			"malformed package.json",
			[]types.VirtualFile{{Name: "package.json", Content: `{"browserslist": `}},
			false,
		},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			require.Equal(t, tc.want, HasBrowserslist(tc.files))
		})
	}
}
