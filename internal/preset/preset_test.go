package preset

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/bhandras/replbox/internal/vfs"
	"github.com/bhandras/replbox/pkg/types"
	"github.com/stretchr/testify/require"
)

func TestBuiltinCatalog(t *testing.T) {
	t.Parallel()

	c, err := NewCatalog(Builtin()...)
	require.NoError(t, err)
	require.Equal(t, DefaultName, c.Default().Name)
	require.Equal(t, "Javascript", c.Names()[0])

	for _, name := range c.Names() {
		p, ok := c.Get(name)
		require.True(t, ok)
		require.NoError(t, vfs.Validate(p.Files()), name)
		require.NotEmpty(t, vfs.Entries(p.Files()), name)
	}

	bl, ok := c.Get("Browserslist")
	require.True(t, ok)
	require.True(t, vfs.HasBrowserslist(bl.Files()))
}

func TestPresetFilesAreCopies(t *testing.T) {
	t.Parallel()

	c, err := NewCatalog(Builtin()...)
	require.NoError(t, err)

	files := c.Default().Files()
	files[0].Content = "mutated"
	require.NotEqual(t, "mutated", c.Default().Files()[0].Content)
}

func TestCatalogSession(t *testing.T) {
	t.Parallel()

	c, err := NewCatalog(New("Only", types.VirtualFile{Name: "index.js", Content: "console.log('hi')", IsEntry: true}))
	require.NoError(t, err)
	require.Equal(t, "Only", c.Default().Name)

	s, ok := c.Session("Only")
	require.True(t, ok)
	require.Equal(t, "Only", s.CurrentPreset)
	require.Equal(t, types.DefaultBuildOptions(), s.Options)
	require.Len(t, s.Files, 1)

	_, ok = c.Session("Missing")
	require.False(t, ok)
}

func TestCatalogRejectsInvalidPresets(t *testing.T) {
	t.Parallel()

	_, err := NewCatalog()
	require.Error(t, err)

	_, err = NewCatalog(New("Empty"))
	require.Error(t, err)

	dup := types.VirtualFile{Name: "a.js"}
	_, err = NewCatalog(New("Dup", dup, dup))
	require.Error(t, err)

	one := New("One", dup)
	_, err = NewCatalog(one, one)
	require.Error(t, err)
}

func TestLoadFileExtendsBuiltin(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "presets.toml")
	raw := `
[[preset]]
name = "Hello"

  [[preset.file]]
  name = "index.js"
  content = "console.log('hello')"
  entry = true

  [[preset.file]]
  name = "util.js"
  content = "export const y = 1"
`
	require.NoError(t, os.WriteFile(path, []byte(raw), 0o600))

	c, err := Load(path)
	require.NoError(t, err)

	names := c.Names()
	require.Equal(t, "Hello", names[len(names)-1])

	p, ok := c.Get("Hello")
	require.True(t, ok)
	require.Equal(t, []types.VirtualFile{
		{Name: "index.js", Content: "console.log('hello')", IsEntry: true},
		{Name: "util.js", Content: "export const y = 1"},
	}, p.Files())
}

func TestParseRejectsBadTOML(t *testing.T) {
	t.Parallel()

	_, err := Parse("[[preset]\nname=")
	require.Error(t, err)
}
