// Package preset holds the catalog of starter file sets.
package preset

import (
	"fmt"
	"os"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/bhandras/replbox/internal/vfs"
	"github.com/bhandras/replbox/pkg/types"
)

// DefaultName is the preset used when a session has nothing to restore.
const DefaultName = "Javascript"

// Preset is an immutable named set of starter files.
type Preset struct {
	Name  string
	files []types.VirtualFile
}

// Files returns a fresh copy of the preset's files.
func (p Preset) Files() []types.VirtualFile {
	return types.CloneFiles(p.files)
}

// Catalog is an ordered, read-only collection of presets.
type Catalog struct {
	order       []string
	presets     map[string]Preset
	defaultName string
}

// NewCatalog builds a catalog. The first preset is the default unless one
// named DefaultName exists. Every preset must pass vfs.Validate.
func NewCatalog(presets ...Preset) (*Catalog, error) {
	if len(presets) == 0 {
		return nil, fmt.Errorf("catalog needs at least one preset")
	}
	c := &Catalog{presets: make(map[string]Preset, len(presets))}
	for _, p := range presets {
		if err := c.add(p); err != nil {
			return nil, err
		}
	}
	c.defaultName = c.order[0]
	if _, ok := c.presets[DefaultName]; ok {
		c.defaultName = DefaultName
	}
	return c, nil
}

func (c *Catalog) add(p Preset) error {
	if strings.TrimSpace(p.Name) == "" {
		return fmt.Errorf("preset with empty name")
	}
	if _, dup := c.presets[p.Name]; dup {
		return fmt.Errorf("duplicate preset %q", p.Name)
	}
	if err := vfs.Validate(p.files); err != nil {
		return fmt.Errorf("preset %q: %w", p.Name, err)
	}
	p.files = types.CloneFiles(p.files)
	c.order = append(c.order, p.Name)
	c.presets[p.Name] = p
	return nil
}

// Names returns preset names in catalog order.
func (c *Catalog) Names() []string {
	return append([]string(nil), c.order...)
}

// Get returns the named preset.
func (c *Catalog) Get(name string) (Preset, bool) {
	p, ok := c.presets[name]
	return p, ok
}

// Default returns the default preset.
func (c *Catalog) Default() Preset {
	return c.presets[c.defaultName]
}

// Session returns a fresh session seeded from the named preset with default
// build options.
func (c *Catalog) Session(name string) (types.Session, bool) {
	p, ok := c.Get(name)
	if !ok {
		return types.Session{}, false
	}
	return types.Session{
		CurrentPreset: p.Name,
		Files:         p.Files(),
		Options:       types.DefaultBuildOptions(),
	}, true
}

// New returns a preset with the given files.
func New(name string, files ...types.VirtualFile) Preset {
	return Preset{Name: name, files: types.CloneFiles(files)}
}

type tomlFile struct {
	Presets []tomlPreset `toml:"preset"`
}

type tomlPreset struct {
	Name  string          `toml:"name"`
	Files []tomlAssetFile `toml:"file"`
}

type tomlAssetFile struct {
	Name    string `toml:"name"`
	Content string `toml:"content"`
	Entry   bool   `toml:"entry"`
}

// LoadFile reads extra presets from a TOML file:
//
//	[[preset]]
//	name = "Hello"
//	  [[preset.file]]
//	  name = "index.js"
//	  content = "console.log('hello')"
//	  entry = true
func LoadFile(path string) ([]Preset, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read presets file: %w", err)
	}
	return Parse(string(data))
}

// Parse decodes presets from TOML text.
func Parse(raw string) ([]Preset, error) {
	var tf tomlFile
	if _, err := toml.Decode(raw, &tf); err != nil {
		return nil, fmt.Errorf("decode presets: %w", err)
	}
	out := make([]Preset, 0, len(tf.Presets))
	for _, tp := range tf.Presets {
		files := make([]types.VirtualFile, 0, len(tp.Files))
		for _, f := range tp.Files {
			files = append(files, types.VirtualFile{Name: f.Name, Content: f.Content, IsEntry: f.Entry})
		}
		out = append(out, New(tp.Name, files...))
	}
	return out, nil
}

// Load returns the built-in catalog extended with the presets in path. An
// empty path yields the built-in catalog.
func Load(path string) (*Catalog, error) {
	presets := Builtin()
	if path != "" {
		extra, err := LoadFile(path)
		if err != nil {
			return nil, err
		}
		presets = append(presets, extra...)
	}
	return NewCatalog(presets...)
}
