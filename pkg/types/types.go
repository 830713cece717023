// Package types holds the session vocabulary shared by the store, the
// fragment codec, the engines, and the HTTP API.
package types

// VirtualFile is an in-memory named source unit edited by the user.
type VirtualFile struct {
	// Name is unique within a session.
	Name string `json:"name"`
	// Content is the raw source text. It is never validated by the core.
	Content string `json:"content"`
	// IsEntry marks the file as a bundle entry point.
	IsEntry bool `json:"isEntry"`
}

// Platform is the runtime the bundle is built for.
type Platform string

const (
	// PlatformBrowser targets web browsers.
	PlatformBrowser Platform = "browser"
	// PlatformNode targets Node.js.
	PlatformNode Platform = "node"
	// PlatformElectron targets Electron renderer processes.
	PlatformElectron Platform = "electron"
)

// Valid reports whether p is one of the known platforms.
func (p Platform) Valid() bool {
	switch p {
	case PlatformBrowser, PlatformNode, PlatformElectron:
		return true
	default:
		return false
	}
}

// BuildOptions is the fixed set of knobs passed to the bundling engine.
type BuildOptions struct {
	// Minify minifies whitespace, identifiers and syntax.
	Minify bool `json:"minify"`
	// ScopeHoist flattens modules into a single scope.
	ScopeHoist bool `json:"scopeHoist"`
	// SourceMaps emits source map artifacts next to the bundle.
	SourceMaps bool `json:"sourceMaps"`
	// ContentHash adds a content hash to emitted file names.
	ContentHash bool `json:"contentHash"`
	// Environment is the language level to compile down to (e.g. "es2017").
	// An empty value leaves the choice to the engine.
	Environment string `json:"environment"`
	// Platform is the target platform.
	Platform Platform `json:"platform"`
	// PublicURL is the prefix used for URLs of emitted assets.
	PublicURL string `json:"publicUrl"`
	// Global is the name of the global variable that receives the bundle's
	// exports. Empty means no global is assigned.
	Global string `json:"global"`
	// Browserslist is a browserslist query. It is only meaningful when no file
	// in the session declares its own browserslist configuration.
	Browserslist string `json:"browserslist"`
}

// DefaultBuildOptions returns the options used for fresh sessions.
func DefaultBuildOptions() BuildOptions {
	return BuildOptions{
		Minify:      true,
		ScopeHoist:  true,
		SourceMaps:  false,
		ContentHash: true,
		Platform:    PlatformBrowser,
	}
}

// Session is the persisted, shareable unit of state.
type Session struct {
	CurrentPreset string        `json:"currentPreset"`
	Files         []VirtualFile `json:"files"`
	Options       BuildOptions  `json:"options"`
}

// Equal reports whether two sessions are equal by value, including file order
// and entry flags.
func (s Session) Equal(other Session) bool {
	if s.CurrentPreset != other.CurrentPreset || s.Options != other.Options {
		return false
	}
	return FilesEqual(s.Files, other.Files)
}

// Clone returns a deep copy of s.
func (s Session) Clone() Session {
	s.Files = CloneFiles(s.Files)
	return s
}

// FilesEqual compares two file lists element-wise.
func FilesEqual(a, b []VirtualFile) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// CloneFiles returns a copy of files. A nil input stays nil.
func CloneFiles(files []VirtualFile) []VirtualFile {
	if files == nil {
		return nil
	}
	out := make([]VirtualFile, len(files))
	copy(out, files)
	return out
}

// Artifact is a single output file produced by a successful build.
type Artifact struct {
	Name    string `json:"name"`
	Content string `json:"content"`
}

// CloneArtifacts returns a copy of artifacts. A nil input stays nil.
func CloneArtifacts(artifacts []Artifact) []Artifact {
	if artifacts == nil {
		return nil
	}
	out := make([]Artifact, len(artifacts))
	copy(out, artifacts)
	return out
}

// Common response types

type ErrorResponse struct {
	Error string `json:"error"`
}
