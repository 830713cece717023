// Package vfs implements the virtual file set operations of a session.
//
// Every operation is a pure transformation: it returns a fresh slice and never
// writes through the input, so a previously published snapshot stays intact.
// Untouched files keep their relative order.
package vfs

import (
	"fmt"
	"path"
	"strconv"
	"strings"

	"github.com/bhandras/replbox/pkg/types"
	"github.com/tidwall/gjson"
)

const (
	newFileStem = "new"
	newFileExt  = ".js"

	browserslistRC = ".browserslistrc"
	packageJSON    = "package.json"
)

// RenameOutcome reports what Rename did.
type RenameOutcome int

const (
	// RenameApplied means the file now carries the new name.
	RenameApplied RenameOutcome = iota
	// RenameRejected means another file already uses the new name; the set is
	// unchanged.
	RenameRejected
	// RenameNotFound means no file carries the old name.
	RenameNotFound
)

// String implements fmt.Stringer.
func (o RenameOutcome) String() string {
	switch o {
	case RenameApplied:
		return "applied"
	case RenameRejected:
		return "rejected"
	case RenameNotFound:
		return "not-found"
	default:
		return "RenameOutcome(" + strconv.Itoa(int(o)) + ")"
	}
}

// NextName returns the lowest unused name of the form new.js, new-1.js, ...
func NextName(files []types.VirtualFile) string {
	taken := make(map[string]struct{}, len(files))
	for _, f := range files {
		taken[f.Name] = struct{}{}
	}
	for i := 0; ; i++ {
		name := newFileStem + newFileExt
		if i > 0 {
			name = newFileStem + "-" + strconv.Itoa(i) + newFileExt
		}
		if _, ok := taken[name]; !ok {
			return name
		}
	}
}

// Add appends an empty, non-entry file with a generated name and returns the
// new set together with that name.
func Add(files []types.VirtualFile) ([]types.VirtualFile, string) {
	name := NextName(files)
	out := make([]types.VirtualFile, 0, len(files)+1)
	out = append(out, files...)
	out = append(out, types.VirtualFile{Name: name})
	return out, name
}

// Rename gives the file oldName the name newName unless newName is taken by a
// different file.
func Rename(files []types.VirtualFile, oldName, newName string) ([]types.VirtualFile, RenameOutcome) {
	idx := Index(files, oldName)
	if idx < 0 {
		return files, RenameNotFound
	}
	if oldName == newName {
		return files, RenameApplied
	}
	if Index(files, newName) >= 0 {
		return files, RenameRejected
	}
	out := types.CloneFiles(files)
	out[idx].Name = newName
	return out, RenameApplied
}

// Edit replaces the content of the named file. It reports false if the file
// does not exist.
func Edit(files []types.VirtualFile, name, content string) ([]types.VirtualFile, bool) {
	idx := Index(files, name)
	if idx < 0 {
		return files, false
	}
	out := types.CloneFiles(files)
	out[idx].Content = content
	return out, true
}

// SetEntry sets the entry flag of the named file without touching others.
func SetEntry(files []types.VirtualFile, name string, isEntry bool) ([]types.VirtualFile, bool) {
	idx := Index(files, name)
	if idx < 0 {
		return files, false
	}
	out := types.CloneFiles(files)
	out[idx].IsEntry = isEntry
	return out, true
}

// Remove deletes the named file. It reports false if the file does not exist.
func Remove(files []types.VirtualFile, name string) ([]types.VirtualFile, bool) {
	idx := Index(files, name)
	if idx < 0 {
		return files, false
	}
	out := make([]types.VirtualFile, 0, len(files)-1)
	out = append(out, files[:idx]...)
	out = append(out, files[idx+1:]...)
	return out, true
}

// Index returns the position of the named file, or -1.
func Index(files []types.VirtualFile, name string) int {
	for i, f := range files {
		if f.Name == name {
			return i
		}
	}
	return -1
}

// Find returns the named file.
func Find(files []types.VirtualFile, name string) (types.VirtualFile, bool) {
	if idx := Index(files, name); idx >= 0 {
		return files[idx], true
	}
	return types.VirtualFile{}, false
}

// Entries returns the names of all files marked as entry points, in order.
func Entries(files []types.VirtualFile) []string {
	var out []string
	for _, f := range files {
		if f.IsEntry {
			out = append(out, f.Name)
		}
	}
	return out
}

// Validate checks the session invariants: at least one file, and every name
// non-empty and unique.
func Validate(files []types.VirtualFile) error {
	if len(files) == 0 {
		return fmt.Errorf("file set is empty")
	}
	seen := make(map[string]struct{}, len(files))
	for _, f := range files {
		if strings.TrimSpace(f.Name) == "" {
			return fmt.Errorf("file with empty name")
		}
		if _, dup := seen[f.Name]; dup {
			return fmt.Errorf("duplicate file name %q", f.Name)
		}
		seen[f.Name] = struct{}{}
	}
	return nil
}

// HasBrowserslist reports whether any file declares its own browserslist
// configuration, either as a .browserslistrc file or as a "browserslist" key
// in a package.json. When it does, the session-level browserslist option has
// no effect.
func HasBrowserslist(files []types.VirtualFile) bool {
	for _, f := range files {
		if path.Base(f.Name) == browserslistRC {
			return true
		}
	}
	for _, f := range files {
		if path.Base(f.Name) != packageJSON {
			continue
		}
		if !gjson.Valid(f.Content) {
			continue
		}
		if truthy(gjson.Get(f.Content, "browserslist")) {
			return true
		}
	}
	return false
}

func truthy(v gjson.Result) bool {
	switch v.Type {
	case gjson.True, gjson.JSON:
		return true
	case gjson.String:
		return v.Str != ""
	case gjson.Number:
		return v.Num != 0
	default:
		return false
	}
}
