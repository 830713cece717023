package session

import (
	"fmt"
	"time"
)

var (
	// ErrBuildInProgress is returned when a build is requested while another
	// is outstanding. The request is dropped.
	ErrBuildInProgress = fmt.Errorf("build already in progress")
	// ErrUnknownPreset is returned when a preset name is not in the catalog.
	ErrUnknownPreset = fmt.Errorf("unknown preset")
	// ErrFileNotFound is returned when a command names a missing file.
	ErrFileNotFound = fmt.Errorf("file not found")
	// ErrInvalidFileName is returned for empty file names.
	ErrInvalidFileName = fmt.Errorf("invalid file name")
	// ErrLastFile is returned when removing the only remaining file.
	ErrLastFile = fmt.Errorf("cannot remove the last file")
	// ErrInvalidOptions is returned when build options fail validation.
	ErrInvalidOptions = fmt.Errorf("invalid build options")
	// ErrNoInstallPrompt is returned when no install offer is pending.
	ErrNoInstallPrompt = fmt.Errorf("no install prompt available")
	// ErrPromptInProgress is returned when the install dialog is already
	// showing.
	ErrPromptInProgress = fmt.Errorf("install prompt already showing")
	// ErrSessionNotFound is returned for unknown session ids.
	ErrSessionNotFound = fmt.Errorf("session not found")
)

// BuildTimedOutError is stored as the build error when the engine does not
// finish within the configured timeout.
type BuildTimedOutError struct {
	After time.Duration
}

// Error implements error.
func (e *BuildTimedOutError) Error() string {
	return fmt.Sprintf("build timed out after %s", e.After)
}
