// Package shortcut maps keyboard events to sandbox commands.
package shortcut

import "strings"

// KeyEvent is a keydown event as reported by the browser.
type KeyEvent struct {
	// Code is the physical key code, e.g. "Enter" or "KeyB".
	Code string `json:"code"`
	// Platform is the client's navigator.platform value.
	Platform string `json:"platform,omitempty"`

	Meta  bool `json:"metaKey"`
	Ctrl  bool `json:"ctrlKey"`
	Alt   bool `json:"altKey"`
	Shift bool `json:"shiftKey"`
}

// IsApple reports whether platform names an Apple OS, where Meta is the
// primary modifier.
func IsApple(platform string) bool {
	p := strings.ToLower(platform)
	for _, marker := range []string{"mac", "darwin", "iphone", "ipad", "ipod"} {
		if strings.Contains(p, marker) {
			return true
		}
	}
	return false
}

// IsBuild reports whether ev requests a build: the platform modifier together
// with Enter or B. Meta is accepted on every platform; Ctrl only off Apple
// platforms.
func IsBuild(ev KeyEvent) bool {
	if ev.Code != "Enter" && ev.Code != "KeyB" {
		return false
	}
	if ev.Meta {
		return true
	}
	return ev.Ctrl && !IsApple(ev.Platform)
}
