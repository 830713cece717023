package fragment

import (
	"context"
	"sync"
)

// Location is where the current fragment lives: the browser's location hash,
// or a server-side stand-in for it. Writes are last-writer-wins.
type Location interface {
	// Fragment returns the stored fragment, or "" if none was written.
	Fragment(ctx context.Context) (string, error)
	// SetFragment replaces the stored fragment.
	SetFragment(ctx context.Context, fragment string) error
}

// MemoryLocation keeps the fragment in memory.
type MemoryLocation struct {
	mu       sync.Mutex
	fragment string
	writes   int
}

var _ Location = (*MemoryLocation)(nil)

// NewMemoryLocation returns a location seeded with fragment.
func NewMemoryLocation(fragment string) *MemoryLocation {
	return &MemoryLocation{fragment: fragment}
}

// Fragment implements Location.
func (l *MemoryLocation) Fragment(context.Context) (string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.fragment, nil
}

// SetFragment implements Location.
func (l *MemoryLocation) SetFragment(_ context.Context, fragment string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.fragment = fragment
	l.writes++
	return nil
}

// Writes returns how many times SetFragment was called.
func (l *MemoryLocation) Writes() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.writes
}
