package database

import (
	"context"
	"errors"
	"time"

	"github.com/bhandras/replbox/internal/fragment"
)

// FragmentLocation is the per-session fragment slot backed by
// session_fragments.
type FragmentLocation struct {
	q         *Queries
	sessionID string
	now       func() time.Time
}

var _ fragment.Location = (*FragmentLocation)(nil)

// Location returns the fragment slot of a session.
func (q *Queries) Location(sessionID string) *FragmentLocation {
	return &FragmentLocation{q: q, sessionID: sessionID, now: time.Now}
}

// Fragment implements fragment.Location. A session without a stored fragment
// yields "".
func (l *FragmentLocation) Fragment(ctx context.Context) (string, error) {
	row, err := l.q.FragmentByID(ctx, l.sessionID)
	if errors.Is(err, ErrNotFound) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return row.Fragment, nil
}

// SetFragment implements fragment.Location.
func (l *FragmentLocation) SetFragment(ctx context.Context, value string) error {
	return l.q.UpsertFragment(ctx, l.sessionID, value, l.now().UnixMilli())
}
