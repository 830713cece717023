package offline

import (
	"context"
	"fmt"
	"time"
)

// Target is the receiving side of a handoff.
type Target interface {
	Active() <-chan struct{}
	Post(msg Message) bool
}

// SnapshotFunc returns the engine's virtual filesystem.
type SnapshotFunc func(ctx context.Context) (map[string]string, error)

// Handoff takes a snapshot, waits for target to become active and posts the
// snapshot once. Delivery is not acknowledged.
func Handoff(ctx context.Context, target Target, scope string, snapshot SnapshotFunc, now time.Time) (Message, error) {
	if target == nil {
		return Message{}, fmt.Errorf("no offline target")
	}
	files, err := snapshot(ctx)
	if err != nil {
		return Message{}, fmt.Errorf("snapshot: %w", err)
	}

	select {
	case <-target.Active():
	case <-ctx.Done():
		return Message{}, fmt.Errorf("waiting for offline worker: %w", ctx.Err())
	}

	msg := NewMessage(scope, files, now)
	if !target.Post(msg) {
		return Message{}, fmt.Errorf("offline worker rejected message")
	}
	return msg, nil
}
