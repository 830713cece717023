package offline

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/bhandras/replbox/internal/actor/actortest"
	"github.com/bhandras/replbox/internal/database"
	"github.com/stretchr/testify/require"
)

func waitActive(t *testing.T, w *Worker) {
	t.Helper()
	select {
	case <-w.Active():
	case <-time.After(2 * time.Second):
		t.Fatal("worker never became active")
	}
}

func TestWorkerCachesPostedSnapshots(t *testing.T) {
	t.Parallel()

	w := NewWorker(nil)
	select {
	case <-w.Active():
		t.Fatal("active before start")
	default:
	}
	w.Start()
	defer w.Stop()
	waitActive(t, w)

	require.True(t, w.Post(NewMessage("s1", map[string]string{"dist/index.js": "one"}, time.Now())))
	actortest.Eventually(t, time.Second, func() bool {
		got, ok := w.File("s1", "/dist/index.js")
		return ok && got == "one"
	})

	require.True(t, w.Post(NewMessage("s1", map[string]string{"/dist/other.js": "two"}, time.Now())))
	actortest.Eventually(t, time.Second, func() bool {
		_, ok := w.File("s1", "dist/other.js")
		return ok
	})
	_, ok := w.File("s1", "/dist/index.js")
	require.False(t, ok, "a new snapshot replaces the previous one")
	require.Equal(t, []string{"/dist/other.js"}, w.Paths("s1"))
}

func TestWorkerRejectsAfterStop(t *testing.T) {
	t.Parallel()

	w := NewWorker(nil)
	w.Start()
	waitActive(t, w)
	require.False(t, w.Post(Message{}), "scope is required")

	w.Stop()
	<-w.Done()
	require.False(t, w.Post(NewMessage("s1", nil, time.Now())))
}

func TestWorkerRestoresFromDatabase(t *testing.T) {
	t.Parallel()

	db, err := database.Open(filepath.Join(t.TempDir(), "offline.db"))
	require.NoError(t, err)
	defer db.Close()
	q := db.Queries()

	w := NewWorker(q)
	w.Start()
	waitActive(t, w)
	require.True(t, w.Post(NewMessage("s1", map[string]string{"/dist/a.js": "a"}, time.Now())))
	actortest.Eventually(t, time.Second, func() bool {
		all, err := q.OfflineFiles(context.Background())
		return err == nil && all["s1"]["/dist/a.js"] == "a"
	})
	w.Stop()
	<-w.Done()

	restarted := NewWorker(q)
	restarted.Start()
	defer restarted.Stop()
	waitActive(t, restarted)
	got, ok := restarted.File("s1", "/dist/a.js")
	require.True(t, ok)
	require.Equal(t, "a", got)
}

type stubTarget struct {
	active chan struct{}
	posted []Message
	reject bool
}

func (s *stubTarget) Active() <-chan struct{} { return s.active }

func (s *stubTarget) Post(msg Message) bool {
	if s.reject {
		return false
	}
	s.posted = append(s.posted, msg)
	return true
}

func TestHandoff(t *testing.T) {
	t.Parallel()

	snap := func(context.Context) (map[string]string, error) {
		return map[string]string{"/dist/a.js": "a"}, nil
	}

	target := &stubTarget{active: make(chan struct{})}
	close(target.active)
	msg, err := Handoff(context.Background(), target, "s1", snap, time.Now())
	require.NoError(t, err)
	require.NotEmpty(t, msg.ID)
	require.Len(t, target.posted, 1)
	require.Equal(t, "s1", target.posted[0].Scope)

	target.reject = true
	_, err = Handoff(context.Background(), target, "s1", snap, time.Now())
	require.Error(t, err)

	boom := errors.New("boom")
	_, err = Handoff(context.Background(), target, "s1", func(context.Context) (map[string]string, error) {
		return nil, boom
	}, time.Now())
	require.ErrorIs(t, err, boom)

	inactive := &stubTarget{active: make(chan struct{})}
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = Handoff(ctx, inactive, "s1", snap, time.Now())
	require.ErrorIs(t, err, context.DeadlineExceeded)
	require.Empty(t, inactive.posted)
}
