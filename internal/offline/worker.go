// Package offline caches built virtual filesystems so they can be served
// without rebuilding.
//
// The Worker owns the cache on its own goroutine. It becomes active after
// restoring the persisted cache, accepts snapshots through Post without
// acknowledging them, and answers lookups from memory.
package offline

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/bhandras/replbox/internal/metrics"
	"github.com/bhandras/replbox/internal/signal"
	"github.com/bhandras/replbox/pkg/logger"
	"github.com/google/uuid"
)

// Message carries one virtual filesystem snapshot for a scope.
type Message struct {
	ID        string
	Scope     string
	Files     map[string]string
	CreatedAt time.Time
}

// NewMessage returns a message with a fresh id.
func NewMessage(scope string, files map[string]string, now time.Time) Message {
	return Message{ID: uuid.NewString(), Scope: scope, Files: files, CreatedAt: now}
}

// Store persists the cache. A nil Store keeps the cache in memory only.
type Store interface {
	ReplaceOfflineFiles(ctx context.Context, scope, messageID string, files map[string]string, atMs int64) error
	OfflineFiles(ctx context.Context) (map[string]map[string]string, error)
}

// Worker implements the offline-serving cache.
type Worker struct {
	store Store

	active *signal.Event
	inbox  chan Message

	mu    sync.RWMutex
	cache map[string]map[string]string

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
	start  sync.Once
	stop   sync.Once
}

// NewWorker returns a worker backed by store. Start must be called before it
// becomes active.
func NewWorker(store Store) *Worker {
	ctx, cancel := context.WithCancel(context.Background())
	return &Worker{
		store:  store,
		active: signal.NewEvent(),
		inbox:  make(chan Message, 32),
		cache:  make(map[string]map[string]string),
		ctx:    ctx,
		cancel: cancel,
		done:   make(chan struct{}),
	}
}

// Start restores the persisted cache and begins processing posts.
func (w *Worker) Start() {
	w.start.Do(func() { go w.loop() })
}

// Stop ends processing. Messages still queued are dropped.
func (w *Worker) Stop() {
	w.stop.Do(func() { w.cancel() })
}

// Done is closed when the worker goroutine exits.
func (w *Worker) Done() <-chan struct{} {
	return w.done
}

// Active is closed once the worker is ready to accept posts.
func (w *Worker) Active() <-chan struct{} {
	return w.active.Done()
}

// Post queues a snapshot. It reports false if the worker is stopped or its
// mailbox is full.
func (w *Worker) Post(msg Message) bool {
	if msg.Scope == "" {
		return false
	}
	select {
	case <-w.ctx.Done():
		return false
	default:
	}
	select {
	case w.inbox <- msg:
		return true
	default:
		return false
	}
}

// File returns a cached file. Paths are absolute; a missing leading slash is
// tolerated.
func (w *Worker) File(scope, path string) (string, bool) {
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	w.mu.RLock()
	defer w.mu.RUnlock()
	content, ok := w.cache[scope][path]
	return content, ok
}

// Paths returns the cached paths of a scope.
func (w *Worker) Paths(scope string) []string {
	w.mu.RLock()
	defer w.mu.RUnlock()
	files := w.cache[scope]
	out := make([]string, 0, len(files))
	for p := range files {
		out = append(out, p)
	}
	return out
}

func (w *Worker) loop() {
	defer close(w.done)

	if w.store != nil {
		restored, err := w.store.OfflineFiles(w.ctx)
		if err != nil {
			logger.Warnf("[offline] restore cache: %v", err)
		} else if restored != nil {
			w.mu.Lock()
			w.cache = restored
			w.mu.Unlock()
			logger.Debugf("[offline] restored %d scopes", len(restored))
		}
	}
	w.reportSize()
	signal.Fire(w.active)

	for {
		select {
		case <-w.ctx.Done():
			return
		case msg := <-w.inbox:
			w.apply(msg)
		}
	}
}

func (w *Worker) apply(msg Message) {
	files := make(map[string]string, len(msg.Files))
	for p, content := range msg.Files {
		if !strings.HasPrefix(p, "/") {
			p = "/" + p
		}
		files[p] = content
	}

	w.mu.Lock()
	w.cache[msg.Scope] = files
	w.mu.Unlock()
	w.reportSize()

	if w.store == nil {
		return
	}
	at := msg.CreatedAt
	if at.IsZero() {
		at = time.Now()
	}
	if err := w.store.ReplaceOfflineFiles(w.ctx, msg.Scope, msg.ID, files, at.UnixMilli()); err != nil {
		logger.Warnf("[offline] persist %s for %s: %v", msg.ID, msg.Scope, err)
		return
	}
	logger.Tracef("[offline] cached %d files for %s", len(files), msg.Scope)
}

func (w *Worker) reportSize() {
	w.mu.RLock()
	n := 0
	for _, files := range w.cache {
		n += len(files)
	}
	w.mu.RUnlock()
	metrics.SetOfflineFilesCached(n)
}
