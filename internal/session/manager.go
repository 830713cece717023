package session

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/bhandras/replbox/internal/actor"
	"github.com/bhandras/replbox/internal/engine"
	"github.com/bhandras/replbox/internal/fragment"
	"github.com/bhandras/replbox/internal/metrics"
	"github.com/bhandras/replbox/internal/offline"
	"github.com/bhandras/replbox/internal/preset"
	"github.com/bhandras/replbox/pkg/logger"
	"github.com/bhandras/replbox/pkg/types"
	"github.com/google/uuid"
)

// Resolve applies the startup policy: a decodable fragment fully supersedes
// the defaults; anything else yields the catalog's default preset with
// default options.
func Resolve(catalog *preset.Catalog, raw string) (types.Session, bool) {
	if raw != "" {
		if s := fragment.Decode(raw); s != nil {
			return *s, true
		}
	}
	s, _ := catalog.Session(catalog.Default().Name)
	return s, false
}

// ManagerConfig configures a Manager.
type ManagerConfig struct {
	Catalog *preset.Catalog
	// NewEngine returns the engine for a new session.
	NewEngine func() engine.Engine
	// Locations returns the fragment slot of a session. When nil, fragments
	// are kept in memory and sessions do not survive a restart.
	Locations func(id string) fragment.Location
	// Offline receives build snapshots. Optional.
	Offline      offline.Target
	BuildTimeout time.Duration
	Clock        actor.Clock
}

// CreateRequest describes a new session. A decodable Fragment wins over
// Preset; with neither, the default preset is used.
type CreateRequest struct {
	Fragment string
	Preset   string
}

// Manager owns the running session stores.
type Manager struct {
	cfg ManagerConfig

	mu       sync.Mutex
	stores   map[string]*Store
	memory   map[string]*fragment.MemoryLocation
	creating map[string]chan struct{}
	closed   bool
}

// NewManager returns a manager.
func NewManager(cfg ManagerConfig) (*Manager, error) {
	if cfg.Catalog == nil {
		return nil, fmt.Errorf("manager needs a preset catalog")
	}
	if cfg.NewEngine == nil {
		return nil, fmt.Errorf("manager needs an engine factory")
	}
	return &Manager{
		cfg:      cfg,
		stores:   make(map[string]*Store),
		memory:   make(map[string]*fragment.MemoryLocation),
		creating: make(map[string]chan struct{}),
	}, nil
}

// Catalog returns the preset catalog.
func (m *Manager) Catalog() *preset.Catalog {
	return m.cfg.Catalog
}

func (m *Manager) location(id string) fragment.Location {
	if m.cfg.Locations != nil {
		return m.cfg.Locations(id)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	loc, ok := m.memory[id]
	if !ok {
		loc = fragment.NewMemoryLocation("")
		m.memory[id] = loc
	}
	return loc
}

// Create starts a new session. The store writes its initial fragment before
// Create returns.
func (m *Manager) Create(ctx context.Context, req CreateRequest) (*Store, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	initial, restored := Resolve(m.cfg.Catalog, req.Fragment)
	if !restored && req.Preset != "" {
		s, ok := m.cfg.Catalog.Session(req.Preset)
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrUnknownPreset, req.Preset)
		}
		initial = s
	}

	id := uuid.NewString()
	store, err := m.start(id, initial)
	if err != nil {
		return nil, err
	}
	logger.Infof("[session] created %s (preset=%s restored=%t)", id, initial.CurrentPreset, restored)
	return store, nil
}

// Get returns a running store, restoring it from its stored fragment if the
// process restarted since it was created.
func (m *Manager) Get(ctx context.Context, id string) (*Store, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, ErrSessionNotFound
	}

	for {
		m.mu.Lock()
		if m.closed {
			m.mu.Unlock()
			return nil, actor.ErrStopped
		}
		if s, ok := m.stores[id]; ok {
			m.mu.Unlock()
			return s, nil
		}
		wait, busy := m.creating[id]
		if !busy {
			m.creating[id] = make(chan struct{})
			m.mu.Unlock()
			break
		}
		m.mu.Unlock()
		select {
		case <-wait:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	defer func() {
		m.mu.Lock()
		close(m.creating[id])
		delete(m.creating, id)
		m.mu.Unlock()
	}()

	raw, err := m.location(id).Fragment(ctx)
	if err != nil {
		return nil, fmt.Errorf("load fragment: %w", err)
	}
	if strings.TrimSpace(raw) == "" {
		return nil, ErrSessionNotFound
	}
	initial, restored := Resolve(m.cfg.Catalog, raw)
	if !restored {
		logger.Warnf("[session] %s stored fragment is unreadable; using defaults", id)
	}
	store, err := m.start(id, initial)
	if err != nil {
		return nil, err
	}
	logger.Infof("[session] restored %s", id)
	return store, nil
}

func (m *Manager) start(id string, initial types.Session) (*Store, error) {
	store, err := NewStore(StoreConfig{
		ID:           id,
		Initial:      initial,
		Catalog:      m.cfg.Catalog,
		Engine:       m.cfg.NewEngine(),
		Location:     m.location(id),
		Offline:      m.cfg.Offline,
		BuildTimeout: m.cfg.BuildTimeout,
		Clock:        m.cfg.Clock,
	})
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		store.Close()
		return nil, actor.ErrStopped
	}
	m.stores[id] = store
	n := len(m.stores)
	m.mu.Unlock()
	metrics.SetSessionsActive(n)
	return store, nil
}

// Len returns the number of running stores.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.stores)
}

// Close stops every store.
func (m *Manager) Close() {
	m.mu.Lock()
	m.closed = true
	stores := make([]*Store, 0, len(m.stores))
	for id, s := range m.stores {
		stores = append(stores, s)
		delete(m.stores, id)
	}
	m.mu.Unlock()

	for _, s := range stores {
		s.Close()
	}
	metrics.SetSessionsActive(0)
}
