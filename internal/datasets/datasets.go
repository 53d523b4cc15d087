package datasets

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"enrolsight/config"
)

// Handle represents an in-memory dataset bundle paired with metadata for TTL eviction.
type Handle struct {
	ID        string
	Bundle    *Bundle
	LoadedAt  time.Time
	ExpiresAt time.Time
	mu        sync.RWMutex
}

// DatasetGate coordinates capacity for open dataset handles (backed by runtime.Controller).
type DatasetGate interface {
	AcquireDataset(ctx context.Context) error
	ReleaseDataset()
}

// Manager provides lifecycle hooks for opening and closing dataset bundles, a handle
// cache with idle TTL, and a content-hash keyed bundle cache so reopening an
// unchanged directory does not reparse the source files.
type Manager struct {
	mu           sync.RWMutex
	handles      map[string]*Handle
	byHash       map[string]*Bundle
	ttl          time.Duration
	cleanupEvery time.Duration
	clock        func() time.Time
	gate         DatasetGate
	stopCh       chan struct{}
	cleanupWG    sync.WaitGroup
	logger       zerolog.Logger
}

// ErrHandleNotFound indicates an unknown or expired handle ID.
var ErrHandleNotFound = errors.New("datasets: handle not found")

// NewManager constructs a lifecycle manager. Pass ttl or cleanupEvery <= 0 to use
// defaults from config. Gate can be nil for tests; clock defaults to time.Now.
func NewManager(ttl, cleanupEvery time.Duration, gate DatasetGate, clock func() time.Time, logger zerolog.Logger) *Manager {
	if ttl <= 0 {
		ttl = config.DefaultDatasetIdleTTL
	}
	if cleanupEvery <= 0 {
		cleanupEvery = config.DefaultDatasetCleanupPeriod
	}
	if clock == nil {
		clock = time.Now
	}
	return &Manager{
		handles:      make(map[string]*Handle),
		byHash:       make(map[string]*Bundle),
		ttl:          ttl,
		cleanupEvery: cleanupEvery,
		clock:        clock,
		gate:         gate,
		stopCh:       make(chan struct{}),
		logger:       logger,
	}
}

// Start launches periodic eviction of expired handles.
func (m *Manager) Start() {
	m.cleanupWG.Add(1)
	ticker := time.NewTicker(m.cleanupEvery)
	go func() {
		defer m.cleanupWG.Done()
		defer ticker.Stop()
		for {
			select {
			case <-m.stopCh:
				return
			case <-ticker.C:
				m.EvictExpired()
			}
		}
	}()
}

// Close stops background cleanup and drops all handles.
func (m *Manager) Close(ctx context.Context) error {
	close(m.stopCh)
	done := make(chan struct{})
	go func() { m.cleanupWG.Wait(); close(done) }()
	select {
	case <-done:
	case <-ctx.Done():
		return ctx.Err()
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	for id := range m.handles {
		delete(m.handles, id)
		if m.gate != nil {
			m.gate.ReleaseDataset()
		}
	}
	return nil
}

// Open scans a data directory, reuses a cached bundle when the content hash matches,
// and registers a TTL-bearing handle. The manager enforces open-dataset capacity via
// the gate when provided.
func (m *Manager) Open(ctx context.Context, dir string) (string, *Bundle, error) {
	if err := m.acquire(ctx); err != nil {
		return "", nil, err
	}

	files, err := ScanDir(dir)
	if err != nil {
		m.release()
		return "", nil, err
	}
	hash := HashFiles(files)

	m.mu.RLock()
	bundle := m.byHash[hash]
	m.mu.RUnlock()

	if bundle == nil {
		bundle, err = BuildBundle(ctx, dir, files, m.logger)
		if err != nil {
			m.release()
			return "", nil, err
		}
		m.mu.Lock()
		m.byHash[hash] = bundle
		m.mu.Unlock()
	} else {
		m.logger.Debug().Str("hash", hash).Msg("bundle cache hit")
	}

	id := uuid.NewString()
	loadedAt := m.clock()
	h := &Handle{ID: id, Bundle: bundle, LoadedAt: loadedAt, ExpiresAt: loadedAt.Add(m.ttl)}

	m.mu.Lock()
	m.handles[id] = h
	m.mu.Unlock()

	return id, bundle, nil
}

// Get returns the handle when present and refreshes its TTL.
func (m *Manager) Get(id string) (*Handle, bool) {
	m.mu.RLock()
	h, ok := m.handles[id]
	m.mu.RUnlock()
	if !ok {
		return nil, false
	}
	// Refresh TTL on access (idle timeout semantics)
	now := m.clock()
	h.mu.Lock()
	h.ExpiresAt = now.Add(m.ttl)
	h.mu.Unlock()
	return h, true
}

// WithRead executes fn against the handle's bundle. Bundles are immutable once
// built, so a shared read suffices.
func (m *Manager) WithRead(id string, fn func(*Bundle) error) error {
	h, ok := m.Get(id)
	if !ok {
		return ErrHandleNotFound
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	return fn(h.Bundle)
}

// CloseHandle removes a handle by ID, releasing capacity via the gate. The cached
// bundle stays keyed by content hash for later reuse.
func (m *Manager) CloseHandle(ctx context.Context, id string) error {
	m.mu.Lock()
	_, ok := m.handles[id]
	if ok {
		delete(m.handles, id)
	}
	m.mu.Unlock()
	if !ok {
		return ErrHandleNotFound
	}
	m.release()
	return nil
}

// EvictExpired drops handles past their TTL.
func (m *Manager) EvictExpired() {
	now := m.clock()
	var expired []string

	m.mu.RLock()
	for id, h := range m.handles {
		h.mu.RLock()
		if now.After(h.ExpiresAt) {
			expired = append(expired, id)
		}
		h.mu.RUnlock()
	}
	m.mu.RUnlock()

	for _, id := range expired {
		m.mu.Lock()
		delete(m.handles, id)
		m.mu.Unlock()
		m.release()
	}
}

// Count returns the current number of live handles.
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.handles)
}

func (m *Manager) acquire(ctx context.Context) error {
	if m.gate == nil {
		return nil
	}
	return m.gate.AcquireDataset(ctx)
}

func (m *Manager) release() {
	if m.gate == nil {
		return
	}
	m.gate.ReleaseDataset()
}

// Expired reports whether the handle has reached its TTL.
func (h *Handle) Expired(now time.Time) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return now.After(h.ExpiresAt)
}
