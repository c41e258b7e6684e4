// Package editing manages the server-side editing sessions that wrap the
// autosave coordinator: one session per open entry editor, owned by exactly
// one user.
package editing

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/containerd/errdefs"
	"github.com/google/uuid"

	"github.com/inkwell-app/inkwell/internal/autosave"
	"github.com/inkwell-app/inkwell/internal/logger"
	"github.com/inkwell-app/inkwell/internal/repository"
)

// Info describes an open session to API consumers.
type Info struct {
	SessionID string          `json:"sessionId"`
	Kind      string          `json:"kind"`
	Status    autosave.Status `json:"status"`
}

type handle struct {
	id         string
	ownerID    string
	kind       string
	session    *autosave.Session
	lastActive time.Time
}

// Config carries the manager dependencies.
type Config struct {
	Store repository.EntryStore
	// Debounce is passed through to each session.
	Debounce time.Duration
	// TTL is how long a session may stay idle before the janitor reaps it.
	TTL time.Duration
	// Gate gates draft saving for all sessions (feature flag / auth
	// validity). Optional.
	Gate func() bool
}

// Manager tracks open editing sessions by id. The UI guarantees a single
// active editor per entity; the manager does not arbitrate between two
// sessions editing the same entry.
type Manager struct {
	mu       sync.Mutex
	sessions map[string]*handle

	store    repository.EntryStore
	debounce time.Duration
	ttl      time.Duration
	gate     func() bool
}

// NewManager creates an empty session manager.
func NewManager(cfg Config) *Manager {
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	return &Manager{
		sessions: map[string]*handle{},
		store:    cfg.Store,
		debounce: cfg.Debounce,
		ttl:      ttl,
		gate:     cfg.Gate,
	}
}

// Open starts an editing session. With an empty entryID the session edits a
// brand-new entry (first save creates it); otherwise the entry is loaded and
// seeds the baseline snapshot, so an untouched form stays clean.
func (m *Manager) Open(ctx context.Context, ownerID, kind, entryID string) (Info, error) {
	if !repository.ValidKind(kind) {
		return Info{}, fmt.Errorf("unknown entry kind %q: %w", kind, errdefs.ErrInvalidArgument)
	}

	var original autosave.Fields
	if entryID != "" {
		entry, err := m.store.Get(ctx, entryID)
		if err != nil {
			return Info{}, err
		}
		if entry.OwnerID != ownerID {
			// Do not reveal the entry's existence to other users.
			return Info{}, fmt.Errorf("entry %s: %w", entryID, errdefs.ErrNotFound)
		}
		kind = entry.Kind
		original = repository.EntryFields(entry)
	}

	session, err := autosave.NewSession(autosave.Config{
		Save:     repository.NewSaveAdapter(m.store, ownerID, kind, entryID),
		Debounce: m.debounce,
		Gate:     m.gate,
		EntityID: entryID,
	}, original)
	if err != nil {
		return Info{}, err
	}

	h := &handle{
		id:         uuid.NewString(),
		ownerID:    ownerID,
		kind:       kind,
		session:    session,
		lastActive: time.Now(),
	}

	m.mu.Lock()
	m.sessions[h.id] = h
	m.mu.Unlock()

	logger.WithComponent("editing").Debugf("opened session %s (kind=%s, entry=%q)", h.id, kind, entryID)
	return m.info(h), nil
}

// Update pushes partial field edits into a session. Fields outside the
// autosavable set are dropped.
func (m *Manager) Update(sessionID, ownerID string, fields autosave.Fields) (Info, error) {
	h, err := m.lookup(sessionID, ownerID)
	if err != nil {
		return Info{}, err
	}

	tracked := autosave.Fields{}
	for name, value := range fields {
		if repository.AutosavableFields[name] {
			tracked[name] = value
		}
	}
	h.session.Update(tracked)
	return m.info(h), nil
}

// Status returns the session's derived autosave state.
func (m *Manager) Status(sessionID, ownerID string) (Info, error) {
	h, err := m.lookupIdle(sessionID, ownerID)
	if err != nil {
		return Info{}, err
	}
	return m.info(h), nil
}

// SaveDraft flushes the session's edits as a draft, if dirty.
func (m *Manager) SaveDraft(ctx context.Context, sessionID, ownerID string) (Info, error) {
	h, err := m.lookup(sessionID, ownerID)
	if err != nil {
		return Info{}, err
	}
	if err := h.session.SaveDraft(ctx); err != nil {
		return m.info(h), err
	}
	return m.info(h), nil
}

// Submit performs the deliberate, non-draft save. The caller owns the ack:
// call Finish once the result has been delivered.
func (m *Manager) Submit(ctx context.Context, sessionID, ownerID string, fields autosave.Fields) (Info, error) {
	h, err := m.lookup(sessionID, ownerID)
	if err != nil {
		return Info{}, err
	}
	if _, err := h.session.SaveNow(ctx, fields, false); err != nil {
		return m.info(h), err
	}
	return m.info(h), nil
}

// Finish acknowledges a completed submit, clearing the session's busy flag.
func (m *Manager) Finish(sessionID, ownerID string) {
	h, err := m.lookupIdle(sessionID, ownerID)
	if err != nil {
		return
	}
	h.session.FinishSaving()
}

// Close ends a session, flushing a final draft if it is dirty, and removes
// it from the manager. This is the navigate-away path.
func (m *Manager) Close(ctx context.Context, sessionID, ownerID string) error {
	h, err := m.lookup(sessionID, ownerID)
	if err != nil {
		return err
	}

	m.mu.Lock()
	delete(m.sessions, sessionID)
	m.mu.Unlock()

	if err := h.session.Close(ctx); err != nil {
		logger.WithComponent("editing").Warnf("final flush for session %s failed: %v", sessionID, err)
		return err
	}
	return nil
}

// CloseAll flushes and removes every session. Used on shutdown.
func (m *Manager) CloseAll(ctx context.Context) {
	m.mu.Lock()
	handles := make([]*handle, 0, len(m.sessions))
	for _, h := range m.sessions {
		handles = append(handles, h)
	}
	m.sessions = map[string]*handle{}
	m.mu.Unlock()

	for _, h := range handles {
		if err := h.session.Close(ctx); err != nil {
			logger.WithComponent("editing").Warnf("final flush for session %s failed: %v", h.id, err)
		}
	}
}

// Len returns the number of open sessions.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

func (m *Manager) lookup(sessionID, ownerID string) (*handle, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	h, ok := m.sessions[sessionID]
	if !ok || h.ownerID != ownerID {
		return nil, fmt.Errorf("session %s: %w", sessionID, errdefs.ErrNotFound)
	}
	h.lastActive = time.Now()
	return h, nil
}

// lookupIdle resolves a session without bumping its activity time, so
// status polling does not keep an abandoned session alive forever.
func (m *Manager) lookupIdle(sessionID, ownerID string) (*handle, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	h, ok := m.sessions[sessionID]
	if !ok || h.ownerID != ownerID {
		return nil, fmt.Errorf("session %s: %w", sessionID, errdefs.ErrNotFound)
	}
	return h, nil
}

func (m *Manager) info(h *handle) Info {
	return Info{
		SessionID: h.id,
		Kind:      h.kind,
		Status:    h.session.Status(),
	}
}
