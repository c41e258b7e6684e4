// Package autosave coordinates draft saving for entry-editing sessions: it
// tracks whether the edit buffer differs from the last persisted snapshot,
// debounces bursts of edits into a single draft save, serializes save
// attempts so at most one adapter call is in flight, and binds the entity
// identifier returned by the first successful create.
package autosave

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/inkwell-app/inkwell/internal/logger"
)

// DefaultDebounce is the quiet period before an automatic draft save fires.
const DefaultDebounce = 2 * time.Second

var (
	// ErrNoSaveFunc means a session was configured without a persistence
	// adapter. This is a programmer error and fails fast.
	ErrNoSaveFunc = errors.New("autosave: no save function configured")

	// ErrSessionClosed means a save or edit was attempted after Close.
	ErrSessionClosed = errors.New("autosave: session closed")
)

// SaveFunc is the persistence adapter contract. The adapter performs a
// create when no identifier is bound yet and an update otherwise. On a
// successful create it returns the new identifier; on a successful update it
// returns the empty string. The session guarantees calls are never
// concurrent for one session, so the adapter need not deduplicate.
type SaveFunc func(ctx context.Context, fields Fields, draft bool) (string, error)

// State is the scheduler's position in the save lifecycle.
type State int

const (
	// StateIdle means no save is in flight.
	StateIdle State = iota
	// StateSaving means an adapter call is in flight.
	StateSaving
	// StateAwaitingAck means an explicit save returned but the caller has
	// not yet acknowledged it with FinishSaving.
	StateAwaitingAck
)

// Config carries the session dependencies.
type Config struct {
	// Save is the persistence adapter. Required.
	Save SaveFunc
	// Debounce is the quiet period before an automatic draft save.
	// DefaultDebounce when zero.
	Debounce time.Duration
	// Gate, when set, is consulted before draft saves run. A closed gate
	// (false) suppresses automatic and draft saves without erroring; the
	// session stays dirty. Used to pass auth/session validity or feature
	// flags in as a capability instead of reading global state.
	Gate func() bool
	// EntityID is the identifier of an existing entity, or empty for an
	// entity that has not been created yet.
	EntityID string
}

// Status is the read-only state surface exposed to UI layers.
type Status struct {
	Dirty       bool       `json:"dataHasChanged"`
	Saving      bool       `json:"isAutosaving"`
	LastSavedAt *time.Time `json:"lastAutosaveTime"`
	EntityID    string     `json:"entityId,omitempty"`
}

// Session schedules saves for one editing session. All methods are safe for
// concurrent use; adapter calls are strictly serialized.
type Session struct {
	mu   sync.Mutex
	cond *sync.Cond

	tracker  *Tracker
	save     SaveFunc
	debounce time.Duration
	gate     func() bool

	timer     *time.Timer
	state     State
	entityID  string
	lastSaved time.Time
	closed    bool
}

// NewSession creates a session around the given adapter. The tracker starts
// from original (nil for a brand-new entity).
func NewSession(cfg Config, original Fields) (*Session, error) {
	if cfg.Save == nil {
		return nil, ErrNoSaveFunc
	}
	debounce := cfg.Debounce
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	s := &Session{
		tracker:  NewTracker(original),
		save:     cfg.Save,
		debounce: debounce,
		gate:     cfg.Gate,
		entityID: cfg.EntityID,
	}
	s.cond = sync.NewCond(&s.mu)
	return s, nil
}

// SetOriginal replaces the baseline snapshot without marking the session
// dirty. Used when asynchronously loaded entity data arrives.
func (s *Session) SetOriginal(original Fields) {
	s.tracker.SetOriginal(original)
}

// Update merges partial field updates into the edit buffer. If the buffer
// now differs from the baseline, the debounce timer is (re)armed: each new
// edit cancels the previous timer, so a burst of edits produces exactly one
// automatic save after the burst ends. Returns whether the session is dirty.
func (s *Session) Update(partial Fields) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}
	changed := s.tracker.Update(partial)
	if changed && s.gateOpen() {
		s.armTimerLocked()
	}
	return changed
}

// SaveNow performs an explicit, immediate save, bypassing the debounce
// timer. Non-nil fields are merged into the buffer first. The adapter is
// always invoked: an explicit submit is a persisted state change (draft to
// final) even when the tracked fields are unchanged. On success the session
// enters AwaitingAck until FinishSaving is called, so the UI can distinguish
// "the call returned" from "the result was processed". Returns the bound
// entity identifier.
func (s *Session) SaveNow(ctx context.Context, fields Fields, draft bool) (string, error) {
	s.mu.Lock()
	s.stopTimerLocked()
	s.mu.Unlock()
	if fields != nil {
		s.tracker.Update(fields)
	}
	return s.runSave(ctx, draft, true, true)
}

// SaveDraft performs an explicit, immediate draft save. It is a guaranteed
// no-op when the session is clean, so calling it on cancel, navigation away
// or teardown preserves half-finished edits without spamming saves on
// untouched forms. A closed gate also makes it a no-op.
func (s *Session) SaveDraft(ctx context.Context) error {
	s.mu.Lock()
	s.stopTimerLocked()
	s.mu.Unlock()
	_, err := s.runSave(ctx, true, false, false)
	return err
}

// FinishSaving acknowledges a completed explicit save, clearing the busy
// flag (AwaitingAck to Idle). No-op in any other state.
func (s *Session) FinishSaving() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateAwaitingAck {
		s.state = StateIdle
		s.cond.Broadcast()
	}
}

// Status returns the derived session state.
func (s *Session) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := Status{
		Dirty:    s.tracker.Changed(),
		Saving:   s.state != StateIdle,
		EntityID: s.entityID,
	}
	if !s.lastSaved.IsZero() {
		t := s.lastSaved
		st.LastSavedAt = &t
	}
	return st
}

// EntityID returns the bound identifier, or empty if the entity has not
// been created yet.
func (s *Session) EntityID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.entityID
}

// Close cancels any pending timer and, if the session is dirty, attempts a
// final draft save before the session becomes unusable. Best-effort: the
// error of the final flush is returned but the session is closed either way.
func (s *Session) Close(ctx context.Context) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.stopTimerLocked()
	s.mu.Unlock()

	_, err := s.runSave(ctx, true, false, false)

	s.mu.Lock()
	s.closed = true
	s.cond.Broadcast()
	s.mu.Unlock()
	return err
}

func (s *Session) gateOpen() bool {
	return s.gate == nil || s.gate()
}

// armTimerLocked (re)arms the debounce timer. Caller holds s.mu.
func (s *Session) armTimerLocked() {
	if s.timer != nil {
		s.timer.Stop()
	}
	s.timer = time.AfterFunc(s.debounce, s.autoSave)
}

// stopTimerLocked cancels a pending automatic save. Caller holds s.mu.
func (s *Session) stopTimerLocked() {
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
}

// autoSave is the debounce timer callback. Failures stay in the session as
// a dirty flag; the next edit re-arms the timer, which is the only retry.
func (s *Session) autoSave() {
	if _, err := s.runSave(context.Background(), true, false, false); err != nil {
		if errors.Is(err, ErrSessionClosed) {
			return
		}
		logger.WithComponent("autosave").Warnf("automatic save failed, session stays dirty: %v", err)
	}
}

// runSave is the single choke point for adapter calls. It waits out any
// in-flight save, so triggers arriving mid-save coalesce: once the in-flight
// save resolves, the waiter re-checks dirtiness against the advanced
// baseline and either saves the merged buffer or no-ops. Two adapter calls
// can therefore never run concurrently, and a create can never race a
// second create (identity is bound before the next call starts).
func (s *Session) runSave(ctx context.Context, draft, force, ack bool) (string, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return "", ErrSessionClosed
	}
	for s.state == StateSaving {
		s.cond.Wait()
	}
	if s.closed {
		s.mu.Unlock()
		return "", ErrSessionClosed
	}
	if !force && !s.tracker.Changed() {
		id := s.entityID
		s.mu.Unlock()
		return id, nil
	}
	if draft && !force && !s.gateOpen() {
		id := s.entityID
		s.mu.Unlock()
		logger.WithComponent("autosave").Debugf("draft save suppressed by gate")
		return id, nil
	}

	snapshot := s.tracker.Snapshot()
	s.state = StateSaving
	s.mu.Unlock()

	id, err := s.save(ctx, snapshot, draft)

	s.mu.Lock()
	defer s.mu.Unlock()
	defer s.cond.Broadcast()
	if err != nil {
		// Dirty flag stays true and the identifier stays as it was, so a
		// later debounce cycle retries with the same create/update shape.
		s.state = StateIdle
		return "", err
	}
	if s.entityID == "" && id != "" {
		s.entityID = id
	} else if id != "" && id != s.entityID {
		// Identity binds exactly once per session.
		logger.WithComponent("autosave").Warnf(
			"adapter returned identifier %s for session already bound to %s; keeping the bound one", id, s.entityID)
	}
	s.tracker.Advance(snapshot)
	s.lastSaved = time.Now()
	if ack {
		s.state = StateAwaitingAck
	} else {
		s.state = StateIdle
	}
	return s.entityID, nil
}
