package autosave

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockAdapter records save calls and simulates create/update behavior.
type mockAdapter struct {
	mu       sync.Mutex
	calls    []savedCall
	createID string
	err      error
	delay    time.Duration

	inFlight    int32
	maxInFlight int32
}

type savedCall struct {
	fields Fields
	draft  bool
	bound  bool // true if this call ran as an update
}

func (m *mockAdapter) fn() SaveFunc {
	bound := false
	return func(ctx context.Context, fields Fields, draft bool) (string, error) {
		cur := atomic.AddInt32(&m.inFlight, 1)
		for {
			max := atomic.LoadInt32(&m.maxInFlight)
			if cur <= max || atomic.CompareAndSwapInt32(&m.maxInFlight, max, cur) {
				break
			}
		}
		if m.delay > 0 {
			time.Sleep(m.delay)
		}
		atomic.AddInt32(&m.inFlight, -1)

		m.mu.Lock()
		defer m.mu.Unlock()
		if m.err != nil {
			return "", m.err
		}
		m.calls = append(m.calls, savedCall{fields: fields, draft: draft, bound: bound})
		if !bound {
			bound = true
			return m.createID, nil
		}
		return "", nil
	}
}

func (m *mockAdapter) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls)
}

func (m *mockAdapter) call(i int) savedCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[i]
}

func newTestSession(t *testing.T, cfg Config) *Session {
	t.Helper()
	s, err := NewSession(cfg, nil)
	require.NoError(t, err)
	return s
}

func TestNewSession_RequiresSaveFunc(t *testing.T) {
	_, err := NewSession(Config{}, nil)
	require.ErrorIs(t, err, ErrNoSaveFunc)
}

func TestSession_DebounceCoalescesBurstIntoOneSave(t *testing.T) {
	adapter := &mockAdapter{createID: "entry-1"}
	s := newTestSession(t, Config{Save: adapter.fn(), Debounce: 60 * time.Millisecond})

	// Edits at t=0, t=20ms, t=40ms with a 60ms quiet period: the timer is
	// re-armed on each edit, so exactly one save fires after the burst.
	s.Update(Fields{"title": "d"})
	time.Sleep(20 * time.Millisecond)
	s.Update(Fields{"title": "de"})
	time.Sleep(20 * time.Millisecond)
	s.Update(Fields{"title": "dear diary"})

	time.Sleep(150 * time.Millisecond)

	require.Equal(t, 1, adapter.callCount())
	call := adapter.call(0)
	assert.Equal(t, "dear diary", call.fields["title"])
	assert.True(t, call.draft, "automatic saves are draft saves")
	assert.Equal(t, "entry-1", s.EntityID())
	assert.False(t, s.Status().Dirty)
}

func TestSession_CleanUpdateDoesNotArmTimer(t *testing.T) {
	adapter := &mockAdapter{}
	s, err := NewSession(Config{Save: adapter.fn(), Debounce: 30 * time.Millisecond}, Fields{"title": "same"})
	require.NoError(t, err)

	s.Update(Fields{"title": "same"})
	time.Sleep(80 * time.Millisecond)

	assert.Equal(t, 0, adapter.callCount())
}

func TestSession_SaveNowCancelsPendingTimer(t *testing.T) {
	adapter := &mockAdapter{createID: "entry-1"}
	s := newTestSession(t, Config{Save: adapter.fn(), Debounce: 50 * time.Millisecond})

	s.Update(Fields{"title": "a"})
	id, err := s.SaveNow(context.Background(), Fields{"content": "b"}, false)
	require.NoError(t, err)
	assert.Equal(t, "entry-1", id)

	// The debounce timer was cancelled, so no second save fires.
	time.Sleep(120 * time.Millisecond)
	require.Equal(t, 1, adapter.callCount())
	call := adapter.call(0)
	assert.Equal(t, "a", call.fields["title"])
	assert.Equal(t, "b", call.fields["content"])
	assert.False(t, call.draft)
}

func TestSession_NoConcurrentAdapterCalls(t *testing.T) {
	adapter := &mockAdapter{createID: "entry-1", delay: 20 * time.Millisecond}
	s := newTestSession(t, Config{Save: adapter.fn(), Debounce: 5 * time.Millisecond})

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			s.Update(Fields{"title": "v", "n": i})
			if i%2 == 0 {
				_, _ = s.SaveNow(context.Background(), nil, true)
				s.FinishSaving()
			} else {
				_ = s.SaveDraft(context.Background())
			}
		}(i)
	}
	wg.Wait()
	time.Sleep(100 * time.Millisecond)

	assert.Equal(t, int32(1), atomic.LoadInt32(&adapter.maxInFlight),
		"adapter calls must never overlap")
}

func TestSession_CreateBindsIdentityOnce(t *testing.T) {
	adapter := &mockAdapter{createID: "entry-42", delay: 15 * time.Millisecond}
	s := newTestSession(t, Config{Save: adapter.fn(), Debounce: 10 * time.Millisecond})

	// Trigger the create via the automatic path, and immediately pile on an
	// explicit draft save. The second save must wait out the create and run
	// as an update against the bound identifier, never as a second create.
	s.Update(Fields{"title": "first"})
	time.Sleep(12 * time.Millisecond) // timer fired, create in flight
	s.Update(Fields{"content": "raced in"})
	require.NoError(t, s.SaveDraft(context.Background()))

	require.GreaterOrEqual(t, adapter.callCount(), 2)
	assert.False(t, adapter.call(0).bound, "first save is a create")
	for i := 1; i < adapter.callCount(); i++ {
		assert.True(t, adapter.call(i).bound, "save %d should be an update", i)
	}
	assert.Equal(t, "entry-42", s.EntityID())
}

func TestSession_FailedSaveLeavesDirtyAndUnbound(t *testing.T) {
	adapter := &mockAdapter{err: errors.New("backend rejected write")}
	s := newTestSession(t, Config{Save: adapter.fn(), Debounce: time.Hour})

	s.Update(Fields{"title": "x"})
	err := s.SaveDraft(context.Background())
	require.Error(t, err)

	st := s.Status()
	assert.True(t, st.Dirty, "failure must leave the session dirty for retry")
	assert.Nil(t, st.LastSavedAt, "lastAutosaveTime only advances on success")
	assert.Empty(t, s.EntityID())
	assert.False(t, st.Saving, "busy flag must clear after failure")
}

func TestSession_SaveDraftCleanIsNoOp(t *testing.T) {
	adapter := &mockAdapter{}
	s := newTestSession(t, Config{Save: adapter.fn()})

	require.NoError(t, s.SaveDraft(context.Background()))
	assert.Equal(t, 0, adapter.callCount())
}

func TestSession_SuccessfulSaveSetsLastSavedAt(t *testing.T) {
	adapter := &mockAdapter{createID: "entry-1"}
	s := newTestSession(t, Config{Save: adapter.fn(), Debounce: time.Hour})

	before := time.Now()
	s.Update(Fields{"title": "x"})
	require.NoError(t, s.SaveDraft(context.Background()))

	st := s.Status()
	require.NotNil(t, st.LastSavedAt)
	assert.False(t, st.LastSavedAt.Before(before))
	assert.False(t, st.Dirty)
}

func TestSession_ExplicitSaveAwaitsAck(t *testing.T) {
	adapter := &mockAdapter{createID: "entry-1"}
	s := newTestSession(t, Config{Save: adapter.fn(), Debounce: time.Hour})

	_, err := s.SaveNow(context.Background(), Fields{"title": "x"}, false)
	require.NoError(t, err)

	assert.True(t, s.Status().Saving, "busy until the caller acknowledges")
	s.FinishSaving()
	assert.False(t, s.Status().Saving)

	// FinishSaving outside AwaitingAck is a no-op.
	s.FinishSaving()
	assert.False(t, s.Status().Saving)
}

func TestSession_GateSuppressesDraftSaves(t *testing.T) {
	adapter := &mockAdapter{}
	open := false
	s := newTestSession(t, Config{
		Save:     adapter.fn(),
		Debounce: 10 * time.Millisecond,
		Gate:     func() bool { return open },
	})

	s.Update(Fields{"title": "x"})
	time.Sleep(50 * time.Millisecond)
	require.NoError(t, s.SaveDraft(context.Background()))
	assert.Equal(t, 0, adapter.callCount(), "closed gate suppresses draft saves")
	assert.True(t, s.Status().Dirty)

	open = true
	require.NoError(t, s.SaveDraft(context.Background()))
	assert.Equal(t, 1, adapter.callCount())
}

func TestSession_CloseFlushesDirtySession(t *testing.T) {
	adapter := &mockAdapter{createID: "entry-1"}
	s := newTestSession(t, Config{Save: adapter.fn(), Debounce: time.Hour})

	s.Update(Fields{"title": "half-finished"})
	require.NoError(t, s.Close(context.Background()))

	require.Equal(t, 1, adapter.callCount())
	assert.True(t, adapter.call(0).draft)

	// The session is unusable afterwards.
	assert.False(t, s.Update(Fields{"title": "late"}))
	_, err := s.SaveNow(context.Background(), nil, false)
	assert.ErrorIs(t, err, ErrSessionClosed)
	assert.NoError(t, s.Close(context.Background()), "second close is a no-op")
}

func TestSession_CloseCleanSessionSavesNothing(t *testing.T) {
	adapter := &mockAdapter{}
	s := newTestSession(t, Config{Save: adapter.fn()})

	require.NoError(t, s.Close(context.Background()))
	assert.Equal(t, 0, adapter.callCount())
}

func TestSession_ExistingEntitySavesAsUpdate(t *testing.T) {
	var gotDraft bool
	var calls int
	save := func(ctx context.Context, fields Fields, draft bool) (string, error) {
		calls++
		gotDraft = draft
		return "", nil
	}
	s, err := NewSession(Config{Save: save, EntityID: "existing-9"}, Fields{"title": "loaded"})
	require.NoError(t, err)

	s.Update(Fields{"title": "edited"})
	require.NoError(t, s.SaveDraft(context.Background()))

	assert.Equal(t, 1, calls)
	assert.True(t, gotDraft)
	assert.Equal(t, "existing-9", s.EntityID())
}

// Mirrors the full editing flow: a new entry gets a burst of edits, the
// debounced create fires once with the merged buffer, and a later edit plus
// an explicit draft flush performs exactly one update.
func TestSession_NewEntryLifecycle(t *testing.T) {
	adapter := &mockAdapter{createID: "entry-7"}
	s := newTestSession(t, Config{Save: adapter.fn(), Debounce: 40 * time.Millisecond})

	s.Update(Fields{"title": "A"})
	time.Sleep(10 * time.Millisecond)
	s.Update(Fields{"content": "B"})

	time.Sleep(100 * time.Millisecond)

	require.Equal(t, 1, adapter.callCount())
	create := adapter.call(0)
	assert.Equal(t, "A", create.fields["title"])
	assert.Equal(t, "B", create.fields["content"])
	assert.True(t, create.draft)
	assert.Equal(t, "entry-7", s.EntityID())

	s.Update(Fields{"content": "B, continued"})
	require.NoError(t, s.SaveDraft(context.Background()))

	require.Equal(t, 2, adapter.callCount())
	update := adapter.call(1)
	assert.True(t, update.bound, "second save must be an update")
	assert.Equal(t, "B, continued", update.fields["content"])

	time.Sleep(80 * time.Millisecond)
	assert.Equal(t, 2, adapter.callCount(), "flush must not leave a stray timer")
}
