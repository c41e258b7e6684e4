package autosave

import "sync"

// Tracker holds the last-persisted snapshot and the live edit buffer for one
// editing session and derives whether they differ.
type Tracker struct {
	mu       sync.Mutex
	baseline Fields // last known persisted state
	buffer   Fields // live edits
	changed  bool
}

// NewTracker creates a tracker seeded with the given snapshot. For a new
// entity pass nil; for an existing entity pass the loaded fields.
func NewTracker(original Fields) *Tracker {
	snap := original.Clone()
	return &Tracker{
		baseline: snap,
		buffer:   snap.Clone(),
	}
}

// SetOriginal replaces the baseline snapshot without marking the session
// dirty. Used once, when asynchronously loaded entity data arrives over the
// empty placeholder buffer the session started with.
func (t *Tracker) SetOriginal(original Fields) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.baseline = original.Clone()
	t.buffer = t.baseline.Clone()
	t.changed = false
}

// Update merges partial field updates into the live buffer and recomputes
// the changed flag by structural comparison against the baseline. Returns
// the new changed value.
func (t *Tracker) Update(partial Fields) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.buffer.Merge(partial.Clone())
	t.changed = !Equal(t.buffer, t.baseline)
	return t.changed
}

// Changed reports whether the buffer differs from the baseline.
func (t *Tracker) Changed() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.changed
}

// Snapshot returns a deep copy of the current buffer.
func (t *Tracker) Snapshot() Fields {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.buffer.Clone()
}

// Advance moves the baseline to the just-saved snapshot and recomputes the
// changed flag against the current buffer. Advancing to the saved snapshot
// rather than the live buffer keeps edits that arrived during an in-flight
// save marked dirty, so the next cycle picks them up.
func (t *Tracker) Advance(saved Fields) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.baseline = saved.Clone()
	t.changed = !Equal(t.buffer, t.baseline)
}
