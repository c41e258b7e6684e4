package repository

import (
	"context"
	"testing"

	"github.com/inkwell-app/inkwell/internal/autosave"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSaveAdapter_CreateThenUpdate(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	save := NewSaveAdapter(repo, "user-1", KindJournal, "")

	id, err := save(ctx, autosave.Fields{"title": "A", "content": "B"}, true)
	require.NoError(t, err)
	require.NotEmpty(t, id, "first save must create and return the identifier")

	// Second save is an update: empty identifier, same row.
	again, err := save(ctx, autosave.Fields{"content": "B, continued"}, true)
	require.NoError(t, err)
	assert.Empty(t, again)

	got, err := repo.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "A", got.Title, "unmentioned fields survive partial updates")
	assert.Equal(t, "B, continued", got.Content)
	assert.True(t, got.Draft)

	entries, err := repo.ListByOwner(ctx, "user-1", KindJournal)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "updates must never create a second row")
}

func TestSaveAdapter_SubmitClearsDraft(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	save := NewSaveAdapter(repo, "user-1", KindLifeStory, "")

	id, err := save(ctx, autosave.Fields{"title": "Move abroad", "event_date": "2001-09-01"}, true)
	require.NoError(t, err)

	_, err = save(ctx, autosave.Fields{}, false)
	require.NoError(t, err)

	got, err := repo.Get(ctx, id)
	require.NoError(t, err)
	assert.False(t, got.Draft)
	assert.Equal(t, "2001-09-01", got.EventDate)
}

func TestSaveAdapter_BoundFromTheStart(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	id, err := repo.Create(ctx, &Entry{OwnerID: "user-1", Kind: KindJournal, Title: "existing"})
	require.NoError(t, err)

	save := NewSaveAdapter(repo, "user-1", KindJournal, id)
	ret, err := save(ctx, autosave.Fields{"title": "existing, edited"}, true)
	require.NoError(t, err)
	assert.Empty(t, ret, "updates do not return identifiers")

	got, err := repo.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "existing, edited", got.Title)
}

func TestSaveAdapter_TagsFromJSONBody(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	save := NewSaveAdapter(repo, "user-1", KindJournal, "")

	// JSON request bodies decode arrays as []any.
	id, err := save(ctx, autosave.Fields{"title": "t", "tags": []any{"travel", "food"}}, true)
	require.NoError(t, err)

	got, err := repo.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, []string{"travel", "food"}, got.Tags)
}

func TestEntryFields_RoundTrip(t *testing.T) {
	e := &Entry{
		Kind:      KindLifeStory,
		Title:     "First job",
		Content:   "...",
		EventDate: "1999-03-15",
		Tags:      []string{"work"},
	}

	fields := EntryFields(e)
	assert.Equal(t, "First job", fields["title"])
	assert.Equal(t, "1999-03-15", fields["event_date"])

	// Seeding a tracker with these fields and pushing back the identical
	// values must read as unchanged.
	tr := autosave.NewTracker(fields)
	if tr.Update(autosave.Fields{"title": "First job", "tags": []any{"work"}}) {
		t.Error("identical field values must not mark the tracker dirty")
	}
}
