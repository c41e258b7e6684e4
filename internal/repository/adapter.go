package repository

import (
	"context"

	"github.com/inkwell-app/inkwell/internal/autosave"
)

// NewSaveAdapter bridges an editing session to the entry store. While no
// identifier is bound, a save creates the entry and returns the new
// identifier; afterwards saves are read-modify-write updates against it.
// The adapter relies on the session's serialization guarantee: calls are
// never concurrent, so the unsynchronized bound variable and the
// load-merge-store update are safe.
func NewSaveAdapter(store EntryStore, ownerID, kind, entityID string) autosave.SaveFunc {
	bound := entityID
	return func(ctx context.Context, fields autosave.Fields, draft bool) (string, error) {
		if bound == "" {
			e := &Entry{OwnerID: ownerID, Kind: kind, Draft: draft}
			applyFields(e, fields)
			id, err := store.Create(ctx, e)
			if err != nil {
				return "", err
			}
			bound = id
			return id, nil
		}

		e, err := store.Get(ctx, bound)
		if err != nil {
			return "", err
		}
		applyFields(e, fields)
		e.Draft = draft
		return "", store.Update(ctx, e)
	}
}

// EntryFields extracts the autosavable subset of an entry for seeding a
// session's baseline snapshot.
func EntryFields(e *Entry) autosave.Fields {
	f := autosave.Fields{
		"title":   e.Title,
		"content": e.Content,
	}
	if e.Kind == KindLifeStory {
		f["event_date"] = e.EventDate
	}
	tags := make([]any, 0, len(e.Tags))
	for _, t := range e.Tags {
		tags = append(tags, t)
	}
	f["tags"] = tags
	return f
}

func applyFields(e *Entry, fields autosave.Fields) {
	if v, ok := fields["title"].(string); ok {
		e.Title = v
	}
	if v, ok := fields["content"].(string); ok {
		e.Content = v
	}
	if v, ok := fields["event_date"].(string); ok {
		e.EventDate = v
	}
	if raw, ok := fields["tags"]; ok {
		e.Tags = toStrings(raw)
	}
}

// toStrings normalizes tag values, which arrive as []any from JSON bodies
// or []string from Go callers.
func toStrings(raw any) []string {
	switch v := raw.(type) {
	case []string:
		return v
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	default:
		return []string{}
	}
}
