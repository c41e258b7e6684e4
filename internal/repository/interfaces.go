package repository

import "context"

// EntryReader is the read-only store API.
type EntryReader interface {
	Get(ctx context.Context, id string) (*Entry, error)
	ListByOwner(ctx context.Context, ownerID, kind string) ([]Entry, error)
}

// EntryWriter persists entries. Used by the autosave adapter and the
// delete endpoint.
type EntryWriter interface {
	Create(ctx context.Context, e *Entry) (string, error)
	Update(ctx context.Context, e *Entry) error
	Delete(ctx context.Context, id, ownerID string) error
}

// EntryStore is the full store contract the application container exposes.
type EntryStore interface {
	EntryReader
	EntryWriter
}
