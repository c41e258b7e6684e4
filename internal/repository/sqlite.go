package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/containerd/errdefs"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
)

const schema = `
CREATE TABLE IF NOT EXISTS entries (
    id         TEXT PRIMARY KEY,
    owner_id   TEXT NOT NULL,
    kind       TEXT NOT NULL,
    title      TEXT NOT NULL DEFAULT '',
    content    TEXT NOT NULL DEFAULT '',
    event_date TEXT NOT NULL DEFAULT '',
    tags       TEXT NOT NULL DEFAULT '[]',
    draft      INTEGER NOT NULL DEFAULT 1,
    created_at INTEGER NOT NULL,
    updated_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_entries_owner_kind ON entries(owner_id, kind);
`

// SQLiteRepository persists entries in a SQLite database.
type SQLiteRepository struct {
	db        *sql.DB
	validator *validator.Validate
}

// NewSQLiteRepository opens (creating if needed) the database at path and
// initializes the schema. ":memory:" gives an ephemeral store for tests.
func NewSQLiteRepository(path string) (*SQLiteRepository, error) {
	if path == "" {
		return nil, errors.New("database path is required")
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if path == ":memory:" {
		// Each pool connection would otherwise get its own empty database.
		db.SetMaxOpenConns(1)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}

	return &SQLiteRepository{db: db, validator: validator.New()}, nil
}

// Close releases the underlying database handle.
func (r *SQLiteRepository) Close() error {
	return r.db.Close()
}

// Create inserts a new entry. Missing IDs and timestamps are filled in; the
// assigned identifier is returned.
func (r *SQLiteRepository) Create(ctx context.Context, e *Entry) (string, error) {
	if e == nil {
		return "", errors.New("entry is nil")
	}
	e.ApplyDefaults()
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	now := time.Now().UnixMilli()
	if e.CreatedAt == 0 {
		e.CreatedAt = now
	}
	e.UpdatedAt = now

	if err := r.validator.Struct(e); err != nil {
		return "", fmt.Errorf("validate entry: %w", err)
	}

	tags, err := json.Marshal(e.Tags)
	if err != nil {
		return "", fmt.Errorf("marshal tags: %w", err)
	}

	_, err = r.db.ExecContext(ctx, `
INSERT INTO entries (id, owner_id, kind, title, content, event_date, tags, draft, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.OwnerID, e.Kind, e.Title, e.Content, e.EventDate, string(tags), e.Draft, e.CreatedAt, e.UpdatedAt)
	if err != nil {
		return "", fmt.Errorf("insert entry: %w", err)
	}
	return e.ID, nil
}

// Update rewrites an existing entry's editable columns.
func (r *SQLiteRepository) Update(ctx context.Context, e *Entry) error {
	if e == nil {
		return errors.New("entry is nil")
	}
	if e.ID == "" {
		return errors.New("entry id is required for update")
	}
	e.ApplyDefaults()
	e.UpdatedAt = time.Now().UnixMilli()

	if err := r.validator.Struct(e); err != nil {
		return fmt.Errorf("validate entry: %w", err)
	}

	tags, err := json.Marshal(e.Tags)
	if err != nil {
		return fmt.Errorf("marshal tags: %w", err)
	}

	res, err := r.db.ExecContext(ctx, `
UPDATE entries SET title = ?, content = ?, event_date = ?, tags = ?, draft = ?, updated_at = ?
WHERE id = ? AND owner_id = ?`,
		e.Title, e.Content, e.EventDate, string(tags), e.Draft, e.UpdatedAt, e.ID, e.OwnerID)
	if err != nil {
		return fmt.Errorf("update entry: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("entry %s: %w", e.ID, errdefs.ErrNotFound)
	}
	return nil
}

// Get loads one entry by id.
func (r *SQLiteRepository) Get(ctx context.Context, id string) (*Entry, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT id, owner_id, kind, title, content, event_date, tags, draft, created_at, updated_at
FROM entries WHERE id = ?`, id)

	return scanEntry(row)
}

// ListByOwner returns an owner's entries of the given kind (all kinds when
// kind is empty), most recently updated first.
func (r *SQLiteRepository) ListByOwner(ctx context.Context, ownerID, kind string) ([]Entry, error) {
	query := `
SELECT id, owner_id, kind, title, content, event_date, tags, draft, created_at, updated_at
FROM entries WHERE owner_id = ?`
	args := []any{ownerID}
	if kind != "" {
		query += " AND kind = ?"
		args = append(args, kind)
	}
	query += " ORDER BY updated_at DESC"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list entries: %w", err)
	}
	defer rows.Close()

	entries := []Entry{}
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, *e)
	}
	return entries, rows.Err()
}

// Delete removes an entry owned by ownerID.
func (r *SQLiteRepository) Delete(ctx context.Context, id, ownerID string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM entries WHERE id = ? AND owner_id = ?`, id, ownerID)
	if err != nil {
		return fmt.Errorf("delete entry: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("entry %s: %w", id, errdefs.ErrNotFound)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEntry(row rowScanner) (*Entry, error) {
	var e Entry
	var tags string
	err := row.Scan(&e.ID, &e.OwnerID, &e.Kind, &e.Title, &e.Content, &e.EventDate, &tags, &e.Draft, &e.CreatedAt, &e.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("entry: %w", errdefs.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("scan entry: %w", err)
	}
	if err := json.Unmarshal([]byte(tags), &e.Tags); err != nil {
		return nil, fmt.Errorf("decode tags: %w", err)
	}
	e.ApplyDefaults()
	return &e, nil
}
