// Package store persists book records. Two backends implement Store: a
// directory of per-section JSON files and a SQLite database.
package store

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/KMcClain23/WarriorMomma/internal/books"
	"github.com/google/uuid"
)

var (
	// ErrNotFound is returned when a book does not exist in the requested section.
	ErrNotFound = errors.New("book not found")
	// ErrExists is returned when creating a book whose ID is already taken.
	ErrExists = errors.New("book already exists")
)

// Backend names accepted by Open.
const (
	BackendJSON   = "json"
	BackendSQLite = "sqlite"
)

// Store is the persistence contract shared by the backends.
type Store interface {
	// List returns the books of a section, newest first.
	List(ctx context.Context, section books.Section) ([]books.Record, error)
	// Get returns a single book from a section.
	Get(ctx context.Context, section books.Section, id string) (books.Record, error)
	// Create stores a new book, assigning an ID and creation time when missing.
	Create(ctx context.Context, rec books.Record) (books.Record, error)
	// Update replaces existing books, matched by section and ID.
	Update(ctx context.Context, recs ...books.Record) error
	// Delete removes a book from a section.
	Delete(ctx context.Context, section books.Section, id string) error
	// Move transfers a book between sections, keeping its ID and creation time.
	Move(ctx context.Context, id string, from, to books.Section) (books.Record, error)
	// Replace swaps the whole content of a section.
	Replace(ctx context.Context, section books.Section, recs []books.Record) error
	// Close releases the backend's resources.
	Close() error
}

// Options selects and configures a backend.
type Options struct {
	Backend   string
	DataDir   string
	DBFile    string
	Normalize books.NormalizeOptions
}

// Open creates the store described by opts.
func Open(opts Options) (Store, error) {
	switch opts.Backend {
	case "", BackendJSON:
		return NewJSONStore(opts.DataDir, opts.Normalize), nil
	case BackendSQLite:
		return OpenSQLiteStore(opts.DBFile)
	default:
		return nil, fmt.Errorf("unknown store backend %q", opts.Backend)
	}
}

// prepare validates rec and fills in the fields assigned at creation.
func prepare(rec books.Record, now time.Time) (books.Record, error) {
	if !rec.Section.Valid() {
		return rec, fmt.Errorf("%w: %q", books.ErrInvalidSection, rec.Section)
	}
	rec = rec.Clone()
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = now.UTC()
	}
	if rec.Genres == nil {
		rec.Genres = []string{}
	}
	return rec, nil
}

// sortNewestFirst orders records by creation time, newest first. Ties keep
// their stored order.
func sortNewestFirst(recs []books.Record) {
	slices.SortStableFunc(recs, func(a, b books.Record) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	})
}

func notFound(section books.Section, id string) error {
	return fmt.Errorf("%w: %s in %s", ErrNotFound, id, section)
}

func validSection(section books.Section) error {
	if !section.Valid() {
		return fmt.Errorf("%w: %q", books.ErrInvalidSection, section)
	}
	return nil
}
