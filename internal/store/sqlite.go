package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/KMcClain23/WarriorMomma/internal/books"

	_ "modernc.org/sqlite"
)

// BooksSchema is the SQLite table holding every section.
const BooksSchema = `CREATE TABLE IF NOT EXISTS books (
	id TEXT PRIMARY KEY,
	section TEXT NOT NULL,
	title TEXT NOT NULL,
	author TEXT NOT NULL DEFAULT '',
	cover_url TEXT NOT NULL DEFAULT '',
	genres TEXT NOT NULL DEFAULT '[]',
	spice INTEGER NOT NULL DEFAULT 0,
	notes TEXT NOT NULL DEFAULT '',
	release_date TEXT NOT NULL DEFAULT '',
	is_read INTEGER NOT NULL DEFAULT 0,
	is_tbr INTEGER NOT NULL DEFAULT 0,
	created_at INTEGER NOT NULL DEFAULT 0
);
CREATE INDEX IF NOT EXISTS idx_books_section_created ON books(section, created_at DESC);`

var bookColumns = []string{
	"id", "section", "title", "author", "cover_url", "genres", "spice",
	"notes", "release_date", "is_read", "is_tbr", "created_at",
}

// SQLiteStore implements the Store interface for local SQLite storage
type SQLiteStore struct {
	db     *sql.DB
	dbPath string
	now    func() time.Time
}

var _ Store = (*SQLiteStore)(nil)

// NewSQLiteStore creates a new SQLiteStore instance
func NewSQLiteStore(dbPath string) *SQLiteStore {
	return &SQLiteStore{
		dbPath: dbPath,
		now:    time.Now,
	}
}

// OpenSQLiteStore connects to dbPath and makes sure the books table exists.
func OpenSQLiteStore(dbPath string) (*SQLiteStore, error) {
	s := NewSQLiteStore(dbPath)
	if err := s.Connect(); err != nil {
		return nil, err
	}
	if err := s.CreateTable(BooksSchema); err != nil {
		return nil, errors.Join(err, s.Close())
	}
	return s, nil
}

// Connect opens a connection to the SQLite database
func (s *SQLiteStore) Connect() error {
	db, err := sql.Open("sqlite", s.dbPath)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)
	s.db = db
	return nil
}

// CreateTable creates a new table with the given schema if it doesn't exist
func (s *SQLiteStore) CreateTable(schema string) error {
	_, err := s.db.Exec(schema)
	if err != nil {
		return fmt.Errorf("failed to create table: %w", err)
	}
	return nil
}

// Close closes the database connection
func (s *SQLiteStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanBook(row rowScanner) (books.Record, error) {
	var (
		rec       books.Record
		section   string
		genres    string
		isRead    int
		isTbr     int
		createdAt int64
	)
	if err := row.Scan(&rec.ID, &section, &rec.Title, &rec.Author, &rec.CoverURL, &genres,
		&rec.Spice, &rec.Notes, &rec.ReleaseDate, &isRead, &isTbr, &createdAt); err != nil {
		return books.Record{}, err
	}

	rec.Section = books.Section(section)
	rec.IsRead = isRead != 0
	rec.IsTbr = isTbr != 0
	if createdAt != 0 {
		rec.CreatedAt = time.Unix(0, createdAt).UTC()
	}
	if err := json.Unmarshal([]byte(genres), &rec.Genres); err != nil {
		return books.Record{}, fmt.Errorf("failed to decode genres of %s: %w", rec.ID, err)
	}
	return rec, nil
}

func bookValues(rec books.Record) ([]any, error) {
	genres := rec.Genres
	if genres == nil {
		genres = []string{}
	}
	genresJSON, err := json.Marshal(genres)
	if err != nil {
		return nil, fmt.Errorf("failed to encode genres: %w", err)
	}

	var createdAt int64
	if !rec.CreatedAt.IsZero() {
		createdAt = rec.CreatedAt.UnixNano()
	}
	return []any{
		rec.ID, string(rec.Section), rec.Title, rec.Author, rec.CoverURL, string(genresJSON), rec.Spice,
		rec.Notes, rec.ReleaseDate, boolInt(rec.IsRead), boolInt(rec.IsTbr), createdAt,
	}, nil
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

var (
	selectBooks = "SELECT " + strings.Join(bookColumns, ", ") + " FROM books"
	insertBook  = fmt.Sprintf("INSERT INTO books (%s) VALUES (%s)",
		strings.Join(bookColumns, ", "),
		strings.TrimSuffix(strings.Repeat("?, ", len(bookColumns)), ", "))
	updateBook = `UPDATE books SET title = ?, author = ?, cover_url = ?, genres = ?, spice = ?,
		notes = ?, release_date = ?, is_read = ?, is_tbr = ?, created_at = ?
		WHERE id = ? AND section = ?`
)

// List returns the books of a section, newest first.
func (s *SQLiteStore) List(ctx context.Context, section books.Section) ([]books.Record, error) {
	if err := validSection(section); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, selectBooks+" WHERE section = ? ORDER BY created_at DESC, rowid ASC", string(section))
	if err != nil {
		return nil, fmt.Errorf("failed to list books: %w", err)
	}
	defer func() { _ = rows.Close() }()

	out := []books.Record{}
	for rows.Next() {
		rec, err := scanBook(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan book: %w", err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list books: %w", err)
	}
	return out, nil
}

// Get returns a single book from a section.
func (s *SQLiteStore) Get(ctx context.Context, section books.Section, id string) (books.Record, error) {
	if err := validSection(section); err != nil {
		return books.Record{}, err
	}

	row := s.db.QueryRowContext(ctx, selectBooks+" WHERE id = ? AND section = ?", id, string(section))
	rec, err := scanBook(row)
	if errors.Is(err, sql.ErrNoRows) {
		return books.Record{}, notFound(section, id)
	}
	if err != nil {
		return books.Record{}, fmt.Errorf("failed to get book: %w", err)
	}
	return rec, nil
}

// Create stores a new book.
func (s *SQLiteStore) Create(ctx context.Context, rec books.Record) (books.Record, error) {
	rec, err := prepare(rec, s.now())
	if err != nil {
		return books.Record{}, err
	}

	var exists int
	err = s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM books WHERE id = ?", rec.ID).Scan(&exists)
	if err != nil {
		return books.Record{}, fmt.Errorf("failed to check book: %w", err)
	}
	if exists > 0 {
		return books.Record{}, fmt.Errorf("%w: %s", ErrExists, rec.ID)
	}

	values, err := bookValues(rec)
	if err != nil {
		return books.Record{}, err
	}
	if _, err := s.db.ExecContext(ctx, insertBook, values...); err != nil {
		return books.Record{}, fmt.Errorf("failed to insert book: %w", err)
	}
	return rec, nil
}

// Update replaces existing books in a single transaction.
func (s *SQLiteStore) Update(ctx context.Context, recs ...books.Record) error {
	if len(recs) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		// Rollback if we don't commit - ignore errors as they're expected if transaction was committed
		_ = tx.Rollback()
	}()

	stmt, err := tx.PrepareContext(ctx, updateBook)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	for _, rec := range recs {
		values, err := bookValues(rec)
		if err != nil {
			return err
		}
		// values: id, section, then the updatable columns
		args := append(values[2:], rec.ID, string(rec.Section))
		result, err := stmt.ExecContext(ctx, args...)
		if err != nil {
			return fmt.Errorf("failed to update book: %w", err)
		}
		if n, err := result.RowsAffected(); err != nil || n == 0 {
			return errors.Join(notFound(rec.Section, rec.ID), err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// Delete removes a book from a section.
func (s *SQLiteStore) Delete(ctx context.Context, section books.Section, id string) error {
	if err := validSection(section); err != nil {
		return err
	}

	result, err := s.db.ExecContext(ctx, "DELETE FROM books WHERE id = ? AND section = ?", id, string(section))
	if err != nil {
		return fmt.Errorf("failed to delete book: %w", err)
	}
	if n, err := result.RowsAffected(); err != nil || n == 0 {
		return errors.Join(notFound(section, id), err)
	}
	return nil
}

// Move transfers a book between sections.
func (s *SQLiteStore) Move(ctx context.Context, id string, from, to books.Section) (books.Record, error) {
	if err := validSection(from); err != nil {
		return books.Record{}, err
	}
	if err := validSection(to); err != nil {
		return books.Record{}, err
	}

	result, err := s.db.ExecContext(ctx, "UPDATE books SET section = ? WHERE id = ? AND section = ?", string(to), id, string(from))
	if err != nil {
		return books.Record{}, fmt.Errorf("failed to move book: %w", err)
	}
	if n, err := result.RowsAffected(); err != nil || n == 0 {
		return books.Record{}, errors.Join(notFound(from, id), err)
	}
	return s.Get(ctx, to, id)
}

// Replace swaps the whole content of a section in a single transaction.
func (s *SQLiteStore) Replace(ctx context.Context, section books.Section, recs []books.Record) error {
	if err := validSection(section); err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if _, err := tx.ExecContext(ctx, "DELETE FROM books WHERE section = ?", string(section)); err != nil {
		return fmt.Errorf("failed to clear section: %w", err)
	}
	if err := batchInsert(ctx, tx, section, recs, s.now()); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// batchInsert inserts records into the books table with one prepared statement.
func batchInsert(ctx context.Context, tx *sql.Tx, section books.Section, recs []books.Record, now time.Time) error {
	if len(recs) == 0 {
		return nil
	}

	stmt, err := tx.PrepareContext(ctx, insertBook)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	for _, rec := range recs {
		rec.Section = section
		prepared, err := prepare(rec, now)
		if err != nil {
			return err
		}
		values, err := bookValues(prepared)
		if err != nil {
			return err
		}
		if _, err := stmt.ExecContext(ctx, values...); err != nil {
			return fmt.Errorf("failed to insert record: %w", err)
		}
	}
	return nil
}
