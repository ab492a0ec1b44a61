package store

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/KMcClain23/WarriorMomma/internal/books"
	"github.com/KMcClain23/WarriorMomma/internal/fileutil"
	"github.com/google/uuid"
)

// JSONStore keeps each section in its own JSON file inside a data
// directory (library.json, recommended.json, upcoming.json). A file may hold
// a bare array or an object with a "books" array; the shape found on disk
// is kept when writing back. Files are only rewritten when their content
// changes. Books stored without an id get one on first read, and the file
// is rewritten right away so the id stays stable.
type JSONStore struct {
	dir  string
	opts books.NormalizeOptions
	mu   sync.Mutex
	now  func() time.Time
}

var _ Store = (*JSONStore)(nil)

// NewJSONStore creates a JSONStore over dir. Records read from disk are
// normalized with opts, so legacy field spellings are accepted.
func NewJSONStore(dir string, opts books.NormalizeOptions) *JSONStore {
	return &JSONStore{dir: dir, opts: opts, now: time.Now}
}

// FileName returns the file a section is stored in.
func FileName(section books.Section) string {
	return string(section) + ".json"
}

// sectionFile is the in-memory form of one section file.
type sectionFile struct {
	records []books.Record
	// wrapped is true for the {"books": [...]} shape; other top-level
	// keys are kept in extra.
	wrapped bool
	extra   map[string]json.RawMessage
	raw     []byte
}

func (s *JSONStore) path(section books.Section) string {
	return filepath.Join(s.dir, FileName(section))
}

func (s *JSONStore) load(section books.Section) (*sectionFile, error) {
	if err := validSection(section); err != nil {
		return nil, err
	}

	path := s.path(section)
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return &sectionFile{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	file := &sectionFile{raw: data}
	items := bytes.TrimSpace(data)
	if len(items) == 0 {
		return file, nil
	}

	if items[0] == '{' {
		if err := json.Unmarshal(items, &file.extra); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", path, err)
		}
		file.wrapped = true
		items = file.extra["books"]
		delete(file.extra, "books")
	}

	var docs []map[string]any
	if len(items) > 0 {
		dec := json.NewDecoder(bytes.NewReader(items))
		dec.UseNumber()
		if err := dec.Decode(&docs); err != nil {
			return nil, fmt.Errorf("failed to parse books in %s: %w", path, err)
		}
	}

	assigned := 0
	for _, doc := range docs {
		if doc == nil {
			continue
		}
		rec := books.Normalize(doc, section, s.opts)
		if rec.ID == "" {
			rec.ID = uuid.NewString()
			assigned++
			slog.Debug("Assigned ID to stored book", "section", section, "title", rec.Title, "id", rec.ID)
		}
		file.records = append(file.records, rec)
	}

	// IDs must survive the next load, otherwise lookups by ID miss.
	if assigned > 0 {
		if err := s.save(section, file); err != nil {
			return nil, fmt.Errorf("failed to store assigned IDs in %s: %w", path, err)
		}
		slog.Info("Stored IDs for books that had none", "section", section, "count", assigned)
	}
	return file, nil
}

func (s *JSONStore) save(section books.Section, file *sectionFile) error {
	records := file.records
	if records == nil {
		records = []books.Record{}
	}

	var payload any = records
	if file.wrapped {
		doc := make(map[string]any, len(file.extra)+1)
		for k, v := range file.extra {
			doc[k] = v
		}
		doc["books"] = records
		payload = doc
	}

	data, err := fileutil.MarshalJSON(payload)
	if err != nil {
		return err
	}
	if bytes.Equal(data, file.raw) {
		slog.Debug("Section file unchanged, skipping write", "section", section)
		return nil
	}

	if err := fileutil.WriteFileAtomic(s.path(section), data, 0644); err != nil {
		return err
	}
	file.raw = data
	slog.Debug("Section file written", "section", section, "books", len(records))
	return nil
}

func (f *sectionFile) index(id string) int {
	for i, rec := range f.records {
		if rec.ID == id {
			return i
		}
	}
	return -1
}

// List returns the books of a section, newest first.
func (s *JSONStore) List(_ context.Context, section books.Section) ([]books.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	file, err := s.load(section)
	if err != nil {
		return nil, err
	}
	out := make([]books.Record, len(file.records))
	copy(out, file.records)
	sortNewestFirst(out)
	return out, nil
}

// Get returns a single book from a section.
func (s *JSONStore) Get(_ context.Context, section books.Section, id string) (books.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	file, err := s.load(section)
	if err != nil {
		return books.Record{}, err
	}
	i := file.index(id)
	if i < 0 {
		return books.Record{}, notFound(section, id)
	}
	return file.records[i].Clone(), nil
}

// Create stores a new book at the end of its section file.
func (s *JSONStore) Create(_ context.Context, rec books.Record) (books.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, err := prepare(rec, s.now())
	if err != nil {
		return books.Record{}, err
	}
	file, err := s.load(rec.Section)
	if err != nil {
		return books.Record{}, err
	}
	if file.index(rec.ID) >= 0 {
		return books.Record{}, fmt.Errorf("%w: %s", ErrExists, rec.ID)
	}

	file.records = append(file.records, rec)
	if err := s.save(rec.Section, file); err != nil {
		return books.Record{}, err
	}
	return rec, nil
}

// Update replaces existing books. Each touched section file is written once.
func (s *JSONStore) Update(_ context.Context, recs ...books.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	files := make(map[books.Section]*sectionFile)
	var order []books.Section
	for _, rec := range recs {
		file, ok := files[rec.Section]
		if !ok {
			var err error
			if file, err = s.load(rec.Section); err != nil {
				return err
			}
			files[rec.Section] = file
			order = append(order, rec.Section)
		}
		i := file.index(rec.ID)
		if i < 0 {
			return notFound(rec.Section, rec.ID)
		}
		file.records[i] = rec.Clone()
	}

	for _, section := range order {
		if err := s.save(section, files[section]); err != nil {
			return err
		}
	}
	return nil
}

// Delete removes a book from a section.
func (s *JSONStore) Delete(_ context.Context, section books.Section, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	file, err := s.load(section)
	if err != nil {
		return err
	}
	i := file.index(id)
	if i < 0 {
		return notFound(section, id)
	}
	file.records = append(file.records[:i], file.records[i+1:]...)
	return s.save(section, file)
}

// Move transfers a book between section files. The destination is written
// before the source so a failure never loses the book.
func (s *JSONStore) Move(_ context.Context, id string, from, to books.Section) (books.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	src, err := s.load(from)
	if err != nil {
		return books.Record{}, err
	}
	dst, err := s.load(to)
	if err != nil {
		return books.Record{}, err
	}

	i := src.index(id)
	if i < 0 {
		return books.Record{}, notFound(from, id)
	}
	if from == to {
		return src.records[i].Clone(), nil
	}

	rec := src.records[i].Clone()
	rec.Section = to
	dst.records = append(dst.records, rec)
	src.records = append(src.records[:i], src.records[i+1:]...)

	if err := s.save(to, dst); err != nil {
		return books.Record{}, err
	}
	if err := s.save(from, src); err != nil {
		return books.Record{}, err
	}
	return rec, nil
}

// Replace swaps the whole content of a section file.
func (s *JSONStore) Replace(_ context.Context, section books.Section, recs []books.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	file, err := s.load(section)
	if err != nil {
		return err
	}

	now := s.now()
	file.records = make([]books.Record, 0, len(recs))
	for _, rec := range recs {
		rec.Section = section
		prepared, err := prepare(rec, now)
		if err != nil {
			return err
		}
		file.records = append(file.records, prepared)
	}
	return s.save(section, file)
}

// Close is a no-op for the file backend.
func (s *JSONStore) Close() error {
	return nil
}
