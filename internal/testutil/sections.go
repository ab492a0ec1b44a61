package testutil

import (
	"bytes"
	"encoding/json"
	"path/filepath"

	"github.com/KMcClain23/WarriorMomma/internal/books"
)

// Book is a raw book document as found in section and seed files. Keys are
// written as given, so legacy spellings such as cover_image_url can be
// used.
type Book map[string]any

// SectionPath returns the workspace-relative path of a section file in dir.
func SectionPath(dir string, section books.Section) string {
	return filepath.Join(dir, string(section)+".json")
}

// WriteSection writes docs as a bare JSON array to the section file in dir
// and returns the file's absolute path. An empty dir means the workspace
// root.
func (e *TestEnv) WriteSection(dir string, section books.Section, docs ...Book) string {
	e.t.Helper()

	if docs == nil {
		docs = []Book{}
	}
	data, err := json.MarshalIndent(docs, "", "  ")
	if err != nil {
		e.t.Fatalf("failed to encode %s: %v", section, err)
	}
	path := SectionPath(dir, section)
	e.WriteFileString(path, string(data))
	return e.Path(path)
}

// ReadSection decodes the books stored in a section file in dir. Both the
// bare array and the {"books": [...]} shape are accepted.
func (e *TestEnv) ReadSection(dir string, section books.Section) []Book {
	e.t.Helper()

	data := bytes.TrimSpace(e.ReadFile(SectionPath(dir, section)))
	if len(data) > 0 && data[0] == '{' {
		var wrapped struct {
			Books json.RawMessage `json:"books"`
		}
		if err := json.Unmarshal(data, &wrapped); err != nil {
			e.t.Fatalf("failed to decode %s: %v", section, err)
		}
		data = wrapped.Books
	}

	var docs []Book
	if err := json.Unmarshal(data, &docs); err != nil {
		e.t.Fatalf("failed to decode books in %s: %v", section, err)
	}
	return docs
}

// SectionTitles maps each title in a section file to its document.
func (e *TestEnv) SectionTitles(dir string, section books.Section) map[string]Book {
	e.t.Helper()

	out := make(map[string]Book)
	for _, doc := range e.ReadSection(dir, section) {
		title, _ := doc["title"].(string)
		out[title] = doc
	}
	return out
}

// WriteSeed writes docs as a JSON seed file and returns its absolute path.
func (e *TestEnv) WriteSeed(path string, docs ...Book) string {
	e.t.Helper()

	if docs == nil {
		docs = []Book{}
	}
	data, err := json.Marshal(docs)
	if err != nil {
		e.t.Fatalf("failed to encode seed %q: %v", path, err)
	}
	e.WriteFileString(path, string(data))
	return e.Path(path)
}
