package store

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/KMcClain23/WarriorMomma/internal/books"
	"github.com/KMcClain23/WarriorMomma/internal/csvutil"
	"github.com/google/uuid"
	"gopkg.in/yaml.v3"
)

// LoadSeedFile reads a legacy book list from a JSON, YAML or CSV file
// (chosen by extension) and normalizes every entry. JSON and YAML files may
// hold a bare list or an object with a "books" list; CSV files name the
// fields in their header row. A non-empty section overrides whatever
// section the entries carry; entries left without a valid section are an
// error. Every returned record has an ID.
func LoadSeedFile(path string, section books.Section, opts books.NormalizeOptions) ([]books.Record, error) {
	docs, err := readSeedDocs(path)
	if err != nil {
		return nil, fmt.Errorf("failed to parse seed file %s: %w", path, err)
	}

	records := make([]books.Record, 0, len(docs))
	for i, doc := range docs {
		raw, ok := doc.(map[string]any)
		if !ok {
			slog.Warn("Skipping seed entry that is not an object", "file", path, "index", i)
			continue
		}
		rec := books.Normalize(raw, section, opts)
		if !rec.Section.Valid() {
			return nil, fmt.Errorf("seed entry %d (%q): %w", i, rec.Title, books.ErrInvalidSection)
		}
		if rec.ID == "" {
			rec.ID = uuid.NewString()
		}
		records = append(records, rec)
	}
	return records, nil
}

func readSeedDocs(path string) ([]any, error) {
	ext := strings.ToLower(filepath.Ext(path))
	if ext == ".csv" {
		return csvutil.ProcessCSV(path, csvSeedDoc, csvutil.ProcessorOptions{SkipInvalid: true})
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read seed file: %w", err)
	}
	if ext == ".yaml" || ext == ".yml" {
		return decodeYAMLSeed(data)
	}
	return decodeJSONSeed(data)
}

// csvCamelKeys restores the camelCase document keys that CSV headers lose
// to lower-casing.
var csvCamelKeys = map[string]string{
	"coverurl":    "coverUrl",
	"isread":      "isRead",
	"istbr":       "isTbr",
	"releasedate": "releaseDate",
	"spicelevel":  "spiceLevel",
	"spicerating": "spiceRating",
	"createdat":   "createdAt",
}

// csvSeedDoc turns a CSV row into a raw book document. Blank cells are
// left out so they never shadow another spelling of the same field.
func csvSeedDoc(row csvutil.Row) (any, error) {
	doc := make(map[string]any, len(row))
	for key, value := range row {
		if strings.TrimSpace(value) == "" {
			continue
		}
		if camel, ok := csvCamelKeys[key]; ok {
			key = camel
		}
		doc[key] = value
	}
	if len(doc) == 0 {
		return nil, fmt.Errorf("empty row")
	}
	return doc, nil
}

func decodeJSONSeed(data []byte) ([]any, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var top any
	if err := dec.Decode(&top); err != nil {
		return nil, err
	}
	return seedList(top)
}

func decodeYAMLSeed(data []byte) ([]any, error) {
	var top any
	if err := yaml.Unmarshal(data, &top); err != nil {
		return nil, err
	}
	return seedList(top)
}

func seedList(top any) ([]any, error) {
	switch v := top.(type) {
	case nil:
		return nil, nil
	case []any:
		return v, nil
	case map[string]any:
		list, ok := v["books"].([]any)
		if !ok {
			return nil, fmt.Errorf("object has no books list")
		}
		return list, nil
	default:
		return nil, fmt.Errorf("unexpected top-level %T", top)
	}
}
