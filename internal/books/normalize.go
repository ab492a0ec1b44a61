package books

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Legacy key spellings, in lookup priority order.
var (
	titleKeys       = []string{"title", "name"}
	coverKeys       = []string{"coverUrl", "cover_image_url"}
	genreKeys       = []string{"genres", "genre", "tags", "genre/theme", "genre/category"}
	spiceKeys       = []string{"spice", "spice_level", "spiceLevel", "spiceRating", "spice_rating", "spice level", "Spice Level", "Spice"}
	releaseDateKeys = []string{"release_date", "releaseDate"}
)

// NormalizeOptions tweaks the ingestion normalization.
type NormalizeOptions struct {
	// CanonicalSpiceLabels resolves string spice values through the fixed
	// five-level vocabulary before falling back to ParseSpice.
	CanonicalSpiceLabels bool
}

// Normalize maps a loosely-shaped legacy book document onto a Record.
// All alternate field spellings are resolved here so that the rest of the
// code only deals with the canonical shape. The section argument wins over
// any section stored in the document.
func Normalize(raw map[string]any, section Section, opts NormalizeOptions) Record {
	rec := Record{
		ID:          stringField(raw, "id"),
		Title:       firstString(raw, titleKeys...),
		Author:      authorField(raw),
		CoverURL:    firstString(raw, coverKeys...),
		Genres:      DedupGenres(ParseGenres(firstPresent(raw, genreKeys...))),
		Spice:       normalizeSpice(firstPresent(raw, spiceKeys...), opts),
		Section:     section,
		Notes:       stringField(raw, "notes"),
		ReleaseDate: firstString(raw, releaseDateKeys...),
		IsRead:      truthy(raw["isRead"]),
		IsTbr:       truthy(raw["isTbr"]),
		CreatedAt:   timeField(raw, "createdAt", "created_at"),
	}
	if rec.Section == "" {
		if s, err := ParseSection(stringField(raw, "section")); err == nil {
			rec.Section = s
		}
	}
	return rec
}

// ToMap converts a record back into the loose document form so that it can
// be merged with a partial update and normalized again.
func ToMap(r Record) map[string]any {
	m := map[string]any{
		"id":           r.ID,
		"title":        r.Title,
		"author":       r.Author,
		"coverUrl":     r.CoverURL,
		"genres":       append([]string(nil), r.Genres...),
		"spice":        r.Spice,
		"section":      string(r.Section),
		"notes":        r.Notes,
		"release_date": r.ReleaseDate,
		"isRead":       r.IsRead,
		"isTbr":        r.IsTbr,
	}
	if !r.CreatedAt.IsZero() {
		m["createdAt"] = r.CreatedAt
	}
	return m
}

// MergePatch overlays a partial update onto an existing record's document
// form. When the patch sets any spelling of a field, every other spelling
// is dropped from the base so the patched value is the one normalized.
func MergePatch(base Record, patch map[string]any) map[string]any {
	merged := ToMap(base)
	for _, group := range [][]string{titleKeys, coverKeys, genreKeys, spiceKeys, releaseDateKeys, {"author", "authors"}} {
		if !hasAnyKey(patch, group) {
			continue
		}
		for _, k := range group {
			delete(merged, k)
		}
	}
	for k, v := range patch {
		merged[k] = v
	}
	return merged
}

func hasAnyKey(m map[string]any, keys []string) bool {
	for _, k := range keys {
		if _, ok := m[k]; ok {
			return true
		}
	}
	return false
}

func normalizeSpice(raw any, opts NormalizeOptions) int {
	if s, ok := raw.(string); ok && opts.CanonicalSpiceLabels {
		if level, found := LookupSpiceLabel(s); found {
			return level
		}
	}
	return ParseSpice(raw)
}

// firstPresent returns the first value that is set and not nil. Empty
// strings count as absent so that a blank primary key falls through.
func firstPresent(raw map[string]any, keys ...string) any {
	for _, k := range keys {
		v, ok := raw[k]
		if !ok || v == nil {
			continue
		}
		if s, isString := v.(string); isString && strings.TrimSpace(s) == "" {
			continue
		}
		return v
	}
	return nil
}

func firstString(raw map[string]any, keys ...string) string {
	for _, k := range keys {
		if s := stringField(raw, k); s != "" {
			return s
		}
	}
	return ""
}

func stringField(raw map[string]any, key string) string {
	return toString(raw[key])
}

func authorField(raw map[string]any) string {
	if a := stringField(raw, "author"); a != "" {
		return a
	}
	switch v := raw["authors"].(type) {
	case []string:
		if len(v) > 0 {
			return strings.TrimSpace(v[0])
		}
	case []any:
		if len(v) > 0 {
			return toString(v[0])
		}
	}
	return ""
}

func toString(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(t)
	case json.Number:
		return t.String()
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case int, int64, int32:
		return fmt.Sprint(t)
	}
	return ""
}

func truthy(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case bool:
		return t
	case string:
		if b, err := strconv.ParseBool(strings.TrimSpace(t)); err == nil {
			return b
		}
		return t != ""
	case float64:
		return t != 0
	case int:
		return t != 0
	case json.Number:
		f, err := t.Float64()
		return err != nil || f != 0
	}
	return true
}

// timeField reads a timestamp stored either as a time.Time or as an
// RFC 3339 string. Anything else yields the zero time.
func timeField(raw map[string]any, keys ...string) time.Time {
	for _, k := range keys {
		switch v := raw[k].(type) {
		case time.Time:
			return v
		case string:
			if t, err := time.Parse(time.RFC3339Nano, strings.TrimSpace(v)); err == nil {
				return t
			}
		}
	}
	return time.Time{}
}
