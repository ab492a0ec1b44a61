// Package books defines the book record shared by the collection, the
// persistence layer and the cover enrichment pipeline, together with the
// ingestion-time normalization of legacy record shapes.
package books

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// Section is one of the fixed collection buckets a book belongs to.
type Section string

const (
	SectionLibrary     Section = "library"
	SectionRecommended Section = "recommended"
	SectionUpcoming    Section = "upcoming"
)

// ErrInvalidSection is returned when a section name is not one of the known buckets.
var ErrInvalidSection = errors.New("invalid section")

// Sections lists every section in display order.
var Sections = []Section{SectionLibrary, SectionRecommended, SectionUpcoming}

// Valid reports whether s is a known section.
func (s Section) Valid() bool {
	switch s {
	case SectionLibrary, SectionRecommended, SectionUpcoming:
		return true
	}
	return false
}

// ParseSection converts a raw section name into a Section.
func ParseSection(raw string) (Section, error) {
	s := Section(raw)
	if !s.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidSection, raw)
	}
	return s, nil
}

// Record is a single book in the collection.
type Record struct {
	ID          string    `json:"id" yaml:"id"`
	Title       string    `json:"title" yaml:"title"`
	Author      string    `json:"author,omitempty" yaml:"author,omitempty"`
	CoverURL    string    `json:"coverUrl,omitempty" yaml:"coverUrl,omitempty"`
	Genres      []string  `json:"genres" yaml:"genres"`
	Spice       int       `json:"spice" yaml:"spice"`
	Section     Section   `json:"section" yaml:"section"`
	Notes       string    `json:"notes,omitempty" yaml:"notes,omitempty"`
	ReleaseDate string    `json:"release_date,omitempty" yaml:"release_date,omitempty"`
	IsRead      bool      `json:"isRead" yaml:"isRead"`
	IsTbr       bool      `json:"isTbr" yaml:"isTbr"`
	CreatedAt   time.Time `json:"createdAt" yaml:"createdAt"`
}

// Clone returns a copy of r that shares no slices with the original.
func (r Record) Clone() Record {
	out := r
	if r.Genres != nil {
		out.Genres = append([]string(nil), r.Genres...)
	}
	return out
}

// MarshalJSON writes the record with cover_image_url mirroring coverUrl for
// readers that only know the older field name.
func (r Record) MarshalJSON() ([]byte, error) {
	type plain Record
	return json.Marshal(struct {
		plain
		CoverImageURL string `json:"cover_image_url,omitempty"`
	}{plain: plain(r), CoverImageURL: r.CoverURL})
}

// UnmarshalJSON reads a record, falling back to cover_image_url when
// coverUrl is absent.
func (r *Record) UnmarshalJSON(data []byte) error {
	type plain Record
	var aux struct {
		plain
		CoverImageURL string `json:"cover_image_url"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	*r = Record(aux.plain)
	if r.CoverURL == "" {
		r.CoverURL = aux.CoverImageURL
	}
	return nil
}
