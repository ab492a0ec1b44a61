package books

import (
	"encoding/json"
	"math"
	"regexp"
	"strconv"
	"strings"
)

const (
	// MinSpice is the lowest spice level.
	MinSpice = 0
	// MaxSpice is the highest spice level.
	MaxSpice = 5
)

var (
	spiceWordHigh   = regexp.MustCompile(`\bhigh\b`)
	spiceWordMedium = regexp.MustCompile(`\bmedium\b`)
	spiceWordLow    = regexp.MustCompile(`\blow\b`)
	firstDigits     = regexp.MustCompile(`\d+`)
)

// canonicalSpiceLabels is the fixed five-level label vocabulary.
var canonicalSpiceLabels = map[string]int{
	"none":        0,
	"low":         1,
	"low-medium":  2,
	"medium":      3,
	"medium-high": 4,
	"high":        5,
}

// ParseSpice converts a heterogeneous spice value into a level in [0,5].
//
// Numbers are rounded and clamped. Strings are matched against the words
// "high", "medium" and "low" in that order, so "Medium-High" yields 5;
// otherwise the first run of digits is used. Anything else yields 0.
func ParseSpice(raw any) int {
	switch v := raw.(type) {
	case nil:
		return 0
	case int:
		return clampSpice(v)
	case int8:
		return clampSpice(int(v))
	case int16:
		return clampSpice(int(v))
	case int32:
		return clampSpice(int(v))
	case int64:
		return clampSpiceFloat(float64(v))
	case uint:
		return clampSpiceFloat(float64(v))
	case uint8:
		return clampSpice(int(v))
	case uint16:
		return clampSpice(int(v))
	case uint32:
		return clampSpiceFloat(float64(v))
	case uint64:
		return clampSpiceFloat(float64(v))
	case float32:
		return clampSpiceFloat(float64(v))
	case float64:
		return clampSpiceFloat(v)
	case json.Number:
		if f, err := v.Float64(); err == nil {
			return clampSpiceFloat(f)
		}
		return parseSpiceString(v.String())
	case string:
		return parseSpiceString(v)
	case bool:
		return 0
	}
	return 0
}

// LookupSpiceLabel maps a label from the fixed five-level vocabulary
// (none, low, low-medium, medium, medium-high, high) to its level.
// Unlike ParseSpice, "Medium-High" maps to 4.
func LookupSpiceLabel(label string) (int, bool) {
	key := strings.ToLower(strings.TrimSpace(label))
	key = strings.TrimSpace(strings.TrimPrefix(key, "spice"))
	key = strings.Join(strings.Fields(strings.ReplaceAll(key, "/", "-")), "-")
	level, ok := canonicalSpiceLabels[key]
	return level, ok
}

func parseSpiceString(s string) int {
	v := strings.ToLower(strings.TrimSpace(s))
	if v == "" {
		return 0
	}

	switch {
	case spiceWordHigh.MatchString(v):
		return 5
	case spiceWordMedium.MatchString(v):
		return 3
	case spiceWordLow.MatchString(v):
		return 1
	}

	m := firstDigits.FindString(v)
	if m == "" {
		return 0
	}
	n, err := strconv.Atoi(m)
	if err != nil {
		// Overflowing digit runs are still "very spicy".
		return MaxSpice
	}
	return clampSpice(n)
}

func clampSpiceFloat(f float64) int {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	if f >= MaxSpice {
		return MaxSpice
	}
	if f <= MinSpice {
		return MinSpice
	}
	return clampSpice(int(math.Round(f)))
}

func clampSpice(n int) int {
	return max(MinSpice, min(MaxSpice, n))
}
