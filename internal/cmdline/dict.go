// Package cmdline builds and renders flag dictionaries for external
// program invocations.
package cmdline

import (
	"fmt"
	"sort"
	"strings"
)

// Dict maps flag names to values. A value is a string, a bool, or nil
// meaning "omit this flag". Rendering iterates keys in sorted order so
// the resulting command line is deterministic.
type Dict map[string]any

// ParseError reports a malformed pair in an extra-args string.
type ParseError struct {
	Pair string
	Raw  string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("malformed extra arg %q in %q: each pair must contain exactly one '='", e.Pair, e.Raw)
}

// Parse converts a comma-separated list of name=value pairs into a Dict.
// Values "true" and "false" (case-insensitive) become booleans; everything
// else stays a string. An empty input yields an empty Dict.
func Parse(raw string) (Dict, error) {
	d := Dict{}
	if raw == "" {
		return d, nil
	}
	for _, pair := range strings.Split(raw, ",") {
		name, value, ok := strings.Cut(pair, "=")
		if !ok || strings.Contains(value, "=") {
			return nil, &ParseError{Pair: pair, Raw: raw}
		}
		switch strings.ToLower(value) {
		case "true":
			d[name] = true
		case "false":
			d[name] = false
		default:
			d[name] = value
		}
	}
	return d, nil
}

// Collision records an overlay replacing an existing value with a
// different one.
type Collision struct {
	Key string
	Old any
	New any
}

// Merge applies overlays to base in order and returns the combined Dict.
// The inputs are never modified. The overlay value always wins; a
// Collision is recorded for each key whose existing value is replaced by
// a different one.
func Merge(base Dict, overlays ...Dict) (Dict, []Collision) {
	merged := make(Dict, len(base))
	for k, v := range base {
		merged[k] = v
	}

	var collisions []Collision
	for _, overlay := range overlays {
		for _, k := range sortedKeys(overlay) {
			v := overlay[k]
			if old, exists := merged[k]; exists && old != v {
				collisions = append(collisions, Collision{Key: k, Old: old, New: v})
			}
			merged[k] = v
		}
	}
	return merged, collisions
}

func sortedKeys(d Dict) []string {
	keys := make([]string, 0, len(d))
	for k := range d {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
