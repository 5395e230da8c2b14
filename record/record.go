// Package record defines the pipeline's record representation and helpers
// for navigating nested field paths.
package record

import "strings"

// Record is a single structured record flowing through the pipeline.
// Values may themselves be nested maps, as produced by JSON or YAML decoding.
type Record map[string]any

// SplitPath splits a dotted field path ("kubernetes.container_name") into
// its individual segments. Empty segments are preserved so that malformed
// paths fail lookup instead of silently matching.
func SplitPath(path string) []string {
	return strings.Split(path, ".")
}

// Dig navigates rec through the given path segments and returns the value
// found at the end of the path. Intermediate nodes may be Record,
// map[string]any or map[any]any, since decoders differ in the map shape
// they produce. A missing segment or a non-map intermediate yields
// (nil, false); absence is not an error.
func Dig(rec Record, path []string) (any, bool) {
	var cur any = rec
	for _, seg := range path {
		switch m := cur.(type) {
		case Record:
			v, ok := m[seg]
			if !ok {
				return nil, false
			}
			cur = v
		case map[string]any:
			v, ok := m[seg]
			if !ok {
				return nil, false
			}
			cur = v
		case map[any]any:
			v, ok := m[seg]
			if !ok {
				return nil, false
			}
			cur = v
		default:
			return nil, false
		}
	}
	return cur, true
}
