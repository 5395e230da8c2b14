package throttle

import (
	"fmt"
	"strings"

	"github.com/toolink/throttle/record"
)

const (
	// keySeparator joins the extracted field values into the store key.
	// A value containing the separator byte could collide with another
	// tuple; the unit-separator control byte makes that vanishingly
	// unlikely for log data. Keeping it simple here.
	keySeparator = "\x1f"

	// absentValue marks a field path that did not resolve in the record.
	// It is distinct from the empty string so that {"a": ""} and {} group
	// separately.
	absentValue = "\x1e"
)

// groupKey is the grouping identity of a record: the encoded store key plus
// the individual extracted values for log and metric emission.
type groupKey struct {
	id    string
	parts []string
}

// extractKey derives the group key from a record by navigating each
// configured field path. Missing fields become absent markers rather than
// errors; absence is part of the key.
func extractKey(rec record.Record, keyPaths [][]string) groupKey {
	parts := make([]string, len(keyPaths))
	for i, path := range keyPaths {
		if v, ok := record.Dig(rec, path); ok {
			parts[i] = fmt.Sprintf("%v", v)
		} else {
			parts[i] = absentValue
		}
	}
	return groupKey{id: strings.Join(parts, keySeparator), parts: parts}
}

// displayParts renders the extracted values for human-facing output, with
// absent fields shown as "(missing)".
func displayParts(parts []string) []string {
	out := make([]string, len(parts))
	for i, p := range parts {
		if p == absentValue {
			out[i] = "(missing)"
		} else {
			out[i] = p
		}
	}
	return out
}

// labelParts renders the extracted values for metric label emission, with
// absent fields mapped to the empty label value.
func labelParts(parts []string) []string {
	out := make([]string, len(parts))
	for i, p := range parts {
		if p != absentValue {
			out[i] = p
		}
	}
	return out
}
