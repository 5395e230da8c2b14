// Package labels resolves the static label set attached to emitted metrics.
// Label values may contain ${hostname} and ${worker_id} placeholders; they
// are expanded exactly once, at startup, so steady-state label emission is a
// plain map lookup.
package labels

import (
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/google/uuid"
)

// Recognized placeholder names.
const (
	PlaceholderHostname = "hostname"
	PlaceholderWorkerID = "worker_id"
)

var placeholderPattern = regexp.MustCompile(`\$\{([^}]*)\}`)

// Resolve expands placeholders in every value of raw and returns the
// resolved copy. An unrecognized placeholder is an error: label values must
// be fully literal after startup.
func Resolve(raw map[string]string, workerID string) (map[string]string, error) {
	hostname, err := os.Hostname()
	if err != nil {
		return nil, fmt.Errorf("labels: resolving hostname: %w", err)
	}

	resolved := make(map[string]string, len(raw))
	for k, v := range raw {
		var badRef string
		bad := false
		v = placeholderPattern.ReplaceAllStringFunc(v, func(m string) string {
			name := strings.TrimSuffix(strings.TrimPrefix(m, "${"), "}")
			switch name {
			case PlaceholderHostname:
				return hostname
			case PlaceholderWorkerID:
				return workerID
			default:
				badRef = name
				bad = true
				return m
			}
		})
		if bad {
			return nil, fmt.Errorf("labels: unknown placeholder ${%s} in label %q", badRef, k)
		}
		resolved[k] = v
	}
	return resolved, nil
}

// DefaultWorkerID returns a short random worker identity for hosts that do
// not assign one.
func DefaultWorkerID() string {
	return uuid.NewString()[:8]
}
