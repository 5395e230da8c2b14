// Package metrics provides a small name-keyed counter registry on top of a
// prometheus Registerer. Counters are created lazily on first use and cached
// by name, so independent filter instances sharing one registry get the same
// collector back.
package metrics

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Registry caches counter vectors by metric name. Safe for concurrent use;
// one Registry is typically shared process-wide across pipeline workers.
type Registry struct {
	mu       sync.Mutex
	reg      prometheus.Registerer
	counters map[string]*prometheus.CounterVec
}

// NewRegistry wraps the given prometheus Registerer. The Registerer is an
// explicit handle rather than the package-level default so tests and
// embedders control the metric lifecycle.
func NewRegistry(reg prometheus.Registerer) *Registry {
	return &Registry{
		reg:      reg,
		counters: make(map[string]*prometheus.CounterVec),
	}
}

// Counter returns the counter vector registered under name, creating and
// registering it on first use. Callers asking for the same name must use
// the same label names; the underlying Registerer enforces this.
func (r *Registry) Counter(name, help string, labelNames []string) (*prometheus.CounterVec, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if c, ok := r.counters[name]; ok {
		return c, nil
	}

	c := prometheus.NewCounterVec(prometheus.CounterOpts{Name: name, Help: help}, labelNames)
	if err := r.reg.Register(c); err != nil {
		var already prometheus.AlreadyRegisteredError
		if errors.As(err, &already) {
			if existing, ok := already.ExistingCollector.(*prometheus.CounterVec); ok {
				r.counters[name] = existing
				return existing, nil
			}
		}
		return nil, fmt.Errorf("metrics: registering counter %q: %w", name, err)
	}
	r.counters[name] = c
	return c, nil
}

// SanitizeLabelName rewrites s into a valid prometheus label identifier:
// every character outside [a-zA-Z0-9_] becomes an underscore, and a leading
// digit is prefixed.
func SanitizeLabelName(s string) string {
	if s == "" {
		return "_"
	}
	b := []byte(s)
	for i, c := range b {
		valid := c == '_' ||
			(c >= 'a' && c <= 'z') ||
			(c >= 'A' && c <= 'Z') ||
			(c >= '0' && c <= '9')
		if !valid {
			b[i] = '_'
		}
	}
	if b[0] >= '0' && b[0] <= '9' {
		return "_" + string(b)
	}
	return string(b)
}

// SortedKeys returns the map's keys in sorted order, for deterministic
// label ordering.
func SortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
