// Package throttle implements a per-group rate limiter for pipeline
// records. Records are grouped by a key extracted from configured fields;
// each group gets a fixed per-period budget of records, and a group that
// exhausts its budget is throttled until it recovers at a period boundary.
// Recovery can be gated on the group's observed rate falling below a
// threshold (hysteresis), which prevents flapping for groups that keep
// logging at full tilt.
//
// All timing decisions are driven by record arrival: there is no background
// timer, so an idle group does not reset until its next record arrives.
// That is intended behavior, not an oversight.
package throttle

import (
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog/log"

	"github.com/toolink/throttle/metrics"
	"github.com/toolink/throttle/record"
)

// ExceededCounterName is the metric counting records observed while a group
// was over its rate limit.
const ExceededCounterName = "throttle_rate_limit_exceeded"

// ErrMetricsRegistryRequired is returned by New when group_emit_metrics is
// set but no metrics registry was provided.
var ErrMetricsRegistryRequired = errors.New("throttle: group_emit_metrics is set but no metrics registry was provided")

// Filter is one throttle instance: a group store plus the bucket state
// machine. A Filter is not safe for concurrent use; under a multi-worker
// pipeline each worker owns its own Filter, so throttling is per worker
// rather than globally exact.
type Filter struct {
	cfg   *Config
	store *groupStore

	counter     *prometheus.CounterVec
	labelValues []string // static label values, ordered as the counter's label names
}

type options struct {
	registry     *metrics.Registry
	staticLabels map[string]string
}

// Option configures a Filter.
type Option func(*options)

// WithMetrics provides the counter registry used when group_emit_metrics is
// enabled. The registry may be shared across filter instances.
func WithMetrics(reg *metrics.Registry) Option {
	return func(o *options) { o.registry = reg }
}

// WithStaticLabels attaches resolved static labels to emitted metrics.
// Placeholder expansion is the caller's job (see the labels package).
func WithStaticLabels(lbls map[string]string) Option {
	return func(o *options) { o.staticLabels = lbls }
}

// New creates a Filter from a validated Config. Configuration problems are
// fatal: an invalid Config never yields a partially working filter.
func New(cfg *Config, opts ...Option) (*Filter, error) {
	if err := cfg.ValidateAndPrepare(); err != nil {
		return nil, err
	}

	var o options
	for _, opt := range opts {
		opt(&o)
	}

	store, err := newGroupStore(cfg.GroupMaxGroups, cfg.GroupBucketLimit)
	if err != nil {
		return nil, fmt.Errorf("throttle: creating group store: %w", err)
	}

	f := &Filter{cfg: cfg, store: store}

	if cfg.GroupEmitMetrics {
		if o.registry == nil {
			return nil, ErrMetricsRegistryRequired
		}
		if err := f.initCounter(o.registry, o.staticLabels); err != nil {
			return nil, err
		}
	}
	return f, nil
}

// initCounter builds the exceeded counter: static labels first, then one
// label per configured key field, names sanitized to valid identifiers.
func (f *Filter) initCounter(reg *metrics.Registry, static map[string]string) error {
	names := make([]string, 0, len(static)+len(f.cfg.GroupKey))
	values := make([]string, 0, len(static))
	for _, k := range metrics.SortedKeys(static) {
		names = append(names, metrics.SanitizeLabelName(k))
		values = append(values, static[k])
	}
	for _, path := range f.cfg.GroupKey {
		names = append(names, metrics.SanitizeLabelName(path))
	}

	counter, err := reg.Counter(
		ExceededCounterName,
		"Records observed for a group while its rate limit was exceeded.",
		names,
	)
	if err != nil {
		return fmt.Errorf("throttle: registering exceeded counter: %w", err)
	}
	f.counter = counter
	f.labelValues = values
	return nil
}

// Name identifies the filter within the hosting pipeline.
func (f *Filter) Name() string { return "throttle" }

// Load is the pipeline lifecycle hook. The filter has no external resources
// to acquire; it just announces its effective configuration.
func (f *Filter) Load() error {
	log.Info().
		Strs("group_key", f.cfg.GroupKey).
		Int("bucket_period_s", f.cfg.GroupBucketPeriodS).
		Int("bucket_limit", f.cfg.GroupBucketLimit).
		Int("rate_limit", f.cfg.rateLimit).
		Int("reset_rate_s", f.cfg.resetRate).
		Bool("drop_logs", f.cfg.GroupDropLogs).
		Msg("throttle filter loaded")
	return nil
}

// Shutdown is the pipeline lifecycle hook.
func (f *Filter) Shutdown() error {
	log.Info().Int("tracked_groups", f.store.size()).Msg("throttle filter shut down")
	return nil
}

// Process decides the fate of one record at the given instant. It returns
// the record to emit downstream, or nil when the record is suppressed. The
// caller supplies now once per record so that every timing decision within
// the call sees the same clock reading.
func (f *Filter) Process(rec record.Record, now time.Time) record.Record {
	key := extractKey(rec, f.cfg.keyPaths)
	st := f.store.touch(key, now)

	f.updateRate(st, now)
	f.evictIdle(now)

	if f.decide(st, now) {
		return rec
	}
	if f.cfg.GroupDropLogs {
		return nil
	}
	// Observe-only mode: the record was flagged (warning and metric side
	// effects already fired) but still passes through unchanged.
	return rec
}

// ProcessNow reads the wall clock once and delegates to Process.
func (f *Filter) ProcessNow(rec record.Record) record.Record {
	return f.Process(rec, time.Now())
}
