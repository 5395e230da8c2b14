package throttle

import (
	"errors"
	"fmt"

	"github.com/mitchellh/mapstructure"

	"github.com/toolink/throttle/record"
)

// Defaults applied when an option is absent from the params map.
const (
	DefaultGroupKey      = "kubernetes.container_name"
	DefaultBucketPeriodS = 60
	DefaultBucketLimit   = 6000
	DefaultWarningDelayS = 10
	DefaultMaxGroups     = 100000
)

// Predefined errors for invalid configurations.
var (
	ErrEmptyGroupKey      = errors.New("throttle: group_key must contain at least one field path")
	ErrInvalidPeriod      = errors.New("throttle: group_bucket_period_s must be > 0")
	ErrInvalidBucketLimit = errors.New("throttle: group_bucket_limit must be > 0")
	ErrInvalidResetRate   = errors.New("throttle: group_reset_rate_s out of range")
	ErrInvalidWarnDelay   = errors.New("throttle: group_warning_delay_s must be >= 1")
	ErrInvalidMaxGroups   = errors.New("throttle: group_max_groups must be > 0")
)

// Config holds the throttle filter configuration. Field names follow the
// option names the hosting pipeline exposes, decoded from a generic params
// map via mapstructure.
type Config struct {
	// GroupKey is the ordered list of dotted field paths whose extracted
	// values form the grouping key.
	GroupKey []string `mapstructure:"group_key"`

	// GroupBucketPeriodS is the accounting period length in seconds.
	GroupBucketPeriodS int `mapstructure:"group_bucket_period_s"`

	// GroupBucketLimit is the maximum number of records a group may emit
	// per period before it is throttled.
	GroupBucketLimit int `mapstructure:"group_bucket_limit"`

	// GroupDropLogs selects between dropping throttled records (true) and
	// flagging them while still emitting them unchanged (false).
	GroupDropLogs bool `mapstructure:"group_drop_logs"`

	// GroupResetRateS is the hysteresis recovery threshold in records per
	// second. -1 disables hysteresis: the group recovers unconditionally at
	// the next period boundary. When unset it defaults to the group rate
	// limit (bucket limit / period).
	GroupResetRateS *int `mapstructure:"group_reset_rate_s"`

	// GroupWarningDelayS is the minimum number of seconds between repeated
	// "rate exceeded" warnings for the same group.
	GroupWarningDelayS int `mapstructure:"group_warning_delay_s"`

	// GroupEmitMetrics enables the rate-limit-exceeded counter.
	GroupEmitMetrics bool `mapstructure:"group_emit_metrics"`

	// GroupMaxGroups bounds the number of tracked groups. The least
	// recently seen group is discarded when the bound is reached.
	GroupMaxGroups int `mapstructure:"group_max_groups"`

	// Labels are static label key/value pairs attached to emitted metrics.
	// Values may contain ${hostname} and ${worker_id} placeholders, resolved
	// once at startup by the labels package.
	Labels map[string]string `mapstructure:"labels"`

	// Derived fields, populated by ValidateAndPrepare.
	keyPaths  [][]string
	rateLimit int
	resetRate int
}

// DefaultConfig returns a Config populated with the documented defaults.
func DefaultConfig() *Config {
	return &Config{
		GroupKey:           []string{DefaultGroupKey},
		GroupBucketPeriodS: DefaultBucketPeriodS,
		GroupBucketLimit:   DefaultBucketLimit,
		GroupDropLogs:      true,
		GroupWarningDelayS: DefaultWarningDelayS,
		GroupMaxGroups:     DefaultMaxGroups,
	}
}

// ParseConfig decodes the params map on top of the defaults and validates
// the result. Unknown option names are rejected.
func ParseConfig(params map[string]any) (*Config, error) {
	cfg := DefaultConfig()
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:      cfg,
		ErrorUnused: true,
	})
	if err != nil {
		return nil, fmt.Errorf("throttle: building config decoder: %w", err)
	}
	if err := dec.Decode(params); err != nil {
		return nil, fmt.Errorf("throttle: decoding config: %w", err)
	}
	if err := cfg.ValidateAndPrepare(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ValidateAndPrepare checks the configured values and computes the derived
// fields (pre-split key paths, rate limit, resolved reset rate). New calls
// it on the Config it is given; calling it again is harmless.
func (c *Config) ValidateAndPrepare() error {
	if len(c.GroupKey) == 0 {
		return ErrEmptyGroupKey
	}
	if c.GroupBucketPeriodS <= 0 {
		return fmt.Errorf("%w, got %d", ErrInvalidPeriod, c.GroupBucketPeriodS)
	}
	if c.GroupBucketLimit <= 0 {
		return fmt.Errorf("%w, got %d", ErrInvalidBucketLimit, c.GroupBucketLimit)
	}
	if c.GroupWarningDelayS < 1 {
		return fmt.Errorf("%w, got %d", ErrInvalidWarnDelay, c.GroupWarningDelayS)
	}
	if c.GroupMaxGroups <= 0 {
		return fmt.Errorf("%w, got %d", ErrInvalidMaxGroups, c.GroupMaxGroups)
	}

	c.rateLimit = c.GroupBucketLimit / c.GroupBucketPeriodS

	if c.GroupResetRateS == nil {
		c.resetRate = c.rateLimit
	} else {
		r := *c.GroupResetRateS
		if r < -1 || r > c.rateLimit {
			return fmt.Errorf("%w: got %d, want -1..%d", ErrInvalidResetRate, r, c.rateLimit)
		}
		c.resetRate = r
	}

	c.keyPaths = make([][]string, len(c.GroupKey))
	for i, path := range c.GroupKey {
		c.keyPaths[i] = record.SplitPath(path)
	}
	return nil
}

// RateLimit returns the derived per-second rate limit (bucket limit divided
// by the period length, truncated).
func (c *Config) RateLimit() int { return c.rateLimit }

// ResetRate returns the resolved hysteresis threshold, -1 when disabled.
func (c *Config) ResetRate() int { return c.resetRate }
