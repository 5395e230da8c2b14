package throttle

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseConfigDefaults(t *testing.T) {
	cfg, err := ParseConfig(nil)
	require.NoError(t, err)

	assert.Equal(t, []string{DefaultGroupKey}, cfg.GroupKey)
	assert.Equal(t, DefaultBucketPeriodS, cfg.GroupBucketPeriodS)
	assert.Equal(t, DefaultBucketLimit, cfg.GroupBucketLimit)
	assert.True(t, cfg.GroupDropLogs)
	assert.Equal(t, DefaultWarningDelayS, cfg.GroupWarningDelayS)
	assert.False(t, cfg.GroupEmitMetrics)
	assert.Equal(t, DefaultMaxGroups, cfg.GroupMaxGroups)

	// 6000 records per 60s resolves to 100/s, which is also the default
	// reset threshold.
	assert.Equal(t, 100, cfg.RateLimit())
	assert.Equal(t, 100, cfg.ResetRate())
}

func TestParseConfigOverrides(t *testing.T) {
	cfg, err := ParseConfig(map[string]any{
		"group_key":             []string{"a.b", "c"},
		"group_bucket_period_s": 10,
		"group_bucket_limit":    50,
		"group_drop_logs":       false,
		"group_reset_rate_s":    -1,
		"group_warning_delay_s": 30,
	})
	require.NoError(t, err)

	assert.Equal(t, [][]string{{"a", "b"}, {"c"}}, cfg.keyPaths)
	assert.Equal(t, 5, cfg.RateLimit())
	assert.Equal(t, -1, cfg.ResetRate())
	assert.False(t, cfg.GroupDropLogs)
}

func TestParseConfigRejectsUnknownOption(t *testing.T) {
	_, err := ParseConfig(map[string]any{"group_bucket_limitt": 10})
	assert.Error(t, err)
}

func TestValidateRanges(t *testing.T) {
	cases := []struct {
		name    string
		params  map[string]any
		wantErr error
	}{
		{"zero period", map[string]any{"group_bucket_period_s": 0}, ErrInvalidPeriod},
		{"negative period", map[string]any{"group_bucket_period_s": -5}, ErrInvalidPeriod},
		{"zero limit", map[string]any{"group_bucket_limit": 0}, ErrInvalidBucketLimit},
		{"zero warning delay", map[string]any{"group_warning_delay_s": 0}, ErrInvalidWarnDelay},
		{"empty group key", map[string]any{"group_key": []string{}}, ErrEmptyGroupKey},
		{"zero max groups", map[string]any{"group_max_groups": 0}, ErrInvalidMaxGroups},
		{"reset below -1", map[string]any{"group_reset_rate_s": -2}, ErrInvalidResetRate},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ParseConfig(tc.params)
			assert.ErrorIs(t, err, tc.wantErr)
		})
	}
}

func TestResetRateCappedByRateLimit(t *testing.T) {
	// 120 per 60s is 2/s; a reset threshold above that is unreachable.
	_, err := ParseConfig(map[string]any{
		"group_bucket_period_s": 60,
		"group_bucket_limit":    120,
		"group_reset_rate_s":    3,
	})
	assert.ErrorIs(t, err, ErrInvalidResetRate)

	cfg, err := ParseConfig(map[string]any{
		"group_bucket_period_s": 60,
		"group_bucket_limit":    120,
		"group_reset_rate_s":    2,
	})
	require.NoError(t, err)
	assert.Equal(t, 2, cfg.ResetRate())
}
