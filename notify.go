package throttle

import (
	"math"
	"time"

	"github.com/rs/zerolog/log"
)

// notifyExceeded handles the side effects of a "rate exceeded" event: a
// warning log, throttled to one per group per warning delay, and an
// optional counter increment, which is not subject to the delay.
func (f *Filter) notifyExceeded(st *groupState, now time.Time) {
	f.emitMetric(st)

	if !st.lastWarning.IsZero() && now.Sub(st.lastWarning) < time.Duration(f.cfg.GroupWarningDelayS)*time.Second {
		return
	}
	st.lastWarning = now

	log.Warn().
		Strs("group", displayParts(st.parts)).
		Int("rate_s", f.currentRate(st, now)).
		Int("period_s", f.cfg.GroupBucketPeriodS).
		Int("limit", f.cfg.GroupBucketLimit).
		Int("rate_limit_s", f.cfg.rateLimit).
		Int("reset_rate_s", f.cfg.resetRate).
		Msg("rate exceeded")
}

// notifyRecovered announces that a throttled group's observed rate fell
// back below the reset threshold. Always emitted, never delayed.
func (f *Filter) notifyRecovered(st *groupState, now time.Time) {
	log.Info().
		Strs("group", displayParts(st.parts)).
		Int("rate_s", f.currentRate(st, now)).
		Int("reset_rate_s", f.cfg.resetRate).
		Msg("rate back down")
}

// currentRate reports the group's records-per-second for notifications: the
// larger of the sampled rate and the current period's own rate. When the
// period just started and no sample exists yet the rate is unknowable and
// reported as -1.
func (f *Filter) currentRate(st *groupState, now time.Time) int {
	elapsed := now.Sub(st.bucketLastReset)
	if elapsed <= 0 {
		if st.approxRate > 0 {
			return st.approxRate
		}
		return -1
	}
	rate := float64(st.approxRate)
	if periodRate := float64(st.bucketCount) / elapsed.Seconds(); periodRate > rate {
		rate = periodRate
	}
	return int(math.Round(rate))
}

// emitMetric increments the exceeded counter by the number of records seen
// since the previous exceeded event, labeled with the static labels plus
// the group's key fields. The rateCount baseline mixes two reset cadences,
// so the delta is an approximation of the suppressed volume; a negative
// delta (baseline ahead of a freshly sampled rateCount) is skipped, since
// counters only go up.
func (f *Filter) emitMetric(st *groupState) {
	if f.counter == nil {
		return
	}
	delta := st.rateCount - st.rateCountLast
	st.rateCountLast = st.rateCount
	if delta <= 0 {
		return
	}
	values := append(append([]string{}, f.labelValues...), labelParts(st.parts)...)
	f.counter.WithLabelValues(values...).Add(float64(delta))
}
