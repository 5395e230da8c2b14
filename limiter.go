package throttle

import (
	"math"
	"time"

	"github.com/rs/zerolog/log"
)

// updateRate maintains the group's instantaneous records-per-second sample.
// At most one sample is taken per second per group; the estimate is
// deliberately unsmoothed, so it is noisy but cheap and decays to zero as
// soon as a quiet second elapses.
func (f *Filter) updateRate(st *groupState, now time.Time) {
	st.rateCount++
	elapsed := now.Sub(st.rateLastReset)
	if elapsed < time.Second {
		return
	}
	st.approxRate = int(math.Round(float64(st.rateCount) / elapsed.Seconds()))
	st.rateCount = 0
	st.rateCountLast = f.cfg.GroupBucketLimit
	st.rateLastReset = now
}

// evictIdle inspects the single least recently touched group and drops it
// when it has been idle for more than two periods. Checking one candidate
// per record bounds the overhead; entries can outlive their idleness if the
// store never surfaces them as oldest, which is an accepted approximation.
func (f *Filter) evictIdle(now time.Time) {
	id, st, ok := f.store.oldest()
	if !ok {
		return
	}
	idle := now.Sub(st.rateLastReset)
	if idle <= 2*time.Duration(f.cfg.GroupBucketPeriodS)*time.Second {
		return
	}
	f.store.evict(id)
	log.Debug().
		Strs("group", displayParts(st.parts)).
		Dur("idle", idle).
		Msg("evicted idle group")
}

// decide runs the period/bucket state machine for one record and reports
// whether the record is within budget. All transitions happen here, on
// record arrival; periods with no records are skipped wholesale when the
// next record finally shows up.
func (f *Filter) decide(st *groupState, now time.Time) bool {
	periodS := int64(f.cfg.GroupBucketPeriodS)
	if now.Unix()/periodS > st.bucketLastReset.Unix()/periodS {
		// A period boundary has passed since the last reset.
		if st.status == groupExceeded && f.cfg.resetRate != -1 {
			if st.approxRate >= f.cfg.resetRate {
				// Still too hot to recover. The period anchor is left
				// untouched so the comparison repeats on the next record.
				f.notifyExceeded(st, now)
				return false
			}
			f.notifyRecovered(st, now)
		}
		st.status = groupNormal
		st.bucketCount = 0
		st.bucketLastReset = now
	} else if st.status == groupExceeded {
		f.notifyExceeded(st, now)
		return false
	}

	st.bucketCount++
	if st.bucketCount > f.cfg.GroupBucketLimit {
		f.notifyExceeded(st, now)
		st.status = groupExceeded
		st.bucketCount = 0
		return false
	}
	return true
}
