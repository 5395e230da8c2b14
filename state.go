package throttle

import "time"

// groupStatus is the throttling state of a single group.
type groupStatus int

const (
	// groupNormal means the group is within its per-period budget.
	groupNormal groupStatus = iota
	// groupExceeded means the budget is exhausted and records are being
	// suppressed until the group recovers at a period boundary.
	groupExceeded
)

// groupState carries the per-group counters. It is a plain data record;
// all transitions live in the filter.
type groupState struct {
	// parts are the extracted key field values, one per configured path,
	// with absentValue standing in for missing fields. Kept for log and
	// metric label emission.
	parts []string

	// Instantaneous rate sample.
	rateCount     int
	rateLastReset time.Time
	approxRate    int

	// Period bucket accounting. bucketCount is only meaningful while the
	// status is groupNormal.
	status          groupStatus
	bucketCount     int
	bucketLastReset time.Time

	// lastWarning is the time of the last emitted warning; the zero value
	// means the group has never warned.
	lastWarning time.Time

	// rateCountLast is the baseline for metric increment deltas.
	rateCountLast int
}

// newGroupState initializes the state for a group first seen at now.
func newGroupState(parts []string, now time.Time, bucketLimit int) *groupState {
	return &groupState{
		parts:           parts,
		rateLastReset:   now,
		bucketLastReset: now,
		rateCountLast:   bucketLimit,
	}
}
