// Package pipeline provides the record-processing surface the throttle
// filter plugs into: sources that produce records, filters that transform
// or suppress them, sinks that emit them, and a runner that drives the
// per-record dispatch loop.
package pipeline

import (
	"context"
	"time"

	"github.com/toolink/throttle/record"
)

// Source produces records. Receive blocks until a record is available, the
// context is canceled, or the source is exhausted (io.EOF).
type Source interface {
	Name() string
	Receive(ctx context.Context) (record.Record, error)
	Close() error
}

// Sink consumes records. Emit must be safe for concurrent use when the
// runner is configured with more than one worker.
type Sink interface {
	Name() string
	Emit(ctx context.Context, rec record.Record) error
	Close() error
}

// Filter transforms a single record. Returning nil suppresses the record;
// suppression is a policy decision, not a failure, so there is no error
// return. The runner reads the clock once per record and passes the same
// instant to every filter in the chain.
type Filter interface {
	Name() string
	Process(rec record.Record, now time.Time) record.Record
}
