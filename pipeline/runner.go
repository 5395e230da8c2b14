package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/toolink/throttle/record"
)

// FilterFactory builds the filter chain for one worker. Each worker gets
// its own chain so per-group state stays worker-local; rate limiting under
// multiple workers is therefore per worker, not globally exact.
type FilterFactory func(workerID int) ([]Filter, error)

type runnerOptions struct {
	workers    int
	bufferSize int
	clock      func() time.Time
	stages     *StageManager
}

func defaultRunnerOptions() runnerOptions {
	return runnerOptions{
		workers:    1,
		bufferSize: 128,
		clock:      time.Now,
	}
}

// RunnerOption configures a Runner.
type RunnerOption func(*runnerOptions)

// WithWorkers sets the number of worker goroutines. Defaults to 1.
func WithWorkers(n int) RunnerOption {
	return func(o *runnerOptions) {
		if n > 0 {
			o.workers = n
		}
	}
}

// WithBufferSize sets the buffer between the source reader and the workers.
// Defaults to 128.
func WithBufferSize(size int) RunnerOption {
	return func(o *runnerOptions) {
		if size > 0 {
			o.bufferSize = size
		}
	}
}

// WithClock overrides the per-record clock. Intended for tests.
func WithClock(clock func() time.Time) RunnerOption {
	return func(o *runnerOptions) {
		if clock != nil {
			o.clock = clock
		}
	}
}

// WithStageManager registers every Stage-implementing filter with the given
// manager; the runner then drives LoadAll before processing and ShutdownAll
// after.
func WithStageManager(m *StageManager) RunnerOption {
	return func(o *runnerOptions) { o.stages = m }
}

// Runner pumps records from a source through per-worker filter chains into
// a sink.
type Runner struct {
	id         string
	source     Source
	sink       Sink
	newFilters FilterFactory
	opts       runnerOptions

	processed  int64
	suppressed int64
	countMu    sync.Mutex
}

// NewRunner assembles a runner. The factory is invoked once per worker when
// Run starts.
func NewRunner(source Source, sink Sink, factory FilterFactory, opts ...RunnerOption) *Runner {
	cfg := defaultRunnerOptions()
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Runner{
		id:         uuid.NewString(),
		source:     source,
		sink:       sink,
		newFilters: factory,
		opts:       cfg,
	}
}

// Run processes records until the source is exhausted or the context is
// canceled. It builds the per-worker filter chains, loads registered
// stages, runs the dispatch loop, and shuts the stages down again.
func (r *Runner) Run(ctx context.Context) error {
	chains := make([][]Filter, r.opts.workers)
	for i := range chains {
		filters, err := r.newFilters(i)
		if err != nil {
			return fmt.Errorf("pipeline: building filter chain for worker %d: %w", i, err)
		}
		chains[i] = filters
	}

	if r.opts.stages != nil {
		for _, chain := range chains {
			for _, f := range chain {
				if s, ok := f.(Stage); ok {
					if err := r.opts.stages.Register(s); err != nil && !errors.Is(err, ErrStageAlreadyRegistered) {
						return err
					}
				}
			}
		}
		if err := r.opts.stages.LoadAll(); err != nil {
			return err
		}
		defer func() {
			if err := r.opts.stages.ShutdownAll(); err != nil {
				log.Error().Err(err).Msg("stage shutdown reported errors")
			}
		}()
	}

	log.Info().
		Str("run_id", r.id).
		Str("source", r.source.Name()).
		Str("sink", r.sink.Name()).
		Int("workers", r.opts.workers).
		Msg("pipeline started")

	records := make(chan record.Record, r.opts.bufferSize)
	var readErr error

	go func() {
		defer close(records)
		for {
			rec, err := r.source.Receive(ctx)
			if err != nil {
				if !errors.Is(err, io.EOF) && !errors.Is(err, context.Canceled) {
					readErr = err
				}
				return
			}
			select {
			case records <- rec:
			case <-ctx.Done():
				return
			}
		}
	}()

	var wg sync.WaitGroup
	for i := 0; i < r.opts.workers; i++ {
		wg.Add(1)
		go func(workerID int, filters []Filter) {
			defer wg.Done()
			r.work(ctx, workerID, filters, records)
		}(i, chains[i])
	}
	wg.Wait()

	log.Info().
		Str("run_id", r.id).
		Int64("processed", r.processed).
		Int64("suppressed", r.suppressed).
		Msg("pipeline stopped")

	if readErr != nil {
		return fmt.Errorf("pipeline: source %s: %w", r.source.Name(), readErr)
	}
	return ctx.Err()
}

func (r *Runner) work(ctx context.Context, workerID int, filters []Filter, records <-chan record.Record) {
	for rec := range records {
		now := r.opts.clock()

		dropped := false
		for _, f := range filters {
			rec = f.Process(rec, now)
			if rec == nil {
				dropped = true
				break
			}
		}

		r.countMu.Lock()
		r.processed++
		if dropped {
			r.suppressed++
		}
		r.countMu.Unlock()

		if dropped {
			continue
		}
		if err := r.sink.Emit(ctx, rec); err != nil {
			log.Error().Int("worker", workerID).Err(err).Msg("failed to emit record")
		}
	}
}
