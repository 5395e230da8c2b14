package pipeline

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/toolink/throttle/record"
)

// maxLineBytes bounds a single NDJSON line. Log records larger than 1 MiB
// are rejected by the scanner.
const maxLineBytes = 1 << 20

// ReaderSource yields one record per NDJSON line read from r. Malformed
// lines are logged and skipped rather than failing the pipeline.
type ReaderSource struct {
	scanner *bufio.Scanner
}

// NewReaderSource wraps r (typically os.Stdin) as a record source.
func NewReaderSource(r io.Reader) *ReaderSource {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), maxLineBytes)
	return &ReaderSource{scanner: sc}
}

// Name identifies the source in logs.
func (s *ReaderSource) Name() string { return "stdin" }

// Receive returns the next decodable record, io.EOF at end of input.
func (s *ReaderSource) Receive(ctx context.Context) (record.Record, error) {
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if !s.scanner.Scan() {
			if err := s.scanner.Err(); err != nil {
				return nil, err
			}
			return nil, io.EOF
		}
		line := s.scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var rec record.Record
		if err := json.Unmarshal(line, &rec); err != nil {
			log.Warn().Err(err).Msg("skipping malformed input line")
			continue
		}
		return rec, nil
	}
}

// Close implements Source. The underlying reader is owned by the caller.
func (s *ReaderSource) Close() error { return nil }

// WriterSink emits records as NDJSON to w. Safe for concurrent Emit calls.
type WriterSink struct {
	mu  sync.Mutex
	enc *json.Encoder
}

// NewWriterSink wraps w (typically os.Stdout) as a record sink.
func NewWriterSink(w io.Writer) *WriterSink {
	return &WriterSink{enc: json.NewEncoder(w)}
}

// Name identifies the sink in logs.
func (s *WriterSink) Name() string { return "stdout" }

// Emit writes one record as a JSON line.
func (s *WriterSink) Emit(_ context.Context, rec record.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.enc.Encode(rec)
}

// Close implements Sink. The underlying writer is owned by the caller.
func (s *WriterSink) Close() error { return nil }
