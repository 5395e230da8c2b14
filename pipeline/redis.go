package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/toolink/throttle/record"
)

type redisSourceOptions struct {
	blockTime time.Duration
}

// RedisSourceOption configures a RedisSource.
type RedisSourceOption func(*redisSourceOptions)

// WithBlockTime sets how long each BRPOP blocks waiting for a record.
// Defaults to 5 seconds.
func WithBlockTime(d time.Duration) RedisSourceOption {
	return func(o *redisSourceOptions) {
		if d > 0 {
			o.blockTime = d
		}
	}
}

// RedisSource pops JSON-encoded records from a Redis list. With several
// pipeline processes popping the same list, records are distributed between
// them; each record is delivered to exactly one process.
type RedisSource struct {
	rdb   redis.Cmdable
	topic string
	opts  redisSourceOptions
}

// NewRedisSource creates a source reading from the given list. It expects a
// pre-configured redis.Cmdable (e.g. redis.Client or redis.ClusterClient).
func NewRedisSource(rdb redis.Cmdable, topic string, opts ...RedisSourceOption) *RedisSource {
	cfg := redisSourceOptions{blockTime: 5 * time.Second}
	for _, opt := range opts {
		opt(&cfg)
	}
	return &RedisSource{rdb: rdb, topic: topic, opts: cfg}
}

// Name identifies the source in logs.
func (s *RedisSource) Name() string { return "redis:" + s.topic }

// Receive blocks on BRPOP until a record arrives or the context ends.
// Malformed payloads are logged and skipped.
func (s *RedisSource) Receive(ctx context.Context) (record.Record, error) {
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		result, err := s.rdb.BRPop(ctx, s.opts.blockTime, s.topic).Result()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				// BRPOP timed out with no message; block again.
				continue
			}
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return nil, context.Canceled
			}
			log.Error().Err(err).Str("topic", s.topic).Msg("error during brpop")
			select {
			case <-time.After(time.Second):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
			continue
		}

		// BRPOP returns []string{listName, value} on success.
		if len(result) != 2 {
			log.Error().Str("topic", s.topic).Strs("brpop_result", result).Msg("invalid result format from brpop")
			continue
		}

		var rec record.Record
		if err := json.Unmarshal([]byte(result[1]), &rec); err != nil {
			log.Warn().Err(err).Str("topic", s.topic).Msg("skipping malformed record payload")
			continue
		}
		return rec, nil
	}
}

// Close implements Source. The redis client is owned by the caller.
func (s *RedisSource) Close() error { return nil }

type redisSinkOptions struct {
	listMaxLen int64
}

// RedisSinkOption configures a RedisSink.
type RedisSinkOption func(*redisSinkOptions)

// WithListMaxLen sets the approximate maximum length of the output list.
// After each LPUSH the list is trimmed to the newest maxLen elements.
// 0 disables trimming.
func WithListMaxLen(maxLen int64) RedisSinkOption {
	return func(o *redisSinkOptions) {
		if maxLen >= 0 {
			o.listMaxLen = maxLen
		}
	}
}

// RedisSink pushes JSON-encoded records onto a Redis list.
type RedisSink struct {
	rdb   redis.Cmdable
	topic string
	opts  redisSinkOptions
}

// NewRedisSink creates a sink writing to the given list.
func NewRedisSink(rdb redis.Cmdable, topic string, opts ...RedisSinkOption) *RedisSink {
	cfg := redisSinkOptions{}
	for _, opt := range opts {
		opt(&cfg)
	}
	return &RedisSink{rdb: rdb, topic: topic, opts: cfg}
}

// Name identifies the sink in logs.
func (s *RedisSink) Name() string { return "redis:" + s.topic }

// Emit serializes the record and LPUSHes it, trimming the list when a
// maximum length is configured.
func (s *RedisSink) Emit(ctx context.Context, rec record.Record) error {
	payload, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("pipeline: serializing record: %w", err)
	}
	if err := s.rdb.LPush(ctx, s.topic, payload).Err(); err != nil {
		return fmt.Errorf("pipeline: lpush to %s: %w", s.topic, err)
	}
	if s.opts.listMaxLen > 0 {
		if err := s.rdb.LTrim(ctx, s.topic, 0, s.opts.listMaxLen-1).Err(); err != nil {
			log.Warn().Err(err).Str("topic", s.topic).Msg("failed to trim output list")
		}
	}
	return nil
}

// Close implements Sink. The redis client is owned by the caller.
func (s *RedisSink) Close() error { return nil }
