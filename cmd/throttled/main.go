// Command throttled runs a record pipeline with a per-group throttle
// filter: records come in as NDJSON on stdin or from a Redis list, pass
// through the throttle, and leave the same way.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/alecthomas/kong"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/toolink/throttle"
	"github.com/toolink/throttle/labels"
	"github.com/toolink/throttle/metrics"
	"github.com/toolink/throttle/pipeline"
)

// CLI defines the command-line interface.
type CLI struct {
	Config        string `help:"Path to the pipeline configuration file." required:"" type:"existingfile"`
	LogLevel      string `help:"Log level." default:"info" enum:"trace,debug,info,warn,error"`
	LogFormat     string `help:"Log output format." default:"console" enum:"console,json"`
	MetricsListen string `help:"Listen address for the Prometheus metrics endpoint (empty disables it)." default:""`
}

func main() {
	cli := CLI{}
	kctx := kong.Parse(&cli,
		kong.Name("throttled"),
		kong.Description("Per-group record throttle pipeline."),
		kong.UsageOnError(),
	)
	kctx.FatalIfErrorf(run(cli))
}

func run(cli CLI) error {
	setupLogger(cli.LogLevel, cli.LogFormat)

	cfg, err := loadConfig(cli.Config)
	if err != nil {
		return err
	}

	throttleCfg, err := throttle.ParseConfig(cfg.Throttle)
	if err != nil {
		return err
	}

	registry := prometheus.NewRegistry()
	metricsReg := metrics.NewRegistry(registry)
	if cli.MetricsListen != "" {
		serveMetrics(cli.MetricsListen, registry)
	}

	var rdb *redis.Client
	if cfg.Input.Type == endpointRedis || cfg.Output.Type == endpointRedis {
		rdb = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer rdb.Close()
	}

	source := newSource(cfg, rdb)
	sink := newSink(cfg, rdb)
	defer source.Close()
	defer sink.Close()

	factory := func(workerID int) ([]pipeline.Filter, error) {
		resolved, err := labels.Resolve(throttleCfg.Labels, strconv.Itoa(workerID))
		if err != nil {
			return nil, err
		}
		// Each worker decodes its own Config so derived state is not
		// shared between filter instances.
		workerCfg, err := throttle.ParseConfig(cfg.Throttle)
		if err != nil {
			return nil, err
		}
		f, err := throttle.New(workerCfg,
			throttle.WithMetrics(metricsReg),
			throttle.WithStaticLabels(resolved),
		)
		if err != nil {
			return nil, err
		}
		return []pipeline.Filter{f}, nil
	}

	runner := pipeline.NewRunner(source, sink, factory,
		pipeline.WithWorkers(cfg.Workers),
		pipeline.WithStageManager(pipeline.NewStageManager()),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := runner.Run(ctx); err != nil && ctx.Err() == nil {
		return err
	}
	return nil
}

func setupLogger(level, format string) {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		lvl = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(lvl)
	if format == "console" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	} else {
		log.Logger = zerolog.New(os.Stderr).With().Timestamp().Logger()
	}
}

func serveMetrics(addr string, registry *prometheus.Registry) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	go func() {
		log.Info().Str("addr", addr).Msg("metrics endpoint listening")
		if err := http.ListenAndServe(addr, mux); err != nil {
			log.Error().Err(err).Msg("metrics endpoint failed")
		}
	}()
}

func newSource(cfg fileConfig, rdb *redis.Client) pipeline.Source {
	if cfg.Input.Type == endpointRedis {
		return pipeline.NewRedisSource(rdb, cfg.Input.Topic)
	}
	return pipeline.NewReaderSource(os.Stdin)
}

func newSink(cfg fileConfig, rdb *redis.Client) pipeline.Sink {
	if cfg.Output.Type == endpointRedis {
		return pipeline.NewRedisSink(rdb, cfg.Output.Topic)
	}
	return pipeline.NewWriterSink(os.Stdout)
}
