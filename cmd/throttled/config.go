package main

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Endpoint kinds accepted for input and output.
const (
	endpointStdio = "stdio"
	endpointRedis = "redis"
)

var errRedisAddrRequired = errors.New("redis.addr is required when a redis endpoint is configured")

// fileConfig is the YAML pipeline configuration.
type fileConfig struct {
	// Workers is the number of pipeline workers; each worker owns an
	// independent throttle instance.
	Workers int `yaml:"workers"`

	Input  endpointConfig `yaml:"input"`
	Output endpointConfig `yaml:"output"`
	Redis  redisConfig    `yaml:"redis"`

	// Throttle holds the filter params, passed through untyped so the
	// throttle package owns option naming and validation.
	Throttle map[string]any `yaml:"throttle"`
}

type endpointConfig struct {
	Type  string `yaml:"type"`
	Topic string `yaml:"topic"`
}

type redisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

func defaultFileConfig() fileConfig {
	return fileConfig{
		Workers: 1,
		Input:   endpointConfig{Type: endpointStdio},
		Output:  endpointConfig{Type: endpointStdio},
	}
}

// loadConfig reads and validates the YAML pipeline configuration.
func loadConfig(path string) (fileConfig, error) {
	cfg := defaultFileConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("reading config file: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing config file: %w", err)
	}

	if cfg.Workers < 1 {
		return cfg, fmt.Errorf("workers must be >= 1, got %d", cfg.Workers)
	}
	for _, ep := range []struct {
		name string
		cfg  endpointConfig
	}{{"input", cfg.Input}, {"output", cfg.Output}} {
		switch ep.cfg.Type {
		case endpointStdio:
		case endpointRedis:
			if ep.cfg.Topic == "" {
				return cfg, fmt.Errorf("%s: topic is required for a redis endpoint", ep.name)
			}
			if cfg.Redis.Addr == "" {
				return cfg, fmt.Errorf("%s: %w", ep.name, errRedisAddrRequired)
			}
		default:
			return cfg, fmt.Errorf("%s: unknown endpoint type %q", ep.name, ep.cfg.Type)
		}
	}
	return cfg, nil
}
