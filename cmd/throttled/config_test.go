package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := loadConfig(writeConfig(t, "throttle:\n  group_bucket_limit: 100\n"))
	require.NoError(t, err)

	assert.Equal(t, 1, cfg.Workers)
	assert.Equal(t, endpointStdio, cfg.Input.Type)
	assert.Equal(t, endpointStdio, cfg.Output.Type)
	assert.Equal(t, 100, cfg.Throttle["group_bucket_limit"])
}

func TestLoadConfigRedisEndpoints(t *testing.T) {
	cfg, err := loadConfig(writeConfig(t, `
workers: 4
redis:
  addr: localhost:6379
input:
  type: redis
  topic: logs-in
output:
  type: redis
  topic: logs-out
`))
	require.NoError(t, err)
	assert.Equal(t, 4, cfg.Workers)
	assert.Equal(t, "logs-in", cfg.Input.Topic)
	assert.Equal(t, "logs-out", cfg.Output.Topic)
}

func TestLoadConfigRedisWithoutAddr(t *testing.T) {
	_, err := loadConfig(writeConfig(t, `
input:
  type: redis
  topic: logs-in
`))
	assert.ErrorIs(t, err, errRedisAddrRequired)
}

func TestLoadConfigRedisWithoutTopic(t *testing.T) {
	_, err := loadConfig(writeConfig(t, `
redis:
  addr: localhost:6379
output:
  type: redis
`))
	assert.Error(t, err)
}

func TestLoadConfigUnknownEndpointType(t *testing.T) {
	_, err := loadConfig(writeConfig(t, "input:\n  type: kafka\n"))
	assert.Error(t, err)
}

func TestLoadConfigInvalidWorkers(t *testing.T) {
	_, err := loadConfig(writeConfig(t, "workers: 0\n"))
	assert.Error(t, err)
}

func TestLoadConfigMissingFile(t *testing.T) {
	_, err := loadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}
