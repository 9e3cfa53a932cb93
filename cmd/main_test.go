package main

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v2"

	"github.com/iziplay/pubmed-records/pkg/config"
)

func loadWithArgs(t *testing.T, args ...string) (*config.Config, error) {
	t.Helper()

	var (
		cfg     *config.Config
		loadErr error
	)
	app := &cli.App{
		Name:  "pubmed-records",
		Flags: flags,
		Action: func(c *cli.Context) error {
			cfg, loadErr = loadConfig(c)
			return nil
		},
	}
	require.NoError(t, app.Run(append([]string{"pubmed-records"}, args...)))
	return cfg, loadErr
}

func TestLoadConfigFlagsAndArguments(t *testing.T) {
	cfg, err := loadWithArgs(t,
		"--workers", "3",
		"--format", "jsonl",
		"--pattern", "*.xml", "--pattern", "*.gz",
		"--strict",
		"in", "out",
	)
	require.NoError(t, err)

	assert.Equal(t, 3, cfg.Run.Workers)
	assert.Equal(t, "jsonl", cfg.Output.Format)
	assert.Equal(t, "none", cfg.Output.Compress)
	assert.Equal(t, []string{"*.xml", "*.gz"}, cfg.Input.Patterns)
	assert.True(t, cfg.Run.Strict)
	assert.Equal(t, "in", cfg.Input.Dir)
	assert.Equal(t, "out", cfg.Output.Dest)
	assert.NoError(t, cfg.Validate())
}

func TestLoadConfigFileUnderFlags(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
input:
  dir: /data/baseline
output:
  dest: /data/records
  format: jsonl
run:
  workers: 5
`), 0o644))

	cfg, err := loadWithArgs(t, "--config", path, "--workers", "2", "", "elsewhere")
	require.NoError(t, err)

	assert.Equal(t, 2, cfg.Run.Workers)
	assert.Equal(t, "jsonl", cfg.Output.Format)
	assert.Equal(t, "/data/baseline", cfg.Input.Dir)
	assert.Equal(t, "elsewhere", cfg.Output.Dest)
}

func TestLoadConfigErrors(t *testing.T) {
	_, err := loadWithArgs(t, "a", "b", "c")
	assert.Error(t, err)

	_, err = loadWithArgs(t, "--config", filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestGetLogLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, getLogLevel("DEBUG"))
	assert.Equal(t, slog.LevelWarn, getLogLevel("warn"))
	assert.Equal(t, slog.LevelError, getLogLevel("error"))
	assert.Equal(t, slog.LevelInfo, getLogLevel(""))
	assert.Equal(t, slog.LevelInfo, getLogLevel("verbose"))
}
