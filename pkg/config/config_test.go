package config

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iziplay/pubmed-records/pkg/artifact"
)

// Helper to create a temp config file.
func createTempConfigFile(t *testing.T, content string) string {
	t.Helper()
	configPath := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(configPath, []byte(content), 0o644))
	return configPath
}

const validConfigYAML = `
input:
  dir: /data/baseline
  patterns: ["pubmed*.xml.gz"]
  recursive: true
output:
  dest: /data/records
  format: jsonl
  compress: snappy
  skip_existing: true
run:
  workers: 4
  strict: true
logging:
  level: debug
server:
  listen: ":8080"
database:
  dsn: "host=localhost dbname=pubmed"
`

func TestLoadConfigValid(t *testing.T) {
	cfg, err := LoadConfig(createTempConfigFile(t, validConfigYAML))
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "/data/baseline", cfg.Input.Dir)
	assert.Equal(t, []string{"pubmed*.xml.gz"}, cfg.Input.Patterns)
	assert.True(t, cfg.Input.Recursive)
	assert.True(t, cfg.Output.SkipExisting)
	assert.Equal(t, 4, cfg.Run.Workers)
	assert.True(t, cfg.Run.Strict)
	assert.Equal(t, ":8080", cfg.Server.Listen)
	assert.Equal(t, artifact.Options{Format: artifact.FormatJSONL, Compression: artifact.CompressionSnappy}, cfg.ArtifactOptions())
}

func TestLoadConfigKeepsDefaults(t *testing.T) {
	cfg, err := LoadConfig(createTempConfigFile(t, "input:\n  dir: in\noutput:\n  dest: out\n"))
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, Default().Input.Patterns, cfg.Input.Patterns)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, artifact.Options{Format: artifact.FormatMsgpack, Compression: artifact.CompressionNone}, cfg.ArtifactOptions())
}

func TestLoadConfigErrors(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	_, err = LoadConfig(createTempConfigFile(t, "input: [not, a, map"))
	assert.Error(t, err)
}

func TestLoadWithoutPath(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)

	require.NoError(t, os.WriteFile(DefaultPath, []byte("run:\n  workers: 3\n"), 0o644))
	cfg, err = Load("")
	require.NoError(t, err)
	assert.Equal(t, 3, cfg.Run.Workers)
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		cfg := Default()
		cfg.Input.Dir = "in"
		cfg.Output.Dest = "out"
		return cfg
	}
	require.NoError(t, valid().Validate())

	for _, tc := range []struct {
		name   string
		mutate func(*Config)
		want   error
	}{
		{"missing input", func(c *Config) { c.Input.Dir = "" }, ErrMissingInput},
		{"missing output", func(c *Config) { c.Output.Dest = "" }, ErrMissingOutput},
		{"format", func(c *Config) { c.Output.Format = "pickle" }, ErrInvalidFormat},
		{"compression", func(c *Config) { c.Output.Compress = "gzip" }, ErrInvalidCompression},
		{"pattern", func(c *Config) { c.Input.Patterns = []string{"[oops"} }, ErrInvalidPattern},
		{"workers", func(c *Config) { c.Run.Workers = -1 }, ErrInvalidWorkers},
		{"log level", func(c *Config) { c.Logging.Level = "verbose" }, ErrInvalidLogLevel},
		{"s3 region", func(c *Config) { c.Output.Dest = "s3://bucket/prefix" }, ErrMissingRegion},
	} {
		t.Run(tc.name, func(t *testing.T) {
			cfg := valid()
			tc.mutate(cfg)
			assert.ErrorIs(t, cfg.Validate(), tc.want)
		})
	}
}

func TestApplyEnv(t *testing.T) {
	t.Setenv("PUBMED_JWT_SECRET", "secret")
	t.Setenv("AWS_REGION", "eu-west-1")

	cfg := Default()
	cfg.ApplyEnv()
	assert.Equal(t, "secret", cfg.Server.JWTSecret)
	assert.Equal(t, "eu-west-1", cfg.Output.Region)

	cfg = Default()
	cfg.Output.Region = "us-east-1"
	cfg.ApplyEnv()
	assert.Equal(t, "us-east-1", cfg.Output.Region)
}

func TestLoadEnvFiles(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.env")
	require.NoError(t, os.WriteFile(path, []byte("PUBMED_TEST_FROM_FILE=loaded\nPUBMED_TEST_PRESET=file\n"), 0o644))

	t.Setenv("PUBMED_TEST_PRESET", "env")
	t.Setenv("PUBMED_TEST_FROM_FILE", "")
	os.Unsetenv("PUBMED_TEST_FROM_FILE")

	require.NoError(t, LoadEnvFiles(path, filepath.Join(t.TempDir(), "missing.env")))
	assert.Equal(t, "loaded", os.Getenv("PUBMED_TEST_FROM_FILE"))
	assert.Equal(t, "env", os.Getenv("PUBMED_TEST_PRESET"))
}

func TestWriteMasksSecret(t *testing.T) {
	cfg := Default()
	cfg.Server.JWTSecret = "do-not-print"

	var buf bytes.Buffer
	require.NoError(t, cfg.Write(&buf))
	assert.NotContains(t, buf.String(), "do-not-print")
	assert.Contains(t, buf.String(), "********")
	assert.Equal(t, "do-not-print", cfg.Server.JWTSecret)
}
