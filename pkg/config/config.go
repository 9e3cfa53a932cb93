// Package config provides configuration management for the converter.
package config

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/iziplay/pubmed-records/pkg/artifact"
)

// DefaultPath is read when no config file is given and it exists.
const DefaultPath = "pubmed-records.yaml"

// Configuration validation errors.
var (
	ErrMissingInput       = errors.New("input.dir is required")
	ErrMissingOutput      = errors.New("output.dest is required")
	ErrInvalidFormat      = errors.New("output.format must be 'msgpack' or 'jsonl'")
	ErrInvalidCompression = errors.New("output.compress must be 'none' or 'snappy'")
	ErrInvalidPattern     = errors.New("input.patterns contains an invalid glob")
	ErrInvalidWorkers     = errors.New("run.workers must be non-negative")
	ErrInvalidLogLevel    = errors.New("logging.level must be one of: debug, info, warn, error")
	ErrMissingRegion      = errors.New("output.region is required for s3 destinations")
)

// Config represents the complete converter configuration.
type Config struct {
	Input       InputConfig       `yaml:"input"`
	Output      OutputConfig      `yaml:"output"`
	Run         RunConfig         `yaml:"run"`
	Logging     LoggingConfig     `yaml:"logging"`
	Server      ServerConfig      `yaml:"server"`
	Database    DatabaseConfig    `yaml:"database"`
	Diagnostics DiagnosticsConfig `yaml:"diagnostics"`
}

// InputConfig selects the archives to convert.
type InputConfig struct {
	Dir       string   `yaml:"dir"`
	Patterns  []string `yaml:"patterns"`
	Recursive bool     `yaml:"recursive"`
}

// OutputConfig defines where and how artifacts are written. Dest is a local
// directory or an s3://bucket/prefix URL.
type OutputConfig struct {
	Dest         string `yaml:"dest"`
	Format       string `yaml:"format"`
	Compress     string `yaml:"compress"`
	SkipExisting bool   `yaml:"skip_existing"`
	Region       string `yaml:"region"`
}

// RunConfig controls the worker pool and exit status.
type RunConfig struct {
	Workers int  `yaml:"workers"`
	Strict  bool `yaml:"strict"`
}

type LoggingConfig struct {
	Level string `yaml:"level"`
}

// ServerConfig enables the status API when Listen is set.
type ServerConfig struct {
	Listen    string `yaml:"listen"`
	JWTSecret string `yaml:"jwt_secret"`
}

// DatabaseConfig enables the manifest when DSN is set.
type DatabaseConfig struct {
	DSN string `yaml:"dsn"`
}

type DiagnosticsConfig struct {
	Gops bool `yaml:"gops"`
}

// Default returns the configuration used when nothing overrides it.
func Default() *Config {
	return &Config{
		Input: InputConfig{
			Patterns: []string{"*.xml.gz", "*.xml.zst", "*.xml"},
		},
		Output: OutputConfig{
			Format:   string(artifact.FormatMsgpack),
			Compress: string(artifact.CompressionNone),
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// LoadConfig loads configuration from a YAML file on top of the defaults.
// It does not validate: flags and environment may still complete it.
func LoadConfig(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	return cfg, nil
}

// Load reads path, or DefaultPath when path is empty and that file exists,
// or else returns the defaults.
func Load(path string) (*Config, error) {
	if path != "" {
		return LoadConfig(path)
	}
	if _, err := os.Stat(DefaultPath); err == nil {
		return LoadConfig(DefaultPath)
	}
	return Default(), nil
}

// LoadEnvFiles loads variables from .env style files into the process
// environment without overriding variables that are already set. Missing
// files are ignored.
func LoadEnvFiles(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("failed to load %s: %w", p, err)
		}
	}
	return nil
}

// ApplyEnv fills settings that are only taken from the environment.
func (c *Config) ApplyEnv() {
	if v := os.Getenv("PUBMED_JWT_SECRET"); v != "" {
		c.Server.JWTSecret = v
	}
	if c.Output.Region == "" {
		c.Output.Region = os.Getenv("AWS_REGION")
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Input.Dir == "" {
		return ErrMissingInput
	}

	if c.Output.Dest == "" {
		return ErrMissingOutput
	}

	if _, err := artifact.ParseFormat(c.Output.Format); err != nil {
		return ErrInvalidFormat
	}

	if _, err := artifact.ParseCompression(c.Output.Compress); err != nil {
		return ErrInvalidCompression
	}

	for _, p := range c.Input.Patterns {
		if _, err := filepath.Match(p, "x"); err != nil {
			return fmt.Errorf("%w: %q", ErrInvalidPattern, p)
		}
	}

	if c.Run.Workers < 0 {
		return ErrInvalidWorkers
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[strings.ToLower(c.Logging.Level)] {
		return ErrInvalidLogLevel
	}

	if strings.HasPrefix(c.Output.Dest, "s3://") && c.Output.Region == "" {
		return ErrMissingRegion
	}

	return nil
}

// ArtifactOptions returns the artifact encoding selected by the output
// settings. Call it on a validated configuration.
func (c *Config) ArtifactOptions() artifact.Options {
	format, _ := artifact.ParseFormat(c.Output.Format)
	compression, _ := artifact.ParseCompression(c.Output.Compress)
	return artifact.Options{Format: format, Compression: compression}
}

// Write dumps the configuration as YAML, with the JWT secret masked.
func (c *Config) Write(w io.Writer) error {
	masked := *c
	if masked.Server.JWTSecret != "" {
		masked.Server.JWTSecret = "********"
	}

	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(&masked); err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	return enc.Close()
}
