package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/google/gops/agent"
	"github.com/google/uuid"
	"github.com/urfave/cli/v2"

	records "github.com/iziplay/pubmed-records"
	routing "github.com/iziplay/pubmed-records/pkg/api"
	"github.com/iziplay/pubmed-records/pkg/config"
	"github.com/iziplay/pubmed-records/pkg/convert"
	"github.com/iziplay/pubmed-records/pkg/database"
	"github.com/iziplay/pubmed-records/pkg/report"
	"github.com/iziplay/pubmed-records/pkg/sink"
)

var version = "dev"

func getLogLevel(levelStr string) slog.Level {
	switch strings.ToLower(levelStr) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

var flags = []cli.Flag{
	&cli.StringFlag{Name: "config", Aliases: []string{"c"}, EnvVars: []string{"PUBMED_CONFIG"}, Usage: "YAML configuration file"},
	&cli.IntFlag{Name: "workers", Aliases: []string{"j"}, EnvVars: []string{"PUBMED_WORKERS"}, Usage: "archives converted in parallel (0: number of CPUs)"},
	&cli.StringFlag{Name: "format", EnvVars: []string{"PUBMED_FORMAT"}, Usage: "artifact format: msgpack or jsonl"},
	&cli.StringFlag{Name: "compress", EnvVars: []string{"PUBMED_COMPRESS"}, Usage: "artifact compression: none or snappy"},
	&cli.StringSliceFlag{Name: "pattern", Usage: "archive file name glob, repeatable"},
	&cli.BoolFlag{Name: "recursive", Aliases: []string{"r"}, Usage: "walk subdirectories of the input directory"},
	&cli.BoolFlag{Name: "skip-existing", Usage: "do not reconvert archives whose artifact exists"},
	&cli.BoolFlag{Name: "strict", Usage: "exit with status 1 if any archive failed"},
	&cli.StringFlag{Name: "listen", EnvVars: []string{"PUBMED_LISTEN"}, Usage: "serve the status API on this address during the run"},
	&cli.StringFlag{Name: "database-dsn", EnvVars: []string{"PUBMED_DATABASE_DSN"}, Usage: "record runs in this Postgres database"},
	&cli.StringFlag{Name: "log-level", EnvVars: []string{"LOG_LEVEL"}, Usage: "debug, info, warn or error"},
	&cli.BoolFlag{Name: "gops", Usage: "start the gops diagnostics agent"},
	&cli.StringFlag{Name: "region", EnvVars: []string{"AWS_REGION"}, Usage: "AWS region of s3:// destinations"},
}

func main() {
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: getLogLevel(os.Getenv("LOG_LEVEL"))})))

	if err := config.LoadEnvFiles(); err != nil {
		slog.Error("Failed to load environment file", "error", err)
		os.Exit(1)
	}

	app := &cli.App{
		Name:      "pubmed-records",
		Usage:     "convert PubMed XML archives into record artifacts",
		Version:   version,
		ArgsUsage: "<input-dir> <output-dir | s3://bucket/prefix>",
		Flags:     flags,
		Action:    run,
		Commands: []*cli.Command{
			{
				Name:      "inspect",
				Usage:     "print the records of an artifact as JSON lines",
				ArgsUsage: "<artifact>",
				Flags: []cli.Flag{
					&cli.IntFlag{Name: "limit", Aliases: []string{"n"}, Usage: "print at most this many records (0: all)"},
				},
				Action: inspect,
			},
			{
				Name:      "config",
				Usage:     "print the effective configuration",
				ArgsUsage: "[<input-dir> <output-dir>]",
				Flags:     flags,
				Action:    printConfig,
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		slog.Error("Failed", "error", err)
		os.Exit(1)
	}
}

// loadConfig layers the config file, the environment, flags and positional
// arguments, in increasing priority.
func loadConfig(c *cli.Context) (*config.Config, error) {
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return nil, err
	}
	cfg.ApplyEnv()

	if c.IsSet("workers") {
		cfg.Run.Workers = c.Int("workers")
	}
	if c.IsSet("format") {
		cfg.Output.Format = c.String("format")
	}
	if c.IsSet("compress") {
		cfg.Output.Compress = c.String("compress")
	}
	if c.IsSet("pattern") {
		cfg.Input.Patterns = c.StringSlice("pattern")
	}
	if c.IsSet("recursive") {
		cfg.Input.Recursive = c.Bool("recursive")
	}
	if c.IsSet("skip-existing") {
		cfg.Output.SkipExisting = c.Bool("skip-existing")
	}
	if c.IsSet("strict") {
		cfg.Run.Strict = c.Bool("strict")
	}
	if c.IsSet("listen") {
		cfg.Server.Listen = c.String("listen")
	}
	if c.IsSet("database-dsn") {
		cfg.Database.DSN = c.String("database-dsn")
	}
	if c.IsSet("log-level") {
		cfg.Logging.Level = c.String("log-level")
	}
	if c.IsSet("gops") {
		cfg.Diagnostics.Gops = c.Bool("gops")
	}
	if c.IsSet("region") {
		cfg.Output.Region = c.String("region")
	}

	if c.Args().Len() > 2 {
		return nil, fmt.Errorf("expected <input-dir> <output-dir>, got %d arguments", c.Args().Len())
	}
	if dir := c.Args().Get(0); dir != "" {
		cfg.Input.Dir = dir
	}
	if dest := c.Args().Get(1); dest != "" {
		cfg.Output.Dest = dest
	}

	if cfg.Database.DSN == "" {
		cfg.Database.DSN = database.DSNFromEnv()
	}

	return cfg, nil
}

func printConfig(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return cli.Exit(err, 1)
	}
	return cfg.Write(os.Stdout)
}

func run(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return cli.Exit(err, 1)
	}
	if err := cfg.Validate(); err != nil {
		return cli.Exit(fmt.Errorf("configuration validation failed: %w", err), 1)
	}

	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: getLogLevel(cfg.Logging.Level)})))

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.Diagnostics.Gops {
		if err := agent.Listen(agent.Options{}); err != nil {
			slog.Warn("Failed to start gops agent", "error", err)
		} else {
			defer agent.Close()
		}
	}

	shutdownTracing, err := setupTracing(ctx)
	if err != nil {
		return cli.Exit(fmt.Errorf("cannot set up tracing: %w", err), 1)
	}
	defer func() {
		if err := shutdownTracing(context.WithoutCancel(ctx)); err != nil {
			slog.Warn("Failed to flush traces", "error", err)
		}
	}()

	out, err := sink.New(cfg.Output.Dest, cfg.Output.Region)
	if err != nil {
		return cli.Exit(err, 1)
	}

	paths, err := convert.Discover(cfg.Input.Dir, cfg.Input.Patterns, cfg.Input.Recursive)
	if err != nil {
		return cli.Exit(err, 1)
	}
	if len(paths) == 0 {
		return cli.Exit(fmt.Sprintf("no archive matching %v in %s", cfg.Input.Patterns, cfg.Input.Dir), 1)
	}

	stats := convert.NewStats()
	converter := &convert.Converter{
		Sink:         out,
		Options:      cfg.ArtifactOptions(),
		Workers:      cfg.Run.Workers,
		SkipExisting: cfg.Output.SkipExisting,
		RunID:        uuid.NewString(),
		Processors:   []convert.Processor{stats},
	}

	apiOpts := routing.Options{Stats: stats, JWTSecret: cfg.Server.JWTSecret}
	if cfg.Database.DSN != "" {
		db, err := database.Connect(cfg.Database.DSN)
		if err != nil {
			return cli.Exit(err, 1)
		}
		converter.Processors = append(converter.Processors, database.NewManifest(db, cfg.Input.Dir, out.String()))
		apiOpts.DB = db
	}

	if cfg.Server.Listen != "" {
		serverCtx, stopServer := context.WithCancel(ctx)
		served := make(chan struct{})
		defer func() {
			stopServer()
			<-served
		}()

		handler := routing.NewHandler(apiOpts, cfg.Server.Listen, records.Readme, version)
		go func() {
			defer close(served)
			if err := routing.Serve(serverCtx, cfg.Server.Listen, handler); err != nil {
				slog.Error("Server failed", "error", err)
			}
		}()
	}

	results, summary := converter.Run(ctx, paths)

	if err := report.Write(os.Stdout, results, summary, report.UseColor(os.Stdout)); err != nil {
		slog.Warn("Failed to write report", "error", err)
	}

	if !summary.OK(cfg.Run.Strict) {
		return cli.Exit("conversion failed", 1)
	}
	return nil
}
