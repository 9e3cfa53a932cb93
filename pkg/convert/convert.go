package convert

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"runtime"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/iziplay/pubmed-records/pkg/archive"
	"github.com/iziplay/pubmed-records/pkg/artifact"
	"github.com/iziplay/pubmed-records/pkg/pubmed"
	"github.com/iziplay/pubmed-records/pkg/sink"
)

var ErrDuplicateArtifact = errors.New("archives map to the same artifact")

var tracer = otel.Tracer("github.com/iziplay/pubmed-records/pkg/convert")

// FileResult represents the result of converting a single archive
type FileResult struct {
	Archive  string // input path
	Name     string // archive identity
	Artifact string
	Format   archive.Format
	Records  int
	Articles int
	Skipped  int
	Deleted  int
	Warnings []pubmed.FieldWarning
	Bytes    int64 // artifact size
	Existing bool  // artifact already present, archive not processed
	Duration time.Duration
	Err      error
}

// Processor observes a run. Callbacks for different archives may be invoked
// concurrently.
type Processor interface {
	Files(ctx context.Context, runID string, names []string)
	Progress(ctx context.Context, name string, percent float64)
	Done(ctx context.Context, result FileResult)
	Finish(ctx context.Context, runID string, summary Summary)
}

// Converter turns archives into artifacts, one independent task per archive.
type Converter struct {
	Sink         sink.Sink
	Options      artifact.Options
	Workers      int
	SkipExisting bool
	RunID        string
	Processors   []Processor

	// ProgressInterval is how often running archives report progress.
	ProgressInterval time.Duration
}

func (c *Converter) workers() int {
	if c.Workers > 0 {
		return c.Workers
	}
	return runtime.NumCPU()
}

func (c *Converter) progressInterval() time.Duration {
	if c.ProgressInterval > 0 {
		return c.ProgressInterval
	}
	return 2 * time.Second
}

// Run converts every archive in paths with a bounded worker pool. A failing
// archive never stops the others; its error is carried in its FileResult.
// Results are returned in the order of paths.
func (c *Converter) Run(ctx context.Context, paths []string) ([]FileResult, Summary) {
	started := time.Now()
	results := make([]FileResult, len(paths))

	var names []string
	var tasks []int
	seen := map[string]string{}
	for i, path := range paths {
		name := ArtifactName(path, c.Options)
		if prev, dup := seen[name]; dup {
			results[i] = FileResult{
				Archive:  path,
				Name:     archive.Identity(path),
				Artifact: name,
				Err:      fmt.Errorf("%w: %s and %s", ErrDuplicateArtifact, prev, path),
			}
			slog.Error("Skipping archive", "archive", path, "error", results[i].Err)
			continue
		}
		seen[name] = path
		names = append(names, archive.Identity(path))
		tasks = append(tasks, i)
	}

	for _, p := range c.Processors {
		p.Files(ctx, c.RunID, names)
	}

	slog.Info("Starting conversion", "run", c.RunID, "archives", len(tasks), "workers", c.workers(), "sink", c.Sink.String())

	var g errgroup.Group
	g.SetLimit(c.workers())
	for _, i := range tasks {
		g.Go(func() error {
			results[i] = c.convert(ctx, paths[i])
			for _, p := range c.Processors {
				p.Done(ctx, results[i])
			}
			return nil
		})
	}
	g.Wait()

	summary := Summarize(results)
	summary.Duration = time.Since(started)
	for _, p := range c.Processors {
		p.Finish(ctx, c.RunID, summary)
	}

	slog.Info("Conversion finished", "run", c.RunID, "converted", summary.Converted, "existing", summary.Existing,
		"failed", summary.Failed, "records", summary.Records, "skipped", summary.Skipped, "duration", summary.Duration)

	return results, summary
}

func (c *Converter) progress(ctx context.Context, name string, percent float64) {
	for _, p := range c.Processors {
		p.Progress(ctx, name, percent)
	}
}

// watch reports the share of the compressed input consumed so far until the
// returned stop function is called.
func (c *Converter) watch(ctx context.Context, name string, r *archive.Reader, size int64) (stop func()) {
	done := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		ticker := time.NewTicker(c.progressInterval())
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				if size > 0 {
					c.progress(ctx, name, float64(r.Consumed())/float64(size)*100)
				}
			}
		}
	}()

	return func() {
		close(done)
		wg.Wait()
	}
}

// convert runs decode, extract, encode and write for one archive. Nothing is
// written unless every step succeeded.
func (c *Converter) convert(ctx context.Context, path string) (result FileResult) {
	start := time.Now()
	result = FileResult{
		Archive:  path,
		Name:     archive.Identity(path),
		Artifact: ArtifactName(path, c.Options),
		Warnings: []pubmed.FieldWarning{},
	}

	ctx, span := tracer.Start(ctx, "convert archive", trace.WithAttributes(
		attribute.String("archive.name", result.Name),
		attribute.String("archive.path", path),
	))
	defer func() {
		result.Duration = time.Since(start)
		span.SetAttributes(
			attribute.Int("archive.records", result.Records),
			attribute.Int("archive.skipped", result.Skipped),
			attribute.Int("archive.warnings", len(result.Warnings)),
			attribute.Bool("archive.existing", result.Existing),
		)
		if result.Err != nil {
			span.RecordError(result.Err)
			span.SetStatus(codes.Error, result.Err.Error())
		}
		span.End()
	}()

	if err := ctx.Err(); err != nil {
		result.Err = err
		return result
	}

	if c.SkipExisting {
		exists, err := c.Sink.Exists(ctx, result.Artifact)
		if err != nil {
			result.Err = fmt.Errorf("cannot check existing artifact: %w", err)
			return result
		}
		if exists {
			slog.Info("Artifact already exists, skipping", "archive", result.Name, "artifact", result.Artifact)
			result.Existing = true
			return result
		}
	}

	slog.Info("Starting to process archive", "archive", result.Name, "path", path)
	c.progress(ctx, result.Name, 0)

	r, err := archive.Open(path)
	if err != nil {
		result.Err = err
		slog.Error("Failed to open archive", "archive", result.Name, "error", err)
		return result
	}
	defer r.Close()
	result.Format = r.Format()

	var size int64
	if info, err := os.Stat(path); err == nil {
		size = info.Size()
	}

	stop := c.watch(ctx, result.Name, r, size)
	batch, err := pubmed.Extract(ctx, result.Name, r)
	stop()
	if err != nil {
		result.Err = err
		slog.Error("Failed to extract archive", "archive", result.Name, "error", err)
		return result
	}

	result.Records = len(batch.Records)
	result.Articles = batch.Articles
	result.Skipped = batch.Skipped
	result.Deleted = batch.Deleted
	result.Warnings = batch.Warnings
	for _, w := range batch.Warnings {
		slog.Debug("Degraded field", "archive", result.Name, "id", w.ID, "field", w.Field, "value", w.Value, "reason", w.Reason)
	}

	data, err := artifact.Marshal(c.Options, batch.Records)
	if err != nil {
		result.Err = fmt.Errorf("cannot encode artifact: %w", err)
		return result
	}

	// a cancelled archive is abandoned without writing
	if err := ctx.Err(); err != nil {
		result.Err = err
		return result
	}

	if err := c.Sink.Write(ctx, result.Artifact, data); err != nil {
		result.Err = fmt.Errorf("cannot write artifact: %w", err)
		slog.Error("Failed to write artifact", "archive", result.Name, "error", err)
		return result
	}
	result.Bytes = int64(len(data))

	slog.Info("Completed archive", "archive", result.Name, "records", result.Records,
		"skipped", result.Skipped, "deleted", result.Deleted, "warnings", len(result.Warnings), "artifact", result.Artifact)

	return result
}
