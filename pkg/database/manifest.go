package database

import (
	"context"
	"log/slog"
	"sort"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/iziplay/pubmed-records/pkg/convert"
)

// Manifest records runs and archive outcomes. It is informational only and
// never consulted when converting.
type Manifest struct {
	DB     *gorm.DB
	Input  string
	Output string

	runID string
}

func NewManifest(db *gorm.DB, input, output string) *Manifest {
	return &Manifest{DB: db, Input: input, Output: output}
}

func (m *Manifest) Files(ctx context.Context, runID string, names []string) {
	m.runID = runID
	run := Run{
		ID:        runID,
		Input:     sanitizeString(m.Input),
		Output:    sanitizeString(m.Output),
		StartedAt: time.Now(),
		Archives:  len(names),
	}
	if err := m.DB.WithContext(ctx).Create(&run).Error; err != nil {
		slog.Error("Failed to record run", "run", runID, "error", err)
	}
}

func (m *Manifest) Progress(context.Context, string, float64) {}

func (m *Manifest) Done(ctx context.Context, result convert.FileResult) {
	a := archiveFromResult(m.runID, result)

	if err := m.DB.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "name"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"run", "path", "artifact", "status", "records", "articles", "skipped", "deleted",
			"warnings", "warning_fields", "bytes", "duration_ms", "error", "updated_at",
		}),
	}).Create(&a).Error; err != nil {
		slog.Error("Failed to upsert archive", "archive", a.Name, "error", err)
	}
}

func (m *Manifest) Finish(ctx context.Context, runID string, summary convert.Summary) {
	// the run context may already be cancelled, the outcome is still recorded
	ctx = context.WithoutCancel(ctx)

	err := m.DB.WithContext(ctx).Model(&Run{ID: runID}).Updates(map[string]any{
		"finished_at": time.Now(),
		"converted":   summary.Converted,
		"existing":    summary.Existing,
		"failed":      summary.Failed,
		"records":     summary.Records,
		"skipped":     summary.Skipped,
		"complete":    summary.Failed == 0,
	}).Error
	if err != nil {
		slog.Error("Failed to record run outcome", "run", runID, "error", err)
	}

	ComputeAndCacheStats(ctx, m.DB, true)
}

func archiveFromResult(runID string, r convert.FileResult) Archive {
	a := Archive{
		Name:          sanitizeString(r.Name),
		Run:           runID,
		Path:          sanitizeString(r.Archive),
		Artifact:      sanitizeString(r.Artifact),
		Status:        string(convert.StatusConverted),
		Records:       r.Records,
		Articles:      r.Articles,
		Skipped:       r.Skipped,
		Deleted:       r.Deleted,
		Warnings:      len(r.Warnings),
		WarningFields: warningFields(r),
		Bytes:         r.Bytes,
		DurationMs:    r.Duration.Milliseconds(),
	}

	switch {
	case r.Err != nil:
		a.Status = string(convert.StatusFailed)
		a.Error = sanitizeString(r.Err.Error())
	case r.Existing:
		a.Status = string(convert.StatusExisting)
	}

	return a
}

// warningFields lists the distinct fields that degraded, sorted.
func warningFields(r convert.FileResult) []string {
	set := map[string]struct{}{}
	for _, w := range r.Warnings {
		set[w.Field] = struct{}{}
	}
	fields := make([]string, 0, len(set))
	for f := range set {
		fields = append(fields, f)
	}
	sort.Strings(fields)
	return fields
}
