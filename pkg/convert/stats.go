package convert

import (
	"context"
	"sync"
	"time"
)

type Status string

const (
	StatusPending   Status = "pending"
	StatusRunning   Status = "running"
	StatusConverted Status = "converted"
	StatusExisting  Status = "existing"
	StatusFailed    Status = "failed"
)

// ArchiveProgress tracks progress for a single archive
type ArchiveProgress struct {
	Name      string  `json:"name"`
	Status    Status  `json:"status"`
	Processed float64 `json:"processed"` // percentage 0-100 of the compressed input
	Records   int     `json:"records"`
	Skipped   int     `json:"skipped"`
	Deleted   int     `json:"deleted"`
	Warnings  int     `json:"warnings"`
	Error     string  `json:"error,omitempty"`
}

// Totals aggregates the archives of a run by status.
type Totals struct {
	Archives  int `json:"archives"`
	Pending   int `json:"pending"`
	Running   int `json:"running"`
	Converted int `json:"converted"`
	Existing  int `json:"existing"`
	Failed    int `json:"failed"`
	Records   int `json:"records"`
	Skipped   int `json:"skipped"`
}

// Snapshot is a consistent copy of the run progress.
type Snapshot struct {
	RunID     string            `json:"runId"`
	IsRunning bool              `json:"isRunning"`
	StartedAt time.Time         `json:"startedAt"`
	Totals    Totals            `json:"totals"`
	Archives  []ArchiveProgress `json:"archives"`
}

// Stats holds the current run progress. It is written by the conversion
// workers and only observed by everything else.
type Stats struct {
	mu        sync.RWMutex
	runID     string
	isRunning bool
	startedAt time.Time
	archives  []ArchiveProgress
	index     map[string]int
}

func NewStats() *Stats {
	return &Stats{index: map[string]int{}}
}

// Files initializes the progress of every archive of a run.
func (s *Stats) Files(_ context.Context, runID string, names []string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.runID = runID
	s.isRunning = true
	s.startedAt = time.Now()
	s.archives = make([]ArchiveProgress, len(names))
	s.index = make(map[string]int, len(names))
	for i, name := range names {
		s.archives[i] = ArchiveProgress{Name: name, Status: StatusPending}
		s.index[name] = i
	}
}

// Finish marks the run as finished. The last progress stays observable.
func (s *Stats) Finish(_ context.Context, _ string, _ Summary) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.isRunning = false
}

func (s *Stats) update(name string, fn func(*ArchiveProgress)) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if i, ok := s.index[name]; ok {
		fn(&s.archives[i])
	}
}

// Progress updates processing progress for an archive
func (s *Stats) Progress(_ context.Context, name string, percent float64) {
	s.update(name, func(p *ArchiveProgress) {
		p.Status = StatusRunning
		p.Processed = min(max(percent, 0), 100)
	})
}

// Done records the outcome of an archive.
func (s *Stats) Done(_ context.Context, result FileResult) {
	s.update(result.Name, func(p *ArchiveProgress) {
		p.Records = result.Records
		p.Skipped = result.Skipped
		p.Deleted = result.Deleted
		p.Warnings = len(result.Warnings)
		switch {
		case result.Err != nil:
			p.Status = StatusFailed
			p.Error = result.Err.Error()
		case result.Existing:
			p.Status = StatusExisting
			p.Processed = 100
		default:
			p.Status = StatusConverted
			p.Processed = 100
		}
	})
}

// Snapshot returns a copy of the current progress
func (s *Stats) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := Snapshot{
		RunID:     s.runID,
		IsRunning: s.isRunning,
		StartedAt: s.startedAt,
		Archives:  make([]ArchiveProgress, len(s.archives)),
	}
	copy(snap.Archives, s.archives)

	snap.Totals.Archives = len(s.archives)
	for _, a := range s.archives {
		switch a.Status {
		case StatusPending:
			snap.Totals.Pending++
		case StatusRunning:
			snap.Totals.Running++
		case StatusConverted:
			snap.Totals.Converted++
		case StatusExisting:
			snap.Totals.Existing++
		case StatusFailed:
			snap.Totals.Failed++
		}
		snap.Totals.Records += a.Records
		snap.Totals.Skipped += a.Skipped
	}

	return snap
}

// Archive returns the progress of one archive by name.
func (s *Stats) Archive(name string) (ArchiveProgress, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	i, ok := s.index[name]
	if !ok {
		return ArchiveProgress{}, false
	}
	return s.archives[i], true
}
