package convert

import "time"

// Summary aggregates the results of a run.
type Summary struct {
	Archives  int
	Converted int
	Existing  int
	Failed    int
	Records   int
	Skipped   int
	Deleted   int
	Warnings  int
	Bytes     int64
	Duration  time.Duration // wall clock of the run
}

func Summarize(results []FileResult) Summary {
	s := Summary{Archives: len(results)}
	for _, r := range results {
		switch {
		case r.Err != nil:
			s.Failed++
		case r.Existing:
			s.Existing++
		default:
			s.Converted++
		}
		s.Records += r.Records
		s.Skipped += r.Skipped
		s.Deleted += r.Deleted
		s.Warnings += len(r.Warnings)
		s.Bytes += r.Bytes
	}
	return s
}

// OK reports whether the run counts as successful: at least one archive was
// converted, or every archive already had its artifact. With strict set, any
// failed archive fails the run.
func (s Summary) OK(strict bool) bool {
	if strict && s.Failed > 0 {
		return false
	}
	return s.Converted > 0 || (s.Archives > 0 && s.Existing == s.Archives)
}
