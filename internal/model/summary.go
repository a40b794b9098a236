package model

import "time"

// RunSummary holds the counters reported at the end of a run.
//
// Processed counts every task that completed, whatever its outcome, so
// Processed == Converted + Skipped + Failed and, for a run that was not
// cancelled, Processed == Discovered.
type RunSummary struct {
	Discovered  int
	Processed   int
	Converted   int
	Skipped     int
	Failed      int
	Cancelled   int
	Elapsed     time.Duration
	OutputBytes int64
}

// Complete reports whether every discovered task was processed.
func (s RunSummary) Complete() bool {
	return s.Processed == s.Discovered
}

// Add records one finished task.
func (s *RunSummary) Add(status TaskStatus) {
	switch status {
	case StatusConverted:
		s.Converted++
		s.Processed++
	case StatusSkipped:
		s.Skipped++
		s.Processed++
	case StatusFailed:
		s.Failed++
		s.Processed++
	case StatusCancelled:
		s.Cancelled++
	}
}
