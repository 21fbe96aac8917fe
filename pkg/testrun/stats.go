package testrun

import "time"

// Stats holds aggregate counts for a run.
type Stats struct {
	Total        int
	Passed       int
	Failed       int
	Skipped      int
	Suites       int
	FailedSuites int
	Duration     time.Duration
}

// ComputeStats aggregates a run.
func ComputeStats(r *Run) Stats {
	var s Stats
	if r == nil {
		return s
	}
	s.Suites = len(r.suites)
	for _, suite := range r.suites {
		if suite.Duration > s.Duration {
			s.Duration = suite.Duration
		}
		failed := false
		for _, c := range suite.Cases {
			s.Total++
			switch c.Outcome {
			case Pass:
				s.Passed++
			case Fail:
				s.Failed++
				failed = true
			case Skipped:
				s.Skipped++
			}
		}
		if failed {
			s.FailedSuites++
		}
	}
	return s
}
