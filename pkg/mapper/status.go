package mapper

import (
	"fmt"

	"github.com/dkoosis/quarantine/pkg/history"
	"github.com/dkoosis/quarantine/pkg/pattern"
	"github.com/dkoosis/quarantine/pkg/testrun"
)

// StatusPoint is one build in a test's timeline.
type StatusPoint struct {
	Build       int
	Outcome     testrun.Outcome
	Quarantined bool
}

// Status gathers what is known about one test.
type Status struct {
	FullName string
	Timeline []StatusPoint // oldest first; builds without the test are omitted
	Record   *history.RecordState
	Passes   int
	IsLatest bool
}

// FromStatus converts a test's history into patterns.
// Returns: Summary + Sparkline of outcomes + TestTable of the most recent builds.
func FromStatus(s Status) []pattern.Pattern {
	metrics := []pattern.SummaryItem{
		{Label: "Runs", Value: fmt.Sprintf("%d", len(s.Timeline)), Kind: kindInfo},
		{Label: "Successive passes", Value: fmt.Sprintf("%d", s.Passes), Kind: kindSuccess},
	}
	state := "not recorded"
	if s.Record != nil {
		state = "released"
		kind := kindSuccess
		if s.Record.Quarantined {
			state = "quarantined by " + s.Record.QuarantinedBy
			if s.Record.Reason != "" {
				state += ": " + s.Record.Reason
			}
			kind = kindWarning
		}
		metrics = append(metrics, pattern.SummaryItem{Label: "State", Value: state, Kind: kind})
		metrics = append(metrics, pattern.SummaryItem{
			Label: "Record", Value: fmt.Sprintf("build #%d (latest: %t)", s.Record.Build, s.IsLatest), Kind: kindInfo,
		})
	}

	patterns := []pattern.Pattern{&pattern.Summary{
		Label:   "STATUS: " + s.FullName,
		Kind:    pattern.SummaryKindStatus,
		Metrics: metrics,
	}}
	if len(s.Timeline) == 0 {
		return patterns
	}

	values := make([]float64, len(s.Timeline))
	for i, p := range s.Timeline {
		switch p.Outcome {
		case testrun.Pass:
			values[i] = 1
		case testrun.Skipped:
			values[i] = 0.5
		}
	}
	last := s.Timeline[len(s.Timeline)-1]
	patterns = append(patterns, &pattern.Sparkline{
		Label:   "Outcomes",
		Values:  values,
		Min:     0,
		Max:     1,
		Caption: fmt.Sprintf(" %s in build #%d", last.Outcome, last.Build),
	})

	const recent = 10
	start := 0
	if len(s.Timeline) > recent {
		start = len(s.Timeline) - recent
	}
	items := make([]pattern.TestTableItem, 0, recent)
	for i := len(s.Timeline) - 1; i >= start; i-- {
		p := s.Timeline[i]
		item := pattern.TestTableItem{Name: fmt.Sprintf("build #%d", p.Build), Status: p.Outcome.String()}
		if p.Quarantined {
			item.Note = statusQuarantined
		}
		items = append(items, item)
	}
	return append(patterns, &pattern.TestTable{
		Label:   fmt.Sprintf("Recent builds (%d of %d)", len(items), len(s.Timeline)),
		Results: items,
	})
}
