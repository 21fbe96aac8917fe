package mapper

import (
	"fmt"

	"github.com/dkoosis/quarantine/pkg/history"
	"github.com/dkoosis/quarantine/pkg/pattern"
	"github.com/dkoosis/quarantine/pkg/testrun"
)

// FromHistory lists builds, newest first.
// Returns: Summary + TestTable with one row per build.
func FromHistory(builds []*history.Build) []pattern.Pattern {
	counts := map[history.Verdict]int{}
	items := make([]pattern.TestTableItem, 0, len(builds))
	for _, b := range builds {
		counts[b.Verdict]++
		stats := testrun.ComputeStats(b.Run)
		quarantined := 0
		for _, r := range b.Records() {
			if r.IsQuarantined() {
				quarantined++
			}
		}
		status := statusPass
		switch b.Verdict {
		case history.Unstable:
			status = statusSkip
		case history.Failure:
			status = statusFail
		}
		items = append(items, pattern.TestTableItem{
			Name:   fmt.Sprintf("build #%d %s", b.Number, b.Verdict),
			Status: status,
			Note: fmt.Sprintf("%d tests, %d failed, %d quarantined",
				stats.Total, stats.Failed, quarantined),
			Details: b.Started.UTC().Format("2006-01-02 15:04:05Z"),
		})
	}

	summary := &pattern.Summary{
		Label: fmt.Sprintf("HISTORY: %s", plural(len(builds), "build", "builds")),
		Kind:  pattern.SummaryKindHistory,
		Metrics: []pattern.SummaryItem{
			{Label: "Success", Value: fmt.Sprintf("%d", counts[history.Success]), Kind: kindSuccess},
			{Label: "Unstable", Value: fmt.Sprintf("%d", counts[history.Unstable]), Kind: kindWarning},
			{Label: "Failure", Value: fmt.Sprintf("%d", counts[history.Failure]), Kind: kindError},
		},
	}
	if len(items) == 0 {
		return []pattern.Pattern{summary}
	}
	return []pattern.Pattern{summary, &pattern.TestTable{Label: "Builds", Results: items}}
}
