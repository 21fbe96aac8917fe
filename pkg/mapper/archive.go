package mapper

import (
	"fmt"

	"github.com/dkoosis/quarantine/pkg/pattern"
	"github.com/dkoosis/quarantine/pkg/quarantine"
	"github.com/dkoosis/quarantine/pkg/testjson"
	"github.com/dkoosis/quarantine/pkg/testrun"
)

// FromArchive converts an archived build into patterns.
// Returns: Summary + broken packages + unquarantined failures + quarantined failures.
func FromArchive(res *quarantine.Result, broken []testjson.BrokenPackage) []pattern.Pattern {
	b := res.Build
	d := res.Decision
	stats := testrun.ComputeStats(b.Run)
	verdict := b.Verdict.String()

	metrics := []pattern.SummaryItem{
		{Label: "Verdict", Value: verdict, Kind: verdictKind(verdict)},
		{Label: "Tests", Value: fmt.Sprintf("%d passed, %d failed, %d skipped", stats.Passed, stats.Failed, stats.Skipped), Kind: kindInfo},
	}
	if len(d.Covered) > 0 {
		metrics = append(metrics, pattern.SummaryItem{
			Label: "Quarantined", Value: plural(len(d.Covered), "failure", "failures"), Kind: kindWarning,
		})
	}
	remainingKind := kindSuccess
	if d.Remaining() > 0 {
		remainingKind = kindError
	}
	metrics = append(metrics, pattern.SummaryItem{
		Label: "Remaining", Value: fmt.Sprintf("%d", d.Remaining()), Kind: remainingKind,
	})
	if res.Overrides > 0 {
		metrics = append(metrics, pattern.SummaryItem{
			Label: "Overrides", Value: plural(res.Overrides, "entry", "entries"), Kind: kindInfo,
		})
	}
	if len(res.Notices) > 0 {
		metrics = append(metrics, pattern.SummaryItem{
			Label: "Notified", Value: plural(len(res.Notices), "owner", "owners"), Kind: kindInfo,
		})
	}

	label := fmt.Sprintf("BUILD #%d %s", b.Number, verdict)
	switch {
	case b.Run.IsEmpty():
		label += " (no test results)"
	case d.Remaining() > 0:
		label += fmt.Sprintf(": %s", plural(d.Remaining(), "unquarantined failure", "unquarantined failures"))
	default:
		label += fmt.Sprintf(" (%s)", formatDuration(stats.Duration))
	}

	patterns := []pattern.Pattern{&pattern.Summary{
		Label:   label,
		Kind:    pattern.SummaryKindBuild,
		Metrics: metrics,
	}}

	if len(broken) > 0 {
		items := make([]pattern.TestTableItem, 0, len(broken))
		for _, p := range broken {
			name := "BUILD ERROR"
			if p.Panicked {
				name = "PANIC"
			}
			items = append(items, pattern.TestTableItem{
				Name:    p.Name,
				Status:  statusFail,
				Note:    name,
				Details: truncateLines(p.Output, 5),
			})
		}
		patterns = append(patterns, &pattern.TestTable{
			Label:   fmt.Sprintf("Broken packages (%d)", len(broken)),
			Results: items,
		})
	}

	if len(d.Uncovered) > 0 {
		items := make([]pattern.TestTableItem, 0, len(d.Uncovered))
		for _, c := range d.Uncovered {
			items = append(items, pattern.TestTableItem{
				Name:     c.FullName,
				Status:   statusFail,
				Duration: formatDuration(c.Duration),
				Details:  truncateLines(c.Output, 3),
			})
		}
		patterns = append(patterns, &pattern.TestTable{
			Label:   fmt.Sprintf("Unquarantined failures (%d)", len(items)),
			Results: items,
		})
	}

	if len(d.Covered) > 0 {
		items := make([]pattern.TestTableItem, 0, len(d.Covered))
		for _, c := range d.Covered {
			items = append(items, pattern.TestTableItem{
				Name:    c.Case.FullName,
				Status:  statusCovered,
				Owner:   c.By,
				Note:    c.Source.String(),
				Details: c.Reason,
			})
		}
		patterns = append(patterns, &pattern.TestTable{
			Label:   fmt.Sprintf("Quarantined failures (%d)", len(items)),
			Results: items,
		})
	}
	return patterns
}
