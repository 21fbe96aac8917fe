package mapper

import (
	"fmt"
	"sort"

	"github.com/dkoosis/quarantine/pkg/pattern"
	"github.com/dkoosis/quarantine/pkg/quarantine"
	"github.com/dkoosis/quarantine/pkg/testrun"
)

// maxCandidates caps the release-candidate leaderboard.
const maxCandidates = 10

// FromReport converts the currently quarantined tests of build into patterns.
// Entries with fewer than minPasses successive passes are left out.
// Returns: Summary + TestTable of entries + Leaderboard of release candidates.
func FromReport(build int, entries []quarantine.ReportEntry, minPasses int) []pattern.Pattern {
	shown := make([]quarantine.ReportEntry, 0, len(entries))
	for _, e := range entries {
		if e.SuccessivePasses >= minPasses {
			shown = append(shown, e)
		}
	}

	owners := map[string]bool{}
	failing := 0
	for _, e := range shown {
		owners[e.QuarantinedBy] = true
		if e.Outcome == testrun.Fail {
			failing++
		}
	}

	label := fmt.Sprintf("QUARANTINE REPORT: build #%d, %s", build, plural(len(shown), "test", "tests"))
	if build == 0 {
		label = "QUARANTINE REPORT: no builds archived"
	}
	metrics := []pattern.SummaryItem{
		{Label: "Quarantined", Value: fmt.Sprintf("%d", len(shown)), Kind: kindWarning},
		{Label: "Owners", Value: fmt.Sprintf("%d", len(owners)), Kind: kindInfo},
	}
	if failing > 0 {
		metrics = append(metrics, pattern.SummaryItem{
			Label: "Still failing", Value: fmt.Sprintf("%d", failing), Kind: kindError,
		})
	}
	if minPasses > 0 {
		metrics = append(metrics, pattern.SummaryItem{
			Label: "Filter", Value: fmt.Sprintf(">= %d successive passes", minPasses), Kind: kindInfo,
		})
	}

	patterns := []pattern.Pattern{&pattern.Summary{
		Label:   label,
		Kind:    pattern.SummaryKindReport,
		Metrics: metrics,
	}}
	if len(shown) == 0 {
		return patterns
	}

	items := make([]pattern.TestTableItem, 0, len(shown))
	for _, e := range shown {
		note := plural(e.SuccessivePasses, "pass", "passes")
		if !e.IsLatest {
			note += ", superseded"
		}
		items = append(items, pattern.TestTableItem{
			Name:    e.FullName,
			Status:  statusQuarantined,
			Owner:   e.QuarantinedBy,
			Note:    note,
			Details: e.Reason,
		})
	}
	patterns = append(patterns, &pattern.TestTable{
		Label:   "Quarantined tests",
		Results: items,
	})

	var candidates []pattern.LeaderboardItem
	for _, e := range shown {
		if e.SuccessivePasses == 0 {
			continue
		}
		candidates = append(candidates, pattern.LeaderboardItem{
			Name:    e.FullName,
			Metric:  plural(e.SuccessivePasses, "pass", "passes"),
			Value:   float64(e.SuccessivePasses),
			Context: e.QuarantinedBy,
		})
	}
	if len(candidates) == 0 {
		return patterns
	}
	sort.SliceStable(candidates, func(i, j int) bool { return candidates[i].Value > candidates[j].Value })
	total := len(candidates)
	if len(candidates) > maxCandidates {
		candidates = candidates[:maxCandidates]
	}
	for i := range candidates {
		candidates[i].Rank = i + 1
	}
	return append(patterns, &pattern.Leaderboard{
		Label:      "Release candidates",
		MetricName: "passes",
		Items:      candidates,
		Direction:  "highest",
		TotalCount: total,
		ShowRank:   true,
	})
}
