package mapper

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dkoosis/quarantine/pkg/history"
	"github.com/dkoosis/quarantine/pkg/pattern"
	"github.com/dkoosis/quarantine/pkg/quarantine"
	"github.com/dkoosis/quarantine/pkg/testjson"
	"github.com/dkoosis/quarantine/pkg/testrun"
)

func sampleRun() *testrun.Run {
	return testrun.New([]testrun.Suite{{
		Name: "pkg",
		Cases: []testrun.Case{
			{Name: "TestA", Outcome: testrun.Pass},
			{Name: "TestB", Outcome: testrun.Fail, Output: []string{"boom"}},
			{Name: "TestC", Outcome: testrun.Fail},
			{Name: "TestD", Outcome: testrun.Skipped},
		},
	}})
}

func summaryOf(t *testing.T, patterns []pattern.Pattern) *pattern.Summary {
	t.Helper()
	require.NotEmpty(t, patterns)
	s, ok := patterns[0].(*pattern.Summary)
	require.True(t, ok, "first pattern should be a summary, got %T", patterns[0])
	return s
}

func tablesOf(patterns []pattern.Pattern) []*pattern.TestTable {
	var out []*pattern.TestTable
	for _, p := range patterns {
		if tt, ok := p.(*pattern.TestTable); ok {
			out = append(out, tt)
		}
	}
	return out
}

func metric(s *pattern.Summary, label string) (pattern.SummaryItem, bool) {
	for _, m := range s.Metrics {
		if m.Label == label {
			return m, true
		}
	}
	return pattern.SummaryItem{}, false
}

func TestFromArchive_Unstable(t *testing.T) {
	run := sampleRun()
	b := history.NewBuild(7, time.Unix(0, 0), run)
	b.Verdict = history.Unstable
	failB, _ := run.Case("pkg.TestB")
	failC, _ := run.Case("pkg.TestC")
	res := &quarantine.Result{
		Build: b,
		Decision: quarantine.Decision{
			Verdict:   history.Unstable,
			Failed:    []testrun.Case{failB, failC},
			Covered:   []quarantine.CoveredFailure{{Case: failB, Source: quarantine.ByRecord, By: "alice", Reason: "flaky"}},
			Uncovered: []testrun.Case{failC},
		},
		Notices: []quarantine.Notice{{Recipient: "alice", Build: 7}},
	}

	patterns := FromArchive(res, nil)
	s := summaryOf(t, patterns)
	assert.Equal(t, pattern.SummaryKindBuild, s.Kind)
	assert.Equal(t, "BUILD #7 UNSTABLE: 1 unquarantined failure", s.Label)

	v, ok := metric(s, "Verdict")
	require.True(t, ok)
	assert.Equal(t, kindWarning, v.Kind)
	r, ok := metric(s, "Remaining")
	require.True(t, ok)
	assert.Equal(t, "1", r.Value)
	assert.Equal(t, kindError, r.Kind)
	n, ok := metric(s, "Notified")
	require.True(t, ok)
	assert.Equal(t, "1 owner", n.Value)

	tables := tablesOf(patterns)
	require.Len(t, tables, 2)
	assert.Equal(t, "Unquarantined failures (1)", tables[0].Label)
	assert.Equal(t, "pkg.TestC", tables[0].Results[0].Name)
	assert.Equal(t, statusFail, tables[0].Results[0].Status)
	assert.Equal(t, "Quarantined failures (1)", tables[1].Label)
	assert.Equal(t, pattern.TestTableItem{
		Name: "pkg.TestB", Status: statusCovered, Owner: "alice", Note: "record", Details: "flaky",
	}, tables[1].Results[0])
}

func TestFromArchive_BrokenPackagesFirst(t *testing.T) {
	b := history.NewBuild(1, time.Unix(0, 0), testrun.New(nil))
	b.Verdict = history.Failure
	broken := []testjson.BrokenPackage{{Name: "pkg/x", Panicked: true, Output: []string{"panic: nil map"}}}

	patterns := FromArchive(&quarantine.Result{Build: b, Decision: quarantine.Decision{Verdict: history.Failure}}, broken)
	s := summaryOf(t, patterns)
	assert.Equal(t, "BUILD #1 FAILURE (no test results)", s.Label)

	tables := tablesOf(patterns)
	require.Len(t, tables, 1)
	assert.Equal(t, "PANIC", tables[0].Results[0].Note)
	assert.Equal(t, "panic: nil map", tables[0].Results[0].Details)
}

func TestFromReport(t *testing.T) {
	entries := []quarantine.ReportEntry{
		{FullName: "pkg.TestA", QuarantinedBy: "alice", Reason: "flaky", SuccessivePasses: 3, IsLatest: true, Outcome: testrun.Pass},
		{FullName: "pkg.TestB", QuarantinedBy: "bob", SuccessivePasses: 0, IsLatest: true, Outcome: testrun.Fail},
		{FullName: "pkg.TestC", QuarantinedBy: "alice", SuccessivePasses: 5, IsLatest: false, Outcome: testrun.Pass},
	}

	patterns := FromReport(4, entries, 0)
	s := summaryOf(t, patterns)
	assert.Equal(t, pattern.SummaryKindReport, s.Kind)
	assert.Equal(t, "QUARANTINE REPORT: build #4, 3 tests", s.Label)
	owners, _ := metric(s, "Owners")
	assert.Equal(t, "2", owners.Value)
	failing, ok := metric(s, "Still failing")
	require.True(t, ok)
	assert.Equal(t, "1", failing.Value)

	tables := tablesOf(patterns)
	require.Len(t, tables, 1)
	require.Len(t, tables[0].Results, 3)
	assert.Equal(t, "3 passes", tables[0].Results[0].Note)
	assert.Equal(t, "5 passes, superseded", tables[0].Results[2].Note)

	lb, ok := patterns[len(patterns)-1].(*pattern.Leaderboard)
	require.True(t, ok)
	require.Len(t, lb.Items, 2)
	assert.Equal(t, "pkg.TestC", lb.Items[0].Name)
	assert.Equal(t, 1, lb.Items[0].Rank)
	assert.Equal(t, "pkg.TestA", lb.Items[1].Name)
}

func TestFromReport_MinPassesFilters(t *testing.T) {
	entries := []quarantine.ReportEntry{
		{FullName: "pkg.TestA", QuarantinedBy: "alice", SuccessivePasses: 1},
		{FullName: "pkg.TestB", QuarantinedBy: "bob", SuccessivePasses: 4},
	}
	tables := tablesOf(FromReport(2, entries, 2))
	require.Len(t, tables, 1)
	require.Len(t, tables[0].Results, 1)
	assert.Equal(t, "pkg.TestB", tables[0].Results[0].Name)
}

func TestFromReport_Empty(t *testing.T) {
	patterns := FromReport(0, nil, 0)
	require.Len(t, patterns, 1)
	assert.Equal(t, "QUARANTINE REPORT: no builds archived", summaryOf(t, patterns).Label)
}

func TestFromStatus(t *testing.T) {
	st := &history.RecordState{FullName: "pkg.TestA", Build: 3, Quarantined: true, QuarantinedBy: "alice", Reason: "flaky"}
	patterns := FromStatus(Status{
		FullName: "pkg.TestA",
		Timeline: []StatusPoint{
			{Build: 1, Outcome: testrun.Fail},
			{Build: 2, Outcome: testrun.Skipped, Quarantined: true},
			{Build: 3, Outcome: testrun.Pass, Quarantined: true},
		},
		Record:   st,
		Passes:   1,
		IsLatest: true,
	})

	s := summaryOf(t, patterns)
	state, ok := metric(s, "State")
	require.True(t, ok)
	assert.Equal(t, "quarantined by alice: flaky", state.Value)

	spark, ok := patterns[1].(*pattern.Sparkline)
	require.True(t, ok)
	assert.Equal(t, []float64{0, 0.5, 1}, spark.Values)
	assert.Equal(t, " pass in build #3", spark.Caption)

	tables := tablesOf(patterns)
	require.Len(t, tables, 1)
	assert.Equal(t, "build #3", tables[0].Results[0].Name, "newest build first")
	assert.Equal(t, statusQuarantined, tables[0].Results[0].Note)
	assert.Empty(t, tables[0].Results[2].Note)
}

func TestFromStatus_Unknown(t *testing.T) {
	patterns := FromStatus(Status{FullName: "pkg.Missing"})
	require.Len(t, patterns, 1)
	_, ok := metric(summaryOf(t, patterns), "State")
	assert.False(t, ok)
}

func TestFromHistory(t *testing.T) {
	b1 := history.NewBuild(1, time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC), sampleRun())
	b1.Verdict = history.Unstable
	rec := history.NewRecord(1, "pkg.TestB")
	rec.Quarantine("alice", "", time.Time{})
	b1.Lock()
	b1.Attach("pkg.TestB", rec)
	b1.Unlock()
	b2 := history.NewBuild(2, time.Date(2026, 1, 3, 0, 0, 0, 0, time.UTC), testrun.New(nil))

	patterns := FromHistory([]*history.Build{b2, b1})
	s := summaryOf(t, patterns)
	assert.Equal(t, "HISTORY: 2 builds", s.Label)
	unstable, _ := metric(s, "Unstable")
	assert.Equal(t, "1", unstable.Value)

	tables := tablesOf(patterns)
	require.Len(t, tables, 1)
	assert.Equal(t, "build #2 SUCCESS", tables[0].Results[0].Name)
	assert.Equal(t, "build #1 UNSTABLE", tables[0].Results[1].Name)
	assert.Equal(t, "4 tests, 2 failed, 1 quarantined", tables[0].Results[1].Note)
	assert.Equal(t, "2026-01-02 03:04:05Z", tables[0].Results[1].Details)
}

func TestFormatDuration(t *testing.T) {
	assert.Equal(t, "0s", formatDuration(0))
	assert.Equal(t, "250ms", formatDuration(250*time.Millisecond))
	assert.Equal(t, "1.5s", formatDuration(1500*time.Millisecond))
}

func TestTruncateLines(t *testing.T) {
	assert.Equal(t, "a\nb", truncateLines([]string{"a", "b"}, 3))
	assert.Equal(t, "a\n... (2 more lines)", truncateLines([]string{"a", "b", "c"}, 1))
}
