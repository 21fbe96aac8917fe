package main

import (
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dkoosis/quarantine/pkg/history"
	"github.com/dkoosis/quarantine/pkg/quarantine"
	"github.com/dkoosis/quarantine/pkg/testrun"
)

func runOf(suite string, cases map[string]testrun.Outcome) *testrun.Run {
	s := testrun.Suite{Name: suite}
	for name, o := range cases {
		s.Cases = append(s.Cases, testrun.Case{Name: name, Outcome: o})
	}
	return testrun.New([]testrun.Suite{s})
}

func TestQuarantineLookup_FollowsCarryForward(t *testing.T) {
	ctx := context.Background()
	h := history.NewMem()
	archiver := &quarantine.Archiver{Ledger: h, Log: slog.New(slog.DiscardHandler)}

	_, err := archiver.Archive(ctx, quarantine.Request{Run: runOf("p", map[string]testrun.Outcome{
		"TestFlaky": testrun.Fail, "TestOther": testrun.Pass,
	})})
	require.NoError(t, err)
	_, err = h.Quarantine(ctx, 1, "p.TestFlaky", "alice", "races")
	require.NoError(t, err)
	// The head build does not run the quarantined test at all.
	_, err = archiver.Archive(ctx, quarantine.Request{Run: runOf("p", map[string]testrun.Outcome{
		"TestOther": testrun.Pass,
	})})
	require.NoError(t, err)

	lookup, err := quarantineLookup(ctx, h, 0, quarantine.Overrides{{Name: "p.TestListed", Reason: "override"}}, nil)
	require.NoError(t, err)

	assert.True(t, lookup("p.TestFlaky"), "quarantine survives the head build's absence")
	assert.True(t, lookup("p.TestListed"), "override entries count")
	assert.False(t, lookup("p.TestOther"))
	assert.False(t, lookup("p.TestNew"))

	// The decision for the next build agrees with the display.
	res, err := archiver.Archive(ctx, quarantine.Request{Run: runOf("p", map[string]testrun.Outcome{
		"TestFlaky": testrun.Fail, "TestOther": testrun.Pass,
	})})
	require.NoError(t, err)
	assert.Equal(t, history.Success, res.Build.Verdict)
}

func TestQuarantineLookup_EmptyHistory(t *testing.T) {
	lookup, err := quarantineLookup(context.Background(), history.NewMem(), 0, nil, nil)
	require.NoError(t, err)
	assert.False(t, lookup("p.TestAnything"))
}
