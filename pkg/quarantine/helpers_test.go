package quarantine

import (
	"context"
	"iter"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/dkoosis/quarantine/pkg/history"
	"github.com/dkoosis/quarantine/pkg/testrun"
)

// results builds a single-suite run from "Name=outcome" pairs, e.g. "TestA=fail".
func results(t *testing.T, suite string, specs ...string) *testrun.Run {
	t.Helper()
	cases := make([]testrun.Case, 0, len(specs))
	for _, s := range specs {
		name, outcome := s, "pass"
		for i := len(s) - 1; i >= 0; i-- {
			if s[i] == '=' {
				name, outcome = s[:i], s[i+1:]
				break
			}
		}
		o, err := testrun.ParseOutcome(outcome)
		require.NoError(t, err)
		cases = append(cases, testrun.Case{Name: name, Outcome: o})
	}
	return testrun.New([]testrun.Suite{{Name: suite, Cases: cases}})
}

type recorder struct {
	notices []Notice
	err     error
}

func (r *recorder) Notify(_ context.Context, n Notice) error {
	r.notices = append(r.notices, n)
	return r.err
}

func newArchiver(h *history.Mem, n Notifier) *Archiver {
	clock := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	return &Archiver{
		Ledger:   h,
		Notifier: n,
		Now: func() time.Time {
			clock = clock.Add(time.Minute)
			return clock
		},
	}
}

func archive(t *testing.T, a *Archiver, run *testrun.Run) *Result {
	t.Helper()
	res, err := a.Archive(context.Background(), Request{Run: run})
	require.NoError(t, err)
	return res
}

// brokenHistory wraps a history and fails when traversal reaches build bad.
type brokenHistory struct {
	history.History
	bad int
}

func (h brokenHistory) Before(ctx context.Context, n int) iter.Seq2[*history.Build, error] {
	return func(yield func(*history.Build, error) bool) {
		for b, err := range h.History.Before(ctx, n) {
			if err == nil && b.Number == h.bad {
				yield(nil, history.ErrNotFound)
				return
			}
			if !yield(b, err) {
				return
			}
		}
	}
}
