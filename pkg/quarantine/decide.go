package quarantine

import (
	"github.com/dkoosis/quarantine/pkg/history"
	"github.com/dkoosis/quarantine/pkg/testrun"
)

// Source says what covered a failing test.
type Source int

const (
	// ByRecord is a persisted quarantine record.
	ByRecord Source = iota
	// ByOverride is an entry in a per-build override file.
	ByOverride
)

func (s Source) String() string {
	if s == ByOverride {
		return "override"
	}
	return "record"
}

// CoveredFailure is a failing test whose failure does not count against the build.
type CoveredFailure struct {
	Case   testrun.Case
	Source Source
	By     string // owner of the record; empty for overrides
	Reason string
}

// Decision is the outcome of Decide.
type Decision struct {
	Verdict   history.Verdict
	Failed    []testrun.Case   // every failing case, in run order
	Covered   []CoveredFailure // failing cases suppressed by a record or override
	Uncovered []testrun.Case   // failing cases that count against the build
}

// Remaining is the number of failures not covered by quarantine.
func (d Decision) Remaining() int { return len(d.Failed) - len(d.Covered) }

// Quarantined returns the covered failures that came from persisted records.
// These are the failures owners are notified about.
func (d Decision) Quarantined() []QuarantinedFailure {
	var out []QuarantinedFailure
	for _, c := range d.Covered {
		if c.Source != ByRecord {
			continue
		}
		out = append(out, QuarantinedFailure{FullName: c.Case.FullName, QuarantinedBy: c.By, Reason: c.Reason})
	}
	return out
}

// Decide computes a build's verdict. prior is the verdict the build already
// carries from the steps before the test results were archived; the result is
// never better than prior.
//
// An empty run is accepted only when prior is Failure (the test phase never
// ran); otherwise it is ErrEmptyResultSet. Override entries are checked before
// records, so a test listed in an override file is never reported as failing
// while quarantined.
func Decide(run *testrun.Run, records map[string]*history.Record, overrides Overrides, prior history.Verdict) (Decision, error) {
	if run.IsEmpty() {
		if prior == history.Failure {
			return Decision{Verdict: prior}, nil
		}
		return Decision{}, ErrEmptyResultSet
	}

	d := Decision{Verdict: prior, Failed: run.Failed()}
	for _, c := range d.Failed {
		if o, ok := overrides.Match(c.FullName); ok {
			d.Covered = append(d.Covered, CoveredFailure{Case: c, Source: ByOverride, Reason: o.Reason})
			continue
		}
		if rec, ok := records[c.FullName]; ok {
			if s := rec.State(); s.Quarantined {
				d.Covered = append(d.Covered, CoveredFailure{Case: c, Source: ByRecord, By: s.QuarantinedBy, Reason: s.Reason})
				continue
			}
		}
		d.Uncovered = append(d.Uncovered, c)
	}
	if d.Remaining() > 0 {
		d.Verdict = prior.Worse(history.Unstable)
	}
	return d, nil
}
