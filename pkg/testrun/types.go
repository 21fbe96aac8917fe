// Package testrun defines the structured test-run tree that quarantine decisions operate on.
// A Run is sealed at construction: suites and cases never change afterwards.
package testrun

import (
	"fmt"
	"strings"
	"time"
)

// Outcome is the result of one test case within one run.
type Outcome int

const (
	Pass Outcome = iota
	Fail
	Skipped
)

// String returns "pass", "fail" or "skip", matching the status vocabulary of the renderers.
func (o Outcome) String() string {
	switch o {
	case Pass:
		return "pass"
	case Fail:
		return "fail"
	case Skipped:
		return "skip"
	default:
		return "unknown"
	}
}

// ParseOutcome is the inverse of Outcome.String. It also accepts the upper-case
// forms used by go test ("PASS", "FAIL", "SKIP").
func ParseOutcome(s string) (Outcome, error) {
	switch strings.ToLower(s) {
	case "pass", "passed":
		return Pass, nil
	case "fail", "failed":
		return Fail, nil
	case "skip", "skipped":
		return Skipped, nil
	}
	return Pass, fmt.Errorf("unknown outcome %q", s)
}

// severity orders outcomes when duplicates are merged: a failure anywhere wins.
func (o Outcome) severity() int {
	switch o {
	case Fail:
		return 2
	case Pass:
		return 1
	default:
		return 0
	}
}

// Case is a single test case result.
type Case struct {
	Suite    string
	Name     string
	FullName string // join key across builds; defaults to Suite + "." + Name
	Outcome  Outcome
	Duration time.Duration
	Output   []string // failure output lines
}

// FullNameOf builds the identity of a case from its suite and case names.
func FullNameOf(suite, name string) string {
	if suite == "" {
		return name
	}
	return suite + "." + name
}

// Suite groups cases as the result parser produced them.
type Suite struct {
	Name     string
	Duration time.Duration
	Cases    []Case
}
