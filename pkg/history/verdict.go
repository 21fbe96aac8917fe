package history

import (
	"fmt"
	"strings"
)

// Verdict is the coarse outcome of a build.
type Verdict int

const (
	Success Verdict = iota
	Unstable
	Failure
)

// String returns the upper-case verdict name.
func (v Verdict) String() string {
	switch v {
	case Success:
		return "SUCCESS"
	case Unstable:
		return "UNSTABLE"
	case Failure:
		return "FAILURE"
	default:
		return fmt.Sprintf("Verdict(%d)", int(v))
	}
}

// ParseVerdict accepts verdict names in any case.
func ParseVerdict(s string) (Verdict, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "SUCCESS":
		return Success, nil
	case "UNSTABLE":
		return Unstable, nil
	case "FAILURE":
		return Failure, nil
	}
	return Success, fmt.Errorf("unknown verdict %q (expected success, unstable, failure)", s)
}

// Worse returns the more severe of v and o. Verdicts only ever get worse.
func (v Verdict) Worse(o Verdict) Verdict {
	if o > v {
		return o
	}
	return v
}
