package quarantine

import (
	"errors"
	"fmt"
)

// ErrEmptyResultSet means the test run held no cases although nothing earlier
// in the build explains their absence. Usually the result pattern matched no files.
var ErrEmptyResultSet = errors.New("no test results found")

// ResultParseError reports a test-result artifact that could not be parsed.
type ResultParseError struct {
	Pattern string
	File    string
	Err     error
}

func (e *ResultParseError) Error() string {
	if e.File == "" {
		return fmt.Sprintf("parse test results matching %q: %v", e.Pattern, e.Err)
	}
	return fmt.Sprintf("parse test results matching %q: %s: %v", e.Pattern, e.File, e.Err)
}

func (e *ResultParseError) Unwrap() error { return e.Err }

// OverrideLoadError reports an override file that could not be read or parsed.
// It is logged, never returned to callers of the archive step.
type OverrideLoadError struct {
	Path string
	Err  error
}

func (e *OverrideLoadError) Error() string {
	return fmt.Sprintf("load override file %s: %v", e.Path, e.Err)
}

func (e *OverrideLoadError) Unwrap() error { return e.Err }

// HistoryTraversalError reports a prior build that could not be read.
type HistoryTraversalError struct {
	Build int // 0 when the failing build is unknown
	Err   error
}

func (e *HistoryTraversalError) Error() string {
	if e.Build == 0 {
		return fmt.Sprintf("traverse history: %v", e.Err)
	}
	return fmt.Sprintf("traverse history at build %d: %v", e.Build, e.Err)
}

func (e *HistoryTraversalError) Unwrap() error { return e.Err }
