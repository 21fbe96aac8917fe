// Package history models the append-only sequence of build snapshots that
// quarantine state is resolved against.
//
// Snapshots are immutable once committed. The only mutable part is the
// per-case quarantine Record, toggled through an Annotator.
package history

import (
	"context"
	"errors"
	"iter"
)

// ErrNotFound is returned when a build or a test case does not exist.
var ErrNotFound = errors.New("not found")

// History is read access to a project's builds.
//
// Before and After are lazy: builds are produced one at a time so callers can
// stop early without loading the whole history. An error for one build is
// yielded with a nil build; iteration may continue afterwards.
type History interface {
	// Head returns the most recent build, or nil when the history is empty.
	Head(ctx context.Context) (*Build, error)
	// Get returns build number n.
	Get(ctx context.Context, n int) (*Build, error)
	// Before yields builds numbered below n, newest first.
	Before(ctx context.Context, n int) iter.Seq2[*Build, error]
	// After yields builds numbered above n, oldest first.
	After(ctx context.Context, n int) iter.Seq2[*Build, error]
}

// Appender commits a sealed build to the head of a history. The caller holds
// the build's lock, so implementations read records with RecordsLocked.
type Appender interface {
	Append(ctx context.Context, b *Build) error
}

// Annotator toggles the quarantine record of one test in one build.
// Both methods report whether anything changed.
type Annotator interface {
	Quarantine(ctx context.Context, build int, fullName, user, reason string) (bool, error)
	Release(ctx context.Context, build int, fullName string) (bool, error)
}

// Store is a complete history backend.
type Store interface {
	History
	Appender
	Annotator
}
