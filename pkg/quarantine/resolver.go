// Package quarantine decides build verdicts from test failures, persisted
// quarantine records and per-build override lists, and answers the history
// queries built on those records.
package quarantine

import (
	"context"
	"log/slog"

	"github.com/dkoosis/quarantine/pkg/history"
)

// Resolver answers questions about quarantine state over a history.
type Resolver struct {
	History history.History

	// Horizon caps how many prior builds a backward scan visits.
	// Zero scans the whole history.
	Horizon int

	Log *slog.Logger
}

func (r *Resolver) log() *slog.Logger {
	if r.Log != nil {
		return r.Log
	}
	return slog.Default()
}

// backward yields builds numbered below n, newest first, honouring the horizon.
// A traversal error ends the scan and is returned through errp.
func (r *Resolver) backward(ctx context.Context, n int, errp *error) func(func(*history.Build) bool) {
	return func(yield func(*history.Build) bool) {
		visited := 0
		for b, err := range r.History.Before(ctx, n) {
			if err != nil {
				te := &HistoryTraversalError{Err: err}
				if b != nil {
					te.Build = b.Number
				}
				*errp = te
				return
			}
			if r.Horizon > 0 && visited >= r.Horizon {
				return
			}
			visited++
			if !yield(b) {
				return
			}
		}
	}
}
