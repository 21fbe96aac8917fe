package quarantine

import (
	"context"

	"github.com/dkoosis/quarantine/pkg/history"
)

// IsLatest reports whether rec is the newest record for its test: no build
// after rec's own contains a case with the same full name. It scans forward
// to the head on every call.
func (r *Resolver) IsLatest(ctx context.Context, rec history.RecordState) (bool, error) {
	for b, err := range r.History.After(ctx, rec.Build) {
		if err != nil {
			te := &HistoryTraversalError{Err: err}
			if b != nil {
				te.Build = b.Number
			}
			return false, te
		}
		if b.Run.Has(rec.FullName) {
			return false, nil
		}
	}
	return true, nil
}
