package quarantine

import (
	"context"
	"log/slog"
	"time"

	"github.com/dkoosis/quarantine/pkg/history"
	"github.com/dkoosis/quarantine/pkg/testrun"
)

// ReportEntry describes one currently quarantined test.
type ReportEntry struct {
	FullName         string
	Suite            string
	QuarantinedBy    string
	Reason           string
	Since            time.Time // when the quarantine was set; zero if unknown
	Build            int       // build the record belongs to
	Outcome          testrun.Outcome
	SuccessivePasses int
	IsLatest         bool
}

// ListQuarantined reports the tests quarantined as of the head build.
func (r *Resolver) ListQuarantined(ctx context.Context) ([]ReportEntry, error) {
	head, err := r.History.Head(ctx)
	if err != nil {
		return nil, &HistoryTraversalError{Err: err}
	}
	if head == nil {
		return nil, nil
	}
	return r.Report(ctx, head), nil
}

// Report lists the quarantined tests of b in suite/case order. History errors
// while computing pass counts or latestness are logged and leave the entry
// with what was found.
func (r *Resolver) Report(ctx context.Context, b *history.Build) []ReportEntry {
	var out []ReportEntry
	for _, c := range b.Run.Cases() {
		rec, ok := b.Record(c.FullName)
		if !ok {
			continue
		}
		s := rec.State()
		if !s.Quarantined {
			continue
		}
		e := ReportEntry{
			FullName:      c.FullName,
			Suite:         c.Suite,
			QuarantinedBy: s.QuarantinedBy,
			Reason:        s.Reason,
			Since:         s.Changed,
			Build:         b.Number,
			Outcome:       c.Outcome,
		}
		passes, err := r.SuccessivePassesAt(ctx, b.Number, c.FullName)
		if err != nil {
			r.log().Warn("successive pass count incomplete",
				slog.String("test", c.FullName), slog.Any("error", err))
		}
		e.SuccessivePasses = passes
		latest, err := r.IsLatest(ctx, s)
		if err != nil {
			r.log().Warn("latest record unknown", slog.String("test", c.FullName), slog.Any("error", err))
		}
		e.IsLatest = latest
		out = append(out, e)
	}
	return out
}
