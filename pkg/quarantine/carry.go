package quarantine

import (
	"context"
	"log/slog"

	"github.com/dkoosis/quarantine/pkg/history"
)

// CarryForward creates a record for each name in build and seeds it from the
// nearest earlier record with the same full name. Builds that lack a name are
// skipped over, so quarantine survives a test's absence. Names with no prior
// record, or whose search hit a traversal error, start released.
func (r *Resolver) CarryForward(ctx context.Context, build int, names []string) map[string]*history.Record {
	records := make(map[string]*history.Record, len(names))
	pending := make(map[string]struct{}, len(names))
	for _, name := range names {
		records[name] = history.NewRecord(build, name)
		pending[name] = struct{}{}
	}
	if len(pending) == 0 {
		return records
	}

	var err error
	for b := range r.backward(ctx, build, &err) {
		for name := range pending {
			prior, ok := b.Record(name)
			if !ok {
				continue
			}
			records[name].Inherit(prior.State())
			delete(pending, name)
		}
		if len(pending) == 0 {
			break
		}
	}
	if err != nil {
		r.log().Warn("carry-forward stopped; remaining tests start unquarantined",
			slog.Int("build", build),
			slog.Int("unresolved", len(pending)),
			slog.Any("error", err))
	}
	return records
}
