package quarantine

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/dkoosis/quarantine/pkg/history"
	"github.com/dkoosis/quarantine/pkg/testrun"
)

// Ledger is a history that new builds can be appended to.
type Ledger interface {
	history.History
	history.Appender
}

// Archiver records new builds. Builds of one project are archived one at a
// time; Archive holds the new build's lock for the whole step so readers never
// observe a half-archived build.
type Archiver struct {
	Ledger    Ledger
	Horizon   int
	Overrides OverrideLoader
	Notifier  Notifier // nil disables notification
	Log       *slog.Logger
	Now       func() time.Time
}

// Request is the input of one archive step.
type Request struct {
	Run       *testrun.Run
	Workspace Workspace
	// Prior is the verdict of the build steps that ran before archiving.
	Prior history.Verdict
}

// Result describes a committed build.
type Result struct {
	Build     *history.Build
	Decision  Decision
	Overrides int
	Notices   []Notice
}

// Archive seeds quarantine records for req.Run, decides the verdict, notifies
// owners of quarantined failures and commits the build as the new head.
// Nothing is committed when the decision fails.
func (a *Archiver) Archive(ctx context.Context, req Request) (*Result, error) {
	log := a.Log
	if log == nil {
		log = slog.Default()
	}
	now := time.Now
	if a.Now != nil {
		now = a.Now
	}

	head, err := a.Ledger.Head(ctx)
	if err != nil {
		return nil, fmt.Errorf("read head build: %w", err)
	}
	number := 1
	if head != nil {
		number = head.Number + 1
	}

	b := history.NewBuild(number, now(), req.Run)
	b.Lock()
	defer b.Unlock()

	cases := b.Run.Cases()
	names := make([]string, len(cases))
	for i, c := range cases {
		names[i] = c.FullName
	}

	var (
		records   map[string]*history.Record
		overrides Overrides
	)
	resolver := &Resolver{History: a.Ledger, Horizon: a.Horizon, Log: log}
	overrideLoader := a.Overrides
	if overrideLoader.Log == nil {
		overrideLoader.Log = log
	}
	// History traversal and override file errors are logged by each step and
	// degrade coverage without failing the build. Only cancellation, which
	// leaves records or overrides incomplete, aborts the step.
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		records = resolver.CarryForward(gctx, number, names)
		return gctx.Err()
	})
	g.Go(func() error {
		overrides = overrideLoader.Load(gctx, req.Workspace)
		return gctx.Err()
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("resolve quarantine state for build %d: %w", number, err)
	}

	d, err := Decide(b.Run, records, overrides, req.Prior)
	if err != nil {
		return nil, err
	}
	for _, c := range d.Covered {
		if c.Source == ByOverride {
			log.Info("failed but is quarantined in "+overrideFileName(a.Overrides),
				slog.String("test", c.Case.FullName), slog.String("reason", c.Reason))
			continue
		}
		log.Info("failed but is quarantined",
			slog.String("test", c.Case.FullName), slog.String("by", c.By), slog.String("reason", c.Reason))
	}
	if n := d.Remaining(); n > 0 {
		log.Info(fmt.Sprintf("%d unquarantined failures remaining", n), slog.Int("build", number))
	}

	for _, name := range names {
		b.Attach(name, records[name])
	}
	b.Verdict = d.Verdict

	notices := Collate(number, d.Quarantined())
	if a.Notifier != nil {
		for _, n := range notices {
			if err := a.Notifier.Notify(ctx, n); err != nil {
				log.Warn("notification failed",
					slog.String("recipient", n.Recipient), slog.Int("build", number), slog.Any("error", err))
			}
		}
	}

	if err := a.Ledger.Append(ctx, b); err != nil {
		return nil, fmt.Errorf("commit build %d: %w", number, err)
	}
	log.Debug("build archived", slog.Int("build", number), slog.String("verdict", d.Verdict.String()),
		slog.Int("cases", len(cases)), slog.Int("failed", len(d.Failed)))

	return &Result{Build: b, Decision: d, Overrides: len(overrides), Notices: notices}, nil
}

func overrideFileName(l OverrideLoader) string {
	if l.FileName != "" {
		return l.FileName
	}
	return DefaultOverrideFile
}
