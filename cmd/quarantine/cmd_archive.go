package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/dkoosis/quarantine/internal/collect"
	"github.com/dkoosis/quarantine/internal/logging"
	"github.com/dkoosis/quarantine/internal/store"
	"github.com/dkoosis/quarantine/pkg/history"
	"github.com/dkoosis/quarantine/pkg/mapper"
	"github.com/dkoosis/quarantine/pkg/quarantine"
	"github.com/dkoosis/quarantine/pkg/render"
	"github.com/dkoosis/quarantine/pkg/stream"
)

type archiveFlags struct {
	workspace string
	prior     string
	remote    bool
}

func newArchiveCmd(a *app) *cobra.Command {
	var flags archiveFlags
	cmd := &cobra.Command{
		Use:   "archive [pattern|-]",
		Short: "Archive the test results of a build and decide its verdict",
		Long: "archive collects the result files matching pattern inside the workspace\n" +
			"(or one go test -json / JUnit XML stream from stdin with \"-\"), carries\n" +
			"quarantines forward from earlier builds and commits the build.",
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runArchive(cmd, args, flags)
		},
	}
	f := cmd.Flags()
	f.StringVar(&flags.workspace, "workspace", ".", "Workspace root holding results and override files")
	f.StringVar(&flags.prior, "prior", "success", "Verdict of the build steps before archiving")
	f.BoolVar(&flags.remote, "remote", false, "Workspace is not on this machine; skip override files")
	return cmd
}

func (a *app) runArchive(cmd *cobra.Command, args []string, flags archiveFlags) error {
	ctx := cmd.Context()
	prior, err := history.ParseVerdict(flags.prior)
	if err != nil {
		return err
	}

	st, err := a.openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	pattern := a.cfg.Results
	if len(args) == 1 {
		pattern = args[0]
	}
	ws := quarantine.LocalWorkspace(flags.workspace)
	ws.Remote = flags.remote
	var coll *collect.Collection
	if pattern == collect.Stdin {
		in, finish := a.progressTee(ctx, st, ws)
		coll, err = collect.FromReader(in)
		finish()
	} else {
		coll, err = collect.Collector{Pattern: pattern, Log: logging.New("collect")}.Collect(ctx, flags.workspace)
	}
	if err != nil {
		return err
	}
	for _, p := range coll.Broken {
		a.log.Warn("package failed outside any test", slog.String("package", p.Name), slog.Bool("panic", p.Panicked))
	}
	if len(coll.Broken) > 0 {
		prior = prior.Worse(history.Failure)
	}

	project := flags.workspace
	if abs, err := filepath.Abs(flags.workspace); err == nil {
		project = filepath.Base(abs)
	}

	archiver := &quarantine.Archiver{
		Ledger:    st,
		Horizon:   a.cfg.Horizon,
		Overrides: quarantine.OverrideLoader{FileName: a.cfg.OverrideFile, Log: logging.New("overrides")},
		Notifier:  a.notifier(project),
		Log:       logging.New("archive"),
	}
	res, err := archiver.Archive(ctx, quarantine.Request{Run: coll.Run, Workspace: ws, Prior: prior})
	if err != nil {
		return fmt.Errorf("archive: %w", err)
	}

	a.render(mapper.FromArchive(res, coll.Broken))
	if res.Build.Verdict != history.Success {
		a.code = 1
	}
	return nil
}

// progressTee returns stdin, teed into a live progress display on stderr when
// stderr is a terminal. The returned func ends the display.
func (a *app) progressTee(ctx context.Context, st *store.SQLStore, ws quarantine.Workspace) (io.Reader, func()) {
	if !isTTYWriter(a.stderr) {
		return a.stdin, func() {}
	}
	// The archive step logs override and history problems itself.
	quiet := slog.New(slog.DiscardHandler)
	overrides := quarantine.OverrideLoader{FileName: a.cfg.OverrideFile, Log: quiet}.Load(ctx, ws)
	lookup, err := quarantineLookup(ctx, st, a.cfg.Horizon, overrides, quiet)
	if err != nil {
		a.log.Warn("progress display without quarantine marks", slog.Any("error", err))
	}

	theme := render.ThemeByName(a.cfg.Theme)
	if a.cfg.NoColor {
		theme = theme.Plain()
	}
	width, height := termSize(a.stderr)
	p := stream.New(a.stderr, width, height, progressStyle(theme), lookup)
	return io.TeeReader(a.stdin, p), p.Finish
}

// quarantineLookup answers, for the build about to be archived, whether a test
// is covered: listed in an override file, or quarantined in the record that
// carry-forward would seed for it. Answers are cached per test.
func quarantineLookup(ctx context.Context, h history.History, horizon int, overrides quarantine.Overrides, log *slog.Logger) (stream.QuarantineFunc, error) {
	head, err := h.Head(ctx)
	if err != nil {
		return nil, err
	}
	next := 1
	if head != nil {
		next = head.Number + 1
	}
	r := &quarantine.Resolver{History: h, Horizon: horizon, Log: log}
	known := make(map[string]bool)
	return func(fullName string) bool {
		if q, ok := known[fullName]; ok {
			return q
		}
		_, q := overrides.Match(fullName)
		if !q {
			q = r.CarryForward(ctx, next, []string{fullName})[fullName].IsQuarantined()
		}
		known[fullName] = q
		return q
	}, nil
}

func progressStyle(theme render.Theme) stream.StyleFunc {
	return func(kind stream.LineKind, text string) string {
		switch kind {
		case stream.KindFail, stream.KindPkgFail:
			return theme.Error.Render(text)
		case stream.KindQuarantined:
			return theme.Warning.Render(text)
		case stream.KindPass, stream.KindPkgPass:
			return theme.Success.Render(text)
		case stream.KindSkip, stream.KindOutput, stream.KindSeparator:
			return theme.Muted.Render(text)
		default:
			return text
		}
	}
}
