package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/dkoosis/quarantine/internal/config"
	"github.com/dkoosis/quarantine/internal/logging"
	"github.com/dkoosis/quarantine/internal/notify"
	"github.com/dkoosis/quarantine/internal/store"
	"github.com/dkoosis/quarantine/internal/version"
	"github.com/dkoosis/quarantine/pkg/history"
	"github.com/dkoosis/quarantine/pkg/pattern"
	"github.com/dkoosis/quarantine/pkg/quarantine"
	"github.com/dkoosis/quarantine/pkg/render"
)

// app carries the state shared by every subcommand of one invocation.
type app struct {
	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer

	flags config.CliFlags
	cfg   *config.ResolvedConfig
	log   *slog.Logger
	code  int
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:   "quarantine",
		Short: "Carry test quarantines across CI builds",
		Long: "quarantine archives the test results of each CI build, carries per-test\n" +
			"quarantine state forward from earlier builds and marks a build UNSTABLE\n" +
			"only for failures nobody has quarantined.",
		Version:       version.String(),
		SilenceUsage:  true,
		SilenceErrors: true,
		CompletionOptions: cobra.CompletionOptions{
			HiddenDefaultCmd: true,
		},
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup(cmd)
		},
	}
	root.SetVersionTemplate("{{.Version}}\n")

	f := root.PersistentFlags()
	f.StringVar(&a.flags.ConfigPath, "config", "", "Config file (default: ./"+config.FileName+")")
	f.StringVar(&a.flags.DB, "db", "", "History database path")
	f.StringVar(&a.flags.Results, "results", "", "Result file pattern, relative to the workspace")
	f.StringVar(&a.flags.OverrideFile, "override-file", "", "Override file name searched in the workspace")
	f.StringVar(&a.flags.Format, "format", "", "Output format: auto, terminal, llm, json")
	f.StringVar(&a.flags.Theme, "theme", "", "Theme: default, orca, mono")
	f.IntVar(&a.flags.Horizon, "horizon", 0, "Builds searched backwards for history (0 = unbounded)")
	f.BoolVar(&a.flags.NoColor, "no-color", false, "Disable colors")
	f.StringVar(&a.flags.LogLevel, "log-level", "", "Log level: debug, info, warn, error")
	f.StringVar(&a.flags.LogFormat, "log-format", "", "Log format: text, json")
	f.StringVar(&a.flags.Outbox, "outbox", "", "Directory receiving notification messages")

	root.AddCommand(
		newArchiveCmd(a),
		newAddCmd(a),
		newReleaseCmd(a),
		newReportCmd(a),
		newStatusCmd(a),
		newHistoryCmd(a),
		newBrowseCmd(a),
		newConfigCmd(a),
		newVersionCmd(a),
	)
	return root
}

// setup resolves configuration and logging once flags are parsed.
func (a *app) setup(cmd *cobra.Command) error {
	a.flags.HorizonSet = cmd.Flags().Changed("horizon")
	a.flags.NoColorSet = cmd.Flags().Changed("no-color")

	cfg, err := config.ResolveConfig(a.flags)
	if err != nil {
		return err
	}
	level, err := logging.ParseLevel(cfg.LogLevel)
	if err != nil {
		return err
	}
	logging.Init(level, cfg.LogFormat, a.stderr)
	a.cfg = cfg
	a.log = logging.New("cli")
	a.log.Debug("configuration resolved", slog.String("file", cfg.File), slog.String("db", cfg.DB))
	return nil
}

// openStore opens the history database, creating its directory on first use.
func (a *app) openStore() (*store.SQLStore, error) {
	if dir := filepath.Dir(a.cfg.DB); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}
	return store.Open(a.cfg.DB, logging.New("store"))
}

func (a *app) resolver(h history.History) *quarantine.Resolver {
	return &quarantine.Resolver{History: h, Horizon: a.cfg.Horizon, Log: logging.New("resolver")}
}

// notifier logs every notice and, when an outbox is configured, also writes it there.
func (a *app) notifier(project string) quarantine.Notifier {
	n := notify.Multi{notify.Log{Logger: logging.New("notify")}}
	if a.cfg.Notify.Outbox != "" {
		n = append(n, &notify.Outbox{
			Dir:     a.cfg.Notify.Outbox,
			From:    a.cfg.Notify.From,
			Project: project,
			Users:   a.cfg.Notify.Users,
		})
	}
	return n
}

// outputFormat resolves "auto" to terminal on a TTY and llm otherwise.
func (a *app) outputFormat() string {
	if a.cfg.Format != config.DefaultFormat {
		return a.cfg.Format
	}
	if isTTYWriter(a.stdout) {
		return "terminal"
	}
	return "llm"
}

func (a *app) render(patterns []pattern.Pattern) {
	theme := render.ThemeByName(a.cfg.Theme)
	if a.cfg.NoColor {
		theme = theme.Plain()
	}
	width, _ := termSize(a.stdout)
	fmt.Fprint(a.stdout, render.ForFormat(a.outputFormat(), theme, width).Render(patterns))
}

// isTTYWriter reports whether w is a terminal.
func isTTYWriter(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// termSize returns the terminal dimensions for w, defaulting to 80x24.
func termSize(w io.Writer) (width, height int) {
	width, height = 80, 24
	if f, ok := w.(*os.File); ok {
		if tw, th, err := term.GetSize(int(f.Fd())); err == nil {
			if tw > 0 {
				width = tw
			}
			if th > 0 {
				height = th
			}
		}
	}
	return width, height
}

// headBuild returns the newest archived build, or an error when there is none.
func headBuild(cmd *cobra.Command, h history.History) (*history.Build, error) {
	head, err := h.Head(cmd.Context())
	if err != nil {
		return nil, err
	}
	if head == nil {
		return nil, fmt.Errorf("no builds archived yet")
	}
	return head, nil
}

func newVersionCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		PersistentPreRunE: func(*cobra.Command, []string) error {
			return nil
		},
		Run: func(*cobra.Command, []string) {
			fmt.Fprintln(a.stdout, version.String())
		},
	}
}
