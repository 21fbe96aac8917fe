package main

import (
	"fmt"
	"io"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"

	"github.com/dkoosis/quarantine/pkg/history"
	"github.com/dkoosis/quarantine/pkg/mapper"
	"github.com/dkoosis/quarantine/pkg/testrun"
)

func newHistoryCmd(a *app) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List archived builds, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			st, err := a.openStore()
			if err != nil {
				return err
			}
			defer st.Close()

			ctx := cmd.Context()
			head, err := st.Head(ctx)
			if err != nil {
				return err
			}
			var builds []*history.Build
			if head != nil {
				for b, err := range st.Before(ctx, head.Number+1) {
					if err != nil {
						return err
					}
					builds = append(builds, b)
					if limit > 0 && len(builds) >= limit {
						break
					}
				}
			}

			if a.outputFormat() == "terminal" {
				writeHistoryTable(a.stdout, builds, !a.cfg.NoColor)
				return nil
			}
			a.render(mapper.FromHistory(builds))
			return nil
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "Builds to list (0 = all)")
	return cmd
}

// writeHistoryTable prints builds as a bordered table.
func writeHistoryTable(w io.Writer, builds []*history.Build, color bool) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleRounded)
	t.AppendHeader(table.Row{"Build", "Started", "Verdict", "Tests", "Failed", "Quarantined"})
	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 1, Align: text.AlignRight},
		{Number: 4, Align: text.AlignRight},
		{Number: 5, Align: text.AlignRight},
		{Number: 6, Align: text.AlignRight},
	})

	for _, b := range builds {
		stats := testrun.ComputeStats(b.Run)
		quarantined := 0
		for _, r := range b.Records() {
			if r.IsQuarantined() {
				quarantined++
			}
		}
		verdict := b.Verdict.String()
		if color {
			verdict = verdictColors(b.Verdict).Sprint(verdict)
		}
		t.AppendRow(table.Row{
			fmt.Sprintf("#%d", b.Number),
			b.Started.Local().Format("2006-01-02 15:04"),
			verdict,
			stats.Total,
			stats.Failed,
			quarantined,
		})
	}
	if len(builds) == 0 {
		t.AppendFooter(table.Row{"", "no builds archived"})
	}
	t.Render()
}

func verdictColors(v history.Verdict) text.Colors {
	switch v {
	case history.Success:
		return text.Colors{text.FgGreen}
	case history.Unstable:
		return text.Colors{text.FgYellow}
	default:
		return text.Colors{text.FgRed, text.Bold}
	}
}
