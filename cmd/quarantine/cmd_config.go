package main

import (
	"fmt"
	"sort"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

func newConfigCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Show the resolved configuration and where each value came from",
		Args:  cobra.NoArgs,
		Run: func(*cobra.Command, []string) {
			cfg := a.cfg
			values := map[string]string{
				"db":            cfg.DB,
				"results":       cfg.Results,
				"override_file": cfg.OverrideFile,
				"horizon":       fmt.Sprintf("%d", cfg.Horizon),
				"format":        cfg.Format,
				"theme":         cfg.Theme,
				"no_color":      fmt.Sprintf("%t", cfg.NoColor),
				"log_level":     cfg.LogLevel,
				"log_format":    cfg.LogFormat,
				"notify.outbox": cfg.Notify.Outbox,
			}
			keys := make([]string, 0, len(values))
			for k := range values {
				keys = append(keys, k)
			}
			sort.Strings(keys)

			t := table.NewWriter()
			t.SetOutputMirror(a.stdout)
			t.SetStyle(table.StyleLight)
			t.AppendHeader(table.Row{"Key", "Value", "Source"})
			for _, k := range keys {
				t.AppendRow(table.Row{k, values[k], cfg.Sources[k]})
			}
			file := cfg.File
			if file == "" {
				file = "(none)"
			}
			t.AppendFooter(table.Row{"file", file, ""})
			t.Render()
		},
	}
}
