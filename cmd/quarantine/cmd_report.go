package main

import (
	"github.com/spf13/cobra"

	"github.com/dkoosis/quarantine/pkg/mapper"
)

func newReportCmd(a *app) *cobra.Command {
	var minPasses int
	cmd := &cobra.Command{
		Use:   "report",
		Short: "List the tests quarantined as of the head build",
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
			build := 0
			if head != nil {
				build = head.Number
			}
			entries, err := a.resolver(st).ListQuarantined(ctx)
			if err != nil {
				return err
			}
			a.render(mapper.FromReport(build, entries, minPasses))
			return nil
		},
	}
	cmd.Flags().IntVar(&minPasses, "min-passes", 0, "Only list tests with at least this many successive passes")
	return cmd
}
