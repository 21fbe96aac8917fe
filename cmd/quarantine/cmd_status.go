package main

import (
	"log/slog"
	"slices"

	"github.com/spf13/cobra"

	"github.com/dkoosis/quarantine/pkg/mapper"
)

func newStatusCmd(a *app) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "status <test>",
		Short: "Show one test across the archived builds",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := a.openStore()
			if err != nil {
				return err
			}
			defer st.Close()

			ctx := cmd.Context()
			fullName := args[0]
			head, err := headBuild(cmd, st)
			if err != nil {
				return err
			}

			s := mapper.Status{FullName: fullName}
			for b, err := range st.Before(ctx, head.Number+1) {
				if err != nil {
					return err
				}
				outcome, ok := b.Outcome(fullName)
				if !ok {
					continue
				}
				p := mapper.StatusPoint{Build: b.Number, Outcome: outcome}
				if rec, ok := b.Record(fullName); ok {
					state := rec.State()
					p.Quarantined = state.Quarantined
					if s.Record == nil {
						s.Record = &state
					}
				}
				s.Timeline = append(s.Timeline, p)
				if limit > 0 && len(s.Timeline) >= limit {
					break
				}
			}
			slices.Reverse(s.Timeline)

			r := a.resolver(st)
			if s.Record != nil {
				if s.IsLatest, err = r.IsLatest(ctx, *s.Record); err != nil {
					a.log.Warn("latestness unknown", slog.String("test", fullName), slog.Any("error", err))
				}
			}
			if s.Passes, err = r.SuccessivePasses(ctx, fullName); err != nil {
				a.log.Warn("pass count incomplete", slog.String("test", fullName), slog.Any("error", err))
			}
			a.render(mapper.FromStatus(s))
			return nil
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 50, "Most recent builds to show (0 = all)")
	return cmd
}
