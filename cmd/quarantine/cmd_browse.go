package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dkoosis/quarantine/internal/browse"
)

func newBrowseCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "browse",
		Short: "Browse and release quarantined tests interactively",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !isTTYWriter(a.stdout) {
				return errors.New("browse needs a terminal; use report instead")
			}
			st, err := a.openStore()
			if err != nil {
				return err
			}
			defer st.Close()

			head, err := headBuild(cmd, st)
			if err != nil {
				return err
			}
			return browse.Run(cmd.Context(), browse.Options{
				Build:   head.Number,
				Entries: a.resolver(st).Report(cmd.Context(), head),
				Release: func(ctx context.Context, fullName string) error {
					changed, err := st.Release(ctx, head.Number, fullName)
					if err != nil {
						return err
					}
					if !changed {
						return fmt.Errorf("%s is no longer quarantined", fullName)
					}
					return nil
				},
			})
		},
	}
}
