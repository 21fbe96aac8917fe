package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/dkoosis/quarantine/pkg/history"
)

type annotateFlags struct {
	build  int
	user   string
	reason string
}

func newAddCmd(a *app) *cobra.Command {
	var flags annotateFlags
	cmd := &cobra.Command{
		Use:   "add <test>",
		Short: "Quarantine a test",
		Long: "add quarantines a test on a build (the head build by default). The\n" +
			"quarantine applies from the next archived build onward.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runAnnotate(cmd, args[0], flags, true)
		},
	}
	f := cmd.Flags()
	f.IntVar(&flags.build, "build", 0, "Build number (default: head)")
	f.StringVar(&flags.user, "user", os.Getenv("USER"), "Who owns the quarantine")
	f.StringVar(&flags.reason, "reason", "", "Why the test is quarantined")
	return cmd
}

func newReleaseCmd(a *app) *cobra.Command {
	var flags annotateFlags
	cmd := &cobra.Command{
		Use:   "release <test>",
		Short: "Release a quarantined test",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runAnnotate(cmd, args[0], flags, false)
		},
	}
	cmd.Flags().IntVar(&flags.build, "build", 0, "Build number (default: head)")
	return cmd
}

func (a *app) runAnnotate(cmd *cobra.Command, fullName string, flags annotateFlags, add bool) error {
	ctx := cmd.Context()
	if add && flags.user == "" {
		return errors.New("add: --user is required")
	}

	st, err := a.openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	build := flags.build
	if build == 0 {
		head, err := headBuild(cmd, st)
		if err != nil {
			return err
		}
		build = head.Number
	}

	var changed bool
	if add {
		changed, err = st.Quarantine(ctx, build, fullName, flags.user, flags.reason)
	} else {
		changed, err = st.Release(ctx, build, fullName)
	}
	if errors.Is(err, history.ErrNotFound) {
		return fmt.Errorf("%s did not run in build #%d", fullName, build)
	}
	if err != nil {
		return err
	}

	switch {
	case add && changed:
		fmt.Fprintf(a.stdout, "%s quarantined by %s in build #%d\n", fullName, flags.user, build)
	case add:
		fmt.Fprintf(a.stdout, "%s is already quarantined in build #%d\n", fullName, build)
	case changed:
		fmt.Fprintf(a.stdout, "%s released in build #%d\n", fullName, build)
	default:
		fmt.Fprintf(a.stdout, "%s is not quarantined in build #%d\n", fullName, build)
	}
	return nil
}
