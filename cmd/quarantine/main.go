// quarantine archives CI test results, carries per-test quarantine state from
// build to build and decides each build's verdict.
//
// Usage:
//
//	go test -json ./... | quarantine archive -
//	quarantine archive '**/TEST-*.xml'
//	quarantine add pkg.TestFlaky --user alice --reason "races on CI"
//	quarantine report --min-passes 5
//
// Output modes (auto-detected):
//
//	terminal  styled Unicode output (default when TTY)
//	llm       terse plain text for AI consumption (default when piped)
//	json      structured JSON for automation
//
// Exit codes: 0 when the archived build succeeded or a command completed,
// 1 when the build is UNSTABLE or FAILURE, 2 on usage or runtime errors.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

func run(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	a := &app{stdin: stdin, stdout: stdout, stderr: stderr}
	root := newRootCmd(a)
	root.SetArgs(args)
	root.SetIn(stdin)
	root.SetOut(stdout)
	root.SetErr(stderr)

	if err := root.ExecuteContext(ctx); err != nil {
		var ee *exitError
		if errors.As(err, &ee) {
			return ee.code
		}
		fmt.Fprintf(stderr, "quarantine: %v\n", err)
		return 2
	}
	return a.code
}

// exitError ends the command with a specific exit code and no further message.
type exitError struct {
	code int
}

func (e *exitError) Error() string { return fmt.Sprintf("exit status %d", e.code) }
