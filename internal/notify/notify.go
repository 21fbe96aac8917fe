// Package notify delivers quarantine notices to test owners.
package notify

import (
	"context"
	"errors"
	"log/slog"

	"github.com/dkoosis/quarantine/pkg/quarantine"
)

// Log writes each notice as a structured log line.
type Log struct {
	Logger *slog.Logger
}

// Notify implements quarantine.Notifier.
func (l Log) Notify(ctx context.Context, n quarantine.Notice) error {
	logger := l.Logger
	if logger == nil {
		logger = slog.Default()
	}
	names := make([]string, len(n.Failures))
	for i, f := range n.Failures {
		names[i] = f.FullName
	}
	logger.InfoContext(ctx, "quarantined tests failed",
		slog.String("recipient", n.Recipient),
		slog.Int("build", n.Build),
		slog.Any("tests", names))
	return nil
}

// Multi fans a notice out to every notifier and joins their errors.
type Multi []quarantine.Notifier

// Notify implements quarantine.Notifier.
func (m Multi) Notify(ctx context.Context, n quarantine.Notice) error {
	var errs []error
	for _, notifier := range m {
		if err := notifier.Notify(ctx, n); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
