package quarantine

import "context"

// QuarantinedFailure is a test that failed while quarantined by its owner.
type QuarantinedFailure struct {
	FullName      string
	QuarantinedBy string
	Reason        string
}

// Failure is one line of a notice.
type Failure struct {
	FullName string
	Reason   string
}

// Notice is the single message sent to one recipient for one build.
type Notice struct {
	Recipient string
	Build     int
	Failures  []Failure
}

// Notifier delivers notices. The archive step logs delivery errors and carries on.
type Notifier interface {
	Notify(ctx context.Context, n Notice) error
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(ctx context.Context, n Notice) error

func (f NotifierFunc) Notify(ctx context.Context, n Notice) error { return f(ctx, n) }

// Collate groups failures into one notice per owner, in the order owners are
// first seen. Failures without an owner have nobody to notify and are dropped.
func Collate(build int, failures []QuarantinedFailure) []Notice {
	var notices []Notice
	byOwner := make(map[string]int)
	for _, f := range failures {
		if f.QuarantinedBy == "" {
			continue
		}
		i, ok := byOwner[f.QuarantinedBy]
		if !ok {
			notices = append(notices, Notice{Recipient: f.QuarantinedBy, Build: build})
			i = len(notices) - 1
			byOwner[f.QuarantinedBy] = i
		}
		notices[i].Failures = append(notices[i].Failures, Failure{FullName: f.FullName, Reason: f.Reason})
	}
	return notices
}
