package notify

import (
	"bytes"
	"context"
	"fmt"
	"mime"
	"net/mail"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/dkoosis/quarantine/pkg/quarantine"
)

// Outbox writes one RFC 5322 message per notice into a directory, for a mail
// relay or CI artifact step to pick up.
type Outbox struct {
	Dir     string
	From    string            // defaults to "quarantine@localhost"
	Project string            // appears in the subject
	Users   map[string]string // user name -> RFC 5322 address; unmapped names must be addresses themselves
	Now     func() time.Time
	NewID   func() uuid.UUID
}

// Notify implements quarantine.Notifier.
func (o *Outbox) Notify(_ context.Context, n quarantine.Notice) error {
	id := uuid.New()
	if o.NewID != nil {
		id = o.NewID()
	}
	msg, err := o.compose(id, n)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(o.Dir, 0o755); err != nil {
		return fmt.Errorf("create outbox: %w", err)
	}
	name := fmt.Sprintf("build-%d-%s.eml", n.Build, id)
	path := filepath.Join(o.Dir, name)
	if err := os.WriteFile(path, msg, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

// Address resolves a user name to a mail address. A user missing from Users
// is parsed as an address in its own right.
func (o *Outbox) Address(user string) (*mail.Address, error) {
	raw := user
	if addr, ok := o.Users[user]; ok && addr != "" {
		raw = addr
	}
	a, err := mail.ParseAddress(raw)
	if err != nil {
		return nil, fmt.Errorf("no mail address for user %q: %w", user, err)
	}
	return a, nil
}

func (o *Outbox) compose(id uuid.UUID, n quarantine.Notice) ([]byte, error) {
	rawFrom := o.From
	if rawFrom == "" {
		rawFrom = "quarantine@localhost"
	}
	from, err := mail.ParseAddress(rawFrom)
	if err != nil {
		return nil, fmt.Errorf("invalid sender %q: %w", rawFrom, err)
	}
	to, err := o.Address(n.Recipient)
	if err != nil {
		return nil, err
	}
	now := time.Now()
	if o.Now != nil {
		now = o.Now()
	}
	domain := from.Address[strings.LastIndexByte(from.Address, '@')+1:]

	subject := fmt.Sprintf("Build %d: %d quarantined test(s) failed", n.Build, len(n.Failures))
	if o.Project != "" {
		subject = o.Project + " " + subject
	}

	var b bytes.Buffer
	fmt.Fprintf(&b, "Message-ID: <%s@%s>\r\n", id, domain)
	fmt.Fprintf(&b, "Date: %s\r\n", now.Format(time.RFC1123Z))
	fmt.Fprintf(&b, "From: %s\r\n", from)
	fmt.Fprintf(&b, "To: %s\r\n", to)
	fmt.Fprintf(&b, "Subject: %s\r\n", mime.QEncoding.Encode("utf-8", subject))
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=utf-8\r\n")
	b.WriteString("\r\n")
	fmt.Fprintf(&b, "The following tests failed in build %d while quarantined by %s:\r\n\r\n", n.Build, n.Recipient)
	for _, f := range n.Failures {
		if f.Reason != "" {
			fmt.Fprintf(&b, "  %s (%s)\r\n", f.FullName, f.Reason)
			continue
		}
		fmt.Fprintf(&b, "  %s\r\n", f.FullName)
	}
	b.WriteString("\r\nThey do not affect the build result. Release them once they are fixed.\r\n")

	if _, err := mail.ReadMessage(bytes.NewReader(b.Bytes())); err != nil {
		return nil, fmt.Errorf("compose notice: %w", err)
	}
	return b.Bytes(), nil
}
