// Package stream shows live progress while go test -json output is piped into
// an archive step. Tests already under quarantine are marked as they fail, so
// the reader sees which failures will count against the build.
package stream

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/dkoosis/quarantine/pkg/testjson"
	"github.com/dkoosis/quarantine/pkg/testrun"
)

// LineKind identifies the type of output line for styling.
type LineKind int

const (
	KindPass LineKind = iota
	KindFail
	KindQuarantined
	KindSkip
	KindPkgPass
	KindPkgFail
	KindOutput
	KindSeparator
)

// StyleFunc formats a line with colors/symbols.
// If nil, no styling is applied.
type StyleFunc func(kind LineKind, text string) string

// Progress renders go test -json events written to it. It implements
// io.Writer so it can sit behind an io.TeeReader on the archive input.
type Progress struct {
	mu      sync.Mutex
	s       *streamer
	partial []byte
	done    bool
}

// QuarantineFunc reports whether the test with the given full name
// (package + "." + test) is under quarantine. It is asked once per failure.
type QuarantineFunc func(fullName string) bool

// New returns a Progress drawing on out. A nil quarantined treats every
// failure as unquarantined.
func New(out io.Writer, width, height int, style StyleFunc, quarantined QuarantineFunc) *Progress {
	return &Progress{s: newStreamer(newTermWriter(out, width, height), style, quarantined)}
}

// Write consumes complete JSON lines from b and keeps any trailing partial
// line for the next call. Lines that do not decode are ignored; Write never
// fails so it cannot disturb the reader it is teed from.
func (p *Progress) Write(b []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.done {
		return len(b), nil
	}
	p.partial = append(p.partial, b...)
	for {
		i := bytes.IndexByte(p.partial, '\n')
		if i < 0 {
			break
		}
		p.handleLine(p.partial[:i])
		p.partial = p.partial[i+1:]
	}
	return len(b), nil
}

func (p *Progress) handleLine(line []byte) {
	line = bytes.TrimSpace(line)
	if len(line) == 0 || line[0] != '{' {
		return
	}
	var e testjson.Event
	if err := json.Unmarshal(line, &e); err != nil {
		return
	}
	p.s.handleEvent(e)
}

// Finish flushes a final unterminated line, erases the footer and prints the
// summary. Later writes are discarded.
func (p *Progress) Finish() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.done {
		return
	}
	p.handleLine(p.partial)
	p.partial = nil
	p.done = true
	p.s.finish()
}

// pkgProgress tracks state for one active package.
type pkgProgress struct {
	name        string // full package path
	short       string // last segment
	startTime   time.Time
	passed      int
	failed      int
	skipped     int
	currentTest string // most recently run test name
}

func (p *pkgProgress) finished() int { return p.passed + p.failed + p.skipped }

// streamer is the state machine behind Progress.
type streamer struct {
	tw          *termWriter
	style       StyleFunc
	quarantined QuarantineFunc

	active map[string]*pkgProgress // active packages by full name
	order  []string                // package order for footer rendering

	outputBuf map[string][]string // per-test output buffer, keyed by "pkg\x00test"

	totalPassed  int
	totalFailed  int
	totalCovered int // failures of quarantined tests
	totalSkipped int
	totalPkgs    int
	maxDuration  float64
	brokenPkgs   int
}

func newStreamer(tw *termWriter, style StyleFunc, quarantined QuarantineFunc) *streamer {
	return &streamer{
		tw:          tw,
		style:       style,
		quarantined: quarantined,
		active:      make(map[string]*pkgProgress),
		outputBuf:   make(map[string][]string),
	}
}

// shortPkg returns the last path segment of a package name.
func shortPkg(pkg string) string {
	if i := strings.LastIndex(pkg, "/"); i >= 0 {
		return pkg[i+1:]
	}
	return pkg
}

// bufKey returns the output buffer key for a package/test pair.
func bufKey(pkg, test string) string {
	return pkg + "\x00" + test
}

func (s *streamer) styleLine(kind LineKind, text string) string {
	if s.style != nil {
		return s.style(kind, text)
	}
	return text
}

func (s *streamer) print(kind LineKind, text string) {
	s.tw.EraseFooter()
	s.tw.PrintLine(s.styleLine(kind, text))
}

func (s *streamer) handleEvent(e testjson.Event) {
	switch e.Action {
	case "start":
		s.pkg(e.Package, e.Time)
	case "run":
		s.pkg(e.Package, e.Time).currentTest = e.Test
	case "pass", "fail", "skip":
		switch {
		case e.Test != "":
			s.handleTestDone(e)
		case e.Action == "skip":
			// no test files
			delete(s.active, e.Package)
		default:
			s.handlePkgDone(e)
		}
	case "output":
		s.handleOutput(e)
	}
	s.redrawFooter()
}

// pkg returns the progress of an active package, starting it when a run
// event arrives without a start event.
func (s *streamer) pkg(name string, at time.Time) *pkgProgress {
	if p, ok := s.active[name]; ok {
		return p
	}
	if at.IsZero() {
		at = time.Now()
	}
	p := &pkgProgress{name: name, short: shortPkg(name), startTime: at}
	s.active[name] = p
	s.order = append(s.order, name)
	return p
}

func (s *streamer) handleTestDone(e testjson.Event) {
	pkg := s.pkg(e.Package, e.Time)
	key := bufKey(e.Package, e.Test)
	defer delete(s.outputBuf, key)

	switch e.Action {
	case "pass":
		pkg.passed++
		s.print(KindPass, fmt.Sprintf("  %-10s · %-40s %5.2fs", pkg.short, e.Test, e.Elapsed))
		return
	case "skip":
		pkg.skipped++
		s.print(KindSkip, fmt.Sprintf("  %-10s ○ %-40s", pkg.short, e.Test))
		return
	}

	pkg.failed++
	if s.quarantined != nil && s.quarantined(testrun.FullNameOf(e.Package, e.Test)) {
		s.totalCovered++
		s.print(KindQuarantined, fmt.Sprintf("  %-10s ◌ %-40s %5.2fs quarantined", pkg.short, e.Test, e.Elapsed))
		return
	}
	s.print(KindFail, fmt.Sprintf("  %-10s ✗ %-40s %5.2fs", pkg.short, e.Test, e.Elapsed))
	s.flushOutput(key)
}

func (s *streamer) handlePkgDone(e testjson.Event) {
	pkg, ok := s.active[e.Package]
	if !ok {
		return
	}
	kind, mark := KindPkgPass, "✓"
	if e.Action == "fail" {
		kind, mark = KindPkgFail, "✗"
		if pkg.failed == 0 {
			s.brokenPkgs++
		}
	}
	s.print(kind, fmt.Sprintf("  %s %-28s %d/%d  %.1fs", mark, pkg.short, pkg.passed, pkg.finished(), e.Elapsed))
	if e.Action == "fail" {
		s.flushOutput(bufKey(e.Package, ""))
	}

	s.totalPassed += pkg.passed
	s.totalFailed += pkg.failed
	s.totalSkipped += pkg.skipped
	s.totalPkgs++
	s.maxDuration = max(s.maxDuration, e.Elapsed)
	delete(s.active, e.Package)
}

func (s *streamer) flushOutput(key string) {
	for _, l := range s.outputBuf[key] {
		if isBoilerplate(l) {
			continue
		}
		s.tw.PrintLine(s.styleLine(KindOutput, "             "+l))
	}
	delete(s.outputBuf, key)
}

func (s *streamer) handleOutput(e testjson.Event) {
	output := strings.TrimRight(e.Output, "\n")
	if output == "" {
		return
	}
	key := bufKey(e.Package, e.Test)
	s.outputBuf[key] = append(s.outputBuf[key], output)

	// Package-level panics are shown immediately.
	if e.Test == "" && (strings.Contains(output, "panic:") || strings.HasPrefix(output, "goroutine ")) {
		s.print(KindOutput, "  "+output)
	}
}

// isBoilerplate returns true for go test output lines that should be filtered.
func isBoilerplate(s string) bool {
	trimmed := strings.TrimSpace(s)
	return strings.HasPrefix(trimmed, "=== RUN") ||
		strings.HasPrefix(trimmed, "--- FAIL") ||
		strings.HasPrefix(trimmed, "--- PASS")
}

// redrawFooter rebuilds the active-packages footer.
func (s *streamer) redrawFooter() {
	if len(s.active) == 0 {
		return
	}
	lines := []string{"  " + rule("active", 40)}
	now := time.Now()
	for _, name := range s.order {
		pkg, ok := s.active[name]
		if !ok {
			continue
		}
		lines = append(lines, fmt.Sprintf("  %-7s [%d] %-25s %5.1fs",
			pkg.short, pkg.finished(), truncateToWidth(pkg.currentTest, 25), now.Sub(pkg.startTime).Seconds()))
	}
	s.tw.DrawFooter(lines)
}

func rule(label string, width int) string {
	head := "─── " + label + " "
	return head + strings.Repeat("─", max(width-len([]rune(head)), 0))
}

// finish erases the footer and prints the final summary line. A failure is
// reported only when some failure is not quarantined.
func (s *streamer) finish() {
	s.tw.EraseFooter()
	// Packages cut off mid-run still count.
	for _, name := range s.order {
		if pkg, ok := s.active[name]; ok {
			s.totalPassed += pkg.passed
			s.totalFailed += pkg.failed
			s.totalSkipped += pkg.skipped
			s.totalPkgs++
		}
	}
	s.tw.PrintLine(s.styleLine(KindSeparator, "  "+strings.Repeat("─", 45)))

	total := s.totalPassed + s.totalFailed + s.totalSkipped
	remaining := s.totalFailed - s.totalCovered
	covered := ""
	if s.totalCovered > 0 {
		covered = fmt.Sprintf(" (%d quarantined)", s.totalCovered)
	}
	switch {
	case remaining > 0 || s.brokenPkgs > 0:
		s.tw.PrintLine(s.styleLine(KindFail, fmt.Sprintf("  FAIL (%.1fs) %d/%d tests failed%s, %d packages",
			s.maxDuration, s.totalFailed, total, covered, s.totalPkgs)))
	default:
		s.tw.PrintLine(s.styleLine(KindPass, fmt.Sprintf("  PASS (%.1fs) %d tests%s, %d packages",
			s.maxDuration, total, covered, s.totalPkgs)))
	}
}
