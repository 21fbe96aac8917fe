package stream

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/dkoosis/quarantine/pkg/testjson"
)

// runStream feeds events through a streamer and returns the visible output.
func runStream(t *testing.T, events []testjson.Event, quarantined QuarantineFunc) string {
	t.Helper()
	var buf bytes.Buffer
	s := newStreamer(newTermWriter(&buf, 120, 24), nil, quarantined)
	for _, e := range events {
		s.handleEvent(e)
	}
	s.finish()
	return stripANSI(buf.String())
}

// quarantinedSet returns a QuarantineFunc for a fixed set of full names.
func quarantinedSet(names ...string) QuarantineFunc {
	set := make(map[string]bool, len(names))
	for _, n := range names {
		set[n] = true
	}
	return func(fullName string) bool { return set[fullName] }
}

func failingRun(pkg string, tests ...string) []testjson.Event {
	events := []testjson.Event{{Action: "start", Package: pkg, Time: time.Now()}}
	for _, name := range tests {
		events = append(events,
			testjson.Event{Action: "run", Package: pkg, Test: name},
			testjson.Event{Action: "output", Package: pkg, Test: name, Output: "=== RUN   " + name + "\n"},
			testjson.Event{Action: "output", Package: pkg, Test: name, Output: "    " + name + " broke\n"},
			testjson.Event{Action: "fail", Package: pkg, Test: name, Elapsed: 0.02},
		)
	}
	return append(events, testjson.Event{Action: "fail", Package: pkg, Elapsed: 1.0})
}

func TestStreamer_PassingTest(t *testing.T) {
	out := runStream(t, []testjson.Event{
		{Action: "start", Package: "example.com/foo/bar", Time: time.Now()},
		{Action: "run", Package: "example.com/foo/bar", Test: "TestHello"},
		{Action: "output", Package: "example.com/foo/bar", Test: "TestHello", Output: "debug noise\n"},
		{Action: "pass", Package: "example.com/foo/bar", Test: "TestHello", Elapsed: 0.01},
		{Action: "pass", Package: "example.com/foo/bar", Elapsed: 2.6},
	}, nil)

	for _, want := range []string{"bar", "· TestHello", "1/1", "2.6s", "PASS (2.6s) 1 tests, 1 packages"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "debug noise") {
		t.Error("output of a passing test should be discarded")
	}
}

func TestStreamer_FailingTest_FlushesFilteredOutput(t *testing.T) {
	out := runStream(t, failingRun("example.com/pkg/eval", "TestBar"), nil)

	if !strings.Contains(out, "✗ TestBar") {
		t.Errorf("output missing failure line:\n%s", out)
	}
	if !strings.Contains(out, "TestBar broke") {
		t.Error("failure output should be flushed")
	}
	if strings.Contains(out, "=== RUN") {
		t.Error("boilerplate should be filtered from flushed output")
	}
	if !strings.Contains(out, "FAIL (1.0s) 1/1 tests failed, 1 packages") {
		t.Errorf("summary should report the failure:\n%s", out)
	}
}

func TestStreamer_QuarantinedFailure(t *testing.T) {
	out := runStream(t, failingRun("example.com/pkg/net", "TestFlaky"), quarantinedSet("example.com/pkg/net.TestFlaky"))

	if !strings.Contains(out, "◌ TestFlaky") || !strings.Contains(out, "quarantined") {
		t.Errorf("quarantined failure should be marked:\n%s", out)
	}
	if strings.Contains(out, "TestFlaky broke") {
		t.Error("output of a quarantined failure should not be flushed")
	}
	if !strings.Contains(out, "PASS (1.0s) 1 tests (1 quarantined), 1 packages") {
		t.Errorf("summary should pass when every failure is quarantined:\n%s", out)
	}
}

func TestStreamer_MixedFailures(t *testing.T) {
	out := runStream(t, failingRun("example.com/pkg/net", "TestFlaky", "TestReal"), quarantinedSet("example.com/pkg/net.TestFlaky"))

	if !strings.Contains(out, "FAIL (1.0s) 2/2 tests failed (1 quarantined), 1 packages") {
		t.Errorf("summary should fail with a quarantined count:\n%s", out)
	}
}

func TestStreamer_PackageWithoutTests(t *testing.T) {
	out := runStream(t, []testjson.Event{
		{Action: "start", Package: "example.com/empty", Time: time.Now()},
		{Action: "output", Package: "example.com/empty", Output: "?   \texample.com/empty\t[no test files]\n"},
		{Action: "skip", Package: "example.com/empty", Elapsed: 0},
	}, nil)

	if !strings.Contains(out, "PASS (0.0s) 0 tests, 0 packages") {
		t.Errorf("a package without tests is not counted:\n%s", out)
	}
}

func TestStreamer_AsksOnlyAboutFailures(t *testing.T) {
	var asked []string
	lookup := func(fullName string) bool {
		asked = append(asked, fullName)
		return false
	}
	events := append(failingRun("example.com/pkg", "TestBad"),
		testjson.Event{Action: "run", Package: "example.com/ok", Test: "TestGood"},
		testjson.Event{Action: "pass", Package: "example.com/ok", Test: "TestGood", Elapsed: 0.01},
	)
	runStream(t, events, lookup)

	if len(asked) != 1 || asked[0] != "example.com/pkg.TestBad" {
		t.Errorf("quarantine lookups = %v, want only the failing test", asked)
	}
}

func TestStreamer_BrokenPackage(t *testing.T) {
	out := runStream(t, []testjson.Event{
		{Action: "start", Package: "example.com/pkg/boom", Time: time.Now()},
		{Action: "output", Package: "example.com/pkg/boom", Output: "panic: nil map\n"},
		{Action: "fail", Package: "example.com/pkg/boom", Elapsed: 0.1},
	}, nil)

	if !strings.Contains(out, "panic: nil map") {
		t.Errorf("package panic should be shown:\n%s", out)
	}
	if !strings.Contains(out, "FAIL") {
		t.Errorf("a broken package fails the summary:\n%s", out)
	}
}

func TestProgress_WriteSplitsLinesAcrossChunks(t *testing.T) {
	input := strings.Join([]string{
		`{"Action":"start","Package":"example.com/alpha"}`,
		`not json at all`,
		`{"Action":"run","Package":"example.com/alpha","Test":"TestA1"}`,
		`{"Action":"pass","Package":"example.com/alpha","Test":"TestA1","Elapsed":0.01}`,
		`{"Action":"pass","Package":"example.com/alpha","Elapsed":0.5}`,
	}, "\n")

	var buf bytes.Buffer
	p := New(&buf, 120, 24, nil, nil)
	for i := 0; i < len(input); i += 7 {
		n, err := p.Write([]byte(input[i:min(i+7, len(input))]))
		if err != nil || n != min(7, len(input)-i) {
			t.Fatalf("Write = (%d, %v)", n, err)
		}
	}
	p.Finish()
	p.Finish()
	if _, err := p.Write([]byte("late\n")); err != nil {
		t.Fatalf("Write after Finish: %v", err)
	}

	out := stripANSI(buf.String())
	if !strings.Contains(out, "TestA1") {
		t.Errorf("output missing test line:\n%s", out)
	}
	if !strings.Contains(out, "PASS (0.5s) 1 tests, 1 packages") {
		t.Errorf("unterminated last line should be handled by Finish:\n%s", out)
	}
	if strings.Count(out, "PASS (") != 1 {
		t.Errorf("summary should print once:\n%s", out)
	}
}

func TestProgress_StyleFuncSeesKinds(t *testing.T) {
	var kinds []LineKind
	style := func(kind LineKind, text string) string {
		kinds = append(kinds, kind)
		return text
	}
	var buf bytes.Buffer
	p := New(&buf, 120, 24, style, quarantinedSet("example.com/pkg.TestQ"))
	for _, e := range failingRun("example.com/pkg", "TestQ") {
		p.s.handleEvent(e)
	}
	p.Finish()

	want := map[LineKind]bool{KindQuarantined: false, KindPkgFail: false, KindSeparator: false, KindPass: false}
	for _, k := range kinds {
		if _, ok := want[k]; ok {
			want[k] = true
		}
	}
	for k, seen := range want {
		if !seen {
			t.Errorf("style func never saw kind %d", k)
		}
	}
}
