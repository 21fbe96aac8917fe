package testjson

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/dkoosis/quarantine/pkg/testrun"
)

const (
	actionRun    = "run"
	actionPass   = "pass"
	actionFail   = "fail"
	actionSkip   = "skip"
	actionOutput = "output"
)

// ParseStream parses go test -json NDJSON from a reader, line by line.
// Malformed lines are counted and skipped.
func ParseStream(r io.Reader) (*Result, error) {
	agg := newAggregator()
	scanner := bufio.NewScanner(r)
	// Allow large lines for verbose test output
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var malformed int
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(bytes.TrimSpace(line)) == 0 {
			continue
		}
		var event Event
		if err := json.Unmarshal(line, &event); err != nil {
			malformed++
			continue
		}
		agg.processEvent(event)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scanning test output: %w", err)
	}
	res := agg.result()
	res.Malformed = malformed
	return res, nil
}

// ParseBytes is a convenience for parsing from a byte slice.
func ParseBytes(data []byte) (*Result, error) {
	return ParseStream(bytes.NewReader(data))
}

type aggregator struct {
	packages map[string]*pkgState
	order    []string
}

type pkgState struct {
	name      string
	duration  time.Duration
	tests     map[string]*testState
	testOrder []string
	failed    bool
	panicked  bool
	panicTest string // test whose output carried the panic, if any
	// output per test; "" holds package-level output
	outputBuf map[string][]string
}

type testState struct {
	name     string
	outcome  testrun.Outcome
	done     bool
	duration time.Duration
	output   []string
}

func newAggregator() *aggregator {
	return &aggregator{packages: make(map[string]*pkgState)}
}

func (a *aggregator) getOrCreate(name string) *pkgState {
	if pkg, ok := a.packages[name]; ok {
		return pkg
	}
	pkg := &pkgState{
		name:      name,
		tests:     make(map[string]*testState),
		outputBuf: make(map[string][]string),
	}
	a.packages[name] = pkg
	a.order = append(a.order, name)
	return pkg
}

func (a *aggregator) processEvent(e Event) {
	pkg := a.getOrCreate(e.Package)
	elapsed := time.Duration(e.Elapsed * float64(time.Second))

	switch e.Action {
	case actionRun:
		if e.Test != "" {
			pkg.getOrCreateTest(e.Test)
		}

	case actionPass, actionFail, actionSkip:
		if e.Test == "" {
			pkg.duration = elapsed
			if e.Action == actionFail {
				pkg.failed = true
			}
			return
		}
		ts := pkg.getOrCreateTest(e.Test)
		ts.done = true
		ts.duration = elapsed
		switch e.Action {
		case actionPass:
			ts.outcome = testrun.Pass
		case actionFail:
			ts.outcome = testrun.Fail
			ts.output = pkg.outputBuf[e.Test]
		default:
			ts.outcome = testrun.Skipped
		}

	case actionOutput:
		output := strings.TrimRight(e.Output, "\n")
		if output == "" {
			return
		}
		pkg.outputBuf[e.Test] = append(pkg.outputBuf[e.Test], output)
		// A panic inside a test, a timeout included, kills the whole test
		// binary, so it breaks the package like a package-level panic.
		switch {
		case strings.HasPrefix(output, "panic:"):
			if !pkg.panicked {
				pkg.panicTest = e.Test
			}
			pkg.panicked = true
		case e.Test == "" && strings.HasPrefix(output, "goroutine "):
			pkg.panicked = true
		}
	}
}

func (pkg *pkgState) getOrCreateTest(name string) *testState {
	if ts, ok := pkg.tests[name]; ok {
		return ts
	}
	ts := &testState{name: name}
	pkg.tests[name] = ts
	pkg.testOrder = append(pkg.testOrder, name)
	return ts
}

func (a *aggregator) result() *Result {
	res := &Result{}
	suites := make([]testrun.Suite, 0, len(a.order))
	for _, name := range a.order {
		pkg := a.packages[name]
		suite := testrun.Suite{Name: pkg.name, Duration: pkg.duration}
		anyFailed := false
		for _, testName := range pkg.testOrder {
			ts := pkg.tests[testName]
			if !ts.done {
				// Started but never reported: the binary died under it.
				ts.outcome = testrun.Fail
				ts.output = pkg.outputBuf[testName]
			}
			if ts.outcome == testrun.Fail {
				anyFailed = true
			}
			suite.Cases = append(suite.Cases, testrun.Case{
				Suite:    pkg.name,
				Name:     ts.name,
				Outcome:  ts.outcome,
				Duration: ts.duration,
				Output:   ts.output,
			})
		}
		// A failed package with no failed test is a build error or a
		// package-level panic; both live outside the test phase.
		if pkg.panicked || (pkg.failed && !anyFailed) {
			out := pkg.outputBuf[""]
			if len(out) == 0 && pkg.panicTest != "" {
				out = pkg.outputBuf[pkg.panicTest]
			}
			res.Broken = append(res.Broken, BrokenPackage{
				Name:     pkg.name,
				Panicked: pkg.panicked,
				Output:   out,
			})
		}
		if len(suite.Cases) > 0 {
			suites = append(suites, suite)
		}
	}
	res.Run = testrun.New(suites)
	return res
}
