// Package junit parses JUnit XML reports into test runs.
//
// Both document shapes seen in the wild are accepted: a <testsuites> root
// (possibly nesting suites) and a bare <testsuite> root. A case's identity is
// classname + "." + name; when classname is missing the enclosing suite name
// is used instead.
package junit

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/dkoosis/quarantine/pkg/testrun"
)

type xmlSuites struct {
	XMLName xml.Name   `xml:"testsuites"`
	Suites  []xmlSuite `xml:"testsuite"`
}

type xmlSuite struct {
	Name   string     `xml:"name,attr"`
	Time   string     `xml:"time,attr"`
	Cases  []xmlCase  `xml:"testcase"`
	Suites []xmlSuite `xml:"testsuite"`
}

type xmlCase struct {
	ClassName string      `xml:"classname,attr"`
	Name      string      `xml:"name,attr"`
	Time      string      `xml:"time,attr"`
	Failure   *xmlProblem `xml:"failure"`
	Error     *xmlProblem `xml:"error"`
	Skipped   *xmlProblem `xml:"skipped"`
	SystemOut string      `xml:"system-out"`
}

type xmlProblem struct {
	Message string `xml:"message,attr"`
	Type    string `xml:"type,attr"`
	Body    string `xml:",chardata"`
}

// ErrNotJUnit is returned when the document root is neither <testsuites> nor <testsuite>.
var ErrNotJUnit = errors.New("not a JUnit XML document")

// Parse reads one JUnit XML document.
func Parse(r io.Reader) (*testrun.Run, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("reading junit report: %w", err)
	}
	return ParseBytes(data)
}

// ParseBytes parses one JUnit XML document held in memory.
func ParseBytes(data []byte) (*testrun.Run, error) {
	root, err := rootElement(data)
	if err != nil {
		return nil, err
	}

	var top []xmlSuite
	switch root {
	case "testsuites":
		var doc xmlSuites
		if err := xml.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("decoding junit report: %w", err)
		}
		top = doc.Suites
	case "testsuite":
		var s xmlSuite
		if err := xml.Unmarshal(data, &s); err != nil {
			return nil, fmt.Errorf("decoding junit report: %w", err)
		}
		top = []xmlSuite{s}
	default:
		return nil, fmt.Errorf("%w: root element <%s>", ErrNotJUnit, root)
	}

	var suites []testrun.Suite
	for _, s := range top {
		suites = flatten(suites, s)
	}
	return testrun.New(suites), nil
}

// rootElement returns the local name of the first start element.
func rootElement(data []byte) (string, error) {
	dec := xml.NewDecoder(bytes.NewReader(data))
	for {
		tok, err := dec.Token()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return "", fmt.Errorf("%w: empty document", ErrNotJUnit)
			}
			return "", fmt.Errorf("decoding junit report: %w", err)
		}
		if se, ok := tok.(xml.StartElement); ok {
			return se.Name.Local, nil
		}
	}
}

func flatten(out []testrun.Suite, s xmlSuite) []testrun.Suite {
	// Group cases by their effective suite (classname) preserving first-seen order.
	byName := map[string]int{}
	var local []testrun.Suite
	for _, xc := range s.Cases {
		suiteName := xc.ClassName
		if suiteName == "" {
			suiteName = s.Name
		}
		idx, ok := byName[suiteName]
		if !ok {
			local = append(local, testrun.Suite{Name: suiteName})
			idx = len(local) - 1
			byName[suiteName] = idx
		}
		local[idx].Cases = append(local[idx].Cases, toCase(suiteName, xc))
	}
	if len(local) > 0 {
		local[0].Duration = seconds(s.Time)
	}
	out = append(out, local...)
	for _, child := range s.Suites {
		out = flatten(out, child)
	}
	return out
}

func toCase(suite string, xc xmlCase) testrun.Case {
	c := testrun.Case{
		Suite:    suite,
		Name:     xc.Name,
		Outcome:  testrun.Pass,
		Duration: seconds(xc.Time),
	}
	switch {
	case xc.Failure != nil:
		c.Outcome = testrun.Fail
		c.Output = problemLines(xc.Failure)
	case xc.Error != nil:
		c.Outcome = testrun.Fail
		c.Output = problemLines(xc.Error)
	case xc.Skipped != nil:
		c.Outcome = testrun.Skipped
	}
	return c
}

func problemLines(p *xmlProblem) []string {
	var out []string
	if p.Message != "" {
		out = append(out, p.Message)
	}
	for _, line := range strings.Split(strings.TrimSpace(p.Body), "\n") {
		if line = strings.TrimRight(line, "\r"); line != "" {
			out = append(out, line)
		}
	}
	return out
}

func seconds(s string) time.Duration {
	if s == "" {
		return 0
	}
	f, err := strconv.ParseFloat(strings.ReplaceAll(s, ",", ""), 64)
	if err != nil || f < 0 {
		return 0
	}
	return time.Duration(f * float64(time.Second))
}
