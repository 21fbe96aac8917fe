// Package testjson parses go test -json NDJSON streams into test runs.
package testjson

import (
	"time"

	"github.com/dkoosis/quarantine/pkg/testrun"
)

// Event represents a single event from go test -json output.
type Event struct {
	Time    time.Time `json:"Time"`
	Action  string    `json:"Action"` // start, run, pass, fail, skip, output, bench, pause, cont
	Package string    `json:"Package"`
	Test    string    `json:"Test"`
	Elapsed float64   `json:"Elapsed"`
	Output  string    `json:"Output"`
}

// Result is a parsed go test -json stream.
type Result struct {
	Run *testrun.Run

	// Broken lists packages that failed outside any test: build errors and
	// package-level panics. Quarantine cannot cover these.
	Broken []BrokenPackage

	// Malformed counts lines that were not valid JSON events.
	Malformed int
}

// BrokenPackage is a package that failed before or around its tests.
type BrokenPackage struct {
	Name     string
	Panicked bool
	Output   []string
}
