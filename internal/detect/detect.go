// Package detect sniffs test-result artifacts to determine their format.
package detect

import (
	"bytes"
	"encoding/json"
)

// Format represents a recognized result format.
type Format int

const (
	Unknown    Format = iota
	GoTestJSON        // go test -json NDJSON stream
	JUnitXML          // JUnit XML report
)

func (f Format) String() string {
	switch f {
	case GoTestJSON:
		return "go-test-json"
	case JUnitXML:
		return "junit-xml"
	default:
		return "unknown"
	}
}

// Sniff examines the first bytes of input to determine format.
// Input must contain at least the first line.
func Sniff(data []byte) Format {
	data = bytes.TrimLeft(data, " \t\r\n\ufeff")
	if len(data) == 0 {
		return Unknown
	}

	switch data[0] {
	case '<':
		if isJUnitXML(data) {
			return JUnitXML
		}
	case '{':
		if isGoTestJSON(data) {
			return GoTestJSON
		}
	}
	return Unknown
}

// isJUnitXML looks for a <testsuites> or <testsuite> element before any other
// element, skipping the XML declaration and comments.
func isJUnitXML(data []byte) bool {
	for len(data) > 0 {
		data = bytes.TrimLeft(data, " \t\r\n")
		switch {
		case bytes.HasPrefix(data, []byte("<?")):
			end := bytes.Index(data, []byte("?>"))
			if end < 0 {
				return false
			}
			data = data[end+2:]
		case bytes.HasPrefix(data, []byte("<!--")):
			end := bytes.Index(data, []byte("-->"))
			if end < 0 {
				return false
			}
			data = data[end+3:]
		case bytes.HasPrefix(data, []byte("<testsuites")), bytes.HasPrefix(data, []byte("<testsuite")):
			return true
		default:
			return false
		}
	}
	return false
}

func isGoTestJSON(data []byte) bool {
	firstLine := data
	if end := bytes.IndexByte(data, '\n'); end >= 0 {
		firstLine = data[:end]
	}

	var event struct {
		Action  string `json:"Action"`
		Package string `json:"Package"`
	}
	if err := json.Unmarshal(firstLine, &event); err != nil {
		return false
	}

	validActions := map[string]bool{
		"start": true, "run": true, "pause": true, "cont": true,
		"pass": true, "bench": true, "fail": true, "output": true, "skip": true,
	}
	return validActions[event.Action]
}
