// Package collect turns the test-result files of a workspace into one test run.
package collect

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/gobwas/glob"

	"github.com/dkoosis/quarantine/internal/detect"
	"github.com/dkoosis/quarantine/pkg/junit"
	"github.com/dkoosis/quarantine/pkg/quarantine"
	"github.com/dkoosis/quarantine/pkg/testjson"
	"github.com/dkoosis/quarantine/pkg/testrun"
)

// Stdin is the pattern that reads a single result stream from standard input.
const Stdin = "-"

// sniffLen is how much of a file is read to detect its format.
const sniffLen = 4096

// Collection is the merged content of every matched result file.
type Collection struct {
	Run   *testrun.Run
	Files []string // workspace-relative, in merge order

	// Broken lists go test packages that failed outside any test.
	Broken []testjson.BrokenPackage
}

// Collector resolves a result pattern inside a workspace.
//
// Patterns use forward slashes; "*" stays within one directory and "**"
// crosses directories, so "**/*.xml" finds reports at any depth below the
// root and "{*.xml,**/*.xml}" includes the root itself.
type Collector struct {
	Pattern string
	Log     *slog.Logger
}

// Collect parses every file under root that matches the pattern, in lexical
// path order. No match yields an empty run. A file that is neither JUnit XML
// nor go test -json, or fails to parse, aborts with a ResultParseError.
func (c Collector) Collect(ctx context.Context, root string) (*Collection, error) {
	log := c.Log
	if log == nil {
		log = slog.Default()
	}
	g, err := glob.Compile(c.Pattern, '/')
	if err != nil {
		return nil, &quarantine.ResultParseError{Pattern: c.Pattern, Err: fmt.Errorf("invalid pattern: %w", err)}
	}

	var files []string
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if cerr := ctx.Err(); cerr != nil {
			return cerr
		}
		if err != nil {
			return err
		}
		if !d.Type().IsRegular() {
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		if rel = filepath.ToSlash(rel); g.Match(rel) {
			files = append(files, rel)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan %s for %q: %w", root, c.Pattern, err)
	}
	if len(files) == 0 {
		log.Warn("no test result files matched", slog.String("pattern", c.Pattern), slog.String("root", root))
	}

	col := &Collection{Files: files}
	runs := make([]*testrun.Run, 0, len(files))
	for _, rel := range files {
		data, err := os.ReadFile(filepath.Join(root, filepath.FromSlash(rel)))
		if err != nil {
			return nil, &quarantine.ResultParseError{Pattern: c.Pattern, File: rel, Err: err}
		}
		run, broken, err := parse(data)
		if err != nil {
			return nil, &quarantine.ResultParseError{Pattern: c.Pattern, File: rel, Err: err}
		}
		log.Debug("parsed result file", slog.String("file", rel), slog.Int("cases", run.Len()))
		runs = append(runs, run)
		col.Broken = append(col.Broken, broken...)
	}
	col.Run = testrun.Merge(runs...)
	return col, nil
}

// FromReader parses a single result stream, typically standard input.
func FromReader(r io.Reader) (*Collection, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, &quarantine.ResultParseError{Pattern: Stdin, Err: err}
	}
	col := &Collection{Files: []string{Stdin}}
	if len(bytes.TrimSpace(data)) == 0 {
		col.Run = testrun.New(nil)
		return col, nil
	}
	run, broken, err := parse(data)
	if err != nil {
		return nil, &quarantine.ResultParseError{Pattern: Stdin, Err: err}
	}
	col.Run = run
	col.Broken = broken
	return col, nil
}

var errUnknownFormat = errors.New("unrecognized result format (expected JUnit XML or go test -json)")

func parse(data []byte) (*testrun.Run, []testjson.BrokenPackage, error) {
	head := data
	if len(head) > sniffLen {
		head = head[:sniffLen]
	}
	switch detect.Sniff(head) {
	case detect.JUnitXML:
		run, err := junit.ParseBytes(data)
		return run, nil, err
	case detect.GoTestJSON:
		res, err := testjson.ParseBytes(data)
		if err != nil {
			return nil, nil, err
		}
		return res.Run, res.Broken, nil
	default:
		return nil, nil, errUnknownFormat
	}
}
