package quarantine

import (
	"cmp"
	"context"
	"encoding/json"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
)

// DefaultOverrideFile is the file name scanned for per-build overrides.
const DefaultOverrideFile = "quarantined-tests.json"

// OverrideEntry force-quarantines one test for a single build.
// An entry without a name never matches.
type OverrideEntry struct {
	Name   string `json:"name"`
	Reason string `json:"reason"`
}

// Overrides is the concatenation of every override file found in a workspace.
type Overrides []OverrideEntry

// Match returns the entry for fullName. When a name is listed more than once
// the last entry wins.
func (o Overrides) Match(fullName string) (OverrideEntry, bool) {
	if fullName == "" {
		return OverrideEntry{}, false
	}
	for i := len(o) - 1; i >= 0; i-- {
		if o[i].Name == fullName {
			return o[i], true
		}
	}
	return OverrideEntry{}, false
}

// Workspace is the file tree a build ran in.
type Workspace struct {
	Root string
	// Remote marks a workspace that is not addressable from this process.
	// Override files are never loaded from it.
	Remote bool
}

// LocalWorkspace returns a workspace rooted at dir.
func LocalWorkspace(dir string) Workspace { return Workspace{Root: dir} }

// OverrideLoader collects override files from a workspace.
type OverrideLoader struct {
	// FileName defaults to DefaultOverrideFile.
	FileName string
	Log      *slog.Logger
}

// Load scans ws for override files at any depth and concatenates their entries.
// Files are read shallowest first, and files at the same depth in lexical path
// order, so with last-match-wins a deeper file overrides the reason given by a
// shallower one. A file that cannot be read or parsed is logged and skipped.
// Symbolic links are never followed.
func (l OverrideLoader) Load(ctx context.Context, ws Workspace) Overrides {
	log := l.Log
	if log == nil {
		log = slog.Default()
	}
	if ws.Remote || ws.Root == "" {
		log.Debug("workspace is not local; no overrides loaded", slog.String("root", ws.Root))
		return nil
	}
	name := l.FileName
	if name == "" {
		name = DefaultOverrideFile
	}

	var paths []string
	walkErr := filepath.WalkDir(ws.Root, func(path string, d fs.DirEntry, err error) error {
		if cerr := ctx.Err(); cerr != nil {
			return cerr
		}
		if err != nil {
			log.Warn("skipping unreadable path", slog.String("path", path), slog.Any("error", err))
			if d != nil && d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() || d.Name() != name {
			return nil
		}
		paths = append(paths, path)
		return nil
	})
	if walkErr != nil {
		log.Warn("override scan incomplete", slog.String("root", ws.Root), slog.Any("error", walkErr))
	}

	slices.SortFunc(paths, func(a, b string) int {
		return cmp.Or(cmp.Compare(depth(a), depth(b)), strings.Compare(a, b))
	})
	var out Overrides
	for _, path := range paths {
		entries, err := readOverrideFile(path)
		if err != nil {
			log.Warn("ignoring override file", slog.Any("error", err))
			continue
		}
		log.Debug("loaded override file", slog.String("path", path), slog.Int("entries", len(entries)))
		out = append(out, entries...)
	}
	return out
}

func depth(path string) int {
	return strings.Count(filepath.ToSlash(path), "/")
}

func readOverrideFile(path string) ([]OverrideEntry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &OverrideLoadError{Path: path, Err: err}
	}
	var entries []OverrideEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, &OverrideLoadError{Path: path, Err: err}
	}
	if entries == nil {
		return nil, &OverrideLoadError{Path: path, Err: errors.New("expected a JSON array")}
	}
	return entries, nil
}
