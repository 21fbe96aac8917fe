package quarantine

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestOverrideLoader_ConcatenatesNestedFiles(t *testing.T) {
	t.Parallel()
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "quarantined-tests.json"),
		`[{"name":"S.A","reason":"root"}]`)
	writeFile(t, filepath.Join(root, "a", "b", "c", "quarantined-tests.json"),
		`[{"name":"S.B","reason":"deep"},{"reason":"no name"}]`)
	writeFile(t, filepath.Join(root, "a", "other.json"), `[{"name":"S.C"}]`)

	got := OverrideLoader{}.Load(context.Background(), LocalWorkspace(root))
	assert.Equal(t, Overrides{
		{Name: "S.A", Reason: "root"},
		{Name: "S.B", Reason: "deep"},
		{Reason: "no name"},
	}, got)

	_, ok := got.Match("S.C")
	assert.False(t, ok, "only files with the override name are read")
	_, ok = got.Match("")
	assert.False(t, ok, "nameless entries never match")
}

func TestOverrideLoader_ShallowFilesFirst(t *testing.T) {
	t.Parallel()
	root := t.TempDir()
	// A lexical walk reads a/b and m before the root file.
	writeFile(t, filepath.Join(root, "a", "b", "quarantined-tests.json"),
		`[{"name":"S.X","reason":"depth 2"}]`)
	writeFile(t, filepath.Join(root, "z", "quarantined-tests.json"),
		`[{"name":"S.X","reason":"depth 1, z"}]`)
	writeFile(t, filepath.Join(root, "m", "quarantined-tests.json"),
		`[{"name":"S.X","reason":"depth 1, m"}]`)
	writeFile(t, filepath.Join(root, "quarantined-tests.json"),
		`[{"name":"S.X","reason":"root"},{"name":"S.Y","reason":"root only"}]`)

	got := OverrideLoader{}.Load(context.Background(), LocalWorkspace(root))
	reasons := make([]string, 0, len(got))
	for _, e := range got {
		reasons = append(reasons, e.Reason)
	}
	assert.Equal(t, []string{"root", "root only", "depth 1, m", "depth 1, z", "depth 2"}, reasons)

	e, ok := got.Match("S.X")
	require.True(t, ok)
	assert.Equal(t, "depth 2", e.Reason, "the deepest file wins")
	e, ok = got.Match("S.Y")
	require.True(t, ok)
	assert.Equal(t, "root only", e.Reason)
}

func TestOverrideLoader_BrokenFileIsIsolated(t *testing.T) {
	t.Parallel()
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "a", "quarantined-tests.json"), `[{"name":`)
	writeFile(t, filepath.Join(root, "b", "quarantined-tests.json"), `{"name":"S.X"}`)
	writeFile(t, filepath.Join(root, "c", "quarantined-tests.json"), `[{"name":"S.Good","reason":"ok"}]`)

	got := OverrideLoader{}.Load(context.Background(), LocalWorkspace(root))
	assert.Equal(t, Overrides{{Name: "S.Good", Reason: "ok"}}, got)
}

func TestOverrideLoader_RemoteWorkspaceIsEmpty(t *testing.T) {
	t.Parallel()
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "quarantined-tests.json"), `[{"name":"S.A"}]`)

	assert.Empty(t, OverrideLoader{}.Load(context.Background(), Workspace{Root: root, Remote: true}))
	assert.Empty(t, OverrideLoader{}.Load(context.Background(), Workspace{}))
}

func TestOverrideLoader_DoesNotFollowSymlinks(t *testing.T) {
	t.Parallel()
	root := t.TempDir()
	outside := t.TempDir()
	writeFile(t, filepath.Join(outside, "quarantined-tests.json"), `[{"name":"S.Outside"}]`)
	writeFile(t, filepath.Join(root, "quarantined-tests.json"), `[{"name":"S.Inside"}]`)
	require.NoError(t, os.Symlink(outside, filepath.Join(root, "linked")))
	require.NoError(t, os.Symlink(root, filepath.Join(root, "loop")))

	got := OverrideLoader{}.Load(context.Background(), LocalWorkspace(root))
	assert.Equal(t, Overrides{{Name: "S.Inside"}}, got)
}

func TestOverrideLoader_CustomFileName(t *testing.T) {
	t.Parallel()
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "skip.json"), `[{"name":"S.A"}]`)

	got := OverrideLoader{FileName: "skip.json"}.Load(context.Background(), LocalWorkspace(root))
	assert.Len(t, got, 1)
}

func TestOverrides_LastMatchWins(t *testing.T) {
	t.Parallel()
	o := Overrides{
		{Name: "S.A", Reason: "first"},
		{Name: "S.B", Reason: "b"},
		{Name: "S.A", Reason: "second"},
	}
	e, ok := o.Match("S.A")
	require.True(t, ok)
	assert.Equal(t, "second", e.Reason)
}
