package quarantine

import (
	"bytes"
	"context"
	"errors"
	"iter"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dkoosis/quarantine/pkg/history"
	"github.com/dkoosis/quarantine/pkg/testrun"
)

func TestArchive_QuarantinedFailureIsCoveredAndNotified(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	h := history.NewMem()
	rec := &recorder{}
	a := newArchiver(h, rec)

	res := archive(t, a, results(t, "SuiteA", "TestA=fail", "TestB=fail"))
	assert.Equal(t, 1, res.Build.Number)
	assert.Equal(t, history.Unstable, res.Build.Verdict)
	assert.Equal(t, 2, res.Decision.Remaining())
	assert.Empty(t, rec.notices)

	changed, err := h.Quarantine(ctx, 1, "SuiteA.TestB", "user1", "flaky")
	require.NoError(t, err)
	require.True(t, changed)

	res = archive(t, a, results(t, "SuiteA", "TestA=fail", "TestB=fail"))
	assert.Equal(t, 2, res.Build.Number)
	assert.Equal(t, history.Unstable, res.Build.Verdict, "TestA is still uncovered")
	assert.Equal(t, 1, res.Decision.Remaining())
	assert.Equal(t, []Notice{{
		Recipient: "user1",
		Build:     2,
		Failures:  []Failure{{FullName: "SuiteA.TestB", Reason: "flaky"}},
	}}, rec.notices)
	assert.Equal(t, rec.notices, res.Notices)
}

func TestArchive_QuarantinedTestPassesCleanly(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	h := history.NewMem()
	rec := &recorder{}
	a := newArchiver(h, rec)

	archive(t, a, results(t, "SuiteA", "TestA=pass", "TestB=fail"))
	_, err := h.Quarantine(ctx, 1, "SuiteA.TestB", "user1", "flaky")
	require.NoError(t, err)

	res := archive(t, a, results(t, "SuiteA", "TestA=pass", "TestB=pass"))
	assert.Equal(t, history.Success, res.Build.Verdict)
	assert.Empty(t, rec.notices)

	r := &Resolver{History: h}
	n, err := r.SuccessivePasses(ctx, "SuiteA.TestB")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestArchive_ReleaseAppliesToNextBuild(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	h := history.NewMem()
	a := newArchiver(h, nil)

	archive(t, a, results(t, "S", "T=fail"))
	_, err := h.Quarantine(ctx, 1, "S.T", "user1", "flaky")
	require.NoError(t, err)
	res := archive(t, a, results(t, "S", "T=fail"))
	require.Equal(t, history.Success, res.Build.Verdict)

	_, err = h.Release(ctx, 2, "S.T")
	require.NoError(t, err)
	assert.Equal(t, history.Success, mustGet(t, h, 2).Verdict, "release never rewrites a sealed verdict")

	res = archive(t, a, results(t, "S", "T=fail"))
	assert.NotEqual(t, history.Success, res.Build.Verdict)
}

func TestArchive_OneNoticePerOwner(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	h := history.NewMem()
	rec := &recorder{}
	a := newArchiver(h, rec)

	archive(t, a, results(t, "S", "A=fail", "B=fail", "C=fail", "D=fail"))
	for name, owner := range map[string]string{"S.A": "alice", "S.B": "bob", "S.C": "alice", "S.D": ""} {
		_, err := h.Quarantine(ctx, 1, name, owner, "r")
		require.NoError(t, err)
	}
	res := archive(t, a, results(t, "S", "A=fail", "B=fail", "C=fail", "D=fail"))
	assert.Equal(t, history.Success, res.Build.Verdict)
	require.Len(t, rec.notices, 2)
	assert.Equal(t, "alice", rec.notices[0].Recipient)
	assert.Len(t, rec.notices[0].Failures, 2)
	assert.Equal(t, "bob", rec.notices[1].Recipient)
}

func TestArchive_NotifierErrorIsNotFatal(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	h := history.NewMem()
	rec := &recorder{err: errors.New("smtp down")}
	a := newArchiver(h, rec)
	var logs bytes.Buffer
	a.Log = slog.New(slog.NewTextHandler(&logs, nil))

	archive(t, a, results(t, "S", "T=fail"))
	_, err := h.Quarantine(ctx, 1, "S.T", "user1", "r")
	require.NoError(t, err)

	res := archive(t, a, results(t, "S", "T=fail"))
	assert.Equal(t, history.Success, res.Build.Verdict)
	assert.Len(t, rec.notices, 1)
	assert.Contains(t, logs.String(), "notification failed")
	assert.Contains(t, logs.String(), "failed but is quarantined")
}

func TestArchive_OverridesFromWorkspace(t *testing.T) {
	t.Parallel()
	h := history.NewMem()
	rec := &recorder{}
	a := newArchiver(h, rec)
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "module", "quarantined-tests.json"),
		`[{"name":"S.T","reason":"tracked in issue 12"}]`)

	res, err := a.Archive(context.Background(), Request{
		Run:       results(t, "S", "T=fail", "U=pass"),
		Workspace: LocalWorkspace(root),
	})
	require.NoError(t, err)
	assert.Equal(t, history.Success, res.Build.Verdict)
	assert.Equal(t, 1, res.Overrides)
	assert.Empty(t, rec.notices)

	r, _ := res.Build.Record("S.T")
	assert.False(t, r.IsQuarantined(), "overrides are not persisted")

	res, err = a.Archive(context.Background(), Request{Run: results(t, "S", "T=fail")})
	require.NoError(t, err)
	assert.Equal(t, history.Unstable, res.Build.Verdict, "overrides apply to one build only")
}

func TestArchive_EmptyResults(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	h := history.NewMem()
	a := newArchiver(h, nil)

	_, err := a.Archive(ctx, Request{Run: testrun.New(nil)})
	require.ErrorIs(t, err, ErrEmptyResultSet)
	head, err := h.Head(ctx)
	require.NoError(t, err)
	assert.Nil(t, head, "a failed archive commits nothing")

	res, err := a.Archive(ctx, Request{Run: testrun.New(nil), Prior: history.Failure})
	require.NoError(t, err)
	assert.Equal(t, history.Failure, res.Build.Verdict)
	assert.Equal(t, 1, res.Build.Number)
	assert.True(t, res.Build.Run.IsEmpty())
}

func TestArchive_PriorFailureIsKept(t *testing.T) {
	t.Parallel()
	a := newArchiver(history.NewMem(), nil)

	res, err := a.Archive(context.Background(), Request{
		Run:   results(t, "S", "T=fail"),
		Prior: history.Failure,
	})
	require.NoError(t, err)
	assert.Equal(t, history.Failure, res.Build.Verdict)
}

// cancellingLedger cancels the archive context once history is traversed.
type cancellingLedger struct {
	*history.Mem
	cancel context.CancelFunc
}

func (l cancellingLedger) Before(ctx context.Context, n int) iter.Seq2[*history.Build, error] {
	l.cancel()
	return l.Mem.Before(ctx, n)
}

func TestArchive_CancelledWhileResolvingCommitsNothing(t *testing.T) {
	t.Parallel()
	h := history.NewMem()
	archive(t, newArchiver(h, nil), results(t, "SuiteA", "TestA=fail"))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	a := newArchiver(h, nil)
	a.Ledger = cancellingLedger{Mem: h, cancel: cancel}

	_, err := a.Archive(ctx, Request{Run: results(t, "SuiteA", "TestA=fail")})
	require.ErrorIs(t, err, context.Canceled)

	head, err := h.Head(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, head.Number, "a cancelled step commits no build")
}

func TestArchive_TraversalErrorIsNotFatal(t *testing.T) {
	t.Parallel()
	h := history.NewMem()
	archive(t, newArchiver(h, nil), results(t, "SuiteA", "TestA=fail"))

	var logs bytes.Buffer
	a := newArchiver(h, nil)
	a.Ledger = struct {
		brokenHistory
		history.Appender
	}{brokenHistory{History: h, bad: 1}, h}
	a.Log = slog.New(slog.NewTextHandler(&logs, nil))

	res, err := a.Archive(context.Background(), Request{Run: results(t, "SuiteA", "TestA=fail")})
	require.NoError(t, err)
	assert.Equal(t, 2, res.Build.Number)
	assert.Equal(t, history.Unstable, res.Build.Verdict)
	assert.Contains(t, logs.String(), "carry-forward stopped")
}
