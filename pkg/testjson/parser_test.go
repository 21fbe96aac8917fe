package testjson

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dkoosis/quarantine/pkg/testrun"
)

func lines(ls ...string) string { return strings.Join(ls, "\n") + "\n" }

func TestParseStream_BasicPassFail(t *testing.T) {
	input := lines(
		`{"Time":"2024-01-01T00:00:00Z","Action":"run","Package":"example.com/pkg","Test":"TestA"}`,
		`{"Time":"2024-01-01T00:00:00Z","Action":"pass","Package":"example.com/pkg","Test":"TestA","Elapsed":0.1}`,
		`{"Time":"2024-01-01T00:00:00Z","Action":"run","Package":"example.com/pkg","Test":"TestB"}`,
		`{"Time":"2024-01-01T00:00:00Z","Action":"output","Package":"example.com/pkg","Test":"TestB","Output":"    b_test.go:9: nope\n"}`,
		`{"Time":"2024-01-01T00:00:00Z","Action":"fail","Package":"example.com/pkg","Test":"TestB","Elapsed":0.2}`,
		`{"Time":"2024-01-01T00:00:00Z","Action":"fail","Package":"example.com/pkg","Elapsed":0.5}`,
	)

	res, err := ParseStream(strings.NewReader(input))
	require.NoError(t, err)
	require.Equal(t, 2, res.Run.Len())
	assert.Empty(t, res.Broken, "package failed because of a test, not a build error")

	a, ok := res.Run.Case("example.com/pkg.TestA")
	require.True(t, ok)
	assert.Equal(t, testrun.Pass, a.Outcome)

	b, ok := res.Run.Case("example.com/pkg.TestB")
	require.True(t, ok)
	assert.Equal(t, testrun.Fail, b.Outcome)
	assert.Equal(t, []string{"    b_test.go:9: nope"}, b.Output)
}

func TestParseStream_SubtestsAreCases(t *testing.T) {
	input := lines(
		`{"Action":"run","Package":"p","Test":"TestT"}`,
		`{"Action":"run","Package":"p","Test":"TestT/sub"}`,
		`{"Action":"skip","Package":"p","Test":"TestT/sub"}`,
		`{"Action":"pass","Package":"p","Test":"TestT"}`,
		`{"Action":"pass","Package":"p"}`,
	)
	res, err := ParseStream(strings.NewReader(input))
	require.NoError(t, err)

	sub, ok := res.Run.Case("p.TestT/sub")
	require.True(t, ok)
	assert.Equal(t, testrun.Skipped, sub.Outcome)
}

func TestParseStream_BuildErrorIsBroken(t *testing.T) {
	input := lines(
		`{"Action":"output","Package":"example.com/bad","Output":"# example.com/bad\n"}`,
		`{"Action":"output","Package":"example.com/bad","Output":"bad.go:3:1: syntax error\n"}`,
		`{"Action":"fail","Package":"example.com/bad","Elapsed":0}`,
	)
	res, err := ParseStream(strings.NewReader(input))
	require.NoError(t, err)

	assert.True(t, res.Run.IsEmpty())
	require.Len(t, res.Broken, 1)
	assert.Equal(t, "example.com/bad", res.Broken[0].Name)
	assert.False(t, res.Broken[0].Panicked)
	assert.Contains(t, res.Broken[0].Output, "bad.go:3:1: syntax error")
}

func TestParseStream_PanicWithoutTestFailure(t *testing.T) {
	input := lines(
		`{"Action":"run","Package":"p","Test":"TestBad"}`,
		`{"Action":"output","Package":"p","Output":"panic: runtime error: index out of range\n"}`,
		`{"Action":"fail","Package":"p","Elapsed":0}`,
	)
	res, err := ParseStream(strings.NewReader(input))
	require.NoError(t, err)

	require.Len(t, res.Broken, 1)
	assert.True(t, res.Broken[0].Panicked)
	bad, ok := res.Run.Case("p.TestBad")
	require.True(t, ok)
	assert.Equal(t, testrun.Fail, bad.Outcome, "a test that never finished counts as failed")
}

func TestParseStream_TimedOutTestIsKeptAsFailure(t *testing.T) {
	input := lines(
		`{"Action":"run","Package":"p","Test":"TestOK"}`,
		`{"Action":"pass","Package":"p","Test":"TestOK","Elapsed":0.01}`,
		`{"Action":"run","Package":"p","Test":"TestHang"}`,
		`{"Action":"output","Package":"p","Test":"TestHang","Output":"panic: test timed out after 10m0s\n"}`,
		`{"Action":"output","Package":"p","Test":"TestHang","Output":"\trunning tests:\n"}`,
		`{"Action":"fail","Package":"p","Elapsed":600}`,
	)
	res, err := ParseStream(strings.NewReader(input))
	require.NoError(t, err)

	assert.Equal(t, 2, res.Run.Len())
	hang, ok := res.Run.Case("p.TestHang")
	require.True(t, ok, "a started test stays in the run")
	assert.Equal(t, testrun.Fail, hang.Outcome)
	assert.Contains(t, hang.Output, "panic: test timed out after 10m0s")

	require.Len(t, res.Broken, 1)
	assert.True(t, res.Broken[0].Panicked, "a panic inside a test breaks the package")
	assert.Equal(t, []string{"panic: test timed out after 10m0s", "\trunning tests:"}, res.Broken[0].Output)
}

func TestParseStream_IndentedPanicTextIsNotAPanic(t *testing.T) {
	input := lines(
		`{"Action":"run","Package":"p","Test":"TestLog"}`,
		`{"Action":"output","Package":"p","Test":"TestLog","Output":"    log.go:9: panic: recovered\n"}`,
		`{"Action":"fail","Package":"p","Test":"TestLog","Elapsed":0.01}`,
		`{"Action":"fail","Package":"p","Elapsed":0.1}`,
	)
	res, err := ParseStream(strings.NewReader(input))
	require.NoError(t, err)
	assert.Empty(t, res.Broken, "an ordinary failing test does not break its package")
}

func TestParseStream_SkipsEmptyPackages(t *testing.T) {
	res, err := ParseStream(strings.NewReader(`{"Action":"start","Package":"example.com/empty"}` + "\n"))
	require.NoError(t, err)
	assert.True(t, res.Run.IsEmpty())
	assert.Empty(t, res.Broken)
}

func TestParseStream_MalformedLinesSkipped(t *testing.T) {
	input := "not json\n{bad json\n" + lines(
		`{"Action":"run","Package":"x","Test":"T"}`,
		`{"Action":"pass","Package":"x","Test":"T","Elapsed":0.1}`,
		`{"Action":"pass","Package":"x","Elapsed":0.1}`,
	)
	res, err := ParseBytes([]byte(input))
	require.NoError(t, err)
	assert.Equal(t, 2, res.Malformed)
	assert.Equal(t, 1, res.Run.Len())
}
