package quarantine

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dkoosis/quarantine/pkg/history"
	"github.com/dkoosis/quarantine/pkg/testrun"
)

func quarantined(build int, name, by, reason string) *history.Record {
	r := history.NewRecord(build, name)
	r.Quarantine(by, reason, time.Unix(0, 0))
	return r
}

func TestDecide(t *testing.T) {
	t.Parallel()

	run := func() *testrun.Run {
		return results(t, "S", "A=fail", "B=fail", "C=pass", "D=skip")
	}
	tests := []struct {
		name          string
		run           *testrun.Run
		records       map[string]*history.Record
		overrides     Overrides
		prior         history.Verdict
		wantVerdict   history.Verdict
		wantRemaining int
		wantNotify    []QuarantinedFailure
		wantErr       error
	}{
		{
			name:          "uncovered failures make the build unstable",
			run:           run(),
			wantVerdict:   history.Unstable,
			wantRemaining: 2,
		},
		{
			name: "record covers one failure",
			run:  run(),
			records: map[string]*history.Record{
				"S.B": quarantined(1, "S.B", "user1", "flaky"),
			},
			wantVerdict:   history.Unstable,
			wantRemaining: 1,
			wantNotify:    []QuarantinedFailure{{FullName: "S.B", QuarantinedBy: "user1", Reason: "flaky"}},
		},
		{
			name: "record and override cover everything",
			run:  run(),
			records: map[string]*history.Record{
				"S.B": quarantined(1, "S.B", "user1", "flaky"),
			},
			overrides:     Overrides{{Name: "S.A", Reason: "known"}},
			wantVerdict:   history.Success,
			wantRemaining: 0,
			wantNotify:    []QuarantinedFailure{{FullName: "S.B", QuarantinedBy: "user1", Reason: "flaky"}},
		},
		{
			name: "override coverage does not notify",
			run:  run(),
			records: map[string]*history.Record{
				"S.A": quarantined(1, "S.A", "user1", "flaky"),
			},
			overrides:     Overrides{{Name: "S.A"}, {Name: "S.B"}},
			wantVerdict:   history.Success,
			wantRemaining: 0,
		},
		{
			name: "released record does not cover",
			run:  run(),
			records: map[string]*history.Record{
				"S.A": history.NewRecord(1, "S.A"),
			},
			overrides:     Overrides{{Name: "S.B"}},
			wantVerdict:   history.Unstable,
			wantRemaining: 1,
		},
		{
			name:          "quarantine never improves a failing prior",
			run:           results(t, "S", "A=pass"),
			prior:         history.Failure,
			wantVerdict:   history.Failure,
			wantRemaining: 0,
		},
		{
			name:          "remaining failures keep a failure prior",
			run:           run(),
			prior:         history.Failure,
			wantVerdict:   history.Failure,
			wantRemaining: 2,
		},
		{
			name:        "empty run after a failed build step",
			run:         testrun.New(nil),
			prior:       history.Failure,
			wantVerdict: history.Failure,
		},
		{
			name:    "empty run is a configuration error",
			run:     testrun.New(nil),
			prior:   history.Unstable,
			wantErr: ErrEmptyResultSet,
		},
		{
			name:    "nil run is empty",
			run:     nil,
			wantErr: ErrEmptyResultSet,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			d, err := Decide(tt.run, tt.records, tt.overrides, tt.prior)
			if tt.wantErr != nil {
				require.Error(t, err)
				assert.True(t, errors.Is(err, tt.wantErr))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantVerdict, d.Verdict)
			assert.Equal(t, tt.wantRemaining, d.Remaining())
			assert.Equal(t, len(d.Failed)-len(d.Covered), d.Remaining())
			assert.Len(t, d.Uncovered, d.Remaining())
			assert.Equal(t, tt.wantNotify, d.Quarantined())
			if d.Remaining() > 0 {
				assert.NotEqual(t, history.Success, d.Verdict)
			}
		})
	}
}

func TestDecide_CoverageSources(t *testing.T) {
	t.Parallel()

	d, err := Decide(results(t, "S", "A=fail", "B=fail"),
		map[string]*history.Record{"S.B": quarantined(1, "S.B", "u", "rec")},
		Overrides{{Name: "S.A", Reason: "file"}}, history.Success)
	require.NoError(t, err)
	require.Len(t, d.Covered, 2)
	assert.Equal(t, ByOverride, d.Covered[0].Source)
	assert.Equal(t, "file", d.Covered[0].Reason)
	assert.Equal(t, ByRecord, d.Covered[1].Source)
	assert.Equal(t, "u", d.Covered[1].By)
	assert.Equal(t, "record", ByRecord.String())
	assert.Equal(t, "override", ByOverride.String())
}
