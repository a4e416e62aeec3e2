package sync

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cybertec-postgresql/census_runner/internal/census"
)

func i64(n int64) *int64 { return &n }

func str(s string) *string { return &s }

func TestClassify(t *testing.T) {
	tests := []struct {
		name       string
		snap       Snapshot
		thresholds Thresholds
		want       Result
		contains   string
	}{
		{
			name: "completed within thresholds",
			snap: Snapshot{RunID: "1", Status: StatusCompleted, RecordsFailed: i64(2), RecordsInvalid: i64(1),
				CompletedAt: str("2024-01-01T10:00:00Z")},
			thresholds: Thresholds{Failure: 2, Invalid: 1},
			want:       Success,
			contains:   "2024-01-01T10:00:00Z",
		},
		{
			name:     "completed with null counters",
			snap:     Snapshot{RunID: "1", Status: StatusCompleted},
			want:     Success,
			contains: "was successful",
		},
		{
			name:     "failed records over threshold",
			snap:     Snapshot{RunID: "1", Status: StatusCompleted, RecordsFailed: i64(5)},
			want:     FailureThresholdExceeded,
			contains: "5 records failed",
		},
		{
			name:     "invalid records over threshold",
			snap:     Snapshot{RunID: "1", Status: StatusCompleted, RecordsInvalid: i64(3)},
			want:     InvalidThresholdExceeded,
			contains: "3 records were invalid",
		},
		{
			name:       "failure threshold wins over invalid threshold",
			snap:       Snapshot{RunID: "1", Status: StatusCompleted, RecordsFailed: i64(5), RecordsInvalid: i64(5)},
			thresholds: Thresholds{Failure: 1, Invalid: 1},
			want:       FailureThresholdExceeded,
		},
		{
			name:     "failed run ignores thresholds",
			snap:     Snapshot{RunID: "1", Status: StatusFailed, RecordsFailed: i64(0), ErrorCode: str("E42"), ErrorMessage: str("bad mapping")},
			want:     RunFailed,
			contains: "E42 bad mapping",
		},
		{
			name:     "failed run without reason",
			snap:     Snapshot{RunID: "1", Status: StatusFailed},
			want:     RunFailed,
			contains: "no reason given",
		},
		{
			name:     "working",
			snap:     Snapshot{RunID: "1", Status: StatusWorking, RecordsProcessed: i64(17)},
			want:     RunIncomplete,
			contains: "17",
		},
		{
			name: "pending",
			snap: Snapshot{RunID: "1", Status: StatusPending},
			want: RunIncomplete,
		},
		{
			name:     "unknown",
			snap:     Snapshot{RunID: "1", Status: StatusUnknown, RawStatus: "exploded"},
			want:     UnknownStatus,
			contains: "exploded",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := Classify(&tt.snap, tt.thresholds)
			assert.Equal(t, tt.want, out.Result)
			assert.Same(t, &tt.snap, out.Snapshot)
			if tt.contains != "" {
				assert.Contains(t, out.Message, tt.contains)
			}
		})
	}
}

func TestClassifyIsPure(t *testing.T) {
	snap := &Snapshot{RunID: "9", Status: StatusCompleted, RecordsFailed: i64(1), RecordsInvalid: i64(0)}
	before := *snap

	first := Classify(snap, Thresholds{})
	second := Classify(snap, Thresholds{})
	assert.Equal(t, first, second)
	assert.Equal(t, before, *snap)
}

func TestParseStatus(t *testing.T) {
	tests := map[string]Status{
		"completed": StatusCompleted,
		"COMPLETED": StatusCompleted,
		"failed":    StatusFailed,
		"working":   StatusWorking,
		"running":   StatusWorking,
		"pending":   StatusPending,
		"queued":    StatusPending,
		"":          StatusUnknown,
		"cancelled": StatusUnknown,
	}
	for in, want := range tests {
		assert.Equal(t, want, ParseStatus(in), in)
	}
	assert.True(t, StatusCompleted.Terminal())
	assert.True(t, StatusFailed.Terminal())
	assert.False(t, StatusPending.Terminal())
	assert.False(t, StatusWorking.Terminal())
	assert.False(t, StatusUnknown.Terminal())
}

func TestSnapshotFromRun(t *testing.T) {
	run := &census.SyncRun{ID: "42", SyncID: "7", Status: "working", RecordsProcessed: i64(3)}
	snap := SnapshotFromRun("41", run)
	assert.Equal(t, "42", snap.RunID)
	assert.Equal(t, "7", snap.SyncID)
	assert.Equal(t, StatusWorking, snap.Status)
	assert.Equal(t, "working", snap.RawStatus)
	assert.Zero(t, snap.Failed())
	assert.Zero(t, snap.Invalid())

	assert.Equal(t, "41", SnapshotFromRun("41", &census.SyncRun{}).RunID)
}

func TestResultNames(t *testing.T) {
	seen := map[string]bool{}
	for _, r := range Results() {
		name := r.String()
		require.NotEmpty(t, name)
		assert.False(t, seen[name], "duplicate name %s", name)
		seen[name] = true
	}
	assert.Equal(t, "SUCCESS", Success.String())
	assert.Equal(t, "RUN_INCOMPLETE", RunIncomplete.String())
	assert.Equal(t, "Result(99)", Result(99).String())
}

func TestThresholdsValidate(t *testing.T) {
	assert.NoError(t, Thresholds{}.Validate())
	assert.Error(t, Thresholds{Failure: -1}.Validate())
	assert.Error(t, Thresholds{Invalid: -1}.Validate())
}

func TestPollConfigValidate(t *testing.T) {
	assert.NoError(t, DefaultPollConfig().Validate())
	assert.Error(t, PollConfig{}.Validate())
	assert.Error(t, PollConfig{Interval: 1, InitialDelay: -1}.Validate())
	assert.Error(t, PollConfig{Interval: 1, Timeout: -1}.Validate())
}

func TestErrorUnwrap(t *testing.T) {
	cause := assert.AnError
	err := newError(TransportError, cause, "request to %s failed", "census")
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "request to census failed: "+cause.Error(), err.Error())

	_, ok := ResultOf(cause)
	assert.False(t, ok)
}
