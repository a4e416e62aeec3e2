package sync

import (
	"strings"

	"github.com/cybertec-postgresql/census_runner/internal/census"
)

// Status is the lifecycle state of a sync run
type Status string

const (
	StatusPending   Status = "pending"
	StatusWorking   Status = "working"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
	StatusUnknown   Status = "unknown"
)

// ParseStatus maps a Census status string onto Status
func ParseStatus(s string) Status {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "pending", "queued":
		return StatusPending
	case "working", "running":
		return StatusWorking
	case "completed":
		return StatusCompleted
	case "failed":
		return StatusFailed
	default:
		return StatusUnknown
	}
}

// Terminal reports whether the run has finished, successfully or not. Any
// other status, unknown ones included, may still change.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// Snapshot is one fetched view of a sync run. It is never modified after creation.
type Snapshot struct {
	RunID     string
	SyncID    string
	Status    Status
	RawStatus string

	RecordsProcessed *int64
	RecordsFailed    *int64
	RecordsInvalid   *int64

	ErrorCode    *string
	ErrorMessage *string
	CompletedAt  *string
}

// SnapshotFromRun converts the API payload for runID
func SnapshotFromRun(runID string, run *census.SyncRun) *Snapshot {
	if run.ID != "" {
		runID = string(run.ID)
	}
	return &Snapshot{
		RunID:            runID,
		SyncID:           string(run.SyncID),
		Status:           ParseStatus(run.Status),
		RawStatus:        run.Status,
		RecordsProcessed: run.RecordsProcessed,
		RecordsFailed:    run.RecordsFailed,
		RecordsInvalid:   run.RecordsInvalid,
		ErrorCode:        run.ErrorCode,
		ErrorMessage:     run.ErrorMessage,
		CompletedAt:      run.CompletedAt,
	}
}

// Failed is the number of failed records, 0 when not reported
func (s *Snapshot) Failed() int64 {
	return count(s.RecordsFailed)
}

// Invalid is the number of invalid records, 0 when not reported
func (s *Snapshot) Invalid() int64 {
	return count(s.RecordsInvalid)
}

func count(n *int64) int64 {
	if n == nil {
		return 0
	}
	return *n
}

func text(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
