package sync

import (
	"fmt"
	"strings"
)

// Classify turns a snapshot into an outcome. A completed run is checked
// against the failure threshold before the invalid threshold, so a run over
// both limits reports FailureThresholdExceeded.
func Classify(s *Snapshot, t Thresholds) Outcome {
	out := Outcome{Snapshot: s}

	switch s.Status {
	case StatusCompleted:
		failed, invalid := s.Failed(), s.Invalid()
		switch {
		case failed > t.Failure:
			out.Result = FailureThresholdExceeded
			out.Message = fmt.Sprintf("Census reports that %d records failed in run %s, which is over your threshold of %d.",
				failed, s.RunID, t.Failure)
		case invalid > t.Invalid:
			out.Result = InvalidThresholdExceeded
			out.Message = fmt.Sprintf("Census reports that %d records were invalid in run %s, which is over your threshold of %d.",
				invalid, s.RunID, t.Invalid)
		default:
			out.Result = Success
			out.Message = fmt.Sprintf("Census reports that run %s was successful.", s.RunID)
			if s.CompletedAt != nil {
				out.Message += " Completed at: " + *s.CompletedAt
			}
		}

	case StatusFailed:
		out.Result = RunFailed
		reason := strings.TrimSpace(text(s.ErrorCode) + " " + text(s.ErrorMessage))
		if reason == "" {
			reason = "no reason given"
		}
		out.Message = fmt.Sprintf("Census reports that run %s failed. Reason: %s", s.RunID, reason)

	case StatusPending, StatusWorking:
		out.Result = RunIncomplete
		out.Message = fmt.Sprintf("Census reports that sync run %s is not yet completed (%s).", s.RunID, s.Status)
		if s.RecordsProcessed != nil {
			out.Message += fmt.Sprintf(" Records processed so far: %d", *s.RecordsProcessed)
		}

	default:
		out.Result = UnknownStatus
		out.Message = fmt.Sprintf("Census reports an unknown status %q for sync run %s.", s.RawStatus, s.RunID)
	}

	return out
}
