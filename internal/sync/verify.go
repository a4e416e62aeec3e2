package sync

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/cybertec-postgresql/census_runner/internal/census"
	"github.com/cybertec-postgresql/census_runner/internal/retry"
)

// Check fetches the current state of runID once and classifies it
func (s *Service) Check(ctx context.Context, runID string, t Thresholds) (Outcome, error) {
	snap, err := s.fetch(ctx, runID)
	if err != nil {
		return Outcome{}, err
	}
	out := Classify(snap, t)
	s.recordCheck(ctx, snap, out.Result)
	return out, nil
}

// WaitForCompletion polls runID until it completes or fails and classifies the
// last snapshot. Every fetched snapshot is recorded. Running out of checks,
// hitting the timeout or a cancelled ctx all end with the classification of the
// last snapshot, RunIncomplete when there is none.
func (s *Service) WaitForCompletion(ctx context.Context, runID string, t Thresholds, cfg PollConfig) (Outcome, error) {
	if err := cfg.Validate(); err != nil {
		return Outcome{}, err
	}
	if cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.Timeout)
		defer cancel()
	}

	log := logrus.WithField("sync_run_id", runID)
	log.WithFields(logrus.Fields{
		"initial_delay": cfg.InitialDelay,
		"interval":      cfg.Interval,
		"max_checks":    cfg.MaxChecks,
		"timeout":       cfg.Timeout,
	}).Info("Waiting for sync run to complete")

	var last *Snapshot
	if err := s.sleep(ctx, cfg.InitialDelay); err != nil {
		return incomplete(runID, last, t), nil
	}

	backoff := retry.PollBackoff(cfg.Interval, cfg.MaxChecks)
	for attempt := 1; ; attempt++ {
		snap, err := s.fetch(ctx, runID)
		if err != nil {
			if ctx.Err() != nil {
				return incomplete(runID, last, t), nil
			}
			return Outcome{}, err
		}
		last = snap
		s.recordCheck(ctx, snap, Classify(snap, t).Result)
		if snap.Status.Terminal() {
			return Classify(snap, t), nil
		}

		log.WithFields(logrus.Fields{
			"status":  snap.RawStatus,
			"attempt": attempt,
		}).Info("Sync run not completed yet")

		next, stop := backoff.Next()
		if stop {
			return incomplete(runID, last, t), nil
		}
		if err := s.sleep(ctx, next); err != nil {
			return incomplete(runID, last, t), nil
		}
	}
}

func incomplete(runID string, last *Snapshot, t Thresholds) Outcome {
	if last == nil {
		return Outcome{
			Result:  RunIncomplete,
			Message: fmt.Sprintf("Stopped waiting before Census reported a status for sync run %s.", runID),
		}
	}
	return Classify(last, t)
}

// fetch reads runID and stores the response as the run artifact
func (s *Service) fetch(ctx context.Context, runID string) (*Snapshot, error) {
	resp, err := s.api.GetSyncRun(ctx, runID)
	if err != nil {
		return nil, newError(TransportError, err, "status check for sync run %s failed", runID)
	}
	if !resp.OK() {
		return nil, rejection(resp, RequestRejected, "status check for sync run "+runID)
	}

	env, err := resp.Envelope()
	if err != nil {
		return nil, newError(StatusCheckFailed, err, "unexpected status response for sync run %s", runID)
	}
	if env.Status == census.StatusError && resp.AccessDenied() {
		return nil, newError(InvalidCredentials, nil, "Census denied access to sync run %s", runID)
	}
	if env.Status != census.StatusSuccess {
		return nil, newError(StatusCheckFailed, nil, "Census could not report on sync run %s: %s", runID, refusalReason(env))
	}

	var run census.SyncRun
	if err := json.Unmarshal(env.Data, &run); err != nil {
		return nil, newError(StatusCheckFailed, err, "unexpected status payload for sync run %s", runID)
	}
	s.writeArtifact(ctx, RunArtifactKey(runID), resp.Body)
	return SnapshotFromRun(runID, &run), nil
}

// refusalReason prefers data.error_message over the envelope message
func refusalReason(env *census.Envelope) string {
	var data struct {
		ErrorMessage string `json:"error_message"`
	}
	if len(env.Data) > 0 && json.Unmarshal(env.Data, &data) == nil && data.ErrorMessage != "" {
		return data.ErrorMessage
	}
	if env.Message != "" {
		return env.Message
	}
	return fmt.Sprintf("status %q", env.Status)
}
