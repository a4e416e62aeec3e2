package sync

import (
	"context"
	"encoding/json"

	"github.com/sirupsen/logrus"

	"github.com/cybertec-postgresql/census_runner/internal/census"
)

// Trigger starts a new run of syncID and persists its run id. The raw response
// is stored as an artifact as soon as it arrives, whatever it says.
func (s *Service) Trigger(ctx context.Context, syncID string) (string, error) {
	log := logrus.WithField("sync_id", syncID)
	log.Info("Starting sync")

	resp, err := s.api.StartSync(ctx, syncID)
	if err != nil {
		return "", newError(TransportError, err, "sync trigger for %s failed", syncID)
	}

	s.writeArtifact(ctx, TriggerArtifactKey(syncID), resp.Body)

	if !resp.OK() {
		return "", rejection(resp, InvalidJobReference, "sync trigger for "+syncID)
	}

	env, err := resp.Envelope()
	if err != nil {
		return "", newError(UnknownTriggerFailure, err, "unexpected trigger response for sync %s", syncID)
	}

	switch env.Status {
	case census.StatusSuccess:
	case census.StatusError:
		if resp.AccessDenied() {
			return "", newError(InvalidCredentials, nil, "Census denied access to sync %s", syncID)
		}
		return "", newError(PlatformRefused, nil, "Census refused to start sync %s: %s", syncID, env.Message)
	default:
		return "", newError(UnknownTriggerFailure, nil, "unexpected trigger status %q for sync %s", env.Status, syncID)
	}

	var data census.TriggerData
	if err := json.Unmarshal(env.Data, &data); err != nil {
		return "", newError(UnknownTriggerFailure, err, "unexpected trigger payload for sync %s", syncID)
	}
	runID := string(data.SyncRunID)
	if runID == "" {
		return "", newError(UnknownTriggerFailure, nil, "trigger response for sync %s has no sync_run_id", syncID)
	}

	if err := SaveRunID(ctx, s.store, runID); err != nil {
		return "", newError(StoreFailed, err, "failed to persist sync run id %s", runID)
	}
	s.recordTrigger(ctx, syncID, runID)

	log.WithField("sync_run_id", runID).Info("Sync run started")
	return runID, nil
}
