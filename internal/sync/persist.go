package sync

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/cybertec-postgresql/census_runner/internal/store"
)

// RunIDKey is where the latest triggered run id is kept
const RunIDKey = "variables/sync_run_id"

// ErrNoRunID is returned by LoadRunID when no run was ever persisted
var ErrNoRunID = errors.New("no sync run id persisted")

// TriggerArtifactKey is where the trigger response for syncID is kept
func TriggerArtifactKey(syncID string) string {
	return "responses/sync_" + syncID + "_response.json"
}

// RunArtifactKey is where the latest status response for runID is kept
func RunArtifactKey(runID string) string {
	return "responses/sync_run_" + runID + "_response.json"
}

// SaveRunID persists runID as plain text, replacing the previous one
func SaveRunID(ctx context.Context, st store.Store, runID string) error {
	if runID == "" {
		return errors.New("refusing to persist an empty sync run id")
	}
	return st.Put(ctx, RunIDKey, []byte(runID))
}

// LoadRunID reads the run id written by the last trigger
func LoadRunID(ctx context.Context, st store.Store) (string, error) {
	value, err := st.Get(ctx, RunIDKey)
	if errors.Is(err, store.ErrNotFound) {
		return "", ErrNoRunID
	}
	if err != nil {
		return "", fmt.Errorf("failed to read sync run id: %w", err)
	}
	runID := strings.TrimSpace(string(value))
	if runID == "" {
		return "", ErrNoRunID
	}
	return runID, nil
}

// writeArtifact stores body pretty printed for audit. Failing to do so is
// logged and does not change the outcome.
func (s *Service) writeArtifact(ctx context.Context, key string, body []byte) {
	if err := s.store.Put(ctx, key, prettyJSON(body)); err != nil {
		logrus.WithError(err).WithField("key", key).Warn("Failed to store response artifact")
		return
	}
	logrus.WithField("key", key).Info("Response stored")
}

// prettyJSON indents valid JSON with four spaces and returns anything else unchanged
func prettyJSON(body []byte) []byte {
	var buf bytes.Buffer
	if err := json.Indent(&buf, body, "", "    "); err != nil {
		return body
	}
	buf.WriteByte('\n')
	return buf.Bytes()
}
