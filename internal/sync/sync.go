package sync

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/cybertec-postgresql/census_runner/internal/census"
	"github.com/cybertec-postgresql/census_runner/internal/store"
)

// API is the part of the Census API the service calls
type API interface {
	StartSync(ctx context.Context, syncID string) (*census.Response, error)
	GetSyncRun(ctx context.Context, runID string) (*census.Response, error)
}

// Recorder receives every trigger and every classified check, e.g. for a run ledger
type Recorder interface {
	RecordTrigger(ctx context.Context, syncID, runID string) error
	RecordCheck(ctx context.Context, s *Snapshot, result Result) error
}

// Service runs the trigger and verify steps against one Census workspace
type Service struct {
	api      API
	store    store.Store
	recorder Recorder
	sleep    func(ctx context.Context, d time.Duration) error
}

// NewService creates a new service. recorder may be nil.
func NewService(api API, st store.Store, recorder Recorder) *Service {
	return &Service{
		api:      api,
		store:    st,
		recorder: recorder,
		sleep:    sleepContext,
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func (s *Service) recordTrigger(ctx context.Context, syncID, runID string) {
	if s.recorder == nil {
		return
	}
	if err := s.recorder.RecordTrigger(ctx, syncID, runID); err != nil {
		logrus.WithError(err).WithField("sync_run_id", runID).Warn("Failed to record sync trigger")
	}
}

func (s *Service) recordCheck(ctx context.Context, snap *Snapshot, result Result) {
	if s.recorder == nil {
		return
	}
	if err := s.recorder.RecordCheck(ctx, snap, result); err != nil {
		logrus.WithError(err).WithField("sync_run_id", snap.RunID).Warn("Failed to record sync run check")
	}
}

// rejection classifies a non-2xx answer. notFound is the result reported for
// HTTP 404, RequestRejected when a missing resource needs no special treatment.
func rejection(resp *census.Response, notFound Result, what string) *Error {
	body := strings.TrimSpace(string(resp.Body))
	switch {
	case notFound != RequestRejected && resp.StatusCode == http.StatusNotFound:
		return newError(notFound, nil, "%s: not found (HTTP 404): %s", what, body)
	case resp.StatusCode == http.StatusUnauthorized || resp.AccessDenied():
		return newError(InvalidCredentials, nil,
			"%s: access denied (HTTP %d). Check that the access token has no typos and includes \"secret-token:\"",
			what, resp.StatusCode)
	default:
		return newError(RequestRejected, nil, "%s: rejected with HTTP %d: %s", what, resp.StatusCode, body)
	}
}
