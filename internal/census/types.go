package census

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
)

// Envelope statuses reported by the Census API
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// accessDeniedMarker is what Census puts into the body when the token is rejected
const accessDeniedMarker = "Access denied"

// ID is an opaque Census identifier. The API sends numbers, but anything
// scalar is accepted and kept as its text form.
type ID string

// UnmarshalJSON accepts JSON numbers, strings and null
func (id *ID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	switch {
	case bytes.Equal(b, []byte("null")):
		*id = ""
	case len(b) > 0 && b[0] == '"':
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*id = ID(s)
	default:
		var n json.Number
		if err := json.Unmarshal(b, &n); err != nil {
			return fmt.Errorf("invalid id %s: %w", b, err)
		}
		*id = ID(n.String())
	}
	return nil
}

// Envelope is the outer shape of every Census API response body
type Envelope struct {
	Status  string          `json:"status"`
	Message string          `json:"message,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// TriggerData is the payload of a successful sync trigger
type TriggerData struct {
	SyncRunID ID `json:"sync_run_id"`
}

// SyncRun is the payload of a sync_runs/<id> response. Counters and error
// details are null until the platform has filled them in.
type SyncRun struct {
	ID               ID      `json:"id"`
	SyncID           ID      `json:"sync_id"`
	Status           string  `json:"status"`
	RecordsProcessed *int64  `json:"records_processed"`
	RecordsUpdated   *int64  `json:"records_updated"`
	RecordsFailed    *int64  `json:"records_failed"`
	RecordsInvalid   *int64  `json:"records_invalid"`
	ErrorCode        *string `json:"error_code"`
	ErrorMessage     *string `json:"error_message"`
	CompletedAt      *string `json:"completed_at"`
}

// Response is a raw Census API answer, kept verbatim for the audit artifacts
type Response struct {
	StatusCode int
	Body       []byte
}

// OK reports whether the HTTP exchange itself succeeded
func (r *Response) OK() bool {
	return r.StatusCode >= http.StatusOK && r.StatusCode < http.StatusMultipleChoices
}

// AccessDenied reports whether the body carries the authorization denial marker
func (r *Response) AccessDenied() bool {
	return bytes.Contains(r.Body, []byte(accessDeniedMarker))
}

// Envelope decodes the outer response object
func (r *Response) Envelope() (*Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(r.Body, &env); err != nil {
		return nil, fmt.Errorf("failed to decode response body: %w", err)
	}
	return &env, nil
}
