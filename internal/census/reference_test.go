package census

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTriggerURL(t *testing.T) {
	tests := []struct {
		name      string
		raw       string
		wantErr   bool
		wantRef   JobReference
		wantToken string
	}{
		{
			name:    "plain trigger URL",
			raw:     "https://app.getcensus.com/api/v1/syncs/123/trigger",
			wantRef: JobReference{BaseURL: "https://app.getcensus.com/api/v1", SyncID: "123"},
		},
		{
			name:      "embedded bearer token",
			raw:       "https://bearer:secret-token:abc@app.getcensus.com/api/v1/syncs/7/trigger",
			wantRef:   JobReference{BaseURL: "https://app.getcensus.com/api/v1", SyncID: "7"},
			wantToken: "secret-token:abc",
		},
		{
			name:    "trailing slash and query",
			raw:     "http://localhost:8080/api/v1/syncs/42/trigger/?force_full_sync=true",
			wantRef: JobReference{BaseURL: "http://localhost:8080/api/v1", SyncID: "42"},
		},
		{name: "not a trigger URL", raw: "https://app.getcensus.com/api/v1/sync_runs/1", wantErr: true},
		{name: "wrong scheme", raw: "ftp://app.getcensus.com/api/v1/syncs/1/trigger", wantErr: true},
		{name: "empty", raw: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ref, token, err := ParseTriggerURL(tt.raw)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantRef, ref)
			assert.Equal(t, tt.wantToken, token)
		})
	}
}

func TestJobReferenceURLs(t *testing.T) {
	ref := JobReference{BaseURL: "https://app.getcensus.com/api/v1/", SyncID: "123"}
	assert.Equal(t, "https://app.getcensus.com/api/v1/syncs/123/trigger", ref.TriggerURL())
	assert.Equal(t, "https://app.getcensus.com/api/v1/sync_runs/555", ref.RunURL("555"))
}
