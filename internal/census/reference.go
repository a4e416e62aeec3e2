package census

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
)

// triggerPath matches <base>/syncs/<id>/trigger
var triggerPath = regexp.MustCompile(`^(.*)/syncs/([^/]+)/trigger/?$`)

// JobReference identifies a sync definition and the API it lives under
type JobReference struct {
	BaseURL string
	SyncID  string
}

// ParseTriggerURL splits a sync trigger URL into its API root and sync id.
// Credentials embedded as bearer:<token>@host are returned separately and
// removed from the base URL.
func ParseTriggerURL(raw string) (ref JobReference, token string, err error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return ref, "", fmt.Errorf("failed to parse trigger URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return ref, "", fmt.Errorf("trigger URL must be http or https, got %q", u.Scheme)
	}
	if u.User != nil {
		if password, ok := u.User.Password(); ok {
			token = password
		}
		u.User = nil
	}
	u.RawQuery = ""
	u.Fragment = ""

	m := triggerPath.FindStringSubmatch(u.String())
	if m == nil {
		return ref, "", fmt.Errorf("trigger URL must end with /syncs/<id>/trigger: %s", u.Redacted())
	}
	return JobReference{BaseURL: m[1], SyncID: m[2]}, token, nil
}

// TriggerURL is the endpoint that starts a run of the sync
func (r JobReference) TriggerURL() string {
	return strings.TrimRight(r.BaseURL, "/") + "/syncs/" + url.PathEscape(r.SyncID) + "/trigger"
}

// RunURL is the endpoint that reports on a run of the sync
func (r JobReference) RunURL(runID string) string {
	return strings.TrimRight(r.BaseURL, "/") + "/sync_runs/" + url.PathEscape(runID)
}
