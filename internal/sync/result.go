package sync

import (
	"errors"
	"fmt"
)

// Result is the outcome of a trigger or verify invocation. Each value maps to
// exactly one process exit code at the command line boundary.
type Result int

const (
	Success Result = iota
	FailureThresholdExceeded
	InvalidThresholdExceeded
	RunFailed
	RunIncomplete
	UnknownStatus
	InvalidCredentials
	InvalidJobReference
	RequestRejected
	PlatformRefused
	StatusCheckFailed
	TransportError
	UnknownTriggerFailure
	StoreFailed
)

var resultNames = [...]string{
	Success:                  "SUCCESS",
	FailureThresholdExceeded: "FAILURE_THRESHOLD_EXCEEDED",
	InvalidThresholdExceeded: "INVALID_THRESHOLD_EXCEEDED",
	RunFailed:                "RUN_FAILED",
	RunIncomplete:            "RUN_INCOMPLETE",
	UnknownStatus:            "UNKNOWN_STATUS",
	InvalidCredentials:       "INVALID_CREDENTIALS",
	InvalidJobReference:      "INVALID_JOB_REFERENCE",
	RequestRejected:          "REQUEST_REJECTED",
	PlatformRefused:          "PLATFORM_REFUSED",
	StatusCheckFailed:        "STATUS_CHECK_FAILED",
	TransportError:           "TRANSPORT_ERROR",
	UnknownTriggerFailure:    "UNKNOWN_TRIGGER_FAILURE",
	StoreFailed:              "STORE_FAILED",
}

// Results lists every defined Result
func Results() []Result {
	all := make([]Result, len(resultNames))
	for i := range resultNames {
		all[i] = Result(i)
	}
	return all
}

func (r Result) String() string {
	if r < 0 || int(r) >= len(resultNames) {
		return fmt.Sprintf("Result(%d)", int(r))
	}
	return resultNames[r]
}

// Outcome is a classified run state together with the diagnostic to print
type Outcome struct {
	Result   Result
	Message  string
	Snapshot *Snapshot
}

// Error is returned when an invocation cannot reach a classification, e.g.
// because the API rejected the request
type Error struct {
	Result  Result
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

func newError(result Result, err error, format string, args ...any) *Error {
	return &Error{Result: result, Message: fmt.Sprintf(format, args...), Err: err}
}

// ResultOf returns the Result carried by err. ok is false for errors not
// raised by this package.
func ResultOf(err error) (result Result, ok bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Result, true
	}
	return 0, false
}
