package main

import "github.com/cybertec-postgresql/census_runner/internal/sync"

// exitUsage is returned for invalid arguments or configuration
const exitUsage = 1

// exitCodes is the only place results are turned into process exit codes
var exitCodes = map[sync.Result]int{
	sync.Success:                  0,
	sync.InvalidCredentials:       200,
	sync.RequestRejected:          201,
	sync.UnknownStatus:            202,
	sync.InvalidJobReference:      203,
	sync.PlatformRefused:          204,
	sync.TransportError:           205,
	sync.UnknownTriggerFailure:    206,
	sync.RunIncomplete:            210,
	sync.RunFailed:                211,
	sync.FailureThresholdExceeded: 212,
	sync.InvalidThresholdExceeded: 213,
	sync.StatusCheckFailed:        220,
	sync.StoreFailed:              230,
}

func exitCode(r sync.Result) int {
	if code, ok := exitCodes[r]; ok {
		return code
	}
	return exitUsage
}
