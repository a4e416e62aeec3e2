// Package sync implements the trigger, persist, poll and classify steps of a
// Census sync run.
package sync

import (
	"errors"
	"fmt"
	"time"
)

// Thresholds are the highest failed and invalid record counts a completed run
// may report and still count as successful
type Thresholds struct {
	Failure int64
	Invalid int64
}

// Validate rejects negative thresholds
func (t Thresholds) Validate() error {
	if t.Failure < 0 {
		return fmt.Errorf("failure threshold must not be negative, got %d", t.Failure)
	}
	if t.Invalid < 0 {
		return fmt.Errorf("invalid threshold must not be negative, got %d", t.Invalid)
	}
	return nil
}

// PollConfig controls WaitForCompletion
type PollConfig struct {
	// InitialDelay is waited before the first check, Census reports nothing for
	// a run queried right after the trigger
	InitialDelay time.Duration
	// Interval is waited between checks
	Interval time.Duration
	// MaxChecks bounds the number of checks, 0 means unbounded
	MaxChecks uint64
	// Timeout bounds the whole wait, 0 means unbounded
	Timeout time.Duration
}

// DefaultPollConfig waits 5s, then checks every 30s without an upper bound
func DefaultPollConfig() PollConfig {
	return PollConfig{
		InitialDelay: 5 * time.Second,
		Interval:     30 * time.Second,
	}
}

// Validate checks the delays
func (c PollConfig) Validate() error {
	if c.InitialDelay < 0 {
		return errors.New("initial delay must not be negative")
	}
	if c.Interval <= 0 {
		return errors.New("poll interval must be positive")
	}
	if c.Timeout < 0 {
		return errors.New("poll timeout must not be negative")
	}
	return nil
}
