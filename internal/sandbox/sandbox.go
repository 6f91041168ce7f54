package sandbox

import (
	"context"
	"fmt"
	"time"
)

const (
	DefaultTimeout        = 10 * time.Second
	DefaultMaxOutputBytes = 1 << 20
)

type Result struct {
	Stdout    string
	Stderr    string
	ExitCode  int
	Success   bool
	Truncated bool // stdout or stderr exceeded MaxOutputBytes
	Duration  time.Duration
}

// Runner executes one command to completion. It returns a Result for every
// process that ran, regardless of its exit code, and an error when the
// process could not be started, timed out, or ctx was cancelled.
type Runner interface {
	Run(ctx context.Context, config RunConfig) (*Result, error)
}

type RunConfig struct {
	Command        string
	Args           []string
	Dir            string
	Timeout        time.Duration
	MaxOutputBytes int // per stream
}

func (c RunConfig) timeout() time.Duration {
	if c.Timeout <= 0 {
		return DefaultTimeout
	}
	return c.Timeout
}

func (c RunConfig) maxOutput() int {
	if c.MaxOutputBytes <= 0 {
		return DefaultMaxOutputBytes
	}
	return c.MaxOutputBytes
}

// SpawnError reports a command that could not be started.
type SpawnError struct {
	Command string
	Err     error
}

func (e *SpawnError) Error() string {
	return fmt.Sprintf("failed to start %s: %v", e.Command, e.Err)
}

func (e *SpawnError) Unwrap() error { return e.Err }

// TimeoutError reports a command that did not exit within its bound.
type TimeoutError struct {
	Command string
	Timeout time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("command: %s timed out after %d ms", e.Command, e.Timeout.Milliseconds())
}
