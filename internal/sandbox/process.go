package sandbox

import (
	"context"
	"os/exec"
	"time"

	"github.com/rs/zerolog"
)

// Process runs commands as local child processes without a shell.
type Process struct {
	logger *zerolog.Logger
}

func NewProcess(logger *zerolog.Logger) *Process {
	return &Process{logger: logger}
}

func (p *Process) Run(ctx context.Context, cfg RunConfig) (*Result, error) {
	timeout := cfg.timeout()
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	stdout := newCappedBuffer(cfg.maxOutput())
	stderr := newCappedBuffer(cfg.maxOutput())

	cmd := exec.Command(cfg.Command, cfg.Args...)
	cmd.Dir = cfg.Dir
	cmd.Stdout = stdout
	cmd.Stderr = stderr
	// Grandchildren holding the pipes open must not stall Wait.
	cmd.WaitDelay = time.Second
	setProcessGroup(cmd)

	startTime := time.Now()
	if err := cmd.Start(); err != nil {
		p.logger.Error().Err(err).Str("command", cfg.Command).Msg("failed to spawn process")
		return nil, &SpawnError{Command: cfg.Command, Err: err}
	}

	done := make(chan error, 1)
	go func() {
		done <- cmd.Wait()
	}()

	select {
	case err := <-done:
		duration := time.Since(startTime)
		if err != nil && cmd.ProcessState == nil {
			return nil, &SpawnError{Command: cfg.Command, Err: err}
		}
		if err != nil {
			p.logger.Debug().Err(err).Str("command", cfg.Command).Msg("process exited with error")
		}

		exitCode := cmd.ProcessState.ExitCode()
		return &Result{
			Stdout:    stdout.String(),
			Stderr:    stderr.String(),
			ExitCode:  exitCode,
			Success:   exitCode == 0,
			Truncated: stdout.Truncated() || stderr.Truncated(),
			Duration:  duration,
		}, nil

	case <-timer.C:
		p.kill(cmd)
		p.logger.Warn().
			Str("command", cfg.Command).
			Dur("timeout", timeout).
			Int("pid", cmd.Process.Pid).
			Msg("process timed out, killed")
		return nil, &TimeoutError{Command: cfg.Command, Timeout: timeout}

	case <-ctx.Done():
		p.kill(cmd)
		p.logger.Debug().Str("command", cfg.Command).Msg("process cancelled, killed")
		return nil, ctx.Err()
	}
}

// kill terminates the process group; the Wait goroutine reaps it.
func (p *Process) kill(cmd *exec.Cmd) {
	if err := killProcessGroup(cmd); err != nil {
		p.logger.Error().Err(err).Int("pid", cmd.Process.Pid).Msg("failed to kill process")
	}
}
