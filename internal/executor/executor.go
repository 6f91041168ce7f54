package executor

import (
	"context"
	"errors"
	"fmt"

	"github.com/itstheanurag/ligo-compiler-api/internal/compiler"
	"github.com/itstheanurag/ligo-compiler-api/internal/operations"
	"github.com/itstheanurag/ligo-compiler-api/internal/sandbox"
	"github.com/itstheanurag/ligo-compiler-api/internal/workspace"
)

const (
	StatusSuccess      = "success"
	StatusCompileError = "compile_error"
)

type ExecutionResult struct {
	Status    string
	Result    string // stdout on success, error text otherwise
	Stdout    string
	Stderr    string
	ExitCode  int
	TimeMs    int64
	Truncated bool
}

// Failed reports whether the compiler rejected the input.
func (r *ExecutionResult) Failed() bool {
	return r.Status != StatusSuccess
}

type Executor struct {
	registry *operations.Registry
	compiler *compiler.Compiler
}

func NewExecutor(registry *operations.Registry, c *compiler.Compiler) *Executor {
	return &Executor{
		registry: registry,
		compiler: c,
	}
}

type ExecuteOptions struct {
	Operation string
	Request   operations.Request
}

// Execute runs one operation. A compiler that ran and rejected the input is
// reported through ExecutionResult.Status; failures to run it at all are
// returned as errors.
func (e *Executor) Execute(ctx context.Context, opts ExecuteOptions) (*ExecutionResult, error) {
	op, err := e.registry.Get(opts.Operation)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", err, opts.Operation)
	}

	res, err := op.Invoke(ctx, e.compiler, opts.Request)
	if err != nil {
		return nil, err
	}

	result := &ExecutionResult{
		Status:    StatusSuccess,
		Result:    res.Stdout,
		Stdout:    res.Stdout,
		Stderr:    res.Stderr,
		ExitCode:  res.ExitCode,
		TimeMs:    res.Duration.Milliseconds(),
		Truncated: res.Truncated,
	}
	if !res.Success {
		result.Status = StatusCompileError
		if res.Stderr != "" {
			result.Result = res.Stderr
		}
	}
	return result, nil
}

// Classify maps an Execute outcome to a metrics status label.
func Classify(result *ExecutionResult, err error) string {
	var (
		timeoutErr *sandbox.TimeoutError
		spawnErr   *sandbox.SpawnError
		ioErr      *workspace.IOError
	)
	switch {
	case err == nil && result != nil:
		return result.Status
	case errors.As(err, &timeoutErr):
		return "timeout"
	case errors.As(err, &spawnErr):
		return "spawn_error"
	case errors.As(err, &ioErr):
		return "io_error"
	case errors.Is(err, context.Canceled):
		return "cancelled"
	default:
		return "error"
	}
}
