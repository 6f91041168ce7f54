// Package compiler drives the LIGO compiler executable, one method per
// compiler subcommand.
package compiler

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/itstheanurag/ligo-compiler-api/internal/sandbox"
	"github.com/itstheanurag/ligo-compiler-api/internal/workspace"
	"github.com/rs/zerolog"
)

type Config struct {
	// Command is the compiler executable, optionally followed by leading
	// arguments, e.g. "docker run --rm ligolang/ligo:next". Empty leaves the
	// program to the runner; the docker runner then uses the image entrypoint.
	Command        string
	ScratchDir     string
	Timeout        time.Duration
	MaxOutputBytes int
}

type Compiler struct {
	program   string
	baseArgs  []string
	conf      Config
	workspace *workspace.Manager
	runner    sandbox.Runner
	logger    *zerolog.Logger
}

func New(conf Config, ws *workspace.Manager, runner sandbox.Runner, logger *zerolog.Logger) (*Compiler, error) {
	var program string
	var baseArgs []string
	if fields := strings.Fields(conf.Command); len(fields) > 0 {
		program, baseArgs = fields[0], fields[1:]
	}
	if conf.ScratchDir == "" {
		conf.ScratchDir = ws.Dir()
	}
	return &Compiler{
		program:   program,
		baseArgs:  baseArgs,
		conf:      conf,
		workspace: ws,
		runner:    runner,
		logger:    logger,
	}, nil
}

func (c *Compiler) CompileContract(ctx context.Context, syntax, code, entrypoint, format string) (*sandbox.Result, error) {
	return c.withSource(ctx, code, func(file string) []string {
		return []string{"compile-contract", "--michelson-format", format, "-s", syntax, file, entrypoint}
	})
}

// CompileExpression passes the expression on the command line; no scratch
// file is created.
func (c *Compiler) CompileExpression(ctx context.Context, syntax, expression, format string) (*sandbox.Result, error) {
	return c.exec(ctx, []string{"compile-expression", "--michelson-format", format, syntax, expression})
}

func (c *Compiler) CompileStorage(ctx context.Context, syntax, code, entrypoint, format, storage string) (*sandbox.Result, error) {
	return c.withSource(ctx, code, func(file string) []string {
		return []string{"compile-storage", "--michelson-format", format, "-s", syntax, file, entrypoint, storage}
	})
}

func (c *Compiler) DryRun(ctx context.Context, syntax, code, entrypoint, parameter, storage string) (*sandbox.Result, error) {
	return c.withSource(ctx, code, func(file string) []string {
		return []string{"dry-run", "-s", syntax, file, entrypoint, parameter, storage}
	})
}

func (c *Compiler) EvaluateValue(ctx context.Context, syntax, code, entrypoint string) (*sandbox.Result, error) {
	return c.withSource(ctx, code, func(file string) []string {
		return []string{"evaluate-value", "-s", syntax, file, entrypoint}
	})
}

func (c *Compiler) RunFunction(ctx context.Context, syntax, code, entrypoint, parameter string) (*sandbox.Result, error) {
	return c.withSource(ctx, code, func(file string) []string {
		return []string{"run-function", "-s", syntax, file, entrypoint, parameter}
	})
}

// withSource writes code to a scratch file, runs the subcommand built by
// argv against it and removes the file once the run has settled.
func (c *Compiler) withSource(ctx context.Context, code string, argv func(file string) []string) (*sandbox.Result, error) {
	handle, err := c.workspace.Acquire(code)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare source file: %w", err)
	}
	defer handle.Release()

	return c.exec(ctx, argv(handle.Path()))
}

func (c *Compiler) exec(ctx context.Context, args []string) (*sandbox.Result, error) {
	full := make([]string, 0, len(c.baseArgs)+len(args))
	full = append(full, c.baseArgs...)
	full = append(full, args...)

	c.logger.Debug().Str("command", c.program).Strs("args", full).Msg("invoking compiler")

	res, err := c.runner.Run(ctx, sandbox.RunConfig{
		Command:        c.program,
		Args:           full,
		Dir:            c.conf.ScratchDir,
		Timeout:        c.conf.Timeout,
		MaxOutputBytes: c.conf.MaxOutputBytes,
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", args[0], err)
	}
	return res, nil
}
