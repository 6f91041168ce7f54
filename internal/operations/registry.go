package operations

import (
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/itstheanurag/ligo-compiler-api/internal/compiler"
	"github.com/itstheanurag/ligo-compiler-api/internal/sandbox"
)

var (
	ErrOperationNotFound = errors.New("operation not found")
)

type Registry struct {
	mu         sync.RWMutex
	operations map[string]Operation
}

func NewRegistry() *Registry {
	r := &Registry{
		operations: make(map[string]Operation),
	}
	r.registerDefaults()
	return r
}

func (r *Registry) Register(op Operation) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.operations[op.ID] = op
}

func (r *Registry) Get(id string) (Operation, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	op, ok := r.operations[id]
	if !ok {
		return Operation{}, ErrOperationNotFound
	}
	return op, nil
}

// List returns the registered operations ordered by ID.
func (r *Registry) List() []Operation {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ops := make([]Operation, 0, len(r.operations))
	for _, op := range r.operations {
		ops = append(ops, op)
	}
	sort.Slice(ops, func(i, j int) bool { return ops[i].ID < ops[j].ID })
	return ops
}

func (r *Registry) registerDefaults() {
	r.Register(Operation{
		ID:          "compile-contract",
		Name:        "Compile contract",
		Description: "Compile a contract entrypoint to Michelson.",
		Required:    []string{"syntax", "code", "entrypoint", "format"},
		Invoke: func(ctx context.Context, c *compiler.Compiler, req Request) (*sandbox.Result, error) {
			return c.CompileContract(ctx, req.Syntax, req.Code, req.Entrypoint, req.Format)
		},
	})

	r.Register(Operation{
		ID:          "compile-expression",
		Name:        "Compile expression",
		Description: "Compile a standalone expression to Michelson.",
		Required:    []string{"syntax", "expression", "format"},
		Invoke: func(ctx context.Context, c *compiler.Compiler, req Request) (*sandbox.Result, error) {
			return c.CompileExpression(ctx, req.Syntax, req.Expression, req.Format)
		},
	})

	r.Register(Operation{
		ID:          "compile-storage",
		Name:        "Compile storage",
		Description: "Compile an initial storage value for a contract entrypoint.",
		Required:    []string{"syntax", "code", "entrypoint", "format", "storage"},
		Invoke: func(ctx context.Context, c *compiler.Compiler, req Request) (*sandbox.Result, error) {
			return c.CompileStorage(ctx, req.Syntax, req.Code, req.Entrypoint, req.Format, req.Storage)
		},
	})

	r.Register(Operation{
		ID:          "dry-run",
		Name:        "Dry run",
		Description: "Run a contract entrypoint against a parameter and storage.",
		Required:    []string{"syntax", "code", "entrypoint", "parameter", "storage"},
		Invoke: func(ctx context.Context, c *compiler.Compiler, req Request) (*sandbox.Result, error) {
			return c.DryRun(ctx, req.Syntax, req.Code, req.Entrypoint, req.Parameter, req.Storage)
		},
	})

	r.Register(Operation{
		ID:          "evaluate-value",
		Name:        "Evaluate value",
		Description: "Evaluate a top-level declaration.",
		Required:    []string{"syntax", "code", "entrypoint"},
		Invoke: func(ctx context.Context, c *compiler.Compiler, req Request) (*sandbox.Result, error) {
			return c.EvaluateValue(ctx, req.Syntax, req.Code, req.Entrypoint)
		},
	})

	r.Register(Operation{
		ID:          "run-function",
		Name:        "Run function",
		Description: "Run a function with the given parameter.",
		Required:    []string{"syntax", "code", "entrypoint", "parameter"},
		Invoke: func(ctx context.Context, c *compiler.Compiler, req Request) (*sandbox.Result, error) {
			return c.RunFunction(ctx, req.Syntax, req.Code, req.Entrypoint, req.Parameter)
		},
	})
}
