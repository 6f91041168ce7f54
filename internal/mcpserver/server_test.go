package mcpserver

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/itstheanurag/ligo-compiler-api/internal/executor"
	"github.com/itstheanurag/ligo-compiler-api/internal/operations"
	"github.com/itstheanurag/ligo-compiler-api/internal/queue"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

type stubDispatcher struct {
	result *executor.ExecutionResult
	err    error
	calls  []executor.ExecuteOptions
}

func (s *stubDispatcher) Dispatch(_ context.Context, opts executor.ExecuteOptions) (*executor.ExecutionResult, error) {
	s.calls = append(s.calls, opts)
	return s.result, s.err
}

func mustGet(t *testing.T, id string) operations.Operation {
	t.Helper()
	op, err := operations.NewRegistry().Get(id)
	if err != nil {
		t.Fatalf("get %s: %v", id, err)
	}
	return op
}

func TestToolHandlerDispatches(t *testing.T) {
	d := &stubDispatcher{result: &executor.ExecutionResult{Status: executor.StatusCompileError, Result: "unbound variable"}}
	h := toolHandler(d, mustGet(t, "evaluate-value"))

	_, out, err := h(context.Background(), nil, operations.Request{Syntax: "cameligo", Code: "let x = y", Entrypoint: "x"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !out.Error || out.Result != "unbound variable" {
		t.Errorf("unexpected output %+v", out)
	}
	if len(d.calls) != 1 || d.calls[0].Operation != "evaluate-value" {
		t.Errorf("unexpected dispatch calls %+v", d.calls)
	}
}

func TestToolHandlerValidatesRequiredFields(t *testing.T) {
	d := &stubDispatcher{}
	h := toolHandler(d, mustGet(t, "dry-run"))

	_, _, err := h(context.Background(), nil, operations.Request{Syntax: "pascaligo"})
	if err == nil || !strings.Contains(err.Error(), "parameter") {
		t.Fatalf("expected missing field error, got %v", err)
	}
	if len(d.calls) != 0 {
		t.Error("dispatcher should not be called for invalid input")
	}
}

func TestToolHandlerPropagatesErrors(t *testing.T) {
	d := &stubDispatcher{err: queue.ErrQueueFull}
	h := toolHandler(d, mustGet(t, "compile-expression"))

	_, _, err := h(context.Background(), nil, operations.Request{Syntax: "cameligo", Expression: "1", Format: "text"})
	if !errors.Is(err, queue.ErrQueueFull) {
		t.Fatalf("expected ErrQueueFull, got %v", err)
	}
}

func TestServerListsOperations(t *testing.T) {
	ctx := context.Background()
	server := New(&stubDispatcher{}, operations.NewRegistry(), "test")

	serverTransport, clientTransport := mcp.NewInMemoryTransports()
	if _, err := server.Connect(ctx, serverTransport, nil); err != nil {
		t.Fatalf("server connect: %v", err)
	}
	client := mcp.NewClient(&mcp.Implementation{Name: "test-client", Version: "test"}, nil)
	session, err := client.Connect(ctx, clientTransport, nil)
	if err != nil {
		t.Fatalf("client connect: %v", err)
	}
	defer session.Close()

	res, err := session.ListTools(ctx, nil)
	if err != nil {
		t.Fatalf("list tools: %v", err)
	}
	if len(res.Tools) != 6 {
		t.Fatalf("expected 6 tools, got %d", len(res.Tools))
	}
	names := make(map[string]bool)
	for _, tool := range res.Tools {
		names[tool.Name] = true
	}
	for _, op := range operations.NewRegistry().List() {
		if !names[op.ID] {
			t.Errorf("tool %q not listed", op.ID)
		}
	}
}
