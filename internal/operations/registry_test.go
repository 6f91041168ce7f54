package operations

import (
	"errors"
	"reflect"
	"testing"
)

func TestRegistryDefaults(t *testing.T) {
	r := NewRegistry()

	var ids []string
	for _, op := range r.List() {
		ids = append(ids, op.ID)
		if op.Invoke == nil {
			t.Errorf("operation %s has no invoke func", op.ID)
		}
	}

	want := []string{"compile-contract", "compile-expression", "compile-storage", "dry-run", "evaluate-value", "run-function"}
	if !reflect.DeepEqual(ids, want) {
		t.Errorf("expected %v, got %v", want, ids)
	}
}

func TestRegistryGetUnknown(t *testing.T) {
	_, err := NewRegistry().Get("deploy")
	if !errors.Is(err, ErrOperationNotFound) {
		t.Fatalf("expected ErrOperationNotFound, got %v", err)
	}
}

func TestOperationMissing(t *testing.T) {
	op, err := NewRegistry().Get("dry-run")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	tests := []struct {
		name string
		req  Request
		want []string
	}{
		{
			name: "complete",
			req:  Request{Syntax: "pascaligo", Code: "c", Entrypoint: "main", Parameter: "Unit", Storage: "0"},
		},
		{
			name: "missing storage and parameter",
			req:  Request{Syntax: "pascaligo", Code: "c", Entrypoint: "main"},
			want: []string{"parameter", "storage"},
		},
		{
			name: "unrelated fields ignored",
			req:  Request{Expression: "1", Format: "json"},
			want: []string{"syntax", "code", "entrypoint", "parameter", "storage"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := op.Missing(tt.req)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, got)
			}
		})
	}
}
