package operations

import (
	"context"

	"github.com/itstheanurag/ligo-compiler-api/internal/compiler"
	"github.com/itstheanurag/ligo-compiler-api/internal/sandbox"
)

// Request carries the union of fields accepted by the compiler operations.
// Each operation reads only the fields it needs.
type Request struct {
	Syntax     string `json:"syntax" jsonschema:"LIGO syntax dialect, e.g. pascaligo, cameligo, reasonligo or jsligo"`
	Code       string `json:"code,omitempty" jsonschema:"contract source code"`
	Entrypoint string `json:"entrypoint,omitempty" jsonschema:"entrypoint or declaration name"`
	Format     string `json:"format,omitempty" jsonschema:"michelson output format, e.g. text or json"`
	Expression string `json:"expression,omitempty" jsonschema:"expression to compile"`
	Parameter  string `json:"parameter,omitempty" jsonschema:"parameter expression"`
	Storage    string `json:"storage,omitempty" jsonschema:"storage expression"`
}

// Field returns the value of the JSON field name.
func (r Request) Field(name string) string {
	switch name {
	case "syntax":
		return r.Syntax
	case "code":
		return r.Code
	case "entrypoint":
		return r.Entrypoint
	case "format":
		return r.Format
	case "expression":
		return r.Expression
	case "parameter":
		return r.Parameter
	case "storage":
		return r.Storage
	}
	return ""
}

type InvokeFunc func(ctx context.Context, c *compiler.Compiler, req Request) (*sandbox.Result, error)

type Operation struct {
	ID          string // also the compiler subcommand and the route suffix
	Name        string
	Description string
	Required    []string
	Invoke      InvokeFunc
}

// Missing lists the required fields left empty in req.
func (o Operation) Missing(req Request) []string {
	var missing []string
	for _, f := range o.Required {
		if req.Field(f) == "" {
			missing = append(missing, f)
		}
	}
	return missing
}
