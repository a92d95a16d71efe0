package tool

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/kaptinlin/jsonschema"

	"modelwire/internal/domain"
)

// FuncCallable adapts a plain Go function plus a declaration into a
// domain.Callable.
type FuncCallable struct {
	decl domain.FunctionDeclaration
	fn   func(ctx context.Context, args json.RawMessage) (json.RawMessage, error)
}

// NewFuncCallable wraps fn under the given declaration.
func NewFuncCallable(decl domain.FunctionDeclaration, fn func(ctx context.Context, args json.RawMessage) (json.RawMessage, error)) *FuncCallable {
	return &FuncCallable{decl: decl, fn: fn}
}

func (f *FuncCallable) Name() string { return f.decl.Name }

func (f *FuncCallable) Declaration() domain.FunctionDeclaration { return f.decl }

func (f *FuncCallable) Invoke(ctx context.Context, args json.RawMessage) (json.RawMessage, error) {
	return f.fn(ctx, args)
}

var _ domain.Callable = (*FuncCallable)(nil)

// ValidateArguments checks raw call arguments against a declaration's JSON
// schema. A declaration without parameters accepts anything.
func ValidateArguments(decl domain.FunctionDeclaration, args json.RawMessage) error {
	if len(decl.Parameters) == 0 {
		return nil
	}

	compiler := jsonschema.NewCompiler()
	schema, err := compiler.Compile([]byte(decl.Parameters))
	if err != nil {
		return fmt.Errorf("invalid schema for %q: %w", decl.Name, err)
	}

	var data any
	if len(args) > 0 {
		if err := json.Unmarshal(args, &data); err != nil {
			return fmt.Errorf("arguments for %q are not valid JSON: %w", decl.Name, err)
		}
	}

	result := schema.Validate(data)
	if !result.IsValid() {
		return fmt.Errorf("arguments for %q: %s", decl.Name, result.Error())
	}
	return nil
}
