package domain

import (
	"context"
	"encoding/json"
)

// Callable is an executable capability the model may request by name.
type Callable interface {
	Name() string
	Declaration() FunctionDeclaration
	// Invoke executes the capability with JSON arguments and returns a JSON
	// value. A returned error means execution failed; resolution and
	// argument decoding errors are the dispatcher's concern.
	Invoke(ctx context.Context, args json.RawMessage) (json.RawMessage, error)
}

// CallableResolver resolves a requested function name to a Callable. A
// caller-supplied resolver is consulted before the registry, enabling
// injection of stateful tools; its internal synchronization is the
// caller's responsibility.
type CallableResolver interface {
	Resolve(name string) (Callable, bool)
}

// ResolverFunc adapts a function to the CallableResolver interface.
type ResolverFunc func(name string) (Callable, bool)

func (f ResolverFunc) Resolve(name string) (Callable, bool) { return f(name) }
