// Package usecase contains the orchestration logic: function dispatch and
// the bounded auto-function loop that alternates model calls with local tool
// execution.
package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math/rand"
	"time"

	"github.com/oklog/ulid/v2"

	"modelwire/internal/adapter/tool"
	"modelwire/internal/domain"
	"modelwire/internal/infra/tracer"
)

// Dispatcher resolves requested function names to callables and executes
// them. Resolution consults a caller-supplied per-call resolver first, then
// the process-wide registry.
type Dispatcher struct {
	registry domain.CallableResolver
	validate bool
	logger   *slog.Logger
}

// NewDispatcher builds a dispatcher over the given registry. When validate
// is set, call arguments are checked against the callable's declared JSON
// schema before invocation.
func NewDispatcher(registry domain.CallableResolver, validate bool, logger *slog.Logger) *Dispatcher {
	return &Dispatcher{
		registry: registry,
		validate: validate,
		logger:   logger,
	}
}

// resolve applies the resolution order. A nil per-call resolver skips
// straight to the registry.
func (d *Dispatcher) resolve(resolver domain.CallableResolver, name string) (domain.Callable, error) {
	if resolver != nil {
		if c, ok := resolver.Resolve(name); ok {
			return c, nil
		}
	}
	if d.registry != nil {
		if c, ok := d.registry.Resolve(name); ok {
			return c, nil
		}
	}
	return nil, domain.NewDomainError("Dispatcher.Dispatch", domain.ErrCallableNotFound, fmt.Sprintf("function %q", name))
}

// Dispatch executes one function call and returns the correlated
// function_result content. A call without an identifier is assigned a ULID
// so the result still correlates. Resolution failure is the only error;
// invocation and validation failures are recovered into a result describing
// the failure, so the model can react to it on the next turn.
func (d *Dispatcher) Dispatch(ctx context.Context, resolver domain.CallableResolver, call domain.Content) (domain.Content, error) {
	ctx, span := tracer.StartSpan(ctx, "dispatcher.Dispatch")
	defer span.End()
	span.SetAttributes(tracer.StringAttr("function.name", call.Name))

	callID := call.CallID
	if callID == "" {
		callID = newCallID()
	}

	callable, err := d.resolve(resolver, call.Name)
	if err != nil {
		tracer.RecordError(span, err)
		return domain.Content{}, err
	}

	if d.validate {
		if verr := tool.ValidateArguments(callable.Declaration(), call.Arguments); verr != nil {
			d.logger.Warn("function argument validation failed",
				"function", call.Name,
				"error", verr,
			)
			return failureResult(call.Name, callID, verr), nil
		}
	}

	start := time.Now()
	out, err := callable.Invoke(ctx, call.Arguments)
	elapsed := time.Since(start)

	if err != nil {
		d.logger.Warn("function execution failed",
			"function", call.Name,
			"duration", elapsed,
			"error", err,
		)
		tracer.RecordError(span, err)
		return failureResult(call.Name, callID, err), nil
	}

	d.logger.Debug("function executed",
		"function", call.Name,
		"duration", elapsed,
	)
	tracer.SetOK(span)
	return domain.NewFunctionResult(call.Name, callID, out), nil
}

// failureResult wraps an execution failure into a function_result the model
// can read and adapt to.
func failureResult(name, callID string, err error) domain.Content {
	payload, merr := json.Marshal(map[string]string{"error": err.Error()})
	if merr != nil {
		payload = []byte(`{"error":"function execution failed"}`)
	}
	return domain.NewFunctionResult(name, callID, payload)
}

// newCallID generates a sortable unique call identifier.
func newCallID() string {
	t := time.Now()
	entropy := ulid.Monotonic(rand.New(rand.NewSource(t.UnixNano())), 0)
	return ulid.MustNew(ulid.Timestamp(t), entropy).String()
}
