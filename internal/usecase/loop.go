package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"go.opentelemetry.io/otel/trace"

	"modelwire/internal/adapter/interactions"
	"modelwire/internal/domain"
	"modelwire/internal/infra/config"
	"modelwire/internal/infra/tracer"
)

// Loop is the auto-function orchestration state machine. It alternates model
// submissions with local function execution until the model stops asking for
// calls or the iteration ceiling is reached.
type Loop struct {
	endpoint       domain.ModelEndpoint
	dispatcher     *Dispatcher
	guard          *ContextGuard
	store          domain.TranscriptStore
	maxIterations  int
	useServerState bool
	logger         *slog.Logger
}

// LoopDeps collects the loop's collaborators. Endpoint, Dispatcher, and
// Logger are required; Guard and Store are optional.
type LoopDeps struct {
	Endpoint   domain.ModelEndpoint
	Dispatcher *Dispatcher
	Guard      *ContextGuard
	Store      domain.TranscriptStore
	Logger     *slog.Logger
}

// NewLoop builds a loop from its dependencies and configuration.
func NewLoop(deps LoopDeps, cfg config.LoopConfig) (*Loop, error) {
	if deps.Endpoint == nil {
		return nil, fmt.Errorf("loop requires a model endpoint")
	}
	if deps.Dispatcher == nil {
		return nil, fmt.Errorf("loop requires a dispatcher")
	}
	if deps.Logger == nil {
		return nil, fmt.Errorf("loop requires a logger")
	}
	maxIterations := cfg.MaxIterations
	if maxIterations <= 0 {
		maxIterations = 10
	}
	return &Loop{
		endpoint:       deps.Endpoint,
		dispatcher:     deps.Dispatcher,
		guard:          deps.Guard,
		store:          deps.Store,
		maxIterations:  maxIterations,
		useServerState: cfg.UseServerState,
		logger:         deps.Logger,
	}, nil
}

// RunRequest is one loop invocation.
type RunRequest struct {
	// Turns is the caller's initial conversation context.
	Turns []domain.Turn
	// Tools are the function declarations offered to the model.
	Tools []domain.FunctionDeclaration
	// Resolver, when set, is consulted before the process-wide registry for
	// every call in this invocation.
	Resolver domain.CallableResolver
	// Streaming drives each model round-trip through the SSE pipeline
	// instead of a single JSON response.
	Streaming bool
	Model     string
}

// Run drives the loop to a terminal response or a typed failure. Transport
// and API errors surface immediately with their retryable/non-retryable
// classification intact; this loop never retries. Function execution
// failures are recovered into result content and fed back to the model.
func (l *Loop) Run(ctx context.Context, req RunRequest) (*domain.Response, error) {
	ctx, span := tracer.StartSpan(ctx, "loop.Run")
	defer span.End()
	span.SetAttributes(tracer.IntAttr("loop.max_iterations", l.maxIterations))

	// history is the full conversation; pending is what the next submission
	// sends. With server-side state, pending shrinks to just the new turns.
	history := append([]domain.Turn(nil), req.Turns...)
	pending := history
	prevID := ""

	for iteration := 1; iteration <= l.maxIterations; iteration++ {
		if err := ctx.Err(); err != nil {
			tracer.RecordError(span, err)
			return nil, err
		}
		span.AddEvent("loop.iteration", trace.WithAttributes(tracer.IntAttr("iteration", iteration)))

		if l.guard != nil {
			if err := l.guard.Check(history); err != nil {
				tracer.RecordError(span, err)
				return nil, err
			}
		}

		ireq := domain.InteractionRequest{
			Model: req.Model,
			Input: pending,
			Tools: req.Tools,
		}
		if l.useServerState {
			ireq.PreviousInteractionID = prevID
		}

		resp, err := l.submit(ctx, ireq, req.Streaming)
		if err != nil {
			tracer.RecordError(span, err)
			return nil, err
		}
		prevID = resp.ID
		l.recordResponse(ctx, resp)

		calls := ensureCallIDs(resp)
		l.logger.Debug("model response",
			"iteration", iteration,
			"interaction_id", resp.ID,
			"function_calls", len(calls),
			"tokens", resp.Usage.TotalTokens,
		)

		if len(calls) == 0 {
			tracer.SetOK(span)
			return resp, nil
		}

		results := l.execute(ctx, req.Resolver, calls)
		for i := range results {
			if results[i].err != nil {
				tracer.RecordError(span, results[i].err)
				return nil, results[i].err
			}
		}

		modelTurn := domain.NewModelTurn(callTurnContent(resp)...)
		userTurn := domain.NewUserTurn(resultContents(results)...)

		history = append(history, modelTurn, userTurn)
		l.appendTurns(ctx, resp.ID, modelTurn, userTurn)

		if l.useServerState {
			// The server retains the model turn and its thought-signature
			// context; only the results travel.
			pending = []domain.Turn{userTurn}
		} else {
			pending = history
		}
	}

	err := domain.NewDomainError("Loop.Run", domain.ErrMaxIterations,
		fmt.Sprintf("ceiling %d", l.maxIterations))
	tracer.RecordError(span, err)
	return nil, err
}

// submit performs one model round-trip, streaming or not.
func (l *Loop) submit(ctx context.Context, req domain.InteractionRequest, streaming bool) (*domain.Response, error) {
	if !streaming {
		return l.endpoint.Interact(ctx, req)
	}

	se, ok := l.endpoint.(domain.StreamingModelEndpoint)
	if !ok {
		return nil, fmt.Errorf("endpoint does not support streaming")
	}
	stream, err := se.InteractStream(ctx, req)
	if err != nil {
		return nil, err
	}
	return interactions.Drain(stream)
}

// dispatchResult pairs one call's outcome with its position, so concurrent
// execution still attaches results in call order.
type dispatchResult struct {
	content domain.Content
	err     error
}

// execute runs every call from one model turn concurrently. Calls within a
// turn are independent by protocol contract; the indexed slice preserves
// call order regardless of completion order.
func (l *Loop) execute(ctx context.Context, resolver domain.CallableResolver, calls []domain.Content) []dispatchResult {
	results := make([]dispatchResult, len(calls))
	var wg sync.WaitGroup
	for i, call := range calls {
		wg.Add(1)
		go func(idx int, c domain.Content) {
			defer wg.Done()
			content, err := l.dispatcher.Dispatch(ctx, resolver, c)
			results[idx] = dispatchResult{content: content, err: err}
		}(i, call)
	}
	wg.Wait()
	return results
}

func resultContents(results []dispatchResult) []domain.Content {
	out := make([]domain.Content, len(results))
	for i, r := range results {
		out[i] = r.content
	}
	return out
}

// ensureCallIDs stamps missing call identifiers directly into the response
// outputs and returns the calls, so the replayed model turn and the results
// carry the same correlation IDs.
func ensureCallIDs(resp *domain.Response) []domain.Content {
	for i := range resp.Outputs {
		if resp.Outputs[i].Kind == domain.ContentFunctionCall && resp.Outputs[i].CallID == "" {
			resp.Outputs[i].CallID = newCallID()
		}
	}
	return resp.FunctionCalls()
}

// callTurnContent extracts what the replayed model turn must carry: the
// original function calls plus their thought signatures, in output order.
func callTurnContent(resp *domain.Response) []domain.Content {
	var out []domain.Content
	for _, c := range resp.Outputs {
		if c.Kind == domain.ContentFunctionCall || c.Kind == domain.ContentThoughtSignature {
			out = append(out, c)
		}
	}
	return out
}

// recordResponse persists the terminal response of one round-trip.
// Persistence is advisory; failures are logged, never fatal.
func (l *Loop) recordResponse(ctx context.Context, resp *domain.Response) {
	if l.store == nil {
		return
	}
	if err := l.store.RecordResponse(ctx, resp); err != nil {
		l.logger.Warn("transcript record failed", "interaction_id", resp.ID, "error", err)
	}
}

func (l *Loop) appendTurns(ctx context.Context, interactionID string, turns ...domain.Turn) {
	if l.store == nil {
		return
	}
	if err := l.store.AppendTurns(ctx, interactionID, turns); err != nil {
		l.logger.Warn("transcript append failed", "interaction_id", interactionID, "error", err)
	}
}
