package interactions

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/sony/gobreaker/v2"

	"modelwire/internal/domain"
	"modelwire/internal/infra/config"
)

// Default circuit breaker settings.
const (
	defaultCBMaxFailures uint32        = 5
	defaultCBTimeout     time.Duration = 30 * time.Second
	defaultCBInterval    time.Duration = 60 * time.Second
)

// CircuitBreakerEndpoint wraps a streaming model endpoint with circuit
// breaker protection. When the endpoint fails repeatedly, the circuit opens
// and subsequent calls fail fast without reaching the network, preventing
// retry storms. It is failure isolation only; nothing here retries.
type CircuitBreakerEndpoint struct {
	inner   domain.StreamingModelEndpoint
	breaker *gobreaker.CircuitBreaker[*domain.Response]
	logger  *slog.Logger
}

// NewCircuitBreakerEndpoint wraps inner with a circuit breaker. Zero-valued
// settings fall back to defaults.
func NewCircuitBreakerEndpoint(inner domain.StreamingModelEndpoint, cfg config.CircuitBreakerConfig, logger *slog.Logger) *CircuitBreakerEndpoint {
	maxFailures := cfg.MaxFailures
	if maxFailures == 0 {
		maxFailures = defaultCBMaxFailures
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = defaultCBTimeout
	}
	interval := cfg.Interval
	if interval == 0 {
		interval = defaultCBInterval
	}

	cb := gobreaker.NewCircuitBreaker[*domain.Response](gobreaker.Settings{
		Name:        "interactions",
		MaxRequests: 1, // allow 1 probe in half-open state
		Interval:    interval,
		Timeout:     timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= maxFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state change",
				"breaker", name,
				"from", from.String(),
				"to", to.String(),
			)
		},
		IsSuccessful: func(err error) bool {
			return err == nil
		},
	})

	return &CircuitBreakerEndpoint{
		inner:   inner,
		breaker: cb,
		logger:  logger,
	}
}

// Interact implements domain.ModelEndpoint. Calls route through the breaker.
func (e *CircuitBreakerEndpoint) Interact(ctx context.Context, req domain.InteractionRequest) (*domain.Response, error) {
	resp, err := e.breaker.Execute(func() (*domain.Response, error) {
		return e.inner.Interact(ctx, req)
	})
	if err != nil {
		if err == gobreaker.ErrOpenState || err == gobreaker.ErrTooManyRequests {
			return nil, fmt.Errorf("%w: circuit open: %v", domain.ErrTransport, err)
		}
		return nil, err
	}
	return resp, nil
}

// InteractStream implements domain.StreamingModelEndpoint. The breaker
// protects stream establishment; errors after connection surface through the
// stream and do not trip it.
func (e *CircuitBreakerEndpoint) InteractStream(ctx context.Context, req domain.InteractionRequest) (domain.ChunkStream, error) {
	var stream domain.ChunkStream
	_, err := e.breaker.Execute(func() (*domain.Response, error) {
		var streamErr error
		stream, streamErr = e.inner.InteractStream(ctx, req)
		return nil, streamErr
	})
	if err != nil {
		if err == gobreaker.ErrOpenState || err == gobreaker.ErrTooManyRequests {
			return nil, fmt.Errorf("%w: circuit open: %v", domain.ErrTransport, err)
		}
		return nil, err
	}
	return stream, nil
}

// State returns the current circuit breaker state for monitoring.
func (e *CircuitBreakerEndpoint) State() gobreaker.State {
	return e.breaker.State()
}

// Counts returns the current failure/success counts.
func (e *CircuitBreakerEndpoint) Counts() gobreaker.Counts {
	return e.breaker.Counts()
}

var _ domain.StreamingModelEndpoint = (*CircuitBreakerEndpoint)(nil)
