package interactions

import (
	"context"
	"fmt"

	"golang.org/x/time/rate"

	"modelwire/internal/domain"
	"modelwire/internal/infra/config"
)

// RateLimitedEndpoint applies a client-side request rate cap to a streaming
// model endpoint. Callers block until a token is available or their context
// expires; the server's own limits still apply on top.
type RateLimitedEndpoint struct {
	inner   domain.StreamingModelEndpoint
	limiter *rate.Limiter
}

// NewRateLimitedEndpoint wraps inner with a token bucket of rps requests per
// second and the given burst. Non-positive values disable the cap.
func NewRateLimitedEndpoint(inner domain.StreamingModelEndpoint, cfg config.RateLimitConfig) *RateLimitedEndpoint {
	var limiter *rate.Limiter
	if cfg.RequestsPerSecond > 0 {
		burst := cfg.Burst
		if burst <= 0 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), burst)
	}
	return &RateLimitedEndpoint{inner: inner, limiter: limiter}
}

func (e *RateLimitedEndpoint) wait(ctx context.Context) error {
	if e.limiter == nil {
		return nil
	}
	if err := e.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("%w: rate limiter: %v", domain.ErrRateLimit, err)
	}
	return nil
}

// Interact implements domain.ModelEndpoint.
func (e *RateLimitedEndpoint) Interact(ctx context.Context, req domain.InteractionRequest) (*domain.Response, error) {
	if err := e.wait(ctx); err != nil {
		return nil, err
	}
	return e.inner.Interact(ctx, req)
}

// InteractStream implements domain.StreamingModelEndpoint.
func (e *RateLimitedEndpoint) InteractStream(ctx context.Context, req domain.InteractionRequest) (domain.ChunkStream, error) {
	if err := e.wait(ctx); err != nil {
		return nil, err
	}
	return e.inner.InteractStream(ctx, req)
}

var _ domain.StreamingModelEndpoint = (*RateLimitedEndpoint)(nil)
