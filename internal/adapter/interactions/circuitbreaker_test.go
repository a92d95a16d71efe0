package interactions

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sony/gobreaker/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"modelwire/internal/domain"
	"modelwire/internal/infra/config"
	"modelwire/internal/infra/logger"
)

// fakeEndpoint is a scriptable model endpoint for wrapper tests.
type fakeEndpoint struct {
	interact       func(ctx context.Context, req domain.InteractionRequest) (*domain.Response, error)
	interactStream func(ctx context.Context, req domain.InteractionRequest) (domain.ChunkStream, error)
	calls          int
}

func (f *fakeEndpoint) Interact(ctx context.Context, req domain.InteractionRequest) (*domain.Response, error) {
	f.calls++
	return f.interact(ctx, req)
}

func (f *fakeEndpoint) InteractStream(ctx context.Context, req domain.InteractionRequest) (domain.ChunkStream, error) {
	f.calls++
	if f.interactStream == nil {
		return nil, errors.New("no stream scripted")
	}
	return f.interactStream(ctx, req)
}

func TestCircuitBreakerPassesThrough(t *testing.T) {
	inner := &fakeEndpoint{
		interact: func(context.Context, domain.InteractionRequest) (*domain.Response, error) {
			return &domain.Response{ID: "ok", Status: domain.StatusCompleted}, nil
		},
	}
	cb := NewCircuitBreakerEndpoint(inner, config.CircuitBreakerConfig{}, logger.Discard())

	resp, err := cb.Interact(context.Background(), domain.InteractionRequest{})
	require.NoError(t, err)
	assert.Equal(t, "ok", resp.ID)
	assert.Equal(t, gobreaker.StateClosed, cb.State())
}

func TestCircuitBreakerOpensAfterConsecutiveFailures(t *testing.T) {
	boom := errors.New("boom")
	inner := &fakeEndpoint{
		interact: func(context.Context, domain.InteractionRequest) (*domain.Response, error) {
			return nil, boom
		},
	}
	cfg := config.CircuitBreakerConfig{MaxFailures: 3, Timeout: time.Minute}
	cb := NewCircuitBreakerEndpoint(inner, cfg, logger.Discard())

	for i := 0; i < 3; i++ {
		_, err := cb.Interact(context.Background(), domain.InteractionRequest{})
		assert.ErrorIs(t, err, boom)
	}
	assert.Equal(t, gobreaker.StateOpen, cb.State())

	// The open circuit fails fast without reaching the endpoint.
	before := inner.calls
	_, err := cb.Interact(context.Background(), domain.InteractionRequest{})
	assert.ErrorIs(t, err, domain.ErrTransport)
	assert.Equal(t, before, inner.calls)
}

func TestCircuitBreakerStreamEstablishment(t *testing.T) {
	boom := errors.New("dial failed")
	inner := &fakeEndpoint{
		interactStream: func(context.Context, domain.InteractionRequest) (domain.ChunkStream, error) {
			return nil, boom
		},
	}
	cfg := config.CircuitBreakerConfig{MaxFailures: 2, Timeout: time.Minute}
	cb := NewCircuitBreakerEndpoint(inner, cfg, logger.Discard())

	for i := 0; i < 2; i++ {
		_, err := cb.InteractStream(context.Background(), domain.InteractionRequest{})
		assert.ErrorIs(t, err, boom)
	}
	_, err := cb.InteractStream(context.Background(), domain.InteractionRequest{})
	assert.ErrorIs(t, err, domain.ErrTransport)
	assert.Equal(t, uint32(0), cb.Counts().Requests)
}
