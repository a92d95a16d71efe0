package interactions

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"modelwire/internal/domain"
	"modelwire/internal/infra/config"
	"modelwire/internal/infra/logger"
)

func newTestClient(t *testing.T, handler http.HandlerFunc, strict bool) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	cfg := config.EndpointConfig{
		BaseURL: srv.URL,
		APIKey:  "test-key",
		Model:   "test-model",
		Strict:  strict,
	}
	return NewClient(cfg, logger.Discard(), srv.Client())
}

func TestClientInteract(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1/interactions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var req domain.InteractionRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "test-model", req.Model)
		assert.False(t, req.Stream)

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id":"int_1","status":"completed","outputs":[{"type":"text","text":"Hello"}],"usage":{"input_tokens":3,"output_tokens":2,"total_tokens":5}}`))
	}, false)

	resp, err := client.Interact(context.Background(), domain.InteractionRequest{
		Input: []domain.Turn{domain.NewUserTurn(domain.NewTextContent("hi"))},
	})
	require.NoError(t, err)
	assert.Equal(t, "int_1", resp.ID)
	assert.Equal(t, "Hello", resp.Text())
	assert.Equal(t, 5, resp.Usage.TotalTokens)
}

func TestClientInteractAPIError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set(requestIDHeader, "req_42")
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte(`{"error":"slow down"}`))
	}, false)

	_, err := client.Interact(context.Background(), domain.InteractionRequest{})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrRateLimit)

	var apiErr *domain.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusTooManyRequests, apiErr.StatusCode)
	assert.Equal(t, "req_42", apiErr.RequestID)
	assert.True(t, apiErr.Retryable())
}

func TestClientInteractAuthError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}, false)

	_, err := client.Interact(context.Background(), domain.InteractionRequest{})
	assert.ErrorIs(t, err, domain.ErrAuthInvalid)
	assert.False(t, domain.IsRetryable(err))
}

func TestClientInteractStrictRejectsUnknownOutput(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"id":"int_1","status":"completed","outputs":[{"type":"hologram"}]}`))
	}, true)

	_, err := client.Interact(context.Background(), domain.InteractionRequest{})
	var tagErr *domain.UnknownTagError
	require.ErrorAs(t, err, &tagErr)
	assert.Equal(t, "hologram", tagErr.Tag)
}

func TestClientInteractStream(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "text/event-stream", r.Header.Get("Accept"))

		var req domain.InteractionRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.True(t, req.Stream)

		w.Header().Set("Content-Type", "text/event-stream")
		w.Write([]byte("data: {\"chunk_type\":\"delta\",\"data\":{\"type\":\"text\",\"text\":\"Hel\"}}\n\n"))
		w.Write([]byte("data: {\"chunk_type\":\"delta\",\"data\":{\"type\":\"text\",\"text\":\"lo\"}}\n\n"))
		w.Write([]byte("data: {\"chunk_type\":\"complete\",\"data\":{\"id\":\"int_2\",\"status\":\"completed\",\"outputs\":[{\"type\":\"text\",\"text\":\"Hello\"}]}}\n\n"))
	}, false)

	stream, err := client.InteractStream(context.Background(), domain.InteractionRequest{
		Input: []domain.Turn{domain.NewUserTurn(domain.NewTextContent("hi"))},
	})
	require.NoError(t, err)

	agg := NewAggregator()
	resp, err := func() (*domain.Response, error) {
		defer stream.Close()
		for {
			chunk, err := stream.Next()
			if err != nil {
				return agg.Response()
			}
			agg.Feed(chunk)
		}
	}()
	require.NoError(t, err)
	assert.Equal(t, "int_2", resp.ID)
	assert.Equal(t, "Hel"+"lo", agg.Text())
}

func TestClientInteractStreamErrorStatus(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte("upstream exploded"))
	}, false)

	_, err := client.InteractStream(context.Background(), domain.InteractionRequest{})
	require.Error(t, err)

	var apiErr *domain.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusInternalServerError, apiErr.StatusCode)
	assert.True(t, domain.IsRetryable(err))
}

func TestClientTransportError(t *testing.T) {
	cfg := config.EndpointConfig{BaseURL: "http://127.0.0.1:1"}
	client := NewClient(cfg, logger.Discard(), nil)

	_, err := client.Interact(context.Background(), domain.InteractionRequest{})
	assert.ErrorIs(t, err, domain.ErrTransport)
}
