package interactions

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"modelwire/internal/domain"
	"modelwire/internal/infra/config"
	"modelwire/internal/infra/tracer"
)

// interactionsPath is the API route for both streaming and non-streaming
// interactions; the stream flag in the request body selects the mode.
const interactionsPath = "/v1/interactions"

// Client is the HTTP implementation of the model endpoint. It speaks the
// interactions wire format over JSON POST, with SSE for streaming.
type Client struct {
	baseURL string
	apiKey  string
	model   string
	dec     Decoder
	http    *http.Client
	logger  *slog.Logger
}

// NewClient builds a client from endpoint configuration. httpClient may be
// nil, in which case a pooled client is constructed from cfg.
func NewClient(cfg config.EndpointConfig, logger *slog.Logger, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = NewHTTPClient(cfg)
	}
	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:  cfg.APIKey,
		model:   cfg.Model,
		dec:     Decoder{Strict: cfg.Strict},
		http:    httpClient,
		logger:  logger,
	}
}

func (c *Client) headers() map[string]string {
	h := make(map[string]string, 1)
	if c.apiKey != "" {
		h["Authorization"] = "Bearer " + c.apiKey
	}
	return h
}

// prepare fills request defaults and marshals it.
func (c *Client) prepare(req domain.InteractionRequest, stream bool) ([]byte, error) {
	if req.Model == "" {
		req.Model = c.model
	}
	req.Stream = stream
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}
	return body, nil
}

// Interact implements domain.ModelEndpoint.
func (c *Client) Interact(ctx context.Context, req domain.InteractionRequest) (*domain.Response, error) {
	ctx, span := tracer.StartSpan(ctx, "interactions.Interact")
	defer span.End()
	span.SetAttributes(tracer.StringAttr("interaction.model", req.Model))

	body, err := c.prepare(req, false)
	if err != nil {
		tracer.RecordError(span, err)
		return nil, err
	}

	respBody, err := doJSONRequest(ctx, c.http, c.baseURL+interactionsPath, body, c.headers())
	if err != nil {
		tracer.RecordError(span, err)
		return nil, err
	}

	resp, err := decodeJSON[domain.Response](respBody)
	if err != nil {
		tracer.RecordError(span, err)
		return nil, err
	}
	if err := c.dec.checkResponse(&resp); err != nil {
		tracer.RecordError(span, err)
		return nil, err
	}

	c.logger.Debug("interaction completed",
		"id", resp.ID,
		"status", resp.Status,
		"tokens", resp.Usage.TotalTokens,
	)
	span.SetAttributes(tracer.IntAttr("interaction.total_tokens", resp.Usage.TotalTokens))
	tracer.SetOK(span)
	return &resp, nil
}

// InteractStream implements domain.StreamingModelEndpoint. The span covers
// connection establishment only; decode errors after that surface through
// the returned stream.
func (c *Client) InteractStream(ctx context.Context, req domain.InteractionRequest) (domain.ChunkStream, error) {
	ctx, span := tracer.StartSpan(ctx, "interactions.InteractStream")
	defer span.End()
	span.SetAttributes(tracer.StringAttr("interaction.model", req.Model))

	body, err := c.prepare(req, true)
	if err != nil {
		tracer.RecordError(span, err)
		return nil, err
	}

	httpResp, err := doStreamRequest(ctx, c.http, c.baseURL+interactionsPath, body, c.headers())
	if err != nil {
		tracer.RecordError(span, err)
		return nil, err
	}

	c.logger.Debug("interaction stream opened", "model", req.Model)
	tracer.SetOK(span)
	return NewChunkStream(httpResp.Body, c.dec), nil
}

// Compile-time interface checks.
var (
	_ domain.ModelEndpoint          = (*Client)(nil)
	_ domain.StreamingModelEndpoint = (*Client)(nil)
)
