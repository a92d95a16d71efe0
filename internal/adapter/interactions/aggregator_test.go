package interactions

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"modelwire/internal/domain"
)

func deltaChunk(c domain.Content) *domain.StreamChunk {
	return &domain.StreamChunk{Kind: domain.ChunkDelta, Delta: &c}
}

func TestAggregatorTextConcatenation(t *testing.T) {
	agg := NewAggregator()
	agg.Feed(deltaChunk(domain.NewTextContent("Hello, ")))
	agg.Feed(deltaChunk(domain.NewTextContent("world!")))

	assert.Equal(t, "Hello, world!", agg.Text())
}

func TestAggregatorFunctionCallOrder(t *testing.T) {
	agg := NewAggregator()
	agg.Feed(deltaChunk(domain.Content{Kind: domain.ContentFunctionCall, CallID: "c1", Name: "first"}))
	agg.Feed(deltaChunk(domain.Content{Kind: domain.ContentFunctionCall, CallID: "c2", Name: "second"}))

	calls := agg.FunctionCalls()
	require.Len(t, calls, 2)
	assert.Equal(t, "first", calls[0].Name)
	assert.Equal(t, "second", calls[1].Name)
}

func TestAggregatorSignatureAssociation(t *testing.T) {
	agg := NewAggregator()
	agg.Feed(deltaChunk(domain.Content{Kind: domain.ContentFunctionCall, CallID: "c1", Name: "a"}))
	agg.Feed(deltaChunk(domain.Content{Kind: domain.ContentFunctionCall, CallID: "c2", Name: "b"}))
	agg.Feed(deltaChunk(domain.Content{Kind: domain.ContentThoughtSignature, Signature: "sig-1"}))
	agg.Feed(deltaChunk(domain.Content{Kind: domain.ContentFunctionCall, CallID: "c3", Name: "c"}))
	agg.Feed(deltaChunk(domain.Content{Kind: domain.ContentThoughtSignature, Signature: "sig-2"}))

	calls := agg.FunctionCalls()
	require.Len(t, calls, 3)
	// The signature stamps the calls immediately preceding it; a later
	// signature never overwrites an earlier association.
	assert.Equal(t, "sig-1", calls[0].Signature)
	assert.Equal(t, "sig-1", calls[1].Signature)
	assert.Equal(t, "sig-2", calls[2].Signature)

	assert.Equal(t, []string{"sig-1", "sig-2"}, agg.ThoughtSignatures())
}

func TestAggregatorCompleteSupersedes(t *testing.T) {
	agg := NewAggregator()
	agg.Feed(deltaChunk(domain.NewTextContent("partial")))

	final := &domain.Response{
		ID:      "int_1",
		Status:  domain.StatusCompleted,
		Outputs: []domain.Content{domain.NewTextContent("authoritative")},
	}
	agg.Feed(&domain.StreamChunk{Kind: domain.ChunkComplete, Response: final})

	resp, err := agg.Response()
	require.NoError(t, err)
	// The complete payload is returned as-is, not merged with partials.
	assert.Same(t, final, resp)
	assert.Equal(t, "authoritative", resp.Text())
	assert.True(t, agg.Done())
}

func TestAggregatorTruncatedStream(t *testing.T) {
	agg := NewAggregator()
	agg.Feed(deltaChunk(domain.NewTextContent("partial")))

	_, err := agg.Response()
	assert.ErrorIs(t, err, domain.ErrTruncatedStream)
	assert.False(t, agg.Done())
}

func TestAggregatorIgnoresUnknownChunks(t *testing.T) {
	agg := NewAggregator()
	agg.Feed(&domain.StreamChunk{Kind: domain.ChunkOther, Tag: "heartbeat", Raw: json.RawMessage(`{}`)})
	agg.Feed(deltaChunk(domain.NewTextContent("hi")))

	assert.Equal(t, "hi", agg.Text())
	assert.Empty(t, agg.FunctionCalls())
}
