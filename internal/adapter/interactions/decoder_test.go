package interactions

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"modelwire/internal/domain"
)

func TestDecodeChunkDelta(t *testing.T) {
	var dec Decoder
	chunk, err := dec.DecodeChunk([]byte(`{"chunk_type":"delta","data":{"type":"text","text":"Hi"}}`))
	require.NoError(t, err)
	assert.Equal(t, domain.ChunkDelta, chunk.Kind)
	require.NotNil(t, chunk.Delta)
	assert.Equal(t, domain.ContentText, chunk.Delta.Kind)
	assert.Equal(t, "Hi", chunk.Delta.Text)
}

func TestDecodeChunkComplete(t *testing.T) {
	var dec Decoder
	chunk, err := dec.DecodeChunk([]byte(`{"chunk_type":"complete","data":{"id":"x","status":"completed","outputs":[{"type":"text","text":"Hi"}]}}`))
	require.NoError(t, err)
	assert.Equal(t, domain.ChunkComplete, chunk.Kind)
	require.NotNil(t, chunk.Response)
	assert.Equal(t, "x", chunk.Response.ID)
	assert.Equal(t, domain.StatusCompleted, chunk.Response.Status)
	assert.Equal(t, "Hi", chunk.Response.Text())
}

func TestDecodeChunkUnknownEnvelope(t *testing.T) {
	raw := `{"chunk_type":"heartbeat","data":{"beat":1}}`

	var dec Decoder
	chunk, err := dec.DecodeChunk([]byte(raw))
	require.NoError(t, err)
	assert.Equal(t, domain.ChunkOther, chunk.Kind)
	assert.Equal(t, "heartbeat", chunk.Tag)
	assert.JSONEq(t, raw, string(chunk.Raw))
}

func TestDecodeChunkUnknownEnvelopeStrict(t *testing.T) {
	dec := Decoder{Strict: true}
	_, err := dec.DecodeChunk([]byte(`{"chunk_type":"heartbeat","data":{}}`))

	var tagErr *domain.UnknownTagError
	require.ErrorAs(t, err, &tagErr)
	assert.Equal(t, "chunk_type", tagErr.Field)
	assert.Equal(t, "heartbeat", tagErr.Tag)
}

func TestDecodeChunkUnknownContent(t *testing.T) {
	var dec Decoder
	chunk, err := dec.DecodeChunk([]byte(`{"chunk_type":"delta","data":{"type":"hologram","frames":3}}`))
	require.NoError(t, err)
	assert.Equal(t, domain.ContentUnknown, chunk.Delta.Kind)
	assert.Equal(t, "hologram", chunk.Delta.Tag)
	assert.JSONEq(t, `{"type":"hologram","frames":3}`, string(chunk.Delta.Raw))
}

func TestDecodeChunkUnknownContentStrict(t *testing.T) {
	dec := Decoder{Strict: true}

	_, err := dec.DecodeChunk([]byte(`{"chunk_type":"delta","data":{"type":"hologram"}}`))
	var tagErr *domain.UnknownTagError
	require.ErrorAs(t, err, &tagErr)
	assert.Equal(t, "type", tagErr.Field)
	assert.Equal(t, "hologram", tagErr.Tag)

	// Unknown content inside a complete response is also rejected.
	_, err = dec.DecodeChunk([]byte(`{"chunk_type":"complete","data":{"id":"x","status":"completed","outputs":[{"type":"hologram"}]}}`))
	require.ErrorAs(t, err, &tagErr)
	assert.Equal(t, "hologram", tagErr.Tag)
}

func TestDecodeChunkMalformedJSON(t *testing.T) {
	for _, mode := range []bool{false, true} {
		dec := Decoder{Strict: mode}
		_, err := dec.DecodeChunk([]byte(`{"chunk_type":`))
		assert.True(t, errors.Is(err, domain.ErrDecode), "strict=%v: got %v", mode, err)
	}
}

func TestDecodeErrorPreviewIsBounded(t *testing.T) {
	long := `{"chunk_type":"` + strings.Repeat("a", 500)
	_, err := Decoder{}.DecodeChunk([]byte(long))
	require.Error(t, err)
	assert.Less(t, len(err.Error()), 200)
}
