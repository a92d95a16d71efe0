package domain

import "encoding/json"

// ChunkKind discriminates the streaming envelope on its "chunk_type" tag.
type ChunkKind string

const (
	ChunkDelta    ChunkKind = "delta"
	ChunkComplete ChunkKind = "complete"

	// ChunkOther is the catch-all for envelope tags this client does not
	// know; the tag and raw payload are preserved.
	ChunkOther ChunkKind = "unknown"
)

// StreamChunk is one decoded streaming event: an incremental content delta,
// the terminal complete response, or an unrecognized envelope preserved raw.
type StreamChunk struct {
	Kind ChunkKind

	// delta
	Delta *Content

	// complete
	Response *Response

	// unknown envelope
	Tag string
	Raw json.RawMessage
}
