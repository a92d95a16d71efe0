package domain

import "context"

// ChunkStream is a pull-based sequence of decoded streaming chunks. Next
// blocks until the next chunk is available and returns io.EOF after the
// terminal chunk. Closing before exhaustion releases the underlying
// connection.
type ChunkStream interface {
	Next() (*StreamChunk, error)
	Close() error
}

// ModelEndpoint is the transport collaborator for non-streaming requests.
type ModelEndpoint interface {
	// Interact sends a request and returns the single decoded response.
	Interact(ctx context.Context, req InteractionRequest) (*Response, error)
}

// StreamingModelEndpoint extends ModelEndpoint with streaming support.
type StreamingModelEndpoint interface {
	ModelEndpoint
	// InteractStream sends a request and returns a pull-based chunk stream.
	InteractStream(ctx context.Context, req InteractionRequest) (ChunkStream, error)
}

// TranscriptStore persists conversation turns and terminal responses.
// Implementations must tolerate being nil-checked by callers; persistence
// failures are reported but never affect protocol correctness.
type TranscriptStore interface {
	AppendTurns(ctx context.Context, interactionID string, turns []Turn) error
	RecordResponse(ctx context.Context, resp *Response) error
}
