package interactions

import (
	"bytes"
	"io"

	"modelwire/internal/domain"
)

// doneSentinel is the conventional end-of-stream marker some servers send
// before closing the connection. It carries no payload.
var doneSentinel = []byte("[DONE]")

// chunkStream is the pull-based decoded view of one SSE response body. It
// implements domain.ChunkStream: Next returns chunks in wire order, io.EOF
// after the terminal complete chunk or graceful end, and stays in any error
// state it enters.
type chunkStream struct {
	body     io.Closer
	splitter *frameSplitter
	dec      Decoder
	done     bool
	closed   bool
	err      error
}

// NewChunkStream decodes SSE events from body. Closing the stream before
// exhaustion releases body (the underlying connection).
func NewChunkStream(body io.ReadCloser, dec Decoder) domain.ChunkStream {
	return &chunkStream{
		body:     body,
		splitter: newFrameSplitter(body),
		dec:      dec,
	}
}

func (s *chunkStream) Next() (*domain.StreamChunk, error) {
	if s.closed {
		return nil, domain.ErrStreamClosed
	}
	if s.err != nil {
		return nil, s.err
	}
	if s.done {
		s.err = io.EOF
		return nil, io.EOF
	}

	payload, err := s.splitter.next()
	if err != nil {
		s.err = err
		return nil, err
	}
	if bytes.Equal(payload, doneSentinel) {
		s.err = io.EOF
		return nil, io.EOF
	}

	chunk, err := s.dec.DecodeChunk(payload)
	if err != nil {
		s.err = err
		return nil, err
	}
	if chunk.Kind == domain.ChunkComplete {
		// A response is terminal; nothing follows a complete chunk.
		s.done = true
	}
	return chunk, nil
}

func (s *chunkStream) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	return s.body.Close()
}
