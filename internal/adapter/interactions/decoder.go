package interactions

import (
	"encoding/json"
	"fmt"

	"modelwire/internal/domain"
)

// errorPreviewLimit bounds how much offending text a decode error carries.
const errorPreviewLimit = 64

// decodeJSON parses data into T. Malformed JSON fails with an error that
// names a bounded preview of the offending text.
func decodeJSON[T any](data []byte) (T, error) {
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return v, fmt.Errorf("%w: %v (input %q)", domain.ErrDecode, err, preview(data))
	}
	return v, nil
}

func preview(data []byte) string {
	if len(data) <= errorPreviewLimit {
		return string(data)
	}
	return string(data[:errorPreviewLimit]) + "..."
}

// Decoder turns one event payload into a StreamChunk. In the default lenient
// mode, unrecognized chunk_type or content type tags decode into the
// catch-all variants with the raw JSON preserved. In strict mode they fail
// with an UnknownTagError naming the tag.
type Decoder struct {
	Strict bool
}

type chunkEnvelope struct {
	ChunkType string          `json:"chunk_type"`
	Data      json.RawMessage `json:"data"`
}

// DecodeChunk parses one data payload into a StreamChunk.
func (d Decoder) DecodeChunk(payload []byte) (*domain.StreamChunk, error) {
	env, err := decodeJSON[chunkEnvelope](payload)
	if err != nil {
		return nil, err
	}

	switch domain.ChunkKind(env.ChunkType) {
	case domain.ChunkDelta:
		content, err := decodeJSON[domain.Content](env.Data)
		if err != nil {
			return nil, err
		}
		if d.Strict && content.Kind == domain.ContentUnknown {
			return nil, &domain.UnknownTagError{Field: "type", Tag: content.Tag}
		}
		return &domain.StreamChunk{Kind: domain.ChunkDelta, Delta: &content}, nil

	case domain.ChunkComplete:
		resp, err := decodeJSON[domain.Response](env.Data)
		if err != nil {
			return nil, err
		}
		if err := d.checkResponse(&resp); err != nil {
			return nil, err
		}
		return &domain.StreamChunk{Kind: domain.ChunkComplete, Response: &resp}, nil

	default:
		if d.Strict {
			return nil, &domain.UnknownTagError{Field: "chunk_type", Tag: env.ChunkType}
		}
		return &domain.StreamChunk{
			Kind: domain.ChunkOther,
			Tag:  env.ChunkType,
			Raw:  append(json.RawMessage(nil), payload...),
		}, nil
	}
}

// checkResponse enforces strict mode over a fully decoded response's
// outputs. Lenient mode accepts everything.
func (d Decoder) checkResponse(resp *domain.Response) error {
	if !d.Strict {
		return nil
	}
	for _, c := range resp.Outputs {
		if c.Kind == domain.ContentUnknown {
			return &domain.UnknownTagError{Field: "type", Tag: c.Tag}
		}
	}
	return nil
}
