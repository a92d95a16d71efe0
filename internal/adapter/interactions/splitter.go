// Package interactions implements the client side of the interactions
// streaming protocol: SSE frame splitting, envelope decoding, delta
// aggregation, and the HTTP model endpoint.
package interactions

import (
	"bytes"
	"fmt"
	"io"
	"unicode/utf8"

	"modelwire/internal/domain"
)

// readChunkSize is the transport read granularity. Line assembly is
// independent of it; any chunking yields the same event sequence.
const readChunkSize = 4096

var dataPrefix = []byte("data:")

// frameSplitter assembles complete SSE lines from arbitrarily chunked bytes
// and yields the trimmed payload of each "data:" line. It buffers at most
// one pending partial line and never inspects bytes past a newline until the
// line is complete, so multi-byte characters are never split mid-decode.
type frameSplitter struct {
	r     io.Reader
	buf   []byte
	chunk []byte
	eof   bool
	err   error
}

func newFrameSplitter(r io.Reader) *frameSplitter {
	return &frameSplitter{r: r, chunk: make([]byte, readChunkSize)}
}

// next returns the payload of the next data line. It returns io.EOF on
// graceful stream end and a decode/transport error otherwise. After any
// error the splitter stays in that terminal state.
func (s *frameSplitter) next() ([]byte, error) {
	if s.err != nil {
		return nil, s.err
	}

	for {
		for {
			i := bytes.IndexByte(s.buf, '\n')
			if i < 0 {
				break
			}
			line := s.buf[:i]
			s.buf = s.buf[i+1:]

			payload, ok, err := s.classify(line)
			if err != nil {
				s.err = err
				return nil, err
			}
			if ok {
				return payload, nil
			}
		}

		if s.eof {
			// An unterminated trailing line is still a line.
			if len(s.buf) > 0 {
				line := s.buf
				s.buf = nil
				payload, ok, err := s.classify(line)
				if err != nil {
					s.err = err
					return nil, err
				}
				if ok {
					return payload, nil
				}
			}
			s.err = io.EOF
			return nil, io.EOF
		}

		n, err := s.r.Read(s.chunk)
		if n > 0 {
			s.buf = append(s.buf, s.chunk[:n]...)
		}
		switch {
		case err == io.EOF:
			s.eof = true
		case err != nil:
			s.err = fmt.Errorf("%w: read stream: %w", domain.ErrTransport, err)
			return nil, s.err
		}
	}
}

// classify trims and filters one complete line. It returns the owned data
// payload and whether the line produced an event. Comments, event: lines,
// blanks, and empty data payloads produce none.
func (s *frameSplitter) classify(line []byte) ([]byte, bool, error) {
	line = bytes.TrimSuffix(line, []byte("\r"))
	if len(line) == 0 || line[0] == ':' {
		return nil, false, nil
	}
	if !utf8.Valid(line) {
		return nil, false, fmt.Errorf("%w: line is not valid UTF-8", domain.ErrDecode)
	}
	if !bytes.HasPrefix(line, dataPrefix) {
		return nil, false, nil
	}
	payload := bytes.TrimSpace(line[len(dataPrefix):])
	if len(payload) == 0 {
		return nil, false, nil
	}
	// Copy out of the read buffer; the buffer is reused on the next read.
	return append([]byte(nil), payload...), true, nil
}
