package interactions

import (
	"errors"
	"io"
	"strings"

	"modelwire/internal/domain"
)

// Aggregator reassembles incremental stream chunks into a terminal response
// view. Text deltas concatenate in arrival order; function-call deltas form
// an ordered call list; thought-signature deltas are stamped onto the call
// they follow. A complete chunk is authoritative and supersedes everything
// accumulated before it.
type Aggregator struct {
	text     strings.Builder
	calls    []domain.Content
	sigs     []string
	complete *domain.Response
}

func NewAggregator() *Aggregator {
	return &Aggregator{}
}

// Feed consumes one decoded chunk. Unknown chunks are retained nowhere; they
// carry no content this client understands.
func (a *Aggregator) Feed(chunk *domain.StreamChunk) {
	switch chunk.Kind {
	case domain.ChunkDelta:
		a.feedDelta(chunk.Delta)
	case domain.ChunkComplete:
		a.complete = chunk.Response
	}
}

func (a *Aggregator) feedDelta(c *domain.Content) {
	if c == nil {
		return
	}
	switch c.Kind {
	case domain.ContentText:
		a.text.WriteString(c.Text)
	case domain.ContentFunctionCall:
		a.calls = append(a.calls, *c)
	case domain.ContentThoughtSignature:
		a.sigs = append(a.sigs, c.Signature)
		// Associate with the call(s) immediately preceding: walk back over
		// calls that have not been stamped yet.
		for i := len(a.calls) - 1; i >= 0 && a.calls[i].Signature == ""; i-- {
			a.calls[i].Signature = c.Signature
		}
	}
}

// Done reports whether a terminal complete chunk has arrived.
func (a *Aggregator) Done() bool { return a.complete != nil }

// Text returns the text accumulated from deltas so far.
func (a *Aggregator) Text() string { return a.text.String() }

// FunctionCalls returns the function calls accumulated from deltas, in
// arrival order, with associated thought signatures stamped on.
func (a *Aggregator) FunctionCalls() []domain.Content { return a.calls }

// ThoughtSignatures returns the signatures accumulated from deltas in
// arrival order.
func (a *Aggregator) ThoughtSignatures() []string { return a.sigs }

// Response returns the terminal response. A stream that ended without a
// complete chunk is a truncated stream, never a silent success.
func (a *Aggregator) Response() (*domain.Response, error) {
	if a.complete == nil {
		return nil, domain.ErrTruncatedStream
	}
	return a.complete, nil
}

// Drain pulls a chunk stream to exhaustion through an aggregator and returns
// the terminal response. The stream is closed in all cases. Decode and
// transport errors propagate unchanged.
func Drain(stream domain.ChunkStream) (*domain.Response, error) {
	defer stream.Close()

	agg := NewAggregator()
	for {
		chunk, err := stream.Next()
		if errors.Is(err, io.EOF) {
			return agg.Response()
		}
		if err != nil {
			return nil, err
		}
		agg.Feed(chunk)
	}
}
