// Package domain defines the wire-level data model and the collaborator
// interfaces for the interactions streaming protocol.
package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// ContentKind discriminates the content union on the wire "type" tag.
type ContentKind string

const (
	ContentText                ContentKind = "text"
	ContentThought             ContentKind = "thought"
	ContentThoughtSignature    ContentKind = "thought_signature"
	ContentFunctionCall        ContentKind = "function_call"
	ContentFunctionResult      ContentKind = "function_result"
	ContentCodeExecutionCall   ContentKind = "code_execution_call"
	ContentCodeExecutionResult ContentKind = "code_execution_result"
	ContentGoogleSearchCall    ContentKind = "google_search_call"
	ContentGoogleSearchResult  ContentKind = "google_search_result"
	ContentFileSearchResult    ContentKind = "file_search_result"
	ContentURLContextCall      ContentKind = "url_context_call"
	ContentURLContextResult    ContentKind = "url_context_result"
	ContentComputerUseCall     ContentKind = "computer_use_call"
	ContentComputerUseResult   ContentKind = "computer_use_result"

	// ContentUnknown is the catch-all for tags this client does not know.
	// The original tag and raw JSON object are preserved losslessly.
	ContentUnknown ContentKind = "unknown"
)

// KnownContentKind reports whether kind is a statically known wire tag.
func KnownContentKind(kind string) bool {
	switch ContentKind(kind) {
	case ContentText, ContentThought, ContentThoughtSignature,
		ContentFunctionCall, ContentFunctionResult,
		ContentCodeExecutionCall, ContentCodeExecutionResult,
		ContentGoogleSearchCall, ContentGoogleSearchResult,
		ContentFileSearchResult,
		ContentURLContextCall, ContentURLContextResult,
		ContentComputerUseCall, ContentComputerUseResult:
		return true
	}
	return false
}

// Content is one item of model output or conversation input. Exactly one
// group of fields is populated, selected by Kind. Unknown content keeps the
// original tag and raw object so it round-trips byte-for-byte.
type Content struct {
	Kind ContentKind

	// text, thought
	Text string

	// thought_signature. The aggregator also copies a signature onto the
	// function_call it follows, for replay on the next turn.
	Signature string

	// Call correlation identifier (function_call, function_result,
	// code_execution_call/result).
	CallID string

	// function_call, function_result
	Name      string
	Arguments json.RawMessage
	Result    json.RawMessage

	// code_execution_call / code_execution_result
	Language string
	Code     string
	Outcome  string
	Output   string

	// google_search_call, url_context_call
	Queries []string
	URLs    []string

	// Raw payload for search/url/computer-use results and the
	// computer_use_call action.
	Payload json.RawMessage

	// unknown
	Tag string
	Raw json.RawMessage
}

// wire field layouts, one per kind

type textWire struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type signatureWire struct {
	Type      string `json:"type"`
	Signature string `json:"signature"`
}

type functionCallWire struct {
	Type      string          `json:"type"`
	ID        string          `json:"id,omitempty"`
	CallID    string          `json:"call_id,omitempty"`
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments,omitempty"`
	Args      json.RawMessage `json:"args,omitempty"`
	Signature string          `json:"thought_signature,omitempty"`
}

type functionResultWire struct {
	Type   string          `json:"type"`
	CallID string          `json:"call_id,omitempty"`
	Name   string          `json:"name,omitempty"`
	Result json.RawMessage `json:"result,omitempty"`
}

type codeExecutionCallWire struct {
	Type     string `json:"type"`
	CallID   string `json:"call_id,omitempty"`
	Language string `json:"language,omitempty"`
	Code     string `json:"code"`
}

type codeExecutionResultWire struct {
	Type    string `json:"type"`
	CallID  string `json:"call_id,omitempty"`
	Outcome string `json:"outcome,omitempty"`
	Output  string `json:"output"`
}

type searchCallWire struct {
	Type    string   `json:"type"`
	Queries []string `json:"queries,omitempty"`
}

type urlContextCallWire struct {
	Type string   `json:"type"`
	URLs []string `json:"urls,omitempty"`
}

type resultsWire struct {
	Type    string          `json:"type"`
	Results json.RawMessage `json:"results,omitempty"`
}

type computerUseCallWire struct {
	Type   string          `json:"type"`
	CallID string          `json:"call_id,omitempty"`
	Action json.RawMessage `json:"action,omitempty"`
}

type computerUseResultWire struct {
	Type   string          `json:"type"`
	CallID string          `json:"call_id,omitempty"`
	Output json.RawMessage `json:"output,omitempty"`
}

// MarshalJSON encodes the populated variant. Unknown content is emitted
// verbatim from its preserved raw object.
func (c Content) MarshalJSON() ([]byte, error) {
	switch c.Kind {
	case ContentText, ContentThought:
		return json.Marshal(textWire{Type: string(c.Kind), Text: c.Text})
	case ContentThoughtSignature:
		return json.Marshal(signatureWire{Type: string(c.Kind), Signature: c.Signature})
	case ContentFunctionCall:
		return json.Marshal(functionCallWire{
			Type:      string(c.Kind),
			ID:        c.CallID,
			Name:      c.Name,
			Arguments: c.Arguments,
			Signature: c.Signature,
		})
	case ContentFunctionResult:
		return json.Marshal(functionResultWire{
			Type:   string(c.Kind),
			CallID: c.CallID,
			Name:   c.Name,
			Result: c.Result,
		})
	case ContentCodeExecutionCall:
		return json.Marshal(codeExecutionCallWire{
			Type:     string(c.Kind),
			CallID:   c.CallID,
			Language: c.Language,
			Code:     c.Code,
		})
	case ContentCodeExecutionResult:
		return json.Marshal(codeExecutionResultWire{
			Type:    string(c.Kind),
			CallID:  c.CallID,
			Outcome: c.Outcome,
			Output:  c.Output,
		})
	case ContentGoogleSearchCall:
		return json.Marshal(searchCallWire{Type: string(c.Kind), Queries: c.Queries})
	case ContentURLContextCall:
		return json.Marshal(urlContextCallWire{Type: string(c.Kind), URLs: c.URLs})
	case ContentGoogleSearchResult, ContentFileSearchResult, ContentURLContextResult:
		return json.Marshal(resultsWire{Type: string(c.Kind), Results: c.Payload})
	case ContentComputerUseCall:
		return json.Marshal(computerUseCallWire{Type: string(c.Kind), CallID: c.CallID, Action: c.Payload})
	case ContentComputerUseResult:
		return json.Marshal(computerUseResultWire{Type: string(c.Kind), CallID: c.CallID, Output: c.Payload})
	case ContentUnknown:
		if len(c.Raw) == 0 {
			return nil, fmt.Errorf("unknown content %q has no raw payload", c.Tag)
		}
		return append([]byte(nil), c.Raw...), nil
	default:
		return nil, fmt.Errorf("unsupported content kind %q", c.Kind)
	}
}

// UnmarshalJSON decodes any content object. Tags without a known variant
// decode into Unknown; this never fails on schema evolution, only on
// malformed JSON.
func (c *Content) UnmarshalJSON(data []byte) error {
	var probe struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &probe); err != nil {
		return err
	}

	kind := ContentKind(probe.Type)
	switch kind {
	case ContentText, ContentThought:
		var w textWire
		if err := json.Unmarshal(data, &w); err != nil {
			return err
		}
		*c = Content{Kind: kind, Text: w.Text}
	case ContentThoughtSignature:
		var w signatureWire
		if err := json.Unmarshal(data, &w); err != nil {
			return err
		}
		*c = Content{Kind: kind, Signature: w.Signature}
	case ContentFunctionCall:
		var w functionCallWire
		if err := json.Unmarshal(data, &w); err != nil {
			return err
		}
		args := w.Arguments
		if len(args) == 0 {
			args = w.Args
		}
		id := w.ID
		if id == "" {
			id = w.CallID
		}
		*c = Content{Kind: kind, CallID: id, Name: w.Name, Arguments: args, Signature: w.Signature}
	case ContentFunctionResult:
		var w functionResultWire
		if err := json.Unmarshal(data, &w); err != nil {
			return err
		}
		*c = Content{Kind: kind, CallID: w.CallID, Name: w.Name, Result: w.Result}
	case ContentCodeExecutionCall:
		var w codeExecutionCallWire
		if err := json.Unmarshal(data, &w); err != nil {
			return err
		}
		*c = Content{Kind: kind, CallID: w.CallID, Language: w.Language, Code: w.Code}
	case ContentCodeExecutionResult:
		var w codeExecutionResultWire
		if err := json.Unmarshal(data, &w); err != nil {
			return err
		}
		*c = Content{Kind: kind, CallID: w.CallID, Outcome: w.Outcome, Output: w.Output}
	case ContentGoogleSearchCall:
		var w searchCallWire
		if err := json.Unmarshal(data, &w); err != nil {
			return err
		}
		*c = Content{Kind: kind, Queries: w.Queries}
	case ContentURLContextCall:
		var w urlContextCallWire
		if err := json.Unmarshal(data, &w); err != nil {
			return err
		}
		*c = Content{Kind: kind, URLs: w.URLs}
	case ContentGoogleSearchResult, ContentFileSearchResult, ContentURLContextResult:
		var w resultsWire
		if err := json.Unmarshal(data, &w); err != nil {
			return err
		}
		*c = Content{Kind: kind, Payload: w.Results}
	case ContentComputerUseCall:
		var w computerUseCallWire
		if err := json.Unmarshal(data, &w); err != nil {
			return err
		}
		*c = Content{Kind: kind, CallID: w.CallID, Payload: w.Action}
	case ContentComputerUseResult:
		var w computerUseResultWire
		if err := json.Unmarshal(data, &w); err != nil {
			return err
		}
		*c = Content{Kind: kind, CallID: w.CallID, Payload: w.Output}
	default:
		*c = Content{
			Kind: ContentUnknown,
			Tag:  probe.Type,
			Raw:  append(json.RawMessage(nil), data...),
		}
	}
	return nil
}

// IsCall reports whether the content is a function call the dispatcher can
// execute.
func (c Content) IsCall() bool { return c.Kind == ContentFunctionCall }

// NewTextContent builds a plain text content item.
func NewTextContent(text string) Content {
	return Content{Kind: ContentText, Text: text}
}

// NewFunctionResult builds a function_result content item from a raw JSON
// value, applying the protocol's return-value normalization. This is the
// entry point for feeding tool results manually, outside the auto loop.
func NewFunctionResult(name, callID string, v json.RawMessage) Content {
	return Content{
		Kind:   ContentFunctionResult,
		Name:   name,
		CallID: callID,
		Result: NormalizeResult(v),
	}
}

// NormalizeResult wraps primitive JSON values (string, number, boolean,
// array, null) as {"result": <value>}. Objects pass through unmodified:
// they are assumed to already be structured tool-result payloads.
func NormalizeResult(v json.RawMessage) json.RawMessage {
	trimmed := bytes.TrimLeft(v, " \t\r\n")
	if len(trimmed) == 0 {
		return json.RawMessage(`{"result":null}`)
	}
	if trimmed[0] == '{' {
		return v
	}
	buf := make([]byte, 0, len(trimmed)+12)
	buf = append(buf, `{"result":`...)
	buf = append(buf, bytes.TrimSpace(v)...)
	buf = append(buf, '}')
	return buf
}
