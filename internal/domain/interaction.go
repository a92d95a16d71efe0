package domain

import "encoding/json"

// Role constants for conversation turns.
type Role string

const (
	RoleUser  Role = "user"
	RoleModel Role = "model"
)

// ResponseStatus is the server-reported terminal status of an interaction.
type ResponseStatus string

const (
	StatusCompleted  ResponseStatus = "completed"
	StatusIncomplete ResponseStatus = "incomplete"
	StatusFailed     ResponseStatus = "failed"
)

// Usage tracks token consumption for one interaction.
type Usage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
	TotalTokens  int `json:"total_tokens"`
}

// Response is the fully materialized result of one interaction.
type Response struct {
	ID      string         `json:"id"`
	Model   string         `json:"model,omitempty"`
	Status  ResponseStatus `json:"status"`
	Outputs []Content      `json:"outputs"`
	Usage   Usage          `json:"usage,omitempty"`
}

// Text concatenates all text outputs in order.
func (r *Response) Text() string {
	var out []byte
	for _, c := range r.Outputs {
		if c.Kind == ContentText {
			out = append(out, c.Text...)
		}
	}
	return string(out)
}

// FunctionCalls returns the function_call outputs in arrival order.
func (r *Response) FunctionCalls() []Content {
	var calls []Content
	for _, c := range r.Outputs {
		if c.Kind == ContentFunctionCall {
			calls = append(calls, c)
		}
	}
	return calls
}

// ThoughtSignatures returns the thought_signature outputs in arrival order.
func (r *Response) ThoughtSignatures() []string {
	var sigs []string
	for _, c := range r.Outputs {
		if c.Kind == ContentThoughtSignature {
			sigs = append(sigs, c.Signature)
		}
	}
	return sigs
}

// Turn is one conversation turn: a role plus ordered content.
type Turn struct {
	Role    Role      `json:"role"`
	Content []Content `json:"content"`
}

// NewUserTurn builds a user turn from content items.
func NewUserTurn(content ...Content) Turn {
	return Turn{Role: RoleUser, Content: content}
}

// NewModelTurn builds a model turn from content items.
func NewModelTurn(content ...Content) Turn {
	return Turn{Role: RoleModel, Content: content}
}

// FunctionDeclaration describes a callable function to the model. It is
// produced by an external collaborator (code generation or manual
// construction) and consumed read-only here.
type FunctionDeclaration struct {
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	Parameters  json.RawMessage `json:"parameters,omitempty"`
}

// InteractionRequest is one request to the model endpoint.
type InteractionRequest struct {
	Model string                `json:"model,omitempty"`
	Input []Turn                `json:"input"`
	Tools []FunctionDeclaration `json:"tools,omitempty"`

	// PreviousInteractionID chains this request to a prior interaction so
	// the server retains conversation state (including thought-signature
	// context) and only the new turns need to be sent.
	PreviousInteractionID string `json:"previous_interaction_id,omitempty"`

	Stream bool `json:"stream,omitempty"`
}
