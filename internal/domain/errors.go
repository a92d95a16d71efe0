package domain

import (
	"errors"
	"fmt"
	"net/http"
)

// Sentinel errors for the domain layer.
var (
	ErrTransport        = fmt.Errorf("transport failure")
	ErrDecode           = fmt.Errorf("decode failure")
	ErrCallableNotFound = fmt.Errorf("callable not found")
	ErrMaxIterations    = fmt.Errorf("auto-function loop reached max iterations")
	ErrTruncatedStream  = fmt.Errorf("stream ended before a complete chunk")
	ErrStreamClosed     = fmt.Errorf("stream already closed")

	// Server-reported failure categories (mapped from HTTP status).
	ErrRateLimit       = fmt.Errorf("rate limit exceeded")
	ErrAuthInvalid     = fmt.Errorf("authentication failed")
	ErrContextOverflow = fmt.Errorf("context window exceeded")
)

// DomainError wraps a sentinel error with operation context.
type DomainError struct {
	Op     string // operation name (e.g., "Dispatcher.Dispatch")
	Err    error  // underlying sentinel or wrapped error
	Detail string // human-readable detail
}

func (e *DomainError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("%s: %s: %s", e.Op, e.Detail, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Err)
}

func (e *DomainError) Unwrap() error { return e.Err }

// NewDomainError creates a new DomainError.
func NewDomainError(op string, err error, detail string) *DomainError {
	return &DomainError{Op: op, Err: err, Detail: detail}
}

// WrapOp adds operation context to an error using fmt.Errorf wrapping.
// Returns nil if err is nil, enabling idiomatic use: return domain.WrapOp("op", err)
func WrapOp(op string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", op, err)
}

// APIError is a server-reported failure with retry/correlation context.
type APIError struct {
	StatusCode int
	Message    string
	RequestID  string
}

func (e *APIError) Error() string {
	if e.RequestID != "" {
		return fmt.Sprintf("api error %d (request %s): %s", e.StatusCode, e.RequestID, e.Message)
	}
	return fmt.Sprintf("api error %d: %s", e.StatusCode, e.Message)
}

// Retryable reports whether the server failure is transient: rate limiting
// and server-side errors may succeed on retry, client errors will not.
func (e *APIError) Retryable() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= 500
}

// UnknownTagError is returned by the decoder in strict mode when a tagged
// union carries a discriminant value with no known variant.
type UnknownTagError struct {
	Field string // discriminant field, e.g. "type" or "chunk_type"
	Tag   string // the unrecognized value
}

func (e *UnknownTagError) Error() string {
	return fmt.Sprintf("unrecognized %s tag %q", e.Field, e.Tag)
}

// IsRetryable reports whether err is a transient failure the caller's own
// retry policy may reasonably retry. The orchestration loop never retries;
// it only classifies.
func IsRetryable(err error) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Retryable()
	}
	return errors.Is(err, ErrRateLimit) || errors.Is(err, ErrTransport)
}

// ErrorCode is a machine-parseable error category for monitoring.
type ErrorCode string

const (
	CodeUnknown          ErrorCode = "UNKNOWN"
	CodeTransport        ErrorCode = "TRANSPORT"
	CodeDecode           ErrorCode = "DECODE"
	CodeCallableNotFound ErrorCode = "CALLABLE_NOT_FOUND"
	CodeMaxIterations    ErrorCode = "MAX_ITERATIONS"
	CodeTruncatedStream  ErrorCode = "TRUNCATED_STREAM"
	CodeRateLimit        ErrorCode = "RATE_LIMIT"
	CodeAuthInvalid      ErrorCode = "AUTH_INVALID"
	CodeContextOverflow  ErrorCode = "CONTEXT_OVERFLOW"
	CodeAPIError         ErrorCode = "API_ERROR"
)

// errorCodeMap maps sentinel errors to their machine-parseable codes.
var errorCodeMap = map[error]ErrorCode{
	ErrTransport:        CodeTransport,
	ErrDecode:           CodeDecode,
	ErrCallableNotFound: CodeCallableNotFound,
	ErrMaxIterations:    CodeMaxIterations,
	ErrTruncatedStream:  CodeTruncatedStream,
	ErrRateLimit:        CodeRateLimit,
	ErrAuthInvalid:      CodeAuthInvalid,
	ErrContextOverflow:  CodeContextOverflow,
}

// ErrorCodeOf returns the machine-parseable error code for the given error.
// It unwraps DomainError and walks the chain with errors.Is.
func ErrorCodeOf(err error) ErrorCode {
	if err == nil {
		return CodeUnknown
	}

	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return CodeAPIError
	}

	var de *DomainError
	if errors.As(err, &de) {
		if code, ok := errorCodeMap[de.Err]; ok {
			return code
		}
	}

	for sentinel, code := range errorCodeMap {
		if errors.Is(err, sentinel) {
			return code
		}
	}

	return CodeUnknown
}
