package domain

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDomainErrorFormat(t *testing.T) {
	err := NewDomainError("Dispatcher.Dispatch", ErrCallableNotFound, "function 'get_weather'")
	want := "Dispatcher.Dispatch: function 'get_weather': callable not found"
	if err.Error() != want {
		t.Errorf("got %q, want %q", err.Error(), want)
	}
}

func TestDomainErrorFormatNoDetail(t *testing.T) {
	err := NewDomainError("Loop.Run", ErrMaxIterations, "")
	want := "Loop.Run: auto-function loop reached max iterations"
	if err.Error() != want {
		t.Errorf("got %q, want %q", err.Error(), want)
	}
}

func TestDomainErrorUnwrap(t *testing.T) {
	err := NewDomainError("Stream.Wait", ErrTruncatedStream, "")
	if !errors.Is(err, ErrTruncatedStream) {
		t.Error("errors.Is should match ErrTruncatedStream")
	}
}

func TestDomainErrorAs(t *testing.T) {
	err := NewDomainError("Client.Interact", ErrTransport, "dial tcp")
	var de *DomainError
	if !errors.As(err, &de) {
		t.Fatal("errors.As should match *DomainError")
	}
	if de.Op != "Client.Interact" {
		t.Errorf("Op = %q, want %q", de.Op, "Client.Interact")
	}
}

func TestAPIErrorRetryable(t *testing.T) {
	cases := []struct {
		status    int
		retryable bool
	}{
		{http.StatusTooManyRequests, true},
		{http.StatusInternalServerError, true},
		{http.StatusBadGateway, true},
		{http.StatusBadRequest, false},
		{http.StatusUnauthorized, false},
		{http.StatusNotFound, false},
	}
	for _, tc := range cases {
		err := &APIError{StatusCode: tc.status, Message: "boom"}
		assert.Equal(t, tc.retryable, err.Retryable(), "status %d", tc.status)
	}
}

func TestAPIErrorMessage(t *testing.T) {
	err := &APIError{StatusCode: 429, Message: "slow down", RequestID: "req_123"}
	assert.Contains(t, err.Error(), "429")
	assert.Contains(t, err.Error(), "req_123")
	assert.Contains(t, err.Error(), "slow down")
}

func TestIsRetryable(t *testing.T) {
	assert.True(t, IsRetryable(&APIError{StatusCode: 503}))
	assert.False(t, IsRetryable(&APIError{StatusCode: 400}))
	assert.True(t, IsRetryable(fmt.Errorf("wrapped: %w", ErrTransport)))
	assert.False(t, IsRetryable(ErrDecode))
	assert.False(t, IsRetryable(ErrMaxIterations))
}

func TestUnknownTagError(t *testing.T) {
	err := &UnknownTagError{Field: "type", Tag: "hologram"}
	assert.Equal(t, `unrecognized type tag "hologram"`, err.Error())
}

func TestErrorCodeOf_DirectSentinel(t *testing.T) {
	assert.Equal(t, CodeCallableNotFound, ErrorCodeOf(ErrCallableNotFound))
	assert.Equal(t, CodeTruncatedStream, ErrorCodeOf(ErrTruncatedStream))
	assert.Equal(t, CodeRateLimit, ErrorCodeOf(ErrRateLimit))
}

func TestErrorCodeOf_DomainError(t *testing.T) {
	err := NewDomainError("Loop.Run", ErrMaxIterations, "")
	assert.Equal(t, CodeMaxIterations, ErrorCodeOf(err))
}

func TestErrorCodeOf_WrappedError(t *testing.T) {
	err := fmt.Errorf("submit: %w", ErrDecode)
	assert.Equal(t, CodeDecode, ErrorCodeOf(err))
}

func TestErrorCodeOf_APIError(t *testing.T) {
	assert.Equal(t, CodeAPIError, ErrorCodeOf(&APIError{StatusCode: 500}))
}

func TestErrorCodeOf_Unknown(t *testing.T) {
	assert.Equal(t, CodeUnknown, ErrorCodeOf(nil))
	assert.Equal(t, CodeUnknown, ErrorCodeOf(errors.New("something else")))
}
