package supabase

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

// ErrUserAlreadyExists is returned when sign-up hits an already registered email.
var ErrUserAlreadyExists = errors.New("User already exists")

const defaultErrorMessage = "Something went wrong"

// UpstreamError is a non-2xx response from the backend.
type UpstreamError struct {
	Status  int
	Code    string
	Message string
}

func (e *UpstreamError) Error() string {
	return e.Message
}

// Temporary reports whether repeating the same request may succeed.
func (e *UpstreamError) Temporary() bool {
	return e.Status >= http.StatusInternalServerError || e.Status == http.StatusTooManyRequests
}

// ParseError means a response body could not be decoded as JSON. Status is
// set when the body came with a non-2xx response, such as a proxy error page.
type ParseError struct {
	Status  int
	Snippet string
	Err     error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("Failed to parse response as JSON: %s...", e.Snippet)
}

func (e *ParseError) Unwrap() error { return e.Err }

// Temporary reports whether the failed response had a retryable status.
func (e *ParseError) Temporary() bool {
	return e.Status >= http.StatusInternalServerError || e.Status == http.StatusTooManyRequests
}

// errorBody covers the error shapes used by the auth and rest services.
type errorBody struct {
	ErrorDescription string          `json:"error_description"`
	ErrorCode        string          `json:"error_code"`
	Code             json.RawMessage `json:"code"`
	Error            json.RawMessage `json:"error"`
	Message          string          `json:"message"`
	Msg              string          `json:"msg"`
}

// decodeError turns a failed response into an error value. The message is the
// first present of error_description, error.message, message and msg. A body
// that is not JSON at all is kept as a *ParseError.
func decodeError(status int, body []byte) error {
	if trimmed := bytes.TrimSpace(body); len(trimmed) > 0 && !json.Valid(trimmed) {
		return &ParseError{Status: status, Snippet: snippet(trimmed)}
	}

	var eb errorBody
	_ = json.Unmarshal(body, &eb)

	if status == http.StatusUnprocessableEntity && eb.ErrorCode == "user_already_exists" {
		return ErrUserAlreadyExists
	}

	msg := eb.ErrorDescription
	if msg == "" {
		msg = nestedMessage(eb.Error)
	}
	if msg == "" {
		msg = eb.Message
	}
	if msg == "" {
		msg = eb.Msg
	}
	if msg == "" {
		msg = defaultErrorMessage
	}

	code := eb.ErrorCode
	if code == "" {
		code = rawString(eb.Code)
	}

	return &UpstreamError{Status: status, Code: code, Message: msg}
}

func nestedMessage(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var nested struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(raw, &nested); err != nil {
		return ""
	}
	return nested.Message
}

// rawString reads a code that may be sent as a string or a number.
func rawString(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return string(raw)
}

// IsStatus reports whether err is an UpstreamError with the given status.
func IsStatus(err error, status int) bool {
	var ue *UpstreamError
	return errors.As(err, &ue) && ue.Status == status
}
