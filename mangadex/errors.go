package mangadex

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// Common errors. Typed errors below report these through errors.Is.
var (
	// ErrAuthenticationRequired indicates an authenticated call without a usable session
	ErrAuthenticationRequired = errors.New("authentication required")
	// ErrLoginFailure indicates the credentials were rejected
	ErrLoginFailure = errors.New("login failed")
	// ErrRefreshFailure indicates the refresh token was rejected
	ErrRefreshFailure = errors.New("token refresh failed")

	// ErrBadRequest matches 400 responses
	ErrBadRequest = errors.New("bad request")
	// ErrUnauthorized matches 401 responses
	ErrUnauthorized = errors.New("unauthorized")
	// ErrForbidden matches 403 responses
	ErrForbidden = errors.New("forbidden")
	// ErrNotFound matches 404 responses
	ErrNotFound = errors.New("resource not found")
	// ErrRateLimited matches 429 responses
	ErrRateLimited = errors.New("rate limited")
	// ErrServer matches 5xx responses
	ErrServer = errors.New("mangadex server error")

	// ErrInvalidConfig indicates invalid client configuration
	ErrInvalidConfig = errors.New("invalid mangadex configuration")
	// ErrInvalidID indicates a malformed MangaDex UUID
	ErrInvalidID = errors.New("invalid mangadex id")
)

// APIError is one entry of the "errors" array of a MangaDex error payload.
type APIError struct {
	ID      string          `json:"id"`
	Status  int             `json:"status"`
	Title   string          `json:"title"`
	Detail  string          `json:"detail"`
	Context json.RawMessage `json:"context,omitempty"`
}

// UnmarshalJSON decodes an error entry without failing on fields of an
// unexpected type. A status sent as a string such as "404" is converted and
// anything unreadable is left zero.
func (e *APIError) UnmarshalJSON(data []byte) error {
	var raw struct {
		ID      json.RawMessage `json:"id"`
		Status  json.RawMessage `json:"status"`
		Title   json.RawMessage `json:"title"`
		Detail  json.RawMessage `json:"detail"`
		Context json.RawMessage `json:"context"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*e = APIError{
		ID:      looseString(raw.ID),
		Status:  looseInt(raw.Status),
		Title:   looseString(raw.Title),
		Detail:  looseString(raw.Detail),
		Context: raw.Context,
	}
	return nil
}

// looseString returns a JSON string as is and any other scalar as its text.
func looseString(raw json.RawMessage) string {
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return string(raw)
}

func looseInt(raw json.RawMessage) int {
	var n int
	if err := json.Unmarshal(raw, &n); err == nil {
		return n
	}
	n, _ = strconv.Atoi(strings.TrimSpace(looseString(raw)))
	return n
}

// ContextString renders the context field, which the API sends either as a
// string or as an object.
func (e APIError) ContextString() string {
	if len(e.Context) == 0 || string(e.Context) == "null" {
		return ""
	}
	var s string
	if err := json.Unmarshal(e.Context, &s); err == nil {
		return s
	}
	return string(e.Context)
}

func (e APIError) String() string {
	return fmt.Sprintf("%s: %s", e.Title, e.Detail)
}

// APIException is returned for non-2xx responses that are not retried.
type APIException struct {
	StatusCode int
	// ResponseID is the correlation id to quote in upstream bug reports.
	ResponseID string
	Errors     []APIError
	// RetryAfter is set on rate limited responses.
	RetryAfter time.Time
	// Body holds the raw payload when it was not a structured error document.
	Body string
}

// Error implements the error interface
func (e *APIException) Error() string {
	var details []string
	for _, apiErr := range e.Errors {
		if apiErr.Detail != "" {
			details = append(details, apiErr.Detail)
		} else if apiErr.Title != "" {
			details = append(details, apiErr.Title)
		}
	}
	msg := strings.Join(details, ", ")
	if msg == "" {
		msg = http.StatusText(e.StatusCode)
	}
	if e.ResponseID != "" {
		return fmt.Sprintf("mangadex API error: status %d (response id %s): %s", e.StatusCode, e.ResponseID, msg)
	}
	return fmt.Sprintf("mangadex API error: status %d: %s", e.StatusCode, msg)
}

// Is maps the status code onto the package sentinels.
func (e *APIException) Is(target error) bool {
	switch target {
	case ErrBadRequest:
		return e.StatusCode == http.StatusBadRequest
	case ErrUnauthorized:
		return e.StatusCode == http.StatusUnauthorized
	case ErrForbidden:
		return e.StatusCode == http.StatusForbidden
	case ErrNotFound:
		return e.StatusCode == http.StatusNotFound
	case ErrRateLimited:
		return e.StatusCode == http.StatusTooManyRequests
	}
	return false
}

// IsNotFound checks if the error indicates a not found response
func (e *APIException) IsNotFound() bool {
	return e.StatusCode == http.StatusNotFound
}

// IsUnauthorized checks if the error indicates an authentication failure
func (e *APIException) IsUnauthorized() bool {
	return e.StatusCode == http.StatusUnauthorized || e.StatusCode == http.StatusForbidden
}

// HasCode reports whether any of the errors carries the given title. MangaDex
// uses the title as its machine readable error code.
func (e *APIException) HasCode(code string) bool {
	for _, apiErr := range e.Errors {
		if strings.EqualFold(apiErr.Title, code) {
			return true
		}
	}
	return false
}

// ServerError is returned for 5xx responses, including 503 after the retry
// budget is exhausted.
type ServerError struct {
	StatusCode int
	ResponseID string
	Attempts   int
}

func (e *ServerError) Error() string {
	return fmt.Sprintf("mangadex server error: status %d after %d attempt(s)", e.StatusCode, e.Attempts)
}

func (e *ServerError) Is(target error) bool {
	return target == ErrServer
}

// TransportError wraps connection and timeout failures. The pipeline never
// retries these.
type TransportError struct {
	Method string
	URL    string
	Err    error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Method, e.URL, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// Timeout reports whether the failure was a timeout.
func (e *TransportError) Timeout() bool {
	var t interface{ Timeout() bool }
	if errors.As(e.Err, &t) {
		return t.Timeout()
	}
	return false
}

// AuthError is returned by the session manager. Kind is one of
// ErrAuthenticationRequired, ErrLoginFailure or ErrRefreshFailure.
type AuthError struct {
	Kind        error
	StatusCode  int
	Code        string
	Description string
	Err         error
}

func (e *AuthError) Error() string {
	var b strings.Builder
	b.WriteString(e.Kind.Error())
	if e.Code != "" {
		b.WriteString(": ")
		b.WriteString(e.Code)
	}
	if e.Description != "" {
		b.WriteString(" (")
		b.WriteString(e.Description)
		b.WriteString(")")
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *AuthError) Is(target error) bool {
	return target == e.Kind
}

func (e *AuthError) Unwrap() error {
	return e.Err
}

// DecodeError is returned when a successful response does not carry the JSON
// document the endpoint promises.
type DecodeError struct {
	StatusCode  int
	ContentType string
	Err         error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("failed to decode response (status %d, content-type %q): %v", e.StatusCode, e.ContentType, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// UploadInProgressError is returned when the user already has an open upload
// session.
type UploadInProgressError struct {
	SessionID string
}

func (e *UploadInProgressError) Error() string {
	return fmt.Sprintf("an upload session is already open: %s", e.SessionID)
}

// ResponseID extracts the correlation id from any error produced by the
// pipeline, or returns an empty string.
func ResponseID(err error) string {
	var apiErr *APIException
	if errors.As(err, &apiErr) {
		return apiErr.ResponseID
	}
	var srvErr *ServerError
	if errors.As(err, &srvErr) {
		return srvErr.ResponseID
	}
	return ""
}
