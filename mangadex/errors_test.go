package mangadex

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAPIExceptionIs(t *testing.T) {
	tests := []struct {
		status   int
		sentinel error
	}{
		{http.StatusBadRequest, ErrBadRequest},
		{http.StatusUnauthorized, ErrUnauthorized},
		{http.StatusForbidden, ErrForbidden},
		{http.StatusNotFound, ErrNotFound},
		{http.StatusTooManyRequests, ErrRateLimited},
	}

	sentinels := []error{ErrBadRequest, ErrUnauthorized, ErrForbidden, ErrNotFound, ErrRateLimited, ErrServer}

	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			err := fmt.Errorf("wrapped: %w", &APIException{StatusCode: tt.status})
			for _, s := range sentinels {
				assert.Equal(t, s == tt.sentinel, errors.Is(err, s), "sentinel %v", s)
			}
		})
	}
}

func TestAPIExceptionError(t *testing.T) {
	err := &APIException{
		StatusCode: http.StatusNotFound,
		ResponseID: "req-1",
		Errors: []APIError{
			{Status: 404, Title: "not_found_http_exception", Detail: "Manga could not be found"},
			{Status: 404, Title: "second"},
		},
	}
	assert.Equal(t, "mangadex API error: status 404 (response id req-1): Manga could not be found, second", err.Error())
	assert.True(t, err.IsNotFound())
	assert.False(t, err.IsUnauthorized())
	assert.True(t, err.HasCode("NOT_FOUND_HTTP_EXCEPTION"))

	bare := &APIException{StatusCode: http.StatusForbidden}
	assert.Equal(t, "mangadex API error: status 403: Forbidden", bare.Error())
	assert.True(t, bare.IsUnauthorized())
}

func TestAPIErrorContextString(t *testing.T) {
	var errs []APIError
	require.NoError(t, json.Unmarshal([]byte(`[
		{"id":"1","status":400,"title":"t","detail":"d","context":"plain"},
		{"id":"2","status":400,"title":"t","detail":"d","context":{"field":"limit"}},
		{"id":"3","status":400,"title":"t","detail":"d","context":null}
	]`), &errs))

	assert.Equal(t, "plain", errs[0].ContextString())
	assert.Equal(t, `{"field":"limit"}`, errs[1].ContextString())
	assert.Equal(t, "", errs[2].ContextString())
	assert.Equal(t, "t: d", errs[0].String())
}

func TestAPIErrorLenientDecode(t *testing.T) {
	var e APIError
	require.NoError(t, json.Unmarshal([]byte(`{"id":12,"status":" 429 ","title":["x"],"detail":"slow down"}`), &e))
	assert.Equal(t, "12", e.ID)
	assert.Equal(t, 429, e.Status)
	assert.Equal(t, `["x"]`, e.Title)
	assert.Equal(t, "slow down", e.Detail)

	require.NoError(t, json.Unmarshal([]byte(`{"status":"teapot"}`), &e))
	assert.Zero(t, e.Status)
	assert.Empty(t, e.Detail, "fields are reset between decodes")

	assert.Error(t, json.Unmarshal([]byte(`"not an object"`), &e))
}

func TestServerError(t *testing.T) {
	err := &ServerError{StatusCode: http.StatusServiceUnavailable, ResponseID: "r", Attempts: 4}
	assert.ErrorIs(t, err, ErrServer)
	assert.NotErrorIs(t, err, ErrNotFound)
	assert.Equal(t, "r", ResponseID(err))
	assert.Contains(t, err.Error(), "after 4 attempt(s)")
}

func TestAuthError(t *testing.T) {
	cause := errors.New("boom")
	err := &AuthError{Kind: ErrLoginFailure, StatusCode: 401, Code: "invalid_grant", Description: "Invalid user credentials", Err: cause}

	assert.ErrorIs(t, err, ErrLoginFailure)
	assert.ErrorIs(t, err, cause)
	assert.NotErrorIs(t, err, ErrRefreshFailure)
	assert.Equal(t, "login failed: invalid_grant (Invalid user credentials): boom", err.Error())
}

func TestTransportErrorTimeout(t *testing.T) {
	err := &TransportError{Method: http.MethodGet, URL: "https://x", Err: context.DeadlineExceeded}
	assert.True(t, err.Timeout())
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	err = &TransportError{Method: http.MethodGet, URL: "https://x", Err: errors.New("refused")}
	assert.False(t, err.Timeout())
}

func TestResponseID(t *testing.T) {
	assert.Equal(t, "abc", ResponseID(fmt.Errorf("x: %w", &APIException{StatusCode: 400, ResponseID: "abc"})))
	assert.Equal(t, "", ResponseID(errors.New("plain")))
	assert.Equal(t, "", ResponseID(nil))
}
