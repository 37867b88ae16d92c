package mangadex

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"time"
)

// RetryPolicy bounds the recovery the pipeline performs on its own.
type RetryPolicy struct {
	// MaxRetries caps the retries spent on 503 and 429 responses combined.
	MaxRetries int
	// InitialBackoff is the delay before the first 503 retry. Each further
	// retry doubles it up to MaxBackoff.
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
	// MaxRateLimitWait is the longest a 429 is waited out before it is
	// returned to the caller.
	MaxRateLimitWait time.Duration
}

// DefaultRetryPolicy returns the policy used when none is configured.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxRetries:       3,
		InitialBackoff:   time.Second,
		MaxBackoff:       8 * time.Second,
		MaxRateLimitWait: time.Minute,
	}
}

func (p RetryPolicy) validate() error {
	if p.MaxRetries < 0 {
		return errors.New("max retries cannot be negative")
	}
	if p.InitialBackoff < 0 || p.MaxBackoff < 0 || p.MaxRateLimitWait < 0 {
		return errors.New("retry durations cannot be negative")
	}
	return nil
}

func (p RetryPolicy) backoff(retry int) time.Duration {
	d := p.InitialBackoff
	for i := 0; i < retry && d > 0; i++ {
		if d > math.MaxInt64/2 {
			// Unbounded policies saturate instead of overflowing.
			d = math.MaxInt64
			break
		}
		d *= 2
		if p.MaxBackoff > 0 && d >= p.MaxBackoff {
			return p.MaxBackoff
		}
	}
	if p.MaxBackoff > 0 && d > p.MaxBackoff {
		return p.MaxBackoff
	}
	return d
}

// maxErrorBody caps how much of an unstructured error body is kept.
const maxErrorBody = 1024

// Request performs route and returns the JSON document of a successful
// response, or nil for empty responses.
//
// body may be nil, a *MultipartBody, a json.RawMessage or any value that
// marshals to JSON.
func (c *Client) Request(ctx context.Context, route Route, body any) (json.RawMessage, error) {
	resp, data, err := c.execute(ctx, route, body)
	if err != nil {
		return nil, err
	}
	return decodeSuccess(resp, data)
}

// execute runs the retry loop and maps every non-2xx outcome to an error.
func (c *Client) execute(ctx context.Context, route Route, body any) (*http.Response, []byte, error) {
	payload, contentType, err := encodeBody(body)
	if err != nil {
		return nil, nil, err
	}

	var token string
	if route.Auth {
		if token, err = c.session.Token(ctx); err != nil {
			return nil, nil, err
		}
	}

	bucket := route.Bucket()
	retries := 0
	refreshed := false

	for attempt := 1; ; attempt++ {
		if err := c.limiter.wait(ctx, bucket); err != nil {
			return nil, nil, &TransportError{Method: route.Method, URL: route.URL(c.base(route)), Err: err}
		}

		resp, data, err := c.send(ctx, route, payload, contentType, token)
		if err != nil {
			return nil, nil, err
		}
		c.limiter.observe(bucket, resp)

		status := resp.StatusCode
		switch {
		case status >= 200 && status < 300:
			return resp, data, nil

		case status == http.StatusServiceUnavailable:
			if retries < c.retry.MaxRetries {
				delay := c.retry.backoff(retries)
				retries++
				c.logger.Warn().
					Str("route", route.String()).
					Int("retry", retries).
					Dur("delay", delay).
					Msg("MangaDex returned 503, retrying")
				if err := c.sleep(ctx, delay); err != nil {
					return nil, nil, &TransportError{Method: route.Method, URL: route.URL(c.base(route)), Err: err}
				}
				continue
			}
			return nil, nil, &ServerError{StatusCode: status, ResponseID: responseID(resp, nil), Attempts: attempt}

		case status >= 500:
			c.logger.Error().Str("route", route.String()).Int("status", status).Msg("MangaDex server error")
			return nil, nil, &ServerError{StatusCode: status, ResponseID: responseID(resp, nil), Attempts: attempt}

		case status == http.StatusUnauthorized && route.Auth:
			apiErr := newAPIException(resp, data)
			if refreshed {
				return nil, nil, &AuthError{Kind: ErrAuthenticationRequired, StatusCode: status, Description: "token rejected after refresh", Err: apiErr}
			}
			refreshed = true
			c.logger.Debug().Str("route", route.String()).Msg("Access token rejected, refreshing once")
			if token, err = c.session.Invalidate(ctx, token); err != nil {
				return nil, nil, err
			}
			continue

		case status == http.StatusTooManyRequests:
			apiErr := newAPIException(resp, data)
			wait := apiErr.RetryAfter.Sub(c.limiter.now())
			if !apiErr.RetryAfter.IsZero() && wait <= c.retry.MaxRateLimitWait && retries < c.retry.MaxRetries {
				retries++
				c.logger.Warn().
					Str("route", route.String()).
					Dur("wait", wait).
					Msg("Rate limited, waiting")
				if err := c.sleep(ctx, wait); err != nil {
					return nil, nil, &TransportError{Method: route.Method, URL: route.URL(c.base(route)), Err: err}
				}
				continue
			}
			return nil, nil, apiErr

		default:
			return nil, nil, newAPIException(resp, data)
		}
	}
}

func (c *Client) base(route Route) string {
	if route.Base == BaseAuth {
		return c.authURL
	}
	return c.baseURL
}

// send performs one HTTP round trip and reads the whole body.
func (c *Client) send(ctx context.Context, route Route, payload []byte, contentType, token string) (*http.Response, []byte, error) {
	u := route.URL(c.base(route))

	var rdr io.Reader
	if payload != nil {
		rdr = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, route.Method, u, rdr)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	if e := c.logger.Debug(); e.Enabled() {
		e = e.Str("method", route.Method).
			Str("url", u).
			Interface("headers", redactHeaders(req.Header))
		if contentType == "application/json" {
			e = e.Str("body", redactJSON(payload))
		} else if payload != nil {
			e = e.Int("body_bytes", len(payload))
		}
		e.Msg("Making MangaDex API request")
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, nil, &TransportError{Method: route.Method, URL: u, Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, nil, &TransportError{Method: route.Method, URL: u, Err: fmt.Errorf("failed to read response body: %w", err)}
	}

	c.logger.Debug().
		Str("method", route.Method).
		Str("url", u).
		Int("status", resp.StatusCode).
		Dur("took", time.Since(start)).
		Str("ratelimit_remaining", resp.Header.Get(headerRateLimitRemaining)).
		Str("ratelimit_limit", resp.Header.Get(headerRateLimitLimit)).
		Str("request_id", resp.Header.Get("X-Request-ID")).
		Msg("MangaDex API response")

	if e := c.logger.Trace(); e.Enabled() && len(data) > 0 {
		e.Str("body", redactJSON(data)).Msg("MangaDex API response body")
	}

	return resp, data, nil
}

func encodeBody(body any) ([]byte, string, error) {
	switch b := body.(type) {
	case nil:
		return nil, "", nil
	case *MultipartBody:
		if b == nil {
			return nil, "", nil
		}
		return b.encode()
	case json.RawMessage:
		return b, "application/json", nil
	default:
		data, err := json.Marshal(body)
		if err != nil {
			return nil, "", fmt.Errorf("failed to encode request body: %w", err)
		}
		return data, "application/json", nil
	}
}

// envelope is the part of every MangaDex document that tells success from
// failure.
type envelope struct {
	Result string
	Errors []APIError
}

// parseEnvelope reads the result and errors of a JSON object. Entries that
// cannot be decoded are skipped so one malformed error does not hide the
// rest. ok is false when data is not a JSON object.
func parseEnvelope(data []byte) (env envelope, ok bool) {
	var doc map[string]json.RawMessage
	if err := json.Unmarshal(data, &doc); err != nil || doc == nil {
		return env, false
	}
	env.Result = looseString(doc["result"])

	var entries []json.RawMessage
	if err := json.Unmarshal(doc["errors"], &entries); err != nil {
		return env, true
	}
	for _, entry := range entries {
		var apiErr APIError
		if err := json.Unmarshal(entry, &apiErr); err == nil {
			env.Errors = append(env.Errors, apiErr)
		}
	}
	return env, true
}

// decodeSuccess validates a 2xx body. A "result": "error" document is turned
// into an APIException even though the status was 2xx.
func decodeSuccess(resp *http.Response, data []byte) (json.RawMessage, error) {
	trimmed := bytes.TrimSpace(data)
	if resp.StatusCode == http.StatusNoContent || len(trimmed) == 0 {
		return nil, nil
	}
	if !json.Valid(trimmed) {
		return nil, &DecodeError{
			StatusCode:  resp.StatusCode,
			ContentType: resp.Header.Get("Content-Type"),
			Err:         errors.New("response body is not valid JSON"),
		}
	}

	if trimmed[0] == '{' {
		if env, ok := parseEnvelope(trimmed); ok && env.Result == "error" {
			return nil, &APIException{
				StatusCode: resp.StatusCode,
				Errors:     env.Errors,
				ResponseID: responseID(resp, env.Errors),
			}
		}
	}
	return json.RawMessage(trimmed), nil
}

// newAPIException builds the error for a non-2xx response. Bodies that are
// not the documented error shape still produce an APIException, with the raw
// payload kept in Body when no error entry could be read.
func newAPIException(resp *http.Response, data []byte) *APIException {
	exc := &APIException{StatusCode: resp.StatusCode}

	if env, ok := parseEnvelope(data); ok && len(env.Errors) > 0 {
		exc.Errors = env.Errors
	} else if len(bytes.TrimSpace(data)) > 0 {
		body := string(data)
		if len(body) > maxErrorBody {
			body = body[:maxErrorBody]
		}
		exc.Body = body
	}

	exc.ResponseID = responseID(resp, exc.Errors)
	if resp.StatusCode == http.StatusTooManyRequests {
		if until, ok := retryAfter(resp.Header, time.Now()); ok {
			exc.RetryAfter = until
		}
	}
	return exc
}

// responseID prefers the X-Request-ID header and falls back to the id of
// the first error.
func responseID(resp *http.Response, errs []APIError) string {
	if id := resp.Header.Get("X-Request-ID"); id != "" {
		return id
	}
	if len(errs) > 0 {
		return errs[0].ID
	}
	return ""
}

// fetch performs route and decodes the JSON result into T.
func fetch[T any](ctx context.Context, c *Client, route Route, body any) (*T, error) {
	raw, err := c.Request(ctx, route, body)
	if err != nil {
		return nil, err
	}
	var out T
	if raw == nil {
		return &out, nil
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, &DecodeError{StatusCode: http.StatusOK, ContentType: "application/json", Err: err}
	}
	return &out, nil
}
