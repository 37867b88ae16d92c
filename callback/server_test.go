package callback

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedirect(t *testing.T) {
	tests := []struct {
		name       string
		query      string
		wantStatus int
		wantCode   string
		wantErr    error
	}{
		{
			name:       "success",
			query:      "?code=abc&state=s1&session_state=x",
			wantStatus: http.StatusOK,
			wantCode:   "abc",
		},
		{
			name:       "state mismatch",
			query:      "?code=abc&state=other",
			wantStatus: http.StatusBadRequest,
			wantErr:    ErrStateMismatch,
		},
		{
			name:       "no code",
			query:      "?state=s1",
			wantStatus: http.StatusBadRequest,
			wantErr:    ErrNoCode,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewServer("", "s1", zerolog.Nop())

			rec := httptest.NewRecorder()
			s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, DefaultPath+tt.query, nil))
			assert.Equal(t, tt.wantStatus, rec.Code)

			code, err := s.Wait(context.Background())
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantCode, code)
		})
	}
}

func TestRedirectDenied(t *testing.T) {
	s := NewServer("/cb", "s1", zerolog.Nop())

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/cb?error=access_denied&error_description=User+declined&state=s1", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "User declined")

	_, err := s.Wait(context.Background())
	var denied *DeniedError
	require.True(t, errors.As(err, &denied))
	assert.Equal(t, "access_denied", denied.Code)

	// A second redirect does not replace the first result
	rec = httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/cb?code=late&state=s1", nil))
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestServerStartAndWait(t *testing.T) {
	s := NewServer(DefaultPath, "state-xyz", zerolog.Nop())
	require.NoError(t, s.Start("127.0.0.1:0"))
	t.Cleanup(func() { s.Shutdown(context.Background()) })

	resp, err := http.Get("http://" + s.Addr() + DefaultPath + "?code=the-code&state=state-xyz")
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "You can close this window")
	assert.Equal(t, "no-cache, private, max-age=0", resp.Header.Get("Cache-Control"))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	code, err := s.Wait(ctx)
	require.NoError(t, err)
	assert.Equal(t, "the-code", code)
}

func TestWaitHonoursContext(t *testing.T) {
	s := NewServer("", "s", zerolog.Nop())
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err := s.Wait(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
