// Package callback runs the short lived local web server that receives the
// authorization code at the end of the MangaDex OAuth2 authorization code
// flow.
package callback

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"html"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/rs/zerolog"
)

// DefaultPath is the redirect path registered for dexter's OAuth client.
const DefaultPath = "/auth_code"

var (
	// ErrStateMismatch indicates a redirect whose state was not the one sent
	ErrStateMismatch = errors.New("oauth state does not match")
	// ErrNoCode indicates a redirect without an authorization code
	ErrNoCode = errors.New("redirect carries no authorization code")
)

// DeniedError is the error the authorization server redirected with, for
// example when the user declined access.
type DeniedError struct {
	Code        string
	Description string
}

func (e *DeniedError) Error() string {
	if e.Description != "" {
		return fmt.Sprintf("authorization denied: %s (%s)", e.Code, e.Description)
	}
	return "authorization denied: " + e.Code
}

type result struct {
	code string
	err  error
}

// Server waits for one authorization redirect.
type Server struct {
	path   string
	state  string
	logger zerolog.Logger

	srv      *http.Server
	listener net.Listener
	results  chan result
	once     sync.Once
}

// NewServer creates a server that accepts redirects on path carrying state.
func NewServer(path, state string, logger zerolog.Logger) *Server {
	if path == "" {
		path = DefaultPath
	}
	s := &Server{
		path:    path,
		state:   state,
		logger:  logger.With().Str("component", "callback").Logger(),
		results: make(chan result, 1),
	}
	s.srv = &http.Server{
		Handler:           s.routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

func (s *Server) routes() *chi.Mux {
	router := chi.NewRouter()
	router.Use(
		middleware.Recoverer,
		middleware.NoCache,
	)
	router.Get(s.path, s.handleRedirect)
	return router
}

// Handler exposes the routes, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.srv.Handler
}

// Start listens on addr, such as "localhost:8765", and serves in the
// background.
func (s *Server) Start(addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}
	s.listener = ln

	go func() {
		if err := s.srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error().Err(err).Msg("Callback server stopped")
		}
	}()

	s.logger.Debug().Str("addr", ln.Addr().String()).Str("path", s.path).Msg("Waiting for authorization redirect")
	return nil
}

// Addr returns the address the server listens on.
func (s *Server) Addr() string {
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Wait blocks until a redirect arrives or ctx is done.
func (s *Server) Wait(ctx context.Context) (string, error) {
	select {
	case r := <-s.results:
		return r.code, r.err
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// Shutdown stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}

func (s *Server) handleRedirect(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	var res result
	switch {
	case q.Get("error") != "":
		res.err = &DeniedError{Code: q.Get("error"), Description: q.Get("error_description")}
	case subtle.ConstantTimeCompare([]byte(q.Get("state")), []byte(s.state)) != 1:
		res.err = ErrStateMismatch
	case q.Get("code") == "":
		res.err = ErrNoCode
	default:
		res.code = q.Get("code")
	}

	// Only the first redirect counts
	delivered := false
	s.once.Do(func() {
		s.results <- res
		delivered = true
	})

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	switch {
	case !delivered:
		w.WriteHeader(http.StatusConflict)
		fmt.Fprint(w, page("Already handled", "This login has already been completed. You can close this window."))
	case res.err != nil:
		s.logger.Warn().Err(res.err).Msg("Rejected authorization redirect")
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprint(w, page("Login failed", res.err.Error()))
	default:
		fmt.Fprint(w, page("Logged in", "dexter received the authorization code. You can close this window."))
	}
}

func page(title, message string) string {
	return fmt.Sprintf("<!doctype html><html><head><title>%s</title></head><body><h1>%s</h1><p>%s</p></body></html>",
		html.EscapeString(title), html.EscapeString(title), html.EscapeString(message))
}
