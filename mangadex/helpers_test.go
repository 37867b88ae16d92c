package mangadex

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

const (
	testClientID     = "personal-client-test"
	testClientSecret = "client-secret"
	testUsername     = "reader"
	testPassword     = "hunter2"
)

func passwordCreds() Credentials {
	return Credentials{
		Username:     testUsername,
		Password:     testPassword,
		ClientID:     testClientID,
		ClientSecret: testClientSecret,
	}
}

// testClock is a settable clock shared by the fake auth server and the
// session so token expiry can be driven by tests.
type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func newTestClock() *testClock {
	return &testClock{now: time.Now().Truncate(time.Second)}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

// fakeAuth mimics the Keycloak token and logout endpoints.
type fakeAuth struct {
	clock *testClock
	ttl   time.Duration

	mu           sync.Mutex
	grants       []string
	forms        []map[string]string
	logouts      int
	issued       int
	failPassword bool
	failRefresh  bool

	// entered receives a value when a token request arrives and release
	// must be closed before it is answered. Both are optional.
	entered chan struct{}
	release chan struct{}
	delay   time.Duration
}

func newFakeAuth(clock *testClock) *fakeAuth {
	return &fakeAuth{clock: clock, ttl: 15 * time.Minute}
}

func (f *fakeAuth) Grants() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.grants...)
}

func (f *fakeAuth) Logouts() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.logouts
}

func (f *fakeAuth) Form(i int) map[string]string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.forms[i]
}

// set changes the server's behaviour while requests may be in flight.
func (f *fakeAuth) set(fn func(f *fakeAuth)) {
	f.mu.Lock()
	fn(f)
	f.mu.Unlock()
}

func (f *fakeAuth) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	form := make(map[string]string, len(r.PostForm))
	for k := range r.PostForm {
		form[k] = r.PostForm.Get(k)
	}

	switch {
	case strings.HasSuffix(r.URL.Path, "/logout"):
		f.mu.Lock()
		f.logouts++
		f.mu.Unlock()
		w.WriteHeader(http.StatusNoContent)
		return
	case !strings.HasSuffix(r.URL.Path, "/token"):
		http.NotFound(w, r)
		return
	}

	f.mu.Lock()
	entered, release, delay := f.entered, f.release, f.delay
	f.mu.Unlock()

	if entered != nil {
		entered <- struct{}{}
	}
	if release != nil {
		<-release
	}
	if delay > 0 {
		time.Sleep(delay)
	}

	grant := form["grant_type"]

	f.mu.Lock()
	f.grants = append(f.grants, grant)
	f.forms = append(f.forms, form)
	failPassword, failRefresh := f.failPassword, f.failRefresh
	f.issued++
	n := f.issued
	f.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	switch {
	case grant == "password" && failPassword:
		w.WriteHeader(http.StatusUnauthorized)
		fmt.Fprint(w, `{"error":"invalid_grant","error_description":"Invalid user credentials"}`)
		return
	case grant == "refresh_token" && failRefresh:
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprint(w, `{"error":"invalid_grant","error_description":"Token is not active"}`)
		return
	}

	exp := f.clock.Now().Add(f.ttl)
	claims := jwt.MapClaims{
		"exp": exp.Unix(),
		"jti": fmt.Sprintf("token-%d", n),
		"sub": "user-1",
		"uid": "user-1",
		"typ": "Bearer",
		"rol": []string{"ROLE_USER"},
		"prm": []string{"manga.view", "user.list"},
	}
	access, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-signing-key"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	json.NewEncoder(w).Encode(map[string]any{
		"access_token":       access,
		"refresh_token":      fmt.Sprintf("refresh-%d", n),
		"token_type":         "Bearer",
		"expires_in":         int(f.ttl / time.Second),
		"refresh_expires_in": 1800,
	})
}

// memoryTokenStore records every refresh token saved.
type memoryTokenStore struct {
	mu    sync.Mutex
	token string
	saves []string
}

func (m *memoryTokenStore) Load() (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.token, nil
}

func (m *memoryTokenStore) Save(token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.token = token
	m.saves = append(m.saves, token)
	return nil
}

type testEnv struct {
	client *Client
	auth   *fakeAuth
	clock  *testClock
	server *httptest.Server
	sleeps []time.Duration
}

// newTestEnv starts one server that answers auth requests under /auth and
// hands everything else to api. Sleeps are recorded instead of slept.
func newTestEnv(t *testing.T, creds Credentials, api http.HandlerFunc, opts ...Option) *testEnv {
	t.Helper()

	env := &testEnv{clock: newTestClock()}
	env.auth = newFakeAuth(env.clock)

	mux := http.NewServeMux()
	mux.Handle("/auth/", env.auth)
	if api != nil {
		mux.Handle("/", api)
	}
	env.server = httptest.NewServer(mux)
	t.Cleanup(env.server.Close)

	opts = append([]Option{
		WithBaseURL(env.server.URL),
		WithAuthURL(env.server.URL + "/auth"),
	}, opts...)

	client, err := NewClient(creds, zerolog.Nop(), opts...)
	require.NoError(t, err)

	var mu sync.Mutex
	client.sleep = func(ctx context.Context, d time.Duration) error {
		mu.Lock()
		env.sleeps = append(env.sleeps, d)
		mu.Unlock()
		return ctx.Err()
	}
	client.session.now = env.clock.Now
	client.limiter.now = env.clock.Now
	env.client = client
	return env
}

func respondJSON(w http.ResponseWriter, body string) {
	w.Header().Set("Content-Type", "application/json")
	fmt.Fprint(w, body)
}
