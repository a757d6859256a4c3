// package testing contains shared testing utilities
package testing

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"sync"
	"testing"
)

// Credentials is a settable token source for API client tests.
type Credentials struct {
	mu        sync.Mutex
	token     string
	refreshes int

	// OnRefresh runs on each Refresh; its return value is passed through.
	OnRefresh func(c *Credentials) error
}

func NewCredentials(token string) *Credentials {
	return &Credentials{token: token}
}

func (c *Credentials) Token() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.token
}

func (c *Credentials) SetToken(token string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.token = token
}

func (c *Credentials) Refresh(context.Context) error {
	c.mu.Lock()
	c.refreshes++
	fn := c.OnRefresh
	c.mu.Unlock()

	if fn == nil {
		return errors.New("refresh not configured")
	}
	return fn(c)
}

func (c *Credentials) Refreshes() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.refreshes
}

// Call is a request received by [FakeAPI].
type Call struct {
	Method string
	Path   string
	Query  url.Values
	Body   []byte
	Auth   string
}

// FakeAPI is an httptest server that records every request before routing it.
//
// Routes use [http.ServeMux] patterns, e.g. "GET /playlists/{id}/tracks". Unrouted requests get 404.
type FakeAPI struct {
	*httptest.Server
	mux *http.ServeMux

	mu    sync.Mutex
	calls []Call
}

func NewFakeAPI(t *testing.T) *FakeAPI {
	t.Helper()
	f := &FakeAPI{mux: http.NewServeMux()}
	f.Server = httptest.NewServer(http.HandlerFunc(f.serve))
	t.Cleanup(f.Close)
	return f
}

func (f *FakeAPI) serve(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	f.mu.Lock()
	f.calls = append(f.calls, Call{
		Method: r.Method,
		Path:   r.URL.Path,
		Query:  r.URL.Query(),
		Body:   body,
		Auth:   r.Header.Get("Authorization"),
	})
	f.mu.Unlock()

	r.Body = io.NopCloser(bytes.NewReader(body))
	f.mux.ServeHTTP(w, r)
}

// Handle registers a handler for pattern.
func (f *FakeAPI) Handle(pattern string, h http.HandlerFunc) {
	f.mux.HandleFunc(pattern, h)
}

// JSON registers a fixed JSON response for pattern.
func (f *FakeAPI) JSON(pattern string, status int, body any) {
	f.Handle(pattern, func(w http.ResponseWriter, r *http.Request) {
		WriteJSON(w, status, body)
	})
}

// Calls returns a copy of every recorded request.
func (f *FakeAPI) Calls() []Call {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Call(nil), f.calls...)
}

// CallsTo filters recorded requests by method and exact path.
func (f *FakeAPI) CallsTo(method, path string) []Call {
	var out []Call
	for _, c := range f.Calls() {
		if c.Method == method && c.Path == path {
			out = append(out, c)
		}
	}
	return out
}

// Count returns the number of recorded requests.
func (f *FakeAPI) Count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

// WriteJSON writes body as JSON with status.
func WriteJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if body != nil {
		json.NewEncoder(w).Encode(body)
	}
}

// SpotifyError is the Web API's error payload.
func SpotifyError(status int, message string) map[string]any {
	return map[string]any{"error": map[string]any{"status": status, "message": message}}
}

// FWriter always returns an error on Write
type FWriter struct{}

func (f *FWriter) Write(p []byte) (n int, err error) {
	return 0, errors.New("write failed")
}

// MockRoundTripper allows custom HTTP responses for testing
type MockRoundTripper struct {
	response *http.Response
	err      error
}

func NewMockRoundTripper(r *http.Response, e error) *MockRoundTripper {
	return &MockRoundTripper{response: r, err: e}
}

func (m *MockRoundTripper) RoundTrip(*http.Request) (*http.Response, error) {
	return m.response, m.err
}

// FCloser simulates a failure when reading response body
type FCloser struct{}

func (f *FCloser) Read(p []byte) (n int, err error) {
	return 0, errors.New("read failed")
}

func (f *FCloser) Close() error {
	return nil
}

func AssertFileExists(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Errorf("File does not exist: %s", path)
	}
}

func MustReadFile(t *testing.T, path string) string {
	t.Helper()
	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read file %s: %v", path, err)
	}
	return string(content)
}
