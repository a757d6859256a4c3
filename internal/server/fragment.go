package server

import (
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"github.com/desertthunder/spotdash/internal/session"
	"github.com/desertthunder/spotdash/internal/shared"
)

const maxFragmentBytes = 16 << 10

// FragmentResult is the outcome of a login redirect.
type FragmentResult struct {
	Grant session.Grant
	Err   error
}

// FragmentHandler receives the login redirect on the app URI.
//
// Tokens arrive in the URL fragment, which browsers never send to the server, so GET / serves a page
// that posts location.hash to /fragment and then strips it from the address bar. Only the first grant
// is accepted.
type FragmentHandler struct {
	resultChan chan FragmentResult
	once       sync.Once
	done       bool
	mu         sync.Mutex
}

// NewFragmentHandler creates a handler with an unsent result.
func NewFragmentHandler() *FragmentHandler {
	return &FragmentHandler{resultChan: make(chan FragmentResult, 1)}
}

// Routes returns the HTTP routes this handler serves.
func (h *FragmentHandler) Routes() []string {
	return []string{"GET /{$}", "POST /fragment"}
}

func (h *FragmentHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodPost && r.URL.Path == "/fragment" {
		h.receive(w, r)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	io.WriteString(w, capturePage)
}

func (h *FragmentHandler) receive(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	if h.done {
		h.mu.Unlock()
		http.Error(w, "Login already processed", http.StatusConflict)
		return
	}
	h.mu.Unlock()

	body, err := io.ReadAll(io.LimitReader(r.Body, maxFragmentBytes))
	if err != nil {
		http.Error(w, "Could not read request", http.StatusBadRequest)
		return
	}
	fragment := strings.TrimSpace(string(body))

	grant, ok := session.ParseFragment(fragment)
	if !ok {
		values, _ := url.ParseQuery(strings.TrimPrefix(fragment, "#"))
		if reason := values.Get("error"); reason != "" {
			h.finish(FragmentResult{Err: fmt.Errorf("%w: %s", shared.ErrAuthFailed, reason)})
			http.Error(w, "Authorization failed", http.StatusBadRequest)
			return
		}
		http.Error(w, "No access token in redirect", http.StatusBadRequest)
		return
	}

	h.finish(FragmentResult{Grant: grant})
	w.WriteHeader(http.StatusNoContent)
}

func (h *FragmentHandler) finish(result FragmentResult) {
	h.mu.Lock()
	h.done = true
	h.mu.Unlock()
	h.Send(result)
}

// Send delivers result through the channel (only once).
func (h *FragmentHandler) Send(result FragmentResult) {
	h.once.Do(func() {
		h.resultChan <- result
		close(h.resultChan)
	})
}

// Result returns the channel that receives exactly one result and is then closed.
func (h *FragmentHandler) Result() <-chan FragmentResult {
	return h.resultChan
}

const capturePage = `<!DOCTYPE html>
<html>
<head>
    <title>spotdash</title>
    <style>
        body { font-family: -apple-system, BlinkMacSystemFont, "Segoe UI", Roboto, sans-serif;
               display: flex; align-items: center; justify-content: center; height: 100vh;
               margin: 0; background: #121212; color: #fff; }
        .container { text-align: center; background: #181818; padding: 2rem; border-radius: 8px; }
        h1 { color: #1DB954; margin: 0 0 1rem 0; }
        p { color: #b3b3b3; margin: 0; }
    </style>
</head>
<body>
    <div class="container">
        <h1 id="title">Signing in…</h1>
        <p id="message">Waiting for Spotify.</p>
    </div>
    <script>
        const hash = window.location.hash.substring(1);
        const title = document.getElementById("title");
        const message = document.getElementById("message");
        if (!hash) {
            title.textContent = "Not signed in";
            message.textContent = "Run spotdash auth login to start.";
        } else {
            history.replaceState(null, "", window.location.pathname);
            fetch("/fragment", { method: "POST", body: hash })
                .then((resp) => {
                    if (!resp.ok) throw new Error(resp.statusText);
                    title.textContent = "✓ Signed in";
                    message.textContent = "You can close this window and return to the terminal.";
                })
                .catch((err) => {
                    title.textContent = "Sign in failed";
                    message.textContent = err.message;
                });
        }
    </script>
</body>
</html>
`
