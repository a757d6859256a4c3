package server

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/spotdash/internal/shared"
)

func TestBasicRouter(t *testing.T) {
	t.Run("Middleware Order", func(t *testing.T) {
		var order []string
		mark := func(name string) Middleware {
			return func(next http.Handler) http.Handler {
				return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
					order = append(order, name)
					next.ServeHTTP(w, r)
				})
			}
		}

		router := NewBasicRouter()
		router.Use(mark("first"), mark("second"))
		router.Handle("get", "/ping", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			order = append(order, "handler")
		}))

		router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/ping", nil))
		if got := strings.Join(order, ","); got != "first,second,handler" {
			t.Errorf("unexpected order %s", got)
		}
	})

	t.Run("Method Mismatch", func(t *testing.T) {
		router := NewBasicRouter()
		router.Handle(http.MethodGet, "/ping", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/ping", nil))
		if rec.Code != http.StatusMethodNotAllowed {
			t.Errorf("expected 405, got %d", rec.Code)
		}
	})

	t.Run("Root Is Exact", func(t *testing.T) {
		router := NewBasicRouter()
		router.Handle(http.MethodGet, "/", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/other", nil))
		if rec.Code != http.StatusNotFound {
			t.Errorf("expected 404, got %d", rec.Code)
		}
	})

	t.Run("Recover", func(t *testing.T) {
		router := NewBasicRouter()
		router.Use(Recover(shared.NewLogger(io.Discard)))
		router.Handle(http.MethodGet, "/boom", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			panic("boom")
		}))

		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/boom", nil))
		if rec.Code != http.StatusInternalServerError {
			t.Errorf("expected 500, got %d", rec.Code)
		}
	})

	t.Run("Logging", func(t *testing.T) {
		var buf bytes.Buffer
		logger := shared.NewLogger(&buf)
		shared.SetLogLevel(logger, log.DebugLevel)

		router := NewBasicRouter()
		router.Use(Logging(logger))
		router.Handle(http.MethodGet, "/teapot", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusTeapot)
		}))
		router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/teapot", nil))

		if out := buf.String(); !strings.Contains(out, "/teapot") || !strings.Contains(out, "418") {
			t.Errorf("expected path and status in log, got %q", out)
		}
	})
}

func newFragmentRouter() (*BasicRouter, *FragmentHandler) {
	h := NewFragmentHandler()
	router := NewBasicRouter()
	router.Handler(h)
	return router, h
}

func postFragment(router http.Handler, body string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/fragment", strings.NewReader(body)))
	return rec
}

func TestFragmentHandler(t *testing.T) {
	t.Run("Serves Capture Page", func(t *testing.T) {
		router, _ := newFragmentRouter()

		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		body := rec.Body.String()
		if !strings.Contains(body, "history.replaceState") || !strings.Contains(body, "/fragment") {
			t.Error("expected capture script in page")
		}
	})

	t.Run("Delivers Grant Once", func(t *testing.T) {
		router, h := newFragmentRouter()

		rec := postFragment(router, "access_token=abc&refresh_token=r%2B1&expires_in=3600")
		if rec.Code != http.StatusNoContent {
			t.Fatalf("expected 204, got %d", rec.Code)
		}

		select {
		case result := <-h.Result():
			if result.Err != nil {
				t.Fatalf("expected no error, got %v", result.Err)
			}
			if result.Grant.AccessToken != "abc" || result.Grant.RefreshToken != "r+1" || result.Grant.ExpiresIn != time.Hour {
				t.Errorf("unexpected grant %+v", result.Grant)
			}
		case <-time.After(time.Second):
			t.Fatal("expected a result")
		}

		if rec := postFragment(router, "access_token=other"); rec.Code != http.StatusConflict {
			t.Errorf("expected 409 on replay, got %d", rec.Code)
		}
		if _, open := <-h.Result(); open {
			t.Error("expected channel to be closed")
		}
	})

	t.Run("Missing Token Keeps Waiting", func(t *testing.T) {
		router, h := newFragmentRouter()

		if rec := postFragment(router, "expires_in=3600"); rec.Code != http.StatusBadRequest {
			t.Errorf("expected 400, got %d", rec.Code)
		}
		select {
		case r := <-h.Result():
			t.Fatalf("expected no result, got %+v", r)
		default:
		}

		if rec := postFragment(router, "#access_token=late"); rec.Code != http.StatusNoContent {
			t.Errorf("expected later grant to be accepted, got %d", rec.Code)
		}
	})

	t.Run("Provider Error", func(t *testing.T) {
		router, h := newFragmentRouter()

		if rec := postFragment(router, "error=access_denied"); rec.Code != http.StatusBadRequest {
			t.Errorf("expected 400, got %d", rec.Code)
		}
		result := <-h.Result()
		if !errors.Is(result.Err, shared.ErrAuthFailed) {
			t.Errorf("expected ErrAuthFailed, got %v", result.Err)
		}
	})
}

func TestServer(t *testing.T) {
	router, h := newFragmentRouter()
	srv, err := Listen("127.0.0.1:0", router)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	served := make(chan error, 1)
	go func() { served <- srv.Serve() }()

	resp, err := http.Post(srv.URL()+"/fragment", "text/plain", strings.NewReader("access_token=abc"))
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	resp.Body.Close()

	if result := <-h.Result(); result.Grant.AccessToken != "abc" {
		t.Errorf("unexpected result %+v", result)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		t.Errorf("expected clean shutdown, got %v", err)
	}
	if err := <-served; err != nil {
		t.Errorf("expected nil from Serve after shutdown, got %v", err)
	}
}
