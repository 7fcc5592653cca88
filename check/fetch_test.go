package check

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"

	"csscompat/config"
)

func newTestFetcher(t *testing.T, maxBytes int64) *Fetcher {
	return NewFetcher(&config.FetchConfig{Timeout: 5 * time.Second, UserAgent: "csscompat-test", MaxBytes: maxBytes}, zaptest.NewLogger(t))
}

func TestFetcher_Fetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/main.css":
			if r.Header.Get("User-Agent") != "csscompat-test" {
				http.Error(w, "bad agent", http.StatusForbidden)
				return
			}
			w.Header().Set("Content-Type", "text/css; charset=utf-8")
			w.Write([]byte("a { color: red }"))
		case "/large.css":
			w.Header().Set("Content-Type", "text/css")
			w.Write([]byte(strings.Repeat("a{}", 100)))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	t.Run("success", func(t *testing.T) {
		data, ctype, err := newTestFetcher(t, 1024).Fetch(context.Background(), srv.URL+"/main.css")
		if err != nil {
			t.Fatalf("Fetch() error = %v", err)
		}
		if string(data) != "a { color: red }" || ctype != "text/css; charset=utf-8" {
			t.Errorf("Fetch() = %q, %q", data, ctype)
		}
	})

	t.Run("not found", func(t *testing.T) {
		_, _, err := newTestFetcher(t, 1024).Fetch(context.Background(), srv.URL+"/missing.css")
		if err == nil || !strings.Contains(err.Error(), "404") {
			t.Errorf("Fetch() error = %v, want HTTP 404", err)
		}
	})

	t.Run("too large", func(t *testing.T) {
		_, _, err := newTestFetcher(t, 16).Fetch(context.Background(), srv.URL+"/large.css")
		if !errors.Is(err, ErrTooLarge) {
			t.Errorf("Fetch() error = %v, want ErrTooLarge", err)
		}
	})

	t.Run("cancelled", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		if _, _, err := newTestFetcher(t, 1024).Fetch(ctx, srv.URL+"/main.css"); !errors.Is(err, context.Canceled) {
			t.Errorf("Fetch() error = %v, want context.Canceled", err)
		}
	})
}
