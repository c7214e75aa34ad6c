package connectors

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"content-clock-publisher/config"
	"content-clock-publisher/helpers"
)

var pngBytes = []byte("\x89PNG\r\n\x1a\nfakeimage")

// fakeAPI is a platform API stand-in that counts hits per route pattern.
type fakeAPI struct {
	*httptest.Server
	mu    sync.Mutex
	calls map[string]int
}

func newFakeAPI(t *testing.T, routes map[string]http.HandlerFunc) *fakeAPI {
	t.Helper()
	f := &fakeAPI{calls: map[string]int{}}
	mux := http.NewServeMux()
	mux.HandleFunc("GET /media/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write(pngBytes)
	})
	for pattern, h := range routes {
		pattern, h := pattern, h
		mux.HandleFunc(pattern, func(w http.ResponseWriter, r *http.Request) {
			f.mu.Lock()
			f.calls[pattern]++
			f.mu.Unlock()
			h(w, r)
		})
	}
	f.Server = httptest.NewServer(mux)
	t.Cleanup(f.Close)
	return f
}

func (f *fakeAPI) count(pattern string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[pattern]
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// tokenRecorder is a TokenSaver that keeps every call.
type tokenRecorder struct {
	mu    sync.Mutex
	saved []map[string]any
}

func (r *tokenRecorder) save(_ context.Context, _ string, fields map[string]any) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.saved = append(r.saved, fields)
	return nil
}

func (r *tokenRecorder) last() map[string]any {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.saved) == 0 {
		return nil
	}
	return r.saved[len(r.saved)-1]
}

var fixedNow = time.Date(2026, 5, 4, 10, 0, 0, 0, time.UTC)

func testOptions(api *fakeAPI, settings config.PlatformSettings, saver TokenSaver) Options {
	if settings.BaseURL == "" {
		settings.BaseURL = api.URL
	}
	return Options{
		Settings:  settings,
		Client:    helpers.NewClient("test", 2*time.Second, nil, nil),
		MediaBase: api.URL + "/media",
		SaveToken: saver,
		Now:       func() time.Time { return fixedNow },
		MediaPoll: time.Millisecond,
	}
}
