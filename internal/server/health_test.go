package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

// stubPinger is a Pinger with a fixed name and error.
type stubPinger struct {
	name string
	err  error
}

func (p stubPinger) Ping(context.Context) error { return p.err }
func (p stubPinger) Name() string               { return p.name }

func TestHandleReady_AllHealthy(t *testing.T) {
	t.Parallel()

	s := testServer(t, &Dependencies{}, &Config{
		Pingers: []Pinger{stubPinger{name: "qdrant"}, stubPinger{name: "embedder"}},
	})

	w := do(s, httptest.NewRequest(http.MethodGet, "/api/ready", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}

	var res readyResponse
	if err := json.Unmarshal(w.Body.Bytes(), &res); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !res.Ready || len(res.Checks) != 2 {
		t.Errorf("response = %+v", res)
	}
}

func TestHandleReady_DependencyDown(t *testing.T) {
	t.Parallel()

	s := testServer(t, &Dependencies{}, &Config{
		Pingers: []Pinger{
			stubPinger{name: "qdrant"},
			stubPinger{name: "embedder", err: errors.New("connection refused")},
		},
	})

	w := do(s, httptest.NewRequest(http.MethodGet, "/api/ready", nil))
	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", w.Code)
	}

	var res readyResponse
	if err := json.Unmarshal(w.Body.Bytes(), &res); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if res.Ready {
		t.Error("Ready must be false when a probe fails")
	}
	var found bool
	for _, c := range res.Checks {
		if c.Name == "embedder" && !c.OK && c.Error != "" {
			found = true
		}
	}
	if !found {
		t.Errorf("failing check not reported: %+v", res.Checks)
	}
}

func TestHandleReady_NoPingers(t *testing.T) {
	t.Parallel()

	s := testServer(t, &Dependencies{}, nil)
	w := do(s, httptest.NewRequest(http.MethodGet, "/api/ready", nil))
	if w.Code != http.StatusOK {
		t.Errorf("liveness-only mode: expected 200, got %d", w.Code)
	}
}
