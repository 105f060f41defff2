package server

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/ragline/ragline/internal/engine"
)

// counterValue gathers reg and returns the value of the named counter with
// the given label pair, or -1 when absent.
func counterValue(t *testing.T, reg *prometheus.Registry, name, labelName, labelValue string) float64 {
	t.Helper()
	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	for _, mf := range mfs {
		if mf.GetName() != name {
			continue
		}
		for _, m := range mf.GetMetric() {
			if labelName == "" {
				return m.GetCounter().GetValue()
			}
			for _, lp := range m.GetLabel() {
				if lp.GetName() == labelName && lp.GetValue() == labelValue {
					return m.GetCounter().GetValue()
				}
			}
		}
	}
	return -1
}

func Test_Metrics_EndpointReturns200(t *testing.T) {
	t.Parallel()

	s := testServer(t, &Dependencies{}, nil)
	w := do(s, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("want 200, got %d", w.Code)
	}
	ct := w.Header().Get("Content-Type")
	if !strings.HasPrefix(ct, "text/plain") {
		t.Errorf("want text/plain content-type, got %q", ct)
	}
}

func Test_Metrics_QueryCounterIncremented(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	eng := &fakeAnswerer{result: engine.Result{Answer: "a", InteractionID: "id-1"}}
	s := testServer(t, &Dependencies{Engine: eng}, &Config{MetricsRegistry: reg})

	do(s, jsonReq(http.MethodPost, "/api/query", `{"query":"q"}`))

	if got := counterValue(t, reg, "ragline_query_requests_total", "outcome", "ok"); got != 1 {
		t.Errorf(`ragline_query_requests_total{outcome="ok"} = %v, want 1`, got)
	}
}

func Test_Metrics_LearnedHitCounter(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	eng := &fakeAnswerer{result: engine.Result{Answer: "a", InteractionID: "id-1", LearnedHit: true}}
	s := testServer(t, &Dependencies{Engine: eng}, &Config{MetricsRegistry: reg})

	do(s, jsonReq(http.MethodPost, "/api/query", `{"query":"q"}`))

	if got := counterValue(t, reg, "ragline_query_learned_hits_total", "", ""); got != 1 {
		t.Errorf("ragline_query_learned_hits_total = %v, want 1", got)
	}
}

func Test_Metrics_PromotionCounter(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	eng := &fakeAnswerer{feedback: engine.FeedbackResult{Status: "success", Promoted: true}}
	s := testServer(t, &Dependencies{Engine: eng}, &Config{MetricsRegistry: reg})

	do(s, jsonReq(http.MethodPost, "/api/feedback", `{"interaction_id":"id-1","feedback":"like"}`))
	do(s, jsonReq(http.MethodPost, "/api/feedback", `{"interaction_id":"id-1","feedback":"like"}`))

	if got := counterValue(t, reg, "ragline_feedback_promotions_total", "", ""); got != 2 {
		t.Errorf("ragline_feedback_promotions_total = %v, want 2", got)
	}
}

func Test_Metrics_HTTPRequestsLabelled(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	s := testServer(t, &Dependencies{}, &Config{MetricsRegistry: reg})

	do(s, jsonReq(http.MethodPost, "/api/query", `{}`)) // 400

	if got := counterValue(t, reg, "ragline_http_requests_total", "handler", "query"); got != 1 {
		t.Errorf(`ragline_http_requests_total{handler="query"} = %v, want 1`, got)
	}
	if got := counterValue(t, reg, "ragline_http_requests_total", "code", "400"); got != 1 {
		t.Errorf(`ragline_http_requests_total{code="400"} = %v, want 1`, got)
	}
}
