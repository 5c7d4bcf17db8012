package observability

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestObserveStageCountsFailures(t *testing.T) {
	before := testutil.ToFloat64(stageFailuresTotal.WithLabelValues(StageExecute))
	ObserveStage(StageExecute, 10*time.Millisecond, nil)
	ObserveStage(StageExecute, 10*time.Millisecond, errors.New("syntax error"))

	if got := testutil.ToFloat64(stageFailuresTotal.WithLabelValues(StageExecute)); got != before+1 {
		t.Fatalf("failures = %v, want %v", got, before+1)
	}
}

func TestObserveGenerationIncrementsOutcome(t *testing.T) {
	before := testutil.ToFloat64(generationTotal.WithLabelValues(OutcomeNoPrompt))
	ObserveGeneration(OutcomeNoPrompt)
	if got := testutil.ToFloat64(generationTotal.WithLabelValues(OutcomeNoPrompt)); got != before+1 {
		t.Fatalf("no_prompt = %v, want %v", got, before+1)
	}
}

func TestMetricsMiddlewareLabelsByRoutePattern(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /items/{id}", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})
	h := MetricsMiddleware(mux)

	matched := httpRequestsTotal.WithLabelValues(http.MethodGet, "GET /items/{id}", "418")
	unmatched := httpRequestsTotal.WithLabelValues(http.MethodGet, unmatchedRoute, "404")
	beforeMatched := testutil.ToFloat64(matched)
	beforeUnmatched := testutil.ToFloat64(unmatched)

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/items/1", nil))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/items/2", nil))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/nowhere", nil))

	if got := testutil.ToFloat64(matched); got != beforeMatched+2 {
		t.Fatalf("matched requests = %v, want %v", got, beforeMatched+2)
	}
	if got := testutil.ToFloat64(unmatched); got != beforeUnmatched+1 {
		t.Fatalf("unmatched requests = %v, want %v", got, beforeUnmatched+1)
	}
}
