package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMetrics_Generation(t *testing.T) {
	m := New()

	m.ObserveGeneration("curriculum", OutcomeOK, 2*time.Second)
	m.ObserveGeneration("curriculum", OutcomeOK, time.Second)
	m.ObserveGeneration("teaching", OutcomeInvalid, 0)

	if got := testutil.ToFloat64(m.generations.WithLabelValues("curriculum", OutcomeOK)); got != 2 {
		t.Errorf("curriculum ok = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.generations.WithLabelValues("teaching", OutcomeInvalid)); got != 1 {
		t.Errorf("teaching invalid = %v, want 1", got)
	}
	// Invalid requests never reach the model, so no duration sample.
	if got := testutil.CollectAndCount(m.generationDuration); got != 1 {
		t.Errorf("duration series = %d, want 1", got)
	}
}

func TestMetrics_Handler(t *testing.T) {
	m := New()
	m.ObserveTopics("curriculum", 3)
	m.ObserveRequest("/api/syllabus", http.StatusOK)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	body, _ := io.ReadAll(rec.Body)
	for _, want := range []string{
		`minerva_topics_extracted_count{policy="curriculum"} 1`,
		`minerva_http_requests_total{route="/api/syllabus",status="200"} 1`,
		"go_goroutines",
	} {
		if !strings.Contains(string(body), want) {
			t.Errorf("metrics output missing %q", want)
		}
	}
}

func TestMetrics_NilIsNoop(t *testing.T) {
	var m *Metrics
	m.ObserveGeneration("curriculum", OutcomeOK, time.Second)
	m.ObserveTopics("teaching", 1)
	m.ObserveRequest("/", 200)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}
