package telemetry_test

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"callscore/internal/store"
	"callscore/internal/telemetry"
)

func TestMetricsExposition(t *testing.T) {
	m := telemetry.New()
	m.TaskPublished()
	m.TaskProcessed(store.StatusReady, 2*time.Second)
	m.TaskProcessed(store.StatusFailed, time.Second)
	m.TaskProcessed(store.StatusReady, time.Second)

	req := httptest.NewRequest("GET", "/metrics", nil)
	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, req)

	body := rec.Body.String()
	for _, want := range []string{
		`callscore_tasks_published_total 1`,
		`callscore_tasks_processed_total{status="ready"} 2`,
		`callscore_tasks_processed_total{status="failed"} 1`,
	} {
		if !strings.Contains(body, want) {
			t.Fatalf("expected %q in exposition:\n%s", want, body)
		}
	}
}

func TestSeparateRegistries(t *testing.T) {
	first := telemetry.New()
	second := telemetry.New()
	first.TaskPublished()

	rec := httptest.NewRecorder()
	second.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	if strings.Contains(rec.Body.String(), "callscore_tasks_published_total 1") {
		t.Fatal("metrics leaked between registries")
	}
}
