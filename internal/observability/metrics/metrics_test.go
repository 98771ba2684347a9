package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestIncRequestGroupsByStatusClass(t *testing.T) {
	recorder := NewRecorder()
	recorder.IncRequest(200)
	recorder.IncRequest(204)
	recorder.IncRequest(404)
	recorder.IncRequest(503)
	recorder.IncRequest(42)

	snapshot := recorder.Snapshot()
	if snapshot.RequestsByClass["2xx"] != 2 {
		t.Fatalf("2xx = %d, want 2", snapshot.RequestsByClass["2xx"])
	}
	if snapshot.RequestsByClass["4xx"] != 1 || snapshot.RequestsByClass["5xx"] != 1 {
		t.Fatalf("classes = %v", snapshot.RequestsByClass)
	}
	if snapshot.RequestsByClass["unknown"] != 1 {
		t.Fatalf("out-of-range status should count as unknown: %v", snapshot.RequestsByClass)
	}
}

func TestObservePersistCountsFailures(t *testing.T) {
	recorder := NewRecorder()
	recorder.ObservePersist(nil)
	recorder.ObservePersist(errors.New("boom"))
	recorder.ObservePersist(nil)

	snapshot := recorder.Snapshot()
	if snapshot.Persists != 3 {
		t.Fatalf("persists = %d, want 3", snapshot.Persists)
	}
	if snapshot.PersistFailures != 1 {
		t.Fatalf("failures = %d, want 1", snapshot.PersistFailures)
	}
}

func TestNilRecorderIsSafe(t *testing.T) {
	var recorder *Recorder
	recorder.IncRequest(200)
	recorder.ObservePersist(nil)
	recorder.IncMailSent()
	recorder.IncMailFallback()
	recorder.IncLoginThrottled()
}

func TestHandlerExposition(t *testing.T) {
	recorder := NewRecorder()
	recorder.IncRequest(200)
	recorder.IncMailSent()
	recorder.IncLoginThrottled()

	resp := httptest.NewRecorder()
	recorder.Handler().ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	body := resp.Body.String()
	for _, line := range []string{
		`yumetv_http_requests_total{class="2xx"} 1`,
		"yumetv_verification_mail_sent_total 1",
		"yumetv_login_throttled_total 1",
		"yumetv_document_persists_total 0",
	} {
		if !strings.Contains(body, line) {
			t.Errorf("exposition missing %q:\n%s", line, body)
		}
	}
}

func TestResponseRecorderDefaultsTo200(t *testing.T) {
	rec := NewResponseRecorder(httptest.NewRecorder())
	if rec.Status() != http.StatusOK {
		t.Fatalf("default status = %d", rec.Status())
	}
	rec.WriteHeader(http.StatusTeapot)
	if rec.Status() != http.StatusTeapot {
		t.Fatalf("status = %d", rec.Status())
	}
}
