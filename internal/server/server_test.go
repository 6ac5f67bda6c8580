package server

import (
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rschre/gvsprecv/internal/gvsp"
)

func TestHealthHandlerLiveness(t *testing.T) {
	r := gvsp.New(nil)
	h := NewHealthHandler(r)

	req := httptest.NewRequest("GET", "/healthz", nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	if w.Code != 200 {
		t.Errorf("liveness status: got %d want 200", w.Code)
	}
	var body map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if body["status"] != "ok" {
		t.Errorf("liveness status field: got %v", body["status"])
	}
}

func TestHealthHandlerReadinessNotReceiving(t *testing.T) {
	r := gvsp.New(nil)
	h := NewHealthHandler(r)

	req := httptest.NewRequest("GET", "/readyz", nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	if w.Code != 503 {
		t.Errorf("readiness status for idle receiver: got %d want 503", w.Code)
	}
	var body map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if body["status"] != "not_receiving" {
		t.Errorf("readiness status field: got %v", body["status"])
	}
}

func TestMetricsHandlerServesPrometheusText(t *testing.T) {
	r := gvsp.New(nil)
	m := NewMetrics(r)

	req := httptest.NewRequest("GET", "/metrics", nil)
	w := httptest.NewRecorder()
	m.Handler().ServeHTTP(w, req)

	if w.Code != 200 {
		t.Fatalf("metrics status: got %d want 200", w.Code)
	}
	body := w.Body.String()
	for _, want := range []string{
		"gvsprecv_frames_delivered_total",
		"gvsprecv_frames_dropped_total",
		"gvsprecv_packets_received_total",
		"gvsprecv_receiving",
	} {
		if !strings.Contains(body, want) {
			t.Errorf("metrics output missing %q", want)
		}
	}
}
