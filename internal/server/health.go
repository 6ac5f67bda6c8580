package server

import (
	"encoding/json"
	"net/http"
	"runtime"
	"time"

	"github.com/rschre/gvsprecv/internal/gvsp"
)

var startTime = time.Now()

// HealthHandler serves liveness and readiness endpoints for the
// receiver process.
type HealthHandler struct {
	receiver *gvsp.Receiver
}

// NewHealthHandler creates a new health check handler.
func NewHealthHandler(r *gvsp.Receiver) *HealthHandler {
	return &HealthHandler{receiver: r}
}

func (h *HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.URL.Path {
	case "/ready", "/readyz":
		h.readiness(w)
	default:
		h.liveness(w)
	}
}

// liveness reports the process is up, regardless of receiver state.
func (h *HealthHandler) liveness(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"status": "ok",
		"uptime": time.Since(startTime).String(),
	})
}

// readiness reports ready only while the receive loop is actually
// running — a socket or buffer that exists but isn't receiving is not
// "ready" for traffic.
func (h *HealthHandler) readiness(w http.ResponseWriter) {
	receiving := h.receiver.IsReceiving()
	stats := h.receiver.Stats()

	status := http.StatusOK
	statusStr := "ready"
	if !receiving {
		status = http.StatusServiceUnavailable
		statusStr = "not_receiving"
	}

	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"status":           statusStr,
		"uptime":           time.Since(startTime).String(),
		"uptime_seconds":   time.Since(startTime).Seconds(),
		"receiving":        receiving,
		"port":             h.receiver.Port(),
		"frames_delivered": stats.FramesDelivered,
		"frames_dropped":   stats.FramesDropped,
		"packets_received": stats.PacketsReceived,
		"memory": map[string]interface{}{
			"alloc_mb":  mem.Alloc / 1024 / 1024,
			"sys_mb":    mem.Sys / 1024 / 1024,
			"gc_cycles": mem.NumGC,
		},
		"go_version": runtime.Version(),
		"goroutines": runtime.NumGoroutine(),
	})
}
