package server

import (
	"fmt"
	"net/http"
	"runtime"
	"strings"

	"github.com/rschre/gvsprecv/internal/gvsp"
)

// Metrics serves Prometheus-text counters for the receiver: frames
// delivered/dropped, packets received, and process-level goroutine and
// memory gauges. There is no HTTP traffic of our own to measure — this
// exists purely to expose the receiver's own Stats() snapshot, unlike
// the teacher's request-duration histogram which measured its own HTTP
// server.
type Metrics struct {
	receiver *gvsp.Receiver
}

// NewMetrics creates a new metrics collector bound to a receiver.
func NewMetrics(r *gvsp.Receiver) *Metrics {
	return &Metrics{receiver: r}
}

// Handler serves the metrics endpoint directly; there is no request
// traffic to instrument so this is a plain http.Handler, not a
// middleware.
func (m *Metrics) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		m.serveMetrics(w)
	})
}

func (m *Metrics) serveMetrics(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "text/plain; version=0.0.4; charset=utf-8")

	var b strings.Builder
	stats := m.receiver.Stats()

	b.WriteString("# HELP gvsprecv_frames_delivered_total Total frames handed to the frame callback.\n")
	b.WriteString("# TYPE gvsprecv_frames_delivered_total counter\n")
	fmt.Fprintf(&b, "gvsprecv_frames_delivered_total %d\n", stats.FramesDelivered)

	b.WriteString("# HELP gvsprecv_frames_dropped_total Total frames discarded (packet loss or bad pixel format).\n")
	b.WriteString("# TYPE gvsprecv_frames_dropped_total counter\n")
	fmt.Fprintf(&b, "gvsprecv_frames_dropped_total %d\n", stats.FramesDropped)

	b.WriteString("# HELP gvsprecv_packets_received_total Total GVSP datagrams classified by the receive loop.\n")
	b.WriteString("# TYPE gvsprecv_packets_received_total counter\n")
	fmt.Fprintf(&b, "gvsprecv_packets_received_total %d\n", stats.PacketsReceived)

	b.WriteString("# HELP gvsprecv_receiving Whether the receive loop is currently running.\n")
	b.WriteString("# TYPE gvsprecv_receiving gauge\n")
	receiving := 0
	if m.receiver.IsReceiving() {
		receiving = 1
	}
	fmt.Fprintf(&b, "gvsprecv_receiving %d\n", receiving)

	b.WriteString("# HELP gvsprecv_go_goroutines Number of goroutines.\n")
	b.WriteString("# TYPE gvsprecv_go_goroutines gauge\n")
	fmt.Fprintf(&b, "gvsprecv_go_goroutines %d\n", runtime.NumGoroutine())

	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)
	b.WriteString("# HELP gvsprecv_go_memstats_alloc_bytes Number of bytes allocated.\n")
	b.WriteString("# TYPE gvsprecv_go_memstats_alloc_bytes gauge\n")
	fmt.Fprintf(&b, "gvsprecv_go_memstats_alloc_bytes %d\n", mem.Alloc)

	w.Write([]byte(b.String()))
}
