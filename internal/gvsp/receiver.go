// Package gvsp implements the data-plane receiver for the GigE Vision
// Streaming Protocol: it listens on a UDP socket for image-stream
// packets, reassembles one frame's packets into a contiguous buffer,
// decodes the camera's pixel layout, and hands the finished frame to a
// callback.
package gvsp

import (
	"fmt"
	"log/slog"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rschre/gvsprecv/internal/decode"
)

// socketReadTimeout bounds how long the receive loop blocks on recv
// before it rechecks the enable flag; it is what makes StopReceive's
// join complete within a bounded time regardless of traffic.
const socketReadTimeout = 100 * time.Millisecond

// FrameCallback receives a fully assembled, decoded frame. Ownership of
// pixels passes to the callback. Invocation happens synchronously on the
// receive goroutine under the receiver's frame lock — implementations
// MUST NOT call back into any Receiver lifecycle method.
type FrameCallback interface {
	OnFrame(pixels any, bitDepth int)
}

// FrameCallbackFunc adapts a plain function to FrameCallback.
type FrameCallbackFunc func(pixels any, bitDepth int)

// OnFrame implements FrameCallback.
func (f FrameCallbackFunc) OnFrame(pixels any, bitDepth int) { f(pixels, bitDepth) }

// Stats is a point-in-time snapshot of receiver counters, safe to read
// at any time without acquiring frameLock (backed by atomics).
type Stats struct {
	FramesDelivered int64
	FramesDropped   int64
	PacketsReceived int64
}

// Receiver is the singleton handle for one GVSP stream: it exclusively
// owns a UDP socket and a frame buffer, shared by reference with the
// receive goroutine. receiving is guarded by enableLock; the fields from
// pixelFormat through warnings (including the callback slot) are guarded
// by frameLock. The stopped channel and the atomic counters need neither
// lock. The socket handle itself is set only outside
// the receive goroutine's lifetime, so the worker may read it lock-free.
type Receiver struct {
	logger *slog.Logger

	conn *net.UDPConn
	port int

	enableLock sync.Mutex
	receiving  bool

	frameLock         sync.Mutex
	pixelFormat       decode.PixelFormat
	sizeX             int
	sizeY             int
	frameSize         int
	payloadSize       int
	packetPayloadSize int
	packetCount       int
	frameBuffer       []byte
	leaderReceived    bool
	receivedPackets   int
	callback          FrameCallback
	verbose           bool
	warnings          bool

	stopped chan struct{} // closed by the worker right before it exits

	framesDelivered atomic.Int64
	framesDropped   atomic.Int64
	packetsReceived atomic.Int64
}

// New creates an idle Receiver with no socket and no buffer. logger may
// be nil, in which case log output is discarded.
func New(logger *slog.Logger) *Receiver {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Receiver{logger: logger, warnings: true}
}

// SetVerbose toggles informational logging of lifecycle transitions.
func (r *Receiver) SetVerbose(v bool) {
	r.frameLock.Lock()
	defer r.frameLock.Unlock()
	r.verbose = v
}

// SetWarnings toggles logging of protocol anomalies (dropped/malformed
// packets, incomplete frames).
func (r *Receiver) SetWarnings(v bool) {
	r.frameLock.Lock()
	defer r.frameLock.Unlock()
	r.warnings = v
}

// Port returns the ephemeral UDP port assigned by CreateSocket, or 0 if
// no socket exists.
func (r *Receiver) Port() int {
	return r.port
}

// Stats returns a snapshot of delivery counters.
func (r *Receiver) Stats() Stats {
	return Stats{
		FramesDelivered: r.framesDelivered.Load(),
		FramesDropped:   r.framesDropped.Load(),
		PacketsReceived: r.packetsReceived.Load(),
	}
}

// IsReceiving reports whether the receive loop is currently running.
func (r *Receiver) IsReceiving() bool {
	r.enableLock.Lock()
	defer r.enableLock.Unlock()
	return r.receiving
}

// CreateSocket binds a UDP socket to hostAddr:0, so the OS assigns an
// ephemeral port, and returns the assigned port. The 100ms receive
// timeout is not set here: the receive loop applies it as a read
// deadline before every read.
func (r *Receiver) CreateSocket(hostAddr string) (int, error) {
	if r.IsReceiving() {
		return 0, fmt.Errorf("gvsp: create_socket: %w", ErrReceiving)
	}
	addr := &net.UDPAddr{IP: net.ParseIP(hostAddr), Port: 0}
	conn, err := net.ListenUDP("udp4", addr)
	if err != nil {
		return 0, fmt.Errorf("gvsp: create_socket: %w", err)
	}
	r.conn = conn
	r.port = conn.LocalAddr().(*net.UDPAddr).Port
	if r.verbose {
		r.logger.Info("socket created", "host", hostAddr, "port", r.port)
	}
	return r.port, nil
}

// CloseSocket closes the socket and releases the Receiver's reference to
// it. It requires the receive loop to be stopped.
func (r *Receiver) CloseSocket() error {
	if r.IsReceiving() {
		return fmt.Errorf("gvsp: close_socket: %w", ErrReceiving)
	}
	if r.conn == nil {
		return fmt.Errorf("gvsp: close_socket: %w", ErrNoSocket)
	}
	if err := r.conn.Close(); err != nil {
		return fmt.Errorf("gvsp: close_socket: %w", err)
	}
	r.conn = nil
	r.port = 0
	if r.verbose {
		r.logger.Info("socket closed")
	}
	return nil
}

// CreateBuffer allocates the frame buffer. packetPayloadSize is derived
// from packetSize by subtracting the fixed IP+UDP+GVSP overhead;
// payloadSize must be an exact multiple of it.
func (r *Receiver) CreateBuffer(payloadSize, packetSize int) error {
	if r.IsReceiving() {
		return fmt.Errorf("gvsp: create_buffer: %w", ErrReceiving)
	}

	r.frameLock.Lock()
	defer r.frameLock.Unlock()

	if r.frameBuffer != nil {
		return fmt.Errorf("gvsp: create_buffer: %w", ErrHasBuffer)
	}

	packetPayloadSize := packetSize - totalHeaderSize
	if packetPayloadSize <= 0 {
		return fmt.Errorf("gvsp: create_buffer: %w", ErrInvalidPacketSize)
	}
	if payloadSize%packetPayloadSize != 0 {
		return fmt.Errorf("gvsp: create_buffer: %w", ErrPayloadNotMultiple)
	}

	r.frameBuffer = make([]byte, payloadSize)
	r.payloadSize = payloadSize
	r.packetPayloadSize = packetPayloadSize
	r.packetCount = payloadSize / packetPayloadSize

	if r.verbose {
		r.logger.Info("frame buffer created",
			"payload_size", payloadSize,
			"packet_payload_size", packetPayloadSize,
			"packet_count", r.packetCount,
		)
	}
	return nil
}

// FreeBuffer releases the frame buffer and resets the derived counts. It
// requires the receive loop to be stopped.
func (r *Receiver) FreeBuffer() error {
	if r.IsReceiving() {
		return fmt.Errorf("gvsp: free_buffer: %w", ErrReceiving)
	}

	r.frameLock.Lock()
	defer r.frameLock.Unlock()

	if r.frameBuffer == nil {
		return fmt.Errorf("gvsp: free_buffer: %w", ErrNoBuffer)
	}

	r.frameBuffer = nil
	r.payloadSize = 0
	r.packetPayloadSize = 0
	r.packetCount = 0
	r.leaderReceived = false
	r.receivedPackets = 0

	if r.verbose {
		r.logger.Info("frame buffer freed")
	}
	return nil
}

// SetFrameCallback replaces the callback invoked on every fully
// assembled frame. cb may be nil, in which case completed frames are
// discarded.
func (r *Receiver) SetFrameCallback(cb FrameCallback) {
	r.frameLock.Lock()
	defer r.frameLock.Unlock()
	r.callback = cb
}

// StartReceive sends a four-byte hole-punch datagram to peerAddr at the
// receiver's own port, then starts the receive loop. It requires a
// socket and a buffer, and that the loop is not already running.
func (r *Receiver) StartReceive(peerAddr string) error {
	if r.IsReceiving() {
		return fmt.Errorf("gvsp: start_receive: %w", ErrReceiving)
	}
	if r.conn == nil {
		return fmt.Errorf("gvsp: start_receive: %w", ErrNoSocket)
	}
	r.frameLock.Lock()
	noBuffer := r.frameBuffer == nil
	r.frameLock.Unlock()
	if noBuffer {
		return fmt.Errorf("gvsp: start_receive: %w", ErrNoBuffer)
	}

	if err := r.holePunch(peerAddr); err != nil {
		return fmt.Errorf("gvsp: start_receive: %w", err)
	}

	r.enableLock.Lock()
	r.receiving = true
	r.enableLock.Unlock()

	r.stopped = make(chan struct{})
	go r.receiveLoop(r.stopped)

	if r.verbose {
		r.logger.Info("receive loop started", "peer", peerAddr)
	}
	return nil
}

// holePunch sends a single four-byte zero datagram to peerAddr:port,
// where port is the receiver's own bound port. This seeds stateful
// middleboxes/firewalls so the camera's subsequent traffic can reach the
// local socket.
func (r *Receiver) holePunch(peerAddr string) error {
	addr := &net.UDPAddr{IP: net.ParseIP(peerAddr), Port: r.port}
	_, err := r.conn.WriteToUDP([]byte{0, 0, 0, 0}, addr)
	return err
}

// StopReceive clears the enable flag and waits for the receive goroutine
// to exit, without holding any lock the worker needs. After it returns,
// no further mutation of Receiver state occurs until StartReceive runs
// again.
func (r *Receiver) StopReceive() error {
	r.enableLock.Lock()
	if !r.receiving {
		r.enableLock.Unlock()
		return fmt.Errorf("gvsp: stop_receive: %w", ErrNotReceiving)
	}
	r.receiving = false
	r.enableLock.Unlock()

	<-r.stopped

	if r.verbose {
		r.logger.Info("receive loop stopped")
	}
	return nil
}
