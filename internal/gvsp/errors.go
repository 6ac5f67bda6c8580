package gvsp

import "errors"

// Sentinel errors returned by lifecycle operations. They are always
// wrapped with the operation name before reaching the caller, e.g.
// "gvsp: create_buffer: buffer already exists".
var (
	// ErrReceiving is returned when a lifecycle operation that requires
	// the receiver to be idle is attempted while the receive loop is
	// running.
	ErrReceiving = errors.New("receiving is active")

	// ErrNotReceiving is returned by StopReceive when the receiver is
	// already stopped.
	ErrNotReceiving = errors.New("already stopped receiving")

	// ErrNoSocket is returned when an operation needs a bound socket
	// that does not exist yet.
	ErrNoSocket = errors.New("no socket, you must first call CreateSocket")

	// ErrHasBuffer is returned by CreateBuffer when a frame buffer
	// already exists.
	ErrHasBuffer = errors.New("buffer already exists")

	// ErrNoBuffer is returned when an operation needs a frame buffer
	// that has not been created yet.
	ErrNoBuffer = errors.New("buffer does not exist, you must first call CreateBuffer")

	// ErrInvalidPacketSize is returned by CreateBuffer when packetSize
	// does not leave room for any payload once the IP+UDP+GVSP overhead
	// is subtracted.
	ErrInvalidPacketSize = errors.New("packet size must be greater than the GVSP overhead")

	// ErrPayloadNotMultiple is returned by CreateBuffer when payloadSize
	// is not an exact multiple of the per-packet payload size.
	ErrPayloadNotMultiple = errors.New("payload size must be a multiple of the per-packet payload size")
)
