package gvsp

import (
	"encoding/binary"
	"fmt"

	"github.com/rschre/gvsprecv/internal/decode"
)

// All three handlers below are only ever called from dispatch, which
// already holds frameLock; they never acquire a lock themselves.

// handleLeader validates and applies a leader packet, resetting the
// in-progress frame state to FILLING. A leader for an unsupported leader
// content type or interlaced field drops the packet and leaves any
// previous leader state untouched (per spec, a malformed leader simply
// warns and is dropped, it does not reset FILLING itself — only a VALID
// leader does).
func (r *Receiver) handleLeader(h header, buf []byte) {
	if ok, reason := h.valid(); !ok {
		r.warnf("invalid leader packet: %s", reason)
		return
	}
	if len(buf) < headerSize+12 {
		r.warnf("leader packet too short")
		return
	}
	payload := buf[headerSize:]

	if binary.BigEndian.Uint16(payload[2:4]) != uncompressedImageFormat {
		r.warnf("leader declares unsupported payload type (only uncompressed image is supported)")
		return
	}
	if len(payload) < leaderContentLen {
		r.warnf("invalid uncompressed image leader packet")
		return
	}
	if payload[0] != 0 {
		r.warnf("interlaced frames are not supported")
		return
	}

	r.pixelFormat = decode.PixelFormat(binary.BigEndian.Uint32(payload[12:16]))
	r.sizeX = int(binary.BigEndian.Uint32(payload[16:20]))
	r.sizeY = int(binary.BigEndian.Uint32(payload[20:24]))
	r.frameSize = r.sizeX * r.sizeY
	r.receivedPackets = 0
	r.leaderReceived = true
}

// handleData copies one data packet's payload to its byte-exact offset
// in the frame buffer and advances the received-packet count. Unlike the
// leader and trailer, a data packet's status/block-id/extended-id fields
// are not re-validated here — matching the reference receiver, which
// only runs that check ahead of the leader and trailer handlers.
func (r *Receiver) handleData(h header, buf []byte) {
	if headerSize+r.packetPayloadSize > len(buf) {
		r.warnf("data packet too small: expected %d bytes, got %d", headerSize+r.packetPayloadSize, len(buf))
		return
	}
	start := int(h.packetID-1) * r.packetPayloadSize
	if start < 0 || start+r.packetPayloadSize > r.payloadSize {
		r.warnf("data packet exceeds frame buffer size (packet_id=%d)", h.packetID)
		return
	}
	copy(r.frameBuffer[start:start+r.packetPayloadSize], buf[headerSize:headerSize+r.packetPayloadSize])
	r.receivedPackets++
}

// handleTrailer closes out the current frame: if every data packet
// arrived, it decodes the buffer and invokes the callback; otherwise it
// drops the frame silently (beyond a warning).
func (r *Receiver) handleTrailer(h header, buf []byte) {
	if !r.leaderReceived {
		r.warnf("trailer received before leader")
		return
	}
	r.leaderReceived = false

	if ok, reason := h.valid(); !ok {
		r.warnf("invalid trailer packet: %s", reason)
		return
	}
	if len(buf) < headerSize+12 {
		r.warnf("trailer packet too short")
		return
	}

	if r.receivedPackets != r.packetCount {
		r.framesDropped.Add(1)
		r.warnf("%d packets dropped", r.packetCount-r.receivedPackets)
		return
	}

	frame, err := decode.Decode(r.pixelFormat, r.frameBuffer, r.sizeX, r.sizeY)
	if err != nil {
		r.framesDropped.Add(1)
		r.warnf("pixel format is not supported: %v", err)
		return
	}

	r.framesDelivered.Add(1)
	if r.callback != nil {
		r.callback.OnFrame(frame.Pixels, frame.BitDepth)
	}
}

// warnf logs a protocol anomaly when warnings are enabled. It never
// returns an error: worker-local anomalies affect only whether a frame
// is delivered, never lifecycle state.
func (r *Receiver) warnf(format string, args ...any) {
	if !r.warnings {
		return
	}
	r.logger.Warn("gvsp protocol anomaly", "detail", fmt.Sprintf(format, args...))
}
