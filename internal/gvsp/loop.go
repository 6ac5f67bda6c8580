package gvsp

import "time"

func deadline() time.Time {
	return time.Now().Add(socketReadTimeout)
}

// The receive loop. Lock order is strict: frameLock before enableLock,
// never the reverse, so the controller's StopReceive (which only ever
// takes enableLock) can never deadlock against the worker.

// receiveLoop owns the scratch datagram buffer and drives the
// classifier/assembler until the enable flag is cleared. stopped is
// closed right before the goroutine returns, which is what StopReceive
// blocks on.
func (r *Receiver) receiveLoop(stopped chan struct{}) {
	defer close(stopped)

	buf := make([]byte, scratchBufSize)
	if r.verbose {
		r.logger.Info("receiver listening", "port", r.port)
	}

	for {
		if err := r.conn.SetReadDeadline(deadline()); err != nil {
			r.logger.Error("setting read deadline, stopping worker", "error", err)
			return
		}
		n, _, err := r.conn.ReadFromUDP(buf)

		r.frameLock.Lock()
		if err == nil && n > 0 {
			r.dispatch(buf[:n])
		}

		r.enableLock.Lock()
		if !r.receiving {
			r.enableLock.Unlock()
			r.frameLock.Unlock()
			return
		}
		r.enableLock.Unlock()
		r.frameLock.Unlock()
	}
}

// dispatch classifies one datagram and routes it to the matching
// handler. Called with frameLock held. Anything that is not a leader,
// data, or trailer packet is a silent no-op.
func (r *Receiver) dispatch(buf []byte) {
	if len(buf) < headerSize {
		return
	}
	r.packetsReceived.Add(1)
	h := parseHeader(buf)

	switch h.format {
	case formatLeader:
		r.handleLeader(h, buf)
	case formatData:
		r.handleData(h, buf)
	case formatTrailer:
		r.handleTrailer(h, buf)
	default:
		// Unrecognised formats (including GVCP or future packet types
		// that might share this port) are ignored, not dropped-with-
		// warning: they are not malformed GVSP packets, just none of
		// our three roles.
	}
}
