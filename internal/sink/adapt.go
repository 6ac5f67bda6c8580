package sink

import "hash/crc32"

// Adapt turns a Sink into a gvsp.FrameCallback-compatible function:
// the receiver hands it (pixels any, bitDepth int) synchronously under
// its frame lock, and Adapt reduces the pixel array to a Frame summary
// before calling the Sink. This keeps every Sink implementation, even
// one forwarding over a network, out of the business of touching the
// receiver's pixel buffer.
func Adapt(s Sink) func(pixels any, bitDepth int) {
	return func(pixels any, bitDepth int) {
		if s == nil {
			return
		}
		s.OnFrame(summarize(pixels, bitDepth))
	}
}

func summarize(pixels any, bitDepth int) Frame {
	switch p := pixels.(type) {
	case []uint8:
		return Frame{PixelCount: len(p), BitDepth: bitDepth, Checksum: crc32.ChecksumIEEE(p)}
	case []uint16:
		buf := make([]byte, len(p)*2)
		for i, v := range p {
			buf[2*i] = byte(v)
			buf[2*i+1] = byte(v >> 8)
		}
		return Frame{PixelCount: len(p), BitDepth: bitDepth, Checksum: crc32.ChecksumIEEE(buf)}
	default:
		return Frame{BitDepth: bitDepth}
	}
}
