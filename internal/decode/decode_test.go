package decode

import (
	"math/rand"
	"testing"
)

// Scenarios S1-S4 from the protocol's literal test vectors.
func TestDecodeLiteralVectors(t *testing.T) {
	tests := []struct {
		name   string
		format PixelFormat
		width  int
		height int
		buf    []byte
		want   any
		depth  int
	}{
		{
			name:   "S1 MONO8 1x4",
			format: MONO8,
			width:  4,
			height: 1,
			buf:    []byte{0x00, 0x40, 0x80, 0xFF},
			want:   []uint8{0, 64, 128, 255},
			depth:  8,
		},
		{
			name:   "S2 MONO10 1x2",
			format: MONO10,
			width:  2,
			height: 1,
			buf:    []byte{0x78, 0x02, 0x34, 0x01},
			want:   []uint16{632, 308},
			depth:  10,
		},
		{
			name:   "S3 MONO10PACKED 1x2",
			format: MONO10PACKED,
			width:  2,
			height: 1,
			buf:    []byte{0xAB, 0x12, 0xCD},
			want:   []uint16{0x2AE, 0x335},
			depth:  10,
		},
		{
			name:   "S4 MONO12PACKED 1x2",
			format: MONO12PACKED,
			width:  2,
			height: 1,
			buf:    []byte{0xAB, 0x12, 0xCD},
			want:   []uint16{0xAB2, 0xCD1},
			depth:  12,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			frame, err := Decode(tt.format, tt.buf, tt.width, tt.height)
			if err != nil {
				t.Fatalf("Decode: %v", err)
			}
			if frame.BitDepth != tt.depth {
				t.Errorf("bit depth = %d, want %d", frame.BitDepth, tt.depth)
			}
			assertPixelsEqual(t, frame.Pixels, tt.want)
		})
	}
}

func assertPixelsEqual(t *testing.T, got, want any) {
	t.Helper()
	switch w := want.(type) {
	case []uint8:
		g, ok := got.([]uint8)
		if !ok || len(g) != len(w) {
			t.Fatalf("got %#v, want %#v", got, want)
		}
		for i := range w {
			if g[i] != w[i] {
				t.Errorf("pixel[%d] = %d, want %d", i, g[i], w[i])
			}
		}
	case []uint16:
		g, ok := got.([]uint16)
		if !ok || len(g) != len(w) {
			t.Fatalf("got %#v, want %#v", got, want)
		}
		for i := range w {
			if g[i] != w[i] {
				t.Errorf("pixel[%d] = %d, want %d", i, g[i], w[i])
			}
		}
	}
}

// Pixel round-trip: encode a random image into each format's byte layout
// and confirm the decoder reproduces the original samples bit-for-bit.
func TestDecodeRoundTrip(t *testing.T) {
	const width, height = 8, 6
	r := rand.New(rand.NewSource(1))

	t.Run("MONO8", func(t *testing.T) {
		src := make([]uint8, width*height)
		for i := range src {
			src[i] = uint8(r.Intn(256))
		}
		buf := make([]byte, len(src))
		copy(buf, src)
		frame, err := Decode(MONO8, buf, width, height)
		if err != nil {
			t.Fatal(err)
		}
		assertPixelsEqual(t, frame.Pixels, src)
	})

	t.Run("MONO16", func(t *testing.T) {
		src := make([]uint16, width*height)
		buf := make([]byte, len(src)*2)
		for i := range src {
			src[i] = uint16(r.Intn(65536))
			buf[2*i] = byte(src[i])
			buf[2*i+1] = byte(src[i] >> 8)
		}
		frame, err := Decode(MONO16, buf, width, height)
		if err != nil {
			t.Fatal(err)
		}
		assertPixelsEqual(t, frame.Pixels, src)
	})

	for _, f := range []struct {
		format PixelFormat
		bits   uint16
	}{{MONO10, 0x3FF}, {MONO12, 0xFFF}} {
		f := f
		t.Run(f.format.String(), func(t *testing.T) {
			src := make([]uint16, width*height)
			buf := make([]byte, len(src)*2)
			for i := range src {
				src[i] = uint16(r.Intn(int(f.bits) + 1))
				buf[2*i] = byte(src[i])
				buf[2*i+1] = byte(src[i] >> 8)
			}
			frame, err := Decode(f.format, buf, width, height)
			if err != nil {
				t.Fatal(err)
			}
			assertPixelsEqual(t, frame.Pixels, src)
		})
	}

	for _, f := range []struct {
		format PixelFormat
		shift  uint
	}{{MONO10PACKED, 2}, {MONO12PACKED, 4}} {
		f := f
		t.Run(f.format.String(), func(t *testing.T) {
			src := make([]uint16, width*height)
			mask := uint16(1)<<(8+f.shift) - 1
			for i := range src {
				src[i] = uint16(r.Intn(int(mask) + 1))
			}
			buf := make([]byte, (len(src)/2)*3)
			for p := 0; p < len(src)/2; p++ {
				s0, s1 := src[2*p], src[2*p+1]
				buf[3*p] = byte(s0 >> f.shift)
				buf[3*p+2] = byte(s1 >> f.shift)
				if f.shift == 2 {
					buf[3*p+1] = byte(s0&0x03) | byte((s1&0x03)<<4)
				} else {
					buf[3*p+1] = byte(s0&0x0f) | byte((s1&0x0f)<<4)
				}
			}
			frame, err := Decode(f.format, buf, width, height)
			if err != nil {
				t.Fatal(err)
			}
			assertPixelsEqual(t, frame.Pixels, src)
		})
	}
}

func TestDecodeUnsupportedFormat(t *testing.T) {
	if _, err := Decode(0xDEADBEEF, []byte{0, 0, 0, 0}, 2, 2); err == nil {
		t.Fatal("expected error for unsupported pixel format")
	}
}

func TestPayloadBytesOddPacked(t *testing.T) {
	if _, err := PayloadBytes(MONO10PACKED, 3, 1); err == nil {
		t.Fatal("expected error for odd pixel count with a packed format")
	}
}
