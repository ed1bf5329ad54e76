package ws2812

import (
	"time"

	"periph.io/x/conn/v3/physic"
)

// SymbolRate is the transport clock the symbols are derived from. At 6.4MHz
// one transport bit is 156.25ns and one symbol byte is 1.25µs, the length of
// one WS2812 bit slot.
const SymbolRate = 6400 * physic.KiloHertz

const (
	// SymbolOne encodes a logical 1: 4 bits high, 4 bits low (625ns/625ns).
	SymbolOne byte = 0xF0
	// SymbolZero encodes a logical 0: 2 bits high, 6 bits low (312ns/937ns).
	SymbolZero byte = 0xC0

	// ResetRepeat is the number of single zero bytes sent after a frame.
	// 240 * 1.25µs = 300µs, above the 280µs latch threshold.
	ResetRepeat = 240

	// SymbolsPerByte is the number of symbols one channel byte expands to.
	SymbolsPerByte = 8
	// SymbolsPerPixel is the encoded size of one GRB pixel.
	SymbolsPerPixel = 3 * SymbolsPerByte
)

// SymbolDuration is the time one symbol byte occupies on the wire.
func SymbolDuration() time.Duration {
	return 8 * SymbolRate.Period()
}

// ResetDuration is the length of the low hold following each frame.
func ResetDuration() time.Duration {
	return ResetRepeat * SymbolDuration()
}

// FrameLen returns the number of symbol bytes for n pixels, excluding the
// reset hold.
func FrameLen(n int) int {
	return n * SymbolsPerPixel
}

// EncodeByte expands b MSB first into dst, which must hold at least
// SymbolsPerByte bytes.
func EncodeByte(dst []byte, b byte) {
	_ = dst[SymbolsPerByte-1]
	for i := 0; i < SymbolsPerByte; i++ {
		if b&(0x80>>uint(i)) != 0 {
			dst[i] = SymbolOne
		} else {
			dst[i] = SymbolZero
		}
	}
}

// EncodePixel appends the 24 symbols of p in wire order to dst.
func EncodePixel(dst []byte, p Pixel) []byte {
	var s [SymbolsPerPixel]byte
	EncodeByte(s[0:8], p.G)
	EncodeByte(s[8:16], p.R)
	EncodeByte(s[16:24], p.B)
	return append(dst, s[:]...)
}

// EncodeFrame appends the symbols of every pixel to dst. The reset hold is
// not included.
func EncodeFrame(dst []byte, pixels []Pixel) []byte {
	for _, p := range pixels {
		dst = EncodePixel(dst, p)
	}
	return dst
}

// Decode converts a symbol stream back into pixels. len(symbols) must be a
// multiple of SymbolsPerPixel and every byte must be SymbolOne or SymbolZero.
func Decode(symbols []byte) ([]Pixel, error) {
	if len(symbols)%SymbolsPerPixel != 0 {
		return nil, ErrSymbolLength
	}
	out := make([]Pixel, len(symbols)/SymbolsPerPixel)
	for i := range out {
		s := symbols[i*SymbolsPerPixel:]
		var v [3]byte
		for c := 0; c < 3; c++ {
			b, err := decodeByte(s[c*SymbolsPerByte : (c+1)*SymbolsPerByte])
			if err != nil {
				return nil, err
			}
			v[c] = b
		}
		out[i] = Pixel{G: v[0], R: v[1], B: v[2]}
	}
	return out, nil
}

func decodeByte(s []byte) (byte, error) {
	var b byte
	for _, x := range s {
		b <<= 1
		switch x {
		case SymbolOne:
			b |= 1
		case SymbolZero:
		default:
			return 0, ErrSymbol
		}
	}
	return b, nil
}
