package ws2812

import (
	"fmt"
	"image/color"
	"strconv"
	"strings"
)

const (
	redOffset   uint8 = 0x10
	greenOffset uint8 = 0x08
	blueOffset  uint8 = 0x00
)

// Pixel is one LED. Fields are laid out in wire order, green first.
type Pixel struct {
	G, R, B uint8
}

// RGB builds a Pixel from the API channel order.
func RGB(r, g, b uint8) Pixel {
	return Pixel{G: g, R: r, B: b}
}

// RGB returns the channels in API order.
func (p Pixel) RGB() (r, g, b uint8) {
	return p.R, p.G, p.B
}

// Uint32 packs the pixel as 0xRRGGBB.
func (p Pixel) Uint32() uint32 {
	return uint32(p.R)<<redOffset | uint32(p.G)<<greenOffset | uint32(p.B)<<blueOffset
}

// PixelFromUint32 unpacks a 0xRRGGBB value. The top byte is ignored.
func PixelFromUint32(v uint32) Pixel {
	return Pixel{
		R: channel(v, redOffset),
		G: channel(v, greenOffset),
		B: channel(v, blueOffset),
	}
}

func channel(v uint32, off uint8) uint8 {
	var mask uint32 = 0xFF << off
	return uint8((v & mask) >> off)
}

// ParsePixel parses "rrggbb", "#rrggbb" or "0xrrggbb".
func ParsePixel(s string) (Pixel, error) {
	h := strings.TrimPrefix(strings.TrimPrefix(strings.TrimSpace(s), "#"), "0x")
	if len(h) != 6 {
		return Pixel{}, fmt.Errorf("ws2812: invalid color %q", s)
	}
	v, err := strconv.ParseUint(h, 16, 32)
	if err != nil {
		return Pixel{}, fmt.Errorf("ws2812: invalid color %q: %w", s, err)
	}
	return PixelFromUint32(uint32(v)), nil
}

// NRGBA converts to an opaque color.NRGBA.
func (p Pixel) NRGBA() color.NRGBA {
	return color.NRGBA{R: p.R, G: p.G, B: p.B, A: 255}
}

func (p Pixel) String() string {
	return fmt.Sprintf("%06x", p.Uint32())
}
