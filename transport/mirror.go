package transport

import (
	"bytes"
	"fmt"
	"image"

	"periph.io/x/conn/v3/display"

	"github.com/coreman2200/ws2812spi/ws2812"
)

// Mirror decodes the symbol stream and redraws each completed frame onto a
// display.Drawer.
//
// Symbols are buffered until the first zero byte of the reset hold; the
// buffered frame is then decoded and drawn. Further zero bytes are no-ops.
// Typical sinks are nrzled.Dev, to re-encode for an SPI controller that
// cannot reach ws2812.SymbolRate, and the console screen for simulation.
type Mirror struct {
	d      display.Drawer
	buf    []byte
	img    *image.NRGBA
	last   []ws2812.Pixel
	frames int
}

// NewMirror returns a Mirror drawing onto d.
func NewMirror(d display.Drawer) *Mirror {
	return &Mirror{d: d}
}

// Transmit implements ws2812.Transport.
func (m *Mirror) Transmit(p []byte) error {
	for len(p) > 0 {
		i := bytes.IndexByte(p, 0)
		if i < 0 {
			m.buf = append(m.buf, p...)
			return nil
		}
		m.buf = append(m.buf, p[:i]...)
		if err := m.flush(); err != nil {
			return err
		}
		p = p[i+1:]
	}
	return nil
}

func (m *Mirror) flush() error {
	if len(m.buf) == 0 {
		return nil
	}
	px, err := ws2812.Decode(m.buf)
	m.buf = m.buf[:0]
	if err != nil {
		return fmt.Errorf("transport: mirror: %w", err)
	}
	m.last = px
	m.frames++
	if m.img == nil || m.img.Rect.Dx() != len(px) {
		m.img = image.NewNRGBA(image.Rect(0, 0, len(px), 1))
	}
	for x, c := range px {
		m.img.SetNRGBA(x, 0, c.NRGBA())
	}
	if err := m.d.Draw(m.d.Bounds(), m.img, image.Point{}); err != nil {
		return fmt.Errorf("transport: mirror draw: %w", err)
	}
	return nil
}

// Last returns the most recently decoded frame.
func (m *Mirror) Last() []ws2812.Pixel {
	return m.last
}

// Frames returns the number of frames drawn.
func (m *Mirror) Frames() int {
	return m.frames
}

func (m *Mirror) String() string {
	return fmt.Sprintf("mirror{%s}", m.d)
}

// Close halts the sink.
func (m *Mirror) Close() error {
	return m.d.Halt()
}
