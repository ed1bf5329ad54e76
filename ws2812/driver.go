package ws2812

import (
	"fmt"
)

// Transport sends bytes over the physical link at a fixed byte rate.
//
// Transmit must send exactly len(p) bytes in order and return once they are
// on the wire (or queued to a DMA engine that will not touch p again). The
// driver reuses p between calls so an implementation must not retain it.
type Transport interface {
	Transmit(p []byte) error
}

// TransmitFunc adapts a plain function to Transport.
type TransmitFunc func(p []byte) error

// Transmit implements Transport.
func (f TransmitFunc) Transmit(p []byte) error {
	return f(p)
}

// Conf describes a Driver. At least one of Sync and Async must be set.
type Conf struct {
	// NumPixels is the number of LEDs on the chain. It is fixed for the
	// lifetime of the driver.
	NumPixels int
	// Sync receives one 8 byte symbol group per call, then the reset hold.
	Sync Transport
	// Async receives the whole encoded frame in one call, then the reset
	// hold.
	Async Transport
}

// Driver holds the pixel store of one LED chain and pushes it to the
// transports.
//
// It has no internal locking. The owner must serialize all calls; mutating
// the store while a Show call is running is undefined.
type Driver struct {
	pixels  []Pixel
	sync    Transport
	async   Transport
	scratch [SymbolsPerByte]byte
	frame   []byte
	zero    [1]byte
	closed  bool
}

// New allocates a driver with all pixels off.
func New(c Conf) (*Driver, error) {
	if c.Sync == nil && c.Async == nil {
		return nil, ErrNoTransport
	}
	if c.NumPixels < 0 {
		return nil, fmt.Errorf("%w: %d", ErrCount, c.NumPixels)
	}
	return &Driver{
		pixels: make([]Pixel, c.NumPixels),
		sync:   c.Sync,
		async:  c.Async,
	}, nil
}

// Init stores a new driver into *h. It refuses to overwrite a handle that
// already points to a driver.
func Init(h **Driver, c Conf) error {
	if h == nil {
		return ErrNilHandle
	}
	if *h != nil {
		return ErrHandleInUse
	}
	d, err := New(c)
	if err != nil {
		return err
	}
	*h = d
	return nil
}

// Close releases the store and the frame buffer. Every later call fails with
// ErrClosed.
func (d *Driver) Close() error {
	if err := d.check(); err != nil {
		return err
	}
	d.pixels = nil
	d.frame = nil
	d.sync = nil
	d.async = nil
	d.closed = true
	return nil
}

// Len returns the number of pixels.
func (d *Driver) Len() int {
	if d == nil {
		return 0
	}
	return len(d.pixels)
}

// SetPixel sets pixel i. The other pixels are left untouched.
func (d *Driver) SetPixel(i int, r, g, b uint8) error {
	if err := d.check(); err != nil {
		return err
	}
	if i < 0 || i >= len(d.pixels) {
		return fmt.Errorf("%w: %d not in [0,%d)", ErrIndex, i, len(d.pixels))
	}
	d.pixels[i] = RGB(r, g, b)
	return nil
}

// SetMulti turns every pixel off, then sets each index in idx to the color.
// Indices out of range are skipped.
func (d *Driver) SetMulti(idx []int, r, g, b uint8) error {
	if err := d.check(); err != nil {
		return err
	}
	d.clear()
	p := RGB(r, g, b)
	for _, i := range idx {
		if i >= 0 && i < len(d.pixels) {
			d.pixels[i] = p
		}
	}
	return nil
}

// Clear turns every pixel off.
func (d *Driver) Clear() error {
	if err := d.check(); err != nil {
		return err
	}
	d.clear()
	return nil
}

// Pixel returns pixel i.
func (d *Driver) Pixel(i int) (Pixel, error) {
	if err := d.check(); err != nil {
		return Pixel{}, err
	}
	if i < 0 || i >= len(d.pixels) {
		return Pixel{}, fmt.Errorf("%w: %d not in [0,%d)", ErrIndex, i, len(d.pixels))
	}
	return d.pixels[i], nil
}

// Pixels returns a copy of the store.
func (d *Driver) Pixels() []Pixel {
	if d == nil {
		return nil
	}
	out := make([]Pixel, len(d.pixels))
	copy(out, d.pixels)
	return out
}

// Show pushes the store with the async transport when there is one,
// otherwise with the sync transport.
func (d *Driver) Show() error {
	if d != nil && d.async != nil {
		return d.ShowAsync()
	}
	return d.ShowSync()
}

// ShowSync encodes and sends one channel byte (8 symbols) per call to the
// sync transport, then sends the reset hold.
//
// With no pixels only the reset hold is sent. The first transport error
// aborts the call.
func (d *Driver) ShowSync() error {
	if err := d.check(); err != nil {
		return err
	}
	if d.sync == nil {
		return ErrNoTransport
	}
	for _, p := range d.pixels {
		for _, c := range [3]byte{p.G, p.R, p.B} {
			EncodeByte(d.scratch[:], c)
			if err := d.sync.Transmit(d.scratch[:]); err != nil {
				return fmt.Errorf("ws2812: transmit: %w", err)
			}
		}
	}
	return d.reset(d.sync)
}

// ShowAsync encodes the whole frame into a buffer owned by the driver, sends
// it in one call to the async transport, then sends the reset hold.
//
// With no pixels nothing is sent. The first transport error aborts the call.
func (d *Driver) ShowAsync() error {
	if err := d.check(); err != nil {
		return err
	}
	if d.async == nil {
		return ErrNoTransport
	}
	if len(d.pixels) == 0 {
		return nil
	}
	d.frame = EncodeFrame(d.frame[:0], d.pixels)
	if err := d.async.Transmit(d.frame); err != nil {
		return fmt.Errorf("ws2812: transmit: %w", err)
	}
	return d.reset(d.async)
}

// reset holds the line low for ResetRepeat symbol periods.
func (d *Driver) reset(t Transport) error {
	for i := 0; i < ResetRepeat; i++ {
		d.zero[0] = 0
		if err := t.Transmit(d.zero[:]); err != nil {
			return fmt.Errorf("ws2812: reset: %w", err)
		}
	}
	return nil
}

func (d *Driver) clear() {
	for i := range d.pixels {
		d.pixels[i] = Pixel{}
	}
}

func (d *Driver) check() error {
	if d == nil {
		return ErrNilHandle
	}
	if d.closed {
		return ErrClosed
	}
	return nil
}
