package transport

import (
	"fmt"

	"periph.io/x/conn/v3"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi"
	"periph.io/x/conn/v3/spi/spireg"

	"github.com/coreman2200/ws2812spi/ws2812"
)

// SPIMode is CPOL=0, CPHA=1: data is sampled on the second edge.
const SPIMode = spi.Mode1

// SPI sends symbols over a periph.io SPI connection.
type SPI struct {
	c     spi.Conn
	port  spi.PortCloser
	maxTx int
}

// NewSPI connects p at f, or at ws2812.SymbolRate when f is 0. The port is
// not closed by Close.
func NewSPI(p spi.Port, f physic.Frequency) (*SPI, error) {
	if f == 0 {
		f = ws2812.SymbolRate
	}
	c, err := p.Connect(f, SPIMode, 8)
	if err != nil {
		return nil, fmt.Errorf("transport: spi connect: %w", err)
	}
	s := &SPI{c: c}
	if l, ok := c.(conn.Limits); ok {
		s.maxTx = l.MaxTxSize()
	}
	return s, nil
}

// OpenSPI opens the named port through spireg. An empty name selects the
// first port registered. host.Init must have been called.
func OpenSPI(name string, f physic.Frequency) (*SPI, error) {
	p, err := spireg.Open(name)
	if err != nil {
		return nil, fmt.Errorf("transport: spi open %q: %w", name, err)
	}
	s, err := NewSPI(p, f)
	if err != nil {
		_ = p.Close()
		return nil, err
	}
	s.port = p
	return s, nil
}

// Transmit implements ws2812.Transport. Writes larger than the port's
// maximum transaction size are split.
func (s *SPI) Transmit(p []byte) error {
	for len(p) > 0 {
		n := len(p)
		if s.maxTx > 0 && n > s.maxTx {
			n = s.maxTx
		}
		if err := s.c.Tx(p[:n], nil); err != nil {
			return fmt.Errorf("transport: spi tx: %w", err)
		}
		p = p[n:]
	}
	return nil
}

func (s *SPI) String() string {
	return fmt.Sprintf("spi{%s}", s.c)
}

// Close closes the port when it was opened by OpenSPI.
func (s *SPI) Close() error {
	if s.port == nil {
		return nil
	}
	err := s.port.Close()
	s.port = nil
	return err
}

var _ ws2812.Transport = &SPI{}
