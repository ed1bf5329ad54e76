//go:build !linux

package transport

import "fmt"

type Spidev struct{}

func OpenSpidev(dev string, speedHz uint32) (*Spidev, error) {
	return nil, fmt.Errorf("transport: spidev not supported on this platform")
}

func (s *Spidev) Transmit(p []byte) error {
	return fmt.Errorf("transport: spidev not supported on this platform")
}

func (s *Spidev) Close() error { return nil }
