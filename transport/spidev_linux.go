//go:build linux

package transport

import (
	"fmt"
	"os"
	"unsafe"

	"golang.org/x/sys/unix"
	"periph.io/x/conn/v3/physic"

	"github.com/coreman2200/ws2812spi/ws2812"
)

/*
Minimal spidev ioctl bindings, for boards periph.io does not register a
port for. Prefer OpenSPI when it works.
*/

const (
	spiIOCWriteMode        = 0x40016b01
	spiIOCWriteBitsPerWord = 0x40016b03
	spiIOCWriteMaxSpeedHz  = 0x40046b04

	spiModeCPHA = 0x01
)

// Spidev writes symbols straight to a /dev/spidevX.Y file.
type Spidev struct {
	f *os.File
}

// OpenSpidev opens dev (e.g. "/dev/spidev0.0") in mode 1, 8 bits per word at
// speedHz, or ws2812.SymbolRate when speedHz is 0.
func OpenSpidev(dev string, speedHz uint32) (*Spidev, error) {
	if speedHz == 0 {
		speedHz = uint32(ws2812.SymbolRate / physic.Hertz)
	}
	f, err := os.OpenFile(dev, os.O_RDWR, 0)
	if err != nil {
		return nil, fmt.Errorf("transport: open spidev: %w", err)
	}
	mode := byte(spiModeCPHA)
	if err := ioctl(f, spiIOCWriteMode, unsafe.Pointer(&mode)); err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("transport: spidev set mode: %w", err)
	}
	bpw := byte(8)
	if err := ioctl(f, spiIOCWriteBitsPerWord, unsafe.Pointer(&bpw)); err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("transport: spidev set bits-per-word: %w", err)
	}
	if err := ioctl(f, spiIOCWriteMaxSpeedHz, unsafe.Pointer(&speedHz)); err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("transport: spidev set speed: %w", err)
	}
	return &Spidev{f: f}, nil
}

func ioctl(f *os.File, req uintptr, arg unsafe.Pointer) error {
	if _, _, e := unix.Syscall(unix.SYS_IOCTL, f.Fd(), req, uintptr(arg)); e != 0 {
		return e
	}
	return nil
}

// Transmit implements ws2812.Transport.
func (s *Spidev) Transmit(p []byte) error {
	if s.f == nil {
		return fmt.Errorf("transport: spidev closed")
	}
	if _, err := s.f.Write(p); err != nil {
		return fmt.Errorf("transport: spidev write: %w", err)
	}
	return nil
}

func (s *Spidev) Close() error {
	if s.f != nil {
		err := s.f.Close()
		s.f = nil
		return err
	}
	return nil
}
