package ws2812

import "errors"

var (
	ErrNilHandle    = errors.New("ws2812: nil handle")
	ErrHandleInUse  = errors.New("ws2812: handle already initialized")
	ErrNoTransport  = errors.New("ws2812: no transport for this mode")
	ErrCount        = errors.New("ws2812: invalid pixel count")
	ErrIndex        = errors.New("ws2812: index out of range")
	ErrClosed       = errors.New("ws2812: driver closed")
	ErrSymbol       = errors.New("ws2812: invalid symbol")
	ErrSymbolLength = errors.New("ws2812: symbol stream is not a whole number of pixels")
)
