// Package transport implements ws2812.Transport on top of real and simulated
// links.
//
// SPI and Spidev write the symbol stream to an SPI controller. Mirror decodes
// the stream back into pixels and redraws it on any display.Drawer, which
// covers periph's nrzled encoder and the console screen. Recorder captures
// calls for tests.
package transport
