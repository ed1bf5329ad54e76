// Package ws2812 drives a chain of WS2812 family LEDs over a byte oriented
// synchronous transport, usually an SPI controller clocked at SymbolRate.
//
// Every protocol bit is sent as one transport byte (a symbol) whose high and
// low run lengths approximate the LED pulse widths. A frame is 24 symbols per
// LED in GRB order followed by ResetRepeat single zero bytes that latch the
// chain.
//
// A Driver is not safe for concurrent use. It has a single owner and every
// call, including the blocking Show calls, must be serialized by that owner.
//
// Datasheet
//
// https://cdn-shop.adafruit.com/datasheets/WS2812.pdf
package ws2812
