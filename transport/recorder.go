package transport

import (
	"errors"
	"sync"
)

// ErrInjected is returned by Recorder on the configured failing call.
var ErrInjected = errors.New("transport: injected failure")

// Recorder keeps a copy of every call. It is meant for tests.
type Recorder struct {
	mu    sync.Mutex
	calls [][]byte
	// FailAt makes the FailAt-th call (1 based) return Err, or ErrInjected
	// when Err is nil. 0 disables it.
	FailAt int
	Err    error
}

// Transmit implements ws2812.Transport.
func (r *Recorder) Transmit(p []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, append([]byte(nil), p...))
	if r.FailAt > 0 && len(r.calls) == r.FailAt {
		if r.Err != nil {
			return r.Err
		}
		return ErrInjected
	}
	return nil
}

// Calls returns the number of calls so far.
func (r *Recorder) Calls() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.calls)
}

// Call returns a copy of the i-th call.
func (r *Recorder) Call(i int) []byte {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]byte(nil), r.calls[i]...)
}

// Data returns every non-zero byte sent, in order: the symbols without the
// reset hold.
func (r *Recorder) Data() []byte {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []byte
	for _, c := range r.calls {
		for _, b := range c {
			if b != 0 {
				out = append(out, b)
			}
		}
	}
	return out
}

// Resets returns the number of single zero byte calls.
func (r *Recorder) Resets() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, c := range r.calls {
		if len(c) == 1 && c[0] == 0 {
			n++
		}
	}
	return n
}

// Reset forgets every call.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = nil
}
