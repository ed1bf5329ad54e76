// Package pattern steps through wiring and color-order checks on a pixel
// store.
package pattern

import "fmt"

type Kind string

const (
	None       Kind = ""
	IndexSweep Kind = "index_sweep"
	RGBTest    Kind = "rgb_channels"
	Blink      Kind = "blink"
)

// BlinkSteps is the number of on/off steps of Blink.
const BlinkSteps = 6

// Store is the part of ws2812.Driver a pattern writes to.
type Store interface {
	Len() int
	SetPixel(i int, r, g, b uint8) error
	SetMulti(idx []int, r, g, b uint8) error
	Clear() error
}

func Parse(s string) (Kind, error) {
	switch k := Kind(s); k {
	case None, IndexSweep, RGBTest, Blink:
		return k, nil
	}
	return None, fmt.Errorf("pattern: unknown pattern %q", s)
}

type Runner struct {
	kind Kind
	step int
	all  []int
}

func NewRunner(k Kind) *Runner { return &Runner{kind: k} }

func (r *Runner) Kind() Kind { return r.kind }

// Step writes the next frame of the pattern into s. It returns false, leaving
// s untouched, once the pattern is complete.
func (r *Runner) Step(s Store) (bool, error) {
	n := s.Len()
	if len(r.all) != n {
		r.all = make([]int, n)
		for i := range r.all {
			r.all[i] = i
		}
	}

	var err error
	switch r.kind {
	case IndexSweep:
		if r.step >= n {
			return false, nil
		}
		if err = s.Clear(); err == nil {
			err = s.SetPixel(r.step, 255, 255, 255)
		}
	case RGBTest:
		switch r.step {
		case 0:
			err = s.SetMulti(r.all, 255, 0, 0)
		case 1:
			err = s.SetMulti(r.all, 0, 255, 0)
		case 2:
			err = s.SetMulti(r.all, 0, 0, 255)
		default:
			return false, nil
		}
	case Blink:
		if r.step >= BlinkSteps {
			return false, nil
		}
		if r.step%2 == 0 {
			err = s.SetMulti(r.all, 255, 255, 255)
		} else {
			err = s.Clear()
		}
	default:
		return false, nil
	}
	if err != nil {
		return false, err
	}
	r.step++
	return true, nil
}
