package loop

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
)

const DFLT_FPS = 30

// Frame renders and pushes one frame. elapsed is the time since Run started.
type Frame func(elapsed time.Duration) error

type Looper struct {
	fps    int
	frame  Frame
	start  time.Time
	frames uint64
	errs   uint64
}

func New(fps int, f Frame) *Looper {
	if fps <= 0 {
		fps = DFLT_FPS
	}
	return &Looper{fps: fps, frame: f}
}

// Run calls the frame func at the configured rate until ctx is done. A
// failing frame is logged and the loop keeps going.
func (l *Looper) Run(ctx context.Context) error {
	delta := time.Second / time.Duration(l.fps)
	ticker := time.NewTicker(delta)
	defer ticker.Stop()

	l.start = time.Now()
	for {
		select {
		case <-ctx.Done():
			log.Debug().Uint64("frames", l.frames).Uint64("errors", l.errs).Msg("loop stopped")
			return ctx.Err()

		case <-ticker.C:
			t := time.Now()
			if err := l.frame(t.Sub(l.start)); err != nil {
				l.errs++
				log.Warn().Err(err).Uint64("frame", l.frames).Msg("frame failed")
			}
			l.frames++

			if spent := time.Since(t); spent > delta {
				log.Debug().Dur("spent", spent).Dur("budget", delta).Msg("frame over budget")
			}
		}
	}
}

// Frames returns the number of frames attempted so far.
func (l *Looper) Frames() uint64 { return l.frames }

// Errors returns the number of failed frames so far.
func (l *Looper) Errors() uint64 { return l.errs }
