package pipeline

import (
	"context"
	"time"
)

// A stage runs a pass some time after it is requested. Requests that arrive
// before the pass starts coalesce into it, and a request that arrives while a
// pass runs causes exactly one more pass. Passes of one stage never overlap.
type stage struct {
	delay func() time.Duration
	after func(time.Duration) <-chan time.Time
	pass  func(ctx context.Context)

	// Both have capacity 1. A value in kick means a pass is owed; a value in
	// hurry means the owed pass should not wait for the delay.
	kick  chan struct{}
	hurry chan struct{}
}

func newStage(delay func() time.Duration, after func(time.Duration) <-chan time.Time, pass func(context.Context)) *stage {
	return &stage{delay, after, pass, make(chan struct{}, 1), make(chan struct{}, 1)}
}

func (s *stage) request() {
	select {
	case s.kick <- struct{}{}:
	default:
	}
}

func (s *stage) requestNow() {
	s.request()
	select {
	case s.hurry <- struct{}{}:
	default:
	}
}

func (s *stage) loop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-s.kick:
		}
		select {
		case <-ctx.Done():
			return
		case <-s.after(s.delay()):
		case <-s.hurry:
		}
		// Requests made during the delay are served by this pass.
		select {
		case <-s.kick:
		default:
		}
		select {
		case <-s.hurry:
		default:
		}
		s.pass(ctx)
	}
}
