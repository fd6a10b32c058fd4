package pipeline

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sourcegraph/conc"
	tu "src.mwls.dev/pkg/testutil"
)

// A requestNow racing with an expiring delay must not let the following
// request skip its delay.
func TestStage_HurryIsConsumedByPass(t *testing.T) {
	var s *stage
	var racing atomic.Bool
	timers := make(chan chan time.Time, 16)
	passes := make(chan struct{}, 16)
	after := func(time.Duration) <-chan time.Time {
		ch := make(chan time.Time, 1)
		if racing.CompareAndSwap(true, false) {
			// The timer fires just as requestNow lands.
			ch <- time.Now()
			s.requestNow()
			return ch
		}
		timers <- ch
		return ch
	}
	s = newStage(func() time.Duration { return time.Second }, after,
		func(context.Context) { passes <- struct{}{} })

	ctx, cancel := context.WithCancel(context.Background())
	var wg conc.WaitGroup
	wg.Go(func() { s.loop(ctx) })
	defer wg.Wait()
	defer cancel()

	for i := 0; i < 20; i++ {
		racing.Store(true)
		s.request()
		receive(t, passes)

		s.request()
		tm := receive(t, timers)
		select {
		case <-passes:
			t.Fatalf("round %d: pass ran before its delay", i)
		case <-time.After(tu.Scaled(10 * time.Millisecond)):
		}
		tm <- time.Now()
		receive(t, passes)
	}
}
