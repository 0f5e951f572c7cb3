package navigator

import (
	"context"
	"time"
)

// Clock abstracts sleeping so bounded waits are testable without the
// wall clock
type Clock interface {
	Sleep(ctx context.Context, d time.Duration) error
}

type realClock struct{}

func (realClock) Sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// NewRealClock returns a clock backed by time.Timer
func NewRealClock() Clock {
	return realClock{}
}

// Poll runs check up to maxPolls times, sleeping interval before each
// check. It returns true as soon as check does, or false when the poll
// budget is exhausted. Context cancellation and check errors abort the
// poll immediately.
func Poll(ctx context.Context, clock Clock, interval time.Duration, maxPolls int, check func() (bool, error)) (bool, error) {
	for i := 0; i < maxPolls; i++ {
		if err := clock.Sleep(ctx, interval); err != nil {
			return false, err
		}
		done, err := check()
		if err != nil {
			return false, err
		}
		if done {
			return true, nil
		}
	}
	return false, nil
}
