package reasoner

import (
	"context"
	"strconv"
	"time"
)

// Scripted replays a fixed list of steps. It is deterministic and needs no
// model, which makes it useful for tests, demos and offline runs.
type Scripted struct {
	steps []Step
	err   error
	delay time.Duration
}

// NewScripted creates a reasoner that emits steps in order.
func NewScripted(steps ...Step) *Scripted {
	return &Scripted{steps: steps}
}

// WithError makes the replay fail with err after all steps were emitted.
func (s *Scripted) WithError(err error) *Scripted {
	s.err = err
	return s
}

// WithDelay pauses before every step.
func (s *Scripted) WithDelay(d time.Duration) *Scripted {
	s.delay = d
	return s
}

// Reason implements Reasoner. Every step is replayed regardless of the
// observations; replay only stops early when ctx is done.
func (s *Scripted) Reason(ctx context.Context, _ Input, handle Handler) error {
	for i, step := range s.steps {
		if s.delay > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(s.delay):
			}
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		if step.Kind == StepToolCall && step.Call != nil && step.Call.ID == "" {
			call := *step.Call
			call.ID = "scripted_" + strconv.Itoa(i)
			step.Call = &call
		}

		handle(ctx, step)
	}

	return s.err
}
