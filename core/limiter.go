package core

import (
	"errors"
	"fmt"
	"sync"
)

// ErrStepBudgetExhausted is returned once a turn used all of its reasoning steps.
var ErrStepBudgetExhausted = errors.New("step budget exhausted")

// StepLimiter enforces a maximum number of reasoning steps per turn.
type StepLimiter struct {
	max   int
	count int
	mu    sync.Mutex
}

// NewStepLimiter creates a new limiter with a max number of steps.
// If max == 0, unlimited steps are allowed.
func NewStepLimiter(max int) *StepLimiter {
	return &StepLimiter{max: max}
}

// Increment consumes one step and returns an error if the budget is exceeded.
func (l *StepLimiter) Increment() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.max > 0 && l.count >= l.max {
		return fmt.Errorf("%w: %d", ErrStepBudgetExhausted, l.max)
	}
	l.count++

	return nil
}

// Count returns the number of consumed steps.
func (l *StepLimiter) Count() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	return l.count
}

// Remaining returns how many steps are left, or -1 when unlimited.
func (l *StepLimiter) Remaining() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.max == 0 {
		return -1
	}

	return l.max - l.count
}
