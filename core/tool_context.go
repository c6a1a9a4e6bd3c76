package core

import (
	"context"
	"errors"
	"fmt"

	"github.com/hupe1980/taskmesh/graph"
	"github.com/hupe1980/taskmesh/logging"
)

// ErrInvalidToolContext is returned by Validate for a context that cannot run
// graph tools.
var ErrInvalidToolContext = errors.New("invalid tool context")

// ToolContext is the surface a tool sees for one function call: the turn's
// graph store, the call's logger and the change a successful mutation left.
type ToolContext struct {
	ctx            context.Context
	functionCallID string
	store          *graph.Store
	change         *graph.Change
	logger         logging.Logger
}

// NewToolContext constructs a tool context for one function call. A
// TaskMeshLogger is scoped to the call id.
func NewToolContext(ctx context.Context, functionCallID string, store *graph.Store, logger logging.Logger) *ToolContext {
	logger = logging.OrNoOp(logger)
	if l, ok := logger.(*logging.TaskMeshLogger); ok && functionCallID != "" {
		logger = l.WithContext("function_call_id", functionCallID)
	}

	return &ToolContext{
		ctx:            ctx,
		functionCallID: functionCallID,
		store:          store,
		logger:         logger,
	}
}

// Context returns the turn context the call runs under.
func (tc *ToolContext) Context() context.Context { return tc.ctx }

// FunctionCallID returns the id of the function call being executed.
func (tc *ToolContext) FunctionCallID() string { return tc.functionCallID }

// Logger returns the call scoped logger. It is never nil.
func (tc *ToolContext) Logger() logging.Logger {
	if tc == nil {
		return logging.NoOpLogger{}
	}
	return logging.OrNoOp(tc.logger)
}

// Store returns the graph store owned by the current turn.
func (tc *ToolContext) Store() *graph.Store { return tc.store }

// RecordChange remembers the descriptor of a successful mutation. Recording
// nil is ignored so no-op results never overwrite a real change.
func (tc *ToolContext) RecordChange(c *graph.Change) {
	if c == nil {
		return
	}
	tc.change = c
	tc.Logger().Debug("tool.change.recorded", "action", string(c.Action), "id", c.ID)
}

// Change returns the recorded mutation, if any.
func (tc *ToolContext) Change() *graph.Change { return tc.change }

// Validate reports whether the call can run: it needs a store and a live
// turn context.
func (tc *ToolContext) Validate() error {
	switch {
	case tc == nil || tc.ctx == nil:
		return fmt.Errorf("%w: not initialized", ErrInvalidToolContext)
	case tc.store == nil:
		return fmt.Errorf("%w: no graph store", ErrInvalidToolContext)
	}
	if err := tc.ctx.Err(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidToolContext, err)
	}
	return nil
}
