// Package relay bridges a blocking reasoning turn to an incremental consumer.
// The reasoner runs on its own goroutine and owns the turn's graph; every
// thought, reply fragment and mutation is pushed through a FIFO hand-off
// queue and forwarded to the consumer as an Event, with graphs always
// delivered as deep copies.
package relay

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/hupe1980/taskmesh/core"
	"github.com/hupe1980/taskmesh/graph"
	"github.com/hupe1980/taskmesh/internal/util"
	"github.com/hupe1980/taskmesh/logging"
	"github.com/hupe1980/taskmesh/metrics"
	"github.com/hupe1980/taskmesh/reasoner"
	"github.com/hupe1980/taskmesh/tool"
)

// ApologyPrefix starts the token emitted for a failed turn.
const ApologyPrefix = "Sorry, I encountered an error: "

// Options configures a Relay.
type Options struct {
	// ChunkSize is the number of runes per token / thinking fragment.
	ChunkSize int
	// PollInterval bounds how long the forwarder waits for new items.
	PollInterval time.Duration
	// TurnTimeout bounds a whole reasoning turn; 0 disables the bound.
	TurnTimeout time.Duration
	// EventBufferSize is the capacity of the returned event channel.
	EventBufferSize int
	Logger          logging.Logger
}

// Relay runs reasoning turns and streams their output.
type Relay struct {
	reasoner reasoner.Reasoner
	registry *tool.Registry
	opts     Options
}

// New creates a Relay. A nil registry selects the task graph tool set.
func New(r reasoner.Reasoner, registry *tool.Registry, optFns ...func(o *Options)) *Relay {
	opts := Options{
		ChunkSize:       3,
		PollInterval:    20 * time.Millisecond,
		TurnTimeout:     2 * time.Minute,
		EventBufferSize: 64,
		Logger:          logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.ChunkSize <= 0 {
		opts.ChunkSize = 3
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = 20 * time.Millisecond
	}
	opts.Logger = logging.OrNoOp(opts.Logger)

	if registry == nil {
		registry = tool.NewGraphRegistry(func(o *tool.RegistryOptions) { o.Logger = opts.Logger })
	}

	return &Relay{reasoner: r, registry: registry, opts: opts}
}

// Stream starts a turn and returns its events. The caller's data is never
// modified. The channel is closed after EventDone, or early when ctx is done;
// in that case the reasoning turn still runs to completion (or TurnTimeout)
// in the background.
func (r *Relay) Stream(ctx context.Context, history []core.Message, data graph.Data) <-chan Event {
	return r.StreamNotify(ctx, history, data, nil)
}

// StreamNotify is Stream with a callback run once the reasoning goroutine has
// finished, which may be long after the returned channel closed.
func (r *Relay) StreamNotify(ctx context.Context, history []core.Message, data graph.Data, finished func()) <-chan Event {
	out := make(chan Event, r.opts.EventBufferSize)
	q := newHandoff[Event]()

	local := data.Clone()
	if err := local.Validate(); err != nil {
		r.opts.Logger.Warn("relay.graph.inconsistent", "error", err.Error())
	}

	turnID := util.NewID("turn")
	logger := r.opts.Logger
	if l, ok := logger.(*logging.TaskMeshLogger); ok {
		logger = l.WithContext("turn_id", turnID)
	}

	go func() {
		if finished != nil {
			defer finished()
		}
		r.runTurn(ctx, turnID, history, &local, q, logger)
	}()
	go r.forward(ctx, q, out, logger)

	return out
}

func (r *Relay) runTurn(ctx context.Context, turnID string, history []core.Message, data *graph.Data, q *handoff[Event], logger logging.Logger) {
	defer q.close()

	start := time.Now()
	done := metrics.StreamStarted()
	defer done()

	turnCtx := context.WithoutCancel(ctx)
	if r.opts.TurnTimeout > 0 {
		var cancel context.CancelFunc
		turnCtx, cancel = context.WithTimeout(turnCtx, r.opts.TurnTimeout)
		defer cancel()
	}

	store := graph.NewStore(data, func(o *graph.StoreOptions) { o.Logger = logger })

	var steps, mutations int
	handle := func(ctx context.Context, step reasoner.Step) reasoner.Observation {
		steps++

		switch step.Kind {
		case reasoner.StepThought:
			r.chunk(q, EventThinking, step.Text)
		case reasoner.StepFinalAnswer:
			r.chunk(q, EventToken, step.Text)
		case reasoner.StepToolCall:
			if step.Call == nil {
				return reasoner.Observation{Content: "Error: empty tool call"}
			}

			tc := core.NewToolContext(ctx, step.Call.ID, store, logger)
			res := r.registry.Execute(tc, *step.Call)

			if change := tc.Change(); change != nil {
				mutations++
				snap := store.Snapshot()
				q.put(Event{Type: EventGraphUpdate, Action: change, Graph: &snap})
				logger.Info("relay.graph.update", "action", string(change.Action), "id", change.ID)
			}

			return reasoner.Observation{Content: res.Response.Text(), Err: res.Err, Finished: res.Finished}
		}

		return reasoner.Observation{}
	}

	err := r.reason(turnCtx, reasoner.Input{
		History: history,
		State:   store.Snapshot,
		Tools:   r.registry.Definitions(),
	}, handle)
	if err != nil {
		var pe *PanicError
		if l, ok := logger.(*logging.TaskMeshLogger); ok && errors.As(err, &pe) {
			l.ErrorWithStack(err, "relay.turn.error", "turn_id", turnID)
		} else {
			logger.Error("relay.turn.error", "turn_id", turnID, "error", err.Error())
		}
		q.put(Event{Type: EventToken, Content: ApologyPrefix + err.Error(), Error: err.Error()})
	}

	final := store.Snapshot()
	q.put(Event{Type: EventGraphUpdate, Graph: &final})
	q.put(Event{Type: EventDone})

	dur := time.Since(start)
	metrics.ObserveTurn(dur, err)
	logging.LogTurn(logger, turnID, steps, mutations, dur, err)
}

// reason runs the reasoner and converts panics into errors.
func (r *Relay) reason(ctx context.Context, in reasoner.Input, handle reasoner.Handler) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = &PanicError{Value: rec, Stack: debug.Stack()}
		}
	}()
	return r.reasoner.Reason(ctx, in, handle)
}

// chunk splits text into fragments of ChunkSize runes.
func (r *Relay) chunk(q *handoff[Event], typ EventType, text string) {
	runes := []rune(text)
	for i := 0; i < len(runes); i += r.opts.ChunkSize {
		end := min(i+r.opts.ChunkSize, len(runes))
		q.put(Event{Type: typ, Content: string(runes[i:end])})
	}
}

func (r *Relay) forward(ctx context.Context, q *handoff[Event], out chan<- Event, logger logging.Logger) {
	defer close(out)

	for {
		ev, state := q.poll(r.opts.PollInterval)
		switch state {
		case pollDrained:
			return
		case pollEmpty:
			if ctx.Err() != nil {
				logger.Info("relay.consumer.gone", "reason", ctx.Err().Error())
				return
			}
			continue
		}

		select {
		case out <- ev:
			metrics.RecordStreamEvent(string(ev.Type))
		case <-ctx.Done():
			logger.Info("relay.consumer.gone", "reason", ctx.Err().Error())
			return
		}
	}
}

// PanicError is returned for a reasoner that panicked.
type PanicError struct {
	Value any
	Stack []byte
}

func (p *PanicError) Error() string { return fmt.Sprintf("panic: %v", p.Value) }

// StackTrace returns the stack captured at the panic site.
func (p *PanicError) StackTrace() []byte { return p.Stack }
