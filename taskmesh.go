// Package taskmesh provides a high-level façade over the stream relay, the
// task graph tools and a pluggable reasoner. Most applications interact with
// this package by:
//  1. Choosing a reasoner (reasoner.NewModelReasoner over an OpenAI or
//     Anthropic model, or reasoner.NewScripted for offline runs)
//  2. Creating a TaskMesh via New()
//  3. Running turns incrementally (Stream) or synchronously (Chat)
//
// Every turn works on a private copy of the caller's graph. The caller gets
// the resulting graph back in the final graph_update event, or in
// Response.Graph.
package taskmesh

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/hupe1980/taskmesh/core"
	"github.com/hupe1980/taskmesh/graph"
	"github.com/hupe1980/taskmesh/logging"
	"github.com/hupe1980/taskmesh/reasoner"
	"github.com/hupe1980/taskmesh/relay"
	"github.com/hupe1980/taskmesh/tool"
)

// Options configures the TaskMesh instance.
type Options struct {
	// ChunkSize is the number of runes per streamed text fragment.
	ChunkSize int
	// PollInterval bounds the relay's wait for new items.
	PollInterval time.Duration
	// TurnTimeout bounds a whole reasoning turn; 0 disables it.
	TurnTimeout time.Duration
	// EventBufferSize sets the capacity of the event channel returned by Stream.
	EventBufferSize int

	// MaxConcurrentTurns limits the number of turns streaming at the same
	// time. Stream waits for a free slot until ctx is done. Set to 0 for
	// unlimited.
	MaxConcurrentTurns int

	// Registry holds the tools offered to the reasoner. Defaults to the
	// task graph tool set.
	Registry *tool.Registry

	// Logger (defaults to NoOp logger if nil)
	Logger logging.Logger
}

// TaskMesh runs task graph turns.
type TaskMesh struct {
	opts  Options
	relay *relay.Relay
	slots chan struct{}
}

// New creates a TaskMesh driven by r.
func New(r reasoner.Reasoner, optFns ...func(o *Options)) *TaskMesh {
	opts := Options{
		ChunkSize:          3,
		PollInterval:       20 * time.Millisecond,
		TurnTimeout:        2 * time.Minute,
		EventBufferSize:    64,
		MaxConcurrentTurns: 16,
		Logger:             logging.NoOpLogger{},
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	opts.Logger = logging.OrNoOp(opts.Logger)
	if opts.Registry == nil {
		opts.Registry = tool.NewGraphRegistry(func(o *tool.RegistryOptions) { o.Logger = opts.Logger })
	}

	rl := relay.New(r, opts.Registry, func(o *relay.Options) {
		o.ChunkSize = opts.ChunkSize
		o.PollInterval = opts.PollInterval
		o.TurnTimeout = opts.TurnTimeout
		o.EventBufferSize = opts.EventBufferSize
		o.Logger = opts.Logger
	})

	m := &TaskMesh{opts: opts, relay: rl}
	if opts.MaxConcurrentTurns > 0 {
		m.slots = make(chan struct{}, opts.MaxConcurrentTurns)
	}

	return m
}

// Stream starts a turn and returns its event channel. It only fails when no
// turn slot frees up before ctx is done. A slot is held until the reasoning
// turn ends, not until the consumer stops reading.
func (m *TaskMesh) Stream(ctx context.Context, history []core.Message, data graph.Data) (<-chan relay.Event, error) {
	if m.slots == nil {
		return m.relay.Stream(ctx, history, data), nil
	}

	select {
	case m.slots <- struct{}{}:
	case <-ctx.Done():
		return nil, fmt.Errorf("wait for turn slot: %w", ctx.Err())
	}

	return m.relay.StreamNotify(ctx, history, data, func() { <-m.slots }), nil
}

// Response is the result of a synchronous turn.
type Response struct {
	// Response is the reply text, or the apology for a failed turn.
	Response string
	// Graph is the graph after the turn.
	Graph graph.Data
}

// TurnError reports a turn that failed after it started. The Response
// returned alongside it still carries the apology and the final graph.
type TurnError struct {
	Message string
}

func (e *TurnError) Error() string { return "turn failed: " + e.Message }

// ErrIncompleteStream is returned when the event stream ends without a final
// snapshot, which happens when ctx is done mid-turn.
var ErrIncompleteStream = errors.New("stream ended before the final snapshot")

// Chat runs a turn to completion and returns the collected reply and graph.
func (m *TaskMesh) Chat(ctx context.Context, history []core.Message, data graph.Data) (Response, error) {
	events, err := m.Stream(ctx, history, data)
	if err != nil {
		return Response{Graph: data.Clone()}, err
	}

	var (
		sb      strings.Builder
		final   *graph.Data
		turnErr error
	)

	for ev := range events {
		switch ev.Type {
		case relay.EventToken:
			sb.WriteString(ev.Content)
			if ev.Error != "" {
				turnErr = &TurnError{Message: ev.Error}
			}
		case relay.EventGraphUpdate:
			if ev.IsFinalSnapshot() {
				final = ev.Graph
			}
		}
	}

	if final == nil {
		res := Response{Response: sb.String(), Graph: data.Clone()}
		if ctx.Err() != nil {
			return res, fmt.Errorf("%w: %w", ErrIncompleteStream, ctx.Err())
		}
		return res, ErrIncompleteStream
	}

	return Response{Response: sb.String(), Graph: *final}, turnErr
}
