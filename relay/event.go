package relay

import "github.com/hupe1980/taskmesh/graph"

// EventType tags an Event.
type EventType string

const (
	// EventToken carries a fragment of the reply to the user.
	EventToken EventType = "token"
	// EventThinking carries a fragment of the reasoning trace.
	EventThinking EventType = "thinking"
	// EventGraphUpdate carries a graph snapshot, with Action set for
	// mutations and unset for the final snapshot of a turn.
	EventGraphUpdate EventType = "graph_update"
	// EventDone ends the stream.
	EventDone EventType = "done"
)

// Event is one element of a turn's output stream. Graph always points to a
// private deep copy.
type Event struct {
	Type    EventType     `json:"type"`
	Content string        `json:"content,omitempty"`
	Action  *graph.Change `json:"action,omitempty"`
	Graph   *graph.Data   `json:"graph_data,omitempty"`
	// Error is set on the apology token emitted when the turn failed.
	Error string `json:"error,omitempty"`
}

// IsFinalSnapshot reports whether e is the closing graph_update of a turn.
func (e Event) IsFinalSnapshot() bool {
	return e.Type == EventGraphUpdate && e.Action == nil && e.Graph != nil
}
