// Package reasoner defines the pluggable reasoning loop that drives a turn:
// given the chat history and the current task graph it emits thoughts, tool
// calls and a final answer, one step at a time, through a Handler.
package reasoner

import (
	"context"

	"github.com/hupe1980/taskmesh/core"
	"github.com/hupe1980/taskmesh/graph"
	"github.com/hupe1980/taskmesh/model"
)

// DefaultMaxIters bounds the number of tool steps per turn.
const DefaultMaxIters = 5

// StepKind tags a Step.
type StepKind int

const (
	StepThought StepKind = iota
	StepToolCall
	StepFinalAnswer
)

func (k StepKind) String() string {
	switch k {
	case StepThought:
		return "thought"
	case StepToolCall:
		return "tool_call"
	case StepFinalAnswer:
		return "final_answer"
	}
	return "unknown"
}

// Step is one unit of reasoning output. Text is set for thoughts and final
// answers, Call for tool calls.
type Step struct {
	Kind StepKind
	Text string
	Call *core.FunctionCall
}

// Thought builds a thought step.
func Thought(text string) Step { return Step{Kind: StepThought, Text: text} }

// Call builds a tool call step.
func Call(name, arguments string) Step {
	return Step{Kind: StepToolCall, Call: &core.FunctionCall{Name: name, Arguments: arguments}}
}

// FinalAnswer builds a final answer step.
func FinalAnswer(text string) Step { return Step{Kind: StepFinalAnswer, Text: text} }

// Observation is the handler's answer to a tool call step. It is empty for
// other step kinds.
type Observation struct {
	Content  string
	Err      error
	Finished bool
}

// Text returns what the model should see for this observation.
func (o Observation) Text() string {
	if o.Err != nil && o.Content == "" {
		return "Error: " + o.Err.Error()
	}
	return o.Content
}

// Handler receives steps in issue order and executes tool calls.
type Handler func(ctx context.Context, step Step) Observation

// Input is everything a reasoner sees for one turn.
type Input struct {
	History []core.Message
	// State returns the current graph. It must only be called from the
	// goroutine running Reason.
	State func() graph.Data
	Tools []model.ToolDefinition
}

// Reasoner runs one turn. A returned error is a turn level failure.
type Reasoner interface {
	Reason(ctx context.Context, in Input, handle Handler) error
}

// Func adapts a plain function to Reasoner.
type Func func(ctx context.Context, in Input, handle Handler) error

// Reason implements Reasoner.
func (f Func) Reason(ctx context.Context, in Input, handle Handler) error { return f(ctx, in, handle) }
