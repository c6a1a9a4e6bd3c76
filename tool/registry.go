package tool

import (
	"encoding/json"
	"errors"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/hupe1980/taskmesh/core"
	"github.com/hupe1980/taskmesh/graph"
	"github.com/hupe1980/taskmesh/logging"
	"github.com/hupe1980/taskmesh/metrics"
	"github.com/hupe1980/taskmesh/model"
)

// Result is the outcome of executing one function call.
type Result struct {
	// Response is the observation handed back to the model.
	Response core.FunctionResponse
	// Change is set when the call mutated the graph.
	Change *graph.Change
	// Finished is set when the finish tool was called.
	Finished bool
	// Err is the failure behind a no-op call, if any.
	Err error
}

// RegistryOptions configures a Registry.
type RegistryOptions struct {
	Logger logging.Logger
}

// Registry resolves function calls to tools and executes them one at a time.
type Registry struct {
	tools  map[string]Tool
	order  []string
	logger logging.Logger
}

// NewRegistry creates a registry holding tools. Later tools with a duplicate
// name are ignored and logged.
func NewRegistry(tools []Tool, optFns ...func(o *RegistryOptions)) *Registry {
	opts := RegistryOptions{Logger: logging.NoOpLogger{}}
	for _, fn := range optFns {
		fn(&opts)
	}

	r := &Registry{tools: map[string]Tool{}, logger: logging.OrNoOp(opts.Logger)}
	for _, t := range tools {
		if err := r.Register(t); err != nil {
			r.logger.Warn("tool.registry.duplicate", "tool", t.Name())
		}
	}

	return r
}

// NewGraphRegistry creates a registry with the task graph tool set.
func NewGraphRegistry(optFns ...func(o *RegistryOptions)) *Registry {
	return NewRegistry(NewGraphTools(), optFns...)
}

// Register adds t unless a tool with the same name exists.
func (r *Registry) Register(t Tool) error {
	if _, ok := r.tools[t.Name()]; ok {
		return fmt.Errorf("tool %q already registered", t.Name())
	}
	r.tools[t.Name()] = t
	r.order = append(r.order, t.Name())
	return nil
}

// Lookup returns the tool registered under name.
func (r *Registry) Lookup(name string) (Tool, bool) {
	t, ok := r.tools[name]
	return t, ok
}

// Definitions returns the model facing declarations in registration order.
func (r *Registry) Definitions() []model.ToolDefinition {
	defs := make([]model.ToolDefinition, 0, len(r.order))
	for _, name := range r.order {
		t := r.tools[name]
		defs = append(defs, model.ToolDefinition{
			Type: "function",
			Function: model.FunctionDefinition{
				Name:        t.Name(),
				Description: t.Description(),
				Parameters:  t.Parameters(),
			},
		})
	}
	return defs
}

// Execute runs call against the tool context's store. It never panics and
// never returns an error: failures become error observations the model can
// react to, and the graph is left untouched. A call arriving after the turn
// context ended is refused.
func (r *Registry) Execute(tc *core.ToolContext, call core.FunctionCall) Result {
	start := time.Now()
	res := r.execute(tc, call)
	logging.LogToolCall(tc.Logger(), call.Name, time.Since(start), res.Err == nil, res.Err)

	if res.Err != nil {
		metrics.RecordToolFailure(call.Name, errorCode(res.Err))
	}
	if res.Change != nil {
		metrics.RecordMutation(string(res.Change.Action))
	}

	return res
}

func (r *Registry) execute(tc *core.ToolContext, call core.FunctionCall) (res Result) {
	res.Response = core.FunctionResponse{ID: call.ID, Name: call.Name}

	fail := func(err error) Result {
		res.Err = err
		res.Response.Error = "Error: " + err.Error()
		return res
	}

	if err := tc.Validate(); err != nil {
		return fail(&ToolError{Tool: call.Name, Message: err.Error(), Code: CodeExecution, Details: err})
	}

	impl, ok := r.tools[call.Name]
	if !ok {
		return fail(NewToolError(call.Name, fmt.Sprintf("unknown tool %q", call.Name), CodeNotFound))
	}

	args := ParseArguments(call.Arguments)
	if !args.OK() {
		return fail(&ToolError{Tool: call.Name, Message: args.Err.Error(), Code: CodeMalformed, Details: args.Err})
	}

	var (
		out any
		err error
	)
	func() {
		defer func() {
			if rec := recover(); rec != nil {
				tc.Logger().Error("tool.call.panic", "tool", call.Name, "recover", rec, "stack", string(debug.Stack()))
				err = NewToolError(call.Name, fmt.Sprintf("panic: %v", rec), CodePanic)
			}
		}()
		out, err = impl.Call(tc, args.Fields)
	}()
	if err != nil {
		return fail(err)
	}

	gt, isGraphTool := impl.(*GraphTool)
	if !isGraphTool {
		if call.Name == FinishTool {
			res.Finished = true
		}
		res.Response.Response = observation(out)
		return res
	}

	parsed := Parse(out)
	if !parsed.OK() {
		tc.Logger().Warn("tool.payload.malformed", "tool", call.Name, "stage", string(parsed.Err.Stage), "reason", parsed.Err.Reason)
		return fail(&ToolError{Tool: call.Name, Message: parsed.Err.Error(), Code: CodeMalformed, Details: parsed.Err})
	}

	change, err := Apply(tc.Store(), gt.Operation(), parsed.Fields)
	if err != nil {
		var mp *MalformedPayload
		if errors.As(err, &mp) {
			tc.Logger().Warn("tool.payload.malformed", "tool", call.Name, "stage", string(mp.Stage), "reason", mp.Reason)
			return fail(&ToolError{Tool: call.Name, Message: mp.Error(), Code: CodeMalformed, Details: mp})
		}
		return fail(&ToolError{Tool: call.Name, Message: err.Error(), Code: CodeRejected, Details: err})
	}

	tc.RecordChange(change)
	res.Change = change
	res.Response.Response = observation(change)

	return res
}

func observation(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case nil:
		return ""
	}
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(b)
}

func errorCode(err error) string {
	var te *ToolError
	if errors.As(err, &te) && te.Code != "" {
		return te.Code
	}
	return CodeExecution
}
