package tool

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/taskmesh/core"
	"github.com/hupe1980/taskmesh/graph"
	"github.com/hupe1980/taskmesh/internal/testutil"
)

func sequentialIDs() func(o *GraphToolsOptions) {
	n := 0
	return func(o *GraphToolsOptions) {
		o.IDGenerator = func() string {
			n++
			return fmt.Sprintf("node_%d", n)
		}
	}
}

func call(name string, args map[string]any) core.FunctionCall {
	b, _ := json.Marshal(args)
	return core.FunctionCall{ID: "call-" + name, Name: name, Arguments: string(b)}
}

func TestRegistryDefinitions(t *testing.T) {
	r := NewGraphRegistry()

	defs := r.Definitions()
	names := make([]string, len(defs))
	for i, d := range defs {
		names[i] = d.Function.Name
	}
	assert.Equal(t, []string{CreateTaskNodeTool, EditTaskNodeTool, UpdateTaskStatusTool, DeleteTaskNodeTool, FinishTool}, names)

	status := defs[2].Function.Parameters["properties"].(map[string]any)["status"].(map[string]any)
	assert.Equal(t, []string{"notStarted", "inProgress", "completed"}, status["enum"])

	assert.Error(t, r.Register(NewGraphTools()[0]))
}

func TestRegistryExecuteCreateAndEdit(t *testing.T) {
	var d graph.Data
	r := NewRegistry(NewGraphTools(sequentialIDs()))
	tc := newToolContext(t, &d)

	res := r.Execute(tc, call(CreateTaskNodeTool, map[string]any{"task_name": "Trip", "task_description": "Plan it"}))
	require.NoError(t, res.Err)
	require.NotNil(t, res.Change)
	assert.Equal(t, "node_1", res.Change.ID)
	assert.Same(t, res.Change, tc.Change())
	assert.JSONEq(t, `{"action":"create","id":"node_1","name":"Trip"}`, res.Response.Response)

	res = r.Execute(tc, call(CreateTaskNodeTool, map[string]any{"task_name": "Book", "task_description": "", "parent_id": "node_1"}))
	require.NoError(t, res.Err)
	assert.Equal(t, []graph.Link{{Source: "node_1", Target: "node_2"}}, d.Links)

	res = r.Execute(tc, call(EditTaskNodeTool, map[string]any{"node_id": "node_2", "parent_id": "null"}))
	require.NoError(t, res.Err)
	assert.Equal(t, graph.ActionEdit, res.Change.Action)
	assert.Empty(t, d.Links)
}

func TestRegistryExecuteFailuresAreNoOps(t *testing.T) {
	d := testutil.NewGraphBuilder().Node("a", "A").Build()
	before := d.Clone()
	r := NewGraphRegistry()

	tests := []struct {
		name string
		call core.FunctionCall
		code string
	}{
		{"unknown tool", core.FunctionCall{Name: "launch"}, CodeNotFound},
		{"bad arguments", core.FunctionCall{Name: DeleteTaskNodeTool, Arguments: "{not json"}, CodeMalformed},
		{"missing argument", call(DeleteTaskNodeTool, map[string]any{}), CodeValidation},
		{"invalid status", call(UpdateTaskStatusTool, map[string]any{"node_id": "a", "status": "bogus"}), CodeValidation},
		{"missing node", call(DeleteTaskNodeTool, map[string]any{"node_id": "ghost"}), CodeRejected},
		{"null task name", core.FunctionCall{Name: CreateTaskNodeTool, Arguments: `{"task_name":null,"task_description":"x"}`}, CodeMalformed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tc := newToolContext(t, &d)
			res := r.Execute(tc, tt.call)

			var te *ToolError
			require.ErrorAs(t, res.Err, &te)
			assert.Equal(t, tt.code, te.Code)
			assert.Nil(t, res.Change)
			assert.Nil(t, tc.Change())
			assert.Contains(t, res.Response.Error, "Error:")
			assert.Equal(t, before, d)
		})
	}
}

func TestRegistryExecuteRefusesInvalidContext(t *testing.T) {
	var d graph.Data
	ended, cancel := context.WithCancel(context.Background())
	cancel()

	tests := []struct {
		name string
		tc   *core.ToolContext
	}{
		{"no store", core.NewToolContext(context.Background(), "fc-1", nil, nil)},
		{"turn ended", core.NewToolContext(ended, "fc-1", graph.NewStore(&d), nil)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := NewGraphRegistry().Execute(tt.tc, call(CreateTaskNodeTool, map[string]any{"task_name": "A", "task_description": ""}))

			var te *ToolError
			require.ErrorAs(t, res.Err, &te)
			assert.Equal(t, CodeExecution, te.Code)
			assert.ErrorIs(t, res.Err, core.ErrInvalidToolContext)
			assert.Nil(t, res.Change)
			assert.Empty(t, d.Nodes)
		})
	}
}

func TestRegistryExecuteMissingNodeWrapsStoreError(t *testing.T) {
	var d graph.Data
	res := NewGraphRegistry().Execute(newToolContext(t, &d), call(EditTaskNodeTool, map[string]any{"node_id": "ghost", "task_name": "x"}))
	assert.ErrorIs(t, res.Err, graph.ErrNodeNotFound)
}

func TestRegistryExecuteFinish(t *testing.T) {
	var d graph.Data
	res := NewGraphRegistry().Execute(newToolContext(t, &d), core.FunctionCall{Name: FinishTool})
	require.NoError(t, res.Err)
	assert.True(t, res.Finished)
	assert.Equal(t, FinishResult, res.Response.Response)
}

func TestRegistryExecuteStringPayloads(t *testing.T) {
	var d graph.Data
	params := map[string]any{"type": "object", "properties": map[string]any{}}

	literal := NewGraphTool(OpCreate, "literal_create", "", params, func(_ *core.ToolContext, _ map[string]any) (any, error) {
		return "{'id': 'lit', 'name': 'Literal', 'description': 'from text', 'parent_id': None}", nil
	})
	failing := NewGraphTool(OpCreate, "failing_create", "", params, func(_ *core.ToolContext, _ map[string]any) (any, error) {
		return "Execution error: upstream unavailable", nil
	})
	panicking := NewGraphTool(OpDelete, "panicking", "", params, func(_ *core.ToolContext, _ map[string]any) (any, error) {
		panic("kaboom")
	})
	r := NewRegistry([]Tool{literal, failing, panicking})

	res := r.Execute(newToolContext(t, &d), core.FunctionCall{Name: "literal_create"})
	require.NoError(t, res.Err)
	assert.True(t, d.Has("lit"))

	res = r.Execute(newToolContext(t, &d), core.FunctionCall{Name: "failing_create"})
	var mp *MalformedPayload
	require.ErrorAs(t, res.Err, &mp)
	assert.Equal(t, StageFailedInvocation, mp.Stage)

	res = r.Execute(newToolContext(t, &d), core.FunctionCall{Name: "panicking"})
	var te *ToolError
	require.ErrorAs(t, res.Err, &te)
	assert.Equal(t, CodePanic, te.Code)

	assert.Len(t, d.Nodes, 1)
}
