package tool

import (
	"github.com/hupe1980/taskmesh/core"
	"github.com/hupe1980/taskmesh/graph"
	"github.com/hupe1980/taskmesh/internal/util"
)

// Names of the tools exposed to the reasoning model.
const (
	CreateTaskNodeTool   = "create_task_node"
	EditTaskNodeTool     = "edit_task_node"
	UpdateTaskStatusTool = "update_task_status"
	DeleteTaskNodeTool   = "delete_task_node"
	FinishTool           = "finish"
)

// FinishResult is the observation returned by the finish tool.
const FinishResult = "Finish"

// GraphTool is a FunctionTool whose result is a payload describing one graph
// mutation. The registry resolves that payload and applies it to the store.
type GraphTool struct {
	*FunctionTool
	op Operation
}

// NewGraphTool binds fn to the mutation kind op.
func NewGraphTool(op Operation, name, description string, parameters map[string]any,
	fn func(toolCtx *core.ToolContext, args map[string]any) (any, error),
) *GraphTool {
	return &GraphTool{FunctionTool: NewFunctionTool(name, description, parameters, fn), op: op}
}

// NewGraphToolFromStruct is NewGraphTool with the schema derived from an
// argument struct.
func NewGraphToolFromStruct(op Operation, name, description string, structType any,
	fn func(toolCtx *core.ToolContext, args map[string]any) (any, error),
) *GraphTool {
	return &GraphTool{FunctionTool: NewFunctionToolFromStruct(name, description, structType, fn), op: op}
}

// Operation returns the mutation kind the tool's results describe.
func (t *GraphTool) Operation() Operation { return t.op }

// GraphToolsOptions configures NewGraphTools.
type GraphToolsOptions struct {
	// IDGenerator returns fresh node ids. Defaults to "node_<uuid>".
	IDGenerator func() string
}

type createArgs struct {
	TaskName        string  `json:"task_name" description:"Short name of the task"`
	TaskDescription string  `json:"task_description" description:"What needs to be done"`
	ParentID        *string `json:"parent_id" description:"Id of the parent task; omit for a top level task"`
}

type editArgs struct {
	NodeID          string  `json:"node_id" description:"Id of the task to edit"`
	TaskName        *string `json:"task_name" description:"New name; omit to keep the current one"`
	TaskDescription *string `json:"task_description" description:"New description; omit to keep the current one"`
	ParentID        *string `json:"parent_id" description:"New parent id, or \"null\" to make the task top level; omit to keep the parent"`
}

type statusArgs struct {
	NodeID string `json:"node_id" description:"Id of the task"`
	Status string `json:"status" description:"New status"`
}

type deleteArgs struct {
	NodeID string `json:"node_id" description:"Id of the task to delete"`
}

// NewGraphTools returns the fixed tool set in a stable order: create, edit,
// update status, delete, finish.
func NewGraphTools(optFns ...func(o *GraphToolsOptions)) []Tool {
	opts := GraphToolsOptions{
		IDGenerator: func() string { return util.NewID("node") },
	}
	for _, fn := range optFns {
		fn(&opts)
	}

	create := NewGraphToolFromStruct(OpCreate, CreateTaskNodeTool,
		"Create a new task. Nest it under parent_id to break a larger task into subtasks.",
		createArgs{},
		func(_ *core.ToolContext, args map[string]any) (any, error) {
			payload := map[string]any{
				"id":          opts.IDGenerator(),
				"name":        args["task_name"],
				"description": args["task_description"],
			}
			if v, ok := args["parent_id"]; ok {
				payload["parent_id"] = v
			}
			return payload, nil
		})

	edit := NewGraphToolFromStruct(OpEdit, EditTaskNodeTool,
		"Edit the name, description or parent of an existing task.",
		editArgs{},
		func(_ *core.ToolContext, args map[string]any) (any, error) {
			payload := map[string]any{"id": args["node_id"]}
			if v, ok := args["task_name"]; ok {
				payload["name"] = v
			}
			if v, ok := args["task_description"]; ok {
				payload["description"] = v
			}
			if v, ok := args["parent_id"]; ok {
				payload["parent_id"] = v
			}
			return payload, nil
		})

	status := NewGraphTool(OpUpdateStatus, UpdateTaskStatusTool,
		"Set the status of a task to notStarted, inProgress or completed.",
		statusSchema(),
		func(_ *core.ToolContext, args map[string]any) (any, error) {
			return map[string]any{"id": args["node_id"], "status": args["status"]}, nil
		})

	del := NewGraphToolFromStruct(OpDelete, DeleteTaskNodeTool,
		"Delete a task. Subtasks of a nested task move up to its parent; deleting a top level task removes its whole subtree.",
		deleteArgs{},
		func(_ *core.ToolContext, args map[string]any) (any, error) {
			return map[string]any{"id": args["node_id"]}, nil
		})

	finish := NewFunctionToolFromStruct(FinishTool,
		"Call when the task graph reflects the request and no further changes are needed.",
		struct{}{},
		func(_ *core.ToolContext, _ map[string]any) (any, error) {
			return FinishResult, nil
		})

	return []Tool{create, edit, status, del, finish}
}

func statusSchema() map[string]any {
	schema := util.CreateSchema(statusArgs{})

	enum := make([]string, len(graph.Statuses))
	for i, s := range graph.Statuses {
		enum[i] = string(s)
	}
	schema["properties"].(map[string]any)["status"].(map[string]any)["enum"] = enum

	return schema
}
