package anthropic

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/taskmesh/core"
	"github.com/hupe1980/taskmesh/model"
)

func TestBuildMessagesPlacesToolResultsInUserTurn(t *testing.T) {
	msgs := buildMessages([]core.Content{
		core.NewTextContent(core.RoleSystem, "ignored here"),
		core.NewTextContent(core.RoleUser, "plan a trip"),
		{Role: core.RoleAssistant, Parts: []core.Part{
			core.FunctionCallPart{FunctionCall: core.FunctionCall{ID: "t1", Name: "finish", Arguments: "{}"}},
		}},
		{Role: core.RoleTool, Parts: []core.Part{
			core.FunctionResponsePart{FunctionResponse: core.FunctionResponse{ID: "t1", Name: "finish", Response: "Finish"}},
		}},
	})

	require.Len(t, msgs, 3)
	assert.Equal(t, "user", string(msgs[0].Role))
	assert.Equal(t, "assistant", string(msgs[1].Role))
	assert.Equal(t, "user", string(msgs[2].Role))
	require.Len(t, msgs[2].Content, 1)
	assert.NotNil(t, msgs[2].Content[0].OfToolResult)
}

func TestBuildTools(t *testing.T) {
	tools := buildTools([]model.ToolDefinition{{
		Type: "function",
		Function: model.FunctionDefinition{
			Name:        "delete_task_node",
			Description: "Delete a task",
			Parameters: map[string]any{
				"type":       "object",
				"properties": map[string]any{"node_id": map[string]any{"type": "string"}},
				"required":   []string{"node_id"},
			},
		},
	}})

	require.Len(t, tools, 1)
	require.NotNil(t, tools[0].OfTool)
	assert.Equal(t, "delete_task_node", tools[0].OfTool.Name)
	assert.Equal(t, []string{"node_id"}, tools[0].OfTool.InputSchema.Required)
	assert.Equal(t, "Delete a task", tools[0].OfTool.Description.Value)
}

func TestSystemBlocks(t *testing.T) {
	blocks := systemBlocks(model.Request{
		Instructions: "rules",
		Contents:     []core.Content{core.NewTextContent(core.RoleSystem, "more")},
	})
	require.Len(t, blocks, 2)
	assert.Equal(t, "rules", blocks[0].Text)
}
