package openai

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/taskmesh/core"
	"github.com/hupe1980/taskmesh/model"
)

func TestBuildMessages(t *testing.T) {
	req := model.Request{
		Instructions: "be helpful",
		Contents: []core.Content{
			core.NewTextContent(core.RoleUser, "plan a trip"),
			{Role: core.RoleAssistant, Parts: []core.Part{
				core.TextPart{Text: "creating root"},
				core.FunctionCallPart{FunctionCall: core.FunctionCall{ID: "c1", Name: "create_task_node"}},
			}},
			{Role: core.RoleTool, Parts: []core.Part{
				core.FunctionResponsePart{FunctionResponse: core.FunctionResponse{ID: "c1", Name: "create_task_node", Response: "ok"}},
			}},
			core.NewTextContent(core.RoleAssistant, "done"),
		},
	}

	msgs := buildMessages(req)
	require.Len(t, msgs, 5)

	assert.NotNil(t, msgs[0].OfSystem)
	assert.NotNil(t, msgs[1].OfUser)

	require.NotNil(t, msgs[2].OfAssistant)
	require.Len(t, msgs[2].OfAssistant.ToolCalls, 1)
	assert.Equal(t, "c1", msgs[2].OfAssistant.ToolCalls[0].ID)
	assert.Equal(t, "{}", msgs[2].OfAssistant.ToolCalls[0].Function.Arguments)

	require.NotNil(t, msgs[3].OfTool)
	assert.Equal(t, "c1", msgs[3].OfTool.ToolCallID)

	assert.NotNil(t, msgs[4].OfAssistant)
}

func TestBuildParamsDisablesParallelToolCalls(t *testing.T) {
	m := NewModel(func(o *Options) {
		o.Model = "gpt-test"
		o.APIKey = "sk-test"
	})

	params := m.buildParams(model.Request{Tools: []model.ToolDefinition{{
		Type:     "function",
		Function: model.FunctionDefinition{Name: "finish", Parameters: map[string]any{"type": "object"}},
	}}})

	require.Len(t, params.Tools, 1)
	assert.Equal(t, "finish", params.Tools[0].Function.Name)
	assert.True(t, params.ParallelToolCalls.Valid())
	assert.False(t, params.ParallelToolCalls.Value)
	assert.Equal(t, model.Info{Name: "gpt-test", Provider: "openai", SupportsTools: true}, m.Info())
}
