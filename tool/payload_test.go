package tool

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/taskmesh/graph"
	"github.com/hupe1980/taskmesh/internal/testutil"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name    string
		payload any
		stage   Stage
		ok      bool
		fields  map[string]any
	}{
		{
			name:    "structured map",
			payload: map[string]any{"id": "a"},
			stage:   StageStructured,
			ok:      true,
			fields:  map[string]any{"id": "a"},
		},
		{
			name:    "structured struct",
			payload: struct{ ID string `json:"id"` }{ID: "a"},
			stage:   StageStructured,
			ok:      true,
			fields:  map[string]any{"id": "a"},
		},
		{
			name:    "json string",
			payload: `{"id": "a", "n": 2}`,
			stage:   StageStrictDecode,
			ok:      true,
			fields:  map[string]any{"id": "a", "n": 2.0},
		},
		{
			name:    "python literal",
			payload: `{'id': 'a', 'parent_id': None, 'done': True}`,
			stage:   StageLiteralDecode,
			ok:      true,
			fields:  map[string]any{"id": "a", "parent_id": nil, "done": true},
		},
		{
			name:    "failed invocation",
			payload: "Execution Error: node not found",
			stage:   StageFailedInvocation,
		},
		{
			name:    "json array",
			payload: `["a"]`,
			stage:   StageShape,
		},
		{
			name:    "unparseable",
			payload: `{'id': 'a'`,
			stage:   StageLiteralDecode,
		},
		{
			name:    "plain text",
			payload: "all done",
			stage:   StageLiteralDecode,
		},
		{
			name:  "nil",
			stage: StageShape,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Parse(tt.payload)
			assert.Equal(t, tt.ok, got.OK())
			if tt.ok {
				assert.Equal(t, tt.stage, got.Stage)
				assert.Equal(t, tt.fields, got.Fields)
				return
			}
			require.NotNil(t, got.Err)
			assert.Equal(t, tt.stage, got.Err.Stage)
			assert.Nil(t, got.Fields)
		})
	}
}

func TestParseArgumentsIgnoresFailureMarkers(t *testing.T) {
	got := ParseArguments(`{"task_name": "Fix error handling"}`)
	require.True(t, got.OK())
	assert.Equal(t, "Fix error handling", got.Fields["task_name"])

	empty := ParseArguments("  ")
	require.True(t, empty.OK())
	assert.Empty(t, empty.Fields)
}

func TestApplyRequiredKeys(t *testing.T) {
	var d graph.Data
	store := graph.NewStore(&d)

	_, err := Apply(store, OpCreate, map[string]any{"id": "a", "name": "A"})
	var mp *MalformedPayload
	require.ErrorAs(t, err, &mp)
	assert.Equal(t, StageRequiredKeys, mp.Stage)
	assert.Contains(t, mp.Reason, "description")

	_, err = Apply(store, OpDelete, map[string]any{"name": "A"})
	require.ErrorAs(t, err, &mp)
	assert.Equal(t, StageRequiredKeys, mp.Stage)

	_, err = Apply(store, OpDelete, map[string]any{"id": 7.0})
	require.ErrorAs(t, err, &mp)
	assert.Equal(t, StageShape, mp.Stage)

	assert.Empty(t, d.Nodes)
}

func TestApplyCreate(t *testing.T) {
	d := testutil.NewGraphBuilder().Node("root", "Root").Build()
	store := graph.NewStore(&d)

	change, err := Apply(store, OpCreate, map[string]any{"id": "a", "name": "A", "description": nil, "parent_id": "root"})
	require.NoError(t, err)
	assert.Equal(t, graph.ActionCreate, change.Action)

	n, _ := d.Node("a")
	assert.Equal(t, "", n.Description)
	assert.Equal(t, []graph.Link{{Source: "root", Target: "a"}}, d.Links)

	_, err = Apply(store, OpCreate, map[string]any{"id": "b", "name": "B", "description": "d", "parent_id": "null"})
	require.NoError(t, err)
	assert.Len(t, d.Links, 1)
}

func TestApplyCreateRejectsBlankName(t *testing.T) {
	for _, name := range []any{nil, "", "  "} {
		var d graph.Data
		_, err := Apply(graph.NewStore(&d), OpCreate, map[string]any{"id": "a", "name": name, "description": "x"})

		var mp *MalformedPayload
		require.ErrorAs(t, err, &mp, "name %q", name)
		assert.Equal(t, StageShape, mp.Stage)
		assert.Empty(t, d.Nodes)
	}
}

func TestApplyEditParentSentinels(t *testing.T) {
	build := func() graph.Data {
		return testutil.NewGraphBuilder().Node("a", "A").Node("c", "C").Child("a", "b", "B").Description("b", "old").Build()
	}

	tests := []struct {
		name   string
		fields map[string]any
		links  []graph.Link
		desc   string
	}{
		{"absent keeps", map[string]any{"id": "b"}, []graph.Link{{Source: "a", Target: "b"}}, "old"},
		{"json null clears", map[string]any{"id": "b", "parent_id": nil}, []graph.Link{}, "old"},
		{"string null clears", map[string]any{"id": "b", "parent_id": "null"}, []graph.Link{}, "old"},
		{"empty clears", map[string]any{"id": "b", "parent_id": ""}, []graph.Link{}, "old"},
		{"id moves", map[string]any{"id": "b", "parent_id": "c"}, []graph.Link{{Source: "c", Target: "b"}}, "old"},
		{"null description ignored", map[string]any{"id": "b", "description": nil}, []graph.Link{{Source: "a", Target: "b"}}, "old"},
		{"empty description clears", map[string]any{"id": "b", "description": ""}, []graph.Link{{Source: "a", Target: "b"}}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := build()
			_, err := Apply(graph.NewStore(&d), OpEdit, tt.fields)
			require.NoError(t, err)
			assert.Equal(t, tt.links, d.Links)
			n, _ := d.Node("b")
			assert.Equal(t, tt.desc, n.Description)
		})
	}
}

func TestApplyStatusAndDelete(t *testing.T) {
	d := testutil.NewGraphBuilder().Node("a", "A").Build()
	store := graph.NewStore(&d)

	change, err := Apply(store, OpUpdateStatus, map[string]any{"id": "a", "status": "completed"})
	require.NoError(t, err)
	assert.Equal(t, graph.StatusCompleted, change.NewStatus)

	_, err = Apply(store, OpUpdateStatus, map[string]any{"id": "a", "status": "bogus"})
	assert.ErrorIs(t, err, graph.ErrInvalidStatus)

	_, err = Apply(store, OpDelete, map[string]any{"id": "ghost"})
	assert.ErrorIs(t, err, graph.ErrNodeNotFound)

	change, err = Apply(store, OpDelete, map[string]any{"id": "a"})
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, change.DeletedNodes)
	assert.Empty(t, d.Nodes)
}
