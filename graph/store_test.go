package graph_test

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/taskmesh/graph"
	"github.com/hupe1980/taskmesh/internal/testutil"
)

func ptr[T any](v T) *T { return &v }

func TestCreate(t *testing.T) {
	d := testutil.NewGraphBuilder().Node("root", "Root").Build()
	s := graph.NewStore(&d)

	change, err := s.Create(graph.CreateRequest{ID: "n1", Name: "Child", Description: "d", ParentID: "root"})
	require.NoError(t, err)
	assert.Equal(t, &graph.Change{Action: graph.ActionCreate, ID: "n1", Name: "Child"}, change)

	n, ok := d.Node("n1")
	require.True(t, ok)
	assert.Equal(t, graph.StatusNotStarted, n.Status)
	assert.Equal(t, []graph.Link{{Source: "root", Target: "n1"}}, d.Links)
}

func TestCreateWithUnresolvableParent(t *testing.T) {
	var d graph.Data
	s := graph.NewStore(&d)

	change, err := s.Create(graph.CreateRequest{ID: "x", Name: "X", Description: "d", ParentID: "missing"})
	require.NoError(t, err)
	require.NotNil(t, change)

	assert.True(t, d.Has("x"))
	assert.Empty(t, d.Links)
}

func TestCreateDuplicateID(t *testing.T) {
	d := testutil.NewGraphBuilder().Node("a", "A").Build()
	s := graph.NewStore(&d)

	change, err := s.Create(graph.CreateRequest{ID: "a", Name: "again"})
	assert.Nil(t, change)
	assert.ErrorIs(t, err, graph.ErrDuplicateID)
	assert.Len(t, d.Nodes, 1)
}

func TestEdit(t *testing.T) {
	t.Run("missing id", func(t *testing.T) {
		var d graph.Data
		change, err := graph.NewStore(&d).Edit(graph.EditRequest{ID: "nope", Name: ptr("x")})
		assert.Nil(t, change)
		assert.ErrorIs(t, err, graph.ErrNodeNotFound)
	})

	t.Run("empty name keeps old name", func(t *testing.T) {
		d := testutil.NewGraphBuilder().Node("a", "A").Build()
		change, err := graph.NewStore(&d).Edit(graph.EditRequest{ID: "a", Name: ptr("")})
		require.NoError(t, err)
		assert.Equal(t, "A", change.Name)
		assert.Equal(t, "A", d.Nodes[0].Name)
	})

	t.Run("empty description clears", func(t *testing.T) {
		d := testutil.NewGraphBuilder().Node("a", "A").Description("a", "old").Build()
		_, err := graph.NewStore(&d).Edit(graph.EditRequest{ID: "a", Description: ptr("")})
		require.NoError(t, err)
		assert.Equal(t, "", d.Nodes[0].Description)
	})

	t.Run("absent description untouched", func(t *testing.T) {
		d := testutil.NewGraphBuilder().Node("a", "A").Description("a", "old").Build()
		_, err := graph.NewStore(&d).Edit(graph.EditRequest{ID: "a", Name: ptr("B")})
		require.NoError(t, err)
		assert.Equal(t, "old", d.Nodes[0].Description)
		assert.Equal(t, "B", d.Nodes[0].Name)
	})

	t.Run("keep parent", func(t *testing.T) {
		d := testutil.NewGraphBuilder().Node("a", "A").Child("a", "b", "B").Build()
		_, err := graph.NewStore(&d).Edit(graph.EditRequest{ID: "b", Name: ptr("B2")})
		require.NoError(t, err)
		assert.Equal(t, []graph.Link{{Source: "a", Target: "b"}}, d.Links)
	})

	t.Run("clear parent", func(t *testing.T) {
		d := testutil.NewGraphBuilder().Node("a", "A").Child("a", "b", "B").Build()
		_, err := graph.NewStore(&d).Edit(graph.EditRequest{ID: "b", Parent: graph.ClearParent()})
		require.NoError(t, err)
		assert.Empty(t, d.Links)
	})

	t.Run("move parent replaces link", func(t *testing.T) {
		d := testutil.NewGraphBuilder().Node("a", "A").Node("c", "C").Child("a", "b", "B").Build()
		_, err := graph.NewStore(&d).Edit(graph.EditRequest{ID: "b", Parent: graph.SetParent("c")})
		require.NoError(t, err)
		assert.Equal(t, []graph.Link{{Source: "c", Target: "b"}}, d.Links)
	})

	t.Run("unresolvable parent leaves node parentless", func(t *testing.T) {
		d := testutil.NewGraphBuilder().Node("a", "A").Child("a", "b", "B").Build()
		_, err := graph.NewStore(&d).Edit(graph.EditRequest{ID: "b", Parent: graph.SetParent("ghost")})
		require.NoError(t, err)
		assert.Empty(t, d.Links)
	})

	t.Run("parent under own descendant is refused", func(t *testing.T) {
		d := testutil.NewGraphBuilder().Node("a", "A").Child("a", "b", "B").Build()
		_, err := graph.NewStore(&d).Edit(graph.EditRequest{ID: "a", Parent: graph.SetParent("b")})
		require.NoError(t, err)
		assert.Equal(t, []graph.Link{{Source: "a", Target: "b"}}, d.Links)
		assert.Equal(t, []string{"a", "b"}, d.Descendants("a"))
	})

	t.Run("empty SetParent clears", func(t *testing.T) {
		assert.True(t, graph.SetParent("").IsClear())
		assert.True(t, graph.KeepParent.IsKeep())
	})
}

func TestUpdateStatus(t *testing.T) {
	d := testutil.NewGraphBuilder().Node("a", "A").Build()
	s := graph.NewStore(&d)

	change, err := s.UpdateStatus("a", graph.StatusInProgress)
	require.NoError(t, err)
	assert.Equal(t, graph.StatusNotStarted, change.OldStatus)
	assert.Equal(t, graph.StatusInProgress, change.NewStatus)

	_, err = s.UpdateStatus("a", graph.StatusCompleted)
	require.NoError(t, err)

	change, err = s.UpdateStatus("a", "bogus")
	assert.Nil(t, change)
	assert.ErrorIs(t, err, graph.ErrInvalidStatus)
	assert.Equal(t, graph.StatusCompleted, d.Nodes[0].Status)

	change, err = s.UpdateStatus("missing", graph.StatusCompleted)
	assert.Nil(t, change)
	assert.ErrorIs(t, err, graph.ErrNodeNotFound)
}

func TestDeleteReparents(t *testing.T) {
	d := testutil.NewGraphBuilder().Node("A", "A").Child("A", "B", "B").Child("B", "C", "C").Build()
	s := graph.NewStore(&d)

	change, err := s.Delete("B")
	require.NoError(t, err)

	assert.Equal(t, []string{"B"}, change.DeletedNodes)
	require.NotNil(t, change.ReconnectedChildren)
	assert.Equal(t, 1, *change.ReconnectedChildren)
	assert.Nil(t, change.CascadeDeleted)

	assert.False(t, d.Has("B"))
	assert.Equal(t, []graph.Link{{Source: "A", Target: "C"}}, d.Links)
	assert.NoError(t, d.Validate())
}

func TestDeleteCascades(t *testing.T) {
	d := testutil.NewGraphBuilder().
		Node("A", "A").Child("A", "B", "B").Child("A", "C", "C").
		Node("X", "X").Child("X", "Y", "Y").
		Build()
	s := graph.NewStore(&d)

	change, err := s.Delete("A")
	require.NoError(t, err)

	require.NotNil(t, change.CascadeDeleted)
	assert.Equal(t, 3, *change.CascadeDeleted)
	assert.Nil(t, change.ReconnectedChildren)
	assert.ElementsMatch(t, []string{"A", "B", "C"}, change.DeletedNodes)

	assert.Equal(t, []graph.Link{{Source: "X", Target: "Y"}}, d.Links)
	assert.Len(t, d.Nodes, 2)
}

func TestDeleteMissingIsNoOp(t *testing.T) {
	d := testutil.NewGraphBuilder().Node("A", "A").Build()
	before := d.Clone()

	change, err := graph.NewStore(&d).Delete("ghost")
	assert.Nil(t, change)
	assert.ErrorIs(t, err, graph.ErrNodeNotFound)
	assert.Equal(t, before, d)
}

func TestSingleParentInvariantUnderMutations(t *testing.T) {
	var d graph.Data
	s := graph.NewStore(&d)

	for i := 0; i < 6; i++ {
		parent := ""
		if i > 0 {
			parent = fmt.Sprintf("n%d", i-1)
		}
		_, err := s.Create(graph.CreateRequest{ID: fmt.Sprintf("n%d", i), Name: "t", ParentID: parent})
		require.NoError(t, err)
	}

	moves := []struct{ id, parent string }{
		{"n5", "n0"}, {"n4", "n0"}, {"n3", "n5"}, {"n2", "n4"}, {"n5", "n2"}, {"n1", "ghost"}, {"n0", "n3"},
	}
	for _, m := range moves {
		_, err := s.Edit(graph.EditRequest{ID: m.id, Parent: graph.SetParent(m.parent)})
		require.NoError(t, err)

		for id, n := range testutil.IncomingCounts(d) {
			assert.LessOrEqual(t, n, 1, "node %s", id)
		}
		assert.NoError(t, d.Validate())
	}
}

func TestSnapshotDoesNotAlias(t *testing.T) {
	d := testutil.NewGraphBuilder().Node("a", "A").Build()
	s := graph.NewStore(&d)

	snap := s.Snapshot()
	_, err := s.UpdateStatus("a", graph.StatusCompleted)
	require.NoError(t, err)

	assert.Equal(t, graph.StatusNotStarted, snap.Nodes[0].Status)
}
