package testutil

import (
	"github.com/hupe1980/taskmesh/graph"
)

// GraphBuilder helps construct task graphs with fluent chaining for tests.
// Example:
//
//	g := NewGraphBuilder().Node("a", "A").Child("a", "b", "B").Build()
type GraphBuilder struct {
	data graph.Data
}

// NewGraphBuilder creates an empty builder.
func NewGraphBuilder() *GraphBuilder {
	return &GraphBuilder{data: graph.Data{Nodes: []graph.Node{}, Links: []graph.Link{}}}
}

// Node appends a root node in StatusNotStarted (chainable).
func (b *GraphBuilder) Node(id, name string) *GraphBuilder {
	b.data.Nodes = append(b.data.Nodes, graph.Node{ID: id, Name: name, Status: graph.StatusNotStarted})
	return b
}

// Child appends a node and links it under parent (chainable). The parent
// does not need to exist, which lets tests build inconsistent graphs.
func (b *GraphBuilder) Child(parent, id, name string) *GraphBuilder {
	b.Node(id, name)
	b.data.Links = append(b.data.Links, graph.Link{Source: parent, Target: id})
	return b
}

// Status overrides the status of an already added node (chainable).
func (b *GraphBuilder) Status(id string, status graph.Status) *GraphBuilder {
	for i := range b.data.Nodes {
		if b.data.Nodes[i].ID == id {
			b.data.Nodes[i].Status = status
		}
	}
	return b
}

// Description sets the description of an already added node (chainable).
func (b *GraphBuilder) Description(id, description string) *GraphBuilder {
	for i := range b.data.Nodes {
		if b.data.Nodes[i].ID == id {
			b.data.Nodes[i].Description = description
		}
	}
	return b
}

// Build returns a deep copy of the graph built so far.
func (b *GraphBuilder) Build() graph.Data {
	return b.data.Clone()
}

// IncomingCounts maps every link target to the number of links pointing at it.
func IncomingCounts(d graph.Data) map[string]int {
	counts := map[string]int{}
	for _, l := range d.Links {
		counts[l.Target]++
	}
	return counts
}
