package graph

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Status is the progress state of a task node.
type Status string

const (
	StatusNotStarted Status = "notStarted"
	StatusInProgress Status = "inProgress"
	StatusCompleted  Status = "completed"
)

// Statuses lists every accepted status value in lifecycle order.
var Statuses = []Status{StatusNotStarted, StatusInProgress, StatusCompleted}

// Valid reports whether s is one of the accepted status values.
func (s Status) Valid() bool {
	switch s {
	case StatusNotStarted, StatusInProgress, StatusCompleted:
		return true
	}
	return false
}

// Node is a single task.
type Node struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Status      Status `json:"status"`
}

// UnmarshalJSON coerces a null description to the empty string.
func (n *Node) UnmarshalJSON(b []byte) error {
	var raw struct {
		ID          string  `json:"id"`
		Name        string  `json:"name"`
		Description *string `json:"description"`
		Status      Status  `json:"status"`
	}
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}

	n.ID = raw.ID
	n.Name = raw.Name
	n.Description = ""
	if raw.Description != nil {
		n.Description = *raw.Description
	}
	n.Status = raw.Status

	return nil
}

// Link is a directed edge meaning Source is the parent of Target.
type Link struct {
	Source string `json:"source"`
	Target string `json:"target"`
}

// UnmarshalJSON accepts either plain ids or node objects for both endpoints;
// force-directed graph clients replace ids with the node objects in place.
func (l *Link) UnmarshalJSON(b []byte) error {
	var raw struct {
		Source json.RawMessage `json:"source"`
		Target json.RawMessage `json:"target"`
	}
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}

	var err error
	if l.Source, err = endpointID(raw.Source); err != nil {
		return fmt.Errorf("link source: %w", err)
	}
	if l.Target, err = endpointID(raw.Target); err != nil {
		return fmt.Errorf("link target: %w", err)
	}

	return nil
}

func endpointID(raw json.RawMessage) (string, error) {
	if len(raw) == 0 {
		return "", errors.New("missing endpoint")
	}

	var id string
	if err := json.Unmarshal(raw, &id); err == nil {
		return id, nil
	}

	var obj struct {
		ID *string `json:"id"`
	}
	if err := json.Unmarshal(raw, &obj); err != nil || obj.ID == nil {
		return "", fmt.Errorf("endpoint must be an id or an object with an id: %s", string(raw))
	}

	return *obj.ID, nil
}

// Data is the entire graph state exchanged with the client on every request.
type Data struct {
	Nodes []Node `json:"nodes"`
	Links []Link `json:"links"`
}

// Clone returns a deep copy that shares no memory with d.
func (d Data) Clone() Data {
	c := Data{
		Nodes: make([]Node, len(d.Nodes)),
		Links: make([]Link, len(d.Links)),
	}
	copy(c.Nodes, d.Nodes)
	copy(c.Links, d.Links)
	return c
}

// Normalize fills in defaults for nodes supplied by a client: an empty or
// missing status becomes StatusNotStarted and nil slices become empty ones.
func (d *Data) Normalize() {
	if d.Nodes == nil {
		d.Nodes = []Node{}
	}
	if d.Links == nil {
		d.Links = []Link{}
	}
	for i := range d.Nodes {
		if d.Nodes[i].Status == "" {
			d.Nodes[i].Status = StatusNotStarted
		}
	}
}

// Node returns the node with the given id.
func (d Data) Node(id string) (Node, bool) {
	if i := d.indexOf(id); i >= 0 {
		return d.Nodes[i], true
	}
	return Node{}, false
}

// Has reports whether a node with the given id exists.
func (d Data) Has(id string) bool { return d.indexOf(id) >= 0 }

func (d Data) indexOf(id string) int {
	for i := range d.Nodes {
		if d.Nodes[i].ID == id {
			return i
		}
	}
	return -1
}

// Parent returns the source of the first link targeting id.
func (d Data) Parent(id string) (string, bool) {
	for _, l := range d.Links {
		if l.Target == id {
			return l.Source, true
		}
	}
	return "", false
}

// Children returns the targets of all links whose source is id, in link order.
func (d Data) Children(id string) []string {
	var children []string
	for _, l := range d.Links {
		if l.Source == id {
			children = append(children, l.Target)
		}
	}
	return children
}

// Descendants returns id followed by all of its transitive descendants in
// depth-first pre-order. Cycles are tolerated.
func (d Data) Descendants(id string) []string {
	visited := map[string]bool{}
	var out []string

	var walk func(string)
	walk = func(nid string) {
		if visited[nid] {
			return
		}
		visited[nid] = true
		out = append(out, nid)
		for _, child := range d.Children(nid) {
			walk(child)
		}
	}
	walk(id)

	return out
}

// Validate checks the forest invariants: unique node ids, links that point
// at existing nodes and at most one parent per node. All violations are
// joined into the returned error.
func (d Data) Validate() error {
	var errs []error

	seen := make(map[string]bool, len(d.Nodes))
	for _, n := range d.Nodes {
		if seen[n.ID] {
			errs = append(errs, fmt.Errorf("duplicate node id %q", n.ID))
		}
		seen[n.ID] = true
	}

	parents := map[string]string{}
	for _, l := range d.Links {
		if !seen[l.Source] {
			errs = append(errs, fmt.Errorf("link %s→%s: unknown source", l.Source, l.Target))
		}
		if !seen[l.Target] {
			errs = append(errs, fmt.Errorf("link %s→%s: unknown target", l.Source, l.Target))
		}
		if prev, ok := parents[l.Target]; ok {
			errs = append(errs, fmt.Errorf("node %q has multiple parents (%s, %s)", l.Target, prev, l.Source))
			continue
		}
		parents[l.Target] = l.Source
	}

	return errors.Join(errs...)
}
