package graph

import (
	"errors"
	"fmt"
	"slices"

	"github.com/hupe1980/taskmesh/logging"
)

var (
	// ErrNodeNotFound is returned when an operation targets an unknown id.
	ErrNodeNotFound = errors.New("node not found")
	// ErrInvalidStatus is returned for status values outside Statuses.
	ErrInvalidStatus = errors.New("invalid status")
	// ErrDuplicateID is returned when Create reuses an existing id.
	ErrDuplicateID = errors.New("duplicate node id")
)

// Store applies mutations to a Data value in place. It is not safe for
// concurrent use: one goroutine owns the Store for the duration of a turn.
type Store struct {
	data   *Data
	logger logging.Logger
}

// StoreOptions configures a Store.
type StoreOptions struct {
	Logger logging.Logger
}

// NewStore wraps data. The caller keeps ownership of data and must not touch
// it from other goroutines while the Store is in use.
func NewStore(data *Data, optFns ...func(o *StoreOptions)) *Store {
	opts := StoreOptions{Logger: logging.NoOpLogger{}}
	for _, fn := range optFns {
		fn(&opts)
	}

	data.Normalize()

	return &Store{data: data, logger: logging.OrNoOp(opts.Logger)}
}

// Data returns the live graph. Only the owning goroutine may use it.
func (s *Store) Data() *Data { return s.data }

// Snapshot returns a deep copy of the current graph.
func (s *Store) Snapshot() Data { return s.data.Clone() }

// Create appends a new node in StatusNotStarted and links it under ParentID
// when that parent exists. An unknown parent is logged and ignored.
func (s *Store) Create(req CreateRequest) (*Change, error) {
	if s.data.Has(req.ID) {
		s.logger.Error("graph.node.create_rejected", "id", req.ID, "reason", "duplicate id")
		return nil, fmt.Errorf("create %q: %w", req.ID, ErrDuplicateID)
	}

	if req.ParentID != "" {
		if s.data.Has(req.ParentID) {
			s.data.Links = append(s.data.Links, Link{Source: req.ParentID, Target: req.ID})
		} else {
			s.logger.Warn("graph.parent.missing", "id", req.ID, "parent_id", req.ParentID, "detail", "skipping link creation")
		}
	}

	s.data.Nodes = append(s.data.Nodes, Node{
		ID:          req.ID,
		Name:        req.Name,
		Description: req.Description,
		Status:      StatusNotStarted,
	})

	s.logger.Info("graph.node.created", "id", req.ID, "name", req.Name)

	return &Change{Action: ActionCreate, ID: req.ID, Name: req.Name}, nil
}

// Edit updates name, description and parent of an existing node.
func (s *Store) Edit(req EditRequest) (*Change, error) {
	i := s.data.indexOf(req.ID)
	if i < 0 {
		s.logger.Error("graph.node.edit_rejected", "id", req.ID, "reason", "not found")
		return nil, fmt.Errorf("edit %q: %w", req.ID, ErrNodeNotFound)
	}

	node := &s.data.Nodes[i]
	if req.Name != nil && *req.Name != "" {
		node.Name = *req.Name
	}
	if req.Description != nil {
		node.Description = *req.Description
	}

	if !req.Parent.IsKeep() {
		s.detach(req.ID)

		if parentID, ok := req.Parent.ID(); ok {
			s.attach(parentID, req.ID)
		}
	}

	s.logger.Info("graph.node.edited", "id", req.ID, "name", node.Name)

	return &Change{Action: ActionEdit, ID: req.ID, Name: node.Name}, nil
}

func (s *Store) detach(id string) {
	s.data.Links = slices.DeleteFunc(s.data.Links, func(l Link) bool { return l.Target == id })
}

// attach links child under parentID unless the parent is unknown or the link
// would close a cycle; either way the child is left as a root.
func (s *Store) attach(parentID, child string) {
	if !s.data.Has(parentID) {
		s.logger.Warn("graph.parent.missing", "id", child, "parent_id", parentID, "detail", "skipping link creation")
		return
	}
	if slices.Contains(s.data.Descendants(child), parentID) {
		s.logger.Warn("graph.parent.cycle", "id", child, "parent_id", parentID, "detail", "skipping link creation")
		return
	}
	s.data.Links = append(s.data.Links, Link{Source: parentID, Target: child})
}

// UpdateStatus moves a node to a new status.
func (s *Store) UpdateStatus(id string, status Status) (*Change, error) {
	if !status.Valid() {
		s.logger.Error("graph.status.invalid", "id", id, "status", string(status), "allowed", Statuses)
		return nil, fmt.Errorf("update status of %q to %q: %w", id, status, ErrInvalidStatus)
	}

	i := s.data.indexOf(id)
	if i < 0 {
		s.logger.Error("graph.node.status_rejected", "id", id, "reason", "not found")
		return nil, fmt.Errorf("update status of %q: %w", id, ErrNodeNotFound)
	}

	node := &s.data.Nodes[i]
	old := node.Status
	if old == "" {
		old = StatusNotStarted
	}
	node.Status = status

	s.logger.Info("graph.status.updated", "id", id, "name", node.Name, "old_status", string(old), "new_status", string(status))

	return &Change{
		Action:    ActionUpdateStatus,
		ID:        id,
		Name:      node.Name,
		OldStatus: old,
		NewStatus: status,
	}, nil
}

// Delete removes a node. A node with a parent is spliced out and its children
// are re-linked to that parent. A root node is removed together with all of
// its descendants.
func (s *Store) Delete(id string) (*Change, error) {
	node, ok := s.data.Node(id)
	if !ok {
		s.logger.Error("graph.node.delete_rejected", "id", id, "reason", "not found")
		return nil, fmt.Errorf("delete %q: %w", id, ErrNodeNotFound)
	}

	change := &Change{Action: ActionDelete, ID: id, Name: node.Name}

	if parentID, hasParent := s.data.Parent(id); hasParent {
		children := s.data.Children(id)

		s.data.Links = slices.DeleteFunc(s.data.Links, func(l Link) bool {
			return l.Source == id || l.Target == id
		})
		for _, child := range children {
			s.data.Links = append(s.data.Links, Link{Source: parentID, Target: child})
		}
		s.removeNodes(map[string]bool{id: true})

		reconnected := len(children)
		change.DeletedNodes = []string{id}
		change.ReconnectedChildren = &reconnected

		s.logger.Info("graph.node.deleted", "id", id, "name", node.Name, "reconnected_children", reconnected)
	} else {
		doomed := s.data.Descendants(id)
		set := make(map[string]bool, len(doomed))
		for _, nid := range doomed {
			set[nid] = true
		}

		s.data.Links = slices.DeleteFunc(s.data.Links, func(l Link) bool {
			return set[l.Source] || set[l.Target]
		})
		s.removeNodes(set)

		cascaded := len(doomed)
		change.DeletedNodes = doomed
		change.CascadeDeleted = &cascaded

		s.logger.Info("graph.node.cascade_deleted", "id", id, "name", node.Name, "deleted", cascaded)
	}

	return change, nil
}

func (s *Store) removeNodes(ids map[string]bool) {
	s.data.Nodes = slices.DeleteFunc(s.data.Nodes, func(n Node) bool { return ids[n.ID] })
}
