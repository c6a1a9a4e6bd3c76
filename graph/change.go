package graph

// Action names the kind of mutation a Change describes.
type Action string

const (
	ActionCreate       Action = "create"
	ActionEdit         Action = "edit"
	ActionUpdateStatus Action = "update_status"
	ActionDelete       Action = "delete"
)

// Change describes one successful mutation. Status fields are only set for
// ActionUpdateStatus; the deletion fields only for ActionDelete.
type Change struct {
	Action Action `json:"action"`
	ID     string `json:"id"`
	Name   string `json:"name"`

	OldStatus Status `json:"old_status,omitempty"`
	NewStatus Status `json:"new_status,omitempty"`

	DeletedNodes        []string `json:"deleted_nodes,omitempty"`
	ReconnectedChildren *int     `json:"reconnected_children,omitempty"`
	CascadeDeleted      *int     `json:"cascade_deleted,omitempty"`
}

// CreateRequest is the input of Store.Create.
type CreateRequest struct {
	ID          string
	Name        string
	Description string
	// ParentID is optional; an empty value means "no parent".
	ParentID string
}

// ParentUpdate says what Store.Edit does with a node's incoming link.
// The zero value is KeepParent.
type ParentUpdate struct {
	kind parentKind
	id   string
}

type parentKind int

const (
	parentKeep parentKind = iota
	parentClear
	parentSet
)

// KeepParent leaves the node's parent untouched.
var KeepParent = ParentUpdate{}

// ClearParent detaches the node from its parent, making it a root.
func ClearParent() ParentUpdate { return ParentUpdate{kind: parentClear} }

// SetParent re-parents the node under id. An empty id is the same as ClearParent.
func SetParent(id string) ParentUpdate {
	if id == "" {
		return ClearParent()
	}
	return ParentUpdate{kind: parentSet, id: id}
}

// IsKeep reports whether the update leaves the parent untouched.
func (p ParentUpdate) IsKeep() bool { return p.kind == parentKeep }

// IsClear reports whether the update detaches the node.
func (p ParentUpdate) IsClear() bool { return p.kind == parentClear }

// ID returns the requested parent id for SetParent updates.
func (p ParentUpdate) ID() (string, bool) { return p.id, p.kind == parentSet }

// EditRequest is the input of Store.Edit. Nil pointers leave fields untouched.
type EditRequest struct {
	ID          string
	Name        *string
	Description *string
	Parent      ParentUpdate
}
