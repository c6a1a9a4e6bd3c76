package tool

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/hupe1980/taskmesh/graph"
)

// Stage names the step of payload resolution that rejected a payload, or the
// strategy that accepted it.
type Stage string

const (
	StageStructured       Stage = "structured"
	StageFailedInvocation Stage = "failed_invocation"
	StageStrictDecode     Stage = "strict_decode"
	StageLiteralDecode    Stage = "literal_decode"
	StageShape            Stage = "shape"
	StageRequiredKeys     Stage = "required_keys"
)

// MalformedPayload describes why a tool result could not be turned into a
// graph operation.
type MalformedPayload struct {
	Stage  Stage
	Reason string
	Raw    string
}

func (e *MalformedPayload) Error() string {
	return fmt.Sprintf("malformed payload (%s): %s", e.Stage, e.Reason)
}

// Parsed is the outcome of Parse: either Fields (with the Stage that decoded
// them) or Err, never both.
type Parsed struct {
	Fields map[string]any
	Stage  Stage
	Err    *MalformedPayload
}

// OK reports whether the payload was decoded.
func (p Parsed) OK() bool { return p.Err == nil }

// Parse resolves a tool result given as structured data, a JSON document or
// a loosely formatted dict literal such as {'id': 'n1', 'parent_id': None}.
// Strings mentioning "error" are treated as failed invocations.
func Parse(payload any) Parsed {
	switch v := payload.(type) {
	case nil:
		return malformed(StageShape, "empty payload", "")
	case map[string]any:
		return Parsed{Fields: v, Stage: StageStructured}
	case []byte:
		return parseText(string(v), true)
	case string:
		return parseText(v, true)
	default:
		b, err := json.Marshal(v)
		if err != nil {
			return malformed(StageShape, fmt.Sprintf("unsupported payload type %T: %v", v, err), "")
		}
		var fields map[string]any
		if err := json.Unmarshal(b, &fields); err != nil || fields == nil {
			return malformed(StageShape, fmt.Sprintf("payload of type %T is not an object", v), string(b))
		}
		return Parsed{Fields: fields, Stage: StageStructured}
	}
}

// ParseArguments decodes model supplied call arguments. It tries the same
// strategies as Parse but does not inspect the text for failure markers.
func ParseArguments(raw string) Parsed {
	if strings.TrimSpace(raw) == "" {
		return Parsed{Fields: map[string]any{}, Stage: StageStrictDecode}
	}
	return parseText(raw, false)
}

func parseText(raw string, detectFailure bool) Parsed {
	if detectFailure {
		lower := strings.ToLower(raw)
		if strings.Contains(lower, "error") {
			return malformed(StageFailedInvocation, "tool reported a failure", raw)
		}
	}

	var decoded any
	dec := json.NewDecoder(bytes.NewReader([]byte(raw)))
	dec.UseNumber()
	jsonErr := dec.Decode(&decoded)
	if jsonErr == nil {
		fields, ok := decoded.(map[string]any)
		if !ok {
			return malformed(StageShape, fmt.Sprintf("expected an object, got %T", decoded), raw)
		}
		return Parsed{Fields: normalizeNumbers(fields), Stage: StageStrictDecode}
	}

	var literal any
	if err := yaml.Unmarshal([]byte(raw), &literal); err != nil {
		return malformed(StageLiteralDecode, fmt.Sprintf("json: %v; literal: %v", jsonErr, err), raw)
	}

	fields, ok := literal.(map[string]any)
	if !ok {
		return malformed(StageLiteralDecode, fmt.Sprintf("json: %v; literal: not a mapping", jsonErr), raw)
	}

	return Parsed{Fields: normalizeLiteral(fields), Stage: StageLiteralDecode}
}

func malformed(stage Stage, reason, raw string) Parsed {
	return Parsed{Err: &MalformedPayload{Stage: stage, Reason: reason, Raw: raw}}
}

func normalizeNumbers(m map[string]any) map[string]any {
	for k, v := range m {
		if n, ok := v.(json.Number); ok {
			if f, err := n.Float64(); err == nil {
				m[k] = f
			} else {
				m[k] = n.String()
			}
		}
	}
	return m
}

// normalizeLiteral maps Python style constants left over by the literal
// decoder onto their JSON counterparts.
func normalizeLiteral(m map[string]any) map[string]any {
	for k, v := range m {
		s, ok := v.(string)
		if !ok {
			continue
		}
		switch s {
		case "None":
			m[k] = nil
		case "True":
			m[k] = true
		case "False":
			m[k] = false
		}
	}
	return m
}

// Operation is the kind of graph mutation a tool result describes.
type Operation string

const (
	OpCreate       Operation = "create"
	OpEdit         Operation = "edit"
	OpUpdateStatus Operation = "update_status"
	OpDelete       Operation = "delete"
)

func (op Operation) requiredKeys() []string {
	switch op {
	case OpCreate:
		return []string{"id", "name", "description"}
	case OpUpdateStatus:
		return []string{"id", "status"}
	}
	return []string{"id"}
}

func checkRequired(op Operation, fields map[string]any) error {
	var missing []string
	for _, key := range op.requiredKeys() {
		if _, ok := fields[key]; !ok {
			missing = append(missing, key)
		}
	}
	if len(missing) > 0 {
		return &MalformedPayload{
			Stage:  StageRequiredKeys,
			Reason: fmt.Sprintf("%s payload missing %s", op, strings.Join(missing, ", ")),
		}
	}
	return nil
}

// Apply decodes fields for op and performs the mutation on store. Shape
// problems are reported as *MalformedPayload; rejections by the store are
// returned as is.
func Apply(store *graph.Store, op Operation, fields map[string]any) (*graph.Change, error) {
	switch op {
	case OpCreate:
		req, err := DecodeCreate(fields)
		if err != nil {
			return nil, err
		}
		return store.Create(req)
	case OpEdit:
		req, err := DecodeEdit(fields)
		if err != nil {
			return nil, err
		}
		return store.Edit(req)
	case OpUpdateStatus:
		id, status, err := DecodeStatus(fields)
		if err != nil {
			return nil, err
		}
		return store.UpdateStatus(id, status)
	case OpDelete:
		id, err := DecodeDelete(fields)
		if err != nil {
			return nil, err
		}
		return store.Delete(id)
	}

	return nil, &MalformedPayload{Stage: StageShape, Reason: fmt.Sprintf("unknown operation %q", op)}
}

// DecodeCreate builds a create request. The name must be non-empty; a
// null-like parent_id means "root".
func DecodeCreate(fields map[string]any) (graph.CreateRequest, error) {
	if err := checkRequired(OpCreate, fields); err != nil {
		return graph.CreateRequest{}, err
	}

	var (
		req graph.CreateRequest
		err error
	)
	if req.ID, err = stringField(fields, "id"); err != nil {
		return graph.CreateRequest{}, err
	}
	if req.Name, err = stringField(fields, "name"); err != nil {
		return graph.CreateRequest{}, err
	}
	if strings.TrimSpace(req.Name) == "" {
		return graph.CreateRequest{}, &MalformedPayload{Stage: StageShape, Reason: `field "name" must be a non-empty string`}
	}
	if req.Description, err = stringField(fields, "description"); err != nil {
		return graph.CreateRequest{}, err
	}
	if req.ParentID, err = stringField(fields, "parent_id"); err != nil {
		return graph.CreateRequest{}, err
	}
	if isNullSentinel(req.ParentID) {
		req.ParentID = ""
	}

	return req, nil
}

// DecodeEdit builds an edit request. Absent or null name and description
// keep the current values. For parent_id, absence keeps the parent, a
// null-like value (null, "", "null", "none") clears it and anything else
// moves the node.
func DecodeEdit(fields map[string]any) (graph.EditRequest, error) {
	if err := checkRequired(OpEdit, fields); err != nil {
		return graph.EditRequest{}, err
	}

	id, err := stringField(fields, "id")
	if err != nil {
		return graph.EditRequest{}, err
	}
	req := graph.EditRequest{ID: id}

	if v, ok := fields["name"]; ok && v != nil {
		name, err := stringField(fields, "name")
		if err != nil {
			return graph.EditRequest{}, err
		}
		req.Name = &name
	}
	if v, ok := fields["description"]; ok && v != nil {
		description, err := stringField(fields, "description")
		if err != nil {
			return graph.EditRequest{}, err
		}
		req.Description = &description
	}
	if _, ok := fields["parent_id"]; ok {
		parent, err := stringField(fields, "parent_id")
		if err != nil {
			return graph.EditRequest{}, err
		}
		if isNullSentinel(parent) {
			req.Parent = graph.ClearParent()
		} else {
			req.Parent = graph.SetParent(parent)
		}
	}

	return req, nil
}

// DecodeStatus extracts the node id and the requested status. The status is
// validated by the store.
func DecodeStatus(fields map[string]any) (string, graph.Status, error) {
	if err := checkRequired(OpUpdateStatus, fields); err != nil {
		return "", "", err
	}

	id, err := stringField(fields, "id")
	if err != nil {
		return "", "", err
	}
	status, err := stringField(fields, "status")
	if err != nil {
		return "", "", err
	}

	return id, graph.Status(status), nil
}

// DecodeDelete extracts the node id.
func DecodeDelete(fields map[string]any) (string, error) {
	if err := checkRequired(OpDelete, fields); err != nil {
		return "", err
	}
	return stringField(fields, "id")
}

// stringField returns fields[key] as a string. Absent and null values yield "".
func stringField(fields map[string]any, key string) (string, error) {
	switch v := fields[key].(type) {
	case nil:
		return "", nil
	case string:
		return v, nil
	default:
		return "", &MalformedPayload{Stage: StageShape, Reason: fmt.Sprintf("field %q must be a string, got %T", key, v)}
	}
}

// isNullSentinel reports whether a parent reference means "no parent".
func isNullSentinel(s string) bool {
	switch strings.TrimSpace(strings.ToLower(s)) {
	case "", "null", "none":
		return true
	}
	return false
}
