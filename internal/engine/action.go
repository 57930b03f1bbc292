package engine

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"
)

// ActionType names the edit an Action performs.
type ActionType string

const (
	FillMissing        ActionType = "FILL_MISSING"
	FillMissingNumeric ActionType = "FILL_MISSING_NUMERIC"
	ModifyCell         ActionType = "MODIFY_CELL"
	StandardizeFormat  ActionType = "STANDARDIZE_FORMAT"
	RemoveRow          ActionType = "REMOVE_ROW"
	ReviewConsistency  ActionType = "REVIEW_CONSISTENCY"
)

var knownTypes = map[ActionType]bool{
	FillMissing: true, FillMissingNumeric: true, ModifyCell: true,
	StandardizeFormat: true, RemoveRow: true, ReviewConsistency: true,
}

// UnmarshalText accepts any casing and surrounding whitespace.
func (t *ActionType) UnmarshalText(b []byte) error {
	*t = ActionType(strings.ToUpper(strings.TrimSpace(string(b))))
	return nil
}

// Valid reports whether t is one of the supported action types.
func (t ActionType) Valid() bool { return knownTypes[t] }

// Text is an optional fragment field. Producers are not trusted to send
// strings, so the decoded value remembers whether it was absent, a string, or
// some other JSON value.
type Text struct {
	Value   string
	Present bool
	// IsString is false for numbers, booleans, objects and arrays.
	IsString bool
	raw      json.RawMessage
}

// Str wraps a string value.
func Str(s string) Text { return Text{Value: s, Present: true, IsString: true} }

// Get returns the value and whether it is usable as a string.
func (t Text) Get() (string, bool) {
	if !t.Present || !t.IsString {
		return "", false
	}
	return t.Value, true
}

func (t *Text) UnmarshalJSON(b []byte) error {
	*t = Text{}
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		return nil
	}
	t.Present = true
	if b[0] == '"' {
		if err := json.Unmarshal(b, &t.Value); err != nil {
			return err
		}
		t.IsString = true
		return nil
	}
	t.raw = append(json.RawMessage(nil), b...)
	t.Value = string(b)
	return nil
}

func (t Text) MarshalJSON() ([]byte, error) {
	switch {
	case !t.Present:
		return []byte("null"), nil
	case t.IsString:
		return json.Marshal(t.Value)
	case len(t.raw) > 0:
		return t.raw, nil
	}
	return json.Marshal(t.Value)
}

func (t *Text) UnmarshalYAML(n *yaml.Node) error {
	*t = Text{}
	if n.Kind == yaml.ScalarNode && n.ShortTag() == "!!null" {
		return nil
	}
	t.Present = true
	if n.Kind == yaml.ScalarNode {
		t.Value = n.Value
		t.IsString = n.ShortTag() == "!!str"
	}
	return nil
}

// Action is a single declarative edit request.
type Action struct {
	ID         string     `json:"id,omitempty" yaml:"id"`
	Type       ActionType `json:"actionType" yaml:"actionType"`
	ColumnName string     `json:"columnName,omitempty" yaml:"columnName"`
	// RowNumber is 1-based and refers to the table after all REMOVE_ROW
	// actions of the batch; nil means column-wide.
	RowNumber               *int   `json:"rowNumber,omitempty" yaml:"rowNumber"`
	OriginalFragment        Text   `json:"originalFragment" yaml:"originalFragment"`
	SuggestedFragment       Text   `json:"suggestedFragment" yaml:"suggestedFragment"`
	ImputationMethod        string `json:"imputationMethod,omitempty" yaml:"imputationMethod"`
	UserProvidedReplacement Text   `json:"userProvidedReplacement" yaml:"userProvidedReplacement"`
	// Description is free text from the producer, carried through untouched.
	Description string `json:"description,omitempty" yaml:"description"`
}

// Row returns a pointer suitable for Action.RowNumber.
func Row(n int) *int { return &n }

// DecodeActions reads a JSON array, a JSON object with an "actions" array, or
// a YAML list. Actions without an id get a fresh UUID.
func DecodeActions(data []byte) ([]Action, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, nil
	}
	var actions []Action
	switch trimmed[0] {
	case '[':
		if err := json.Unmarshal(trimmed, &actions); err != nil {
			return nil, fmt.Errorf("decode actions: %w", err)
		}
	case '{':
		var env struct {
			Actions []Action `json:"actions"`
		}
		if err := json.Unmarshal(trimmed, &env); err != nil {
			return nil, fmt.Errorf("decode actions: %w", err)
		}
		actions = env.Actions
	default:
		if err := yaml.Unmarshal(trimmed, &actions); err != nil {
			return nil, fmt.Errorf("decode actions (yaml): %w", err)
		}
	}
	AssignIDs(actions)
	return actions, nil
}

// AssignIDs gives every action without an id a new UUID.
func AssignIDs(actions []Action) {
	for i := range actions {
		if strings.TrimSpace(actions[i].ID) == "" {
			actions[i].ID = uuid.NewString()
		}
	}
}
