package actions

import (
	"encoding/json"
	"fmt"

	"github.com/redbco/redb-upgrade/pkg/hints"
)

// Record is the JSON shape of a single action
type Record struct {
	Action     string         `json:"action"`
	Path       string         `json:"path"`
	Type       string         `json:"type,omitempty"`
	Name       string         `json:"name,omitempty"`
	Parent     string         `json:"parent,omitempty"`
	Index      *int           `json:"index,omitempty"`
	NewPath    string         `json:"new_path,omitempty"`
	Properties map[string]any `json:"properties,omitempty"`
	HintKind   string         `json:"hint_kind,omitempty"`
	Hint       hints.DataHint `json:"hint,omitempty"`
	Comment    string         `json:"comment,omitempty"`
	Actions    []Record       `json:"actions,omitempty"`
}

// NewRecord describes an action for serialization
func NewRecord(a Action) (Record, error) {
	switch action := a.(type) {
	case *CreateNodeAction:
		return Record{Action: "create", Path: action.Path, Type: action.Type, Name: action.Name, Index: action.Index}, nil
	case *RemoveNodeAction:
		return Record{Action: "remove", Path: action.Path}, nil
	case *MoveNodeAction:
		return Record{Action: "move", Path: action.Path, Parent: action.Parent, Name: action.Name, Index: action.Index, NewPath: action.NewPath}, nil
	case *PropertyChangeAction:
		return Record{Action: "change", Path: action.Path, Properties: action.Properties}, nil
	case *DataAction:
		return Record{Action: "data", Path: action.Hint.TablePath(), HintKind: hintKind(action.Hint), Hint: action.Hint}, nil
	case *GroupingNodeAction:
		r := Record{Action: "group", Comment: action.Comment}
		for _, child := range action.Actions {
			cr, err := NewRecord(child)
			if err != nil {
				return Record{}, err
			}
			r.Actions = append(r.Actions, cr)
		}
		return r, nil
	default:
		return Record{}, fmt.Errorf("unsupported action %T", a)
	}
}

func hintKind(h hints.DataHint) string {
	switch h.(type) {
	case *hints.CopyDataHint:
		return "copyData"
	case *hints.DeleteDataHint:
		return "deleteData"
	case *hints.UpdateDataHint:
		return "updateData"
	default:
		return fmt.Sprintf("%T", h)
	}
}

// MarshalSequence encodes actions as an indented JSON array
func MarshalSequence(actions []Action) ([]byte, error) {
	records := make([]Record, 0, len(actions))
	for _, a := range actions {
		r, err := NewRecord(a)
		if err != nil {
			return nil, err
		}
		records = append(records, r)
	}
	return json.MarshalIndent(records, "", "  ")
}
