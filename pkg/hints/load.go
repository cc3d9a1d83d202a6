package hints

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/redbco/redb-upgrade/pkg/unifiedmodel"
)

type document struct {
	Hints []entry `yaml:"hints"`
}

type entry struct {
	Rename     *RenameHint     `yaml:"rename,omitempty"`
	Ignore     *IgnoreHint     `yaml:"ignore,omitempty"`
	CopyData   *CopyDataHint   `yaml:"copyData,omitempty"`
	DeleteData *DeleteDataHint `yaml:"deleteData,omitempty"`
	UpdateData *UpdateDataHint `yaml:"updateData,omitempty"`
}

func (e entry) hint() (Hint, error) {
	var found []Hint
	if e.Rename != nil {
		if e.Rename.SourcePath == "" || e.Rename.TargetPath == "" {
			return nil, fmt.Errorf("rename hint needs source and target")
		}
		found = append(found, e.Rename)
	}
	if e.Ignore != nil {
		if e.Ignore.Path == "" {
			return nil, fmt.Errorf("ignore hint needs a path")
		}
		found = append(found, e.Ignore)
	}
	if e.CopyData != nil {
		found = append(found, e.CopyData)
	}
	if e.DeleteData != nil {
		found = append(found, e.DeleteData)
	}
	if e.UpdateData != nil {
		found = append(found, e.UpdateData)
	}
	if len(found) != 1 {
		return nil, fmt.Errorf("each entry must hold exactly one hint, found %d", len(found))
	}
	if h, ok := found[0].(DataHint); ok && strings.TrimSpace(h.TablePath()) == "" {
		return nil, fmt.Errorf("%T needs a sourceTable", h)
	}
	return found[0], nil
}

// Load parses a YAML hint document and binds it to the given models
func Load(data []byte, source, target *unifiedmodel.Model) (*HintSet, error) {
	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse hints: %w", err)
	}

	hs := NewHintSet(source, target)
	for i, e := range doc.Hints {
		h, err := e.hint()
		if err != nil {
			return nil, fmt.Errorf("hint %d: %w", i, err)
		}
		hs.Add(h)
	}
	return hs, nil
}

// Marshal renders a hint set as a YAML document that Load accepts
func Marshal(hs *HintSet) ([]byte, error) {
	doc := document{Hints: make([]entry, 0, hs.Len())}
	for _, h := range hs.All() {
		var e entry
		switch hint := h.(type) {
		case *RenameHint:
			e.Rename = hint
		case *IgnoreHint:
			e.Ignore = hint
		case *CopyDataHint:
			e.CopyData = hint
		case *DeleteDataHint:
			e.DeleteData = hint
		case *UpdateDataHint:
			e.UpdateData = hint
		}
		doc.Hints = append(doc.Hints, e)
	}
	out, err := yaml.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("failed to encode hints: %w", err)
	}
	return out, nil
}
