package hints

import (
	"github.com/redbco/redb-upgrade/pkg/unifiedmodel"
)

// HintSet binds a list of hints to the source and target models they describe
type HintSet struct {
	SourceModel *unifiedmodel.Model
	TargetModel *unifiedmodel.Model

	hints []Hint
}

// NewHintSet creates a hint set for a pair of models
func NewHintSet(source, target *unifiedmodel.Model, hints ...Hint) *HintSet {
	hs := &HintSet{SourceModel: source, TargetModel: target}
	hs.Add(hints...)
	return hs
}

// Add appends hints, skipping nil entries
func (hs *HintSet) Add(hints ...Hint) {
	for _, h := range hints {
		if h != nil {
			hs.hints = append(hs.hints, h)
		}
	}
}

// All returns every hint in insertion order
func (hs *HintSet) All() []Hint {
	if hs == nil {
		return nil
	}
	out := make([]Hint, len(hs.hints))
	copy(out, hs.hints)
	return out
}

// Len returns the number of hints
func (hs *HintSet) Len() int {
	if hs == nil {
		return 0
	}
	return len(hs.hints)
}

// Renames returns the rename hints
func (hs *HintSet) Renames() []*RenameHint {
	return collect[*RenameHint](hs)
}

// Ignores returns the ignore hints
func (hs *HintSet) Ignores() []*IgnoreHint {
	return collect[*IgnoreHint](hs)
}

// DataHints returns every data hint in insertion order
func (hs *HintSet) DataHints() []DataHint {
	return collect[DataHint](hs)
}

func collect[T Hint](hs *HintSet) []T {
	if hs == nil {
		return nil
	}
	var out []T
	for _, h := range hs.hints {
		if typed, ok := h.(T); ok {
			out = append(out, typed)
		}
	}
	return out
}

// RenameFromSource returns the rename hint whose source path equals path
func (hs *HintSet) RenameFromSource(path string) *RenameHint {
	for _, h := range hs.Renames() {
		if unifiedmodel.EqualNames(h.SourcePath, path) {
			return h
		}
	}
	return nil
}

// RenameToTarget returns the rename hint whose target path equals path
func (hs *HintSet) RenameToTarget(path string) *RenameHint {
	for _, h := range hs.Renames() {
		if unifiedmodel.EqualNames(h.TargetPath, path) {
			return h
		}
	}
	return nil
}

// IsIgnored reports whether path equals or lies below an ignored path
func (hs *HintSet) IsIgnored(path string) bool {
	for _, h := range hs.Ignores() {
		if unifiedmodel.HasPathPrefix(path, h.Path) {
			return true
		}
	}
	return false
}

// DataHintsFor returns the data hints whose table path equals path
func (hs *HintSet) DataHintsFor(path string) []DataHint {
	var out []DataHint
	for _, h := range hs.DataHints() {
		if unifiedmodel.EqualNames(h.TablePath(), path) {
			out = append(out, h)
		}
	}
	return out
}

// CopyDataFrom returns the copy data hints reading from the table at path
func (hs *HintSet) CopyDataFrom(path string) []*CopyDataHint {
	var out []*CopyDataHint
	for _, h := range hs.DataHintsFor(path) {
		if c, ok := h.(*CopyDataHint); ok {
			out = append(out, c)
		}
	}
	return out
}

// IgnoreOnly returns a hint set for another model pair that keeps only the ignore hints
func (hs *HintSet) IgnoreOnly(source, target *unifiedmodel.Model) *HintSet {
	out := NewHintSet(source, target)
	for _, h := range hs.Ignores() {
		out.Add(h)
	}
	return out
}

// Remap returns a hint set for another model pair. Rename source paths and data hint table paths
// are passed through mapPath; ignore hints and target paths are kept as they are.
func (hs *HintSet) Remap(source, target *unifiedmodel.Model, mapPath func(string) string) *HintSet {
	out := NewHintSet(source, target)
	if hs == nil {
		return out
	}
	for _, h := range hs.hints {
		switch hint := h.(type) {
		case *RenameHint:
			out.Add(&RenameHint{SourcePath: mapPath(hint.SourcePath), TargetPath: hint.TargetPath})
		case DataHint:
			out.Add(hint.withTablePath(mapPath(hint.TablePath())))
		default:
			out.Add(h)
		}
	}
	return out
}

// WithTablePath returns a copy of a data hint pointing at another table path
func WithTablePath(h DataHint, path string) DataHint {
	return h.withTablePath(path)
}
