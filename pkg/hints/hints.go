// Package hints holds caller supplied overrides for comparison and upgrade planning: forced
// renames, ignored paths and data operations attached to tables. Hints are keyed by node path and
// looked up ignoring case.
package hints

import (
	"fmt"
	"strings"

	"github.com/redbco/redb-upgrade/pkg/unifiedmodel"
)

// Hint is one of *RenameHint, *IgnoreHint, *CopyDataHint, *DeleteDataHint or *UpdateDataHint
type Hint interface {
	fmt.Stringer
	isHint()
}

// DataHint is a hint describing a data operation on a source table
type DataHint interface {
	Hint
	// TablePath is the path of the source table the operation applies to
	TablePath() string
	// withTablePath returns a copy of the hint targeting another table path
	withTablePath(path string) DataHint
}

// RenameHint forces the node at SourcePath to be matched with the node at TargetPath
type RenameHint struct {
	SourcePath string `json:"source" yaml:"source"`
	TargetPath string `json:"target" yaml:"target"`
}

func (*RenameHint) isHint() {}

func (h *RenameHint) String() string {
	return fmt.Sprintf("rename %s -> %s", h.SourcePath, h.TargetPath)
}

// IgnoreHint excludes a node path, its subtree, or a single property path from comparison
type IgnoreHint struct {
	Path string `json:"path" yaml:"path"`
}

func (*IgnoreHint) isHint() {}

func (h *IgnoreHint) String() string {
	return "ignore " + h.Path
}

// IdentityColumn pairs a key column of the source table with the matching target column
type IdentityColumn struct {
	Source string `json:"source" yaml:"source"`
	Target string `json:"target" yaml:"target"`
}

// ColumnPair maps a source column onto a target column
type ColumnPair struct {
	Source string `json:"source" yaml:"source"`
	Target string `json:"target" yaml:"target"`
}

// UpdateParameter assigns a value to a column
type UpdateParameter struct {
	Column string `json:"column" yaml:"column"`
	Value  any    `json:"value" yaml:"value"`
}

// CopyDataHint copies rows of a source table into another table before old copies are deleted
type CopyDataHint struct {
	SourceTablePath string           `json:"source_table" yaml:"sourceTable"`
	TargetTablePath string           `json:"target_table,omitempty" yaml:"targetTable,omitempty"`
	IdentityColumns []IdentityColumn `json:"identity_columns,omitempty" yaml:"identityColumns,omitempty"`
	CopiedColumns   []ColumnPair     `json:"copied_columns,omitempty" yaml:"copiedColumns,omitempty"`
}

func (*CopyDataHint) isHint() {}

func (h *CopyDataHint) TablePath() string { return h.SourceTablePath }

func (h *CopyDataHint) withTablePath(path string) DataHint {
	c := *h
	c.SourceTablePath = path
	return &c
}

func (h *CopyDataHint) String() string {
	target := ""
	if h.TargetTablePath != "" {
		target = " -> " + h.TargetTablePath
	}
	return fmt.Sprintf("copy data %s%s (%s)", h.SourceTablePath, target, formatPairs(h.CopiedColumns))
}

// DeleteDataHint deletes rows of a table, either before the upgrade or after data was copied
type DeleteDataHint struct {
	SourceTablePath string           `json:"source_table" yaml:"sourceTable"`
	IdentityColumns []IdentityColumn `json:"identity_columns,omitempty" yaml:"identityColumns,omitempty"`
	PostCopy        bool             `json:"post_copy,omitempty" yaml:"postCopy,omitempty"`
}

func (*DeleteDataHint) isHint() {}

func (h *DeleteDataHint) TablePath() string { return h.SourceTablePath }

func (h *DeleteDataHint) withTablePath(path string) DataHint {
	c := *h
	c.SourceTablePath = path
	return &c
}

func (h *DeleteDataHint) String() string {
	if h.PostCopy {
		return "delete copied data " + h.SourceTablePath
	}
	return "delete data " + h.SourceTablePath
}

// UpdateDataHint updates rows of a table before the upgrade
type UpdateDataHint struct {
	SourceTablePath  string            `json:"source_table" yaml:"sourceTable"`
	IdentityColumns  []IdentityColumn  `json:"identity_columns,omitempty" yaml:"identityColumns,omitempty"`
	UpdateParameters []UpdateParameter `json:"update_parameters,omitempty" yaml:"updateParameters,omitempty"`
}

func (*UpdateDataHint) isHint() {}

func (h *UpdateDataHint) TablePath() string { return h.SourceTablePath }

func (h *UpdateDataHint) withTablePath(path string) DataHint {
	c := *h
	c.SourceTablePath = path
	return &c
}

func (h *UpdateDataHint) String() string {
	parts := make([]string, 0, len(h.UpdateParameters))
	for _, p := range h.UpdateParameters {
		parts = append(parts, fmt.Sprintf("%s=%v", p.Column, p.Value))
	}
	return fmt.Sprintf("update data %s set %s", h.SourceTablePath, strings.Join(parts, ", "))
}

func formatPairs(pairs []ColumnPair) string {
	parts := make([]string, 0, len(pairs))
	for _, p := range pairs {
		if unifiedmodel.EqualNames(p.Source, p.Target) {
			parts = append(parts, p.Source)
			continue
		}
		parts = append(parts, p.Source+"->"+p.Target)
	}
	return strings.Join(parts, ", ")
}
