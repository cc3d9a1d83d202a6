package difference

import "strings"

// MovementInfo describes how a node moved between the source and the target model
type MovementInfo uint8

const (
	Created MovementInfo = 1 << iota
	Removed
	Copied
	NameChanged
	IndexChanged
	ParentChanged
	ParentRelocated

	// Changed is set when the node moved in any way
	Changed = Created | Removed | Copied | NameChanged | IndexChanged | ParentChanged | ParentRelocated
	// Relocated is set when the node changed position without being created or removed
	Relocated = Copied | IndexChanged | ParentChanged | ParentRelocated
)

var movementNames = []struct {
	flag MovementInfo
	name string
}{
	{Created, "Created"},
	{Removed, "Removed"},
	{Copied, "Copied"},
	{NameChanged, "NameChanged"},
	{IndexChanged, "IndexChanged"},
	{ParentChanged, "ParentChanged"},
	{ParentRelocated, "ParentRelocated"},
}

// Has reports whether any of the given flags is set
func (m MovementInfo) Has(flags MovementInfo) bool {
	return m&flags != 0
}

// IsValid reports whether the flags are consistent: a node cannot be both created and removed
func (m MovementInfo) IsValid() bool {
	return m&(Created|Removed) != Created|Removed
}

func (m MovementInfo) String() string {
	if m == 0 {
		return "None"
	}
	var parts []string
	for _, n := range movementNames {
		if m&n.flag != 0 {
			parts = append(parts, n.name)
		}
	}
	return strings.Join(parts, "|")
}
