package upgrade

import "fmt"

// UpgradeStage is one of the fixed phases of sequence synthesis
type UpgradeStage int

const (
	// StageCleanupData deletes and updates data before any structural change
	StageCleanupData UpgradeStage = iota
	// StagePrepare removes nodes that are dropped or must be recreated
	StagePrepare
	// StageTemporaryRename moves nodes involved in rename cycles out of the way
	StageTemporaryRename
	// StageUpgrade creates, renames and reorders nodes and changes properties
	StageUpgrade
	// StageCopyData copies data into the upgraded structure
	StageCopyData
	// StagePostCopyData deletes data that had to survive the copy
	StagePostCopyData
	// StageCleanup removes nodes kept alive for the data copy
	StageCleanup
)

// Stages lists every stage in execution order
var Stages = []UpgradeStage{
	StageCleanupData,
	StagePrepare,
	StageTemporaryRename,
	StageUpgrade,
	StageCopyData,
	StagePostCopyData,
	StageCleanup,
}

func (s UpgradeStage) String() string {
	switch s {
	case StageCleanupData:
		return "CleanupData"
	case StagePrepare:
		return "Prepare"
	case StageTemporaryRename:
		return "TemporaryRename"
	case StageUpgrade:
		return "Upgrade"
	case StageCopyData:
		return "CopyData"
	case StagePostCopyData:
		return "PostCopyData"
	case StageCleanup:
		return "Cleanup"
	default:
		return fmt.Sprintf("UpgradeStage(%d)", int(s))
	}
}

// IsInverse reports whether the stage dismantles structure: children are handled before their
// parent and properties are walked in reverse.
func (s UpgradeStage) IsInverse() bool {
	return s == StagePrepare || s == StageTemporaryRename || s == StageCleanup
}

// IsRemoval reports whether the stage removes nodes
func (s UpgradeStage) IsRemoval() bool {
	return s == StagePrepare || s == StageCleanup
}
