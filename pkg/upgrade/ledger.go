package upgrade

import (
	"github.com/redbco/redb-upgrade/pkg/unifiedmodel"
)

// renameLedger remembers where temporarily renamed nodes went. Keys are folded source paths, values
// the live nodes of the current model.
type renameLedger struct {
	entries map[string]*unifiedmodel.Node
}

func newRenameLedger() *renameLedger {
	return &renameLedger{entries: make(map[string]*unifiedmodel.Node)}
}

func (l *renameLedger) record(sourcePath string, n *unifiedmodel.Node) {
	l.entries[unifiedmodel.FoldName(sourcePath)] = n
}

func (l *renameLedger) len() int { return len(l.entries) }

// actualPath maps a source path to its current location: the node itself when it was renamed,
// otherwise the path rebased onto its deepest renamed ancestor.
func (l *renameLedger) actualPath(path string) string {
	if len(l.entries) == 0 {
		return path
	}
	if n, ok := l.entries[unifiedmodel.FoldName(path)]; ok && n.Model() != nil {
		return n.Path()
	}
	segments := unifiedmodel.SplitPath(path)
	for i := len(segments) - 1; i > 0; i-- {
		prefix := unifiedmodel.JoinPath("", segments[:i]...)
		if n, ok := l.entries[unifiedmodel.FoldName(prefix)]; ok && n.Model() != nil {
			return unifiedmodel.JoinPath(n.Path(), segments[i:]...)
		}
	}
	return path
}
