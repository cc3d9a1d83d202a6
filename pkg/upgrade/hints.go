package upgrade

import (
	"github.com/redbco/redb-upgrade/pkg/hints"
)

// updateHints rebinds the hint set to the current model. Rename sources and data hint tables that
// pointed at temporarily renamed nodes, or below them, are sent to their current location.
func (r *run) updateHints() {
	r.hints = r.hints.Remap(r.current, r.target, r.ledger.actualPath)
}

// dataHints returns the data hints of the table a difference was built for, retargeted at the
// table's current path
func (r *run) dataHints(path, currentPath string, keep func(hints.DataHint) bool) []hints.DataHint {
	var out []hints.DataHint
	for _, h := range r.hints.DataHintsFor(path) {
		if !keep(h) {
			continue
		}
		if h.TablePath() != currentPath {
			h = hints.WithTablePath(h, currentPath)
		}
		out = append(out, h)
	}
	return out
}
