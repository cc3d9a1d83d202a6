package upgrade

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/redbco/redb-upgrade/pkg/unifiedmodel"
)

func TestRenameLedger(t *testing.T) {
	m, err := unifiedmodel.Decode(unifiedmodel.RelationalTypes(), []byte(`
tables:
  - name: T1
    columns:
      - name: a
  - name: T2
`))
	require.NoError(t, err)

	ledger := newRenameLedger()
	assert.Equal(t, "tables/T1/columns/a", ledger.actualPath("tables/T1/columns/a"))

	t1, ok := m.ResolveNode("tables/T1")
	require.True(t, ok)
	ledger.record("tables/T1", t1)
	_, err = m.MoveNode("tables/T1", "tables", "Temp_T1", -1)
	require.NoError(t, err)

	assert.Equal(t, 1, ledger.len())
	assert.Equal(t, "tables/Temp_T1", ledger.actualPath("tables/T1"))
	assert.Equal(t, "tables/Temp_T1", ledger.actualPath("TABLES/t1"))
	assert.Equal(t, "tables/Temp_T1/columns/a", ledger.actualPath("tables/T1/columns/a"))
	assert.Equal(t, "tables/T2", ledger.actualPath("tables/T2"))

	require.NoError(t, m.RemoveNode("tables/Temp_T1"))
	assert.Equal(t, "tables/T1", ledger.actualPath("tables/T1"), "detached nodes are not followed")
}

func TestTemporaryName(t *testing.T) {
	m, err := unifiedmodel.Decode(unifiedmodel.RelationalTypes(), []byte(`
tables:
  - name: A
  - name: Temp_A
`))
	require.NoError(t, err)
	tables := m.Root().Items("tables")

	r := &run{planner: NewPlanner(nil), pending: make(map[string]struct{})}
	assert.Equal(t, "Temp_B", r.temporaryName(tables, "B"))

	name := r.temporaryName(tables, "A")
	assert.Equal(t, "Temp_A1", name)

	r.pending[unifiedmodel.FoldName(unifiedmodel.JoinPath(tables.Path(), name))] = struct{}{}
	assert.Equal(t, "Temp_a2", r.temporaryName(tables, "a"), "pending names are folded")
}

func TestStages(t *testing.T) {
	assert.Len(t, Stages, 7)
	assert.Equal(t, "CleanupData", StageCleanupData.String())
	assert.Equal(t, "Cleanup", StageCleanup.String())
	assert.True(t, StageTemporaryRename.IsInverse())
	assert.False(t, StageTemporaryRename.IsRemoval())
	assert.True(t, StagePrepare.IsRemoval())
	assert.False(t, StageUpgrade.IsInverse())
	assert.Equal(t, "UpgradeStage(42)", UpgradeStage(42).String())
}
