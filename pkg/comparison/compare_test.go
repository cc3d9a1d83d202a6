package comparison

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/redbco/redb-upgrade/pkg/difference"
	"github.com/redbco/redb-upgrade/pkg/hints"
	"github.com/redbco/redb-upgrade/pkg/unifiedmodel"
)

const baseYAML = `
name: app
tables:
  - name: users
    columns:
      - name: id
        type: integer
      - name: name
        type: text
    primaryKey:
      columns: [id]
  - name: orders
    columns:
      - name: id
        type: integer
      - name: user_id
        type: integer
    foreignKeys:
      - name: fk_user
        columns: [user_id]
        referencedTable: tables/users
`

func decode(t *testing.T, doc string) *unifiedmodel.Model {
	t.Helper()
	m, err := unifiedmodel.Decode(unifiedmodel.RelationalTypes(), []byte(doc))
	require.NoError(t, err)
	return m
}

func pair(t *testing.T, source, target string) (*unifiedmodel.Model, *unifiedmodel.Model) {
	t.Helper()
	registry := unifiedmodel.RelationalTypes()
	s, err := unifiedmodel.Decode(registry, []byte(source))
	require.NoError(t, err)
	tg, err := unifiedmodel.Decode(registry, []byte(target))
	require.NoError(t, err)
	return s, tg
}

func tableChanges(t *testing.T, diff difference.Difference) []*difference.NodeDifference {
	t.Helper()
	root, ok := diff.(*difference.NodeDifference)
	require.True(t, ok)
	tables, ok := root.Property("tables").(*difference.NodeCollectionDifference)
	require.True(t, ok)
	return tables.ItemChanges
}

func TestModelComparator(t *testing.T) {
	comparator := NewModelComparator()

	t.Run("compare identical models", func(t *testing.T) {
		source, target := pair(t, baseYAML, baseYAML)
		diff, err := comparator.Compare(source, target, nil)
		require.NoError(t, err)
		assert.Nil(t, diff)
	})

	t.Run("models need the same registry", func(t *testing.T) {
		_, err := comparator.Compare(decode(t, baseYAML), decode(t, baseYAML), nil)
		require.Error(t, err)
	})

	t.Run("added column", func(t *testing.T) {
		source, target := pair(t, `
tables:
  - name: t
    columns:
      - name: a
`, `
tables:
  - name: t
    columns:
      - name: a
      - name: b
        type: text
`)
		diff, err := comparator.Compare(source, target, nil)
		require.NoError(t, err)

		tables := tableChanges(t, diff)
		require.Len(t, tables, 1)
		assert.Equal(t, difference.MovementInfo(0), tables[0].Movement)

		columns := tables[0].Property("columns").(*difference.NodeCollectionDifference)
		require.Len(t, columns.ItemChanges, 1)
		b := columns.ItemChanges[0]
		assert.Equal(t, difference.Created, b.Movement)
		assert.Equal(t, "tables/t/columns/b", b.TargetPath)
		assert.Equal(t, "text", b.Property("type").(*difference.ValueDifference).Target)
	})

	t.Run("renamed table via hint", func(t *testing.T) {
		source, target := pair(t, `
tables:
  - name: T1
    columns:
      - name: A
`, `
tables:
  - name: T2
    columns:
      - name: A
`)
		hs := hints.NewHintSet(source, target, &hints.RenameHint{SourcePath: "tables/T1", TargetPath: "tables/T2"})
		diff, err := comparator.Compare(source, target, hs)
		require.NoError(t, err)

		tables := tableChanges(t, diff)
		require.Len(t, tables, 1)
		assert.Equal(t, difference.NameChanged, tables[0].Movement)
		assert.Equal(t, "tables/T1", tables[0].SourcePath)
		assert.Equal(t, "tables/T2", tables[0].TargetPath)
		assert.Empty(t, tables[0].PropertyChanges)
	})

	t.Run("rename without hint is a remove and a create", func(t *testing.T) {
		source, target := pair(t, "tables:\n  - name: T1\n", "tables:\n  - name: T2\n")
		diff, err := comparator.Compare(source, target, nil)
		require.NoError(t, err)

		tables := tableChanges(t, diff)
		require.Len(t, tables, 2)
		assert.Equal(t, difference.Created, tables[0].Movement)
		assert.Equal(t, difference.Removed, tables[1].Movement)
	})

	t.Run("case only rename matches by name", func(t *testing.T) {
		source, target := pair(t, "tables:\n  - name: users\n", "tables:\n  - name: Users\n")
		diff, err := comparator.Compare(source, target, nil)
		require.NoError(t, err)

		tables := tableChanges(t, diff)
		require.Len(t, tables, 1)
		assert.Equal(t, difference.NameChanged, tables[0].Movement)
	})

	t.Run("reordered columns", func(t *testing.T) {
		source, target := pair(t, `
tables:
  - name: t
    columns:
      - name: a
      - name: b
`, `
tables:
  - name: t
    columns:
      - name: b
      - name: a
`)
		diff, err := comparator.Compare(source, target, nil)
		require.NoError(t, err)

		columns := tableChanges(t, diff)[0].Property("columns").(*difference.NodeCollectionDifference)
		require.Len(t, columns.ItemChanges, 2)
		assert.Equal(t, "tables/t/columns/b", columns.ItemChanges[0].TargetPath)
		assert.Equal(t, difference.IndexChanged, columns.ItemChanges[0].Movement)
		assert.Equal(t, difference.IndexChanged, columns.ItemChanges[1].Movement)
	})

	t.Run("removed table carries structural children only", func(t *testing.T) {
		source, target := pair(t, baseYAML, `
tables:
  - name: users
    columns:
      - name: id
        type: integer
      - name: name
        type: text
    primaryKey:
      columns: [id]
`)
		diff, err := comparator.Compare(source, target, nil)
		require.NoError(t, err)

		tables := tableChanges(t, diff)
		require.Len(t, tables, 1)
		orders := tables[0]
		assert.Equal(t, difference.Removed, orders.Movement)
		assert.Nil(t, orders.Property("comment"))

		columns := orders.Property("columns").(*difference.NodeCollectionDifference)
		require.Len(t, columns.ItemChanges, 2)
		assert.Empty(t, columns.ItemChanges[0].PropertyChanges)

		fks := orders.Property("foreignKeys").(*difference.NodeCollectionDifference)
		require.Len(t, fks.ItemChanges, 1)
		assert.True(t, fks.ItemChanges[0].IsDependentOnParent)
	})

	t.Run("ignored paths are skipped", func(t *testing.T) {
		source, target := pair(t, baseYAML, `
tables:
  - name: users
    comment: changed
    columns:
      - name: id
        type: bigint
      - name: name
        type: text
    primaryKey:
      columns: [id]
`)
		hs := hints.NewHintSet(source, target,
			&hints.IgnoreHint{Path: "tables/orders"},
			&hints.IgnoreHint{Path: "tables/users/comment"},
			&hints.IgnoreHint{Path: "tables/users/columns/id"},
		)
		diff, err := comparator.Compare(source, target, hs)
		require.NoError(t, err)
		assert.Nil(t, diff)
	})

	t.Run("model name is not a rename", func(t *testing.T) {
		source, target := pair(t, "name: app\ntables:\n  - name: t\n", "name: app2\ntables:\n  - name: t\n")
		diff, err := comparator.Compare(source, target, hints.NewHintSet(source, target))
		require.NoError(t, err)
		assert.Nil(t, diff)
	})

	t.Run("references compare through matches", func(t *testing.T) {
		source, target := pair(t, `
tables:
  - name: a
  - name: b
    foreignKeys:
      - name: fk
        referencedTable: tables/a
`, `
tables:
  - name: renamed
  - name: b
    foreignKeys:
      - name: fk
        referencedTable: tables/renamed
`)
		hs := hints.NewHintSet(source, target, &hints.RenameHint{SourcePath: "tables/a", TargetPath: "tables/renamed"})
		diff, err := comparator.Compare(source, target, hs)
		require.NoError(t, err)

		tables := tableChanges(t, diff)
		require.Len(t, tables, 1, "only the renamed table differs")
		assert.Equal(t, "tables/renamed", tables[0].TargetPath)
	})

	t.Run("changed reference", func(t *testing.T) {
		source, target := pair(t, baseYAML, `
tables:
  - name: users
    columns:
      - name: id
        type: integer
      - name: name
        type: text
    primaryKey:
      columns: [id]
  - name: orders
    columns:
      - name: id
        type: integer
      - name: user_id
        type: integer
    foreignKeys:
      - name: fk_user
        columns: [user_id]
        referencedTable: tables/orders
`)
		diff, err := comparator.Compare(source, target, nil)
		require.NoError(t, err)

		orders := tableChanges(t, diff)[0]
		fk := orders.Property("foreignKeys").(*difference.NodeCollectionDifference).ItemChanges[0]
		ref := fk.Property("referencedTable").(*difference.ValueDifference)
		assert.Equal(t, "tables/users", ref.Source.(*unifiedmodel.Node).Path())
		assert.Equal(t, "tables/orders", ref.Target.(*unifiedmodel.Node).Path())
	})

	t.Run("data hints set flags", func(t *testing.T) {
		source, target := pair(t, baseYAML, `
tables:
  - name: users
    columns:
      - name: id
        type: integer
      - name: name
        type: text
    primaryKey:
      columns: [id]
`)
		hs := hints.NewHintSet(source, target,
			&hints.CopyDataHint{SourceTablePath: "tables/orders", TargetTablePath: "tables/users"},
			&hints.DeleteDataHint{SourceTablePath: "tables/users"},
		)
		result, err := comparator.CompareModels(source, target, hs)
		require.NoError(t, err)
		require.True(t, result.HasChanges())

		tables := tableChanges(t, result.Difference)
		require.Len(t, tables, 2)
		users, orders := tables[0], tables[1]
		assert.True(t, users.IsDataChanged)
		assert.False(t, users.IsRemoveOnCleanup)
		assert.True(t, orders.IsDataChanged)
		assert.True(t, orders.IsRemoveOnCleanup)

		columns := orders.Property("columns").(*difference.NodeCollectionDifference)
		assert.True(t, columns.ItemChanges[0].IsRemoveOnCleanup, "inherited from the removed table")
	})

	t.Run("unresolvable rename hints are reported", func(t *testing.T) {
		source, target := pair(t, baseYAML, baseYAML)
		hs := hints.NewHintSet(source, target, &hints.RenameHint{SourcePath: "tables/nope", TargetPath: "tables/users"})
		result, err := comparator.CompareModels(source, target, hs)
		require.NoError(t, err)
		assert.False(t, result.HasChanges())
		assert.Len(t, result.Warnings, 1)
	})

	t.Run("moved column sets parent changed", func(t *testing.T) {
		source, target := pair(t, `
tables:
  - name: a
    columns:
      - name: x
  - name: b
`, `
tables:
  - name: a
  - name: b
    columns:
      - name: x
`)
		hs := hints.NewHintSet(source, target, &hints.RenameHint{SourcePath: "tables/a/columns/x", TargetPath: "tables/b/columns/x"})
		diff, err := comparator.Compare(source, target, hs)
		require.NoError(t, err)

		tables := tableChanges(t, diff)
		require.Len(t, tables, 1)
		assert.Equal(t, "tables/b", tables[0].TargetPath)
		x := tables[0].Property("columns").(*difference.NodeCollectionDifference).ItemChanges[0]
		assert.Equal(t, difference.ParentChanged, x.Movement)
		assert.Equal(t, "tables/a/columns/x", x.SourcePath)
	})
}
