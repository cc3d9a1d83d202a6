package actions

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/redbco/redb-upgrade/pkg/hints"
	"github.com/redbco/redb-upgrade/pkg/unifiedmodel"
)

const modelYAML = `
name: app
tables:
  - name: users
    columns:
      - name: id
        type: integer
      - name: name
        type: text
  - name: groups
`

func newModel(t *testing.T) *unifiedmodel.Model {
	t.Helper()
	m, err := unifiedmodel.Decode(unifiedmodel.RelationalTypes(), []byte(modelYAML))
	require.NoError(t, err)
	return m
}

func TestExecute(t *testing.T) {
	t.Run("create", func(t *testing.T) {
		m := newModel(t)
		a := &CreateNodeAction{Path: "tables/users/columns", Type: unifiedmodel.TypeColumn, Name: "email", Index: IntPtr(1)}
		require.NoError(t, a.Execute(m))

		n, ok := m.ResolveNode("tables/users/columns/email")
		require.True(t, ok)
		assert.Equal(t, 1, n.Index())
	})

	t.Run("remove", func(t *testing.T) {
		m := newModel(t)
		require.NoError(t, (&RemoveNodeAction{Path: "tables/groups"}).Execute(m))
		_, ok := m.ResolveNode("tables/groups")
		assert.False(t, ok)

		err := (&RemoveNodeAction{Path: "tables/groups"}).Execute(m)
		require.ErrorIs(t, err, unifiedmodel.ErrNotFound)
	})

	t.Run("move", func(t *testing.T) {
		m := newModel(t)
		a := &MoveNodeAction{Path: "tables/users", Parent: "tables", Name: "accounts", NewPath: "tables/accounts"}
		require.NoError(t, a.Execute(m))
		_, ok := m.ResolveNode("tables/accounts/columns/id")
		assert.True(t, ok)
	})

	t.Run("move into a taken name fails", func(t *testing.T) {
		m := newModel(t)
		a := &MoveNodeAction{Path: "tables/users", Parent: "tables", Name: "Groups", NewPath: "tables/Groups"}
		require.ErrorIs(t, a.Execute(m), unifiedmodel.ErrNameConflict)
	})

	t.Run("property change", func(t *testing.T) {
		m := newModel(t)
		a := &PropertyChangeAction{Path: "tables/users/columns/name", Properties: map[string]any{"type": "varchar", "nullable": true}}
		require.NoError(t, a.Execute(m))
		n, _ := m.ResolveNode("tables/users/columns/name")
		assert.Equal(t, "varchar", n.Value("type"))
		assert.Equal(t, true, n.Value("nullable"))
	})

	t.Run("data actions leave the model alone", func(t *testing.T) {
		m := newModel(t)
		before := m.Dump()
		a := &DataAction{Hint: &hints.DeleteDataHint{SourceTablePath: "tables/users"}}
		require.NoError(t, a.Execute(m))
		assert.Equal(t, before, m.Dump())
	})

	t.Run("group stops at the first failure", func(t *testing.T) {
		m := newModel(t)
		g := &GroupingNodeAction{Comment: "users"}
		g.Add(
			&RemoveNodeAction{Path: "tables/missing"},
			&RemoveNodeAction{Path: "tables/groups"},
		)
		require.Error(t, g.Execute(m))
		_, ok := m.ResolveNode("tables/groups")
		assert.True(t, ok)
	})
}

func TestFlattenAndFormat(t *testing.T) {
	inner := &GroupingNodeAction{Comment: "users"}
	inner.Add(&RemoveNodeAction{Path: "tables/users/columns/name"})

	root := &GroupingNodeAction{Comment: "Prepare"}
	root.Add(
		&GroupingNodeAction{Comment: "empty"},
		inner,
		nil,
		&RemoveNodeAction{Path: "tables/groups"},
	)
	require.Len(t, root.Actions, 2, "empty groups and nils are dropped")

	flat := Flatten(root)
	require.Len(t, flat, 2)
	assert.Equal(t, "Remove tables/users/columns/name", flat[0].String())
	assert.Equal(t, "Remove tables/groups", flat[1].String())

	text := Format(root)
	assert.Equal(t, "# Prepare\n  # users\n    Remove tables/users/columns/name\n  Remove tables/groups\n", text)
}

func TestString(t *testing.T) {
	tests := []struct {
		action   Action
		expected string
	}{
		{&CreateNodeAction{Path: "tables", Type: "Table", Name: "t"}, "Create Table tables/t"},
		{&CreateNodeAction{Path: "tables/t/columns", Type: "Column", Name: "c", Index: IntPtr(0)}, "Create Column tables/t/columns/c at 0"},
		{&MoveNodeAction{Path: "tables/a", Parent: "tables", Name: "b", NewPath: "tables/b"}, "Move tables/a to tables/b"},
		{&PropertyChangeAction{Path: "tables/t/foreignKeys/fk", Properties: map[string]any{"referencedTable": unifiedmodel.NodeRef{Path: "tables/u"}}}, "Change tables/t/foreignKeys/fk: referencedTable=@tables/u"},
		{&DataAction{Hint: &hints.DeleteDataHint{SourceTablePath: "tables/t", PostCopy: true}}, "Data delete copied data tables/t"},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.action.String())
		})
	}
}

func TestMarshalSequence(t *testing.T) {
	seq := []Action{
		&MoveNodeAction{Path: "tables/a", Parent: "tables", Name: "b", NewPath: "tables/b"},
		&DataAction{Hint: &hints.CopyDataHint{SourceTablePath: "tables/b"}},
	}
	data, err := MarshalSequence(seq)
	require.NoError(t, err)

	var records []map[string]any
	require.NoError(t, json.Unmarshal(data, &records))
	require.Len(t, records, 2)
	assert.Equal(t, "move", records[0]["action"])
	assert.Equal(t, "tables/b", records[0]["new_path"])
	assert.Equal(t, "copyData", records[1]["hint_kind"])
}
