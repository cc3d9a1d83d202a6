package unifiedmodel

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const shopYAML = `
name: shop
tables:
  - name: customers
    columns:
      - name: id
        type: integer
      - name: email
        type: varchar
        nullable: true
    primaryKey:
      columns: [id]
  - name: orders
    comment: customer orders
    columns:
      - name: id
        type: integer
      - name: customer_id
        type: integer
    indexes:
      - name: ix_orders_customer
        columns: [customer_id]
    foreignKeys:
      - name: fk_orders_customer
        columns: [customer_id]
        referencedTable: tables/customers
        referencedColumns: [id]
sequences:
  - name: order_seq
    start: 1
    increment: 1
`

func loadShop(t *testing.T) *Model {
	t.Helper()
	model, err := Decode(RelationalTypes(), []byte(shopYAML))
	require.NoError(t, err)
	return model
}

func TestPaths(t *testing.T) {
	t.Run("escape and split round trip", func(t *testing.T) {
		path := JoinPath("tables", "a/b", `c\d`)
		assert.Equal(t, `tables/a\/b/c\\d`, path)
		assert.Equal(t, []string{"tables", "a/b", `c\d`}, SplitPath(path))
	})

	t.Run("empty path has no segments", func(t *testing.T) {
		assert.Empty(t, SplitPath(""))
		assert.Equal(t, "tables", JoinPath("", "tables"))
	})

	t.Run("prefix checks ignore case", func(t *testing.T) {
		assert.True(t, HasPathPrefix("tables/Orders/columns/id", "TABLES/orders"))
		assert.False(t, HasPathPrefix("tables/orders2", "tables/orders"))
		assert.True(t, HasPathPrefix("tables", ""))
	})

	t.Run("rebase", func(t *testing.T) {
		assert.Equal(t, "tables/Temp_a/columns/x", RebasePath("tables/a/columns/x", "tables/A", "tables/Temp_a"))
		assert.Equal(t, "tables/b", RebasePath("tables/b", "tables/a", "tables/c"))
	})
}

func TestDecode(t *testing.T) {
	model := loadShop(t)

	t.Run("resolves nodes and collections", func(t *testing.T) {
		assert.Equal(t, "shop", model.Root().Name())
		assert.Equal(t, "", model.Root().Path())

		orders, ok := model.ResolveNode("tables/orders")
		require.True(t, ok)
		assert.Equal(t, TypeTable, orders.Type().Name)
		assert.Equal(t, "customer orders", orders.Value("comment"))

		columns, ok := model.Resolve("tables/orders/columns", false).(*Collection)
		require.True(t, ok)
		assert.Equal(t, 2, columns.Len())
		assert.True(t, columns.Ordered())

		id, ok := model.ResolveNode("TABLES/Orders/columns/ID")
		require.True(t, ok, "lookups ignore case")
		assert.Equal(t, "tables/orders/columns/id", id.Path())
		assert.Equal(t, 0, id.Index())
	})

	t.Run("nested nodes are named after their property", func(t *testing.T) {
		pk, ok := model.ResolveNode("tables/customers/primaryKey")
		require.True(t, ok)
		assert.Equal(t, "primaryKey", pk.Name())
		assert.Equal(t, []any{"id"}, pk.Value("columns"))
		assert.Equal(t, -1, pk.Index())
	})

	t.Run("resolves references", func(t *testing.T) {
		fk, ok := model.ResolveNode("tables/orders/foreignKeys/fk_orders_customer")
		require.True(t, ok)
		require.NotNil(t, fk.Ref("referencedTable"))
		assert.Equal(t, "tables/customers", fk.Ref("referencedTable").Path())
	})

	t.Run("partial resolution returns the deepest ancestor", func(t *testing.T) {
		assert.Nil(t, model.Resolve("tables/missing/columns", false))
		partial := model.Resolve("tables/missing/columns", true)
		require.NotNil(t, partial)
		assert.Equal(t, "tables", partial.Path())
	})

	t.Run("rejects unknown properties", func(t *testing.T) {
		_, err := Decode(RelationalTypes(), []byte("name: x\nviews: []\n"))
		require.Error(t, err)
	})

	t.Run("rejects dangling references", func(t *testing.T) {
		doc := `
tables:
  - name: a
    foreignKeys:
      - name: fk
        referencedTable: tables/b
`
		_, err := Decode(RelationalTypes(), []byte(doc))
		require.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("rejects duplicate names ignoring case", func(t *testing.T) {
		doc := `
tables:
  - name: a
  - name: A
`
		_, err := Decode(RelationalTypes(), []byte(doc))
		require.ErrorIs(t, err, ErrNameConflict)
	})
}

func TestEncodeRoundTrip(t *testing.T) {
	model := loadShop(t)

	data, err := Encode(model)
	require.NoError(t, err)

	decoded, err := Decode(RelationalTypes(), data)
	require.NoError(t, err)
	assert.Equal(t, model.Dump(), decoded.Dump())
}

func TestSerializeModel(t *testing.T) {
	data, err := SerializeModel(loadShop(t))
	require.NoError(t, err)

	var info NodeInfo
	require.NoError(t, json.Unmarshal(data, &info))
	assert.Equal(t, TypeModel, info.Type)
	require.Len(t, info.Collections["tables"], 2)
	orders := info.Collections["tables"][1]
	assert.Equal(t, "tables/orders", orders.Path)
	assert.Equal(t, "tables/customers", orders.Collections["foreignKeys"][0].References["referencedTable"])

	_, err = SerializeModel(nil)
	require.Error(t, err)
}

func TestClone(t *testing.T) {
	model := loadShop(t)
	clone := model.Clone()

	assert.Equal(t, model.Dump(), clone.Dump())

	fk, ok := clone.ResolveNode("tables/orders/foreignKeys/fk_orders_customer")
	require.True(t, ok)
	customers, _ := clone.ResolveNode("tables/customers")
	assert.Same(t, customers, fk.Ref("referencedTable"), "references point into the clone")

	require.NoError(t, clone.SetProperty("tables/orders/columns/id", "type", "bigint"))
	original, _ := model.ResolveNode("tables/orders/columns/id")
	assert.Equal(t, "integer", original.Value("type"))
}

func TestMutations(t *testing.T) {
	t.Run("create node at index", func(t *testing.T) {
		model := loadShop(t)
		n, err := model.CreateNode("tables/orders/columns", TypeColumn, "total", 1)
		require.NoError(t, err)
		assert.Equal(t, 1, n.Index())
		assert.Equal(t, "tables/orders/columns/total", n.Path())

		customerID, _ := model.ResolveNode("tables/orders/columns/customer_id")
		assert.Equal(t, 2, customerID.Index())
	})

	t.Run("create nested node", func(t *testing.T) {
		model := loadShop(t)
		n, err := model.CreateNode("tables/orders", TypePrimaryKey, "primaryKey", -1)
		require.NoError(t, err)
		assert.Equal(t, "tables/orders/primaryKey", n.Path())

		_, err = model.CreateNode("tables/orders", TypePrimaryKey, "primaryKey", -1)
		require.ErrorIs(t, err, ErrNameConflict)
	})

	t.Run("create rejects collisions and wrong types", func(t *testing.T) {
		model := loadShop(t)
		_, err := model.CreateNode("tables", TypeTable, "ORDERS", -1)
		require.ErrorIs(t, err, ErrNameConflict)

		_, err = model.CreateNode("tables", TypeColumn, "x", -1)
		require.ErrorIs(t, err, ErrTypeMismatch)

		_, err = model.CreateNode("tables/orders/columns", TypeColumn, "x", 7)
		require.ErrorIs(t, err, ErrInvalidIndex)

		_, err = model.CreateNode("tables/nothing/columns", TypeColumn, "x", -1)
		require.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("remove detaches the subtree", func(t *testing.T) {
		model := loadShop(t)
		customers, _ := model.ResolveNode("tables/customers")
		fk, _ := model.ResolveNode("tables/orders/foreignKeys/fk_orders_customer")

		require.NoError(t, model.RemoveNode("tables/customers"))
		_, ok := model.ResolveNode("tables/customers")
		assert.False(t, ok)
		assert.Nil(t, customers.Model())
		assert.Nil(t, fk.Ref("referencedTable"), "references to removed nodes read as nil")

		require.ErrorIs(t, model.RemoveNode("tables/customers"), ErrNotFound)
	})

	t.Run("remove nested node", func(t *testing.T) {
		model := loadShop(t)
		require.NoError(t, model.RemoveNode("tables/customers/primaryKey"))
		customers, _ := model.ResolveNode("tables/customers")
		assert.Nil(t, customers.Nested("primaryKey"))
	})

	t.Run("move renames in place", func(t *testing.T) {
		model := loadShop(t)
		n, err := model.MoveNode("tables/orders/columns/id", "tables/orders/columns", "order_id", -1)
		require.NoError(t, err)
		assert.Equal(t, "tables/orders/columns/order_id", n.Path())
		assert.Equal(t, 0, n.Index())
	})

	t.Run("move reorders", func(t *testing.T) {
		model := loadShop(t)
		n, err := model.MoveNode("tables/orders/columns/id", "tables/orders/columns", "id", 1)
		require.NoError(t, err)
		assert.Equal(t, 1, n.Index())
	})

	t.Run("move only changing case", func(t *testing.T) {
		model := loadShop(t)
		n, err := model.MoveNode("tables/orders", "tables", "Orders", -1)
		require.NoError(t, err)
		assert.Equal(t, "Orders", n.Name())
	})

	t.Run("move reparents", func(t *testing.T) {
		model := loadShop(t)
		n, err := model.MoveNode("tables/orders/columns/customer_id", "tables/customers/columns", "customer_id", -1)
		require.NoError(t, err)
		assert.Equal(t, "tables/customers/columns/customer_id", n.Path())
		assert.Equal(t, 2, n.Index())
		assert.Equal(t, "customers", n.Parent().Name())
	})

	t.Run("move rejects collisions", func(t *testing.T) {
		model := loadShop(t)
		_, err := model.MoveNode("tables/orders", "tables", "customers", -1)
		require.ErrorIs(t, err, ErrNameConflict)
		_, ok := model.ResolveNode("tables/orders")
		assert.True(t, ok)
	})

	t.Run("set reference by path", func(t *testing.T) {
		model := loadShop(t)
		require.NoError(t, model.SetProperty("tables/orders/foreignKeys/fk_orders_customer", "referencedTable", NodeRef{Path: "tables/orders"}))
		fk, _ := model.ResolveNode("tables/orders/foreignKeys/fk_orders_customer")
		assert.Equal(t, "tables/orders", fk.Ref("referencedTable").Path())

		err := model.SetProperty("tables/orders/foreignKeys/fk_orders_customer", "referencedTable", NodeRef{Path: "tables/nope"})
		require.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("set empty value clears it", func(t *testing.T) {
		model := loadShop(t)
		require.NoError(t, model.SetProperty("tables/orders", "comment", nil))
		orders, _ := model.ResolveNode("tables/orders")
		assert.Nil(t, orders.Value("comment"))
	})
}

func TestNewTypeRegistry(t *testing.T) {
	_, err := NewTypeRegistry("Root", &NodeType{Name: "Root", Properties: []PropertyDescriptor{
		{Name: "items", Kind: PropertyCollection, ItemType: "Missing"},
	}})
	require.Error(t, err)

	_, err = NewTypeRegistry("Nope", &NodeType{Name: "Root"})
	require.Error(t, err)

	registry := RelationalTypes()
	assert.Equal(t, TypeModel, registry.Root().Name)
	assert.Contains(t, registry.TypeNames(), TypeForeignKey)
}
