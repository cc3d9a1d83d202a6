package unifiedmodel

// Relational node type names
const (
	TypeModel      = "Model"
	TypeTable      = "Table"
	TypeColumn     = "Column"
	TypePrimaryKey = "PrimaryKey"
	TypeIndex      = "Index"
	TypeForeignKey = "ForeignKey"
	TypeSequence   = "Sequence"
)

// RelationalTypes returns the type registry of a relational schema.
//
// Columns are ordered. Primary keys and indexes are immutable and get recreated on any change.
// Foreign keys are attached to the model root so they are dropped before and created after every
// table they may point to. Comments are volatile and may change on frozen nodes.
func RelationalTypes() *TypeRegistry {
	registry, err := NewTypeRegistry(TypeModel,
		&NodeType{
			Name: TypeModel,
			Properties: []PropertyDescriptor{
				{Name: "tables", Kind: PropertyCollection, ItemType: TypeTable},
				{Name: "sequences", Kind: PropertyCollection, ItemType: TypeSequence},
			},
		},
		&NodeType{
			Name: TypeTable,
			Properties: []PropertyDescriptor{
				{Name: "columns", Kind: PropertyCollection, ItemType: TypeColumn, Ordered: true},
				{Name: "primaryKey", Kind: PropertyNode, ItemType: TypePrimaryKey, IsImmutable: true},
				{Name: "indexes", Kind: PropertyCollection, ItemType: TypeIndex, IsImmutable: true},
				{Name: "foreignKeys", Kind: PropertyCollection, ItemType: TypeForeignKey, DependencyRootType: TypeModel},
				{Name: "comment", Kind: PropertyValue, IsVolatile: true},
			},
		},
		&NodeType{
			Name: TypeColumn,
			Properties: []PropertyDescriptor{
				{Name: "type", Kind: PropertyValue},
				{Name: "nullable", Kind: PropertyValue},
				{Name: "default", Kind: PropertyValue},
				{Name: "comment", Kind: PropertyValue, IsVolatile: true},
			},
		},
		&NodeType{
			Name: TypePrimaryKey,
			Properties: []PropertyDescriptor{
				{Name: "columns", Kind: PropertyValue},
			},
		},
		&NodeType{
			Name: TypeIndex,
			Properties: []PropertyDescriptor{
				{Name: "columns", Kind: PropertyValue},
				{Name: "unique", Kind: PropertyValue},
			},
		},
		&NodeType{
			Name: TypeForeignKey,
			Properties: []PropertyDescriptor{
				{Name: "columns", Kind: PropertyValue},
				{Name: "referencedTable", Kind: PropertyReference},
				{Name: "referencedColumns", Kind: PropertyValue},
				{Name: "onDelete", Kind: PropertyValue},
			},
		},
		&NodeType{
			Name: TypeSequence,
			Properties: []PropertyDescriptor{
				{Name: "start", Kind: PropertyValue},
				{Name: "increment", Kind: PropertyValue},
			},
		},
	)
	if err != nil {
		panic(err)
	}
	return registry
}
