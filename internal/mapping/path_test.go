package mapping

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// pathSchema exercises every path helper: embedded steps, id-less entities,
// read-only branches, nested collections.
func pathSchema(t *testing.T) *Schema {
	t.Helper()
	s, err := NewSchema(
		&Entity{
			Name:  "order",
			Table: "orders",
			Properties: []Property{
				{Name: "id", Column: "id", ID: true},
				{Name: "items", Relation: &Relation{
					Kind: List, Target: "item", ForeignKey: "order_id", KeyColumn: "idx"}},
				{Name: "audit", Relation: &Relation{
					Kind: One, Target: "stamp", Embedded: true, Prefix: "audit_"}},
				{Name: "legacy", Relation: &Relation{
					Kind: List, Target: "relic", ForeignKey: "order_id", KeyColumn: "idx", ReadOnly: true}},
			},
		},
		&Entity{
			Name:  "item",
			Table: "items",
			Properties: []Property{
				// No identifier: children's foreign keys borrow the order id.
				{Name: "sku", Column: "sku"},
				{Name: "flags", Relation: &Relation{
					Kind: Set, Target: "flag", ForeignKey: "order_id"}},
			},
		},
		&Entity{
			Name:  "flag",
			Table: "flags",
			Properties: []Property{
				{Name: "name", Column: "name"},
			},
		},
		&Entity{
			Name:  "stamp",
			Table: "stamps",
			Properties: []Property{
				{Name: "created", Column: "created"},
				{Name: "nested", Relation: &Relation{
					Kind: One, Target: "inner", Embedded: true, Prefix: "in_"}},
			},
		},
		&Entity{
			Name:  "inner",
			Table: "inners",
			Properties: []Property{
				{Name: "v", Column: "v"},
			},
		},
		&Entity{
			Name:  "relic",
			Table: "relics",
			Properties: []Property{
				{Name: "data", Column: "data"},
			},
		},
	)
	require.NoError(t, err)
	return s
}

func TestPathNavigation(t *testing.T) {
	s := pathSchema(t)

	root, err := s.Root("order")
	require.NoError(t, err)
	assert.True(t, root.IsRoot())
	assert.Equal(t, "order", root.String())
	assert.Equal(t, "", root.DotPath())
	assert.Equal(t, 0, root.Length())
	assert.Nil(t, root.Leaf())
	assert.Equal(t, "order", root.Entity().Name)
	assert.Equal(t, "order", root.Owner().Name)

	items, err := root.Append("items")
	require.NoError(t, err)
	assert.Equal(t, "order.items", items.String())
	assert.Equal(t, "item", items.Entity().Name)
	assert.Equal(t, "order", items.Owner().Name)
	assert.Equal(t, 1, items.Length())
	assert.True(t, items.Parent().IsRoot())

	flags, err := items.Append("flags")
	require.NoError(t, err)
	assert.Equal(t, "items.flags", flags.DotPath())
	assert.Equal(t, "items", flags.Parent().DotPath())

	_, err = root.Append("nope")
	assert.True(t, IsSchemaError(err, ErrUnknownProperty))

	_, err = items.Append("sku")
	assert.True(t, IsSchemaError(err, ErrNotARelation))
}

func TestPathParentOfRootPanics(t *testing.T) {
	s := pathSchema(t)
	root, err := s.Root("order")
	require.NoError(t, err)
	assert.Panics(t, func() { root.Parent() })
}

func TestPathPredicates(t *testing.T) {
	s := pathSchema(t)

	items, _ := s.Path("order", "items")
	flags, _ := s.Path("order", "items.flags")
	audit, _ := s.Path("order", "audit")
	nested, _ := s.Path("order", "audit.nested")
	legacy, _ := s.Path("order", "legacy")

	assert.True(t, items.IsCollectionLike())
	assert.True(t, items.IsQualified())
	assert.False(t, items.IsMap())
	assert.True(t, items.IsMultiValued())
	assert.True(t, items.IsWritable())

	// Sets are collection-like but unqualified.
	assert.True(t, flags.IsCollectionLike())
	assert.False(t, flags.IsQualified())
	assert.True(t, flags.IsMultiValued())

	assert.True(t, audit.IsEmbedded())
	assert.False(t, audit.IsMultiValued())
	assert.True(t, nested.IsEmbedded())

	assert.False(t, legacy.IsWritable())
}

func TestPathTableOwningAncestor(t *testing.T) {
	s := pathSchema(t)

	nested, _ := s.Path("order", "audit.nested")
	assert.True(t, nested.TableOwningAncestor().IsRoot())

	items, _ := s.Path("order", "items")
	assert.Equal(t, "order.items", items.TableOwningAncestor().String())
}

func TestPathIDDefiningAncestor(t *testing.T) {
	s := pathSchema(t)

	// item has no identifier, so items.flags borrows the root's.
	flags, _ := s.Path("order", "items.flags")
	assert.True(t, flags.IDDefiningAncestor().IsRoot())

	items, _ := s.Path("order", "items")
	assert.True(t, items.IDDefiningAncestor().IsRoot())
}

func TestPathColumnPrefix(t *testing.T) {
	s := pathSchema(t)

	audit, _ := s.Path("order", "audit")
	assert.Equal(t, "audit_", audit.ColumnPrefix())

	nested, _ := s.Path("order", "audit.nested")
	assert.Equal(t, "audit_in_", nested.ColumnPrefix())

	items, _ := s.Path("order", "items")
	assert.Equal(t, "", items.ColumnPrefix())
}
