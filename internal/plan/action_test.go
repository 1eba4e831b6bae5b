package plan

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arbordata/arbor/internal/mapping"
)

// planSchema is the minimal order/item/tag tree used across plan tests.
func planSchema(t *testing.T) *mapping.Schema {
	t.Helper()
	s, err := mapping.NewSchema(
		&mapping.Entity{
			Name:  "order",
			Table: "orders",
			Properties: []mapping.Property{
				{Name: "id", Column: "id", ID: true},
				{Name: "customer", Column: "customer"},
				{Name: "items", Relation: &mapping.Relation{
					Kind: mapping.List, Target: "item", ForeignKey: "order_id", KeyColumn: "idx"}},
				{Name: "notes", Relation: &mapping.Relation{
					Kind: mapping.Map, Target: "note", ForeignKey: "order_id", KeyColumn: "note_key"}},
				{Name: "billing", Relation: &mapping.Relation{
					Kind: mapping.One, Target: "address", ForeignKey: "order_id"}},
			},
		},
		&mapping.Entity{
			Name:  "item",
			Table: "items",
			Properties: []mapping.Property{
				{Name: "id", Column: "id", ID: true},
				{Name: "sku", Column: "sku"},
				{Name: "tags", Relation: &mapping.Relation{
					Kind: mapping.List, Target: "tag", ForeignKey: "item_id", KeyColumn: "pos"}},
			},
		},
		&mapping.Entity{
			Name:  "tag",
			Table: "tags",
			Properties: []mapping.Property{
				{Name: "label", Column: "label"},
			},
		},
		&mapping.Entity{
			Name:  "note",
			Table: "notes",
			Properties: []mapping.Property{
				{Name: "text", Column: "text"},
			},
		},
		&mapping.Entity{
			Name:  "address",
			Table: "addresses",
			Properties: []mapping.Property{
				{Name: "id", Column: "id", ID: true},
				{Name: "street", Column: "street"},
			},
		},
	)
	require.NoError(t, err)
	return s
}

func mustPath(t *testing.T, s *mapping.Schema, root, dotted string) mapping.Path {
	t.Helper()
	p, err := s.Path(root, dotted)
	require.NoError(t, err)
	return p
}

func TestQualifier(t *testing.T) {
	none := NoQualifier()
	assert.True(t, none.IsNone())
	assert.Nil(t, none.Value())
	assert.Equal(t, "-", none.String())

	idx := Index(3)
	assert.False(t, idx.IsNone())
	assert.Equal(t, 3, idx.Value())
	assert.Equal(t, "3", idx.String())

	// Zero is a real position, not "none".
	zero := Index(0)
	assert.False(t, zero.IsNone())
	assert.Equal(t, 0, zero.Value())

	key := Key("shipping")
	assert.False(t, key.IsNone())
	assert.Equal(t, "shipping", key.Value())
	assert.Equal(t, "shipping", key.String())
}

func TestKindAndSourceNames(t *testing.T) {
	assert.Equal(t, "InsertRoot", KindInsertRoot.String())
	assert.Equal(t, "BatchDelete", KindBatchDelete.String())
	assert.Equal(t, "Kind(99)", Kind(99).String())

	assert.Equal(t, "generated", IDGenerated.String())
	assert.Equal(t, "provided", IDProvided.String())
	assert.Equal(t, "none", IDNone.String())
}

func TestGeneratedIDSlot(t *testing.T) {
	s := planSchema(t)
	ent, err := s.Entity("order")
	require.NoError(t, err)

	a := NewInsertRoot(ent, Row{"customer": "ada"}, IDGenerated)
	_, ok := a.GeneratedID()
	assert.False(t, ok)
	assert.Panics(t, func() { a.MustGeneratedID() })

	a.SetGeneratedID(int64(7))
	got, ok := a.GeneratedID()
	assert.True(t, ok)
	assert.Equal(t, int64(7), got)
	assert.Equal(t, int64(7), a.MustGeneratedID())

	// Write-once.
	assert.Panics(t, func() { a.SetGeneratedID(int64(8)) })

	// Provided ids never receive a generated value.
	b := NewInsertRoot(ent, Row{"id": 5}, IDProvided)
	assert.Panics(t, func() { b.SetGeneratedID(int64(9)) })
}

func TestActionPath(t *testing.T) {
	s := planSchema(t)
	ent, _ := s.Entity("order")
	items := mustPath(t, s, "order", "items")

	root := NewInsertRoot(ent, Row{}, IDGenerated)
	_, ok := ActionPath(root)
	assert.False(t, ok)

	ins := NewInsert(items, Row{"sku": "a"}, root, Index(0), nil, IDGenerated)
	p, ok := ActionPath(ins)
	assert.True(t, ok)
	assert.Equal(t, "items", p.DotPath())

	del := NewDelete(items, 1)
	p, ok = ActionPath(del)
	assert.True(t, ok)
	assert.Equal(t, "items", p.DotPath())
}
