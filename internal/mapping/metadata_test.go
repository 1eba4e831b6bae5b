package mapping

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func orderEntities() []*Entity {
	return []*Entity{
		{
			Name:  "order",
			Table: "orders",
			Properties: []Property{
				{Name: "id", Column: "id", ID: true},
				{Name: "customer", Column: "customer"},
				{Name: "items", Relation: &Relation{
					Kind: List, Target: "item", ForeignKey: "order_id", KeyColumn: "idx"}},
				{Name: "billing", Relation: &Relation{
					Kind: One, Target: "address", ForeignKey: "order_id"}},
			},
		},
		{
			Name:  "item",
			Table: "items",
			Properties: []Property{
				{Name: "id", Column: "id", ID: true},
				{Name: "sku", Column: "sku"},
				{Name: "tags", Relation: &Relation{
					Kind: List, Target: "tag", ForeignKey: "item_id", KeyColumn: "pos"}},
			},
		},
		{
			Name:  "tag",
			Table: "tags",
			Properties: []Property{
				{Name: "label", Column: "label"},
			},
		},
		{
			Name:  "address",
			Table: "addresses",
			Properties: []Property{
				{Name: "id", Column: "id", ID: true},
				{Name: "street", Column: "street"},
			},
		},
	}
}

func TestNewSchemaValid(t *testing.T) {
	s, err := NewSchema(orderEntities()...)
	require.NoError(t, err)

	assert.Equal(t, []string{"order", "item", "tag", "address"}, s.Entities())

	ent, err := s.Entity("order")
	require.NoError(t, err)
	assert.Equal(t, "orders", ent.Table)
	assert.Equal(t, "id", ent.IDProperty().Name)
	assert.Len(t, ent.Relations(), 2)

	_, err = s.Entity("invoice")
	require.Error(t, err)
	assert.True(t, IsSchemaError(err, ErrUnknownEntity))
}

func TestNewSchemaRelationPathsDepthFirst(t *testing.T) {
	s, err := NewSchema(orderEntities()...)
	require.NoError(t, err)

	paths, err := s.RelationPaths("order")
	require.NoError(t, err)

	var dotted []string
	for _, p := range paths {
		dotted = append(dotted, p.DotPath())
	}
	// Depth-first in declaration order: a parent path precedes the paths
	// through it.
	assert.Equal(t, []string{"items", "items.tags", "billing"}, dotted)
}

func TestNewSchemaValidationErrors(t *testing.T) {
	tests := []struct {
		name     string
		entities []*Entity
		code     string
	}{
		{
			name: "unknown target",
			entities: []*Entity{{
				Name: "a", Table: "as",
				Properties: []Property{
					{Name: "id", Column: "id", ID: true},
					{Name: "bs", Relation: &Relation{Kind: List, Target: "b", ForeignKey: "a_id", KeyColumn: "idx"}},
				},
			}},
			code: ErrUnknownTarget,
		},
		{
			name: "embedded list",
			entities: []*Entity{
				{
					Name: "a", Table: "as",
					Properties: []Property{
						{Name: "id", Column: "id", ID: true},
						{Name: "bs", Relation: &Relation{Kind: List, Target: "b", Embedded: true, KeyColumn: "idx"}},
					},
				},
				{Name: "b", Table: "bs", Properties: []Property{{Name: "x", Column: "x"}}},
			},
			code: ErrEmbeddedMulti,
		},
		{
			name: "missing foreign key",
			entities: []*Entity{
				{
					Name: "a", Table: "as",
					Properties: []Property{
						{Name: "id", Column: "id", ID: true},
						{Name: "b", Relation: &Relation{Kind: One, Target: "b"}},
					},
				},
				{Name: "b", Table: "bs", Properties: []Property{{Name: "x", Column: "x"}}},
			},
			code: ErrMissingFK,
		},
		{
			name: "list without key column",
			entities: []*Entity{
				{
					Name: "a", Table: "as",
					Properties: []Property{
						{Name: "id", Column: "id", ID: true},
						{Name: "bs", Relation: &Relation{Kind: List, Target: "b", ForeignKey: "a_id"}},
					},
				},
				{Name: "b", Table: "bs", Properties: []Property{{Name: "x", Column: "x"}}},
			},
			code: ErrMissingKey,
		},
		{
			name: "map without key column",
			entities: []*Entity{
				{
					Name: "a", Table: "as",
					Properties: []Property{
						{Name: "id", Column: "id", ID: true},
						{Name: "bs", Relation: &Relation{Kind: Map, Target: "b", ForeignKey: "a_id"}},
					},
				},
				{Name: "b", Table: "bs", Properties: []Property{{Name: "x", Column: "x"}}},
			},
			code: ErrMissingKey,
		},
		{
			name: "duplicate entity",
			entities: []*Entity{
				{Name: "a", Table: "as", Properties: []Property{{Name: "x", Column: "x"}}},
				{Name: "a", Table: "as2", Properties: []Property{{Name: "x", Column: "x"}}},
			},
			code: ErrDuplicateName,
		},
		{
			name: "duplicate property",
			entities: []*Entity{{
				Name: "a", Table: "as",
				Properties: []Property{
					{Name: "x", Column: "x"},
					{Name: "x", Column: "x2"},
				},
			}},
			code: ErrDuplicateName,
		},
		{
			name: "two identifier properties",
			entities: []*Entity{{
				Name: "a", Table: "as",
				Properties: []Property{
					{Name: "id", Column: "id", ID: true},
					{Name: "id2", Column: "id2", ID: true},
				},
			}},
			code: ErrDuplicateName,
		},
		{
			name: "relation cycle",
			entities: []*Entity{
				{
					Name: "a", Table: "as",
					Properties: []Property{
						{Name: "id", Column: "id", ID: true},
						{Name: "b", Relation: &Relation{Kind: One, Target: "b", ForeignKey: "a_id"}},
					},
				},
				{
					Name: "b", Table: "bs",
					Properties: []Property{
						{Name: "id", Column: "id", ID: true},
						{Name: "a", Relation: &Relation{Kind: One, Target: "a", ForeignKey: "b_id"}},
					},
				},
			},
			code: ErrRelationCycle,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewSchema(tt.entities...)
			require.Error(t, err)
			assert.True(t, IsSchemaError(err, tt.code), "want code %s, got %v", tt.code, err)
		})
	}
}

func TestSchemaPathLookup(t *testing.T) {
	s, err := NewSchema(orderEntities()...)
	require.NoError(t, err)

	p, err := s.Path("order", "items.tags")
	require.NoError(t, err)
	assert.Equal(t, "order.items.tags", p.String())
	assert.Equal(t, "tag", p.Entity().Name)

	root, err := s.Path("order", "")
	require.NoError(t, err)
	assert.True(t, root.IsRoot())

	_, err = s.Path("order", "items.nope")
	assert.True(t, IsSchemaError(err, ErrUnknownProperty))

	_, err = s.Path("invoice", "items")
	assert.True(t, IsSchemaError(err, ErrUnknownEntity))
}
