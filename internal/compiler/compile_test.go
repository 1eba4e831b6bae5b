package compiler

import (
	"testing"

	"cuelang.org/go/cue/cuecontext"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arbordata/arbor/internal/mapping"
)

const orderMapping = `
entity: order: {
	table: "orders"
	id:    "id"
	columns: {id: "id", customer: "customer"}
	relations: {
		items: {kind: "list", target: "item", foreignKey: "order_id", keyColumn: "idx"}
		notes: {kind: "map", target: "note", foreignKey: "order_id", keyColumn: "note_key"}
		billing: {kind: "one", target: "address", foreignKey: "order_id"}
		audit: {kind: "one", target: "stamp", embedded: true, prefix: "audit_"}
		legacy: {kind: "list", target: "relic", foreignKey: "order_id", keyColumn: "idx", readOnly: true}
	}
}
entity: item: {
	table: "items"
	id:    "id"
	columns: {id: "id", sku: "sku"}
	relations: {
		flags: {kind: "set", target: "flag", foreignKey: "item_id"}
	}
}
entity: flag: {
	table:   "flags"
	columns: {name: "name"}
}
entity: note: {
	table:   "notes"
	columns: {text: "text"}
}
entity: address: {
	table: "addresses"
	id:    "id"
	columns: {id: "id", street: "street"}
}
entity: stamp: {
	table:   "stamps"
	columns: {created: "created", actor: "actor"}
}
entity: relic: {
	table: "relics"
	id:    "id"
	columns: {id: "id", data: "data"}
}
`

func compile(t *testing.T, src string) (*mapping.Schema, error) {
	t.Helper()
	ctx := cuecontext.New()
	v := ctx.CompileString(src)
	require.NoError(t, v.Err())
	return CompileSchema(v)
}

func TestCompileSchemaBasic(t *testing.T) {
	schema, err := compile(t, orderMapping)
	require.NoError(t, err)

	assert.Equal(t, []string{"order", "item", "flag", "note", "address", "stamp", "relic"},
		schema.Entities())

	order, err := schema.Entity("order")
	require.NoError(t, err)
	assert.Equal(t, "orders", order.Table)
	require.NotNil(t, order.IDProperty())
	assert.Equal(t, "id", order.IDProperty().Column)

	rels := order.Relations()
	require.Len(t, rels, 5)
	assert.Equal(t, "items", rels[0].Name)
	assert.Equal(t, mapping.List, rels[0].Relation.Kind)
	assert.Equal(t, "order_id", rels[0].Relation.ForeignKey)
	assert.Equal(t, "idx", rels[0].Relation.KeyColumn)

	assert.Equal(t, mapping.Map, rels[1].Relation.Kind)
	assert.Equal(t, mapping.One, rels[2].Relation.Kind)

	audit := rels[3].Relation
	assert.True(t, audit.Embedded)
	assert.Equal(t, "audit_", audit.Prefix)

	assert.True(t, rels[4].Relation.ReadOnly)

	// Paths resolve through the compiled schema.
	p, err := schema.Path("order", "items.flags")
	require.NoError(t, err)
	assert.Equal(t, "flag", p.Entity().Name)
}

func TestCompileSchemaFieldErrors(t *testing.T) {
	tests := []struct {
		name  string
		src   string
		field string
	}{
		{
			name:  "no entities",
			src:   `other: {}`,
			field: "entity",
		},
		{
			name:  "missing table",
			src:   `entity: a: {columns: {x: "x"}}`,
			field: "entity.a.table",
		},
		{
			name: "id names unknown property",
			src: `entity: a: {
				table: "as"
				id: "id"
				columns: {x: "x"}
			}`,
			field: "entity.a.id",
		},
		{
			name: "relation without kind",
			src: `entity: a: {
				table: "as"
				columns: {x: "x"}
				relations: {bs: {target: "b"}}
			}`,
			field: "entity.a.relations.bs.kind",
		},
		{
			name: "unknown relation kind",
			src: `entity: a: {
				table: "as"
				columns: {x: "x"}
				relations: {bs: {kind: "bag", target: "b"}}
			}`,
			field: "entity.a.relations.bs.kind",
		},
		{
			name: "relation without target",
			src: `entity: a: {
				table: "as"
				columns: {x: "x"}
				relations: {bs: {kind: "list", keyColumn: "idx", foreignKey: "a_id"}}
			}`,
			field: "entity.a.relations.bs.target",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := compile(t, tt.src)
			require.Error(t, err)
			var cErr *CompileError
			require.ErrorAs(t, err, &cErr)
			assert.Equal(t, tt.field, cErr.Field)
		})
	}
}

func TestCompileSchemaStructuralErrorsSurface(t *testing.T) {
	// Field shapes are fine; the schema validator rejects the target.
	src := `entity: a: {
		table: "as"
		id: "id"
		columns: {id: "id"}
		relations: {bs: {kind: "list", target: "b", foreignKey: "a_id", keyColumn: "idx"}}
	}`
	_, err := compile(t, src)
	require.Error(t, err)
	assert.True(t, mapping.IsSchemaError(err, mapping.ErrUnknownTarget))
}

func TestCompileErrorRendersPosition(t *testing.T) {
	ctx := cuecontext.New()
	v := ctx.CompileString(`entity: a: {columns: {x: "x"}}`)
	_, err := CompileSchema(v)
	require.Error(t, err)
	// Position may or may not be attached for synthetic sources; either way
	// the message names the field.
	assert.Contains(t, err.Error(), "entity.a.table")
}
