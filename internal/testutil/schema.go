// Package testutil provides the shared order/item fixture schema and a stub
// interpreter with a deterministic identifier sequence.
package testutil

import (
	"testing"

	"github.com/arbordata/arbor/internal/mapping"
)

// Schema returns the canonical test schema: an order aggregate exercising
// every relation shape (list, set, map, single reference, embedded,
// read-only, id-less entity, nested list).
//
//	order (orders; id)
//	  items   list  -> item (items; id)        fk order_id, key idx
//	    tags  list  -> tag (tags; id)          fk item_id, key pos
//	    flags set   -> flag (flags; no id)     fk item_id
//	  notes   map   -> note (notes; no id)     fk order_id, key note_key
//	  billing one   -> address (addresses; id) fk order_id
//	  audit   one   -> stamp, embedded, prefix audit_
//	  legacy  list  -> relic (relics; id)      read-only
func Schema(tb testing.TB) *mapping.Schema {
	tb.Helper()
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
				{Name: "audit", Relation: &mapping.Relation{
					Kind: mapping.One, Target: "stamp", Embedded: true, Prefix: "audit_"}},
				{Name: "legacy", Relation: &mapping.Relation{
					Kind: mapping.List, Target: "relic", ForeignKey: "order_id", KeyColumn: "idx", ReadOnly: true}},
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
				{Name: "flags", Relation: &mapping.Relation{
					Kind: mapping.Set, Target: "flag", ForeignKey: "item_id"}},
			},
		},
		&mapping.Entity{
			Name:  "tag",
			Table: "tags",
			Properties: []mapping.Property{
				{Name: "id", Column: "id", ID: true},
				{Name: "label", Column: "label"},
			},
		},
		&mapping.Entity{
			Name:  "flag",
			Table: "flags",
			Properties: []mapping.Property{
				{Name: "name", Column: "name"},
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
		&mapping.Entity{
			Name:  "stamp",
			Table: "stamps",
			Properties: []mapping.Property{
				{Name: "created", Column: "created"},
				{Name: "actor", Column: "actor"},
			},
		},
		&mapping.Entity{
			Name:  "relic",
			Table: "relics",
			Properties: []mapping.Property{
				{Name: "id", Column: "id", ID: true},
				{Name: "data", Column: "data"},
			},
		},
	)
	if err != nil {
		tb.Fatalf("build fixture schema: %v", err)
	}
	return s
}
