package store

import (
	"fmt"
	"strings"

	"github.com/arbordata/arbor/internal/mapping"
)

// IDMode selects how generated DDL declares identifier columns.
type IDMode int

const (
	// RowIDs declares identifiers INTEGER PRIMARY KEY (rowid alias), so
	// storage assigns them on insert.
	RowIDs IDMode = iota
	// ProvidedIDs declares identifiers TEXT PRIMARY KEY for callers that
	// pre-assign every identifier; SQLite rejects non-integer values in a
	// rowid alias column.
	ProvidedIDs
)

// GenerateDDL derives CREATE TABLE statements from the mapping, in entity
// declaration order. SQLite dialect: identifier columns follow the IDMode,
// scalar columns are declared without affinity so values round-trip
// unchanged, and each non-embedded relation contributes its foreign-key and
// qualifier columns to the target's table. Single references make the
// foreign key UNIQUE, which is what merge upserts conflict on.
//
// Entities reachable only through embedded relations own no table; their
// columns are flattened into the embedding owner.
func GenerateDDL(schema *mapping.Schema, mode IDMode) []string {
	embeddedOnly := embeddedOnlyEntities(schema)
	idDecl := "%s INTEGER PRIMARY KEY"
	if mode == ProvidedIDs {
		idDecl = "%s TEXT PRIMARY KEY"
	}
	var stmts []string
	for _, name := range schema.Entities() {
		if embeddedOnly[name] {
			continue
		}
		ent, _ := schema.Entity(name)
		var cols []string
		if idp := ent.IDProperty(); idp != nil {
			cols = append(cols, fmt.Sprintf(idDecl, idp.Column))
		}
		cols = append(cols, scalarColumns(schema, ent, "")...)
		cols = append(cols, incomingColumns(schema, name)...)
		stmts = append(stmts, fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (%s)",
			ent.Table, strings.Join(cols, ", ")))
	}
	return stmts
}

// embeddedOnlyEntities returns the entities that are targeted exclusively by
// embedded relations.
func embeddedOnlyEntities(schema *mapping.Schema) map[string]bool {
	embedded := map[string]bool{}
	tabular := map[string]bool{}
	for _, name := range schema.Entities() {
		ent, _ := schema.Entity(name)
		for _, rel := range ent.Relations() {
			if rel.Relation.Embedded {
				embedded[rel.Relation.Target] = true
			} else {
				tabular[rel.Relation.Target] = true
			}
		}
	}
	out := map[string]bool{}
	for name := range embedded {
		if !tabular[name] {
			out[name] = true
		}
	}
	return out
}

// scalarColumns lists an entity's non-identifier scalar columns, flattening
// embedded relations under their prefix.
func scalarColumns(schema *mapping.Schema, ent *mapping.Entity, prefix string) []string {
	var cols []string
	for i := range ent.Properties {
		p := &ent.Properties[i]
		switch {
		case p.Column != "" && !p.ID:
			cols = append(cols, prefix+p.Column)
		case p.Relation != nil && p.Relation.Embedded:
			target, _ := schema.Entity(p.Relation.Target)
			cols = append(cols, scalarColumns(schema, target, prefix+p.Relation.Prefix)...)
		}
	}
	return cols
}

// incomingColumns lists the foreign-key and qualifier columns every
// non-embedded relation targeting the entity contributes to its table.
func incomingColumns(schema *mapping.Schema, target string) []string {
	var cols []string
	seen := map[string]bool{}
	for _, name := range schema.Entities() {
		ent, _ := schema.Entity(name)
		for _, prop := range ent.Relations() {
			rel := prop.Relation
			if rel.Target != target || rel.Embedded {
				continue
			}
			if !seen[rel.ForeignKey] {
				seen[rel.ForeignKey] = true
				col := rel.ForeignKey
				if rel.Kind == mapping.One {
					col += " UNIQUE"
				}
				cols = append(cols, col)
			}
			if rel.KeyColumn != "" && !seen[rel.KeyColumn] {
				seen[rel.KeyColumn] = true
				cols = append(cols, rel.KeyColumn)
			}
		}
	}
	return cols
}
