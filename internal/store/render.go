package store

import (
	"fmt"
	"sort"
	"strings"

	"github.com/arbordata/arbor/internal/mapping"
	"github.com/arbordata/arbor/internal/plan"
)

// argList accumulates statement parameters and hands out dialect-appropriate
// placeholders. Values are never interpolated into SQL text.
type argList struct {
	dialect Dialect
	vals    []any
}

func (l *argList) add(v any) string {
	l.vals = append(l.vals, v)
	if l.dialect == Postgres {
		return fmt.Sprintf("$%d", len(l.vals))
	}
	return "?"
}

// rowColumns flattens one entity row into column names and values in
// declaration order. Embedded relations contribute the target's scalar
// columns under the accumulated prefix; absent properties become NULL so the
// column list is identical for every row of the entity. The identifier
// column is skipped when storage generates it.
func rowColumns(schema *mapping.Schema, ent *mapping.Entity, row plan.Row, prefix string, includeID bool) ([]string, []any) {
	var cols []string
	var vals []any
	for i := range ent.Properties {
		p := &ent.Properties[i]
		switch {
		case p.Column != "":
			if p.ID && !includeID {
				continue
			}
			cols = append(cols, prefix+p.Column)
			vals = append(vals, row[p.Name]) // nil for absent -> NULL
		case p.Relation != nil && p.Relation.Embedded:
			target, _ := schema.Entity(p.Relation.Target)
			erow, _ := row[p.Name].(map[string]any)
			ecols, evals := rowColumns(schema, target, erow, prefix+p.Relation.Prefix, true)
			cols = append(cols, ecols...)
			vals = append(vals, evals...)
		}
	}
	return cols, vals
}

// insertSQL renders one insert. fkCols carries the resolved foreign-key and
// qualifier columns from the action's identifier context (empty for roots).
func (s *Store) insertSQL(ent *mapping.Entity, row plan.Row, includeID bool, fkCols map[string]any) (string, []any) {
	cols, vals := rowColumns(s.schema, ent, row, "", includeID)
	for _, c := range sortedKeys(fkCols) {
		cols = append(cols, c)
		vals = append(vals, fkCols[c])
	}
	args := &argList{dialect: s.dialect}
	ph := make([]string, len(vals))
	for i, v := range vals {
		ph[i] = args.add(v)
	}
	sqlText := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		ent.Table, strings.Join(cols, ", "), strings.Join(ph, ", "))
	return sqlText, args.vals
}

// mergeSQL renders an upsert for a single reference: conflict on the unique
// foreign key, update the scalar columns in place.
func (s *Store) mergeSQL(path mapping.Path, ent *mapping.Entity, row plan.Row, includeID bool, fkCols map[string]any) (string, []any) {
	base, vals := s.insertSQL(ent, row, includeID, fkCols)
	fk := path.Leaf().Relation.ForeignKey
	cols, _ := rowColumns(s.schema, ent, row, "", includeID)
	var sets []string
	for _, c := range cols {
		sets = append(sets, fmt.Sprintf("%s = excluded.%s", c, c))
	}
	if len(sets) == 0 {
		return base + fmt.Sprintf(" ON CONFLICT (%s) DO NOTHING", fk), vals
	}
	return base + fmt.Sprintf(" ON CONFLICT (%s) DO UPDATE SET %s", fk, strings.Join(sets, ", ")), vals
}

// updateRootSQL renders the root update keyed by identifier.
func (s *Store) updateRootSQL(ent *mapping.Entity, row plan.Row, id any) (string, []any, error) {
	idProp := ent.IDProperty()
	if idProp == nil {
		return "", nil, fmt.Errorf("entity %q has no identifier property", ent.Name)
	}
	cols, vals := rowColumns(s.schema, ent, row, "", false)
	args := &argList{dialect: s.dialect}
	sets := make([]string, len(cols))
	for i, c := range cols {
		sets[i] = fmt.Sprintf("%s = %s", c, args.add(vals[i]))
	}
	where := fmt.Sprintf("%s = %s", idProp.Column, args.add(id))
	sqlText := fmt.Sprintf("UPDATE %s SET %s WHERE %s", ent.Table, strings.Join(sets, ", "), where)
	return sqlText, args.vals, nil
}

// updateSQL renders a non-root element update keyed by its resolved
// foreign-key and qualifier columns.
func (s *Store) updateSQL(ent *mapping.Entity, row plan.Row, keyCols map[string]any) (string, []any) {
	cols, vals := rowColumns(s.schema, ent, row, "", false)
	args := &argList{dialect: s.dialect}
	sets := make([]string, len(cols))
	for i, c := range cols {
		sets[i] = fmt.Sprintf("%s = %s", c, args.add(vals[i]))
	}
	var wheres []string
	for _, c := range sortedKeys(keyCols) {
		wheres = append(wheres, fmt.Sprintf("%s = %s", c, args.add(keyCols[c])))
	}
	sqlText := fmt.Sprintf("UPDATE %s SET %s WHERE %s",
		ent.Table, strings.Join(sets, ", "), strings.Join(wheres, " AND "))
	return sqlText, args.vals
}

// deleteSQL renders a scoped path delete. The WHERE clause chains inward
// through the id-defining ancestors until it reaches the root identifier:
//
//	DELETE FROM tags WHERE item_id IN (SELECT id FROM items WHERE order_id = ?)
func (s *Store) deleteSQL(path mapping.Path, scope any) (string, []any) {
	args := &argList{dialect: s.dialect}
	where := s.scopeWhere(path, args, scope)
	return fmt.Sprintf("DELETE FROM %s WHERE %s", path.Entity().Table, where), args.vals
}

func (s *Store) scopeWhere(path mapping.Path, args *argList, scope any) string {
	fk := path.Leaf().Relation.ForeignKey
	anc := path.IDDefiningAncestor()
	if anc.IsRoot() {
		return fmt.Sprintf("%s = %s", fk, args.add(scope))
	}
	ancEnt := anc.Entity()
	inner := s.scopeWhere(anc, args, scope)
	return fmt.Sprintf("%s IN (SELECT %s FROM %s WHERE %s)",
		fk, ancEnt.IDProperty().Column, ancEnt.Table, inner)
}

// deleteAllSQL clears the whole path table: child tables belong to exactly
// one aggregate type, so "all rows at this path across all roots" is the
// full table.
func (s *Store) deleteAllSQL(path mapping.Path) string {
	return fmt.Sprintf("DELETE FROM %s", path.Entity().Table)
}

// deleteRootSQL renders the root-row delete.
func (s *Store) deleteRootSQL(ent *mapping.Entity, id any) (string, []any, error) {
	idProp := ent.IDProperty()
	if idProp == nil {
		return "", nil, fmt.Errorf("entity %q has no identifier property", ent.Name)
	}
	args := &argList{dialect: s.dialect}
	sqlText := fmt.Sprintf("DELETE FROM %s WHERE %s = %s", ent.Table, idProp.Column, args.add(id))
	return sqlText, args.vals, nil
}

// lockSQL renders the lock-acquisition probe; Postgres locks the rows, for
// SQLite the statement is a plain existence probe (the single-writer
// connection is the lock).
func (s *Store) lockSQL(ent *mapping.Entity, id any) (string, []any, error) {
	var (
		sqlText string
		args    = &argList{dialect: s.dialect}
	)
	if id != nil {
		idProp := ent.IDProperty()
		if idProp == nil {
			return "", nil, fmt.Errorf("entity %q has no identifier property", ent.Name)
		}
		sqlText = fmt.Sprintf("SELECT 1 FROM %s WHERE %s = %s", ent.Table, idProp.Column, args.add(id))
	} else {
		sqlText = fmt.Sprintf("SELECT 1 FROM %s", ent.Table)
	}
	if s.dialect == Postgres {
		sqlText += " FOR UPDATE"
	}
	return sqlText, args.vals, nil
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
