package compiler

import (
	"fmt"

	"cuelang.org/go/cue"

	"github.com/arbordata/arbor/internal/mapping"
)

// CompileSchema parses a CUE document root into a validated mapping.Schema.
// The document declares entities under "entity"; entity order follows
// declaration order, which the writer's traversal depends on.
//
//	ctx := cuecontext.New()
//	v := ctx.CompileString(`entity: order: { ... }`)
//	schema, err := CompileSchema(v)
func CompileSchema(v cue.Value) (*mapping.Schema, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	entityVal := v.LookupPath(cue.ParsePath("entity"))
	if !entityVal.Exists() {
		return nil, &CompileError{
			Field:   "entity",
			Message: "document declares no entities",
			Pos:     v.Pos(),
		}
	}

	iter, err := entityVal.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}

	var entities []*mapping.Entity
	for iter.Next() {
		ent, err := compileEntity(iter.Label(), iter.Value())
		if err != nil {
			return nil, err
		}
		entities = append(entities, ent)
	}
	if len(entities) == 0 {
		return nil, &CompileError{
			Field:   "entity",
			Message: "document declares no entities",
			Pos:     entityVal.Pos(),
		}
	}

	return mapping.NewSchema(entities...)
}

// compileEntity parses one entity declaration: table (required), id
// (optional, names the identifier property), columns, relations. Scalar
// properties precede relation properties; within each group declaration
// order is preserved.
func compileEntity(name string, v cue.Value) (*mapping.Entity, error) {
	ent := &mapping.Entity{Name: name}

	tableVal := v.LookupPath(cue.ParsePath("table"))
	if !tableVal.Exists() {
		return nil, &CompileError{
			Field:   fmt.Sprintf("entity.%s.table", name),
			Message: "table is required",
			Pos:     v.Pos(),
		}
	}
	table, err := tableVal.String()
	if err != nil {
		return nil, formatCUEError(err)
	}
	ent.Table = table

	idName := ""
	idVal := v.LookupPath(cue.ParsePath("id"))
	if idVal.Exists() {
		idName, err = idVal.String()
		if err != nil {
			return nil, formatCUEError(err)
		}
	}

	colsVal := v.LookupPath(cue.ParsePath("columns"))
	if colsVal.Exists() {
		colIter, err := colsVal.Fields()
		if err != nil {
			return nil, formatCUEError(err)
		}
		for colIter.Next() {
			column, err := colIter.Value().String()
			if err != nil {
				return nil, formatCUEError(err)
			}
			ent.Properties = append(ent.Properties, mapping.Property{
				Name:   colIter.Label(),
				Column: column,
				ID:     colIter.Label() == idName,
			})
		}
	}
	if idName != "" && ent.Property(idName) == nil {
		return nil, &CompileError{
			Field:   fmt.Sprintf("entity.%s.id", name),
			Message: fmt.Sprintf("id names %q but columns declares no such property", idName),
			Pos:     idVal.Pos(),
		}
	}

	relsVal := v.LookupPath(cue.ParsePath("relations"))
	if relsVal.Exists() {
		relIter, err := relsVal.Fields()
		if err != nil {
			return nil, formatCUEError(err)
		}
		for relIter.Next() {
			rel, err := compileRelation(name, relIter.Label(), relIter.Value())
			if err != nil {
				return nil, err
			}
			ent.Properties = append(ent.Properties, mapping.Property{
				Name:     relIter.Label(),
				Relation: rel,
			})
		}
	}

	return ent, nil
}

// compileRelation parses one relation declaration.
func compileRelation(entity, name string, v cue.Value) (*mapping.Relation, error) {
	field := func(sub string) string {
		return fmt.Sprintf("entity.%s.relations.%s.%s", entity, name, sub)
	}

	kindVal := v.LookupPath(cue.ParsePath("kind"))
	if !kindVal.Exists() {
		return nil, &CompileError{Field: field("kind"), Message: "kind is required", Pos: v.Pos()}
	}
	kindStr, err := kindVal.String()
	if err != nil {
		return nil, formatCUEError(err)
	}
	kind, ok := relationKinds[kindStr]
	if !ok {
		return nil, &CompileError{
			Field:   field("kind"),
			Message: fmt.Sprintf("unknown relation kind %q (want one, list, set, or map)", kindStr),
			Pos:     kindVal.Pos(),
		}
	}

	targetVal := v.LookupPath(cue.ParsePath("target"))
	if !targetVal.Exists() {
		return nil, &CompileError{Field: field("target"), Message: "target is required", Pos: v.Pos()}
	}
	target, err := targetVal.String()
	if err != nil {
		return nil, formatCUEError(err)
	}

	rel := &mapping.Relation{Kind: kind, Target: target}

	if rel.Embedded, err = optionalBool(v, "embedded"); err != nil {
		return nil, err
	}
	if rel.ReadOnly, err = optionalBool(v, "readOnly"); err != nil {
		return nil, err
	}
	if rel.Prefix, err = optionalString(v, "prefix"); err != nil {
		return nil, err
	}
	if rel.ForeignKey, err = optionalString(v, "foreignKey"); err != nil {
		return nil, err
	}
	if rel.KeyColumn, err = optionalString(v, "keyColumn"); err != nil {
		return nil, err
	}

	return rel, nil
}

var relationKinds = map[string]mapping.RelationKind{
	"one":  mapping.One,
	"list": mapping.List,
	"set":  mapping.Set,
	"map":  mapping.Map,
}

func optionalString(v cue.Value, path string) (string, error) {
	fv := v.LookupPath(cue.ParsePath(path))
	if !fv.Exists() {
		return "", nil
	}
	s, err := fv.String()
	if err != nil {
		return "", formatCUEError(err)
	}
	return s, nil
}

func optionalBool(v cue.Value, path string) (bool, error) {
	fv := v.LookupPath(cue.ParsePath(path))
	if !fv.Exists() {
		return false, nil
	}
	b, err := fv.Bool()
	if err != nil {
		return false, formatCUEError(err)
	}
	return b, nil
}
