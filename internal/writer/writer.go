package writer

import (
	"fmt"
	"sort"

	"github.com/arbordata/arbor/internal/mapping"
	"github.com/arbordata/arbor/internal/plan"
)

// PriorState tells ComputeSave what the aggregate's identifier looked like
// before this save: unknown (infer from the instance), definitely new, or
// definitely existing. Forcing PriorNew is how caller-provided identifiers
// get an insert instead of an update.
type PriorState int

const (
	// PriorAuto infers new/existing from the identifier property: populated
	// means existing.
	PriorAuto PriorState = iota
	// PriorNew forces an insert even when the identifier is populated
	// (caller-supplied ids).
	PriorNew
	// PriorExisting forces an update; the identifier must be populated.
	PriorExisting
)

// Writer computes changes for aggregates of one schema. It holds no mutable
// state across invocations and is safe for concurrent use.
type Writer struct {
	schema     *mapping.Schema
	deleteLock bool
}

// Option configures a Writer.
type Option func(*Writer)

// WithDeleteLock makes ComputeDelete emit a lock-acquisition action before
// the delete cascade.
func WithDeleteLock() Option {
	return func(w *Writer) { w.deleteLock = true }
}

// New builds a Writer over the given schema.
func New(schema *mapping.Schema, opts ...Option) *Writer {
	w := &Writer{schema: schema}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// ComputeSave diffs the aggregate against its previous persisted shape (or
// absence thereof) and returns the ordered action list:
//
//	[RootAction, Delete* (leaves->root), Insert*/Merge* (root->leaves)]
//
// New roots emit no deletes. Multi-valued relations of existing roots are
// cleared and reinserted. Read-only paths are skipped entirely.
func (w *Writer) ComputeSave(entity string, aggregate plan.Row, prior PriorState) (*Change, error) {
	ent, err := w.schema.Entity(entity)
	if err != nil {
		return nil, err
	}
	idProp := ent.IDProperty()
	if idProp == nil {
		return nil, &mapping.SchemaError{Code: mapping.ErrMissingID, Entity: entity,
			Message: "aggregate root requires an identifier property"}
	}
	if err := w.checkRow(ent, aggregate, ""); err != nil {
		return nil, err
	}

	idVal := aggregate[idProp.Name]
	populated := populatedID(idVal)
	existing := populated
	switch prior {
	case PriorNew:
		existing = false
	case PriorExisting:
		if !populated {
			return nil, &ComputeError{Code: ErrInvalidPrior, Entity: entity,
				Message: "existing aggregate requires a populated identifier"}
		}
		existing = true
	}

	var (
		rootAction plan.Action
		rootCtx    *plan.IdentifierContext
	)
	if existing {
		rootAction = plan.NewUpdateRoot(ent, aggregate, idVal)
		rootCtx = plan.RootIdentifier(plan.Known{Value: idVal})
	} else {
		source := plan.IDGenerated
		if populated {
			source = plan.IDProvided
		}
		ins := plan.NewInsertRoot(ent, aggregate, source)
		rootAction = ins
		if populated {
			rootCtx = plan.RootIdentifier(plan.Known{Value: idVal})
		} else {
			rootCtx = plan.RootIdentifier(plan.Pending{Of: ins})
		}
	}
	actions := []plan.Action{rootAction}

	if existing {
		actions = append(actions, w.deletePass(entity, idVal, true)...)
	}

	root, err := w.schema.Root(entity)
	if err != nil {
		return nil, err
	}
	inserts, err := w.insertPass(root, aggregate, rootAction, rootCtx, !existing)
	if err != nil {
		return nil, err
	}
	actions = append(actions, inserts...)

	return &Change{Entity: entity, Root: aggregate, Actions: actions}, nil
}

// ComputeDelete returns the ordered delete cascade for one root identifier,
// or for all roots of the type when rootID is nil. Deletes run leaf-to-root
// so foreign-key constraints hold at every step.
func (w *Writer) ComputeDelete(entity string, rootID any) (*Change, error) {
	ent, err := w.schema.Entity(entity)
	if err != nil {
		return nil, err
	}
	if rootID != nil && ent.IDProperty() == nil {
		return nil, &mapping.SchemaError{Code: mapping.ErrMissingID, Entity: entity,
			Message: "scoped delete requires an identifier property"}
	}

	var actions []plan.Action
	if w.deleteLock {
		if rootID != nil {
			actions = append(actions, plan.NewAcquireLockRoot(ent, rootID))
		} else {
			actions = append(actions, plan.NewAcquireLockAllRoot(ent))
		}
	}
	if rootID != nil {
		actions = append(actions, w.deletePass(entity, rootID, false)...)
		actions = append(actions, plan.NewDeleteRoot(ent, rootID))
	} else {
		paths, _ := w.schema.RelationPaths(entity)
		for i := len(paths) - 1; i >= 0; i-- {
			p := paths[i]
			if !p.IsWritable() || p.IsEmbedded() {
				continue
			}
			actions = append(actions, plan.NewDeleteAll(p))
		}
		actions = append(actions, plan.NewDeleteAllRoot(ent))
	}
	return &Change{Entity: entity, Actions: actions}, nil
}

// deletePass emits scoped deletes leaf-to-root. For saves only multi-valued
// paths are cleared (single references are merged in place); for delete
// cascades every writable path goes.
func (w *Writer) deletePass(entity string, rootID any, multiOnly bool) []plan.Action {
	paths, _ := w.schema.RelationPaths(entity)
	var out []plan.Action
	// Reverse depth-first order puts every path before its ancestors.
	for i := len(paths) - 1; i >= 0; i-- {
		p := paths[i]
		if !p.IsWritable() || p.IsEmbedded() {
			continue
		}
		if multiOnly && !p.IsMultiValued() {
			continue
		}
		out = append(out, plan.NewDelete(p, rootID))
	}
	return out
}

// insertPass walks the aggregate's relations depth-first in declaration
// order, emitting one insert or merge per present element, each depending on
// its owner's action.
func (w *Writer) insertPass(p mapping.Path, row plan.Row, parent plan.Action, ctx *plan.IdentifierContext, parentNew bool) ([]plan.Action, error) {
	var out []plan.Action
	for _, prop := range p.Entity().Relations() {
		rel := prop.Relation
		if rel.ReadOnly {
			continue
		}
		val, present := row[prop.Name]
		if !present || val == nil {
			continue
		}
		child, err := p.Append(prop.Name)
		if err != nil {
			return nil, err
		}

		if rel.Embedded {
			erow, ok := val.(map[string]any)
			if !ok {
				return nil, w.badValue(child, "embedded relation requires an object", val)
			}
			if err := w.checkRow(child.Entity(), erow, child.DotPath()); err != nil {
				return nil, err
			}
			// Embedded columns live in the owner's row; only relations under
			// the embedded entity produce actions, hanging off the same
			// parent action and context.
			nested, err := w.insertPass(child, erow, parent, ctx, parentNew)
			if err != nil {
				return nil, err
			}
			out = append(out, nested...)
			continue
		}

		switch rel.Kind {
		case mapping.One:
			erow, ok := val.(map[string]any)
			if !ok {
				return nil, w.badValue(child, "one-relation requires an object", val)
			}
			acts, err := w.emitElement(child, erow, parent, ctx, plan.NoQualifier(), parentNew)
			if err != nil {
				return nil, err
			}
			out = append(out, acts...)

		case mapping.List, mapping.Set:
			elems, ok := val.([]any)
			if !ok {
				return nil, w.badValue(child, fmt.Sprintf("%s relation requires a sequence", rel.Kind), val)
			}
			for i, el := range elems {
				erow, ok := el.(map[string]any)
				if !ok {
					return nil, w.badValue(child, "element must be an object", el)
				}
				q := plan.NoQualifier()
				if rel.Kind == mapping.List {
					q = plan.Index(i)
				}
				acts, err := w.emitElement(child, erow, parent, ctx, q, parentNew)
				if err != nil {
					return nil, err
				}
				out = append(out, acts...)
			}

		case mapping.Map:
			elems, ok := val.(map[string]any)
			if !ok {
				return nil, w.badValue(child, "map relation requires an object of objects", val)
			}
			keys := make([]string, 0, len(elems))
			for k := range elems {
				keys = append(keys, k)
			}
			sort.Strings(keys) // deterministic schedule
			for _, k := range keys {
				erow, ok := elems[k].(map[string]any)
				if !ok {
					return nil, w.badValue(child, "map element must be an object", elems[k])
				}
				acts, err := w.emitElement(child, erow, parent, ctx, plan.Key(k), parentNew)
				if err != nil {
					return nil, err
				}
				out = append(out, acts...)
			}
		}
	}
	return out, nil
}

// emitElement emits the action for one element row and recurses into its own
// relations. Multi-valued elements are always inserts (their path was
// cleared); a single reference under a possibly pre-existing parent is a
// merge.
func (w *Writer) emitElement(p mapping.Path, row plan.Row, parent plan.Action, ctx *plan.IdentifierContext, q plan.Qualifier, parentNew bool) ([]plan.Action, error) {
	ent := p.Entity()
	if err := w.checkRow(ent, row, p.DotPath()); err != nil {
		return nil, err
	}

	source := plan.IDNone
	var knownID any
	if idp := ent.IDProperty(); idp != nil {
		if v := row[idp.Name]; populatedID(v) {
			source = plan.IDProvided
			knownID = v
		} else {
			source = plan.IDGenerated
		}
	}

	var (
		act  plan.Action
		like plan.InsertLike
	)
	if !parentNew && !p.IsMultiValued() {
		m := plan.NewMerge(p, row, parent, q, nil, source)
		act, like = m, m
	} else {
		ins := plan.NewInsert(p, row, parent, q, nil, source)
		act, like = ins, ins
	}

	var selfID plan.IDValue
	switch source {
	case plan.IDProvided:
		selfID = plan.Known{Value: knownID}
	case plan.IDGenerated:
		selfID = plan.Pending{Of: like}
	}
	childCtx := ctx.WithQualifier(p, q, selfID)
	switch a := act.(type) {
	case *plan.Insert:
		a.IDCtx = childCtx
	case *plan.Merge:
		a.IDCtx = childCtx
	}

	out := []plan.Action{act}
	childNew := act.Kind() == plan.KindInsert
	nested, err := w.insertPass(p, row, act, childCtx, childNew)
	if err != nil {
		return nil, err
	}
	return append(out, nested...), nil
}

// checkRow rejects properties the metadata does not know about: an unknown
// property fails the whole computation before any action executes.
func (w *Writer) checkRow(ent *mapping.Entity, row plan.Row, dotted string) error {
	for name := range row {
		if ent.Property(name) == nil {
			return &mapping.SchemaError{Code: mapping.ErrUnknownProperty, Entity: ent.Name, Property: name,
				Message: fmt.Sprintf("aggregate value at %q names an unmapped property", dotted)}
		}
	}
	return nil
}

func (w *Writer) badValue(p mapping.Path, msg string, val any) error {
	return &ComputeError{Code: ErrInvalidValue, Entity: p.RootEntity().Name, Path: p.DotPath(),
		Message: fmt.Sprintf("%s, got %T", msg, val)}
}

// populatedID reports whether an identifier value counts as populated. Zero
// numbers, empty strings and nil all mean "no identifier yet".
func populatedID(v any) bool {
	switch id := v.(type) {
	case nil:
		return false
	case int:
		return id != 0
	case int32:
		return id != 0
	case int64:
		return id != 0
	case uint:
		return id != 0
	case uint32:
		return id != 0
	case uint64:
		return id != 0
	case string:
		return id != ""
	default:
		return true
	}
}
