package plan

import "github.com/arbordata/arbor/internal/mapping"

// IDValue is a deferred identifier: either already known, or pending on an
// insert-like action that has not executed yet. The sum is sealed; resolution
// happens only at read time, never eagerly, so an identifier generated while
// executing an earlier action is visible to every later resolution.
type IDValue interface {
	isIDValue()
}

// Known is an identifier whose value is available now (populated root id,
// caller-provided element id).
type Known struct {
	Value any
}

func (Known) isIDValue() {}

// Pending defers to the generated identifier of an action that has not
// executed yet.
type Pending struct {
	Of InsertLike
}

func (Pending) isIDValue() {}

// ResolveIDValue reads a deferred identifier. Reading a Pending value before
// its action executed is a resolution error, not a panic: it means the
// schedule ordering was violated.
func ResolveIDValue(v IDValue) (any, error) {
	switch id := v.(type) {
	case Known:
		return id.Value, nil
	case Pending:
		if got, ok := id.Of.GeneratedID(); ok {
			return got, nil
		}
		return nil, &ResolveError{Code: ErrPendingID, Path: id.Of.Entity(),
			Message: "identifier not generated yet"}
	default:
		return nil, &ResolveError{Code: ErrMissingID, Message: "nil identifier value"}
	}
}

// IdentifierContext is an immutable chain of path levels, each contributing
// at most one deferred identifier and one qualifier. A context never mutates:
// WithQualifier derives a child context sharing the parent chain.
type IdentifierContext struct {
	parent *IdentifierContext
	path   mapping.Path // zero for the root link
	qual   Qualifier
	id     IDValue // nil when the level's entity has no identifier
}

// RootIdentifier starts a chain with the aggregate root's identifier.
func RootIdentifier(id IDValue) *IdentifierContext {
	return &IdentifierContext{id: id}
}

// WithQualifier derives a context one path level deeper, carrying that
// level's qualifier and (optionally) its own deferred identifier.
func (c *IdentifierContext) WithQualifier(path mapping.Path, q Qualifier, id IDValue) *IdentifierContext {
	return &IdentifierContext{parent: c, path: path, qual: q, id: id}
}

// ToIdentifier assembles the column values a row at the given path needs
// from its ancestors: the foreign key referencing the immediately enclosing
// id-defining ancestor, plus this level's own qualifier column. Values from
// grandparent levels are deliberately not repeated.
func (c *IdentifierContext) ToIdentifier(path mapping.Path) (map[string]any, error) {
	level, err := c.find(path)
	if err != nil {
		return nil, err
	}
	rel := path.Leaf().Relation
	cols := make(map[string]any, 2)
	if path.IsQualified() {
		cols[rel.KeyColumn] = level.qual.Value()
	}
	if rel.ForeignKey != "" {
		if _, taken := cols[rel.ForeignKey]; taken {
			return nil, &ResolveError{Code: ErrAmbiguousQualifier, Path: path.DotPath(), Column: rel.ForeignKey,
				Message: "foreign key and qualifier resolve to the same column"}
		}
		id, err := level.enclosingID(path)
		if err != nil {
			return nil, err
		}
		cols[rel.ForeignKey] = id
	}
	return cols, nil
}

// find locates the chain link for the given path, rejecting chains where two
// links claim the same level.
func (c *IdentifierContext) find(path mapping.Path) (*IdentifierContext, error) {
	dotted := path.DotPath()
	var found *IdentifierContext
	for link := c; link != nil; link = link.parent {
		if link.parent == nil {
			continue // root link has no path
		}
		if link.path.DotPath() == dotted {
			if found != nil {
				return nil, &ResolveError{Code: ErrAmbiguousQualifier, Path: dotted,
					Message: "two qualifiers claimed for one path level"}
			}
			found = link
		}
	}
	if found == nil {
		return nil, &ResolveError{Code: ErrUnknownLevel, Path: dotted,
			Message: "identifier context holds no link for path"}
	}
	return found, nil
}

// enclosingID resolves the identifier of the nearest ancestor link that
// carries one.
func (c *IdentifierContext) enclosingID(path mapping.Path) (any, error) {
	for link := c.parent; link != nil; link = link.parent {
		if link.id == nil {
			continue
		}
		return ResolveIDValue(link.id)
	}
	return nil, &ResolveError{Code: ErrMissingID, Path: path.DotPath(),
		Message: "no ancestor identifier in context chain"}
}
