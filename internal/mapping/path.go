package mapping

import "strings"

// Path is an ordered chain of relation traversals from an aggregate root to a
// nested entity. The empty chain is the root path. Paths are immutable
// values; Append returns a new Path.
type Path struct {
	schema *Schema
	root   *Entity
	segs   []segment
}

// segment is one traversal step: the entity owning the relation property and
// the property itself.
type segment struct {
	owner *Entity
	prop  *Property
}

// IsRoot reports whether the path is the empty chain at the aggregate root.
func (p Path) IsRoot() bool { return len(p.segs) == 0 }

// RootEntity returns the aggregate root entity.
func (p Path) RootEntity() *Entity { return p.root }

// Length returns the number of traversal steps.
func (p Path) Length() int { return len(p.segs) }

// Leaf returns the relation property of the last step, or nil for the root.
func (p Path) Leaf() *Property {
	if p.IsRoot() {
		return nil
	}
	return p.segs[len(p.segs)-1].prop
}

// Owner returns the entity owning the leaf property. For the root path this
// is the root entity itself.
func (p Path) Owner() *Entity {
	if p.IsRoot() {
		return p.root
	}
	return p.segs[len(p.segs)-1].owner
}

// Entity returns the entity *at* this path: the root entity for the root
// path, otherwise the leaf relation's target.
func (p Path) Entity() *Entity {
	if p.IsRoot() {
		return p.root
	}
	target, _ := p.schema.Entity(p.Leaf().Relation.Target)
	return target
}

// Parent returns the path one step closer to the root. Calling Parent on the
// root path is a programming error and panics.
func (p Path) Parent() Path {
	if p.IsRoot() {
		panic("mapping: Parent called on a root path")
	}
	return Path{schema: p.schema, root: p.root, segs: p.segs[:len(p.segs)-1]}
}

// Append extends the path by the named relation property of the entity at
// this path.
func (p Path) Append(property string) (Path, error) {
	ent := p.Entity()
	prop := ent.Property(property)
	if prop == nil {
		return Path{}, &SchemaError{Code: ErrUnknownProperty, Entity: ent.Name, Property: property, Message: "unknown property"}
	}
	if !prop.IsRelation() {
		return Path{}, &SchemaError{Code: ErrNotARelation, Entity: ent.Name, Property: property, Message: "property is not a relation"}
	}
	return p.mustAppend(prop), nil
}

// mustAppend extends the path by a relation property already known to belong
// to the entity at this path.
func (p Path) mustAppend(prop *Property) Path {
	segs := make([]segment, len(p.segs), len(p.segs)+1)
	copy(segs, p.segs)
	segs = append(segs, segment{owner: p.Entity(), prop: prop})
	return Path{schema: p.schema, root: p.root, segs: segs}
}

// DotPath renders the path as dotted property names ("items.tags"); the root
// path renders as the empty string.
func (p Path) DotPath() string {
	if p.IsRoot() {
		return ""
	}
	names := make([]string, len(p.segs))
	for i, s := range p.segs {
		names[i] = s.prop.Name
	}
	return strings.Join(names, ".")
}

// String renders the path with its root for diagnostics ("order.items.tags").
func (p Path) String() string {
	if p.IsRoot() {
		return p.root.Name
	}
	return p.root.Name + "." + p.DotPath()
}

// IsCollectionLike reports whether the leaf relation is a list or set.
func (p Path) IsCollectionLike() bool {
	if p.IsRoot() {
		return false
	}
	k := p.Leaf().Relation.Kind
	return k == List || k == Set
}

// IsMap reports whether the leaf relation is a map.
func (p Path) IsMap() bool {
	return !p.IsRoot() && p.Leaf().Relation.Kind == Map
}

// IsQualified reports whether elements at this path carry a positional or
// keyed qualifier (lists and maps; sets and single references do not).
func (p Path) IsQualified() bool {
	return !p.IsRoot() && p.Leaf().Relation.Qualified()
}

// IsEmbedded reports whether the leaf relation flattens into the owner's
// table rather than a child table.
func (p Path) IsEmbedded() bool {
	return !p.IsRoot() && p.Leaf().Relation.Embedded
}

// IsMultiValued reports whether this path or any ancestor step traverses a
// collection or map.
func (p Path) IsMultiValued() bool {
	for _, s := range p.segs {
		if s.prop.Relation.MultiValued() {
			return true
		}
	}
	return false
}

// IsWritable reports whether every step of the path may be written: a single
// read-only step makes the whole subtree read-only.
func (p Path) IsWritable() bool {
	for _, s := range p.segs {
		if s.prop.Relation.ReadOnly {
			return false
		}
	}
	return true
}

// TableOwningAncestor walks upward to the nearest path whose entity owns its
// own table, skipping embedded steps. A root path owns its table by
// definition.
func (p Path) TableOwningAncestor() Path {
	if p.IsRoot() || !p.IsEmbedded() {
		return p
	}
	return p.Parent().TableOwningAncestor()
}

// IDDefiningAncestor walks upward from the parent to the nearest path whose
// entity has an identifier property, falling back to the root. It is the path
// whose identifier a child's foreign key references when intermediate
// entities carry no id of their own.
func (p Path) IDDefiningAncestor() Path {
	if p.IsRoot() {
		return p
	}
	cur := p.Parent()
	for !cur.IsRoot() {
		if !cur.IsEmbedded() && cur.Entity().IDProperty() != nil {
			return cur
		}
		cur = cur.Parent()
	}
	return cur
}

// ColumnPrefix returns the accumulated embedded-column prefix for scalar
// columns of the entity at this path. Empty unless the path ends in one or
// more embedded steps.
func (p Path) ColumnPrefix() string {
	if p.IsRoot() || !p.IsEmbedded() {
		return ""
	}
	return p.Parent().ColumnPrefix() + p.Leaf().Relation.Prefix
}
