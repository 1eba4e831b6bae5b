package mapping

import "fmt"

// RelationKind classifies how a relation holds its target entities.
type RelationKind int

const (
	// One is a single reference to the target entity.
	One RelationKind = iota
	// List is an ordered collection; elements are qualified by position.
	List
	// Set is an unordered collection; elements carry no qualifier.
	Set
	// Map is a keyed collection; elements are qualified by their key.
	Map
)

// String returns the CUE-level name of the kind.
func (k RelationKind) String() string {
	switch k {
	case One:
		return "one"
	case List:
		return "list"
	case Set:
		return "set"
	case Map:
		return "map"
	default:
		return fmt.Sprintf("RelationKind(%d)", int(k))
	}
}

// Relation describes how a property navigates to another entity.
type Relation struct {
	// Kind is the shape of the relation (one/list/set/map).
	Kind RelationKind

	// Target names the entity the relation points at.
	Target string

	// Embedded flattens the target's scalar columns into the owner's own
	// table instead of a child table. Only legal on One relations.
	Embedded bool

	// Prefix is prepended to the target's column names when Embedded.
	Prefix string

	// ForeignKey is the column on the target's table referencing the nearest
	// id-defining ancestor. Empty for embedded relations.
	ForeignKey string

	// KeyColumn stores the qualifier (list position or map key) on the
	// target's table. Required for List and Map relations.
	KeyColumn string

	// ReadOnly relations are never written: the writer emits no action for
	// them regardless of aggregate content.
	ReadOnly bool
}

// Qualified reports whether elements need a positional or keyed qualifier.
func (r *Relation) Qualified() bool { return r.Kind == List || r.Kind == Map }

// MultiValued reports whether the relation holds more than one target.
func (r *Relation) MultiValued() bool { return r.Kind != One }

// Property is a named member of an entity: either a scalar column or a
// relation to another entity (exactly one of Column / Relation is set).
type Property struct {
	Name     string
	Column   string    // scalar column name; empty for relations
	ID       bool      // identifier property
	Relation *Relation // nil for scalars
}

// IsRelation reports whether the property navigates to another entity.
func (p *Property) IsRelation() bool { return p.Relation != nil }

// Entity describes one mapped type: its table and its properties in
// declaration order. Declaration order is load-bearing: the writer traverses
// relations in exactly this order.
type Entity struct {
	Name       string
	Table      string
	Properties []Property
}

// Property returns the named property, or nil.
func (e *Entity) Property(name string) *Property {
	for i := range e.Properties {
		if e.Properties[i].Name == name {
			return &e.Properties[i]
		}
	}
	return nil
}

// IDProperty returns the identifier property, or nil if the entity has none.
func (e *Entity) IDProperty() *Property {
	for i := range e.Properties {
		if e.Properties[i].ID {
			return &e.Properties[i]
		}
	}
	return nil
}

// Relations returns the relation properties in declaration order.
func (e *Entity) Relations() []*Property {
	var rels []*Property
	for i := range e.Properties {
		if e.Properties[i].IsRelation() {
			rels = append(rels, &e.Properties[i])
		}
	}
	return rels
}

// Schema is the full set of entities plus a precomputed path index. Build it
// with NewSchema; a zero Schema is not usable.
type Schema struct {
	entities map[string]*Entity
	order    []string

	// Path index, populated once in NewSchema and read-shared afterwards:
	// root entity -> dotted path -> resolved Path, plus the DFS-ordered list
	// of all relation paths per root.
	byDotted map[string]map[string]Path
	relPaths map[string][]Path
}

// NewSchema validates the given entities and builds the path index. The
// returned Schema is immutable and safe for concurrent use.
func NewSchema(entities ...*Entity) (*Schema, error) {
	s := &Schema{
		entities: make(map[string]*Entity, len(entities)),
		byDotted: make(map[string]map[string]Path, len(entities)),
		relPaths: make(map[string][]Path, len(entities)),
	}
	for _, e := range entities {
		if _, dup := s.entities[e.Name]; dup {
			return nil, &SchemaError{Code: ErrDuplicateName, Entity: e.Name, Message: "entity declared twice"}
		}
		s.entities[e.Name] = e
		s.order = append(s.order, e.Name)
	}
	for _, name := range s.order {
		if err := s.validateEntity(s.entities[name]); err != nil {
			return nil, err
		}
	}
	for _, name := range s.order {
		if err := s.indexPaths(name); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// Entity returns the named entity.
func (s *Schema) Entity(name string) (*Entity, error) {
	e, ok := s.entities[name]
	if !ok {
		return nil, &SchemaError{Code: ErrUnknownEntity, Entity: name, Message: "unknown entity"}
	}
	return e, nil
}

// Entities returns entity names in declaration order.
func (s *Schema) Entities() []string {
	out := make([]string, len(s.order))
	copy(out, s.order)
	return out
}

// Root returns the empty path rooted at the named entity.
func (s *Schema) Root(entity string) (Path, error) {
	e, err := s.Entity(entity)
	if err != nil {
		return Path{}, err
	}
	return Path{schema: s, root: e}, nil
}

// Path resolves a dotted relation path ("items.tags") from the given root.
// The empty string resolves to the root path.
func (s *Schema) Path(root, dotted string) (Path, error) {
	if _, err := s.Entity(root); err != nil {
		return Path{}, err
	}
	if dotted == "" {
		return s.Root(root)
	}
	p, ok := s.byDotted[root][dotted]
	if !ok {
		return Path{}, &SchemaError{Code: ErrUnknownProperty, Entity: root, Property: dotted, Message: "no such path"}
	}
	return p, nil
}

// RelationPaths returns every non-root relation path reachable from the given
// root, in depth-first declaration order (a parent path precedes the paths
// through it).
func (s *Schema) RelationPaths(root string) ([]Path, error) {
	if _, err := s.Entity(root); err != nil {
		return nil, err
	}
	return s.relPaths[root], nil
}

func (s *Schema) validateEntity(e *Entity) error {
	seen := make(map[string]bool, len(e.Properties))
	ids := 0
	for i := range e.Properties {
		p := &e.Properties[i]
		if seen[p.Name] {
			return &SchemaError{Code: ErrDuplicateName, Entity: e.Name, Property: p.Name, Message: "property declared twice"}
		}
		seen[p.Name] = true
		if p.ID {
			ids++
			if ids > 1 {
				return &SchemaError{Code: ErrDuplicateName, Entity: e.Name, Property: p.Name, Message: "multiple identifier properties"}
			}
			if p.IsRelation() {
				return &SchemaError{Code: ErrNotARelation, Entity: e.Name, Property: p.Name, Message: "identifier property cannot be a relation"}
			}
		}
		r := p.Relation
		if r == nil {
			continue
		}
		if _, ok := s.entities[r.Target]; !ok {
			return &SchemaError{Code: ErrUnknownTarget, Entity: e.Name, Property: p.Name,
				Message: fmt.Sprintf("relation target %q is not declared", r.Target)}
		}
		if r.Embedded {
			if r.Kind != One {
				return &SchemaError{Code: ErrEmbeddedMulti, Entity: e.Name, Property: p.Name,
					Message: "embedded is only legal on one-relations"}
			}
		} else if r.ForeignKey == "" {
			return &SchemaError{Code: ErrMissingFK, Entity: e.Name, Property: p.Name,
				Message: "non-embedded relation requires a foreign key column"}
		}
		if r.Qualified() && r.KeyColumn == "" {
			return &SchemaError{Code: ErrMissingKey, Entity: e.Name, Property: p.Name,
				Message: fmt.Sprintf("%s relation requires a key column", r.Kind)}
		}
	}
	return nil
}

// indexPaths enumerates every relation path reachable from root, rejecting
// cycles in the relation graph (an aggregate is a tree, so a path may never
// revisit an entity already on its own chain).
func (s *Schema) indexPaths(root string) error {
	s.byDotted[root] = make(map[string]Path)
	start, _ := s.Root(root)
	onChain := map[string]bool{root: true}
	return s.walkPaths(root, start, onChain)
}

func (s *Schema) walkPaths(root string, p Path, onChain map[string]bool) error {
	for _, rel := range p.Entity().Relations() {
		child := p.mustAppend(rel)
		target := rel.Relation.Target
		if onChain[target] {
			return &SchemaError{Code: ErrRelationCycle, Entity: root, Property: child.DotPath(),
				Message: fmt.Sprintf("relation cycles back into %q", target)}
		}
		s.byDotted[root][child.DotPath()] = child
		s.relPaths[root] = append(s.relPaths[root], child)
		onChain[target] = true
		if err := s.walkPaths(root, child, onChain); err != nil {
			return err
		}
		delete(onChain, target)
	}
	return nil
}
