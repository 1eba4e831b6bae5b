package plan

import (
	"fmt"

	"github.com/arbordata/arbor/internal/mapping"
)

// Row is one entity instance as a property-name -> value map. Relation
// properties hold nested rows ([]any for lists and sets, map[string]any for
// maps, map[string]any directly for single references).
type Row = map[string]any

// Kind enumerates the closed set of action variants.
type Kind int

const (
	KindInsertRoot Kind = iota
	KindInsert
	KindMerge
	KindUpdateRoot
	KindUpdate
	KindDelete
	KindDeleteAll
	KindDeleteRoot
	KindDeleteAllRoot
	KindAcquireLockRoot
	KindAcquireLockAllRoot
	KindBatchInsertRoot
	KindBatchInsert
	KindBatchDelete
)

var kindNames = [...]string{
	KindInsertRoot:         "InsertRoot",
	KindInsert:             "Insert",
	KindMerge:              "Merge",
	KindUpdateRoot:         "UpdateRoot",
	KindUpdate:             "Update",
	KindDelete:             "Delete",
	KindDeleteAll:          "DeleteAll",
	KindDeleteRoot:         "DeleteRoot",
	KindDeleteAllRoot:      "DeleteAllRoot",
	KindAcquireLockRoot:    "AcquireLockRoot",
	KindAcquireLockAllRoot: "AcquireLockAllRoot",
	KindBatchInsertRoot:    "BatchInsertRoot",
	KindBatchInsert:        "BatchInsert",
	KindBatchDelete:        "BatchDelete",
}

// String returns the variant name.
func (k Kind) String() string {
	if k < 0 || int(k) >= len(kindNames) {
		return fmt.Sprintf("Kind(%d)", int(k))
	}
	return kindNames[k]
}

// IDSource states where an inserted row's identifier comes from. It decides
// batchability: generated and provided inserts never share a batch.
type IDSource int

const (
	// IDGenerated means storage generates the identifier during execution.
	IDGenerated IDSource = iota
	// IDProvided means the caller populated the identifier up front.
	IDProvided
	// IDNone means the entity has no identifier property at all.
	IDNone
)

// String returns the lower-case source name.
func (s IDSource) String() string {
	switch s {
	case IDGenerated:
		return "generated"
	case IDProvided:
		return "provided"
	case IDNone:
		return "none"
	default:
		return fmt.Sprintf("IDSource(%d)", int(s))
	}
}

// Qualifier distinguishes one element of a multi-valued relation: a list
// position, a map key, or nothing for sets and single references.
type Qualifier struct {
	kind  int // 0 none, 1 index, 2 key
	index int
	key   any
}

// NoQualifier is the zero qualifier (sets, single references).
func NoQualifier() Qualifier { return Qualifier{} }

// Index returns a positional qualifier for list elements.
func Index(i int) Qualifier { return Qualifier{kind: 1, index: i} }

// Key returns a keyed qualifier for map elements.
func Key(k any) Qualifier { return Qualifier{kind: 2, key: k} }

// IsNone reports whether the element carries no qualifier.
func (q Qualifier) IsNone() bool { return q.kind == 0 }

// Value returns the qualifier as a column value (int position, map key, or
// nil for none).
func (q Qualifier) Value() any {
	switch q.kind {
	case 1:
		return q.index
	case 2:
		return q.key
	default:
		return nil
	}
}

// String renders the qualifier for diagnostics.
func (q Qualifier) String() string {
	switch q.kind {
	case 1:
		return fmt.Sprintf("%d", q.index)
	case 2:
		return fmt.Sprintf("%v", q.key)
	default:
		return "-"
	}
}

// Action is one atomic write intent. The set of implementations is sealed to
// this package; consumers dispatch exhaustively over Kind.
type Action interface {
	Kind() Kind
	Entity() string
	isAction()
}

// InsertLike is the subset of actions that create rows and may receive a
// storage-generated identifier: InsertRoot, Insert and Merge.
type InsertLike interface {
	Action
	IDSource() IDSource
	SetGeneratedID(v any)
	GeneratedID() (any, bool)
	MustGeneratedID() any
}

// identified is the shared write-once generated-identifier slot embedded in
// insert-like actions.
type identified struct {
	source IDSource
	idSet  bool
	id     any
}

// IDSource returns where the row's identifier comes from.
func (g *identified) IDSource() IDSource { return g.source }

// SetGeneratedID records the identifier storage generated for this row.
// Calling it twice, or on an action whose identifier is not
// storage-generated, is a programming error and panics.
func (g *identified) SetGeneratedID(v any) {
	if g.source != IDGenerated {
		panic(fmt.Sprintf("plan: SetGeneratedID on %s-id action", g.source))
	}
	if g.idSet {
		panic("plan: generated identifier set twice")
	}
	g.idSet = true
	g.id = v
}

// GeneratedID returns the generated identifier and whether it is set yet.
func (g *identified) GeneratedID() (any, bool) { return g.id, g.idSet }

// MustGeneratedID returns the generated identifier, panicking if it has not
// been set: reading it early is a programming error, the schedule guarantees
// parents execute first.
func (g *identified) MustGeneratedID() any {
	if !g.idSet {
		panic("plan: generated identifier read before execution")
	}
	return g.id
}

// InsertRoot inserts the aggregate root row.
type InsertRoot struct {
	entity string
	// Row is the root instance; the identifier property is written back into
	// it after execution.
	Row Row
	// IDProperty names the identifier property ("" if none).
	IDProperty string
	identified
}

// NewInsertRoot builds the root insert for the given entity.
func NewInsertRoot(ent *mapping.Entity, row Row, source IDSource) *InsertRoot {
	a := &InsertRoot{entity: ent.Name, Row: row, identified: identified{source: source}}
	if id := ent.IDProperty(); id != nil {
		a.IDProperty = id.Name
	}
	return a
}

func (a *InsertRoot) Kind() Kind     { return KindInsertRoot }
func (a *InsertRoot) Entity() string { return a.entity }
func (a *InsertRoot) isAction()      {}

// Insert inserts one element row at a non-root path. It depends on exactly
// one parent action, whose identifier feeds this row's foreign key.
type Insert struct {
	entity string
	// Path locates the relation from the aggregate root.
	Path mapping.Path
	// Row is the element instance.
	Row Row
	// IDProperty names the element's identifier property ("" if none).
	IDProperty string
	// Parent is the action this insert depends on. Many inserts may share
	// one parent; the reference is one-way.
	Parent Action
	// Qualifier is the list position or map key, or none for sets and
	// single references.
	Qualifier Qualifier
	// IDCtx resolves the foreign-key and qualifier columns at execution
	// time, once ancestor identifiers are known.
	IDCtx *IdentifierContext
	identified
}

// NewInsert builds an element insert at the given path.
func NewInsert(path mapping.Path, row Row, parent Action, q Qualifier, ctx *IdentifierContext, source IDSource) *Insert {
	ent := path.Entity()
	a := &Insert{entity: ent.Name, Path: path, Row: row, Parent: parent, Qualifier: q, IDCtx: ctx,
		identified: identified{source: source}}
	if id := ent.IDProperty(); id != nil {
		a.IDProperty = id.Name
	}
	return a
}

func (a *Insert) Kind() Kind     { return KindInsert }
func (a *Insert) Entity() string { return a.entity }
func (a *Insert) isAction()      {}

// Merge inserts-or-updates one element row at a non-root path. Emitted for
// single references under an existing root, where the row may or may not
// exist yet.
type Merge struct {
	entity     string
	Path       mapping.Path
	Row        Row
	IDProperty string
	Parent     Action
	Qualifier  Qualifier
	IDCtx      *IdentifierContext
	identified
}

// NewMerge builds an element upsert at the given path.
func NewMerge(path mapping.Path, row Row, parent Action, q Qualifier, ctx *IdentifierContext, source IDSource) *Merge {
	ent := path.Entity()
	a := &Merge{entity: ent.Name, Path: path, Row: row, Parent: parent, Qualifier: q, IDCtx: ctx,
		identified: identified{source: source}}
	if id := ent.IDProperty(); id != nil {
		a.IDProperty = id.Name
	}
	return a
}

func (a *Merge) Kind() Kind     { return KindMerge }
func (a *Merge) Entity() string { return a.entity }
func (a *Merge) isAction()      {}

// UpdateRoot updates the aggregate root row by its populated identifier.
type UpdateRoot struct {
	entity     string
	Row        Row
	IDProperty string
	// ID is the populated root identifier.
	ID any
}

// NewUpdateRoot builds the root update for the given entity.
func NewUpdateRoot(ent *mapping.Entity, row Row, id any) *UpdateRoot {
	a := &UpdateRoot{entity: ent.Name, Row: row, ID: id}
	if idp := ent.IDProperty(); idp != nil {
		a.IDProperty = idp.Name
	}
	return a
}

func (a *UpdateRoot) Kind() Kind     { return KindUpdateRoot }
func (a *UpdateRoot) Entity() string { return a.entity }
func (a *UpdateRoot) isAction()      {}

// Update updates one element row at a non-root path. The writer's
// clear-and-reinsert strategy does not emit it, but the kind stays in the
// taxonomy so every consumer handles it explicitly.
type Update struct {
	entity     string
	Path       mapping.Path
	Row        Row
	IDProperty string
	IDCtx      *IdentifierContext
}

// NewUpdate builds an element update at the given path.
func NewUpdate(path mapping.Path, row Row, ctx *IdentifierContext) *Update {
	ent := path.Entity()
	a := &Update{entity: ent.Name, Path: path, Row: row, IDCtx: ctx}
	if id := ent.IDProperty(); id != nil {
		a.IDProperty = id.Name
	}
	return a
}

func (a *Update) Kind() Kind     { return KindUpdate }
func (a *Update) Entity() string { return a.entity }
func (a *Update) isAction()      {}

// Delete removes every row at a path under one ancestor identifier. It
// carries the identifier value, not an entity instance.
type Delete struct {
	entity string
	Path   mapping.Path
	// Scope is the id-defining ancestor's identifier bounding the delete.
	Scope any
}

// NewDelete builds a scoped delete for the given path.
func NewDelete(path mapping.Path, scope any) *Delete {
	return &Delete{entity: path.Entity().Name, Path: path, Scope: scope}
}

func (a *Delete) Kind() Kind     { return KindDelete }
func (a *Delete) Entity() string { return a.entity }
func (a *Delete) isAction()      {}

// DeleteAll removes every row at a path across all ancestors of the root
// type.
type DeleteAll struct {
	entity string
	Path   mapping.Path
}

// NewDeleteAll builds an unscoped delete for the given path.
func NewDeleteAll(path mapping.Path) *DeleteAll {
	return &DeleteAll{entity: path.Entity().Name, Path: path}
}

func (a *DeleteAll) Kind() Kind     { return KindDeleteAll }
func (a *DeleteAll) Entity() string { return a.entity }
func (a *DeleteAll) isAction()      {}

// DeleteRoot removes the aggregate root row by identifier.
type DeleteRoot struct {
	entity string
	ID     any
}

// NewDeleteRoot builds the root delete.
func NewDeleteRoot(ent *mapping.Entity, id any) *DeleteRoot {
	return &DeleteRoot{entity: ent.Name, ID: id}
}

func (a *DeleteRoot) Kind() Kind     { return KindDeleteRoot }
func (a *DeleteRoot) Entity() string { return a.entity }
func (a *DeleteRoot) isAction()      {}

// DeleteAllRoot removes every root row of the type.
type DeleteAllRoot struct {
	entity string
}

// NewDeleteAllRoot builds the unscoped root delete.
func NewDeleteAllRoot(ent *mapping.Entity) *DeleteAllRoot {
	return &DeleteAllRoot{entity: ent.Name}
}

func (a *DeleteAllRoot) Kind() Kind     { return KindDeleteAllRoot }
func (a *DeleteAllRoot) Entity() string { return a.entity }
func (a *DeleteAllRoot) isAction()      {}

// AcquireLockRoot locks the root row before a scoped delete cascade.
type AcquireLockRoot struct {
	entity string
	ID     any
}

// NewAcquireLockRoot builds the root lock action.
func NewAcquireLockRoot(ent *mapping.Entity, id any) *AcquireLockRoot {
	return &AcquireLockRoot{entity: ent.Name, ID: id}
}

func (a *AcquireLockRoot) Kind() Kind     { return KindAcquireLockRoot }
func (a *AcquireLockRoot) Entity() string { return a.entity }
func (a *AcquireLockRoot) isAction()      {}

// AcquireLockAllRoot locks all root rows before an unscoped delete cascade.
type AcquireLockAllRoot struct {
	entity string
}

// NewAcquireLockAllRoot builds the all-roots lock action.
func NewAcquireLockAllRoot(ent *mapping.Entity) *AcquireLockAllRoot {
	return &AcquireLockAllRoot{entity: ent.Name}
}

func (a *AcquireLockAllRoot) Kind() Kind     { return KindAcquireLockAllRoot }
func (a *AcquireLockAllRoot) Entity() string { return a.entity }
func (a *AcquireLockAllRoot) isAction()      {}

// BatchInsertRoot wraps a run of structurally identical root inserts sharing
// one id-value-source.
type BatchInsertRoot struct {
	entity  string
	Actions []*InsertRoot
	source  IDSource
}

func (a *BatchInsertRoot) Kind() Kind         { return KindBatchInsertRoot }
func (a *BatchInsertRoot) Entity() string     { return a.entity }
func (a *BatchInsertRoot) IDSource() IDSource { return a.source }
func (a *BatchInsertRoot) isAction()          {}

// BatchInsert wraps a run of structurally identical element inserts at one
// path sharing one parent and id-value-source.
type BatchInsert struct {
	entity  string
	Path    mapping.Path
	Actions []*Insert
	source  IDSource
}

func (a *BatchInsert) Kind() Kind         { return KindBatchInsert }
func (a *BatchInsert) Entity() string     { return a.entity }
func (a *BatchInsert) IDSource() IDSource { return a.source }
func (a *BatchInsert) isAction()          {}

// BatchDelete wraps a run of structurally identical scoped deletes at one
// path.
type BatchDelete struct {
	entity  string
	Path    mapping.Path
	Actions []*Delete
}

func (a *BatchDelete) Kind() Kind     { return KindBatchDelete }
func (a *BatchDelete) Entity() string { return a.entity }
func (a *BatchDelete) isAction()      {}

// ActionPath returns the relation path an action targets, and false for root
// actions (which target the root table itself).
func ActionPath(a Action) (mapping.Path, bool) {
	switch act := a.(type) {
	case *Insert:
		return act.Path, true
	case *Merge:
		return act.Path, true
	case *Update:
		return act.Path, true
	case *Delete:
		return act.Path, true
	case *DeleteAll:
		return act.Path, true
	case *BatchInsert:
		return act.Path, true
	case *BatchDelete:
		return act.Path, true
	case *InsertRoot, *UpdateRoot, *DeleteRoot, *DeleteAllRoot,
		*AcquireLockRoot, *AcquireLockAllRoot, *BatchInsertRoot:
		return mapping.Path{}, false
	default:
		panic(fmt.Sprintf("plan: unknown action type %T", a))
	}
}
