package plan

// shape is the batchability key: two adjacent actions coalesce iff their
// shapes are equal. Parent is compared by identity, never by value.
type shape struct {
	kind   Kind
	entity string
	path   string
	parent Action
	source IDSource
}

// shapeOf computes the batchability key; ok is false for kinds that never
// batch (root updates, merges, root deletes, locks, and batch wrappers
// themselves, which makes Batch idempotent by construction).
func shapeOf(a Action) (shape, bool) {
	switch act := a.(type) {
	case *InsertRoot:
		return shape{kind: KindInsertRoot, entity: act.Entity(), source: act.IDSource()}, true
	case *Insert:
		return shape{kind: KindInsert, entity: act.Entity(), path: act.Path.DotPath(),
			parent: act.Parent, source: act.IDSource()}, true
	case *Delete:
		return shape{kind: KindDelete, entity: act.Entity(), path: act.Path.DotPath()}, true
	case *Merge, *UpdateRoot, *Update, *DeleteAll, *DeleteRoot, *DeleteAllRoot,
		*AcquireLockRoot, *AcquireLockAllRoot,
		*BatchInsertRoot, *BatchInsert, *BatchDelete:
		return shape{}, false
	default:
		panic("plan: unknown action type in shapeOf")
	}
}

// Batch coalesces adjacent runs of identically shaped actions into single
// batch actions. It never reorders: a differently shaped action between two
// matching runs forces a batch boundary, so every ordering invariant of the
// input survives by construction. Runs of length one stay unbatched, and
// batching an already-batched list is a no-op.
func Batch(actions []Action) []Action {
	out := make([]Action, 0, len(actions))
	var (
		run      []Action
		runShape shape
	)
	flush := func() {
		switch {
		case len(run) == 0:
		case len(run) == 1:
			out = append(out, run[0])
		default:
			out = append(out, wrapRun(runShape, run))
		}
		run = nil
	}
	for _, a := range actions {
		s, batchable := shapeOf(a)
		if !batchable {
			flush()
			out = append(out, a)
			continue
		}
		if len(run) > 0 && s != runShape {
			flush()
		}
		runShape = s
		run = append(run, a)
	}
	flush()
	return out
}

// BatchAll batches the concatenation of several aggregates' action lists.
// Lists are kept contiguous in argument order, so one aggregate's deletes can
// never slide before another's unexecuted root action; only runs touching at
// a list boundary merge.
func BatchAll(lists ...[]Action) []Action {
	var all []Action
	for _, l := range lists {
		all = append(all, l...)
	}
	return Batch(all)
}

func wrapRun(s shape, run []Action) Action {
	switch s.kind {
	case KindInsertRoot:
		acts := make([]*InsertRoot, len(run))
		for i, a := range run {
			acts[i] = a.(*InsertRoot)
		}
		return &BatchInsertRoot{entity: s.entity, Actions: acts, source: s.source}
	case KindInsert:
		acts := make([]*Insert, len(run))
		for i, a := range run {
			acts[i] = a.(*Insert)
		}
		return &BatchInsert{entity: s.entity, Path: acts[0].Path, Actions: acts, source: s.source}
	case KindDelete:
		acts := make([]*Delete, len(run))
		for i, a := range run {
			acts[i] = a.(*Delete)
		}
		return &BatchDelete{entity: s.entity, Path: acts[0].Path, Actions: acts}
	default:
		panic("plan: unbatchable kind in wrapRun")
	}
}
